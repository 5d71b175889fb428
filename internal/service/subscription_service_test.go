package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/institute-fee-api/internal/dto"
	"github.com/noah-isme/institute-fee-api/internal/models"
	appErrors "github.com/noah-isme/institute-fee-api/pkg/errors"
)

type subRepoStub struct {
	byID        map[string]*models.Subscription
	created     []models.Subscription
	endedID     string
	endedAt     time.Time
	newDiscount *decimal.Decimal
}

func (s *subRepoStub) FindByID(ctx context.Context, id string) (*models.Subscription, error) {
	if sub, ok := s.byID[id]; ok {
		copied := *sub
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *subRepoStub) List(ctx context.Context, filter models.SubscriptionFilter) ([]models.SubscriptionDetail, int, error) {
	return nil, 0, nil
}

func (s *subRepoStub) Create(ctx context.Context, sub *models.Subscription) error {
	sub.ID = "sub-new"
	s.created = append(s.created, *sub)
	return nil
}

func (s *subRepoStub) End(ctx context.Context, id string, endDate time.Time) error {
	s.endedID = id
	s.endedAt = endDate
	return nil
}

func (s *subRepoStub) UpdateDiscount(ctx context.Context, id string, discount decimal.Decimal) error {
	s.newDiscount = &discount
	return nil
}

type subCatalogStub struct {
	courses  map[string]*models.Course
	services map[string]*models.Service
}

func (s subCatalogStub) FindCourseByID(ctx context.Context, id string) (*models.Course, error) {
	if course, ok := s.courses[id]; ok {
		return course, nil
	}
	return nil, sql.ErrNoRows
}

func (s subCatalogStub) FindServiceByID(ctx context.Context, id string) (*models.Service, error) {
	if svc, ok := s.services[id]; ok {
		return svc, nil
	}
	return nil, sql.ErrNoRows
}

func subscriptionServiceForTest(repo *subRepoStub, students feeStudentsStub, catalog subCatalogStub) *SubscriptionService {
	return NewSubscriptionService(repo, students, catalog, nil, nil, nil)
}

func TestCreateSubscriptionRequiresExactlyOneOffering(t *testing.T) {
	svc := subscriptionServiceForTest(&subRepoStub{}, feeStudentsStub{}, subCatalogStub{})
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	cases := []dto.CreateSubscriptionRequest{
		{StudentID: "stu-1", StartDate: start},
		{StudentID: "stu-1", CourseID: strPtr("crs-1"), ServiceID: strPtr("svc-1"), StartDate: start},
	}
	for _, req := range cases {
		_, err := svc.Create(context.Background(), req)
		require.Error(t, err)
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	}
}

func TestCreateSubscriptionRejectsNegativeDiscount(t *testing.T) {
	svc := subscriptionServiceForTest(&subRepoStub{}, feeStudentsStub{}, subCatalogStub{})

	_, err := svc.Create(context.Background(), dto.CreateSubscriptionRequest{
		StudentID:      "stu-1",
		CourseID:       strPtr("crs-1"),
		DiscountAmount: dec("-1"),
		StartDate:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateSubscriptionUnknownOffering(t *testing.T) {
	students := feeStudentsStub{students: map[string]*models.StudentDetail{
		"stu-1": {Student: models.Student{ID: "stu-1", FamilyID: "fam-1"}},
	}}
	svc := subscriptionServiceForTest(&subRepoStub{}, students, subCatalogStub{})

	_, err := svc.Create(context.Background(), dto.CreateSubscriptionRequest{
		StudentID: "stu-1",
		CourseID:  strPtr("crs-missing"),
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCreateSubscriptionPersists(t *testing.T) {
	repo := &subRepoStub{}
	students := feeStudentsStub{students: map[string]*models.StudentDetail{
		"stu-1": {Student: models.Student{ID: "stu-1", FamilyID: "fam-1"}},
	}}
	catalog := subCatalogStub{courses: map[string]*models.Course{
		"crs-1": {ID: "crs-1", Name: "Mathematics"},
	}}
	svc := subscriptionServiceForTest(repo, students, catalog)

	sub, err := svc.Create(context.Background(), dto.CreateSubscriptionRequest{
		StudentID:      "stu-1",
		CourseID:       strPtr("crs-1"),
		DiscountAmount: dec("250"),
		StartDate:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "sub-new", sub.ID)
	require.Len(t, repo.created, 1)
	assert.True(t, repo.created[0].DiscountAmount.Equal(dec("250")))
}

func TestEndSubscriptionAlreadyEnded(t *testing.T) {
	ended := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	repo := &subRepoStub{byID: map[string]*models.Subscription{
		"sub-1": {ID: "sub-1", StudentID: "stu-1", CourseID: strPtr("crs-1"), StartDate: ended.AddDate(-1, 0, 0), EndDate: &ended},
	}}
	svc := subscriptionServiceForTest(repo, feeStudentsStub{}, subCatalogStub{})

	_, err := svc.End(context.Background(), "sub-1", dto.EndSubscriptionRequest{EndDate: ended.AddDate(0, 1, 0)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestEndSubscriptionBeforeStart(t *testing.T) {
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	repo := &subRepoStub{byID: map[string]*models.Subscription{
		"sub-1": {ID: "sub-1", StudentID: "stu-1", CourseID: strPtr("crs-1"), StartDate: start},
	}}
	svc := subscriptionServiceForTest(repo, feeStudentsStub{}, subCatalogStub{})

	_, err := svc.End(context.Background(), "sub-1", dto.EndSubscriptionRequest{EndDate: start.AddDate(0, 0, -1)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEndSubscriptionStampsDate(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	repo := &subRepoStub{byID: map[string]*models.Subscription{
		"sub-1": {ID: "sub-1", StudentID: "stu-1", CourseID: strPtr("crs-1"), StartDate: start},
	}}
	svc := subscriptionServiceForTest(repo, feeStudentsStub{}, subCatalogStub{})

	sub, err := svc.End(context.Background(), "sub-1", dto.EndSubscriptionRequest{EndDate: end})
	require.NoError(t, err)
	require.NotNil(t, sub.EndDate)
	assert.True(t, sub.EndDate.Equal(end))
	assert.Equal(t, "sub-1", repo.endedID)
	assert.True(t, repo.endedAt.Equal(end))
}

func TestUpdateSubscriptionDiscount(t *testing.T) {
	repo := &subRepoStub{byID: map[string]*models.Subscription{
		"sub-1": {ID: "sub-1", StudentID: "stu-1", CourseID: strPtr("crs-1"), DiscountAmount: decimal.Zero, StartDate: time.Now()},
	}}
	svc := subscriptionServiceForTest(repo, feeStudentsStub{}, subCatalogStub{})

	sub, err := svc.UpdateDiscount(context.Background(), "sub-1", dto.UpdateSubscriptionDiscountRequest{DiscountAmount: dec("750")})
	require.NoError(t, err)
	assert.True(t, sub.DiscountAmount.Equal(dec("750")))
	require.NotNil(t, repo.newDiscount)
	assert.True(t, repo.newDiscount.Equal(dec("750")))

	_, err = svc.UpdateDiscount(context.Background(), "sub-1", dto.UpdateSubscriptionDiscountRequest{DiscountAmount: dec("-5")})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
