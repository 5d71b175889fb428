package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/institute-fee-api/internal/dto"
	"github.com/noah-isme/institute-fee-api/internal/models"
	appErrors "github.com/noah-isme/institute-fee-api/pkg/errors"
)

type allocPagerStub struct {
	ids []string
}

func (s allocPagerStub) ListIDsWithSubscriptionsInRange(ctx context.Context, from, to time.Time, limit, offset int) ([]string, error) {
	if offset >= len(s.ids) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.ids) {
		end = len(s.ids)
	}
	return s.ids[offset:end], nil
}

type allocSubsStub struct {
	byStudent map[string][]models.Subscription
}

func (s allocSubsStub) ListActiveByStudentInRange(ctx context.Context, studentID string, from, to time.Time) ([]models.Subscription, error) {
	return s.byStudent[studentID], nil
}

type allocRepoStub struct {
	existing    map[string]bool
	created     []models.FeeAllocation
	createErr   error
	listRows    []models.FeeAllocation
	listTotal   int
	summary     *models.AllocationPeriodSummary
	existsCalls int
}

func allocKey(studentID, subscriptionID string, month, year int) string {
	return studentID + "/" + subscriptionID
}

func (s *allocRepoStub) Exists(ctx context.Context, studentID, subscriptionID string, month, year int) (bool, error) {
	s.existsCalls++
	return s.existing[allocKey(studentID, subscriptionID, month, year)], nil
}

func (s *allocRepoStub) Create(ctx context.Context, alloc *models.FeeAllocation) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, *alloc)
	return nil
}

func (s *allocRepoStub) List(ctx context.Context, filter models.AllocationFilter) ([]models.FeeAllocation, int, error) {
	return s.listRows, s.listTotal, nil
}

func (s *allocRepoStub) PeriodSummary(ctx context.Context, month, year int) (*models.AllocationPeriodSummary, error) {
	return s.summary, nil
}

func allocationServiceForTest(pager allocPagerStub, subs allocSubsStub, catalog feeCatalogStub, repo *allocRepoStub, pageSize int) *AllocationService {
	return NewAllocationService(pager, subs, catalog, repo, nil, nil, nil, pageSize)
}

func TestMaterializeCreatesRows(t *testing.T) {
	pager := allocPagerStub{ids: []string{"stu-1", "stu-2"}}
	subs := allocSubsStub{byStudent: map[string][]models.Subscription{
		"stu-1": {{ID: "sub-1", StudentID: "stu-1", CourseID: strPtr("crs-1"), DiscountAmount: decimal.Zero}},
		"stu-2": {{ID: "sub-2", StudentID: "stu-2", CourseID: strPtr("crs-1"), DiscountAmount: dec("500")}},
	}}
	catalog := feeCatalogStub{structures: map[string]*models.FeeStructure{
		catalogKey(models.OwnerCourse, "crs-1"): monthlyStructure(models.OwnerCourse, "crs-1", "5000"),
	}}
	repo := &allocRepoStub{existing: map[string]bool{}}

	svc := allocationServiceForTest(pager, subs, catalog, repo, 10)

	result, err := svc.Materialize(context.Background(), dto.MaterializeRequest{Month: 3, Year: 2026})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 0, result.Skipped)
	assert.True(t, result.TotalAmount.Equal(dec("9500")), "total = %s", result.TotalAmount)

	require.Len(t, repo.created, 2)
	first := repo.created[0]
	assert.Equal(t, "stu-1", first.StudentID)
	assert.Equal(t, 3, first.PeriodMonth)
	assert.Equal(t, 2026, first.PeriodYear)
	assert.Equal(t, models.AllocationStatusPending, first.Status)
	assert.False(t, first.IsPaid)
	assert.True(t, repo.created[1].Amount.Equal(dec("4500")))
}

func TestMaterializeSkipsExistingRows(t *testing.T) {
	pager := allocPagerStub{ids: []string{"stu-1"}}
	subs := allocSubsStub{byStudent: map[string][]models.Subscription{
		"stu-1": {{ID: "sub-1", StudentID: "stu-1", CourseID: strPtr("crs-1"), DiscountAmount: decimal.Zero}},
	}}
	repo := &allocRepoStub{existing: map[string]bool{
		allocKey("stu-1", "sub-1", 3, 2026): true,
	}}

	svc := allocationServiceForTest(pager, subs, feeCatalogStub{}, repo, 10)

	result, err := svc.Materialize(context.Background(), dto.MaterializeRequest{Month: 3, Year: 2026})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 1, result.Skipped)
	assert.True(t, result.TotalAmount.IsZero())
	assert.Empty(t, repo.created)
}

func TestMaterializeSkipsOnInsertConflict(t *testing.T) {
	pager := allocPagerStub{ids: []string{"stu-1"}}
	subs := allocSubsStub{byStudent: map[string][]models.Subscription{
		"stu-1": {{ID: "sub-1", StudentID: "stu-1", CourseID: strPtr("crs-1"), DiscountAmount: decimal.Zero}},
	}}
	repo := &allocRepoStub{
		existing:  map[string]bool{},
		createErr: appErrors.Clone(appErrors.ErrConflict, "allocation already exists"),
	}

	svc := allocationServiceForTest(pager, subs, feeCatalogStub{}, repo, 10)

	result, err := svc.Materialize(context.Background(), dto.MaterializeRequest{Month: 3, Year: 2026})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 1, result.Skipped)
}

func TestMaterializeUnpricedOfferingCreatesZeroRow(t *testing.T) {
	pager := allocPagerStub{ids: []string{"stu-1"}}
	subs := allocSubsStub{byStudent: map[string][]models.Subscription{
		"stu-1": {{ID: "sub-1", StudentID: "stu-1", ServiceID: strPtr("svc-unpriced"), DiscountAmount: decimal.Zero}},
	}}
	repo := &allocRepoStub{existing: map[string]bool{}}

	svc := allocationServiceForTest(pager, subs, feeCatalogStub{}, repo, 10)

	result, err := svc.Materialize(context.Background(), dto.MaterializeRequest{Month: 3, Year: 2026})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	require.Len(t, repo.created, 1)
	assert.True(t, repo.created[0].Amount.IsZero())
}

func TestMaterializeRejectsInvalidPeriod(t *testing.T) {
	svc := allocationServiceForTest(allocPagerStub{}, allocSubsStub{}, feeCatalogStub{}, &allocRepoStub{}, 10)

	for _, req := range []dto.MaterializeRequest{
		{Month: 0, Year: 2026},
		{Month: 13, Year: 2026},
		{Month: 3, Year: 99},
	} {
		_, err := svc.Materialize(context.Background(), req)
		require.Error(t, err, "req %+v", req)
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	}
}

func TestMaterializeRejectsAmbiguousSubscription(t *testing.T) {
	pager := allocPagerStub{ids: []string{"stu-1"}}
	subs := allocSubsStub{byStudent: map[string][]models.Subscription{
		"stu-1": {{ID: "sub-1", StudentID: "stu-1", CourseID: strPtr("crs-1"), ServiceID: strPtr("svc-1")}},
	}}

	svc := allocationServiceForTest(pager, subs, feeCatalogStub{}, &allocRepoStub{}, 10)

	_, err := svc.Materialize(context.Background(), dto.MaterializeRequest{Month: 3, Year: 2026})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestMaterializePagesThroughStudents(t *testing.T) {
	ids := make([]string, 5)
	byStudent := make(map[string][]models.Subscription, len(ids))
	for i := range ids {
		id := string(rune('a' + i))
		ids[i] = id
		byStudent[id] = []models.Subscription{{ID: "sub-" + id, StudentID: id, CourseID: strPtr("crs-1"), DiscountAmount: decimal.Zero}}
	}
	repo := &allocRepoStub{existing: map[string]bool{}}

	svc := allocationServiceForTest(allocPagerStub{ids: ids}, allocSubsStub{byStudent: byStudent}, feeCatalogStub{}, repo, 2)

	result, err := svc.Materialize(context.Background(), dto.MaterializeRequest{Month: 1, Year: 2026})
	require.NoError(t, err)
	assert.Equal(t, 5, result.Created)
	assert.Equal(t, 5, repo.existsCalls)
}

func TestEnqueueMaterializeWithoutQueue(t *testing.T) {
	svc := allocationServiceForTest(allocPagerStub{}, allocSubsStub{}, feeCatalogStub{}, &allocRepoStub{}, 10)

	_, err := svc.EnqueueMaterialize(dto.MaterializeRequest{Month: 3, Year: 2026})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
}

func TestPeriodSummaryValidatesPeriod(t *testing.T) {
	svc := allocationServiceForTest(allocPagerStub{}, allocSubsStub{}, feeCatalogStub{}, &allocRepoStub{}, 10)

	_, err := svc.PeriodSummary(context.Background(), 13, 2026)
	require.Error(t, err)

	_, err = svc.PeriodSummary(context.Background(), 6, 99)
	require.Error(t, err)
}

func TestPeriodSummaryReturnsAggregate(t *testing.T) {
	repo := &allocRepoStub{summary: &models.AllocationPeriodSummary{
		PeriodMonth: 3,
		PeriodYear:  2026,
		Count:       4,
		PaidCount:   1,
		TotalAmount: dec("20000"),
		PaidAmount:  dec("5000"),
	}}
	svc := allocationServiceForTest(allocPagerStub{}, allocSubsStub{}, feeCatalogStub{}, repo, 10)

	summary, err := svc.PeriodSummary(context.Background(), 3, 2026)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Count)
	assert.True(t, summary.TotalAmount.Equal(dec("20000")))
}
