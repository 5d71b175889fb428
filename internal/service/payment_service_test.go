package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/institute-fee-api/internal/dto"
	"github.com/noah-isme/institute-fee-api/internal/models"
	appErrors "github.com/noah-isme/institute-fee-api/pkg/errors"
)

type payRepoStub struct {
	byID       map[string]*models.Payment
	created    []models.Payment
	settledIDs []string
	createErr  error
}

func (s *payRepoStub) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	if payment, ok := s.byID[id]; ok {
		return payment, nil
	}
	return nil, sql.ErrNoRows
}

func (s *payRepoStub) ListByFamily(ctx context.Context, familyID string, page, size int) ([]models.Payment, int, error) {
	return nil, 0, nil
}

func (s *payRepoStub) CreateAndSettle(ctx context.Context, payment *models.Payment, allocationIDs []string) error {
	if s.createErr != nil {
		return s.createErr
	}
	payment.ID = "pay-new"
	if payment.PaidAt.IsZero() {
		payment.PaidAt = time.Now().UTC()
	}
	s.created = append(s.created, *payment)
	s.settledIDs = allocationIDs
	return nil
}

type payAllocStub struct {
	byID map[string]models.FeeAllocation
}

func (s *payAllocStub) FindByIDs(ctx context.Context, ids []string) ([]models.FeeAllocation, error) {
	out := make([]models.FeeAllocation, 0, len(ids))
	for _, id := range ids {
		if alloc, ok := s.byID[id]; ok {
			out = append(out, alloc)
		}
	}
	return out, nil
}

func paymentServiceForTest(repo *payRepoStub, allocs *payAllocStub, students feeStudentsStub, families feeFamiliesStub) *PaymentService {
	return NewPaymentService(repo, allocs, students, families, nil, nil)
}

func paymentFixture() (*payRepoStub, *payAllocStub, feeStudentsStub, feeFamiliesStub) {
	repo := &payRepoStub{}
	allocs := &payAllocStub{byID: map[string]models.FeeAllocation{
		"alloc-1": {ID: "alloc-1", StudentID: "stu-1", Amount: dec("5000")},
		"alloc-2": {ID: "alloc-2", StudentID: "stu-1", Amount: dec("500")},
		"alloc-paid": {ID: "alloc-paid", StudentID: "stu-1", Amount: dec("5000"), IsPaid: true},
		"alloc-other": {ID: "alloc-other", StudentID: "stu-other", Amount: dec("1000")},
	}}
	students := feeStudentsStub{students: map[string]*models.StudentDetail{
		"stu-1":     {Student: models.Student{ID: "stu-1", FamilyID: "fam-1"}},
		"stu-other": {Student: models.Student{ID: "stu-other", FamilyID: "fam-2"}},
	}}
	families := feeFamiliesStub{families: map[string]*models.Family{
		"fam-1": {ID: "fam-1", Name: "Rahman"},
	}}
	return repo, allocs, students, families
}

func TestCreatePaymentSettlesAllocations(t *testing.T) {
	repo, allocs, students, families := paymentFixture()
	svc := paymentServiceForTest(repo, allocs, students, families)

	payment, err := svc.Create(context.Background(), dto.CreatePaymentRequest{
		FamilyID:      "fam-1",
		Amount:        dec("5500"),
		Method:        models.PaymentTransfer,
		AllocationIDs: []string{"alloc-1", "alloc-2"},
	})
	require.NoError(t, err)
	assert.Equal(t, "pay-new", payment.ID)
	assert.Equal(t, []string{"alloc-1", "alloc-2"}, repo.settledIDs)
	require.Len(t, repo.created, 1)
	assert.False(t, repo.created[0].PaidAt.IsZero())
}

func TestCreatePaymentStoreFailureRecordsNothing(t *testing.T) {
	repo, allocs, students, families := paymentFixture()
	repo.createErr = errors.New("connection reset")
	svc := paymentServiceForTest(repo, allocs, students, families)

	_, err := svc.Create(context.Background(), dto.CreatePaymentRequest{
		FamilyID:      "fam-1",
		Amount:        dec("5000"),
		Method:        models.PaymentCash,
		AllocationIDs: []string{"alloc-1"},
	})
	require.Error(t, err)
	assert.Empty(t, repo.created)
	assert.Empty(t, repo.settledIDs)
}

func TestCreatePaymentRejectsAlreadyPaid(t *testing.T) {
	repo, allocs, students, families := paymentFixture()
	svc := paymentServiceForTest(repo, allocs, students, families)

	_, err := svc.Create(context.Background(), dto.CreatePaymentRequest{
		FamilyID:      "fam-1",
		Amount:        dec("5000"),
		Method:        models.PaymentCash,
		AllocationIDs: []string{"alloc-paid"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)
	assert.Empty(t, repo.settledIDs)
}

func TestCreatePaymentRejectsForeignAllocation(t *testing.T) {
	repo, allocs, students, families := paymentFixture()
	svc := paymentServiceForTest(repo, allocs, students, families)

	_, err := svc.Create(context.Background(), dto.CreatePaymentRequest{
		FamilyID:      "fam-1",
		Amount:        dec("1000"),
		Method:        models.PaymentCash,
		AllocationIDs: []string{"alloc-other"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreatePaymentRejectsShortfall(t *testing.T) {
	repo, allocs, students, families := paymentFixture()
	svc := paymentServiceForTest(repo, allocs, students, families)

	_, err := svc.Create(context.Background(), dto.CreatePaymentRequest{
		FamilyID:      "fam-1",
		Amount:        dec("100"),
		Method:        models.PaymentCash,
		AllocationIDs: []string{"alloc-1"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreatePaymentUnknownAllocation(t *testing.T) {
	repo, allocs, students, families := paymentFixture()
	svc := paymentServiceForTest(repo, allocs, students, families)

	_, err := svc.Create(context.Background(), dto.CreatePaymentRequest{
		FamilyID:      "fam-1",
		Amount:        dec("5000"),
		Method:        models.PaymentCash,
		AllocationIDs: []string{"alloc-1", "alloc-missing"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCreatePaymentUnknownFamily(t *testing.T) {
	repo, allocs, students, families := paymentFixture()
	svc := paymentServiceForTest(repo, allocs, students, families)

	_, err := svc.Create(context.Background(), dto.CreatePaymentRequest{
		FamilyID:      "fam-missing",
		Amount:        dec("5000"),
		Method:        models.PaymentCash,
		AllocationIDs: []string{"alloc-1"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCreatePaymentHonorsProvidedPaidAt(t *testing.T) {
	repo, allocs, students, families := paymentFixture()
	svc := paymentServiceForTest(repo, allocs, students, families)

	paidAt := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	payment, err := svc.Create(context.Background(), dto.CreatePaymentRequest{
		FamilyID:      "fam-1",
		Amount:        dec("5000"),
		Method:        models.PaymentOnline,
		PaidAt:        &paidAt,
		AllocationIDs: []string{"alloc-1"},
	})
	require.NoError(t, err)
	assert.True(t, payment.PaidAt.Equal(paidAt))
}
