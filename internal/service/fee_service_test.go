package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/institute-fee-api/internal/models"
	appErrors "github.com/noah-isme/institute-fee-api/pkg/errors"
)

type feeSubsStub struct {
	byStudent map[string][]models.Subscription
	err       error
}

func (s feeSubsStub) ListActiveByStudentAt(ctx context.Context, studentID string, d time.Time) ([]models.Subscription, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.byStudent[studentID], nil
}

type feeCatalogStub struct {
	structures map[string]*models.FeeStructure
	names      map[string]string
}

func catalogKey(owner models.OwnerType, ownerID string) string {
	return string(owner) + ":" + ownerID
}

func (s feeCatalogStub) FindFeeStructure(ctx context.Context, owner models.OwnerType, ownerID string) (*models.FeeStructure, error) {
	if fs, ok := s.structures[catalogKey(owner, ownerID)]; ok {
		return fs, nil
	}
	return nil, sql.ErrNoRows
}

func (s feeCatalogStub) OfferingName(ctx context.Context, owner models.OwnerType, ownerID string) (string, error) {
	if name, ok := s.names[catalogKey(owner, ownerID)]; ok {
		return name, nil
	}
	return "", sql.ErrNoRows
}

type feeStudentsStub struct {
	students map[string]*models.StudentDetail
	byFamily map[string][]models.Student
	err      error
}

func (s feeStudentsStub) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if s.err != nil {
		return nil, s.err
	}
	if student, ok := s.students[id]; ok {
		return student, nil
	}
	return nil, sql.ErrNoRows
}

func (s feeStudentsStub) ListByFamily(ctx context.Context, familyID string) ([]models.Student, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.byFamily[familyID], nil
}

type feeFamiliesStub struct {
	families map[string]*models.Family
}

func (s feeFamiliesStub) FindByID(ctx context.Context, id string) (*models.Family, error) {
	if family, ok := s.families[id]; ok {
		return family, nil
	}
	return nil, sql.ErrNoRows
}

func dec(raw string) decimal.Decimal {
	return decimal.RequireFromString(raw)
}

func strPtr(s string) *string {
	return &s
}

func monthlyStructure(owner models.OwnerType, ownerID, amount string) *models.FeeStructure {
	return &models.FeeStructure{
		OwnerType:    owner,
		OwnerID:      ownerID,
		Amount:       dec(amount),
		BillingCycle: models.CycleMonthly,
		Active:       true,
	}
}

func feeServiceForTest(subs feeSubsStub, catalog feeCatalogStub, students feeStudentsStub, families feeFamiliesStub) *FeeService {
	return NewFeeService(subs, catalog, students, families, nil, 0, nil)
}

func TestComputeStudentFeeSumsLines(t *testing.T) {
	asOf := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	subs := feeSubsStub{byStudent: map[string][]models.Subscription{
		"stu-1": {
			{ID: "sub-1", StudentID: "stu-1", CourseID: strPtr("crs-1"), DiscountAmount: decimal.Zero, StartDate: asOf.AddDate(-1, 0, 0)},
			{ID: "sub-2", StudentID: "stu-1", ServiceID: strPtr("svc-1"), DiscountAmount: decimal.Zero, StartDate: asOf.AddDate(-1, 0, 0)},
		},
	}}
	catalog := feeCatalogStub{
		structures: map[string]*models.FeeStructure{
			catalogKey(models.OwnerCourse, "crs-1"):  monthlyStructure(models.OwnerCourse, "crs-1", "5000"),
			catalogKey(models.OwnerService, "svc-1"): monthlyStructure(models.OwnerService, "svc-1", "500"),
		},
		names: map[string]string{
			catalogKey(models.OwnerCourse, "crs-1"):  "Mathematics",
			catalogKey(models.OwnerService, "svc-1"): "Transport",
		},
	}
	students := feeStudentsStub{students: map[string]*models.StudentDetail{
		"stu-1": {Student: models.Student{ID: "stu-1", FamilyID: "fam-1", FullName: "Amina"}},
	}}

	svc := feeServiceForTest(subs, catalog, students, feeFamiliesStub{})

	fee, err := svc.ComputeStudentFee(context.Background(), "stu-1", asOf)
	require.NoError(t, err)
	assert.True(t, fee.Total.Equal(dec("5500")), "total = %s", fee.Total)
	require.Len(t, fee.Breakdown, 2)
	assert.Equal(t, "Mathematics", fee.Breakdown[0].OwnerName)
	assert.True(t, fee.Breakdown[0].Amount.Add(fee.Breakdown[1].Amount).Equal(fee.Total))
}

func TestComputeStudentFeeNormalizesCycles(t *testing.T) {
	asOf := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	subs := feeSubsStub{byStudent: map[string][]models.Subscription{
		"stu-1": {
			{ID: "sub-q", StudentID: "stu-1", CourseID: strPtr("crs-q"), DiscountAmount: decimal.Zero, StartDate: asOf.AddDate(-1, 0, 0)},
			{ID: "sub-y", StudentID: "stu-1", CourseID: strPtr("crs-y"), DiscountAmount: decimal.Zero, StartDate: asOf.AddDate(-1, 0, 0)},
		},
	}}
	catalog := feeCatalogStub{structures: map[string]*models.FeeStructure{
		catalogKey(models.OwnerCourse, "crs-q"): {OwnerType: models.OwnerCourse, OwnerID: "crs-q", Amount: dec("9000"), BillingCycle: models.CycleQuarterly, Active: true},
		catalogKey(models.OwnerCourse, "crs-y"): {OwnerType: models.OwnerCourse, OwnerID: "crs-y", Amount: dec("60000"), BillingCycle: models.CycleYearly, Active: true},
	}}
	students := feeStudentsStub{students: map[string]*models.StudentDetail{
		"stu-1": {Student: models.Student{ID: "stu-1", FamilyID: "fam-1", FullName: "Amina"}},
	}}

	svc := feeServiceForTest(subs, catalog, students, feeFamiliesStub{})

	fee, err := svc.ComputeStudentFee(context.Background(), "stu-1", asOf)
	require.NoError(t, err)
	assert.True(t, fee.Breakdown[0].MonthlyEquivalent.Equal(dec("3000")))
	assert.True(t, fee.Breakdown[1].MonthlyEquivalent.Equal(dec("5000")))
	assert.True(t, fee.Total.Equal(dec("8000")))
}

func TestComputeStudentFeeRoundsHalfUp(t *testing.T) {
	asOf := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	subs := feeSubsStub{byStudent: map[string][]models.Subscription{
		"stu-1": {{ID: "sub-1", StudentID: "stu-1", CourseID: strPtr("crs-1"), DiscountAmount: decimal.Zero, StartDate: asOf.AddDate(-1, 0, 0)}},
	}}
	catalog := feeCatalogStub{structures: map[string]*models.FeeStructure{
		catalogKey(models.OwnerCourse, "crs-1"): {OwnerType: models.OwnerCourse, OwnerID: "crs-1", Amount: dec("100"), BillingCycle: models.CycleQuarterly, Active: true},
	}}
	students := feeStudentsStub{students: map[string]*models.StudentDetail{
		"stu-1": {Student: models.Student{ID: "stu-1", FamilyID: "fam-1"}},
	}}

	svc := feeServiceForTest(subs, catalog, students, feeFamiliesStub{})

	fee, err := svc.ComputeStudentFee(context.Background(), "stu-1", asOf)
	require.NoError(t, err)
	assert.True(t, fee.Total.Equal(dec("33.33")), "total = %s", fee.Total)
}

func TestComputeStudentFeeClampsOverDiscount(t *testing.T) {
	asOf := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	subs := feeSubsStub{byStudent: map[string][]models.Subscription{
		"stu-1": {{ID: "sub-1", StudentID: "stu-1", CourseID: strPtr("crs-1"), DiscountAmount: dec("6000"), StartDate: asOf.AddDate(-1, 0, 0)}},
	}}
	catalog := feeCatalogStub{structures: map[string]*models.FeeStructure{
		catalogKey(models.OwnerCourse, "crs-1"): monthlyStructure(models.OwnerCourse, "crs-1", "5000"),
	}}
	students := feeStudentsStub{students: map[string]*models.StudentDetail{
		"stu-1": {Student: models.Student{ID: "stu-1", FamilyID: "fam-1"}},
	}}

	svc := feeServiceForTest(subs, catalog, students, feeFamiliesStub{})

	fee, err := svc.ComputeStudentFee(context.Background(), "stu-1", asOf)
	require.NoError(t, err)
	assert.True(t, fee.Total.IsZero())
	assert.True(t, fee.Breakdown[0].Amount.IsZero())
}

func TestComputeStudentFeeMissingStructureContributesZero(t *testing.T) {
	asOf := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	subs := feeSubsStub{byStudent: map[string][]models.Subscription{
		"stu-1": {{ID: "sub-1", StudentID: "stu-1", CourseID: strPtr("crs-unpriced"), DiscountAmount: decimal.Zero, StartDate: asOf.AddDate(-1, 0, 0)}},
	}}
	students := feeStudentsStub{students: map[string]*models.StudentDetail{
		"stu-1": {Student: models.Student{ID: "stu-1", FamilyID: "fam-1"}},
	}}

	svc := feeServiceForTest(subs, feeCatalogStub{}, students, feeFamiliesStub{})

	fee, err := svc.ComputeStudentFee(context.Background(), "stu-1", asOf)
	require.NoError(t, err)
	require.Len(t, fee.Breakdown, 1)
	assert.True(t, fee.Total.IsZero())
}

func TestComputeStudentFeeRejectsAmbiguousSubscription(t *testing.T) {
	asOf := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	subs := feeSubsStub{byStudent: map[string][]models.Subscription{
		"stu-1": {{ID: "sub-1", StudentID: "stu-1", CourseID: strPtr("crs-1"), ServiceID: strPtr("svc-1"), StartDate: asOf.AddDate(-1, 0, 0)}},
	}}
	students := feeStudentsStub{students: map[string]*models.StudentDetail{
		"stu-1": {Student: models.Student{ID: "stu-1", FamilyID: "fam-1"}},
	}}

	svc := feeServiceForTest(subs, feeCatalogStub{}, students, feeFamiliesStub{})

	_, err := svc.ComputeStudentFee(context.Background(), "stu-1", asOf)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestComputeStudentFeeNotFound(t *testing.T) {
	svc := feeServiceForTest(feeSubsStub{}, feeCatalogStub{}, feeStudentsStub{}, feeFamiliesStub{})

	_, err := svc.ComputeStudentFee(context.Background(), "missing", time.Now())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestComputeFamilyFeeAppliesDiscountOnce(t *testing.T) {
	asOf := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	subs := feeSubsStub{byStudent: map[string][]models.Subscription{
		"stu-1": {{ID: "sub-1", StudentID: "stu-1", CourseID: strPtr("crs-1"), DiscountAmount: decimal.Zero, StartDate: asOf.AddDate(-1, 0, 0)}},
		"stu-2": {{ID: "sub-2", StudentID: "stu-2", CourseID: strPtr("crs-1"), DiscountAmount: decimal.Zero, StartDate: asOf.AddDate(-1, 0, 0)}},
	}}
	catalog := feeCatalogStub{structures: map[string]*models.FeeStructure{
		catalogKey(models.OwnerCourse, "crs-1"): monthlyStructure(models.OwnerCourse, "crs-1", "5500"),
	}}
	students := feeStudentsStub{
		byFamily: map[string][]models.Student{
			"fam-1": {
				{ID: "stu-1", FamilyID: "fam-1", FullName: "Amina"},
				{ID: "stu-2", FamilyID: "fam-1", FullName: "Bilal"},
			},
		},
	}
	families := feeFamiliesStub{families: map[string]*models.Family{
		"fam-1": {ID: "fam-1", Name: "Rahman", DiscountAmount: dec("1000")},
	}}

	svc := feeServiceForTest(subs, catalog, students, families)

	fee, err := svc.ComputeFamilyFee(context.Background(), "fam-1", asOf)
	require.NoError(t, err)
	assert.True(t, fee.FamilyGross.Equal(dec("11000")), "gross = %s", fee.FamilyGross)
	assert.True(t, fee.FamilyDiscountApplied.Equal(dec("1000")))
	assert.True(t, fee.FamilyNet.Equal(dec("10000")), "net = %s", fee.FamilyNet)
	require.Len(t, fee.PerStudent, 2)
}

func TestComputeFamilyFeeDiscountNeverExceedsGross(t *testing.T) {
	asOf := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	subs := feeSubsStub{byStudent: map[string][]models.Subscription{
		"stu-1": {{ID: "sub-1", StudentID: "stu-1", CourseID: strPtr("crs-1"), DiscountAmount: decimal.Zero, StartDate: asOf.AddDate(-1, 0, 0)}},
	}}
	catalog := feeCatalogStub{structures: map[string]*models.FeeStructure{
		catalogKey(models.OwnerCourse, "crs-1"): monthlyStructure(models.OwnerCourse, "crs-1", "500"),
	}}
	students := feeStudentsStub{byFamily: map[string][]models.Student{
		"fam-1": {{ID: "stu-1", FamilyID: "fam-1"}},
	}}
	families := feeFamiliesStub{families: map[string]*models.Family{
		"fam-1": {ID: "fam-1", DiscountAmount: dec("2000")},
	}}

	svc := feeServiceForTest(subs, catalog, students, families)

	fee, err := svc.ComputeFamilyFee(context.Background(), "fam-1", asOf)
	require.NoError(t, err)
	assert.True(t, fee.FamilyDiscountApplied.Equal(dec("500")))
	assert.True(t, fee.FamilyNet.IsZero())
}

func TestComputeFamilyFeeEmptyFamily(t *testing.T) {
	families := feeFamiliesStub{families: map[string]*models.Family{
		"fam-1": {ID: "fam-1", DiscountAmount: dec("1000")},
	}}

	svc := feeServiceForTest(feeSubsStub{}, feeCatalogStub{}, feeStudentsStub{}, families)

	fee, err := svc.ComputeFamilyFee(context.Background(), "fam-1", time.Now())
	require.NoError(t, err)
	assert.True(t, fee.FamilyGross.IsZero())
	assert.True(t, fee.FamilyDiscountApplied.IsZero())
	assert.True(t, fee.FamilyNet.IsZero())
	assert.Empty(t, fee.PerStudent)
}

func TestComputeFamilyFeeNotFound(t *testing.T) {
	svc := feeServiceForTest(feeSubsStub{}, feeCatalogStub{}, feeStudentsStub{}, feeFamiliesStub{})

	_, err := svc.ComputeFamilyFee(context.Background(), "missing", time.Now())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestLineAmountSubtractsDiscount(t *testing.T) {
	fs := models.FeeStructure{Amount: dec("9000"), BillingCycle: models.CycleQuarterly}
	assert.True(t, LineAmount(fs, dec("500")).Equal(dec("2500")))
	assert.True(t, LineAmount(fs, dec("9999")).IsZero())
}
