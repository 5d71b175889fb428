package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/institute-fee-api/internal/dto"
	"github.com/noah-isme/institute-fee-api/internal/models"
	appErrors "github.com/noah-isme/institute-fee-api/pkg/errors"
)

type feeSubscriptionReader interface {
	ListActiveByStudentAt(ctx context.Context, studentID string, d time.Time) ([]models.Subscription, error)
}

type feeCatalogReader interface {
	FindFeeStructure(ctx context.Context, owner models.OwnerType, ownerID string) (*models.FeeStructure, error)
	OfferingName(ctx context.Context, owner models.OwnerType, ownerID string) (string, error)
}

type feeStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	ListByFamily(ctx context.Context, familyID string) ([]models.Student, error)
}

type feeFamilyReader interface {
	FindByID(ctx context.Context, id string) (*models.Family, error)
}

// FeeService is the fee computation engine: per-student monthly fees and
// per-family aggregation. All computations are reads; nothing is persisted.
//
// Amount normalization: every fee structure amount is converted to a
// monthly equivalent (MONTHLY x1, QUARTERLY /3, HALF_YEARLY /6, YEARLY /12)
// and rounded half-up to 2 decimal places before the per-subscription
// discount is subtracted and the result floored at zero. Totals are sums of
// already-rounded lines so a breakdown always reconciles with its total.
type FeeService struct {
	subscriptions feeSubscriptionReader
	catalog       feeCatalogReader
	students      feeStudentReader
	families      feeFamilyReader
	cache         *CacheService
	cacheTTL      time.Duration
	logger        *zap.Logger
}

// NewFeeService constructs the engine. cache may be nil.
func NewFeeService(subscriptions feeSubscriptionReader, catalog feeCatalogReader, students feeStudentReader, families feeFamilyReader, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *FeeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeeService{
		subscriptions: subscriptions,
		catalog:       catalog,
		students:      students,
		families:      families,
		cache:         cache,
		cacheTTL:      cacheTTL,
		logger:        logger,
	}
}

// ComputeStudentFee computes the monthly fee owed by one student as of the
// given date. The family discount is not applied here; it belongs to the
// family aggregation so multi-child families are not discounted twice.
func (s *FeeService) ComputeStudentFee(ctx context.Context, studentID string, asOf time.Time) (*dto.StudentFee, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, wrapStoreErr(err, "failed to load student")
	}
	return s.computeForStudent(ctx, student.Student, asOf)
}

// ComputeFamilyFee aggregates every student of a family and applies the
// family discount exactly once, floored at zero.
func (s *FeeService) ComputeFamilyFee(ctx context.Context, familyID string, asOf time.Time) (*dto.FamilyFee, error) {
	cacheKey := familyFeeCacheKey(familyID, asOf)
	if s.cache.Enabled() {
		var cached dto.FamilyFee
		if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
			return &cached, nil
		}
	}

	family, err := s.families.FindByID(ctx, familyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "family not found")
		}
		return nil, wrapStoreErr(err, "failed to load family")
	}

	students, err := s.students.ListByFamily(ctx, familyID)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to load family students")
	}

	result := &dto.FamilyFee{
		FamilyID:    family.ID,
		FamilyName:  family.Name,
		AsOf:        asOf,
		FamilyGross: decimal.Zero,
		PerStudent:  make([]dto.StudentFee, 0, len(students)),
	}

	// A failure computing any one student fails the whole family; a family
	// bill must never silently omit a child.
	for _, student := range students {
		fee, err := s.computeForStudent(ctx, student, asOf)
		if err != nil {
			return nil, err
		}
		result.PerStudent = append(result.PerStudent, *fee)
		result.FamilyGross = result.FamilyGross.Add(fee.Total)
	}

	result.FamilyDiscountApplied = decimal.Min(family.DiscountAmount, result.FamilyGross)
	result.FamilyNet = result.FamilyGross.Sub(result.FamilyDiscountApplied)

	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, cacheKey, result, s.cacheTTL)
	}
	return result, nil
}

// InvalidateFamily drops cached fee summaries after a write that changes
// what the family owes.
func (s *FeeService) InvalidateFamily(ctx context.Context, familyID string) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("fees:family:%s:*", familyID)); err != nil {
		s.logger.Warn("failed to invalidate family fee cache", zap.String("family_id", familyID), zap.Error(err))
	}
}

// InvalidateAllFamilies drops every cached fee summary. Used when a shared
// fee structure changes.
func (s *FeeService) InvalidateAllFamilies(ctx context.Context) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, "fees:family:*"); err != nil {
		s.logger.Warn("failed to invalidate fee caches", zap.Error(err))
	}
}

func (s *FeeService) computeForStudent(ctx context.Context, student models.Student, asOf time.Time) (*dto.StudentFee, error) {
	subs, err := s.subscriptions.ListActiveByStudentAt(ctx, student.ID, asOf)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to load subscriptions")
	}

	fee := &dto.StudentFee{
		StudentID:   student.ID,
		StudentName: student.FullName,
		AsOf:        asOf,
		Total:       decimal.Zero,
		Breakdown:   make([]dto.FeeLine, 0, len(subs)),
	}

	for _, sub := range subs {
		line, err := s.lineFor(ctx, sub)
		if err != nil {
			return nil, err
		}
		fee.Breakdown = append(fee.Breakdown, line)
		fee.Total = fee.Total.Add(line.Amount)
	}
	return fee, nil
}

// lineFor prices a single subscription. A subscription whose offering has no
// active fee structure contributes a zero line so the breakdown stays
// complete for auditing.
func (s *FeeService) lineFor(ctx context.Context, sub models.Subscription) (dto.FeeLine, error) {
	owner, ownerID, ok := sub.Owner()
	if !ok {
		return dto.FeeLine{}, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("subscription %s must reference exactly one of course or service", sub.ID))
	}

	line := dto.FeeLine{
		SubscriptionID:    sub.ID,
		OwnerType:         owner,
		OwnerID:           ownerID,
		BaseAmount:        decimal.Zero,
		MonthlyEquivalent: decimal.Zero,
		Discount:          sub.DiscountAmount,
		Amount:            decimal.Zero,
	}

	if name, err := s.catalog.OfferingName(ctx, owner, ownerID); err == nil {
		line.OwnerName = name
	}

	fs, err := s.catalog.FindFeeStructure(ctx, owner, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return line, nil
		}
		return dto.FeeLine{}, wrapStoreErr(err, "failed to load fee structure")
	}

	line.BaseAmount = fs.Amount
	line.BillingCycle = fs.BillingCycle
	line.MonthlyEquivalent = fs.MonthlyEquivalent()
	line.Amount = LineAmount(*fs, sub.DiscountAmount)
	return line, nil
}

// LineAmount is the effective monthly charge for one subscription:
// max(0, monthlyEquivalent - discount). Exported because the allocation
// materializer prices rows with the same rule.
func LineAmount(fs models.FeeStructure, discount decimal.Decimal) decimal.Decimal {
	amount := fs.MonthlyEquivalent().Sub(discount)
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}

func familyFeeCacheKey(familyID string, asOf time.Time) string {
	return fmt.Sprintf("fees:family:%s:%s", familyID, asOf.Format("2006-01-02"))
}
