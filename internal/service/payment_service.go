package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/institute-fee-api/internal/dto"
	"github.com/noah-isme/institute-fee-api/internal/models"
	appErrors "github.com/noah-isme/institute-fee-api/pkg/errors"
)

type paymentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	ListByFamily(ctx context.Context, familyID string, page, size int) ([]models.Payment, int, error)
	CreateAndSettle(ctx context.Context, payment *models.Payment, allocationIDs []string) error
}

type paymentAllocationReader interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.FeeAllocation, error)
}

type paymentStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

type paymentFamilyReader interface {
	FindByID(ctx context.Context, id string) (*models.Family, error)
}

// PaymentService records family payments and settles allocations.
type PaymentService struct {
	repo        paymentRepository
	allocations paymentAllocationReader
	students    paymentStudentReader
	families    paymentFamilyReader
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewPaymentService constructs PaymentService.
func NewPaymentService(repo paymentRepository, allocations paymentAllocationReader, students paymentStudentReader, families paymentFamilyReader, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{repo: repo, allocations: allocations, students: students, families: families, validator: validate, logger: logger}
}

// ListByFamily returns a family's payments, newest first.
func (s *PaymentService) ListByFamily(ctx context.Context, familyID string, page, size int) ([]models.Payment, *models.Pagination, error) {
	payments, total, err := s.repo.ListByFamily(ctx, familyID, page, size)
	if err != nil {
		return nil, nil, wrapStoreErr(err, "failed to list payments")
	}
	return payments, paginationFor(page, size, total), nil
}

// Get returns one payment.
func (s *PaymentService) Get(ctx context.Context, id string) (*models.Payment, error) {
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, wrapStoreErr(err, "failed to load payment")
	}
	return payment, nil
}

// Create records a payment and marks the referenced allocations paid. Every
// allocation must belong to the paying family and be unpaid; the payment
// amount must cover the allocations it settles.
func (s *PaymentService) Create(ctx context.Context, req dto.CreatePaymentRequest) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	if !req.Amount.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount must be positive")
	}

	if _, err := s.families.FindByID(ctx, req.FamilyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "family not found")
		}
		return nil, wrapStoreErr(err, "failed to load family")
	}

	allocations, err := s.allocations.FindByIDs(ctx, req.AllocationIDs)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to load allocations")
	}
	if len(allocations) != len(req.AllocationIDs) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "one or more allocations not found")
	}

	settled := decimal.Zero
	for _, alloc := range allocations {
		if alloc.IsPaid {
			return nil, appErrors.Clone(appErrors.ErrConflict,
				fmt.Sprintf("allocation %s is already paid", alloc.ID))
		}
		if err := s.requireFamilyOwnership(ctx, alloc, req.FamilyID); err != nil {
			return nil, err
		}
		settled = settled.Add(alloc.Amount)
	}
	if req.Amount.LessThan(settled) {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("amount %s does not cover settled allocations totalling %s", req.Amount.String(), settled.String()))
	}

	payment := &models.Payment{
		FamilyID:  req.FamilyID,
		Amount:    req.Amount,
		Method:    req.Method,
		Reference: req.Reference,
		Notes:     req.Notes,
	}
	if req.PaidAt != nil {
		payment.PaidAt = *req.PaidAt
	}
	// Insert and settlement commit together; a payment row must never exist
	// with its allocations still unpaid.
	if err := s.repo.CreateAndSettle(ctx, payment, req.AllocationIDs); err != nil {
		return nil, wrapStoreErr(err, "failed to record payment")
	}
	s.logger.Info("payment recorded",
		zap.String("payment_id", payment.ID),
		zap.String("family_id", payment.FamilyID),
		zap.String("amount", payment.Amount.String()),
		zap.Int("allocations", len(req.AllocationIDs)),
	)
	return payment, nil
}

func (s *PaymentService) requireFamilyOwnership(ctx context.Context, alloc models.FeeAllocation, familyID string) error {
	student, err := s.students.FindByID(ctx, alloc.StudentID)
	if err != nil {
		return wrapStoreErr(err, "failed to load allocation student")
	}
	if student.FamilyID != familyID {
		return appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("allocation %s does not belong to family %s", alloc.ID, familyID))
	}
	return nil
}
