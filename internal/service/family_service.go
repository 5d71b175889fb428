package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/institute-fee-api/internal/dto"
	"github.com/noah-isme/institute-fee-api/internal/models"
	appErrors "github.com/noah-isme/institute-fee-api/pkg/errors"
)

type familyRepository interface {
	List(ctx context.Context, filter models.FamilyFilter) ([]models.Family, int, error)
	FindByID(ctx context.Context, id string) (*models.Family, error)
	Create(ctx context.Context, family *models.Family) error
	Update(ctx context.Context, family *models.Family) error
	SetActive(ctx context.Context, id string, active bool) error
}

// FamilyService manages families and their discount configuration.
type FamilyService struct {
	repo      familyRepository
	fees      *FeeService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFamilyService constructs FamilyService.
func NewFamilyService(repo familyRepository, fees *FeeService, validate *validator.Validate, logger *zap.Logger) *FamilyService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FamilyService{repo: repo, fees: fees, validator: validate, logger: logger}
}

// List returns families with pagination metadata.
func (s *FamilyService) List(ctx context.Context, filter models.FamilyFilter) ([]models.Family, *models.Pagination, error) {
	families, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, wrapStoreErr(err, "failed to list families")
	}
	return families, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns one family.
func (s *FamilyService) Get(ctx context.Context, id string) (*models.Family, error) {
	family, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "family not found")
		}
		return nil, wrapStoreErr(err, "failed to load family")
	}
	return family, nil
}

// Create registers a new family.
func (s *FamilyService) Create(ctx context.Context, req dto.CreateFamilyRequest) (*models.Family, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid family payload")
	}
	if req.DiscountAmount.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "discount_amount must not be negative")
	}

	family := &models.Family{
		Name:           req.Name,
		GuardianName:   req.GuardianName,
		Phone:          req.Phone,
		Email:          req.Email,
		DiscountAmount: req.DiscountAmount,
		Active:         true,
	}
	if err := s.repo.Create(ctx, family); err != nil {
		return nil, wrapStoreErr(err, "failed to create family")
	}
	s.logger.Info("family created", zap.String("family_id", family.ID))
	return family, nil
}

// Update mutates a family. A discount change invalidates the family's cached
// fee summaries so the next aggregation reflects it.
func (s *FamilyService) Update(ctx context.Context, id string, req dto.UpdateFamilyRequest) (*models.Family, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid family payload")
	}
	if req.DiscountAmount.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "discount_amount must not be negative")
	}

	family, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "family not found")
		}
		return nil, wrapStoreErr(err, "failed to load family")
	}

	discountChanged := !family.DiscountAmount.Equal(req.DiscountAmount)
	family.Name = req.Name
	family.GuardianName = req.GuardianName
	family.Phone = req.Phone
	family.Email = req.Email
	family.DiscountAmount = req.DiscountAmount
	family.Active = req.Active

	if err := s.repo.Update(ctx, family); err != nil {
		return nil, wrapStoreErr(err, "failed to update family")
	}
	if discountChanged && s.fees != nil {
		s.fees.InvalidateFamily(ctx, family.ID)
	}
	return family, nil
}

// Deactivate soft-disables a family.
func (s *FamilyService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return wrapStoreErr(err, "failed to deactivate family")
	}
	return nil
}
