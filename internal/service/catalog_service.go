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

type catalogRepository interface {
	FindCourseByID(ctx context.Context, id string) (*models.Course, error)
	FindServiceByID(ctx context.Context, id string) (*models.Service, error)
	ListCourses(ctx context.Context, filter models.CatalogFilter) ([]models.Course, int, error)
	ListServices(ctx context.Context, filter models.CatalogFilter) ([]models.Service, int, error)
	CreateCourse(ctx context.Context, course *models.Course) error
	CreateService(ctx context.Context, service *models.Service) error
	UpdateOffering(ctx context.Context, owner models.OwnerType, id, name, description string, active bool) error
	FindFeeStructure(ctx context.Context, owner models.OwnerType, ownerID string) (*models.FeeStructure, error)
	UpsertFeeStructure(ctx context.Context, fs *models.FeeStructure) error
}

// CatalogService manages the offering catalog and its pricing.
type CatalogService struct {
	repo      catalogRepository
	fees      *FeeService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCatalogService constructs CatalogService.
func NewCatalogService(repo catalogRepository, fees *FeeService, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: repo, fees: fees, validator: validate, logger: logger}
}

// ListCourses returns courses with pagination metadata.
func (s *CatalogService) ListCourses(ctx context.Context, filter models.CatalogFilter) ([]models.Course, *models.Pagination, error) {
	courses, total, err := s.repo.ListCourses(ctx, filter)
	if err != nil {
		return nil, nil, wrapStoreErr(err, "failed to list courses")
	}
	return courses, paginationFor(filter.Page, filter.PageSize, total), nil
}

// ListServices returns services with pagination metadata.
func (s *CatalogService) ListServices(ctx context.Context, filter models.CatalogFilter) ([]models.Service, *models.Pagination, error) {
	services, total, err := s.repo.ListServices(ctx, filter)
	if err != nil {
		return nil, nil, wrapStoreErr(err, "failed to list services")
	}
	return services, paginationFor(filter.Page, filter.PageSize, total), nil
}

// GetCourse returns one course.
func (s *CatalogService) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindCourseByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, wrapStoreErr(err, "failed to load course")
	}
	return course, nil
}

// GetService returns one service.
func (s *CatalogService) GetService(ctx context.Context, id string) (*models.Service, error) {
	service, err := s.repo.FindServiceByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "service not found")
		}
		return nil, wrapStoreErr(err, "failed to load service")
	}
	return service, nil
}

// CreateCourse registers a course.
func (s *CatalogService) CreateCourse(ctx context.Context, req dto.CreateOfferingRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course := &models.Course{Name: req.Name, Description: req.Description, Active: true}
	if err := s.repo.CreateCourse(ctx, course); err != nil {
		return nil, wrapStoreErr(err, "failed to create course")
	}
	return course, nil
}

// CreateService registers a service.
func (s *CatalogService) CreateService(ctx context.Context, req dto.CreateOfferingRequest) (*models.Service, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid service payload")
	}
	service := &models.Service{Name: req.Name, Description: req.Description, Active: true}
	if err := s.repo.CreateService(ctx, service); err != nil {
		return nil, wrapStoreErr(err, "failed to create service")
	}
	return service, nil
}

// UpdateOffering mutates a course or service.
func (s *CatalogService) UpdateOffering(ctx context.Context, owner models.OwnerType, id string, req dto.UpdateOfferingRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid offering payload")
	}
	if err := s.requireOffering(ctx, owner, id); err != nil {
		return err
	}
	if err := s.repo.UpdateOffering(ctx, owner, id, req.Name, req.Description, req.Active); err != nil {
		return wrapStoreErr(err, "failed to update offering")
	}
	return nil
}

// GetFeeStructure returns the active pricing for an offering.
func (s *CatalogService) GetFeeStructure(ctx context.Context, owner models.OwnerType, ownerID string) (*models.FeeStructure, error) {
	fs, err := s.repo.FindFeeStructure(ctx, owner, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "fee structure not found")
		}
		return nil, wrapStoreErr(err, "failed to load fee structure")
	}
	return fs, nil
}

// UpsertFeeStructure replaces the active pricing for an offering. Past
// allocations are never rewritten; cached fee summaries institute-wide are
// dropped because any family may reference the repriced offering.
func (s *CatalogService) UpsertFeeStructure(ctx context.Context, owner models.OwnerType, ownerID string, req dto.UpsertFeeStructureRequest) (*models.FeeStructure, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fee structure payload")
	}
	if !req.BillingCycle.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "billing_cycle must be MONTHLY, QUARTERLY, HALF_YEARLY or YEARLY")
	}
	if req.Amount.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount must not be negative")
	}
	if err := s.requireOffering(ctx, owner, ownerID); err != nil {
		return nil, err
	}

	fs := &models.FeeStructure{
		OwnerType:    owner,
		OwnerID:      ownerID,
		Amount:       req.Amount,
		BillingCycle: req.BillingCycle,
	}
	if err := s.repo.UpsertFeeStructure(ctx, fs); err != nil {
		return nil, wrapStoreErr(err, "failed to upsert fee structure")
	}
	if s.fees != nil {
		s.fees.InvalidateAllFamilies(ctx)
	}
	s.logger.Info("fee structure replaced",
		zap.String("owner_type", string(owner)),
		zap.String("owner_id", ownerID),
		zap.String("amount", fs.Amount.String()),
		zap.String("billing_cycle", string(fs.BillingCycle)),
	)
	return fs, nil
}

func (s *CatalogService) requireOffering(ctx context.Context, owner models.OwnerType, id string) error {
	var err error
	switch owner {
	case models.OwnerCourse:
		_, err = s.repo.FindCourseByID(ctx, id)
	case models.OwnerService:
		_, err = s.repo.FindServiceByID(ctx, id)
	default:
		return appErrors.Clone(appErrors.ErrValidation, "owner_type must be COURSE or SERVICE")
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "offering not found")
		}
		return wrapStoreErr(err, "failed to load offering")
	}
	return nil
}

func paginationFor(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
