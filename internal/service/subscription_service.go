package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/institute-fee-api/internal/dto"
	"github.com/noah-isme/institute-fee-api/internal/models"
	appErrors "github.com/noah-isme/institute-fee-api/pkg/errors"
)

type subscriptionRepository interface {
	FindByID(ctx context.Context, id string) (*models.Subscription, error)
	List(ctx context.Context, filter models.SubscriptionFilter) ([]models.SubscriptionDetail, int, error)
	Create(ctx context.Context, sub *models.Subscription) error
	End(ctx context.Context, id string, endDate time.Time) error
	UpdateDiscount(ctx context.Context, id string, discount decimal.Decimal) error
}

type subscriptionStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

type subscriptionCatalogReader interface {
	FindCourseByID(ctx context.Context, id string) (*models.Course, error)
	FindServiceByID(ctx context.Context, id string) (*models.Service, error)
}

// SubscriptionService manages enrollments of students in offerings.
type SubscriptionService struct {
	repo      subscriptionRepository
	students  subscriptionStudentReader
	catalog   subscriptionCatalogReader
	fees      *FeeService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubscriptionService constructs SubscriptionService.
func NewSubscriptionService(repo subscriptionRepository, students subscriptionStudentReader, catalog subscriptionCatalogReader, fees *FeeService, validate *validator.Validate, logger *zap.Logger) *SubscriptionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubscriptionService{repo: repo, students: students, catalog: catalog, fees: fees, validator: validate, logger: logger}
}

// List returns subscriptions with pagination metadata.
func (s *SubscriptionService) List(ctx context.Context, filter models.SubscriptionFilter) ([]models.SubscriptionDetail, *models.Pagination, error) {
	subs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, wrapStoreErr(err, "failed to list subscriptions")
	}
	return subs, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns one subscription.
func (s *SubscriptionService) Get(ctx context.Context, id string) (*models.Subscription, error) {
	sub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subscription not found")
		}
		return nil, wrapStoreErr(err, "failed to load subscription")
	}
	return sub, nil
}

// Create enrolls a student in exactly one of a course or a service.
func (s *SubscriptionService) Create(ctx context.Context, req dto.CreateSubscriptionRequest) (*models.Subscription, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subscription payload")
	}
	if (req.CourseID == nil) == (req.ServiceID == nil) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subscription must reference exactly one of course or service")
	}
	if req.DiscountAmount.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "discount_amount must not be negative")
	}
	if req.EndDate != nil && req.EndDate.Before(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must not precede start_date")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, wrapStoreErr(err, "failed to load student")
	}

	if req.CourseID != nil {
		if _, err := s.catalog.FindCourseByID(ctx, *req.CourseID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
			}
			return nil, wrapStoreErr(err, "failed to load course")
		}
	} else {
		if _, err := s.catalog.FindServiceByID(ctx, *req.ServiceID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "service not found")
			}
			return nil, wrapStoreErr(err, "failed to load service")
		}
	}

	sub := &models.Subscription{
		StudentID:      req.StudentID,
		CourseID:       req.CourseID,
		ServiceID:      req.ServiceID,
		DiscountAmount: req.DiscountAmount,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, wrapStoreErr(err, "failed to create subscription")
	}
	if s.fees != nil {
		s.fees.InvalidateFamily(ctx, student.FamilyID)
	}
	s.logger.Info("subscription created",
		zap.String("subscription_id", sub.ID),
		zap.String("student_id", sub.StudentID),
	)
	return sub, nil
}

// End stamps the subscription's end date. Already-ended subscriptions cannot
// be ended again; rows are never deleted because allocations reference them.
func (s *SubscriptionService) End(ctx context.Context, id string, req dto.EndSubscriptionRequest) (*models.Subscription, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end payload")
	}

	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.EndDate != nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "subscription already ended")
	}
	if req.EndDate.Before(sub.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must not precede start_date")
	}

	if err := s.repo.End(ctx, id, req.EndDate); err != nil {
		return nil, wrapStoreErr(err, "failed to end subscription")
	}
	sub.EndDate = &req.EndDate
	s.invalidateStudentFamily(ctx, sub.StudentID)
	return sub, nil
}

// UpdateDiscount changes the per-subscription discount.
func (s *SubscriptionService) UpdateDiscount(ctx context.Context, id string, req dto.UpdateSubscriptionDiscountRequest) (*models.Subscription, error) {
	if req.DiscountAmount.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "discount_amount must not be negative")
	}
	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateDiscount(ctx, id, req.DiscountAmount); err != nil {
		return nil, wrapStoreErr(err, "failed to update subscription discount")
	}
	sub.DiscountAmount = req.DiscountAmount
	s.invalidateStudentFamily(ctx, sub.StudentID)
	return sub, nil
}

func (s *SubscriptionService) invalidateStudentFamily(ctx context.Context, studentID string) {
	if s.fees == nil {
		return
	}
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		s.logger.Warn("failed to resolve family for cache invalidation", zap.String("student_id", studentID), zap.Error(err))
		return
	}
	s.fees.InvalidateFamily(ctx, student.FamilyID)
}
