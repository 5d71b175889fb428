package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/institute-fee-api/internal/dto"
	"github.com/noah-isme/institute-fee-api/internal/models"
	appErrors "github.com/noah-isme/institute-fee-api/pkg/errors"
	"github.com/noah-isme/institute-fee-api/pkg/jobs"
)

const materializeJobType = "materialize_allocations"

type allocationStudentPager interface {
	ListIDsWithSubscriptionsInRange(ctx context.Context, from, to time.Time, limit, offset int) ([]string, error)
}

type allocationSubscriptionReader interface {
	ListActiveByStudentInRange(ctx context.Context, studentID string, from, to time.Time) ([]models.Subscription, error)
}

type allocationCatalogReader interface {
	FindFeeStructure(ctx context.Context, owner models.OwnerType, ownerID string) (*models.FeeStructure, error)
}

type allocationRepository interface {
	Exists(ctx context.Context, studentID, subscriptionID string, month, year int) (bool, error)
	Create(ctx context.Context, alloc *models.FeeAllocation) error
	List(ctx context.Context, filter models.AllocationFilter) ([]models.FeeAllocation, int, error)
	PeriodSummary(ctx context.Context, month, year int) (*models.AllocationPeriodSummary, error)
}

// AllocationService materializes monthly fee allocations and reads them
// back. Materialization is idempotent per (student, subscription, period):
// rows already present are skipped, and a concurrent run losing the insert
// race counts the row as skipped instead of failing. Family discounts are
// never baked into rows; they apply only at aggregation time, so a discount
// change never requires rewriting history.
type AllocationService struct {
	students      allocationStudentPager
	subscriptions allocationSubscriptionReader
	catalog       allocationCatalogReader
	repo          allocationRepository
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
	pageSize      int
	queue         *jobs.Queue
}

// NewAllocationService constructs AllocationService.
func NewAllocationService(students allocationStudentPager, subscriptions allocationSubscriptionReader, catalog allocationCatalogReader, repo allocationRepository, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, pageSize int) *AllocationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if pageSize <= 0 {
		pageSize = 200
	}
	return &AllocationService{
		students:      students,
		subscriptions: subscriptions,
		catalog:       catalog,
		repo:          repo,
		metrics:       metrics,
		validator:     validate,
		logger:        logger,
		pageSize:      pageSize,
	}
}

// AttachQueue enables asynchronous materialization runs.
func (s *AllocationService) AttachQueue(q *jobs.Queue) {
	s.queue = q
}

// JobHandler adapts Materialize for the background queue.
func (s *AllocationService) JobHandler() jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		req, ok := job.Payload.(dto.MaterializeRequest)
		if !ok {
			return fmt.Errorf("unexpected payload for job %s", job.ID)
		}
		result, err := s.Materialize(ctx, req)
		if err != nil {
			return err
		}
		s.logger.Info("async materialization finished",
			zap.String("job_id", job.ID),
			zap.Int("month", result.Month),
			zap.Int("year", result.Year),
			zap.Int("created", result.Created),
			zap.Int("skipped", result.Skipped),
			zap.String("total_amount", result.TotalAmount.String()),
		)
		return nil
	}
}

// EnqueueMaterialize schedules a materialization run on the background queue
// and returns the job id.
func (s *AllocationService) EnqueueMaterialize(req dto.MaterializeRequest) (string, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "month must be 1-12 and year a 4-digit value")
	}
	if s.queue == nil {
		return "", appErrors.Clone(appErrors.ErrPreconditionFailed, "async materialization is not enabled")
	}
	jobID := uuid.NewString()
	if err := s.queue.Enqueue(jobs.Job{ID: jobID, Type: materializeJobType, Payload: req}); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue materialization")
	}
	return jobID, nil
}

// Materialize creates the billing period's allocation rows for every student
// holding a subscription active at any point during the month. Safe to
// re-run after a partial failure: completed inserts are skipped on the next
// pass, no rollback needed.
func (s *AllocationService) Materialize(ctx context.Context, req dto.MaterializeRequest) (*dto.MaterializeResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "month must be 1-12 and year a 4-digit value")
	}

	periodStart := time.Date(req.Year, time.Month(req.Month), 1, 0, 0, 0, 0, time.UTC)
	periodEnd := periodStart.AddDate(0, 1, -1)

	started := time.Now()
	result := &dto.MaterializeResult{Month: req.Month, Year: req.Year, TotalAmount: decimal.Zero}

	// Students are paged by id so an institute-wide run holds a bounded
	// working set regardless of enrollment size.
	for offset := 0; ; offset += s.pageSize {
		ids, err := s.students.ListIDsWithSubscriptionsInRange(ctx, periodStart, periodEnd, s.pageSize, offset)
		if err != nil {
			return nil, wrapStoreErr(err, "failed to page students")
		}
		if len(ids) == 0 {
			break
		}
		for _, studentID := range ids {
			if err := s.materializeStudent(ctx, studentID, periodStart, periodEnd, req, result); err != nil {
				return nil, err
			}
		}
		if len(ids) < s.pageSize {
			break
		}
	}

	if s.metrics != nil {
		s.metrics.ObserveAllocationRun(result.Created, result.Skipped, time.Since(started))
	}
	s.logger.Info("allocation run complete",
		zap.Int("month", req.Month),
		zap.Int("year", req.Year),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.String("total_amount", result.TotalAmount.String()),
	)
	return result, nil
}

func (s *AllocationService) materializeStudent(ctx context.Context, studentID string, periodStart, periodEnd time.Time, req dto.MaterializeRequest, result *dto.MaterializeResult) error {
	subs, err := s.subscriptions.ListActiveByStudentInRange(ctx, studentID, periodStart, periodEnd)
	if err != nil {
		return wrapStoreErr(err, "failed to load subscriptions")
	}

	for _, sub := range subs {
		owner, ownerID, ok := sub.Owner()
		if !ok {
			return appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("subscription %s must reference exactly one of course or service", sub.ID))
		}

		exists, err := s.repo.Exists(ctx, studentID, sub.ID, req.Month, req.Year)
		if err != nil {
			return wrapStoreErr(err, "failed to check existing allocation")
		}
		if exists {
			result.Skipped++
			continue
		}

		amount := decimal.Zero
		fs, err := s.catalog.FindFeeStructure(ctx, owner, ownerID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return wrapStoreErr(err, "failed to load fee structure")
		}
		if fs != nil {
			amount = LineAmount(*fs, sub.DiscountAmount)
		}

		alloc := &models.FeeAllocation{
			StudentID:      studentID,
			SubscriptionID: sub.ID,
			PeriodMonth:    req.Month,
			PeriodYear:     req.Year,
			Amount:         amount,
			Status:         models.AllocationStatusPending,
			IsPaid:         false,
		}
		if err := s.repo.Create(ctx, alloc); err != nil {
			// A concurrent run won the insert race; the row exists, which is
			// all idempotence requires.
			var appErr *appErrors.Error
			if errors.As(err, &appErr) && appErr.Code == appErrors.ErrConflict.Code {
				result.Skipped++
				continue
			}
			return wrapStoreErr(err, "failed to create allocation")
		}
		result.Created++
		result.TotalAmount = result.TotalAmount.Add(amount)
	}
	return nil
}

// List returns allocations with pagination metadata.
func (s *AllocationService) List(ctx context.Context, filter models.AllocationFilter) ([]models.FeeAllocation, *models.Pagination, error) {
	allocations, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, wrapStoreErr(err, "failed to list allocations")
	}
	return allocations, paginationFor(filter.Page, filter.PageSize, total), nil
}

// PeriodSummary aggregates a billing period.
func (s *AllocationService) PeriodSummary(ctx context.Context, month, year int) (*models.AllocationPeriodSummary, error) {
	if month < 1 || month > 12 || year < 1000 || year > 9999 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "month must be 1-12 and year a 4-digit value")
	}
	summary, err := s.repo.PeriodSummary(ctx, month, year)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to summarize allocations")
	}
	return summary, nil
}
