package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/institute-fee-api/internal/models"
	appErrors "github.com/noah-isme/institute-fee-api/pkg/errors"
)

// AllocationRepository handles persistence of fee allocations.
type AllocationRepository struct {
	db *sqlx.DB
}

// NewAllocationRepository constructs the repository.
func NewAllocationRepository(db *sqlx.DB) *AllocationRepository {
	return &AllocationRepository{db: db}
}

const allocationColumns = `id, student_id, subscription_id, period_month, period_year, amount, status, is_paid, paid_date, payment_id, created_at`

// Exists reports whether an allocation was already materialized for the key.
func (r *AllocationRepository) Exists(ctx context.Context, studentID, subscriptionID string, month, year int) (bool, error) {
	const query = `SELECT 1 FROM fee_allocations
        WHERE student_id = $1 AND subscription_id = $2 AND period_month = $3 AND period_year = $4 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, subscriptionID, month, year); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check allocation exists: %w", err)
	}
	return true, nil
}

// Create inserts a new allocation. A unique index over
// (student_id, subscription_id, period_month, period_year) backs the
// materializer's idempotence; a violation is returned as a typed conflict so
// concurrent runs can treat it as already-created.
func (r *AllocationRepository) Create(ctx context.Context, alloc *models.FeeAllocation) error {
	if alloc.ID == "" {
		alloc.ID = uuid.NewString()
	}
	if alloc.CreatedAt.IsZero() {
		alloc.CreatedAt = time.Now().UTC()
	}
	if alloc.Status == "" {
		alloc.Status = models.AllocationStatusPending
	}
	const query = `INSERT INTO fee_allocations (id, student_id, subscription_id, period_month, period_year, amount, status, is_paid, paid_date, payment_id, created_at)
        VALUES (:id, :student_id, :subscription_id, :period_month, :period_year, :amount, :status, :is_paid, :paid_date, :payment_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, alloc); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return appErrors.Clone(appErrors.ErrConflict, "allocation already exists for period")
		}
		return fmt.Errorf("create allocation: %w", err)
	}
	return nil
}

// FindByIDs returns allocations for the given identifiers.
func (r *AllocationRepository) FindByIDs(ctx context.Context, ids []string) ([]models.FeeAllocation, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(fmt.Sprintf("SELECT %s FROM fee_allocations WHERE id IN (?)", allocationColumns), ids)
	if err != nil {
		return nil, fmt.Errorf("build allocation query: %w", err)
	}
	query = r.db.Rebind(query)
	var allocations []models.FeeAllocation
	if err := r.db.SelectContext(ctx, &allocations, query, args...); err != nil {
		return nil, fmt.Errorf("find allocations: %w", err)
	}
	return allocations, nil
}

// List returns allocations filtered by the provided criteria.
func (r *AllocationRepository) List(ctx context.Context, filter models.AllocationFilter) ([]models.FeeAllocation, int, error) {
	base := `FROM fee_allocations a`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("a.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.FamilyID != "" {
		base += ` JOIN students s ON s.id = a.student_id`
		conditions = append(conditions, fmt.Sprintf("s.family_id = $%d", len(args)+1))
		args = append(args, filter.FamilyID)
	}
	if filter.PeriodMonth != 0 {
		conditions = append(conditions, fmt.Sprintf("a.period_month = $%d", len(args)+1))
		args = append(args, filter.PeriodMonth)
	}
	if filter.PeriodYear != 0 {
		conditions = append(conditions, fmt.Sprintf("a.period_year = $%d", len(args)+1))
		args = append(args, filter.PeriodYear)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.IsPaid != nil {
		conditions = append(conditions, fmt.Sprintf("a.is_paid = $%d", len(args)+1))
		args = append(args, *filter.IsPaid)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT a.id, a.student_id, a.subscription_id, a.period_month, a.period_year,
        a.amount, a.status, a.is_paid, a.paid_date, a.payment_id, a.created_at
        %s ORDER BY a.period_year DESC, a.period_month DESC, a.created_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var allocations []models.FeeAllocation
	if err := r.db.SelectContext(ctx, &allocations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list allocations: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count allocations: %w", err)
	}
	return allocations, total, nil
}

// PeriodSummary aggregates one billing period across the institute.
func (r *AllocationRepository) PeriodSummary(ctx context.Context, month, year int) (*models.AllocationPeriodSummary, error) {
	const query = `SELECT period_month, period_year, COUNT(*) AS count,
        COUNT(*) FILTER (WHERE is_paid) AS paid_count,
        COALESCE(SUM(amount), 0) AS total_amount,
        COALESCE(SUM(amount) FILTER (WHERE is_paid), 0) AS paid_amount
        FROM fee_allocations WHERE period_month = $1 AND period_year = $2
        GROUP BY period_month, period_year`
	var summary models.AllocationPeriodSummary
	if err := r.db.GetContext(ctx, &summary, query, month, year); err != nil {
		if err == sql.ErrNoRows {
			return &models.AllocationPeriodSummary{PeriodMonth: month, PeriodYear: year}, nil
		}
		return nil, fmt.Errorf("summarize allocations: %w", err)
	}
	return &summary, nil
}
