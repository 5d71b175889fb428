package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/institute-fee-api/internal/models"
)

// SubscriptionRepository handles persistence of subscriptions.
type SubscriptionRepository struct {
	db *sqlx.DB
}

// NewSubscriptionRepository constructs the repository.
func NewSubscriptionRepository(db *sqlx.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

const subscriptionColumns = `id, student_id, course_id, service_id, discount_amount, start_date, end_date, created_at, updated_at`

// FindByID returns a subscription by its ID.
func (r *SubscriptionRepository) FindByID(ctx context.Context, id string) (*models.Subscription, error) {
	query := fmt.Sprintf("SELECT %s FROM subscriptions WHERE id = $1", subscriptionColumns)
	var sub models.Subscription
	if err := r.db.GetContext(ctx, &sub, query, id); err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListActiveByStudentAt returns the student's subscriptions active on the
// given date: start_date <= d and (end_date is null or end_date >= d).
func (r *SubscriptionRepository) ListActiveByStudentAt(ctx context.Context, studentID string, d time.Time) ([]models.Subscription, error) {
	query := fmt.Sprintf(`SELECT %s FROM subscriptions
        WHERE student_id = $1 AND start_date <= $2 AND (end_date IS NULL OR end_date >= $2)
        ORDER BY start_date`, subscriptionColumns)
	var subs []models.Subscription
	if err := r.db.SelectContext(ctx, &subs, query, studentID, d); err != nil {
		return nil, fmt.Errorf("list active subscriptions: %w", err)
	}
	return subs, nil
}

// ListActiveByStudentInRange returns subscriptions overlapping [from, to],
// i.e. active at any point during the period.
func (r *SubscriptionRepository) ListActiveByStudentInRange(ctx context.Context, studentID string, from, to time.Time) ([]models.Subscription, error) {
	query := fmt.Sprintf(`SELECT %s FROM subscriptions
        WHERE student_id = $1 AND start_date <= $3 AND (end_date IS NULL OR end_date >= $2)
        ORDER BY start_date`, subscriptionColumns)
	var subs []models.Subscription
	if err := r.db.SelectContext(ctx, &subs, query, studentID, from, to); err != nil {
		return nil, fmt.Errorf("list subscriptions in range: %w", err)
	}
	return subs, nil
}

// List returns subscriptions with offering context, filtered by criteria.
func (r *SubscriptionRepository) List(ctx context.Context, filter models.SubscriptionFilter) ([]models.SubscriptionDetail, int, error) {
	base := `FROM subscriptions sub
LEFT JOIN students s ON s.id = sub.student_id
LEFT JOIN courses c ON c.id = sub.course_id
LEFT JOIN services sv ON sv.id = sub.service_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("sub.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.FamilyID != "" {
		conditions = append(conditions, fmt.Sprintf("s.family_id = $%d", len(args)+1))
		args = append(args, filter.FamilyID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("sub.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.ServiceID != "" {
		conditions = append(conditions, fmt.Sprintf("sub.service_id = $%d", len(args)+1))
		args = append(args, filter.ServiceID)
	}
	if filter.ActiveAt != nil {
		conditions = append(conditions, fmt.Sprintf("sub.start_date <= $%d AND (sub.end_date IS NULL OR sub.end_date >= $%d)", len(args)+1, len(args)+1))
		args = append(args, *filter.ActiveAt)
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

	query := fmt.Sprintf(`SELECT sub.id, sub.student_id, sub.course_id, sub.service_id, sub.discount_amount,
        sub.start_date, sub.end_date, sub.created_at, sub.updated_at,
        s.full_name AS student_name, COALESCE(c.name, sv.name) AS offering_name
        %s ORDER BY sub.start_date DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var subs []models.SubscriptionDetail
	if err := r.db.SelectContext(ctx, &subs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list subscriptions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count subscriptions: %w", err)
	}
	return subs, total, nil
}

// Create persists a new subscription.
func (r *SubscriptionRepository) Create(ctx context.Context, sub *models.Subscription) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	sub.CreatedAt = now
	sub.UpdatedAt = now
	const query = `INSERT INTO subscriptions (id, student_id, course_id, service_id, discount_amount, start_date, end_date, created_at, updated_at)
        VALUES (:id, :student_id, :course_id, :service_id, :discount_amount, :start_date, :end_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, sub); err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

// End soft-ends a subscription by stamping its end date. Rows are never
// hard-deleted while allocations reference them.
func (r *SubscriptionRepository) End(ctx context.Context, id string, endDate time.Time) error {
	const query = `UPDATE subscriptions SET end_date = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, endDate, time.Now().UTC()); err != nil {
		return fmt.Errorf("end subscription: %w", err)
	}
	return nil
}

// UpdateDiscount changes the per-subscription discount.
func (r *SubscriptionRepository) UpdateDiscount(ctx context.Context, id string, discount decimal.Decimal) error {
	const query = `UPDATE subscriptions SET discount_amount = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, discount, time.Now().UTC()); err != nil {
		return fmt.Errorf("update subscription discount: %w", err)
	}
	return nil
}
