package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/institute-fee-api/internal/models"
)

// PaymentRepository handles persistence of family payments.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// FindByID returns a payment by identifier.
func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	const query = `SELECT id, family_id, amount, method, reference, notes, paid_at, created_at FROM payments WHERE id = $1`
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, id); err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListByFamily returns payments for a family, newest first.
func (r *PaymentRepository) ListByFamily(ctx context.Context, familyID string, page, size int) ([]models.Payment, int, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, family_id, amount, method, reference, notes, paid_at, created_at
        FROM payments WHERE family_id = $1 ORDER BY paid_at DESC LIMIT %d OFFSET %d`, size, offset)
	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, familyID); err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}

	const countQuery = `SELECT COUNT(*) FROM payments WHERE family_id = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, familyID); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}
	return payments, total, nil
}

// CreateAndSettle persists a new payment and marks the settled allocations
// paid in a single transaction, so a payment row never exists without its
// settlements (and vice versa).
func (r *PaymentRepository) CreateAndSettle(ctx context.Context, payment *models.Payment, allocationIDs []string) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.PaidAt.IsZero() {
		payment.PaidAt = time.Now().UTC()
	}
	payment.CreatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin payment tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insert = `INSERT INTO payments (id, family_id, amount, method, reference, notes, paid_at, created_at)
        VALUES (:id, :family_id, :amount, :method, :reference, :notes, :paid_at, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insert, payment); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}

	if len(allocationIDs) > 0 {
		settle, args, err := sqlx.In(`UPDATE fee_allocations SET status = ?, is_paid = TRUE, paid_date = ?, payment_id = ? WHERE id IN (?)`,
			models.AllocationStatusPaid, payment.PaidAt, payment.ID, allocationIDs)
		if err != nil {
			return fmt.Errorf("build settle query: %w", err)
		}
		settle = tx.Rebind(settle)
		if _, err := tx.ExecContext(ctx, settle, args...); err != nil {
			return fmt.Errorf("settle allocations: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit payment tx: %w", err)
	}
	return nil
}
