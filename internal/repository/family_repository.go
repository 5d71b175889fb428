package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/institute-fee-api/internal/models"
)

// FamilyRepository handles persistence of families.
type FamilyRepository struct {
	db *sqlx.DB
}

// NewFamilyRepository constructs the repository.
func NewFamilyRepository(db *sqlx.DB) *FamilyRepository {
	return &FamilyRepository{db: db}
}

const familyColumns = `id, name, guardian_name, phone, email, discount_amount, active, created_at, updated_at`

// List returns families filtered by the provided criteria.
func (r *FamilyRepository) List(ctx context.Context, filter models.FamilyFilter) ([]models.Family, int, error) {
	base := `FROM families`
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(guardian_name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"name":       "name",
		"created_at": "created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", familyColumns, base+clause, orderBy, order, size, offset)

	var families []models.Family
	if err := r.db.SelectContext(ctx, &families, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list families: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count families: %w", err)
	}
	return families, total, nil
}

// FindByID returns a family by its ID.
func (r *FamilyRepository) FindByID(ctx context.Context, id string) (*models.Family, error) {
	query := fmt.Sprintf("SELECT %s FROM families WHERE id = $1", familyColumns)
	var family models.Family
	if err := r.db.GetContext(ctx, &family, query, id); err != nil {
		return nil, err
	}
	return &family, nil
}

// Create persists a new family.
func (r *FamilyRepository) Create(ctx context.Context, family *models.Family) error {
	if family.ID == "" {
		family.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	family.CreatedAt = now
	family.UpdatedAt = now
	const query = `INSERT INTO families (id, name, guardian_name, phone, email, discount_amount, active, created_at, updated_at)
        VALUES (:id, :name, :guardian_name, :phone, :email, :discount_amount, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, family); err != nil {
		return fmt.Errorf("create family: %w", err)
	}
	return nil
}

// Update persists mutable family fields, including the family discount.
func (r *FamilyRepository) Update(ctx context.Context, family *models.Family) error {
	family.UpdatedAt = time.Now().UTC()
	const query = `UPDATE families SET name = :name, guardian_name = :guardian_name, phone = :phone,
        email = :email, discount_amount = :discount_amount, active = :active, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, family); err != nil {
		return fmt.Errorf("update family: %w", err)
	}
	return nil
}

// SetActive toggles the family's active flag.
func (r *FamilyRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE families SET active = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, active, time.Now().UTC()); err != nil {
		return fmt.Errorf("set family active: %w", err)
	}
	return nil
}
