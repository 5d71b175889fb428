package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/institute-fee-api/internal/models"
)

// CatalogRepository handles persistence of courses, services and their fee
// structures.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs the repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func tableFor(owner models.OwnerType) (string, error) {
	switch owner {
	case models.OwnerCourse:
		return "courses", nil
	case models.OwnerService:
		return "services", nil
	}
	return "", fmt.Errorf("unknown owner type %q", owner)
}

// FindCourseByID returns a course by identifier.
func (r *CatalogRepository) FindCourseByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, name, description, active, created_at, updated_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindServiceByID returns a service by identifier.
func (r *CatalogRepository) FindServiceByID(ctx context.Context, id string) (*models.Service, error) {
	const query = `SELECT id, name, description, active, created_at, updated_at FROM services WHERE id = $1`
	var service models.Service
	if err := r.db.GetContext(ctx, &service, query, id); err != nil {
		return nil, err
	}
	return &service, nil
}

// ListCourses returns courses matching the filter.
func (r *CatalogRepository) ListCourses(ctx context.Context, filter models.CatalogFilter) ([]models.Course, int, error) {
	query, countQuery, args := buildCatalogQuery("courses", filter)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// ListServices returns services matching the filter.
func (r *CatalogRepository) ListServices(ctx context.Context, filter models.CatalogFilter) ([]models.Service, int, error) {
	query, countQuery, args := buildCatalogQuery("services", filter)
	var services []models.Service
	if err := r.db.SelectContext(ctx, &services, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list services: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count services: %w", err)
	}
	return services, total, nil
}

func buildCatalogQuery(table string, filter models.CatalogFilter) (string, string, []interface{}) {
	base := "FROM " + table
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)+1))
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

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT id, name, description, active, created_at, updated_at %s ORDER BY name LIMIT %d OFFSET %d", base+clause, size, offset)
	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	return query, countQuery, args
}

// CreateCourse persists a new course.
func (r *CatalogRepository) CreateCourse(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, name, description, active, created_at, updated_at)
        VALUES (:id, :name, :description, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// CreateService persists a new service.
func (r *CatalogRepository) CreateService(ctx context.Context, service *models.Service) error {
	if service.ID == "" {
		service.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	service.CreatedAt = now
	service.UpdatedAt = now
	const query = `INSERT INTO services (id, name, description, active, created_at, updated_at)
        VALUES (:id, :name, :description, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, service); err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	return nil
}

// UpdateOffering updates name/description/active for a course or service.
func (r *CatalogRepository) UpdateOffering(ctx context.Context, owner models.OwnerType, id, name, description string, active bool) error {
	table, err := tableFor(owner)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE %s SET name = $2, description = $3, active = $4, updated_at = $5 WHERE id = $1`, table)
	if _, err := r.db.ExecContext(ctx, query, id, name, description, active, time.Now().UTC()); err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	return nil
}

// OfferingName returns the display name for a course or service.
func (r *CatalogRepository) OfferingName(ctx context.Context, owner models.OwnerType, ownerID string) (string, error) {
	table, err := tableFor(owner)
	if err != nil {
		return "", err
	}
	query := fmt.Sprintf("SELECT name FROM %s WHERE id = $1", table)
	var name string
	if err := r.db.GetContext(ctx, &name, query, ownerID); err != nil {
		if err == sql.ErrNoRows {
			return "", err
		}
		return "", fmt.Errorf("offering name: %w", err)
	}
	return name, nil
}

// FindFeeStructure returns the active fee structure for the given owner, or
// sql.ErrNoRows when the offering has no pricing.
func (r *CatalogRepository) FindFeeStructure(ctx context.Context, owner models.OwnerType, ownerID string) (*models.FeeStructure, error) {
	const query = `SELECT id, owner_type, owner_id, amount, billing_cycle, active, created_at, updated_at
        FROM fee_structures WHERE owner_type = $1 AND owner_id = $2 AND active = TRUE`
	var fs models.FeeStructure
	if err := r.db.GetContext(ctx, &fs, query, owner, ownerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find fee structure: %w", err)
	}
	return &fs, nil
}

// UpsertFeeStructure replaces the active fee structure for an owner. The old
// structure is deactivated rather than deleted so past allocations stay
// explainable.
func (r *CatalogRepository) UpsertFeeStructure(ctx context.Context, fs *models.FeeStructure) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin fee structure tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	const deactivate = `UPDATE fee_structures SET active = FALSE, updated_at = $3 WHERE owner_type = $1 AND owner_id = $2 AND active = TRUE`
	if _, err := tx.ExecContext(ctx, deactivate, fs.OwnerType, fs.OwnerID, now); err != nil {
		return fmt.Errorf("deactivate fee structure: %w", err)
	}

	if fs.ID == "" {
		fs.ID = uuid.NewString()
	}
	fs.Active = true
	fs.CreatedAt = now
	fs.UpdatedAt = now
	const insert = `INSERT INTO fee_structures (id, owner_type, owner_id, amount, billing_cycle, active, created_at, updated_at)
        VALUES (:id, :owner_type, :owner_id, :amount, :billing_cycle, :active, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insert, fs); err != nil {
		return fmt.Errorf("insert fee structure: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit fee structure tx: %w", err)
	}
	return nil
}
