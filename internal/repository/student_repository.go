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

// StudentRepository handles persistence of students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students filtered by the provided criteria.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := `FROM students s LEFT JOIN families f ON f.id = s.family_id`
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(s.full_name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.FamilyID != "" {
		conditions = append(conditions, fmt.Sprintf("s.family_id = $%d", len(args)+1))
		args = append(args, filter.FamilyID)
	}
	if filter.Grade != "" {
		conditions = append(conditions, fmt.Sprintf("s.grade = $%d", len(args)+1))
		args = append(args, filter.Grade)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("s.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"name":       "s.full_name",
		"grade":      "s.grade",
		"created_at": "s.created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "s.full_name"
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

	query := fmt.Sprintf(`SELECT s.id, s.family_id, s.full_name, s.grade, s.active, s.created_at, s.updated_at,
        f.name AS family_name %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID returns a student with family context.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	const query = `SELECT s.id, s.family_id, s.full_name, s.grade, s.active, s.created_at, s.updated_at,
        f.name AS family_name
        FROM students s LEFT JOIN families f ON f.id = s.family_id
        WHERE s.id = $1`
	var student models.StudentDetail
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// ListByFamily returns every student belonging to the family.
func (r *StudentRepository) ListByFamily(ctx context.Context, familyID string) ([]models.Student, error) {
	const query = `SELECT id, family_id, full_name, grade, active, created_at, updated_at
        FROM students WHERE family_id = $1 ORDER BY full_name`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, familyID); err != nil {
		return nil, fmt.Errorf("list family students: %w", err)
	}
	return students, nil
}

// ListIDsWithSubscriptionsInRange pages over students that hold at least one
// subscription overlapping [from, to]. Ordering by id keeps pages stable
// across materializer runs.
func (r *StudentRepository) ListIDsWithSubscriptionsInRange(ctx context.Context, from, to time.Time, limit, offset int) ([]string, error) {
	const query = `SELECT DISTINCT s.id FROM students s
        JOIN subscriptions sub ON sub.student_id = s.id
        WHERE sub.start_date <= $2 AND (sub.end_date IS NULL OR sub.end_date >= $1)
        ORDER BY s.id LIMIT $3 OFFSET $4`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, from, to, limit, offset); err != nil {
		return nil, fmt.Errorf("list students with subscriptions: %w", err)
	}
	return ids, nil
}

// Create persists a new student.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, family_id, full_name, grade, active, created_at, updated_at)
        VALUES (:id, :family_id, :full_name, :grade, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update persists mutable student fields.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET full_name = :full_name, grade = :grade, family_id = :family_id,
        active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}
