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

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
}

type studentFamilyReader interface {
	FindByID(ctx context.Context, id string) (*models.Family, error)
}

// StudentService manages students.
type StudentService struct {
	repo      studentRepository
	families  studentFamilyReader
	fees      *FeeService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(repo studentRepository, families studentFamilyReader, fees *FeeService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, families: families, fees: fees, validator: validate, logger: logger}
}

// List returns students with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, wrapStoreErr(err, "failed to list students")
	}
	return students, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns one student with family context.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, wrapStoreErr(err, "failed to load student")
	}
	return student, nil
}

// Create registers a student under an existing family.
func (s *StudentService) Create(ctx context.Context, req dto.CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if _, err := s.families.FindByID(ctx, req.FamilyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "family not found")
		}
		return nil, wrapStoreErr(err, "failed to load family")
	}

	student := &models.Student{
		FamilyID: req.FamilyID,
		FullName: req.FullName,
		Grade:    req.Grade,
		Active:   true,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, wrapStoreErr(err, "failed to create student")
	}
	s.logger.Info("student created", zap.String("student_id", student.ID), zap.String("family_id", student.FamilyID))
	return student, nil
}

// Update mutates a student. Moving a student between families invalidates
// both families' cached fee summaries.
func (s *StudentService) Update(ctx context.Context, id string, req dto.UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.FamilyID != existing.FamilyID {
		if _, err := s.families.FindByID(ctx, req.FamilyID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "family not found")
			}
			return nil, wrapStoreErr(err, "failed to load family")
		}
	}

	student := existing.Student
	previousFamily := student.FamilyID
	student.FamilyID = req.FamilyID
	student.FullName = req.FullName
	student.Grade = req.Grade
	student.Active = req.Active

	if err := s.repo.Update(ctx, &student); err != nil {
		return nil, wrapStoreErr(err, "failed to update student")
	}
	if s.fees != nil {
		s.fees.InvalidateFamily(ctx, student.FamilyID)
		if previousFamily != student.FamilyID {
			s.fees.InvalidateFamily(ctx, previousFamily)
		}
	}
	return &student, nil
}
