package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hanuri-school/registration-api/internal/models"
	appErrors "github.com/hanuri-school/registration-api/pkg/errors"
)

type studentRepository interface {
	Search(ctx context.Context, query string) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	UpdateLevels(ctx context.Context, id string, grade, koreanLevel int) error
}

// StudentService looks up students for the selection step and records the
// grade and Korean level a family confirms before submitting.
type StudentService struct {
	repo      studentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, validator: validate, logger: logger}
}

// Search returns students matching a parent email or partial name.
func (s *StudentService) Search(ctx context.Context, query string) ([]models.Student, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a search query is required")
	}
	students, err := s.repo.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search students: %w", err)
	}
	return students, nil
}

// Find returns one student.
func (s *StudentService) Find(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return student, nil
}

// ConfirmLevelsRequest carries the grade and Korean level a family confirms.
type ConfirmLevelsRequest struct {
	Grade       int `json:"grade" validate:"min=-1,max=12"`
	KoreanLevel int `json:"korean_level" validate:"min=0,max=10"`
}

// ConfirmLevels updates a student's grade and Korean level. Families confirm
// these during registration because eligibility bands depend on them.
func (s *StudentService) ConfirmLevels(ctx context.Context, id string, req ConfirmLevelsRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if err := s.repo.UpdateLevels(ctx, id, req.Grade, req.KoreanLevel); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	s.logger.Info("student levels confirmed",
		zap.String("student_id", id),
		zap.Int("grade", req.Grade),
		zap.Int("korean_level", req.KoreanLevel))
	return s.repo.FindByID(ctx, id)
}
