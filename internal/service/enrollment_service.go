package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hanuri-school/registration-api/internal/models"
	appErrors "github.com/hanuri-school/registration-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	ConditionalCreate(ctx context.Context, enrollment *models.Enrollment) error
	Delete(ctx context.Context, id string) error
}

type enrollmentCatalog interface {
	Find(ctx context.Context, id string) (*models.ClassOffering, error)
	Invalidate(ctx context.Context, year, term int)
}

// EnrollmentService records which students hold which seats. The conditional
// path is the one registrants race through; the plain path exists for
// administrative fixes and skips the capacity check.
type EnrollmentService struct {
	repo      enrollmentRepository
	catalog   enrollmentCatalog
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs the enrollment service.
func NewEnrollmentService(repo enrollmentRepository, catalog enrollmentCatalog, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, catalog: catalog, metrics: metrics, validator: validate, logger: logger}
}

// AddEnrollmentRequest describes a seat assignment.
type AddEnrollmentRequest struct {
	StudentID  string `json:"student_id" validate:"required"`
	OfferingID string `json:"offering_id" validate:"required"`
	Year       int    `json:"year" validate:"required"`
	Term       int    `json:"term" validate:"required,min=1,max=2"`
}

// List returns enrollments matching the filter.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, error) {
	enrollments, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

// Add records an enrollment without checking capacity.
func (s *EnrollmentService) Add(ctx context.Context, req AddEnrollmentRequest) (*models.Enrollment, error) {
	return s.add(ctx, req, false)
}

// ConditionalAdd records an enrollment only while the class still has a seat.
// The seat claim is atomic in the repository, so concurrent registrants
// contend safely; a full class surfaces as ErrSeatUnavailable.
func (s *EnrollmentService) ConditionalAdd(ctx context.Context, req AddEnrollmentRequest) (*models.Enrollment, error) {
	return s.add(ctx, req, true)
}

func (s *EnrollmentService) add(ctx context.Context, req AddEnrollmentRequest, conditional bool) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	enrollment := &models.Enrollment{
		StudentID:  req.StudentID,
		OfferingID: req.OfferingID,
		Year:       req.Year,
		Term:       req.Term,
	}

	var err error
	if conditional {
		err = s.repo.ConditionalCreate(ctx, enrollment)
	} else {
		err = s.repo.Create(ctx, enrollment)
	}
	if err != nil {
		if appErrors.Is(err, appErrors.ErrSeatUnavailable) {
			s.metrics.RecordSeatConflict(req.OfferingID)
			s.logger.Info("seat conflict",
				zap.String("offering_id", req.OfferingID),
				zap.String("student_id", req.StudentID))
			return nil, err
		}
		return nil, err
	}

	s.logger.Info("enrollment added",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("offering_id", req.OfferingID),
		zap.Bool("conditional", conditional))
	if s.catalog != nil {
		s.catalog.Invalidate(ctx, req.Year, req.Term)
	}
	return enrollment, nil
}

// Remove deletes an enrollment and frees its seat. Removing an enrollment
// that is already gone succeeds so retried cleanups stay safe.
func (s *EnrollmentService) Remove(ctx context.Context, id string) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		// Already gone. Nothing to free, nothing to invalidate.
		return nil
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("remove enrollment: %w", err)
	}
	s.logger.Info("enrollment removed",
		zap.String("enrollment_id", id),
		zap.String("offering_id", existing.OfferingID))
	if s.catalog != nil {
		s.catalog.Invalidate(ctx, existing.Year, existing.Term)
	}
	return nil
}
