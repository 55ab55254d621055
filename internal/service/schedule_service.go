package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hanuri-school/registration-api/internal/models"
	appErrors "github.com/hanuri-school/registration-api/pkg/errors"
)

type scheduleRepository interface {
	List(ctx context.Context) ([]models.RegistrationWindow, error)
	Latest(ctx context.Context) (*models.RegistrationWindow, error)
	Create(ctx context.Context, window *models.RegistrationWindow) error
	Update(ctx context.Context, window *models.RegistrationWindow) error
}

// ScheduleService manages registration windows. Listing also reports the
// server clock so clients can gate on server time instead of their own.
type ScheduleService struct {
	repo      scheduleRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService constructs the schedule service.
func NewScheduleService(repo scheduleRepository, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{repo: repo, validator: validate, logger: logger}
}

// SaveWindowRequest describes a registration window to create or update.
type SaveWindowRequest struct {
	Year     int       `json:"year" validate:"required"`
	Term     int       `json:"term" validate:"required,min=1,max=2"`
	OpensAt  time.Time `json:"opens_at" validate:"required"`
	ClosesAt time.Time `json:"closes_at" validate:"required"`
}

// List returns all registration windows plus the server clock.
func (s *ScheduleService) List(ctx context.Context) ([]models.RegistrationWindow, time.Time, error) {
	windows, err := s.repo.List(ctx)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("list registration windows: %w", err)
	}
	return windows, time.Now().UTC(), nil
}

// Open reports whether registration is currently open according to the most
// recent window and the server clock.
func (s *ScheduleService) Open(ctx context.Context) (bool, *models.RegistrationWindow, error) {
	window, err := s.repo.Latest(ctx)
	if err != nil {
		return false, nil, fmt.Errorf("latest registration window: %w", err)
	}
	if window == nil {
		return false, nil, nil
	}
	return window.Contains(time.Now().UTC()), window, nil
}

// Create adds a registration window.
func (s *ScheduleService) Create(ctx context.Context, req SaveWindowRequest) (*models.RegistrationWindow, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	window := &models.RegistrationWindow{
		Year:     req.Year,
		Term:     req.Term,
		OpensAt:  req.OpensAt.UTC(),
		ClosesAt: req.ClosesAt.UTC(),
	}
	if err := s.repo.Create(ctx, window); err != nil {
		return nil, fmt.Errorf("create registration window: %w", err)
	}
	s.logger.Info("registration window created",
		zap.Int64("id", window.ID),
		zap.Int("year", window.Year),
		zap.Int("term", window.Term))
	return window, nil
}

// Update modifies a registration window.
func (s *ScheduleService) Update(ctx context.Context, id int64, req SaveWindowRequest) (*models.RegistrationWindow, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	window := &models.RegistrationWindow{
		ID:       id,
		Year:     req.Year,
		Term:     req.Term,
		OpensAt:  req.OpensAt.UTC(),
		ClosesAt: req.ClosesAt.UTC(),
	}
	if err := s.repo.Update(ctx, window); err != nil {
		return nil, fmt.Errorf("update registration window: %w", err)
	}
	return window, nil
}

func (s *ScheduleService) validate(req SaveWindowRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if !req.OpensAt.Before(req.ClosesAt) {
		return appErrors.Clone(appErrors.ErrValidation, "window must open before it closes")
	}
	return nil
}
