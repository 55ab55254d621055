package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hanuri-school/registration-api/internal/models"
	appErrors "github.com/hanuri-school/registration-api/pkg/errors"
)

type registrationQueueRepository interface {
	Join(ctx context.Context, email string) (int64, error)
	Position(ctx context.Context, email string) (int64, error)
	Leave(ctx context.Context, email string) error
	Depth(ctx context.Context) (int64, error)
}

type registrationStudentRepository interface {
	Search(ctx context.Context, query string) ([]models.Student, error)
}

// RegistrationSessionConfig defines configuration for the public session flow.
type RegistrationSessionConfig struct {
	SessionKeySecret string
	SessionKeyTTL    time.Duration
	Issuer           string
}

// RegistrationService runs the public session lifecycle: families identify
// themselves by parent email, wait in an ordered queue, and hold a signed
// session key while registering. The key is opaque to clients; the queue in
// Redis is the single source of truth for who is still live.
type RegistrationService struct {
	queue     registrationQueueRepository
	students  registrationStudentRepository
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    RegistrationSessionConfig
}

// NewRegistrationService constructs the registration service.
func NewRegistrationService(queue registrationQueueRepository, students registrationStudentRepository, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, config RegistrationSessionConfig) *RegistrationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.SessionKeyTTL <= 0 {
		config.SessionKeyTTL = 2 * time.Hour
	}
	if config.Issuer == "" {
		config.Issuer = "registration-api"
	}
	return &RegistrationService{queue: queue, students: students, metrics: metrics, validator: validate, logger: logger, config: config}
}

// StartSessionRequest identifies the family opening a session.
type StartSessionRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// StartSession verifies the parent email against the student roster, enters
// the caller into the waiting queue and mints a session key. Starting twice
// with the same email resumes the existing queue entry rather than creating a
// second one.
func (s *RegistrationService) StartSession(ctx context.Context, req StartSessionRequest) (*models.RegistrationSession, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a valid email is required")
	}

	students, err := s.students.Search(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("verify parent email: %w", err)
	}
	known := false
	for _, student := range students {
		if strings.EqualFold(student.ParentEmail, req.Email) {
			known = true
			break
		}
	}
	if !known {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no student is registered under this email")
	}

	position, err := s.queue.Join(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("join waiting queue: %w", err)
	}

	key, err := s.mintSessionKey(req.Email)
	if err != nil {
		return nil, fmt.Errorf("mint session key: %w", err)
	}

	s.logger.Info("registration session started",
		zap.String("email", req.Email),
		zap.Int64("position", position))
	if s.metrics != nil {
		s.metrics.RecordSessionStarted()
		s.observeQueueDepth(ctx)
	}

	return &models.RegistrationSession{
		Email:      req.Email,
		SessionKey: key,
		Position:   position,
		StartedAt:  time.Now().UTC(),
	}, nil
}

// CheckSession reports the caller's current queue position. A session whose
// queue entry is gone gets PositionEnded, which clients treat as a signal to
// restart the flow.
func (s *RegistrationService) CheckSession(ctx context.Context, sessionKey string) (int64, error) {
	claims, err := s.parseSessionKey(sessionKey)
	if err != nil {
		return 0, err
	}
	position, err := s.queue.Position(ctx, claims.Email)
	if err != nil {
		return 0, fmt.Errorf("check queue position: %w", err)
	}
	return position, nil
}

// EndSession removes the caller from the queue. Ending an already-ended
// session succeeds, so clients can fire it on every exit path.
func (s *RegistrationService) EndSession(ctx context.Context, sessionKey string) error {
	claims, err := s.parseSessionKey(sessionKey)
	if err != nil {
		return err
	}
	if err := s.queue.Leave(ctx, claims.Email); err != nil {
		return fmt.Errorf("leave waiting queue: %w", err)
	}
	s.logger.Info("registration session ended", zap.String("email", claims.Email))
	if s.metrics != nil {
		s.observeQueueDepth(ctx)
	}
	return nil
}

func (s *RegistrationService) mintSessionKey(email string) (string, error) {
	now := time.Now().UTC()
	claims := &models.SessionClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   email,
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.SessionKeyTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.SessionKeySecret))
}

func (s *RegistrationService) parseSessionKey(sessionKey string) (*models.SessionClaims, error) {
	token, err := jwt.ParseWithClaims(sessionKey, &models.SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.SessionKeySecret), nil
	})
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrSessionInvalidated, "session key is not valid")
	}
	claims, ok := token.Claims.(*models.SessionClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrSessionInvalidated, "session key is not valid")
	}
	return claims, nil
}

func (s *RegistrationService) observeQueueDepth(ctx context.Context) {
	depth, err := s.queue.Depth(ctx)
	if err != nil {
		s.logger.Warn("queue depth unavailable", zap.Error(err))
		return
	}
	s.metrics.SetQueueDepth(depth)
}
