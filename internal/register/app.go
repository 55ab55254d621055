package register

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/hanuri-school/registration-api/internal/bus"
	"github.com/hanuri-school/registration-api/internal/models"
	"github.com/hanuri-school/registration-api/pkg/config"
	"github.com/hanuri-school/registration-api/pkg/jobs"
)

// App composes the full registration flow from configuration: one bus, one
// stage machine, the schedule gate, the admission controller and the
// submission coordinator, all sharing a single backend. Per-student pieces
// (the Selector) are built on demand once a student is chosen.
type App struct {
	Backend     Backend
	Bus         *bus.Bus
	Flow        *Flow
	Gate        *Gate
	Session     *SessionController
	Coordinator *Coordinator

	cleanup *jobs.Queue
	logger  *zap.Logger
}

// NewApp wires the flow from config. backend may be nil, in which case an
// HTTP client against cfg.Registration.BackendURL is used.
func NewApp(cfg *config.Config, backend Backend, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	if backend == nil {
		backend = NewClient(cfg.Registration.BackendURL, http.DefaultClient)
	}

	b := bus.New()
	flow := NewFlow(b)
	cleanup := NewCleanupQueue(backend, jobs.QueueConfig{
		Workers:    cfg.Cleanup.Workers,
		MaxRetries: cfg.Cleanup.MaxRetries,
		RetryDelay: cfg.Cleanup.RetryDelay,
		Logger:     logger,
	})

	return &App{
		Backend:     backend,
		Bus:         b,
		Flow:        flow,
		Gate:        NewGate(backend, flow, cfg.Registration.SchedulePollInterval, logger),
		Session:     NewSessionController(backend, b, flow, int64(cfg.Registration.AdmissionThreshold), cfg.Registration.HeartbeatInterval, logger),
		Coordinator: NewCoordinator(backend, b, cleanup, logger),
		cleanup:     cleanup,
		logger:      logger,
	}
}

// NewSelector builds the per-student selection state from the current catalog
// and the student's enrollments.
func (a *App) NewSelector(ctx context.Context, student models.Student, year, term int) (*Selector, error) {
	offerings, err := a.Backend.ListOfferings(ctx, year, term)
	if err != nil {
		return nil, err
	}
	enrollments, err := a.Backend.ListEnrollments(ctx, models.EnrollmentFilter{
		StudentID: student.ID,
		Year:      year,
		Term:      term,
	})
	if err != nil {
		return nil, err
	}
	return NewSelector(student, offerings, enrollments), nil
}

// Start launches the background loops: the cleanup retry workers and the
// schedule gate poll. It returns immediately.
func (a *App) Start(ctx context.Context) {
	a.cleanup.Start(ctx)
	go a.Gate.Run(ctx)
}

// Stop ends the active session, if any, and drains the cleanup workers.
func (a *App) Stop(ctx context.Context) {
	a.Session.End(ctx)
	a.cleanup.Stop()
}
