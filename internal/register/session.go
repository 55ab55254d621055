package register

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hanuri-school/registration-api/internal/bus"
	"github.com/hanuri-school/registration-api/internal/models"
	appErrors "github.com/hanuri-school/registration-api/pkg/errors"
)

// SessionState is the admission controller's lifecycle state.
type SessionState string

const (
	StateUnauthenticated SessionState = "Unauthenticated"
	StateVerifying       SessionState = "Verifying"
	StateQueued          SessionState = "Queued"
	StateAdmitted        SessionState = "Admitted"
	StateTerminated      SessionState = "Terminated"
)

// PositionUpdate is broadcast on every heartbeat carrying the queue position
// for display. Admitted is true only on the tick that crossed the threshold.
type PositionUpdate struct {
	Position int64
	Admitted bool
}

// SessionController owns one candidate's registration session: queue entry,
// heartbeat, invalidation detection and release. Instances are independent;
// nothing is shared between candidates besides the backend.
type SessionController struct {
	backend   Backend
	bus       *bus.Bus
	flow      *Flow
	logger    *zap.Logger
	threshold int64
	interval  time.Duration

	mu      sync.Mutex
	state   SessionState
	session models.RegistrationSession
	cancel  context.CancelFunc
}

// NewSessionController constructs a controller. Positions at or below
// threshold proceed directly to student selection; higher ones wait.
func NewSessionController(backend Backend, b *bus.Bus, flow *Flow, threshold int64, interval time.Duration, logger *zap.Logger) *SessionController {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &SessionController{
		backend:   backend,
		bus:       b,
		flow:      flow,
		logger:    logger,
		threshold: threshold,
		interval:  interval,
		state:     StateUnauthenticated,
	}
}

// State returns the controller state.
func (c *SessionController) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns a copy of the active session, if any.
func (c *SessionController) Session() models.RegistrationSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Start registers interest for the parent email and begins the heartbeat.
// A transport failure is fatal to this attempt: no queue position is assumed
// and the error is surfaced to the caller.
func (c *SessionController) Start(ctx context.Context, email string) error {
	c.mu.Lock()
	if c.state == StateQueued || c.state == StateAdmitted {
		c.mu.Unlock()
		return appErrors.Clone(appErrors.ErrConflict, "registration session already active")
	}
	c.state = StateVerifying
	c.mu.Unlock()

	session, err := c.backend.StartSession(ctx, email)
	if err != nil {
		c.mu.Lock()
		c.state = StateUnauthenticated
		c.mu.Unlock()
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start registration session")
	}

	admitted := session.Position <= c.threshold

	c.mu.Lock()
	c.session = session
	if admitted {
		c.state = StateAdmitted
	} else {
		c.state = StateQueued
	}
	hbCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.mu.Unlock()

	go c.run(hbCtx)

	if admitted {
		if err := c.flow.Transition(StageSelectStudent); err != nil {
			c.logger.Warn("stage move rejected", zap.Error(err))
		}
	} else {
		if err := c.flow.Transition(StageWaitingRoom); err != nil {
			c.logger.Warn("stage move rejected", zap.Error(err))
		}
	}
	c.publishPosition(session.Position, admitted)
	return nil
}

// End releases the session. It is invoked on every exit path, normal or not,
// and is idempotent: with no active session it does nothing, and the backend
// end call is issued at most once per active session.
func (c *SessionController) End(ctx context.Context) {
	c.mu.Lock()
	session := c.session
	cancel := c.cancel
	active := session.SessionKey != ""
	c.session = models.RegistrationSession{}
	c.cancel = nil
	c.state = StateTerminated
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if !active {
		return
	}
	if err := c.backend.EndSession(ctx, session.Email, session.SessionKey); err != nil {
		// Best effort only; the server expires abandoned sessions itself.
		c.logger.Warn("end session notify failed", zap.String("email", session.Email), zap.Error(err))
	}
}

// run drives the heartbeat until the session ends or ctx is cancelled.
func (c *SessionController) run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

// tick performs one heartbeat. Split out so tests can drive the controller
// without timers.
func (c *SessionController) tick(ctx context.Context) {
	c.mu.Lock()
	state := c.state
	session := c.session
	c.mu.Unlock()

	if state != StateQueued && state != StateAdmitted {
		return
	}

	position, err := c.backend.CheckSession(ctx, session.Email, session.SessionKey)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrSessionInvalidated) {
			// The server no longer recognises the key. Retrying cannot
			// recover; the candidate starts over.
			c.logger.Info("session invalidated by server", zap.String("email", session.Email))
			c.terminate()
			return
		}
		// A single dropped request must not log the candidate out; the next
		// tick retries.
		c.logger.Warn("heartbeat failed", zap.String("email", session.Email), zap.Error(err))
		return
	}

	if position == models.PositionEnded {
		c.terminate()
		return
	}

	crossed := false
	c.mu.Lock()
	c.session.Position = position
	if c.state == StateQueued && position <= c.threshold {
		c.state = StateAdmitted
		crossed = true
	}
	c.mu.Unlock()

	if crossed {
		if err := c.flow.Transition(StageSelectStudent); err != nil {
			c.logger.Warn("stage move rejected", zap.Error(err))
		}
	}
	c.publishPosition(position, crossed)
}

// terminate handles the server-side invalidation sentinel: the session is
// cleared, the heartbeat stops and the candidate returns to login.
func (c *SessionController) terminate() {
	c.mu.Lock()
	cancel := c.cancel
	c.session = models.RegistrationSession{}
	c.cancel = nil
	c.state = StateTerminated
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.flow.Reset()
}

func (c *SessionController) publishPosition(position int64, admitted bool) {
	if c.bus != nil {
		c.bus.Publish(bus.TopicQueuePosition, PositionUpdate{Position: position, Admitted: admitted})
	}
}
