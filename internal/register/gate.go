package register

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hanuri-school/registration-api/internal/models"
)

// Directive is the gate's verdict on whether the flow is reachable.
type Directive string

const (
	DirectiveBlocked Directive = "Blocked"
	DirectiveOpen    Directive = "Open"
)

// Gate decides whether registration is currently open for the active window.
// It polls the server's window list, tracks only the window with the greatest
// identifier, and compensates local countdowns for clock skew between the
// server and this machine. Crossing an open/blocked edge moves the candidate
// into or out of the flow via the stage machine, not just informationally.
type Gate struct {
	backend  Backend
	flow     *Flow
	logger   *zap.Logger
	interval time.Duration
	now      func() time.Time

	mu        sync.Mutex
	window    *models.RegistrationWindow
	timeGap   time.Duration
	evaluated bool
	open      bool
}

// NewGate constructs a Gate polling at the given interval.
func NewGate(backend Backend, flow *Flow, interval time.Duration, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Gate{
		backend:  backend,
		flow:     flow,
		logger:   logger,
		interval: interval,
		now:      time.Now,
	}
}

// Refresh pulls the window list once and applies any open/blocked edge.
// A transport failure keeps the previous verdict; the next poll retries.
func (g *Gate) Refresh(ctx context.Context) error {
	windows, serverNow, err := g.backend.ListWindows(ctx)
	if err != nil {
		g.logger.Warn("schedule refresh failed", zap.Error(err))
		return err
	}

	g.mu.Lock()
	g.window = latestWindow(windows)
	g.timeGap = g.now().Sub(serverNow)
	open := g.window != nil && g.window.Contains(g.serverTimeLocked())
	first := !g.evaluated
	edge := g.evaluated && open != g.open
	g.evaluated = true
	g.open = open
	g.mu.Unlock()

	switch {
	case first && !open:
		// Entering the flow outside the window routes straight to the
		// blocking screen.
		if err := g.flow.Transition(StageBlocked); err != nil {
			g.logger.Warn("stage move rejected", zap.Error(err))
		}
	case edge && open:
		g.flow.Reset()
	case edge && !open:
		if err := g.flow.Transition(StageBlocked); err != nil {
			g.logger.Warn("stage move rejected", zap.Error(err))
		}
	}
	return nil
}

// Directive returns the current verdict.
func (g *Gate) Directive() Directive {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.open {
		return DirectiveOpen
	}
	return DirectiveBlocked
}

// Window returns the authoritative registration window, if any.
func (g *Gate) Window() *models.RegistrationWindow {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.window == nil {
		return nil
	}
	w := *g.window
	return &w
}

// Countdown reports how long until the window opens (when blocked before
// opening) or closes (when open), adjusted for clock skew. Zero when no
// window is known or the window has passed.
func (g *Gate) Countdown() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.window == nil {
		return 0
	}
	now := g.serverTimeLocked()
	if now.Before(g.window.OpensAt) {
		return g.window.OpensAt.Sub(now)
	}
	if now.Before(g.window.ClosesAt) {
		return g.window.ClosesAt.Sub(now)
	}
	return 0
}

// Run polls until ctx is cancelled. The first refresh happens immediately.
func (g *Gate) Run(ctx context.Context) {
	_ = g.Refresh(ctx)
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = g.Refresh(ctx)
		}
	}
}

// serverTimeLocked converts local time to the server's clock. Callers hold mu.
func (g *Gate) serverTimeLocked() time.Time {
	return g.now().Add(-g.timeGap)
}

func latestWindow(windows []models.RegistrationWindow) *models.RegistrationWindow {
	var latest *models.RegistrationWindow
	for i := range windows {
		if latest == nil || windows[i].ID > latest.ID {
			latest = &windows[i]
		}
	}
	return latest
}
