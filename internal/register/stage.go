package register

import (
	"fmt"
	"sync"

	"github.com/hanuri-school/registration-api/internal/bus"
)

// Stage names one screen of the public registration flow.
type Stage string

// Stages of the flow, in rough visit order.
const (
	StageLogin              Stage = "Login"
	StageWaitingRoom        Stage = "WaitingRoom"
	StageSelectStudent      Stage = "SelectStudent"
	StageEnrollmentRegister Stage = "EnrollmentRegister"
	StageConfirmConsent     Stage = "ConfirmConsent"
	StageBlocked            Stage = "Blocked"
)

// transitions is the set of legal stage edges. Admission into class selection
// always passes through SelectStudent, so a waiting candidate cannot jump into
// EnrollmentRegister without an admission event.
var transitions = map[Stage]map[Stage]bool{
	StageLogin:              {StageWaitingRoom: true, StageSelectStudent: true, StageBlocked: true},
	StageWaitingRoom:        {StageSelectStudent: true, StageLogin: true, StageBlocked: true},
	StageSelectStudent:      {StageEnrollmentRegister: true, StageLogin: true, StageBlocked: true},
	StageEnrollmentRegister: {StageConfirmConsent: true, StageSelectStudent: true, StageLogin: true, StageBlocked: true},
	StageConfirmConsent:     {StageSelectStudent: true, StageLogin: true, StageBlocked: true},
	StageBlocked:            {StageLogin: true},
}

// Flow tracks the candidate's current stage and broadcasts every legal
// transition on the bus. It replaces the loose string-valued menu signals of
// earlier revisions with an explicit transition table.
type Flow struct {
	mu      sync.Mutex
	current Stage
	bus     *bus.Bus
}

// NewFlow starts a flow at the login stage.
func NewFlow(b *bus.Bus) *Flow {
	return &Flow{current: StageLogin, bus: b}
}

// Current returns the stage the candidate is on.
func (f *Flow) Current() Stage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Transition moves the flow to the given stage. Moving to the current stage is
// a no-op; an edge missing from the transition table is an error and leaves
// the flow unchanged.
func (f *Flow) Transition(to Stage) error {
	f.mu.Lock()
	from := f.current
	if from == to {
		f.mu.Unlock()
		return nil
	}
	if !transitions[from][to] {
		f.mu.Unlock()
		return fmt.Errorf("illegal stage transition %s -> %s", from, to)
	}
	f.current = to
	f.mu.Unlock()

	if f.bus != nil {
		f.bus.Publish(bus.TopicStage, to)
	}
	return nil
}

// Reset returns the candidate to the login stage from anywhere. Used when a
// session is invalidated server-side.
func (f *Flow) Reset() {
	f.mu.Lock()
	changed := f.current != StageLogin
	f.current = StageLogin
	f.mu.Unlock()

	if changed && f.bus != nil {
		f.bus.Publish(bus.TopicStage, StageLogin)
	}
}
