package register

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanuri-school/registration-api/internal/bus"
)

func TestFlowHappyPath(t *testing.T) {
	f := NewFlow(nil)
	require.Equal(t, StageLogin, f.Current())

	for _, to := range []Stage{StageWaitingRoom, StageSelectStudent, StageEnrollmentRegister, StageConfirmConsent} {
		require.NoError(t, f.Transition(to))
		require.Equal(t, to, f.Current())
	}
}

func TestFlowRejectsSkippingAdmission(t *testing.T) {
	f := NewFlow(nil)
	require.NoError(t, f.Transition(StageWaitingRoom))

	err := f.Transition(StageEnrollmentRegister)
	require.Error(t, err)
	assert.Equal(t, StageWaitingRoom, f.Current())
}

func TestFlowBlockedOnlyReturnsToLogin(t *testing.T) {
	f := NewFlow(nil)
	require.NoError(t, f.Transition(StageBlocked))

	require.Error(t, f.Transition(StageSelectStudent))
	require.NoError(t, f.Transition(StageLogin))
}

func TestFlowSameStageIsNoOp(t *testing.T) {
	b := bus.New()
	var published []interface{}
	b.Subscribe(bus.TopicStage, "test", func(p interface{}) { published = append(published, p) })

	f := NewFlow(b)
	require.NoError(t, f.Transition(StageLogin))
	assert.Empty(t, published)
}

func TestFlowPublishesTransitions(t *testing.T) {
	b := bus.New()
	var published []interface{}
	b.Subscribe(bus.TopicStage, "test", func(p interface{}) { published = append(published, p) })

	f := NewFlow(b)
	require.NoError(t, f.Transition(StageWaitingRoom))
	f.Reset()

	assert.Equal(t, []interface{}{StageWaitingRoom, StageLogin}, published)
}

func TestFlowResetIdempotent(t *testing.T) {
	b := bus.New()
	var published []interface{}
	b.Subscribe(bus.TopicStage, "test", func(p interface{}) { published = append(published, p) })

	f := NewFlow(b)
	f.Reset()
	f.Reset()
	assert.Empty(t, published)
}
