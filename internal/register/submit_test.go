package register

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hanuri-school/registration-api/internal/bus"
	"github.com/hanuri-school/registration-api/internal/models"
	appErrors "github.com/hanuri-school/registration-api/pkg/errors"
	"github.com/hanuri-school/registration-api/pkg/jobs"
)

func submitCatalog() []models.ClassOffering {
	return []models.ClassOffering{
		offering("A", "Korean Language", 1, true),
		offering("X", "Korean Conversation", 1, true),
		offering("B", "Art", 2, false),
		offering("Y", "Music", 2, false),
		offering("C", "History", 3, false),
		offering("Z", "Taekwondo", 3, false),
	}
}

func submitPrevious() []models.Enrollment {
	return []models.Enrollment{
		{ID: "e-A", StudentID: "stu-1", OfferingID: "A", Year: 2026, Term: 1, Status: models.EnrollmentStatusEnrolled},
		{ID: "e-B", StudentID: "stu-1", OfferingID: "B", Year: 2026, Term: 1, Status: models.EnrollmentStatusEnrolled},
		{ID: "e-C", StudentID: "stu-1", OfferingID: "C", Year: 2026, Term: 1, Status: models.EnrollmentStatusEnrolled},
	}
}

func okDraft(p1, p2, p3 string) SelectionDraft {
	return SelectionDraft{Periods: [models.PeriodCount]string{p1, p2, p3}, Result: Evaluation{OK: true}}
}

func TestCoordinatorNoOpSubmission(t *testing.T) {
	backend := &fakeBackend{}
	c := NewCoordinator(backend, nil, nil, zap.NewNop())

	err := c.Submit(context.Background(), testStudent(), 2026, 1, okDraft("A", "B", "C"), submitPrevious(), submitCatalog())
	require.NoError(t, err)

	assert.Empty(t, backend.condAdded, "identical draft must issue no add calls")
	assert.Empty(t, backend.deletedIDs(), "identical draft must issue no delete calls")
}

func TestCoordinatorFullSwap(t *testing.T) {
	backend := &fakeBackend{}
	b := bus.New()
	var broadcast [][]models.Enrollment
	b.Subscribe(bus.TopicEnrollments, "submit-test", func(p interface{}) {
		broadcast = append(broadcast, p.([]models.Enrollment))
	})
	c := NewCoordinator(backend, b, nil, zap.NewNop())

	err := c.Submit(context.Background(), testStudent(), 2026, 1, okDraft("X", "Y", "Z"), submitPrevious(), submitCatalog())
	require.NoError(t, err)

	require.Len(t, backend.condAdded, 3)
	assert.Equal(t, []string{"e-A", "e-B", "e-C"}, backend.deletedIDs())
	assert.Len(t, broadcast, 1, "canonical enrollment list is broadcast once on success")
}

func TestCoordinatorAddBeforeRemoveInvariant(t *testing.T) {
	// Period 2's new choice loses the capacity race while periods 1 and 3
	// win theirs: the old period-2 seat must survive untouched and the new
	// period-1/3 seats must stay confirmed.
	backend := &fakeBackend{
		condAddErrs: map[string]error{"Y": appErrors.ErrSeatUnavailable},
	}
	c := NewCoordinator(backend, nil, nil, zap.NewNop())

	err := c.Submit(context.Background(), testStudent(), 2026, 1, okDraft("X", "Y", "Z"), submitPrevious(), submitCatalog())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSeatUnavailable.Code, appErrors.FromError(err).Code)
	assert.Contains(t, err.Error(), "Music", "the contended offering is named in the error")

	added := make([]string, 0, len(backend.condAdded))
	for _, e := range backend.condAdded {
		added = append(added, e.OfferingID)
	}
	assert.Equal(t, []string{"X", "Z"}, added)

	deleted := backend.deletedIDs()
	assert.NotContains(t, deleted, "e-B", "the seat that lost its replacement is never removed")
	assert.Contains(t, deleted, "e-A")
	assert.Contains(t, deleted, "e-C")
}

func TestCoordinatorTransportFailureCompensates(t *testing.T) {
	backend := &fakeBackend{
		condAddErrs: map[string]error{"Y": errors.New("connection reset")},
	}
	c := NewCoordinator(backend, nil, nil, zap.NewNop())

	err := c.Submit(context.Background(), testStudent(), 2026, 1, okDraft("X", "Y", "Z"), submitPrevious(), submitCatalog())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)

	// Period 3's add was never attempted; period 1's add was rolled back.
	require.Len(t, backend.condAdded, 1)
	assert.Equal(t, "X", backend.condAdded[0].OfferingID)
	assert.Equal(t, []string{backend.condAdded[0].ID}, backend.deletedIDs())
}

func TestCoordinatorSingleSeatConflictKeepsEverything(t *testing.T) {
	// Only period 2 changes and its add fails: nothing is added or removed.
	backend := &fakeBackend{
		condAddErrs: map[string]error{"Y": appErrors.ErrSeatUnavailable},
	}
	c := NewCoordinator(backend, nil, nil, zap.NewNop())

	err := c.Submit(context.Background(), testStudent(), 2026, 1, okDraft("A", "Y", "C"), submitPrevious(), submitCatalog())
	require.Error(t, err)

	assert.Empty(t, backend.condAdded)
	assert.Empty(t, backend.deletedIDs())
}

func TestCoordinatorAddsWithoutPrevious(t *testing.T) {
	backend := &fakeBackend{}
	c := NewCoordinator(backend, nil, nil, zap.NewNop())

	err := c.Submit(context.Background(), testStudent(), 2026, 1, okDraft("X", "Y", "Z"), nil, submitCatalog())
	require.NoError(t, err)

	assert.Len(t, backend.condAdded, 3)
	assert.Empty(t, backend.deletedIDs())
}

func TestCoordinatorRejectsUnevaluatedDraft(t *testing.T) {
	backend := &fakeBackend{}
	c := NewCoordinator(backend, nil, nil, zap.NewNop())

	draft := SelectionDraft{Periods: [models.PeriodCount]string{"X", "", ""}, Result: Evaluation{Err: appErrors.ErrIncompleteSelection}}
	err := c.Submit(context.Background(), testStudent(), 2026, 1, draft, nil, submitCatalog())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrIncompleteSelection.Code, appErrors.FromError(err).Code)
	assert.Empty(t, backend.condAdded)
}

func TestCoordinatorFailedRemoveRetriesInBackground(t *testing.T) {
	backend := &fakeBackend{
		deleteErrs: map[string]error{"e-A": errors.New("gateway timeout")},
	}
	cleanup := NewCleanupQueue(backend, jobs.QueueConfig{Workers: 1, MaxRetries: 3, RetryDelay: 10 * time.Millisecond, Logger: zap.NewNop()})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cleanup.Start(ctx)
	defer cleanup.Stop()

	c := NewCoordinator(backend, nil, cleanup, zap.NewNop())
	err := c.Submit(ctx, testStudent(), 2026, 1, okDraft("X", "B", "C"), submitPrevious(), submitCatalog())
	require.NoError(t, err, "a failed remove never fails the submission")

	// Heal the backend; the queued retry should finish the delete.
	backend.clearDeleteErr("e-A")
	assert.Eventually(t, func() bool {
		for _, id := range backend.deletedIDs() {
			if id == "e-A" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}
