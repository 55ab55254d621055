package register

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hanuri-school/registration-api/internal/bus"
	"github.com/hanuri-school/registration-api/internal/models"
	appErrors "github.com/hanuri-school/registration-api/pkg/errors"
	"github.com/hanuri-school/registration-api/pkg/jobs"
)

// Coordinator turns a validated selection into an ordered sequence of backend
// calls: capacity-checked adds first, removals of superseded seats last. All
// adds precede all removes so the student never transiently holds zero seats
// in a period; the cost is a transient over-count that heals once the remove
// phase completes.
//
// A capacity conflict is an expected per-period outcome: that period keeps its
// previously held seat while sibling periods that won their seats stay
// confirmed. A transport failure mid-sequence is different: the submission is
// abandoned and every seat it already claimed is released again.
type Coordinator struct {
	backend Backend
	bus     *bus.Bus
	cleanup *jobs.Queue
	logger  *zap.Logger
}

// NewCoordinator constructs a Coordinator. cleanup may be nil; failed removals
// are then only logged.
func NewCoordinator(backend Backend, b *bus.Bus, cleanup *jobs.Queue, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{backend: backend, bus: b, cleanup: cleanup, logger: logger}
}

// NewCleanupQueue builds the retry queue for deletes that failed after their
// replacement seat was already confirmed. Holding both seats briefly is
// preferred over holding none, so these deletes retry in the background and
// never roll anything back.
func NewCleanupQueue(backend Backend, cfg jobs.QueueConfig) *jobs.Queue {
	return jobs.NewQueue("enrollment-cleanup", func(ctx context.Context, job jobs.Job) error {
		id, ok := job.Payload.(string)
		if !ok {
			return fmt.Errorf("unexpected cleanup payload %T", job.Payload)
		}
		return backend.DeleteEnrollment(ctx, id)
	}, cfg)
}

// periodChange is one period's worth of submission work.
type periodChange struct {
	period   int
	target   string
	previous *models.Enrollment
	added    *models.Enrollment
	conflict bool
}

// Submit moves a student from their previous per-period enrollments to the
// draft's choices. previous is the student's current enrollment list for the
// term; catalog maps offering IDs to periods. Periods whose choice is
// unchanged are untouched, so a draft identical to the current enrollments
// issues no backend calls at all.
func (c *Coordinator) Submit(ctx context.Context, student models.Student, year, term int, draft SelectionDraft, previous []models.Enrollment, catalog []models.ClassOffering) error {
	if !draft.Result.OK {
		if draft.Result.Err != nil {
			return draft.Result.Err
		}
		return appErrors.ErrIncompleteSelection
	}

	byID := make(map[string]models.ClassOffering, len(catalog))
	for _, o := range catalog {
		byID[o.ID] = o
	}

	prevByPeriod := make(map[int]models.Enrollment)
	for _, e := range previous {
		if e.StudentID != student.ID || !e.Live() {
			continue
		}
		if o, ok := byID[e.OfferingID]; ok {
			prevByPeriod[o.Period] = e
		}
	}

	var changes []*periodChange
	for period := 1; period <= models.PeriodCount; period++ {
		target := draft.Offering(period)
		prev, had := prevByPeriod[period]
		if had && prev.OfferingID == target {
			continue
		}
		change := &periodChange{period: period, target: target}
		if had {
			p := prev
			change.previous = &p
		}
		changes = append(changes, change)
	}
	if len(changes) == 0 {
		return nil
	}

	contended, err := c.addPhase(ctx, student, year, term, changes, byID)
	if err != nil {
		return err
	}

	c.removePhase(ctx, changes)
	c.refreshEnrollments(ctx, student.ID, year, term)

	if contended != nil {
		c.refreshOfferings(ctx, year, term)
		return appErrors.Clone(appErrors.ErrSeatUnavailable, fmt.Sprintf("%s filled up before your request was processed", contended.Name))
	}

	c.logger.Info("selection submitted",
		zap.String("student_id", student.ID),
		zap.Int("periods_changed", len(changes)))
	return nil
}

// addPhase claims each new seat sequentially, never in parallel, so a failure
// on an earlier period is seen before later seats are claimed. A capacity
// conflict marks the period as lost and moves on; the first contended offering
// is reported to the caller. Any other error abandons the submission and
// releases the seats it already claimed, newest first.
func (c *Coordinator) addPhase(ctx context.Context, student models.Student, year, term int, changes []*periodChange, byID map[string]models.ClassOffering) (*models.ClassOffering, error) {
	var contended *models.ClassOffering
	for _, change := range changes {
		enrollment := models.Enrollment{
			ID:         uuid.NewString(),
			StudentID:  student.ID,
			OfferingID: change.target,
			Year:       year,
			Term:       term,
			Status:     models.EnrollmentStatusEnrolled,
		}
		created, err := c.backend.ConditionallyAddEnrollment(ctx, enrollment)
		if err == nil {
			e := created
			change.added = &e
			continue
		}
		if appErrors.Is(err, appErrors.ErrSeatUnavailable) {
			change.conflict = true
			if contended == nil {
				if o, ok := byID[change.target]; ok {
					contended = &o
				} else {
					contended = &models.ClassOffering{ID: change.target, Name: change.target}
				}
			}
			c.logger.Info("seat lost to concurrent registrant",
				zap.String("student_id", student.ID),
				zap.String("offering_id", change.target))
			continue
		}

		c.compensate(ctx, changes)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "enrollment submission failed")
	}
	return contended, nil
}

// compensate releases every seat claimed by this submission, newest first.
// Previously held enrollments are never touched here.
func (c *Coordinator) compensate(ctx context.Context, changes []*periodChange) {
	for i := len(changes) - 1; i >= 0; i-- {
		if changes[i].added == nil {
			continue
		}
		id := changes[i].added.ID
		if err := c.backend.DeleteEnrollment(ctx, id); err != nil {
			c.logger.Error("compensating delete failed", zap.String("enrollment_id", id), zap.Error(err))
			c.enqueueCleanup(id)
		}
		changes[i].added = nil
	}
}

// removePhase drops the superseded seat of every period whose new seat was
// confirmed. A period that lost the capacity race keeps its old seat. Failed
// deletes retry in the background rather than rolling anything back.
func (c *Coordinator) removePhase(ctx context.Context, changes []*periodChange) {
	for _, change := range changes {
		if change.added == nil || change.previous == nil {
			continue
		}
		if err := c.backend.DeleteEnrollment(ctx, change.previous.ID); err != nil {
			c.logger.Warn("superseded enrollment delete failed",
				zap.String("enrollment_id", change.previous.ID), zap.Error(err))
			c.enqueueCleanup(change.previous.ID)
		}
	}
}

func (c *Coordinator) enqueueCleanup(enrollmentID string) {
	if c.cleanup == nil {
		return
	}
	if err := c.cleanup.Enqueue(jobs.Job{ID: enrollmentID, Type: "enrollment.delete", Payload: enrollmentID}); err != nil {
		c.logger.Error("cleanup enqueue failed", zap.String("enrollment_id", enrollmentID), zap.Error(err))
	}
}

// refreshOfferings re-fetches occupancy after a lost race so the candidate
// sees current counts before retrying.
func (c *Coordinator) refreshOfferings(ctx context.Context, year, term int) {
	offerings, err := c.backend.ListOfferings(ctx, year, term)
	if err != nil {
		c.logger.Warn("offering refresh failed", zap.Error(err))
		return
	}
	c.publish(bus.TopicOfferings, offerings)
}

func (c *Coordinator) refreshEnrollments(ctx context.Context, studentID string, year, term int) {
	enrollments, err := c.backend.ListEnrollments(ctx, models.EnrollmentFilter{StudentID: studentID, Year: year, Term: term})
	if err != nil {
		c.logger.Warn("enrollment refresh failed", zap.Error(err))
		return
	}
	c.publish(bus.TopicEnrollments, enrollments)
}

func (c *Coordinator) publish(topic bus.Topic, payload interface{}) {
	if c.bus != nil {
		c.bus.Publish(topic, payload)
	}
}
