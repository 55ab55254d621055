package register

import (
	"fmt"

	"github.com/hanuri-school/registration-api/internal/models"
	appErrors "github.com/hanuri-school/registration-api/pkg/errors"
)

// SelectionDraft is the candidate's in-progress choice, one offering per
// period. It exists only while choosing and is never persisted.
type SelectionDraft struct {
	Periods [models.PeriodCount]string
	Result  Evaluation
}

// Offering returns the chosen offering ID for a period (1-based), empty when
// unselected.
func (d SelectionDraft) Offering(period int) string {
	if period < 1 || period > models.PeriodCount {
		return ""
	}
	return d.Periods[period-1]
}

// Evaluation is the submit-gating verdict on a draft.
type Evaluation struct {
	OK  bool
	Err *appErrors.Error
}

// Selector computes the offerings a student may take per period, applies the
// selection rules (including linked all-day offerings) and evaluates whether
// the draft is submittable. One Selector serves one student for one term.
type Selector struct {
	student  models.Student
	byID     map[string]models.ClassOffering
	eligible map[int][]models.ClassOffering
	held     map[string]bool
	draft    SelectionDraft
	seeded   bool
}

// NewSelector builds a Selector from the student, the term's offering catalog
// and the student's existing enrollments. The draft is seeded once from the
// enrollments; later Refresh calls never clobber an in-progress choice.
func NewSelector(student models.Student, offerings []models.ClassOffering, enrollments []models.Enrollment) *Selector {
	s := &Selector{student: student}
	s.index(offerings)
	s.markHeld(enrollments)
	s.seed(enrollments)
	s.draft.Result = s.Evaluate()
	return s
}

// Refresh replaces the catalog view (occupancy counts change constantly while
// registration is open) without touching the current selection.
func (s *Selector) Refresh(offerings []models.ClassOffering, enrollments []models.Enrollment) {
	s.index(offerings)
	s.markHeld(enrollments)
	if !s.seeded {
		s.seed(enrollments)
	}
	s.draft.Result = s.Evaluate()
}

// Eligible returns the offerings the student may take in a period, in catalog
// order. Full offerings are included; Selectable gates choosing them.
func (s *Selector) Eligible(period int) []models.ClassOffering {
	return s.eligible[period]
}

// Selectable reports whether the offering can be chosen now. A full class is
// only selectable if the student already holds its seat, since that seat is
// part of the reported occupancy.
func (s *Selector) Selectable(offeringID string) bool {
	offering, ok := s.byID[offeringID]
	if !ok || !offering.Admits(s.student) {
		return false
	}
	return !offering.Full() || s.held[offeringID]
}

// Select chooses an offering for its period. A linked offering selects its
// same-named siblings in every period as one atomic choice.
func (s *Selector) Select(offeringID string) error {
	offering, ok := s.byID[offeringID]
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "class offering not found")
	}
	if !offering.Admits(s.student) {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("%s is not available for this student", offering.Name))
	}
	if !s.Selectable(offeringID) {
		return appErrors.Clone(appErrors.ErrSeatUnavailable, fmt.Sprintf("%s is full", offering.Name))
	}

	if offering.Linked() {
		group, err := s.linkedGroup(offering)
		if err != nil {
			return err
		}
		for period, o := range group {
			s.draft.Periods[period-1] = o.ID
		}
	} else {
		s.draft.Periods[offering.Period-1] = offering.ID
	}

	s.draft.Result = s.Evaluate()
	return nil
}

// Clear unselects a period.
func (s *Selector) Clear(period int) {
	if period < 1 || period > models.PeriodCount {
		return
	}
	s.draft.Periods[period-1] = ""
	s.draft.Result = s.Evaluate()
}

// Draft returns a copy of the current draft with its evaluation.
func (s *Selector) Draft() SelectionDraft {
	return s.draft
}

// Evaluate recomputes whether the draft is submittable: every period must be
// chosen and at least one chosen offering must be mandatory. The result gates
// the submit action; it is never sent to the backend.
func (s *Selector) Evaluate() Evaluation {
	mandatory := false
	for _, id := range s.draft.Periods {
		if id == "" {
			return Evaluation{Err: appErrors.ErrIncompleteSelection}
		}
		if o, ok := s.byID[id]; ok && o.Mandatory {
			mandatory = true
		}
	}
	if !mandatory {
		return Evaluation{Err: appErrors.ErrMandatoryMissing}
	}
	return Evaluation{OK: true}
}

func (s *Selector) index(offerings []models.ClassOffering) {
	s.byID = make(map[string]models.ClassOffering, len(offerings))
	s.eligible = make(map[int][]models.ClassOffering)
	for _, o := range offerings {
		s.byID[o.ID] = o
		if o.Admits(s.student) {
			s.eligible[o.Period] = append(s.eligible[o.Period], o)
		}
	}
}

func (s *Selector) markHeld(enrollments []models.Enrollment) {
	s.held = make(map[string]bool, len(enrollments))
	for _, e := range enrollments {
		if e.StudentID == s.student.ID && e.Live() {
			s.held[e.OfferingID] = true
		}
	}
}

// seed pre-selects each period from the student's live enrollments whose
// offering is in that period's eligible set. Runs at most once per Selector.
func (s *Selector) seed(enrollments []models.Enrollment) {
	s.seeded = true
	for _, e := range enrollments {
		if e.StudentID != s.student.ID || !e.Live() {
			continue
		}
		offering, ok := s.byID[e.OfferingID]
		if !ok || !offering.Admits(s.student) {
			continue
		}
		s.draft.Periods[offering.Period-1] = offering.ID
	}
}

// linkedGroup resolves the same-named offering in every period for a linked
// (all-day) offering. All siblings must exist and be open to this student.
func (s *Selector) linkedGroup(offering models.ClassOffering) (map[int]models.ClassOffering, error) {
	group := make(map[int]models.ClassOffering, models.PeriodCount)
	for _, o := range s.byID {
		if o.Name == offering.Name {
			group[o.Period] = o
		}
	}
	for period := 1; period <= models.PeriodCount; period++ {
		o, ok := group[period]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("%s is missing its period %d session", offering.Name, period))
		}
		if o.Full() && !s.held[o.ID] {
			return nil, appErrors.Clone(appErrors.ErrSeatUnavailable, fmt.Sprintf("%s is full", o.Name))
		}
	}
	return group, nil
}
