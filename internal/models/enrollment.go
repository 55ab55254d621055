package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusDraft    EnrollmentStatus = "DRAFT"
	EnrollmentStatusEnrolled EnrollmentStatus = "ENROLLED"
	EnrollmentStatusDropped  EnrollmentStatus = "DROPPED"
)

// Enrollment binds a student to a class offering for a term. For a given
// (student, year, term) at most one live enrollment references an offering of
// a given period; the backend is the final arbiter of offering capacity.
type Enrollment struct {
	ID         string           `db:"id" json:"id"`
	StudentID  string           `db:"student_id" json:"student_id"`
	OfferingID string           `db:"offering_id" json:"offering_id"`
	Year       int              `db:"year" json:"year"`
	Term       int              `db:"term" json:"term"`
	Status     EnrollmentStatus `db:"status" json:"status"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updated_at"`
}

// Live reports whether the enrollment still occupies a seat.
func (e Enrollment) Live() bool {
	return e.Status != EnrollmentStatusDropped
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID string
	Year      int
	Term      int
	Status    EnrollmentStatus
}
