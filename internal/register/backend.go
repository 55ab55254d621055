// Package register implements the public self-service registration flow: the
// waiting-room admission controller, the schedule gate, the per-student class
// selection rules and the seat-safe enrollment submission protocol. Every
// component is instantiated per candidate and talks to the persistence service
// only through the Backend interface.
package register

import (
	"context"
	"time"

	"github.com/hanuri-school/registration-api/internal/models"
)

// Backend is the persistence service boundary consumed by the registration
// flow. ConditionallyAddEnrollment must perform an atomic check-and-increment
// of the target offering's occupancy; it is the only cross-candidate mutual
// exclusion the flow relies on.
type Backend interface {
	FindStudents(ctx context.Context, query string) ([]models.Student, error)
	PatchStudentLevels(ctx context.Context, id string, grade, koreanLevel int) error

	StartSession(ctx context.Context, email string) (models.RegistrationSession, error)
	CheckSession(ctx context.Context, email, sessionKey string) (int64, error)
	EndSession(ctx context.Context, email, sessionKey string) error

	ListWindows(ctx context.Context) ([]models.RegistrationWindow, time.Time, error)
	ListOfferings(ctx context.Context, year, term int) ([]models.ClassOffering, error)

	AddEnrollment(ctx context.Context, enrollment models.Enrollment) (models.Enrollment, error)
	ConditionallyAddEnrollment(ctx context.Context, enrollment models.Enrollment) (models.Enrollment, error)
	DeleteEnrollment(ctx context.Context, id string) error
	ListEnrollments(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, error)
}
