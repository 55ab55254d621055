package register

import (
	"context"
	"sync"
	"time"

	"github.com/hanuri-school/registration-api/internal/models"
)

// fakeBackend is a scriptable Backend used across the flow tests.
type fakeBackend struct {
	students []models.Student

	windows    []models.RegistrationWindow
	serverNow  time.Time
	windowsErr error

	session  models.RegistrationSession
	startErr error

	positions  []int64
	checkErrs  []error
	checkCalls int

	endCalls int
	endErr   error

	offerings    []models.ClassOffering
	offeringsErr error

	enrollments []models.Enrollment

	condAddErrs map[string]error
	condAdded   []models.Enrollment
	deleteErrs  map[string]error

	mu      sync.Mutex
	deleted []string
}

func (f *fakeBackend) FindStudents(ctx context.Context, query string) ([]models.Student, error) {
	return f.students, nil
}

func (f *fakeBackend) PatchStudentLevels(ctx context.Context, id string, grade, koreanLevel int) error {
	return nil
}

func (f *fakeBackend) StartSession(ctx context.Context, email string) (models.RegistrationSession, error) {
	if f.startErr != nil {
		return models.RegistrationSession{}, f.startErr
	}
	session := f.session
	session.Email = email
	return session, nil
}

func (f *fakeBackend) CheckSession(ctx context.Context, email, sessionKey string) (int64, error) {
	call := f.checkCalls
	f.checkCalls++
	if call < len(f.checkErrs) && f.checkErrs[call] != nil {
		return 0, f.checkErrs[call]
	}
	if len(f.positions) == 0 {
		return models.PositionEnded, nil
	}
	if call >= len(f.positions) {
		return f.positions[len(f.positions)-1], nil
	}
	return f.positions[call], nil
}

func (f *fakeBackend) EndSession(ctx context.Context, email, sessionKey string) error {
	f.endCalls++
	return f.endErr
}

func (f *fakeBackend) ListWindows(ctx context.Context) ([]models.RegistrationWindow, time.Time, error) {
	if f.windowsErr != nil {
		return nil, time.Time{}, f.windowsErr
	}
	return f.windows, f.serverNow, nil
}

func (f *fakeBackend) ListOfferings(ctx context.Context, year, term int) ([]models.ClassOffering, error) {
	if f.offeringsErr != nil {
		return nil, f.offeringsErr
	}
	return f.offerings, nil
}

func (f *fakeBackend) AddEnrollment(ctx context.Context, enrollment models.Enrollment) (models.Enrollment, error) {
	return enrollment, nil
}

func (f *fakeBackend) ConditionallyAddEnrollment(ctx context.Context, enrollment models.Enrollment) (models.Enrollment, error) {
	if err, ok := f.condAddErrs[enrollment.OfferingID]; ok && err != nil {
		return models.Enrollment{}, err
	}
	f.condAdded = append(f.condAdded, enrollment)
	return enrollment, nil
}

func (f *fakeBackend) DeleteEnrollment(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.deleteErrs[id]; ok && err != nil {
		return err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeBackend) clearDeleteErr(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.deleteErrs, id)
}

func (f *fakeBackend) deletedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

func (f *fakeBackend) ListEnrollments(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, error) {
	return f.enrollments, nil
}
