package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanuri-school/registration-api/internal/models"
	appErrors "github.com/hanuri-school/registration-api/pkg/errors"
)

type mockQueueRepo struct {
	members  map[string]int64
	next     int64
	joined   []string
	left     []string
	position int64
}

func (m *mockQueueRepo) Join(ctx context.Context, email string) (int64, error) {
	if m.members == nil {
		m.members = make(map[string]int64)
	}
	if _, ok := m.members[email]; !ok {
		m.next++
		m.members[email] = m.next
		m.joined = append(m.joined, email)
	}
	return m.Position(ctx, email)
}

func (m *mockQueueRepo) Position(ctx context.Context, email string) (int64, error) {
	ticket, ok := m.members[email]
	if !ok {
		return models.PositionEnded, nil
	}
	var rank int64 = 1
	for _, other := range m.members {
		if other < ticket {
			rank++
		}
	}
	return rank, nil
}

func (m *mockQueueRepo) Leave(ctx context.Context, email string) error {
	delete(m.members, email)
	m.left = append(m.left, email)
	return nil
}

func (m *mockQueueRepo) Depth(ctx context.Context) (int64, error) {
	return int64(len(m.members)), nil
}

type mockStudentSearch struct {
	students []models.Student
}

func (m *mockStudentSearch) Search(ctx context.Context, query string) ([]models.Student, error) {
	var matched []models.Student
	for _, s := range m.students {
		if s.ParentEmail == query {
			matched = append(matched, s)
		}
	}
	return matched, nil
}

func newRegistrationService(queue *mockQueueRepo, students *mockStudentSearch) *RegistrationService {
	return NewRegistrationService(queue, students, nil, nil, nil, RegistrationSessionConfig{
		SessionKeySecret: "test-secret",
	})
}

func TestSessionKeyTTLDefault(t *testing.T) {
	svc := newRegistrationService(&mockQueueRepo{}, &mockStudentSearch{})
	assert.Equal(t, 2*time.Hour, svc.config.SessionKeyTTL)
}

func TestStartSessionMintsKeyAndJoinsQueue(t *testing.T) {
	queue := &mockQueueRepo{}
	students := &mockStudentSearch{students: []models.Student{
		{ID: "stu-1", ParentEmail: "kim@example.com"},
	}}
	svc := newRegistrationService(queue, students)

	session, err := svc.StartSession(context.Background(), StartSessionRequest{Email: "Kim@Example.com"})
	require.NoError(t, err)
	assert.Equal(t, "kim@example.com", session.Email)
	assert.Equal(t, int64(1), session.Position)
	assert.NotEmpty(t, session.SessionKey)
	assert.Equal(t, []string{"kim@example.com"}, queue.joined)
}

func TestStartSessionRejectsUnknownEmail(t *testing.T) {
	svc := newRegistrationService(&mockQueueRepo{}, &mockStudentSearch{})

	_, err := svc.StartSession(context.Background(), StartSessionRequest{Email: "nobody@example.com"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestStartSessionTwiceKeepsOriginalTicket(t *testing.T) {
	queue := &mockQueueRepo{}
	students := &mockStudentSearch{students: []models.Student{
		{ID: "stu-1", ParentEmail: "first@example.com"},
		{ID: "stu-2", ParentEmail: "second@example.com"},
	}}
	svc := newRegistrationService(queue, students)

	first, err := svc.StartSession(context.Background(), StartSessionRequest{Email: "first@example.com"})
	require.NoError(t, err)
	_, err = svc.StartSession(context.Background(), StartSessionRequest{Email: "second@example.com"})
	require.NoError(t, err)

	again, err := svc.StartSession(context.Background(), StartSessionRequest{Email: "first@example.com"})
	require.NoError(t, err)
	assert.Equal(t, first.Position, again.Position)
	assert.Len(t, queue.joined, 2)
}

func TestCheckSessionReportsRankAndEnd(t *testing.T) {
	queue := &mockQueueRepo{}
	students := &mockStudentSearch{students: []models.Student{
		{ID: "stu-1", ParentEmail: "kim@example.com"},
	}}
	svc := newRegistrationService(queue, students)

	session, err := svc.StartSession(context.Background(), StartSessionRequest{Email: "kim@example.com"})
	require.NoError(t, err)

	position, err := svc.CheckSession(context.Background(), session.SessionKey)
	require.NoError(t, err)
	assert.Equal(t, int64(1), position)

	require.NoError(t, svc.EndSession(context.Background(), session.SessionKey))

	position, err = svc.CheckSession(context.Background(), session.SessionKey)
	require.NoError(t, err)
	assert.Equal(t, int64(models.PositionEnded), position)
}

func TestCheckSessionRejectsForgedKey(t *testing.T) {
	svc := newRegistrationService(&mockQueueRepo{}, &mockStudentSearch{})

	_, err := svc.CheckSession(context.Background(), "not-a-session-key")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrSessionInvalidated))
}

func TestEndSessionIsIdempotent(t *testing.T) {
	queue := &mockQueueRepo{}
	students := &mockStudentSearch{students: []models.Student{
		{ID: "stu-1", ParentEmail: "kim@example.com"},
	}}
	svc := newRegistrationService(queue, students)

	session, err := svc.StartSession(context.Background(), StartSessionRequest{Email: "kim@example.com"})
	require.NoError(t, err)

	require.NoError(t, svc.EndSession(context.Background(), session.SessionKey))
	require.NoError(t, svc.EndSession(context.Background(), session.SessionKey))
	assert.Len(t, queue.left, 2)
}
