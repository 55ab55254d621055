package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanuri-school/registration-api/internal/models"
	appErrors "github.com/hanuri-school/registration-api/pkg/errors"
)

type mockEnrollmentRepo struct {
	enrollments map[string]models.Enrollment
	seats       map[string]int
	deleted     []string
}

func (m *mockEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, error) {
	var out []models.Enrollment
	for _, e := range m.enrollments {
		if filter.StudentID != "" && e.StudentID != filter.StudentID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	m.store(enrollment)
	return nil
}

func (m *mockEnrollmentRepo) ConditionalCreate(ctx context.Context, enrollment *models.Enrollment) error {
	if m.seats != nil && m.seats[enrollment.OfferingID] <= 0 {
		return appErrors.ErrSeatUnavailable
	}
	if m.seats != nil {
		m.seats[enrollment.OfferingID]--
	}
	m.store(enrollment)
	return nil
}

func (m *mockEnrollmentRepo) Delete(ctx context.Context, id string) error {
	delete(m.enrollments, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockEnrollmentRepo) store(enrollment *models.Enrollment) {
	if m.enrollments == nil {
		m.enrollments = make(map[string]models.Enrollment)
	}
	if enrollment.ID == "" {
		enrollment.ID = "new-enroll"
	}
	enrollment.Status = models.EnrollmentStatusEnrolled
	m.enrollments[enrollment.ID] = *enrollment
}

type mockCatalog struct {
	invalidated int
}

func (m *mockCatalog) Find(ctx context.Context, id string) (*models.ClassOffering, error) {
	return &models.ClassOffering{ID: id}, nil
}

func (m *mockCatalog) Invalidate(ctx context.Context, year, term int) {
	m.invalidated++
}

func TestConditionalAddClaimsSeat(t *testing.T) {
	repo := &mockEnrollmentRepo{seats: map[string]int{"off-1": 1}}
	catalog := &mockCatalog{}
	svc := NewEnrollmentService(repo, catalog, nil, nil, nil)

	enrollment, err := svc.ConditionalAdd(context.Background(), AddEnrollmentRequest{
		StudentID: "stu-1", OfferingID: "off-1", Year: 2026, Term: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusEnrolled, enrollment.Status)
	assert.Equal(t, 1, catalog.invalidated)
}

func TestConditionalAddOverFullOffering(t *testing.T) {
	repo := &mockEnrollmentRepo{seats: map[string]int{"off-1": 0}}
	catalog := &mockCatalog{}
	svc := NewEnrollmentService(repo, catalog, nil, nil, nil)

	_, err := svc.ConditionalAdd(context.Background(), AddEnrollmentRequest{
		StudentID: "stu-1", OfferingID: "off-1", Year: 2026, Term: 1,
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrSeatUnavailable))
	assert.Zero(t, catalog.invalidated)
}

func TestPlainAddIgnoresCapacity(t *testing.T) {
	repo := &mockEnrollmentRepo{seats: map[string]int{"off-1": 0}}
	svc := NewEnrollmentService(repo, &mockCatalog{}, nil, nil, nil)

	_, err := svc.Add(context.Background(), AddEnrollmentRequest{
		StudentID: "stu-1", OfferingID: "off-1", Year: 2026, Term: 1,
	})
	require.NoError(t, err)
}

func TestAddRejectsMissingFields(t *testing.T) {
	svc := NewEnrollmentService(&mockEnrollmentRepo{}, &mockCatalog{}, nil, nil, nil)

	_, err := svc.ConditionalAdd(context.Background(), AddEnrollmentRequest{StudentID: "stu-1"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestRemoveIsIdempotent(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"enr-1": {ID: "enr-1", StudentID: "stu-1", OfferingID: "off-1", Year: 2026, Term: 1},
	}}
	catalog := &mockCatalog{}
	svc := NewEnrollmentService(repo, catalog, nil, nil, nil)

	require.NoError(t, svc.Remove(context.Background(), "enr-1"))
	require.NoError(t, svc.Remove(context.Background(), "enr-1"))
	assert.Equal(t, []string{"enr-1"}, repo.deleted)
	assert.Equal(t, 1, catalog.invalidated)
}
