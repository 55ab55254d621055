package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hanuri-school/registration-api/internal/models"
	appErrors "github.com/hanuri-school/registration-api/pkg/errors"
)

// EnrollmentRepository handles persistence of enrollments and the offering
// occupancy counter they occupy.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentColumns = `id, student_id, offering_id, year, term, status, created_at, updated_at`

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Year != 0 {
		conditions = append(conditions, fmt.Sprintf("year = $%d", len(args)+1))
		args = append(args, filter.Year)
	}
	if filter.Term != 0 {
		conditions = append(conditions, fmt.Sprintf("term = $%d", len(args)+1))
		args = append(args, filter.Term)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at"

	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// Create inserts an enrollment without a capacity check and bumps the
// offering's occupancy. Administrative flows only.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	return r.insert(ctx, enrollment, false)
}

// ConditionalCreate inserts an enrollment only if the offering still has a
// seat. The check-and-increment runs as a single UPDATE, so two racing
// registrants can never both claim the last seat.
func (r *EnrollmentRepository) ConditionalCreate(ctx context.Context, enrollment *models.Enrollment) error {
	return r.insert(ctx, enrollment, true)
}

func (r *EnrollmentRepository) insert(ctx context.Context, enrollment *models.Enrollment, conditional bool) error {
	fill(enrollment)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enrollment tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	increment := `UPDATE class_offerings SET enrolled_count = enrolled_count + 1, updated_at = $2 WHERE id = $1`
	if conditional {
		increment += ` AND enrolled_count < max_students`
	}
	res, err := tx.ExecContext(ctx, increment, enrollment.OfferingID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("claim offering seat: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim offering seat: %w", err)
	}
	if affected == 0 {
		if !conditional {
			return appErrors.Clone(appErrors.ErrNotFound, "class offering not found")
		}
		// Distinguish a missing offering from a full one.
		var exists int
		err := tx.GetContext(ctx, &exists, `SELECT 1 FROM class_offerings WHERE id = $1`, enrollment.OfferingID)
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "class offering not found")
		}
		if err != nil {
			return fmt.Errorf("check offering: %w", err)
		}
		return appErrors.ErrSeatUnavailable
	}

	const insert = `INSERT INTO enrollments (id, student_id, offering_id, year, term, status, created_at, updated_at)
        VALUES (:id, :student_id, :offering_id, :year, :term, :status, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insert, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit enrollment: %w", err)
	}
	return nil
}

// Delete removes an enrollment and frees its seat in the same transaction.
// Deleting an already-removed enrollment is a no-op, which keeps retried and
// compensating deletes idempotent.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var offeringID string
	err = tx.GetContext(ctx, &offeringID, `DELETE FROM enrollments WHERE id = $1 RETURNING offering_id`, id)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}

	const release = `UPDATE class_offerings SET enrolled_count = GREATEST(enrolled_count - 1, 0), updated_at = $2 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, release, offeringID, time.Now().UTC()); err != nil {
		return fmt.Errorf("release offering seat: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

func fill(enrollment *models.Enrollment) {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusEnrolled
	}
	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now
}
