package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hanuri-school/registration-api/internal/models"
)

// StudentRepository handles persistence of students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `id, name, grade, korean_level, parent_email, gender, religion, church, contact, created_at, updated_at`

// Search returns students whose parent email matches exactly or whose name
// contains the query. Used for both login-by-email and name lookup.
func (r *StudentRepository) Search(ctx context.Context, query string) ([]models.Student, error) {
	const q = `SELECT ` + studentColumns + ` FROM students
        WHERE parent_email = $1 OR name ILIKE '%' || $1 || '%'
        ORDER BY name`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, q, query); err != nil {
		return nil, fmt.Errorf("search students: %w", err)
	}
	return students, nil
}

// FindByID returns one student.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const q = `SELECT ` + studentColumns + ` FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, q, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// Create persists a newly registered student.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	const q = `INSERT INTO students (id, name, grade, korean_level, parent_email, gender, religion, church, contact, created_at, updated_at)
        VALUES (:id, :name, :grade, :korean_level, :parent_email, :gender, :religion, :church, :contact, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, q, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// UpdateLevels confirms a student's grade and Korean level before submission.
func (r *StudentRepository) UpdateLevels(ctx context.Context, id string, grade, koreanLevel int) error {
	const q = `UPDATE students SET grade = $2, korean_level = $3, updated_at = $4 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, grade, koreanLevel, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update student levels: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update student levels: no such student %s", id)
	}
	return nil
}
