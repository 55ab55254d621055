package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/hanuri-school/registration-api/internal/models"
)

// ScheduleRepository handles persistence of registration windows.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs the repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// List returns every registration window ordered by identifier.
func (r *ScheduleRepository) List(ctx context.Context) ([]models.RegistrationWindow, error) {
	const query = `SELECT id, year, term, opens_at, closes_at, created_at, updated_at
        FROM registration_windows ORDER BY id`
	var windows []models.RegistrationWindow
	if err := r.db.SelectContext(ctx, &windows, query); err != nil {
		return nil, fmt.Errorf("list registration windows: %w", err)
	}
	return windows, nil
}

// Latest returns the registration window with the greatest identifier, or nil
// when none has been configured yet.
func (r *ScheduleRepository) Latest(ctx context.Context) (*models.RegistrationWindow, error) {
	const query = `SELECT id, year, term, opens_at, closes_at, created_at, updated_at
        FROM registration_windows ORDER BY id DESC LIMIT 1`
	var window models.RegistrationWindow
	if err := r.db.GetContext(ctx, &window, query); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("latest registration window: %w", err)
	}
	return &window, nil
}

// Create persists a new registration window.
func (r *ScheduleRepository) Create(ctx context.Context, window *models.RegistrationWindow) error {
	now := time.Now().UTC()
	window.CreatedAt = now
	window.UpdatedAt = now
	const query = `INSERT INTO registration_windows (year, term, opens_at, closes_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, window.Year, window.Term, window.OpensAt, window.ClosesAt, window.CreatedAt, window.UpdatedAt).Scan(&window.ID); err != nil {
		return fmt.Errorf("create registration window: %w", err)
	}
	return nil
}

// Update replaces a window's term and opening hours.
func (r *ScheduleRepository) Update(ctx context.Context, window *models.RegistrationWindow) error {
	window.UpdatedAt = time.Now().UTC()
	const query = `UPDATE registration_windows SET year = $2, term = $3, opens_at = $4, closes_at = $5, updated_at = $6 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, window.ID, window.Year, window.Term, window.OpensAt, window.ClosesAt, window.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update registration window: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update registration window: no such window %d", window.ID)
	}
	return nil
}
