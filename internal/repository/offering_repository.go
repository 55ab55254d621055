package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/hanuri-school/registration-api/internal/models"
)

// OfferingRepository handles persistence of class offerings. The occupancy
// counter lives on the offering row and is only ever changed inside the
// enrollment repository's transactions, keeping reads cheap during bursts.
type OfferingRepository struct {
	db *sqlx.DB
}

// NewOfferingRepository constructs the repository.
func NewOfferingRepository(db *sqlx.DB) *OfferingRepository {
	return &OfferingRepository{db: db}
}

const offeringColumns = `id, name, period, min_grade, max_grade, min_korean_level, max_korean_level,
        mandatory, max_students, enrolled_count, year, term, created_at, updated_at`

// List returns the offering catalog for a term ordered by period then name.
func (r *OfferingRepository) List(ctx context.Context, filter models.OfferingFilter) ([]models.ClassOffering, error) {
	const query = `SELECT ` + offeringColumns + ` FROM class_offerings
        WHERE year = $1 AND term = $2 ORDER BY period, name`
	var offerings []models.ClassOffering
	if err := r.db.SelectContext(ctx, &offerings, query, filter.Year, filter.Term); err != nil {
		return nil, fmt.Errorf("list class offerings: %w", err)
	}
	return offerings, nil
}

// FindByID returns one offering.
func (r *OfferingRepository) FindByID(ctx context.Context, id string) (*models.ClassOffering, error) {
	const query = `SELECT ` + offeringColumns + ` FROM class_offerings WHERE id = $1`
	var offering models.ClassOffering
	if err := r.db.GetContext(ctx, &offering, query, id); err != nil {
		return nil, err
	}
	return &offering, nil
}
