package bike

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetBikes(ctx context.Context) ([]Bike, error) {
	var bikes []Bike
	err := r.db.SelectContext(ctx, &bikes, getBikes)
	return bikes, err
}

const getBikes = `SELECT * FROM bikes ORDER BY id`

// SaveBike replaces the mutable columns of a bike with the given record.
func (r *Repository) SaveBike(ctx context.Context, b Bike, updatedBy *string) (Bike, error) {
	var saved Bike
	err := r.db.GetContext(ctx, &saved, saveBike,
		b.ID, b.Status, b.OccupiedBy, b.CreditsRemaining, b.AssignedClass, updatedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return saved, ErrNotFound
	}
	return saved, err
}

const saveBike = `
UPDATE bikes
SET status = $2,
    current_user_name = $3,
    credits_remaining = $4,
    current_class_id = $5,
    updated_at = now(),
    updated_by = $6
WHERE id = $1
RETURNING *
`

// ResetBikes frees every bike in the room.
func (r *Repository) ResetBikes(ctx context.Context, updatedBy *string) error {
	_, err := r.db.ExecContext(ctx, resetBikes, updatedBy)
	return err
}

const resetBikes = `
UPDATE bikes
SET status = 'available',
    current_user_name = NULL,
    credits_remaining = NULL,
    current_class_id = NULL,
    updated_at = now(),
    updated_by = $1
WHERE id >= 1
`
