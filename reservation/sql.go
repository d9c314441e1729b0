package reservation

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a reservation and returns the stored row.
func (r *Repository) Create(ctx context.Context, res Reservation, createdBy *string) (Reservation, error) {
	var saved Reservation
	err := r.db.GetContext(ctx, &saved, createQuery,
		res.ID, res.BikeID, res.ClassID, res.UserName, res.CreditsUsed, res.CreditsRemaining, createdBy)
	return saved, err
}

const createQuery = `
INSERT INTO reservations (id, bike_id, class_id, user_name, credits_used, credits_remaining, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, now())
RETURNING *
`

// GetByClass fetches every reservation made for a class.
func (r *Repository) GetByClass(ctx context.Context, classID string) ([]Reservation, error) {
	var out []Reservation
	err := r.db.SelectContext(ctx, &out, getByClassQuery, classID)
	return out, err
}

const getByClassQuery = `SELECT * FROM reservations WHERE class_id = $1 ORDER BY created_at ASC`
