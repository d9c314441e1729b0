package profile

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
	return &Repository{
		db: db,
	}
}

func (r *Repository) GetProfiles(ctx context.Context) ([]Profile, error) {
	var out []Profile
	err := r.db.SelectContext(ctx, &out, getProfilesQuery)
	return out, err
}

const getProfilesQuery = `SELECT * FROM profiles ORDER BY role, full_name`

func (r *Repository) GetProfile(ctx context.Context, id string) (Profile, error) {
	var p Profile
	err := r.db.GetContext(ctx, &p, getProfileQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	return p, err
}

const getProfileQuery = `SELECT * FROM profiles WHERE id = $1`

// SetCredits stores an absolute credit balance. Writing the absolute value
// keeps a repeated request harmless.
func (r *Repository) SetCredits(ctx context.Context, id string, credits int) error {
	res, err := r.db.ExecContext(ctx, setCreditsQuery, credits, id)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

const setCreditsQuery = `UPDATE profiles SET credits_remaining = $1, updated_at = now() WHERE id = $2`

func (r *Repository) Update(ctx context.Context, id string, e Edit) (Profile, error) {
	var p Profile
	err := r.db.GetContext(ctx, &p, updateQuery,
		e.FullName, nullable(e.Phone), e.Role, e.CreditsRemaining, nullable(e.Notes), id)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	return p, err
}

const updateQuery = `
UPDATE profiles
SET full_name = $1, phone = $2, role = $3, credits_remaining = $4, notes = $5, updated_at = now()
WHERE id = $6
RETURNING *
`

func (r *Repository) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx, setActiveQuery, active, id)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

const setActiveQuery = `UPDATE profiles SET is_active = $1, updated_at = now() WHERE id = $2`

// Ensure creates a minimal profile for a signed-in user that has none yet and
// returns the stored profile either way.
// An existing profile is left untouched, so no change is published.
func (r *Repository) Ensure(ctx context.Context, id, fullName string, role Role) (Profile, error) {
	if _, err := r.db.ExecContext(ctx, ensureQuery, id, fullName, role); err != nil {
		return Profile{}, err
	}
	return r.GetProfile(ctx, id)
}

const ensureQuery = `
INSERT INTO profiles (id, full_name, role, credits_remaining, is_active, created_at, updated_at)
VALUES ($1, $2, $3, 0, true, now(), now())
ON CONFLICT (id) DO NOTHING
`

func affectedOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
