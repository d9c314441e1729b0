package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// GetByClass fetches the attendance overrides written for a class.
func (r *Repository) GetByClass(ctx context.Context, classID string) ([]Attendance, error) {
	var out []Attendance
	err := r.db.SelectContext(ctx, &out, getByClassQuery, classID)
	return out, err
}

const getByClassQuery = `SELECT * FROM attendances WHERE class_id = $1`

// Upsert writes the status and credits of a rider for a class. The row is
// updated in place when one already exists for (class, user), otherwise it is
// inserted. The stored row is returned.
func (r *Repository) Upsert(ctx context.Context, a Attendance, updatedBy *string) (Attendance, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Attendance{}, err
	}
	defer tx.Rollback()

	var id string
	err = tx.GetContext(ctx, &id, upsert_findExisting, a.ClassID, a.UserName)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Attendance{}, err
	}

	var saved Attendance
	if id != "" {
		err = tx.GetContext(ctx, &saved, upsert_update, id, a.Status, a.CreditsRemaining, updatedBy)
	} else {
		err = tx.GetContext(ctx, &saved, upsert_insert,
			a.ClassID, a.UserName, a.BikeNumber, a.CreditsRemaining, a.Status, updatedBy)
	}
	if err != nil {
		return Attendance{}, err
	}

	return saved, tx.Commit()
}

const upsert_findExisting = `SELECT id FROM attendances WHERE class_id = $1 AND user_name = $2 FOR UPDATE`

const upsert_update = `
UPDATE attendances
SET status = $2, credits_remaining = $3, updated_at = now(), updated_by = $4
WHERE id = $1
RETURNING *
`

const upsert_insert = `
INSERT INTO attendances (id, class_id, user_name, bike_number, credits_remaining, status, updated_at, updated_by)
VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, now(), $6)
RETURNING *
`

// AttendedSince returns the check-in time of every attended row updated at or
// after since.
func (r *Repository) AttendedSince(ctx context.Context, since time.Time) ([]time.Time, error) {
	var out []time.Time
	err := r.db.SelectContext(ctx, &out, attendedSinceQuery, since)
	return out, err
}

const attendedSinceQuery = `SELECT updated_at FROM attendances WHERE status = 'attended' AND updated_at >= $1`

// CountAttended returns the number of attended rows for each of the given classes.
func (r *Repository) CountAttended(ctx context.Context, classIDs []string) (map[string]int, error) {
	var rows []struct {
		ClassID string `db:"class_id"`
		Count   int    `db:"count"`
	}
	err := r.db.SelectContext(ctx, &rows, countAttendedQuery, classIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.ClassID] = row.Count
	}
	return out, nil
}

const countAttendedQuery = `
SELECT class_id, count(*) AS count FROM attendances
WHERE status = 'attended' AND class_id = ANY($1)
GROUP BY class_id
`
