package class

import (
	"context"
	"time"

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

// GetBetween fetches the classes scheduled in [from, to], earliest first.
func (r *Repository) GetBetween(ctx context.Context, from, to time.Time) ([]Class, error) {
	var classes []Class
	err := r.db.SelectContext(ctx, &classes, getBetween, from, to)
	return classes, err
}

const getBetween = `
SELECT * FROM classes
WHERE scheduled_at >= $1 AND scheduled_at <= $2
ORDER BY scheduled_at
`
