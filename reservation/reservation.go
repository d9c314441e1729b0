package reservation

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Reservation is the booking intent recorded when a bike is assigned to a
// rider for a class. Reservations are never updated once written.
type Reservation struct {
	ID               uuid.UUID      `db:"id"`
	BikeID           int            `db:"bike_id"`
	ClassID          sql.NullString `db:"class_id"`
	UserName         string         `db:"user_name"`
	CreditsUsed      int            `db:"credits_used"`
	CreditsRemaining int            `db:"credits_remaining"`
	CreatedAt        time.Time      `db:"created_at"`
	CreatedBy        sql.NullString `db:"created_by"`
}

// New builds a reservation for a rider who is left with creditsLeft after the
// booking consumed one credit.
func New(bikeID int, classKey, userName string, creditsLeft int) Reservation {
	r := Reservation{
		ID:               uuid.New(),
		BikeID:           bikeID,
		UserName:         userName,
		CreditsUsed:      1,
		CreditsRemaining: creditsLeft,
	}
	if classKey != "" {
		r.ClassID = sql.NullString{String: classKey, Valid: true}
	}
	return r
}
