// Package bike models the fixed pool of spin bikes in the room.
package bike

import (
	"errors"
	"fmt"
	"time"
)

type Status string

const (
	StatusAvailable Status = "available"
	StatusOccupied  Status = "occupied"
	StatusBlocked   Status = "blocked"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrNotAvailable = errors.New("bike not available")
	ErrNotBlocked   = errors.New("bike not blocked")
	ErrInvalidState = errors.New("invalid bike state")
)

// Bike is one numbered bike in the room. OccupiedBy and CreditsRemaining are
// set exactly when the bike is occupied.
type Bike struct {
	// ID is the number painted on the bike, 1..N.
	ID     int    `db:"id"`
	Status Status `db:"status"`

	OccupiedBy       *string `db:"current_user_name"`
	CreditsRemaining *int    `db:"credits_remaining"`
	// AssignedClass is the class id or local schedule key the rider booked for.
	AssignedClass *string `db:"current_class_id"`

	UpdatedAt time.Time `db:"updated_at"`
	UpdatedBy *string   `db:"updated_by"`
}

// Available returns a fresh bike with the given number.
func Available(id int) Bike {
	return Bike{ID: id, Status: StatusAvailable}
}

// Validate checks the occupancy invariant.
func (b Bike) Validate() error {
	switch b.Status {
	case StatusOccupied:
		if b.OccupiedBy == nil || b.CreditsRemaining == nil {
			return fmt.Errorf("%w: bike %d occupied without rider or credits", ErrInvalidState, b.ID)
		}
	case StatusAvailable, StatusBlocked:
		if b.OccupiedBy != nil || b.CreditsRemaining != nil {
			return fmt.Errorf("%w: bike %d is %s but has a rider", ErrInvalidState, b.ID, b.Status)
		}
	default:
		return fmt.Errorf("%w: bike %d has unknown status %q", ErrInvalidState, b.ID, b.Status)
	}
	return nil
}

// Occupy books an available bike for a rider who had credits before the class.
// One credit is consumed by the booking.
func (b *Bike) Occupy(rider string, credits int, classKey string) error {
	if b.Status != StatusAvailable {
		return ErrNotAvailable
	}
	left := credits - 1
	b.Status = StatusOccupied
	b.OccupiedBy = &rider
	b.CreditsRemaining = &left
	if classKey != "" {
		b.AssignedClass = &classKey
	} else {
		b.AssignedClass = nil
	}
	return nil
}

// Block takes an available bike out of service.
func (b *Bike) Block() error {
	if b.Status != StatusAvailable {
		return ErrNotAvailable
	}
	b.Status = StatusBlocked
	b.clear()
	return nil
}

// Unblock puts a blocked bike back into service.
func (b *Bike) Unblock() error {
	if b.Status != StatusBlocked {
		return ErrNotBlocked
	}
	b.Status = StatusAvailable
	b.clear()
	return nil
}

// Reset frees the bike whatever its state.
func (b *Bike) Reset() {
	b.Status = StatusAvailable
	b.clear()
}

func (b *Bike) clear() {
	b.OccupiedBy = nil
	b.CreditsRemaining = nil
	b.AssignedClass = nil
}

// Rider returns the occupying rider's name, or "".
func (b Bike) Rider() string {
	if b.OccupiedBy == nil {
		return ""
	}
	return *b.OccupiedBy
}
