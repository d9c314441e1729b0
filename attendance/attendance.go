// Package attendance holds check-in state for a class: the attendance rows
// instructors write and the merged records the check-in list shows.
package attendance

import (
	"cmp"
	"database/sql"
	"errors"
	"slices"
	"time"

	"github.com/semanticallynull/spinroom/reservation"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusAttended Status = "attended"
	StatusNoShow   Status = "noshow"
)

var (
	ErrNotFound      = errors.New("attendance not found")
	ErrInvalidStatus = errors.New("invalid attendance status")
)

// ParseStatus accepts the three check-in states.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusAttended, StatusNoShow:
		return Status(s), nil
	}
	return "", ErrInvalidStatus
}

// Label is the text shown to staff and written to exports.
func (s Status) Label() string {
	switch s {
	case StatusAttended:
		return "Asistió"
	case StatusNoShow:
		return "No-show"
	default:
		return "Pendiente"
	}
}

// Attendance is the check-in override stored for a (class, user) pair.
type Attendance struct {
	ID               string         `db:"id"`
	ClassID          string         `db:"class_id"`
	UserName         string         `db:"user_name"`
	BikeNumber       int            `db:"bike_number"`
	CreditsRemaining int            `db:"credits_remaining"`
	Status           Status         `db:"status"`
	UpdatedAt        time.Time      `db:"updated_at"`
	UpdatedBy        sql.NullString `db:"updated_by"`
}

// Record is one line of the check-in list for a class.
type Record struct {
	// ID is the attendance id once one exists, otherwise the reservation id or
	// a locally generated placeholder.
	ID               string `json:"id"`
	ClassKey         string `json:"classKey"`
	UserName         string `json:"userName"`
	BikeNumber       int    `json:"bikeNumber"`
	CreditsRemaining int    `json:"creditsRemaining"`
	Status           Status `json:"status"`
}

// Merge combines the reservations and attendances of one class into the
// check-in list. Every reservation starts out pending; an attendance for the
// same user replaces the status and id; an attendance without a reservation
// is listed on its own. The result is ordered by bike number.
//
// At most one reservation and one attendance per user is assumed.
func Merge(classKey string, reservations []reservation.Reservation, attendances []Attendance) []Record {
	byUser := make(map[string]*Record, len(reservations)+len(attendances))
	for _, r := range reservations {
		byUser[r.UserName] = &Record{
			ID:               r.ID.String(),
			ClassKey:         classKey,
			UserName:         r.UserName,
			BikeNumber:       r.BikeID,
			CreditsRemaining: r.CreditsRemaining,
			Status:           StatusPending,
		}
	}
	for _, a := range attendances {
		if existing, ok := byUser[a.UserName]; ok {
			existing.Status = a.Status
			existing.ID = a.ID
			continue
		}
		byUser[a.UserName] = &Record{
			ID:               a.ID,
			ClassKey:         classKey,
			UserName:         a.UserName,
			BikeNumber:       a.BikeNumber,
			CreditsRemaining: a.CreditsRemaining,
			Status:           a.Status,
		}
	}

	out := make([]Record, 0, len(byUser))
	for _, r := range byUser {
		out = append(out, *r)
	}
	Sort(out)
	return out
}

// Sort orders records by bike number, then user name.
func Sort(records []Record) {
	slices.SortFunc(records, func(a, b Record) int {
		if c := cmp.Compare(a.BikeNumber, b.BikeNumber); c != 0 {
			return c
		}
		return cmp.Compare(a.UserName, b.UserName)
	})
}

// Outcome reports the side effects of a check-in click.
type Outcome struct {
	// Deducted is set when marking attended consumed a credit.
	Deducted bool
	// NoCredits is set when the rider was marked attended with no credit left.
	NoCredits bool
}

// Toggle applies a check-in click for target. Clicking the state a record is
// already in returns it to pending. Moving into attended consumes a credit
// when one is left.
func (r *Record) Toggle(target Status) Outcome {
	if r.Status == target {
		r.Status = StatusPending
		return Outcome{}
	}
	prev := r.Status
	r.Status = target
	if target != StatusAttended || prev == StatusAttended {
		return Outcome{}
	}
	if r.CreditsRemaining > 0 {
		r.CreditsRemaining--
		return Outcome{Deducted: true}
	}
	return Outcome{NoCredits: true}
}

// Summary counts a check-in list by status.
type Summary struct {
	Attended int `json:"attended"`
	NoShow   int `json:"noshow"`
	Pending  int `json:"pending"`
}

func Summarize(records []Record) Summary {
	var s Summary
	for _, r := range records {
		switch r.Status {
		case StatusAttended:
			s.Attended++
		case StatusNoShow:
			s.NoShow++
		default:
			s.Pending++
		}
	}
	return s
}
