// Package realtime delivers committed row changes from the backend. Changes
// arrive as Postgres notifications on a single channel and are decoded into
// typed ChangeEvents before any handler sees them.
package realtime

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/semanticallynull/spinroom/attendance"
	"github.com/semanticallynull/spinroom/bike"
	"github.com/semanticallynull/spinroom/class"
	"github.com/semanticallynull/spinroom/profile"
	"github.com/semanticallynull/spinroom/reservation"
)

type Entity string

const (
	Bikes        Entity = "bikes"
	Attendances  Entity = "attendances"
	Reservations Entity = "reservations"
	Profiles     Entity = "profiles"
	Classes      Entity = "classes"
)

type Op string

const (
	Insert Op = "insert"
	Update Op = "update"
	Delete Op = "delete"
)

var ErrDecode = errors.New("malformed change event")

// ChangeEvent is a tagged union: Entity says which one of the row pointers
// is set.
type ChangeEvent struct {
	Entity Entity
	Op     Op

	Bike        *bike.Bike
	Attendance  *attendance.Attendance
	Reservation *reservation.Reservation
	Profile     *profile.Profile
	Class       *class.Class
}

// wire is the notification body published by the notify_room_change trigger.
type wire struct {
	Table     string          `json:"table"`
	Type      string          `json:"type"`
	Record    json.RawMessage `json:"record"`
	OldRecord json.RawMessage `json:"old_record"`
}

type bikeRow struct {
	ID               int       `json:"id"`
	Status           string    `json:"status"`
	CurrentUserName  *string   `json:"current_user_name"`
	CreditsRemaining *int      `json:"credits_remaining"`
	CurrentClassID   *string   `json:"current_class_id"`
	UpdatedAt        time.Time `json:"updated_at"`
	UpdatedBy        *string   `json:"updated_by"`
}

type attendanceRow struct {
	ID               string    `json:"id"`
	ClassID          string    `json:"class_id"`
	UserName         string    `json:"user_name"`
	BikeNumber       int       `json:"bike_number"`
	CreditsRemaining int       `json:"credits_remaining"`
	Status           string    `json:"status"`
	UpdatedAt        time.Time `json:"updated_at"`
	UpdatedBy        *string   `json:"updated_by"`
}

type reservationRow struct {
	ID               uuid.UUID `json:"id"`
	BikeID           int       `json:"bike_id"`
	ClassID          *string   `json:"class_id"`
	UserName         string    `json:"user_name"`
	CreditsUsed      int       `json:"credits_used"`
	CreditsRemaining int       `json:"credits_remaining"`
	CreatedAt        time.Time `json:"created_at"`
	CreatedBy        *string   `json:"created_by"`
}

type profileRow struct {
	ID               string    `json:"id"`
	FullName         string    `json:"full_name"`
	Phone            *string   `json:"phone"`
	Notes            *string   `json:"notes"`
	CreditsRemaining int       `json:"credits_remaining"`
	IsActive         bool      `json:"is_active"`
	Role             string    `json:"role"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type classRow struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	InstructorName string    `json:"instructor_name"`
	ScheduledAt    time.Time `json:"scheduled_at"`
	Capacity       int       `json:"capacity"`
	Status         string    `json:"status"`
}

// Decode parses a notification payload. Rows are checked against the same
// rules the gateway applies to reads.
func Decode(payload []byte) (ChangeEvent, error) {
	var w wire
	if err := json.Unmarshal(payload, &w); err != nil {
		return ChangeEvent{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	ev := ChangeEvent{Entity: Entity(w.Table), Op: Op(strings.ToLower(w.Type))}
	switch ev.Op {
	case Insert, Update, Delete:
	default:
		return ChangeEvent{}, fmt.Errorf("%w: unknown change type %q", ErrDecode, w.Type)
	}

	raw := w.Record
	if ev.Op == Delete || len(raw) == 0 || string(raw) == "null" {
		raw = w.OldRecord
	}
	if len(raw) == 0 || string(raw) == "null" {
		return ChangeEvent{}, fmt.Errorf("%w: %s event without a row", ErrDecode, w.Table)
	}

	var err error
	switch ev.Entity {
	case Bikes:
		ev.Bike, err = decodeBike(raw)
	case Attendances:
		ev.Attendance, err = decodeAttendance(raw)
	case Reservations:
		ev.Reservation, err = decodeReservation(raw)
	case Profiles:
		ev.Profile, err = decodeProfile(raw)
	case Classes:
		ev.Class, err = decodeClass(raw)
	default:
		return ChangeEvent{}, fmt.Errorf("%w: unknown table %q", ErrDecode, w.Table)
	}
	if err != nil {
		return ChangeEvent{}, err
	}
	return ev, nil
}

func decodeBike(raw []byte) (*bike.Bike, error) {
	var r bikeRow
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("%w: bike: %v", ErrDecode, err)
	}
	b := &bike.Bike{
		ID:               r.ID,
		Status:           bike.Status(r.Status),
		OccupiedBy:       r.CurrentUserName,
		CreditsRemaining: r.CreditsRemaining,
		AssignedClass:    r.CurrentClassID,
		UpdatedAt:        r.UpdatedAt,
		UpdatedBy:        r.UpdatedBy,
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return b, nil
}

func decodeAttendance(raw []byte) (*attendance.Attendance, error) {
	var r attendanceRow
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("%w: attendance: %v", ErrDecode, err)
	}
	st, err := attendance.ParseStatus(r.Status)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return &attendance.Attendance{
		ID:               r.ID,
		ClassID:          r.ClassID,
		UserName:         r.UserName,
		BikeNumber:       r.BikeNumber,
		CreditsRemaining: r.CreditsRemaining,
		Status:           st,
		UpdatedAt:        r.UpdatedAt,
		UpdatedBy:        nullString(r.UpdatedBy),
	}, nil
}

func decodeReservation(raw []byte) (*reservation.Reservation, error) {
	var r reservationRow
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("%w: reservation: %v", ErrDecode, err)
	}
	return &reservation.Reservation{
		ID:               r.ID,
		BikeID:           r.BikeID,
		ClassID:          nullString(r.ClassID),
		UserName:         r.UserName,
		CreditsUsed:      r.CreditsUsed,
		CreditsRemaining: r.CreditsRemaining,
		CreatedAt:        r.CreatedAt,
		CreatedBy:        nullString(r.CreatedBy),
	}, nil
}

func decodeProfile(raw []byte) (*profile.Profile, error) {
	var r profileRow
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("%w: profile: %v", ErrDecode, err)
	}
	role, err := profile.ParseRole(r.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return &profile.Profile{
		ID:               r.ID,
		FullName:         r.FullName,
		Phone:            nullString(r.Phone),
		Notes:            nullString(r.Notes),
		CreditsRemaining: r.CreditsRemaining,
		IsActive:         r.IsActive,
		Role:             role,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}, nil
}

func decodeClass(raw []byte) (*class.Class, error) {
	var r classRow
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("%w: class: %v", ErrDecode, err)
	}
	return &class.Class{
		ID:             r.ID,
		Name:           r.Name,
		InstructorName: r.InstructorName,
		ScheduledAt:    r.ScheduledAt,
		Capacity:       r.Capacity,
		Status:         class.Status(r.Status),
	}, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
