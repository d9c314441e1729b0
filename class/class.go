// Package class describes the scheduled spin classes. Classes are read-only
// for the room dashboard.
package class

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusActive    Status = "active"
	StatusDone      Status = "done"
	StatusCancelled Status = "cancelled"
)

// Badge is the short label shown next to a class in the schedule.
func (s Status) Badge() string {
	return map[Status]string{
		StatusActive:    "En Vivo",
		StatusDone:      "Terminada",
		StatusUpcoming:  "Próxima",
		StatusCancelled: "Cancel.",
	}[s]
}

type Class struct {
	// ID is a backend uuid, or a local time-slot key such as "1800" for classes
	// that only exist in the seed schedule.
	ID             string    `db:"id"`
	Name           string    `db:"name"`
	InstructorName string    `db:"instructor_name"`
	ScheduledAt    time.Time `db:"scheduled_at"`
	Capacity       int       `db:"capacity"`
	Status         Status    `db:"status"`

	// Reservations is only known for seed classes.
	Reservations int `db:"-"`
}

// IsLocalKey reports whether key names a seed-only class rather than a
// backend row.
func IsLocalKey(key string) bool {
	_, err := uuid.Parse(key)
	return err != nil
}

// Active picks the class currently running, or the first one of the day.
func Active(classes []Class) (Class, bool) {
	for _, c := range classes {
		if c.Status == StatusActive {
			return c, true
		}
	}
	if len(classes) > 0 {
		return classes[0], true
	}
	return Class{}, false
}

// Day returns the bounds of the local calendar day containing t.
func Day(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	end := time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
	return start, end
}
