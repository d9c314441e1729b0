// Package seed is the static fallback data set used when the backend is
// unreachable.
package seed

import (
	_ "embed"
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/semanticallynull/spinroom/attendance"
	"github.com/semanticallynull/spinroom/bike"
	"github.com/semanticallynull/spinroom/class"
)

//go:embed seed.yaml
var embedded []byte

type seedBike struct {
	ID      int         `yaml:"id"`
	Status  bike.Status `yaml:"status"`
	Rider   string      `yaml:"rider"`
	Credits int         `yaml:"credits"`
	Class   string      `yaml:"class"`
}

type seedClass struct {
	Key          string       `yaml:"key"`
	Name         string       `yaml:"name"`
	Instructor   string       `yaml:"instructor"`
	Capacity     int          `yaml:"capacity"`
	Reservations int          `yaml:"reservations"`
	Status       class.Status `yaml:"status"`
}

type seedAttendee struct {
	Name    string            `yaml:"name"`
	Bike    int               `yaml:"bike"`
	Credits int               `yaml:"credits"`
	Status  attendance.Status `yaml:"status"`
}

// Store serves copies of the seed data; callers may mutate what they get.
type Store struct {
	Pool      int                       `yaml:"pool"`
	BikeState []seedBike                `yaml:"bikes"`
	Schedule  []seedClass               `yaml:"schedule"`
	Attendees map[string][]seedAttendee `yaml:"attendees"`
}

// Load decodes the embedded seed file.
func Load() (*Store, error) {
	return Parse(embedded)
}

// Parse decodes a seed document and checks every seeded bike.
func Parse(data []byte) (*Store, error) {
	var s Store
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	for _, b := range s.Bikes(s.Pool) {
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("seed: %w", err)
		}
	}
	return &s, nil
}

// Bikes returns bikes 1..pool with the seeded state applied.
func (s *Store) Bikes(pool int) []bike.Bike {
	out := make([]bike.Bike, pool)
	for i := range out {
		out[i] = bike.Available(i + 1)
	}
	for _, sb := range s.BikeState {
		if sb.ID < 1 || sb.ID > pool {
			continue
		}
		b := bike.Bike{ID: sb.ID, Status: sb.Status}
		if sb.Status == bike.StatusOccupied {
			rider, credits := sb.Rider, sb.Credits
			b.OccupiedBy = &rider
			b.CreditsRemaining = &credits
			if sb.Class != "" {
				key := sb.Class
				b.AssignedClass = &key
			}
		}
		out[sb.ID-1] = b
	}
	return out
}

// Classes returns the seed schedule placed on the given day. Keys are HHMM.
func (s *Store) Classes(day time.Time) []class.Class {
	start, _ := class.Day(day)
	out := make([]class.Class, 0, len(s.Schedule))
	for _, c := range s.Schedule {
		out = append(out, class.Class{
			ID:             c.Key,
			Name:           c.Name,
			InstructorName: c.Instructor,
			ScheduledAt:    start.Add(slotOffset(c.Key)),
			Capacity:       c.Capacity,
			Status:         c.Status,
			Reservations:   c.Reservations,
		})
	}
	return out
}

// Roster returns the seeded check-in list for a local class key.
func (s *Store) Roster(key string) []attendance.Record {
	seeded := s.Attendees[key]
	out := make([]attendance.Record, 0, len(seeded))
	for i, a := range seeded {
		st := a.Status
		if st == "" {
			st = attendance.StatusPending
		}
		out = append(out, attendance.Record{
			ID:               fmt.Sprintf("seed-%s-%d", key, i+1),
			ClassKey:         key,
			UserName:         a.Name,
			BikeNumber:       a.Bike,
			CreditsRemaining: a.Credits,
			Status:           st,
		})
	}
	attendance.Sort(out)
	return out
}

func slotOffset(key string) time.Duration {
	if len(key) != 4 {
		return 0
	}
	h, err1 := strconv.Atoi(key[:2])
	m, err2 := strconv.Atoi(key[2:])
	if err1 != nil || err2 != nil {
		return 0
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute
}
