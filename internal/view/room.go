// Package view turns cached state into the data each dashboard widget draws.
// Every function here is pure: same input, same output, no I/O.
package view

import (
	"math"
	"strconv"
	"strings"

	"github.com/semanticallynull/spinroom/bike"
)

// Filter selects which bikes the room map highlights.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterAvailable Filter = "available"
	FilterOccupied  Filter = "occupied"
	FilterBlocked   Filter = "blocked"
)

func ParseFilter(s string) Filter {
	switch f := Filter(s); f {
	case FilterAvailable, FilterOccupied, FilterBlocked:
		return f
	}
	return FilterAll
}

type BikeCard struct {
	ID     int         `json:"id"`
	Status bike.Status `json:"status"`
	// FirstName of the rider, shown on occupied cards.
	FirstName string `json:"firstName,omitempty"`
	Credits   *int   `json:"credits,omitempty"`
	Class     string `json:"class,omitempty"`
	Label     string `json:"label"`
	Dimmed    bool   `json:"dimmed"`
}

type Room struct {
	Filter Filter     `json:"filter"`
	Cards  []BikeCard `json:"cards"`
	Stats  Stats      `json:"stats"`
}

// RoomMap lays out every bike. Bikes not matching the filter stay in place
// but are dimmed.
func RoomMap(bikes []bike.Bike, f Filter, pool int) Room {
	cards := make([]BikeCard, 0, len(bikes))
	for _, b := range bikes {
		c := BikeCard{
			ID:      b.ID,
			Status:  b.Status,
			Credits: b.CreditsRemaining,
			Label:   cardLabel(b),
			Dimmed:  f != FilterAll && Filter(b.Status) != f,
		}
		if b.Status == bike.StatusOccupied {
			c.FirstName = firstName(b.Rider())
		}
		if b.AssignedClass != nil {
			c.Class = *b.AssignedClass
		}
		cards = append(cards, c)
	}
	return Room{Filter: f, Cards: cards, Stats: RoomStats(bikes, pool)}
}

func cardLabel(b bike.Bike) string {
	switch b.Status {
	case bike.StatusOccupied:
		return "Bike " + strconv.Itoa(b.ID) + " — Ocupada: " + b.Rider()
	case bike.StatusBlocked:
		return "Bike " + strconv.Itoa(b.ID) + " — Bloqueada"
	}
	return "Bike " + strconv.Itoa(b.ID) + " — Disponible"
}

func firstName(name string) string {
	if fields := strings.Fields(name); len(fields) > 0 {
		return fields[0]
	}
	return ""
}

type MiniDot struct {
	ID     int         `json:"id"`
	Status bike.Status `json:"status"`
}

// MiniRoom is the dashboard's small room overview.
func MiniRoom(bikes []bike.Bike) []MiniDot {
	out := make([]MiniDot, 0, len(bikes))
	for _, b := range bikes {
		out = append(out, MiniDot{ID: b.ID, Status: b.Status})
	}
	return out
}

type Stats struct {
	Available int `json:"available"`
	Occupied  int `json:"occupied"`
	Blocked   int `json:"blocked"`
	// Pct is the share of the pool that is occupied or blocked.
	Pct int `json:"pct"`
}

func RoomStats(bikes []bike.Bike, pool int) Stats {
	var s Stats
	for _, b := range bikes {
		switch b.Status {
		case bike.StatusAvailable:
			s.Available++
		case bike.StatusOccupied:
			s.Occupied++
		case bike.StatusBlocked:
			s.Blocked++
		}
	}
	s.Pct = percent(s.Occupied+s.Blocked, pool)
	return s
}

func percent(n, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(n) / float64(total) * 100))
}
