package view

import (
	"time"

	"github.com/semanticallynull/spinroom/attendance"
	"github.com/semanticallynull/spinroom/bike"
	"github.com/semanticallynull/spinroom/class"
)

// SessionPrice is what one attended session earns, in pesos.
const SessionPrice = 120

type KPIs struct {
	OccupancyPct int `json:"occupancyPct"`
	// InUse is occupied plus blocked bikes, out of Pool.
	InUse       int `json:"inUse"`
	Pool        int `json:"pool"`
	Attended    int `json:"attended"`
	Income      int `json:"income"`
	ActiveUsers int `json:"activeUsers"`
}

// Dashboard computes the headline numbers from the room and every cached
// roster. price is the per-session price; zero means SessionPrice.
func Dashboard(bikes []bike.Bike, rosters map[string][]attendance.Record, pool, price int) KPIs {
	if price <= 0 {
		price = SessionPrice
	}
	st := RoomStats(bikes, pool)
	k := KPIs{OccupancyPct: st.Pct, InUse: st.Occupied + st.Blocked, Pool: pool}
	for _, recs := range rosters {
		for _, r := range recs {
			switch r.Status {
			case attendance.StatusAttended:
				k.Attended++
				k.ActiveUsers++
			case attendance.StatusPending:
				k.ActiveUsers++
			}
		}
	}
	k.Income = k.Attended * price
	return k
}

type ScheduleItem struct {
	Key        string       `json:"key"`
	Name       string       `json:"name"`
	Instructor string       `json:"instructor"`
	Time       string       `json:"time"`
	Status     class.Status `json:"status"`
	Badge      string       `json:"badge"`
	Capacity   int          `json:"capacity"`
}

// Schedule lists the day's classes in the order given, times in loc.
func Schedule(classes []class.Class, loc *time.Location) []ScheduleItem {
	if loc == nil {
		loc = time.Local
	}
	out := make([]ScheduleItem, 0, len(classes))
	for _, c := range classes {
		badge := c.Status.Badge()
		if badge == "" {
			badge = string(c.Status)
		}
		out = append(out, ScheduleItem{
			Key:        c.ID,
			Name:       c.Name,
			Instructor: c.InstructorName,
			Time:       c.ScheduledAt.In(loc).Format("15:04"),
			Status:     c.Status,
			Badge:      badge,
			Capacity:   c.Capacity,
		})
	}
	return out
}

type Overview struct {
	KPIs     KPIs           `json:"kpis"`
	Stats    Stats          `json:"stats"`
	Room     []MiniDot      `json:"room"`
	Schedule []ScheduleItem `json:"schedule"`
}

// Home assembles the dashboard module.
func Home(bikes []bike.Bike, classes []class.Class, rosters map[string][]attendance.Record, pool, price int, loc *time.Location) Overview {
	return Overview{
		KPIs:     Dashboard(bikes, rosters, pool, price),
		Stats:    RoomStats(bikes, pool),
		Room:     MiniRoom(bikes),
		Schedule: Schedule(classes, loc),
	}
}
