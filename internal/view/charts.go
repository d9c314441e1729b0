package view

import (
	"time"

	"github.com/semanticallynull/spinroom/bike"
	"github.com/semanticallynull/spinroom/class"
)

// maxLabel is how many runes of a class name fit under a bar.
const maxLabel = 12

// DemoRevenue is drawn when no revenue could be read.
var DemoRevenue = []int{1800, 2400, 1200, 2100, 3000, 3600, 4200}

type Donut struct {
	Labels []string `json:"labels"`
	Values []int    `json:"values"`
	Pct    int      `json:"pct"`
}

// RoomDonut splits the pool by bike status. Pct is taken over the bikes
// present, not the configured pool.
func RoomDonut(bikes []bike.Bike) Donut {
	st := RoomStats(bikes, len(bikes))
	return Donut{
		Labels: []string{"Disponibles", "Ocupadas", "Bloqueadas"},
		Values: []int{st.Available, st.Occupied, st.Blocked},
		Pct:    st.Pct,
	}
}

type Bar struct {
	Labels   []string `json:"labels"`
	Capacity []int    `json:"capacity"`
	Attended []int    `json:"attended"`
	Live     bool     `json:"live"`
}

// CapacityBar compares capacity with attendance per class. Without live
// counts the seed reservation numbers stand in for attendance.
func CapacityBar(classes []class.Class, attended map[string]int, live bool) Bar {
	b := Bar{Live: live}
	for _, c := range classes {
		capacity := c.Capacity
		if capacity <= 0 {
			capacity = 20
		}
		n := c.Reservations
		if live {
			n = attended[c.ID]
		}
		b.Labels = append(b.Labels, truncate(c.Name, maxLabel))
		b.Capacity = append(b.Capacity, capacity)
		b.Attended = append(b.Attended, n)
	}
	return b
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

type Line struct {
	Labels []string `json:"labels"`
	Values []int    `json:"values"`
	Live   bool     `json:"live"`
}

var weekdays = [...]string{"dom", "lun", "mar", "mié", "jue", "vie", "sáb"}

// Revenue buckets attended check-ins into the days days ending on now's
// day, earning price each. When live is false the demo pattern is used.
func Revenue(now time.Time, days int, attended []time.Time, price int, live bool) Line {
	if price <= 0 {
		price = SessionPrice
	}
	l := Line{Values: make([]int, days), Live: live}
	today, _ := class.Day(now)
	for i := days - 1; i >= 0; i-- {
		d := today.AddDate(0, 0, -i)
		l.Labels = append(l.Labels, weekdays[d.Weekday()]+" "+d.Format("2"))
	}
	if !live {
		for i := range l.Values {
			l.Values[i] = DemoRevenue[i%len(DemoRevenue)]
		}
		return l
	}
	for _, t := range attended {
		day, _ := class.Day(t.In(now.Location()))
		diff := int(today.Sub(day).Hours()+12) / 24
		if idx := days - 1 - diff; idx >= 0 && idx < days {
			l.Values[idx] += price
		}
	}
	return l
}

type Analytics struct {
	Donut Donut `json:"donut"`
	Bar   Bar   `json:"bar"`
	Line  Line  `json:"line"`
}
