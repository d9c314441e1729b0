// Package shell is the glue around the room's modules: which ones have been
// opened this session and who is told when their data changes.
package shell

import (
	"sync"

	"github.com/semanticallynull/spinroom/internal/activity"
)

// Slice names a part of the cached state that projections read.
type Slice string

const (
	SliceBikes    Slice = "bikes"
	SliceStats    Slice = "stats"
	SliceKPIs     Slice = "kpis"
	SliceClasses  Slice = "classes"
	SliceCheckIn  Slice = "checkin"
	SliceProfiles Slice = "profiles"
	SliceActivity Slice = "activity"
	SliceLedger   Slice = "ledger"
)

// Notice is a message meant for whoever is looking at the dashboard.
type Notice struct {
	Title   string        `json:"title"`
	Message string        `json:"message"`
	Tone    activity.Tone `json:"tone"`
}

// Signal is one fan-out message: either changed slices or a notice.
type Signal struct {
	Slices []Slice `json:"slices,omitempty"`
	Notice *Notice `json:"notice,omitempty"`
}

const subscriberBuffer = 32

// Hub fans signals out to subscribers. A subscriber that falls behind loses
// signals rather than blocking the sender.
type Hub struct {
	mu   sync.Mutex
	next uint64
	subs map[uint64]chan Signal
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]chan Signal)}
}

// Subscribe returns a channel of signals and a cancel function that closes
// it. Cancel may be called more than once.
func (h *Hub) Subscribe() (<-chan Signal, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	id := h.next
	ch := make(chan Signal, subscriberBuffer)
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
}

func (h *Hub) Changed(slices ...Slice) {
	if len(slices) == 0 {
		return
	}
	h.publish(Signal{Slices: slices})
}

func (h *Hub) Notify(n Notice) {
	h.publish(Signal{Notice: &n})
}

// Subscribers reports how many subscriptions are open.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) publish(s Signal) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- s:
		default:
		}
	}
}
