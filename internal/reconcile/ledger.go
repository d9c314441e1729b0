package reconcile

import (
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const maxFailures = 20

// Mutation is a backend write that has been dispatched and not yet returned.
type Mutation struct {
	ID      uint64    `json:"id"`
	Op      string    `json:"op"`
	Key     string    `json:"key"`
	Started time.Time `json:"started"`
}

type Failure struct {
	Mutation
	Finished time.Time `json:"finished"`
	Error    string    `json:"error"`
}

// Ledger tracks pending writes by item key and remembers recent failures.
// Optimistic state is never rolled back; the ledger is what tells callers a
// change may not have reached the backend.
type Ledger struct {
	mu       sync.Mutex
	next     uint64
	pending  map[uint64]Mutation
	failures []Failure
	gauge    prometheus.Gauge
}

func newLedger(gauge prometheus.Gauge) *Ledger {
	return &Ledger{pending: make(map[uint64]Mutation), gauge: gauge}
}

func (l *Ledger) Begin(op, key string, at time.Time) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next++
	l.pending[l.next] = Mutation{ID: l.next, Op: op, Key: key, Started: at}
	l.gauge.Set(float64(len(l.pending)))
	return l.next
}

// Done clears a pending write, recording it as failed when err is set.
func (l *Ledger) Done(id uint64, err error, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.pending[id]
	if !ok {
		return
	}
	delete(l.pending, id)
	l.gauge.Set(float64(len(l.pending)))
	if err == nil {
		return
	}
	l.failures = append([]Failure{{Mutation: m, Finished: at, Error: err.Error()}}, l.failures...)
	if len(l.failures) > maxFailures {
		l.failures = l.failures[:maxFailures]
	}
}

// Busy reports whether a write for key is pending.
func (l *Ledger) Busy(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.pending {
		if m.Key == key {
			return true
		}
	}
	return false
}

// BusyPrefix reports whether a write for any key starting with prefix is
// pending.
func (l *Ledger) BusyPrefix(prefix string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.pending {
		if strings.HasPrefix(m.Key, prefix) {
			return true
		}
	}
	return false
}

// Pending lists pending writes in dispatch order.
func (l *Ledger) Pending() []Mutation {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Mutation, 0, len(l.pending))
	for _, id := range slices.Sorted(maps.Keys(l.pending)) {
		out = append(out, l.pending[id])
	}
	return out
}

// Failures lists recent failed writes, newest first.
func (l *Ledger) Failures() []Failure {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.failures)
}
