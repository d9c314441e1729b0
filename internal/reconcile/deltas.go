package reconcile

import (
	"context"
	"log/slog"

	"github.com/semanticallynull/spinroom/internal/realtime"
)

// Apply reduces one realtime change into the cache. Bike rows overwrite the
// cached bike outright: a pushed row always wins over local optimistic state.
// Attendance and reservation changes reload the affected class when its
// roster is cached, and profile changes reload the profiles.
func (r *Reconciler) Apply(ev realtime.ChangeEvent) {
	r.metrics.Deltas.WithLabelValues(string(ev.Entity)).Inc()

	switch ev.Entity {
	case realtime.Bikes:
		r.applyBike(ev)
	case realtime.Attendances:
		if ev.Attendance != nil {
			r.reloadClass(ev.Attendance.ClassID)
		}
	case realtime.Reservations:
		if ev.Reservation != nil && ev.Reservation.ClassID.Valid {
			r.reloadClass(ev.Reservation.ClassID.String)
		}
	case realtime.Profiles:
		if _, err := r.LoadProfiles(r.session()); err != nil {
			r.logger.Warn("reloading profiles after change failed", slog.Any("error", err))
		}
	}
}

func (r *Reconciler) applyBike(ev realtime.ChangeEvent) {
	if ev.Bike == nil || ev.Op == realtime.Delete {
		return
	}
	b := *ev.Bike
	if b.ID < 1 || b.ID > r.pool {
		return
	}

	r.mu.Lock()
	r.cache.UpsertBike(b)
	r.mu.Unlock()
	r.notifier.Changed(roomSlices...)
}

func (r *Reconciler) reloadClass(classID string) {
	if classID == "" || !r.cache.HasClass(classID) {
		return
	}
	if _, err := r.LoadClass(r.session(), classID); err != nil {
		r.logger.Warn("reloading class after change failed",
			slog.String("class", classID), slog.Any("error", err))
	}
}

func (r *Reconciler) session() context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ctx
}
