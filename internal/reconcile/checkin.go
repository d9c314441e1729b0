package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/semanticallynull/spinroom/attendance"
	"github.com/semanticallynull/spinroom/class"
	"github.com/semanticallynull/spinroom/internal/activity"
	"github.com/semanticallynull/spinroom/internal/gateway"
	"github.com/semanticallynull/spinroom/internal/shell"
)

// LoadClasses caches the schedule of the day containing day. The seed
// schedule stands in when the backend has none or cannot be read.
func (r *Reconciler) LoadClasses(ctx context.Context, day time.Time) ([]class.Class, error) {
	from, to := class.Day(day)
	classes, err := r.gw.ClassesBetween(ctx, from, to)
	switch {
	case errors.Is(err, gateway.ErrAuth):
		return nil, err
	case err != nil:
		r.logger.WarnContext(ctx, "loading classes failed, using seed schedule", slog.Any("error", err))
		classes = r.seed.Classes(day)
	case len(classes) == 0:
		classes = r.seed.Classes(day)
	}

	r.mu.Lock()
	r.cache.ReplaceClasses(classes)
	r.mu.Unlock()
	r.notifier.Changed(shell.SliceClasses)
	return r.cache.Classes(), nil
}

// Roster returns the cached check-in list of a class. The list is loaded the
// first time the class is opened; after that it changes only through
// check-ins, bookings and realtime deltas.
func (r *Reconciler) Roster(ctx context.Context, key string) ([]attendance.Record, error) {
	if r.cache.HasClass(key) {
		return r.cache.Attendees(key), nil
	}
	return r.LoadClass(ctx, key)
}

// LoadClass reads the check-in list of a class into the cache. Backend
// classes merge their reservations and attendances, keeping the cached state
// of riders with a write still in flight. Local schedule keys, and backend
// classes that cannot be read or have nothing recorded, keep the cached list
// and fall back to the seed roster only when nothing is cached.
func (r *Reconciler) LoadClass(ctx context.Context, key string) ([]attendance.Record, error) {
	recs, err := r.read(ctx, key)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	switch {
	case recs != nil:
		r.cache.ReplaceAttendees(key, r.keepPending(key, recs))
	case !r.cache.HasClass(key):
		r.cache.ReplaceAttendees(key, r.seed.Roster(key))
	}
	r.mu.Unlock()
	r.notifier.Changed(shell.SliceCheckIn, shell.SliceKPIs)
	return r.cache.Attendees(key), nil
}

// read returns the backend's merged roster, or nil when there is none to use.
func (r *Reconciler) read(ctx context.Context, key string) ([]attendance.Record, error) {
	if class.IsLocalKey(key) {
		return nil, nil
	}

	reservations, err := r.gw.Reservations(ctx, key)
	if err == nil {
		var attendances []attendance.Attendance
		attendances, err = r.gw.Attendances(ctx, key)
		if err == nil {
			if merged := attendance.Merge(key, reservations, attendances); len(merged) > 0 {
				return merged, nil
			}
		}
	}
	if errors.Is(err, gateway.ErrAuth) {
		return nil, err
	}
	if err != nil {
		r.logger.WarnContext(ctx, "loading attendees failed, keeping cached roster",
			slog.String("class", key), slog.Any("error", err))
	}
	return nil, nil
}

// keepPending lays cached riders whose check-in or booking is still being
// saved over a freshly read roster. Called with r.mu held.
func (r *Reconciler) keepPending(key string, recs []attendance.Record) []attendance.Record {
	for _, cached := range r.cache.Attendees(key) {
		inFlight := r.ledger.Busy(attendeeKey(key, cached.UserName))
		i := slices.IndexFunc(recs, func(rec attendance.Record) bool { return rec.UserName == cached.UserName })
		if i < 0 && (inFlight || r.ledger.Busy(bikeKey(cached.BikeNumber))) {
			recs = append(recs, cached)
			continue
		}
		if i >= 0 && inFlight {
			recs[i] = cached
		}
	}
	attendance.Sort(recs)
	return recs
}

// SetAttendance applies a check-in click for a rider. Clicking the rider's
// current status returns them to pending. Marking attended consumes a credit
// when one is left, otherwise a notice is raised and the rider is still
// marked.
func (r *Reconciler) SetAttendance(ctx context.Context, classKey, userName string, target attendance.Status) (attendance.Record, error) {
	if target != attendance.StatusAttended && target != attendance.StatusNoShow {
		return attendance.Record{}, ErrInvalidTarget
	}

	rec, out, ws, err := func() (attendance.Record, attendance.Outcome, []write, error) {
		r.mu.Lock()
		defer r.mu.Unlock()

		if r.ledger.Busy(attendeeKey(classKey, userName)) {
			return attendance.Record{}, attendance.Outcome{}, nil, ErrBusy
		}
		rec, ok := r.attendee(classKey, userName)
		if !ok {
			return attendance.Record{}, attendance.Outcome{}, nil, attendance.ErrNotFound
		}
		out := rec.Toggle(target)
		r.cache.UpsertAttendee(classKey, rec)
		r.notifier.Changed(shell.SliceCheckIn, shell.SliceKPIs)
		return rec, out, r.stage(r.saveAttendance(classKey, rec)...), nil
	}()
	if err != nil {
		return attendance.Record{}, err
	}
	r.dispatch(ctx, ws)
	r.metrics.Mutations.WithLabelValues("checkin").Inc()

	if out.Deducted {
		r.record(ctx, activity.ToneInfo, "%s — 1 crédito descontado. Quedan: %d", rec.UserName, rec.CreditsRemaining)
	}
	if out.NoCredits {
		r.notifier.Notify(shell.Notice{
			Title:   "Sin créditos",
			Message: rec.UserName + " no tiene créditos disponibles.",
			Tone:    activity.ToneDanger,
		})
	}
	switch rec.Status {
	case attendance.StatusAttended:
		r.record(ctx, activity.ToneSuccess, "%s — Asistencia confirmada · Bike #%d", rec.UserName, rec.BikeNumber)
	case attendance.StatusNoShow:
		r.record(ctx, activity.ToneDanger, "%s — No-show · Bike #%d liberada", rec.UserName, rec.BikeNumber)
	}
	return rec, nil
}

// BulkMark moves every pending rider of a class to target. Riders marked
// attended consume a credit when they have one. It returns the updated list.
func (r *Reconciler) BulkMark(ctx context.Context, classKey string, target attendance.Status) ([]attendance.Record, error) {
	if target != attendance.StatusAttended && target != attendance.StatusNoShow {
		return nil, ErrInvalidTarget
	}

	recs, n, ws, err := func() ([]attendance.Record, int, []write, error) {
		r.mu.Lock()
		defer r.mu.Unlock()

		if r.ledger.BusyPrefix(attendeeKey(classKey, "")) {
			return nil, 0, nil, ErrBusy
		}
		recs := r.cache.Attendees(classKey)
		var ws []write
		var n int
		for i := range recs {
			if recs[i].Status != attendance.StatusPending {
				continue
			}
			recs[i].Status = target
			if target == attendance.StatusAttended && recs[i].CreditsRemaining > 0 {
				recs[i].CreditsRemaining--
			}
			ws = append(ws, r.saveAttendance(classKey, recs[i])...)
			n++
		}
		r.cache.ReplaceAttendees(classKey, recs)
		r.notifier.Changed(shell.SliceCheckIn, shell.SliceKPIs)
		return recs, n, r.stage(ws...), nil
	}()
	if err != nil {
		return nil, err
	}
	r.dispatch(ctx, ws)
	r.metrics.Mutations.WithLabelValues("bulk").Inc()

	if n > 0 {
		tone := activity.ToneSuccess
		if target == attendance.StatusNoShow {
			tone = activity.ToneDanger
		}
		r.record(ctx, tone, "Todos marcados: %d como %s", n, target.Label())
	}
	return recs, nil
}

// ExportClass returns the check-in list to export. An empty list raises a
// notice and ErrNoData instead of producing an empty file.
func (r *Reconciler) ExportClass(ctx context.Context, classKey string) ([]attendance.Record, error) {
	recs, err := r.Roster(ctx, classKey)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		r.notifier.Notify(shell.Notice{
			Title:   "Sin datos",
			Message: "No hay asistentes para exportar.",
			Tone:    activity.ToneInfo,
		})
		return nil, ErrNoData
	}
	return recs, nil
}

func (r *Reconciler) attendee(classKey, userName string) (attendance.Record, bool) {
	for _, rec := range r.cache.Attendees(classKey) {
		if rec.UserName == userName {
			return rec, true
		}
	}
	return attendance.Record{}, false
}

// saveAttendance stages the upsert of a rider's check-in. Local schedule
// classes have no backend row to write to. On success the backend id
// replaces a placeholder id in the cached roster.
func (r *Reconciler) saveAttendance(classKey string, rec attendance.Record) []write {
	if class.IsLocalKey(classKey) {
		return nil
	}
	row := attendance.Attendance{
		ClassID:          classKey,
		UserName:         rec.UserName,
		BikeNumber:       rec.BikeNumber,
		CreditsRemaining: rec.CreditsRemaining,
		Status:           rec.Status,
	}
	return []write{{
		op:  "SaveAttendance",
		key: attendeeKey(classKey, rec.UserName),
		run: func(ctx context.Context) error {
			saved, err := r.gw.SaveAttendance(ctx, row)
			if err != nil {
				return err
			}
			if saved.ID != "" && saved.ID != rec.ID {
				r.mu.Lock()
				r.cache.ReplaceAttendeeID(classKey, rec.ID, saved.ID)
				r.mu.Unlock()
				r.notifier.Changed(shell.SliceCheckIn)
			}
			return nil
		},
	}}
}
