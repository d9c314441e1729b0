package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/semanticallynull/spinroom/attendance"
	"github.com/semanticallynull/spinroom/bike"
	"github.com/semanticallynull/spinroom/class"
	"github.com/semanticallynull/spinroom/internal/activity"
	"github.com/semanticallynull/spinroom/internal/gateway"
	"github.com/semanticallynull/spinroom/internal/shell"
	"github.com/semanticallynull/spinroom/reservation"
)

var roomSlices = []shell.Slice{shell.SliceBikes, shell.SliceStats, shell.SliceKPIs}

// LoadRoom replaces the cached bikes with the backend's. Bikes with a write
// still in flight keep their cached state. When the backend cannot be read or
// has no bikes the cached room is kept, and the seed room is used only if
// nothing is cached yet. An expired session is returned to the caller.
func (r *Reconciler) LoadRoom(ctx context.Context) ([]bike.Bike, error) {
	rows, err := r.gw.Bikes(ctx)
	if errors.Is(err, gateway.ErrAuth) {
		return nil, err
	}
	if err != nil {
		r.logger.WarnContext(ctx, "loading bikes failed, keeping cached room", slog.Any("error", err))
	}

	r.mu.Lock()
	switch {
	case err == nil && len(rows) > 0:
		bikes := r.overlay(rows)
		for i, b := range bikes {
			if r.ledger.Busy(bikeKey(b.ID)) || r.ledger.Busy(roomKey) {
				if cached, ok := r.cache.Bike(b.ID); ok {
					bikes[i] = cached
				}
			}
		}
		r.cache.ReplaceBikes(bikes)
	case len(r.cache.Bikes()) == 0:
		r.cache.ReplaceBikes(r.seed.Bikes(r.pool))
	}
	r.mu.Unlock()
	r.notifier.Changed(roomSlices...)
	return r.cache.Bikes(), nil
}

// overlay places backend rows onto a fully available pool. Rows outside the
// pool are ignored.
func (r *Reconciler) overlay(rows []bike.Bike) []bike.Bike {
	out := make([]bike.Bike, r.pool)
	for i := range out {
		out[i] = bike.Available(i + 1)
	}
	for _, b := range rows {
		if b.ID >= 1 && b.ID <= r.pool {
			out[b.ID-1] = b
		}
	}
	return out
}

type Booking struct {
	BikeID int
	Name   string
	// Credits is the rider's balance before the booking.
	Credits  int
	ClassKey string
}

// BookBike occupies an available bike for a rider, consuming one credit. The
// rider is added to the class roster as pending when that roster is cached.
func (r *Reconciler) BookBike(ctx context.Context, bk Booking) (bike.Bike, error) {
	bk.Name = strings.TrimSpace(bk.Name)
	if bk.Name == "" {
		return bike.Bike{}, ErrNameRequired
	}
	if bk.Credits < 1 {
		return bike.Bike{}, ErrNoCredits
	}

	b, ws, err := r.book(ctx, bk)
	if err != nil {
		return bike.Bike{}, err
	}
	r.dispatch(ctx, ws)
	r.metrics.Mutations.WithLabelValues("book").Inc()
	r.record(ctx, activity.ToneNeon, "Bike #%d reservada por %s", b.ID, bk.Name)
	return b, nil
}

func (r *Reconciler) book(ctx context.Context, bk Booking) (bike.Bike, []write, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ledger.Busy(bikeKey(bk.BikeID)) || r.ledger.Busy(roomKey) {
		return bike.Bike{}, nil, ErrBusy
	}
	b, ok := r.cache.Bike(bk.BikeID)
	if !ok {
		return bike.Bike{}, nil, bike.ErrNotFound
	}
	if err := b.Occupy(bk.Name, bk.Credits, bk.ClassKey); err != nil {
		return bike.Bike{}, nil, invalid(err)
	}
	b.UpdatedAt = r.now()
	b.UpdatedBy = gateway.Actor(ctx)
	r.cache.UpsertBike(b)
	left := *b.CreditsRemaining

	changed := append([]shell.Slice(nil), roomSlices...)
	if bk.ClassKey != "" && r.cache.HasClass(bk.ClassKey) && !r.listed(bk.ClassKey, bk.Name) {
		roster := append(r.cache.Attendees(bk.ClassKey), attendance.Record{
			ID:               uuid.NewString(),
			ClassKey:         bk.ClassKey,
			UserName:         bk.Name,
			BikeNumber:       b.ID,
			CreditsRemaining: left,
			Status:           attendance.StatusPending,
		})
		attendance.Sort(roster)
		r.cache.ReplaceAttendees(bk.ClassKey, roster)
		changed = append(changed, shell.SliceCheckIn)
	}

	// Local schedule keys are not class rows; the reservation is stored
	// without a class.
	resClass := bk.ClassKey
	if class.IsLocalKey(resClass) {
		resClass = ""
	}
	res := reservation.New(b.ID, resClass, bk.Name, left)

	ws := r.stage(r.saveBike(b), write{
		op:  "CreateReservation",
		key: bikeKey(b.ID),
		run: func(ctx context.Context) error {
			_, err := r.gw.CreateReservation(ctx, res)
			return err
		},
	})
	r.notifier.Changed(changed...)
	return b, ws, nil
}

func (r *Reconciler) listed(classKey, name string) bool {
	for _, rec := range r.cache.Attendees(classKey) {
		if rec.UserName == name {
			return true
		}
	}
	return false
}

func (r *Reconciler) saveBike(b bike.Bike) write {
	return write{
		op:  "SaveBike",
		key: bikeKey(b.ID),
		run: func(ctx context.Context) error {
			_, err := r.gw.SaveBike(ctx, b)
			return err
		},
	}
}

// BlockBike takes an available bike out of service.
func (r *Reconciler) BlockBike(ctx context.Context, id int) (bike.Bike, error) {
	b, err := r.transition(ctx, id, (*bike.Bike).Block)
	if err != nil {
		return bike.Bike{}, err
	}
	r.metrics.Mutations.WithLabelValues("block").Inc()
	r.record(ctx, activity.ToneDanger, "Bike #%d bloqueada por mantenimiento", id)
	return b, nil
}

// UnblockBike returns a blocked bike to service.
func (r *Reconciler) UnblockBike(ctx context.Context, id int) (bike.Bike, error) {
	b, err := r.transition(ctx, id, (*bike.Bike).Unblock)
	if err != nil {
		return bike.Bike{}, err
	}
	r.metrics.Mutations.WithLabelValues("unblock").Inc()
	r.record(ctx, activity.ToneSuccess, "Bike #%d disponible de nuevo", id)
	return b, nil
}

func (r *Reconciler) transition(ctx context.Context, id int, apply func(*bike.Bike) error) (bike.Bike, error) {
	b, ws, err := func() (bike.Bike, []write, error) {
		r.mu.Lock()
		defer r.mu.Unlock()

		if r.ledger.Busy(bikeKey(id)) || r.ledger.Busy(roomKey) {
			return bike.Bike{}, nil, ErrBusy
		}
		b, ok := r.cache.Bike(id)
		if !ok {
			return bike.Bike{}, nil, bike.ErrNotFound
		}
		if err := apply(&b); err != nil {
			return bike.Bike{}, nil, invalid(err)
		}
		b.UpdatedAt = r.now()
		b.UpdatedBy = gateway.Actor(ctx)
		r.cache.UpsertBike(b)
		r.notifier.Changed(roomSlices...)
		return b, r.stage(r.saveBike(b)), nil
	}()
	if err != nil {
		return bike.Bike{}, err
	}
	r.dispatch(ctx, ws)
	return b, nil
}

// ResetRoom frees every bike.
func (r *Reconciler) ResetRoom(ctx context.Context) ([]bike.Bike, error) {
	ws, err := func() ([]write, error) {
		r.mu.Lock()
		defer r.mu.Unlock()

		if r.ledger.Busy(roomKey) || r.ledger.BusyPrefix("bike:") {
			return nil, ErrBusy
		}
		bikes := r.cache.Bikes()
		actor := gateway.Actor(ctx)
		for i := range bikes {
			bikes[i].Reset()
			bikes[i].UpdatedAt = r.now()
			bikes[i].UpdatedBy = actor
		}
		r.cache.ReplaceBikes(bikes)
		r.notifier.Changed(roomSlices...)
		return r.stage(write{op: "ResetBikes", key: roomKey, run: r.gw.ResetBikes}), nil
	}()
	if err != nil {
		return nil, err
	}
	r.dispatch(ctx, ws)
	r.metrics.Mutations.WithLabelValues("reset").Inc()
	r.record(ctx, activity.ToneInfo, "Sala reseteada para nueva clase")
	return r.cache.Bikes(), nil
}
