package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/semanticallynull/spinroom/class"
	"github.com/semanticallynull/spinroom/internal/gateway"
)

// AttendedTimes returns when riders were checked in over the days days
// ending today. live is false when the backend could not be read.
func (r *Reconciler) AttendedTimes(ctx context.Context, now time.Time, days int) (times []time.Time, live bool, err error) {
	start, _ := class.Day(now.AddDate(0, 0, -(days - 1)))
	times, err = r.gw.AttendedSince(ctx, start)
	switch {
	case errors.Is(err, gateway.ErrAuth):
		return nil, false, err
	case err != nil:
		r.logger.WarnContext(ctx, "loading revenue failed", slog.Any("error", err))
		return nil, false, nil
	}
	return times, true, nil
}

// Turnout counts attended riders for each cached backend class. live is
// false when there are no backend classes or they could not be read.
func (r *Reconciler) Turnout(ctx context.Context) (counts map[string]int, live bool, err error) {
	var ids []string
	for _, c := range r.cache.Classes() {
		if !class.IsLocalKey(c.ID) {
			ids = append(ids, c.ID)
		}
	}
	if len(ids) == 0 {
		return nil, false, nil
	}

	counts, err = r.gw.CountAttended(ctx, ids)
	switch {
	case errors.Is(err, gateway.ErrAuth):
		return nil, false, err
	case err != nil:
		r.logger.WarnContext(ctx, "loading turnout failed", slog.Any("error", err))
		return nil, false, nil
	}
	return counts, true, nil
}
