package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/semanticallynull/spinroom/internal/activity"
	"github.com/semanticallynull/spinroom/internal/gateway"
	"github.com/semanticallynull/spinroom/internal/shell"
)

// write is one backend call staged by an operation.
type write struct {
	id  uint64
	op  string
	key string
	run func(ctx context.Context) error
}

func bikeKey(id int) string                 { return fmt.Sprintf("bike:%d", id) }
func attendeeKey(class, user string) string { return "attendance:" + class + ":" + user }
func profileKey(id string) string           { return "profile:" + id }

const roomKey = "room"

// stage enters writes into the ledger. It is called with r.mu held so a
// second mutation of the same key sees it as busy.
func (r *Reconciler) stage(ws ...write) []write {
	for i := range ws {
		ws[i].id = r.ledger.Begin(ws[i].op, ws[i].key, r.now())
	}
	return ws
}

// dispatch hands staged writes to the dispatcher. The writes outlive the
// request that caused them.
func (r *Reconciler) dispatch(ctx context.Context, ws []write) {
	ctx = context.WithoutCancel(ctx)
	for _, w := range ws {
		r.dispatcher.Go(func() { r.execute(ctx, w) })
	}
}

func (r *Reconciler) execute(ctx context.Context, w write) {
	err := w.run(ctx)
	r.ledger.Done(w.id, err, r.now())
	defer r.notifier.Changed(shell.SliceLedger)

	if err == nil {
		r.metrics.Writes.WithLabelValues(w.op, "ok").Inc()
		return
	}
	r.metrics.Writes.WithLabelValues(w.op, "error").Inc()
	r.logger.WarnContext(ctx, "backend write failed",
		slog.String("op", w.op),
		slog.String("key", w.key),
		slog.Any("error", err),
	)
	r.notifier.Notify(failureNotice(err))
}

// record appends an activity entry. A failing activity log never fails the
// operation.
func (r *Reconciler) record(ctx context.Context, tone activity.Tone, format string, args ...any) {
	e := activity.Entry{At: r.now(), Tone: tone, Text: fmt.Sprintf(format, args...)}
	if actor := gateway.Actor(ctx); actor != nil {
		e.Actor = *actor
	}
	if err := r.log.Append(ctx, e); err != nil {
		r.logger.WarnContext(ctx, "activity log append failed", slog.Any("error", err))
		return
	}
	r.notifier.Changed(shell.SliceActivity)
}
