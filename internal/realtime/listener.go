package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5"
)

// Channel is the notification channel the room_changes trigger publishes on.
const Channel = "room_changes"

type Handler func(ChangeEvent)

// Listener fans committed changes out to per-entity handlers. Handlers of one
// entity see its changes in commit order; there is no ordering across
// entities.
type Listener struct {
	url    string
	logger *slog.Logger

	mu       sync.Mutex
	next     uint64
	handlers map[Entity]map[uint64]Handler

	readyOnce sync.Once
	ready     chan struct{}
}

func NewListener(databaseURL string, logger *slog.Logger) *Listener {
	return &Listener{
		url:      databaseURL,
		logger:   logger,
		handlers: make(map[Entity]map[uint64]Handler),
		ready:    make(chan struct{}),
	}
}

// Ready is closed once the first LISTEN has succeeded.
func (l *Listener) Ready() <-chan struct{} {
	return l.ready
}

// Subscription is the handle returned by Subscribe. Cancel may be called
// more than once.
type Subscription struct {
	once   sync.Once
	cancel func()
}

func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}

func (l *Listener) Subscribe(e Entity, h Handler) *Subscription {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next++
	id := l.next
	if l.handlers[e] == nil {
		l.handlers[e] = make(map[uint64]Handler)
	}
	l.handlers[e][id] = h
	return &Subscription{cancel: func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.handlers[e], id)
	}}
}

// Dispatch hands an event to the current subscribers of its entity.
func (l *Listener) Dispatch(ev ChangeEvent) {
	l.mu.Lock()
	hs := make([]Handler, 0, len(l.handlers[ev.Entity]))
	for _, h := range l.handlers[ev.Entity] {
		hs = append(hs, h)
	}
	l.mu.Unlock()

	for _, h := range hs {
		h(ev)
	}
}

// Run listens on Channel until ctx is done. A lost connection ends Run with
// an error; reconnecting is left to the caller.
func (l *Listener) Run(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.url)
	if err != nil {
		return fmt.Errorf("realtime connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{Channel}.Sanitize()); err != nil {
		return fmt.Errorf("realtime listen: %w", err)
	}
	l.logger.InfoContext(ctx, "realtime listening", slog.String("channel", Channel))
	l.readyOnce.Do(func() { close(l.ready) })

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("realtime wait: %w", err)
		}
		ev, err := Decode([]byte(n.Payload))
		if err != nil {
			l.logger.WarnContext(ctx, "dropping change event", slog.Any("error", err))
			continue
		}
		l.Dispatch(ev)
	}
}
