// Package reconcile keeps the cached room consistent across three sources of
// change: optimistic edits made through this service, authoritative reads from
// the backend, and realtime deltas committed by other devices.
//
// Every operation runs its synchronous part under one lock, so operations and
// realtime handlers never interleave mid-mutation. Backend writes run after
// the lock is released, on the Dispatcher, and are not awaited.
package reconcile

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/semanticallynull/spinroom/attendance"
	"github.com/semanticallynull/spinroom/bike"
	"github.com/semanticallynull/spinroom/class"
	"github.com/semanticallynull/spinroom/internal/activity"
	"github.com/semanticallynull/spinroom/internal/auth"
	"github.com/semanticallynull/spinroom/internal/realtime"
	"github.com/semanticallynull/spinroom/internal/seed"
	"github.com/semanticallynull/spinroom/internal/shell"
	"github.com/semanticallynull/spinroom/internal/store"
	"github.com/semanticallynull/spinroom/profile"
	"github.com/semanticallynull/spinroom/reservation"
)

// Gateway is the subset of the backend gateway the reconciler reads and
// writes through.
type Gateway interface {
	Bikes(ctx context.Context) ([]bike.Bike, error)
	SaveBike(ctx context.Context, b bike.Bike) (bike.Bike, error)
	ResetBikes(ctx context.Context) error
	CreateReservation(ctx context.Context, r reservation.Reservation) (reservation.Reservation, error)
	Reservations(ctx context.Context, classID string) ([]reservation.Reservation, error)
	Attendances(ctx context.Context, classID string) ([]attendance.Attendance, error)
	SaveAttendance(ctx context.Context, a attendance.Attendance) (attendance.Attendance, error)
	AttendedSince(ctx context.Context, since time.Time) ([]time.Time, error)
	CountAttended(ctx context.Context, classIDs []string) (map[string]int, error)
	ClassesBetween(ctx context.Context, from, to time.Time) ([]class.Class, error)
	Profiles(ctx context.Context) ([]profile.Profile, error)
	SetCredits(ctx context.Context, id string, credits int) error
	UpdateProfile(ctx context.Context, id string, e profile.Edit) (profile.Profile, error)
	SetActive(ctx context.Context, id string, active bool) error
}

type Subscriber interface {
	Subscribe(e realtime.Entity, h realtime.Handler) *realtime.Subscription
}

type Inviter interface {
	InviteByMagicLink(ctx context.Context, inv auth.Invite) error
}

// Notifier tells the dashboard which slices changed and shows notices.
type Notifier interface {
	Changed(slices ...shell.Slice)
	Notify(n shell.Notice)
}

// Dispatcher runs backend writes.
type Dispatcher interface {
	Go(f func())
}

// Async runs each write on its own goroutine.
type Async struct {
	wg sync.WaitGroup
}

func (a *Async) Go(f func()) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		f()
	}()
}

// Wait blocks until every dispatched write has returned.
func (a *Async) Wait() {
	a.wg.Wait()
}

type Options struct {
	Gateway    Gateway
	Realtime   Subscriber
	Auth       Inviter
	Activity   activity.Log
	Notifier   Notifier
	Dispatcher Dispatcher
	Seed       *seed.Store
	Metrics    *Metrics
	Logger     *slog.Logger

	// Pool is the number of bikes in the room. It defaults to the seed pool.
	Pool int
	// InviteRedirect is where magic links land.
	InviteRedirect string
	Now            func() time.Time
}

// Reconciler is the session object owning the cache and everything that
// mutates it.
type Reconciler struct {
	mu    sync.Mutex
	cache *store.Cache

	gw         Gateway
	rt         Subscriber
	auth       Inviter
	log        activity.Log
	notifier   Notifier
	dispatcher Dispatcher
	seed       *seed.Store
	metrics    *Metrics
	ledger     *Ledger
	logger     *slog.Logger
	pool       int
	redirect   string
	now        func() time.Time

	// ctx scopes the reloads realtime deltas trigger.
	ctx    context.Context
	cancel context.CancelFunc
	subs   []*realtime.Subscription
}

func New(o Options) *Reconciler {
	r := &Reconciler{
		cache:      store.New(),
		gw:         o.Gateway,
		rt:         o.Realtime,
		auth:       o.Auth,
		log:        o.Activity,
		notifier:   o.Notifier,
		dispatcher: o.Dispatcher,
		seed:       o.Seed,
		metrics:    o.Metrics,
		logger:     o.Logger,
		pool:       o.Pool,
		redirect:   o.InviteRedirect,
		now:        o.Now,
	}
	if r.log == nil {
		r.log = activity.NewMemory(activity.Capacity)
	}
	if r.notifier == nil {
		r.notifier = discard{}
	}
	if r.dispatcher == nil {
		r.dispatcher = &Async{}
	}
	if r.seed == nil {
		r.seed = &seed.Store{}
	}
	if r.metrics == nil {
		r.metrics = NewMetrics()
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.pool <= 0 {
		r.pool = r.seed.Pool
	}
	if r.now == nil {
		r.now = time.Now
	}
	r.ledger = newLedger(r.metrics.Pending)
	r.ctx, r.cancel = context.WithCancel(context.Background())
	return r
}

// Start subscribes to the realtime feed. Reloads triggered by deltas run
// under ctx until Close.
func (r *Reconciler) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancel()
	r.ctx, r.cancel = context.WithCancel(context.WithoutCancel(ctx))
	if r.rt == nil {
		return
	}
	for _, e := range []realtime.Entity{realtime.Bikes, realtime.Attendances, realtime.Reservations, realtime.Profiles} {
		r.subs = append(r.subs, r.rt.Subscribe(e, r.Apply))
	}
}

// Close cancels every realtime subscription. Writes already dispatched are
// left to finish.
func (r *Reconciler) Close() {
	r.mu.Lock()
	subs := r.subs
	r.subs = nil
	r.cancel()
	r.mu.Unlock()

	for _, s := range subs {
		s.Cancel()
	}
}

// Cache exposes the cached state for projections. Callers must not write to
// it.
func (r *Reconciler) Cache() *store.Cache { return r.cache }

func (r *Reconciler) Ledger() *Ledger { return r.ledger }

func (r *Reconciler) Pool() int { return r.pool }

// Activity returns the most recent activity entries, newest first.
func (r *Reconciler) Activity(ctx context.Context, n int) ([]activity.Entry, error) {
	return r.log.Recent(ctx, n)
}

type discard struct{}

func (discard) Changed(...shell.Slice) {}
func (discard) Notify(shell.Notice)    {}
