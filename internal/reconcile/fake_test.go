package reconcile

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/semanticallynull/spinroom/attendance"
	"github.com/semanticallynull/spinroom/bike"
	"github.com/semanticallynull/spinroom/class"
	"github.com/semanticallynull/spinroom/internal/activity"
	"github.com/semanticallynull/spinroom/internal/auth"
	"github.com/semanticallynull/spinroom/internal/seed"
	"github.com/semanticallynull/spinroom/internal/shell"
	"github.com/semanticallynull/spinroom/profile"
	"github.com/semanticallynull/spinroom/reservation"
)

const backendClass = "7b0c1f4e-2d7a-4d55-9a51-3c1f0e6b2a10"

// fakeGateway stores what it is given and fails the ops listed in errs.
type fakeGateway struct {
	mu   sync.Mutex
	errs map[string]error

	bikes        []bike.Bike
	savedBikes   []bike.Bike
	resets       int
	reservations map[string][]reservation.Reservation
	created      []reservation.Reservation
	attendances  map[string][]attendance.Attendance
	savedAtt     []attendance.Attendance
	attendanceID string
	attended     []time.Time
	turnout      map[string]int
	classes      []class.Class
	profiles     []profile.Profile
	credits      map[string]int
	creditWrites int
	active       map[string]bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		errs:         make(map[string]error),
		reservations: make(map[string][]reservation.Reservation),
		attendances:  make(map[string][]attendance.Attendance),
		credits:      make(map[string]int),
		active:       make(map[string]bool),
	}
}

func (f *fakeGateway) fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[op] = err
}

func (f *fakeGateway) Bikes(context.Context) ([]bike.Bike, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bikes, f.errs["Bikes"]
}

func (f *fakeGateway) SaveBike(_ context.Context, b bike.Bike) (bike.Bike, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs["SaveBike"]; err != nil {
		return bike.Bike{}, err
	}
	f.savedBikes = append(f.savedBikes, b)
	return b, nil
}

func (f *fakeGateway) ResetBikes(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return f.errs["ResetBikes"]
}

func (f *fakeGateway) CreateReservation(_ context.Context, r reservation.Reservation) (reservation.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs["CreateReservation"]; err != nil {
		return reservation.Reservation{}, err
	}
	f.created = append(f.created, r)
	return r, nil
}

func (f *fakeGateway) Reservations(_ context.Context, classID string) ([]reservation.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reservations[classID], f.errs["Reservations"]
}

func (f *fakeGateway) Attendances(_ context.Context, classID string) ([]attendance.Attendance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attendances[classID], f.errs["Attendances"]
}

func (f *fakeGateway) SaveAttendance(_ context.Context, a attendance.Attendance) (attendance.Attendance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs["SaveAttendance"]; err != nil {
		return attendance.Attendance{}, err
	}
	a.ID = f.attendanceID
	f.savedAtt = append(f.savedAtt, a)
	return a, nil
}

func (f *fakeGateway) AttendedSince(context.Context, time.Time) ([]time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attended, f.errs["AttendedSince"]
}

func (f *fakeGateway) CountAttended(context.Context, []string) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.turnout, f.errs["CountAttended"]
}

func (f *fakeGateway) ClassesBetween(context.Context, time.Time, time.Time) ([]class.Class, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.classes, f.errs["ClassesBetween"]
}

func (f *fakeGateway) Profiles(context.Context) ([]profile.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profiles, f.errs["Profiles"]
}

// SetCredits stores the absolute balance, like the real UPDATE does.
func (f *fakeGateway) SetCredits(_ context.Context, id string, credits int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs["SetCredits"]; err != nil {
		return err
	}
	f.creditWrites++
	f.credits[id] = credits
	return nil
}

func (f *fakeGateway) UpdateProfile(_ context.Context, id string, e profile.Edit) (profile.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs["UpdateProfile"]; err != nil {
		return profile.Profile{}, err
	}
	for _, p := range f.profiles {
		if p.ID == id {
			return e.Apply(p), nil
		}
	}
	return profile.Profile{}, profile.ErrNotFound
}

func (f *fakeGateway) SetActive(_ context.Context, id string, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs["SetActive"]; err != nil {
		return err
	}
	f.active[id] = active
	return nil
}

type syncDispatcher struct{}

func (syncDispatcher) Go(f func()) { f() }

// queueDispatcher holds writes until flush, so tests can observe them in
// flight.
type queueDispatcher struct {
	mu  sync.Mutex
	fns []func()
}

func (q *queueDispatcher) Go(f func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.fns = append(q.fns, f)
}

func (q *queueDispatcher) flush() {
	q.mu.Lock()
	fns := q.fns
	q.fns = nil
	q.mu.Unlock()
	for _, f := range fns {
		f()
	}
}

type recordingNotifier struct {
	mu      sync.Mutex
	changed []shell.Slice
	notices []shell.Notice
}

func (n *recordingNotifier) Changed(slices ...shell.Slice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed = append(n.changed, slices...)
}

func (n *recordingNotifier) Notify(notice shell.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
}

func (n *recordingNotifier) Notices() []shell.Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]shell.Notice(nil), n.notices...)
}

type fixture struct {
	r        *Reconciler
	gw       *fakeGateway
	notifier *recordingNotifier
	auth     *auth.FakeClient
	log      *activity.Memory
}

var testNow = time.Date(2026, 10, 18, 18, 10, 0, 0, time.UTC)

func newFixture(t *testing.T, d Dispatcher) *fixture {
	t.Helper()
	s, err := seed.Load()
	require.NoError(t, err)

	if d == nil {
		d = syncDispatcher{}
	}
	f := &fixture{
		gw:       newFakeGateway(),
		notifier: &recordingNotifier{},
		auth:     auth.NewFakeClient(),
		log:      activity.NewMemory(activity.Capacity),
	}
	f.r = New(Options{
		Gateway:    f.gw,
		Auth:       f.auth,
		Activity:   f.log,
		Notifier:   f.notifier,
		Dispatcher: d,
		Seed:       s,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:        func() time.Time { return testNow },
	})
	t.Cleanup(f.r.Close)
	return f
}

// loadSeedRoom fills the cache with the seed room.
func (f *fixture) loadSeedRoom(t *testing.T) {
	t.Helper()
	_, err := f.r.LoadRoom(context.Background())
	require.NoError(t, err)
}

func (f *fixture) activity(t *testing.T) []activity.Entry {
	t.Helper()
	entries, err := f.log.Recent(context.Background(), 0)
	require.NoError(t, err)
	return entries
}
