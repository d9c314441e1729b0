package api

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/semanticallynull/spinroom/attendance"
	"github.com/semanticallynull/spinroom/bike"
	"github.com/semanticallynull/spinroom/class"
	"github.com/semanticallynull/spinroom/internal/activity"
	"github.com/semanticallynull/spinroom/internal/auth"
	"github.com/semanticallynull/spinroom/internal/gateway"
	"github.com/semanticallynull/spinroom/internal/o11y"
	"github.com/semanticallynull/spinroom/internal/reconcile"
	"github.com/semanticallynull/spinroom/internal/seed"
	"github.com/semanticallynull/spinroom/internal/shell"
	"github.com/semanticallynull/spinroom/profile"
	"github.com/semanticallynull/spinroom/reservation"
)

var testNow = time.Date(2026, 10, 18, 18, 10, 0, 0, time.UTC)

const (
	metricsUser     = "prom"
	metricsPassword = "scrape"
)

// offlineGateway behaves like a backend that cannot be read: every load
// falls back to the seed data. Profiles are the exception since they have
// no seed.
type offlineGateway struct {
	mu       sync.Mutex
	profiles []profile.Profile
	saved    []bike.Bike
}

var errOffline = gateway.ErrTransport

func (g *offlineGateway) Bikes(context.Context) ([]bike.Bike, error) { return nil, errOffline }
func (g *offlineGateway) SaveBike(_ context.Context, b bike.Bike) (bike.Bike, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.saved = append(g.saved, b)
	return b, nil
}
func (g *offlineGateway) ResetBikes(context.Context) error { return nil }
func (g *offlineGateway) CreateReservation(_ context.Context, r reservation.Reservation) (reservation.Reservation, error) {
	return r, nil
}
func (g *offlineGateway) Reservations(context.Context, string) ([]reservation.Reservation, error) {
	return nil, errOffline
}
func (g *offlineGateway) Attendances(context.Context, string) ([]attendance.Attendance, error) {
	return nil, errOffline
}
func (g *offlineGateway) SaveAttendance(_ context.Context, a attendance.Attendance) (attendance.Attendance, error) {
	return a, nil
}
func (g *offlineGateway) AttendedSince(context.Context, time.Time) ([]time.Time, error) {
	return nil, errOffline
}
func (g *offlineGateway) CountAttended(context.Context, []string) (map[string]int, error) {
	return nil, errOffline
}
func (g *offlineGateway) ClassesBetween(context.Context, time.Time, time.Time) ([]class.Class, error) {
	return nil, errOffline
}
func (g *offlineGateway) Profiles(context.Context) ([]profile.Profile, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]profile.Profile(nil), g.profiles...), nil
}
func (g *offlineGateway) SetCredits(context.Context, string, int) error { return nil }
func (g *offlineGateway) UpdateProfile(_ context.Context, id string, e profile.Edit) (profile.Profile, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, p := range g.profiles {
		if p.ID == id {
			return e.Apply(p), nil
		}
	}
	return profile.Profile{}, profile.ErrNotFound
}
func (g *offlineGateway) SetActive(context.Context, string, bool) error { return nil }
func (g *offlineGateway) Profile(_ context.Context, id string) (profile.Profile, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, p := range g.profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return profile.Profile{}, profile.ErrNotFound
}
func (g *offlineGateway) EnsureProfile(ctx context.Context, id, fullName string, role profile.Role) (profile.Profile, error) {
	if p, err := g.Profile(ctx, id); err == nil {
		return p, nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	p := profile.Profile{ID: id, FullName: fullName, Role: role, IsActive: true}
	g.profiles = append(g.profiles, p)
	return p, nil
}

// heldDispatcher never runs the writes it is given, so every dispatched
// write stays pending.
type heldDispatcher struct {
	mu    sync.Mutex
	queue []func()
}

func (d *heldDispatcher) Go(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queue = append(d.queue, f)
}

type TestServer struct {
	Router *gin.Engine
	Rec    *reconcile.Reconciler
	Hub    *shell.Hub
	Auth   *auth.FakeClient
	GW     *offlineGateway
}

func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s, err := seed.Load()
	if err != nil {
		t.Fatalf("failed to load seed: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	metrics := reconcile.NewMetrics()
	metrics.Register(reg)

	ts := &TestServer{
		Hub:  shell.NewHub(),
		Auth: auth.NewFakeClient(),
		GW: &offlineGateway{profiles: []profile.Profile{
			{ID: "c1", FullName: "Ana Torres", Role: profile.RoleClient, CreditsRemaining: 1, IsActive: true},
			{ID: "c2", FullName: "Beto Luna", Role: profile.RoleClient, CreditsRemaining: 9, IsActive: true},
			{ID: "s1", FullName: "Carla Coach", Role: profile.RoleInstructor, IsActive: true},
		}},
	}
	ts.Auth.AddUser("token-1", "secret", &auth.User{
		ID:           "user-1",
		Email:        "admin@studio.mx",
		UserMetadata: map[string]any{"full_name": "Admin Studio", "role": "admin"},
	})

	ts.Rec = reconcile.New(reconcile.Options{
		Gateway:    ts.GW,
		Auth:       ts.Auth,
		Activity:   activity.NewMemory(activity.Capacity),
		Notifier:   ts.Hub,
		Dispatcher: &heldDispatcher{},
		Seed:       s,
		Metrics:    metrics,
		Logger:     logger,
		Now:        func() time.Time { return testNow },
	})
	t.Cleanup(ts.Rec.Close)

	a := New(ts.Rec, shell.New(ts.Rec.Modules()...), ts.Hub, ts.Auth,
		&o11y.Observability{Logger: logger, Registry: reg},
		gin.HandlersChain{fakeAuthMiddleware()},
		Config{
			Accounts:        ts.GW,
			MetricsUsername: metricsUser,
			MetricsPassword: metricsPassword,
			Location:        time.UTC,
			Now:             func() time.Time { return testNow },
		})
	ts.Router = a.Router()
	return ts
}

// fakeAuthMiddleware extracts user ID from X-User-ID header for testing
func fakeAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "message": "Authentication required"})
			c.Abort()
			return
		}
		c.Set("user_id", userID)
		c.Next()
	}
}

var asAdmin = map[string]string{"X-User-ID": "user-1", "Authorization": "Bearer token-1"}

func (ts *TestServer) do(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)
	return w
}

func (ts *TestServer) GET(path string, headers map[string]string) *httptest.ResponseRecorder {
	return ts.do(http.MethodGet, path, nil, headers)
}

func (ts *TestServer) POST(path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	return ts.do(http.MethodPost, path, body, headers)
}

func (ts *TestServer) PUT(path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	return ts.do(http.MethodPut, path, body, headers)
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to unmarshal response: %v: %s", err, w.Body.String())
	}
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, w.Code, w.Body.String())
	}
}
