// Package acceptance runs the whole service against a real Postgres. Set
// DATABASE_URL to run it; the tests are skipped otherwise.
package acceptance

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/semanticallynull/spinroom/api"
	"github.com/semanticallynull/spinroom/internal/activity"
	"github.com/semanticallynull/spinroom/internal/auth"
	"github.com/semanticallynull/spinroom/internal/gateway"
	"github.com/semanticallynull/spinroom/internal/o11y"
	"github.com/semanticallynull/spinroom/internal/realtime"
	"github.com/semanticallynull/spinroom/internal/reconcile"
	"github.com/semanticallynull/spinroom/internal/schema"
	"github.com/semanticallynull/spinroom/internal/seed"
	"github.com/semanticallynull/spinroom/internal/shell"
)

const staffID = "0b6f5c2e-8d1a-4f3b-9c7e-2a4d6e8f0a11"

var asStaff = map[string]string{"X-User-ID": staffID}

type TestServer struct {
	DB     *sqlx.DB
	Router *gin.Engine
	Rec    *reconcile.Reconciler
	Writes *reconcile.Async
}

func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	gin.SetMode(gin.TestMode)

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	db, err := sqlx.ConnectContext(ctx, "pgx", dbURL)
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := schema.Init(ctx, db); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}
	cleanupTestData(t, db)

	s, err := seed.Load()
	if err != nil {
		t.Fatalf("failed to load seed: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	listener := realtime.NewListener(dbURL, logger)
	go func() {
		if err := listener.Run(ctx); err != nil {
			t.Logf("listener stopped: %v", err)
		}
	}()
	select {
	case <-listener.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("realtime listener did not start")
	}

	gw := gateway.New(db)
	hub := shell.NewHub()
	writes := &reconcile.Async{}
	reg := prometheus.NewRegistry()
	metrics := reconcile.NewMetrics()
	metrics.Register(reg)

	rec := reconcile.New(reconcile.Options{
		Gateway:    gw,
		Realtime:   listener,
		Auth:       auth.NewFakeClient(),
		Activity:   activity.NewMemory(activity.Capacity),
		Notifier:   hub,
		Dispatcher: writes,
		Seed:       s,
		Metrics:    metrics,
		Logger:     logger,
	})
	rec.Start(ctx)
	t.Cleanup(func() {
		rec.Close()
		writes.Wait()
	})

	a := api.New(rec, shell.New(rec.Modules()...), hub, auth.NewFakeClient(),
		&o11y.Observability{Logger: logger, Registry: reg},
		gin.HandlersChain{fakeAuthMiddleware()},
		api.Config{Accounts: gw, Location: time.UTC})

	return &TestServer{DB: db, Router: a.Router(), Rec: rec, Writes: writes}
}

func cleanupTestData(t *testing.T, db *sqlx.DB) {
	t.Helper()

	// Delete in order of dependencies
	for _, stmt := range []string{
		"DELETE FROM attendances",
		"DELETE FROM reservations",
		"DELETE FROM classes",
		"DELETE FROM profiles",
		`UPDATE bikes SET status = 'available', current_user_name = NULL, credits_remaining = NULL,
			current_class_id = NULL, updated_by = NULL`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Logf("warning: cleanup failed: %s: %v", stmt, err)
		}
	}
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

// Helper methods for making requests
func (ts *TestServer) GET(path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)
	return w
}

func (ts *TestServer) POST(path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)
	return w
}

// CreateTestClass inserts a class scheduled now and returns its id.
func (ts *TestServer) CreateTestClass(t *testing.T, name string) string {
	t.Helper()
	var id string
	err := ts.DB.Get(&id, `
		INSERT INTO classes (name, instructor_name, scheduled_at, capacity, status)
		VALUES ($1, 'Coach', now(), 20, 'active')
		RETURNING id
	`, name)
	if err != nil {
		t.Fatalf("failed to create test class: %v", err)
	}
	return id
}

// CreateTestProfile inserts a client profile and returns its id.
func (ts *TestServer) CreateTestProfile(t *testing.T, name string, credits int) string {
	t.Helper()
	var id string
	err := ts.DB.Get(&id, `
		INSERT INTO profiles (id, full_name, credits_remaining, role)
		VALUES (gen_random_uuid(), $1, $2, 'client')
		RETURNING id
	`, name, credits)
	if err != nil {
		t.Fatalf("failed to create test profile: %v", err)
	}
	return id
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(25 * time.Millisecond)
	}
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to unmarshal response: %v: %s", err, w.Body.String())
	}
}
