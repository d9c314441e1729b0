// Package api is the HTTP surface of the room dashboard.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/semanticallynull/spinroom/attendance"
	"github.com/semanticallynull/spinroom/bike"
	"github.com/semanticallynull/spinroom/internal/auth"
	"github.com/semanticallynull/spinroom/internal/gateway"
	"github.com/semanticallynull/spinroom/internal/middleware"
	"github.com/semanticallynull/spinroom/internal/o11y"
	"github.com/semanticallynull/spinroom/internal/reconcile"
	"github.com/semanticallynull/spinroom/internal/shell"
	"github.com/semanticallynull/spinroom/profile"
)

const eventsPath = "/events"

// Accounts looks up and creates the profile of whoever signs in.
type Accounts interface {
	Profile(ctx context.Context, id string) (profile.Profile, error)
	EnsureProfile(ctx context.Context, id, fullName string, role profile.Role) (profile.Profile, error)
}

type Config struct {
	// Accounts is optional. Without it sessions carry no profile.
	Accounts        Accounts
	SessionPrice    int
	MetricsUsername string
	MetricsPassword string
	// Location is the studio's time zone, used for the schedule and the day
	// boundaries.
	Location *time.Location
	Now      func() time.Time
}

type API struct {
	r     *gin.Engine
	rec   *reconcile.Reconciler
	shell *shell.Shell
	hub   *shell.Hub
	auth  auth.Client
	cfg   Config
}

// New builds the router. authn guards every route except health, login and
// metrics.
func New(rec *reconcile.Reconciler, sh *shell.Shell, hub *shell.Hub, authClient auth.Client,
	obs *o11y.Observability, authn gin.HandlersChain, cfg Config) *API {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	a := &API{
		r:     gin.New(),
		rec:   rec,
		shell: sh,
		hub:   hub,
		auth:  authClient,
		cfg:   cfg,
	}

	a.r.Use(
		gin.Recovery(),
		middleware.Tracing("spinroom"),
		middleware.Logging(obs.Logger),
		middleware.Metrics(middleware.NewHTTPMetrics(obs.Registry), eventsPath),
	)

	a.r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	a.r.POST("/auth/login", a.loginHandler)

	metrics := gin.WrapH(promhttp.HandlerFor(obs.Registry, promhttp.HandlerOpts{}))
	if cfg.MetricsUsername != "" {
		a.r.GET("/metrics", gin.BasicAuth(gin.Accounts{cfg.MetricsUsername: cfg.MetricsPassword}), metrics)
	} else {
		a.r.GET("/metrics", metrics)
	}

	protected := a.r.Group("/")
	protected.Use(authn...)
	protected.Use(actor)
	{
		protected.POST("/auth/logout", a.logoutHandler)
		protected.GET("/session", a.sessionHandler)
		protected.POST("/modules/:name/activate", a.activateHandler)
		protected.GET("/activity", a.activityHandler)
		protected.GET("/ledger", a.ledgerHandler)
		protected.GET(eventsPath, a.eventsHandler)

		protected.GET("/room", a.roomHandler)
		protected.POST("/room/bikes/:id/book", a.bookHandler)
		protected.POST("/room/bikes/:id/block", a.blockHandler)
		protected.POST("/room/bikes/:id/unblock", a.unblockHandler)
		protected.POST("/room/reset", a.resetHandler)

		protected.GET("/classes", a.classesHandler)
		protected.GET("/classes/:key/checkin", a.checkInHandler)
		protected.POST("/classes/:key/checkin/bulk/:status", a.bulkHandler)
		protected.POST("/classes/:key/checkin/:user/:status", a.markHandler)
		protected.GET("/classes/:key/export", a.exportHandler)

		protected.GET("/clients", a.clientsHandler)
		protected.POST("/clients/:id/credits", a.creditsHandler)
		protected.POST("/clients/invite", a.inviteClientHandler)
		protected.GET("/users", a.usersHandler)
		protected.POST("/users/invite", a.inviteUserHandler)
		protected.PUT("/profiles/:id", a.updateProfileHandler)
		protected.POST("/profiles/:id/toggle-active", a.toggleActiveHandler)

		protected.GET("/dashboard", a.dashboardHandler)
		protected.GET("/analytics", a.analyticsHandler)
	}

	return a
}

func (a *API) Router() *gin.Engine {
	return a.r
}

// actor stamps the caller's id on the request context so backend writes
// record who made them.
func actor(c *gin.Context) {
	if id, ok := middleware.GetUserID(c); ok {
		c.Request = c.Request.WithContext(gateway.WithActor(c.Request.Context(), id))
	}
	c.Next()
}

// open activates a module before its first read.
func (a *API) open(c *gin.Context, module string) bool {
	if _, err := a.shell.Activate(c.Request.Context(), module); err != nil {
		a.fail(c, err)
		return false
	}
	return true
}

// fail writes the error response for err.
func (a *API) fail(c *gin.Context, err error) {
	logger := middleware.GetLogger(c)
	switch {
	case errors.Is(err, gateway.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION", "message": err.Error()})
	case errors.Is(err, bike.ErrNotFound), errors.Is(err, attendance.ErrNotFound),
		errors.Is(err, profile.ErrNotFound), errors.Is(err, shell.ErrUnknownModule):
		c.JSON(http.StatusNotFound, gin.H{"code": "NOT_FOUND", "message": err.Error()})
	case errors.Is(err, reconcile.ErrNoData):
		c.JSON(http.StatusNotFound, gin.H{"code": "NO_DATA", "message": "No hay asistentes para exportar"})
	case errors.Is(err, reconcile.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"code": "BUSY", "message": err.Error()})
	case errors.Is(err, gateway.ErrAuth), errors.Is(err, auth.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "message": "Sesión expirada", "redirect": "/login"})
	case errors.Is(err, gateway.ErrPermission):
		c.JSON(http.StatusForbidden, gin.H{"code": "FORBIDDEN", "message": err.Error()})
	case errors.Is(err, gateway.ErrTransport), errors.Is(err, auth.ErrRequestFailed):
		logger.Warn("backend unavailable", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"code": "UNAVAILABLE", "message": "Sin conexión"})
	default:
		logger.Error("request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": "Internal server error"})
	}
	_ = c.Error(err)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION", "message": msg})
}
