package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/semanticallynull/spinroom/internal/auth"
	"github.com/semanticallynull/spinroom/internal/middleware"
	"github.com/semanticallynull/spinroom/profile"
)

const keepAlive = 25 * time.Second

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type sessionResponse struct {
	UserID   string           `json:"userId"`
	Email    string           `json:"email"`
	FullName string           `json:"fullName,omitempty"`
	Profile  *profileResponse `json:"profile,omitempty"`
	Modules  []string         `json:"modules"`
}

func (a *API) loginHandler(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and password are required")
		return
	}

	s, err := a.auth.SignInWithPassword(c.Request.Context(), strings.TrimSpace(req.Email), req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "INVALID_CREDENTIALS", "message": "Credenciales incorrectas"})
		return
	}
	if err != nil {
		a.fail(c, err)
		return
	}
	logger := middleware.GetLogger(c)
	logger.InfoContext(c, "signed in", "user_id", s.User.ID)
	if a.cfg.Accounts != nil {
		name := s.User.FullName()
		if name == "" {
			name, _, _ = strings.Cut(s.User.Email, "@")
		}
		// Only staff sign in to the dashboard.
		role, err := profile.ParseRole(s.User.AppRole())
		if err != nil {
			role = profile.RoleInstructor
		}
		if _, err := a.cfg.Accounts.EnsureProfile(c.Request.Context(), s.User.ID, name, role); err != nil {
			logger.WarnContext(c, "failed to ensure profile", "user_id", s.User.ID, "error", err)
		}
	}
	c.JSON(http.StatusOK, s)
}

func bearer(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return h[7:]
	}
	return ""
}

func (a *API) logoutHandler(c *gin.Context) {
	if err := a.auth.SignOut(c.Request.Context(), bearer(c)); err != nil && !errors.Is(err, auth.ErrUnauthorized) {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"redirect": "/login"})
}

func (a *API) sessionHandler(c *gin.Context) {
	u, err := a.auth.GetUser(c.Request.Context(), bearer(c))
	if err != nil {
		a.fail(c, err)
		return
	}
	resp := sessionResponse{
		UserID:   u.ID,
		Email:    u.Email,
		FullName: u.FullName(),
		Modules:  a.shell.Active(),
	}
	if a.cfg.Accounts != nil {
		p, err := a.cfg.Accounts.Profile(c.Request.Context(), u.ID)
		switch {
		case err == nil:
			pr := toProfileResponse(p)
			resp.Profile = &pr
		case !errors.Is(err, profile.ErrNotFound):
			a.fail(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (a *API) activateHandler(c *gin.Context) {
	ran, err := a.shell.Activate(c.Request.Context(), c.Param("name"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"module": c.Param("name"), "loaded": ran})
}

func (a *API) activityHandler(c *gin.Context) {
	n, err := strconv.Atoi(c.DefaultQuery("n", "50"))
	if err != nil || n < 1 {
		badRequest(c, "n must be a positive number")
		return
	}
	entries, err := a.rec.Activity(c.Request.Context(), n)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (a *API) ledgerHandler(c *gin.Context) {
	l := a.rec.Ledger()
	c.JSON(http.StatusOK, gin.H{"pending": l.Pending(), "failures": l.Failures()})
}

// eventsHandler streams change signals and notices until the client goes
// away.
func (a *API) eventsHandler(c *gin.Context) {
	signals, cancel := a.hub.Subscribe()
	defer cancel()

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	ctx := c.Request.Context()
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()
	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		case s, ok := <-signals:
			if !ok {
				return false
			}
			event := "changed"
			if s.Notice != nil {
				event = "notice"
			}
			c.SSEvent(event, s)
			return true
		}
	})
	middleware.GetLogger(c).DebugContext(ctx, "event stream closed", "subscribers", a.hub.Subscribers())
}
