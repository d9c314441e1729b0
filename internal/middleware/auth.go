package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	adapter "github.com/gwatts/gin-adapter"
)

// UserIDKey is where handlers find the caller's user id.
const UserIDKey = "user_id"

// Claims are the auth provider's extra token claims.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (c *Claims) Validate(context.Context) error { return nil }

// JWT validates HS256 access tokens issued by the auth provider and rejects
// the request with a login redirect otherwise. The returned chain also
// stores the token subject under UserIDKey.
func JWT(secret, issuer, audience string) (gin.HandlersChain, error) {
	v, err := validator.New(
		func(context.Context) (interface{}, error) { return []byte(secret), nil },
		validator.HS256,
		issuer,
		[]string{audience},
		validator.WithCustomClaims(func() validator.CustomClaims { return &Claims{} }),
		validator.WithAllowedClockSkew(30*time.Second),
	)
	if err != nil {
		return nil, err
	}

	m := jwtmiddleware.New(v.ValidateToken,
		jwtmiddleware.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			slog.DebugContext(r.Context(), "rejected token", slog.Any("error", err))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(gin.H{
				"code":     "UNAUTHORIZED",
				"message":  "Sesión expirada",
				"redirect": "/login",
			})
		}),
	)

	return gin.HandlersChain{adapter.Wrap(m.CheckJWT), identify}, nil
}

func identify(c *gin.Context) {
	if id, ok := subject(c.Request.Context()); ok {
		c.Set(UserIDKey, id)
	}
	c.Next()
}

func subject(ctx context.Context) (string, bool) {
	claims, ok := ctx.Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
	if !ok {
		return "", false
	}
	return claims.RegisteredClaims.Subject, claims.RegisteredClaims.Subject != ""
}

// GetUserID returns the sub claim of the validated token.
func GetUserID(c *gin.Context) (string, bool) {
	if id := c.GetString(UserIDKey); id != "" {
		return id, true
	}
	id, ok := subject(c.Request.Context())
	if !ok {
		GetLogger(c).Warn("no user claims in request context")
	}
	return id, ok
}

// GetClaims returns the provider specific claims, if any.
func GetClaims(c *gin.Context) (*Claims, bool) {
	claims, ok := c.Request.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
	if !ok {
		return nil, false
	}
	custom, ok := claims.CustomClaims.(*Claims)
	return custom, ok
}
