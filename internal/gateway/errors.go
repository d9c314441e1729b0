package gateway

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/semanticallynull/spinroom/attendance"
	"github.com/semanticallynull/spinroom/bike"
	"github.com/semanticallynull/spinroom/profile"
)

// Error kinds surfaced to callers. Every error returned by the Gateway
// matches exactly one of these with errors.Is, or a domain ErrNotFound.
var (
	ErrTransport  = errors.New("backend unreachable")
	ErrAuth       = errors.New("session expired")
	ErrValidation = errors.New("invalid data")
	ErrPermission = errors.New("permission denied")
)

// Classify maps a driver or repository error onto the gateway error kinds,
// keeping the driver error in the chain.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range []error{ErrTransport, ErrAuth, ErrValidation, ErrPermission} {
		if errors.Is(err, kind) {
			return err
		}
	}
	if errors.Is(err, bike.ErrNotFound) || errors.Is(err, profile.ErrNotFound) || errors.Is(err, attendance.ErrNotFound) {
		return err
	}
	for _, invalid := range []error{
		bike.ErrInvalidState,
		attendance.ErrInvalidStatus,
		profile.ErrNegativeCredits,
		profile.ErrNameRequired,
		profile.ErrInvalidRole,
	} {
		if errors.Is(err, invalid) {
			return fmt.Errorf("%w: %w", ErrValidation, err)
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "42501":
			return fmt.Errorf("%w: %w", ErrPermission, err)
		case strings.HasPrefix(pgErr.Code, "28"):
			return fmt.Errorf("%w: %w", ErrAuth, err)
		case strings.HasPrefix(pgErr.Code, "22"), strings.HasPrefix(pgErr.Code, "23"):
			return fmt.Errorf("%w: %w", ErrValidation, err)
		}
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}

	// Network failures, dropped connections and cancelled contexts all mean the
	// backend could not be reached; so does anything the driver did not explain.
	return fmt.Errorf("%w: %w", ErrTransport, err)
}
