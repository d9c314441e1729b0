package reconcile

import (
	"errors"
	"fmt"

	"github.com/semanticallynull/spinroom/internal/activity"
	"github.com/semanticallynull/spinroom/internal/gateway"
	"github.com/semanticallynull/spinroom/internal/shell"
)

var (
	// ErrBusy is returned while a write for the same item is still pending.
	ErrBusy   = errors.New("a change to this item is still being saved")
	ErrNoData = errors.New("no attendees to export")

	ErrNameRequired   = fmt.Errorf("%w: name is required", gateway.ErrValidation)
	ErrNoCredits      = fmt.Errorf("%w: at least one credit is required", gateway.ErrValidation)
	ErrFieldsRequired = fmt.Errorf("%w: email and name are required", gateway.ErrValidation)
	ErrInvalidEmail   = fmt.Errorf("%w: invalid email", gateway.ErrValidation)
	ErrInvalidTarget  = fmt.Errorf("%w: status must be attended or noshow", gateway.ErrValidation)
)

func invalid(err error) error {
	return fmt.Errorf("%w: %w", gateway.ErrValidation, err)
}

// failureNotice words a failed background write for the person who made the
// change. The local state is left as it is.
func failureNotice(err error) shell.Notice {
	switch {
	case errors.Is(err, gateway.ErrPermission):
		return shell.Notice{
			Title:   "Permiso denegado",
			Message: "El servidor rechazó el cambio. Recarga para ver el estado real.",
			Tone:    activity.ToneDanger,
		}
	case errors.Is(err, gateway.ErrAuth):
		return shell.Notice{
			Title:   "Sesión expirada",
			Message: "Inicia sesión de nuevo para guardar cambios.",
			Tone:    activity.ToneDanger,
		}
	case errors.Is(err, gateway.ErrValidation):
		return shell.Notice{
			Title:   "Cambio rechazado",
			Message: "El servidor no aceptó los datos enviados.",
			Tone:    activity.ToneDanger,
		}
	default:
		return shell.Notice{
			Title:   "Sin conexión",
			Message: "El cambio se ve en este dispositivo pero no se guardó.",
			Tone:    activity.ToneInfo,
		}
	}
}
