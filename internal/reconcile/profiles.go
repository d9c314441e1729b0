package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"github.com/semanticallynull/spinroom/internal/activity"
	"github.com/semanticallynull/spinroom/internal/auth"
	"github.com/semanticallynull/spinroom/internal/gateway"
	"github.com/semanticallynull/spinroom/internal/shell"
	"github.com/semanticallynull/spinroom/profile"
)

var profileSlices = []shell.Slice{shell.SliceProfiles}

// LoadProfiles caches every profile. When the backend cannot be read the
// cached profiles are kept as they are.
func (r *Reconciler) LoadProfiles(ctx context.Context) ([]profile.Profile, error) {
	ps, err := r.gw.Profiles(ctx)
	switch {
	case errors.Is(err, gateway.ErrAuth):
		return nil, err
	case err != nil:
		r.logger.WarnContext(ctx, "loading profiles failed, keeping cached profiles", slog.Any("error", err))
		return r.cache.Profiles(), nil
	}

	r.mu.Lock()
	r.cache.ReplaceProfiles(ps)
	r.mu.Unlock()
	r.notifier.Changed(profileSlices...)
	return r.cache.Profiles(), nil
}

// AdjustCredits adds delta to a profile's credits. A change that would leave
// the balance negative is rejected without touching the cache or the
// backend. The new absolute balance is what gets written, so a repeated
// write cannot apply the delta twice.
func (r *Reconciler) AdjustCredits(ctx context.Context, id string, delta int) (profile.Profile, error) {
	p, ws, err := func() (profile.Profile, []write, error) {
		r.mu.Lock()
		defer r.mu.Unlock()

		if r.ledger.Busy(profileKey(id)) {
			return profile.Profile{}, nil, ErrBusy
		}
		p, ok := r.cache.Profile(id)
		if !ok {
			return profile.Profile{}, nil, profile.ErrNotFound
		}
		next, err := p.Adjusted(delta)
		if err != nil {
			return profile.Profile{}, nil, invalid(err)
		}
		p.CreditsRemaining = next
		p.UpdatedAt = r.now()
		r.cache.UpsertProfile(p)
		r.notifier.Changed(profileSlices...)
		return p, r.stage(write{
			op:  "SetCredits",
			key: profileKey(id),
			run: func(ctx context.Context) error { return r.gw.SetCredits(ctx, id, next) },
		}), nil
	}()
	if err != nil {
		return profile.Profile{}, err
	}
	r.dispatch(ctx, ws)
	r.metrics.Mutations.WithLabelValues("credits").Inc()
	r.record(ctx, activity.ToneInfo, "%s ahora tiene %d créd.", p.FullName, p.CreditsRemaining)
	return p, nil
}

// UpdateProfile writes an edit and only then updates the cache.
func (r *Reconciler) UpdateProfile(ctx context.Context, id string, e profile.Edit) (profile.Profile, error) {
	e, err := e.Normalize()
	if err != nil {
		return profile.Profile{}, invalid(err)
	}

	var saved profile.Profile
	err = r.awaited(ctx, "UpdateProfile", profileKey(id), func(ctx context.Context) error {
		var err error
		saved, err = r.gw.UpdateProfile(ctx, id, e)
		return err
	})
	if err != nil {
		return profile.Profile{}, err
	}

	r.mu.Lock()
	r.cache.UpsertProfile(saved)
	r.mu.Unlock()
	r.notifier.Changed(profileSlices...)
	r.record(ctx, activity.ToneInfo, "%s — perfil actualizado", saved.FullName)
	return saved, nil
}

// ToggleActive flips whether a profile can sign in. Profiles are never
// deleted.
func (r *Reconciler) ToggleActive(ctx context.Context, id string) (profile.Profile, error) {
	p, ok := r.cache.Profile(id)
	if !ok {
		return profile.Profile{}, profile.ErrNotFound
	}
	next := !p.IsActive

	err := r.awaited(ctx, "SetActive", profileKey(id), func(ctx context.Context) error {
		return r.gw.SetActive(ctx, id, next)
	})
	if err != nil {
		return profile.Profile{}, err
	}

	r.mu.Lock()
	if cur, ok := r.cache.Profile(id); ok {
		p = cur
	}
	p.IsActive = next
	p.UpdatedAt = r.now()
	r.cache.UpsertProfile(p)
	r.mu.Unlock()
	r.notifier.Changed(profileSlices...)

	if next {
		r.record(ctx, activity.ToneSuccess, "%s — cuenta activada", p.FullName)
	} else {
		r.record(ctx, activity.ToneDanger, "%s — cuenta desactivada", p.FullName)
	}
	return p, nil
}

// awaited runs a backend write the caller waits for. It still goes through
// the ledger so the item reads as busy meanwhile.
func (r *Reconciler) awaited(ctx context.Context, op, key string, run func(context.Context) error) error {
	r.mu.Lock()
	if r.ledger.Busy(key) {
		r.mu.Unlock()
		return ErrBusy
	}
	id := r.ledger.Begin(op, key, r.now())
	r.mu.Unlock()

	err := run(ctx)
	r.ledger.Done(id, err, r.now())
	if err != nil {
		r.metrics.Writes.WithLabelValues(op, "error").Inc()
		r.notifier.Notify(shell.Notice{Title: "Error al guardar", Message: err.Error(), Tone: activity.ToneDanger})
		return err
	}
	r.metrics.Writes.WithLabelValues(op, "ok").Inc()
	return nil
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Invitation is a request to give someone access through a magic link.
type Invitation struct {
	Email    string
	FullName string
	Role     profile.Role
	Phone    string
	// Credits is the opening balance; it is only sent for clients.
	Credits int
}

// Invite sends a magic link that creates the user on first sign-in.
func (r *Reconciler) Invite(ctx context.Context, inv Invitation) error {
	inv.Email = strings.TrimSpace(inv.Email)
	inv.FullName = strings.TrimSpace(inv.FullName)
	inv.Phone = strings.TrimSpace(inv.Phone)
	if inv.Email == "" || inv.FullName == "" {
		return ErrFieldsRequired
	}
	if !emailPattern.MatchString(inv.Email) {
		return ErrInvalidEmail
	}
	role, err := profile.ParseRole(string(inv.Role))
	if err != nil {
		return invalid(err)
	}
	if inv.Credits < 0 {
		return invalid(profile.ErrNegativeCredits)
	}

	req := auth.Invite{
		Email:      inv.Email,
		FullName:   inv.FullName,
		Role:       string(role),
		Phone:      inv.Phone,
		RedirectTo: r.redirect,
	}
	if role == profile.RoleClient {
		credits := inv.Credits
		req.Credits = &credits
	}
	if err := r.auth.InviteByMagicLink(ctx, req); err != nil {
		r.notifier.Notify(shell.Notice{Title: "Error al invitar", Message: err.Error(), Tone: activity.ToneDanger})
		return err
	}
	r.record(ctx, activity.ToneInfo, "Invitación enviada a %s (%s)", inv.FullName, inv.Email)
	return nil
}
