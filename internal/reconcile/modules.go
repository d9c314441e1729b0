package reconcile

import (
	"context"

	"github.com/semanticallynull/spinroom/class"
	"github.com/semanticallynull/spinroom/internal/shell"
)

// Modules returns the dashboard sections with the loads each needs the first
// time it is opened.
func (r *Reconciler) Modules() []shell.Module {
	room := func(ctx context.Context) error {
		_, err := r.LoadRoom(ctx)
		return err
	}
	today := func(ctx context.Context) ([]class.Class, error) {
		return r.LoadClasses(ctx, r.now())
	}
	profiles := func(ctx context.Context) error {
		_, err := r.LoadProfiles(ctx)
		return err
	}

	return []shell.Module{
		{Name: shell.Dashboard, Load: func(ctx context.Context) error {
			if err := room(ctx); err != nil {
				return err
			}
			classes, err := today(ctx)
			if err != nil {
				return err
			}
			// KPIs count the rosters of the day.
			for _, c := range classes {
				if _, err := r.LoadClass(ctx, c.ID); err != nil {
					return err
				}
			}
			return nil
		}},
		{Name: shell.RoomMap, Load: room},
		{Name: shell.CheckIn, Load: func(ctx context.Context) error {
			classes, err := today(ctx)
			if err != nil {
				return err
			}
			if active, ok := class.Active(classes); ok {
				_, err = r.LoadClass(ctx, active.ID)
			}
			return err
		}},
		{Name: shell.Clients, Load: profiles},
		{Name: shell.Users, Load: profiles},
		{Name: shell.Analytics, Load: func(ctx context.Context) error {
			if err := room(ctx); err != nil {
				return err
			}
			_, err := today(ctx)
			return err
		}},
	}
}
