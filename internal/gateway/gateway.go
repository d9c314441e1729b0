// Package gateway is the only path from the service to the relational store.
// Rows are decoded into the domain types here and failures are reported as
// one of the gateway error kinds. The gateway never retries.
package gateway

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/semanticallynull/spinroom/attendance"
	"github.com/semanticallynull/spinroom/bike"
	"github.com/semanticallynull/spinroom/class"
	"github.com/semanticallynull/spinroom/profile"
	"github.com/semanticallynull/spinroom/reservation"
)

type Gateway struct {
	bikes        *bike.Repository
	reservations *reservation.Repository
	attendances  *attendance.Repository
	profiles     *profile.Repository
	classes      *class.Repository
	tracer       trace.Tracer
}

func New(db *sqlx.DB) *Gateway {
	return &Gateway{
		bikes:        bike.NewRepository(db),
		reservations: reservation.NewRepository(db),
		attendances:  attendance.NewRepository(db),
		profiles:     profile.NewRepository(db),
		classes:      class.NewRepository(db),
		tracer:       otel.Tracer("gateway"),
	}
}

func (g *Gateway) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return g.tracer.Start(ctx, "gateway."+name, trace.WithAttributes(attrs...))
}

func finish(span trace.Span, err error) error {
	defer span.End()
	err = Classify(err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// Bikes reads the whole room. A row breaking the occupancy invariant fails
// the read with ErrValidation.
func (g *Gateway) Bikes(ctx context.Context) ([]bike.Bike, error) {
	ctx, span := g.start(ctx, "Bikes")
	bikes, err := g.bikes.GetBikes(ctx)
	if err == nil {
		for _, b := range bikes {
			if err = b.Validate(); err != nil {
				break
			}
		}
	}
	if err = finish(span, err); err != nil {
		return nil, err
	}
	return bikes, nil
}

func (g *Gateway) SaveBike(ctx context.Context, b bike.Bike) (bike.Bike, error) {
	ctx, span := g.start(ctx, "SaveBike", attribute.Int("bike.id", b.ID))
	if err := b.Validate(); err != nil {
		return bike.Bike{}, finish(span, err)
	}
	saved, err := g.bikes.SaveBike(ctx, b, Actor(ctx))
	return saved, finish(span, err)
}

func (g *Gateway) ResetBikes(ctx context.Context) error {
	ctx, span := g.start(ctx, "ResetBikes")
	return finish(span, g.bikes.ResetBikes(ctx, Actor(ctx)))
}

func (g *Gateway) CreateReservation(ctx context.Context, r reservation.Reservation) (reservation.Reservation, error) {
	ctx, span := g.start(ctx, "CreateReservation", attribute.Int("bike.id", r.BikeID))
	saved, err := g.reservations.Create(ctx, r, Actor(ctx))
	return saved, finish(span, err)
}

func (g *Gateway) Reservations(ctx context.Context, classID string) ([]reservation.Reservation, error) {
	ctx, span := g.start(ctx, "Reservations", attribute.String("class.id", classID))
	rs, err := g.reservations.GetByClass(ctx, classID)
	return rs, finish(span, err)
}

func (g *Gateway) Attendances(ctx context.Context, classID string) ([]attendance.Attendance, error) {
	ctx, span := g.start(ctx, "Attendances", attribute.String("class.id", classID))
	as, err := g.attendances.GetByClass(ctx, classID)
	return as, finish(span, err)
}

func (g *Gateway) SaveAttendance(ctx context.Context, a attendance.Attendance) (attendance.Attendance, error) {
	ctx, span := g.start(ctx, "SaveAttendance", attribute.String("class.id", a.ClassID))
	if _, err := attendance.ParseStatus(string(a.Status)); err != nil {
		return attendance.Attendance{}, finish(span, ErrValidation)
	}
	saved, err := g.attendances.Upsert(ctx, a, Actor(ctx))
	return saved, finish(span, err)
}

func (g *Gateway) AttendedSince(ctx context.Context, since time.Time) ([]time.Time, error) {
	ctx, span := g.start(ctx, "AttendedSince")
	ts, err := g.attendances.AttendedSince(ctx, since)
	return ts, finish(span, err)
}

func (g *Gateway) CountAttended(ctx context.Context, classIDs []string) (map[string]int, error) {
	ctx, span := g.start(ctx, "CountAttended", attribute.Int("classes", len(classIDs)))
	counts, err := g.attendances.CountAttended(ctx, classIDs)
	return counts, finish(span, err)
}

func (g *Gateway) ClassesBetween(ctx context.Context, from, to time.Time) ([]class.Class, error) {
	ctx, span := g.start(ctx, "ClassesBetween")
	cs, err := g.classes.GetBetween(ctx, from, to)
	return cs, finish(span, err)
}

func (g *Gateway) Profiles(ctx context.Context) ([]profile.Profile, error) {
	ctx, span := g.start(ctx, "Profiles")
	ps, err := g.profiles.GetProfiles(ctx)
	return ps, finish(span, err)
}

func (g *Gateway) Profile(ctx context.Context, id string) (profile.Profile, error) {
	ctx, span := g.start(ctx, "Profile")
	p, err := g.profiles.GetProfile(ctx, id)
	return p, finish(span, err)
}

func (g *Gateway) SetCredits(ctx context.Context, id string, credits int) error {
	ctx, span := g.start(ctx, "SetCredits", attribute.Int("credits", credits))
	if credits < 0 {
		return finish(span, profile.ErrNegativeCredits)
	}
	return finish(span, g.profiles.SetCredits(ctx, id, credits))
}

func (g *Gateway) UpdateProfile(ctx context.Context, id string, e profile.Edit) (profile.Profile, error) {
	ctx, span := g.start(ctx, "UpdateProfile")
	p, err := g.profiles.Update(ctx, id, e)
	return p, finish(span, err)
}

func (g *Gateway) SetActive(ctx context.Context, id string, active bool) error {
	ctx, span := g.start(ctx, "SetActive", attribute.Bool("active", active))
	return finish(span, g.profiles.SetActive(ctx, id, active))
}

func (g *Gateway) EnsureProfile(ctx context.Context, id, fullName string, role profile.Role) (profile.Profile, error) {
	ctx, span := g.start(ctx, "EnsureProfile")
	p, err := g.profiles.Ensure(ctx, id, fullName, role)
	return p, finish(span, err)
}
