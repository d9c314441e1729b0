package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semanticallynull/spinroom/internal/gateway"
	"github.com/semanticallynull/spinroom/internal/shell"
)

func TestModulesLoadLazily(t *testing.T) {
	f := newFixture(t, nil)
	sh := shell.New(f.r.Modules()...)
	ctx := context.Background()

	ran, err := sh.Activate(ctx, shell.CheckIn)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Len(t, f.r.Cache().Classes(), 4)
	assert.True(t, f.r.Cache().HasClass("1800"))
	assert.Empty(t, f.r.Cache().Bikes())

	ran, err = sh.Activate(ctx, shell.CheckIn)
	require.NoError(t, err)
	assert.False(t, ran)

	_, err = sh.Activate(ctx, shell.RoomMap)
	require.NoError(t, err)
	assert.Len(t, f.r.Cache().Bikes(), 20)
}

func TestDashboardModuleLoadsEveryRoster(t *testing.T) {
	f := newFixture(t, nil)
	sh := shell.New(f.r.Modules()...)

	_, err := sh.Activate(context.Background(), shell.Dashboard)
	require.NoError(t, err)
	for _, key := range []string{"0700", "0900", "1800", "2000"} {
		assert.True(t, f.r.Cache().HasClass(key), key)
	}
}

func TestModuleRetriesAfterAuthFailure(t *testing.T) {
	f := newFixture(t, nil)
	sh := shell.New(f.r.Modules()...)
	f.gw.fail("Profiles", gateway.ErrAuth)

	_, err := sh.Activate(context.Background(), shell.Clients)
	require.ErrorIs(t, err, gateway.ErrAuth)

	delete(f.gw.errs, "Profiles")
	ran, err := sh.Activate(context.Background(), shell.Clients)
	require.NoError(t, err)
	assert.True(t, ran)
}
