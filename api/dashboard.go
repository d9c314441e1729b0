package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/semanticallynull/spinroom/internal/shell"
	"github.com/semanticallynull/spinroom/internal/view"
)

const revenueDays = 7

func (a *API) dashboardHandler(c *gin.Context) {
	if !a.open(c, shell.Dashboard) {
		return
	}
	cache := a.rec.Cache()
	c.JSON(http.StatusOK, view.Home(cache.Bikes(), cache.Classes(), cache.AllAttendees(),
		a.rec.Pool(), a.cfg.SessionPrice, a.cfg.Location))
}

func (a *API) analyticsHandler(c *gin.Context) {
	if !a.open(c, shell.Analytics) {
		return
	}
	ctx := c.Request.Context()
	now := a.cfg.Now().In(a.cfg.Location)

	counts, live, err := a.rec.Turnout(ctx)
	if err != nil {
		a.fail(c, err)
		return
	}
	times, revenueLive, err := a.rec.AttendedTimes(ctx, now, revenueDays)
	if err != nil {
		a.fail(c, err)
		return
	}

	cache := a.rec.Cache()
	c.JSON(http.StatusOK, view.Analytics{
		Donut: view.RoomDonut(cache.Bikes()),
		Bar:   view.CapacityBar(cache.Classes(), counts, live),
		Line:  view.Revenue(now, revenueDays, times, a.cfg.SessionPrice, revenueLive),
	})
}
