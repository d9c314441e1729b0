package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/semanticallynull/spinroom/bike"
	"github.com/semanticallynull/spinroom/internal/reconcile"
	"github.com/semanticallynull/spinroom/internal/shell"
	"github.com/semanticallynull/spinroom/internal/view"
)

type bikeResponse struct {
	ID               int         `json:"id"`
	Status           bike.Status `json:"status"`
	OccupiedBy       *string     `json:"occupiedBy,omitempty"`
	CreditsRemaining *int        `json:"creditsRemaining,omitempty"`
	AssignedClass    *string     `json:"assignedClass,omitempty"`
	UpdatedAt        *time.Time  `json:"updatedAt,omitempty"`
}

func toBikeResponse(b bike.Bike) bikeResponse {
	br := bikeResponse{
		ID:               b.ID,
		Status:           b.Status,
		OccupiedBy:       b.OccupiedBy,
		CreditsRemaining: b.CreditsRemaining,
		AssignedClass:    b.AssignedClass,
	}
	if !b.UpdatedAt.IsZero() {
		br.UpdatedAt = &b.UpdatedAt
	}
	return br
}

type bookRequest struct {
	Name     string `json:"name"`
	Credits  int    `json:"credits"`
	ClassKey string `json:"classKey"`
}

func (a *API) roomHandler(c *gin.Context) {
	if !a.open(c, shell.RoomMap) {
		return
	}
	bikes := a.rec.Cache().Bikes()
	c.JSON(http.StatusOK, view.RoomMap(bikes, view.ParseFilter(c.Query("filter")), a.rec.Pool()))
}

func bikeID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		badRequest(c, "invalid bike number")
		return 0, false
	}
	return id, true
}

func (a *API) bookHandler(c *gin.Context) {
	id, ok := bikeID(c)
	if !ok {
		return
	}
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	b, err := a.rec.BookBike(c.Request.Context(), reconcile.Booking{
		BikeID:   id,
		Name:     req.Name,
		Credits:  req.Credits,
		ClassKey: req.ClassKey,
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toBikeResponse(b))
}

func (a *API) blockHandler(c *gin.Context) {
	a.bikeTransition(c, a.rec.BlockBike)
}

func (a *API) unblockHandler(c *gin.Context) {
	a.bikeTransition(c, a.rec.UnblockBike)
}

func (a *API) bikeTransition(c *gin.Context, apply func(ctx context.Context, id int) (bike.Bike, error)) {
	id, ok := bikeID(c)
	if !ok {
		return
	}
	b, err := apply(c.Request.Context(), id)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toBikeResponse(b))
}

func (a *API) resetHandler(c *gin.Context) {
	bikes, err := a.rec.ResetRoom(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	out := make([]bikeResponse, 0, len(bikes))
	for _, b := range bikes {
		out = append(out, toBikeResponse(b))
	}
	c.JSON(http.StatusOK, out)
}
