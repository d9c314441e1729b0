package api

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/semanticallynull/spinroom/attendance"
	"github.com/semanticallynull/spinroom/class"
	"github.com/semanticallynull/spinroom/internal/export"
	"github.com/semanticallynull/spinroom/internal/middleware"
	"github.com/semanticallynull/spinroom/internal/shell"
	"github.com/semanticallynull/spinroom/internal/view"
)

type classesResponse struct {
	Active   string              `json:"active,omitempty"`
	Schedule []view.ScheduleItem `json:"schedule"`
}

// classesHandler returns the schedule of ?date=YYYY-MM-DD, today by default.
func (a *API) classesHandler(c *gin.Context) {
	if !a.open(c, shell.CheckIn) {
		return
	}
	classes := a.rec.Cache().Classes()
	if d := c.Query("date"); d != "" {
		day, err := time.ParseInLocation(time.DateOnly, d, a.cfg.Location)
		if err != nil {
			badRequest(c, "date must be YYYY-MM-DD")
			return
		}
		if classes, err = a.rec.LoadClasses(c.Request.Context(), day); err != nil {
			a.fail(c, err)
			return
		}
	}

	resp := classesResponse{Schedule: view.Schedule(classes, a.cfg.Location)}
	if active, ok := class.Active(classes); ok {
		resp.Active = active.ID
	}
	c.JSON(http.StatusOK, resp)
}

func (a *API) checkInHandler(c *gin.Context) {
	if !a.open(c, shell.CheckIn) {
		return
	}
	key := c.Param("key")
	recs, err := a.rec.Roster(c.Request.Context(), key)
	if err != nil {
		a.fail(c, err)
		return
	}
	list := view.CheckInList(key, recs)
	if cl, ok := a.rec.Cache().Class(key); ok {
		list.ClassName = cl.Name
	}
	c.JSON(http.StatusOK, list)
}

func (a *API) markHandler(c *gin.Context) {
	status, err := attendance.ParseStatus(c.Param("status"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	rec, err := a.rec.SetAttendance(c.Request.Context(), c.Param("key"), c.Param("user"), status)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view.CheckInRow{Record: rec, Label: rec.Status.Label()})
}

func (a *API) bulkHandler(c *gin.Context) {
	status, err := attendance.ParseStatus(c.Param("status"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	key := c.Param("key")
	recs, err := a.rec.BulkMark(c.Request.Context(), key, status)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view.CheckInList(key, recs))
}

func (a *API) exportHandler(c *gin.Context) {
	key := c.Param("key")
	recs, err := a.rec.ExportClass(c.Request.Context(), key)
	if err != nil {
		a.fail(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.CSV(&buf, recs); err != nil {
		a.fail(c, err)
		return
	}
	middleware.GetLogger(c).InfoContext(c, "exported check-in list", "class", key, "rows", len(recs))
	c.Header("Content-Disposition", `attachment; filename="`+export.Filename(key)+`"`)
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}
