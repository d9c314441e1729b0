package acceptance

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/semanticallynull/spinroom/internal/view"
)

func TestCheckInBackendClass(t *testing.T) {
	ts := NewTestServer(t)
	classID := ts.CreateTestClass(t, "Rhythm & Power")
	if _, err := ts.DB.Exec(`
		INSERT INTO reservations (id, bike_id, class_id, user_name, credits_remaining)
		VALUES (gen_random_uuid(), 3, $1, 'Luis Pérez', 2)
	`, classID); err != nil {
		t.Fatalf("failed to create reservation: %v", err)
	}

	if w := ts.GET("/classes", asStaff); w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	w := ts.GET("/classes/"+classID+"/checkin", asStaff)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var list view.CheckIn
	decode(t, w, &list)
	if len(list.Rows) != 1 || list.Rows[0].UserName != "Luis Pérez" {
		t.Fatalf("expected the reserved rider, got %+v", list.Rows)
	}

	w = ts.POST("/classes/"+classID+"/checkin/"+url.PathEscape("Luis Pérez")+"/attended", nil, asStaff)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	// The list is served from the cache, so the mark shows while it is saved.
	decode(t, ts.GET("/classes/"+classID+"/checkin", asStaff), &list)
	if len(list.Rows) != 1 || list.Rows[0].Status != "attended" || list.Rows[0].CreditsRemaining != 1 {
		t.Errorf("expected the mark on reload, got %+v", list.Rows)
	}
	ts.Writes.Wait()

	var row struct {
		Status  string `db:"status"`
		Credits int    `db:"credits_remaining"`
		Bike    int    `db:"bike_number"`
	}
	if err := ts.DB.Get(&row, `
		SELECT status, credits_remaining, bike_number FROM attendances
		WHERE class_id = $1 AND user_name = 'Luis Pérez'
	`, classID); err != nil {
		t.Fatalf("failed to read attendance: %v", err)
	}
	if row.Status != "attended" || row.Credits != 1 || row.Bike != 3 {
		t.Errorf("unexpected attendance row %+v", row)
	}
}

func TestExportBackendClass(t *testing.T) {
	ts := NewTestServer(t)
	classID := ts.CreateTestClass(t, "Power Ride")
	ts.DB.Exec(`
		INSERT INTO reservations (id, bike_id, class_id, user_name, credits_remaining)
		VALUES (gen_random_uuid(), 5, $1, 'Sofía Ramos', 6)
	`, classID)

	ts.GET("/classes", asStaff)
	ts.GET("/classes/"+classID+"/checkin", asStaff)

	w := ts.GET("/classes/"+classID+"/export", asStaff)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Sofía Ramos") {
		t.Errorf("expected rider in export, got %q", w.Body.String())
	}
}
