package api

import (
	"net/http"
	"testing"

	"github.com/semanticallynull/spinroom/internal/view"
)

func TestClientsGrid(t *testing.T) {
	ts := NewTestServer(t)

	w := ts.GET("/clients", asAdmin)
	expectStatus(t, w, http.StatusOK)
	var grid view.ClientGrid
	decode(t, w, &grid)
	if grid.Total != 2 || grid.Low != 1 {
		t.Errorf("unexpected totals %+v", grid)
	}

	decode(t, ts.GET("/clients?q=beto", asAdmin), &grid)
	if len(grid.Cards) != 1 || grid.Cards[0].ID != "c2" {
		t.Errorf("expected search to find Beto, got %+v", grid.Cards)
	}
}

func TestUsersGrid(t *testing.T) {
	ts := NewTestServer(t)

	var grid view.UserGrid
	decode(t, ts.GET("/users", asAdmin), &grid)
	if grid.Total != 1 || grid.Instructors != 1 || grid.Admins != 0 {
		t.Errorf("unexpected totals %+v", grid)
	}
}

func TestAdjustCredits(t *testing.T) {
	ts := NewTestServer(t)
	expectStatus(t, ts.GET("/clients", asAdmin), http.StatusOK)

	expectStatus(t, ts.POST("/clients/c1/credits", creditsRequest{Delta: 2}, asAdmin), http.StatusBadRequest)

	w := ts.POST("/clients/c1/credits", creditsRequest{Delta: -1}, asAdmin)
	expectStatus(t, w, http.StatusOK)
	var p profileResponse
	decode(t, w, &p)
	if p.CreditsRemaining != 0 {
		t.Errorf("expected 0 credits, got %d", p.CreditsRemaining)
	}

	// The write for c1 never completes in these tests.
	expectStatus(t, ts.POST("/clients/c1/credits", creditsRequest{Delta: -1}, asAdmin), http.StatusConflict)

	w = ts.POST("/clients/c2/credits", creditsRequest{Delta: 1}, asAdmin)
	expectStatus(t, w, http.StatusOK)
	decode(t, w, &p)
	if p.CreditsRemaining != 10 {
		t.Errorf("expected 10 credits, got %d", p.CreditsRemaining)
	}

	expectStatus(t, ts.POST("/clients/nobody/credits", creditsRequest{Delta: 1}, asAdmin), http.StatusNotFound)
}

func TestNegativeCreditsRejected(t *testing.T) {
	ts := NewTestServer(t)
	ts.GW.profiles[0].CreditsRemaining = 0
	expectStatus(t, ts.GET("/clients", asAdmin), http.StatusOK)

	w := ts.POST("/clients/c1/credits", creditsRequest{Delta: -1}, asAdmin)
	expectStatus(t, w, http.StatusBadRequest)
	var resp errorResponse
	decode(t, w, &resp)
	if resp.Code != "VALIDATION" {
		t.Errorf("expected VALIDATION, got %q", resp.Code)
	}
}

func TestInvite(t *testing.T) {
	ts := NewTestServer(t)

	w := ts.POST("/clients/invite", inviteRequest{Email: "nueva@correo.mx", FullName: "Nueva Clienta", Credits: 5, Role: "admin"}, asAdmin)
	expectStatus(t, w, http.StatusAccepted)

	w = ts.POST("/users/invite", inviteRequest{Email: "coach@studio.mx", FullName: "Coach", Credits: 5}, asAdmin)
	expectStatus(t, w, http.StatusAccepted)

	sent := ts.Auth.Sent()
	if len(sent) != 2 {
		t.Fatalf("expected 2 invites, got %d", len(sent))
	}
	if sent[0].Role != "client" || sent[0].Credits == nil || *sent[0].Credits != 5 {
		t.Errorf("client invite should carry role client and credits, got %+v", sent[0])
	}
	if sent[1].Role != "instructor" || sent[1].Credits != nil {
		t.Errorf("staff invite should not carry credits, got %+v", sent[1])
	}

	expectStatus(t, ts.POST("/clients/invite", inviteRequest{Email: "nope", FullName: "X"}, asAdmin), http.StatusBadRequest)
	expectStatus(t, ts.POST("/users/invite", inviteRequest{Email: "a@b.mx", FullName: "X", Role: "owner"}, asAdmin), http.StatusBadRequest)
}

func TestUpdateProfileAndToggle(t *testing.T) {
	ts := NewTestServer(t)
	expectStatus(t, ts.GET("/users", asAdmin), http.StatusOK)

	w := ts.PUT("/profiles/s1", profileRequest{FullName: " Carla Ortiz ", Role: "admin", Phone: "555"}, asAdmin)
	expectStatus(t, w, http.StatusOK)
	var p profileResponse
	decode(t, w, &p)
	if p.FullName != "Carla Ortiz" || p.Role != "admin" {
		t.Errorf("unexpected profile %+v", p)
	}

	expectStatus(t, ts.PUT("/profiles/s1", profileRequest{FullName: ""}, asAdmin), http.StatusBadRequest)

	w = ts.POST("/profiles/s1/toggle-active", nil, asAdmin)
	expectStatus(t, w, http.StatusOK)
	decode(t, w, &p)
	if p.IsActive {
		t.Errorf("expected profile to be deactivated")
	}
}
