package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/semanticallynull/spinroom/internal/reconcile"
	"github.com/semanticallynull/spinroom/internal/shell"
	"github.com/semanticallynull/spinroom/internal/view"
	"github.com/semanticallynull/spinroom/profile"
)

type creditsRequest struct {
	Delta int `json:"delta"`
}

type inviteRequest struct {
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
	Phone    string `json:"phone"`
	Credits  int    `json:"credits"`
}

type profileRequest struct {
	FullName         string `json:"fullName"`
	Phone            string `json:"phone"`
	Role             string `json:"role"`
	CreditsRemaining int    `json:"creditsRemaining"`
	Notes            string `json:"notes"`
}

type profileResponse struct {
	ID               string       `json:"id"`
	FullName         string       `json:"fullName"`
	Phone            string       `json:"phone,omitempty"`
	Notes            string       `json:"notes,omitempty"`
	CreditsRemaining int          `json:"creditsRemaining"`
	IsActive         bool         `json:"isActive"`
	Role             profile.Role `json:"role"`
}

func toProfileResponse(p profile.Profile) profileResponse {
	return profileResponse{
		ID:               p.ID,
		FullName:         p.FullName,
		Phone:            p.Phone.String,
		Notes:            p.Notes.String,
		CreditsRemaining: p.CreditsRemaining,
		IsActive:         p.IsActive,
		Role:             p.Role,
	}
}

func (a *API) clientsHandler(c *gin.Context) {
	if !a.open(c, shell.Clients) {
		return
	}
	c.JSON(http.StatusOK, view.Clients(a.rec.Cache().Profiles(), c.Query("q")))
}

func (a *API) usersHandler(c *gin.Context) {
	if !a.open(c, shell.Users) {
		return
	}
	c.JSON(http.StatusOK, view.Users(a.rec.Cache().Profiles()))
}

// creditsHandler adds or removes one credit.
func (a *API) creditsHandler(c *gin.Context) {
	var req creditsRequest
	if err := c.ShouldBindJSON(&req); err != nil || (req.Delta != 1 && req.Delta != -1) {
		badRequest(c, "delta must be 1 or -1")
		return
	}
	p, err := a.rec.AdjustCredits(c.Request.Context(), c.Param("id"), req.Delta)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toProfileResponse(p))
}

func (a *API) inviteClientHandler(c *gin.Context) {
	a.invite(c, func(req *inviteRequest) { req.Role = string(profile.RoleClient) })
}

func (a *API) inviteUserHandler(c *gin.Context) {
	a.invite(c, func(req *inviteRequest) {
		if req.Role == "" {
			req.Role = string(profile.RoleInstructor)
		}
		req.Credits = 0
	})
}

func (a *API) invite(c *gin.Context, fix func(*inviteRequest)) {
	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	fix(&req)

	err := a.rec.Invite(c.Request.Context(), reconcile.Invitation{
		Email:    req.Email,
		FullName: req.FullName,
		Role:     profile.Role(req.Role),
		Phone:    req.Phone,
		Credits:  req.Credits,
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"email": req.Email, "message": "Invitación enviada"})
}

func (a *API) updateProfileHandler(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	p, err := a.rec.UpdateProfile(c.Request.Context(), c.Param("id"), profile.Edit{
		FullName:         req.FullName,
		Phone:            req.Phone,
		Role:             profile.Role(req.Role),
		CreditsRemaining: req.CreditsRemaining,
		Notes:            req.Notes,
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toProfileResponse(p))
}

func (a *API) toggleActiveHandler(c *gin.Context) {
	p, err := a.rec.ToggleActive(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toProfileResponse(p))
}
