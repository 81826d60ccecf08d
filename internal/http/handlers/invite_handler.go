// Invite HTTP handlers.
//
// This file exposes the magic-link lifecycle endpoints consumed by the
// onboarding page:
//   - GET  /invites/validate   (check a link before rendering the form)
//   - POST /invites/use        (consume the link on submission)
//
// Lifecycle failures return ok=false with a short human-readable reason and
// HTTP 200: the onboarding UI branches on the reason string, and an expired
// link is an expected terminal state, not a transport error.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mboukas/go-onboard-backend/internal/domain"
	"github.com/mboukas/go-onboard-backend/internal/services"
)

// InviteService is the invite lifecycle contract consumed by HTTP handlers.
type InviteService interface {
	// Validate checks a presented (tenant, member, token) triple.
	Validate(ctx context.Context, tenantID, memberID, tok string) (*domain.OnboardingInvite, error)
	// Use validates then atomically consumes the invite.
	Use(ctx context.Context, tenantID, memberID, tok string) error
}

// UseInviteRequest is the JSON payload for consuming an invite.
type UseInviteRequest struct {
	CreatorID string `json:"creatorId" binding:"required" example:"biz_1"`
	MemberID  string `json:"memberId"  binding:"required" example:"mem_1"`
	Token     string `json:"t"         binding:"required"`
}

// ValidateInvite godoc
// @ID          validateInvite
// @Summary     Validate an onboarding invite
// @Description Checks that the magic-link token matches a stored invite that
// @Description is neither used nor expired.
// @Tags        Invites
// @Produce     json
// @Param       creatorId query string true "Tenant (community) id"
// @Param       memberId  query string true "Member id"
// @Param       t         query string true "Invite token"
// @Success     200 {object} handlers.StatusResponse
// @Failure     400 {object} handlers.ErrorResponse "Missing parameters"
// @Router      /invites/validate [get]
func (h *Handlers) ValidateInvite(c *gin.Context) {
	creatorID := strings.TrimSpace(c.Query("creatorId"))
	memberID := strings.TrimSpace(c.Query("memberId"))
	tok := strings.TrimSpace(c.Query("t"))
	if creatorID == "" || memberID == "" || tok == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "creatorId, memberId and t are required")
		return
	}

	if _, err := h.inviteSvc.Validate(c.Request.Context(), creatorID, memberID, tok); err != nil {
		status, reason := inviteOutcome(err)
		if status != http.StatusOK {
			fail(c, status, ErrCodeInternal, "internal server error")
			return
		}
		ok(c, http.StatusOK, StatusResponse{OK: false, Reason: reason})
		return
	}
	ok(c, http.StatusOK, StatusResponse{OK: true})
}

// UseInvite godoc
// @ID          useInvite
// @Summary     Consume an onboarding invite
// @Description Marks the invite used. Consumption is an atomic conditional
// @Description update; a concurrent double-submission loses the race and
// @Description receives reason "already used".
// @Tags        Invites
// @Accept      json
// @Produce     json
// @Param       body body handlers.UseInviteRequest true "Invite reference"
// @Success     200 {object} handlers.StatusResponse
// @Failure     400 {object} handlers.ErrorResponse "Invalid payload"
// @Router      /invites/use [post]
func (h *Handlers) UseInvite(c *gin.Context) {
	var req UseInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "creatorId, memberId and t are required")
		return
	}

	if err := h.inviteSvc.Use(c.Request.Context(), req.CreatorID, req.MemberID, req.Token); err != nil {
		status, reason := inviteOutcome(err)
		if status != http.StatusOK {
			fail(c, status, ErrCodeInternal, "internal server error")
			return
		}
		ok(c, http.StatusOK, StatusResponse{OK: false, Reason: reason})
		return
	}
	ok(c, http.StatusOK, StatusResponse{OK: true})
}

// inviteOutcome maps invite lifecycle errors onto (HTTP status, reason).
// Lifecycle states are 200 + reason; anything else is a store failure.
func inviteOutcome(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrInviteNotFound):
		return http.StatusOK, "not found"
	case errors.Is(err, services.ErrInviteExpired):
		return http.StatusOK, "expired"
	case errors.Is(err, services.ErrInviteAlreadyUsed):
		return http.StatusOK, "already used"
	default:
		return http.StatusInternalServerError, ""
	}
}
