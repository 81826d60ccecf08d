// Lead HTTP handler.
//
// This file exposes onboarding response submission:
//   - POST /onboarding/{creatorId}/responses
//
// Submission and invite consumption are deliberately two separate calls
// (the onboarding page validates, submits responses, then consumes the
// link); a failed submission is therefore retryable by the member without
// double-counting, as long as the invite has not been marked used yet.
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

// LeadService is the lead-capture contract consumed by HTTP handlers.
type LeadService interface {
	// Submit stores one onboarding response set for (tenant, member).
	Submit(ctx context.Context, tenantID, memberID string, email *string, responses map[string]string) (*domain.Lead, error)
}

// SubmitResponsesRequest is the JSON payload for submitting onboarding answers.
type SubmitResponsesRequest struct {
	MemberID  string            `json:"memberId" binding:"required" example:"mem_1"`
	Email     *string           `json:"email,omitempty" example:"ana@example.com"`
	Responses map[string]string `json:"responses" binding:"required"`
}

// SubmitResponses godoc
// @ID          submitResponses
// @Summary     Submit onboarding responses
// @Description Stores the member's question answers as a lead. Requires that
// @Description an invite was issued to this member at some point; the invite
// @Description itself is consumed by the separate /invites/use call.
// @Tags        Onboarding
// @Accept      json
// @Produce     json
// @Param       creatorId path string true "Tenant (community) id"
// @Param       body body handlers.SubmitResponsesRequest true "Responses"
// @Success     200 {object} handlers.StatusResponse
// @Failure     400 {object} handlers.ErrorResponse "Invalid payload"
// @Failure     500 {object} handlers.ErrorResponse "Store failure"
// @Router      /onboarding/{creatorId}/responses [post]
func (h *Handlers) SubmitResponses(c *gin.Context) {
	creatorID := strings.TrimSpace(c.Param("creatorId"))
	if creatorID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "creatorId is required")
		return
	}

	var req SubmitResponsesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "memberId and responses are required")
		return
	}

	_, err := h.leadSvc.Submit(c.Request.Context(), creatorID, req.MemberID, req.Email, req.Responses)
	switch {
	case err == nil:
		ok(c, http.StatusOK, StatusResponse{OK: true})
	case errors.Is(err, services.ErrValidationFailed):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "responses must contain between 1 and 100 answers")
	case errors.Is(err, services.ErrInviteNotFound):
		ok(c, http.StatusOK, StatusResponse{OK: false, Reason: "not found"})
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}
