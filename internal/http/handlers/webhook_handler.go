// Webhook HTTP handler.
//
// This file exposes the inbound delivery endpoint:
//   - POST /webhooks/membership
//
// The handler is transport-thin but has one hard rule: the raw body bytes
// are read before any JSON binding, because signature verification is
// order- and whitespace-sensitive and must never run against a
// re-serialized payload.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mboukas/go-onboard-backend/internal/http/middleware"
	"github.com/mboukas/go-onboard-backend/internal/services"
	"github.com/mboukas/go-onboard-backend/internal/signature"
)

// WebhookProcessor is the orchestration contract consumed by the handler.
type WebhookProcessor interface {
	// Process runs the verify→parse→dedup→invite→render→dispatch pipeline.
	Process(ctx context.Context, rawBody []byte, sigHeader string, rawHeaders []byte) (*services.ProcessResult, error)
}

// HandleWebhook godoc
// @ID          receiveMembershipWebhook
// @Summary     Receive a membership webhook
// @Description Verifies the sender signature, audits the event, and when the
// @Description event marks a new member, issues an onboarding invite and
// @Description dispatches the welcome DM. Senders always get a 2xx for
// @Description application-level outcomes (duplicate, deferred, failed) so
// @Description they do not retry-storm; only signature and shape problems
// @Description are 4xx.
// @Tags        Webhooks
// @Accept      json
// @Produce     json
// @Param       Whop-Signature header string false "HMAC signature of the raw body"
// @Success     200 {object} handlers.StatusResponse
// @Failure     400 {object} handlers.ErrorResponse "Malformed payload"
// @Failure     401 {object} handlers.ErrorResponse "Signature rejected"
// @Failure     500 {object} handlers.ErrorResponse "Store failure"
// @Router      /webhooks/membership [post]
func (h *Handlers) HandleWebhook(c *gin.Context) {
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable body")
		return
	}

	sigHeader := signature.FromHeaders(c.GetHeader)
	rawHeaders, _ := json.Marshal(c.Request.Header)

	res, err := h.webhookSvc.Process(c.Request.Context(), rawBody, sigHeader, rawHeaders)
	if err != nil {
		if errors.Is(err, services.ErrConfigMissing) {
			fail(c, http.StatusInternalServerError, ErrCodeConfigMissing, "webhook processing not configured")
			return
		}
		middleware.LoggerFrom(c).Error().Err(err).Msg("webhook processing failed")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
		return
	}

	switch res.Outcome {
	case services.OutcomeUnauthorized:
		fail(c, http.StatusUnauthorized, ErrCodeSignatureInvalid, res.Reason)
	case services.OutcomeMalformed:
		fail(c, http.StatusBadRequest, ErrCodeMalformedPayload, res.Reason)
	default:
		ok(c, http.StatusOK, StatusResponse{
			OK:      true,
			Status:  res.Outcome,
			Reason:  res.Reason,
			EventID: res.EventID,
		})
	}
}
