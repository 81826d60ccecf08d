// Package services – LeadService
//
// This file implements lead capture: persisting submitted onboarding
// responses and optionally forwarding each new lead to a tenant-operated
// webhook endpoint, HMAC-signed the same way our own inbound deliveries are.
// Forwarding is best-effort; a slow or unreachable endpoint never fails
// the submission.
package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/mboukas/go-onboard-backend/internal/domain"
	"github.com/mboukas/go-onboard-backend/internal/repo"
)

// maxResponses caps the number of question-answer pairs per submission.
const maxResponses = 100

// LeadService persists onboarding responses and forwards them downstream.
type LeadService struct {
	DB *gorm.DB

	// ForwardURL/ForwardSecret configure optional outbound lead delivery.
	// Empty URL disables forwarding.
	ForwardURL    string
	ForwardSecret string

	// Client must carry a short timeout; forwarding shares the webhook
	// handler's latency budget with the member-facing response.
	Client *http.Client
}

// Submit stores one lead for (tenantID, memberID). The member must have been
// issued an invite at some point; submissions from members who never held a
// link are rejected with ErrInviteNotFound. Consuming the invite is the
// caller's separate step (the two-call external contract).
//
// Errors: ErrValidationFailed for bad shapes, ErrInviteNotFound as above,
// store errors otherwise.
func (s *LeadService) Submit(ctx context.Context, tenantID, memberID string, email *string, responses map[string]string) (*domain.Lead, error) {
	if strings.TrimSpace(tenantID) == "" || strings.TrimSpace(memberID) == "" {
		return nil, ErrValidationFailed
	}
	if len(responses) == 0 || len(responses) > maxResponses {
		return nil, ErrValidationFailed
	}
	if email != nil && strings.TrimSpace(*email) == "" {
		email = nil
	}

	ok, err := repo.HasInvite(ctx, s.DB, tenantID, memberID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInviteNotFound
	}

	raw, err := json.Marshal(responses)
	if err != nil {
		return nil, ErrValidationFailed
	}

	lead, err := repo.CreateLead(ctx, s.DB, tenantID, memberID, email, raw)
	if err != nil {
		return nil, err
	}

	s.forward(ctx, lead)
	return lead, nil
}

// forward delivers the lead to the configured endpoint, signing the body
// with HMAC-SHA256 over "{timestamp}.{body}". Failures are logged, never
// surfaced to the submitting member.
func (s *LeadService) forward(ctx context.Context, lead *domain.Lead) {
	if s.ForwardURL == "" || s.Client == nil {
		return
	}

	body, err := json.Marshal(lead)
	if err != nil {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.ForwardURL, bytes.NewReader(body))
	if err != nil {
		log.Warn().Err(err).Str("lead_id", lead.ID).Msg("lead forward request build failed")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	if s.ForwardSecret != "" {
		ts := strconv.FormatInt(time.Now().Unix(), 10)
		mac := hmac.New(sha256.New, []byte(s.ForwardSecret))
		mac.Write([]byte(ts + "." + string(body)))
		req.Header.Set("X-Timestamp", ts)
		req.Header.Set("X-Signature", "sha256="+hex.EncodeToString(mac.Sum(nil)))
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Warn().Err(err).Str("lead_id", lead.ID).Msg("lead forward failed")
		}
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Warn().Int("status", resp.StatusCode).Str("lead_id", lead.ID).Msg("lead forward rejected")
	}
}
