// Package services – WebhookService
//
// This file implements the webhook orchestrator, the top-level pipeline for
// inbound membership events: verify signature → normalize the envelope →
// persist the audit row → dedup check → issue invite → render template →
// dispatch DM → respond. Every expected failure mode maps to a terminal
// outcome the handler can translate to 2xx/4xx; only store failures
// propagate as errors (and become 500s).
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mboukas/go-onboard-backend/internal/repo"
	"github.com/mboukas/go-onboard-backend/internal/signature"
	"github.com/mboukas/go-onboard-backend/internal/sysutil"
	"github.com/mboukas/go-onboard-backend/internal/template"
)

// Terminal outcomes of webhook processing. The handler maps these onto HTTP
// statuses: unauthorized → 401, malformed → 400, everything else → 200.
const (
	OutcomeUnauthorized = "unauthorized"
	OutcomeMalformed    = "malformed"
	OutcomeIgnored      = "ignored"
	OutcomeDuplicate    = "duplicate"
	OutcomeDelivered    = "delivered"
	OutcomeDeferred     = "deferred"
	OutcomeFailed       = "failed"
)

// triggerTypes are the canonical event types that start the onboarding flow.
// Everything else is audited and acknowledged with no further action.
var triggerTypes = map[string]bool{
	"member.created": true,
	"member.joined":  true,
}

// typeAliases normalizes the legacy vocabulary observed from older sender
// versions onto the canonical one during parsing, so exactly one vocabulary
// exists past this point.
var typeAliases = map[string]string{
	"membership.went_valid": "member.created",
	"membership_went_valid": "member.created",
	"member_created":        "member.created",
	"member_joined":         "member.joined",
}

// InboundEvent is the one strict internal shape every tolerated envelope
// variant is normalized into before any business logic runs.
type InboundEvent struct {
	EventID  string // envelope id, or sha256(raw body) when absent
	Type     string // canonical event type
	TenantID string
	MemberID string
	UserID   string // platform user id when the envelope carries one
	Username string
	Name     string // display name when present
	Tenant   string // community display name when present
}

// ProcessResult is the terminal state of one webhook delivery.
type ProcessResult struct {
	Outcome string
	EventID string
	Reason  string
}

// WebhookService orchestrates inbound webhook processing.
type WebhookService struct {
	DB            *gorm.DB
	Invites       *InviteService
	Dispatch      *DispatchService
	Templates     *TemplateService
	WebhookSecret string
}

// Process runs the full pipeline for one delivery. rawBody must be the
// exact bytes received; sigHeader is the first recognized signature header
// value; rawHeaders is the JSON-encoded header set for the audit row.
//
// Returned errors indicate unexpected internal failures only (audit or
// ledger writes); all expected failure modes are encoded in the result.
func (s *WebhookService) Process(ctx context.Context, rawBody []byte, sigHeader string, rawHeaders []byte) (*ProcessResult, error) {
	tr := otel.Tracer("services/WebhookService")
	ctx, span := tr.Start(ctx, "Process")
	defer span.End()

	if s.WebhookSecret == "" {
		return nil, fmt.Errorf("%w: WEBHOOK_SECRET", ErrConfigMissing)
	}

	// received → unauthorized
	if !signature.Verify(rawBody, sigHeader, s.WebhookSecret) {
		return &ProcessResult{Outcome: OutcomeUnauthorized, Reason: ErrSignatureInvalid.Error()}, nil
	}

	// verified → malformed
	ev, err := ParseInboundEvent(rawBody)
	if err != nil {
		return &ProcessResult{Outcome: OutcomeMalformed, Reason: err.Error()}, nil
	}
	span.SetAttributes(
		attribute.String("event.id", ev.EventID),
		attribute.String("event.type", ev.Type),
		attribute.String("tenant.id", ev.TenantID),
	)

	// Audit row is written post-verification, regardless of what follows.
	if _, err := repo.CreateWebhookEvent(ctx, s.DB, ev.Type, ev.TenantID, rawHeaders, rawBody); err != nil {
		return nil, err
	}

	// Non-trigger types are acknowledged with no side effects beyond audit.
	if !triggerTypes[ev.Type] {
		return &ProcessResult{Outcome: OutcomeIgnored, EventID: ev.EventID}, nil
	}

	// verified → duplicate
	done, err := repo.HasSucceeded(ctx, s.DB, ev.EventID)
	if err != nil {
		return nil, err
	}
	if done {
		return &ProcessResult{Outcome: OutcomeDuplicate, EventID: ev.EventID}, nil
	}

	// processing: invite → link → template → dispatch
	_, link, err := s.Invites.Issue(ctx, ev.TenantID, ev.MemberID)
	if err != nil {
		return nil, err
	}

	communityName := ev.Tenant
	if communityName == "" {
		communityName = "the community"
	}
	memberName := sysutil.FirstNonEmpty(ev.Name, ev.Username)
	message, templateID, err := s.Templates.RenderFor(ctx, ev.TenantID,
		template.Vars(memberName, communityName, link))
	if err != nil {
		return nil, err
	}

	_, err = s.Dispatch.Dispatch(ctx, DispatchRequest{
		EventID:    ev.EventID,
		TenantID:   ev.TenantID,
		MemberID:   ev.MemberID,
		UserID:     ev.UserID,
		Username:   ev.Username,
		Message:    message,
		TemplateID: templateID,
	})
	switch {
	case err == nil:
		return &ProcessResult{Outcome: OutcomeDelivered, EventID: ev.EventID}, nil
	case errors.Is(err, ErrRecipientUnresolved):
		return &ProcessResult{Outcome: OutcomeDeferred, EventID: ev.EventID, Reason: ErrRecipientUnresolved.Error()}, nil
	case errors.Is(err, ErrDuplicateEvent):
		return &ProcessResult{Outcome: OutcomeDuplicate, EventID: ev.EventID}, nil
	case errors.Is(err, ErrDispatchFailed):
		// Recorded in the ledger; the sender still gets a 2xx so it does
		// not retry-storm us. The retry job owns the follow-up.
		log.Warn().Str("event_id", ev.EventID).Str("tenant_id", ev.TenantID).Msg("dm dispatch failed; recorded for retry")
		return &ProcessResult{Outcome: OutcomeFailed, EventID: ev.EventID, Reason: ErrDispatchFailed.Error()}, nil
	default:
		return nil, err
	}
}

// envelope mirrors the tolerated inbound JSON surface. Senders have shipped
// several field spellings; all optional here, reconciled in ParseInboundEvent.
type envelope struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Event  string `json:"event"`
	Action string `json:"action"`
	Data   struct {
		ID           string `json:"id"`
		MemberID     string `json:"member_id"`
		BusinessID   string `json:"business_id"`
		CompanyID    string `json:"company_id"`
		CommunityID  string `json:"community_id"`
		BusinessName string `json:"business_name"`
		CompanyName  string `json:"company_name"`
		User         struct {
			ID       string `json:"id"`
			Username string `json:"username"`
			Name     string `json:"name"`
		} `json:"user"`
	} `json:"data"`
}

// ParseInboundEvent normalizes a raw webhook body into the strict
// InboundEvent shape. Unrecognized shapes return ErrMalformedPayload.
func ParseInboundEvent(rawBody []byte) (*InboundEvent, error) {
	var env envelope
	if err := json.Unmarshal(rawBody, &env); err != nil {
		return nil, ErrMalformedPayload
	}

	typ := sysutil.FirstNonEmpty(env.Type, env.Event, env.Action)
	if typ == "" {
		return nil, ErrMalformedPayload
	}
	typ = strings.ToLower(strings.TrimSpace(typ))
	if canonical, ok := typeAliases[typ]; ok {
		typ = canonical
	}

	tenant := sysutil.FirstNonEmpty(env.Data.BusinessID, env.Data.CompanyID, env.Data.CommunityID)
	member := sysutil.FirstNonEmpty(env.Data.MemberID, env.Data.ID)
	if triggerTypes[typ] && (tenant == "" || member == "") {
		return nil, ErrMalformedPayload
	}

	eventID := env.ID
	if eventID == "" {
		sum := sha256.Sum256(rawBody)
		eventID = "evt_" + hex.EncodeToString(sum[:16])
	}

	return &InboundEvent{
		EventID:  eventID,
		Type:     typ,
		TenantID: tenant,
		MemberID: member,
		UserID:   env.Data.User.ID,
		Username: env.Data.User.Username,
		Name:     env.Data.User.Name,
		Tenant:   sysutil.FirstNonEmpty(env.Data.BusinessName, env.Data.CompanyName),
	}, nil
}
