// Package services – DispatchService
//
// This file implements the message dispatcher: it hands a rendered welcome
// DM to the messaging provider, normalizes the heterogeneous success/error
// outcomes into the send-log status vocabulary, and appends exactly one
// ledger row per attempt. Redispatch (used by the retry job) updates the
// existing row instead, so a deferred send that later succeeds never grows
// a second row for its event id.
package services

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mboukas/go-onboard-backend/internal/domain"
	"github.com/mboukas/go-onboard-backend/internal/messaging"
	"github.com/mboukas/go-onboard-backend/internal/repo"
)

// dmSendAttempts counts dispatch attempts by final ledger status.
var dmSendAttempts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "dm_send_attempts_total",
		Help: "Total DM dispatch attempts by outcome status.",
	},
	[]string{"status"},
)

func init() {
	prometheus.MustRegister(dmSendAttempts)
}

// DispatchRequest carries everything one dispatch attempt needs. MemberID
// identifies the membership the event was about regardless of whether a
// messaging identity was known at dispatch time; the retry job falls back
// to it for directory resolution.
type DispatchRequest struct {
	EventID    string
	TenantID   string
	MemberID   string
	UserID     string
	Username   string
	Message    string
	TemplateID *string
}

// DispatchService sends welcome DMs and owns the send-log ledger writes.
type DispatchService struct {
	DB       *gorm.DB
	Provider messaging.Provider
	Enabled  bool // DM_ENABLED; disabled dispatch records a failed row, sends nothing
}

// Dispatch attempts delivery and appends one send-log row recording the
// outcome. It returns the stored entry and a classification error:
//
//   - nil                    → status "sent"
//   - ErrRecipientUnresolved → status "deferred" (retry job will pick it up)
//   - ErrDispatchFailed      → status "failed" (includes missing credentials
//     and disabled dispatch; the error text says which)
//
// Errors from the ledger write itself are returned as-is; those are the
// only failures the caller should surface as a 500.
func (s *DispatchService) Dispatch(ctx context.Context, req DispatchRequest) (*domain.DmSendLogEntry, error) {
	tr := otel.Tracer("services/DispatchService")
	ctx, span := tr.Start(ctx, "Dispatch",
		trace.WithAttributes(
			attribute.String("event.id", req.EventID),
			attribute.String("tenant.id", req.TenantID),
		),
	)
	defer span.End()

	status, errText := s.attempt(ctx, req)

	entry, err := repo.CreateSendLog(ctx, s.DB, domain.DmSendLogEntry{
		EventID:    req.EventID,
		TenantID:   req.TenantID,
		MemberID:   req.MemberID,
		Recipient:  recipientOf(req),
		Status:     status,
		Error:      errText,
		Body:       req.Message,
		Preview:    req.Message,
		TemplateID: req.TemplateID,
	})
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			// A concurrent duplicate delivery already recorded 'sent'.
			return nil, ErrDuplicateEvent
		}
		return nil, err
	}

	dmSendAttempts.WithLabelValues(status).Inc()
	span.SetAttributes(attribute.String("dm.status", status))
	return entry, statusErr(status)
}

// Redispatch retries a previously deferred/failed entry with a freshly
// resolved user id, updating the same ledger row in place. On success the
// stored error is cleared.
func (s *DispatchService) Redispatch(ctx context.Context, entry *domain.DmSendLogEntry, req DispatchRequest) error {
	status, errText := s.attempt(ctx, req)

	if err := repo.MarkSendLogOutcome(ctx, s.DB, entry.ID, status, errText); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return ErrDuplicateEvent
		}
		return err
	}
	entry.Status = status
	entry.Error = errText
	dmSendAttempts.WithLabelValues(status).Inc()
	return statusErr(status)
}

// attempt performs the remote call and maps its outcome onto the ledger
// status vocabulary plus an optional error text. It never panics and never
// lets a provider error escape unclassified.
func (s *DispatchService) attempt(ctx context.Context, req DispatchRequest) (status string, errText *string) {
	if !s.Enabled {
		return domain.StatusFailed, strptr("dm dispatch disabled by configuration")
	}
	if req.UserID == "" && req.Username == "" {
		return domain.StatusDeferred, strptr(messaging.ErrNoRecipient.Error())
	}

	_, err := s.Provider.SendDirectMessage(ctx, messaging.SendRequest{
		TenantID: req.TenantID,
		UserID:   req.UserID,
		Username: req.Username,
		Message:  req.Message,
	})
	switch {
	case err == nil:
		return domain.StatusSent, nil
	case errors.Is(err, messaging.ErrNoRecipient):
		return domain.StatusDeferred, strptr(err.Error())
	default:
		// Missing credentials and exhausted candidates both land here.
		return domain.StatusFailed, strptr(err.Error())
	}
}

// statusErr maps a ledger status to the service-level sentinel the
// orchestrator branches on.
func statusErr(status string) error {
	switch status {
	case domain.StatusSent:
		return nil
	case domain.StatusDeferred:
		return ErrRecipientUnresolved
	default:
		return ErrDispatchFailed
	}
}

func recipientOf(req DispatchRequest) string {
	if req.UserID != "" {
		return req.UserID
	}
	return req.Username
}

func strptr(s string) *string { return &s }
