// Package services – RetryService
//
// This file implements the deferred-send retry pass. It is designed to run
// as a scheduled, short-lived invocation (cron-like), not a daemon: one Run
// scans deferred ledger entries within the recency window, re-resolves each
// recipient through the cached identity map (falling back to a tenant-scoped
// directory search), and redispatches. Outcomes update the existing row
// (sent clears the error, failed records the new one) so the at-most-one
// 'sent' row invariant per event id is preserved.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/mboukas/go-onboard-backend/internal/domain"
	"github.com/mboukas/go-onboard-backend/internal/messaging"
	"github.com/mboukas/go-onboard-backend/internal/repo"
)

// RetryStats summarizes one retry pass.
type RetryStats struct {
	Scanned  int
	Sent     int
	Deferred int
	Failed   int
}

// RetryService re-drives deferred DM sends.
type RetryService struct {
	DB       *gorm.DB
	Dispatch *DispatchService
	Resolver *messaging.Resolver
	Window   time.Duration // recency bound for the scan, e.g. 48h
}

// Run performs one retry pass. Per-entry failures never abort the pass;
// only the initial scan error is returned.
func (s *RetryService) Run(ctx context.Context) (RetryStats, error) {
	var stats RetryStats

	entries, err := repo.ListDeferredSends(ctx, s.DB, s.Window)
	if err != nil {
		return stats, err
	}
	stats.Scanned = len(entries)

	for i := range entries {
		entry := &entries[i]
		if err := s.retryOne(ctx, entry); err != nil {
			log.Warn().
				Err(err).
				Str("event_id", entry.EventID).
				Str("tenant_id", entry.TenantID).
				Msg("retry pass: entry errored")
		}
		switch entry.Status {
		case domain.StatusSent:
			stats.Sent++
		case domain.StatusDeferred:
			stats.Deferred++
		case domain.StatusFailed:
			stats.Failed++
		}
	}

	log.Info().
		Int("scanned", stats.Scanned).
		Int("sent", stats.Sent).
		Int("deferred", stats.Deferred).
		Int("failed", stats.Failed).
		Msg("deferred-send retry pass complete")
	return stats, nil
}

// retryOne re-resolves the entry's recipient and redispatches the stored
// message body. Entries deferred because the event carried no messaging
// identity at all have an empty Recipient; the member id recorded on the
// row is used for the directory search instead. When resolution still
// fails the entry simply stays deferred for a later pass (until it ages
// out of the window).
func (s *RetryService) retryOne(ctx context.Context, entry *domain.DmSendLogEntry) error {
	handle := entry.Recipient
	if handle == "" {
		handle = entry.MemberID
	}

	userID, err := s.Resolver.Resolve(ctx, entry.TenantID, handle)
	if err != nil {
		if errors.Is(err, messaging.ErrNoRecipient) {
			return nil // still unresolvable; keep deferred
		}
		return err
	}

	err = s.Dispatch.Redispatch(ctx, entry, DispatchRequest{
		EventID:    entry.EventID,
		TenantID:   entry.TenantID,
		MemberID:   entry.MemberID,
		UserID:     userID,
		Username:   entry.Recipient,
		Message:    entry.Body,
		TemplateID: entry.TemplateID,
	})
	if err != nil && !errors.Is(err, ErrRecipientUnresolved) && !errors.Is(err, ErrDispatchFailed) {
		return err
	}
	return nil
}
