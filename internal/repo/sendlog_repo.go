// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the DM send
// log, the per-event ledger behind the at-most-once delivery guarantee.
//
// Invariant: for a given event id, at most one row has status 'sent'. The
// partial unique index created in AutoMigrate enforces this at the store
// level; CreateSendLog and MarkSendLogOutcome surface violations as
// ErrDuplicate so a racing duplicate delivery degrades to a no-op.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mboukas/go-onboard-backend/internal/domain"
)

// PreviewMaxRunes caps the stored message preview length.
const PreviewMaxRunes = 140

// HasSucceeded reports whether a 'sent' row already exists for eventID.
// The orchestrator checks this before dispatching so sender-side webhook
// retries become no-ops.
func HasSucceeded(ctx context.Context, db *gorm.DB, eventID string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.DmSendLogEntry{}).
		Where("event_id = ? AND status = ?", eventID, domain.StatusSent).
		Count(&n).Error
	return n > 0, err
}

// CreateSendLog appends one row for a dispatch attempt. The message preview
// is truncated to PreviewMaxRunes. A concurrent duplicate 'sent' insert for
// the same event id returns ErrDuplicate.
func CreateSendLog(ctx context.Context, db *gorm.DB, entry domain.DmSendLogEntry) (*domain.DmSendLogEntry, error) {
	entry.ID = uuid.NewString()
	entry.Preview = TruncatePreview(entry.Preview)
	entry.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(&entry).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return &entry, nil
}

// MarkSendLogOutcome updates the status and error text of an existing row in
// place. The retry job uses this so a deferred attempt that later succeeds
// never grows a second row for the same event id. A nil errText clears the
// stored error.
func MarkSendLogOutcome(ctx context.Context, db *gorm.DB, id, status string, errText *string) error {
	res := db.WithContext(ctx).
		Model(&domain.DmSendLogEntry{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"error":      errText,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return ErrDuplicate
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRecentSends returns up to limit rows ordered most recent first.
// A limit <= 0 defaults to 50.
func ListRecentSends(ctx context.Context, db *gorm.DB, limit int) ([]domain.DmSendLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []domain.DmSendLogEntry
	err := db.WithContext(ctx).
		Order("created_at desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListDeferredSends returns deferred rows created within the recency window,
// oldest first so retries drain in arrival order.
func ListDeferredSends(ctx context.Context, db *gorm.DB, window time.Duration) ([]domain.DmSendLogEntry, error) {
	cutoff := time.Now().UTC().Add(-window)
	var out []domain.DmSendLogEntry
	err := db.WithContext(ctx).
		Where("status = ? AND created_at >= ?", domain.StatusDeferred, cutoff).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// TruncatePreview clips s to PreviewMaxRunes runes.
func TruncatePreview(s string) string {
	r := []rune(s)
	if len(r) <= PreviewMaxRunes {
		return s
	}
	return string(r[:PreviewMaxRunes])
}
