// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// WebhookEvent audit trail.
//
// Events are append-only: there is no update or delete path. They are
// queried by recency (admin diagnostics) or by id (replay investigation).
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/mboukas/go-onboard-backend/internal/domain"
)

// CreateWebhookEvent appends an audit row for a verified inbound delivery.
// headers and payload are stored exactly as received.
func CreateWebhookEvent(ctx context.Context, db *gorm.DB, eventType, tenantID string, headers, payload []byte) (*domain.WebhookEvent, error) {
	ev := &domain.WebhookEvent{
		ID:         uuid.NewString(),
		EventType:  eventType,
		TenantID:   tenantID,
		Headers:    datatypes.JSON(headers),
		Payload:    datatypes.JSON(payload),
		ReceivedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(ev).Error; err != nil {
		return nil, err
	}
	return ev, nil
}

// GetWebhookEvent fetches a single audit row by id, or ErrNotFound.
func GetWebhookEvent(ctx context.Context, db *gorm.DB, id string) (*domain.WebhookEvent, error) {
	var ev domain.WebhookEvent
	err := db.WithContext(ctx).Where("id = ?", id).First(&ev).Error
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// ListRecentWebhookEvents returns up to limit events ordered most recent
// first. A limit <= 0 defaults to 50.
func ListRecentWebhookEvents(ctx context.Context, db *gorm.DB, limit int) ([]domain.WebhookEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []domain.WebhookEvent
	err := db.WithContext(ctx).
		Order("received_at desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}
