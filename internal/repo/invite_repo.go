// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// OnboardingInvite model.
//
// The consumption path is the interesting one: MarkInviteUsed performs a
// conditional update guarded by "used_at IS NULL" and inspects RowsAffected,
// which is the mutual-exclusion mechanism for concurrent submissions of the
// same invite. No lock beyond the store's per-row consistency is needed.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mboukas/go-onboard-backend/internal/domain"
)

// CreateInvite inserts an invite row for (tenantID, memberID) carrying the
// signed token and expiring at expiresAt.
func CreateInvite(ctx context.Context, db *gorm.DB, tenantID, memberID, token string, expiresAt time.Time) (*domain.OnboardingInvite, error) {
	inv := &domain.OnboardingInvite{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		MemberID:  memberID,
		Token:     token,
		IssuedAt:  time.Now().UTC(),
		ExpiresAt: expiresAt,
	}
	if err := db.WithContext(ctx).Create(inv).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return inv, nil
}

// GetInvite fetches the invite matching the exact (tenant, member, token)
// triple, or ErrNotFound. All three components must match; a valid token
// presented against the wrong tenant or member is a miss.
func GetInvite(ctx context.Context, db *gorm.DB, tenantID, memberID, tok string) (*domain.OnboardingInvite, error) {
	var inv domain.OnboardingInvite
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND member_id = ? AND token = ?", tenantID, memberID, tok).
		First(&inv).Error
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// HasInvite reports whether any invite row (in any state) exists for
// (tenantID, memberID). Used to refuse lead submissions from members who
// were never issued a link.
func HasInvite(ctx context.Context, db *gorm.DB, tenantID, memberID string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.OnboardingInvite{}).
		Where("tenant_id = ? AND member_id = ?", tenantID, memberID).
		Count(&n).Error
	return n > 0, err
}

// MarkInviteUsed consumes an invite: it sets used_at = now only where
// used_at is still NULL. Zero rows affected means a concurrent submission
// won the race (or the invite was already consumed) and ErrNotFound is
// returned so the caller can fail gracefully.
func MarkInviteUsed(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Model(&domain.OnboardingInvite{}).
		Where("id = ? AND used_at IS NULL", id).
		Update("used_at", time.Now().UTC())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
