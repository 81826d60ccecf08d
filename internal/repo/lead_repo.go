// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Lead model.
// Leads are write-once; updates are intentionally not provided.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/mboukas/go-onboard-backend/internal/domain"
)

// CreateLead inserts a submitted onboarding response for (tenantID, memberID).
// responses is the raw question-answer map, JSON-encoded by the caller.
func CreateLead(ctx context.Context, db *gorm.DB, tenantID, memberID string, email *string, responses []byte) (*domain.Lead, error) {
	l := &domain.Lead{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		MemberID:  memberID,
		Email:     email,
		Responses: datatypes.JSON(responses),
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(l).Error; err != nil {
		return nil, err
	}
	return l, nil
}

// CountLeads returns the number of leads owned by tenantID.
func CountLeads(ctx context.Context, db *gorm.DB, tenantID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Lead{}).
		Where("tenant_id = ?", tenantID).
		Count(&total).Error
	return total, err
}

// ListLeadsPage returns a page of leads for tenantID, newest first. Every
// query is tenant-scoped; cross-tenant reads are not expressible here.
func ListLeadsPage(ctx context.Context, db *gorm.DB, tenantID string, offset, limit int) ([]domain.Lead, error) {
	var out []domain.Lead
	err := db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
