// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the DmTemplate
// model, including the single-default invariant and the tenant → global →
// hardcoded selection order used when rendering welcome messages.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mboukas/go-onboard-backend/internal/domain"
)

// FallbackTemplateBody is used when neither a tenant template nor a global
// default exists. It keeps the welcome DM working on a fresh install.
const FallbackTemplateBody = "Welcome to {{community_name}}, {{member_name}}! " +
	"Tell us a bit about yourself here: {{onboarding_link}}"

// CreateTemplate inserts a template. tenantID nil makes it a global-scope
// template shared across tenants.
func CreateTemplate(ctx context.Context, db *gorm.DB, tenantID *string, name, body string, isDefault bool) (*domain.DmTemplate, error) {
	t := &domain.DmTemplate{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Name:      name,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(t).Error; err != nil {
			return err
		}
		if isDefault {
			return setDefaultLocked(tx, tenantID, t.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	t.IsDefault = isDefault
	return t, nil
}

// ListTemplates returns all templates visible to tenantID: its own rows plus
// global-scope rows, most recently created first.
func ListTemplates(ctx context.Context, db *gorm.DB, tenantID string) ([]domain.DmTemplate, error) {
	var out []domain.DmTemplate
	err := db.WithContext(ctx).
		Where("tenant_id = ? OR tenant_id IS NULL", tenantID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// SetDefaultTemplate marks template id as the default within its tenant
// scope, unsetting any previous default in the same transaction so the
// at-most-one invariant holds at every commit point.
func SetDefaultTemplate(ctx context.Context, db *gorm.DB, tenantID *string, id string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t domain.DmTemplate
		q := tx.Where("id = ?", id)
		if tenantID == nil {
			q = q.Where("tenant_id IS NULL")
		} else {
			q = q.Where("tenant_id = ?", *tenantID)
		}
		if err := q.First(&t).Error; err != nil {
			return err
		}
		return setDefaultLocked(tx, tenantID, id)
	})
}

// setDefaultLocked unsets other defaults in scope and sets id. Must run
// inside a transaction.
func setDefaultLocked(tx *gorm.DB, tenantID *string, id string) error {
	scope := tx.Model(&domain.DmTemplate{})
	if tenantID == nil {
		scope = scope.Where("tenant_id IS NULL")
	} else {
		scope = scope.Where("tenant_id = ?", *tenantID)
	}
	if err := scope.Where("id <> ?", id).Update("is_default", false).Error; err != nil {
		return err
	}
	return tx.Model(&domain.DmTemplate{}).Where("id = ?", id).Update("is_default", true).Error
}

// SelectTemplate resolves the template used for a tenant's welcome DM:
// the tenant's most recent default (or, absent one, its most recent
// template), then the global default, then the hardcoded fallback. The
// returned template id is nil only for the hardcoded fallback.
//
// Tenant scoping is strict: another tenant's default is never considered.
func SelectTemplate(ctx context.Context, db *gorm.DB, tenantID string) (body string, templateID *string, err error) {
	var t domain.DmTemplate

	// Tenant scope: prefer the default, else the most recent row.
	err = db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("is_default desc, created_at desc").
		First(&t).Error
	if err == nil {
		return t.Body, &t.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, err
	}

	// Global default.
	err = db.WithContext(ctx).
		Where("tenant_id IS NULL AND is_default = ?", true).
		Order("created_at desc").
		First(&t).Error
	if err == nil {
		return t.Body, &t.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, err
	}

	return FallbackTemplateBody, nil, nil
}
