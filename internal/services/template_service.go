// Package services – TemplateService
//
// This file implements welcome-template management: listing templates
// visible to a tenant, creating tenant or global templates, promoting a
// default (the repository unsets competitors transactionally so at most one
// default exists per scope), and resolving + rendering the message body for
// a tenant. There is no HTTP CRUD surface for templates; admin reads and
// the webhook pipeline are the consumers.
package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/mboukas/go-onboard-backend/internal/domain"
	"github.com/mboukas/go-onboard-backend/internal/repo"
	"github.com/mboukas/go-onboard-backend/internal/template"
)

// TemplateService manages DmTemplate rows and message rendering.
type TemplateService struct {
	DB *gorm.DB
}

// List returns the templates visible to tenantID (own + global), newest first.
func (s *TemplateService) List(ctx context.Context, tenantID string) ([]domain.DmTemplate, error) {
	return repo.ListTemplates(ctx, s.DB, tenantID)
}

// Create inserts a template; a nil tenantID makes it global-scope.
func (s *TemplateService) Create(ctx context.Context, tenantID *string, name, body string, isDefault bool) (*domain.DmTemplate, error) {
	if name == "" || body == "" {
		return nil, ErrValidationFailed
	}
	return repo.CreateTemplate(ctx, s.DB, tenantID, name, body, isDefault)
}

// SetDefault promotes template id to default within its tenant scope.
func (s *TemplateService) SetDefault(ctx context.Context, tenantID *string, id string) error {
	return repo.SetDefaultTemplate(ctx, s.DB, tenantID, id)
}

// RenderFor resolves the effective template for tenantID and renders it with
// the given variables. The returned template id is nil when the hardcoded
// fallback body was used.
func (s *TemplateService) RenderFor(ctx context.Context, tenantID string, vars map[string]string) (string, *string, error) {
	body, id, err := repo.SelectTemplate(ctx, s.DB, tenantID)
	if err != nil {
		return "", nil, err
	}
	return template.Render(body, vars), id, nil
}
