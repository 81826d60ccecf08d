// Package services – InviteService
//
// This file implements the magic-link invite lifecycle: issuing a signed,
// time-limited, single-use token bound to one (tenant, member) pair,
// validating a presented token against the stored row, and atomically
// consuming it on submission. The token itself only proves authenticity and
// freshness; one-time use is enforced by the invite row's used_at column,
// not by the token.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mboukas/go-onboard-backend/internal/domain"
	"github.com/mboukas/go-onboard-backend/internal/repo"
	"github.com/mboukas/go-onboard-backend/internal/token"
)

// InviteService issues, validates, and consumes onboarding invites.
type InviteService struct {
	DB      *gorm.DB
	Signer  *token.Signer
	BaseURL string        // public base for onboarding links, no trailing slash
	TTL     time.Duration // invite lifetime, e.g. 24h
}

// Issue creates a fresh invite for (tenantID, memberID), persists it, and
// returns the row along with the full onboarding URL embedding the token.
//
// Requires TokenSecret to be configured; returns ErrConfigMissing otherwise.
func (s *InviteService) Issue(ctx context.Context, tenantID, memberID string) (*domain.OnboardingInvite, string, error) {
	if s.Signer == nil {
		return nil, "", fmt.Errorf("%w: TOKEN_SECRET", ErrConfigMissing)
	}

	// jti makes each token unique even when the sender fires several
	// trigger events for the same join within one second; without it the
	// deterministic claims would collide on the unique Token index.
	tok, err := s.Signer.Sign(map[string]any{
		"jti":       uuid.NewString(),
		"tenant_id": tenantID,
		"member_id": memberID,
	}, s.TTL)
	if err != nil {
		return nil, "", err
	}

	inv, err := repo.CreateInvite(ctx, s.DB, tenantID, memberID, tok, time.Now().UTC().Add(s.TTL))
	if err != nil {
		return nil, "", err
	}
	return inv, s.Link(inv), nil
}

/// Link builds the onboarding URL for an invite:
// {base}/onboarding/{tenant}?memberId=…&t=…
func (s *InviteService) Link(inv *domain.OnboardingInvite) string {
	q := url.Values{}
	q.Set("memberId", inv.MemberID)
	q.Set("t", inv.Token)
	return fmt.Sprintf("%s/onboarding/%s?%s", s.BaseURL, url.PathEscape(inv.TenantID), q.Encode())
}

// Validate checks a presented (tenant, member, token) triple and returns the
// matching invite when it is still usable.
//
// Errors: ErrInviteNotFound when no row matches exactly, ErrInviteExpired
// past the TTL, ErrInviteAlreadyUsed when used_at is set. Token signature
// problems are reported as ErrInviteNotFound; the caller learns nothing
// about whether a forged token was close.
func (s *InviteService) Validate(ctx context.Context, tenantID, memberID, tok string) (*domain.OnboardingInvite, error) {
	if tenantID == "" || memberID == "" || tok == "" {
		return nil, ErrInviteNotFound
	}

	if s.Signer != nil {
		if _, err := s.Signer.Verify(tok); err != nil {
			if errors.Is(err, token.ErrExpired) {
				return nil, ErrInviteExpired
			}
			return nil, ErrInviteNotFound
		}
	}

	inv, err := repo.GetInvite(ctx, s.DB, tenantID, memberID, tok)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInviteNotFound
		}
		return nil, err
	}
	if inv.UsedAt != nil {
		return nil, ErrInviteAlreadyUsed
	}
	if !time.Now().UTC().Before(inv.ExpiresAt) {
		return nil, ErrInviteExpired
	}
	return inv, nil
}

// Use validates then consumes an invite. Consumption is an atomic
// conditional update (used_at set only where it is NULL); losing that race
// to a concurrent submission yields ErrInviteAlreadyUsed.
func (s *InviteService) Use(ctx context.Context, tenantID, memberID, tok string) error {
	inv, err := s.Validate(ctx, tenantID, memberID, tok)
	if err != nil {
		return err
	}
	if err := repo.MarkInviteUsed(ctx, s.DB, inv.ID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrInviteAlreadyUsed
		}
		return err
	}
	return nil
}
