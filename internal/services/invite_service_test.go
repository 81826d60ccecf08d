package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/mboukas/go-onboard-backend/internal/domain"
	"github.com/mboukas/go-onboard-backend/internal/repo"
	"github.com/mboukas/go-onboard-backend/internal/token"
)

func newInviteService(db *gorm.DB) *InviteService {
	return &InviteService{
		DB:      db,
		Signer:  token.NewSigner("invite-secret"),
		BaseURL: "https://join.example.com",
		TTL:     24 * time.Hour,
	}
}

func TestInviteService_Issue_RequiresSigner(t *testing.T) {
	svc := &InviteService{DB: newTestDB(t), BaseURL: "https://x", TTL: time.Hour}
	_, _, err := svc.Issue(context.Background(), "biz_1", "mem_1")
	if !errors.Is(err, ErrConfigMissing) {
		t.Fatalf("err = %v, want ErrConfigMissing", err)
	}
}

func TestInviteService_Issue_PersistsAndLinks(t *testing.T) {
	db := newTestDB(t)
	svc := newInviteService(db)

	inv, link, err := svc.Issue(context.Background(), "biz_1", "mem_1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if inv.TenantID != "biz_1" || inv.MemberID != "mem_1" {
		t.Fatalf("invite = %+v", inv)
	}
	if inv.Token == "" {
		t.Fatal("invite token empty")
	}
	if !strings.HasPrefix(link, "https://join.example.com/onboarding/biz_1?") {
		t.Fatalf("link = %q", link)
	}
	if !strings.Contains(link, "memberId=mem_1") || !strings.Contains(link, "t=") {
		t.Fatalf("link missing query params: %q", link)
	}

	// The embedded token must verify under the same secret.
	claims, err := svc.Signer.Verify(inv.Token)
	if err != nil {
		t.Fatalf("Verify issued token: %v", err)
	}
	if claims["tenant_id"] != "biz_1" || claims["member_id"] != "mem_1" {
		t.Fatalf("claims = %v", claims)
	}
}

func TestInviteService_Issue_BackToBackTokensDistinct(t *testing.T) {
	db := newTestDB(t)
	svc := newInviteService(db)

	// Two triggers for the same member can land within the same second.
	// Each issued token must be unique so both rows clear the token index.
	first, _, err := svc.Issue(context.Background(), "biz_1", "mem_1")
	if err != nil {
		t.Fatalf("first Issue: %v", err)
	}
	second, _, err := svc.Issue(context.Background(), "biz_1", "mem_1")
	if err != nil {
		t.Fatalf("second Issue: %v", err)
	}
	if first.Token == second.Token {
		t.Fatalf("back to back invites share token %q", first.Token)
	}

	var n int64
	if err := db.Model(&domain.OnboardingInvite{}).
		Where("tenant_id = ? AND member_id = ?", "biz_1", "mem_1").
		Count(&n).Error; err != nil {
		t.Fatalf("count invites: %v", err)
	}
	if n != 2 {
		t.Fatalf("stored invites = %d, want 2", n)
	}
}

func TestInviteService_Validate_HappyPath(t *testing.T) {
	db := newTestDB(t)
	svc := newInviteService(db)
	inv, _, err := svc.Issue(context.Background(), "biz_1", "mem_1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	got, err := svc.Validate(context.Background(), "biz_1", "mem_1", inv.Token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got.ID != inv.ID {
		t.Fatalf("validated id = %q, want %q", got.ID, inv.ID)
	}
}

func TestInviteService_Validate_NotFoundPaths(t *testing.T) {
	db := newTestDB(t)
	svc := newInviteService(db)
	inv, _, err := svc.Issue(context.Background(), "biz_1", "mem_1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	cases := []struct {
		name                    string
		tenant, member, present string
	}{
		{"empty token", "biz_1", "mem_1", ""},
		{"wrong tenant", "biz_2", "mem_1", inv.Token},
		{"wrong member", "biz_1", "mem_2", inv.Token},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Validate(context.Background(), tc.tenant, tc.member, tc.present); !errors.Is(err, ErrInviteNotFound) {
				t.Fatalf("err = %v, want ErrInviteNotFound", err)
			}
		})
	}
}

func TestInviteService_Validate_ForgedTokenNotFound(t *testing.T) {
	db := newTestDB(t)
	svc := newInviteService(db)
	if _, _, err := svc.Issue(context.Background(), "biz_1", "mem_1"); err != nil {
		t.Fatalf("Issue: %v", err)
	}

	forged, err := token.NewSigner("other-secret").Sign(map[string]any{
		"tenant_id": "biz_1",
		"member_id": "mem_1",
	}, time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	// A forged token fails the signature check before the store is ever
	// consulted, and the caller cannot tell it apart from a miss.
	if _, err := svc.Validate(context.Background(), "biz_1", "mem_1", forged); !errors.Is(err, ErrInviteNotFound) {
		t.Fatalf("err = %v, want ErrInviteNotFound", err)
	}
}

func TestInviteService_Validate_ExpiredToken(t *testing.T) {
	db := newTestDB(t)
	svc := newInviteService(db)
	svc.TTL = -time.Minute

	inv, _, err := svc.Issue(context.Background(), "biz_1", "mem_1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := svc.Validate(context.Background(), "biz_1", "mem_1", inv.Token); !errors.Is(err, ErrInviteExpired) {
		t.Fatalf("err = %v, want ErrInviteExpired", err)
	}
}

func TestInviteService_Validate_ExpiredRowWithoutSigner(t *testing.T) {
	db := newTestDB(t)
	inv, err := repo.CreateInvite(context.Background(), db, "biz_1", "mem_1", "tok_opaque",
		time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("CreateInvite: %v", err)
	}

	svc := &InviteService{DB: db, BaseURL: "https://x", TTL: time.Hour}
	if _, err := svc.Validate(context.Background(), "biz_1", "mem_1", inv.Token); !errors.Is(err, ErrInviteExpired) {
		t.Fatalf("err = %v, want ErrInviteExpired", err)
	}
}

func TestInviteService_Use_ConsumesOnce(t *testing.T) {
	db := newTestDB(t)
	svc := newInviteService(db)
	inv, _, err := svc.Issue(context.Background(), "biz_1", "mem_1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if err := svc.Use(context.Background(), "biz_1", "mem_1", inv.Token); err != nil {
		t.Fatalf("first Use: %v", err)
	}
	if err := svc.Use(context.Background(), "biz_1", "mem_1", inv.Token); !errors.Is(err, ErrInviteAlreadyUsed) {
		t.Fatalf("second Use err = %v, want ErrInviteAlreadyUsed", err)
	}
	if _, err := svc.Validate(context.Background(), "biz_1", "mem_1", inv.Token); !errors.Is(err, ErrInviteAlreadyUsed) {
		t.Fatalf("Validate after use err = %v, want ErrInviteAlreadyUsed", err)
	}

	var stored domain.OnboardingInvite
	if err := db.First(&stored, "id = ?", inv.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.UsedAt == nil {
		t.Fatal("used_at not set after Use")
	}
}

func TestInviteService_Use_LosesRaceToConcurrentConsume(t *testing.T) {
	db := newTestDB(t)
	svc := newInviteService(db)
	inv, _, err := svc.Issue(context.Background(), "biz_1", "mem_1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Simulate another submission winning between Validate and the
	// conditional update.
	if err := repo.MarkInviteUsed(context.Background(), db, inv.ID); err != nil {
		t.Fatalf("MarkInviteUsed: %v", err)
	}
	if err := repo.MarkInviteUsed(context.Background(), db, inv.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("losing consume err = %v, want repo.ErrNotFound", err)
	}
}
