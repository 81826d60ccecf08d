package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mboukas/go-onboard-backend/internal/template"
)

func TestTemplateService_Create_Validation(t *testing.T) {
	svc := &TemplateService{DB: newTestDB(t)}

	if _, err := svc.Create(context.Background(), nil, "", "body", false); !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("empty name err = %v, want ErrValidationFailed", err)
	}
	if _, err := svc.Create(context.Background(), nil, "name", "", false); !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("empty body err = %v, want ErrValidationFailed", err)
	}
}

func TestTemplateService_RenderFor_FallbackWhenEmpty(t *testing.T) {
	svc := &TemplateService{DB: newTestDB(t)}

	msg, id, err := svc.RenderFor(context.Background(), "biz_1",
		template.Vars("ana", "Chess Club", "https://x/onboarding/biz_1?t=tok"))
	if err != nil {
		t.Fatalf("RenderFor: %v", err)
	}
	if id != nil {
		t.Fatalf("template id = %v, want nil for fallback body", *id)
	}
	if !strings.Contains(msg, "Ana") || !strings.Contains(msg, "Chess Club") || !strings.Contains(msg, "https://x/onboarding/biz_1?t=tok") {
		t.Fatalf("rendered = %q", msg)
	}
}

func TestTemplateService_RenderFor_PrefersTenantDefault(t *testing.T) {
	db := newTestDB(t)
	svc := &TemplateService{DB: db}
	tenant := "biz_1"

	if _, err := svc.Create(context.Background(), nil, "global", "global: {{member_name}}", true); err != nil {
		t.Fatalf("create global: %v", err)
	}
	tpl, err := svc.Create(context.Background(), &tenant, "custom", "hey {{member_name}}, join: {{onboarding_link}}", true)
	if err != nil {
		t.Fatalf("create tenant: %v", err)
	}

	msg, id, err := svc.RenderFor(context.Background(), tenant,
		template.Vars("ana", "Chess Club", "https://x/o"))
	if err != nil {
		t.Fatalf("RenderFor: %v", err)
	}
	if id == nil || *id != tpl.ID {
		t.Fatalf("template id = %v, want %q", id, tpl.ID)
	}
	if msg != "hey Ana, join: https://x/o" {
		t.Fatalf("rendered = %q", msg)
	}
}

func TestTemplateService_List_ScopedToTenantPlusGlobal(t *testing.T) {
	db := newTestDB(t)
	svc := &TemplateService{DB: db}
	mine, other := "biz_1", "biz_2"

	if _, err := svc.Create(context.Background(), &mine, "mine", "m", false); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(context.Background(), &other, "theirs", "t", false); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(context.Background(), nil, "shared", "s", false); err != nil {
		t.Fatalf("create: %v", err)
	}

	list, err := svc.List(context.Background(), mine)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want own + global", len(list))
	}
	for _, tpl := range list {
		if tpl.Name == "theirs" {
			t.Fatal("foreign tenant template leaked into listing")
		}
	}
}
