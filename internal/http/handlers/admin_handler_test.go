package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mboukas/go-onboard-backend/internal/domain"
)

func getAdmin(t *testing.T, h *Handlers, path string) *httptest.ResponseRecorder {
	t.Helper()
	r := newTestRouter(h)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestAdminSends(t *testing.T) {
	h, _, _, _, admin := newHandlers()
	admin.sends = []domain.DmSendLogEntry{
		{ID: "s1", EventID: "evt_1", Status: domain.StatusSent},
		{ID: "s2", EventID: "evt_2", Status: domain.StatusDeferred},
	}

	w := getAdmin(t, h, "/admin/sends?limit=10")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Sends []domain.DmSendLogEntry `json:"sends"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Sends) != 2 || resp.Sends[0].EventID != "evt_1" {
		t.Fatalf("sends = %+v", resp.Sends)
	}
}

func TestAdminEvents(t *testing.T) {
	h, _, _, _, admin := newHandlers()
	admin.events = []domain.WebhookEvent{{ID: "w1", EventType: "member.joined", TenantID: "biz_1"}}

	w := getAdmin(t, h, "/admin/events")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Events []domain.WebhookEvent `json:"events"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Events) != 1 || resp.Events[0].EventType != "member.joined" {
		t.Fatalf("events = %+v", resp.Events)
	}
}

func TestAdminLeads_RequiresCreatorID(t *testing.T) {
	h, _, _, _, _ := newHandlers()
	w := getAdmin(t, h, "/admin/leads")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestAdminLeads_Pagination(t *testing.T) {
	h, _, _, _, admin := newHandlers()
	admin.leads = []domain.Lead{{ID: "l1", TenantID: "biz_1"}}
	admin.total = 45

	w := getAdmin(t, h, "/admin/leads?creatorId=biz_1&page=2&page_size=20")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Leads      []domain.Lead `json:"leads"`
		Pagination Pagination    `json:"pagination"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	p := resp.Pagination
	if p.Page != 2 || p.PageSize != 20 || p.Total != 45 || p.TotalPages != 3 || !p.HasNext {
		t.Fatalf("pagination = %+v", p)
	}
}

func TestAdminLeads_ClampsPagination(t *testing.T) {
	h, _, _, _, admin := newHandlers()
	admin.total = 5

	w := getAdmin(t, h, "/admin/leads?creatorId=biz_1&page=-3&page_size=9999")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Pagination Pagination `json:"pagination"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Pagination.Page != 1 || resp.Pagination.PageSize != 100 {
		t.Fatalf("pagination = %+v, want page clamped to 1 and size to 100", resp.Pagination)
	}
}

func TestAdminTemplates(t *testing.T) {
	h, _, _, _, admin := newHandlers()
	admin.templates = []domain.DmTemplate{{ID: "t1", Name: "welcome"}}

	if w := getAdmin(t, h, "/admin/templates"); w.Code != http.StatusBadRequest {
		t.Fatalf("missing creatorId status = %d, want 400", w.Code)
	}

	w := getAdmin(t, h, "/admin/templates?creatorId=biz_1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Templates []domain.DmTemplate `json:"templates"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Templates) != 1 || resp.Templates[0].Name != "welcome" {
		t.Fatalf("templates = %+v", resp.Templates)
	}
}

func TestAdmin_StoreFailuresAre500(t *testing.T) {
	h, _, _, _, admin := newHandlers()
	admin.err = errTestStore

	for _, path := range []string{
		"/admin/sends",
		"/admin/events",
		"/admin/leads?creatorId=biz_1",
		"/admin/templates?creatorId=biz_1",
	} {
		if w := getAdmin(t, h, path); w.Code != http.StatusInternalServerError {
			t.Fatalf("%s: status = %d, want 500", path, w.Code)
		}
	}
}

func TestAdminStatus(t *testing.T) {
	h, _, _, _, _ := newHandlers()
	w := getAdmin(t, h, "/admin/status")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}
