package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// graphqlRequest mirrors the outbound call body for assertions.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

func newTestProvider(url string) *GraphQLProvider {
	return &GraphQLProvider{
		Client:  &http.Client{Timeout: 2 * time.Second},
		APIURL:  url,
		APIKey:  "key_test",
		AgentID: "agent_1",
	}
}

func TestSendDirectMessage_FirstShapeSucceeds(t *testing.T) {
	var gotAuth, gotBehalf string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotBehalf = r.Header.Get("X-On-Behalf-Of")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"sendDirectMessageToUser":{"id":"msg_1"}}}`))
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)
	res, err := p.SendDirectMessage(context.Background(), SendRequest{
		TenantID: "biz_1", UserID: "user_1", Message: "hi",
	})
	if err != nil {
		t.Fatalf("SendDirectMessage: %v", err)
	}
	if res.ID != "msg_1" {
		t.Fatalf("id = %q", res.ID)
	}
	if gotAuth != "Bearer key_test" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if gotBehalf != "agent_1" {
		t.Fatalf("X-On-Behalf-Of = %q", gotBehalf)
	}
}

func TestSendDirectMessage_FallsThroughToLaterShape(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphqlRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(req.Query, "sendDirectMessageToUser"):
			calls = append(calls, "sendDirectMessageToUser")
			w.Write([]byte(`{"errors":[{"message":"unknown field"}]}`))
		case strings.Contains(req.Query, "sendMessage"):
			calls = append(calls, "sendMessage")
			w.Write([]byte(`{"data":{"sendMessage":null}}`)) // no id -> rejected
		default:
			calls = append(calls, "createDirectMessage")
			w.Write([]byte(`{"data":{"createDirectMessage":{"message":{"id":"msg_deep"}}}}`))
		}
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)
	res, err := p.SendDirectMessage(context.Background(), SendRequest{TenantID: "biz_1", Username: "ana", Message: "hi"})
	if err != nil {
		t.Fatalf("SendDirectMessage: %v", err)
	}
	if res.ID != "msg_deep" {
		t.Fatalf("id = %q; want nested id from last shape", res.ID)
	}
	want := []string{"sendDirectMessageToUser", "sendMessage", "createDirectMessage"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v; want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("call order = %v; want %v", calls, want)
		}
	}
}

func TestSendDirectMessage_AllShapesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)
	_, err := p.SendDirectMessage(context.Background(), SendRequest{UserID: "user_1", Message: "hi"})
	if !errors.Is(err, ErrAllCandidatesFailed) {
		t.Fatalf("expected ErrAllCandidatesFailed, got %v", err)
	}
}

func TestSendDirectMessage_GuardRails(t *testing.T) {
	p := newTestProvider("")
	if _, err := p.SendDirectMessage(context.Background(), SendRequest{UserID: "u"}); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}

	p = newTestProvider("http://localhost:1")
	if _, err := p.SendDirectMessage(context.Background(), SendRequest{Message: "hi"}); !errors.Is(err, ErrNoRecipient) {
		t.Fatalf("expected ErrNoRecipient, got %v", err)
	}
}

func TestFindMember(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphqlRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(req.Query, "membersOfCompany") {
			w.Write([]byte(`{"data":{"membersOfCompany":{"nodes":[{"user":{"id":"user_42","username":"ana"}}]}}}`))
			return
		}
		w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)
	id, err := p.FindMember(context.Background(), "biz_1", "ana")
	if err != nil {
		t.Fatalf("FindMember: %v", err)
	}
	if id != "user_42" {
		t.Fatalf("id = %q", id)
	}

	if _, err := p.FindMember(context.Background(), "biz_1", "  "); !errors.Is(err, ErrNoRecipient) {
		t.Fatalf("expected ErrNoRecipient for blank username, got %v", err)
	}
}

func TestFindMember_EmptyDirectory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"membersOfCompany":{"nodes":[]}}}`))
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)
	if _, err := p.FindMember(context.Background(), "biz_1", "ghost"); !errors.Is(err, ErrNoRecipient) {
		t.Fatalf("expected ErrNoRecipient, got %v", err)
	}
}

func TestFirstID(t *testing.T) {
	var v any
	if err := json.Unmarshal([]byte(`{"a":{"b":[{"c":{"id":"deep"}}]}}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := firstID(v); got != "deep" {
		t.Fatalf("firstID = %q", got)
	}
	if got := firstID(map[string]any{"id": ""}); got != "" {
		t.Fatalf("empty id must not count, got %q", got)
	}
	if got := firstID([]any{"x", 3.14, nil}); got != "" {
		t.Fatalf("scalar walk should find nothing, got %q", got)
	}
}

