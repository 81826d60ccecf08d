// GraphQL messaging provider.
//
// The platform's GraphQL schema has not been stable across versions: the DM
// mutation has shipped under several names with different argument nesting.
// Rather than pinning one shape and breaking on the next rollout, the
// provider walks an ordered list of structurally different candidates and
// accepts the first response that is syntactically valid, carries no
// application-level errors, and contains an identifier somewhere in its data.
// This is resilience by redundancy, not a business rule.
package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// GraphQLProvider talks to the platform messaging API over HTTP. The
// http.Client is injected and must carry a short timeout so an unreachable
// endpoint cannot stall webhook handling.
type GraphQLProvider struct {
	Client  *http.Client
	APIURL  string
	APIKey  string
	AgentID string
}

// mutationShape is one candidate remote call: a mutation document plus a
// variable builder for a given request.
type mutationShape struct {
	name  string
	query string
	vars  func(req SendRequest, agentID string) map[string]any
}

// sendShapes are tried in order; the list reflects every mutation name the
// platform has been observed to accept, newest first.
var sendShapes = []mutationShape{
	{
		name: "sendDirectMessageToUser",
		query: `mutation SendDM($to: String!, $message: String!) {
  sendDirectMessageToUser(toUserIdOrUsername: $to, message: $message) { id }
}`,
		vars: func(req SendRequest, _ string) map[string]any {
			return map[string]any{"to": req.Recipient(), "message": req.Message}
		},
	},
	{
		name: "sendMessage",
		query: `mutation SendDM($input: SendMessageInput!) {
  sendMessage(input: $input) { id }
}`,
		vars: func(req SendRequest, agentID string) map[string]any {
			return map[string]any{"input": map[string]any{
				"toUserIdOrUsername": req.Recipient(),
				"message":            req.Message,
				"agentUserId":        agentID,
			}}
		},
	},
	{
		name: "createDirectMessage",
		query: `mutation SendDM($recipientId: ID!, $content: String!) {
  createDirectMessage(recipientId: $recipientId, content: $content) { message { id } }
}`,
		vars: func(req SendRequest, _ string) map[string]any {
			return map[string]any{"recipientId": req.Recipient(), "content": req.Message}
		},
	},
}

// memberShapes are the directory search candidates, same strategy.
var memberShapes = []mutationShape{
	{
		name: "membersOfCompany",
		query: `query FindMember($company: ID!, $query: String!) {
  membersOfCompany(companyId: $company, query: $query, first: 1) {
    nodes { user { id username } }
  }
}`,
		vars: func(req SendRequest, _ string) map[string]any {
			return map[string]any{"company": req.TenantID, "query": req.Username}
		},
	},
	{
		name: "searchUsers",
		query: `query FindMember($company: ID!, $query: String!) {
  searchUsers(companyId: $company, query: $query) { id username }
}`,
		vars: func(req SendRequest, _ string) map[string]any {
			return map[string]any{"company": req.TenantID, "query": req.Username}
		},
	},
}

// graphqlEnvelope is the standard GraphQL response wrapper.
type graphqlEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// SendDirectMessage implements Provider.
func (p *GraphQLProvider) SendDirectMessage(ctx context.Context, req SendRequest) (*SendResult, error) {
	if p.APIURL == "" || p.APIKey == "" {
		return nil, ErrMissingCredentials
	}
	if req.Recipient() == "" {
		return nil, ErrNoRecipient
	}

	var lastErr error
	for _, shape := range sendShapes {
		id, err := p.call(ctx, shape, req)
		if err == nil && id != "" {
			return &SendResult{ID: id}, nil
		}
		if err != nil {
			lastErr = err
		}
		log.Debug().
			Str("shape", shape.name).
			Str("tenant_id", req.TenantID).
			Err(err).
			Msg("dm send candidate rejected")
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrAllCandidatesFailed, lastErr)
	}
	return nil, ErrAllCandidatesFailed
}

// FindMember implements Provider. The search is scoped to the tenant; an
// empty result is ErrNoRecipient, never a fabricated id.
func (p *GraphQLProvider) FindMember(ctx context.Context, tenantID, username string) (string, error) {
	if p.APIURL == "" || p.APIKey == "" {
		return "", ErrMissingCredentials
	}
	if strings.TrimSpace(username) == "" {
		return "", ErrNoRecipient
	}

	req := SendRequest{TenantID: tenantID, Username: username}
	for _, shape := range memberShapes {
		id, err := p.call(ctx, shape, req)
		if err == nil && id != "" {
			return id, nil
		}
	}
	return "", ErrNoRecipient
}

// call posts one GraphQL document and extracts an id from the response.
// Any transport error, non-2xx status, application error, or id-less data
// is a rejection of this candidate.
func (p *GraphQLProvider) call(ctx context.Context, shape mutationShape, req SendRequest) (string, error) {
	body, err := json.Marshal(map[string]any{
		"query":     shape.query,
		"variables": shape.vars(req, p.AgentID),
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.APIURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.APIKey)
	if p.AgentID != "" {
		httpReq.Header.Set("X-On-Behalf-Of", p.AgentID)
	}

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%s: http %d", shape.name, resp.StatusCode)
	}

	var env graphqlEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", fmt.Errorf("%s: invalid response: %w", shape.name, err)
	}
	if len(env.Errors) > 0 {
		return "", fmt.Errorf("%s: %s", shape.name, env.Errors[0].Message)
	}
	if len(env.Data) == 0 {
		return "", fmt.Errorf("%s: empty data", shape.name)
	}

	var data any
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", fmt.Errorf("%s: invalid data: %w", shape.name, err)
	}
	if id := firstID(data); id != "" {
		return id, nil
	}
	return "", fmt.Errorf("%s: no id in response", shape.name)
}

// firstID walks an arbitrary decoded JSON value depth-first and returns the
// first non-empty "id" string it finds.
func firstID(v any) string {
	switch t := v.(type) {
	case map[string]any:
		if id, ok := t["id"].(string); ok && id != "" {
			return id
		}
		for _, child := range t {
			if id := firstID(child); id != "" {
				return id
			}
		}
	case []any:
		for _, child := range t {
			if id := firstID(child); id != "" {
				return id
			}
		}
	}
	return ""
}
