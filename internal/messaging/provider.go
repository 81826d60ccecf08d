// Package messaging integrates with the community platform's messaging and
// identity API. It defines the Provider abstraction consumed by the dispatch
// service, a GraphQL implementation that tolerates an unstable remote schema
// by trying several mutation shapes, and a recipient resolver backed by a
// cached identity map with a tenant-scoped directory search fallback.
package messaging

import (
	"context"
	"errors"
)

// Sentinel errors surfaced to the dispatch layer.
var (
	// ErrMissingCredentials indicates the messaging API URL or key is not
	// configured. The affected send is recorded as failed; the process
	// keeps running.
	ErrMissingCredentials = errors.New("messaging credentials not configured")

	// ErrNoRecipient indicates neither a user id nor a username was
	// provided, or the directory search found nobody. Such sends are
	// deferred for the retry job rather than failed outright.
	ErrNoRecipient = errors.New("recipient could not be resolved")

	// ErrAllCandidatesFailed indicates every remote call shape was
	// attempted and none produced a valid success response.
	ErrAllCandidatesFailed = errors.New("all send candidates failed")
)

// SendRequest describes one direct message to deliver. Exactly one of
// UserID/Username is used downstream; UserID wins when both are set.
type SendRequest struct {
	TenantID string
	UserID   string
	Username string
	Message  string
}

// Recipient returns the identifier the downstream call should target.
func (r SendRequest) Recipient() string {
	if r.UserID != "" {
		return r.UserID
	}
	return r.Username
}

// SendResult is the normalized success shape: the remote identifier of the
// delivered message, whatever envelope the remote API used.
type SendResult struct {
	ID string
}

// Provider delivers direct messages and answers identity lookups. A future
// integration against a single documented API only needs one implementation
// with a single call shape; the accept-first-success contract stays the same.
type Provider interface {
	// SendDirectMessage delivers message to the request's recipient.
	// It returns ErrMissingCredentials, ErrNoRecipient, or
	// ErrAllCandidatesFailed for the expected failure modes; it never
	// panics on remote garbage.
	SendDirectMessage(ctx context.Context, req SendRequest) (*SendResult, error)

	// FindMember searches the tenant's member directory for handle (a
	// username or a member id) and returns the platform user id, or
	// ErrNoRecipient when the search comes back empty.
	FindMember(ctx context.Context, tenantID, handle string) (string, error)
}
