// Log-only provider for DM_MODE=log: every send "succeeds" locally without
// touching the remote API. Used in development and on tenants that want the
// onboarding flow (invites, leads) without welcome DMs going out.
package messaging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// LogProvider implements Provider by logging instead of delivering.
type LogProvider struct{}

// SendDirectMessage logs the would-be delivery and fabricates a local id.
func (LogProvider) SendDirectMessage(_ context.Context, req SendRequest) (*SendResult, error) {
	if req.Recipient() == "" {
		return nil, ErrNoRecipient
	}
	id := "local_" + uuid.NewString()
	log.Info().
		Str("tenant_id", req.TenantID).
		Str("recipient", req.Recipient()).
		Int("message_len", len(req.Message)).
		Str("id", id).
		Msg("dm send (log mode)")
	return &SendResult{ID: id}, nil
}

// FindMember cannot search a directory in log mode; usernames are treated as
// already-routable identifiers.
func (LogProvider) FindMember(_ context.Context, _, username string) (string, error) {
	if username == "" {
		return "", ErrNoRecipient
	}
	return username, nil
}
