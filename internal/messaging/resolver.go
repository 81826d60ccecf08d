// Recipient resolution.
//
// A webhook payload sometimes carries only a username, or no messaging
// identity at all, and a username is not always routable until the platform
// has finished provisioning the account. The resolver answers "what user id
// does this handle map to right now" for a username or a member id: a
// process-local cache first, then a tenant-scoped directory search via the
// provider. The retry job leans on this to turn deferred sends into sent ones.
package messaging

import (
	"context"
	"strings"
	"sync"
)

// Resolver maps usernames to platform user ids with a concurrency-safe
// cache in front of the provider's directory search.
type Resolver struct {
	Provider Provider

	mu    sync.RWMutex
	cache map[string]string // "tenant/username" -> user id
}

// NewResolver returns a Resolver backed by p.
func NewResolver(p Provider) *Resolver {
	return &Resolver{Provider: p, cache: make(map[string]string)}
}

// Resolve returns the user id for (tenantID, handle). Cache entries are
// never invalidated: platform user ids are stable once assigned.
func (r *Resolver) Resolve(ctx context.Context, tenantID, handle string) (string, error) {
	handle = strings.TrimSpace(strings.TrimPrefix(handle, "@"))
	if handle == "" {
		return "", ErrNoRecipient
	}
	key := tenantID + "/" + strings.ToLower(handle)

	r.mu.RLock()
	id, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return id, nil
	}

	id, err := r.Provider.FindMember(ctx, tenantID, handle)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	r.cache[key] = id
	r.mu.Unlock()
	return id, nil
}

// Prime seeds the cache, mainly for tests and warm starts.
func (r *Resolver) Prime(tenantID, username, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[tenantID+"/"+strings.ToLower(username)] = userID
}
