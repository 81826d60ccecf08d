// Package domain defines the persistence models for the onboarding pipeline:
// inbound webhook events, single-use onboarding invites, welcome-DM templates,
// the DM send log, and collected leads. These types are mapped with GORM and
// form the core data layer of the application.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Send-log statuses. For a given event id at most one row may ever hold
// StatusSent; failed/deferred rows represent retryable attempts.
const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDeferred = "deferred"
)

// WebhookEvent is an immutable audit record of a received inbound
// notification. Rows are written after signature verification succeeds and
// are never mutated or deleted.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - EventType: normalized event type tag (e.g. "member.created").
//   - TenantID: originating community/tenant identifier; indexed.
//   - Headers: raw request headers as received, JSON-encoded.
//   - Payload: raw request body as received, pre-normalization.
//   - ReceivedAt: arrival timestamp (UTC).
type WebhookEvent struct {
	ID         string         `json:"id"          gorm:"type:char(36);primaryKey"`
	EventType  string         `json:"event_type"  gorm:"type:varchar(64);not null;index"`
	TenantID   string         `json:"tenant_id"   gorm:"type:varchar(64);not null;index:idx_tenant_events"`
	Headers    datatypes.JSON `json:"headers"     gorm:"type:json"`
	Payload    datatypes.JSON `json:"payload"     gorm:"type:json"`
	ReceivedAt time.Time      `json:"received_at" gorm:"index"`
}

// TableName returns the database table name for WebhookEvent.
func (WebhookEvent) TableName() string { return "webhook_events" }

// OnboardingInvite is a single-use invitation for one (tenant, member) pair.
// A token is valid iff UsedAt is NULL, the expiry is in the future, and the
// (tenant, member, token) triple matches a stored row exactly. The row is
// mutated exactly once, setting UsedAt, when the member completes onboarding.
type OnboardingInvite struct {
	ID        string     `json:"id"         gorm:"type:char(36);primaryKey"`
	TenantID  string     `json:"tenant_id"  gorm:"type:varchar(64);not null;index:idx_tenant_member,priority:1"`
	MemberID  string     `json:"member_id"  gorm:"type:varchar(64);not null;index:idx_tenant_member,priority:2"`
	Token     string     `json:"-"          gorm:"type:text;not null;uniqueIndex"`
	IssuedAt  time.Time  `json:"issued_at"`
	ExpiresAt time.Time  `json:"expires_at" gorm:"index"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
}

// TableName returns the database table name for OnboardingInvite.
func (OnboardingInvite) TableName() string { return "onboarding_invites" }

// DmTemplate is a welcome message body with {{placeholder}} variables. A row
// with a nil TenantID is a global fallback shared by all tenants. At most one
// row per tenant scope may have IsDefault set; the repository enforces this
// at write time by unsetting others inside the same transaction.
type DmTemplate struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	TenantID  *string   `json:"tenant_id"  gorm:"type:varchar(64);index"`
	Name      string    `json:"name"       gorm:"type:varchar(255);not null"`
	Body      string    `json:"body"       gorm:"type:text;not null"`
	IsDefault bool      `json:"is_default" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for DmTemplate.
func (DmTemplate) TableName() string { return "dm_templates" }

// DmSendLogEntry records one DM dispatch attempt. EventID is caller-supplied
// and keys the idempotency guarantee: a partial unique index on
// (event_id) WHERE status = 'sent' ensures a successful send is never
// duplicated, while failed/deferred rows for the same event id remain
// allowed. The retry job mutates Status/Error in place on redispatch.
//
// Recipient is the messaging identity the attempt targeted (user id or
// username), empty when the event carried neither; MemberID is the
// membership identity and is always present for trigger events, so a
// deferred row can still be resolved by a later directory search. Body is
// the full rendered message the retry job redelivers; Preview is the
// truncated copy shown on the admin surface.
type DmSendLogEntry struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	EventID    string    `json:"event_id"    gorm:"type:varchar(128);not null;index"`
	TenantID   string    `json:"tenant_id"   gorm:"type:varchar(64);not null;index"`
	MemberID   string    `json:"member_id"   gorm:"type:varchar(64);index"`
	Recipient  string    `json:"recipient"   gorm:"type:varchar(128);not null"`
	Status     string    `json:"status"      gorm:"type:varchar(16);not null;check:status IN ('sent','failed','deferred');index"`
	Error      *string   `json:"error,omitempty" gorm:"type:text"`
	Body       string    `json:"-"           gorm:"type:text"`
	Preview    string    `json:"preview"     gorm:"type:varchar(160)"`
	TemplateID *string   `json:"template_id,omitempty" gorm:"type:char(36)"`
	CreatedAt  time.Time `json:"created_at"  gorm:"index"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName returns the database table name for DmSendLogEntry.
func (DmSendLogEntry) TableName() string { return "dm_send_log" }

// Lead is one submitted onboarding response. Rows are created once, after
// invite validation succeeds, and are immutable thereafter.
type Lead struct {
	ID        string         `json:"id"        gorm:"type:char(36);primaryKey"`
	TenantID  string         `json:"tenant_id" gorm:"type:varchar(64);not null;index:idx_tenant_leads"`
	MemberID  string         `json:"member_id" gorm:"type:varchar(64);not null"`
	Email     *string        `json:"email,omitempty" gorm:"type:varchar(255)"`
	Responses datatypes.JSON `json:"responses" gorm:"type:json"`
	CreatedAt time.Time      `json:"created_at"`
}

// TableName returns the database table name for Lead.
func (Lead) TableName() string { return "leads" }
