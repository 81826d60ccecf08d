// Package services defines the business logic for the onboarding pipeline:
// webhook orchestration, invite lifecycle, template selection, DM dispatch,
// lead capture, and deferred-send retry. This file centralizes common
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// These errors are intended for internal use by the service layer; the
// handler layer translates them into HTTP statuses and human-readable
// reason strings.
package services

import "errors"

// Webhook pipeline errors.
var (
	// ErrSignatureInvalid is returned when the inbound webhook body fails
	// HMAC verification against the configured secret.
	ErrSignatureInvalid = errors.New("webhook signature invalid")

	// ErrMalformedPayload is returned when the body is not parseable JSON
	// or lacks a recognized event-type/tenant field.
	ErrMalformedPayload = errors.New("malformed webhook payload")

	// ErrConfigMissing is returned when an operation requires configuration
	// (signing secret, messaging credentials) that is not set. It fails the
	// affected operation only, never the process.
	ErrConfigMissing = errors.New("required configuration missing")

	// ErrRecipientUnresolved marks a dispatch whose recipient identity could
	// not be resolved at send time. Such sends are deferred and retried
	// out-of-band; this is not a hard failure.
	ErrRecipientUnresolved = errors.New("recipient unresolved")

	// ErrDispatchFailed is returned when every remote call candidate failed.
	// The attempt is recorded in the send log and may be retried.
	ErrDispatchFailed = errors.New("dm dispatch failed")

	// ErrDuplicateEvent marks an event id that already has a successful
	// send. It is a no-op signal, not a failure.
	ErrDuplicateEvent = errors.New("event already delivered")
)

// Invite lifecycle errors.
var (
	// ErrInviteNotFound indicates no invite row matches the presented
	// (tenant, member, token) triple.
	ErrInviteNotFound = errors.New("invite not found")

	// ErrInviteExpired indicates the invite's TTL has elapsed.
	ErrInviteExpired = errors.New("invite expired")

	// ErrInviteAlreadyUsed indicates the invite was consumed previously
	// (including losing a concurrent double-submission race).
	ErrInviteAlreadyUsed = errors.New("invite already used")
)

// ErrValidationFailed is returned when a request body or parameter set has
// the wrong shape (missing member id, empty responses, oversized input).
var ErrValidationFailed = errors.New("validation failed")
