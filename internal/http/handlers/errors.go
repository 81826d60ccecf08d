// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// These symbolic constants are mapped to HTTP responses via the `fail()`
// helper in this package and give clients a stable, machine-readable error
// taxonomy supplementing the human-readable messages.
//
// Conventions:
//   - Codes are lowercase, snake_case, and domain-agnostic unless noted.
//   - Generic codes (bad_request, unauthorized, conflict, …) mirror common
//     HTTP status semantics.
//   - Domain-specific codes cover pipeline states that a status alone cannot
//     convey (invite lifecycle, dispatch outcomes, configuration gaps).
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeSignatureInvalid = "signature_invalid"
	ErrCodeMalformedPayload = "malformed_payload"
	ErrCodeConfigMissing    = "config_missing"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
