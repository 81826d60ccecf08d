// Package signature verifies inbound webhook signatures. The community
// platform signs each delivery with HMAC-SHA256 over the raw request body
// (optionally prefixed by a timestamp), but the header name, the header
// layout, and the digest encoding have all been observed to vary across
// sender versions. Verification therefore tolerates:
//
//   - header layouts: "sha256=<hex>", Stripe-style "t=<ts>,v1=<sig>",
//     or a bare value after the last '='
//   - canonical messages: "{timestamp}.{rawBody}" when a timestamp is
//     present, then the raw body alone
//   - digest encodings: lowercase hex, uppercase hex, standard base64
//
// All comparisons are constant-time. Verify never panics and never returns
// an error; a mismatch is simply false, with diagnostic metadata (lengths
// and short prefixes, never the secret) logged at debug level.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/rs/zerolog/log"
)

// HeaderNames lists the request header names checked for a signature, in
// priority order. The first non-empty one wins.
var HeaderNames = []string{"Whop-Signature", "X-Whop-Signature", "X-Signature"}

// parsedHeader is the normalized form of a signature header value.
type parsedHeader struct {
	timestamp string // empty when the header carries no timestamp component
	value     string // the signature material, encoding unknown
}

// Verify reports whether headerValue is a valid signature of rawBody under
// secret. rawBody must be the exact bytes received on the wire; the
// computation is order- and whitespace-sensitive, so callers must never
// re-serialize a parsed payload.
func Verify(rawBody []byte, headerValue, secret string) bool {
	if secret == "" || strings.TrimSpace(headerValue) == "" {
		return false
	}

	ph := parseHeader(headerValue)
	if ph.value == "" {
		return false
	}

	// Candidate canonical messages, most specific first.
	messages := make([][]byte, 0, 2)
	if ph.timestamp != "" {
		signed := make([]byte, 0, len(ph.timestamp)+1+len(rawBody))
		signed = append(signed, ph.timestamp...)
		signed = append(signed, '.')
		signed = append(signed, rawBody...)
		messages = append(messages, signed)
	}
	messages = append(messages, rawBody)

	for _, msg := range messages {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(msg)
		digest := mac.Sum(nil)

		if matchesDigest(ph.value, digest) {
			return true
		}
	}

	log.Debug().
		Int("body_len", len(rawBody)).
		Int("header_len", len(headerValue)).
		Str("header_prefix", prefix(headerValue, 12)).
		Bool("has_timestamp", ph.timestamp != "").
		Msg("webhook signature mismatch")
	return false
}

// FromHeaders returns the first recognized signature header value from a
// header lookup function (e.g. http.Header.Get or gin's GetHeader).
func FromHeaders(get func(string) string) string {
	for _, name := range HeaderNames {
		if v := get(name); v != "" {
			return v
		}
	}
	return ""
}

// parseHeader normalizes the supported header layouts into a parsedHeader.
func parseHeader(h string) parsedHeader {
	h = strings.TrimSpace(h)

	// Stripe-like composite: "t=1700000000,v1=abcdef..."
	if strings.Contains(h, ",") && strings.Contains(h, "=") {
		var ph parsedHeader
		for _, part := range strings.Split(h, ",") {
			k, v, found := strings.Cut(strings.TrimSpace(part), "=")
			if !found {
				continue
			}
			switch strings.ToLower(k) {
			case "t":
				ph.timestamp = v
			case "v1", "v0", "sha256", "signature":
				if ph.value == "" {
					ph.value = v
				}
			}
		}
		if ph.value != "" {
			return ph
		}
	}

	// Simple prefixed form: "sha256=<sig>", or any bare value after the
	// last '=' that is not base64 padding (covers unknown "scheme="
	// prefixes; trailing '=' must survive as part of the signature).
	if i := strings.LastIndex(strings.TrimRight(h, "="), "="); i >= 0 && i < len(h)-1 {
		return parsedHeader{value: h[i+1:]}
	}
	return parsedHeader{value: h}
}

// matchesDigest compares the header-supplied signature against the computed
// digest across the tolerated encodings, in constant time per comparison.
func matchesDigest(value string, digest []byte) bool {
	candidates := []string{
		hex.EncodeToString(digest),
		strings.ToUpper(hex.EncodeToString(digest)),
		base64.StdEncoding.EncodeToString(digest),
	}
	for _, want := range candidates {
		if hmac.Equal([]byte(value), []byte(want)) {
			return true
		}
	}
	return false
}

// prefix returns at most n leading bytes of s, for safe diagnostics.
func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
