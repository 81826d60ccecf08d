// Package token implements the compact signed-token primitive behind
// onboarding magic links. A token is three dot-separated URL-safe base64
// segments (header, claims, signature) where the signature is HMAC-SHA256
// over "header.claims" with a server-held secret and the claims carry an
// injected "exp" unix timestamp.
//
// This is deliberately a minimal self-contained construction, not a
// general-purpose JWT: there is no revocation list and expiry is the only
// invalidation mechanism. Single-use semantics are enforced separately by
// the OnboardingInvite row's used_at column.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Sentinel errors returned by Verify.
var (
	// ErrMalformed indicates the token does not have the expected
	// three-segment structure or a segment fails to decode.
	ErrMalformed = errors.New("token malformed")

	// ErrSignature indicates the signature segment does not match the
	// recomputed HMAC for the received header and claims.
	ErrSignature = errors.New("token signature invalid")

	// ErrExpired indicates the token's exp claim is in the past.
	ErrExpired = errors.New("token expired")
)

// header is the fixed metadata segment.
type header struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

// Signer issues and verifies magic-link tokens with a fixed secret.
// The zero value is unusable; construct with NewSigner.
type Signer struct {
	secret []byte

	// now is swappable for tests.
	now func() time.Time
}

// NewSigner returns a Signer keyed with secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret), now: time.Now}
}

// Sign encodes claims plus an injected "exp" (now + ttl) into a signed token.
// The claims map is not mutated.
func (s *Signer) Sign(claims map[string]any, ttl time.Duration) (string, error) {
	h, err := json.Marshal(header{Alg: "HS256", Typ: "MLT"})
	if err != nil {
		return "", err
	}

	body := make(map[string]any, len(claims)+1)
	for k, v := range claims {
		body[k] = v
	}
	body["exp"] = s.now().Add(ttl).Unix()
	p, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	enc := base64.RawURLEncoding
	signingInput := enc.EncodeToString(h) + "." + enc.EncodeToString(p)
	return signingInput + "." + enc.EncodeToString(s.sign(signingInput)), nil
}

// Verify checks structure, signature, and expiry, in that order, and returns
// the decoded claims (including "exp") on success.
//
// Errors: ErrMalformed, ErrSignature, or ErrExpired.
func (s *Signer) Verify(tok string) (map[string]any, error) {
	parts := strings.Split(tok, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return nil, ErrMalformed
	}

	enc := base64.RawURLEncoding
	sig, err := enc.DecodeString(parts[2])
	if err != nil {
		return nil, ErrMalformed
	}

	// Recompute over the received segments and compare in constant time.
	if !hmac.Equal(sig, s.sign(parts[0]+"."+parts[1])) {
		return nil, ErrSignature
	}

	rawClaims, err := enc.DecodeString(parts[1])
	if err != nil {
		return nil, ErrMalformed
	}
	var claims map[string]any
	if err := json.Unmarshal(rawClaims, &claims); err != nil {
		return nil, ErrMalformed
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, ErrMalformed
	}
	if s.now().Unix() >= int64(exp) {
		return nil, ErrExpired
	}
	return claims, nil
}

// sign computes the HMAC-SHA256 of input under the signer's secret.
func (s *Signer) sign(input string) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(input))
	return mac.Sum(nil)
}
