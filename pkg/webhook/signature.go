// Package webhook authenticates inbound provider callbacks.
//
// Providers sign the exact request bytes with HMAC-SHA512 under a shared
// secret and send the lowercase hex digest in a header. Verification must run
// before the body is parsed.
package webhook

import (
	"crypto/hmac"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
)

var (
	ErrSecretNotConfigured = errors.New("webhook secret not configured")
	ErrMissingSignature    = errors.New("missing signature")
	ErrSignatureMismatch   = errors.New("signature mismatch")
)

type Verifier struct {
	secret []byte
}

// NewVerifier copies secret. An empty secret yields a verifier that rejects
// every body.
func NewVerifier(secret []byte) *Verifier {
	return &Verifier{secret: append([]byte(nil), secret...)}
}

func (v *Verifier) Configured() bool {
	return len(v.secret) > 0
}

func (v *Verifier) Verify(body []byte, signature string) error {
	if !v.Configured() {
		return ErrSecretNotConfigured
	}
	if signature == "" {
		return ErrMissingSignature
	}
	expected := Sign(v.secret, body)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) != 1 {
		return ErrSignatureMismatch
	}
	return nil
}

// Expected returns the digest the verifier would accept. Only for audit logs.
func (v *Verifier) Expected(body []byte) string {
	if !v.Configured() {
		return ""
	}
	return Sign(v.secret, body)
}

func Sign(secret, body []byte) string {
	mac := hmac.New(sha512.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
