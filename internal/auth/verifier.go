package auth

import (
	"crypto/subtle"
	"errors"
)

// Scheme is the prefix a client puts in front of the shared secret.
const Scheme = "Bearer "

var (
	ErrKeyMissing = errors.New("API key missing")
	ErrKeyInvalid = errors.New("Invalid API key")
)

// Verifier checks presented credentials against one shared secret.
// It is immutable after construction and safe for concurrent use.
type Verifier struct {
	expected []byte
}

// NewVerifier creates a Verifier for the given secret. An empty secret
// produces a Verifier that rejects every credential.
func NewVerifier(secret string) *Verifier {
	if secret == "" {
		return &Verifier{}
	}
	return &Verifier{expected: []byte(Scheme + secret)}
}

// Verify returns ErrKeyMissing when no credential was presented and
// ErrKeyInvalid when it is not exactly "Bearer <secret>".
func (v *Verifier) Verify(presented string) error {
	if presented == "" {
		return ErrKeyMissing
	}
	if v.expected == nil {
		return ErrKeyInvalid
	}
	if subtle.ConstantTimeCompare([]byte(presented), v.expected) != 1 {
		return ErrKeyInvalid
	}
	return nil
}
