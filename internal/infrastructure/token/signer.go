package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrEmptySecret is returned when a signer is built without a secret.
var ErrEmptySecret = errors.New("signing secret cannot be empty")

const separator = "."

// Signer produces and checks self-authenticating strings of the form
// payload + "." + hex(HMAC-SHA256(secret, payload)).
type Signer struct {
	secret []byte
}

// NewSigner creates a Signer. An empty secret is a configuration error.
func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Signer{secret: []byte(secret)}, nil
}

// Sign returns the signed form of payload. It is deterministic for a given secret.
func (s *Signer) Sign(payload string) string {
	return payload + separator + hex.EncodeToString(s.mac(payload))
}

// Verify returns the embedded payload when signed carries a valid digest.
// Any malformed input reports ok=false.
func (s *Signer) Verify(signed string) (payload string, ok bool) {
	if signed == "" {
		return "", false
	}

	payload, digest, found := strings.Cut(signed, separator)
	if !found || digest == "" {
		return "", false
	}

	provided, err := hex.DecodeString(digest)
	if err != nil {
		return "", false
	}

	if !hmac.Equal(provided, s.mac(payload)) {
		return "", false
	}
	return payload, true
}

func (s *Signer) mac(payload string) []byte {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(payload))
	return h.Sum(nil)
}
