// Package signature verifies GitHub webhook payload signatures.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Prefix is the scheme GitHub prepends to the hex digest in the
// X-Hub-Signature-256 header.
const Prefix = "sha256="

var (
	ErrMissingSignature = errors.New("missing signature header")
	ErrMalformedHeader  = errors.New("signature header is not of the form sha256=<hex>")
	ErrMismatch         = errors.New("signature does not match payload")
)

// Sign computes the hex-encoded HMAC-SHA256 of payload under secret,
// including the scheme prefix. Used by tests and by outbound callers that
// need to produce a valid header value.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return Prefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks that header carries a valid HMAC-SHA256 of payload under
// secret. The comparison is constant-time. Any defect in the header (absent,
// wrong scheme, non-hex digest) is a verification failure, never a panic.
func Verify(secret string, payload []byte, header string) error {
	if header == "" {
		return ErrMissingSignature
	}

	encoded, ok := strings.CutPrefix(header, Prefix)
	if !ok {
		return ErrMalformedHeader
	}

	got, err := hex.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	want := mac.Sum(nil)

	if !hmac.Equal(want, got) {
		return ErrMismatch
	}
	return nil
}
