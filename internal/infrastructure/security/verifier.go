// Package security implements request authentication for the interactions
// endpoint. The platform signs every delivery with the application's Ed25519
// key over the concatenation of the timestamp header and the raw body; the
// verifier checks that detached signature before any payload parsing happens.
package security

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrMalformedSignature indicates the signature or public key could not be
// decoded as hex of the expected length. A malformed signature is rejected
// the same way as an invalid one.
var ErrMalformedSignature = errors.New("security: malformed signature material")

// Verifier checks Ed25519 request signatures against a single application
// public key. The key is parsed once at construction; Verify is safe for
// concurrent use.
type Verifier struct {
	publicKey ed25519.PublicKey
}

// NewVerifier parses the hex-encoded application public key and returns a
// verifier bound to it.
func NewVerifier(publicKeyHex string) (*Verifier, error) {
	key, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return nil, fmt.Errorf("security: decode public key: %w", err)
	}
	if len(key) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("security: public key must be %d bytes, got %d",
			ed25519.PublicKeySize, len(key))
	}
	return &Verifier{publicKey: ed25519.PublicKey(key)}, nil
}

// Verify reports whether signatureHex is a valid signature over
// timestamp||body. Malformed signature material returns
// ErrMalformedSignature; callers treat that as a failed verification.
func (v *Verifier) Verify(timestamp string, body []byte, signatureHex string) (bool, error) {
	sig, err := hex.DecodeString(signatureHex)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	if len(sig) != ed25519.SignatureSize {
		return false, fmt.Errorf("%w: signature must be %d bytes, got %d",
			ErrMalformedSignature, ed25519.SignatureSize, len(sig))
	}

	message := make([]byte, 0, len(timestamp)+len(body))
	message = append(message, timestamp...)
	message = append(message, body...)

	return ed25519.Verify(v.publicKey, message, sig), nil
}
