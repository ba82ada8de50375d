// SPDX-License-Identifier: MIT

package bendybutt

import (
	"encoding/base64"

	"golang.org/x/crypto/ed25519"
	"golang.org/x/crypto/nacl/auth"

	"go.mindeco.de/ssb-bendybutt/bfe"
)

// this gets prepended to the bencoded content before it is signed with the content key
var contentSigPrefix = []byte("bendybutt")

// HMACKeySize is the length of the optional key that scopes signatures to a network
const HMACKeySize = auth.KeySize

// sign creates the ed25519 signature of input.
// With an hmac key the input is first replaced by its HMAC-SHA-512-256.
func sign(key ed25519.PrivateKey, hmacKey *[32]byte, input []byte) bfe.Signature {
	toSign := input
	if hmacKey != nil {
		mac := auth.Sum(toSign, hmacKey)
		toSign = mac[:]
	}
	return bfe.Signature(ed25519.Sign(key, toSign))
}

func verify(pubKey ed25519.PublicKey, sig []byte, hmacKey *[32]byte, input []byte) bool {
	if len(pubKey) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	signed := input
	if hmacKey != nil {
		mac := auth.Sum(signed, hmacKey)
		signed = mac[:]
	}
	return ed25519.Verify(pubKey, signed, sig)
}

func contentSigInput(bencodedContent []byte) []byte {
	out := make([]byte, 0, len(contentSigPrefix)+len(bencodedContent))
	out = append(out, contentSigPrefix...)
	return append(out, bencodedContent...)
}

// hmacKeyFromBytes returns nil for an empty key
func hmacKeyFromBytes(key []byte) (*[32]byte, error) {
	if len(key) == 0 {
		return nil, nil
	}
	if n := len(key); n != HMACKeySize {
		return nil, newValidationError(ErrHMACKey, "invalid hmac key: %q with length %d, expected 32 bytes", key, n)
	}
	var k [32]byte
	copy(k[:], key)
	return &k, nil
}

// DecodeHMACKey parses the base64 text form of an hmac key.
// The text has to be canonical, meaning it encodes back to the same string.
func DecodeHMACKey(text string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(text)
	if err != nil || base64.StdEncoding.EncodeToString(key) != text {
		return nil, newValidationError(ErrHMACKey, "invalid hmac key: %q, expected string to be base64 encoded", text)
	}
	if n := len(key); n != HMACKeySize {
		return nil, newValidationError(ErrHMACKey, "invalid hmac key: %q with length %d, expected 32 bytes", text, n)
	}
	return key, nil
}
