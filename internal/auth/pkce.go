package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
)

// verifierAlphabet is the unreserved URL-safe alphabet from RFC 7636 §4.1.
const verifierAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"

// DefaultVerifierLength is the verifier length used for the login flow.
const DefaultVerifierLength = 128

// GenerateVerifier produces a random code verifier of the given length drawn
// uniformly from the unreserved URL-safe alphabet.
func GenerateVerifier(length int) (string, error) {
	if length < 1 {
		return "", fmt.Errorf("verifier length must be at least 1, got %d", length)
	}

	max := big.NewInt(int64(len(verifierAlphabet)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("reading randomness: %w", err)
		}
		buf[i] = verifierAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// GenerateChallenge computes the S256 code challenge for a verifier: the
// URL-safe base64 encoding of its SHA-256 digest, without padding.
func GenerateChallenge(verifier string) string {
	digest := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(digest[:])
}

// GenerateState creates a random state string for OAuth CSRF protection.
func GenerateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
