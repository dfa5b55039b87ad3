package services

import (
	"crypto/rand"
	"encoding/base64"
)

const (
	// PKCE code verifier entropy. 64 bytes encode to 86 characters,
	// inside the 43-128 range RFC 7636 allows.
	codeVerifierLength = 64

	// stateLength is the entropy of the CSRF state parameter.
	stateLength = 32
)

// generateCodeVerifier creates a cryptographically random PKCE code verifier.
func generateCodeVerifier() (string, error) {
	return randomURLToken(codeVerifierLength)
}

// generateState creates a random state parameter for CSRF protection.
func generateState() (string, error) {
	return randomURLToken(stateLength)
}

// randomURLToken returns n random bytes as unpadded base64url.
func randomURLToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
