package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/tasklift/internal/core/domain"
)

// TokenStore persists one Credential per provider storage key across
// process restarts. It performs no network access.
//
// Save must be atomic: after it returns, a Load observes either the full
// new Credential or, on error, the previous one.
type TokenStore interface {
	// Load returns the credential stored under key, or nil when absent.
	Load(ctx context.Context, key string) (*domain.Credential, error)

	// Save replaces the credential stored under key.
	Save(ctx context.Context, key string, cred domain.Credential) error

	// Delete removes the credential stored under key. Deleting an absent
	// key is not an error.
	Delete(ctx context.Context, key string) error
}

// VerifierStore holds the PKCE verifier of an in-flight interactive login.
// Entries are short-lived and consumed exactly once.
type VerifierStore interface {
	// Put stores verifier for key, replacing any previous one.
	Put(key, verifier string, ttl time.Duration)

	// Take returns and removes the verifier for key. The boolean is false
	// when no unexpired verifier exists.
	Take(key string) (string, bool)
}
