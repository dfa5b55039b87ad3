package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/tasklift/internal/core/domain"
	"github.com/custodia-labs/tasklift/internal/core/ports/driven"
)

// Ensure TokenStore implements the interface.
var _ driven.TokenStore = (*TokenStore)(nil)

// TokenStore is an in-memory implementation of driven.TokenStore.
// Credentials do not survive the process.
type TokenStore struct {
	mu    sync.RWMutex
	creds map[string]domain.Credential
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		creds: make(map[string]domain.Credential),
	}
}

// Load returns a copy of the credential stored under key, or nil.
func (s *TokenStore) Load(_ context.Context, key string) (*domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.creds[key]
	if !ok {
		return nil, nil
	}
	if cred.Account != nil {
		account := *cred.Account
		cred.Account = &account
	}
	return &cred, nil
}

// Save replaces the credential stored under key.
func (s *TokenStore) Save(_ context.Context, key string, cred domain.Credential) error {
	if key == "" || cred.AccessToken == "" {
		return domain.ErrValidation
	}
	if cred.Account != nil {
		account := *cred.Account
		cred.Account = &account
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[key] = cred
	return nil
}

// Delete removes the credential stored under key.
func (s *TokenStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.creds, key)
	return nil
}
