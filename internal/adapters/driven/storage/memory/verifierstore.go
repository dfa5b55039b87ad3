package memory

import (
	"sync"
	"time"

	"github.com/custodia-labs/tasklift/internal/core/ports/driven"
)

// Ensure VerifierStore implements the interface.
var _ driven.VerifierStore = (*VerifierStore)(nil)

type verifierEntry struct {
	verifier  string
	expiresAt time.Time
}

// VerifierStore holds PKCE verifiers for in-flight logins. Entries are
// single use and expire after their TTL.
type VerifierStore struct {
	mu      sync.Mutex
	entries map[string]verifierEntry
	now     func() time.Time
}

// NewVerifierStore creates an empty verifier store.
func NewVerifierStore() *VerifierStore {
	return &VerifierStore{
		entries: make(map[string]verifierEntry),
		now:     time.Now,
	}
}

// Put stores verifier for key, replacing any previous one.
func (s *VerifierStore) Put(key, verifier string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = verifierEntry{verifier: verifier, expiresAt: s.now().Add(ttl)}
}

// Take returns and removes the verifier for key.
func (s *VerifierStore) Take(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return "", false
	}
	delete(s.entries, key)
	if !s.now().Before(entry.expiresAt) {
		return "", false
	}
	return entry.verifier, true
}
