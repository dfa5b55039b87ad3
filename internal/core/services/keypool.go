package services

import (
	"strings"
	"sync"

	"github.com/custodia-labs/tasklift/internal/core/domain"
)

// KeyPool is an ordered, non-empty set of API keys with a rotation cursor.
// The cursor always points at the key to try first on the next request.
type KeyPool struct {
	mu     sync.Mutex
	keys   []string
	cursor int
}

// NewKeyPool builds a pool from keys, dropping blanks and surrounding
// whitespace. It returns ErrNoAPIKeys when nothing usable remains.
func NewKeyPool(keys []string) (*KeyPool, error) {
	cleaned := make([]string, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			cleaned = append(cleaned, k)
		}
	}
	if len(cleaned) == 0 {
		return nil, domain.ErrNoAPIKeys
	}
	return &KeyPool{keys: cleaned}, nil
}

// Size returns the number of keys.
func (p *KeyPool) Size() int {
	return len(p.keys)
}

// Cursor returns the index of the next key to try.
func (p *KeyPool) Cursor() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// Key returns the key at index i modulo the pool size.
func (p *KeyPool) Key(i int) string {
	return p.keys[i%len(p.keys)]
}

// Advance moves the cursor past the key that just served a request.
func (p *KeyPool) Advance(used int) {
	p.Set(used + 1)
}

// Set moves the cursor to index i modulo the pool size.
func (p *KeyPool) Set(i int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cursor = i % len(p.keys)
}
