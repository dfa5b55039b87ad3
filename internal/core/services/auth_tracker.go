package services

import (
	"sync"

	"github.com/custodia-labs/tasklift/internal/core/domain"
	"github.com/custodia-labs/tasklift/internal/core/ports/driving"
)

// Ensure AuthTracker implements the interface.
var _ driving.Sessions = (*AuthTracker)(nil)

// AuthTracker derives the combined AuthState from the per-provider
// credential managers and notifies listeners whenever it changes.
type AuthTracker struct {
	managers map[domain.Provider]driving.CredentialManager

	mu        sync.Mutex
	listeners []func(domain.AuthState)
}

// NewAuthTracker subscribes to every manager.
func NewAuthTracker(managers ...driving.CredentialManager) *AuthTracker {
	t := &AuthTracker{managers: make(map[domain.Provider]driving.CredentialManager, len(managers))}
	for _, m := range managers {
		t.managers[m.Provider()] = m
		m.Subscribe(t.changed)
	}
	return t
}

// Manager returns the credential manager for p, if registered.
func (t *AuthTracker) Manager(p domain.Provider) (driving.CredentialManager, bool) {
	m, ok := t.managers[p]
	return m, ok
}

// State recomputes the combined state.
func (t *AuthTracker) State() domain.AuthState {
	var s domain.AuthState
	if m, ok := t.managers[domain.ProviderMicrosoft]; ok && m.IsAuthenticated() {
		s.Microsoft = true
		s.MicrosoftAccount = m.Account()
	}
	if m, ok := t.managers[domain.ProviderGoogle]; ok && m.IsAuthenticated() {
		s.Google = true
		s.GoogleAccount = m.Account()
	}
	return s
}

// OnChange registers fn to receive the new state after any provider flips.
func (t *AuthTracker) OnChange(fn func(domain.AuthState)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, fn)
}

func (t *AuthTracker) changed(domain.Provider, bool) {
	t.mu.Lock()
	listeners := append([]func(domain.AuthState){}, t.listeners...)
	t.mu.Unlock()

	state := t.State()
	for _, fn := range listeners {
		fn(state)
	}
}
