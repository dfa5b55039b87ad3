package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/tasklift/internal/core/domain"
	"github.com/custodia-labs/tasklift/internal/core/ports/driven"
	"github.com/custodia-labs/tasklift/internal/core/ports/driving"
	"github.com/custodia-labs/tasklift/internal/logger"
)

// Ensure CredentialManager implements the interface.
var _ driving.CredentialManager = (*CredentialManager)(nil)

const (
	// verifierTTL bounds how long a PKCE verifier survives an unfinished login.
	verifierTTL = 10 * time.Minute

	// backgroundRenewTimeout bounds scheduled and fire-and-forget renewals.
	backgroundRenewTimeout = 30 * time.Second

	// minRenewalDelay is the shortest renewal timer worth arming.
	minRenewalDelay = time.Second
)

var (
	errNotSignedIn      = errors.New("not signed in")
	errNoRefreshToken   = errors.New("token expired and no refresh token is available")
	errVerifierMissing  = errors.New("login verifier expired or missing")
	errEmptyAccessToken = errors.New("provider returned an empty access token")
)

// CancelFunc stops a scheduled call. It returns false if the call already ran.
type CancelFunc func() bool

// ScheduleFunc runs f after d and returns a function that cancels it.
type ScheduleFunc func(d time.Duration, f func()) CancelFunc

func defaultSchedule(d time.Duration, f func()) CancelFunc {
	return time.AfterFunc(d, f).Stop
}

// CredentialManagerOption configures a CredentialManager.
type CredentialManagerOption func(*CredentialManager)

// WithRenewalThresholds sets the synchronous renewal floor and the
// proactive renewal window.
func WithRenewalThresholds(floor, window time.Duration) CredentialManagerOption {
	return func(m *CredentialManager) {
		if floor > 0 {
			m.floor = floor
		}
		if window > m.floor {
			m.window = window
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) CredentialManagerOption {
	return func(m *CredentialManager) { m.now = now }
}

// WithScheduler replaces time.AfterFunc for scheduled renewals.
func WithScheduler(schedule ScheduleFunc) CredentialManagerOption {
	return func(m *CredentialManager) { m.schedule = schedule }
}

// CredentialManager owns the refresh/exchange state machine for one provider.
// It is the only writer of the provider's TokenStore slot.
//
// States: signed out, signed in (valid), signed in (expiring). A credential
// whose TTL is at or below the window is expiring; at or below the floor,
// GetValidAccessToken renews synchronously before returning.
type CredentialManager struct {
	provider  domain.Provider
	store     driven.TokenStore
	verifiers driven.VerifierStore
	flow      driven.OAuthFlow
	grant     driven.InteractiveGrant

	floor    time.Duration
	window   time.Duration
	now      func() time.Time
	schedule ScheduleFunc

	mu        sync.Mutex
	loaded    bool
	cred      *domain.Credential
	pending   CancelFunc
	listeners []func(domain.Provider, bool)

	// renewMu serialises every write of the credential: renewals, login
	// and logout.
	renewMu sync.Mutex
	bg      sync.WaitGroup
}

// NewCredentialManager creates a credential manager for provider.
func NewCredentialManager(
	provider domain.Provider,
	store driven.TokenStore,
	verifiers driven.VerifierStore,
	flow driven.OAuthFlow,
	grant driven.InteractiveGrant,
	opts ...CredentialManagerOption,
) *CredentialManager {
	m := &CredentialManager{
		provider:  provider,
		store:     store,
		verifiers: verifiers,
		flow:      flow,
		grant:     grant,
		floor:     domain.DefaultRefreshFloor,
		window:    domain.DefaultRenewWindow,
		now:       time.Now,
		schedule:  defaultSchedule,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Provider returns the managed provider.
func (m *CredentialManager) Provider() domain.Provider {
	return m.provider
}

// TrySilent restores the stored credential. A credential inside the renewal
// window is renewed first; if that fails while the token is still valid the
// token is kept and another attempt is scheduled before it expires.
func (m *CredentialManager) TrySilent(ctx context.Context) (bool, *domain.Account) {
	cred, err := m.load(ctx)
	if err != nil {
		logger.Warn("%s: reading stored credential: %v", m.provider, err)
		return false, nil
	}
	if cred == nil {
		logger.Debug("%s: no stored credential", m.provider)
		return false, nil
	}

	ttl := cred.TTL(m.now())
	if ttl > m.window {
		logger.Debug("%s: restored credential, expires in %s", m.provider, ttl.Round(time.Second))
		m.scheduleRenewal(cred.ExpiresAt)
		return true, cred.Account
	}

	logger.Info("%s: credential expires in %s, renewing", m.provider, ttl.Round(time.Second))
	renewed, err := m.renew(ctx)
	if err == nil {
		return true, renewed.Account
	}

	if ttl > 0 {
		logger.Warn("%s: silent renewal failed, keeping current token: %v", m.provider, err)
		m.scheduleRenewal(cred.ExpiresAt)
		return true, cred.Account
	}

	logger.Warn("%s: silent renewal failed, signing out: %v", m.provider, err)
	m.signOut(ctx, cred)
	return false, nil
}

// LoginInteractive runs the consent flow and stores the resulting credential.
// On failure the current state is left untouched.
func (m *CredentialManager) LoginInteractive(ctx context.Context) (*domain.Account, error) {
	verifier, err := generateCodeVerifier()
	if err != nil {
		return nil, domain.NewAuthError(m.provider, domain.AuthExchangeFailed, fmt.Errorf("generate verifier: %w", err))
	}
	state, err := generateState()
	if err != nil {
		return nil, domain.NewAuthError(m.provider, domain.AuthExchangeFailed, fmt.Errorf("generate state: %w", err))
	}

	key := m.provider.StorageKey()
	m.verifiers.Put(key, verifier, verifierTTL)

	logger.Section(m.provider.DisplayName() + " login")
	authz, err := m.grant.Authorize(ctx, m.provider, state, func(redirectURI string) string {
		return m.flow.AuthCodeURL(redirectURI, state, verifier)
	})
	stored, ok := m.verifiers.Take(key)
	if err != nil {
		return nil, m.asAuthError(err, domain.AuthPopupBlocked)
	}
	if !ok {
		return nil, domain.NewAuthError(m.provider, domain.AuthExchangeFailed, errVerifierMissing)
	}

	cred, err := m.flow.Exchange(ctx, authz.RedirectURI, authz.Code, stored)
	if err != nil {
		return nil, domain.NewAuthError(m.provider, domain.AuthExchangeFailed, err)
	}
	if cred.AccessToken == "" {
		return nil, domain.NewAuthError(m.provider, domain.AuthExchangeFailed, errEmptyAccessToken)
	}

	account, err := m.flow.Account(ctx, cred.AccessToken)
	if err != nil {
		logger.Warn("%s: fetching account info: %v", m.provider, err)
	} else {
		cred.Account = account
	}

	m.renewMu.Lock()
	err = m.persist(ctx, cred)
	m.renewMu.Unlock()
	if err != nil {
		return nil, domain.NewAuthError(m.provider, domain.AuthExchangeFailed, err)
	}

	logger.Info("%s: signed in as %s", m.provider, cred.Account.Label())
	m.scheduleRenewal(cred.ExpiresAt)
	return cred.Account, nil
}

// GetValidAccessToken returns a token that has not expired. At or below the
// floor the token is renewed before returning; inside the window a renewal
// is started in the background and the current token returned.
func (m *CredentialManager) GetValidAccessToken(ctx context.Context) (string, error) {
	cred, err := m.load(ctx)
	if err != nil {
		return "", fmt.Errorf("load %s credential: %w", m.provider, err)
	}
	if cred == nil {
		return "", domain.NewAuthError(m.provider, domain.AuthExpired, errNotSignedIn)
	}

	ttl := cred.TTL(m.now())
	switch {
	case ttl <= m.floor:
		renewed, err := m.renew(ctx)
		if err == nil {
			return renewed.AccessToken, nil
		}
		if ttl > 0 {
			logger.Warn("%s: renewal failed, using token valid for %s: %v", m.provider, ttl.Round(time.Second), err)
			return cred.AccessToken, nil
		}
		m.signOut(ctx, cred)
		return "", err
	case ttl <= m.window:
		m.renewInBackground()
	}

	return cred.AccessToken, nil
}

// Logout cancels any scheduled renewal, clears the stored credential and
// signs out.
func (m *CredentialManager) Logout(ctx context.Context) error {
	m.renewMu.Lock()
	defer m.renewMu.Unlock()

	m.cancelScheduled()
	if err := m.store.Delete(ctx, m.provider.StorageKey()); err != nil {
		return fmt.Errorf("clear %s credential: %w", m.provider, err)
	}
	m.setCredential(nil)
	logger.Info("%s: signed out", m.provider)
	return nil
}

// Close cancels any scheduled renewal without touching the stored credential.
func (m *CredentialManager) Close() {
	m.cancelScheduled()
	m.bg.Wait()
}

// State returns the current sign-in state.
func (m *CredentialManager) State() driving.CredentialState {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cred == nil {
		return driving.StateSignedOut
	}
	if m.cred.TTL(m.now()) <= m.window {
		return driving.StateExpiring
	}
	return driving.StateValid
}

// IsAuthenticated returns true when a credential is held.
func (m *CredentialManager) IsAuthenticated() bool {
	return m.State().SignedIn()
}

// Account returns the signed-in account, or nil.
func (m *CredentialManager) Account() *domain.Account {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cred == nil {
		return nil
	}
	return m.cred.Account
}

// Subscribe registers fn to be called whenever the signed-in state flips.
func (m *CredentialManager) Subscribe(fn func(domain.Provider, bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// load returns the in-memory credential, reading the store on first use.
func (m *CredentialManager) load(ctx context.Context) (*domain.Credential, error) {
	m.mu.Lock()
	if m.loaded {
		cred := m.cred
		m.mu.Unlock()
		return cred, nil
	}
	m.mu.Unlock()

	cred, err := m.store.Load(ctx, m.provider.StorageKey())
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.loaded {
		// A concurrent load or login won.
		cred = m.cred
		m.mu.Unlock()
		return cred, nil
	}
	notify := m.swapLocked(cred)
	m.mu.Unlock()

	notify()
	return cred, nil
}

// current returns the in-memory credential without touching the store.
func (m *CredentialManager) current() *domain.Credential {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cred
}

// renew performs one refresh-token exchange.
func (m *CredentialManager) renew(ctx context.Context) (*domain.Credential, error) {
	m.renewMu.Lock()
	defer m.renewMu.Unlock()
	return m.renewLocked(ctx)
}

// renewLocked requires renewMu.
func (m *CredentialManager) renewLocked(ctx context.Context) (*domain.Credential, error) {
	cur := m.current()
	if cur == nil {
		return nil, domain.NewAuthError(m.provider, domain.AuthExpired, errNotSignedIn)
	}
	if cur.TTL(m.now()) > m.window {
		// Renewed by someone else while we waited.
		return cur, nil
	}
	if !cur.HasRefreshToken() {
		return nil, domain.NewAuthError(m.provider, domain.AuthExpired, errNoRefreshToken)
	}

	logger.Debug("%s: refreshing access token", m.provider)
	fresh, err := m.flow.Refresh(ctx, cur.RefreshToken)
	if err != nil {
		return nil, domain.NewAuthError(m.provider, domain.AuthRefreshFailed, err)
	}
	if fresh.AccessToken == "" {
		return nil, domain.NewAuthError(m.provider, domain.AuthRefreshFailed, errEmptyAccessToken)
	}

	next := *fresh
	if next.RefreshToken == "" {
		next.RefreshToken = cur.RefreshToken
	}
	if next.Scope == "" {
		next.Scope = cur.Scope
	}
	if next.Account == nil {
		next.Account = cur.Account
	}

	if err := m.persist(ctx, &next); err != nil {
		return nil, domain.NewAuthError(m.provider, domain.AuthRefreshFailed, err)
	}

	logger.Info("%s: access token renewed, expires %s", m.provider, next.ExpiresAt.Format(time.RFC3339))
	m.scheduleRenewal(next.ExpiresAt)
	return &next, nil
}

// renewInBackground starts a renewal unless one is already running.
func (m *CredentialManager) renewInBackground() {
	if !m.renewMu.TryLock() {
		return
	}
	m.bg.Add(1)
	go func() {
		defer m.bg.Done()
		defer m.renewMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), backgroundRenewTimeout)
		defer cancel()
		if _, err := m.renewLocked(ctx); err != nil {
			logger.Warn("%s: background renewal failed: %v", m.provider, err)
		}
	}()
}

// scheduledRenewal is the body of the timer set by scheduleRenewal.
func (m *CredentialManager) scheduledRenewal() {
	ctx, cancel := context.WithTimeout(context.Background(), backgroundRenewTimeout)
	defer cancel()

	_, err := m.renew(ctx)
	if err == nil {
		return
	}
	logger.Warn("%s: scheduled renewal failed: %v", m.provider, err)

	cur := m.current()
	if cur == nil {
		return
	}
	if cur.IsExpired(m.now()) {
		m.signOut(ctx, cur)
		return
	}
	if cur.TTL(m.now()) <= m.floor {
		// That was the last attempt; GetValidAccessToken renews from here.
		return
	}
	m.scheduleRenewal(cur.ExpiresAt)
}

// scheduleRenewal arms one renewal ahead of expiresAt, replacing any pending
// one. Inside the window the attempt is placed halfway to the floor, and
// inside the floor halfway to expiry. Nothing is armed for an expired token
// or a delay under minRenewalDelay.
func (m *CredentialManager) scheduleRenewal(expiresAt time.Time) {
	ttl := expiresAt.Sub(m.now())
	delay := ttl - m.window
	if delay <= 0 {
		delay = (ttl - m.floor) / 2
	}
	if delay <= 0 {
		delay = ttl / 2
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pending != nil {
		m.pending()
		m.pending = nil
	}
	if delay < minRenewalDelay {
		return
	}
	logger.Debug("%s: next renewal in %s", m.provider, delay.Round(time.Second))
	m.pending = m.schedule(delay, m.scheduledRenewal)
}

func (m *CredentialManager) cancelScheduled() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pending != nil {
		m.pending()
		m.pending = nil
	}
}

// persist writes cred to the store and only then adopts it in memory.
func (m *CredentialManager) persist(ctx context.Context, cred *domain.Credential) error {
	if err := m.store.Save(ctx, m.provider.StorageKey(), *cred); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	m.setCredential(cred)
	return nil
}

// signOut drops the credential after a terminal renewal failure, unless
// stale has already been replaced by a renewal or login.
func (m *CredentialManager) signOut(ctx context.Context, stale *domain.Credential) {
	m.renewMu.Lock()
	defer m.renewMu.Unlock()

	if m.current() != stale {
		return
	}
	m.cancelScheduled()
	if err := m.store.Delete(ctx, m.provider.StorageKey()); err != nil {
		logger.Warn("%s: clearing credential: %v", m.provider, err)
	}
	m.setCredential(nil)
}

// setCredential swaps the in-memory credential and notifies listeners when
// the signed-in state changes.
func (m *CredentialManager) setCredential(cred *domain.Credential) {
	m.mu.Lock()
	notify := m.swapLocked(cred)
	m.mu.Unlock()

	notify()
}

// swapLocked requires mu. The returned function notifies listeners and must
// be called after mu is released.
func (m *CredentialManager) swapLocked(cred *domain.Credential) func() {
	was := m.cred != nil
	m.cred = cred
	m.loaded = true
	now := cred != nil
	if was == now {
		return func() {}
	}

	listeners := append([]func(domain.Provider, bool){}, m.listeners...)
	return func() {
		for _, fn := range listeners {
			fn(m.provider, now)
		}
	}
}

// asAuthError keeps AuthErrors from the grant and wraps anything else.
func (m *CredentialManager) asAuthError(err error, kind domain.AuthErrorKind) error {
	var ae *domain.AuthError
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		kind = domain.AuthUserCancelled
	}
	return domain.NewAuthError(m.provider, kind, err)
}
