package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/custodia-labs/tasklift/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/tasklift/internal/core/domain"
	"github.com/custodia-labs/tasklift/internal/core/ports/driven"
	"github.com/custodia-labs/tasklift/internal/core/ports/driving"
)

// --- Clock and scheduler ---

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeScheduler records scheduled renewals instead of arming timers.
type fakeScheduler struct {
	mu        sync.Mutex
	delays    []time.Duration
	fn        func()
	cancelled int
}

func (s *fakeScheduler) Schedule(d time.Duration, f func()) CancelFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	s.fn = f
	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.cancelled++
		return true
	}
}

func (s *fakeScheduler) Last() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.delays) == 0 {
		return 0, false
	}
	return s.delays[len(s.delays)-1], true
}

// Fire runs the most recently scheduled function.
func (s *fakeScheduler) Fire() {
	s.mu.Lock()
	fn := s.fn
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// --- Token and verifier stores ---

// faultyTokenStore is a memory.TokenStore whose reads and writes can be
// made to fail or, with loadGate set, to block.
type faultyTokenStore struct {
	*memory.TokenStore
	loadErr error
	saveErr error

	// loading is closed when Load starts; Load then waits for loadGate.
	loading  chan struct{}
	loadGate chan struct{}
}

func newFaultyTokenStore() *faultyTokenStore {
	return &faultyTokenStore{TokenStore: memory.NewTokenStore()}
}

func (s *faultyTokenStore) Load(ctx context.Context, key string) (*domain.Credential, error) {
	if s.loadGate != nil {
		close(s.loading)
		<-s.loadGate
	}
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.TokenStore.Load(ctx, key)
}

func (s *faultyTokenStore) Save(ctx context.Context, key string, cred domain.Credential) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.TokenStore.Save(ctx, key, cred)
}

type mockVerifierStore struct {
	mu        sync.Mutex
	verifiers map[string]string
	dropOnPut bool
}

func newMockVerifierStore() *mockVerifierStore {
	return &mockVerifierStore{verifiers: make(map[string]string)}
}

func (s *mockVerifierStore) Put(key, verifier string, _ time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dropOnPut {
		return
	}
	s.verifiers[key] = verifier
}

func (s *mockVerifierStore) Take(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.verifiers[key]
	delete(s.verifiers, key)
	return v, ok
}

// --- OAuth flow and grant ---

type mockOAuthFlow struct {
	mu            sync.Mutex
	exchangeCred  *domain.Credential
	exchangeErr   error
	refreshCred   *domain.Credential
	refreshErr    error
	refreshCalls  int
	refreshTokens []string
	account       *domain.Account
	accountErr    error
	lastVerifier  string
	lastCode      string
}

func (f *mockOAuthFlow) AuthCodeURL(redirectURI, state, verifier string) string {
	return redirectURI + "?state=" + state + "&v=" + verifier
}

func (f *mockOAuthFlow) Exchange(_ context.Context, _, code, verifier string) (*domain.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastCode = code
	f.lastVerifier = verifier
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	cred := *f.exchangeCred
	return &cred, nil
}

func (f *mockOAuthFlow) Refresh(_ context.Context, refreshToken string) (*domain.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	f.refreshTokens = append(f.refreshTokens, refreshToken)
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	cred := *f.refreshCred
	return &cred, nil
}

func (f *mockOAuthFlow) Account(_ context.Context, _ string) (*domain.Account, error) {
	if f.accountErr != nil {
		return nil, f.accountErr
	}
	return f.account, nil
}

func (f *mockOAuthFlow) RefreshCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

type mockGrant struct {
	code     string
	err      error
	calls    int
	lastURL  string
	gotState string
}

func (g *mockGrant) Authorize(_ context.Context, _ domain.Provider, state string, authURL func(string) string) (*driven.Authorization, error) {
	g.calls++
	g.gotState = state
	g.lastURL = authURL("http://localhost:8085/callback")
	if g.err != nil {
		return nil, g.err
	}
	return &driven.Authorization{Code: g.code, RedirectURI: "http://localhost:8085/callback"}, nil
}

// --- Credentials for dispatch tests ---

type staticTokenSource struct {
	token string
	err   error
	calls int
}

func (s *staticTokenSource) GetValidAccessToken(_ context.Context) (string, error) {
	s.calls++
	return s.token, s.err
}

// stubCredentials is a minimal driving.CredentialManager for orchestration.
type stubCredentials struct {
	staticTokenSource
	provider domain.Provider
	signedIn bool
	account  *domain.Account
}

func (s *stubCredentials) Provider() domain.Provider { return s.provider }

func (s *stubCredentials) TrySilent(context.Context) (bool, *domain.Account) {
	return s.signedIn, s.account
}

func (s *stubCredentials) LoginInteractive(context.Context) (*domain.Account, error) {
	s.signedIn = true
	return s.account, nil
}

func (s *stubCredentials) Logout(context.Context) error {
	s.signedIn = false
	return nil
}

func (s *stubCredentials) State() driving.CredentialState {
	if s.signedIn {
		return driving.StateValid
	}
	return driving.StateSignedOut
}

func (s *stubCredentials) IsAuthenticated() bool                 { return s.signedIn }
func (s *stubCredentials) Account() *domain.Account              { return s.account }
func (s *stubCredentials) Subscribe(func(domain.Provider, bool)) {}

// --- Destinations ---

type createCall struct {
	Token  string
	Target string
	Record domain.TaskRecord
}

// mockWriter fails the calls whose 1-based ordinal is listed in failOn.
type mockWriter struct {
	mu     sync.Mutex
	dest   domain.Destination
	calls  []createCall
	failOn map[int]error
}

func newMockWriter(dest domain.Destination) *mockWriter {
	return &mockWriter{dest: dest, failOn: make(map[int]error)}
}

func (w *mockWriter) Destination() domain.Destination { return w.dest }

func (w *mockWriter) Create(_ context.Context, token, target string, record domain.TaskRecord) (*domain.CreatedItem, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, createCall{Token: token, Target: target, Record: record})
	if err, ok := w.failOn[len(w.calls)]; ok {
		return nil, err
	}
	return &domain.CreatedItem{ID: record.Title + "-id"}, nil
}

func (w *mockWriter) Calls() []createCall {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]createCall(nil), w.calls...)
}

type mockLimiter struct {
	waits    int
	backoffs []time.Duration
	waitErr  error
}

func (l *mockLimiter) Wait(context.Context) error {
	l.waits++
	return l.waitErr
}

func (l *mockLimiter) Backoff(d time.Duration) {
	l.backoffs = append(l.backoffs, d)
}

// --- Generator ---

// mockGenerator returns scripted results per call.
type mockGenerator struct {
	mu      sync.Mutex
	results []generatorResult
	keys    []string
}

type generatorResult struct {
	candidates []domain.TaskCandidate
	err        error
}

func (g *mockGenerator) Generate(_ context.Context, apiKey string, _ domain.CaptureInput) ([]domain.TaskCandidate, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.keys = append(g.keys, apiKey)
	if len(g.results) == 0 {
		return nil, errors.New("unexpected call")
	}
	r := g.results[0]
	g.results = g.results[1:]
	return r.candidates, r.err
}

func (g *mockGenerator) Keys() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.keys...)
}
