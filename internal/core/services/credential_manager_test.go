package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tasklift/internal/core/domain"
	"github.com/custodia-labs/tasklift/internal/core/ports/driving"
)

type credentialFixture struct {
	manager   *CredentialManager
	store     *faultyTokenStore
	verifiers *mockVerifierStore
	flow      *mockOAuthFlow
	grant     *mockGrant
	clock     *fakeClock
	scheduler *fakeScheduler
}

func newCredentialFixture() *credentialFixture {
	f := &credentialFixture{
		store:     newFaultyTokenStore(),
		verifiers: newMockVerifierStore(),
		flow:      &mockOAuthFlow{},
		grant:     &mockGrant{code: "auth-code"},
		clock:     newFakeClock(),
		scheduler: &fakeScheduler{},
	}
	f.flow.refreshCred = &domain.Credential{
		AccessToken: "renewed",
		ExpiresAt:   f.clock.Now().Add(time.Hour),
	}
	f.manager = NewCredentialManager(
		domain.ProviderMicrosoft,
		f.store, f.verifiers, f.flow, f.grant,
		WithRenewalThresholds(time.Minute, 5*time.Minute),
		WithClock(f.clock.Now),
		WithScheduler(f.scheduler.Schedule),
	)
	return f
}

// seed stores a credential expiring after ttl.
func (f *credentialFixture) seed(ttl time.Duration, refreshToken string) {
	_ = f.store.Save(context.Background(), domain.ProviderMicrosoft.StorageKey(), domain.Credential{
		AccessToken:  "current",
		RefreshToken: refreshToken,
		ExpiresAt:    f.clock.Now().Add(ttl),
		Account:      &domain.Account{Name: "Ada", Email: "ada@example.com"},
	})
}

func (f *credentialFixture) stored() (domain.Credential, bool) {
	cred, err := f.store.TokenStore.Load(context.Background(), domain.ProviderMicrosoft.StorageKey())
	if err != nil || cred == nil {
		return domain.Credential{}, false
	}
	return *cred, true
}

func TestCredentialManager_TrySilent_NothingStored(t *testing.T) {
	f := newCredentialFixture()

	ok, account := f.manager.TrySilent(context.Background())

	assert.False(t, ok)
	assert.Nil(t, account)
	assert.Equal(t, driving.StateSignedOut, f.manager.State())
	assert.Equal(t, 0, f.flow.RefreshCalls())
}

func TestCredentialManager_TrySilent_StoreError(t *testing.T) {
	f := newCredentialFixture()
	f.store.loadErr = errors.New("disk gone")

	ok, _ := f.manager.TrySilent(context.Background())

	assert.False(t, ok)
}

func TestCredentialManager_TrySilent_ValidTokenSchedulesRenewal(t *testing.T) {
	f := newCredentialFixture()
	f.seed(time.Hour, "rt")

	ok, account := f.manager.TrySilent(context.Background())

	require.True(t, ok)
	assert.Equal(t, "ada@example.com", account.Email)
	assert.Equal(t, driving.StateValid, f.manager.State())
	assert.Equal(t, 0, f.flow.RefreshCalls())

	delay, scheduled := f.scheduler.Last()
	require.True(t, scheduled)
	assert.Equal(t, 55*time.Minute, delay)
}

func TestCredentialManager_TrySilent_RenewsInsideWindow(t *testing.T) {
	f := newCredentialFixture()
	f.seed(3*time.Minute, "rt")

	ok, account := f.manager.TrySilent(context.Background())

	require.True(t, ok)
	require.NotNil(t, account)
	assert.Equal(t, "Ada", account.Name)
	assert.Equal(t, 1, f.flow.RefreshCalls())

	cred, found := f.stored()
	require.True(t, found)
	assert.Equal(t, "renewed", cred.AccessToken)
	assert.Equal(t, "rt", cred.RefreshToken, "refresh token is kept when the provider omits it")
	assert.Equal(t, "ada@example.com", cred.Account.Email)
}

func TestCredentialManager_TrySilent_KeepsValidTokenWhenRenewalFails(t *testing.T) {
	f := newCredentialFixture()
	f.seed(3*time.Minute, "rt")
	f.flow.refreshErr = errors.New("network down")

	ok, _ := f.manager.TrySilent(context.Background())

	require.True(t, ok)
	assert.Equal(t, driving.StateExpiring, f.manager.State())
	cred, found := f.stored()
	require.True(t, found)
	assert.Equal(t, "current", cred.AccessToken)

	delay, scheduled := f.scheduler.Last()
	require.True(t, scheduled)
	assert.Equal(t, time.Minute, delay, "retry halfway between now and the floor")
}

func TestCredentialManager_TrySilent_SchedulesLastAttemptInsideFloor(t *testing.T) {
	f := newCredentialFixture()
	f.seed(30*time.Second, "rt")
	f.flow.refreshErr = errors.New("network down")

	ok, _ := f.manager.TrySilent(context.Background())

	require.True(t, ok)
	delay, scheduled := f.scheduler.Last()
	require.True(t, scheduled)
	assert.Equal(t, 15*time.Second, delay, "retry halfway to expiry")

	f.clock.Advance(15 * time.Second)
	f.scheduler.Fire()

	assert.Equal(t, 2, f.flow.RefreshCalls())
	assert.Len(t, f.scheduler.delays, 1, "no further attempt after the last one")
	assert.True(t, f.manager.IsAuthenticated(), "token is kept until it expires")
}

func TestCredentialManager_TrySilent_ExpiredAndRenewalFails(t *testing.T) {
	f := newCredentialFixture()
	f.seed(-time.Minute, "rt")
	f.flow.refreshErr = errors.New("invalid_grant")

	ok, account := f.manager.TrySilent(context.Background())

	assert.False(t, ok)
	assert.Nil(t, account)
	_, found := f.stored()
	assert.False(t, found, "expired credential is cleared")
	assert.Equal(t, driving.StateSignedOut, f.manager.State())
}

func TestCredentialManager_GetValidAccessToken_NotSignedIn(t *testing.T) {
	f := newCredentialFixture()

	_, err := f.manager.GetValidAccessToken(context.Background())

	require.Error(t, err)
	assert.True(t, domain.IsAuthKind(err, domain.AuthExpired))
	assert.ErrorIs(t, err, domain.ErrAuth)
}

func TestCredentialManager_GetValidAccessToken_ReturnsValidToken(t *testing.T) {
	f := newCredentialFixture()
	f.seed(time.Hour, "rt")

	token, err := f.manager.GetValidAccessToken(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "current", token)
	assert.Equal(t, 0, f.flow.RefreshCalls())
}

func TestCredentialManager_GetValidAccessToken_RenewsBelowFloor(t *testing.T) {
	f := newCredentialFixture()
	f.seed(30*time.Second, "rt")

	token, err := f.manager.GetValidAccessToken(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "renewed", token)
	assert.Equal(t, []string{"rt"}, f.flow.refreshTokens)
}

func TestCredentialManager_GetValidAccessToken_BackgroundRenewalInsideWindow(t *testing.T) {
	f := newCredentialFixture()
	f.seed(3*time.Minute, "rt")

	token, err := f.manager.GetValidAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "current", token, "token above the floor is returned without waiting")

	f.manager.Close()

	assert.Equal(t, 1, f.flow.RefreshCalls())
	cred, _ := f.stored()
	assert.Equal(t, "renewed", cred.AccessToken)
}

func TestCredentialManager_GetValidAccessToken_FailedRenewalKeepsUnexpiredToken(t *testing.T) {
	f := newCredentialFixture()
	f.seed(30*time.Second, "rt")
	f.flow.refreshErr = errors.New("timeout")

	token, err := f.manager.GetValidAccessToken(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "current", token)
	assert.True(t, f.manager.IsAuthenticated())
}

func TestCredentialManager_GetValidAccessToken_ExpiredWithoutRefreshToken(t *testing.T) {
	f := newCredentialFixture()
	f.seed(-time.Second, "")

	_, err := f.manager.GetValidAccessToken(context.Background())

	require.Error(t, err)
	assert.True(t, domain.IsAuthKind(err, domain.AuthExpired))
	assert.False(t, f.manager.IsAuthenticated())
	assert.Equal(t, 0, f.flow.RefreshCalls())
}

func TestCredentialManager_GetValidAccessToken_ExpiredAndRefreshFails(t *testing.T) {
	f := newCredentialFixture()
	f.seed(-time.Second, "rt")
	f.flow.refreshErr = errors.New("invalid_grant")

	_, err := f.manager.GetValidAccessToken(context.Background())

	require.Error(t, err)
	assert.True(t, domain.IsAuthKind(err, domain.AuthRefreshFailed))
	assert.False(t, f.manager.IsAuthenticated())
	_, found := f.stored()
	assert.False(t, found)
}

func TestCredentialManager_RenewalSaveFailureKeepsOldCredential(t *testing.T) {
	f := newCredentialFixture()
	f.seed(30*time.Second, "rt")
	f.store.saveErr = errors.New("read-only")

	token, err := f.manager.GetValidAccessToken(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "current", token, "renewed token is not adopted until it is persisted")
	assert.Equal(t, 1, f.flow.RefreshCalls())
	cred, _ := f.stored()
	assert.Equal(t, "current", cred.AccessToken)
}

func TestCredentialManager_ConcurrentCallersShareOneRenewal(t *testing.T) {
	f := newCredentialFixture()
	f.seed(10*time.Second, "rt")

	var wg sync.WaitGroup
	tokens := make([]string, 8)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], _ = f.manager.GetValidAccessToken(context.Background())
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, f.flow.RefreshCalls())
	for _, tok := range tokens {
		assert.Equal(t, "renewed", tok)
	}
}

func TestCredentialManager_ScheduledRenewal(t *testing.T) {
	f := newCredentialFixture()
	f.seed(time.Hour, "rt")
	ok, _ := f.manager.TrySilent(context.Background())
	require.True(t, ok)

	f.clock.Advance(56 * time.Minute)
	f.flow.refreshCred = &domain.Credential{AccessToken: "renewed", ExpiresAt: f.clock.Now().Add(time.Hour)}
	f.scheduler.Fire()

	assert.Equal(t, 1, f.flow.RefreshCalls())
	cred, _ := f.stored()
	assert.Equal(t, "renewed", cred.AccessToken)
	assert.Equal(t, driving.StateValid, f.manager.State())
}

func TestCredentialManager_LoginInteractive(t *testing.T) {
	f := newCredentialFixture()
	f.flow.exchangeCred = &domain.Credential{
		AccessToken:  "fresh",
		RefreshToken: "rt",
		ExpiresAt:    f.clock.Now().Add(time.Hour),
	}
	f.flow.account = &domain.Account{Name: "Grace", Email: "grace@example.com"}

	var events []bool
	f.manager.Subscribe(func(p domain.Provider, signedIn bool) {
		assert.Equal(t, domain.ProviderMicrosoft, p)
		events = append(events, signedIn)
	})

	account, err := f.manager.LoginInteractive(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", account.Email)
	assert.Equal(t, "auth-code", f.flow.lastCode)
	assert.Contains(t, f.grant.lastURL, "state="+f.grant.gotState)
	assert.Contains(t, f.grant.lastURL, "v="+f.flow.lastVerifier)
	assert.Len(t, f.flow.lastVerifier, 86)

	cred, found := f.stored()
	require.True(t, found)
	assert.Equal(t, "fresh", cred.AccessToken)
	assert.Equal(t, "Grace", cred.Account.Name)
	assert.Equal(t, []bool{true}, events)
	assert.Equal(t, driving.StateValid, f.manager.State())
}

func TestCredentialManager_LoginDuringFirstLoadWins(t *testing.T) {
	f := newCredentialFixture()
	f.seed(time.Hour, "rt")
	f.flow.exchangeCred = &domain.Credential{AccessToken: "fresh", ExpiresAt: f.clock.Now().Add(time.Hour)}
	f.store.loading = make(chan struct{})
	f.store.loadGate = make(chan struct{})

	tokens := make(chan string, 1)
	go func() {
		tok, err := f.manager.GetValidAccessToken(context.Background())
		assert.NoError(t, err)
		tokens <- tok
	}()
	<-f.store.loading

	_, err := f.manager.LoginInteractive(context.Background())
	require.NoError(t, err)
	close(f.store.loadGate)

	assert.Equal(t, "fresh", <-tokens, "the stale stored credential must not replace the login")
	cred, _ := f.stored()
	assert.Equal(t, "fresh", cred.AccessToken)
}

func TestCredentialManager_SignOutSkipsReplacedCredential(t *testing.T) {
	f := newCredentialFixture()
	f.seed(time.Hour, "rt")
	ok, _ := f.manager.TrySilent(context.Background())
	require.True(t, ok)
	stale := f.manager.current()

	f.flow.exchangeCred = &domain.Credential{AccessToken: "fresh", ExpiresAt: f.clock.Now().Add(time.Hour)}
	_, err := f.manager.LoginInteractive(context.Background())
	require.NoError(t, err)

	f.manager.signOut(context.Background(), stale)

	assert.True(t, f.manager.IsAuthenticated())
	cred, found := f.stored()
	require.True(t, found)
	assert.Equal(t, "fresh", cred.AccessToken)
}

func TestCredentialManager_LoginInteractive_AccountLookupIsBestEffort(t *testing.T) {
	f := newCredentialFixture()
	f.flow.exchangeCred = &domain.Credential{AccessToken: "fresh", ExpiresAt: f.clock.Now().Add(time.Hour)}
	f.flow.accountErr = errors.New("forbidden")

	account, err := f.manager.LoginInteractive(context.Background())

	require.NoError(t, err)
	assert.Nil(t, account)
	assert.True(t, f.manager.IsAuthenticated())
}

func TestCredentialManager_LoginInteractive_Failures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *credentialFixture)
		kind  domain.AuthErrorKind
	}{
		{
			name: "user closed the window",
			setup: func(f *credentialFixture) {
				f.grant.err = domain.NewAuthError(domain.ProviderMicrosoft, domain.AuthUserCancelled, errors.New("access_denied"))
			},
			kind: domain.AuthUserCancelled,
		},
		{
			name: "browser could not be opened",
			setup: func(f *credentialFixture) {
				f.grant.err = errors.New("exec: xdg-open not found")
			},
			kind: domain.AuthPopupBlocked,
		},
		{
			name: "login timed out",
			setup: func(f *credentialFixture) {
				f.grant.err = context.DeadlineExceeded
			},
			kind: domain.AuthUserCancelled,
		},
		{
			name: "verifier lost",
			setup: func(f *credentialFixture) {
				f.verifiers.dropOnPut = true
			},
			kind: domain.AuthExchangeFailed,
		},
		{
			name: "code exchange rejected",
			setup: func(f *credentialFixture) {
				f.flow.exchangeErr = errors.New("invalid_grant")
			},
			kind: domain.AuthExchangeFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCredentialFixture()
			f.seed(time.Hour, "rt")
			f.flow.exchangeCred = &domain.Credential{AccessToken: "fresh", ExpiresAt: f.clock.Now().Add(time.Hour)}
			tt.setup(f)

			_, err := f.manager.LoginInteractive(context.Background())

			require.Error(t, err)
			assert.True(t, domain.IsAuthKind(err, tt.kind), "got %v", err)

			cred, found := f.stored()
			require.True(t, found, "previous credential is untouched")
			assert.Equal(t, "current", cred.AccessToken)
		})
	}
}

func TestCredentialManager_Logout(t *testing.T) {
	f := newCredentialFixture()
	f.seed(time.Hour, "rt")
	ok, _ := f.manager.TrySilent(context.Background())
	require.True(t, ok)

	var events []bool
	f.manager.Subscribe(func(_ domain.Provider, signedIn bool) {
		events = append(events, signedIn)
	})

	require.NoError(t, f.manager.Logout(context.Background()))

	assert.False(t, f.manager.IsAuthenticated())
	assert.Nil(t, f.manager.Account())
	_, found := f.stored()
	assert.False(t, found)
	assert.Equal(t, 1, f.scheduler.cancelled)
	assert.Equal(t, []bool{false}, events)

	_, err := f.manager.GetValidAccessToken(context.Background())
	assert.True(t, domain.IsAuthKind(err, domain.AuthExpired))
}
