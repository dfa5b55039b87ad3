package oauth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/tasklift/internal/core/domain"
)

const testVerifier = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"

type tokenServer struct {
	*httptest.Server
	forms []url.Values
}

func newTokenServer(t *testing.T, status int, body map[string]any) *tokenServer {
	t.Helper()
	ts := &tokenServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		ts.forms = append(ts.forms, r.PostForm)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *tokenServer) endpoint() oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:   ts.URL + "/authorize",
		TokenURL:  ts.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
}

func TestNewFlow(t *testing.T) {
	ms, err := NewFlow(domain.ProviderMicrosoft, domain.OAuthClientSettings{ClientID: "ms"})
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderMicrosoft, ms.Provider())
	assert.Contains(t, ms.config.Endpoint.TokenURL, "/common/")

	g, err := NewFlow(domain.ProviderGoogle, domain.OAuthClientSettings{ClientID: "g"})
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderGoogle, g.Provider())

	_, err = NewFlow("dropbox", domain.OAuthClientSettings{})
	assert.ErrorIs(t, err, domain.ErrUnsupportedProvider)
}

func TestMicrosoftFlow_TenantInEndpoint(t *testing.T) {
	f := NewMicrosoftFlow(domain.OAuthClientSettings{ClientID: "ms", Tenant: "consumers"})
	assert.Contains(t, f.config.Endpoint.AuthURL, "/consumers/")
}

func TestAuthCodeURL_Google(t *testing.T) {
	f := NewGoogleFlow(domain.OAuthClientSettings{ClientID: "client-g"})

	raw := f.AuthCodeURL("http://127.0.0.1:8085/callback", "state-1", testVerifier)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()

	sum := sha256.Sum256([]byte(testVerifier))
	assert.Equal(t, base64.RawURLEncoding.EncodeToString(sum[:]), q.Get("code_challenge"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.Equal(t, "state-1", q.Get("state"))
	assert.Equal(t, "client-g", q.Get("client_id"))
	assert.Equal(t, "http://127.0.0.1:8085/callback", q.Get("redirect_uri"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Contains(t, q.Get("scope"), "calendar.events")
}

func TestAuthCodeURL_Microsoft(t *testing.T) {
	f := NewMicrosoftFlow(domain.OAuthClientSettings{ClientID: "client-ms"})

	u, err := url.Parse(f.AuthCodeURL("http://127.0.0.1:8086/callback", "s", testVerifier))
	require.NoError(t, err)
	q := u.Query()

	assert.Empty(t, q.Get("access_type"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.Contains(t, q.Get("scope"), "offline_access")
	assert.Contains(t, q.Get("scope"), "Tasks.ReadWrite")
}

func TestExchange_Success(t *testing.T) {
	ts := newTokenServer(t, http.StatusOK, map[string]any{
		"access_token":  "at-1",
		"refresh_token": "rt-1",
		"token_type":    "Bearer",
		"expires_in":    3600,
		"scope":         "Tasks.ReadWrite User.Read",
	})
	f := NewMicrosoftFlow(domain.OAuthClientSettings{ClientID: "ms"}, WithEndpoint(ts.endpoint()))

	cred, err := f.Exchange(context.Background(), "http://127.0.0.1:8085/callback", "code-1", testVerifier)
	require.NoError(t, err)

	assert.Equal(t, "at-1", cred.AccessToken)
	assert.Equal(t, "rt-1", cred.RefreshToken)
	assert.Equal(t, "Tasks.ReadWrite User.Read", cred.Scope)
	assert.WithinDuration(t, time.Now().Add(time.Hour), cred.ExpiresAt, time.Minute)

	require.Len(t, ts.forms, 1)
	form := ts.forms[0]
	assert.Equal(t, "authorization_code", form.Get("grant_type"))
	assert.Equal(t, "code-1", form.Get("code"))
	assert.Equal(t, testVerifier, form.Get("code_verifier"))
	assert.Equal(t, "http://127.0.0.1:8085/callback", form.Get("redirect_uri"))
	assert.Equal(t, "ms", form.Get("client_id"))
}

func TestExchange_DefaultsWhenFieldsMissing(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ts := newTokenServer(t, http.StatusOK, map[string]any{
		"access_token": "at-1",
		"token_type":   "Bearer",
	})
	f := NewGoogleFlow(domain.OAuthClientSettings{ClientID: "g"},
		WithEndpoint(ts.endpoint()), WithClock(func() time.Time { return now }))

	cred, err := f.Exchange(context.Background(), "http://127.0.0.1/cb", "c", testVerifier)
	require.NoError(t, err)

	assert.Equal(t, now.Add(defaultTokenLifetime), cred.ExpiresAt)
	assert.Equal(t, strings.Join(GoogleScopes, " "), cred.Scope)
	assert.Empty(t, cred.RefreshToken)
}

func TestExchange_InvalidGrant(t *testing.T) {
	ts := newTokenServer(t, http.StatusBadRequest, map[string]any{
		"error":             "invalid_grant",
		"error_description": "code expired",
	})
	f := NewGoogleFlow(domain.OAuthClientSettings{ClientID: "g"}, WithEndpoint(ts.endpoint()))

	_, err := f.Exchange(context.Background(), "http://127.0.0.1/cb", "c", testVerifier)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPermanentRequest)
	assert.Contains(t, err.Error(), "invalid_grant")

	var rerr *oauth2.RetrieveError
	assert.ErrorAs(t, err, &rerr)
}

func TestRefresh_Success(t *testing.T) {
	ts := newTokenServer(t, http.StatusOK, map[string]any{
		"access_token": "at-2",
		"token_type":   "Bearer",
		"expires_in":   1800,
	})
	f := NewGoogleFlow(domain.OAuthClientSettings{ClientID: "g", ClientSecret: "sec"}, WithEndpoint(ts.endpoint()))

	cred, err := f.Refresh(context.Background(), "rt-1")
	require.NoError(t, err)
	assert.Equal(t, "at-2", cred.AccessToken)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), cred.ExpiresAt, time.Minute)

	require.Len(t, ts.forms, 1)
	assert.Equal(t, "refresh_token", ts.forms[0].Get("grant_type"))
	assert.Equal(t, "rt-1", ts.forms[0].Get("refresh_token"))
	assert.Equal(t, "sec", ts.forms[0].Get("client_secret"))
}

func TestRefresh_ServerUnavailable(t *testing.T) {
	ts := newTokenServer(t, http.StatusServiceUnavailable, map[string]any{"error": "temporarily_unavailable"})
	f := NewMicrosoftFlow(domain.OAuthClientSettings{ClientID: "ms"}, WithEndpoint(ts.endpoint()))

	_, err := f.Refresh(context.Background(), "rt-1")
	assert.ErrorIs(t, err, domain.ErrTransientService)
}

func TestRefresh_EmptyToken(t *testing.T) {
	f := NewMicrosoftFlow(domain.OAuthClientSettings{ClientID: "ms"})
	_, err := f.Refresh(context.Background(), "")
	assert.Error(t, err)
}

func TestAccount_Graph(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"displayName":"Kim Minji","mail":null,"userPrincipalName":"minji@example.com"}`))
	}))
	defer srv.Close()

	f := NewMicrosoftFlow(domain.OAuthClientSettings{ClientID: "ms"}, WithAccountURL(srv.URL))
	account, err := f.Account(context.Background(), "at-1")
	require.NoError(t, err)
	assert.Equal(t, "Kim Minji", account.Name)
	assert.Equal(t, "minji@example.com", account.Email)
}

func TestAccount_GoogleUserInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"email":"minji@gmail.com","verified_email":true,"name":"Minji"}`))
	}))
	defer srv.Close()

	f := NewGoogleFlow(domain.OAuthClientSettings{ClientID: "g"}, WithAccountURL(srv.URL))
	account, err := f.Account(context.Background(), "at-1")
	require.NoError(t, err)
	assert.Equal(t, "Minji", account.Name)
	assert.Equal(t, "minji@gmail.com", account.Email)
}

func TestAccount_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	f := NewGoogleFlow(domain.OAuthClientSettings{ClientID: "g"}, WithAccountURL(srv.URL))
	_, err := f.Account(context.Background(), "bad")
	assert.ErrorIs(t, err, domain.ErrPermanentRequest)
}
