// Package oauth implements the network side of the Microsoft and Google
// OAuth grants on top of golang.org/x/oauth2.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"

	"github.com/custodia-labs/tasklift/internal/core/domain"
	"github.com/custodia-labs/tasklift/internal/core/ports/driven"
)

// Ensure Flow implements the interface.
var _ driven.OAuthFlow = (*Flow)(nil)

const (
	// GraphMeURL returns the signed-in Microsoft user.
	GraphMeURL = "https://graph.microsoft.com/v1.0/me"
	// GoogleUserInfoURL returns the signed-in Google user.
	GoogleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

	// defaultTokenLifetime applies when the token response omits expires_in.
	defaultTokenLifetime = time.Hour

	httpTimeout = 30 * time.Second
)

// Scopes requested per provider.
var (
	MicrosoftScopes = []string{"openid", "profile", "offline_access", "User.Read", "Tasks.ReadWrite"}
	GoogleScopes    = []string{
		"https://www.googleapis.com/auth/userinfo.email",
		"https://www.googleapis.com/auth/userinfo.profile",
		"https://www.googleapis.com/auth/calendar.events",
	}
)

// Flow performs code exchange, refresh and account lookup for one provider.
type Flow struct {
	provider   domain.Provider
	config     oauth2.Config
	authParams []oauth2.AuthCodeOption
	accountURL string
	client     *http.Client
	now        func() time.Time
}

// Option configures a Flow.
type Option func(*Flow)

// WithEndpoint overrides the provider's authorization and token endpoints.
func WithEndpoint(endpoint oauth2.Endpoint) Option {
	return func(f *Flow) { f.config.Endpoint = endpoint }
}

// WithAccountURL overrides the user profile endpoint.
func WithAccountURL(url string) Option {
	return func(f *Flow) { f.accountURL = url }
}

// WithHTTPClient sets the client used for token and profile requests.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Flow) { f.client = client }
}

// WithClock replaces time.Now for expiry computation.
func WithClock(now func() time.Time) Option {
	return func(f *Flow) { f.now = now }
}

// NewFlow creates the flow for provider from its client registration.
func NewFlow(provider domain.Provider, settings domain.OAuthClientSettings, opts ...Option) (*Flow, error) {
	switch provider {
	case domain.ProviderMicrosoft:
		return NewMicrosoftFlow(settings, opts...), nil
	case domain.ProviderGoogle:
		return NewGoogleFlow(settings, opts...), nil
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedProvider, provider)
	}
}

// NewMicrosoftFlow creates a flow against the Microsoft identity platform.
// It is a public client: no secret is sent and PKCE binds the code.
func NewMicrosoftFlow(settings domain.OAuthClientSettings, opts ...Option) *Flow {
	tenant := settings.Tenant
	if tenant == "" {
		tenant = domain.DefaultMicrosoftTenant
	}

	f := &Flow{
		provider: domain.ProviderMicrosoft,
		config: oauth2.Config{
			ClientID:     settings.ClientID,
			ClientSecret: settings.ClientSecret,
			Endpoint:     microsoft.AzureADEndpoint(tenant),
			Scopes:       MicrosoftScopes,
		},
		authParams: []oauth2.AuthCodeOption{
			oauth2.SetAuthURLParam("prompt", "select_account"),
		},
		accountURL: GraphMeURL,
	}
	return f.apply(opts)
}

// NewGoogleFlow creates a flow against Google's OAuth 2.0 server.
// Offline access is requested so that a refresh token is issued.
func NewGoogleFlow(settings domain.OAuthClientSettings, opts ...Option) *Flow {
	f := &Flow{
		provider: domain.ProviderGoogle,
		config: oauth2.Config{
			ClientID:     settings.ClientID,
			ClientSecret: settings.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       GoogleScopes,
		},
		authParams: []oauth2.AuthCodeOption{
			oauth2.AccessTypeOffline,
			oauth2.SetAuthURLParam("prompt", "consent"),
		},
		accountURL: GoogleUserInfoURL,
	}
	return f.apply(opts)
}

func (f *Flow) apply(opts []Option) *Flow {
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = &http.Client{Timeout: httpTimeout}
	}
	if f.now == nil {
		f.now = time.Now
	}
	return f
}

// Provider returns the provider this flow serves.
func (f *Flow) Provider() domain.Provider {
	return f.provider
}

// AuthCodeURL builds the consent URL carrying state and the S256 challenge.
func (f *Flow) AuthCodeURL(redirectURI, state, verifier string) string {
	cfg := f.configFor(redirectURI)
	opts := append([]oauth2.AuthCodeOption{oauth2.S256ChallengeOption(verifier)}, f.authParams...)
	return cfg.AuthCodeURL(state, opts...)
}

// Exchange trades an authorization code for a credential.
func (f *Flow) Exchange(ctx context.Context, redirectURI, code, verifier string) (*domain.Credential, error) {
	cfg := f.configFor(redirectURI)

	tok, err := cfg.Exchange(f.withClient(ctx), code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", classify(err))
	}
	return f.credential(tok), nil
}

// Refresh redeems refreshToken for a new access token.
func (f *Flow) Refresh(ctx context.Context, refreshToken string) (*domain.Credential, error) {
	if refreshToken == "" {
		return nil, errors.New("refresh token is empty")
	}

	// An empty access token is never valid, so Token always hits the endpoint.
	src := f.config.TokenSource(f.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", classify(err))
	}
	return f.credential(tok), nil
}

// Account fetches display information for the token's user.
func (f *Flow) Account(ctx context.Context, accessToken string) (*domain.Account, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.accountURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}).SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch account: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch account: %w",
			domain.ClassifyHTTPStatus(resp.StatusCode, 0, fmt.Errorf("account request failed with status %d", resp.StatusCode)))
	}

	var profile struct {
		// Google userinfo
		Email string `json:"email"`
		Name  string `json:"name"`
		// Graph /me
		DisplayName       string `json:"displayName"`
		Mail              string `json:"mail"`
		UserPrincipalName string `json:"userPrincipalName"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode account: %w", err)
	}

	account := &domain.Account{
		Name:  firstNonEmpty(profile.Name, profile.DisplayName),
		Email: firstNonEmpty(profile.Email, profile.Mail, profile.UserPrincipalName),
	}
	return account, nil
}

func (f *Flow) configFor(redirectURI string) oauth2.Config {
	cfg := f.config
	cfg.RedirectURL = redirectURI
	return cfg
}

func (f *Flow) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, f.client)
}

func (f *Flow) credential(tok *oauth2.Token) *domain.Credential {
	expiresAt := tok.Expiry
	if expiresAt.IsZero() {
		expiresAt = f.now().Add(defaultTokenLifetime)
	}

	scope, _ := tok.Extra("scope").(string)
	if scope == "" {
		scope = strings.Join(f.config.Scopes, " ")
	}

	return &domain.Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    expiresAt,
		Scope:        scope,
	}
}

// classify maps a token endpoint failure to the error taxonomy. The
// original error stays reachable through errors.As.
func classify(err error) error {
	var rerr *oauth2.RetrieveError
	if !errors.As(err, &rerr) || rerr.Response == nil {
		return err
	}

	cause := err
	if rerr.ErrorCode != "" {
		cause = fmt.Errorf("%s: %s: %w", rerr.ErrorCode, rerr.ErrorDescription, err)
	}
	return domain.ClassifyHTTPStatus(rerr.Response.StatusCode, 0, cause)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
