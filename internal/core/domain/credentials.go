package domain

import "time"

// Credential is the single persisted grant for one provider.
//
// ExpiresAt is always the expiry of AccessToken as of the last write; the
// pair is replaced together, never field by field.
type Credential struct {
	// AccessToken is the bearer token for API access.
	AccessToken string `json:"access_token"`
	// RefreshToken is used for silent renewal. Empty when the provider
	// did not issue one.
	RefreshToken string `json:"refresh_token,omitempty"`
	// ExpiresAt is when AccessToken stops being accepted.
	ExpiresAt time.Time `json:"expires_at"`
	// Scope is the space separated scope string granted by the provider.
	Scope string `json:"scope"`

	// Account is the signed in user, fetched once at login.
	Account *Account `json:"account,omitempty"`
}

// Account contains display information for the signed in user.
type Account struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Label returns the best identifier to show for the account.
func (a *Account) Label() string {
	if a == nil {
		return ""
	}
	if a.Email != "" {
		return a.Email
	}
	return a.Name
}

// TTL returns the remaining lifetime of the access token relative to now.
func (c *Credential) TTL(now time.Time) time.Duration {
	return c.ExpiresAt.Sub(now)
}

// IsExpired returns true if the access token is no longer valid at now.
func (c *Credential) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// HasRefreshToken returns true if a refresh token is available.
func (c *Credential) HasRefreshToken() bool {
	return c.RefreshToken != ""
}

// AuthState is derived from both credential managers; it is never stored.
type AuthState struct {
	Microsoft bool
	Google    bool

	MicrosoftAccount *Account
	GoogleAccount    *Account
}

// Any returns true if at least one provider is signed in.
func (s AuthState) Any() bool {
	return s.Microsoft || s.Google
}

// For reports whether the given provider is signed in.
func (s AuthState) For(p Provider) bool {
	switch p {
	case ProviderMicrosoft:
		return s.Microsoft
	case ProviderGoogle:
		return s.Google
	default:
		return false
	}
}
