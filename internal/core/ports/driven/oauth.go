package driven

import (
	"context"

	"github.com/custodia-labs/tasklift/internal/core/domain"
)

// OAuthFlow performs the network side of one provider's OAuth grant.
// Scopes and endpoints are fixed per provider.
type OAuthFlow interface {
	// AuthCodeURL builds the consent URL carrying state and the S256
	// challenge derived from verifier.
	AuthCodeURL(redirectURI, state, verifier string) string

	// Exchange trades an authorization code for a credential.
	Exchange(ctx context.Context, redirectURI, code, verifier string) (*domain.Credential, error)

	// Refresh obtains a new access token without user interaction.
	Refresh(ctx context.Context, refreshToken string) (*domain.Credential, error)

	// Account fetches display information for the token's user.
	Account(ctx context.Context, accessToken string) (*domain.Account, error)
}

// Authorization is the result of a user-mediated consent step.
type Authorization struct {
	Code        string
	RedirectURI string
}

// InteractiveGrant runs the user-mediated part of a login: it presents
// the consent URL and waits for the redirect carrying the code.
//
// Implementations return *domain.AuthError with kind PopupBlocked when the
// consent page cannot be shown, and UserCancelled when the user denies,
// abandons (timeout) or the context is cancelled.
type InteractiveGrant interface {
	Authorize(ctx context.Context, provider domain.Provider, state string, authURL func(redirectURI string) string) (*Authorization, error)
}
