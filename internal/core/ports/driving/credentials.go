package driving

import (
	"context"

	"github.com/custodia-labs/tasklift/internal/core/domain"
)

// CredentialState is the sign-in state of one provider.
type CredentialState string

// Credential states.
const (
	StateSignedOut CredentialState = "signed_out"
	StateValid     CredentialState = "signed_in"
	StateExpiring  CredentialState = "expiring"
)

// SignedIn returns true for either signed-in state.
func (s CredentialState) SignedIn() bool {
	return s == StateValid || s == StateExpiring
}

// AccessTokenSource returns a currently valid access token.
type AccessTokenSource interface {
	GetValidAccessToken(ctx context.Context) (string, error)
}

// CredentialManager owns one provider's credential lifecycle.
type CredentialManager interface {
	AccessTokenSource

	// Provider returns the managed provider.
	Provider() domain.Provider

	// TrySilent restores a stored credential at start-up, renewing it if
	// it is close to expiry. It never fails; a nil account means signed out.
	TrySilent(ctx context.Context) (bool, *domain.Account)

	// LoginInteractive runs the user-mediated consent flow.
	LoginInteractive(ctx context.Context) (*domain.Account, error)

	// Logout cancels pending renewal and clears the stored credential.
	Logout(ctx context.Context) error

	// State returns the current sign-in state.
	State() CredentialState

	// IsAuthenticated returns true when signed in.
	IsAuthenticated() bool

	// Account returns the signed-in account, or nil.
	Account() *domain.Account

	// Subscribe registers fn to be called whenever validity changes.
	Subscribe(fn func(domain.Provider, bool))
}

// Sessions gives access to every provider's credential manager and the
// combined sign-in state.
type Sessions interface {
	Manager(p domain.Provider) (CredentialManager, bool)
	State() domain.AuthState
}
