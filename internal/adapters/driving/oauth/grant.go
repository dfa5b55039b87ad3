package oauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/tasklift/internal/core/domain"
	"github.com/custodia-labs/tasklift/internal/core/ports/driven"
	"github.com/custodia-labs/tasklift/internal/logger"
)

// Ensure LoopbackGrant implements the interface.
var _ driven.InteractiveGrant = (*LoopbackGrant)(nil)

// LoopbackGrant shows the consent page in the system browser and waits for
// the redirect on a loopback callback server.
type LoopbackGrant struct {
	settings domain.CallbackSettings
	open     func(url string) error
	show     func(provider domain.Provider, url string)
}

// GrantOption configures a LoopbackGrant.
type GrantOption func(*LoopbackGrant)

// WithBrowser replaces the browser opener.
func WithBrowser(open func(url string) error) GrantOption {
	return func(g *LoopbackGrant) { g.open = open }
}

// WithURLPrinter registers a fallback that shows the consent URL to the
// user when the browser cannot be opened. Without one, a browser failure
// aborts the login.
func WithURLPrinter(show func(provider domain.Provider, url string)) GrantOption {
	return func(g *LoopbackGrant) { g.show = show }
}

// NewLoopbackGrant creates a grant listening on the configured port range.
func NewLoopbackGrant(settings domain.CallbackSettings, opts ...GrantOption) *LoopbackGrant {
	g := &LoopbackGrant{
		settings: settings,
		open:     OpenBrowser,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authorize runs one consent round trip. The redirect must arrive within
// the configured timeout.
func (g *LoopbackGrant) Authorize(
	ctx context.Context,
	provider domain.Provider,
	state string,
	authURL func(redirectURI string) string,
) (*driven.Authorization, error) {
	listener, err := ListenInRange(g.settings.PortStart, g.settings.PortEnd)
	if err != nil {
		return nil, domain.NewAuthError(provider, domain.AuthPopupBlocked, err)
	}

	server := NewCallbackServer(0, state)
	server.Serve(listener)
	defer func() {
		if err := server.Stop(); err != nil {
			logger.Warn("%s: stop callback server: %v", provider, err)
		}
	}()

	redirectURI := server.RedirectURI()
	consentURL := authURL(redirectURI)
	logger.Debug("%s: waiting for consent on %s", provider, redirectURI)

	if err := g.open(consentURL); err != nil {
		if g.show == nil {
			return nil, domain.NewAuthError(provider, domain.AuthPopupBlocked, fmt.Errorf("open browser: %w", err))
		}
		logger.Warn("%s: could not open browser: %v", provider, err)
		g.show(provider, consentURL)
	}

	waitCtx := ctx
	if g.settings.Timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, g.settings.Timeout)
		defer cancel()
	}

	code, err := server.Wait(waitCtx)
	if err != nil {
		return nil, classifyWaitError(provider, err)
	}

	return &driven.Authorization{Code: code, RedirectURI: redirectURI}, nil
}

func classifyWaitError(provider domain.Provider, err error) error {
	var perr *ProviderError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return domain.NewAuthError(provider, domain.AuthUserCancelled, fmt.Errorf("timed out waiting for consent: %w", err))
	case errors.Is(err, context.Canceled):
		return domain.NewAuthError(provider, domain.AuthUserCancelled, err)
	case errors.As(err, &perr) && perr.Denied():
		return domain.NewAuthError(provider, domain.AuthUserCancelled, err)
	default:
		return domain.NewAuthError(provider, domain.AuthExchangeFailed, err)
	}
}
