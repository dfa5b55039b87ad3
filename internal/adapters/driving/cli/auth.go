package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tasklift/internal/core/domain"
	"github.com/custodia-labs/tasklift/internal/core/ports/driving"
	"github.com/custodia-labs/tasklift/internal/i18n"
)

var loginCmd = &cobra.Command{
	Use:   "login [provider]",
	Short: "Sign in to Microsoft To Do and/or Google Calendar",
	Long: `Sign in through the provider's consent page in your browser.

Provider is "microsoft" (To Do) or "google" (Calendar). Without a provider,
both are signed in one after the other.

Examples:
  tasklift login
  tasklift login microsoft`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout [provider]",
	Short: "Sign out and forget stored tokens",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLogout,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sign-in state for each destination",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(statusCmd)
}

// providersFromArgs returns the named provider, or every provider.
func providersFromArgs(args []string) ([]domain.Provider, error) {
	if len(args) == 0 {
		return domain.Providers, nil
	}
	p, err := domain.ParseProvider(args[0])
	if err != nil {
		return nil, err
	}
	return []domain.Provider{p}, nil
}

func manager(p domain.Provider) (driving.CredentialManager, error) {
	if sessions == nil {
		return nil, errors.New("credential services not configured")
	}
	m, ok := sessions.Manager(p)
	if !ok {
		return nil, domain.ErrUnsupportedProvider
	}
	return m, nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	providers, err := providersFromArgs(args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	var errs []error
	for _, p := range providers {
		m, err := manager(p)
		if err != nil {
			return err
		}

		cmd.Println(i18n.T("Signing in to %s...", p.DisplayName()))
		account, err := m.LoginInteractive(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		cmd.Println(i18n.T("Signed in to %s as %s.", p.DisplayName(), account.Label()))

		if p == domain.ProviderMicrosoft {
			if err := ensureListSelected(ctx, cmd); err != nil {
				cmd.PrintErrln(ErrorMessage(err))
			}
		}
	}

	if len(errs) == 0 {
		return nil
	}
	// The last error is rendered by the caller.
	for _, err := range errs[:len(errs)-1] {
		cmd.PrintErrln(ErrorMessage(err))
	}
	return errs[len(errs)-1]
}

func runLogout(cmd *cobra.Command, args []string) error {
	providers, err := providersFromArgs(args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	for _, p := range providers {
		m, err := manager(p)
		if err != nil {
			return err
		}
		if err := m.Logout(ctx); err != nil {
			return err
		}
		cmd.Println(i18n.T("Signed out of %s.", p.DisplayName()))
	}
	return nil
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if sessions == nil {
		return errors.New("credential services not configured")
	}

	restoreSessions(cmd.Context())
	state := sessions.State()

	for _, dest := range []domain.Destination{domain.DestinationTodo, domain.DestinationCalendar} {
		p := dest.Provider()
		if !state.For(p) {
			cmd.Println(i18n.T("%s: not signed in", dest.DisplayName()))
			continue
		}
		label := accountFor(state, p).Label()
		if label == "" {
			label = i18n.T("unknown account")
		}
		cmd.Println(i18n.T("%s: signed in as %s", dest.DisplayName(), label))
	}

	if state.Microsoft && sender != nil {
		if id := sender.Target(domain.DestinationTodo); id != "" {
			cmd.Println(i18n.T("To Do list: %s", id))
		} else {
			cmd.Println(i18n.T("To Do list: none selected"))
		}
	}
	return nil
}

// restoreSessions restores stored credentials for every provider.
func restoreSessions(ctx context.Context) {
	if sessions == nil {
		return
	}
	for _, p := range domain.Providers {
		if m, ok := sessions.Manager(p); ok {
			m.TrySilent(ctx)
		}
	}
}

func accountFor(state domain.AuthState, p domain.Provider) *domain.Account {
	if p == domain.ProviderMicrosoft {
		return state.MicrosoftAccount
	}
	return state.GoogleAccount
}
