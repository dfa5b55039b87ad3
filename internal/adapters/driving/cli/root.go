// Package cli provides the tasklift command-line interface.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tasklift/internal/core/ports/driving"
	"github.com/custodia-labs/tasklift/internal/i18n"
	"github.com/custodia-labs/tasklift/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services used by the commands. Set by SetServices before Execute.
var (
	sessions      driving.Sessions
	analyzer      driving.Analyzer
	taskBoard     driving.TaskBoard
	sender        driving.Sender
	listBrowser   driving.ListBrowser
	configService driving.ConfigService
	documents     driving.DocumentReader
)

// Services bundles the driving ports the CLI is built on.
type Services struct {
	Sessions driving.Sessions
	// Analyzer is nil when no generation API key is configured.
	Analyzer    driving.Analyzer
	TaskBoard   driving.TaskBoard
	Sender      driving.Sender
	ListBrowser driving.ListBrowser
	Config      driving.ConfigService
	Documents   driving.DocumentReader
}

// SetServices installs the services used by the commands.
func SetServices(s Services) {
	sessions = s.Sessions
	analyzer = s.Analyzer
	taskBoard = s.TaskBoard
	sender = s.Sender
	listBrowser = s.ListBrowser
	configService = s.Config
	documents = s.Documents
}

// SetVersion sets the version printed by `tasklift version`.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Global flags.
var (
	verbose bool
	lang    string
)

var rootCmd = &cobra.Command{
	Use:   "tasklift",
	Short: "Turn chats and screenshots into To Do tasks and calendar events",
	Long: `tasklift analyzes pasted text and screenshots with Gemini and files the
resulting tasks into Microsoft To Do and Google Calendar.

Sign in to at least one destination first:
  tasklift login microsoft
  tasklift login google

Then capture:
  tasklift capture --text "Team dinner on Friday at 7pm"
  tasklift capture --image coupon.png`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
		i18n.Init(lang)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log network activity to stderr")
	rootCmd.PersistentFlags().StringVar(&lang, "lang", "", "Interface language (default from LANG)")
}

// Execute runs the root command. The returned error has not been printed;
// render it with ErrorMessage.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
