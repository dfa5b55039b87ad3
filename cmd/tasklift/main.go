// Package main is the entry point for the tasklift CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/tasklift/internal/adapters/driven/config/file"
	"github.com/custodia-labs/tasklift/internal/adapters/driven/gcalendar"
	"github.com/custodia-labs/tasklift/internal/adapters/driven/gemini"
	"github.com/custodia-labs/tasklift/internal/adapters/driven/mstodo"
	oauthflow "github.com/custodia-labs/tasklift/internal/adapters/driven/oauth"
	"github.com/custodia-labs/tasklift/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/tasklift/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/tasklift/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/tasklift/internal/adapters/driving/cli"
	"github.com/custodia-labs/tasklift/internal/adapters/driving/oauth"
	"github.com/custodia-labs/tasklift/internal/core/domain"
	"github.com/custodia-labs/tasklift/internal/core/ports/driving"
	"github.com/custodia-labs/tasklift/internal/core/services"
	"github.com/custodia-labs/tasklift/internal/normalisers/eml"
	"github.com/custodia-labs/tasklift/internal/normalisers/html"
	"github.com/custodia-labs/tasklift/internal/normalisers/plaintext"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cleanup, err := wire()
	if err != nil {
		fmt.Fprintln(os.Stderr, "tasklift:", err)
		os.Exit(1)
	}

	err = cli.Execute(ctx)
	cleanup()
	if err != nil {
		fmt.Fprintln(os.Stderr, cli.ErrorMessage(err))
		os.Exit(1)
	}
}

// wire builds every adapter and service and hands them to the CLI. The
// returned function releases them.
func wire() (func(), error) {
	configStore, err := file.NewConfigStore("")
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	settings := file.LoadSettings(configStore, os.Getenv)

	tokenStore, err := sqlite.NewStore("")
	if err != nil {
		return nil, fmt.Errorf("opening token store: %w", err)
	}
	verifiers := memory.NewVerifierStore()

	grant := oauth.NewLoopbackGrant(settings.OAuth,
		oauth.WithURLPrinter(func(p domain.Provider, url string) {
			fmt.Fprintf(os.Stderr, "Open this URL to sign in to %s:\n%s\n", p.DisplayName(), url)
		}),
	)

	managers := make(map[domain.Provider]*services.CredentialManager, len(domain.Providers))
	for _, p := range domain.Providers {
		client := settings.Microsoft
		if p == domain.ProviderGoogle {
			client = settings.Google
		}
		flow, err := oauthflow.NewFlow(p, client)
		if err != nil {
			tokenStore.Close()
			return nil, err
		}
		managers[p] = services.NewCredentialManager(p, tokenStore, verifiers, flow, grant,
			services.WithRenewalThresholds(settings.Auth.Floor, settings.Auth.Window))
	}
	microsoft, google := managers[domain.ProviderMicrosoft], managers[domain.ProviderGoogle]
	tracker := services.NewAuthTracker(microsoft, google)

	var analyzer driving.Analyzer
	pool, err := services.NewKeyPool(settings.Gemini.APIKeys)
	switch {
	case err == nil:
		prompts, err := file.NewPromptStore("")
		if err != nil {
			tokenStore.Close()
			return nil, err
		}
		analyzer = services.NewGenerationClient(pool, gemini.NewGenerator(settings.Gemini.Model, prompts))
	case errors.Is(err, domain.ErrNoAPIKeys):
		// capture reports the missing key; the other commands still work.
	default:
		tokenStore.Close()
		return nil, err
	}

	todo := mstodo.NewClient(settings.Todo.TimeZone)
	calendar, err := gcalendar.NewWriter(settings.Todo.TimeZone)
	if err != nil {
		tokenStore.Close()
		return nil, err
	}

	board := services.NewTaskList()
	orchestrator := services.NewOrchestrator(board,
		services.Route{
			Credentials:    microsoft,
			Dispatcher:     services.NewBatchDispatcher(todo, microsoft, ratelimit.New(domain.DestinationTodo)),
			RequiresTarget: true,
		},
		services.Route{
			Credentials: google,
			Dispatcher:  services.NewBatchDispatcher(calendar, google, ratelimit.New(domain.DestinationCalendar)),
		},
	)
	orchestrator.SetTarget(domain.DestinationTodo, settings.Todo.ListID)

	keys := make([]services.ConfigKey, 0, len(file.KnownKeys))
	for _, k := range file.KnownKeys {
		key := services.ConfigKey{Name: k, Secret: file.SecretKeys[k]}
		switch {
		case file.IntKeys[k]:
			key.Kind = services.KindInt
		case file.ListKeys[k]:
			key.Kind = services.KindList
		}
		keys = append(keys, key)
	}

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Sessions:    tracker,
		Analyzer:    analyzer,
		TaskBoard:   board,
		Sender:      orchestrator,
		ListBrowser: services.NewListBrowser(todo, microsoft),
		Config:      services.NewConfigService(configStore, keys...),
		Documents:   services.NewDocumentService(plaintext.New(), html.New(), eml.New()),
	})

	return func() {
		microsoft.Close()
		google.Close()
		tokenStore.Close()
	}, nil
}
