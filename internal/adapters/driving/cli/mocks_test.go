package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/custodia-labs/tasklift/internal/core/domain"
	"github.com/custodia-labs/tasklift/internal/core/ports/driving"
	"github.com/custodia-labs/tasklift/internal/core/services"
)

// mockManager implements driving.CredentialManager.
type mockManager struct {
	provider   domain.Provider
	signedIn   bool
	account    *domain.Account
	loginErr   error
	silentRuns int
	logouts    int
}

func (m *mockManager) GetValidAccessToken(context.Context) (string, error) {
	if !m.signedIn {
		return "", domain.NewAuthError(m.provider, domain.AuthExpired, nil)
	}
	return "tok", nil
}

func (m *mockManager) Provider() domain.Provider { return m.provider }

func (m *mockManager) TrySilent(context.Context) (bool, *domain.Account) {
	m.silentRuns++
	if !m.signedIn {
		return false, nil
	}
	return true, m.account
}

func (m *mockManager) LoginInteractive(context.Context) (*domain.Account, error) {
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	m.signedIn = true
	return m.account, nil
}

func (m *mockManager) Logout(context.Context) error {
	m.logouts++
	m.signedIn = false
	return nil
}

func (m *mockManager) State() driving.CredentialState {
	if m.signedIn {
		return driving.StateValid
	}
	return driving.StateSignedOut
}

func (m *mockManager) IsAuthenticated() bool                 { return m.signedIn }
func (m *mockManager) Account() *domain.Account              { return m.account }
func (m *mockManager) Subscribe(func(domain.Provider, bool)) {}

// mockSessions implements driving.Sessions.
type mockSessions struct {
	managers map[domain.Provider]*mockManager
}

func newMockSessions() *mockSessions {
	return &mockSessions{managers: map[domain.Provider]*mockManager{
		domain.ProviderMicrosoft: {provider: domain.ProviderMicrosoft, account: &domain.Account{Email: "ms@example.com"}},
		domain.ProviderGoogle:    {provider: domain.ProviderGoogle, account: &domain.Account{Email: "g@example.com"}},
	}}
}

func (s *mockSessions) Manager(p domain.Provider) (driving.CredentialManager, bool) {
	m, ok := s.managers[p]
	return m, ok
}

func (s *mockSessions) State() domain.AuthState {
	ms, g := s.managers[domain.ProviderMicrosoft], s.managers[domain.ProviderGoogle]
	state := domain.AuthState{Microsoft: ms.signedIn, Google: g.signedIn}
	if ms.signedIn {
		state.MicrosoftAccount = ms.account
	}
	if g.signedIn {
		state.GoogleAccount = g.account
	}
	return state
}

// mockAnalyzer returns a fixed analysis.
type mockAnalyzer struct {
	analysis *domain.Analysis
	err      error
	inputs   []domain.CaptureInput
}

func (a *mockAnalyzer) Analyze(_ context.Context, input domain.CaptureInput) (*domain.Analysis, error) {
	a.inputs = append(a.inputs, input)
	return a.analysis, a.err
}

// mockSender returns scripted summaries, one per SendAll call.
type mockSender struct {
	summaries []*domain.SendSummary
	err       error
	calls     int
	sent      [][]string
	targets   map[domain.Destination]string
	board     driving.TaskBoard
}

func newMockSender(board driving.TaskBoard) *mockSender {
	return &mockSender{targets: make(map[domain.Destination]string), board: board}
}

func (s *mockSender) SendAll(context.Context) (*domain.SendSummary, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	var titles []string
	for _, t := range s.board.All() {
		titles = append(titles, t.Record.Title)
	}
	s.sent = append(s.sent, titles)

	summary := s.summaries[0]
	if len(s.summaries) > 1 {
		s.summaries = s.summaries[1:]
	}
	if summary.Delivered {
		s.board.Clear()
	}
	return summary, nil
}

func (s *mockSender) SetTarget(dest domain.Destination, target string) { s.targets[dest] = target }
func (s *mockSender) Target(dest domain.Destination) string            { return s.targets[dest] }

// mockListBrowser returns fixed lists.
type mockListBrowser struct {
	lists []domain.TaskList
	err   error
}

func (b *mockListBrowser) Lists(context.Context) ([]domain.TaskList, error) {
	return b.lists, b.err
}

// mockConfig is a map-backed driving.ConfigService.
type mockConfig struct {
	values map[string]string
}

func newMockConfig() *mockConfig {
	return &mockConfig{values: make(map[string]string)}
}

func (c *mockConfig) Get(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

func (c *mockConfig) Set(key, value string) error {
	c.values[key] = value
	return nil
}

func (c *mockConfig) Unset(key string) error {
	delete(c.values, key)
	return nil
}

func (c *mockConfig) Keys() []string {
	return []string{"gemini.api_keys", "gemini.model", todoListKey}
}

func (c *mockConfig) IsSecret(key string) bool { return key == "gemini.api_keys" }
func (c *mockConfig) Path() string             { return "/tmp/tasklift/config.toml" }

// mockDocuments returns the document content prefixed with its name.
type mockDocuments struct {
	err error
}

func (d *mockDocuments) Text(_ context.Context, doc domain.Document) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	return doc.Name + ": " + strings.TrimSpace(string(doc.Content)), nil
}

// testEnv holds the services installed for one test.
type testEnv struct {
	sessions *mockSessions
	analyzer *mockAnalyzer
	board    *services.TaskList
	sender   *mockSender
	lists    *mockListBrowser
	config   *mockConfig
	docs     *mockDocuments
}

// setupCLITest installs mock services and resets command flags.
func setupCLITest(t *testing.T) *testEnv {
	t.Helper()

	board := services.NewTaskList()
	env := &testEnv{
		sessions: newMockSessions(),
		analyzer: &mockAnalyzer{analysis: &domain.Analysis{}},
		board:    board,
		sender:   newMockSender(board),
		lists:    &mockListBrowser{},
		config:   newMockConfig(),
		docs:     &mockDocuments{},
	}
	SetServices(Services{
		Sessions:    env.sessions,
		Analyzer:    env.analyzer,
		TaskBoard:   env.board,
		Sender:      env.sender,
		ListBrowser: env.lists,
		Config:      env.config,
		Documents:   env.docs,
	})

	t.Setenv("LANGUAGE", "en")
	oldTerminal := stdinIsTerminal
	stdinIsTerminal = func() bool { return false }

	t.Cleanup(func() {
		SetServices(Services{})
		stdinIsTerminal = oldTerminal
		captureText, captureImages, captureFiles = "", nil, nil
		captureDryRun, captureYes = false, false
		listsSelect = ""
		lang, verbose = "", false
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
	return env
}

// execute runs the root command with args and stdin, returning combined output.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}
