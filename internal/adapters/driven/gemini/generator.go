package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/custodia-labs/tasklift/internal/core/domain"
	"github.com/custodia-labs/tasklift/internal/core/ports/driven"
	"github.com/custodia-labs/tasklift/internal/logger"
)

// Ensure Generator implements the interface.
var _ driven.ContentGenerator = (*Generator)(nil)

// noText stands in for the {text} placeholder on image-only captures.
const noText = "(none)"

// Generator issues schema-constrained generateContent calls.
type Generator struct {
	model   string
	prompts driven.PromptStore
	baseURL string

	mu      sync.Mutex
	clients map[string]*genai.Client
}

// Option configures a Generator.
type Option func(*Generator)

// WithBaseURL points the client at a different API root, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(g *Generator) { g.baseURL = u }
}

// NewGenerator creates a generator for model using prompts from store.
func NewGenerator(model string, prompts driven.PromptStore, opts ...Option) *Generator {
	if model == "" {
		model = domain.DefaultGeminiModel
	}
	g := &Generator{
		model:   model,
		prompts: prompts,
		clients: make(map[string]*genai.Client),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate extracts task candidates from input using apiKey.
func (g *Generator) Generate(ctx context.Context, apiKey string, input domain.CaptureInput) ([]domain.TaskCandidate, error) {
	client, err := g.client(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	contents, config, err := g.request(input)
	if err != nil {
		return nil, err
	}

	logger.Debug("gemini: generateContent model=%s images=%d text=%d bytes", g.model, len(input.Images), len(input.Text))
	resp, err := client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, classify(err)
	}

	return parseCandidates(resp)
}

func (g *Generator) client(ctx context.Context, apiKey string) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if c, ok := g.clients[apiKey]; ok {
		return c, nil
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if g.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: g.baseURL}
	}

	c, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, &domain.PermanentRequestError{Err: fmt.Errorf("create gemini client: %w", err)}
	}
	g.clients[apiKey] = c
	return c, nil
}

// request builds the content parts (images first, then the instruction)
// and the generation config.
func (g *Generator) request(input domain.CaptureInput) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	capture, err := g.prompts.Load(driven.PromptCapture)
	if err != nil {
		return nil, nil, fmt.Errorf("load capture prompt: %w", err)
	}
	system, err := g.prompts.Load(driven.PromptSystem)
	if err != nil {
		return nil, nil, fmt.Errorf("load system prompt: %w", err)
	}

	parts := make([]*genai.Part, 0, len(input.Images)+1)
	for _, img := range input.Images {
		parts = append(parts, genai.NewPartFromBytes(img.Data, img.MIMEType))
	}
	parts = append(parts, genai.NewPartFromText(renderPrompt(capture, input)))

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{genai.NewPartFromText(system)}},
		ResponseMIMEType:  "application/json",
		ResponseSchema:    taskSchema(),
	}

	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, config, nil
}

// renderPrompt fills the {date} and {text} placeholders.
func renderPrompt(template string, input domain.CaptureInput) string {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		text = noText
	}
	date := input.Now.Format("2006-01-02 (Monday)")
	return strings.NewReplacer("{date}", date, "{text}", text).Replace(template)
}

func parseCandidates(resp *genai.GenerateContentResponse) ([]domain.TaskCandidate, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates", domain.ErrInvalidResponse)
	}
	if c := resp.Candidates[0]; c.FinishReason == genai.FinishReasonSafety {
		return nil, &domain.PermanentRequestError{Err: fmt.Errorf("%w: blocked by safety filters", domain.ErrInvalidResponse)}
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", domain.ErrInvalidResponse)
	}

	var candidates []domain.TaskCandidate
	if err := json.Unmarshal([]byte(text), &candidates); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidResponse, err)
	}
	return candidates, nil
}
