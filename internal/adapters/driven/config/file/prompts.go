package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/tasklift/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads generation prompts from user-editable files on disk,
// falling back to embedded defaults.
//
// The store uses lazy initialisation - files are only created when first accessed,
// not in the constructor.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// defaultPrompts contains embedded default prompts.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.PromptCapture: `Analyze the given text and/or images and extract To-Do items.
Today's date: {date}

[Rules]
1. Title tags are mandatory. Every title has the form "#primary #extra content".
   - Primary tag: #event (an appointment that happens at that time) / #deadline (must be done by then) / #task (any time).
   - Extra tag: exactly one tag matching the content (e.g. #meeting, #report, #shopping, #coupon).
   - Gift cards and coupons are always "#deadline #coupon [item name]" with the expiry date as the deadline.

2. Due date (dueDateTime):
   - #event with an explicit time: use the start time, e.g. "3pm team meeting" -> 2025-12-18T15:00:00.
   - #deadline or no explicit time: use 23:59:00 on the due day.
   - No date given: use today.
   - No year given: use the current year, but the date must be in the future; roll over to next year if needed.

3. Reminder (reminderDateTime): 07:30:00 on the due day.

4. Body: copy the received content verbatim. Do not summarize or rephrase; only add line breaks for readability.
   For coupons record every piece of text in the image (item, expiry, where to redeem, barcode number).

5. Importance: 'low' by default; 'high' only when explicitly marked urgent or important.

6. Multiple images: group consecutive screenshots of one conversation into one item; split unrelated content.

7. Date ranges: when a range is given (e.g. "Jan 21-23", "3 days"), create one item per calendar day with the same title, each with its own dueDateTime.

Write titles, bodies and categories in the language of the input.

Text:
{text}`,

	driven.PromptSystem: `You are a To-Do assistant. Your job is to turn chats and screenshots into To-Do items. Always tag titles (#event/#deadline/#task plus one extra tag), keep due dates in the future, set the reminder to 07:30 on the due day, copy the original content into the body unchanged, and default importance to 'low'. A schedule spanning several days must become one item per day.`,
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.tasklift/prompts/.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(home, ".tasklift", "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt template for the given name.
// On first call, initialises the prompt directory and creates default files.
func (s *PromptStore) Load(name string) (string, error) {
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		if prompt, ok := defaultPrompts[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	prompt, err := s.loadFromFile(name)
	if err != nil || prompt == "" {
		if defaultPrompt, ok := defaultPrompts[name]; ok {
			return defaultPrompt, nil
		}
		if err == nil {
			err = os.ErrNotExist
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	s.mu.Lock()
	if cached, ok := s.cache[name]; ok {
		prompt = cached
	} else {
		s.cache[name] = prompt
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// initialise creates the prompt directory and default files.
func (s *PromptStore) initialise() {
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	for name, content := range defaultPrompts {
		path := filepath.Join(s.promptDir, name+".txt")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}
}

func (s *PromptStore) loadFromFile(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.promptDir, name+".txt"))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
