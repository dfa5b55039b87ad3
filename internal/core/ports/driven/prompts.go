package driven

// Prompt names understood by PromptStore.
const (
	// PromptCapture is the per-request extraction instruction. It may use
	// the {date} and {text} placeholders.
	PromptCapture = "capture"

	// PromptSystem is the generator's system instruction.
	PromptSystem = "system"
)

// PromptStore loads prompt templates for the content generator.
type PromptStore interface {
	// Load returns the template for name, falling back to the built-in
	// default when no user override exists.
	Load(name string) (string, error)
}
