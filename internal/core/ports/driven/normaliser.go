package driven

import (
	"context"

	"github.com/custodia-labs/tasklift/internal/core/domain"
)

// Normaliser extracts analyzable text from an attached document.
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Normalise returns the document's text. Header information worth
	// analyzing (sender, date, subject) is kept as leading lines.
	Normalise(ctx context.Context, doc domain.Document) (string, error)
}
