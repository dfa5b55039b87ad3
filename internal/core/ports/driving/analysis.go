package driving

import (
	"context"

	"github.com/custodia-labs/tasklift/internal/core/domain"
)

// Analyzer turns raw captured input into task records.
type Analyzer interface {
	Analyze(ctx context.Context, input domain.CaptureInput) (*domain.Analysis, error)
}

// DocumentReader turns an attached file into capture text.
type DocumentReader interface {
	Text(ctx context.Context, doc domain.Document) (string, error)
}
