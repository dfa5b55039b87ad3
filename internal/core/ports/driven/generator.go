package driven

import (
	"context"

	"github.com/custodia-labs/tasklift/internal/core/domain"
)

// ContentGenerator performs one schema-constrained generation call with a
// specific API key.
//
// Errors must be classified: *domain.QuotaExceededError for rate-limit class
// failures (with the upstream's suggested delay when present),
// *domain.TransientServiceError for overload/unavailable,
// *domain.PermanentRequestError for other rejections.
type ContentGenerator interface {
	Generate(ctx context.Context, apiKey string, input domain.CaptureInput) ([]domain.TaskCandidate, error)
}
