package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/tasklift/internal/core/domain"
)

// TaskWriter creates one downstream record from a TaskRecord. Mapping the
// record to the destination's wire shape is the writer's concern.
type TaskWriter interface {
	// Destination identifies the service written to.
	Destination() domain.Destination

	// Create writes one record. target is the destination sub-target
	// (e.g. a To Do list ID); writers without sub-targets ignore it.
	Create(ctx context.Context, accessToken, target string, record domain.TaskRecord) (*domain.CreatedItem, error)
}

// TaskListReader lists the sub-targets of a destination.
type TaskListReader interface {
	ListTaskLists(ctx context.Context, accessToken string) ([]domain.TaskList, error)
}

// Limiter paces sequential requests to a destination.
type Limiter interface {
	// Wait blocks until the next request may be made.
	Wait(ctx context.Context) error

	// Backoff delays subsequent requests after a rate-limit response.
	Backoff(retryAfter time.Duration)
}
