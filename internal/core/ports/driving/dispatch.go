package driving

import (
	"context"

	"github.com/custodia-labs/tasklift/internal/core/domain"
)

// Dispatcher creates a batch of records in one destination.
type Dispatcher interface {
	// Destination identifies the service written to.
	Destination() domain.Destination

	// Dispatch attempts every record in order and returns one outcome per
	// record. It never fails as a whole.
	Dispatch(ctx context.Context, target string, records []domain.TaskRecord) []domain.DispatchOutcome
}

// Sender is the single entry point for delivering the reviewed task list.
type Sender interface {
	// SendAll dispatches the current task list to every authenticated
	// destination and clears it when all of them fully succeed.
	SendAll(ctx context.Context) (*domain.SendSummary, error)

	// SetTarget selects the sub-target records are written to in dest.
	SetTarget(dest domain.Destination, target string)

	// Target returns the selected sub-target for dest, or "".
	Target(dest domain.Destination) string
}

// ListBrowser lists the task lists of the signed-in Microsoft account.
type ListBrowser interface {
	Lists(ctx context.Context) ([]domain.TaskList, error)
}

// TaskBoard is the in-memory review list of analyzed tasks.
type TaskBoard interface {
	Add(analysis *domain.Analysis) []domain.AnalyzedTask
	All() []domain.AnalyzedTask
	Get(id string) (domain.AnalyzedTask, bool)
	Replace(id string, record domain.TaskRecord) error
	Remove(id string) bool
	Clear()
	Len() int
}
