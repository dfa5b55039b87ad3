package services

import (
	"context"
	"sync"

	"github.com/custodia-labs/tasklift/internal/core/domain"
	"github.com/custodia-labs/tasklift/internal/core/ports/driving"
	"github.com/custodia-labs/tasklift/internal/logger"
)

// Ensure Orchestrator implements the interface.
var _ driving.Sender = (*Orchestrator)(nil)

// Route binds a destination to its credentials and dispatcher.
type Route struct {
	Credentials driving.CredentialManager
	Dispatcher  driving.Dispatcher
	// RequiresTarget is set when records go into a user-selected
	// sub-target such as a named task list.
	RequiresTarget bool
}

// Orchestrator fans the review list out to every authenticated destination
// and reduces the outcomes into one summary.
type Orchestrator struct {
	board  driving.TaskBoard
	routes []Route

	mu      sync.RWMutex
	targets map[domain.Destination]string
}

// NewOrchestrator creates an orchestrator. Routes are summarized in the
// order given.
func NewOrchestrator(board driving.TaskBoard, routes ...Route) *Orchestrator {
	return &Orchestrator{
		board:   board,
		routes:  routes,
		targets: make(map[domain.Destination]string),
	}
}

// SetTarget selects the sub-target for dest.
func (o *Orchestrator) SetTarget(dest domain.Destination, target string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.targets[dest] = target
}

// Target returns the selected sub-target for dest.
func (o *Orchestrator) Target(dest domain.Destination) string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.targets[dest]
}

// SendAll validates preconditions, dispatches to every authenticated
// destination concurrently and waits for all of them. The list is cleared
// only when every destination delivered every record; otherwise it is kept
// so the user can send again, which re-attempts all records everywhere.
func (o *Orchestrator) SendAll(ctx context.Context) (*domain.SendSummary, error) {
	active := make([]Route, 0, len(o.routes))
	for _, r := range o.routes {
		if r.Credentials.IsAuthenticated() {
			active = append(active, r)
		}
	}
	if len(active) == 0 {
		return nil, domain.NewValidationError(domain.ReasonNoDestination)
	}

	tasks := o.board.All()
	if len(tasks) == 0 {
		return nil, domain.NewValidationError(domain.ReasonNoTasks)
	}
	records := make([]domain.TaskRecord, len(tasks))
	for i, t := range tasks {
		records[i] = t.Record
	}

	targets := make([]string, len(active))
	for i, r := range active {
		targets[i] = o.Target(r.Dispatcher.Destination())
		if r.RequiresTarget && targets[i] == "" {
			return nil, domain.NewValidationError(domain.ReasonNoTarget)
		}
	}

	logger.Section("Sending")
	results := make([]domain.DestinationResult, len(active))
	var wg sync.WaitGroup
	for i, r := range active {
		wg.Add(1)
		go func(i int, r Route) {
			defer wg.Done()
			dest := r.Dispatcher.Destination()
			logger.Info("%s: sending %d record(s)", dest, len(records))
			results[i] = domain.DestinationResult{
				Destination: dest,
				Outcomes:    r.Dispatcher.Dispatch(ctx, targets[i], records),
			}
		}(i, r)
	}
	wg.Wait()

	summary := &domain.SendSummary{Results: results, Delivered: true}
	for _, res := range results {
		if !res.Complete() {
			summary.Delivered = false
		}
	}
	if summary.Delivered {
		o.board.Clear()
	}
	logger.Info("send finished: %s", summary)
	return summary, nil
}
