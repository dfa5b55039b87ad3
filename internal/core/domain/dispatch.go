package domain

import (
	"fmt"
	"strings"
)

// Destination identifies a downstream service records are written to.
type Destination string

const (
	// DestinationTodo is Microsoft To Do (Provider A).
	DestinationTodo Destination = "todo"
	// DestinationCalendar is Google Calendar (Provider B).
	DestinationCalendar Destination = "calendar"
)

// DisplayName returns a human readable destination name.
func (d Destination) DisplayName() string {
	switch d {
	case DestinationTodo:
		return "Microsoft To Do"
	case DestinationCalendar:
		return "Google Calendar"
	default:
		return string(d)
	}
}

// Provider returns the provider whose credential the destination uses.
func (d Destination) Provider() Provider {
	switch d {
	case DestinationTodo:
		return ProviderMicrosoft
	case DestinationCalendar:
		return ProviderGoogle
	default:
		return ""
	}
}

// CreatedItem describes a record created downstream.
type CreatedItem struct {
	ID   string
	Link string
}

// DispatchOutcome is the result of creating one task record downstream.
// Outcomes are reported in input order.
type DispatchOutcome struct {
	Index   int
	Success bool
	Created *CreatedItem
	Err     error
}

// DestinationResult aggregates the outcomes of one destination.
type DestinationResult struct {
	Destination Destination
	Outcomes    []DispatchOutcome
}

// Succeeded counts the successful outcomes.
func (r DestinationResult) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Success {
			n++
		}
	}
	return n
}

// Attempted counts every outcome.
func (r DestinationResult) Attempted() int {
	return len(r.Outcomes)
}

// Complete returns true when every attempted record succeeded.
func (r DestinationResult) Complete() bool {
	return r.Succeeded() == r.Attempted()
}

// SendSummary is the reduced outcome of one send.
type SendSummary struct {
	Results []DestinationResult
	// Delivered is true when every authenticated destination completed
	// and the task list was cleared.
	Delivered bool
}

// String renders the per-destination ratio, e.g. "Microsoft To Do: 2/3, Google Calendar: 3/3".
func (s SendSummary) String() string {
	parts := make([]string, 0, len(s.Results))
	for _, r := range s.Results {
		parts = append(parts, fmt.Sprintf("%s: %d/%d", r.Destination.DisplayName(), r.Succeeded(), r.Attempted()))
	}
	return strings.Join(parts, ", ")
}

// TaskList is a destination sub-target (a named To Do list).
type TaskList struct {
	ID          string
	DisplayName string
}
