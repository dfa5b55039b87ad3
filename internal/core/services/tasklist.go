package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/tasklift/internal/core/domain"
	"github.com/custodia-labs/tasklift/internal/core/ports/driving"
)

// Ensure TaskList implements the interface.
var _ driving.TaskBoard = (*TaskList)(nil)

// TaskList is the in-memory review list. It is never persisted; newly
// analyzed tasks are placed ahead of older ones.
type TaskList struct {
	mu    sync.RWMutex
	tasks []domain.AnalyzedTask
	now   func() time.Time
}

// NewTaskList creates an empty task list.
func NewTaskList() *TaskList {
	return &TaskList{now: time.Now}
}

// Add prepends the records of analysis, keeping their relative order, and
// returns the added tasks.
func (l *TaskList) Add(analysis *domain.Analysis) []domain.AnalyzedTask {
	if analysis == nil || len(analysis.Records) == 0 {
		return nil
	}

	created := l.now()
	added := make([]domain.AnalyzedTask, len(analysis.Records))
	for i, record := range analysis.Records {
		task := domain.AnalyzedTask{
			ID:        uuid.New().String(),
			CreatedAt: created,
			Record:    record,
		}
		if i < len(analysis.Extracted) {
			task.Extracted = analysis.Extracted[i]
		}
		added[i] = task
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.tasks = append(append([]domain.AnalyzedTask{}, added...), l.tasks...)
	return added
}

// All returns a snapshot of the list in display order.
func (l *TaskList) All() []domain.AnalyzedTask {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]domain.AnalyzedTask(nil), l.tasks...)
}

// Records returns the task records in display order.
func (l *TaskList) Records() []domain.TaskRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	records := make([]domain.TaskRecord, len(l.tasks))
	for i, t := range l.tasks {
		records[i] = t.Record
	}
	return records
}

// Get returns the task with id.
func (l *TaskList) Get(id string) (domain.AnalyzedTask, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if i := l.indexOf(id); i >= 0 {
		return l.tasks[i], true
	}
	return domain.AnalyzedTask{}, false
}

// Replace swaps the record of task id for an edited one.
func (l *TaskList) Replace(id string, record domain.TaskRecord) error {
	if record.Importance == "" {
		record.Importance = domain.ImportanceNormal
	}
	if !record.Importance.IsValid() {
		return fmt.Errorf("importance %q: %w", record.Importance, domain.ErrValidation)
	}
	if record.Categories == nil {
		record.Categories = []string{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexOf(id)
	if i < 0 {
		return fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	l.tasks[i].Record = record
	return nil
}

// Remove deletes task id, reporting whether it existed.
func (l *TaskList) Remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexOf(id)
	if i < 0 {
		return false
	}
	l.tasks = append(l.tasks[:i], l.tasks[i+1:]...)
	return true
}

// Clear empties the list.
func (l *TaskList) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tasks = nil
}

// Len returns the number of tasks.
func (l *TaskList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.tasks)
}

// indexOf requires l.mu.
func (l *TaskList) indexOf(id string) int {
	for i, t := range l.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
