package domain

import (
	"strings"
	"time"
)

// Importance is the priority of a task record.
type Importance string

// Importance levels accepted by the generation schema.
const (
	ImportanceLow    Importance = "low"
	ImportanceNormal Importance = "normal"
	ImportanceHigh   Importance = "high"
)

// Importances lists the enumerated values in schema order.
var Importances = []Importance{ImportanceLow, ImportanceNormal, ImportanceHigh}

// IsValid returns true if the importance is one of the enumerated values.
func (i Importance) IsValid() bool {
	switch i {
	case ImportanceLow, ImportanceNormal, ImportanceHigh:
		return true
	default:
		return false
	}
}

// TaskRecord is a normalized task produced by the generation client.
// It is treated as immutable once produced; edits replace the whole value.
type TaskRecord struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	// DueDateTime is an ISO 8601 local date-time without offset
	// (e.g. 2026-01-02T23:59:00). Empty when absent.
	DueDateTime string     `json:"dueDateTime,omitempty"`
	Importance  Importance `json:"importance"`
	// ReminderDateTime uses the same format as DueDateTime.
	ReminderDateTime string   `json:"reminderDateTime,omitempty"`
	Categories       []string `json:"categories"`
}

// AllDaySentinel is the clock time the generator uses for day-level deadlines.
const AllDaySentinel = "23:59:00"

// IsAllDay reports whether t carries the day-level deadline sentinel.
func IsAllDay(t time.Time) bool {
	return t.Format(time.TimeOnly) == AllDaySentinel
}

// TaskCandidate is one raw object returned by the generation collaborator.
// Optional fields are pointers so normalization can tell absent from empty.
type TaskCandidate struct {
	Title            string   `json:"title"`
	Body             string   `json:"body"`
	DueDateTime      *string  `json:"dueDateTime,omitempty"`
	Importance       *string  `json:"importance,omitempty"`
	ReminderDateTime *string  `json:"reminderDateTime,omitempty"`
	Categories       []string `json:"categories,omitempty"`

	Sender           string   `json:"sender,omitempty"`
	ReceivedDateTime string   `json:"receivedDateTime,omitempty"`
	Location         string   `json:"location,omitempty"`
	Attendees        []string `json:"attendees,omitempty"`
	AttachmentNames  []string `json:"attachmentNames,omitempty"`
}

// ExtractedInfo is informational context the generator pulled out of the
// input. It is shown during review and never dispatched.
type ExtractedInfo struct {
	Sender           string   `json:"sender,omitempty"`
	ReceivedDateTime string   `json:"receivedDateTime,omitempty"`
	Location         string   `json:"location,omitempty"`
	Attendees        []string `json:"attendees,omitempty"`
	AttachmentNames  []string `json:"attachmentNames,omitempty"`
}

// Image is an inline image attached to a capture.
type Image struct {
	Data     []byte
	MIMEType string
}

// CaptureInput is the raw user input handed to the generation client.
type CaptureInput struct {
	Text   string
	Images []Image
	// Now is the reference time for relative dates in the prompt.
	// Zero means the current time.
	Now time.Time
}

// IsEmpty returns true when there is neither text nor an image.
func (c CaptureInput) IsEmpty() bool {
	return strings.TrimSpace(c.Text) == "" && len(c.Images) == 0
}

// Analysis is the output of one generation call.
type Analysis struct {
	Records   []TaskRecord
	Extracted []ExtractedInfo
}

// AnalyzedTask is a record held in the in-memory review list.
type AnalyzedTask struct {
	ID        string
	CreatedAt time.Time
	Record    TaskRecord
	Extracted ExtractedInfo
}
