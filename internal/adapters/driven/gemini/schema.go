package gemini

import (
	"google.golang.org/genai"

	"github.com/custodia-labs/tasklift/internal/core/domain"
)

func stringSchema(description string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: description}
}

func stringListSchema(description string) *genai.Schema {
	return &genai.Schema{
		Type:        genai.TypeArray,
		Items:       &genai.Schema{Type: genai.TypeString},
		Description: description,
	}
}

// taskSchema is the strict response shape: an array of task candidates.
func taskSchema() *genai.Schema {
	importance := make([]string, 0, len(domain.Importances))
	for _, i := range domain.Importances {
		importance = append(importance, string(i))
	}

	item := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title": stringSchema("Task title. Must start with a primary tag (#event, #deadline or #task) " +
				"followed by one extra tag, e.g. '#event #meeting team sync'."),
			"body": stringSchema("The received content copied verbatim; only line breaks may be added."),
			"dueDateTime": stringSchema("Due date-time, ISO 8601 local time without offset. " +
				"23:59:00 for day-level deadlines. Today when no date is given; always in the future."),
			"importance": {
				Type:        genai.TypeString,
				Description: "'low' by default; 'high' only when marked urgent or important.",
				Enum:        importance,
			},
			"reminderDateTime": stringSchema("Reminder date-time, ISO 8601 local time: 07:30:00 on the due day."),
			"categories":       stringListSchema("Categories or tags for the task."),
			"sender":           stringSchema("Name of the message sender, when visible."),
			"receivedDateTime": stringSchema("When the message was received, ISO 8601."),
			"location":         stringSchema("Place or location."),
			"attendees":        stringListSchema("Attendees or people involved."),
			"attachmentNames":  stringListSchema("Attachment file names shown in the message, not the screenshot itself."),
		},
		Required: []string{"title", "body", "importance"},
		PropertyOrdering: []string{
			"title", "body", "dueDateTime", "importance", "reminderDateTime", "categories",
			"sender", "receivedDateTime", "location", "attendees", "attachmentNames",
		},
	}

	return &genai.Schema{Type: genai.TypeArray, Items: item}
}
