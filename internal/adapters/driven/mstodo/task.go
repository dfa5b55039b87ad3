package mstodo

import "github.com/custodia-labs/tasklift/internal/core/domain"

type itemBody struct {
	Content     string `json:"content"`
	ContentType string `json:"contentType"`
}

type dateTimeTimeZone struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

// todoTask is the request shape of POST /me/todo/lists/{id}/tasks.
type todoTask struct {
	Title            string            `json:"title"`
	Body             itemBody          `json:"body"`
	Importance       string            `json:"importance"`
	DueDateTime      *dateTimeTimeZone `json:"dueDateTime,omitempty"`
	ReminderDateTime *dateTimeTimeZone `json:"reminderDateTime,omitempty"`
	IsReminderOn     bool              `json:"isReminderOn,omitempty"`
	Categories       []string          `json:"categories,omitempty"`
}

func (c *Client) newTask(record domain.TaskRecord) todoTask {
	importance := record.Importance
	if !importance.IsValid() {
		importance = domain.ImportanceNormal
	}

	task := todoTask{
		Title:      record.Title,
		Body:       itemBody{Content: record.Body, ContentType: "text"},
		Importance: string(importance),
		Categories: record.Categories,
	}
	if record.DueDateTime != "" {
		task.DueDateTime = &dateTimeTimeZone{DateTime: record.DueDateTime, TimeZone: c.timeZone}
	}
	if record.ReminderDateTime != "" {
		task.IsReminderOn = true
		task.ReminderDateTime = &dateTimeTimeZone{DateTime: record.ReminderDateTime, TimeZone: c.timeZone}
	}
	return task
}
