package gcalendar

import (
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/custodia-labs/tasklift/internal/core/domain"
)

const (
	// allDayReminderMinutes is counted back from the all-day start at
	// midnight, so the popup fires at 16:30 the previous day.
	allDayReminderMinutes = 7*60 + 30

	// defaultReminderMinutes applies to timed events without an earlier reminder.
	defaultReminderMinutes = 60

	// maxReminderMinutes is the largest override the Calendar API accepts (4 weeks).
	maxReminderMinutes = 40320

	// timedEventDuration is the length given to timed events.
	timedEventDuration = time.Hour
)

// Local date-time layouts emitted by the generator.
var dateTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.RFC3339,
}

const dateLayout = "2006-01-02"

// ToEvent converts a task record into a Calendar event in loc.
//
// A missing or unparseable due date means today. A date-only due value or
// one carrying the 23:59 sentinel becomes an all-day event with an
// exclusive end date and a popup 450 minutes before its start. Any other clock time becomes a
// one hour timed event whose popup fires at the record's reminder when that
// precedes the start, otherwise one hour before.
func ToEvent(record domain.TaskRecord, loc *time.Location, now time.Time) *calendar.Event {
	event := &calendar.Event{
		Summary:     record.Title,
		Description: record.Body,
	}

	due, dateOnly, ok := parseLocal(record.DueDateTime, loc)
	if !ok {
		due, dateOnly = now.In(loc), true
	}

	minutes := defaultReminderMinutes
	if dateOnly || domain.IsAllDay(due) {
		day := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, loc)
		event.Start = &calendar.EventDateTime{Date: day.Format(dateLayout), TimeZone: loc.String()}
		event.End = &calendar.EventDateTime{Date: day.AddDate(0, 0, 1).Format(dateLayout), TimeZone: loc.String()}
		minutes = allDayReminderMinutes
	} else {
		event.Start = &calendar.EventDateTime{DateTime: due.Format(time.RFC3339), TimeZone: loc.String()}
		event.End = &calendar.EventDateTime{DateTime: due.Add(timedEventDuration).Format(time.RFC3339), TimeZone: loc.String()}
		if reminder, _, ok := parseLocal(record.ReminderDateTime, loc); ok && reminder.Before(due) {
			minutes = min(int(due.Sub(reminder)/time.Minute), maxReminderMinutes)
		}
	}

	event.Reminders = &calendar.EventReminders{
		UseDefault: false,
		Overrides: []*calendar.EventReminder{
			{Method: "popup", Minutes: int64(minutes)},
		},
		// UseDefault=false is the zero value and would otherwise be omitted.
		ForceSendFields: []string{"UseDefault"},
	}

	return event
}

// parseLocal parses s as a local date-time or a bare date in loc.
func parseLocal(s string, loc *time.Location) (t time.Time, dateOnly, ok bool) {
	if s == "" {
		return time.Time{}, false, false
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc), false, true
		}
	}
	if t, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
		return t, true, true
	}
	return time.Time{}, false, false
}
