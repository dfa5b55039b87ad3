// Package gcalendar writes task records to Google Calendar as events.
package gcalendar

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/custodia-labs/tasklift/internal/core/domain"
	"github.com/custodia-labs/tasklift/internal/core/ports/driven"
)

// Ensure Writer implements the interface.
var _ driven.TaskWriter = (*Writer)(nil)

// PrimaryCalendar is the signed-in user's default calendar.
const PrimaryCalendar = "primary"

// Writer creates one Calendar event per task record.
type Writer struct {
	calendarID string
	loc        *time.Location
	opts       []option.ClientOption
	now        func() time.Time
}

// Option configures a Writer.
type Option func(*Writer)

// WithCalendarID writes to a calendar other than the primary one.
func WithCalendarID(id string) Option {
	return func(w *Writer) { w.calendarID = id }
}

// WithClientOptions appends options to every Calendar service created,
// e.g. option.WithEndpoint for a test server.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(w *Writer) { w.opts = append(w.opts, opts...) }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) { w.now = now }
}

// NewWriter creates a writer that places events in timeZone.
func NewWriter(timeZone string, opts ...Option) (*Writer, error) {
	loc, err := time.LoadLocation(timeZone)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", timeZone, err)
	}

	w := &Writer{
		calendarID: PrimaryCalendar,
		loc:        loc,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Destination returns DestinationCalendar.
func (w *Writer) Destination() domain.Destination {
	return domain.DestinationCalendar
}

// Create inserts one event. The target argument is ignored; events always
// go to the configured calendar.
func (w *Writer) Create(ctx context.Context, accessToken, _ string, record domain.TaskRecord) (*domain.CreatedItem, error) {
	svc, err := w.service(ctx, accessToken)
	if err != nil {
		return nil, &domain.UnknownError{Err: fmt.Errorf("create calendar service: %w", err)}
	}

	event := ToEvent(record, w.loc, w.now())
	created, err := svc.Events.Insert(w.calendarID, event).Context(ctx).Do()
	if err != nil {
		return nil, wrapError(err, w.now())
	}

	return &domain.CreatedItem{ID: created.Id, Link: created.HtmlLink}, nil
}

// service creates a Calendar API service authorised with accessToken.
func (w *Writer) service(ctx context.Context, accessToken string) (*calendar.Service, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, w.opts...)
	return calendar.NewService(ctx, opts...)
}
