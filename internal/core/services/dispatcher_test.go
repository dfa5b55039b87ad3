package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tasklift/internal/core/domain"
)

func sampleRecords(titles ...string) []domain.TaskRecord {
	records := make([]domain.TaskRecord, len(titles))
	for i, title := range titles {
		records[i] = domain.TaskRecord{Title: title, Importance: domain.ImportanceNormal, Categories: []string{}}
	}
	return records
}

func TestBatchDispatcher_PreservesOrderAndIsolatesFailures(t *testing.T) {
	writer := newMockWriter(domain.DestinationTodo)
	writer.failOn[2] = &domain.PermanentRequestError{StatusCode: 400, Err: errors.New("bad due date")}
	tokens := &staticTokenSource{token: "tok"}
	limiter := &mockLimiter{}
	d := NewBatchDispatcher(writer, tokens, limiter)

	outcomes := d.Dispatch(context.Background(), "list-1", sampleRecords("a", "b", "c"))

	require.Len(t, outcomes, 3)
	for i, o := range outcomes {
		assert.Equal(t, i, o.Index)
	}
	assert.True(t, outcomes[0].Success)
	assert.False(t, outcomes[1].Success)
	assert.ErrorIs(t, outcomes[1].Err, domain.ErrPermanentRequest)
	assert.True(t, outcomes[2].Success, "failure at index 1 does not block index 2")
	assert.Equal(t, "c-id", outcomes[2].Created.ID)

	calls := writer.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{calls[0].Record.Title, calls[1].Record.Title, calls[2].Record.Title})
	assert.Equal(t, "list-1", calls[0].Target)
	assert.Equal(t, "tok", calls[0].Token)
	assert.Equal(t, 3, tokens.calls, "token is fetched per item")
	assert.Equal(t, 3, limiter.waits)
	assert.Empty(t, limiter.backoffs)
}

func TestBatchDispatcher_TokenFailureMarksItemFailed(t *testing.T) {
	writer := newMockWriter(domain.DestinationCalendar)
	tokens := &staticTokenSource{err: domain.NewAuthError(domain.ProviderGoogle, domain.AuthExpired, errors.New("gone"))}
	d := NewBatchDispatcher(writer, tokens, nil)

	outcomes := d.Dispatch(context.Background(), "", sampleRecords("a", "b"))

	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.False(t, o.Success)
		assert.True(t, domain.IsAuthKind(o.Err, domain.AuthExpired))
	}
	assert.Empty(t, writer.Calls())
}

func TestBatchDispatcher_QuotaFailureBacksOffLimiter(t *testing.T) {
	writer := newMockWriter(domain.DestinationCalendar)
	writer.failOn[1] = &domain.QuotaExceededError{RetryAfter: 3 * time.Second, Err: errors.New("rateLimitExceeded")}
	limiter := &mockLimiter{}
	d := NewBatchDispatcher(writer, &staticTokenSource{token: "tok"}, limiter)

	outcomes := d.Dispatch(context.Background(), "", sampleRecords("a", "b"))

	assert.False(t, outcomes[0].Success)
	assert.True(t, outcomes[1].Success)
	assert.Equal(t, []time.Duration{3 * time.Second}, limiter.backoffs)
	assert.Len(t, writer.Calls(), 2, "no automatic retry")
}

func TestBatchDispatcher_LimiterCancelled(t *testing.T) {
	writer := newMockWriter(domain.DestinationTodo)
	limiter := &mockLimiter{waitErr: context.Canceled}
	d := NewBatchDispatcher(writer, &staticTokenSource{token: "tok"}, limiter)

	outcomes := d.Dispatch(context.Background(), "l", sampleRecords("a"))

	require.Len(t, outcomes, 1)
	assert.ErrorIs(t, outcomes[0].Err, context.Canceled)
	assert.Empty(t, writer.Calls())
}

func TestBatchDispatcher_Empty(t *testing.T) {
	d := NewBatchDispatcher(newMockWriter(domain.DestinationTodo), &staticTokenSource{}, nil)

	assert.Empty(t, d.Dispatch(context.Background(), "l", nil))
	assert.Equal(t, domain.DestinationTodo, d.Destination())
}
