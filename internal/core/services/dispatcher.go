package services

import (
	"context"
	"errors"

	"github.com/custodia-labs/tasklift/internal/core/domain"
	"github.com/custodia-labs/tasklift/internal/core/ports/driven"
	"github.com/custodia-labs/tasklift/internal/core/ports/driving"
	"github.com/custodia-labs/tasklift/internal/logger"
)

// Ensure BatchDispatcher implements the interface.
var _ driving.Dispatcher = (*BatchDispatcher)(nil)

// BatchDispatcher writes task records to one destination strictly in order,
// isolating each item's failure. It never retries; a failed item is
// reported in its outcome and the batch moves on.
type BatchDispatcher struct {
	writer  driven.TaskWriter
	tokens  driving.AccessTokenSource
	limiter driven.Limiter
}

// NewBatchDispatcher creates a dispatcher. limiter may be nil.
func NewBatchDispatcher(writer driven.TaskWriter, tokens driving.AccessTokenSource, limiter driven.Limiter) *BatchDispatcher {
	return &BatchDispatcher{
		writer:  writer,
		tokens:  tokens,
		limiter: limiter,
	}
}

// Destination returns the destination this dispatcher writes to.
func (d *BatchDispatcher) Destination() domain.Destination {
	return d.writer.Destination()
}

// Dispatch creates one downstream item per record and returns outcomes in
// input order. Item i+1 is not started until item i has settled.
func (d *BatchDispatcher) Dispatch(ctx context.Context, target string, records []domain.TaskRecord) []domain.DispatchOutcome {
	dest := d.writer.Destination()
	outcomes := make([]domain.DispatchOutcome, len(records))

	for i, record := range records {
		outcomes[i] = d.dispatchOne(ctx, target, i, record)
		if outcomes[i].Success {
			logger.Debug("%s: item %d/%d created", dest, i+1, len(records))
		} else {
			logger.Warn("%s: item %d/%d failed: %v", dest, i+1, len(records), outcomes[i].Err)
		}
	}

	return outcomes
}

func (d *BatchDispatcher) dispatchOne(ctx context.Context, target string, index int, record domain.TaskRecord) domain.DispatchOutcome {
	outcome := domain.DispatchOutcome{Index: index}

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			outcome.Err = err
			return outcome
		}
	}

	// A fresh token per item lets long batches ride through renewal.
	token, err := d.tokens.GetValidAccessToken(ctx)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	created, err := d.writer.Create(ctx, token, target, record)
	if err != nil {
		var quota *domain.QuotaExceededError
		if d.limiter != nil && errors.As(err, &quota) {
			d.limiter.Backoff(quota.RetryAfter)
		}
		outcome.Err = err
		return outcome
	}

	outcome.Success = true
	outcome.Created = created
	return outcome
}
