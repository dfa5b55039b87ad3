package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/custodia-labs/tasklift/internal/core/domain"
	"github.com/custodia-labs/tasklift/internal/core/ports/driven"
	"github.com/custodia-labs/tasklift/internal/core/ports/driving"
	"github.com/custodia-labs/tasklift/internal/logger"
)

// Ensure GenerationClient implements the interface.
var _ driving.Analyzer = (*GenerationClient)(nil)

const (
	// minGenerationAttempts is the attempt ceiling for small key pools.
	minGenerationAttempts = 3

	// keySwitchDelay is the pause before retrying on another key.
	keySwitchDelay = 500 * time.Millisecond

	// backoffUnit is the first overload retry delay; each retry doubles it.
	backoffUnit = time.Second

	// defaultQuotaRetry is suggested when the upstream gives no delay.
	defaultQuotaRetry = 30 * time.Second
)

var errRateLimited = errors.New("rate limited")

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// GenerationClientOption configures a GenerationClient.
type GenerationClientOption func(*GenerationClient)

// WithSleep replaces the context-aware sleep used between attempts.
func WithSleep(sleep SleepFunc) GenerationClientOption {
	return func(c *GenerationClient) { c.sleep = sleep }
}

// WithGenerationClock replaces time.Now for the prompt reference date.
func WithGenerationClock(now func() time.Time) GenerationClientOption {
	return func(c *GenerationClient) { c.now = now }
}

// GenerationClient turns raw captures into task records, rotating API keys
// on rate limits and backing off on overload.
type GenerationClient struct {
	pool      *KeyPool
	generator driven.ContentGenerator
	sleep     SleepFunc
	now       func() time.Time
}

// NewGenerationClient creates a generation client over pool.
func NewGenerationClient(pool *KeyPool, generator driven.ContentGenerator, opts ...GenerationClientOption) *GenerationClient {
	c := &GenerationClient{
		pool:      pool,
		generator: generator,
		sleep:     sleepContext,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Analyze runs one logical generation call and normalizes the result.
func (c *GenerationClient) Analyze(ctx context.Context, input domain.CaptureInput) (*domain.Analysis, error) {
	if input.IsEmpty() {
		return nil, domain.NewValidationError(domain.ReasonNoInput)
	}
	if input.Now.IsZero() {
		input.Now = c.now()
	}

	size := c.pool.Size()
	attempts := max(size, minGenerationAttempts)
	current := c.pool.Cursor()
	tried := make(map[int]bool, size)
	retries := 0
	schedule := backoff.WithContext(newOverloadBackOff(), ctx)

	logger.Debug("generation: %d key(s), up to %d attempts, starting at key %d", size, attempts, current+1)

	for call := 1; ; call++ {
		tried[current] = true
		key := c.pool.Key(current)
		logger.Debug("generation: call %d with key %d (%s)", call, current+1, logger.Mask(key))

		candidates, err := c.generator.Generate(ctx, key, input)
		if err == nil {
			c.pool.Advance(current)
			logger.Info("generation: %d candidate(s), next call starts at key %d", len(candidates), c.pool.Cursor()+1)
			return normalizeCandidates(candidates), nil
		}
		logger.Warn("generation: call %d failed: %v", call, err)

		// Key switches do not count against the attempt ceiling.
		var quota *domain.QuotaExceededError
		if errors.As(err, &quota) {
			next, ok := nextUntried(current, size, tried)
			if !ok {
				c.pool.Set(current)
				cause := quota.Err
				if cause == nil {
					cause = errRateLimited
				}
				return nil, &domain.QuotaExceededError{
					RetryAfter: retryAfterOrDefault(quota.RetryAfter),
					Err:        fmt.Errorf("all %d API key(s) rate limited: %w", size, cause),
				}
			}
			current = next
			if err := c.sleep(ctx, keySwitchDelay); err != nil {
				return nil, err
			}
			continue
		}

		if !errors.Is(err, domain.ErrTransientService) || retries >= attempts-1 {
			return nil, err
		}
		retries++
		delay := schedule.NextBackOff()
		if delay == backoff.Stop {
			return nil, ctx.Err()
		}
		logger.Debug("generation: retry %d/%d in %s", retries, attempts-1, delay)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// newOverloadBackOff doubles from backoffUnit with no jitter and no
// elapsed-time cap; the attempt ceiling bounds it instead.
func newOverloadBackOff() *backoff.ExponentialBackOff {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = backoffUnit
	expo.Multiplier = 2
	expo.RandomizationFactor = 0
	expo.MaxElapsedTime = 0
	expo.Reset()
	return expo
}

// nextUntried scans cyclically after current for a key not yet used this call.
func nextUntried(current, size int, tried map[int]bool) (int, bool) {
	for i := 1; i <= size; i++ {
		idx := (current + i) % size
		if !tried[idx] {
			return idx, true
		}
	}
	return 0, false
}

func retryAfterOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultQuotaRetry
	}
	return d
}

// normalizeCandidates applies record defaults and keeps extracted info
// aligned by index.
func normalizeCandidates(candidates []domain.TaskCandidate) *domain.Analysis {
	analysis := &domain.Analysis{
		Records:   make([]domain.TaskRecord, 0, len(candidates)),
		Extracted: make([]domain.ExtractedInfo, 0, len(candidates)),
	}
	for _, c := range candidates {
		record := domain.TaskRecord{
			Title:      c.Title,
			Body:       c.Body,
			Importance: domain.ImportanceNormal,
			Categories: []string{},
		}
		if c.DueDateTime != nil {
			record.DueDateTime = *c.DueDateTime
		}
		if c.ReminderDateTime != nil {
			record.ReminderDateTime = *c.ReminderDateTime
		}
		if c.Importance != nil {
			if imp := domain.Importance(*c.Importance); imp.IsValid() {
				record.Importance = imp
			}
		}
		if len(c.Categories) > 0 {
			record.Categories = append(record.Categories, c.Categories...)
		}

		analysis.Records = append(analysis.Records, record)
		analysis.Extracted = append(analysis.Extracted, domain.ExtractedInfo{
			Sender:           c.Sender,
			ReceivedDateTime: c.ReceivedDateTime,
			Location:         c.Location,
			Attendees:        c.Attendees,
			AttachmentNames:  c.AttachmentNames,
		})
	}
	return analysis
}
