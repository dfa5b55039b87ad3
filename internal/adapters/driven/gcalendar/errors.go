package gcalendar

import (
	"errors"
	"net/http"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/tasklift/internal/core/domain"
)

// Calendar reports per-user limits as 403 with one of these reasons.
var rateLimitReasons = map[string]bool{
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
	"quotaExceeded":         true,
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	if gerr.Code == http.StatusTooManyRequests {
		return true
	}
	if gerr.Code == http.StatusForbidden {
		for _, item := range gerr.Errors {
			if rateLimitReasons[item.Reason] {
				return true
			}
		}
	}
	return false
}

// wrapError converts a Calendar API error to the domain error taxonomy.
// Errors that carry no HTTP status are returned as UnknownError.
func wrapError(err error, now time.Time) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return &domain.UnknownError{Err: err}
	}

	code := gerr.Code
	if IsRateLimited(err) {
		code = http.StatusTooManyRequests
	}
	return domain.ClassifyHTTPStatus(code, domain.ParseRetryAfter(gerr.Header.Get("Retry-After"), now), err)
}
