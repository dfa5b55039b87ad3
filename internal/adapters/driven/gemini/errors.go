package gemini

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/custodia-labs/tasklift/internal/core/domain"
)

const retryInfoType = "type.googleapis.com/google.rpc.RetryInfo"

var retryInMessage = regexp.MustCompile(`(?i)retry in ([\d.]+)s`)

// classify maps a genai failure to the error taxonomy. Quota failures
// carry the delay the API suggested, or zero when none was given.
func classify(err error) error {
	apiErr, ok := asAPIError(err)
	if !ok {
		return &domain.UnknownError{Err: err}
	}

	switch {
	case apiErr.Code == http.StatusTooManyRequests,
		apiErr.Status == "RESOURCE_EXHAUSTED",
		strings.Contains(strings.ToLower(apiErr.Message), "quota"):
		return &domain.QuotaExceededError{RetryAfter: retryDelay(apiErr), Err: err}
	case apiErr.Status == "UNAVAILABLE", apiErr.Status == "INTERNAL", apiErr.Status == "DEADLINE_EXCEEDED":
		return &domain.TransientServiceError{StatusCode: apiErr.Code, Err: err}
	default:
		return domain.ClassifyHTTPStatus(apiErr.Code, 0, err)
	}
}

func asAPIError(err error) (genai.APIError, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	var ptr *genai.APIError
	if errors.As(err, &ptr) && ptr != nil {
		return *ptr, true
	}
	return genai.APIError{}, false
}

// retryDelay reads google.rpc.RetryInfo from the error details, falling
// back to a "Please retry in Ns" hint in the message.
func retryDelay(apiErr genai.APIError) time.Duration {
	for _, detail := range apiErr.Details {
		if t, _ := detail["@type"].(string); t != retryInfoType {
			continue
		}
		if s, _ := detail["retryDelay"].(string); s != "" {
			if d, err := time.ParseDuration(s); err == nil && d > 0 {
				return d
			}
		}
	}

	if m := retryInMessage.FindStringSubmatch(apiErr.Message); m != nil {
		if secs, err := strconv.ParseFloat(m[1], 64); err == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}
	return 0
}
