package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Sentinel errors. Typed errors below unwrap to one of these so callers
// can branch with errors.Is without knowing the concrete type.
var (
	// ErrValidation indicates a precondition was not met; no network call was made.
	ErrValidation = errors.New("validation failed")

	// ErrAuth indicates an authentication failure for a provider.
	ErrAuth = errors.New("authentication failed")

	// ErrQuotaExceeded indicates the upstream request quota is exhausted.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrTransientService indicates a retryable upstream failure (overloaded, unavailable).
	ErrTransientService = errors.New("service temporarily unavailable")

	// ErrPermanentRequest indicates a non-retryable upstream rejection.
	ErrPermanentRequest = errors.New("request rejected")

	// ErrUnknown is the catch-all for unexpected failures.
	ErrUnknown = errors.New("unknown error")

	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnsupportedProvider indicates an unknown provider name.
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrNoAPIKeys indicates the generation key pool is empty.
	ErrNoAPIKeys = errors.New("no generation API keys configured")

	// ErrUnsupportedDocument indicates no normaliser handles an attached file.
	ErrUnsupportedDocument = errors.New("unsupported document type")

	// ErrInvalidDocument indicates an attached file could not be parsed.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidResponse indicates the generation output could not be parsed.
	ErrInvalidResponse = errors.New("invalid generation response")
)

// ValidationReason names the unmet precondition.
type ValidationReason string

// Validation reasons surfaced to the user.
const (
	ReasonNoInput       ValidationReason = "no_input"
	ReasonNoDestination ValidationReason = "no_destination"
	ReasonNoTarget      ValidationReason = "no_target"
	ReasonNoTasks       ValidationReason = "no_tasks"
)

// ValidationError reports a precondition failure.
type ValidationError struct {
	Reason ValidationReason
}

// NewValidationError creates a ValidationError for reason.
func NewValidationError(reason ValidationReason) *ValidationError {
	return &ValidationError{Reason: reason}
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonNoInput:
		return "validation failed: no input provided"
	case ReasonNoDestination:
		return "validation failed: no destination authenticated"
	case ReasonNoTarget:
		return "validation failed: no task list selected"
	case ReasonNoTasks:
		return "validation failed: no tasks to send"
	default:
		return "validation failed: " + string(e.Reason)
	}
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// AuthErrorKind is the sub-kind of an AuthError.
type AuthErrorKind string

// Authentication error kinds.
const (
	AuthPopupBlocked   AuthErrorKind = "popup_blocked"
	AuthUserCancelled  AuthErrorKind = "user_cancelled"
	AuthExpired        AuthErrorKind = "expired"
	AuthRefreshFailed  AuthErrorKind = "refresh_failed"
	AuthExchangeFailed AuthErrorKind = "exchange_failed"
)

// AuthError reports an authentication failure for one provider.
type AuthError struct {
	Provider Provider
	Kind     AuthErrorKind
	Err      error
}

// NewAuthError creates an AuthError.
func NewAuthError(p Provider, kind AuthErrorKind, err error) *AuthError {
	return &AuthError{Provider: p, Kind: kind, Err: err}
}

func (e *AuthError) Error() string {
	msg := fmt.Sprintf("%s auth: %s", e.Provider, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both ErrAuth and the underlying cause.
func (e *AuthError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrAuth}
	}
	return []error{ErrAuth, e.Err}
}

// IsAuthKind reports whether err is an AuthError of the given kind.
func IsAuthKind(err error, kind AuthErrorKind) bool {
	var ae *AuthError
	return errors.As(err, &ae) && ae.Kind == kind
}

// QuotaExceededError reports exhausted request quota.
// RetryAfter is the upstream's suggested delay before trying again.
type QuotaExceededError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *QuotaExceededError) Error() string {
	msg := fmt.Sprintf("quota exceeded, retry in %s", e.RetryAfter.Round(time.Second))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *QuotaExceededError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrQuotaExceeded}
	}
	return []error{ErrQuotaExceeded, e.Err}
}

// TransientServiceError is a retryable upstream failure.
type TransientServiceError struct {
	StatusCode int
	Err        error
}

func (e *TransientServiceError) Error() string {
	return fmt.Sprintf("transient service error (status %d): %v", e.StatusCode, e.Err)
}

func (e *TransientServiceError) Unwrap() []error {
	return []error{ErrTransientService, e.Err}
}

// PermanentRequestError is a non-retryable upstream rejection.
type PermanentRequestError struct {
	StatusCode int
	Err        error
}

func (e *PermanentRequestError) Error() string {
	return fmt.Sprintf("request rejected (status %d): %v", e.StatusCode, e.Err)
}

func (e *PermanentRequestError) Unwrap() []error {
	return []error{ErrPermanentRequest, e.Err}
}

// UnknownError wraps failures that fit no other category.
type UnknownError struct {
	Err error
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("unknown error: %v", e.Err)
}

func (e *UnknownError) Unwrap() []error {
	return []error{ErrUnknown, e.Err}
}

// ClassifyHTTPStatus maps an upstream HTTP status to the error taxonomy.
// retryAfter is only used for 429 responses.
func ClassifyHTTPStatus(code int, retryAfter time.Duration, err error) error {
	if err == nil {
		err = errors.New(http.StatusText(code))
	}
	switch {
	case code == http.StatusTooManyRequests:
		return &QuotaExceededError{RetryAfter: retryAfter, Err: err}
	case code == http.StatusInternalServerError,
		code == http.StatusBadGateway,
		code == http.StatusServiceUnavailable,
		code == http.StatusGatewayTimeout:
		return &TransientServiceError{StatusCode: code, Err: err}
	case code >= 400 && code < 500:
		return &PermanentRequestError{StatusCode: code, Err: err}
	default:
		return &UnknownError{Err: err}
	}
}

// ParseRetryAfter reads an HTTP Retry-After header, either delay-seconds or
// an HTTP date relative to now. It returns 0 when the header is absent or
// unparseable.
func ParseRetryAfter(header string, now time.Time) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
