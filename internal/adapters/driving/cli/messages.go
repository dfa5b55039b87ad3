package cli

import (
	"errors"
	"math"

	"github.com/custodia-labs/tasklift/internal/core/domain"
	"github.com/custodia-labs/tasklift/internal/i18n"
	"github.com/custodia-labs/tasklift/internal/logger"
)

// ErrorMessage renders err as a localized, user-facing message.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		return validationMessage(validation.Reason)
	}

	var authErr *domain.AuthError
	if errors.As(err, &authErr) {
		return authMessage(authErr)
	}

	var quota *domain.QuotaExceededError
	if errors.As(err, &quota) {
		if quota.RetryAfter > 0 {
			secs := int(math.Ceil(quota.RetryAfter.Seconds()))
			return i18n.N("Request quota exhausted. Try again in %d second.",
				"Request quota exhausted. Try again in %d seconds.", secs, secs)
		}
		return i18n.T("Request quota exhausted. Try again later.")
	}

	switch {
	case errors.Is(err, errAnalysisFailed):
		logger.Warn("analysis failed: %v", err)
		return i18n.T("Analysis failed. Please try again.")
	case errors.Is(err, domain.ErrNoAPIKeys):
		return i18n.T("No Gemini API key configured. Run 'tasklift config set gemini.api_keys <key>'.")
	case errors.Is(err, domain.ErrInvalidResponse):
		return i18n.T("Could not read the generated tasks. Please try again.")
	case errors.Is(err, domain.ErrUnsupportedDocument):
		return i18n.T("Only .eml, .html and text files can be attached with --file.")
	case errors.Is(err, domain.ErrInvalidDocument):
		return i18n.T("The attached file could not be read: %s", err.Error())
	case errors.Is(err, domain.ErrUnsupportedProvider):
		return i18n.T("Unknown provider. Use 'microsoft' or 'google'.")
	case errors.Is(err, domain.ErrTransientService):
		return i18n.T("The service is busy. Please try again shortly.")
	case errors.Is(err, domain.ErrPermanentRequest):
		return i18n.T("The request was rejected: %s", err.Error())
	case errors.Is(err, domain.ErrUnknown):
		logger.Warn("unexpected error: %v", err)
		return i18n.T("Something went wrong. Run with --verbose for details.")
	default:
		return err.Error()
	}
}

func validationMessage(reason domain.ValidationReason) string {
	switch reason {
	case domain.ReasonNoInput:
		return i18n.T("Enter some text or attach an image first.")
	case domain.ReasonNoDestination:
		return i18n.T("Sign in to Microsoft To Do or Google Calendar first.")
	case domain.ReasonNoTarget:
		return i18n.T("Select a To Do list first with 'tasklift lists --select <id>'.")
	case domain.ReasonNoTasks:
		return i18n.T("There are no tasks to send.")
	default:
		return i18n.T("Validation failed: %s", string(reason))
	}
}

func authMessage(e *domain.AuthError) string {
	name := e.Provider.DisplayName()
	switch e.Kind {
	case domain.AuthPopupBlocked:
		return i18n.T("Could not open the %s sign-in page. Open the printed URL in a browser.", name)
	case domain.AuthUserCancelled:
		return i18n.T("Sign-in to %s was cancelled.", name)
	case domain.AuthExpired:
		return i18n.T("Your %s session has expired. Run 'tasklift login %s'.", name, string(e.Provider))
	case domain.AuthRefreshFailed:
		return i18n.T("Could not renew the %s session. Please sign in again.", name)
	default:
		return i18n.T("Sign-in to %s failed. Please try again.", name)
	}
}
