package file

import (
	"time"

	"github.com/custodia-labs/tasklift/internal/core/domain"
	"github.com/custodia-labs/tasklift/internal/core/ports/driven"
)

// Configuration keys.
const (
	KeyGeminiAPIKeys       = "gemini.api_keys"
	KeyGeminiModel         = "gemini.model"
	KeyMicrosoftClientID   = "microsoft.client_id"
	KeyMicrosoftTenant     = "microsoft.tenant"
	KeyGoogleClientID      = "google.client_id"
	KeyGoogleClientSecret  = "google.client_secret"
	KeyTodoTimeZone        = "todo.time_zone"
	KeyTodoListID          = "todo.list_id"
	KeyOAuthPortStart      = "oauth.port_start"
	KeyOAuthPortEnd        = "oauth.port_end"
	KeyOAuthTimeoutSeconds = "oauth.timeout_seconds"
	KeyAuthRefreshFloor    = "auth.refresh_floor_seconds"
	KeyAuthRenewWindow     = "auth.renew_window_seconds"
)

// Environment overrides. Keys from the environment replace the configured pool.
const (
	EnvGeminiAPIKeys      = "TASKLIFT_GEMINI_API_KEYS"
	EnvGeminiAPIKey       = "GEMINI_API_KEY"
	EnvMicrosoftClientID  = "TASKLIFT_MICROSOFT_CLIENT_ID"
	EnvGoogleClientID     = "TASKLIFT_GOOGLE_CLIENT_ID"
	EnvGoogleClientSecret = "TASKLIFT_GOOGLE_CLIENT_SECRET"
)

// KnownKeys lists the keys `config set` accepts.
var KnownKeys = []string{
	KeyGeminiAPIKeys,
	KeyGeminiModel,
	KeyMicrosoftClientID,
	KeyMicrosoftTenant,
	KeyGoogleClientID,
	KeyGoogleClientSecret,
	KeyTodoTimeZone,
	KeyTodoListID,
	KeyOAuthPortStart,
	KeyOAuthPortEnd,
	KeyOAuthTimeoutSeconds,
	KeyAuthRefreshFloor,
	KeyAuthRenewWindow,
}

// IntKeys lists the keys stored as integers.
var IntKeys = map[string]bool{
	KeyOAuthPortStart:      true,
	KeyOAuthPortEnd:        true,
	KeyOAuthTimeoutSeconds: true,
	KeyAuthRefreshFloor:    true,
	KeyAuthRenewWindow:     true,
}

// ListKeys lists the keys stored as string arrays.
var ListKeys = map[string]bool{
	KeyGeminiAPIKeys: true,
}

// SecretKeys lists the keys whose values are masked when printed.
var SecretKeys = map[string]bool{
	KeyGeminiAPIKeys:      true,
	KeyGoogleClientSecret: true,
}

// LoadSettings resolves settings from store, applying defaults and then
// environment overrides read through getenv.
func LoadSettings(store driven.ConfigStore, getenv func(string) string) domain.Settings {
	s := domain.DefaultSettings()

	s.Gemini.APIKeys = store.GetStringSlice(KeyGeminiAPIKeys)
	if v := getenv(EnvGeminiAPIKeys); v != "" {
		s.Gemini.APIKeys = splitList(v)
	} else if v := getenv(EnvGeminiAPIKey); v != "" {
		s.Gemini.APIKeys = splitList(v)
	}
	setString(&s.Gemini.Model, store.GetString(KeyGeminiModel))

	setString(&s.Microsoft.ClientID, store.GetString(KeyMicrosoftClientID))
	setString(&s.Microsoft.ClientID, getenv(EnvMicrosoftClientID))
	setString(&s.Microsoft.Tenant, store.GetString(KeyMicrosoftTenant))

	setString(&s.Google.ClientID, store.GetString(KeyGoogleClientID))
	setString(&s.Google.ClientID, getenv(EnvGoogleClientID))
	setString(&s.Google.ClientSecret, store.GetString(KeyGoogleClientSecret))
	setString(&s.Google.ClientSecret, getenv(EnvGoogleClientSecret))

	setString(&s.Todo.TimeZone, store.GetString(KeyTodoTimeZone))
	setString(&s.Todo.ListID, store.GetString(KeyTodoListID))

	setInt(&s.OAuth.PortStart, store.GetInt(KeyOAuthPortStart))
	setInt(&s.OAuth.PortEnd, store.GetInt(KeyOAuthPortEnd))
	if s.OAuth.PortEnd < s.OAuth.PortStart {
		s.OAuth.PortEnd = s.OAuth.PortStart
	}
	setSeconds(&s.OAuth.Timeout, store.GetInt(KeyOAuthTimeoutSeconds))

	setSeconds(&s.Auth.Floor, store.GetInt(KeyAuthRefreshFloor))
	setSeconds(&s.Auth.Window, store.GetInt(KeyAuthRenewWindow))
	if s.Auth.Window <= s.Auth.Floor {
		s.Auth.Window = s.Auth.Floor + domain.DefaultRenewWindow - domain.DefaultRefreshFloor
	}

	return s
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func setSeconds(dst *time.Duration, v int) {
	if v > 0 {
		*dst = time.Duration(v) * time.Second
	}
}
