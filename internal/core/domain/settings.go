package domain

import "time"

// Default settings values.
const (
	DefaultGeminiModel     = "gemini-2.5-flash"
	DefaultMicrosoftTenant = "common"
	DefaultTimeZone        = "Asia/Seoul"
	DefaultPortStart       = 8085
	DefaultPortEnd         = 8095
	DefaultOAuthTimeout    = 5 * time.Minute
	DefaultRefreshFloor    = time.Minute
	DefaultRenewWindow     = 5 * time.Minute
)

// Settings is the resolved application configuration.
type Settings struct {
	Gemini    GeminiSettings
	Microsoft OAuthClientSettings
	Google    OAuthClientSettings
	Todo      TodoSettings
	OAuth     CallbackSettings
	Auth      RenewalSettings
}

// GeminiSettings configures the generation client.
type GeminiSettings struct {
	// APIKeys is the ordered pool of equivalent keys.
	APIKeys []string
	Model   string
}

// OAuthClientSettings holds one provider's OAuth application registration.
type OAuthClientSettings struct {
	ClientID     string
	ClientSecret string
	// Tenant is only used by Microsoft.
	Tenant string
}

// Configured returns true if a client ID is present.
func (s OAuthClientSettings) Configured() bool {
	return s.ClientID != ""
}

// TodoSettings configures the Microsoft To Do destination.
type TodoSettings struct {
	TimeZone string
	ListID   string
}

// CallbackSettings configures the loopback consent flow.
type CallbackSettings struct {
	PortStart int
	PortEnd   int
	Timeout   time.Duration
}

// RenewalSettings configures token renewal thresholds.
type RenewalSettings struct {
	// Floor is the TTL at or below which renewal is synchronous.
	Floor time.Duration
	// Window is the TTL at or below which renewal starts proactively.
	Window time.Duration
}

// DefaultSettings returns settings with every default applied.
func DefaultSettings() Settings {
	return Settings{
		Gemini:    GeminiSettings{Model: DefaultGeminiModel},
		Microsoft: OAuthClientSettings{Tenant: DefaultMicrosoftTenant},
		Todo:      TodoSettings{TimeZone: DefaultTimeZone},
		OAuth: CallbackSettings{
			PortStart: DefaultPortStart,
			PortEnd:   DefaultPortEnd,
			Timeout:   DefaultOAuthTimeout,
		},
		Auth: RenewalSettings{
			Floor:  DefaultRefreshFloor,
			Window: DefaultRenewWindow,
		},
	}
}
