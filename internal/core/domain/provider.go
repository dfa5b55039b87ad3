package domain

// Provider identifies one of the two OAuth providers tasklift signs in to.
type Provider string

const (
	// ProviderMicrosoft backs the Microsoft To Do destination.
	ProviderMicrosoft Provider = "microsoft"
	// ProviderGoogle backs the Google Calendar destination.
	ProviderGoogle Provider = "google"
)

// Providers lists every supported provider in destination order.
var Providers = []Provider{ProviderMicrosoft, ProviderGoogle}

// StorageKey returns the fixed TokenStore key for the provider.
func (p Provider) StorageKey() string {
	switch p {
	case ProviderMicrosoft:
		return "microsoft_auth_token"
	case ProviderGoogle:
		return "google_auth_token"
	default:
		return string(p) + "_auth_token"
	}
}

// DisplayName returns a human readable provider name.
func (p Provider) DisplayName() string {
	switch p {
	case ProviderMicrosoft:
		return "Microsoft"
	case ProviderGoogle:
		return "Google"
	default:
		return string(p)
	}
}

// Valid reports whether p is a supported provider.
func (p Provider) Valid() bool {
	return p == ProviderMicrosoft || p == ProviderGoogle
}

// ParseProvider converts a user supplied name into a Provider.
func ParseProvider(s string) (Provider, error) {
	switch Provider(s) {
	case ProviderMicrosoft, "ms", "todo":
		return ProviderMicrosoft, nil
	case ProviderGoogle, "gcal", "calendar":
		return ProviderGoogle, nil
	default:
		return "", ErrUnsupportedProvider
	}
}
