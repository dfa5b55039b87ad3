package driving

// ConfigService reads and writes single configuration keys for the
// `config` command. Values are exchanged as strings.
type ConfigService interface {
	// Get returns the value stored under key and whether it is set.
	Get(key string) (string, bool)

	// Set parses value for key and persists it. Unknown keys are rejected.
	Set(key, value string) error

	// Unset removes key.
	Unset(key string) error

	// Keys lists every key the service accepts.
	Keys() []string

	// IsSecret reports whether the value of key must be masked when shown.
	IsSecret(key string) bool

	// Path returns the configuration file path.
	Path() string
}
