package driven

// ConfigStore provides access to the tasklift configuration file.
// Keys use dot notation matching the TOML tables, e.g. "gemini.model".
type ConfigStore interface {
	// Get retrieves a raw value and whether the key exists.
	Get(key string) (any, bool)

	// GetString returns a string value, or "" when absent or not a string.
	GetString(key string) string

	// GetInt returns an integer value, or 0 when absent or not an integer.
	GetInt(key string) int

	// GetStringSlice returns a list value. A comma separated string is
	// split so that "a,b" and ["a","b"] read the same.
	GetStringSlice(key string) []string

	// Set stores a value and persists immediately.
	Set(key string, value any) error

	// Unset removes a key and persists immediately.
	Unset(key string) error

	// Keys returns every configured key in sorted order.
	Keys() []string

	// Path returns the configuration file path.
	Path() string
}
