package driven

// ConfigStore is the dotted-key settings store behind config.toml.
//
// Typed getters return the zero value for a missing key or a value of the
// wrong type. Set writes through to storage.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	// GetFloat widens integers.
	GetFloat(key string) float64
	GetBool(key string) bool
	GetStringSlice(key string) []string

	// Keys lists every key that is set, sorted.
	Keys() []string

	Set(key string, value any) error
	Save() error
	Load() error

	// Path is the backing file, ":memory:" for in-memory stores.
	Path() string
}
