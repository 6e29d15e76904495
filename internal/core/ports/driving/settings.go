package driving

import "github.com/custodia-labs/sercha-rag/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings, with environment overrides applied.
	Get() (*domain.AppSettings, error)

	// Set stores a single dotted configuration key, validating known keys.
	Set(key, value string) error

	// Lookup returns the raw stored value for a dotted key.
	Lookup(key string) (any, bool)

	// Keys returns every stored key.
	Keys() []string

	// Validate checks the provider configuration is complete.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings
}
