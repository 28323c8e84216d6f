package driving

import "github.com/custodia-labs/buildboard/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Save validates and persists application settings.
	Save(settings *domain.AppSettings) error

	// Set updates a single setting by dot-notation key.
	// Returns domain.ErrInvalidInput for unknown keys or values that do
	// not validate.
	Set(key, value string) error

	// Validate checks the current settings.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings
}
