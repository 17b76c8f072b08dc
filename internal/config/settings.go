package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"room-viz/internal/codec"
)

// DefaultCatalogURL is the public floor tile catalog shipped with the demo scene
const DefaultCatalogURL = "https://raw.githubusercontent.com/Ghanshyam-Shinde/realestateinfo/refs/heads/master/FloorTiles.json"

// UserSettings represents persistent user preferences
type UserSettings struct {
	// Catalog source
	CatalogURL string `json:"catalogUrl"`
	AutoFetch  bool   `json:"autoFetch"`

	// Swatch download settings
	ImageFormat           string `json:"imageFormat"` // "jpeg", "png", "webp", "bmp", "tiff", "tga"
	ImageWorkers          int    `json:"imageWorkers"`
	RequestTimeoutSeconds int    `json:"requestTimeoutSeconds"` // 0 disables the timeout
	MaxImageMB            int    `json:"maxImageMB"`

	// Cache settings
	CacheEnabled   bool `json:"cacheEnabled"`
	CacheMaxSizeMB int  `json:"cacheMaxSizeMB"`
	CacheTTLDays   int  `json:"cacheTTLDays"`

	// UI preferences
	PreviewSize int `json:"previewSize"` // Longest edge of swatch previews, in pixels
}

// DefaultSettings returns default user settings
func DefaultSettings() *UserSettings {
	return &UserSettings{
		CatalogURL:            DefaultCatalogURL,
		AutoFetch:             true,
		ImageFormat:           string(codec.FormatJPEG),
		ImageWorkers:          10,
		RequestTimeoutSeconds: 30,
		MaxImageMB:            32,
		CacheEnabled:          true,
		CacheMaxSizeMB:        250,
		CacheTTLDays:          30,
		PreviewSize:           128,
	}
}

// RequestTimeout returns the per-request timeout as a duration
func (s *UserSettings) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

// CacheTTL returns the cache entry lifetime as a duration
func (s *UserSettings) CacheTTL() time.Duration {
	return time.Duration(s.CacheTTLDays) * 24 * time.Hour
}

// GetSettingsPath returns the settings file path
func GetSettingsPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".room-viz", "settings", "settings.json")
}

// LoadSettings loads user settings from the default path
func LoadSettings() (*UserSettings, error) {
	return LoadSettingsFrom(GetSettingsPath())
}

// LoadSettingsFrom loads settings from path. A missing file yields defaults.
func LoadSettingsFrom(path string) (*UserSettings, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultSettings(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	// Start from defaults so fields absent from the file keep them
	settings := DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}

	defaults := DefaultSettings()
	if settings.CatalogURL == "" {
		settings.CatalogURL = defaults.CatalogURL
	}
	if settings.ImageFormat == "" {
		settings.ImageFormat = defaults.ImageFormat
	}
	if settings.ImageWorkers <= 0 {
		settings.ImageWorkers = defaults.ImageWorkers
	}
	if settings.RequestTimeoutSeconds < 0 {
		settings.RequestTimeoutSeconds = defaults.RequestTimeoutSeconds
	}
	if settings.MaxImageMB <= 0 {
		settings.MaxImageMB = defaults.MaxImageMB
	}
	if settings.CacheMaxSizeMB <= 0 {
		settings.CacheMaxSizeMB = defaults.CacheMaxSizeMB
	}
	if settings.CacheTTLDays < 0 {
		settings.CacheTTLDays = defaults.CacheTTLDays
	}
	if settings.PreviewSize <= 0 {
		settings.PreviewSize = defaults.PreviewSize
	}

	return settings, nil
}

// SaveSettings saves user settings to the default path
func SaveSettings(settings *UserSettings) error {
	return SaveSettingsTo(GetSettingsPath(), settings)
}

// SaveSettingsTo saves user settings to path
func SaveSettingsTo(path string, settings *UserSettings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	return nil
}

// ValidateSettings checks settings before they are saved or applied
func ValidateSettings(settings *UserSettings) error {
	if settings == nil {
		return fmt.Errorf("settings are required")
	}
	if settings.CatalogURL == "" {
		return fmt.Errorf("catalog URL is required")
	}
	if _, err := codec.ParseFormat(settings.ImageFormat); err != nil {
		return err
	}
	if settings.ImageWorkers <= 0 {
		return fmt.Errorf("image workers must be positive")
	}
	if settings.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("request timeout cannot be negative")
	}
	if settings.MaxImageMB <= 0 {
		return fmt.Errorf("max image size must be positive")
	}
	if settings.CacheMaxSizeMB <= 0 {
		return fmt.Errorf("cache size must be positive")
	}
	if settings.CacheTTLDays < 0 {
		return fmt.Errorf("cache TTL cannot be negative")
	}
	return nil
}
