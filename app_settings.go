package main

import (
	"log"

	"room-viz/internal/config"
)

// ===================
// Settings Management
// ===================

// GetSettings returns current user settings
func (a *App) GetSettings() (*config.UserSettings, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Return a copy to prevent external modifications
	settingsCopy := *a.settings
	return &settingsCopy, nil
}

// SaveSettings saves user settings to disk and updates app state
func (a *App) SaveSettings(settings *config.UserSettings) error {
	if err := config.ValidateSettings(settings); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := config.SaveSettings(settings); err != nil {
		return err
	}

	// Catalog URL and preview size apply immediately; the rest is wired into
	// the pipeline at startup
	a.settings = settings
	log.Printf("Settings saved. Download and cache settings will apply on next restart.")

	return nil
}

// GetSettingsPath returns the settings file path
func (a *App) GetSettingsPath() string {
	return config.GetSettingsPath()
}
