package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"room-viz/internal/codec"
)

func TestLoadSettingsMissingFile(t *testing.T) {
	s, err := LoadSettingsFrom(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)
}

func TestSettingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings", "settings.json")

	s := DefaultSettings()
	s.CatalogURL = "http://localhost/catalog.json"
	s.ImageFormat = "png"
	s.AutoFetch = false
	require.NoError(t, SaveSettingsTo(path, s))

	loaded, err := LoadSettingsFrom(path)
	require.NoError(t, err)
	assert.Equal(t, s, loaded)
}

func TestLoadSettingsMergesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"catalogUrl":"","imageWorkers":0,"previewSize":64}`), 0644))

	s, err := LoadSettingsFrom(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultCatalogURL, s.CatalogURL)
	assert.Equal(t, 10, s.ImageWorkers)
	assert.Equal(t, 64, s.PreviewSize)
	assert.Equal(t, string(codec.FormatJPEG), s.ImageFormat)
	assert.True(t, s.AutoFetch)
	assert.Equal(t, 30*time.Second, s.RequestTimeout())
	assert.Equal(t, 30*24*time.Hour, s.CacheTTL())
}

func TestLoadSettingsBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{`), 0644))

	_, err := LoadSettingsFrom(path)
	assert.Error(t, err)
}

func TestValidateSettings(t *testing.T) {
	require.NoError(t, ValidateSettings(DefaultSettings()))
	assert.Error(t, ValidateSettings(nil))

	tests := map[string]func(*UserSettings){
		"empty url":        func(s *UserSettings) { s.CatalogURL = "" },
		"unknown format":   func(s *UserSettings) { s.ImageFormat = "gif" },
		"no workers":       func(s *UserSettings) { s.ImageWorkers = 0 },
		"negative timeout": func(s *UserSettings) { s.RequestTimeoutSeconds = -1 },
		"no image size":    func(s *UserSettings) { s.MaxImageMB = 0 },
		"no cache size":    func(s *UserSettings) { s.CacheMaxSizeMB = 0 },
		"negative ttl":     func(s *UserSettings) { s.CacheTTLDays = -1 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			s := DefaultSettings()
			mutate(s)
			assert.Error(t, ValidateSettings(s))
		})
	}
}
