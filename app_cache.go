package main

// Cache Management Functions (Wails-exported)

// CacheStats represents cache statistics for frontend
type CacheStats struct {
	Enabled   bool    `json:"enabled"`
	Entries   int     `json:"entries"`
	SizeBytes int64   `json:"sizeBytes"`
	MaxBytes  int64   `json:"maxBytes"`
	SizeMB    float64 `json:"sizeMB"`
	MaxMB     float64 `json:"maxMB"`
	CachePath string  `json:"cachePath"`
}

// GetCacheStats returns current swatch cache statistics
func (a *App) GetCacheStats() CacheStats {
	if a.swatchCache == nil {
		return CacheStats{}
	}

	entries, sizeBytes, maxBytes := a.swatchCache.Stats()

	return CacheStats{
		Enabled:   true,
		Entries:   entries,
		SizeBytes: sizeBytes,
		MaxBytes:  maxBytes,
		SizeMB:    float64(sizeBytes) / 1024 / 1024,
		MaxMB:     float64(maxBytes) / 1024 / 1024,
		CachePath: a.swatchCache.GetCachePath(),
	}
}

// ClearCache removes all cached swatches
func (a *App) ClearCache() error {
	if a.swatchCache != nil {
		return a.swatchCache.Clear()
	}
	return nil
}
