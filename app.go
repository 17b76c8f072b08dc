package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	goruntime "runtime"
	"sync"

	"github.com/posthog/posthog-go"
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"room-viz/internal/cache"
	"room-viz/internal/catalog"
	"room-viz/internal/codec"
	"room-viz/internal/config"
	"room-viz/internal/fetch"
	"room-viz/internal/panel"
)

// Linker flags
var (
	PostHogKey  string
	PostHogHost string
	AppVersion  string = "0.0.0-dev"
)

// Frontend event names
const (
	EventMaterialsReady   = "materials-ready"
	EventCatalogRequested = "catalog-requested"
)

// App struct
type App struct {
	ctx         context.Context
	settings    *config.UserSettings
	pipeline    *catalog.Pipeline
	swatchCache *cache.SwatchCache
	phClient    posthog.Client
	mu          sync.Mutex
	devMode     bool // Enable verbose logging in dev mode only

	board     *panel.Board
	lastCycle string
}

// NewApp creates a new App application struct
func NewApp() *App {
	// Load user settings
	settings, err := config.LoadSettings()
	if err != nil {
		log.Printf("Failed to load settings, using defaults: %v", err)
		settings = config.DefaultSettings()
	}
	log.Printf("Settings loaded from: %s", config.GetSettingsPath())

	// Initialize swatch cache with settings
	var swatchCache *cache.SwatchCache
	if settings.CacheEnabled {
		cacheDir := cache.GetCacheDir()
		swatchCache, err = cache.NewSwatchCache(cacheDir, settings.CacheMaxSizeMB, settings.CacheTTL(), slog.Default())
		if err != nil {
			log.Printf("Failed to initialize swatch cache: %v", err)
			swatchCache = nil // Continue without cache
		} else {
			log.Printf("Swatch cache initialized at %s (max %d MB)", cacheDir, settings.CacheMaxSizeMB)
		}
	}

	pipeline, err := newPipeline(settings, swatchCache)
	if err != nil {
		log.Printf("Invalid image format %q, falling back to jpeg: %v", settings.ImageFormat, err)
		settings.ImageFormat = string(codec.FormatJPEG)
		pipeline, _ = newPipeline(settings, swatchCache)
	}

	// Initialize PostHog
	var phClient posthog.Client
	if PostHogKey != "" {
		phConfig := posthog.Config{
			Endpoint: PostHogHost,
		}
		client, err := posthog.NewWithConfig(PostHogKey, phConfig)
		if err != nil {
			log.Printf("Failed to initialize PostHog: %v", err)
		} else {
			phClient = client
		}
	}

	return &App{
		settings:    settings,
		pipeline:    pipeline,
		swatchCache: swatchCache,
		phClient:    phClient,
		board:       panel.NewBoard(pipeline.Cycle, slog.Default()),
	}
}

// newPipeline wires the HTTP client, optional cache and decoder from settings
func newPipeline(settings *config.UserSettings, swatchCache *cache.SwatchCache) (*catalog.Pipeline, error) {
	format, err := codec.ParseFormat(settings.ImageFormat)
	if err != nil {
		return nil, err
	}
	decoder, err := codec.NewDecoder(format)
	if err != nil {
		return nil, err
	}

	client := fetch.NewClient(
		fetch.WithTimeout(settings.RequestTimeout()),
		fetch.WithMaxBodyBytes(int64(settings.MaxImageMB)<<20),
	)

	opts := []catalog.Option{catalog.WithWorkers(settings.ImageWorkers)}
	if swatchCache != nil {
		opts = append(opts, catalog.WithImageFetcher(fetch.NewCached(client, swatchCache, slog.Default())))
	}

	return catalog.NewPipeline(client, decoder, opts...), nil
}

// startup is called when the app starts
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	a.pipeline.OnMaterialsReady(a.handleMaterialsReady)

	if a.settings.AutoFetch {
		a.FetchCatalog("")
	}

	// Track app start
	a.TrackEvent("app_started", map[string]interface{}{
		"version": a.GetAppVersion(),
		"os":      goruntime.GOOS,
		"arch":    goruntime.GOARCH,
	})
}

// FetchCatalog starts a new catalog fetch cycle and returns its id. An empty
// url uses the configured catalog.
func (a *App) FetchCatalog(url string) string {
	if url == "" {
		a.mu.Lock()
		url = a.settings.CatalogURL
		a.mu.Unlock()
	}

	cycle := a.pipeline.FetchCatalog(context.Background(), url).String()

	a.mu.Lock()
	a.lastCycle = cycle
	a.mu.Unlock()

	if a.devMode {
		log.Printf("[Catalog] Fetch %s started for %s", cycle, url)
	}
	if a.ctx != nil {
		wailsRuntime.EventsEmit(a.ctx, EventCatalogRequested, map[string]interface{}{
			"cycle": cycle,
			"url":   url,
		})
	}
	a.TrackEvent("catalog_requested", map[string]interface{}{
		"cycle": cycle,
	})
	return cycle
}

// handleMaterialsReady converts a completed cycle into panel entries and
// hands them to the frontend. Events from a superseded cycle are dropped.
func (a *App) handleMaterialsReady(ev catalog.MaterialsReady) {
	a.mu.Lock()
	previewSize := a.settings.PreviewSize
	a.mu.Unlock()

	applied := a.board.Apply(ev, previewSize, func(entries []panel.Entry) {
		if a.ctx != nil {
			wailsRuntime.LogInfo(a.ctx, fmt.Sprintf("Materials ready: %d tiles", len(entries)))
			wailsRuntime.EventsEmit(a.ctx, EventMaterialsReady, entries)
		}
	})
	if !applied {
		if a.devMode {
			log.Printf("[Catalog] Dropped materials for superseded fetch %s", ev.Cycle)
		}
		return
	}

	log.Printf("[Catalog] Materials ready: %d tiles, %d with previews", len(ev.Tiles), ev.Resolved())
	a.TrackEvent("catalog_ready", map[string]interface{}{
		"cycle":    ev.Cycle.String(),
		"tiles":    len(ev.Tiles),
		"resolved": ev.Resolved(),
		"failed":   len(ev.Tiles) - ev.Resolved(),
	})
}

// GetMaterials returns the entries from the last completed cycle
func (a *App) GetMaterials() []panel.Entry {
	return a.board.Entries()
}

// GetMaterial looks up a dropped material by name
func (a *App) GetMaterial(name string) (panel.Entry, error) {
	return a.board.Lookup(name)
}

// GetCatalogState reports the phase of the current fetch cycle
func (a *App) GetCatalogState() map[string]interface{} {
	a.mu.Lock()
	cycle := a.lastCycle
	a.mu.Unlock()

	return map[string]interface{}{
		"cycle":   cycle,
		"state":   a.pipeline.State().String(),
		"pending": a.pipeline.Pending(),
	}
}

// TrackEvent sends an event to PostHog
func (a *App) TrackEvent(event string, props map[string]interface{}) {
	if a.phClient != nil {
		a.phClient.Enqueue(posthog.Capture{
			DistinctId: "backend_user",
			Event:      event,
			Properties: props,
		})
	}
}

// Shutdown cleans up resources
func (a *App) Shutdown(ctx context.Context) {
	if a.swatchCache != nil {
		if err := a.swatchCache.Close(); err != nil {
			log.Printf("Failed to flush swatch cache: %v", err)
		}
	}
	if a.phClient != nil {
		a.phClient.Close()
	}
}

// GetAppVersion returns the current application version
func (a *App) GetAppVersion() string {
	return AppVersion
}
