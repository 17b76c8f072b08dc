package panel

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"room-viz/internal/catalog"
	"room-viz/internal/codec"
)

// Entry is one draggable floor material as shown in the panel
type Entry struct {
	Name        string `json:"name"`
	MaterialURL string `json:"materialUrl"`
	HasPreview  bool   `json:"hasPreview"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Preview     string `json:"preview,omitempty"` // WebP data URL
}

// BuildEntries maps tiles to panel entries, keeping catalog order. A tile
// whose preview cannot be encoded is listed without one.
func BuildEntries(tiles []catalog.Tile, previewSize int, logger *slog.Logger) []Entry {
	entries := make([]Entry, 0, len(tiles))
	for _, t := range tiles {
		entry := Entry{
			Name:        t.ID,
			MaterialURL: t.ImageURL,
		}
		if t.HasImage() {
			entry.Width = t.Image.Width
			entry.Height = t.Image.Height
			preview, err := codec.PreviewDataURL(t.Image, previewSize)
			if err != nil {
				if logger != nil {
					logger.Warn("preview encode failed", "tile", t.ID, "err", err)
				}
			} else {
				entry.HasPreview = true
				entry.Preview = preview
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

// Board holds the entries of the most recent cycle. Events from a cycle that
// is no longer current are dropped, so a slow listener for a superseded
// fetch never overwrites newer materials.
type Board struct {
	current func() uuid.UUID
	logger  *slog.Logger

	mu      sync.Mutex
	cycle   uuid.UUID
	entries []Entry
	byName  map[string]Entry
}

// NewBoard creates an empty board. current reports the token of the cycle
// in progress, normally Pipeline.Cycle.
func NewBoard(current func() uuid.UUID, logger *slog.Logger) *Board {
	if logger == nil {
		logger = slog.Default()
	}
	return &Board{
		current: current,
		logger:  logger,
		byName:  make(map[string]Entry),
	}
}

// Apply stores the entries of ev if its cycle is still current and passes
// them to publish while holding the board lock, so publications arrive in
// the order they were applied. It reports whether ev was applied.
func (b *Board) Apply(ev catalog.MaterialsReady, previewSize int, publish func([]Entry)) bool {
	if ev.Cycle != b.current() {
		b.logger.Debug("dropping superseded materials", "cycle", ev.Cycle)
		return false
	}

	entries := BuildEntries(ev.Tiles, previewSize, b.logger)
	byName := make(map[string]Entry, len(entries))
	for _, e := range entries {
		byName[e.Name] = e
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// A newer cycle may have started while previews were encoding
	if ev.Cycle != b.current() {
		b.logger.Debug("dropping superseded materials", "cycle", ev.Cycle)
		return false
	}

	b.cycle = ev.Cycle
	b.entries = entries
	b.byName = byName
	if publish != nil {
		publish(slices.Clone(entries))
	}
	return true
}

// Cycle returns the token of the applied entries, or uuid.Nil
func (b *Board) Cycle() uuid.UUID {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cycle
}

// Entries returns a copy of the applied entries
func (b *Board) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	result := make([]Entry, len(b.entries))
	copy(result, b.entries)
	return result
}

// Lookup finds an entry by name. With duplicate names the last entry in the
// catalog wins.
func (b *Board) Lookup(name string) (Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.byName[name]
	if !ok {
		return Entry{}, fmt.Errorf("material %q not found", name)
	}
	return entry, nil
}
