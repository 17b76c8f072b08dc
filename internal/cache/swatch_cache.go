package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const indexFile = "cache_index.json"

// SwatchCache is a disk cache for downloaded swatch images keyed by URL.
// It persists across restarts through a JSON metadata index.
//
// Layout: {baseDir}/{hash[:2]}/{hash}.img where hash is the SHA-256 of the URL
type SwatchCache struct {
	baseDir   string
	maxSize   int64 // Maximum cache size in bytes
	currSize  int64 // Current cache size (atomic)
	ttl       time.Duration
	mu        sync.RWMutex
	saveMu    sync.Mutex
	metadata  map[string]*EntryMetadata
	evictChan chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	logger    *slog.Logger
}

// EntryMetadata stores information about a cached swatch
type EntryMetadata struct {
	URL        string    `json:"url"`
	Hash       string    `json:"hash"`
	Size       int64     `json:"size"`
	AccessTime time.Time `json:"accessTime"`
	CreateTime time.Time `json:"createTime"`
}

// NewSwatchCache opens or creates a cache in baseDir. A ttl of zero keeps
// entries until they are evicted for space.
func NewSwatchCache(baseDir string, maxSizeMB int, ttl time.Duration, logger *slog.Logger) (*SwatchCache, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &SwatchCache{
		baseDir:   baseDir,
		maxSize:   int64(maxSizeMB) * 1024 * 1024,
		ttl:       ttl,
		metadata:  make(map[string]*EntryMetadata),
		evictChan: make(chan struct{}, 1),
		done:      make(chan struct{}),
		logger:    logger,
	}

	// If the index can't be loaded, rebuild what we can from disk
	if err := c.loadMetadata(); err != nil {
		if err := c.rebuildMetadata(); err != nil {
			return nil, fmt.Errorf("failed to initialize cache: %w", err)
		}
	}

	go c.maintenanceWorker()

	return c, nil
}

func hashURL(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

func (c *SwatchCache) filePath(hash string) string {
	return filepath.Join(c.baseDir, hash[:2], hash+".img")
}

// Get returns the cached body for url
func (c *SwatchCache) Get(url string) ([]byte, bool) {
	c.mu.RLock()
	meta, exists := c.metadata[url]
	c.mu.RUnlock()

	if !exists {
		return nil, false
	}

	if c.expired(meta, time.Now()) {
		c.evict(url)
		return nil, false
	}

	data, err := os.ReadFile(c.filePath(meta.Hash))
	if err != nil {
		// File missing - drop the entry
		c.evict(url)
		return nil, false
	}

	c.mu.Lock()
	meta.AccessTime = time.Now()
	c.mu.Unlock()

	return data, true
}

// Set stores data for url, replacing any previous entry
func (c *SwatchCache) Set(url string, data []byte) error {
	hash := hashURL(url)
	path := c.filePath(hash)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create cache subdirectory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	now := time.Now()
	meta := &EntryMetadata{
		URL:        url,
		Hash:       hash,
		Size:       int64(len(data)),
		AccessTime: now,
		CreateTime: now,
	}

	c.mu.Lock()
	if old, exists := c.metadata[url]; exists {
		atomic.AddInt64(&c.currSize, -old.Size)
	}
	c.metadata[url] = meta
	c.mu.Unlock()

	if atomic.AddInt64(&c.currSize, meta.Size) > c.maxSize {
		select {
		case c.evictChan <- struct{}{}:
		default: // Already signaled
		}
	}

	return c.saveMetadata()
}

// Delete removes the entry for url, if any
func (c *SwatchCache) Delete(url string) {
	c.evict(url)
}

func (c *SwatchCache) expired(meta *EntryMetadata, now time.Time) bool {
	return c.ttl > 0 && now.Sub(meta.CreateTime) > c.ttl
}

// evict removes one entry and its file
func (c *SwatchCache) evict(url string) {
	c.mu.Lock()
	meta, exists := c.metadata[url]
	if exists {
		c.removeLocked(url, meta)
	}
	c.mu.Unlock()

	if exists {
		c.saveMetadata()
	}
}

// removeLocked drops an entry. c.mu must be held for writing.
func (c *SwatchCache) removeLocked(url string, meta *EntryMetadata) {
	os.Remove(c.filePath(meta.Hash))
	delete(c.metadata, url)
	atomic.AddInt64(&c.currSize, -meta.Size)
}

// maintenanceWorker runs periodic cache maintenance until Close
func (c *SwatchCache) maintenanceWorker() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.evictChan:
			c.evictOldest()
		case <-ticker.C:
			c.evictExpired()
		case <-c.done:
			return
		}
	}
}

// evictOldest removes least recently used entries until the cache is at 80%
// of its maximum size
func (c *SwatchCache) evictOldest() {
	c.mu.Lock()

	currSize := atomic.LoadInt64(&c.currSize)
	if currSize <= c.maxSize {
		c.mu.Unlock()
		return
	}
	targetSize := c.maxSize * 8 / 10

	entries := make([]*EntryMetadata, 0, len(c.metadata))
	for _, meta := range c.metadata {
		entries = append(entries, meta)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].AccessTime.Before(entries[j].AccessTime)
	})

	evicted := 0
	for _, meta := range entries {
		if currSize <= targetSize {
			break
		}
		c.removeLocked(meta.URL, meta)
		currSize -= meta.Size
		evicted++
	}
	c.mu.Unlock()

	c.logger.Debug("evicted swatches", "count", evicted, "size", currSize)
	c.saveMetadata()
}

// evictExpired removes entries older than the TTL
func (c *SwatchCache) evictExpired() {
	if c.ttl <= 0 {
		return
	}

	now := time.Now()
	c.mu.Lock()
	evicted := 0
	for url, meta := range c.metadata {
		if c.expired(meta, now) {
			c.removeLocked(url, meta)
			evicted++
		}
	}
	c.mu.Unlock()

	if evicted > 0 {
		c.saveMetadata()
	}
}

// loadMetadata loads the metadata index from disk
func (c *SwatchCache) loadMetadata() error {
	data, err := os.ReadFile(filepath.Join(c.baseDir, indexFile))
	if err != nil {
		return fmt.Errorf("failed to read metadata: %w", err)
	}

	var metadata map[string]*EntryMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return fmt.Errorf("failed to parse metadata: %w", err)
	}
	if metadata == nil {
		metadata = make(map[string]*EntryMetadata)
	}

	// Drop entries that don't point at their own file; a short or foreign
	// hash would otherwise escape the cache layout
	var totalSize int64
	for url, meta := range metadata {
		if meta == nil || meta.Hash != hashURL(url) || meta.Size < 0 {
			c.logger.Warn("dropping invalid cache index entry", "url", url)
			delete(metadata, url)
			continue
		}
		meta.URL = url
		totalSize += meta.Size
	}

	c.mu.Lock()
	c.metadata = metadata
	c.mu.Unlock()
	atomic.StoreInt64(&c.currSize, totalSize)

	return nil
}

// saveMetadata writes the index through a temp file and rename
func (c *SwatchCache) saveMetadata() error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.mu.RLock()
	data, err := json.MarshalIndent(c.metadata, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	metaPath := filepath.Join(c.baseDir, indexFile)
	tempPath := metaPath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := os.Rename(tempPath, metaPath); err != nil {
		return fmt.Errorf("failed to rename metadata file: %w", err)
	}

	return nil
}

// rebuildMetadata recovers after a lost index. File names only carry the URL
// hash, so the URLs are unrecoverable and the orphaned files are removed.
func (c *SwatchCache) rebuildMetadata() error {
	removed := 0
	err := filepath.Walk(c.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".img") || strings.HasSuffix(path, indexFile+".tmp") {
			os.Remove(path)
			removed++
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan cache directory: %w", err)
	}

	c.mu.Lock()
	c.metadata = make(map[string]*EntryMetadata)
	c.mu.Unlock()
	atomic.StoreInt64(&c.currSize, 0)

	if removed > 0 {
		c.logger.Warn("cache index lost, removed orphaned swatches", "count", removed)
	}
	return c.saveMetadata()
}

// Stats returns cache statistics
func (c *SwatchCache) Stats() (entries int, sizeBytes int64, maxBytes int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.metadata), atomic.LoadInt64(&c.currSize), c.maxSize
}

// Clear removes all cached swatches
func (c *SwatchCache) Clear() error {
	c.mu.Lock()
	for url, meta := range c.metadata {
		c.removeLocked(url, meta)
	}
	atomic.StoreInt64(&c.currSize, 0)
	c.mu.Unlock()

	return c.saveMetadata()
}

// GetCachePath returns the base directory of the cache
func (c *SwatchCache) GetCachePath() string {
	return c.baseDir
}

// Close stops background maintenance and flushes the index
func (c *SwatchCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return c.saveMetadata()
}
