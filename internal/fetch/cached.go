package fetch

import (
	"context"
	"log/slog"
)

// Getter is anything that can GET a URL
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Store is a byte cache keyed by URL
type Store interface {
	Get(key string) ([]byte, bool)
	Set(key string, data []byte) error
	Delete(key string)
}

// Cached serves GETs from a Store when possible and fills it on success.
// Failed requests are never cached. Any 2xx body is stored as-is, so callers
// that reject a body (one that fails to decode, say) should Invalidate it.
type Cached struct {
	next   Getter
	store  Store
	logger *slog.Logger
}

// NewCached wraps next with store
func NewCached(next Getter, store Store, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{next: next, store: store, logger: logger}
}

// Get implements Getter
func (c *Cached) Get(ctx context.Context, url string) ([]byte, error) {
	if data, ok := c.store.Get(url); ok {
		return data, nil
	}

	data, err := c.next.Get(ctx, url)
	if err != nil {
		return nil, err
	}

	if err := c.store.Set(url, data); err != nil {
		c.logger.Warn("failed to cache response", "url", url, "err", err)
	}
	return data, nil
}

// Invalidate drops url from the store so the next Get goes to the network
func (c *Cached) Invalidate(url string) {
	c.store.Delete(url)
	c.logger.Debug("invalidated cached response", "url", url)
}
