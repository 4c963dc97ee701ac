// Package apiconfig holds runtime settings stored in the database and
// cached in process. One owner refreshes the snapshot on a timer; readers
// never block on a refresh and tolerate a stale snapshot.
package apiconfig

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Settings is the snapshot of store-backed runtime configuration.
type Settings struct {
	APIBaseURL                 string
	APIPort                    int
	SessionTimeout             time.Duration
	AllowSettledReceivableEdit bool
	AllowSettledPayableEdit    bool
	AllowFinalizedOrderEdit    bool
}

// Defaults are used for keys absent from the store.
func Defaults() Settings {
	return Settings{
		APIBaseURL:     "http://localhost",
		APIPort:        8080,
		SessionTimeout: 30 * time.Minute,
	}
}

// Loader fetches the current settings from the store.
type Loader interface {
	Load(ctx context.Context) (Settings, error)
}

// Cache is the owned runtime configuration object. Run refreshes it on a
// timer; Snapshot serves the last good value.
type Cache struct {
	logger   *slog.Logger
	loader   Loader
	interval time.Duration

	mu       sync.RWMutex
	snapshot Settings
}

// NewCache builds Cache instance seeded with defaults.
func NewCache(logger *slog.Logger, loader Loader, interval time.Duration) *Cache {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Cache{
		logger:   logger,
		loader:   loader,
		interval: interval,
		snapshot: Defaults(),
	}
}

// Refresh loads settings once and swaps the snapshot. A load failure keeps
// the previous snapshot.
func (c *Cache) Refresh(ctx context.Context) error {
	settings, err := c.loader.Load(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.snapshot = settings
	c.mu.Unlock()
	return nil
}

// Run refreshes immediately and then on every tick until ctx is done. It
// is the single owner of the snapshot; callers start it once.
func (c *Cache) Run(ctx context.Context) {
	if err := c.Refresh(ctx); err != nil {
		c.logger.Warn("runtime config initial load failed, serving defaults", slog.Any("error", err))
	}
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				c.logger.Warn("runtime config refresh failed, keeping stale snapshot", slog.Any("error", err))
			}
		}
	}
}

// Snapshot returns the last good settings value.
func (c *Cache) Snapshot() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// SessionTimeout is a convenience accessor for the sweep job.
func (c *Cache) SessionTimeout() time.Duration {
	return c.Snapshot().SessionTimeout
}

// ReceivablePolicy adapts the cache to the receivable guard override.
type ReceivablePolicy struct{ Cache *Cache }

func (p ReceivablePolicy) AllowSettledEdit() bool {
	return p.Cache.Snapshot().AllowSettledReceivableEdit
}

// PayablePolicy adapts the cache to the payable guard override.
type PayablePolicy struct{ Cache *Cache }

func (p PayablePolicy) AllowSettledEdit() bool {
	return p.Cache.Snapshot().AllowSettledPayableEdit
}

// SalesPolicy adapts the cache to the finalized-order guard override.
type SalesPolicy struct{ Cache *Cache }

func (p SalesPolicy) AllowFinalizedEdit() bool {
	return p.Cache.Snapshot().AllowFinalizedOrderEdit
}
