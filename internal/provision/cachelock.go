package provision

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/crateforge/crate/internal/lockfile"
)

// How long a build waits for the shared cache lock before degrading.
const cacheLockWait = 5 * time.Second

// The host-shared build cache, held under an exclusive lock.
//
// When the lock cannot be acquired promptly the cache degrades to a
// private fallback directory: correct, just cold.
type Cache struct {
	dir      string
	degraded bool
	lock     *lockfile.Lock
}

// Acquires the shared cache at dir, falling back to the private fallback
// directory when the lock is contended.
//
// Degradation is a warning, not an error: blocking indefinitely on
// another build or corrupting shared state are both worse than a cold
// cache.
func AcquireCache(ctx context.Context, dir, fallback string) *Cache {
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Warn("cannot create shared cache, using private cache", "dir", dir, "error", err)
		return &Cache{dir: fallback, degraded: true}
	}

	lock := lockfile.New(filepath.Join(dir, ".lock"))
	if err := lock.AcquireWithin(ctx, cacheLockWait); err != nil {
		if errors.Is(err, lockfile.ErrLockHeld) {
			slog.Warn("shared cache is locked by another build, using private cache", "dir", dir)
		} else {
			slog.Warn("shared cache unavailable, using private cache", "dir", dir, "error", err)
		}
		return &Cache{dir: fallback, degraded: true}
	}

	return &Cache{dir: dir, lock: lock}
}

// Returns the directory builds should cache into.
func (c *Cache) Dir() string {
	return c.dir
}

// Reports whether the shared cache was unavailable.
func (c *Cache) Degraded() bool {
	return c.degraded
}

// Releases the cache lock. Safe to call on a degraded cache and safe to
// call twice.
func (c *Cache) Release() {
	if c.lock != nil {
		c.lock.Release()
		c.lock = nil
	}
}
