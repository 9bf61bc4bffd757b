package provision

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/crateforge/crate/internal/lockfile"
)

func TestAcquireCacheUncontended(t *testing.T) {
	shared := filepath.Join(t.TempDir(), "cache")
	fallback := filepath.Join(t.TempDir(), "private")

	cache := AcquireCache(context.Background(), shared, fallback)
	defer cache.Release()

	if cache.Degraded() {
		t.Fatal("uncontended cache reported degraded")
	}
	if cache.Dir() != shared {
		t.Fatalf("cache dir = %q, want %q", cache.Dir(), shared)
	}
}

func TestAcquireCacheDegradesWhenHeld(t *testing.T) {
	shared := filepath.Join(t.TempDir(), "cache")
	fallback := filepath.Join(t.TempDir(), "private")

	first := AcquireCache(context.Background(), shared, fallback)
	defer first.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	second := AcquireCache(ctx, shared, fallback)
	defer second.Release()

	if !second.Degraded() {
		t.Fatal("contended cache did not degrade")
	}
	if second.Dir() != fallback {
		t.Fatalf("degraded cache dir = %q, want %q", second.Dir(), fallback)
	}
}

func TestCacheReleaseFreesLock(t *testing.T) {
	shared := filepath.Join(t.TempDir(), "cache")
	fallback := filepath.Join(t.TempDir(), "private")

	cache := AcquireCache(context.Background(), shared, fallback)
	cache.Release()

	lock := lockfile.New(filepath.Join(shared, ".lock"))
	if err := lock.Acquire(); err != nil {
		t.Fatalf("lock still held after release: %v", err)
	}
	lock.Release()
}

func TestCacheReleaseTwice(t *testing.T) {
	shared := filepath.Join(t.TempDir(), "cache")

	cache := AcquireCache(context.Background(), shared, filepath.Join(t.TempDir(), "private"))
	cache.Release()
	cache.Release()
}
