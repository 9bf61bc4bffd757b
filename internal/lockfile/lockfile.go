// Package lockfile provides flock-based advisory file locks.
//
// Locks guard directories shared between concurrent builds on the same
// host (the build cache and persisted lifecycle state). Acquisition is
// non-blocking at the syscall level; callers that can tolerate waiting
// poll with a bounded deadline via [Lock.AcquireWithin].
package lockfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"
)

// Returned when another process holds the lock.
var ErrLockHeld = errors.New("lock held by another process")

// Interval between acquisition attempts in [Lock.AcquireWithin].
const retryInterval = 100 * time.Millisecond

// An exclusive advisory lock backed by a lock file.
type Lock struct {
	path string
	file *os.File
}

// Creates a lock for the given path. The file is not opened until
// acquisition.
func New(path string) *Lock {
	return &Lock{path: path}
}

// Acquires the lock without blocking.
//
// Returns [ErrLockHeld] when another process holds it.
func (l *Lock) Acquire() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		if err == syscall.EWOULDBLOCK {
			return ErrLockHeld
		}
		return fmt.Errorf("acquire lock: %w", err)
	}

	l.file = f
	return nil
}

// Attempts acquisition repeatedly until the deadline elapses or the
// context is cancelled.
//
// Returns [ErrLockHeld] when the lock could not be acquired in time, so
// callers can degrade rather than block indefinitely.
func (l *Lock) AcquireWithin(ctx context.Context, wait time.Duration) error {
	deadline := time.Now().Add(wait)

	for {
		err := l.Acquire()
		if !errors.Is(err, ErrLockHeld) {
			return err
		}
		if time.Now().After(deadline) {
			return ErrLockHeld
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
}

// Releases the lock. Safe to call when the lock was never acquired.
func (l *Lock) Release() error {
	if l.file == nil {
		return nil
	}

	syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	err := l.file.Close()
	l.file = nil
	return err
}

// Reports whether this process currently holds the lock.
func (l *Lock) Held() bool {
	return l.file != nil
}
