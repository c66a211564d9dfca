package utils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

const (
	lockFileSuffix = ".lock"
	lockRetryDelay = 250 * time.Millisecond
)

// StoreLock serializes fmsave processes writing to the same canonical store.
// The lock file sits next to the store and names the current holder.
type StoreLock struct {
	lock *flock.Flock
	path string
}

// NewStoreLock creates a lock for the store at storePath, creating the
// store directory when needed.
func NewStoreLock(storePath string) (*StoreLock, error) {
	absPath, err := GetAbsStorePath(storePath)
	if err != nil {
		return nil, fmt.Errorf("could not get absolute store path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	lockPath := absPath + lockFileSuffix
	return &StoreLock{
		lock: flock.New(lockPath),
		path: lockPath,
	}, nil
}

// Lock acquires the store lock. When another process holds it, Lock waits
// until it is released or ctx is done.
func (l *StoreLock) Lock(ctx context.Context) error {
	locked, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", l.path, err)
	}

	if !locked {
		holder := l.Holder()
		if holder == "" {
			holder = "another fmsave process"
		}
		Log.Warnf("Store %s is locked by %s, waiting for it to finish...", strings.TrimSuffix(l.path, lockFileSuffix), holder)
		locked, err = l.lock.TryLockContext(ctx, lockRetryDelay)
		if err != nil {
			return fmt.Errorf("failed to acquire lock on %s after waiting: %w", l.path, err)
		}
		if !locked {
			return fmt.Errorf("failed to acquire lock on %s", l.path)
		}
	}

	info := fmt.Sprintf("pid %d since %s", os.Getpid(), time.Now().Format(time.RFC3339))
	if err := os.WriteFile(l.path, []byte(info), 0o644); err != nil {
		Log.Debugf("Could not record lock holder in %s: %v", l.path, err)
	}
	return nil
}

// Holder returns the holder recorded in the lock file, blank when the lock
// is free or the file is missing.
func (l *StoreLock) Holder() string {
	b, err := os.ReadFile(l.path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

// Unlock clears the holder record and releases the store lock. The file
// itself is kept: removing it could let a waiter and a new process lock
// different inodes.
func (l *StoreLock) Unlock() error {
	if !l.lock.Locked() {
		return nil
	}
	if err := os.Truncate(l.path, 0); err != nil && !os.IsNotExist(err) {
		Log.Debugf("Could not clear lock holder in %s: %v", l.path, err)
	}
	if err := l.lock.Unlock(); err != nil {
		// Not holding the lock.
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to release lock on %s: %w", l.path, err)
	}
	return nil
}

// GetAbsStorePath resolves the canonical store path, defaulting to
// ~/.config/fmsave/flights.sqlite.
func GetAbsStorePath(storePath string) (string, error) {
	if storePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "fmsave", "flights.sqlite"), nil
	}
	return filepath.Abs(storePath)
}
