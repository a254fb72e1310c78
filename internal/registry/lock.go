package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// lockRetryDelay is how often a blocked Lock re-attempts the file lock.
const lockRetryDelay = 50 * time.Millisecond

// FileLock provides cross-process file locking using gofrs/flock.
// It serializes the registry read-normalize-write cycle so two amantmpl
// processes cannot lose each other's updates.
type FileLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewFileLock creates a lock for the file at path. The lock file itself is
// <path>.lock.
func NewFileLock(path string) *FileLock {
	lockPath := path + ".lock"
	return &FileLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// Lock acquires an exclusive lock, waiting until ctx is done.
// If the lock file doesn't exist, it will be created.
func (l *FileLock) Lock(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to acquire lock %s: %w", l.path, err)
	}
	if !acquired {
		return fmt.Errorf("failed to acquire lock %s", l.path)
	}

	l.locked = true
	return nil
}

// Unlock releases the file lock.
// It's safe to call Unlock multiple times or on an unlocked FileLock.
func (l *FileLock) Unlock() error {
	if !l.locked {
		return nil
	}

	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the path to the lock file.
func (l *FileLock) Path() string {
	return l.path
}
