// Package filelock serializes artifact writes between processes that share
// an output directory. Each directory is guarded by a single advisory lock
// file, and every file is replaced atomically so readers never observe a
// half-written document.
package filelock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// LockName is the lock file created inside a guarded directory.
const LockName = ".qadocs.lock"

// RetryDelay is how often a blocked Lock polls for the lock.
const RetryDelay = 50 * time.Millisecond

// DirLock is an exclusive advisory lock on an output directory.
type DirLock struct {
	flock *flock.Flock
	dir   string
}

// ForDir returns the lock guarding dir. The lock file is created on first
// acquisition.
func ForDir(dir string) *DirLock {
	return &DirLock{
		flock: flock.New(filepath.Join(dir, LockName)),
		dir:   dir,
	}
}

// Path returns the lock file path.
func (l *DirLock) Path() string {
	return l.flock.Path()
}

// Lock blocks until the lock is held or ctx is done. The directory is
// created if needed.
func (l *DirLock) Lock(ctx context.Context) error {
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", l.dir, err)
	}
	locked, err := l.flock.TryLockContext(ctx, RetryDelay)
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", l.dir, err)
	}
	if !locked {
		return fmt.Errorf("failed to acquire lock on %s: %w", l.dir, ctx.Err())
	}
	return nil
}

// TryLock acquires the lock without blocking and reports whether it did.
func (l *DirLock) TryLock() (bool, error) {
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return false, fmt.Errorf("failed to create directory %s: %w", l.dir, err)
	}
	ok, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to try lock on %s: %w", l.dir, err)
	}
	return ok, nil
}

// Unlock releases the lock.
func (l *DirLock) Unlock() error {
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock on %s: %w", l.dir, err)
	}
	return nil
}

// AtomicWrite replaces path with data using a temp file in the same
// directory followed by a rename. On failure the previous content, if any,
// is left untouched and the temp file is removed.
func AtomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", path, err)
	}
	committed = true
	return nil
}

// File is one target of a locked write.
type File struct {
	Path string
	Data []byte
}

// FileError reports which file of a batch failed.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// LockAndWrite holds the lock of each file's directory while writing the
// files atomically in order. Files written before a failure stay in place;
// the failing file is reported as a *FileError.
func LockAndWrite(ctx context.Context, files ...File) error {
	held := map[string]*DirLock{}
	defer func() {
		for _, l := range held {
			_ = l.Unlock()
		}
	}()

	for _, f := range files {
		dir := filepath.Dir(f.Path)
		if _, ok := held[dir]; !ok {
			l := ForDir(dir)
			if err := l.Lock(ctx); err != nil {
				return &FileError{Path: f.Path, Err: err}
			}
			held[dir] = l
		}
		if err := AtomicWrite(f.Path, f.Data); err != nil {
			return &FileError{Path: f.Path, Err: err}
		}
	}
	return nil
}
