package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"nyurban_tracker/internal/model"
)

const lockRetryDelay = 50 * time.Millisecond

// File implements Store as a JSON document on local disk.
type File struct {
	path string
	lock *flock.Flock
	now  func() time.Time
}

// NewFile returns a store backed by the JSON file at path. The file is
// created on first Save.
func NewFile(path string) *File {
	return &File{
		path: path,
		lock: flock.New(path + ".lock"),
		now:  time.Now,
	}
}

// Path returns the location of the state file.
func (f *File) Path() string {
	return f.path
}

// Load reads the state file. A missing file is an empty state.
func (f *File) Load(_ context.Context) (model.State, error) {
	doc, err := f.read()
	if err != nil {
		return model.State{}, err
	}
	return doc.state(), nil
}

// LastCheckTime returns the stamped last check time, or 0.
func (f *File) LastCheckTime(_ context.Context) (float64, error) {
	doc, err := f.read()
	if err != nil {
		return 0, err
	}
	return doc.lastCheck(), nil
}

// Save replaces the snapshot in the state file. The read-merge-write runs
// under an advisory lock and the file is swapped in with a rename, so a
// crash leaves the previous state intact.
func (f *File) Save(ctx context.Context, slots model.Snapshot) error {
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create state directory: %w", err)
		}
	}

	locked, err := f.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock state file: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock state file: not acquired")
	}
	defer func() { _ = f.lock.Unlock() }()

	previous, err := os.ReadFile(f.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read state file: %w", err)
	}

	data, err := replace(previous, slots, nowEpoch(f.now))
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tmpPath := f.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Close is a no-op; the file is not held open between calls.
func (f *File) Close() error {
	return nil
}

func (f *File) read() (document, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return document{}, nil
	}
	if err != nil {
		return document{}, fmt.Errorf("read state file: %w", err)
	}
	doc, err := decodeDocument(data)
	if err != nil {
		return document{}, fmt.Errorf("parse state file: %w", err)
	}
	return doc, nil
}
