package counter

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// File stores the count as a decimal number in a single text file.
//
// A mutex serialises the read-increment-write sequence inside the process and
// each write replaces the file atomically via rename, so readers only ever see
// a complete value.
type File struct {
	path string
	mu   sync.Mutex
}

// NewFile returns a File store at path. The file is created lazily on the first increment.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the backing file location.
func (f *File) Path() string { return f.path }

// Get returns the current count without modifying it.
func (f *File) Get(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read()
}

// IncrementAndGet adds one to the stored count and returns the new value.
func (f *File) IncrementAndGet(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	n, err := f.read()
	if err != nil {
		return 0, err
	}
	n++
	if err := f.write(n); err != nil {
		return 0, err
	}
	return n, nil
}

// read must be called with mu held.
func (f *File) read() (int64, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: read %s: %w", ErrStorageUnavailable, f.path, err)
	}
	return parseCount(string(b)), nil
}

// write must be called with mu held.
func (f *File) write(n int64) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create dir %s: %w", ErrStorageUnavailable, dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", ErrStorageUnavailable, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.WriteString(strconv.FormatInt(n, 10)); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: write temp file: %w", ErrStorageUnavailable, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: sync temp file: %w", ErrStorageUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%w: close temp file: %w", ErrStorageUnavailable, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("%w: chmod temp file: %w", ErrStorageUnavailable, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		cleanup()
		return fmt.Errorf("%w: replace %s: %w", ErrStorageUnavailable, f.path, err)
	}
	return nil
}
