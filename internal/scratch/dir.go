package scratch

import (
	"fmt"
	"os"
	"path/filepath"
)

// Dir is a scratch directory owned by a single run.
//
// Usage:
//
//	d, err := scratch.Acquire(cfg.ScratchDir, runID, cfg.KeepScratch)
//	if err != nil { /* handle */ }
//	defer d.Release()
type Dir struct {
	path     string
	keep     bool
	released bool
}

// Acquire creates a fresh directory named "rasterbatch-<runID>-*" inside
// base, or inside the system temporary directory when base is empty.
// base is created if needed. With keep set, Release leaves the directory
// and its contents in place.
func Acquire(base, runID string, keep bool) (*Dir, error) {
	if base != "" {
		if err := os.MkdirAll(base, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create scratch base %s: %w", base, err)
		}
	}

	pattern := "rasterbatch-*"
	if runID != "" {
		pattern = "rasterbatch-" + runID + "-*"
	}
	path, err := os.MkdirTemp(base, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		_ = os.RemoveAll(path)
		return nil, fmt.Errorf("failed to resolve scratch directory: %w", err)
	}
	return &Dir{path: abs, keep: keep}, nil
}

// Path returns the absolute path of the scratch directory.
func (d *Dir) Path() string {
	return d.path
}

// Kept reports whether Release will leave the directory in place.
func (d *Dir) Kept() bool {
	return d.keep
}

// NewAllocator returns an Allocator issuing names inside this directory.
func (d *Dir) NewAllocator() *Allocator {
	return NewAllocator(d.path, DefaultPrefix, DefaultExt, NewScanner())
}

// Release removes the directory and everything in it unless the Dir was
// acquired with keep. Calling Release more than once is safe.
func (d *Dir) Release() error {
	if d == nil || d.released {
		return nil
	}
	d.released = true
	if d.keep {
		return nil
	}
	if err := os.RemoveAll(d.path); err != nil {
		return fmt.Errorf("failed to remove scratch directory %s: %w", d.path, err)
	}
	return nil
}
