package scratch

import (
	"fmt"
	"path/filepath"
)

const (
	// DefaultPrefix is the base name of intermediate classified rasters.
	DefaultPrefix = "reclass"

	// DefaultExt is the extension of intermediate classified rasters.
	DefaultExt = ".tif"

	// maxProbe bounds how many taken names Allocate skips before giving
	// up. It only matters when a scratch directory is full of leftovers.
	maxProbe = 100000
)

// ID identifies one intermediate classified raster.
type ID struct {
	// Seq is the counter value the name was built from (1-based).
	Seq int

	// Name is the identifier without extension, e.g. "reclass3".
	Name string

	// Path is the absolute file path inside the scratch directory.
	Path string
}

// Allocator hands out collision-free scratch identifiers for one run.
//
// The counter starts at 1, only ever increases, and is never reset, so
// successive classify calls within a run cannot target the same output.
type Allocator struct {
	dir     string
	prefix  string
	ext     string
	next    int
	issued  map[string]bool
	scanner *Scanner
}

// NewAllocator creates an Allocator for names inside dir. Empty prefix or
// ext fall back to DefaultPrefix and DefaultExt.
func NewAllocator(dir, prefix, ext string, scanner *Scanner) *Allocator {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if ext == "" {
		ext = DefaultExt
	}
	if scanner == nil {
		scanner = NewScanner()
	}
	return &Allocator{
		dir:     dir,
		prefix:  prefix,
		ext:     ext,
		next:    1,
		issued:  make(map[string]bool),
		scanner: scanner,
	}
}

// Allocate returns the next free identifier. Names already issued by
// this Allocator or already present on disk are skipped; the counter
// still advances past them.
func (a *Allocator) Allocate() (ID, error) {
	for i := 0; i < maxProbe; i++ {
		seq := a.next
		a.next++

		name := fmt.Sprintf("%s%d", a.prefix, seq)
		path := filepath.Join(a.dir, name+a.ext)
		if a.issued[name] || !a.scanner.IsAvailable(path) {
			continue
		}

		a.issued[name] = true
		return ID{Seq: seq, Name: name, Path: path}, nil
	}
	return ID{}, fmt.Errorf("no free scratch name in %s after %d attempts", a.dir, maxProbe)
}

// Issued returns how many identifiers have been handed out.
func (a *Allocator) Issued() int {
	return len(a.issued)
}
