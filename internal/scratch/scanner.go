package scratch

import (
	"os"
)

// Scanner checks whether scratch paths are free on the filesystem.
//
// The struct is stateless; it exists so the Allocator can take it as a
// dependency and tests can reason about availability explicitly.
type Scanner struct{}

// NewScanner creates a new Scanner instance.
func NewScanner() *Scanner {
	return &Scanner{}
}

// IsAvailable reports whether nothing exists at path. os.Lstat is used so
// that a dangling symlink also counts as taken.
func (s *Scanner) IsAvailable(path string) bool {
	_, err := os.Lstat(path)
	return os.IsNotExist(err)
}
