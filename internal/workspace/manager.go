package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shinji-kodama/rasterbatch/internal/model"
)

// DefaultExtensions are the raster file extensions recognised when the
// caller does not provide its own list.
var DefaultExtensions = []string{".tif", ".tiff"}

// Manager resolves workspaces and lists the rasters they contain.
//
// The only state it holds is the set of recognised extensions, which
// depends on what the selected raster engine can read.
type Manager struct {
	extensions map[string]bool
}

// NewManager creates a Manager recognising the given extensions
// (case-insensitive, with or without the leading dot). With no
// extensions, DefaultExtensions is used.
func NewManager(extensions ...string) *Manager {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	m := &Manager{extensions: make(map[string]bool, len(extensions))}
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		m.extensions[ext] = true
	}
	return m
}

// Resolve returns the absolute, cleaned path of the workspace after
// checking that it exists and is a directory.
func (m *Manager) Resolve(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", model.NewCLIError(model.ExitWorkspaceError, "workspace path is empty")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", model.WrapCLIError(model.ExitWorkspaceError,
			fmt.Sprintf("failed to resolve workspace %q", path), err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", model.WrapCLIError(model.ExitWorkspaceError,
				fmt.Sprintf("workspace %s does not exist", abs), err)
		}
		return "", model.WrapCLIError(model.ExitWorkspaceError,
			fmt.Sprintf("workspace %s is not accessible", abs), err)
	}
	if !info.IsDir() {
		return "", model.NewCLIError(model.ExitWorkspaceError,
			fmt.Sprintf("workspace %s is not a directory", abs))
	}
	return abs, nil
}

// ListRasters returns the names of the raster files directly under dir,
// sorted by name. Hidden files, directories and files with unrecognised
// extensions are skipped. Symbolic links are followed when they point at
// regular files.
//
// An empty workspace is not an error: the returned slice is empty.
func (m *Manager) ListRasters(dir string) ([]string, error) {
	// os.ReadDir returns entries sorted by file name, but we sort again
	// after filtering so the contract does not depend on that detail.
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitWorkspaceError,
			fmt.Sprintf("failed to list workspace %s", dir), err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || !m.IsRaster(name) {
			continue
		}
		if !isRegularFile(dir, entry) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// IsRaster reports whether name has a recognised raster extension.
func (m *Manager) IsRaster(name string) bool {
	return m.extensions[strings.ToLower(filepath.Ext(name))]
}

// Extensions returns the recognised extensions in sorted order.
func (m *Manager) Extensions() []string {
	exts := make([]string, 0, len(m.extensions))
	for ext := range m.extensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// EnsureDir creates dir (and any missing parents) when it does not exist
// and returns its absolute path. An existing non-directory is an error.
func (m *Manager) EnsureDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", model.WrapCLIError(model.ExitWorkspaceError,
			fmt.Sprintf("failed to resolve directory %q", dir), err)
	}

	// 0755 matches what `mkdir -p` produces for regular users.
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", model.WrapCLIError(model.ExitWorkspaceError,
			fmt.Sprintf("failed to create directory %s", abs), err)
	}
	return abs, nil
}

// ResolveIn returns p unchanged when it is absolute, or joined to
// workspace otherwise. An empty p stays empty.
func ResolveIn(workspace, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(workspace, p)
}

// isRegularFile reports whether entry is a regular file, resolving
// symbolic links relative to dir.
func isRegularFile(dir string, entry os.DirEntry) bool {
	if entry.Type().IsRegular() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, entry.Name()))
	return err == nil && info.Mode().IsRegular()
}
