package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shinji-kodama/rasterbatch/internal/model"
)

// Format identifies an export file format.
type Format string

const (
	// FormatAuto infers the format from the path extension.
	FormatAuto Format = ""

	// FormatCSV writes comma-separated rows without a header.
	FormatCSV Format = "csv"

	// FormatSQLite inserts rows into a SQLite database.
	FormatSQLite Format = "sqlite"
)

// String returns the string representation of Format.
func (f Format) String() string {
	if f == FormatAuto {
		return "auto"
	}
	return string(f)
}

// ParseFormat converts a user-supplied format name. "" and "auto" map to
// FormatAuto.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "csv":
		return FormatCSV, nil
	case "sqlite", "sqlite3", "db":
		return FormatSQLite, nil
	default:
		return "", fmt.Errorf("invalid export format: %q (valid: auto, csv, sqlite)", s)
	}
}

// sqliteExtensions are the path extensions FormatFor maps to FormatSQLite.
var sqliteExtensions = map[string]bool{
	".db":      true,
	".sqlite":  true,
	".sqlite3": true,
}

// FormatFor returns the format to use for path. An explicit format wins;
// otherwise .db, .sqlite and .sqlite3 select SQLite and anything else CSV.
func FormatFor(path string, explicit Format) Format {
	if explicit != FormatAuto {
		return explicit
	}
	if sqliteExtensions[strings.ToLower(filepath.Ext(path))] {
		return FormatSQLite
	}
	return FormatCSV
}

// Sink receives the export rows of one run.
//
// Write is called once per attribute table row, in processing order.
// Close must be called exactly once when the run ends; calling it again
// returns nil without doing anything.
type Sink interface {
	// Write appends a single row.
	Write(row model.ClassStatRow) error

	// Path returns the absolute destination path.
	Path() string

	// Format returns the format the sink writes.
	Format() Format

	// Close flushes pending data and releases the destination.
	Close() error
}

// Spec describes the export destination of a run.
type Spec struct {
	// Path is the export file. Relative paths are resolved against the
	// current working directory.
	Path string

	// Format selects the file format; FormatAuto infers it from Path.
	Format Format

	// Overwrite replaces an existing CSV file or SQLite database. When
	// false, an existing CSV file is an error and an existing SQLite
	// database is appended to.
	Overwrite bool

	// RunID tags SQLite rows. Ignored by the CSV sink.
	RunID string
}

// Open creates the sink described by spec. The parent directory of the
// destination is created if needed.
func Open(spec Spec) (Sink, error) {
	if strings.TrimSpace(spec.Path) == "" {
		return nil, model.NewCLIError(model.ExitExportIOError, "export path is empty")
	}

	path, err := filepath.Abs(spec.Path)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitExportIOError,
			fmt.Sprintf("failed to resolve export path %q", spec.Path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, model.WrapCLIError(model.ExitExportIOError,
			fmt.Sprintf("failed to create export directory for %s", path), err)
	}

	switch FormatFor(path, spec.Format) {
	case FormatSQLite:
		return openSQLite(path, spec.Overwrite, spec.RunID)
	default:
		return openCSV(path, spec.Overwrite)
	}
}

// WriteAll writes rows to sink in order, stopping at the first failure.
func WriteAll(sink Sink, rows []model.ClassStatRow) error {
	for _, row := range rows {
		if err := sink.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// exists reports whether something is present at path.
func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
