package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/shinji-kodama/rasterbatch/internal/model"
)

// sampleRows are the rows produced for raster1.tif with stats
// {(0,120),(1,80)}.
func sampleRows() []model.ClassStatRow {
	return model.RowsFor("raster1.tif", []model.ClassStat{
		{Value: 0, Count: 120},
		{Value: 1, Count: 80},
	})
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// TestFormatFor verifies format inference from the path extension.
func TestFormatFor(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		explicit Format
		want     Format
	}{
		{name: "csv extension", path: "out/stats.csv", want: FormatCSV},
		{name: "txt falls back to csv", path: "stats.txt", want: FormatCSV},
		{name: "no extension", path: "stats", want: FormatCSV},
		{name: "db", path: "stats.db", want: FormatSQLite},
		{name: "sqlite upper case", path: "STATS.SQLITE", want: FormatSQLite},
		{name: "sqlite3", path: "stats.sqlite3", want: FormatSQLite},
		{name: "explicit wins", path: "stats.db", explicit: FormatCSV, want: FormatCSV},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatFor(tt.path, tt.explicit))
		})
	}
}

// TestParseFormat verifies accepted and rejected format names.
func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{
		"":       FormatAuto,
		"auto":   FormatAuto,
		"CSV":    FormatCSV,
		"sqlite": FormatSQLite,
		"db":     FormatSQLite,
	} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFormat("xlsx")
	assert.Error(t, err)
}

// TestCSVSink_RoundTrip verifies the exact bytes written for one raster.
func TestCSVSink_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.csv")

	sink, err := Open(Spec{Path: path, Overwrite: true})
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, sink.Format())

	require.NoError(t, WriteAll(sink, sampleRows()))
	require.NoError(t, sink.Close())

	assert.Equal(t, "raster1.tif,0,120\nraster1.tif,1,80\n", readFile(t, path))
}

// TestCSVSink_FlushesPerRow verifies rows are on disk before Close.
func TestCSVSink_FlushesPerRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.csv")

	sink, err := Open(Spec{Path: path, Overwrite: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })

	require.NoError(t, sink.Write(sampleRows()[0]))
	assert.Equal(t, "raster1.tif,0,120\n", readFile(t, path))
}

// TestCSVSink_Truncates verifies that reopening resets the file, so two
// identical runs leave identical content.
func TestCSVSink_Truncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.csv")
	require.NoError(t, os.WriteFile(path, []byte("stale,9,9\nstale,8,8\nstale,7,7\n"), 0o644))

	for i := 0; i < 2; i++ {
		sink, err := Open(Spec{Path: path, Overwrite: true})
		require.NoError(t, err)
		require.NoError(t, WriteAll(sink, sampleRows()))
		require.NoError(t, sink.Close())
		assert.Equal(t, "raster1.tif,0,120\nraster1.tif,1,80\n", readFile(t, path))
	}
}

// TestCSVSink_NoOverwrite verifies an existing file is kept when
// overwrite is disabled.
func TestCSVSink_NoOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.csv")
	require.NoError(t, os.WriteFile(path, []byte("keep\n"), 0o644))

	_, err := Open(Spec{Path: path, Overwrite: false})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrExportIO))
	assert.Equal(t, "keep\n", readFile(t, path))
}

// TestCSVSink_QuotesNames verifies names containing commas stay one field.
func TestCSVSink_QuotesNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.csv")
	sink, err := Open(Spec{Path: path, Overwrite: true})
	require.NoError(t, err)

	require.NoError(t, sink.Write(model.ClassStatRow{RasterName: "a,b.tif", ClassValue: 1, PixelCount: 2}))
	require.NoError(t, sink.Close())
	assert.Equal(t, "\"a,b.tif\",1,2\n", readFile(t, path))
}

// TestCSVSink_CloseTwice verifies Close is idempotent and Write after
// Close fails with an export error.
func TestCSVSink_CloseTwice(t *testing.T) {
	sink, err := Open(Spec{Path: filepath.Join(t.TempDir(), "s.csv"), Overwrite: true})
	require.NoError(t, err)

	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())

	err = sink.Write(sampleRows()[0])
	require.Error(t, err)
	assert.Equal(t, model.ExitExportIOError, model.ExitCodeOf(err))
}

// TestOpen_Errors verifies open failures are export errors.
func TestOpen_Errors(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	tests := []struct {
		name string
		spec Spec
	}{
		{name: "empty path", spec: Spec{Path: "  "}},
		{name: "parent is a file", spec: Spec{Path: filepath.Join(blocker, "stats.csv"), Overwrite: true}},
		{name: "path is a directory", spec: Spec{Path: dir, Overwrite: true, Format: FormatCSV}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(tt.spec)
			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrExportIO))
		})
	}
}

// TestOpen_CreatesParent verifies missing parent directories are created.
func TestOpen_CreatesParent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out", "stats.csv")
	sink, err := Open(Spec{Path: path, Overwrite: true})
	require.NoError(t, err)
	require.NoError(t, sink.Close())
	assert.FileExists(t, path)
}

// TestSQLiteSink_RoundTrip verifies rows are stored with the run id.
func TestSQLiteSink_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.db")

	sink, err := Open(Spec{Path: path, Overwrite: true, RunID: "run-1"})
	require.NoError(t, err)
	assert.Equal(t, FormatSQLite, sink.Format())

	require.NoError(t, WriteAll(sink, sampleRows()))
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())

	rows, err := readRows(path, "run-1")
	require.NoError(t, err)
	assert.Equal(t, sampleRows(), rows)
}

// TestSQLiteSink_Overwrite verifies overwrite resets the database while
// append mode keeps earlier runs apart by run id.
func TestSQLiteSink_Overwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.sqlite")

	write := func(runID string, overwrite bool) {
		sink, err := Open(Spec{Path: path, Overwrite: overwrite, RunID: runID})
		require.NoError(t, err)
		require.NoError(t, WriteAll(sink, sampleRows()))
		require.NoError(t, sink.Close())
	}

	write("a", true)
	write("b", false)
	all, err := readRows(path, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	onlyB, err := readRows(path, "b")
	require.NoError(t, err)
	assert.Equal(t, sampleRows(), onlyB)

	write("c", true)
	all, err = readRows(path, "")
	require.NoError(t, err)
	assert.Equal(t, sampleRows(), all)
}

// TestSQLiteSink_GeneratedRunID verifies a run id is generated when none
// is supplied.
func TestSQLiteSink_GeneratedRunID(t *testing.T) {
	sink, err := Open(Spec{Path: filepath.Join(t.TempDir(), "s.db"), Overwrite: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })

	sq, ok := sink.(*SQLiteSink)
	require.True(t, ok)
	assert.Len(t, sq.runID, 36)
}

// readRows returns the rows stored in the database at path, optionally
// restricted to one run, in insertion order.
func readRows(path, runID string) ([]model.ClassStatRow, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, model.WrapCLIError(model.ExitExportIOError,
			fmt.Sprintf("failed to open export database %s", path), err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	query := db.Order("id")
	if runID != "" {
		query = query.Where("run_id = ?", runID)
	}
	var recs []ClassStatRecord
	if err := query.Find(&recs).Error; err != nil {
		return nil, model.WrapCLIError(model.ExitExportIOError,
			fmt.Sprintf("failed to read class_stats from %s", path), err)
	}

	rows := make([]model.ClassStatRow, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, model.ClassStatRow{
			RasterName: r.RasterName,
			ClassValue: r.ClassValue,
			PixelCount: r.PixelCount,
		})
	}
	return rows, nil
}
