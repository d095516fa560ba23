package export

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/shinji-kodama/rasterbatch/internal/model"
)

// ClassStatRecord is the class_stats table row.
type ClassStatRecord struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	RunID      string    `gorm:"column:run_id;not null;index"`
	RasterName string    `gorm:"column:raster_name;not null;index"`
	ClassValue int64     `gorm:"column:class_value;not null"`
	PixelCount int64     `gorm:"column:pixel_count;not null"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

// TableName pins the table name so it does not depend on gorm's
// pluralisation rules.
func (ClassStatRecord) TableName() string {
	return "class_stats"
}

// SQLiteSink inserts rows into the class_stats table of a SQLite database.
type SQLiteSink struct {
	path   string
	runID  string
	db     *gorm.DB
	closed bool
}

// openSQLite opens (or creates) the database at path and migrates the
// class_stats table. With overwrite set, an existing file is removed
// first so the table only holds this run's rows.
func openSQLite(path string, overwrite bool, runID string) (*SQLiteSink, error) {
	if overwrite && exists(path) {
		if err := os.Remove(path); err != nil {
			return nil, model.WrapCLIError(model.ExitExportIOError,
				fmt.Sprintf("failed to remove previous export database %s", path), err)
		}
	}
	if runID == "" {
		runID = uuid.NewString()
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, model.WrapCLIError(model.ExitExportIOError,
			fmt.Sprintf("failed to open export database %s", path), err)
	}

	sink := &SQLiteSink{path: path, runID: runID, db: db}
	if err := db.AutoMigrate(&ClassStatRecord{}); err != nil {
		_ = sink.Close()
		return nil, model.WrapCLIError(model.ExitExportIOError,
			fmt.Sprintf("failed to create class_stats table in %s", path), err)
	}
	return sink, nil
}

// Write inserts a single row. Each insert is its own statement, so rows
// written before a failure remain in the database.
func (s *SQLiteSink) Write(row model.ClassStatRow) error {
	if s.closed {
		return model.NewCLIError(model.ExitExportIOError,
			fmt.Sprintf("export database %s is already closed", s.path))
	}
	rec := ClassStatRecord{
		RunID:      s.runID,
		RasterName: row.RasterName,
		ClassValue: row.ClassValue,
		PixelCount: row.PixelCount,
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return model.WrapCLIError(model.ExitExportIOError,
			fmt.Sprintf("failed to insert export row for %s into %s", row.RasterName, s.path), err)
	}
	return nil
}

// Path returns the absolute database path.
func (s *SQLiteSink) Path() string {
	return s.path
}

// Format returns FormatSQLite.
func (s *SQLiteSink) Format() Format {
	return FormatSQLite
}

// Close releases the database connection. Subsequent calls are no-ops.
func (s *SQLiteSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	sqlDB, err := s.db.DB()
	if err != nil {
		return model.WrapCLIError(model.ExitExportIOError,
			fmt.Sprintf("failed to access export database %s", s.path), err)
	}
	if err := sqlDB.Close(); err != nil {
		return model.WrapCLIError(model.ExitExportIOError,
			fmt.Sprintf("failed to close export database %s", s.path), err)
	}
	return nil
}
