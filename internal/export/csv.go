package export

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/shinji-kodama/rasterbatch/internal/model"
)

// CSVSink writes rows as "rasterName,classValue,pixelCount" lines.
type CSVSink struct {
	path   string
	file   *os.File
	writer *csv.Writer
	closed bool
}

// openCSV creates (or truncates) the CSV file at path.
func openCSV(path string, overwrite bool) (*CSVSink, error) {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, model.WrapCLIError(model.ExitExportIOError,
				fmt.Sprintf("export file %s already exists and overwrite is disabled", path), err)
		}
		return nil, model.WrapCLIError(model.ExitExportIOError,
			fmt.Sprintf("failed to open export file %s", path), err)
	}

	w := csv.NewWriter(f)
	w.UseCRLF = false
	return &CSVSink{path: path, file: f, writer: w}, nil
}

// Write appends a row and flushes it to the file immediately.
func (s *CSVSink) Write(row model.ClassStatRow) error {
	if s.closed {
		return model.NewCLIError(model.ExitExportIOError,
			fmt.Sprintf("export file %s is already closed", s.path))
	}
	if err := s.writer.Write(row.Record()); err != nil {
		return s.writeError(row, err)
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return s.writeError(row, err)
	}
	return nil
}

func (s *CSVSink) writeError(row model.ClassStatRow, err error) error {
	return model.WrapCLIError(model.ExitExportIOError,
		fmt.Sprintf("failed to write export row for %s to %s", row.RasterName, s.path), err)
}

// Path returns the absolute file path.
func (s *CSVSink) Path() string {
	return s.path
}

// Format returns FormatCSV.
func (s *CSVSink) Format() Format {
	return FormatCSV
}

// Close flushes buffered rows and closes the file. Subsequent calls are
// no-ops.
func (s *CSVSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	s.writer.Flush()
	flushErr := s.writer.Error()
	closeErr := s.file.Close()
	if flushErr != nil {
		return model.WrapCLIError(model.ExitExportIOError,
			fmt.Sprintf("failed to flush export file %s", s.path), flushErr)
	}
	if closeErr != nil {
		return model.WrapCLIError(model.ExitExportIOError,
			fmt.Sprintf("failed to close export file %s", s.path), closeErr)
	}
	return nil
}
