package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/shinji-kodama/rasterbatch/internal/model"
	"github.com/shinji-kodama/rasterbatch/internal/scheme"
)

// ClassifyRequest describes one reclassification.
type ClassifyRequest struct {
	// Input is the absolute path of the source raster.
	Input string

	// Band is the 1-based band of Input to classify.
	Band int

	// Scheme maps value ranges to output classes.
	Scheme scheme.Scheme

	// Output is the absolute path the classified raster is written to.
	// Any existing file at Output is replaced.
	Output string

	// Policy decides what happens to values outside every range.
	Policy model.NoDataPolicy
}

// Engine is the raster capability consumed by the batch pipeline.
//
// All methods may block on disk or on an external process and honour
// ctx cancellation where the implementation can.
type Engine interface {
	// Name returns the registry name of the engine.
	Name() string

	// Extensions returns the file extensions (lower case, with dot) of
	// the rasters the engine can read.
	Extensions() []string

	// Classify reclassifies req.Band of req.Input into req.Output and
	// returns the path of the classified raster.
	Classify(ctx context.Context, req ClassifyRequest) (string, error)

	// ReadAttributeTable returns the class values of a raster written by
	// Classify with their pixel counts, in ascending value order and
	// without the no-data value. An all-no-data raster yields an empty
	// slice.
	ReadAttributeTable(ctx context.Context, classified string) ([]model.ClassStat, error)

	// DescribeBands lists the bands of input in band order.
	DescribeBands(ctx context.Context, input string) ([]model.Band, error)

	// CopyBand writes band of input to dest as a single-band raster.
	// input is never modified.
	CopyBand(ctx context.Context, input string, band model.Band, dest string) error

	// Close releases resources held by the engine.
	Close() error
}

// Options configures an engine at open time. Engines ignore the fields
// that do not apply to them.
type Options struct {
	// RunID identifies the current run (container labels, log fields).
	RunID string

	// Logger receives engine diagnostics.
	Logger zerolog.Logger

	// Image is the container image for the container engine.
	Image string

	// Pull makes the container engine pull Image even when it is present.
	Pull bool
}

// ValidateBand checks that band is within 1..count.
func ValidateBand(band, count int) error {
	if band < 1 || band > count {
		return fmt.Errorf("band %d out of range (raster has %d band(s))", band, count)
	}
	return nil
}

// CheckClassRange verifies that every class of s fits in [lo, hi], the
// value range an engine's output pixel type can hold next to its no-data
// sentinel.
func CheckClassRange(s scheme.Scheme, lo, hi int64) error {
	for _, c := range s.Classes() {
		if c < lo || c > hi {
			return fmt.Errorf("class %d outside the supported range %d..%d", c, lo, hi)
		}
	}
	return nil
}

// BandsFromDescriptions builds the band list of a raster from its band
// descriptions, falling back to "Band_<n>" for empty ones.
func BandsFromDescriptions(descriptions []string) []model.Band {
	bands := make([]model.Band, 0, len(descriptions))
	for i, d := range descriptions {
		name := strings.TrimSpace(d)
		if name == "" {
			name = model.DefaultBandName(i + 1)
		}
		bands = append(bands, model.Band{Index: i + 1, Name: name})
	}
	return bands
}

// unsafeNameChars matches characters that are replaced in file names
// derived from band or raster names.
var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeName turns a band or raster name into a string usable as a
// file name component. Runs of unsafe characters become a single "_".
// Leading dots and underscores are dropped so the result is never
// hidden. An empty result becomes "band".
func SanitizeName(name string) string {
	s := unsafeNameChars.ReplaceAllString(strings.TrimSpace(name), "_")
	s = strings.TrimRight(strings.TrimLeft(s, "._"), "_")
	if s == "" {
		return "band"
	}
	return s
}
