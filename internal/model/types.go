package model

import (
	"fmt"
	"strings"
)

// NoDataPolicy controls what happens to pixels that fall outside every
// range of a classification scheme.
type NoDataPolicy string

const (
	// PolicyNoData maps out-of-range pixels to the engine's no-data
	// sentinel. They do not appear in the attribute table.
	PolicyNoData NoDataPolicy = "nodata"

	// PolicyData keeps out-of-range pixels at their original value
	// (rounded to the nearest integer), so they show up as extra rows
	// in the attribute table.
	PolicyData NoDataPolicy = "data"
)

// String returns the string representation of NoDataPolicy.
func (p NoDataPolicy) String() string {
	return string(p)
}

// IsValid checks whether the NoDataPolicy is one of the predefined values.
func (p NoDataPolicy) IsValid() bool {
	switch p {
	case PolicyNoData, PolicyData:
		return true
	default:
		return false
	}
}

// ParseNoDataPolicy converts a string to a NoDataPolicy.
// Returns an error if the string does not match any valid policy.
func ParseNoDataPolicy(s string) (NoDataPolicy, error) {
	policy := NoDataPolicy(strings.ToLower(strings.TrimSpace(s)))
	if !policy.IsValid() {
		return "", fmt.Errorf("invalid nodata policy: %q (valid: nodata, data)", s)
	}
	return policy, nil
}

// ClassStat is one row of a classified raster's attribute table: a class
// value and the number of pixels carrying it.
//
// Engines return rows in ascending Value order with no-data pixels
// excluded, so an all-no-data raster yields an empty slice.
type ClassStat struct {
	// Value is the output class value.
	Value int64 `json:"value"`

	// Count is the number of pixels classified into Value.
	Count int64 `json:"count"`
}

// String formats the row the way it is printed on the console stream:
// "<value> <count>".
func (s ClassStat) String() string {
	return fmt.Sprintf("%d %d", s.Value, s.Count)
}

// ClassStatRow ties a ClassStat to the raster it was computed from.
// This is the unit written to export sinks.
type ClassStatRow struct {
	// RasterName is the file name of the source raster, relative to the
	// workspace (e.g. "raster1.tif").
	RasterName string `json:"raster"`

	// ClassValue is the output class value.
	ClassValue int64 `json:"value"`

	// PixelCount is the number of pixels in ClassValue.
	PixelCount int64 `json:"count"`
}

// Record returns the row as the ordered string fields of a delimited
// export record: rasterName, classValue, pixelCount.
func (r ClassStatRow) Record() []string {
	return []string{
		r.RasterName,
		fmt.Sprintf("%d", r.ClassValue),
		fmt.Sprintf("%d", r.PixelCount),
	}
}

// RowsFor builds the export rows for a raster from its attribute table,
// preserving the table order.
func RowsFor(rasterName string, stats []ClassStat) []ClassStatRow {
	rows := make([]ClassStatRow, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, ClassStatRow{
			RasterName: rasterName,
			ClassValue: s.Value,
			PixelCount: s.Count,
		})
	}
	return rows
}

// Band identifies one layer of a multi-band raster.
type Band struct {
	// Index is the 1-based band number within the raster.
	Index int `json:"index"`

	// Name is the band description, or "Band_<Index>" when the raster
	// does not carry one.
	Name string `json:"name"`
}

// DefaultBandName returns the name used for a band without a description.
func DefaultBandName(index int) string {
	return fmt.Sprintf("Band_%d", index)
}

// RasterStats is the outcome of classifying and tabulating one raster.
type RasterStats struct {
	// Name is the raster file name relative to the workspace.
	Name string `json:"raster"`

	// ScratchID is the identifier of the intermediate classified raster
	// (e.g. "reclass3").
	ScratchID string `json:"scratchId"`

	// Stats is the attribute table, possibly empty.
	Stats []ClassStat `json:"stats"`
}

// BandOutput records one materialized band file.
type BandOutput struct {
	// Raster is the source raster file name.
	Raster string `json:"raster"`

	// Band is the band that was copied.
	Band Band `json:"band"`

	// Path is the absolute path of the written single-band file.
	Path string `json:"path"`
}

// Failure describes a raster (and optionally a band) that could not be
// processed while running in continue-on-error mode.
type Failure struct {
	// Raster is the raster file name.
	Raster string `json:"raster"`

	// Band is the band name for split failures; empty otherwise.
	Band string `json:"band,omitempty"`

	// Err is the underlying error.
	Err error `json:"-"`
}

// Error satisfies the error interface so a Failure can be joined with
// errors.Join when summarising a run.
func (f Failure) Error() string {
	if f.Band != "" {
		return fmt.Sprintf("%s [%s]: %v", f.Raster, f.Band, f.Err)
	}
	return fmt.Sprintf("%s: %v", f.Raster, f.Err)
}

// Unwrap returns the underlying error.
func (f Failure) Unwrap() error {
	return f.Err
}

// RunResult summarises a classify run.
type RunResult struct {
	// Workspace is the absolute workspace path that was enumerated.
	Workspace string `json:"workspace"`

	// Rasters lists processed rasters in processing order.
	Rasters []RasterStats `json:"rasters"`

	// ExportPath is the export destination, empty when no export ran.
	ExportPath string `json:"exportPath,omitempty"`

	// Failures is only populated in continue-on-error mode.
	Failures []Failure `json:"-"`
}

// SplitResult summarises a split run.
type SplitResult struct {
	// Workspace is the absolute workspace path that was enumerated.
	Workspace string `json:"workspace"`

	// OutputFolder is the absolute directory band files were written to.
	OutputFolder string `json:"outputFolder"`

	// Outputs lists written band files in processing order.
	Outputs []BandOutput `json:"outputs"`

	// Failures is only populated in continue-on-error mode.
	Failures []Failure `json:"-"`
}
