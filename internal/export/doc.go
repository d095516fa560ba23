// Package export writes per-class pixel counts to a persistent sink.
//
// A run opens exactly one Sink, appends one row per attribute table entry
// as rasters are processed, and closes the sink once when the run ends.
// Two formats are supported:
//
//   - csv: "rasterName,classValue,pixelCount" lines without a header,
//     flushed after every row so a failed run leaves the rows written so far.
//   - sqlite: rows inserted into the class_stats table, tagged with the
//     run identifier so several runs can share one database file.
//
// The format is chosen explicitly or inferred from the path extension
// (see FormatFor). Every failure is reported as a model.CLIError with
// ExitExportIOError.
package export
