// Package engine defines the raster capability the batch pipeline is
// built on, and a registry of the implementations compiled into the
// binary.
//
// An Engine reclassifies a band into a new raster, reads back the
// attribute table of such a raster, lists the bands of a raster, and
// copies a single band into its own file. Engines are looked up by name:
//
//	e, err := engine.Open(ctx, "tiff", engine.Options{Logger: log})
//	if err != nil { /* ExitEngineUnavailable */ }
//	defer e.Close()
//
// Implementations live in sub-packages and register themselves from an
// init function, so a binary only carries the engines it imports:
//
//   - tiffengine: pure Go, baseline TIFF only (default).
//   - gdal: GDAL through cgo, any GDAL-readable raster.
//   - container: GDAL command-line tools run in a Docker container.
package engine
