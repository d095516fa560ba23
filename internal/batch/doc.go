// Package batch implements the two pipelines of rasterbatch on top of an
// engine.Engine.
//
// Run enumerates the rasters of a workspace, reclassifies each one into
// a scratch raster, reads back its attribute table, prints it and
// optionally exports it:
//
//	raster1.tif
//	0 120
//	1 80
//	raster2.tif
//	...
//
// SplitBands enumerates the same rasters and writes every band of each
// one to its own single-band file.
//
// Both pipelines are sequential and fail fast unless ContinueOnError is
// set, in which case failures are collected and returned together as an
// ExitPartialFailure error once every raster has been attempted.
package batch
