// Package scratch manages the transient storage used for intermediate
// classified rasters.
//
// Each run acquires its own scratch directory (Acquire) and releases it
// when the run ends, whether it succeeded or not. Inside that directory
// the Allocator hands out names from a monotonic counter:
//
//	reclass1.tif, reclass2.tif, reclass3.tif, ...
//
// A name is never issued twice within a run, and names that already exist
// on disk (for example leftovers in a user-supplied scratch directory kept
// with keep_scratch) are skipped by probing the filesystem with a Scanner.
package scratch
