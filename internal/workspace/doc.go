// Package workspace resolves the directories a batch run works with and
// enumerates the raster files inside them.
//
// A workspace is a plain directory. Rasters are recognised by file
// extension only (no content sniffing) and only the top level is listed;
// subdirectories such as a previous run's "bands" output are never
// descended into. Listings are sorted by file name so that console output
// and export files are reproducible from one machine to the next.
//
// All failures are returned as model.CLIError values with
// ExitWorkspaceError so the CLI can report them uniformly.
package workspace
