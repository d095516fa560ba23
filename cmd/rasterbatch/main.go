// Package main is the entry point for the rasterbatch CLI.
//
// This binary reclassifies and splits the rasters of a workspace. It
// delegates all functionality to the internal/cli package, which defines
// cobra commands. Raster engines register themselves when their package
// is imported; the imports below and in engine_gdal.go decide which
// engines the binary carries.
//
// Build-time variables (version, commit, date) are injected via ldflags
// during the release process. During development, they default to "dev",
// "none", and "unknown" respectively.
package main

import (
	"github.com/shinji-kodama/rasterbatch/internal/cli"

	_ "github.com/shinji-kodama/rasterbatch/internal/engine/container"
	_ "github.com/shinji-kodama/rasterbatch/internal/engine/tiffengine"
)

// version, commit, and date are set at build time via ldflags. They
// provide binary identification for the --version flag output.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Inject build-time version info into the CLI package.
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	// Create the root command with all subcommands registered,
	// then execute it. Execute handles error formatting and exit codes.
	rootCmd := cli.NewRootCommand()
	cli.Execute(rootCmd)
}
