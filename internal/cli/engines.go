// Package cli, engines.go implements the "rasterbatch engines" command.
//
// The engines command lists the raster engines compiled into the binary.
// Which engines are present depends on build tags: the gdal engine needs
// cgo and is left out of builds tagged nogdal.
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/rasterbatch/internal/engine"
)

// NewEnginesCommand creates the "engines" cobra command.
func NewEnginesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "engines",
		Short: "List the available raster engines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			infos := engine.Registered()
			if IsJSONOutput() {
				return printJSON(cmd.OutOrStdout(), struct {
					Default string        `json:"default"`
					Engines []engine.Info `json:"engines"`
				}{Default: engine.DefaultName, Engines: infos})
			}
			printEnginesText(cmd.OutOrStdout(), infos)
			return nil
		},
	}
}

// printEnginesText prints one engine per line, marking the default:
//
//	NAME    DESCRIPTION
//	docker  GDAL command-line tools in a Docker container (...)
//	tiff *  Pure Go, baseline TIFF
func printEnginesText(w io.Writer, infos []engine.Info) {
	if len(infos) == 0 {
		fmt.Fprintln(w, "No engines compiled in.")
		return
	}

	width := len("NAME")
	for _, info := range infos {
		width = max(width, len(FormatEngineName(info.Name)))
	}
	fmt.Fprintf(w, "%-*s  %s\n", width, "NAME", "DESCRIPTION")
	for _, info := range infos {
		fmt.Fprintf(w, "%-*s  %s\n", width, FormatEngineName(info.Name), info.Description)
	}
}

// FormatEngineName returns name with a " *" suffix for the default engine.
//
// Example:
//
//	"tiff" → "tiff *"
//	"gdal" → "gdal"
func FormatEngineName(name string) string {
	if name == engine.DefaultName {
		return name + " *"
	}
	return name
}
