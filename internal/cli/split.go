// Package cli, split.go implements the "rasterbatch split" command.
//
// The split command writes every band of every raster in a workspace to
// its own single-band GeoTIFF, named after the band.
package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/rasterbatch/internal/batch"
	"github.com/shinji-kodama/rasterbatch/internal/config"
	"github.com/shinji-kodama/rasterbatch/internal/logging"
	"github.com/shinji-kodama/rasterbatch/internal/model"
)

// splitFlags holds the flag values for the split command.
type splitFlags struct {
	engineFlags

	workspace    string
	outputFolder string
	prefix       bool
}

// NewSplitCommand creates the "split" cobra command.
func NewSplitCommand() *cobra.Command {
	flags := &splitFlags{}

	cmd := &cobra.Command{
		Use:   "split [workspace]",
		Short: "Split multi-band rasters into single-band files",
		Long: `Write every band of every raster in the workspace to its own file in
the output folder (default: <workspace>/bands). Files are named after the
band description, or "Band_<n>" when a band has none.

Examples:
  rasterbatch split ./scenes
  rasterbatch split ./scenes --output ./bands --prefix-raster-name
  rasterbatch split --engine gdal --overwrite=false`,

		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if err := cmd.Flags().Set("workspace", args[0]); err != nil {
					return err
				}
			}
			return runSplit(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.workspace, "workspace", "w", config.DefaultWorkspace,
		"Directory whose rasters are split")
	cmd.Flags().StringVarP(&flags.outputFolder, "output", "o", "",
		"Directory receiving the band files (default: <workspace>/bands)")
	cmd.Flags().BoolVar(&flags.prefix, "prefix-raster-name", false,
		`Name files "<raster>_<band>.tif" instead of "<band>.tif"`)
	flags.engineFlags.bind(cmd)

	return cmd
}

// apply copies the explicitly set flags into cfg.
func (f *splitFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	f.engineFlags.apply(cmd, cfg)

	changed := cmd.Flags().Changed
	if changed("workspace") {
		cfg.Workspace = f.workspace
	}
	if changed("output") {
		cfg.Split.OutputFolder = f.outputFolder
	}
	if changed("prefix-raster-name") {
		cfg.Split.PrefixRasterName = f.prefix
	}
}

// runSplit is the main logic function for the split command.
func runSplit(cmd *cobra.Command, flags *splitFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	flags.apply(cmd, cfg)

	s, err := openSession(cmd.Context(), cmd, cfg)
	if err != nil {
		return err
	}
	defer s.close()

	// An output folder from the command line is relative to the current
	// directory; the configuration file already resolved its own.
	output := cfg.Split.OutputFolder
	if output != "" {
		if output, err = filepath.Abs(output); err != nil {
			return model.WrapCLIError(model.ExitWorkspaceError, "failed to resolve output folder", err)
		}
	}

	classifier := batch.New(s.engine, io.Discard, logging.ComponentLogger(s.log, "batch"))
	result, runErr := classifier.SplitBands(cmd.Context(), batch.SplitRequest{
		Workspace:        cfg.Workspace,
		OutputFolder:     output,
		PrefixRasterName: cfg.Split.PrefixRasterName,
		Overwrite:        cfg.OverwriteOutput,
		ContinueOnError:  cfg.ContinueOnError,
	})
	if result == nil {
		return runErr
	}

	if IsJSONOutput() {
		if err := printJSON(cmd.OutOrStdout(), newSplitJSON(s.engine.Name(), result)); err != nil && runErr == nil {
			runErr = err
		}
		return runErr
	}
	printSplitResultText(cmd.OutOrStdout(), result)
	return runErr
}

// printSplitResultText lists the written files, one per line:
//
//	scene.tif  Band_1  /data/bands/Band_1.tif
func printSplitResultText(w io.Writer, result *model.SplitResult) {
	if len(result.Outputs) == 0 {
		fmt.Fprintln(w, "No bands written.")
		return
	}

	rasterWidth, bandWidth := len("RASTER"), len("BAND")
	for _, o := range result.Outputs {
		rasterWidth = max(rasterWidth, len(o.Raster))
		bandWidth = max(bandWidth, len(o.Band.Name))
	}

	fmt.Fprintf(w, "%-*s  %-*s  %s\n", rasterWidth, "RASTER", bandWidth, "BAND", "OUTPUT")
	for _, o := range result.Outputs {
		fmt.Fprintf(w, "%-*s  %-*s  %s\n", rasterWidth, o.Raster, bandWidth, o.Band.Name, o.Path)
	}
}
