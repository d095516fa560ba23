// Package cli, classify.go implements the "rasterbatch classify" command.
//
// The classify command reclassifies one band of every raster in a
// workspace, prints the attribute table of each classified raster, and
// optionally exports the tables to a CSV file or SQLite database.
package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/rasterbatch/internal/batch"
	"github.com/shinji-kodama/rasterbatch/internal/config"
	"github.com/shinji-kodama/rasterbatch/internal/export"
	"github.com/shinji-kodama/rasterbatch/internal/logging"
	"github.com/shinji-kodama/rasterbatch/internal/model"
)

// classifyFlags holds the flag values for the classify command.
// These are bound to cobra flags in NewClassifyCommand.
type classifyFlags struct {
	engineFlags

	workspace    string
	scheme       string
	band         int
	policy       string
	exportPath   string
	exportFormat string
	scratchDir   string
	keepScratch  bool
}

// NewClassifyCommand creates the "classify" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewClassifyCommand() *cobra.Command {
	flags := &classifyFlags{}

	cmd := &cobra.Command{
		Use:   "classify [workspace]",
		Short: "Reclassify every raster in a workspace and print class counts",
		Long: `Reclassify one band of every raster in the workspace and print the
attribute table of each result: a line with the raster name followed by
one "<class> <pixel count>" line per class.

The scheme is a list of "from to class" ranges separated by ";". Bounds are
inclusive and the first matching range wins. Pixels outside every range
become no-data (--nodata-policy nodata) or keep their value (data).

Examples:
  rasterbatch classify ./scenes
  rasterbatch classify ./scenes --scheme "0 0 0;1 1 1" --export stats.csv
  rasterbatch classify --config rasterbatch.yaml --json`,

		// The workspace may be given positionally or via --workspace.
		Args: cobra.MaximumNArgs(1),

		// RunE returns an error to the root command's error handler.
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if err := cmd.Flags().Set("workspace", args[0]); err != nil {
					return err
				}
			}
			return runClassify(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.workspace, "workspace", "w", config.DefaultWorkspace,
		"Directory whose rasters are classified")
	cmd.Flags().StringVarP(&flags.scheme, "scheme", "s", "",
		`Classification scheme, e.g. "0 0 0;1 1 1"`)
	cmd.Flags().IntVarP(&flags.band, "band", "b", config.DefaultBand,
		"Band to classify (1-based)")
	cmd.Flags().StringVar(&flags.policy, "nodata-policy", string(config.DefaultNoDataPolicy),
		"Unclassified pixels: nodata or data")
	cmd.Flags().StringVar(&flags.exportPath, "export", "",
		"Export class counts to this file")
	cmd.Flags().StringVar(&flags.exportFormat, "export-format", "auto",
		"Export format: auto, csv or sqlite")
	cmd.Flags().StringVar(&flags.scratchDir, "scratch-dir", "",
		"Parent directory of the run's scratch directory (default: system temp dir)")
	cmd.Flags().BoolVar(&flags.keepScratch, "keep-scratch", false,
		"Keep the intermediate classified rasters")
	flags.engineFlags.bind(cmd)

	return cmd
}

// apply copies the explicitly set flags into cfg.
func (f *classifyFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	f.engineFlags.apply(cmd, cfg)

	changed := cmd.Flags().Changed
	if changed("workspace") {
		cfg.Workspace = f.workspace
	}
	if changed("scheme") {
		// A scheme on the command line replaces classes from the file.
		cfg.Scheme = f.scheme
		cfg.Classes = nil
	}
	if changed("band") {
		cfg.Band = f.band
	}
	if changed("nodata-policy") {
		cfg.NoDataPolicy = f.policy
	}
	if changed("export") {
		cfg.Export.Path = f.exportPath
	}
	if changed("export-format") {
		cfg.Export.Format = f.exportFormat
	}
	if changed("scratch-dir") {
		cfg.ScratchDir = f.scratchDir
	}
	if changed("keep-scratch") {
		cfg.KeepScratch = f.keepScratch
	}
}

// runClassify is the main logic function for the classify command.
// It builds the run configuration, opens the engine, runs the batch
// pipeline, and outputs the result in the appropriate format.
func runClassify(cmd *cobra.Command, flags *classifyFlags) error {
	// Step 1: Load the configuration file and apply flag overrides.
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	flags.apply(cmd, cfg)

	// Step 2: Validate and open the engine.
	s, err := openSession(cmd.Context(), cmd, cfg)
	if err != nil {
		return err
	}
	defer s.close()

	// Validate already checked these, so errors here are unexpected.
	sch, err := cfg.ClassificationScheme()
	if err != nil {
		return model.WrapCLIError(model.ExitConfigError, "invalid classification scheme", err)
	}
	policy, err := cfg.Policy()
	if err != nil {
		return model.WrapCLIError(model.ExitConfigError, "invalid nodata policy", err)
	}

	req := batch.RunRequest{
		Workspace:       cfg.Workspace,
		Scheme:          sch,
		Band:            cfg.Band,
		Policy:          policy,
		ScratchDir:      cfg.ScratchDir,
		KeepScratch:     cfg.KeepScratch,
		ContinueOnError: cfg.ContinueOnError,
		RunID:           s.runID,
	}
	if cfg.Export.Path != "" {
		format, err := cfg.ExportFormat()
		if err != nil {
			return model.WrapCLIError(model.ExitConfigError, "invalid export format", err)
		}
		req.Export = &export.Spec{
			Path:      cfg.Export.Path,
			Format:    format,
			Overwrite: cfg.OverwriteOutput,
			RunID:     s.runID,
		}
	}

	// Step 3: Run the pipeline. In JSON mode the text stream is dropped
	// and the whole result is printed once at the end.
	var out io.Writer = cmd.OutOrStdout()
	if IsJSONOutput() {
		out = io.Discard
	}
	classifier := batch.New(s.engine, out, logging.ComponentLogger(s.log, "batch"))
	result, runErr := classifier.Run(cmd.Context(), req)

	// Step 4: A partial result is still worth printing in JSON mode, so
	// scripts see which rasters succeeded before the error.
	if IsJSONOutput() && result != nil {
		if err := printJSON(cmd.OutOrStdout(), newRunJSON(s.runID, s.engine.Name(), result)); err != nil && runErr == nil {
			runErr = err
		}
	}
	return runErr
}
