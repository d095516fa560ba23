// Package cli implements the cobra-based CLI commands for rasterbatch.
//
// Each subcommand (classify, split, engines, config) is defined in its own
// file within this package. This file defines the root command that serves as
// the parent for all subcommands and handles global flags.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/rasterbatch/internal/model"
)

// Global flag variables shared across all subcommands.
// These are bound to cobra persistent flags on the root command,
// which makes them available to every subcommand automatically.
var (
	// configPath is the configuration file given with --config. Empty
	// means built-in defaults only.
	configPath string

	// jsonOutput controls whether command output is formatted as JSON.
	// When true, the text result stream is replaced by one JSON document.
	jsonOutput bool

	// verbose forces debug-level diagnostics on stderr.
	verbose bool

	// logFormat overrides log.format from the configuration file.
	logFormat string
)

// version, commit, and date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
// This is the entry point for the entire CLI application.
//
// The root command itself does not perform any action; it only provides
// help text and global flags. Actual functionality is provided by
// subcommands (classify, split, engines, config).
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		// Use is the one-line usage pattern shown in help output.
		Use:   "rasterbatch",
		Short: "Batch raster classification and band splitting",
		Long: `rasterbatch reclassifies every raster of a workspace with a fixed
classification scheme, prints per-class pixel counts, and optionally exports
them to CSV or SQLite. It can also split multi-band rasters into one file
per band.

Raster I/O is delegated to an engine: the pure-Go "tiff" engine (default),
"gdal" (GDAL library) or "docker" (GDAL tools in a container).`,

		// SilenceUsage prevents cobra from printing usage on every error.
		// We handle error output ourselves for cleaner UX.
		SilenceUsage: true,

		// SilenceErrors prevents cobra from printing errors automatically.
		// We format errors ourselves (text or JSON based on --json flag).
		SilenceErrors: true,

		// Version is displayed when --version flag is used.
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
	}

	// PersistentFlags are inherited by all subcommands, so every command
	// reads the same configuration file and honours the same output mode.
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file (YAML or JSONC)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug diagnostics on stderr")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Diagnostics format: console or json (overrides log.format)")

	// Register subcommands. Each subcommand is defined in its own file
	// (classify.go, split.go, etc.) and returns a *cobra.Command.
	rootCmd.AddCommand(NewClassifyCommand())
	rootCmd.AddCommand(NewSplitCommand())
	rootCmd.AddCommand(NewEnginesCommand())
	rootCmd.AddCommand(NewConfigCommand())

	return rootCmd
}

// Execute runs the root command and handles exit codes.
// This is the main entry point called from main.go.
//
// The command context is cancelled on SIGINT or SIGTERM, so a batch stops
// before its next raster and the engine removes what it left behind.
// CLIError types carry their own exit codes; other errors default to
// exit code 1.
func Execute(rootCmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := executeContext(ctx, rootCmd, os.Stderr)
	stop()
	if code != model.ExitSuccess {
		os.Exit(int(code))
	}
}

// executeContext runs rootCmd with ctx, prints a failure to stderr and
// returns the exit code.
func executeContext(ctx context.Context, rootCmd *cobra.Command, stderr io.Writer) model.ExitCode {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		printError(stderr, err)
	}
	return model.ExitCodeOf(err)
}

// printError outputs an error in the appropriate format (JSON or text)
// based on the --json global flag.
func printError(w io.Writer, err error) {
	message, detail := err.Error(), ""
	code := model.ExitCodeOf(err)

	// errors.As finds the CLIError even when a caller wrapped it again,
	// so the message and detail stay split the way the command set them.
	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		message = cliErr.Message
		if cliErr.Err != nil {
			detail = cliErr.Err.Error()
		}
	}

	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"code":    int(code),
				"message": message,
			},
		}
		if detail != "" {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = detail
			}
		}
		// Errors go to stderr even in JSON mode, because stdout is
		// reserved for successful command output.
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}

	// Text format: "Error: <message>: <cause>" on stderr.
	if detail != "" {
		fmt.Fprintf(w, "Error: %s: %s\n", message, detail)
	} else {
		fmt.Fprintf(w, "Error: %s\n", message)
	}
}

// IsJSONOutput returns whether the --json flag is set.
// Subcommands use this to decide their output format.
func IsJSONOutput() bool {
	return jsonOutput
}
