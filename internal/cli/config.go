// Package cli, config.go implements the "rasterbatch config" command group.
//
// "config init" writes a commented starter configuration file and
// "config validate" checks an existing one without running anything.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/rasterbatch/internal/config"
	"github.com/shinji-kodama/rasterbatch/internal/model"
)

// DefaultConfigFile is the file name used by "config init" without an
// argument.
const DefaultConfigFile = "rasterbatch.yaml"

// NewConfigCommand creates the "config" cobra command and its subcommands.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or check configuration files",
		Args:  cobra.NoArgs,
	}
	cmd.AddCommand(newConfigInitCommand())
	cmd.AddCommand(newConfigValidateCommand())
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a commented starter configuration file",
		Long: `Write a YAML configuration file with every key set to its default
value and a comment describing it.

Examples:
  rasterbatch config init
  rasterbatch config init conf/rasterbatch.yaml --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := DefaultConfigFile
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.WriteTemplate(path, force); err != nil {
				return err
			}

			if IsJSONOutput() {
				return printJSON(cmd.OutOrStdout(), map[string]string{"path": path})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	return cmd
}

func newConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [path]",
		Short: "Check a configuration file",
		Long: `Load a configuration file and report every problem found in it.
Without an argument the file given with --config is checked.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return model.NewCLIError(model.ExitConfigError,
					"no configuration file given (pass a path or --config)")
			}

			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			problems := cfg.Check()

			if IsJSONOutput() {
				type problemJSON struct {
					Field   string `json:"field"`
					Message string `json:"message"`
				}
				out := struct {
					Path     string        `json:"path"`
					Valid    bool          `json:"valid"`
					Problems []problemJSON `json:"problems"`
				}{Path: path, Valid: len(problems) == 0, Problems: make([]problemJSON, 0, len(problems))}
				for _, p := range problems {
					out.Problems = append(out.Problems, problemJSON{Field: p.Field, Message: p.Message})
				}
				if err := printJSON(cmd.OutOrStdout(), out); err != nil {
					return err
				}
			} else if len(problems) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", path)
			} else {
				for _, p := range problems {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", p.Field, p.Message)
				}
			}

			if len(problems) > 0 {
				return model.NewCLIError(model.ExitConfigError,
					fmt.Sprintf("%s has %d problem(s)", path, len(problems)))
			}
			return nil
		},
	}
}
