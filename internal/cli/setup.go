package cli

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/shinji-kodama/rasterbatch/internal/config"
	"github.com/shinji-kodama/rasterbatch/internal/engine"
	"github.com/shinji-kodama/rasterbatch/internal/logging"
)

// engineFlags are the flags shared by the commands that open an engine.
type engineFlags struct {
	engine          string
	image           string
	pull            bool
	overwrite       bool
	continueOnError bool
}

// bind registers the shared flags on cmd.
func (f *engineFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.engine, "engine", "e", config.DefaultEngine,
		"Raster engine (see the engines command)")
	cmd.Flags().StringVar(&f.image, "image", config.DefaultDockerImage,
		"Container image for the docker engine")
	cmd.Flags().BoolVar(&f.pull, "pull", false,
		"Pull the container image even when it is present")
	cmd.Flags().BoolVar(&f.overwrite, "overwrite", true,
		"Replace existing output files")
	cmd.Flags().BoolVar(&f.continueOnError, "continue-on-error", false,
		"Keep going when a raster fails and report all failures at the end")
}

// apply copies the flags the user set explicitly into cfg, so that
// precedence is defaults < configuration file < flags.
func (f *engineFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("engine") {
		cfg.Engine = f.engine
	}
	if changed("image") {
		cfg.Docker.Image = f.image
	}
	if changed("pull") {
		cfg.Docker.Pull = f.pull
	}
	if changed("overwrite") {
		cfg.OverwriteOutput = f.overwrite
	}
	if changed("continue-on-error") {
		cfg.ContinueOnError = f.continueOnError
	}
}

// loadConfig returns the configuration from --config, or the defaults
// when no file was given.
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

// applyGlobalFlags applies the persistent flags that override the log
// section of cfg.
func applyGlobalFlags(cfg *config.Config) {
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if verbose {
		cfg.Log.Level = zerolog.LevelDebugValue
	}
}

// newLogger builds the diagnostics logger for cfg on w.
func newLogger(w io.Writer, cfg *config.Config) zerolog.Logger {
	return logging.NewLogger(w, cfg.Log)
}

// session is everything a pipeline command needs after setup.
type session struct {
	cfg    *config.Config
	log    zerolog.Logger
	runID  string
	engine engine.Engine
}

// openSession validates cfg, builds the logger and opens the configured
// engine. The caller must call close.
func openSession(ctx context.Context, cmd *cobra.Command, cfg *config.Config) (*session, error) {
	applyGlobalFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := newLogger(cmd.ErrOrStderr(), cfg)
	runID := uuid.NewString()
	log = log.With().Str("run", runID).Logger()

	eng, err := engine.Open(ctx, cfg.Engine, engine.Options{
		RunID:  runID,
		Logger: log,
		Image:  cfg.Docker.Image,
		Pull:   cfg.Docker.Pull,
	})
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, log: log, runID: runID, engine: eng}, nil
}

// close releases the engine, logging a failure instead of masking the
// command's own error.
func (s *session) close() {
	if err := s.engine.Close(); err != nil {
		s.log.Warn().Err(err).Msg("failed to close engine")
	}
}
