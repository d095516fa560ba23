package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/rasterbatch/internal/export"
	"github.com/shinji-kodama/rasterbatch/internal/logging"
	"github.com/shinji-kodama/rasterbatch/internal/model"
	"github.com/shinji-kodama/rasterbatch/internal/scheme"
)

// Default values.
const (
	DefaultWorkspace    = "."
	DefaultEngine       = "tiff"
	DefaultBand         = 1
	DefaultDockerImage  = "ghcr.io/osgeo/gdal:alpine-normal-latest"
	DefaultNoDataPolicy = model.PolicyNoData
)

// Config is the complete run configuration.
type Config struct {
	// Workspace is the directory whose rasters are processed.
	Workspace string `yaml:"workspace" json:"workspace"`

	// ScratchDir is the parent of the per-run scratch directory. Empty
	// means the system temporary directory.
	ScratchDir string `yaml:"scratch_dir" json:"scratch_dir"`

	// OverwriteOutput allows replacing existing export and band files.
	OverwriteOutput bool `yaml:"overwrite_output" json:"overwrite_output"`

	// KeepScratch leaves the scratch directory in place after the run.
	KeepScratch bool `yaml:"keep_scratch" json:"keep_scratch"`

	// Engine is the registry name of the raster engine.
	Engine string `yaml:"engine" json:"engine"`

	// Band is the 1-based band that is classified.
	Band int `yaml:"band" json:"band"`

	// Scheme is the textual classification scheme, e.g. "0 0 0;1 1 1".
	// Mutually exclusive with Classes.
	Scheme string `yaml:"scheme,omitempty" json:"scheme,omitempty"`

	// Classes is the structured form of the classification scheme.
	Classes []scheme.Range `yaml:"classes,omitempty" json:"classes,omitempty"`

	// NoDataPolicy is "nodata" or "data".
	NoDataPolicy string `yaml:"nodata_policy" json:"nodata_policy"`

	// ContinueOnError keeps processing after a raster fails and reports
	// all failures at the end.
	ContinueOnError bool `yaml:"continue_on_error" json:"continue_on_error"`

	// Export configures the optional statistics export.
	Export ExportConfig `yaml:"export" json:"export"`

	// Split configures band splitting.
	Split SplitConfig `yaml:"split" json:"split"`

	// Docker configures the container engine.
	Docker DockerConfig `yaml:"docker" json:"docker"`

	// Log configures diagnostics.
	Log logging.Config `yaml:"log" json:"log"`
}

// ExportConfig selects the export destination.
type ExportConfig struct {
	// Path is the export file; empty disables the export.
	Path string `yaml:"path" json:"path"`

	// Format is "auto", "csv" or "sqlite".
	Format string `yaml:"format" json:"format"`
}

// SplitConfig controls band splitting.
type SplitConfig struct {
	// OutputFolder receives the band files. Empty means
	// "<workspace>/bands".
	OutputFolder string `yaml:"output_folder" json:"output_folder"`

	// PrefixRasterName names outputs "<raster>_<band>.tif" instead of
	// "<band>.tif".
	PrefixRasterName bool `yaml:"prefix_raster_name" json:"prefix_raster_name"`
}

// DockerConfig configures the container engine.
type DockerConfig struct {
	// Image is the GDAL image.
	Image string `yaml:"image" json:"image"`

	// Pull forces a pull before the first job.
	Pull bool `yaml:"pull" json:"pull"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Workspace:       DefaultWorkspace,
		OverwriteOutput: true,
		Engine:          DefaultEngine,
		Band:            DefaultBand,
		NoDataPolicy:    string(DefaultNoDataPolicy),
		Export:          ExportConfig{Format: "auto"},
		Docker:          DockerConfig{Image: DefaultDockerImage},
		Log:             logging.Config{Level: logging.DefaultLevel, Format: logging.FormatConsole},
	}
}

// Load reads the configuration file at path on top of Default(). Relative
// paths in the file are resolved against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.WrapCLIError(model.ExitConfigError,
				fmt.Sprintf("configuration file not found: %s", path), err)
		}
		return nil, model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("failed to read configuration file %s", path), err)
	}

	cfg := Default()
	if err := decode(path, data, cfg); err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("failed to parse configuration file %s", path), err)
	}

	base, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("failed to resolve directory of %s", path), err)
	}
	cfg.resolvePaths(base)
	return cfg, nil
}

// decode parses data into cfg according to the extension of path. JSON
// files may contain comments and trailing commas; anything that is not
// .json/.jsonc is parsed as YAML.
func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		dec.DisallowUnknownFields()
		return dec.Decode(cfg)
	default:
		if len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		return dec.Decode(cfg)
	}
}

// resolvePaths makes the path fields absolute relative to base.
func (c *Config) resolvePaths(base string) {
	for _, p := range []*string{&c.Workspace, &c.ScratchDir, &c.Export.Path, &c.Split.OutputFolder} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}

// ClassificationScheme returns the parsed scheme: Classes when set,
// otherwise Scheme, otherwise scheme.DefaultText.
func (c *Config) ClassificationScheme() (scheme.Scheme, error) {
	if len(c.Classes) > 0 {
		return scheme.New(c.Classes...)
	}
	text := c.Scheme
	if strings.TrimSpace(text) == "" {
		text = scheme.DefaultText
	}
	return scheme.Parse(text)
}

// Policy returns the parsed no-data policy.
func (c *Config) Policy() (model.NoDataPolicy, error) {
	if c.NoDataPolicy == "" {
		return DefaultNoDataPolicy, nil
	}
	return model.ParseNoDataPolicy(c.NoDataPolicy)
}

// ExportFormat returns the parsed export format.
func (c *Config) ExportFormat() (export.Format, error) {
	return export.ParseFormat(c.Export.Format)
}
