package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/rasterbatch/internal/model"
	"github.com/shinji-kodama/rasterbatch/internal/scheme"
)

// keyComments documents the keys of the generated template, by dotted
// path.
var keyComments = map[string]string{
	"workspace":                "Directory whose rasters are processed.",
	"scratch_dir":              "Parent of the per-run scratch directory (empty: system temp dir).",
	"overwrite_output":         "Replace existing export and band files.",
	"keep_scratch":             "Keep intermediate classified rasters after the run.",
	"engine":                   "Raster engine: tiff, gdal or docker.",
	"band":                     "Band to classify (1-based).",
	"classes":                  "Classification ranges; bounds are inclusive and the first match wins.",
	"nodata_policy":            "Unclassified pixels: nodata (dropped) or data (kept as is).",
	"continue_on_error":        "Keep going when a raster fails and report all failures at the end.",
	"export":                   "Optional per-class statistics export.",
	"export.path":              "Export file; leave empty to disable.",
	"export.format":            "auto, csv or sqlite (auto: .db/.sqlite/.sqlite3 select sqlite).",
	"split":                    "Band splitting.",
	"split.output_folder":      "Band output directory (empty: <workspace>/bands).",
	"split.prefix_raster_name": "Name outputs <raster>_<band>.tif instead of <band>.tif.",
	"docker":                   "Container engine settings.",
	"docker.image":             "GDAL image with the Python utilities.",
	"docker.pull":              "Pull the image even when it is present.",
	"log":                      "Diagnostics on stderr.",
	"log.level":                "trace, debug, info, warn or error.",
	"log.format":               "console or json.",
}

// GenerateTemplate returns a commented starter configuration in YAML,
// with the defaults and the scheme spelled out as classes.
func GenerateTemplate() ([]byte, error) {
	cfg := Default()
	cfg.Classes = scheme.MustParse(scheme.DefaultText).Ranges

	var doc yaml.Node
	if err := doc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to encode configuration template: %w", err)
	}
	annotate(&doc, "")

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize configuration template: %w", err)
	}

	header := "# rasterbatch configuration\n# Values shown are the defaults. Command-line flags override this file.\n"
	return []byte(header + string(data)), nil
}

// annotate attaches keyComments to the mapping keys under node. prefix
// is the dotted path of node.
func annotate(node *yaml.Node, prefix string) {
	if node.Kind != yaml.MappingNode {
		for _, child := range node.Content {
			annotate(child, prefix)
		}
		return
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		path := key.Value
		if prefix != "" {
			path = prefix + "." + key.Value
		}
		if comment, ok := keyComments[path]; ok {
			key.HeadComment = comment
		}
		annotate(node.Content[i+1], path)
	}
}

// WriteTemplate writes GenerateTemplate() to path, creating parent
// directories. An existing file is only replaced when force is set.
func WriteTemplate(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return model.NewCLIError(model.ExitConfigError,
			fmt.Sprintf("configuration file %s already exists (use --force to overwrite)", path))
	}

	data, err := GenerateTemplate()
	if err != nil {
		return model.WrapCLIError(model.ExitConfigError, "failed to generate configuration template", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("failed to create directory for %s", path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("failed to write configuration file %s", path), err)
	}
	return nil
}
