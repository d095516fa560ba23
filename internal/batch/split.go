package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shinji-kodama/rasterbatch/internal/engine"
	"github.com/shinji-kodama/rasterbatch/internal/model"
	"github.com/shinji-kodama/rasterbatch/internal/workspace"
)

// DefaultSplitFolder is the band output directory, relative to the
// workspace, used when SplitRequest.OutputFolder is empty.
const DefaultSplitFolder = "bands"

// bandExt is the extension of every band output.
const bandExt = ".tif"

// SplitRequest describes one band-splitting run.
type SplitRequest struct {
	// Workspace is the directory whose rasters are split.
	Workspace string

	// OutputFolder receives the band files. Empty means
	// "<workspace>/bands"; relative paths are resolved against the
	// workspace.
	OutputFolder string

	// PrefixRasterName names outputs "<raster>_<band>.tif" so bands of
	// different rasters do not collide.
	PrefixRasterName bool

	// Overwrite replaces existing band files.
	Overwrite bool

	// ContinueOnError records failing bands and keeps going.
	ContinueOnError bool
}

// SplitBands writes every band of every raster in req.Workspace to its
// own single-band file in the output folder. Source rasters are never
// modified.
func (c *Classifier) SplitBands(ctx context.Context, req SplitRequest) (*model.SplitResult, error) {
	dir, err := c.workspace.Resolve(req.Workspace)
	if err != nil {
		return nil, err
	}
	names, err := c.workspace.ListRasters(dir)
	if err != nil {
		return nil, err
	}

	folder := req.OutputFolder
	if folder == "" {
		folder = DefaultSplitFolder
	}
	out, err := c.workspace.EnsureDir(workspace.ResolveIn(dir, folder))
	if err != nil {
		return nil, err
	}

	result := &model.SplitResult{Workspace: dir, OutputFolder: out, Outputs: []model.BandOutput{}}
	log := c.log.With().Str("workspace", dir).Str("output", out).Logger()

	// written maps a lower-cased output path to the band that claimed it.
	written := make(map[string]string)
	attempted := 0

	fail := func(f model.Failure) error {
		if ctx.Err() != nil || !req.ContinueOnError {
			return f.Err
		}
		log.Warn().Err(f.Err).Str("raster", f.Raster).Str("band", f.Band).Msg("band failed, continuing")
		result.Failures = append(result.Failures, f)
		return nil
	}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return result, model.WrapCLIError(model.ExitGeneralError, "split cancelled", err)
		}

		input := filepath.Join(dir, name)
		bands, err := c.engine.DescribeBands(ctx, input)
		if err != nil {
			attempted++
			cerr := model.WrapCLIError(model.ExitBandCopyError, fmt.Sprintf("failed to read bands of %s", name), err)
			if ferr := fail(model.Failure{Raster: name, Err: cerr}); ferr != nil {
				return result, ferr
			}
			continue
		}
		log.Debug().Str("raster", name).Int("bands", len(bands)).Msg("splitting")

		for _, band := range bands {
			if err := ctx.Err(); err != nil {
				return result, model.WrapCLIError(model.ExitGeneralError, "split cancelled", err)
			}
			attempted++

			output, err := c.splitOne(ctx, req, input, name, band, out, written)
			if err != nil {
				if ferr := fail(model.Failure{Raster: name, Band: band.Name, Err: err}); ferr != nil {
					return result, ferr
				}
				continue
			}
			result.Outputs = append(result.Outputs, output)
		}
	}

	log.Info().
		Int("written", len(result.Outputs)).
		Int("failed", len(result.Failures)).
		Msg("split finished")

	if len(result.Failures) > 0 {
		return result, partialFailure(fmt.Sprintf("%d of %d band(s) failed", len(result.Failures), attempted), result.Failures)
	}
	return result, nil
}

// splitOne copies one band to its output file after checking the name is
// free.
func (c *Classifier) splitOne(ctx context.Context, req SplitRequest, input, name string, band model.Band, out string, written map[string]string) (model.BandOutput, error) {
	dest := filepath.Join(out, BandFileName(name, band, req.PrefixRasterName))
	label := fmt.Sprintf("band %q of %s", band.Name, name)

	key := strings.ToLower(dest)
	if prev, ok := written[key]; ok {
		return model.BandOutput{}, model.NewCLIError(model.ExitBandCopyError,
			fmt.Sprintf("%s maps to %s, already written for %s", label, dest, prev))
	}
	if strings.EqualFold(dest, input) {
		return model.BandOutput{}, model.NewCLIError(model.ExitBandCopyError,
			fmt.Sprintf("%s would overwrite its source raster", label))
	}
	if _, err := os.Stat(dest); err == nil {
		if !req.Overwrite {
			return model.BandOutput{}, model.NewCLIError(model.ExitBandCopyError,
				fmt.Sprintf("%s: output %s already exists", label, dest))
		}
		if err := os.Remove(dest); err != nil {
			return model.BandOutput{}, model.WrapCLIError(model.ExitBandCopyError,
				fmt.Sprintf("%s: failed to replace %s", label, dest), err)
		}
	}
	written[key] = label

	if err := c.engine.CopyBand(ctx, input, band, dest); err != nil {
		return model.BandOutput{}, model.WrapCLIError(model.ExitBandCopyError,
			fmt.Sprintf("failed to copy %s", label), err)
	}
	return model.BandOutput{Raster: name, Band: band, Path: dest}, nil
}

// BandFileName returns the output file name of band: "<band>.tif", or
// "<raster>_<band>.tif" with prefix set. Both parts are sanitised.
func BandFileName(raster string, band model.Band, prefix bool) string {
	base := engine.SanitizeName(band.Name)
	if prefix {
		base = engine.SanitizeName(strings.TrimSuffix(raster, filepath.Ext(raster))) + "_" + base
	}
	return base + bandExt
}
