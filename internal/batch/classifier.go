package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/shinji-kodama/rasterbatch/internal/engine"
	"github.com/shinji-kodama/rasterbatch/internal/export"
	"github.com/shinji-kodama/rasterbatch/internal/model"
	"github.com/shinji-kodama/rasterbatch/internal/scheme"
	"github.com/shinji-kodama/rasterbatch/internal/scratch"
	"github.com/shinji-kodama/rasterbatch/internal/workspace"
)

// Classifier runs the batch pipelines against one engine.
type Classifier struct {
	engine    engine.Engine
	workspace *workspace.Manager
	out       io.Writer
	log       zerolog.Logger
}

// New creates a Classifier. Attribute tables are printed to out; pass
// io.Discard to suppress the text stream. The engine decides which file
// extensions count as rasters.
func New(eng engine.Engine, out io.Writer, log zerolog.Logger) *Classifier {
	if out == nil {
		out = io.Discard
	}
	return &Classifier{
		engine:    eng,
		workspace: workspace.NewManager(eng.Extensions()...),
		out:       out,
		log:       log,
	}
}

// RunRequest describes one classification run.
type RunRequest struct {
	// Workspace is the directory whose rasters are classified.
	Workspace string

	// Scheme maps value ranges to output classes.
	Scheme scheme.Scheme

	// Band is the 1-based band to classify. Zero means band 1.
	Band int

	// Policy decides what happens to values outside every range.
	Policy model.NoDataPolicy

	// Export enables the statistics export when non-nil.
	Export *export.Spec

	// ScratchDir is the parent of the run's scratch directory; empty
	// means the system temporary directory.
	ScratchDir string

	// KeepScratch leaves the classified rasters on disk after the run.
	KeepScratch bool

	// ContinueOnError records failing rasters and keeps going.
	ContinueOnError bool

	// RunID names the scratch directory.
	RunID string
}

// Run classifies every raster of req.Workspace and prints its attribute
// table. See the package documentation for the output format.
//
// The returned result is non-nil whenever the workspace could be
// enumerated, and lists the rasters processed before any error.
func (c *Classifier) Run(ctx context.Context, req RunRequest) (result *model.RunResult, err error) {
	if err := req.Scheme.Validate(); err != nil {
		return nil, model.WrapCLIError(model.ExitClassificationError, "invalid classification scheme", err)
	}
	band := req.Band
	if band == 0 {
		band = 1
	}
	if band < 0 {
		return nil, model.NewCLIError(model.ExitClassificationError, fmt.Sprintf("invalid band %d", band))
	}
	policy := req.Policy
	if policy == "" {
		policy = model.PolicyNoData
	}

	dir, err := c.workspace.Resolve(req.Workspace)
	if err != nil {
		return nil, err
	}
	names, err := c.workspace.ListRasters(dir)
	if err != nil {
		return nil, err
	}

	result = &model.RunResult{Workspace: dir, Rasters: []model.RasterStats{}}
	log := c.log.With().Str("workspace", dir).Logger()
	log.Debug().Int("rasters", len(names)).Str("engine", c.engine.Name()).Msg("workspace enumerated")

	var sink export.Sink
	if req.Export != nil {
		sink, err = export.Open(*req.Export)
		if err != nil {
			return result, err
		}
		result.ExportPath = sink.Path()
		log.Debug().Str("path", sink.Path()).Stringer("format", sink.Format()).Msg("export opened")
		defer func() {
			if cerr := sink.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
	}

	dirs, err := scratch.Acquire(req.ScratchDir, req.RunID, req.KeepScratch)
	if err != nil {
		return result, model.WrapCLIError(model.ExitWorkspaceError, "failed to prepare scratch directory", err)
	}
	defer func() {
		if rerr := dirs.Release(); rerr != nil {
			log.Warn().Err(rerr).Msg("scratch directory not removed")
		}
	}()
	if dirs.Kept() {
		log.Info().Str("path", dirs.Path()).Msg("keeping scratch directory")
	}
	alloc := dirs.NewAllocator()

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return result, model.WrapCLIError(model.ExitGeneralError, "run cancelled", err)
		}

		stats, err := c.classifyOne(ctx, alloc, filepath.Join(dir, name), name, band, req.Scheme, policy)
		if err != nil {
			if ctx.Err() != nil || !req.ContinueOnError {
				return result, err
			}
			log.Warn().Err(err).Str("raster", name).Msg("raster failed, continuing")
			result.Failures = append(result.Failures, model.Failure{Raster: name, Err: err})
			continue
		}

		if err := c.print(stats); err != nil {
			return result, err
		}
		if sink != nil {
			if err := export.WriteAll(sink, model.RowsFor(name, stats.Stats)); err != nil {
				return result, err
			}
		}
		result.Rasters = append(result.Rasters, stats)
	}

	log.Info().
		Int("classified", len(result.Rasters)).
		Int("failed", len(result.Failures)).
		Int("scratch_rasters", alloc.Issued()).
		Msg("run finished")

	if len(result.Failures) > 0 {
		return result, partialFailure(fmt.Sprintf("%d of %d raster(s) failed", len(result.Failures), len(names)), result.Failures)
	}
	return result, nil
}

// classifyOne reclassifies one raster into a fresh scratch raster and
// reads back its attribute table.
func (c *Classifier) classifyOne(ctx context.Context, alloc *scratch.Allocator, input, name string, band int, s scheme.Scheme, policy model.NoDataPolicy) (model.RasterStats, error) {
	id, err := alloc.Allocate()
	if err != nil {
		return model.RasterStats{}, model.WrapCLIError(model.ExitWorkspaceError,
			fmt.Sprintf("failed to allocate scratch raster for %s", name), err)
	}
	c.log.Debug().Str("raster", name).Str("scratch", id.Name).Msg("classifying")

	classified, err := c.engine.Classify(ctx, engine.ClassifyRequest{
		Input:  input,
		Band:   band,
		Scheme: s,
		Output: id.Path,
		Policy: policy,
	})
	if err != nil {
		return model.RasterStats{}, model.WrapCLIError(model.ExitClassificationError,
			fmt.Sprintf("failed to classify %s", name), err)
	}

	stats, err := c.engine.ReadAttributeTable(ctx, classified)
	if err != nil {
		return model.RasterStats{}, model.WrapCLIError(model.ExitAttributeReadError,
			fmt.Sprintf("failed to read attribute table of %s", name), err)
	}
	if stats == nil {
		stats = []model.ClassStat{}
	}
	return model.RasterStats{Name: name, ScratchID: id.Name, Stats: stats}, nil
}

// print writes the header line and one "<value> <count>" line per row.
func (c *Classifier) print(stats model.RasterStats) error {
	if _, err := fmt.Fprintln(c.out, stats.Name); err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to write output", err)
	}
	for _, s := range stats.Stats {
		if _, err := fmt.Fprintln(c.out, s.String()); err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "failed to write output", err)
		}
	}
	return nil
}

// partialFailure joins failures into a single ExitPartialFailure error.
func partialFailure(message string, failures []model.Failure) error {
	errs := make([]error, len(failures))
	for i, f := range failures {
		errs[i] = f
	}
	return model.WrapCLIError(model.ExitPartialFailure, message, errors.Join(errs...))
}
