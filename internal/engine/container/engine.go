package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	ctypes "github.com/docker/docker/api/types/container"
	"github.com/rs/zerolog"

	"github.com/shinji-kodama/rasterbatch/internal/engine"
	"github.com/shinji-kodama/rasterbatch/internal/model"
)

// Name is the registry name of this engine.
const Name = "docker"

func init() {
	engine.Register(Name, "GDAL command-line tools in a Docker container ("+DefaultImage+")", Open)
}

// Engine implements engine.Engine by running GDAL utilities in
// containers.
type Engine struct {
	runner Runner
	client *Client
	runID  string
	log    zerolog.Logger
}

// Open connects to the Docker daemon and returns an engine running jobs
// in opts.Image.
func Open(ctx context.Context, opts engine.Options) (engine.Engine, error) {
	c, err := Connect(ctx)
	if err != nil {
		return nil, err
	}

	log := opts.Logger.With().Str("engine", Name).Logger()
	log.Debug().Str("host", c.Host()).Msg("connected to Docker daemon")
	e := New(NewDockerRunner(c, opts.Image, opts.RunID, opts.Pull, log), opts.RunID, log)
	e.client = c
	return e, nil
}

// New creates an engine on top of an arbitrary Runner.
func New(r Runner, runID string, log zerolog.Logger) *Engine {
	return &Engine{runner: r, runID: runID, log: log}
}

// Name returns "docker".
func (e *Engine) Name() string {
	return Name
}

// Extensions returns the raster extensions the batch pipeline picks up.
func (e *Engine) Extensions() []string {
	return []string{".tif", ".tiff", ".img", ".vrt"}
}

// run executes job and turns a non-zero exit code into an error carrying
// the command's stderr.
func (e *Engine) run(ctx context.Context, job Job) (Result, error) {
	res, err := e.runner.Run(ctx, job)
	if err != nil {
		return Result{}, err
	}
	if res.ExitCode != 0 {
		msg := strings.TrimSpace(string(res.Stderr))
		if msg == "" {
			msg = "no output"
		}
		return Result{}, fmt.Errorf("%s exited with code %d: %s", job.Cmd[0], res.ExitCode, msg)
	}
	return res, nil
}

// Classify runs gdal_calc.py with the scheme's where() expression.
func (e *Engine) Classify(ctx context.Context, req engine.ClassifyRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := engine.CheckClassRange(req.Scheme, math.MinInt32+1, math.MaxInt32); err != nil {
		return "", err
	}
	if req.Band < 1 {
		return "", engine.ValidateBand(req.Band, 1)
	}

	expr := CalcExpression(req.Scheme, req.Policy)
	_, err := e.run(ctx, Job{
		Step:  StepClassify,
		Input: req.Input,
		Cmd:   ClassifyCommand(req.Input, req.Band, req.Output, expr),
		Binds: Binds(
			Mount{Dir: filepath.Dir(req.Input), ReadOnly: true},
			Mount{Dir: filepath.Dir(req.Output)},
		),
	})
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(req.Output); err != nil {
		return "", fmt.Errorf("gdal_calc.py did not produce %s: %w", req.Output, err)
	}
	return req.Output, nil
}

// ReadAttributeTable dumps the classified raster as XYZ and counts the
// values in Go. The dump is parsed while the container writes it and is
// never held in memory.
func (e *Engine) ReadAttributeTable(ctx context.Context, classified string) ([]model.ClassStat, error) {
	pr, pw := io.Pipe()
	type parsed struct {
		stats []model.ClassStat
		err   error
	}
	done := make(chan parsed, 1)
	go func() {
		stats, err := ParseXYZ(pr, NoData)
		// Fail the producer's next write instead of blocking it.
		pr.CloseWithError(err)
		done <- parsed{stats: stats, err: err}
	}()

	_, runErr := e.run(ctx, Job{
		Step:   StepTabulate,
		Input:  classified,
		Cmd:    TabulateCommand(classified),
		Binds:  Binds(Mount{Dir: filepath.Dir(classified), ReadOnly: true}),
		Stdout: pw,
	})
	pw.CloseWithError(runErr)
	p := <-done

	// A parse failure surfaces in runErr as the pipe's write error.
	if runErr != nil && (p.err == nil || !errors.Is(runErr, p.err)) {
		return nil, runErr
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.stats, nil
}

// DescribeBands parses gdalinfo -json output.
func (e *Engine) DescribeBands(ctx context.Context, input string) ([]model.Band, error) {
	res, err := e.run(ctx, Job{
		Step:  StepDescribe,
		Input: input,
		Cmd:   DescribeCommand(input),
		Binds: Binds(Mount{Dir: filepath.Dir(input), ReadOnly: true}),
	})
	if err != nil {
		return nil, err
	}
	return ParseGDALInfo(res.Stdout)
}

// CopyBand runs gdal_translate -b N.
func (e *Engine) CopyBand(ctx context.Context, input string, band model.Band, dest string) error {
	if band.Index < 1 {
		return engine.ValidateBand(band.Index, 1)
	}
	if err := os.Remove(dest); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	_, err := e.run(ctx, Job{
		Step:  StepCopyBand,
		Input: input,
		Cmd:   CopyBandCommand(input, band.Index, dest),
		Binds: Binds(
			Mount{Dir: filepath.Dir(input), ReadOnly: true},
			Mount{Dir: filepath.Dir(dest)},
		),
	})
	return err
}

// Close removes containers of this run left behind by an interrupted
// call and closes the Docker client.
func (e *Engine) Close() error {
	if e.client == nil {
		return nil
	}
	if e.runID != "" {
		if err := RemoveRunContainers(context.Background(), e.client, e.runID); err != nil {
			e.log.Warn().Err(err).Msg("failed to remove leftover containers")
		}
	}
	return e.client.Close()
}

// RemoveRunContainers force-removes every container labelled with runID.
func RemoveRunContainers(ctx context.Context, c *Client, runID string) error {
	list, err := c.Inner().ContainerList(ctx, ctypes.ListOptions{
		All:     true,
		Filters: RunFilter(runID),
	})
	if err != nil {
		return fmt.Errorf("failed to list containers of run %s: %w", runID, err)
	}

	var errs []error
	for _, ctr := range list {
		if err := c.Inner().ContainerRemove(ctx, ctr.ID, ctypes.RemoveOptions{Force: true}); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove container %s: %w", ctr.ID, err))
		}
	}
	return errors.Join(errs...)
}
