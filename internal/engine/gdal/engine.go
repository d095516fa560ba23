package gdal

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/rs/zerolog"

	"github.com/shinji-kodama/rasterbatch/internal/engine"
	"github.com/shinji-kodama/rasterbatch/internal/model"
	"github.com/shinji-kodama/rasterbatch/internal/scheme"
)

const (
	// Name is the registry name of this engine.
	Name = "gdal"

	// NoData is the sentinel written for no-data pixels in classified
	// rasters.
	NoData = math.MinInt32
)

// creationOptions are the GeoTIFF creation options of classified rasters.
var creationOptions = []string{"COMPRESS=DEFLATE", "TILED=YES"}

var registerOnce sync.Once

func init() {
	engine.Register(Name, "GDAL library (any GDAL-readable raster, georeferencing kept)",
		func(_ context.Context, opts engine.Options) (engine.Engine, error) {
			return New(opts.Logger), nil
		})
}

// Engine implements engine.Engine with GDAL.
type Engine struct {
	log zerolog.Logger
}

// New creates a GDAL engine. GDAL drivers are registered on first use.
func New(log zerolog.Logger) *Engine {
	registerOnce.Do(godal.RegisterAll)
	return &Engine{log: log.With().Str("engine", Name).Logger()}
}

// Name returns "gdal".
func (e *Engine) Name() string {
	return Name
}

// Extensions returns the raster extensions the batch pipeline picks up.
func (e *Engine) Extensions() []string {
	return []string{".tif", ".tiff", ".img", ".vrt"}
}

// Classify reclassifies one band of req.Input into an Int32 GeoTIFF,
// row by row, and copies the source georeferencing.
func (e *Engine) Classify(ctx context.Context, req engine.ClassifyRequest) (out string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := engine.CheckClassRange(req.Scheme, math.MinInt32+1, math.MaxInt32); err != nil {
		return "", err
	}

	src, err := godal.Open(req.Input)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", req.Input, err)
	}
	defer src.Close()

	bands := src.Bands()
	if err := engine.ValidateBand(req.Band, len(bands)); err != nil {
		return "", err
	}
	band := bands[req.Band-1]
	st := band.Structure()

	opts := scheme.Options{Policy: req.Policy, NoData: NoData}
	if nd, ok := band.NoData(); ok {
		opts.SourceNoData, opts.HasSourceNoData = nd, true
	}

	if err := os.Remove(req.Output); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", err
	}
	dst, err := godal.Create(godal.GTiff, req.Output, 1, godal.Int32, st.SizeX, st.SizeY,
		godal.CreationOption(creationOptions...))
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", req.Output, err)
	}
	defer func() {
		if cerr := dst.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", req.Output, cerr)
		}
		if err != nil {
			os.Remove(req.Output)
		}
	}()

	if gt, gerr := src.GeoTransform(); gerr == nil {
		if err := dst.SetGeoTransform(gt); err != nil {
			return "", err
		}
	}
	if wkt := src.Projection(); wkt != "" {
		if err := dst.SetProjection(wkt); err != nil {
			return "", err
		}
	}

	outBand := dst.Bands()[0]
	if err := outBand.SetNoData(NoData); err != nil {
		return "", err
	}

	row := make([]float64, st.SizeX)
	classified := make([]int32, st.SizeX)
	for y := 0; y < st.SizeY; y++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := band.Read(0, y, row, st.SizeX, 1); err != nil {
			return "", fmt.Errorf("failed to read row %d of %s: %w", y, req.Input, err)
		}
		for i, v := range req.Scheme.Reclassify(row, opts) {
			classified[i] = clampInt32(v)
		}
		if err := outBand.Write(0, y, classified, st.SizeX, 1); err != nil {
			return "", fmt.Errorf("failed to write row %d of %s: %w", y, req.Output, err)
		}
	}

	e.log.Debug().
		Str("input", req.Input).
		Int("band", req.Band).
		Str("output", req.Output).
		Int("width", st.SizeX).
		Int("height", st.SizeY).
		Msg("classified raster")
	return req.Output, nil
}

// clampInt32 maps values an Int32 band cannot hold to no-data.
func clampInt32(v int64) int32 {
	if v < math.MinInt32 || v > math.MaxInt32 {
		return NoData
	}
	return int32(v)
}

// ReadAttributeTable counts the values of band 1 of classified, skipping
// the band's no-data value.
func (e *Engine) ReadAttributeTable(ctx context.Context, classified string) ([]model.ClassStat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ds, err := godal.Open(classified)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", classified, err)
	}
	defer ds.Close()

	bands := ds.Bands()
	if len(bands) != 1 {
		return nil, fmt.Errorf("classified raster %s has %d bands, expected 1", classified, len(bands))
	}
	band := bands[0]
	st := band.Structure()

	noData := int64(NoData)
	if nd, ok := band.NoData(); ok {
		noData = int64(nd)
	}

	counter := scheme.NewCounter(noData)
	row := make([]int32, st.SizeX)
	for y := 0; y < st.SizeY; y++ {
		if err := band.Read(0, y, row, st.SizeX, 1); err != nil {
			return nil, fmt.Errorf("failed to read row %d of %s: %w", y, classified, err)
		}
		for _, v := range row {
			counter.Add(int64(v))
		}
	}
	return counter.Stats(), nil
}

// DescribeBands lists the bands of input with their descriptions.
func (e *Engine) DescribeBands(ctx context.Context, input string) ([]model.Band, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ds, err := godal.Open(input)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", input, err)
	}
	defer ds.Close()

	bands := ds.Bands()
	descriptions := make([]string, len(bands))
	for i, b := range bands {
		descriptions[i] = b.Description()
	}
	return engine.BandsFromDescriptions(descriptions), nil
}

// CopyBand runs the equivalent of "gdal_translate -b N -of GTiff".
func (e *Engine) CopyBand(ctx context.Context, input string, band model.Band, dest string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ds, err := godal.Open(input)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", input, err)
	}
	defer ds.Close()

	if err := engine.ValidateBand(band.Index, ds.Structure().NBands); err != nil {
		return err
	}
	if err := os.Remove(dest); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	out, err := ds.Translate(dest, []string{"-b", strconv.Itoa(band.Index), "-of", "GTiff"})
	if err != nil {
		return fmt.Errorf("failed to translate band %d of %s: %w", band.Index, input, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", dest, err)
	}
	e.log.Debug().Str("input", input).Str("band", band.Name).Str("dest", dest).Msg("copied band")
	return nil
}

// Close is a no-op; datasets are closed by each call.
func (e *Engine) Close() error {
	return nil
}
