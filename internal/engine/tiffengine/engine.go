package tiffengine

import (
	"context"
	"fmt"
	"image"

	"github.com/rs/zerolog"

	"github.com/shinji-kodama/rasterbatch/internal/engine"
	"github.com/shinji-kodama/rasterbatch/internal/model"
	"github.com/shinji-kodama/rasterbatch/internal/scheme"
)

const (
	// Name is the registry name of this engine.
	Name = "tiff"

	// NoData is the sentinel written for no-data pixels in classified
	// rasters.
	NoData = 65535

	// MaxClass is the largest class value a classified raster can hold.
	MaxClass = NoData - 1
)

func init() {
	engine.Register(Name, "pure Go, baseline TIFF (1/8/16-bit gray, paletted, RGB/RGBA)",
		func(_ context.Context, opts engine.Options) (engine.Engine, error) {
			return New(opts.Logger), nil
		})
}

// Engine implements engine.Engine on top of golang.org/x/image/tiff.
type Engine struct {
	log zerolog.Logger
}

// New creates a TIFF engine.
func New(log zerolog.Logger) *Engine {
	return &Engine{log: log.With().Str("engine", Name).Logger()}
}

// Name returns "tiff".
func (e *Engine) Name() string {
	return Name
}

// Extensions returns the TIFF extensions.
func (e *Engine) Extensions() []string {
	return []string{".tif", ".tiff"}
}

// Classify reclassifies one band of req.Input into a 16-bit TIFF at
// req.Output.
func (e *Engine) Classify(ctx context.Context, req engine.ClassifyRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := engine.CheckClassRange(req.Scheme, 0, MaxClass); err != nil {
		return "", err
	}

	r, err := readRaster(req.Input)
	if err != nil {
		return "", err
	}
	if err := engine.ValidateBand(req.Band, r.bands); err != nil {
		return "", err
	}

	classified := req.Scheme.Reclassify(r.bandValues(req.Band), scheme.Options{
		Policy: req.Policy,
		NoData: NoData,
	})

	w, h := r.size()
	out := image.NewGray16(image.Rect(0, 0, w, h))
	for i, v := range classified {
		// Under the data policy an unclassified 16-bit value may be 65535
		// itself; it is indistinguishable from no-data in the output.
		px := uint16(v)
		out.Pix[2*i] = uint8(px >> 8)
		out.Pix[2*i+1] = uint8(px)
	}

	if err := writeTIFF(req.Output, out); err != nil {
		return "", err
	}
	e.log.Debug().
		Str("input", req.Input).
		Int("band", req.Band).
		Str("output", req.Output).
		Int("pixels", len(classified)).
		Msg("classified raster")
	return req.Output, nil
}

// ReadAttributeTable counts the class values of a classified raster.
// 8-bit inputs have no no-data value; 16-bit inputs use NoData.
func (e *Engine) ReadAttributeTable(ctx context.Context, classified string) ([]model.ClassStat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r, err := readRaster(classified)
	if err != nil {
		return nil, err
	}
	if r.bands != 1 {
		return nil, fmt.Errorf("classified raster %s has %d bands, expected 1", classified, r.bands)
	}

	noData := int64(-1)
	if r.depth == 16 {
		noData = NoData
	}
	counter := scheme.NewCounter(noData)
	w, h := r.size()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			counter.Add(int64(r.sample(1, x, y)))
		}
	}
	return counter.Stats(), nil
}

// DescribeBands returns Band_1..Band_n; baseline TIFF has no band
// descriptions.
func (e *Engine) DescribeBands(ctx context.Context, input string) ([]model.Band, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := readRaster(input)
	if err != nil {
		return nil, err
	}
	return engine.BandsFromDescriptions(make([]string, r.bands)), nil
}

// CopyBand writes one band of input to dest as a grayscale TIFF of the
// source bit depth.
func (e *Engine) CopyBand(ctx context.Context, input string, band model.Band, dest string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r, err := readRaster(input)
	if err != nil {
		return err
	}
	if err := engine.ValidateBand(band.Index, r.bands); err != nil {
		return err
	}
	if err := writeTIFF(dest, r.bandImage(band.Index)); err != nil {
		return err
	}
	e.log.Debug().Str("input", input).Str("band", band.Name).Str("dest", dest).Msg("copied band")
	return nil
}

// Close is a no-op.
func (e *Engine) Close() error {
	return nil
}
