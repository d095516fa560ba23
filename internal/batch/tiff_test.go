package batch

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"github.com/shinji-kodama/rasterbatch/internal/engine/tiffengine"
	"github.com/shinji-kodama/rasterbatch/internal/export"
	"github.com/shinji-kodama/rasterbatch/internal/model"
	"github.com/shinji-kodama/rasterbatch/internal/scheme"
)

func writeFixture(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, tiff.Encode(f, img, nil))
}

// TestRun_TIFFEngine runs the whole pipeline on generated TIFFs.
func TestRun_TIFFEngine(t *testing.T) {
	ws := t.TempDir()

	// 20x10 raster: 120 zeros, 80 ones.
	gray := image.NewGray(image.Rect(0, 0, 20, 10))
	for i := range gray.Pix {
		if i >= 120 {
			gray.Pix[i] = 1
		}
	}
	writeFixture(t, filepath.Join(ws, "raster1.tif"), gray)

	// Nothing in this raster falls into a class.
	blank := image.NewGray(image.Rect(0, 0, 3, 3))
	for i := range blank.Pix {
		blank.Pix[i] = 200
	}
	writeFixture(t, filepath.Join(ws, "raster2.tif"), blank)

	exportPath := filepath.Join(t.TempDir(), "stats.csv")
	var out bytes.Buffer
	c := New(tiffengine.New(zerolog.Nop()), &out, zerolog.Nop())

	result, err := c.Run(context.Background(), RunRequest{
		Workspace: ws,
		Scheme:    scheme.MustParse(scheme.DefaultText),
		Export:    &export.Spec{Path: exportPath, Overwrite: true},
		RunID:     "tiff",
	})
	require.NoError(t, err)

	assert.Equal(t, "raster1.tif\n0 120\n1 80\nraster2.tif\n", out.String())
	require.Len(t, result.Rasters, 2)
	assert.Equal(t, []model.ClassStat{}, result.Rasters[1].Stats)

	data, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	assert.Equal(t, "raster1.tif,0,120\nraster1.tif,1,80\n", string(data))
}

// TestSplitBands_TIFFEngine splits a generated RGBA TIFF; an opaque alpha
// channel is still a band.
func TestSplitBands_TIFFEngine(t *testing.T) {
	ws := t.TempDir()
	rgb := image.NewRGBA(image.Rect(0, 0, 2, 1))
	rgb.SetRGBA(0, 0, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	rgb.SetRGBA(1, 0, color.RGBA{R: 11, G: 21, B: 31, A: 255})
	src := filepath.Join(ws, "scene.tif")
	writeFixture(t, src, rgb)

	before, err := os.ReadFile(src)
	require.NoError(t, err)

	c := New(tiffengine.New(zerolog.Nop()), nil, zerolog.Nop())
	result, err := c.SplitBands(context.Background(), SplitRequest{Workspace: ws, PrefixRasterName: true})
	require.NoError(t, err)
	require.Len(t, result.Outputs, 4)

	for i, o := range result.Outputs {
		assert.Equal(t, i+1, o.Band.Index)
		assert.Equal(t, filepath.Join(ws, "bands", "scene_"+model.DefaultBandName(i+1)+".tif"), o.Path)
	}

	f, err := os.Open(result.Outputs[1].Path)
	require.NoError(t, err)
	defer f.Close()
	img, err := tiff.Decode(f)
	require.NoError(t, err)
	g, ok := img.(*image.Gray)
	require.True(t, ok, "band output should be 8-bit gray, got %T", img)
	assert.Equal(t, []uint8{20, 21}, g.Pix)

	after, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
