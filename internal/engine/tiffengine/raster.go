package tiffengine

import (
	"fmt"
	"image"
	"os"

	"golang.org/x/image/tiff"
)

// raster is a decoded TIFF viewed as a stack of bands.
type raster struct {
	img   image.Image
	bands int
	depth int // bits per sample of the decoded image: 8 or 16

	// Gray samples are stored as the decoder returns them: narrower samples
	// stretched to 0..255 and WhiteIsZero data inverted. sample undoes both.
	bits     int
	inverted bool
}

// readRaster decodes the TIFF at path. The band count comes from the
// file's SamplesPerPixel, not from the pixel content.
func readRaster(path string) (*raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	l, err := readLayout(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode TIFF %s: %w", path, err)
	}
	img, err := tiff.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode TIFF %s: %w", path, err)
	}

	r := &raster{img: img, bits: l.bits}
	switch img.(type) {
	case *image.Gray:
		r.bands, r.depth = 1, 8
		r.inverted = l.photometric == photometricWhiteIsZero
	case *image.Gray16:
		r.bands, r.depth = 1, 16
		r.inverted = l.photometric == photometricWhiteIsZero
	case *image.Paletted:
		r.bands, r.depth = 1, 8
	case *image.RGBA, *image.NRGBA:
		r.bands, r.depth = l.samples, 8
	case *image.RGBA64, *image.NRGBA64:
		r.bands, r.depth = l.samples, 16
	default:
		return nil, fmt.Errorf("unsupported TIFF pixel layout %T in %s", img, path)
	}
	if r.bands < 1 || r.bands > 4 {
		return nil, fmt.Errorf("unsupported TIFF sample count %d in %s", r.bands, path)
	}
	return r, nil
}

// gray maps a decoded gray value back to the stored sample.
func (r *raster) gray(v, full uint16) uint16 {
	if r.inverted {
		v = full - v
	}
	if r.bits < 8 {
		top := uint32(1)<<r.bits - 1
		v = uint16((uint32(v)*top + 127) / 255)
	}
	return v
}

// size returns the raster width and height.
func (r *raster) size() (int, int) {
	b := r.img.Bounds()
	return b.Dx(), b.Dy()
}

// sample returns the value of band (1-based) at pixel (x, y) relative to
// the image origin.
func (r *raster) sample(band, x, y int) uint16 {
	b := r.img.Bounds()
	x += b.Min.X
	y += b.Min.Y

	switch m := r.img.(type) {
	case *image.Gray:
		return r.gray(uint16(m.GrayAt(x, y).Y), 0xff)
	case *image.Gray16:
		return r.gray(m.Gray16At(x, y).Y, 0xffff)
	case *image.Paletted:
		return uint16(m.ColorIndexAt(x, y))
	case *image.RGBA:
		return uint16(m.Pix[m.PixOffset(x, y)+band-1])
	case *image.NRGBA:
		return uint16(m.Pix[m.PixOffset(x, y)+band-1])
	case *image.RGBA64:
		i := m.PixOffset(x, y) + (band-1)*2
		return uint16(m.Pix[i])<<8 | uint16(m.Pix[i+1])
	case *image.NRGBA64:
		i := m.PixOffset(x, y) + (band-1)*2
		return uint16(m.Pix[i])<<8 | uint16(m.Pix[i+1])
	}
	return 0
}

// bandValues returns band (1-based) as a row-major slice of float64.
func (r *raster) bandValues(band int) []float64 {
	w, h := r.size()
	out := make([]float64, 0, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out = append(out, float64(r.sample(band, x, y)))
		}
	}
	return out
}

// bandImage extracts band (1-based) as a grayscale image of the raster's
// bit depth.
func (r *raster) bandImage(band int) image.Image {
	w, h := r.size()
	rect := image.Rect(0, 0, w, h)

	if r.depth == 8 {
		g := image.NewGray(rect)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				g.Pix[g.PixOffset(x, y)] = uint8(r.sample(band, x, y))
			}
		}
		return g
	}

	g := image.NewGray16(rect)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := r.sample(band, x, y)
			i := g.PixOffset(x, y)
			g.Pix[i] = uint8(v >> 8)
			g.Pix[i+1] = uint8(v)
		}
	}
	return g
}

// writeTIFF encodes img to path with Deflate compression, replacing any
// existing file. A partially written file is removed on failure.
func writeTIFF(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("failed to encode TIFF %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}
