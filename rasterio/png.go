package rasterio

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/mrjoshuak/go-openexr/pipeline"
)

// unpremultEps guards the divide-by-alpha when un-premultiplying a pixel
// whose alpha is at or near zero.
const unpremultEps = 1e-6

// PNGWriter un-premultiplies and sRGB-gamma-encodes a pipeline.Raster and
// writes it as an 8- or 16-bit PNG.
type PNGWriter struct {
	path     string
	bitDepth int
}

// NewPNGWriter returns a PNGWriter for path. bitDepth must be 8 or 16; any
// other value is treated as 8.
func NewPNGWriter(path string, bitDepth int) *PNGWriter {
	if bitDepth != 16 {
		bitDepth = 8
	}
	return &PNGWriter{path: path, bitDepth: bitDepth}
}

// WriteRaster implements pipeline.Sink.
func (w *PNGWriter) WriteRaster(raster *pipeline.Raster) error {
	var img image.Image
	if w.bitDepth == 16 {
		img = w.encode16(raster)
	} else {
		img = w.encode8(raster)
	}

	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("rasterio: create %s: %w", w.path, err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("rasterio: encode %s: %w", w.path, err)
	}
	return nil
}

func unpremultiply(rr, gg, bb, aa float32) (r, g, b, a float64) {
	a = float64(aa)
	if aa < unpremultEps {
		return 0, 0, 0, a
	}
	inv := 1 / float64(aa)
	r = float64(rr) * inv
	g = float64(gg) * inv
	b = float64(bb) * inv
	if r > 1 {
		r = 1
	}
	if g > 1 {
		g = 1
	}
	if b > 1 {
		b = 1
	}
	return r, g, b, a
}

func (w *PNGWriter) encode8(raster *pipeline.Raster) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, raster.Width, raster.Height))
	for y := 0; y < raster.Height; y++ {
		for x := 0; x < raster.Width; x++ {
			rr, gg, bb, aa := raster.At(x, y)
			r, g, b, a := unpremultiply(rr, gg, bb, aa)
			gamma := colorful.LinearRgb(r, g, b)
			r8, g8, b8 := gamma.RGB255()
			img.SetNRGBA(x, y, color.NRGBA{R: r8, G: g8, B: b8, A: clamp255(a)})
		}
	}
	return img
}

func (w *PNGWriter) encode16(raster *pipeline.Raster) image.Image {
	img := image.NewNRGBA64(image.Rect(0, 0, raster.Width, raster.Height))
	for y := 0; y < raster.Height; y++ {
		for x := 0; x < raster.Width; x++ {
			rr, gg, bb, aa := raster.At(x, y)
			r, g, b, a := unpremultiply(rr, gg, bb, aa)
			gamma := colorful.LinearRgb(r, g, b)
			img.SetNRGBA64(x, y, color.NRGBA64{
				R: clamp16(gamma.R),
				G: clamp16(gamma.G),
				B: clamp16(gamma.B),
				A: clamp16(a),
			})
		}
	}
	return img
}

func clamp255(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

func clamp16(v float64) uint16 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 65535
	}
	return uint16(v*65535 + 0.5)
}
