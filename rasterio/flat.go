// Package rasterio writes a finished pipeline.Raster to the sink formats a
// composite actually needs to inspect or hand off downstream: a flattened
// scanline EXR and an 8/16-bit sRGB PNG.
package rasterio

import (
	"fmt"
	"os"

	"github.com/mrjoshuak/go-openexr/exr"
	"github.com/mrjoshuak/go-openexr/pipeline"
)

// FlatWriter writes a pipeline.Raster as a standard (non-deep) RGBA
// scanline EXR, through exr.ScanlineWriter and exr.RGBAFrameBuffer.
type FlatWriter struct {
	path string
}

// NewFlatWriter returns a FlatWriter that writes to path.
func NewFlatWriter(path string) *FlatWriter {
	return &FlatWriter{path: path}
}

// WriteRaster implements pipeline.Sink.
func (w *FlatWriter) WriteRaster(raster *pipeline.Raster) error {
	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("rasterio: create %s: %w", w.path, err)
	}
	defer f.Close()

	sw, err := exr.NewScanlineWriter(f, raster.Width, raster.Height)
	if err != nil {
		return fmt.Errorf("rasterio: %s: %w", w.path, err)
	}

	rgba := exr.NewRGBAFrameBuffer(raster.Width, raster.Height, true)
	for y := 0; y < raster.Height; y++ {
		for x := 0; x < raster.Width; x++ {
			r, g, b, a := raster.At(x, y)
			rgba.SetPixel(x, y, r, g, b, a)
		}
	}
	sw.SetFrameBuffer(rgba.ToFrameBuffer())

	if err := sw.WritePixels(raster.Height); err != nil {
		return fmt.Errorf("rasterio: write %s: %w", w.path, err)
	}
	if err := sw.Finalize(); err != nil {
		return fmt.Errorf("rasterio: finalize %s: %w", w.path, err)
	}
	return nil
}
