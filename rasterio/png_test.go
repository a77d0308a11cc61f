package rasterio

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/mrjoshuak/go-openexr/pipeline"
)

func TestPNGWriterProducesDecodablePNG(t *testing.T) {
	raster := pipeline.NewRaster(8, 6)
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			raster.Set(x, y, 0.25, 0.5, 0.75, 1)
		}
	}

	path := filepath.Join(t.TempDir(), "out.png")
	if err := NewPNGWriter(path, 8).WriteRaster(raster); err != nil {
		t.Fatalf("WriteRaster: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 8 || b.Dy() != 6 {
		t.Fatalf("decoded size %dx%d, want 8x6", b.Dx(), b.Dy())
	}

	r, g, bb, a := img.At(0, 0).RGBA()
	if a == 0 {
		t.Fatal("alpha channel is fully transparent")
	}
	// Linear 0.25 should gamma-encode brighter than its linear value.
	if r == 0 || g == 0 || bb == 0 {
		t.Fatal("color channels unexpectedly zero")
	}
	if r <= 0xFFFF/4 {
		t.Errorf("R = %d, want above linear 0.25 (%d) after sRGB encoding", r, 0xFFFF/4)
	}
}

func TestPNGWriterZeroAlphaDoesNotDivideByZero(t *testing.T) {
	raster := pipeline.NewRaster(2, 2)
	path := filepath.Join(t.TempDir(), "transparent.png")
	if err := NewPNGWriter(path, 8).WriteRaster(raster); err != nil {
		t.Fatalf("WriteRaster: %v", err)
	}
}

func TestPNGWriter16Bit(t *testing.T) {
	raster := pipeline.NewRaster(2, 2)
	raster.Set(0, 0, 0.5, 0.5, 0.5, 1)
	path := filepath.Join(t.TempDir(), "out16.png")
	if err := NewPNGWriter(path, 16).WriteRaster(raster); err != nil {
		t.Fatalf("WriteRaster: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	if _, err := png.Decode(f); err != nil {
		t.Fatalf("Decode: %v", err)
	}
}
