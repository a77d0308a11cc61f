// Package exrsource adapts the exr package's deep-scanline reader and
// writer to the pipeline package's abstract Source/Sink contracts. It is
// the only package that imports both exr and pipeline; pipeline's core
// stages never see an exr.DeepSlice or exr.Header directly, matching the
// decoder-independence the compositor's design calls for.
package exrsource

import (
	"errors"
	"fmt"

	"github.com/mrjoshuak/go-openexr/exr"
)

// Errors returned by NewReader.
var (
	ErrNotDeepScanline = errors.New("exrsource: file is not a deep scanline image")
)

const (
	chR     = "R"
	chG     = "G"
	chB     = "B"
	chA     = "A"
	chZ     = "Z"
	chZBack = "ZBack"
)

// Reader implements pipeline.Source over a deep-scanline EXR file. Rows are
// read lazily, one at a time, so a Reader's resident memory does not grow
// with image height beyond the frame buffer's per-row pointer bookkeeping
// that exr.DeepFrameBuffer requires.
type Reader struct {
	file   *exr.File
	rd     *exr.DeepScanlineReader
	fb     *exr.DeepFrameBuffer
	width  int
	height int
	hasZB  bool
}

// NewReader opens path as a deep-scanline EXR file.
func NewReader(path string) (*Reader, error) {
	file, err := exr.OpenFileMmap(path)
	if err != nil {
		return nil, fmt.Errorf("exrsource: open %s: %w", path, err)
	}

	if !file.IsDeep() || file.Header(0).IsTiled() {
		file.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotDeepScanline, path)
	}

	rd, err := exr.NewDeepScanlineReader(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("exrsource: %s: %w", path, err)
	}

	header := file.Header(0)
	width, height := header.Width(), header.Height()
	channels := header.Channels()

	fb := exr.NewDeepFrameBuffer(width, height)
	fb.Insert(chR, exr.PixelTypeFloat)
	fb.Insert(chG, exr.PixelTypeFloat)
	fb.Insert(chB, exr.PixelTypeFloat)
	fb.Insert(chA, exr.PixelTypeFloat)
	fb.Insert(chZ, exr.PixelTypeFloat)
	hasZB := channels.Get(chZBack) != nil
	if hasZB {
		fb.Insert(chZBack, exr.PixelTypeFloat)
	}
	rd.SetFrameBuffer(fb)

	return &Reader{
		file: file, rd: rd, fb: fb,
		width: width, height: height, hasZB: hasZB,
	}, nil
}

// Width returns the image width in pixels.
func (r *Reader) Width() int { return r.width }

// Height returns the image height in pixels.
func (r *Reader) Height() int { return r.height }

// SampleCounts fills dst with row's per-pixel sample counts.
func (r *Reader) SampleCounts(row int, dst []uint32) error {
	if err := r.rd.ReadPixelSampleCounts(row, row); err != nil {
		return fmt.Errorf("exrsource: sample counts row %d: %w", row, err)
	}
	for x := 0; x < r.width; x++ {
		dst[x] = r.fb.GetSampleCount(x, row)
	}
	return nil
}

// ReadRow fills dstCounts and dstData with row's deep samples, substituting
// Z for ZBack when the file has no ZBack channel.
func (r *Reader) ReadRow(row int, dstCounts []uint32, dstData []float32) error {
	if err := r.rd.ReadPixelSampleCounts(row, row); err != nil {
		return fmt.Errorf("exrsource: sample counts row %d: %w", row, err)
	}
	if err := r.rd.ReadPixels(row, row); err != nil {
		return fmt.Errorf("exrsource: read pixels row %d: %w", row, err)
	}

	cursor := 0
	for x := 0; x < r.width; x++ {
		count := int(r.fb.GetSampleCount(x, row))
		dstCounts[x] = uint32(count)

		rs := r.fb.Slices[chR]
		gs := r.fb.Slices[chG]
		bs := r.fb.Slices[chB]
		as := r.fb.Slices[chA]
		zs := r.fb.Slices[chZ]
		var zbs *exr.DeepSlice
		if r.hasZB {
			zbs = r.fb.Slices[chZBack]
		}

		for s := 0; s < count; s++ {
			base := cursor * 6
			z := zs.GetSampleFloat32(x, row, s)
			zb := z
			if zbs != nil {
				zb = zbs.GetSampleFloat32(x, row, s)
			}
			dstData[base+0] = rs.GetSampleFloat32(x, row, s)
			dstData[base+1] = gs.GetSampleFloat32(x, row, s)
			dstData[base+2] = bs.GetSampleFloat32(x, row, s)
			dstData[base+3] = as.GetSampleFloat32(x, row, s)
			dstData[base+4] = z
			dstData[base+5] = zb
			cursor++
		}
	}

	// Release this row's sample storage; the frame buffer's top-level
	// pointer arrays stay sized to the whole image (exr.DeepScanlineReader
	// indexes them by absolute row), but the per-pixel sample slices for a
	// row that has already been consumed are dropped here so memory does
	// not grow with image height.
	for _, slice := range r.fb.Slices {
		slice.Pointers[row] = make([]interface{}, r.width)
	}

	return nil
}

// Close releases the underlying file handle or memory mapping.
func (r *Reader) Close() error {
	return r.file.Close()
}
