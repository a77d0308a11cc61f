package exrsource

import (
	"fmt"
	"os"

	"github.com/mrjoshuak/go-openexr/exr"
	"github.com/mrjoshuak/go-openexr/scanrow"
)

// Writer implements pipeline.DeepSink over a deep-scanline EXR file. Rows
// must be written in increasing order starting at 0, matching the merger's
// emission order, since the underlying exr.DeepScanlineWriter commits one
// chunk per call to WritePixels and its default compression (ZIPS) uses one
// scanline per chunk.
type Writer struct {
	f      *os.File
	wr     *exr.DeepScanlineWriter
	fb     *exr.DeepFrameBuffer
	width  int
	height int
	next   int
}

// NewWriter creates a deep-scanline EXR file at path for an image of the
// given dimensions.
func NewWriter(path string, width, height int) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("exrsource: create %s: %w", path, err)
	}

	wr, err := exr.NewDeepScanlineWriter(f, width, height)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("exrsource: %s: %w", path, err)
	}

	fb := exr.NewDeepFrameBuffer(width, height)
	fb.Insert(chR, exr.PixelTypeFloat)
	fb.Insert(chG, exr.PixelTypeFloat)
	fb.Insert(chB, exr.PixelTypeFloat)
	fb.Insert(chA, exr.PixelTypeFloat)
	fb.Insert(chZ, exr.PixelTypeFloat)
	fb.Insert(chZBack, exr.PixelTypeFloat)
	wr.SetFrameBuffer(fb)

	return &Writer{f: f, wr: wr, fb: fb, width: width, height: height}, nil
}

// WriteDeepRow writes row's deep samples. counts holds one entry per pixel
// and data holds counts[x] consecutive (R,G,B,A,ZFront,ZBack) sextuples per
// pixel, in the layout scanrow.Row produces.
func (w *Writer) WriteDeepRow(row int, counts []uint32, data []float32) error {
	if row != w.next {
		return fmt.Errorf("exrsource: writer: row %d written out of order, expected %d", row, w.next)
	}

	cursor := 0
	for x := 0; x < w.width; x++ {
		count := int(counts[x])
		w.fb.SetSampleCount(x, row, uint32(count))
		w.fb.AllocateSamples(x, row)

		rs := w.fb.Slices[chR]
		gs := w.fb.Slices[chG]
		bs := w.fb.Slices[chB]
		as := w.fb.Slices[chA]
		zs := w.fb.Slices[chZ]
		zbs := w.fb.Slices[chZBack]

		for s := 0; s < count; s++ {
			base := cursor * scanrow.SamplesPerPoint
			rs.SetSampleFloat32(x, row, s, data[base+0])
			gs.SetSampleFloat32(x, row, s, data[base+1])
			bs.SetSampleFloat32(x, row, s, data[base+2])
			as.SetSampleFloat32(x, row, s, data[base+3])
			zs.SetSampleFloat32(x, row, s, data[base+4])
			zbs.SetSampleFloat32(x, row, s, data[base+5])
			cursor++
		}
	}

	if err := w.wr.WritePixels(1); err != nil {
		return fmt.Errorf("exrsource: writer: write row %d: %w", row, err)
	}

	for _, slice := range w.fb.Slices {
		slice.Pointers[row] = make([]interface{}, w.width)
	}
	w.next = row + 1
	return nil
}

// Close finalizes the chunk offset table and closes the underlying file.
func (w *Writer) Close() error {
	if err := w.wr.Finalize(); err != nil {
		w.f.Close()
		return fmt.Errorf("exrsource: writer: finalize: %w", err)
	}
	return w.f.Close()
}
