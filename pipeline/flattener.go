package pipeline

import (
	"context"

	"github.com/mrjoshuak/go-openexr/kernel"
	"github.com/mrjoshuak/go-openexr/ring"
	"github.com/mrjoshuak/go-openexr/scanrow"
)

// flattener implements C6: consume each merged row and run K4 per pixel to
// produce one row of the output raster, then release the row's slots.
type flattener struct {
	width, height int
	inputs        [][]*scanrow.Row // inputs[source][slot], released after flattening
	merged        []*scanrow.Row   // merged[slot]
	arbiter       *ring.Arbiter
	raster        *Raster
	staging       []kernel.Sample
}

func (f *flattener) run(ctx context.Context) error {
	for y := 0; y < f.height; y++ {
		if err := f.arbiter.WaitUntil(ctx, y, ring.Merged); err != nil {
			return err
		}

		slot := f.arbiter.SlotOf(y)
		row := f.merged[slot]

		for x := 0; x < f.width; x++ {
			data := row.PixelData(x)
			count := row.SampleCount(x)

			f.staging = f.staging[:0]
			for s := 0; s < count; s++ {
				base := s * 6
				f.staging = append(f.staging, kernel.Sample{
					R:      data[base+0],
					G:      data[base+1],
					B:      data[base+2],
					A:      data[base+3],
					ZFront: data[base+4],
					ZBack:  data[base+5],
				})
			}

			r, g, b, a := kernel.Accumulate(f.staging)
			f.raster.Set(x, y, r, g, b, a)
		}

		row.Clear()
		for i := range f.inputs {
			f.inputs[i][slot].Clear()
		}

		f.arbiter.Publish(y, ring.Flattened)
	}
	return nil
}
