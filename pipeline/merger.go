package pipeline

import (
	"context"
	"fmt"

	"github.com/mrjoshuak/go-openexr/kernel"
	"github.com/mrjoshuak/go-openexr/ring"
	"github.com/mrjoshuak/go-openexr/scanrow"
)

// expansionFactor is the conservative upper bound S on how much K3 can grow
// a pixel's sample count for pairwise volume overlaps (design note, §9).
const expansionFactor = 2

// merger implements C5: for each row, gather every source's samples per
// pixel, run the K3/K1/K2 kernels, and write the combined list into the
// merged ring.
type merger struct {
	sources []Source
	inputs  [][]*scanrow.Row // inputs[source][slot]
	merged  []*scanrow.Row   // merged[slot]
	arbiter *ring.Arbiter
	opts    Options

	// staging is reused across pixels to avoid per-pixel allocation,
	// mirroring mergePixelsDirect's thread_local staging vector.
	staging []kernel.Sample
}

func (m *merger) run(ctx context.Context) error {
	height := m.sources[0].Height()
	width := m.sources[0].Width()
	n := len(m.sources)

	for y := 0; y < height; y++ {
		if err := m.arbiter.WaitUntil(ctx, y, ring.Loaded); err != nil {
			return err
		}

		slot := m.arbiter.SlotOf(y)
		inputRows := make([]*scanrow.Row, n)
		for i := 0; i < n; i++ {
			inputRows[i] = m.inputs[i][slot]
		}

		bound := 0
		for x := 0; x < width; x++ {
			for i := 0; i < n; i++ {
				bound += inputRows[i].SampleCount(x)
			}
		}
		bound *= expansionFactor

		merged := m.merged[slot]
		merged.AllocateBound(width, bound)

		cursor := 0
		for x := 0; x < width; x++ {
			m.staging = m.staging[:0]
			for i := 0; i < n; i++ {
				offset := m.opts.zOffset(i)
				data := inputRows[i].PixelData(x)
				count := inputRows[i].SampleCount(x)
				for s := 0; s < count; s++ {
					base := s * 6
					m.staging = append(m.staging, kernel.Sample{
						R:      data[base+0],
						G:      data[base+1],
						B:      data[base+2],
						A:      data[base+3],
						ZFront: data[base+4] + offset,
						ZBack:  data[base+5] + offset,
					})
				}
			}

			result := kernel.Split(m.staging)
			kernel.Sort(result)
			if m.opts.Epsilon > 0 {
				result = kernel.NearMerge(result, m.opts.Epsilon)
			}

			dst := merged.PixelSlice(cursor, len(result))
			for s, sample := range result {
				base := s * 6
				dst[base+0] = sample.R
				dst[base+1] = sample.G
				dst[base+2] = sample.B
				dst[base+3] = sample.A
				dst[base+4] = sample.ZFront
				dst[base+5] = sample.ZBack
			}
			cursor = merged.SetWritten(x, cursor, len(result))
		}

		if m.opts.DeepSink != nil {
			used := merged.TotalSamples() * scanrow.SamplesPerPoint
			if err := m.opts.DeepSink.WriteDeepRow(y, merged.Counts(), merged.Data()[:used]); err != nil {
				return fmt.Errorf("pipeline: merger: deep sink row %d: %w", y, err)
			}
		}

		m.arbiter.Publish(y, ring.Merged)
	}
	return nil
}
