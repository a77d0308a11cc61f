package pipeline

import (
	"context"
	"fmt"

	"github.com/mrjoshuak/go-openexr/ring"
	"github.com/mrjoshuak/go-openexr/scanrow"
)

// loader implements C4: it pulls each source's per-row sample counts and
// data into that source's ring slot, throttled so it never overruns the
// flattener by more than Window rows.
type loader struct {
	sources []Source
	rows    [][]*scanrow.Row // rows[source][slot]
	arbiter *ring.Arbiter
	opts    Options
}

func (l *loader) run(ctx context.Context) error {
	height := l.sources[0].Height()
	width := l.sources[0].Width()
	countsBuf := make([]uint32, width)

	for y := 0; y < height; y++ {
		if y >= l.opts.Window {
			if err := l.arbiter.WaitUntil(ctx, y-l.opts.Window, ring.Flattened); err != nil {
				return err
			}
		}

		slot := l.arbiter.SlotOf(y)
		for i, src := range l.sources {
			if err := src.SampleCounts(y, countsBuf); err != nil {
				return fmt.Errorf("pipeline: loader: source %d row %d: %w", i, y, err)
			}

			row := l.rows[i][slot]
			row.Allocate(width, countsBuf)
			if err := src.ReadRow(y, row.Counts(), row.Data()); err != nil {
				return fmt.Errorf("pipeline: loader: source %d row %d: %w", i, y, err)
			}
		}

		l.arbiter.Publish(y, ring.Loaded)
	}
	return nil
}
