package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/mrjoshuak/go-openexr/ring"
	"github.com/mrjoshuak/go-openexr/scanrow"
)

// Run wires the loader, merger, and flattener (C4-C7) over sources and
// returns the flattened raster. It validates that every source shares
// source 0's dimensions, allocates the input and merged rings and the row
// status lattice, and runs the three stages concurrently until every row
// reaches Flattened or a stage reports an error.
func Run(ctx context.Context, sources []Source, opts Options) (*Raster, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	opts = opts.normalized()

	width := sources[0].Width()
	height := sources[0].Height()
	for i, s := range sources {
		if s.Width() != width || s.Height() != height {
			return nil, fmt.Errorf("%w: source %d is %dx%d, source 0 is %dx%d",
				ErrDimensionMismatch, i, s.Width(), s.Height(), width, height)
		}
	}

	arbiter := ring.New(height, opts.Window)

	inputRows := make([][]*scanrow.Row, len(sources))
	for i := range sources {
		inputRows[i] = make([]*scanrow.Row, opts.Window)
		for s := range inputRows[i] {
			inputRows[i][s] = scanrow.New()
		}
	}
	mergedRows := make([]*scanrow.Row, opts.Window)
	for s := range mergedRows {
		mergedRows[s] = scanrow.New()
	}

	raster := NewRaster(width, height)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var firstErr atomic.Pointer[error]
	record := func(err error) {
		if err == nil {
			return
		}
		e := err
		if firstErr.CompareAndSwap(nil, &e) {
			cancel()
		}
	}

	var wg sync.WaitGroup
	wg.Add(3)

	ld := &loader{sources: sources, rows: inputRows, arbiter: arbiter, opts: opts}
	go func() {
		defer wg.Done()
		record(ld.run(runCtx))
	}()

	mg := &merger{sources: sources, inputs: inputRows, merged: mergedRows, arbiter: arbiter, opts: opts}
	go func() {
		defer wg.Done()
		record(mg.run(runCtx))
	}()

	fl := &flattener{width: width, height: height, inputs: inputRows, merged: mergedRows, arbiter: arbiter, raster: raster}
	go func() {
		defer wg.Done()
		record(fl.run(runCtx))
	}()

	wg.Wait()

	if opts.DeepSink != nil {
		if err := opts.DeepSink.Close(); err != nil {
			record(err)
		}
	}

	if p := firstErr.Load(); p != nil {
		return nil, *p
	}
	return raster, nil
}
