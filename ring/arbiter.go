// Package ring implements the row-status lattice (component C3) that
// sequences the loader, merger, and flattener stages over a sliding window
// of scanline slots. It owns no slot memory itself — only the per-row
// status array and the wait/publish operations stages use to hand rows to
// each other.
package ring

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
)

// Status is one point in the per-row lattice Empty < Loaded < Merged <
// Flattened. Transitions are strictly monotonic; there are no back edges.
type Status int32

const (
	Empty Status = iota
	Loaded
	Merged
	Flattened
)

func (s Status) String() string {
	switch s {
	case Empty:
		return "Empty"
	case Loaded:
		return "Loaded"
	case Merged:
		return "Merged"
	case Flattened:
		return "Flattened"
	default:
		return fmt.Sprintf("Status(%d)", int32(s))
	}
}

// Arbiter holds one Status per image row and the WINDOW used to compute
// slot indices. It is the sole synchronization primitive between stages:
// no mutex ever guards the ring slot arrays themselves, since that would
// serialize the stages.
type Arbiter struct {
	status []atomic.Int32
	window int
}

// New creates an Arbiter for an image of the given height with the given
// ring window size. All rows start Empty.
func New(height, window int) *Arbiter {
	if window < 1 {
		window = 1
	}
	return &Arbiter{
		status: make([]atomic.Int32, height),
		window: window,
	}
}

// SlotOf returns the ring slot index for an absolute row number.
func (a *Arbiter) SlotOf(row int) int {
	return row % a.window
}

// Window returns the ring's slot count.
func (a *Arbiter) Window() int {
	return a.window
}

// Status returns the current status of row, read with acquire ordering.
func (a *Arbiter) Status(row int) Status {
	return Status(a.status[row].Load())
}

// Publish advances row to s. s must be strictly greater than the row's
// current status; publishing out of order is a programming error and
// panics, matching the spec's treatment of invalid lattice transitions.
func (a *Arbiter) Publish(row int, s Status) {
	prev := Status(a.status[row].Swap(int32(s)))
	if s <= prev {
		panic(fmt.Sprintf("ring: invalid transition for row %d: %s -> %s", row, prev, s))
	}
}

// WaitUntil blocks the calling goroutine until status[row] >= min, or until
// ctx is done. It spins with runtime.Gosched between polls rather than
// using a condition variable, since the expected wait is brief (another
// stage is actively working on an adjacent row) and this keeps the cross-
// stage contract to a single atomic load with no lock.
func (a *Arbiter) WaitUntil(ctx context.Context, row int, min Status) error {
	if a.Status(row) >= min {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if a.Status(row) >= min {
			return nil
		}
		runtime.Gosched()
	}
}
