// Package scanrow implements the contiguous per-row deep sample buffer
// (component C2): one flat block of interleaved (R,G,B,A,Z,ZBack) floats per
// scanline, addressed through a prefix-sum pixel offset table so that
// locating any pixel's samples is O(1).
package scanrow

// SamplesPerPoint is the number of interleaved floats stored per sample:
// R, G, B, A, Z, ZBack.
const SamplesPerPoint = 6

// Row is one scanline's worth of deep samples for one source (or, in the
// merger, the merged result for one row). It owns a single contiguous
// []float32 block; reallocation reuses the block's capacity when the new
// request fits, mirroring DeepRow::ensureCapacity's new[]/delete[] reuse via
// Go slice-capacity growth instead.
type Row struct {
	width   int
	counts  []uint32
	offsets []uint32 // offsets[x] = sum(counts[:x]) in samples; len == width+1
	data    []float32
}

// New returns an empty Row. Call Allocate before use.
func New() *Row {
	return &Row{}
}

// Allocate sizes the row for width pixels with the given per-pixel sample
// counts, computing the prefix-sum offset table once. The underlying slices
// are reused when they already have enough capacity.
func (r *Row) Allocate(width int, counts []uint32) {
	r.width = width

	if cap(r.counts) >= width {
		r.counts = r.counts[:width]
	} else {
		r.counts = make([]uint32, width)
	}
	copy(r.counts, counts[:width])

	if cap(r.offsets) >= width+1 {
		r.offsets = r.offsets[:width+1]
	} else {
		r.offsets = make([]uint32, width+1)
	}
	var total uint32
	for x := 0; x < width; x++ {
		r.offsets[x] = total
		total += r.counts[x]
	}
	r.offsets[width] = total

	need := int(total) * SamplesPerPoint
	if cap(r.data) >= need {
		r.data = r.data[:need]
	} else {
		r.data = make([]float32, need)
	}
}

// AllocateBound sizes the row for width pixels using only an upper bound on
// the total sample count, zeroing the per-pixel count array; the merger
// calls this before it knows the final per-pixel counts, then uses
// PixelSlice/SetWritten to fill the row incrementally.
func (r *Row) AllocateBound(width int, maxTotalSamples int) {
	r.width = width

	if cap(r.counts) >= width {
		r.counts = r.counts[:width]
	} else {
		r.counts = make([]uint32, width)
	}
	for i := range r.counts {
		r.counts[i] = 0
	}

	if cap(r.offsets) >= width+1 {
		r.offsets = r.offsets[:width+1]
	} else {
		r.offsets = make([]uint32, width+1)
	}

	need := maxTotalSamples * SamplesPerPoint
	if cap(r.data) >= need {
		r.data = r.data[:need]
	} else {
		r.data = make([]float32, need)
	}
}

// Width returns the row's pixel width.
func (r *Row) Width() int { return r.width }

// Counts returns the per-pixel sample count array backing this row.
func (r *Row) Counts() []uint32 { return r.counts }

// Data returns the row's entire interleaved-float backing array. After
// Allocate it holds exactly TotalSamples()*SamplesPerPoint floats; after
// AllocateBound it holds the bound's worth, of which only the first
// TotalSamples()*SamplesPerPoint are written. Used by loaders that fill a
// whole row's sample data in a single read.
func (r *Row) Data() []float32 { return r.data }

// SampleCount returns the number of samples stored at pixel x.
func (r *Row) SampleCount(x int) int { return int(r.counts[x]) }

// TotalSamples returns the sum of all per-pixel sample counts.
func (r *Row) TotalSamples() int {
	if r.width == 0 {
		return 0
	}
	return int(r.offsets[r.width])
}

// PixelData returns the raw interleaved-float destination for writing pixel
// x's samples directly (used by loaders reading straight from a decoder).
// It is valid after Allocate, where offsets already reflect the final
// per-pixel counts, or after SetWritten has recorded pixel x.
func (r *Row) PixelData(x int) []float32 {
	start := int(r.offsets[x]) * SamplesPerPoint
	end := int(r.offsets[x+1]) * SamplesPerPoint
	return r.data[start:end]
}

// PixelSlice returns pixel x's samples as a slice of interleaved
// (R,G,B,A,Z,ZBack) tuples, using a running write cursor rather than the
// fixed Allocate-time offsets — the merger does not know final per-pixel
// counts until it has applied the kernels, so it writes pixel x starting at
// cursor and must advance cursor by SetWritten(x, cursor, n) afterward.
func (r *Row) PixelSlice(cursor, n int) []float32 {
	start := cursor * SamplesPerPoint
	end := (cursor + n) * SamplesPerPoint
	return r.data[start:end]
}

// SetWritten records that pixel x received n samples starting at the given
// write cursor, and returns the next cursor value. Used by the merger, which
// allocates with AllocateBound and fills samples pixel by pixel.
func (r *Row) SetWritten(x int, cursor, n int) int {
	r.counts[x] = uint32(n)
	r.offsets[x] = uint32(cursor)
	next := cursor + n
	r.offsets[x+1] = uint32(next)
	return next
}

// Clear drops the row's logical contents without releasing the underlying
// capacity, so the slot can be reused for a later row without reallocating.
func (r *Row) Clear() {
	r.width = 0
	r.counts = r.counts[:0]
	r.offsets = r.offsets[:0]
	r.data = r.data[:0]
}
