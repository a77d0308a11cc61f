package scanrow

import "testing"

func TestAllocateComputesPrefixSumOffsets(t *testing.T) {
	r := New()
	r.Allocate(4, []uint32{2, 0, 1, 3})

	if r.TotalSamples() != 6 {
		t.Fatalf("TotalSamples() = %d, want 6", r.TotalSamples())
	}
	if got := len(r.PixelData(0)); got != 2*SamplesPerPoint {
		t.Errorf("len(PixelData(0)) = %d, want %d", got, 2*SamplesPerPoint)
	}
	if got := len(r.PixelData(1)); got != 0 {
		t.Errorf("len(PixelData(1)) = %d, want 0", got)
	}
	if got := len(r.PixelData(3)); got != 3*SamplesPerPoint {
		t.Errorf("len(PixelData(3)) = %d, want %d", got, 3*SamplesPerPoint)
	}
}

func TestPixelDataIsWritableAndIsolated(t *testing.T) {
	r := New()
	r.Allocate(2, []uint32{1, 1})

	p0 := r.PixelData(0)
	p1 := r.PixelData(1)
	p0[0] = 42
	if p1[0] == 42 {
		t.Fatalf("pixel slices alias each other")
	}
}

func TestReallocationReusesCapacity(t *testing.T) {
	r := New()
	r.Allocate(4, []uint32{1, 1, 1, 1})
	data := r.data
	r.Clear()
	r.Allocate(4, []uint32{1, 1, 1, 1})
	if &r.data[0] != &data[0] {
		t.Errorf("Allocate after Clear did not reuse backing array")
	}
}

func TestAllocateBoundAndSetWritten(t *testing.T) {
	r := New()
	r.AllocateBound(3, 10)

	cursor := 0
	cursor = r.SetWritten(0, cursor, 2)
	cursor = r.SetWritten(1, cursor, 0)
	cursor = r.SetWritten(2, cursor, 3)

	if r.TotalSamples() != 5 {
		t.Fatalf("TotalSamples() = %d, want 5", r.TotalSamples())
	}
	if r.SampleCount(0) != 2 || r.SampleCount(1) != 0 || r.SampleCount(2) != 3 {
		t.Errorf("unexpected sample counts: %d %d %d", r.SampleCount(0), r.SampleCount(1), r.SampleCount(2))
	}
	if len(r.PixelData(2)) != 3*SamplesPerPoint {
		t.Errorf("len(PixelData(2)) = %d, want %d", len(r.PixelData(2)), 3*SamplesPerPoint)
	}
}

func TestClearZerosLogicalSize(t *testing.T) {
	r := New()
	r.Allocate(2, []uint32{1, 1})
	r.Clear()
	if r.TotalSamples() != 0 {
		t.Errorf("TotalSamples() after Clear = %d, want 0", r.TotalSamples())
	}
}
