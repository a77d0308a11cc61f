package kernel

import (
	"math"
	"sort"
)

// Split performs K3, the volumetric sub-interval split with uniform
// interspersion. Any group of mutually overlapping volume samples is cut at
// every boundary depth contributed by the group, each resulting sub-interval
// receives a Beer-Lambert-scaled contribution from every volume that covers
// it, and sub-samples that land in the same (ZFront, ZBack) bin are combined
// with NearMerge's formula — same-origin fragments first, then across
// origins, per the pre-combine-per-source-first rule. Point samples and
// volumes that overlap nothing pass through unchanged; a point sample inside
// a volume does not split it.
//
// Split does not sort its output; callers apply Sort afterward.
func Split(samples []Sample) []Sample {
	volumeIdx := make([]int, 0, len(samples))
	for i, s := range samples {
		if s.IsVolume() {
			volumeIdx = append(volumeIdx, i)
		}
	}
	if len(volumeIdx) < 2 {
		return samples
	}

	groups := groupOverlapping(samples, volumeIdx)

	out := make([]Sample, 0, len(samples)*2)
	inGroup := make(map[int]bool, len(volumeIdx))
	for _, g := range groups {
		for _, i := range g {
			inGroup[i] = true
		}
	}

	for i, s := range samples {
		if s.IsVolume() && !inGroup[i] {
			out = append(out, s) // volume with no overlap: untouched
		} else if !s.IsVolume() {
			out = append(out, s) // point sample: untouched
		}
	}

	for _, g := range groups {
		out = append(out, splitGroup(samples, g)...)
	}
	return out
}

// groupOverlapping partitions volumeIdx into connected components under the
// "overlaps" relation, using a simple union-find since per-pixel volume
// counts are small.
func groupOverlapping(samples []Sample, volumeIdx []int) [][]int {
	parent := make(map[int]int, len(volumeIdx))
	for _, i := range volumeIdx {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}

	for a := 0; a < len(volumeIdx); a++ {
		for b := a + 1; b < len(volumeIdx); b++ {
			ia, ib := volumeIdx[a], volumeIdx[b]
			if overlaps(samples[ia], samples[ib]) {
				union(ia, ib)
			}
		}
	}

	byRoot := make(map[int][]int)
	for _, i := range volumeIdx {
		r := find(i)
		byRoot[r] = append(byRoot[r], i)
	}

	var groups [][]int
	for _, g := range byRoot {
		if len(g) >= 2 {
			groups = append(groups, g)
		}
	}
	return groups
}

func overlaps(a, b Sample) bool {
	return a.ZFront < b.ZBack && b.ZFront < a.ZBack
}

// splitGroup cuts one connected group of overlapping volumes at every
// boundary depth and emits one combined sample per resulting bin.
func splitGroup(samples []Sample, group []int) []Sample {
	bounds := make([]float32, 0, len(group)*2)
	for _, i := range group {
		bounds = append(bounds, samples[i].ZFront, samples[i].ZBack)
	}
	sort.Slice(bounds, func(i, j int) bool { return bounds[i] < bounds[j] })
	bounds = dedupSorted(bounds)

	type tagged struct {
		Sample
		origin int
	}
	bins := make(map[[2]float32][]tagged)
	var order [][2]float32

	for b := 0; b+1 < len(bounds); b++ {
		lo, hi := bounds[b], bounds[b+1]
		if hi <= lo {
			continue
		}
		for _, i := range group {
			s := samples[i]
			if s.ZFront <= lo && s.ZBack >= hi {
				frac := float64((hi - lo) / (s.ZBack - s.ZFront))
				aSub := beerLambert(float64(s.A), frac)
				scale := float32(0)
				if s.A != 0 {
					scale = aSub / s.A
				}
				sub := Sample{
					R:      s.R * scale,
					G:      s.G * scale,
					B:      s.B * scale,
					A:      aSub,
					ZFront: lo,
					ZBack:  hi,
				}
				key := [2]float32{lo, hi}
				if _, ok := bins[key]; !ok {
					order = append(order, key)
				}
				bins[key] = append(bins[key], tagged{sub, i})
			}
		}
	}

	out := make([]Sample, 0, len(order))
	for _, key := range order {
		frags := bins[key]
		byOrigin := make(map[int]Sample)
		var originOrder []int
		for _, f := range frags {
			if prev, ok := byOrigin[f.origin]; ok {
				byOrigin[f.origin] = combine(prev, f.Sample)
			} else {
				byOrigin[f.origin] = f.Sample
				originOrder = append(originOrder, f.origin)
			}
		}
		merged := byOrigin[originOrder[0]]
		for _, o := range originOrder[1:] {
			merged = combine(merged, byOrigin[o])
		}
		out = append(out, merged)
	}
	return out
}

func dedupSorted(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}
	out := v[:1]
	for _, x := range v[1:] {
		if x != out[len(out)-1] {
			out = append(out, x)
		}
	}
	return out
}

// beerLambert computes 1 - (1-a0)^frac, the extinction of a uniform-density
// volume of total coverage a0 over a fraction frac of its full depth.
func beerLambert(a0 float64, frac float64) float32 {
	return float32(1 - math.Pow(1-a0, frac))
}
