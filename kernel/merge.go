package kernel

// NearMerge scans a sorted sample list and collapses consecutive samples
// whose front and back depths both fall within eps of each other. It must
// be called after Sort. When eps <= 0 the list is returned unchanged.
//
// The merge rule treats the pair as co-located: alpha combines by the
// standard "over union" 1-(1-a1)(1-a2), color channels add directly since
// they are already premultiplied, and the resulting interval is the union
// [min(zfront), max(zback)].
func NearMerge(samples []Sample, eps float32) []Sample {
	if eps <= 0 || len(samples) < 2 {
		return samples
	}

	out := samples[:0]
	cur := samples[0]
	for i := 1; i < len(samples); i++ {
		next := samples[i]
		if absf32(cur.ZFront-next.ZFront) < eps && absf32(cur.ZBack-next.ZBack) < eps {
			cur = combine(cur, next)
			continue
		}
		out = append(out, cur)
		cur = next
	}
	out = append(out, cur)
	return out
}

// combine applies the K2 merge formula to two co-located samples.
func combine(a, b Sample) Sample {
	zf := a.ZFront
	if b.ZFront < zf {
		zf = b.ZFront
	}
	zb := a.ZBack
	if b.ZBack > zb {
		zb = b.ZBack
	}
	return Sample{
		R:      a.R + b.R,
		G:      a.G + b.G,
		B:      a.B + b.B,
		A:      1 - (1-a.A)*(1-b.A),
		ZFront: zf,
		ZBack:  zb,
	}
}

func absf32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
