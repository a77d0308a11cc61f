package kernel

// AccumThreshold is the alpha value at which K4 stops early, matching
// deep_pipeline.h's flattenRow optimization.
const AccumThreshold = 0.999

// Accumulate runs K4, front-to-back "over" accumulation, over samples
// (which must already be sorted ascending by depth) and returns the
// resulting premultiplied (R, G, B, A) pixel. It stops as soon as A reaches
// AccumThreshold, after folding in the sample that crossed it; no sample
// past that point affects the result.
func Accumulate(samples []Sample) (r, g, b, a float32) {
	for _, s := range samples {
		w := s.A * (1 - a)
		r += s.R * (1 - a)
		g += s.G * (1 - a)
		b += s.B * (1 - a)
		a += w
		if a >= AccumThreshold {
			break
		}
	}
	return r, g, b, a
}
