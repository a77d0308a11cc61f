package kernel

import "sort"

// Sort orders samples ascending by (ZFront, ZBack) in place. Stability is
// not required by the contract; sort.Slice is used rather than a manual
// insertion sort since per-pixel lists after a merge of several sources can
// run well past the small-N regime the header package's insertion sorts
// target.
func Sort(samples []Sample) {
	sort.Slice(samples, func(i, j int) bool {
		return Less(samples[i], samples[j])
	})
}
