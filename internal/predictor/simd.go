// Package predictor implements the horizontal-differencing predictor
// OpenEXR's ZIP and RLE compressors apply before the byte-level compression
// step, and reverse after it. Differencing each byte from its predecessor
// turns smoothly varying pixel data into small deltas that compress better.
package predictor

// DecodeSIMD performs predictor decode through decodeASM, which is pure Go
// on every platform; no assembly is carried.
func DecodeSIMD(data []byte) {
	if len(data) < 2 {
		return
	}
	decodeASM(data)
}

// EncodeSIMD performs predictor encode.
// Note: Encoding is inherently sequential (each diff depends on previous value),
// so SIMD optimization is limited. We use loop unrolling instead.
func EncodeSIMD(data []byte) {
	n := len(data)
	if n < 2 {
		return
	}

	// Encode works backwards to avoid overwriting values we need
	i := n - 1
	for ; i >= 8; i -= 8 {
		data[i] = data[i] - data[i-1]
		data[i-1] = data[i-1] - data[i-2]
		data[i-2] = data[i-2] - data[i-3]
		data[i-3] = data[i-3] - data[i-4]
		data[i-4] = data[i-4] - data[i-5]
		data[i-5] = data[i-5] - data[i-6]
		data[i-6] = data[i-6] - data[i-7]
		data[i-7] = data[i-7] - data[i-8]
	}

	for ; i >= 1; i-- {
		data[i] = data[i] - data[i-1]
	}
}
