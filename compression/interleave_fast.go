package compression

// DeinterleaveFast performs byte deinterleaving. Inputs shorter than 32 bytes
// go through Deinterleave; longer ones through deinterleaveASM, which is a
// pure-Go byte loop on every platform (no assembly is carried).
//
// Input layout (split format):  [A0, B0, C0, D0, E0, F0, G0, H0 | A1, B1, C1, D1, E1, F1, G1, H1]
// Output layout (interleaved): [A0, A1, B0, B1, C0, C1, D0, D1, E0, E1, F0, F1, G0, G1, H0, H1]
func DeinterleaveFast(src []byte) []byte {
	n := len(src)
	if n == 0 {
		return nil
	}
	if n < 32 {
		return Deinterleave(src)
	}

	dst := make([]byte, n)
	deinterleaveASM(dst, src)
	return dst
}

// InterleaveFast performs byte interleaving through the pure-Go
// interleaveASM loop (Interleave for inputs under 32 bytes).
// Separates even and odd bytes into two halves.
func InterleaveFast(src []byte) []byte {
	n := len(src)
	if n == 0 {
		return nil
	}
	if n < 32 {
		return Interleave(src)
	}

	dst := make([]byte, n)
	interleaveASM(dst, src)
	return dst
}
