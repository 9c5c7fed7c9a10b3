// Package hash implements the xorshift mixing used to derive independent
// random streams from a single seed
package hash

// Mix mixes n with the salt s.
func Mix(n uint32, s uint32) uint32 {
	// mix input with salt using subtraction
	var m = n - s

	// xor shift with prime coefficients
	m ^= m << 2
	m ^= m << 3
	m ^= m >> 5
	m ^= m >> 7
	m ^= m << 11
	m ^= m << 13
	m ^= m >> 17
	m ^= m << 19

	return m + s
}

// Seed derives the seed of a random source from seed and keys, for example
// an epoch and a batch index. Equal inputs give equal seeds.
func Seed(seed int64, keys ...int) int64 {
	lo, hi := uint32(seed), uint32(uint64(seed)>>32)
	for _, k := range keys {
		lo = Mix(uint32(k)^0x9e3779b9, lo^hi)
		hi = Mix(hi, lo)
	}
	return int64(uint64(hi)<<32 | uint64(lo))
}
