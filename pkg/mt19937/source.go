package mt19937

// Source63 adapts an MT19937 to math/rand.Source, letting existing code that
// consumes a rand.Rand draw from the twister. Two 32-bit outputs are folded
// into each 63-bit value.
type Source63 struct {
	MT *MT19937
}

// Int63 returns a non-negative 63-bit value.
func (s Source63) Int63() int64 {
	hi := uint64(s.MT.Uint32())
	lo := uint64(s.MT.Uint32())
	return int64((hi<<32 | lo) >> 1)
}

// Seed reinitializes the underlying generator.
func (s Source63) Seed(seed int64) {
	if seed < 0 {
		seed = -seed
	}
	s.MT.Seed(uint64(seed))
}
