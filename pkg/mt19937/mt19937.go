// Package mt19937 implements the 32-bit Mersenne Twister generator with the
// standard init_genrand/init_by_array seeding procedures and a 53-bit double
// output function. Outputs are byte-compatible with the reference generator,
// so a given seed reproduces the same sequence here as in the reference
// implementation.
package mt19937

import "math"

const (
	n         = 624
	m         = 397
	matrixA   = 0x9908b0df
	upperMask = 0x80000000
	lowerMask = 0x7fffffff

	defaultSeed = 5489
)

// MT19937 is a Mersenne Twister pseudo-random number generator. It is not
// safe for concurrent use; callers that share a generator must serialize
// access themselves.
type MT19937 struct {
	state [n]uint32
	index int

	// cached second normal deviate from Box-Muller
	spare    float64
	hasSpare bool
}

// New creates a generator seeded with the reference default seed.
func New() *MT19937 {
	mt := &MT19937{}
	mt.seedScalar(defaultSeed)
	return mt
}

// NewSeeded creates a generator seeded with the given value.
func NewSeeded(seed uint64) *MT19937 {
	mt := &MT19937{}
	mt.Seed(seed)
	return mt
}

// Seed reinitializes the generator from a single integer. The value is split
// into little-endian 32-bit words and fed through SeedBySlice, matching the
// reference generator's handling of integer seeds of any width.
func (mt *MT19937) Seed(seed uint64) {
	lo, hi := uint32(seed), uint32(seed>>32)
	if hi != 0 {
		mt.SeedBySlice([]uint32{lo, hi})
		return
	}
	mt.SeedBySlice([]uint32{lo})
}

// seedScalar is the reference init_genrand routine.
func (mt *MT19937) seedScalar(s uint32) {
	mt.state[0] = s
	for i := uint32(1); i < n; i++ {
		prev := mt.state[i-1]
		mt.state[i] = 1812433253*(prev^(prev>>30)) + i
	}
	mt.index = n
	mt.hasSpare = false
}

// SeedBySlice is the reference init_by_array routine. The key slice must be
// non-empty.
func (mt *MT19937) SeedBySlice(key []uint32) {
	if len(key) == 0 {
		panic("mt19937: empty seed key")
	}

	mt.seedScalar(19650218)

	i, j := 1, 0
	k := n
	if len(key) > k {
		k = len(key)
	}
	for ; k > 0; k-- {
		prev := mt.state[i-1]
		mt.state[i] = (mt.state[i] ^ ((prev ^ (prev >> 30)) * 1664525)) + key[j] + uint32(j)
		i++
		j++
		if i >= n {
			mt.state[0] = mt.state[n-1]
			i = 1
		}
		if j >= len(key) {
			j = 0
		}
	}
	for k = n - 1; k > 0; k-- {
		prev := mt.state[i-1]
		mt.state[i] = (mt.state[i] ^ ((prev ^ (prev >> 30)) * 1566083941)) - uint32(i)
		i++
		if i >= n {
			mt.state[0] = mt.state[n-1]
			i = 1
		}
	}
	mt.state[0] = 0x80000000

	mt.index = n
	mt.hasSpare = false
}

// Uint32 returns the next 32-bit output of the generator.
func (mt *MT19937) Uint32() uint32 {
	if mt.index >= n {
		mt.generate()
	}

	y := mt.state[mt.index]
	mt.index++

	y ^= y >> 11
	y ^= (y << 7) & 0x9d2c5680
	y ^= (y << 15) & 0xefc60000
	y ^= y >> 18
	return y
}

// generate refills the state block.
func (mt *MT19937) generate() {
	for i := 0; i < n; i++ {
		y := (mt.state[i] & upperMask) | (mt.state[(i+1)%n] & lowerMask)
		next := mt.state[(i+m)%n] ^ (y >> 1)
		if y&1 != 0 {
			next ^= matrixA
		}
		mt.state[i] = next
	}
	mt.index = 0
}

// Float64 returns a uniform double in [0, 1) with 53 bits of resolution,
// consuming two 32-bit outputs. This is the reference genrand_res53 function.
func (mt *MT19937) Float64() float64 {
	a := mt.Uint32() >> 5
	b := mt.Uint32() >> 6
	return (float64(a)*67108864.0 + float64(b)) / 9007199254740992.0
}

// NormFloat64 returns a normally distributed value with mean 0 and standard
// deviation 1, derived from Float64 draws via Box-Muller. The second deviate
// of each pair is cached, so draws alternate between consuming two uniforms
// and consuming none. Reseeding discards the cached deviate.
func (mt *MT19937) NormFloat64() float64 {
	if mt.hasSpare {
		mt.hasSpare = false
		return mt.spare
	}

	var u1 float64
	for u1 == 0 {
		u1 = mt.Float64()
	}
	u2 := mt.Float64()

	r := math.Sqrt(-2 * math.Log(u1))
	theta := 2 * math.Pi * u2
	mt.spare = r * math.Sin(theta)
	mt.hasSpare = true
	return r * math.Cos(theta)
}

// Intn returns a uniform integer in [0, n). It panics if n <= 0. Rejection
// sampling keeps the distribution exactly uniform.
func (mt *MT19937) Intn(n int) int {
	if n <= 0 {
		panic("mt19937: Intn called with non-positive n")
	}
	limit := (uint64(1) << 32) / uint64(n) * uint64(n)
	for {
		v := uint64(mt.Uint32())
		if v < limit {
			return int(v % uint64(n))
		}
	}
}

// Shuffle pseudo-randomizes the order of n elements using Fisher-Yates.
func (mt *MT19937) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := mt.Intn(i + 1)
		swap(i, j)
	}
}

// Perm returns a pseudo-random permutation of the integers [0, n).
func (mt *MT19937) Perm(n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	mt.Shuffle(n, func(i, j int) { p[i], p[j] = p[j], p[i] })
	return p
}
