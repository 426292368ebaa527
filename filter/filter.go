// Package filter implements the fixed-parameter membership filter used by
// segments to short-circuit negative point lookups. The hash scheme (djb2
// seed followed by K splitmix64 probes) and the (K, N) parameters are fixed
// so that two segments built from identical inputs are byte-identical, and
// so that a filter built by one process can, in principle, be replayed by
// another.
package filter

import "github.com/bits-and-blooms/bitset"

const (
	// K is the number of hash positions set per key.
	K = 7
	// N is the width of the bit array, in bits.
	N = 1_000_000
)

// goldenRatio64 is the splitmix64 increment constant.
const goldenRatio64 = 0x9E3779B97F4A7C15

// Filter is a Bloom-style membership filter over a fixed-size bit array.
// Zero value is not usable; construct with New.
type Filter struct {
	bits *bitset.BitSet
	k    uint
	n    uint64
}

// New returns a filter with k hash positions per key and an n-bit array.
func New(k uint, n uint64) *Filter {
	return &Filter{
		bits: bitset.New(uint(n)),
		k:    k,
		n:    n,
	}
}

// NewDefault returns a filter using the engine-wide fixed (K, N) parameters.
func NewDefault() *Filter {
	return New(K, N)
}

// Add sets the K bits derived from key.
func (f *Filter) Add(key []byte) {
	for _, pos := range f.positions(key) {
		f.bits.Set(uint(pos))
	}
}

// Contains reports whether every bit derived from key is set. A true result
// may be a false positive; a false result is never a false negative.
func (f *Filter) Contains(key []byte) bool {
	for _, pos := range f.positions(key) {
		if !f.bits.Test(uint(pos)) {
			return false
		}
	}
	return true
}

// positions computes the K bit indices for key per the djb2 + splitmix64
// scheme mandated for on-disk reproducibility.
func (f *Filter) positions(key []byte) []uint64 {
	state := djb2(key)
	out := make([]uint64, f.k)
	for i := uint(0); i < f.k; i++ {
		var z uint64
		state, z = splitmix64Next(state)
		out[i] = z % f.n
	}
	return out
}

// djb2 computes the classic djb2 hash over bytes, wrapping modulo 2^64.
func djb2(b []byte) uint64 {
	hash := uint64(5381)
	for _, c := range b {
		hash = hash*33 + uint64(c)
	}
	return hash
}

// splitmix64Next advances state and returns (newState, output).
func splitmix64Next(state uint64) (uint64, uint64) {
	state += goldenRatio64
	z := state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	z = z ^ (z >> 31)
	return state, z
}
