// Package stats provides an optional, non-authoritative diagnostic that
// estimates the false-positive rate of an independent reference filter
// built over a segment's keys. It does not measure the engine's own
// fixed-parameter filter.
package stats

import (
	"fmt"
	"math/rand"

	"github.com/bits-and-blooms/bloom/v3"
)

// SampleFalsePositiveRate builds a reference Bloom filter over keys using
// the bits-and-blooms/bloom library's own hash scheme (distinct from the
// engine's djb2/splitmix64 filter), then estimates its false-positive rate
// by probing sampleSize keys guaranteed not to be in the input set.
//
// This never touches the engine's read path; it exists purely to give
// operators a second, independently-computed opinion on filter behavior
// after a flush.
func SampleFalsePositiveRate(keys []string, sampleSize int, rng *rand.Rand) float64 {
	if len(keys) == 0 || sampleSize <= 0 {
		return 0
	}

	ref := bloom.NewWithEstimates(uint(len(keys)), 0.01)
	present := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		ref.AddString(k)
		present[k] = struct{}{}
	}

	falsePositives := 0
	probed := 0
	for probed < sampleSize {
		candidate := fmt.Sprintf("__stats_probe_%d_%d", rng.Int63(), probed)
		if _, ok := present[candidate]; ok {
			continue
		}
		probed++
		if ref.TestString(candidate) {
			falsePositives++
		}
	}

	return float64(falsePositives) / float64(sampleSize)
}
