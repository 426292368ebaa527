package filter

import (
	"fmt"
	"math/rand"
	"slices"
	"testing"
)

func TestAddContains(t *testing.T) {
	f := NewDefault()

	keys := make([][]byte, 1000)
	for i := range keys {
		keys[i] = []byte(fmt.Sprintf("key-%d", i))
		f.Add(keys[i])
	}

	for _, k := range keys {
		if !f.Contains(k) {
			t.Fatalf("expected Contains(%s) = true", k)
		}
	}
}

func TestContainsEmptyFilterIsFalse(t *testing.T) {
	f := NewDefault()
	if f.Contains([]byte("anything")) {
		t.Fatal("expected Contains on empty filter to be false")
	}
}

func TestFalsePositiveRateIsLow(t *testing.T) {
	f := NewDefault()

	for i := 0; i < 1000; i++ {
		f.Add([]byte(fmt.Sprintf("present-%d", i)))
	}

	rng := rand.New(rand.NewSource(7))
	const trials = 100_000
	falsePositives := 0
	for i := 0; i < trials; i++ {
		key := []byte(fmt.Sprintf("absent-%d", rng.Int63()))
		if f.Contains(key) {
			falsePositives++
		}
	}

	rate := float64(falsePositives) / float64(trials)
	// Theoretical rate for K=7, N=1e6, n=1000 is ~7.6e-15; allow generous slack.
	if rate > 0.01 {
		t.Fatalf("false positive rate too high: %f", rate)
	}
}

func TestDeterministicPositions(t *testing.T) {
	a := NewDefault()
	b := NewDefault()

	keys := []string{"alpha", "beta", "gamma", ""}
	for _, k := range keys {
		a.Add([]byte(k))
		b.Add([]byte(k))
	}

	for _, k := range keys {
		if !slices.Equal(a.positions([]byte(k)), b.positions([]byte(k))) {
			t.Fatalf("filters diverged on key %q", k)
		}
	}
}

func TestDjb2KnownValues(t *testing.T) {
	// djb2("") == 5381
	if got := djb2(nil); got != 5381 {
		t.Fatalf("djb2(nil) = %d, want 5381", got)
	}
}
