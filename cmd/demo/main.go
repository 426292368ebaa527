// Command demo drives the lsm engine with a small random workload and a
// handful of ad-hoc assertions. It is a demonstration harness, not part of
// the core engine: process bootstrap, random key/value generation, and
// result printing live here and nowhere else.
package main

import (
	"fmt"
	"math/rand"
	"os"

	"go.uber.org/zap"

	"github.com/kalyanm/lsmkv/lsm"
)

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomString(rng *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rng.Intn(len(alphabet))]
	}
	return string(b)
}

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	dir, err := os.MkdirTemp("", "lsmkv-demo-*")
	if err != nil {
		logger.Fatal("failed to create data directory", zap.Error(err))
	}
	defer os.RemoveAll(dir)

	engine, err := lsm.New(
		lsm.WithMemtableCapacity(100),
		lsm.WithLevelFanout(3),
		lsm.WithBlockSize(50),
		lsm.WithDataDir(dir),
		lsm.WithLogger(logger),
		lsm.WithStatsSampler(1000),
	)
	if err != nil {
		logger.Fatal("failed to create engine", zap.Error(err))
	}
	defer engine.Close()

	rng := rand.New(rand.NewSource(1))
	written := make(map[string]string, 1000)

	logger.Info("writing random records", zap.Int("count", 1000))
	for i := 0; i < 1000; i++ {
		key := randomString(rng, 10)
		value := randomString(rng, 10)
		written[key] = value

		if err := engine.Add(key, value); err != nil {
			logger.Fatal("add failed", zap.String("key", key), zap.Error(err))
		}
	}

	logger.Info("verifying read-your-writes over every inserted key")
	for key, want := range written {
		got, ok, err := engine.Get(key)
		if err != nil {
			logger.Fatal("get failed", zap.String("key", key), zap.Error(err))
		}
		if !ok || got != want {
			logger.Fatal("mismatch",
				zap.String("key", key), zap.String("want", want), zap.String("got", got), zap.Bool("found", ok))
		}
	}

	logger.Info("verifying absence for never-inserted keys")
	misses := 0
	for i := 0; i < 1000; i++ {
		key := randomString(rng, 12) // disjoint length from the inserted set
		if _, ok, err := engine.Get(key); err != nil {
			logger.Fatal("get failed", zap.String("key", key), zap.Error(err))
		} else if !ok {
			misses++
		}
	}

	logger.Info("demo complete",
		zap.Int("writes_verified", len(written)),
		zap.Int("absent_keys_confirmed", misses))
}
