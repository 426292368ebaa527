// Package lsm implements the embedded ordered key-value engine: a bounded
// memtable backed by a cascade of on-disk sorted segments, compacted
// level-by-level via k-way merge.
//
// The engine is single-threaded and cooperative: Add performs any flush
// and the ensuing compaction cascade synchronously before returning, and
// Get never blocks on anything but the filesystem. Concurrent use from
// multiple goroutines is not supported; callers needing that must
// synchronize externally.
package lsm

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/kalyanm/lsmkv/memtable"
	"github.com/kalyanm/lsmkv/segment"
	"github.com/kalyanm/lsmkv/stats"
)

// Engine is the embedded LSM key-value store. The zero value is not
// usable; construct with New.
type Engine struct {
	cfg     config
	mt      *memtable.Memtable
	levels  [][]*segment.Segment
	nextSeq []int
	log     *zap.Logger
	rng     *rand.Rand
}

// New creates an Engine rooted at the configured data directory, applying
// opts over the defaults (C=1000, R=4, BLOCK_SIZE=128).
func New(opts ...Option) (*Engine, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := ensureDir(cfg.dataDir); err != nil {
		return nil, fmt.Errorf("lsm: create data dir %s: %w", cfg.dataDir, err)
	}

	return &Engine{
		cfg: cfg,
		mt:  memtable.New(),
		log: cfg.logger,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Add inserts or overwrites key with value. If the memtable's distinct-key
// count reaches the configured capacity, Add flushes it to a new level-0
// segment and runs the compaction cascade before returning.
func (e *Engine) Add(key, value string) error {
	if strings.ContainsRune(key, '\n') || strings.ContainsRune(value, '\n') {
		return ErrInvalidRecord
	}

	e.mt.Put(key, value)
	if e.mt.Len() < e.cfg.memtableCapacity {
		return nil
	}

	return e.flush()
}

// Get returns the value most recently written for key: the memtable if
// present, else the newest segment (across levels, newest level first;
// within a level, newest segment first) that contains it.
func (e *Engine) Get(key string) (string, bool, error) {
	if v, ok := e.mt.Get(key); ok {
		return v, true, nil
	}

	for level := 0; level < len(e.levels); level++ {
		segs := e.levels[level]
		for i := len(segs) - 1; i >= 0; i-- {
			v, ok, err := segs[i].Lookup(key)
			if err != nil {
				return "", false, fmt.Errorf("lsm: get %q at level %d: %w", key, level, err)
			}
			if ok {
				return v, true, nil
			}
		}
	}

	return "", false, nil
}

// Close releases every open segment read handle. It does not flush a
// partially-filled memtable: unflushed writes are lost on close, since
// there is no write-ahead log to recover them from.
func (e *Engine) Close() error {
	var err error
	for _, segs := range e.levels {
		for _, s := range segs {
			if cerr := s.Close(); cerr != nil {
				err = multierr.Append(err, cerr)
			}
		}
	}
	return err
}

func (e *Engine) flush() error {
	snapshot := e.mt.Snapshot()
	records := make([]segment.Record, len(snapshot))
	keys := make([]string, len(snapshot))
	for i, r := range snapshot {
		records[i] = segment.Record{Key: r.Key, Value: r.Value}
		keys[i] = r.Key
	}

	e.ensureLevel(0)
	path := e.segmentPath(0)
	seg, err := segment.BuildFromMemtable(records, path, e.cfg.blockSize)
	if err != nil {
		e.log.Error("flush failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("lsm: flush: %w", err)
	}

	e.levels[0] = append(e.levels[0], seg)
	e.mt = memtable.New()

	e.log.Debug("flushed memtable to level 0",
		zap.String("path", path), zap.Int("records", len(records)))

	if e.cfg.statsSampleSize > 0 {
		rate := stats.SampleFalsePositiveRate(keys, e.cfg.statsSampleSize, e.rng)
		e.log.Debug("sampled segment filter false-positive rate",
			zap.String("path", path), zap.Float64("rate", rate))
	}

	return e.cascade(0)
}

// cascade compacts level, and every level that becomes full as a result,
// upward until no level holds R or more segments. Errors removing a
// compacted source segment are aggregated across the whole cascade and
// returned at the end rather than abandoning the cascade early: the new
// merged segments are already in place and correct, so there is no reason
// to stop, but the caller still needs to know a source file was leaked.
func (e *Engine) cascade(level int) error {
	var cleanupErr error

	for len(e.levels[level]) >= e.cfg.levelFanout {
		e.ensureLevel(level + 1)

		sources := e.levels[level]
		path := e.segmentPath(level + 1)

		merged, err := segment.Compact(sources, path, e.cfg.blockSize)
		if err != nil {
			e.log.Error("compaction failed", zap.Int("level", level), zap.Error(err))
			return fmt.Errorf("lsm: compact level %d: %w", level, err)
		}

		for _, s := range sources {
			if rerr := s.Remove(); rerr != nil {
				cleanupErr = multierr.Append(cleanupErr, rerr)
			}
		}

		e.levels[level] = nil
		e.levels[level+1] = append(e.levels[level+1], merged)

		e.log.Info("cascaded compaction",
			zap.Int("from", level), zap.Int("to", level+1), zap.Int("records", merged.Len()))

		level++
	}

	if cleanupErr != nil {
		e.log.Error("failed to remove compacted source segments", zap.Error(cleanupErr))
		return fmt.Errorf("lsm: cascade cleanup: %w", cleanupErr)
	}

	return nil
}

func (e *Engine) ensureLevel(n int) {
	for len(e.levels) <= n {
		e.levels = append(e.levels, nil)
		e.nextSeq = append(e.nextSeq, 0)
	}
}

func (e *Engine) segmentPath(level int) string {
	seq := e.nextSeq[level]
	e.nextSeq[level]++
	name := fmt.Sprintf("%d_%04d.seg", level, seq)
	return filepath.Join(e.cfg.dataDir, name)
}
