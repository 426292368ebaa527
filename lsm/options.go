package lsm

import "go.uber.org/zap"

const (
	defaultMemtableCapacity = 1000
	defaultLevelFanout      = 4
	defaultBlockSize        = 128
	defaultDataDir          = "./lsmdata"
)

type config struct {
	memtableCapacity int
	levelFanout      int
	blockSize        int
	dataDir          string
	logger           *zap.Logger
	statsSampleSize  int
}

func defaultConfig() config {
	return config{
		memtableCapacity: defaultMemtableCapacity,
		levelFanout:      defaultLevelFanout,
		blockSize:        defaultBlockSize,
		dataDir:          defaultDataDir,
		logger:           zap.NewNop(),
	}
}

// Option configures an Engine at construction time.
type Option func(*config)

// WithMemtableCapacity sets C, the distinct-key count at which the
// memtable is flushed to a new level-0 segment.
func WithMemtableCapacity(c int) Option {
	return func(cfg *config) { cfg.memtableCapacity = c }
}

// WithLevelFanout sets R, the number of segments a level holds before it
// is compacted into the next level.
func WithLevelFanout(r int) Option {
	return func(cfg *config) { cfg.levelFanout = r }
}

// WithBlockSize sets the number of records per sparse-index block.
func WithBlockSize(b int) Option {
	return func(cfg *config) { cfg.blockSize = b }
}

// WithDataDir sets the directory in which segment files of every level are
// created, named <level>_<sequence>.seg.
func WithDataDir(dir string) Option {
	return func(cfg *config) { cfg.dataDir = dir }
}

// WithLogger sets the structured logger used for flush/cascade/error
// diagnostics. The default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithStatsSampler enables the post-flush false-positive sampler (see
// package stats) with the given number of probe keys per flush. A
// sampleSize of 0 (the default) disables sampling.
func WithStatsSampler(sampleSize int) Option {
	return func(cfg *config) { cfg.statsSampleSize = sampleSize }
}
