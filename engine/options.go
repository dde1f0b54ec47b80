package engine

import (
	"github.com/strata-db/strata/internal/base"
	"github.com/strata-db/strata/internal/logger"
	"github.com/strata-db/strata/internal/metrics"
	"github.com/strata-db/strata/sstable"
)

// Options configures Open, per spec.md §6's recognized-keys table. The zero
// value is not directly usable; start from DefaultOptions.
type Options struct {
	// CreateIfMissing creates the database directory if it does not exist.
	CreateIfMissing bool
	// ErrorIfExists fails Open if the directory already holds a database.
	ErrorIfExists bool

	// MemTableSize is the approximate byte size at which the active
	// MemTable is frozen and a new one installed.
	MemTableSize int64
	// Level0CompactionThreshold is the L0 file-count trigger.
	Level0CompactionThreshold int
	// LevelSizeMultiplier is reserved for a future picker; the baseline
	// picker in the compaction package hardcodes 10^level MiB and ignores
	// this field (spec.md §6 marks it "unused by baseline picker, reserved").
	LevelSizeMultiplier int
	// BaseLevelSize is recorded but not read by the compaction picker: its
	// level targets are fixed at 10^level MiB (10 MiB at L1, equal to this
	// field's default), so another value does not change when L1 is
	// compacted.
	BaseLevelSize int64
	// MaxLevels is the number of levels in the LSM tree.
	MaxLevels int

	// BlockSize is the target uncompressed size of one SST data block.
	BlockSize int
	// BlockCacheSize is the block cache's byte budget; 0 disables caching.
	BlockCacheSize int64
	// UseBloomFilter controls whether new tables carry a filter block.
	UseBloomFilter bool
	// BloomFilterFPRate is the filter's target false-positive rate.
	BloomFilterFPRate float64
	// Compression selects the per-block compressor for new tables.
	Compression sstable.Compression

	// UseWAL controls whether writes are logged before being applied.
	UseWAL bool
	// SyncWAL fsyncs the WAL after every logical write when true.
	SyncWAL bool

	// Comparer orders user keys. Defaults to base.DefaultComparer.
	Comparer *base.Comparer
	// Logger receives recovery warnings and compaction/flush diagnostics.
	// Defaults to logger.NoOp.
	Logger logger.Logger
	// Metrics receives counters and latency observations. A nil Metrics is
	// a fully valid no-op (see internal/metrics).
	Metrics *metrics.Registry

	// CompactionThrottleBytesPerSec paces background compactions via a token
	// bucket charged with each task's input bytes (0 disables throttling).
	// Flushes are not throttled. Not named
	// in spec.md §6's table: an addition from the domain-stack expansion
	// wiring github.com/cockroachdb/tokenbucket.
	CompactionThrottleBytesPerSec float64
}

// DefaultOptions returns the defaults from spec.md §6's table.
func DefaultOptions() Options {
	return Options{
		CreateIfMissing:            true,
		ErrorIfExists:              false,
		MemTableSize:               4 << 20,
		Level0CompactionThreshold:  4,
		LevelSizeMultiplier:        10,
		BaseLevelSize:              10 << 20,
		MaxLevels:                  7,
		BlockSize:                  4 << 10,
		BlockCacheSize:             8 << 20,
		UseBloomFilter:             true,
		BloomFilterFPRate:          0.01,
		Compression:                sstable.SnappyCompression,
		UseWAL:                     true,
		SyncWAL:                    true,
		CompactionThrottleBytesPerSec: 0,
	}
}

// ensureDefaults fills in any zero-valued field that must never be nil, so
// the rest of the engine can use o.Comparer/o.Logger unconditionally.
func (o Options) ensureDefaults() Options {
	if o.Comparer == nil {
		o.Comparer = base.DefaultComparer
	}
	if o.Logger == nil {
		o.Logger = logger.NoOp
	}
	return o
}

// validate checks the invariants from spec.md §6: "memtable_size > 0;
// block_size > 0; max_levels > 0; 0 < bloom_filter_fp_rate < 1".
func (o Options) validate() error {
	if o.MemTableSize <= 0 {
		return base.NewError(base.KindInvalidArgument, "engine: MemTableSize must be > 0")
	}
	if o.BlockSize <= 0 {
		return base.NewError(base.KindInvalidArgument, "engine: BlockSize must be > 0")
	}
	if o.MaxLevels <= 0 {
		return base.NewError(base.KindInvalidArgument, "engine: MaxLevels must be > 0")
	}
	if o.BloomFilterFPRate <= 0 || o.BloomFilterFPRate >= 1 {
		return base.NewError(base.KindInvalidArgument, "engine: BloomFilterFPRate must be in (0, 1)")
	}
	return nil
}

func (o Options) writerOptions() sstable.WriterOptions {
	return sstable.WriterOptions{
		Comparer:     o.Comparer,
		BlockSize:    o.BlockSize,
		Compression:  o.Compression,
		UseFilter:    o.UseBloomFilter,
		FilterFPRate: o.BloomFilterFPRate,
	}
}

func (o Options) readerOptions() sstable.ReaderOptions {
	return sstable.ReaderOptions{Comparer: o.Comparer}
}
