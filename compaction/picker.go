// Package compaction implements the picker, merge iterator, and job
// execution of spec.md §4.9: choosing which files to merge next, draining
// them in sorted order, and producing a single replacement SST.
//
// Grounded on other_examples/beb06e5e_ariesdevil-pebble__compaction.go's
// pickCompaction/compaction shape, simplified to spec.md §4.9's baseline
// policy: no grandparent-overlap growth and no seek-based compaction (both
// pebble refinements the spec does not ask for).
package compaction

import "github.com/strata-db/strata/internal/manifest"

const oneMiB = 1 << 20

// levelTargetBytes returns the byte threshold for level (>= 1) that
// triggers a size-based compaction: 10^level MiB, per spec.md §4.9. The
// `base_level_size`/`level_size_multiplier` Options exist for a future,
// more flexible picker but are reserved and unused by this baseline (spec.md
// §6's Options table marks level_size_multiplier explicitly so).
func levelTargetBytes(level int) uint64 {
	target := uint64(oneMiB)
	for i := 0; i < level; i++ {
		target *= 10
	}
	return target
}

// Task describes one compaction to run: merge inputs (all from Level, or
// for Level 0 all overlapping L0 files) into OutputLevel.
type Task struct {
	Inputs      []*manifest.FileMetadata
	Level       int
	OutputLevel int
}

// Picker returns at most one Task per call, preferring an L0 count trigger
// over any L>=1 byte-size trigger (spec.md §4.9).
type Picker struct {
	L0CompactionThreshold int
}

// NewPicker returns a Picker using l0Threshold as the L0 file-count trigger.
func NewPicker(l0Threshold int) *Picker {
	return &Picker{L0CompactionThreshold: l0Threshold}
}

func totalSize(files []*manifest.FileMetadata) uint64 {
	var sum uint64
	for _, f := range files {
		sum += f.Size
	}
	return sum
}

// Pick examines v and returns the next compaction task, or nil if none is
// due. Ties among L>=1 levels are broken by scanning levels in ascending
// order (lowest level first); ties among files within a level are broken
// by lowest file number (oldest-first, per spec.md §4.9).
func (p *Picker) Pick(v *manifest.Version) *Task {
	if len(v.Levels) > 0 && len(v.Levels[0]) >= p.L0CompactionThreshold {
		inputs := append([]*manifest.FileMetadata(nil), v.Levels[0]...)
		return &Task{Inputs: inputs, Level: 0, OutputLevel: 1}
	}

	for level := 1; level < len(v.Levels)-1; level++ {
		files := v.Levels[level]
		if len(files) == 0 || totalSize(files) <= levelTargetBytes(level) {
			continue
		}
		chosen := files[0]
		for _, f := range files[1:] {
			if f.FileNum < chosen.FileNum {
				chosen = f
			}
		}
		return &Task{Inputs: []*manifest.FileMetadata{chosen}, Level: level, OutputLevel: level + 1}
	}
	return nil
}
