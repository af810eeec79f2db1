package lsm

import "github.com/keymerge/lsmkv/common"

// Stats reports a read-only snapshot of the engine's layout: segment
// counts, per-level byte sizes, and the active WAL's size. NumKeys and
// ActiveSegSize both count the memtable's entries (shadowed versions and
// tombstones included); entries already flushed to SSTs are not counted.
func (e *Engine[K, V]) Stats() common.Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	var numKeys int64
	var diskSize int64
	for _, rh := range e.l0 {
		diskSize += rh.numBytes
	}
	levelSizes := make([]int64, len(e.levels))
	for i, runs := range e.levels {
		for _, rh := range runs {
			levelSizes[i] += rh.numBytes
			diskSize += rh.numBytes
		}
	}

	numKeys = int64(e.memtable.Len())
	numSegments := len(e.l0)
	for _, runs := range e.levels {
		numSegments += len(runs)
	}

	walBytes, _ := e.wal.Len()

	return common.Stats{
		NumKeys:       numKeys,
		NumSegments:   numSegments,
		ActiveSegSize: int64(e.memtable.Len()),
		TotalDiskSize: diskSize,
		L0Files:       len(e.l0),
		LevelSizes:    levelSizes,
		WALBytes:      walBytes,
	}
}
