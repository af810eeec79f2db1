package lsm

import "fmt"

// walName and sstName produce the engine's on-disk artifact names:
// wal{seqnum} and sst{id}.sst.
func walName(seqnum uint64) string { return fmt.Sprintf("wal%d", seqnum) }
func sstName(id uint64) string     { return fmt.Sprintf("sst%d.sst", id) }
