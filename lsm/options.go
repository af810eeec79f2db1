// Package lsm implements the coordinator: the single-threaded engine that
// owns the root pointer, the active WAL, the in-memory memtable, and the
// on-disk level layout, and wires the sst, wal, root, memtable and iters
// packages together into the Open/Insert/Delete/Get/Scan/FlushMemtable/
// Merge surface.
package lsm

import (
	"log"
	"os"

	"github.com/keymerge/lsmkv/sst"
	"github.com/keymerge/lsmkv/vfs"
)

// Logger is the engine's leveled-logging seam. DefaultOptions installs a
// stdlib-backed implementation; hosts that want structured output supply
// their own.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
}

// stdLogger is the default Logger, a thin wrapper over the standard
// library's log package.
type stdLogger struct {
	l *log.Logger
}

func (s stdLogger) Infof(format string, args ...any) { s.l.Printf("INFO  "+format, args...) }
func (s stdLogger) Warnf(format string, args ...any) { s.l.Printf("WARN  "+format, args...) }

func newStdLogger() Logger {
	return stdLogger{l: log.New(os.Stderr, "lsmkv ", log.LstdFlags)}
}

// Options configures an Engine.
type Options struct {
	// Dir is the directory the engine's on-disk artifacts (ROOT, TMP_ROOT,
	// wal{seqnum}, sst{id}.sst) live in.
	Dir vfs.Dir

	// SSTResetInterval is the number of entries per SST data block before
	// prefix compression resets (sst.DefaultResetInterval if zero).
	SSTResetInterval int

	// MaxL0Files is a soft trigger threshold a host can poll Stats() against
	// to decide when to call Merge; the engine itself never triggers a merge
	// on its own; flush and merge are foreground operations.
	MaxL0Files int

	Logger Logger
}

// DefaultOptions returns Options with reasonable defaults for dir.
func DefaultOptions(dir vfs.Dir) Options {
	return Options{
		Dir:              dir,
		SSTResetInterval: sst.DefaultResetInterval,
		MaxL0Files:       4,
		Logger:           newStdLogger(),
	}
}

func (o Options) logger() Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return newStdLogger()
}

func (o Options) resetInterval() int {
	if o.SSTResetInterval > 0 {
		return o.SSTResetInterval
	}
	return sst.DefaultResetInterval
}
