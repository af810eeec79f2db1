// Package common holds cross-cutting types shared by every package in this
// module: the error taxonomy, the StorageEngine interface used by the
// benchmark harness and the CLI, and engine-wide statistics.
package common

import "github.com/cockroachdb/errors"

// The four error classes the engine distinguishes. Errors the engine
// classifies are wrapped with errors.Mark against one of these sentinels, so
// callers can discriminate with errors.Is without depending on error
// string text. Filesystem failures are wrapped with context but are not
// marked with ErrIO.
var (
	// ErrInvalidArgument marks a caller-supplied argument the engine rejects
	// outright: an out-of-range merge target, or a target_level below the
	// highest source level.
	ErrInvalidArgument = errors.New("lsm: invalid argument")
	// ErrCorruptOnDisk marks on-disk state that fails to parse: an SST whose
	// trailers or index don't decode. WAL replay does not report it: a WAL
	// record that doesn't parse ends replay silently.
	ErrCorruptOnDisk = errors.New("lsm: corrupt on-disk state")
	// ErrIO marks an underlying filesystem failure, surfaced to the caller
	// unchanged in kind.
	ErrIO = errors.New("lsm: io error")
	// ErrPrecondition marks a programmer-bug precondition violation: an
	// attempt to create an empty SST. Non-monotone memtable seqnums panic
	// instead of returning an error.
	ErrPrecondition = errors.New("lsm: precondition violated")

	// ErrKeyNotFound is returned by the common.StorageEngine adapter's Get
	// for an absent key (the generic Engine[K, V].Get instead returns
	// (zero, false, nil): absence is not an error there).
	ErrKeyNotFound = errors.New("key not found")

	ErrClosed   = errors.New("storage engine closed")
	ErrKeyEmpty = errors.New("key cannot be empty")
)
