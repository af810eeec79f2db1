// Package vfs is the abstract directory/file surface the storage engine is
// built against. The contract the engine relies on: rename is atomic under
// crash, bytes written but not synced may be lost on crash, and Create
// fails if the name already exists. Two implementations are provided: OS
// (a thin wrapper over the real filesystem) and Mem (an in-memory
// filesystem that can simulate a crash by discarding every byte written
// since the last Sync on each open file, for the metamorphic test
// harness's use).
package vfs

import "io"

// SeekOrigin mirrors io.Seeker's whence values by name.
type SeekOrigin int

const (
	SeekStart SeekOrigin = iota
	SeekCurrent
	SeekEnd
)

// File is a single open file within a Dir.
type File interface {
	io.Reader
	io.Writer

	// Seek repositions the read/write cursor and returns the new absolute
	// offset.
	Seek(offset int64, origin SeekOrigin) (int64, error)

	// Sync makes all bytes written so far durable. After Sync returns nil,
	// those bytes survive a crash; bytes written but never synced may not.
	Sync() error

	// Len returns the byte length of the file's current (possibly unsynced)
	// state.
	Len() (int64, error)

	// ReadAll returns a copy of the file's entire current (possibly
	// unsynced) contents, without disturbing the read/write cursor.
	ReadAll() ([]byte, error)

	// Close releases the file handle. It does not imply Sync.
	Close() error
}

// Dir is a directory: a namespace of files plus nameable subdirectories.
type Dir interface {
	// Open opens an existing file for reading and writing. It reports
	// (nil, ErrNotExist) if name does not exist.
	Open(name string) (File, error)

	// Create creates a new, empty file. It reports ErrExist if name already
	// exists; callers rely on this to implement write-once artifacts
	// (TMP_ROOT, sstNNN.sst).
	Create(name string) (File, error)

	// Unlink removes name. It reports whether the name existed.
	Unlink(name string) (bool, error)

	// Rename atomically replaces newname with oldname's contents; newname
	// is created if absent. The root pointer's crash consistency rests
	// entirely on this atomicity.
	Rename(oldname, newname string) error

	// List returns the names of all entries directly within the directory,
	// in no particular order.
	List() ([]string, error)

	// Cd returns (creating if necessary) a named subdirectory.
	Cd(subdir string) (Dir, error)
}
