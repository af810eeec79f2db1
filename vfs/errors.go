package vfs

import "github.com/cockroachdb/errors"

var (
	// ErrNotExist is returned by Open when name does not exist.
	ErrNotExist = errors.New("vfs: file does not exist")
	// ErrExist is returned by Create when name already exists.
	ErrExist = errors.New("vfs: file already exists")
)
