// Package root implements the atomic root pointer: a durable pointer to
// the current on-disk layout descriptor, rotated by write-temp-then-rename
// so that every transition is atomic with respect to crash: readers only
// ever observe the pre- or post-state, never a torn one.
package root

import (
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/keymerge/lsmkv/vfs"
)

const (
	rootName    = "ROOT"
	tmpRootName = "TMP_ROOT"
)

// Layout is the disk layout descriptor the root points at. Levels is
// indexed from 0 meaning L1 (L0 is tracked separately, since its runs are
// allowed to overlap while every entry of Levels must not).
type Layout struct {
	MaxSSTSeqnum uint64     `json:"max_sst_seqnum"`
	NextSSTID    uint64     `json:"next_sst_id"`
	L0           []string   `json:"l0"`
	Levels       [][]string `json:"levels"`
	WALs         []string   `json:"wals"`
}

func empty() Layout {
	return Layout{}
}

// Load returns the current layout descriptor, initializing and persisting a
// default one if ROOT does not yet exist.
func Load(dir vfs.Dir) (Layout, error) {
	f, err := dir.Open(rootName)
	if errors.Is(err, vfs.ErrNotExist) {
		l := empty()
		if err := Write(dir, l); err != nil {
			return Layout{}, err
		}
		return l, nil
	}
	if err != nil {
		return Layout{}, errors.Wrap(err, "root: open")
	}
	defer f.Close()

	b, err := f.ReadAll()
	if err != nil {
		return Layout{}, errors.Wrap(err, "root: read")
	}
	var l Layout
	if err := json.Unmarshal(b, &l); err != nil {
		return Layout{}, errors.Wrap(err, "root: parse")
	}
	return l, nil
}

// Write durably installs l as the current layout descriptor: (a) unlink
// TMP_ROOT if present, (b) create TMP_ROOT and write the serialized
// descriptor, (c) sync, (d) rename TMP_ROOT -> ROOT. Crash safety depends
// only on (d)'s atomicity.
func Write(dir vfs.Dir, l Layout) error {
	if _, err := dir.Unlink(tmpRootName); err != nil {
		return errors.Wrap(err, "root: unlink stale tmp root")
	}
	f, err := dir.Create(tmpRootName)
	if err != nil {
		return errors.Wrap(err, "root: create tmp root")
	}
	b, err := json.Marshal(l)
	if err != nil {
		return errors.Wrap(err, "root: marshal layout")
	}
	if _, err := f.Write(b); err != nil {
		return errors.Wrap(err, "root: write tmp root")
	}
	if err := f.Sync(); err != nil {
		return errors.Wrap(err, "root: sync tmp root")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "root: close tmp root")
	}
	if err := dir.Rename(tmpRootName, rootName); err != nil {
		return errors.Wrap(err, "root: rename tmp root into place")
	}
	return nil
}

// Transform is the load-modify-store wrapper: new := f(current);
// write(new).
func Transform(dir vfs.Dir, f func(Layout) Layout) (Layout, error) {
	cur, err := Load(dir)
	if err != nil {
		return Layout{}, err
	}
	next := f(cur)
	if err := Write(dir, next); err != nil {
		return Layout{}, err
	}
	return next, nil
}
