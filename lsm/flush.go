package lsm

import (
	"github.com/cockroachdb/errors"

	"github.com/keymerge/lsmkv/memtable"
	"github.com/keymerge/lsmkv/root"
	"github.com/keymerge/lsmkv/sst"
	"github.com/keymerge/lsmkv/wal"
)

// FlushMemtable is a no-op if the memtable is empty; otherwise it streams
// the memtable into a new SST, appends it to L0, rotates the WAL, and
// transforms the root to reflect both.
func (e *Engine[K, V]) FlushMemtable() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flushLocked()
}

func (e *Engine[K, V]) flushLocked() error {
	if e.memtable.Empty() {
		return nil
	}

	id := e.nextSSTID
	name := sstName(id)
	f, err := e.opts.Dir.Create(name)
	if err != nil {
		return errors.Wrapf(err, "lsm: create %s", name)
	}

	w := sst.NewWriter(f, e.opts.resetInterval())
	cur := e.memtable.Scan()
	cur.Start()
	var haveAny bool
	var first, last sst.Entry
	for {
		entry, ok := cur.Next()
		if !ok {
			break
		}
		if !haveAny {
			first = entry
			haveAny = true
		}
		last = entry
		if err := w.Add(entry); err != nil {
			f.Close()
			return errors.Wrapf(err, "lsm: write entry to %s", name)
		}
	}
	if err := w.Finish(); err != nil {
		f.Close()
		return errors.Wrapf(err, "lsm: finish %s", name)
	}
	numBytes, err := f.Len()
	if err != nil {
		f.Close()
		return errors.Wrapf(err, "lsm: stat %s", name)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "lsm: close %s", name)
	}

	e.l0 = append(e.l0, runHandle{name: name, minKey: first.Key, maxKey: last.Key, numBytes: numBytes})

	oldWALName := e.walName
	if err := e.wal.Close(); err != nil {
		return errors.Wrap(err, "lsm: close old wal")
	}
	newWALName := walName(e.nextSeqnum)
	newWAL, err := wal.Create(e.opts.Dir, newWALName)
	if err != nil {
		return errors.Wrap(err, "lsm: create new wal")
	}
	e.wal = newWAL
	e.walName = newWALName

	maxSeqnum := e.nextSeqnum
	e.nextSSTID = id + 1

	if _, err := root.Transform(e.opts.Dir, func(l root.Layout) root.Layout {
		l.NextSSTID = e.nextSSTID
		l.WALs = []string{newWALName}
		l.L0 = append(append([]string{}, l.L0...), name)
		l.MaxSSTSeqnum = maxSeqnum
		return l
	}); err != nil {
		return errors.Wrap(err, "lsm: transform root after flush")
	}

	e.memtable = memtable.New()

	// The flush is committed once the root transform lands; a failure to
	// unlink the superseded WAL leaves clutter, not inconsistency, so it is
	// not surfaced as an error.
	if oldWALName != newWALName {
		if _, err := e.opts.Dir.Unlink(oldWALName); err != nil {
			e.log.Warnf("engine %s: unlink old wal %s: %v", e.id, oldWALName, err)
		}
	}

	e.log.Infof("engine %s flushed memtable to %s (%d bytes)", e.id, name, numBytes)
	e.metrics.flushes.Inc()
	return nil
}
