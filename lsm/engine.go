package lsm

import (
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/keymerge/lsmkv/codec"
	"github.com/keymerge/lsmkv/common"
	"github.com/keymerge/lsmkv/ikey"
	"github.com/keymerge/lsmkv/iters"
	"github.com/keymerge/lsmkv/kviter"
	"github.com/keymerge/lsmkv/memtable"
	"github.com/keymerge/lsmkv/root"
	"github.com/keymerge/lsmkv/sst"
	"github.com/keymerge/lsmkv/wal"
)

// runHandle is the in-memory layout entry for one sorted run: the run's
// filename plus the metadata its reader's trailers carry, so that
// scan-building and merge-planning never need to reopen a run just to
// learn its key range.
type runHandle struct {
	name           string
	minKey, maxKey ikey.Key
	numBytes       int64
}

// Addr identifies one run by its position in the layout: Level 0 means L0
// (an unordered, possibly-overlapping set); Level >= 1 indexes into
// Levels[Level-1] (an ordered, disjoint sequence). Merge targets are
// expressed as Addrs.
type Addr struct {
	Level int
	Index int
}

// Engine is the coordinator: it owns the root pointer, the active WAL, the
// memtable, and the in-memory layout, and composes the sst, wal, root,
// memtable and iters packages into the insert/delete/get/scan/flush/merge
// surface. It is parameterized by the caller's codec.Codec[K] and
// codec.Codec[V], but only ever handles already-encoded bytes on its hot
// path (ikey.Key/ikey.Value): generics live at the boundary, the cursor
// stack underneath is concrete.
type Engine[K any, V any] struct {
	opts     Options
	keyCodec codec.Codec[K]
	valCodec codec.Codec[V]

	id  uuid.UUID
	log Logger

	mu            sync.Mutex
	nextSeqnum    uint64
	visibleSeqnum atomic.Uint64
	nextSSTID     uint64

	memtable *memtable.Memtable
	wal      *wal.Writer
	walName  string

	l0     []runHandle
	levels [][]runHandle

	metrics *metricSet
}

// Open loads (or initializes) the engine directory: load the root, replay
// every WAL to rebuild the memtable and the seqnum counter, prune WALs
// that replayed nothing, open every referenced SST's metadata, and install
// a fresh WAL for subsequent writes.
func Open[K any, V any](opts Options, keyCodec codec.Codec[K], valCodec codec.Codec[V]) (*Engine[K, V], error) {
	if opts.Dir == nil {
		return nil, errors.Mark(errors.New("lsm: Options.Dir is required"), common.ErrInvalidArgument)
	}
	log := opts.logger()

	e := &Engine[K, V]{
		opts:     opts,
		keyCodec: keyCodec,
		valCodec: valCodec,
		id:       uuid.New(),
		log:      log,
		memtable: memtable.New(),
		metrics:  newMetricSet(),
	}

	layout, err := root.Load(opts.Dir)
	if err != nil {
		return nil, errors.Wrap(err, "lsm: load root")
	}

	// Step 2: replay every WAL, rebuilding the memtable and the seqnum
	// counter. Track which WALs produced zero commands so they can be
	// pruned in step 3.
	var emptyWALs []string
	for _, name := range layout.WALs {
		cmds, err := wal.Replay(opts.Dir, name)
		if err != nil {
			return nil, errors.Wrapf(err, "lsm: replay %s", name)
		}
		if len(cmds) == 0 {
			emptyWALs = append(emptyWALs, name)
			continue
		}
		for _, c := range cmds {
			if c.Seqnum > e.nextSeqnum {
				e.nextSeqnum = c.Seqnum
			}
			if c.Delete {
				e.memtable.Delete(c.Seqnum, c.UserKey)
			} else {
				e.memtable.Insert(c.Seqnum, c.UserKey, c.Value)
			}
		}
	}

	if len(emptyWALs) > 0 {
		empty := make(map[string]bool, len(emptyWALs))
		for _, n := range emptyWALs {
			empty[n] = true
		}
		layout, err = root.Transform(opts.Dir, func(l root.Layout) root.Layout {
			var kept []string
			for _, n := range l.WALs {
				if !empty[n] {
					kept = append(kept, n)
				}
			}
			l.WALs = kept
			return l
		})
		if err != nil {
			return nil, errors.Wrap(err, "lsm: prune empty WALs")
		}
		// The root no longer references these, so a failed unlink leaves
		// clutter in the directory, not inconsistency.
		for _, n := range emptyWALs {
			if _, err := opts.Dir.Unlink(n); err != nil {
				log.Warnf("engine %s: unlink empty WAL %s: %v", e.id, n, err)
			}
		}
	}

	// Step 4: open every referenced SST's metadata, in parallel.
	l0, err := e.openRuns(layout.L0)
	if err != nil {
		return nil, err
	}
	e.l0 = l0

	e.levels = make([][]runHandle, len(layout.Levels))
	for i, names := range layout.Levels {
		runs, err := e.openRuns(names)
		if err != nil {
			return nil, err
		}
		e.levels[i] = runs
	}

	// Step 5.
	if layout.MaxSSTSeqnum > e.nextSeqnum {
		e.nextSeqnum = layout.MaxSSTSeqnum
	}
	e.nextSSTID = layout.NextSSTID

	// Step 6: fresh WAL, named from the current seqnum counter.
	newWALName := walName(e.nextSeqnum)
	w, err := wal.Create(opts.Dir, newWALName)
	if err != nil {
		return nil, errors.Wrap(err, "lsm: create fresh wal")
	}
	e.wal = w
	e.walName = newWALName

	// Step 7.
	if _, err := root.Transform(opts.Dir, func(l root.Layout) root.Layout {
		l.WALs = append(append([]string{}, l.WALs...), newWALName)
		return l
	}); err != nil {
		return nil, errors.Wrap(err, "lsm: append fresh wal to root")
	}

	// Step 8.
	e.visibleSeqnum.Store(e.nextSeqnum)

	log.Infof("engine %s opened: l0=%d levels=%d next_seqnum=%d", e.id, len(e.l0), len(e.levels), e.nextSeqnum)
	return e, nil
}

// openRuns opens the metadata of every named SST concurrently via an
// errgroup: each open is an independent blocking filesystem read, and the
// first error wins.
func (e *Engine[K, V]) openRuns(names []string) ([]runHandle, error) {
	out := make([]runHandle, len(names))
	var g errgroup.Group
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			rh, err := e.openRunMetadata(name)
			if err != nil {
				return err
			}
			out[i] = rh
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine[K, V]) openRunMetadata(name string) (runHandle, error) {
	f, err := e.opts.Dir.Open(name)
	if err != nil {
		return runHandle{}, errors.Wrapf(err, "lsm: open %s", name)
	}
	defer f.Close()
	r, err := sst.Open(f)
	if err != nil {
		return runHandle{}, errors.Wrapf(err, "lsm: parse %s", name)
	}
	nb, err := r.NumBytes()
	if err != nil {
		return runHandle{}, errors.Wrapf(err, "lsm: stat %s", name)
	}
	return runHandle{name: name, minKey: r.MinKey(), maxKey: r.MaxKey(), numBytes: nb}, nil
}

func (e *Engine[K, V]) openReader(name string) (*sst.Reader, error) {
	f, err := e.opts.Dir.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "lsm: open %s", name)
	}
	r, err := sst.Open(f)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "lsm: parse %s", name)
	}
	return r, nil
}

// Insert allocates a seqnum, appends a Write command to the active WAL
// (which syncs), applies it to the memtable, and ratchets the visible
// seqnum.
func (e *Engine[K, V]) Insert(k K, v V) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	kb := e.keyCodec.Encode(k)
	vb := e.valCodec.Encode(v)
	e.nextSeqnum++
	seq := e.nextSeqnum
	if err := e.wal.Write(wal.Command{Seqnum: seq, UserKey: kb, Value: vb}); err != nil {
		return errors.Wrap(err, "lsm: write wal")
	}
	e.memtable.Insert(seq, kb, vb)
	e.ratchetVisible(seq)
	e.metrics.inserts.Inc()
	return nil
}

// Delete writes a tombstone: identical to Insert except the command
// carries no value.
func (e *Engine[K, V]) Delete(k K) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	kb := e.keyCodec.Encode(k)
	e.nextSeqnum++
	seq := e.nextSeqnum
	if err := e.wal.Write(wal.Command{Seqnum: seq, UserKey: kb, Delete: true}); err != nil {
		return errors.Wrap(err, "lsm: write wal")
	}
	e.memtable.Delete(seq, kb)
	e.ratchetVisible(seq)
	e.metrics.deletes.Inc()
	return nil
}

// ratchetVisible raises the visible seqnum to at least seq via a
// compare-and-set loop, never lowering it and tolerating benign ties
// (relevant only if a host ever reads the counter concurrently while
// serializing writes with an external lock).
func (e *Engine[K, V]) ratchetVisible(seq uint64) {
	for {
		cur := e.visibleSeqnum.Load()
		if cur >= seq {
			return
		}
		if e.visibleSeqnum.CompareAndSwap(cur, seq) {
			return
		}
	}
}

// buildScan composes the full read path: the memtable cursor, one
// level-iter-of-one per L0 run, one level iterator per lower level, all
// fed into a merging iterator, wrapped in a seqnum iterator at the
// snapshot seqnum given.
func (e *Engine[K, V]) buildScan(snapshot uint64) (*iters.SeqnumIter, []*sst.Reader, error) {
	var peers []kviter.Iter[ikey.Key, ikey.Value]
	var readers []*sst.Reader
	peers = append(peers, e.memtable.Scan())

	for _, rh := range e.l0 {
		r, err := e.openReader(rh.name)
		if err != nil {
			return nil, nil, err
		}
		readers = append(readers, r)
		r.Start()
		peers = append(peers, iters.NewLevel[ikey.Key, ikey.Value](ikey.Compare,
			[]kviter.Iter[ikey.Key, ikey.Value]{r}, []ikey.Key{rh.minKey}))
	}

	for _, level := range e.levels {
		if len(level) == 0 {
			continue
		}
		lvlPeers := make([]kviter.Iter[ikey.Key, ikey.Value], 0, len(level))
		firstKeys := make([]ikey.Key, 0, len(level))
		for _, rh := range level {
			r, err := e.openReader(rh.name)
			if err != nil {
				return nil, nil, err
			}
			readers = append(readers, r)
			r.Start()
			lvlPeers = append(lvlPeers, r)
			firstKeys = append(firstKeys, rh.minKey)
		}
		peers = append(peers, iters.NewLevel[ikey.Key, ikey.Value](ikey.Compare, lvlPeers, firstKeys))
	}

	merged := iters.NewMerging[ikey.Key, ikey.Value](ikey.Compare, peers...)
	merged.Start()
	seq := iters.NewSeqnum(merged, snapshot)
	seq.Start()
	return seq, readers, nil
}

// Scan returns a snapshot cursor at the current visible seqnum, stable
// against subsequent writes for the duration of the cursor. Callers must
// Close the returned Cursor to release its SST file handles.
func (e *Engine[K, V]) Scan() (*Cursor[K, V], error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	under, readers, err := e.buildScan(e.visibleSeqnum.Load())
	if err != nil {
		return nil, err
	}
	return newCursor(under, e.keyCodec, e.valCodec, readers), nil
}

// Get builds a snapshot scan, seeks to k, reads one entry, and returns the
// value iff the entry's user key equals k.
func (e *Engine[K, V]) Get(k K) (V, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var zero V
	kb := e.keyCodec.Encode(k)
	under, readers, err := e.buildScan(e.visibleSeqnum.Load())
	if err != nil {
		return zero, false, err
	}
	defer func() {
		for _, r := range readers {
			r.Close()
		}
	}()
	under.SeekGE(kb)
	entry, ok := under.Next()
	e.metrics.gets.Inc()
	if !ok || string(entry.Key) != string(kb) {
		return zero, false, nil
	}
	v, err := e.valCodec.Decode(entry.Value)
	if err != nil {
		return zero, false, errors.Wrap(err, "lsm: decode stored value")
	}
	return v, true, nil
}

// Close releases the active WAL handle. It does not flush the memtable;
// an unflushed memtable is recovered from the WAL on the next Open.
func (e *Engine[K, V]) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.wal.Close()
}

// Sync is a no-op: every Insert/Delete already syncs the WAL before
// returning, so there is no buffered mutation to flush. Kept to satisfy
// common.StorageEngine's surface via the Adapter.
func (e *Engine[K, V]) Sync() error { return nil }
