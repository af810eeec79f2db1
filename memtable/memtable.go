// Package memtable implements the in-memory write buffer: an ordered
// multiset of ((K, seqnum), value-or-tombstone) organized as a stack of
// sorted slabs under the skew-merge invariant: for each adjacent pair
// (slab[i], slab[i+1]), len(slab[i]) >= 2*len(slab[i+1]), otherwise the
// two are merged immediately. Inserts are amortized O(log n), and slabs
// are immutable once built, so cursors over them stay valid across later
// inserts. The memtable operates on ikey.Key/ikey.Value, sharing its
// internal-key representation with the sst and iters packages.
package memtable

import (
	"github.com/keymerge/lsmkv/ikey"
	"github.com/keymerge/lsmkv/iters"
	"github.com/keymerge/lsmkv/kviter"
)

// Entry is one memtable record.
type Entry = kviter.Entry[ikey.Key, ikey.Value]

// Memtable is the in-memory ordered write buffer. The zero value is not
// usable; construct with New.
type Memtable struct {
	haveSeqnum bool
	lastSeqnum uint64
	// slabs holds sorted, immutable runs. slabs[0] is the oldest (longest,
	// in expectation) and slabs[len-1] the newest; the skew invariant is
	// checked pairwise from the newest boundary inward after every insert.
	slabs [][]Entry
}

// New returns an empty memtable.
func New() *Memtable {
	return &Memtable{}
}

func mergeSorted(lhs, rhs []Entry) []Entry {
	out := make([]Entry, 0, len(lhs)+len(rhs))
	i, j := 0, 0
	for i < len(lhs) && j < len(rhs) {
		if ikey.Compare(lhs[i].Key, rhs[j].Key) < 0 {
			out = append(out, lhs[i])
			i++
		} else {
			out = append(out, rhs[j])
			j++
		}
	}
	out = append(out, lhs[i:]...)
	out = append(out, rhs[j:]...)
	return out
}

// maybeFixAt merges slabs[idx] and slabs[idx+1] in place if the skew
// invariant is violated between them.
func (m *Memtable) maybeFixAt(idx int) {
	if len(m.slabs[idx]) < 2*len(m.slabs[idx+1]) {
		merged := mergeSorted(m.slabs[idx], m.slabs[idx+1])
		rest := append([][]Entry{merged}, m.slabs[idx+2:]...)
		m.slabs = append(m.slabs[:idx], rest...)
	}
}

func (m *Memtable) insert(seqnum uint64, userKey []byte, value ikey.Value) {
	if m.haveSeqnum && seqnum <= m.lastSeqnum {
		panic("memtable: seqnums must be strictly increasing across inserts")
	}
	m.lastSeqnum = seqnum
	m.haveSeqnum = true

	m.slabs = append(m.slabs, []Entry{{Key: ikey.Key{UserKey: userKey, Seqnum: seqnum}, Value: value}})
	for i := len(m.slabs) - 2; i >= 0; i-- {
		m.maybeFixAt(i)
	}
}

// Insert applies a Write command: userKey and value are already
// codec-encoded bytes.
func (m *Memtable) Insert(seqnum uint64, userKey, value []byte) {
	m.insert(seqnum, userKey, ikey.Written(value))
}

// Delete applies a Delete command: a tombstone for userKey at seqnum.
func (m *Memtable) Delete(seqnum uint64, userKey []byte) {
	m.insert(seqnum, userKey, ikey.Tombstone())
}

// Len returns the total number of entries across all slabs, including
// shadowed versions and tombstones.
func (m *Memtable) Len() int {
	n := 0
	for _, s := range m.slabs {
		n += len(s)
	}
	return n
}

// Empty reports whether the memtable holds no entries.
func (m *Memtable) Empty() bool {
	return len(m.slabs) == 0
}

// Scan returns a cursor over every entry in internal-key order, via the
// merging iterator over the slab stack.
func (m *Memtable) Scan() kviter.Iter[ikey.Key, ikey.Value] {
	peers := make([]kviter.Iter[ikey.Key, ikey.Value], len(m.slabs))
	for i, s := range m.slabs {
		peers[i] = kviter.NewVecIter(s, ikey.Compare)
	}
	return iters.NewMerging(ikey.Compare, peers...)
}
