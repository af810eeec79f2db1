// Package iters implements the layered iterator stack: a generic N-way
// merging cursor, a generic concatenating level cursor, and the
// ikey-specific seqnum snapshot cursor that the other two feed into. The
// merge is a heap-free linear scan over its peers; N stays small in
// practice (one memtable plus one cursor per L0 run and one per lower
// level), so a heap would buy nothing.
package iters

import "github.com/keymerge/lsmkv/kviter"

// MergingIter merges N peer cursors of the same key/value type into one,
// producing their entries in sorted order. Ties on peek/next are broken in
// favor of whichever peer was passed first; ties on peek_prev/prev equally.
type MergingIter[K any, V any] struct {
	peers []kviter.Iter[K, V]
	cmp   kviter.Compare[K]
}

// NewMerging builds a MergingIter over peers, which must already be
// positioned consistently with one another (typically all at Start()).
func NewMerging[K any, V any](cmp kviter.Compare[K], peers ...kviter.Iter[K, V]) *MergingIter[K, V] {
	return &MergingIter[K, V]{peers: peers, cmp: cmp}
}

// lowest returns the index of the peer whose Peek() key is smallest, or -1
// if every peer is exhausted. Ties favor the lowest index (first-to-appear
// wins).
func (m *MergingIter[K, V]) lowest() int {
	best := -1
	var bestKey K
	for i, p := range m.peers {
		e, ok := p.Peek()
		if !ok {
			continue
		}
		if best == -1 || m.cmp(e.Key, bestKey) < 0 {
			best, bestKey = i, e.Key
		}
	}
	return best
}

// highest is lowest's mirror for the reverse direction.
func (m *MergingIter[K, V]) highest() int {
	best := -1
	var bestKey K
	for i, p := range m.peers {
		e, ok := p.PeekPrev()
		if !ok {
			continue
		}
		if best == -1 || m.cmp(e.Key, bestKey) > 0 {
			best, bestKey = i, e.Key
		}
	}
	return best
}

func (m *MergingIter[K, V]) Peek() (kviter.Entry[K, V], bool) {
	i := m.lowest()
	if i < 0 {
		var zero kviter.Entry[K, V]
		return zero, false
	}
	return m.peers[i].Peek()
}

func (m *MergingIter[K, V]) Next() (kviter.Entry[K, V], bool) {
	i := m.lowest()
	if i < 0 {
		var zero kviter.Entry[K, V]
		return zero, false
	}
	return m.peers[i].Next()
}

func (m *MergingIter[K, V]) PeekPrev() (kviter.Entry[K, V], bool) {
	i := m.highest()
	if i < 0 {
		var zero kviter.Entry[K, V]
		return zero, false
	}
	return m.peers[i].PeekPrev()
}

func (m *MergingIter[K, V]) Prev() (kviter.Entry[K, V], bool) {
	i := m.highest()
	if i < 0 {
		var zero kviter.Entry[K, V]
		return zero, false
	}
	return m.peers[i].Prev()
}

func (m *MergingIter[K, V]) SeekGE(k K) {
	for _, p := range m.peers {
		p.SeekGE(k)
	}
}

func (m *MergingIter[K, V]) Start() {
	for _, p := range m.peers {
		p.Start()
	}
}

func (m *MergingIter[K, V]) End() {
	for _, p := range m.peers {
		p.End()
	}
}
