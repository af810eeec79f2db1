package iters

import (
	"sort"

	"github.com/keymerge/lsmkv/kviter"
)

// LevelIter concatenates an ordered sequence of non-overlapping peer
// cursors (one per SST in a level >= 1) into a single cursor over their
// union. Forward iteration that exhausts the current peer advances idx and
// starts the next peer; reverse iteration decrements idx and positions the
// previous peer at its end.
type LevelIter[K any, V any] struct {
	peers      []kviter.Iter[K, V]
	firstKeys  []K
	cmp        kviter.Compare[K]
	idx        int
}

// NewLevel builds a LevelIter over peers, each already positioned at
// Start(). firstKeys[i] must be the first key peers[i] would produce,
// needed for seek_ge's binary search without touching every peer. peers
// must be non-empty.
func NewLevel[K any, V any](cmp kviter.Compare[K], peers []kviter.Iter[K, V], firstKeys []K) *LevelIter[K, V] {
	if len(peers) == 0 {
		panic("iters: LevelIter requires at least one peer")
	}
	return &LevelIter[K, V]{peers: peers, firstKeys: firstKeys, cmp: cmp}
}

func (l *LevelIter[K, V]) Peek() (kviter.Entry[K, V], bool) {
	for {
		if e, ok := l.peers[l.idx].Peek(); ok {
			return e, true
		}
		if l.idx+1 >= len(l.peers) {
			var zero kviter.Entry[K, V]
			return zero, false
		}
		l.idx++
		l.peers[l.idx].Start()
	}
}

func (l *LevelIter[K, V]) Next() (kviter.Entry[K, V], bool) {
	e, ok := l.Peek()
	if !ok {
		return e, false
	}
	return l.peers[l.idx].Next()
}

func (l *LevelIter[K, V]) PeekPrev() (kviter.Entry[K, V], bool) {
	for {
		if e, ok := l.peers[l.idx].PeekPrev(); ok {
			return e, true
		}
		if l.idx <= 0 {
			var zero kviter.Entry[K, V]
			return zero, false
		}
		l.idx--
		l.peers[l.idx].End()
	}
}

func (l *LevelIter[K, V]) Prev() (kviter.Entry[K, V], bool) {
	e, ok := l.PeekPrev()
	if !ok {
		return e, false
	}
	return l.peers[l.idx].Prev()
}

// SeekGE locates the peer whose range could contain k via binary search
// over firstKeys, then forwards the seek to it.
func (l *LevelIter[K, V]) SeekGE(k K) {
	lo := sort.Search(len(l.firstKeys), func(i int) bool {
		return l.cmp(l.firstKeys[i], k) >= 0
	})
	switch {
	case lo < len(l.firstKeys) && l.cmp(l.firstKeys[lo], k) == 0:
		l.idx = lo
	case lo == 0:
		l.idx = 0
	default:
		l.idx = lo - 1
	}
	l.peers[l.idx].SeekGE(k)
}

func (l *LevelIter[K, V]) Start() {
	l.idx = 0
	l.peers[0].Start()
}

func (l *LevelIter[K, V]) End() {
	l.idx = len(l.peers) - 1
	l.peers[l.idx].End()
}
