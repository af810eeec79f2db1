package kviter

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func intCmp(a, b int) int { return a - b }

func sampleEntries() []Entry[int, string] {
	return []Entry[int, string]{
		{Key: 1, Value: "a"},
		{Key: 3, Value: "b"},
		{Key: 5, Value: "c"},
		{Key: 7, Value: "d"},
	}
}

func TestVecIterNextPrevSymmetry(t *testing.T) {
	it := NewVecIter(sampleEntries(), intCmp)
	it.Start()
	for it.pos < len(it.entries) {
		e, ok := it.Next()
		require.True(t, ok)
		back, ok := it.Prev()
		require.True(t, ok)
		require.Equal(t, e, back)
		it.Next()
	}
}

func TestVecIterPeekMatchesNext(t *testing.T) {
	it := NewVecIter(sampleEntries(), intCmp)
	it.Start()
	for {
		peeked, ok := it.Peek()
		nexted, ok2 := it.Next()
		require.Equal(t, ok, ok2)
		if !ok {
			break
		}
		require.Equal(t, peeked, nexted)
	}
}

func TestVecIterPeekPrevMatchesPrev(t *testing.T) {
	it := NewVecIter(sampleEntries(), intCmp)
	it.End()
	for {
		peeked, ok := it.PeekPrev()
		preved, ok2 := it.Prev()
		require.Equal(t, ok, ok2)
		if !ok {
			break
		}
		require.Equal(t, peeked, preved)
	}
}

func TestVecIterSeekGE(t *testing.T) {
	it := NewVecIter(sampleEntries(), intCmp)

	it.SeekGE(4)
	e, ok := it.Peek()
	require.True(t, ok)
	require.Equal(t, 5, e.Key)

	it.SeekGE(5)
	e, ok = it.Peek()
	require.True(t, ok)
	require.Equal(t, 5, e.Key)

	it.SeekGE(100)
	_, ok = it.Peek()
	require.False(t, ok)

	it.SeekGE(-100)
	e, ok = it.Peek()
	require.True(t, ok)
	require.Equal(t, 1, e.Key)
}

// TestVecIterRandomWalkSymmetry checks cursor symmetry (an op followed by
// its inverse returns the same entry) under uniform-random op sequences.
func TestVecIterRandomWalkSymmetry(t *testing.T) {
	entries := sampleEntries()
	it := NewVecIter(entries, intCmp)
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 2000; i++ {
		switch rng.Intn(2) {
		case 0:
			e, ok := it.Next()
			if ok {
				back, ok2 := it.Prev()
				require.True(t, ok2)
				require.Equal(t, e, back)
				it.Next()
			}
		case 1:
			e, ok := it.Prev()
			if ok {
				fwd, ok2 := it.Next()
				require.True(t, ok2)
				require.Equal(t, e, fwd)
				it.Prev()
			}
		}
	}
}
