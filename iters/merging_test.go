package iters_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keymerge/lsmkv/iters"
	"github.com/keymerge/lsmkv/kviter"
)

func intCmp(a, b int) int { return a - b }

func vec(vals ...int) *kviter.VecIter[int, int] {
	entries := make([]kviter.Entry[int, int], len(vals))
	for i, v := range vals {
		entries[i] = kviter.Entry[int, int]{Key: v, Value: v * 10}
	}
	return kviter.NewVecIter(entries, intCmp)
}

func drainForward(it kviter.Iter[int, int]) []int {
	it.Start()
	var out []int
	for {
		e, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, e.Key)
	}
	return out
}

func drainBackward(it kviter.Iter[int, int]) []int {
	it.End()
	var out []int
	for {
		e, ok := it.Prev()
		if !ok {
			break
		}
		out = append(out, e.Key)
	}
	return out
}

func TestMergingIterForward(t *testing.T) {
	m := iters.NewMerging[int, int](intCmp, vec(1, 4, 7), vec(2, 3, 9), vec(5, 6, 8))
	require.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9}, drainForward(m))
}

func TestMergingIterBackward(t *testing.T) {
	m := iters.NewMerging[int, int](intCmp, vec(1, 4, 7), vec(2, 3, 9), vec(5, 6, 8))
	require.Equal(t, []int{9, 8, 7, 6, 5, 4, 3, 2, 1}, drainBackward(m))
}

func TestMergingIterSeekGE(t *testing.T) {
	m := iters.NewMerging[int, int](intCmp, vec(1, 4, 7), vec(2, 3, 9), vec(5, 6, 8))
	m.SeekGE(5)
	e, ok := m.Peek()
	require.True(t, ok)
	require.Equal(t, 5, e.Key)
}

func TestMergingIterSymmetry(t *testing.T) {
	m := iters.NewMerging[int, int](intCmp, vec(1, 3, 5), vec(2, 4, 6))
	m.Start()
	m.Next()
	m.Next()
	e, ok := m.Next()
	require.True(t, ok)
	require.Equal(t, 3, e.Key)
	back, ok := m.Prev()
	require.True(t, ok)
	require.Equal(t, e, back)
}

func TestMergingIterEmptyPeers(t *testing.T) {
	m := iters.NewMerging[int, int](intCmp, vec(), vec(1, 2))
	require.Equal(t, []int{1, 2}, drainForward(m))
}
