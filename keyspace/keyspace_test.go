package keyspace

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func intCmp(a, b int) int { return a - b }

func ivals(pairs ...[2]int) []Interval[int] {
	out := make([]Interval[int], len(pairs))
	for i, p := range pairs {
		out[i] = Interval[int]{Lo: p[0], Hi: p[1]}
	}
	return out
}

func setOf(pairs ...[2]int) *Set[int] {
	return &Set[int]{cmp: intCmp, ranges: ivals(pairs...)}
}

func TestUnionSimple(t *testing.T) {
	a := FromSingleton(intCmp, 1, 3)
	b := FromSingleton(intCmp, 2, 4)
	got := a.Union(b)
	require.Equal(t, ivals([2]int{1, 4}), got.Ranges())
}

func TestUnionDisjointMultiple(t *testing.T) {
	a := setOf([2]int{1, 3}, [2]int{100, 110})
	b := setOf([2]int{5, 6}, [2]int{1000, 1100})
	got := a.Union(b)
	require.Equal(t, ivals([2]int{1, 3}, [2]int{5, 6}, [2]int{100, 110}, [2]int{1000, 1100}), got.Ranges())
}

func TestIntersects(t *testing.T) {
	require.False(t, setOf([2]int{1, 3}).Intersects(setOf([2]int{4, 5})))
	require.True(t, setOf([2]int{2, 4}).Intersects(setOf([2]int{4, 5})))
}

// TestIntersectsCatchesTheSelfIndexingBug guards against a tempting
// mistake: indexing other.ranges with self's sweep index. That only
// misbehaves once the two sequences' sweep indices diverge, so a
// single-interval-each case isn't enough to catch it; this case advances
// self's index twice before other's index moves at all.
func TestIntersectsCatchesTheSelfIndexingBug(t *testing.T) {
	self := setOf([2]int{1, 2}, [2]int{3, 4}, [2]int{10, 20})
	other := setOf([2]int{15, 16})
	require.True(t, self.Intersects(other))

	self2 := setOf([2]int{1, 2}, [2]int{3, 4}, [2]int{10, 20})
	other2 := setOf([2]int{5, 6})
	require.False(t, self2.Intersects(other2))
}

// TestUnionSequence accumulates intervals one union at a time, checking
// every intermediate result, the way the merge planner actually grows its
// set.
func TestUnionSequence(t *testing.T) {
	acc := New(intCmp)
	steps := []struct {
		interval [2]int
		want     []Interval[int]
	}{
		{[2]int{1, 2}, ivals([2]int{1, 2})},
		{[2]int{3, 4}, ivals([2]int{1, 2}, [2]int{3, 4})},
		{[2]int{6, 7}, ivals([2]int{1, 2}, [2]int{3, 4}, [2]int{6, 7})},
		{[2]int{2, 3}, ivals([2]int{1, 4}, [2]int{6, 7})},
	}
	for _, st := range steps {
		acc = acc.Union(FromSingleton(intCmp, st.interval[0], st.interval[1]))
		require.Equal(t, st.want, acc.Ranges())
	}
}
