package lsm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keymerge/lsmkv/codec"
	"github.com/keymerge/lsmkv/vfs"
)

func openTestEngine(t *testing.T) (*Engine[string, string], vfs.Dir) {
	t.Helper()
	dir := vfs.NewMem()
	e, err := Open(DefaultOptions(dir), codec.String{}, codec.String{})
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e, dir
}

func scanAll(t *testing.T, e *Engine[string, string]) []string {
	t.Helper()
	c, err := e.Scan()
	require.NoError(t, err)
	defer c.Close()
	c.Start()
	var out []string
	for {
		entry, ok := c.Next()
		if !ok {
			break
		}
		out = append(out, entry.Key+"="+entry.Value)
	}
	return out
}

func TestReadYourWrites(t *testing.T) {
	e, _ := openTestEngine(t)
	require.NoError(t, e.Insert("a", "1"))
	require.NoError(t, e.Insert("b", "2"))

	v, ok, err := e.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1", v)

	v, ok, err = e.Get("b")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2", v)

	_, ok, err = e.Get("c")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDeleteShadowsThenFlushThenReload(t *testing.T) {
	e, dir := openTestEngine(t)
	require.NoError(t, e.Insert("a", "1"))
	require.NoError(t, e.Delete("a"))
	require.NoError(t, e.Insert("a", "2"))

	v, ok, err := e.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2", v)

	require.NoError(t, e.FlushMemtable())
	v, ok, err = e.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2", v)

	require.NoError(t, e.Close())
	e2, err := Open(DefaultOptions(dir), codec.String{}, codec.String{})
	require.NoError(t, err)
	defer e2.Close()

	v, ok, err = e2.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2", v)
}

func TestMergeCoalescesL0IntoL1(t *testing.T) {
	e, _ := openTestEngine(t)
	require.NoError(t, e.Insert("k1", "v1"))
	require.NoError(t, e.FlushMemtable())
	require.NoError(t, e.Insert("k2", "v2"))
	require.NoError(t, e.FlushMemtable())

	require.NoError(t, e.Merge([]Addr{{Level: 0, Index: 0}, {Level: 0, Index: 1}}, 1))

	require.Equal(t, []string{"k1=v1", "k2=v2"}, scanAll(t, e))

	e.mu.Lock()
	l0 := len(e.l0)
	levels := len(e.levels)
	var l1Runs int
	if levels >= 1 {
		l1Runs = len(e.levels[0])
	}
	e.mu.Unlock()
	require.Equal(t, 0, l0, "L0 must be empty after merging every L0 run")
	require.Equal(t, 1, l1Runs, "L1 must contain exactly one run covering [k1,k2]")
}

func TestMemtableAndSSTInterleave(t *testing.T) {
	e, _ := openTestEngine(t)
	for i := 0; i < 10; i++ {
		k := "sstkey" + string(rune('0'+i))
		v := "bar" + string(rune('0'+i))
		require.NoError(t, e.Insert(k, v))
	}
	require.NoError(t, e.FlushMemtable())

	for i := 0; i < 10; i++ {
		k := "memkey1" + string(rune('0'+i))
		v := "bar1" + string(rune('0'+i))
		require.NoError(t, e.Insert(k, v))
	}

	got := scanAll(t, e)
	require.Len(t, got, 20)
	// memkey... sorts before sstkey... lexicographically.
	for i := 0; i < 10; i++ {
		require.Contains(t, got[i], "memkey1")
	}
	for i := 10; i < 20; i++ {
		require.Contains(t, got[i], "sstkey")
	}
}

// TestGetAbsentAfterFlushAndMerge checks that tombstones keep shadowing
// older writes across a flush + merge boundary.
func TestGetAbsentAfterFlushAndMerge(t *testing.T) {
	e, _ := openTestEngine(t)
	require.NoError(t, e.Insert("x", "1"))
	require.NoError(t, e.Delete("x"))
	require.NoError(t, e.FlushMemtable())

	_, ok, err := e.Get("x")
	require.NoError(t, err)
	require.False(t, ok, "a flushed tombstone must still shadow the earlier write")

	require.NoError(t, e.Insert("y", "1"))
	require.NoError(t, e.FlushMemtable())
	require.NoError(t, e.Merge([]Addr{{Level: 0, Index: 0}, {Level: 0, Index: 1}}, 1))

	_, ok, err = e.Get("x")
	require.NoError(t, err)
	require.False(t, ok, "merge must not resurrect a tombstoned key")

	v, ok, err := e.Get("y")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1", v)
}

// TestRecoveryPrunesEmptyWAL: a WAL that replayed zero commands (left
// behind by a flush with no subsequent write) is unlinked and dropped from
// the root on the next Open.
func TestRecoveryPrunesEmptyWAL(t *testing.T) {
	dir := vfs.NewMem()
	e, err := Open(DefaultOptions(dir), codec.String{}, codec.String{})
	require.NoError(t, err)
	require.NoError(t, e.Insert("a", "1"))
	require.NoError(t, e.FlushMemtable()) // rotates to a fresh, still-empty WAL
	require.NoError(t, e.Close())

	e2, err := Open(DefaultOptions(dir), codec.String{}, codec.String{})
	require.NoError(t, err)
	defer e2.Close()

	v, ok, err := e2.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1", v)

	names, err := dir.List()
	require.NoError(t, err)
	var walCount int
	for _, n := range names {
		if len(n) >= 3 && n[:3] == "wal" {
			walCount++
		}
	}
	require.Equal(t, 1, walCount, "exactly the freshly-created WAL should remain")
}

// TestMergeRejectsDownwardTargetLevel: a merge must never hoist a run
// upward, so the target level must be >= the highest source level.
func TestMergeRejectsDownwardTargetLevel(t *testing.T) {
	e, _ := openTestEngine(t)
	require.NoError(t, e.Insert("a", "1"))
	require.NoError(t, e.FlushMemtable())
	require.NoError(t, e.Insert("b", "2"))
	require.NoError(t, e.FlushMemtable())
	require.NoError(t, e.Merge([]Addr{{Level: 0, Index: 0}, {Level: 0, Index: 1}}, 1))

	err := e.Merge([]Addr{{Level: 1, Index: 0}}, 0)
	require.Error(t, err)
}

// TestMergeClosureAbsorbsOverlappingRun exercises transitive-closure
// planning: merging one targeted L0 run must also pull in an untargeted L1
// run it overlaps, so lower levels stay disjoint afterward.
func TestMergeClosureAbsorbsOverlappingRun(t *testing.T) {
	e, _ := openTestEngine(t)
	require.NoError(t, e.Insert("a", "1"))
	require.NoError(t, e.Insert("m", "1"))
	require.NoError(t, e.FlushMemtable())
	require.NoError(t, e.Merge([]Addr{{Level: 0, Index: 0}}, 1)) // L1 now covers [a, m]

	require.NoError(t, e.Insert("m", "2")) // overlaps the existing L1 run's range
	require.NoError(t, e.Insert("z", "1"))
	require.NoError(t, e.FlushMemtable())

	require.NoError(t, e.Merge([]Addr{{Level: 0, Index: 0}}, 1))

	v, ok, err := e.Get("m")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2", v, "the newer write must win after the closure merge")

	e.mu.Lock()
	l1Runs := len(e.levels[0])
	e.mu.Unlock()
	require.Equal(t, 1, l1Runs, "the overlapping L1 run must have been absorbed into one run")
}
