package memtable_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keymerge/lsmkv/ikey"
	"github.com/keymerge/lsmkv/memtable"
)

func drain(t *testing.T, m *memtable.Memtable) []memtable.Entry {
	t.Helper()
	c := m.Scan()
	c.Start()
	var out []memtable.Entry
	for {
		e, ok := c.Next()
		if !ok {
			break
		}
		out = append(out, e)
	}
	return out
}

func TestInsertOrdersByKeyThenSeqnum(t *testing.T) {
	m := memtable.New()
	m.Insert(1, []byte("b"), []byte("1"))
	m.Insert(2, []byte("a"), []byte("2"))
	m.Insert(3, []byte("a"), []byte("3"))

	got := drain(t, m)
	require.Equal(t, []memtable.Entry{
		{Key: ikey.Key{UserKey: []byte("a"), Seqnum: 2}, Value: ikey.Written([]byte("2"))},
		{Key: ikey.Key{UserKey: []byte("a"), Seqnum: 3}, Value: ikey.Written([]byte("3"))},
		{Key: ikey.Key{UserKey: []byte("b"), Seqnum: 1}, Value: ikey.Written([]byte("1"))},
	}, got)
}

func TestDeleteInsertsTombstone(t *testing.T) {
	m := memtable.New()
	m.Insert(1, []byte("a"), []byte("1"))
	m.Delete(2, []byte("a"))

	got := drain(t, m)
	require.Len(t, got, 2)
	require.True(t, got[0].Value.Present)
	require.False(t, got[1].Value.Present)
}

func TestNonMonotoneSeqnumPanics(t *testing.T) {
	m := memtable.New()
	m.Insert(5, []byte("a"), []byte("1"))
	require.Panics(t, func() {
		m.Insert(5, []byte("b"), []byte("2"))
	})
	require.Panics(t, func() {
		m.Insert(4, []byte("b"), []byte("2"))
	})
}

func TestLenAndEmpty(t *testing.T) {
	m := memtable.New()
	require.True(t, m.Empty())
	require.Equal(t, 0, m.Len())

	m.Insert(1, []byte("a"), []byte("1"))
	require.False(t, m.Empty())
	require.Equal(t, 1, m.Len())
}

func TestManyInsertsStayOrdered(t *testing.T) {
	m := memtable.New()
	n := 500
	for i := 0; i < n; i++ {
		m.Insert(uint64(i+1), []byte(fmt.Sprintf("k%04d", (i*37)%n)), []byte("v"))
	}
	got := drain(t, m)
	require.Len(t, got, n)
	for i := 1; i < len(got); i++ {
		require.True(t, ikey.Compare(got[i-1].Key, got[i].Key) < 0)
	}
}
