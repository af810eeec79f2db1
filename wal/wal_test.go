package wal_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keymerge/lsmkv/vfs"
	"github.com/keymerge/lsmkv/wal"
)

func TestWriteReplayRoundTrip(t *testing.T) {
	dir := vfs.NewMem()
	w, err := wal.Create(dir, "wal1")
	require.NoError(t, err)

	cmds := []wal.Command{
		{Seqnum: 1, UserKey: []byte("a"), Value: []byte("1")},
		{Seqnum: 2, UserKey: []byte("b"), Value: []byte("2")},
		{Seqnum: 3, UserKey: []byte("a"), Delete: true},
	}
	for _, c := range cmds {
		require.NoError(t, w.Write(c))
	}
	require.NoError(t, w.Close())

	got, err := wal.Replay(dir, "wal1")
	require.NoError(t, err)
	require.Equal(t, cmds, got)
}

func TestReplayEmptyFile(t *testing.T) {
	dir := vfs.NewMem()
	w, err := wal.Create(dir, "wal1")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	got, err := wal.Replay(dir, "wal1")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestReplayDropsTruncatedTail(t *testing.T) {
	dir := vfs.NewMem()
	w, err := wal.Create(dir, "wal1")
	require.NoError(t, err)
	require.NoError(t, w.Write(wal.Command{Seqnum: 1, UserKey: []byte("a"), Value: []byte("1")}))
	require.NoError(t, w.Write(wal.Command{Seqnum: 2, UserKey: []byte("b"), Value: []byte("2")}))
	require.NoError(t, w.Close())

	f, err := dir.Open("wal1")
	require.NoError(t, err)
	full, err := f.ReadAll()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	dir2 := vfs.NewMem()
	truncated, err := dir2.Create("wal1")
	require.NoError(t, err)
	// Cut off in the middle of the second record's payload.
	_, err = truncated.Write(full[:len(full)-3])
	require.NoError(t, err)
	require.NoError(t, truncated.Sync())

	got, err := wal.Replay(dir2, "wal1")
	require.NoError(t, err)
	require.Equal(t, []wal.Command{
		{Seqnum: 1, UserKey: []byte("a"), Value: []byte("1")},
	}, got)
}

func TestCreateReplacesStaleFile(t *testing.T) {
	dir := vfs.NewMem()
	w1, err := wal.Create(dir, "wal1")
	require.NoError(t, err)
	require.NoError(t, w1.Write(wal.Command{Seqnum: 1, UserKey: []byte("a"), Value: []byte("1")}))
	require.NoError(t, w1.Close())

	w2, err := wal.Create(dir, "wal1")
	require.NoError(t, err)
	require.NoError(t, w2.Close())

	got, err := wal.Replay(dir, "wal1")
	require.NoError(t, err)
	require.Empty(t, got)
}
