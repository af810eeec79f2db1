package vfs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keymerge/lsmkv/common/testutil"
)

func testDirImpl(t *testing.T, newDir func(t *testing.T) Dir) {
	t.Run("create-open-roundtrip", func(t *testing.T) {
		d := newDir(t)
		f, err := d.Create("a")
		require.NoError(t, err)
		_, err = f.Write([]byte("hello"))
		require.NoError(t, err)
		require.NoError(t, f.Sync())
		require.NoError(t, f.Close())

		f2, err := d.Open("a")
		require.NoError(t, err)
		got, err := f2.ReadAll()
		require.NoError(t, err)
		require.Equal(t, "hello", string(got))
	})

	t.Run("create-fails-if-exists", func(t *testing.T) {
		d := newDir(t)
		_, err := d.Create("a")
		require.NoError(t, err)
		_, err = d.Create("a")
		require.ErrorIs(t, err, ErrExist)
	})

	t.Run("open-fails-if-absent", func(t *testing.T) {
		d := newDir(t)
		_, err := d.Open("missing")
		require.ErrorIs(t, err, ErrNotExist)
	})

	t.Run("rename-then-old-name-gone", func(t *testing.T) {
		d := newDir(t)
		f, err := d.Create("TMP")
		require.NoError(t, err)
		f.Write([]byte("v1"))
		f.Sync()

		require.NoError(t, d.Rename("TMP", "FINAL"))
		_, err = d.Open("TMP")
		require.ErrorIs(t, err, ErrNotExist)

		got, err := d.Open("FINAL")
		require.NoError(t, err)
		data, _ := got.ReadAll()
		require.Equal(t, "v1", string(data))
	})

	t.Run("list", func(t *testing.T) {
		d := newDir(t)
		d.Create("a")
		d.Create("b")
		names, err := d.List()
		require.NoError(t, err)
		require.ElementsMatch(t, []string{"a", "b"}, names)
	})
}

func TestMemDir(t *testing.T) {
	testDirImpl(t, func(t *testing.T) Dir { return NewMem() })
}

func TestOSDir(t *testing.T) {
	testDirImpl(t, func(t *testing.T) Dir {
		d, err := NewOSDir(testutil.TempDir(t))
		require.NoError(t, err)
		return d
	})
}

func TestMemCrashDiscardsUnsyncedBytes(t *testing.T) {
	m := NewMem()
	f, err := m.Create("a")
	require.NoError(t, err)
	f.Write([]byte("synced-part"))
	require.NoError(t, f.Sync())
	f.Write([]byte("-lost-part"))

	m.Crash()

	f2, err := m.Open("a")
	require.NoError(t, err)
	got, err := f2.ReadAll()
	require.NoError(t, err)
	require.Equal(t, "synced-part", string(got))
}

func TestMemCrashAppliesToSubdirs(t *testing.T) {
	m := NewMem()
	sub, err := m.Cd("wal")
	require.NoError(t, err)
	f, err := sub.Create("w")
	require.NoError(t, err)
	f.Write([]byte("unsynced"))

	m.Crash()

	f2, err := sub.Open("w")
	require.NoError(t, err)
	got, err := f2.ReadAll()
	require.NoError(t, err)
	require.Equal(t, "", string(got))
}
