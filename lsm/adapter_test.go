package lsm

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/golang/snappy"
	"github.com/stretchr/testify/require"

	"github.com/keymerge/lsmkv/common"
	"github.com/keymerge/lsmkv/vfs"
)

func TestAdapterPutGetDelete(t *testing.T) {
	a, err := NewAdapter(vfs.NewMem())
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Put([]byte("k"), []byte("v")))
	got, err := a.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), got)

	require.NoError(t, a.Delete([]byte("k")))
	_, err = a.Get([]byte("k"))
	require.ErrorIs(t, err, common.ErrKeyNotFound)
}

// TestAdapterCompact drives the full-compaction path: after Compact, every
// run lives in one lower level and reads still see the latest values.
func TestAdapterCompact(t *testing.T) {
	a, err := NewAdapter(vfs.NewMem())
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Put([]byte("a"), []byte("1")))
	require.NoError(t, a.engine.FlushMemtable())
	require.NoError(t, a.Put([]byte("a"), []byte("2")))
	require.NoError(t, a.Put([]byte("b"), []byte("3")))

	require.NoError(t, a.Compact())

	s := a.Stats()
	require.Equal(t, 0, s.L0Files)
	require.Equal(t, 1, s.NumSegments)

	got, err := a.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("2"), got)
	got, err = a.Get([]byte("b"))
	require.NoError(t, err)
	require.Equal(t, []byte("3"), got)
}

// readExport decodes the snappy-framed length-prefixed records
// ExportSnapshot writes.
func readExport(t *testing.T, data []byte) map[string]string {
	t.Helper()
	raw, err := io.ReadAll(snappy.NewReader(bytes.NewReader(data)))
	require.NoError(t, err)

	out := make(map[string]string)
	i := 0
	for i < len(raw) {
		require.LessOrEqual(t, i+8, len(raw), "truncated record header")
		keyLen := int(binary.LittleEndian.Uint32(raw[i : i+4]))
		valLen := int(binary.LittleEndian.Uint32(raw[i+4 : i+8]))
		i += 8
		require.LessOrEqual(t, i+keyLen+valLen, len(raw), "truncated record body")
		out[string(raw[i:i+keyLen])] = string(raw[i+keyLen : i+keyLen+valLen])
		i += keyLen + valLen
	}
	return out
}

func TestExportSnapshotRoundTrip(t *testing.T) {
	e, _ := openTestEngine(t)
	require.NoError(t, e.Insert("a", "1"))
	require.NoError(t, e.Insert("b", "2"))
	require.NoError(t, e.FlushMemtable())
	require.NoError(t, e.Insert("b", "22"))
	require.NoError(t, e.Delete("a"))
	require.NoError(t, e.Insert("c", "3"))

	var buf bytes.Buffer
	require.NoError(t, e.ExportSnapshot(&buf))

	require.Equal(t, map[string]string{"b": "22", "c": "3"}, readExport(t, buf.Bytes()))
}

func TestMetricsReflectOperations(t *testing.T) {
	e, _ := openTestEngine(t)
	require.NoError(t, e.Insert("a", "1"))
	require.NoError(t, e.Insert("b", "2"))
	require.NoError(t, e.Delete("a"))
	require.NoError(t, e.FlushMemtable())

	collectors := e.Metrics()
	require.NotEmpty(t, collectors)

	s := e.Stats()
	require.Equal(t, 1, s.L0Files)
	require.Greater(t, s.TotalDiskSize, int64(0))
}
