package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEscapeComponentRoundTrip(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte("hello"),
		{0x00},
		{0x00, 0x00, 0x00},
		[]byte("a\x00b\x00c"),
		{0xFF, 0x00, 0xFF},
	}
	for _, c := range cases {
		enc := EscapeComponent(c)
		got, n, err := UnescapeComponent(enc)
		require.NoError(t, err)
		require.Equal(t, len(enc), n)
		require.True(t, bytes.Equal(c, got), "roundtrip mismatch for %x", c)
	}
}

func TestEscapeComponentOrderPreserving(t *testing.T) {
	words := [][]byte{
		[]byte(""),
		[]byte("a"),
		[]byte("aa"),
		[]byte("ab"),
		[]byte("b"),
		{0x00},
		{0x00, 0x01},
		{0x01},
	}
	for i := range words {
		for j := range words {
			want := bytes.Compare(words[i], words[j])
			got := bytes.Compare(EscapeComponent(words[i]), EscapeComponent(words[j]))
			// Escaping only ever extends bytes and a shorter component that is
			// a strict prefix of a longer one is always "less", which matches
			// bytes.Compare's own semantics, so the sign must match exactly.
			require.Equal(t, want, got, "mismatch comparing %x and %x", words[i], words[j])
		}
	}
}

func TestUint64OrderPreserving(t *testing.T) {
	vals := []uint64{0, 1, 2, 255, 256, 1 << 32, ^uint64(0)}
	for i := range vals {
		for j := range vals {
			want := 0
			if vals[i] < vals[j] {
				want = -1
			} else if vals[i] > vals[j] {
				want = 1
			}
			got := bytes.Compare(PutUint64(vals[i]), PutUint64(vals[j]))
			require.Equal(t, want, got)
		}
	}
}

func TestUint64RoundTrip(t *testing.T) {
	var c Uint64
	got, err := c.Decode(c.Encode(123456789))
	require.NoError(t, err)
	require.Equal(t, uint64(123456789), got)
}

func TestBytesCodecRoundTrip(t *testing.T) {
	var c Bytes
	v := []byte("some value")
	got, err := c.Decode(c.Encode(v))
	require.NoError(t, err)
	require.True(t, bytes.Equal(v, got))
}
