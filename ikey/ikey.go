// Package ikey implements the internal key: the pair (K, seqnum) ordered
// lexicographically first by the user key's encoded bytes, then by seqnum
// ascending. Every leaf component that reads or writes sorted runs (the
// memtable, the SST writer/reader, the iterator stack) operates on this
// single concrete representation rather than being generic over the
// caller's K type: the hot cursor path works over encoded bytes, and
// type-directed decode/encode stays at the outermost layer
// (lsm.Engine[K, V]).
package ikey

import (
	"bytes"
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

// Key is an internal key: an already-encoded user key (via the caller's
// codec.Codec[K]) paired with the seqnum of the command that produced it.
type Key struct {
	UserKey []byte
	Seqnum  uint64
}

// Compare orders Keys first by UserKey ascending, then by Seqnum ascending.
func Compare(a, b Key) int {
	if c := bytes.Compare(a.UserKey, b.UserKey); c != 0 {
		return c
	}
	switch {
	case a.Seqnum < b.Seqnum:
		return -1
	case a.Seqnum > b.Seqnum:
		return 1
	default:
		return 0
	}
}

// seqnumWidth is the fixed width of the big-endian seqnum suffix appended to
// an encoded internal key. Big-endian is required (unlike the little-endian
// integers used for block offsets elsewhere) because only big-endian byte
// order agrees with numeric order under bytes.Compare; see codec.PutUint64.
const seqnumWidth = 8

// Encode concatenates the user key's already order-preserving bytes with a
// fixed-width big-endian seqnum suffix. bytes.Compare on two results agrees
// with Compare only when neither user key is a proper prefix of the other;
// ordering always goes through Compare on decoded keys.
func Encode(k Key) []byte {
	out := make([]byte, len(k.UserKey)+seqnumWidth)
	copy(out, k.UserKey)
	binary.BigEndian.PutUint64(out[len(k.UserKey):], k.Seqnum)
	return out
}

// Decode reverses Encode.
func Decode(b []byte) (Key, error) {
	if len(b) < seqnumWidth {
		return Key{}, errors.New("ikey: truncated internal key")
	}
	split := len(b) - seqnumWidth
	userKey := make([]byte, split)
	copy(userKey, b[:split])
	return Key{
		UserKey: userKey,
		Seqnum:  binary.BigEndian.Uint64(b[split:]),
	}, nil
}

// Value is the entry payload: Present distinguishes a write (Bytes holds
// the encoded value) from a tombstone (not Present).
type Value struct {
	Present bool
	Bytes   []byte
}

// Tombstone is the zero-value-equivalent None entry.
func Tombstone() Value { return Value{} }

// Written wraps an encoded value as a present write.
func Written(b []byte) Value { return Value{Present: true, Bytes: b} }
