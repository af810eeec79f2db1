// Package sst implements the sorted-run (SST) file format: an immutable,
// indexed, prefix-compressed, block-structured file supporting forward and
// backward cursoring and ranged seeks. The physical layout is a sequence
// of data blocks, an index block mapping each block's first key to its
// byte range, a metadata block holding the file's min and max keys, and
// two little-endian u32 length trailers locating the index and metadata
// blocks from the end of the file.
package sst

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"

	"github.com/keymerge/lsmkv/codec"
	"github.com/keymerge/lsmkv/ikey"
	"github.com/keymerge/lsmkv/kviter"
)

// Entry is one data-block record: an internal key and its value (or
// tombstone).
type Entry = kviter.Entry[ikey.Key, ikey.Value]

func putUint32(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }
func getUint32(b []byte) uint32    { return binary.LittleEndian.Uint32(b) }
func putUint64(b []byte, v uint64) { binary.LittleEndian.PutUint64(b, v) }
func getUint64(b []byte) uint64    { return binary.LittleEndian.Uint64(b) }

// encodeBlock frames a sequence of already-serialized item byte strings
// using shared-prefix compression: each entry is
// u32 suffix_len; u32 shared_prefix_len; bytes suffix, and shared_prefix_len
// resets to 0 at the start of the block (item[0] has no predecessor).
func encodeBlock(items [][]byte) []byte {
	var out []byte
	var prev []byte
	for _, item := range items {
		shared := 0
		n := len(prev)
		if len(item) < n {
			n = len(item)
		}
		for shared < n && prev[shared] == item[shared] {
			shared++
		}
		suffix := item[shared:]

		hdr := make([]byte, 8)
		putUint32(hdr[0:4], uint32(len(suffix)))
		putUint32(hdr[4:8], uint32(shared))
		out = append(out, hdr...)
		out = append(out, suffix...)
		prev = item
	}
	return out
}

// decodeBlock reverses encodeBlock, reconstructing each item's full bytes.
func decodeBlock(data []byte) ([][]byte, error) {
	var out [][]byte
	var prev []byte
	i := 0
	for i < len(data) {
		if i+8 > len(data) {
			return nil, errors.New("sst: truncated block entry header")
		}
		suffixLen := int(getUint32(data[i : i+4]))
		sharedLen := int(getUint32(data[i+4 : i+8]))
		i += 8
		if sharedLen > len(prev) || i+suffixLen > len(data) {
			return nil, errors.New("sst: truncated block entry")
		}
		item := make([]byte, sharedLen+suffixLen)
		copy(item, prev[:sharedLen])
		copy(item[sharedLen:], data[i:i+suffixLen])
		i += suffixLen
		out = append(out, item)
		prev = item
	}
	return out, nil
}

// encodeDataEntry serializes one data-block item: the internal key, escaped
// and separator-terminated so it composes safely ahead of the value bytes,
// followed by a one-byte present/tombstone tag and the value bytes if
// present.
func encodeDataEntry(e Entry) []byte {
	out := codec.EscapeComponent(ikey.Encode(e.Key))
	if e.Value.Present {
		out = append(out, 1)
		out = append(out, e.Value.Bytes...)
	} else {
		out = append(out, 0)
	}
	return out
}

func decodeDataEntry(b []byte) (Entry, error) {
	keyRaw, n, err := codec.UnescapeComponent(b)
	if err != nil {
		return Entry{}, errors.Wrap(err, "sst: decode data entry key")
	}
	k, err := ikey.Decode(keyRaw)
	if err != nil {
		return Entry{}, errors.Wrap(err, "sst: decode internal key")
	}
	rest := b[n:]
	if len(rest) == 0 {
		return Entry{}, errors.New("sst: data entry missing value tag")
	}
	var v ikey.Value
	if rest[0] != 0 {
		v = ikey.Written(append([]byte(nil), rest[1:]...))
	} else {
		v = ikey.Tombstone()
	}
	return Entry{Key: k, Value: v}, nil
}

// blockRef is one index-block item: the first key stored in a data block,
// plus that block's byte range within the file.
type blockRef struct {
	firstKey ikey.Key
	offset   uint64
	length   uint64
}

func encodeIndexEntry(r blockRef) []byte {
	out := codec.EscapeComponent(ikey.Encode(r.firstKey))
	tail := make([]byte, 16)
	putUint64(tail[0:8], r.offset)
	putUint64(tail[8:16], r.length)
	return append(out, tail...)
}

func decodeIndexEntry(b []byte) (blockRef, error) {
	keyRaw, n, err := codec.UnescapeComponent(b)
	if err != nil {
		return blockRef{}, errors.Wrap(err, "sst: decode index entry key")
	}
	k, err := ikey.Decode(keyRaw)
	if err != nil {
		return blockRef{}, errors.Wrap(err, "sst: decode index entry internal key")
	}
	rest := b[n:]
	if len(rest) < 16 {
		return blockRef{}, errors.New("sst: truncated index entry tail")
	}
	return blockRef{
		firstKey: k,
		offset:   getUint64(rest[0:8]),
		length:   getUint64(rest[8:16]),
	}, nil
}
