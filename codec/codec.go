// Package codec implements the byte-order-preserving encoding external
// collaborator described by the storage engine: composite values are
// written as ordered byte strings using escape-based separators and
// fixed-width primitives, so that comparing two encodings byte-for-byte
// agrees with comparing the original values.
package codec

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

// Codec converts a Go value of type T to and from an order-preserving byte
// encoding. Implementations must guarantee that for any a, b of T, a < b in
// T's natural order iff bytes.Compare(Encode(a), Encode(b)) < 0. The engine
// trusts this contract; it has no way to verify it.
type Codec[T any] interface {
	Encode(v T) []byte
	Decode(b []byte) (T, error)
}

const (
	// escapeByte is substituted for every literal 0x00 in a component's
	// bytes so that a component never contains an unescaped 0x00.
	escapeByte = 0xFF
	// sepLow, sepHigh mark the end of a component. 0x00 0x01 cannot occur
	// inside an escaped component (every literal 0x00 there is immediately
	// followed by 0xFF), so it is an unambiguous delimiter.
	sepLow  = 0x00
	sepHigh = 0x01
)

// EscapeComponent rewrites b so that every 0x00 byte becomes the two bytes
// 0x00 0xFF, then appends the two-byte separator 0x00 0x01. The result sorts
// the same as the concatenation of any sequence of escaped components would,
// which is what lets escaped components be concatenated into
// multi-component keys.
func EscapeComponent(b []byte) []byte {
	out := make([]byte, 0, len(b)+2)
	for _, c := range b {
		out = append(out, c)
		if c == sepLow {
			out = append(out, escapeByte)
		}
	}
	out = append(out, sepLow, sepHigh)
	return out
}

// UnescapeComponent reverses EscapeComponent, returning the original bytes
// and the number of input bytes consumed (including the separator).
func UnescapeComponent(b []byte) (orig []byte, n int, err error) {
	out := make([]byte, 0, len(b))
	i := 0
	for i < len(b) {
		if b[i] == sepLow {
			if i+1 >= len(b) {
				return nil, 0, errors.New("codec: truncated component")
			}
			switch b[i+1] {
			case escapeByte:
				out = append(out, sepLow)
				i += 2
				continue
			case sepHigh:
				return out, i + 2, nil
			default:
				return nil, 0, errors.Newf("codec: invalid escape 0x%02x", b[i+1])
			}
		}
		out = append(out, b[i])
		i++
	}
	return nil, 0, errors.New("codec: missing component separator")
}

// PutUint64 writes v as a fixed-width, order-preserving 8-byte big-endian
// integer. Big-endian is used deliberately (unlike the little-endian
// integers used elsewhere in the on-disk formats) because only big-endian
// byte order agrees with numeric order under bytes.Compare.
func PutUint64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

// GetUint64 is the inverse of PutUint64.
func GetUint64(b []byte) (uint64, error) {
	if len(b) < 8 {
		return 0, errors.New("codec: short uint64 encoding")
	}
	return binary.BigEndian.Uint64(b), nil
}

// Bytes is the identity codec: []byte keys/values are already an ordered
// byte string, so Encode/Decode are copies.
type Bytes struct{}

func (Bytes) Encode(v []byte) []byte {
	out := make([]byte, len(v))
	copy(out, v)
	return out
}

func (Bytes) Decode(b []byte) ([]byte, error) {
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// String encodes a string as its UTF-8 bytes. Go compares strings
// byte-lexicographically, and UTF-8 preserves codepoint order under
// byte comparison, so this is order-preserving.
type String struct{}

func (String) Encode(v string) []byte {
	return []byte(v)
}

func (String) Decode(b []byte) (string, error) {
	return string(b), nil
}

// Uint64 encodes a uint64 as a fixed-width big-endian integer.
type Uint64 struct{}

func (Uint64) Encode(v uint64) []byte {
	return PutUint64(v)
}

func (Uint64) Decode(b []byte) (uint64, error) {
	return GetUint64(b)
}
