// Package wal implements the write-ahead log: an append-only file of
// length-prefixed encoded commands, with no checksum. A truncated trailing
// record (possible after a crash) is silently dropped: the tail is
// considered uncommitted, not corrupt.
package wal

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"

	"github.com/keymerge/lsmkv/vfs"
)

// tmpName is the scratch file a new WAL is staged under before being
// renamed into place.
const tmpName = "TMP_WAL"

// Command is a single WAL record: either a Write or a Delete, over
// already-encoded key/value bytes (the caller's codec.Codec has already run
// by the time a Command reaches this package).
type Command struct {
	Seqnum  uint64
	UserKey []byte
	// Value holds the encoded value for a Write; it is nil for a Delete.
	Value  []byte
	Delete bool
}

// encode serializes a Command to its payload bytes (everything after the
// u32 payload_length framing header).
func encode(c Command) []byte {
	// layout: seqnum(8) delete-flag(1) keylen(4) key valuelen(4) value
	size := 8 + 1 + 4 + len(c.UserKey)
	if !c.Delete {
		size += 4 + len(c.Value)
	}
	buf := make([]byte, size)
	binary.LittleEndian.PutUint64(buf[0:8], c.Seqnum)
	i := 8
	if c.Delete {
		buf[i] = 1
	} else {
		buf[i] = 0
	}
	i++
	binary.LittleEndian.PutUint32(buf[i:i+4], uint32(len(c.UserKey)))
	i += 4
	copy(buf[i:], c.UserKey)
	i += len(c.UserKey)
	if !c.Delete {
		binary.LittleEndian.PutUint32(buf[i:i+4], uint32(len(c.Value)))
		i += 4
		copy(buf[i:], c.Value)
	}
	return buf
}

// decode reverses encode. It reports errShortPayload if the payload's own
// length fields overrun it; that is the only error it returns.
var errShortPayload = errors.New("wal: payload shorter than its own framing")

func decode(b []byte) (Command, error) {
	if len(b) < 9 {
		return Command{}, errShortPayload
	}
	var c Command
	c.Seqnum = binary.LittleEndian.Uint64(b[0:8])
	c.Delete = b[8] != 0
	i := 9
	if i+4 > len(b) {
		return Command{}, errShortPayload
	}
	keyLen := int(binary.LittleEndian.Uint32(b[i : i+4]))
	i += 4
	if i+keyLen > len(b) {
		return Command{}, errShortPayload
	}
	c.UserKey = append([]byte(nil), b[i:i+keyLen]...)
	i += keyLen
	if !c.Delete {
		if i+4 > len(b) {
			return Command{}, errShortPayload
		}
		valLen := int(binary.LittleEndian.Uint32(b[i : i+4]))
		i += 4
		if i+valLen > len(b) {
			return Command{}, errShortPayload
		}
		c.Value = append([]byte(nil), b[i:i+valLen]...)
	}
	return c, nil
}

// Writer appends Commands to one WAL file.
type Writer struct {
	f vfs.File
}

// Create stages a new, empty WAL under the scratch name and renames it to
// name, so that the file handle returned always denotes a freshly created
// file even if name was previously in use. The recovery path relies on
// this: a pre-existing file of the computed name cannot hold newer data
// and is safe to discard. Any existing file at name is unlinked first.
func Create(dir vfs.Dir, name string) (*Writer, error) {
	if _, err := dir.Unlink(name); err != nil {
		return nil, errors.Wrap(err, "wal: unlink stale file before create")
	}
	if _, err := dir.Unlink(tmpName); err != nil {
		return nil, errors.Wrap(err, "wal: unlink stale tmp file")
	}
	f, err := dir.Create(tmpName)
	if err != nil {
		return nil, errors.Wrap(err, "wal: create tmp file")
	}
	if err := dir.Rename(tmpName, name); err != nil {
		return nil, errors.Wrap(err, "wal: rename tmp file into place")
	}
	return &Writer{f: f}, nil
}

// Write appends cmd, framed as a u32 little-endian payload_length followed
// by the payload, then syncs so the append is durable before Write returns.
func (w *Writer) Write(c Command) error {
	payload := encode(c)
	header := make([]byte, 4)
	binary.LittleEndian.PutUint32(header, uint32(len(payload)))
	if _, err := w.f.Write(header); err != nil {
		return errors.Wrap(err, "wal: write header")
	}
	if _, err := w.f.Write(payload); err != nil {
		return errors.Wrap(err, "wal: write payload")
	}
	if err := w.f.Sync(); err != nil {
		return errors.Wrap(err, "wal: sync")
	}
	return nil
}

// Close releases the underlying file handle without an implicit sync.
func (w *Writer) Close() error {
	return w.f.Close()
}

// Len reports the current byte size of the WAL file, for metrics use.
func (w *Writer) Len() (int64, error) {
	return w.f.Len()
}

// Replay reads every well-framed command from the named file in order. A
// truncated trailing record (a length header with no complete payload
// behind it, or an unreadable length header itself) ends iteration
// silently; the tail is considered uncommitted. A complete-length payload
// that doesn't parse (errShortPayload) also ends iteration silently, and
// the records after it are not read.
func Replay(dir vfs.Dir, name string) ([]Command, error) {
	f, err := dir.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "wal: open %s", name)
	}
	defer f.Close()

	data, err := f.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "wal: read %s", name)
	}

	var cmds []Command
	i := 0
	for {
		if i+4 > len(data) {
			break
		}
		payloadLen := int(binary.LittleEndian.Uint32(data[i : i+4]))
		if i+4+payloadLen > len(data) {
			break
		}
		payload := data[i+4 : i+4+payloadLen]
		cmd, err := decode(payload)
		if err != nil {
			if errors.Is(err, errShortPayload) {
				break
			}
			return nil, errors.Wrapf(err, "wal: decode record in %s", name)
		}
		cmds = append(cmds, cmd)
		i += 4 + payloadLen
	}
	return cmds, nil
}
