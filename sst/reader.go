package sst

import (
	"io"

	"github.com/cockroachdb/errors"

	"github.com/keymerge/lsmkv/common"
	"github.com/keymerge/lsmkv/ikey"
	"github.com/keymerge/lsmkv/vfs"
)

// Reader is a cursor over one SST file. It eagerly parses the trailers and
// index block at Open time and holds at most one decoded data block
// ("current block") beyond that.
//
// The reader's position is tracked as (blockIdx, pos), where pos is the
// index into the current block's decoded entries immediately to the right
// of the cursor (the same convention kviter.VecIter uses). Crossing a block
// boundary (pos reaching 0 going left, or len(entries) going right) loads
// the adjacent block and re-bases pos into it, eagerly, at the moment a
// boundary access happens. An alternative formulation tracks a two-sided
// mode flag recording which neighbor a deferred reload should fetch; the
// eager form is observably equivalent (the reader test suite proves both
// directions against a flat reference cursor) and needs no flag.
type Reader struct {
	f vfs.File

	index          []blockRef
	minKey, maxKey ikey.Key

	blockIdx int
	entries  []Entry
	pos      int
}

func readAt(f vfs.File, offset int64, n int) ([]byte, error) {
	if _, err := f.Seek(offset, vfs.SeekStart); err != nil {
		return nil, errors.Wrap(err, "sst: seek")
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, errors.Wrap(err, "sst: read")
	}
	return buf, nil
}

// Open parses f's trailers and index block and returns a ready Reader,
// positioned before the first entry.
func Open(f vfs.File) (*Reader, error) {
	size, err := f.Len()
	if err != nil {
		return nil, errors.Wrap(err, "sst: len")
	}
	if size < 8 {
		return nil, errors.Mark(errors.New("sst: file too short for trailers"), common.ErrCorruptOnDisk)
	}

	trailer, err := readAt(f, size-8, 8)
	if err != nil {
		return nil, errors.Mark(err, common.ErrCorruptOnDisk)
	}
	indexLength := int64(getUint32(trailer[0:4]))
	metadataLength := int64(getUint32(trailer[4:8]))

	metaStart := size - 4 - metadataLength
	indexStart := metaStart - indexLength
	if metaStart < 0 || indexStart < 0 || metadataLength < 4 {
		return nil, errors.Mark(errors.New("sst: trailer lengths overrun file"), common.ErrCorruptOnDisk)
	}

	indexRaw, err := readAt(f, indexStart, int(indexLength))
	if err != nil {
		return nil, errors.Mark(err, common.ErrCorruptOnDisk)
	}
	indexItems, err := decodeBlock(indexRaw)
	if err != nil {
		return nil, errors.Mark(err, common.ErrCorruptOnDisk)
	}
	index := make([]blockRef, len(indexItems))
	for i, item := range indexItems {
		ref, err := decodeIndexEntry(item)
		if err != nil {
			return nil, errors.Mark(err, common.ErrCorruptOnDisk)
		}
		index[i] = ref
	}

	metaRaw, err := readAt(f, metaStart, int(metadataLength)-4)
	if err != nil {
		return nil, errors.Mark(err, common.ErrCorruptOnDisk)
	}
	metaItems, err := decodeBlock(metaRaw)
	if err != nil {
		return nil, errors.Mark(err, common.ErrCorruptOnDisk)
	}
	if len(metaItems) != 2 {
		return nil, errors.Mark(errors.New("sst: metadata block must hold exactly min_key, max_key"), common.ErrCorruptOnDisk)
	}
	minKey, err := ikey.Decode(metaItems[0])
	if err != nil {
		return nil, errors.Mark(err, common.ErrCorruptOnDisk)
	}
	maxKey, err := ikey.Decode(metaItems[1])
	if err != nil {
		return nil, errors.Mark(err, common.ErrCorruptOnDisk)
	}
	if len(index) == 0 {
		return nil, errors.Mark(errors.New("sst: index block is empty"), common.ErrCorruptOnDisk)
	}

	r := &Reader{f: f, index: index, minKey: minKey, maxKey: maxKey}
	r.loadBlock(0)
	return r, nil
}

// MinKey, MaxKey and NumBytes expose the metadata the coordinator's layout
// entries need without touching the file again.
func (r *Reader) MinKey() ikey.Key { return r.minKey }
func (r *Reader) MaxKey() ikey.Key { return r.maxKey }
func (r *Reader) NumBytes() (int64, error) {
	return r.f.Len()
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	return r.f.Close()
}

func (r *Reader) loadBlock(idx int) error {
	ref := r.index[idx]
	raw, err := readAt(r.f, int64(ref.offset), int(ref.length))
	if err != nil {
		return errors.Mark(err, common.ErrCorruptOnDisk)
	}
	entries, err := decodeBlock(raw)
	if err != nil {
		return errors.Mark(err, common.ErrCorruptOnDisk)
	}
	decoded := make([]Entry, len(entries))
	for i, item := range entries {
		e, err := decodeDataEntry(item)
		if err != nil {
			return errors.Mark(err, common.ErrCorruptOnDisk)
		}
		decoded[i] = e
	}
	r.blockIdx = idx
	r.entries = decoded
	return nil
}

// ensureForward makes r.entries[r.pos] valid (if any entry remains to the
// right at all), loading the next block(s) as needed.
func (r *Reader) ensureForward() bool {
	for r.pos >= len(r.entries) {
		if r.blockIdx+1 >= len(r.index) {
			return false
		}
		if err := r.loadBlock(r.blockIdx + 1); err != nil {
			return false
		}
		r.pos = 0
	}
	return true
}

// ensureBackward makes r.entries[r.pos-1] valid, loading the previous
// block(s) as needed.
func (r *Reader) ensureBackward() bool {
	for r.pos <= 0 {
		if r.blockIdx <= 0 {
			return false
		}
		if err := r.loadBlock(r.blockIdx - 1); err != nil {
			return false
		}
		r.pos = len(r.entries)
	}
	return true
}

func (r *Reader) Peek() (Entry, bool) {
	if !r.ensureForward() {
		return Entry{}, false
	}
	return r.entries[r.pos], true
}

func (r *Reader) Next() (Entry, bool) {
	e, ok := r.Peek()
	if ok {
		r.pos++
	}
	return e, ok
}

func (r *Reader) PeekPrev() (Entry, bool) {
	if !r.ensureBackward() {
		return Entry{}, false
	}
	return r.entries[r.pos-1], true
}

func (r *Reader) Prev() (Entry, bool) {
	e, ok := r.PeekPrev()
	if ok {
		r.pos--
	}
	return e, ok
}

// SeekGE repositions to just left of the first entry whose internal key is
// >= k: a binary search over the index's first-keys locates the last block
// whose first key is <= k, then a binary search within that block finds
// the entry. If the block's entries are all < k, the cursor lands at the
// block's end and the next forward access rolls into the following block.
func (r *Reader) SeekGE(k ikey.Key) {
	lo, hi := 0, len(r.index)
	for lo < hi {
		mid := (lo + hi) / 2
		if ikey.Compare(r.index[mid].firstKey, k) <= 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	target := 0
	if lo > 0 {
		target = lo - 1
	}
	if target != r.blockIdx {
		r.loadBlock(target)
	}

	elo, ehi := 0, len(r.entries)
	for elo < ehi {
		mid := (elo + ehi) / 2
		if ikey.Compare(r.entries[mid].Key, k) >= 0 {
			ehi = mid
		} else {
			elo = mid + 1
		}
	}
	r.pos = elo
}

func (r *Reader) Start() {
	if r.blockIdx != 0 {
		r.loadBlock(0)
	}
	r.pos = 0
}

func (r *Reader) End() {
	last := len(r.index) - 1
	if r.blockIdx != last {
		r.loadBlock(last)
	}
	r.pos = len(r.entries)
}
