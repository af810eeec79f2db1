package sst

import (
	"github.com/cockroachdb/errors"

	"github.com/keymerge/lsmkv/common"
	"github.com/keymerge/lsmkv/ikey"
	"github.com/keymerge/lsmkv/vfs"
)

// DefaultResetInterval is the number of entries per data block before
// prefix compression resets, absent an explicit Options override.
const DefaultResetInterval = 256

// Writer serializes an ordered source cursor into the SST physical layout:
// data blocks, then an index block, then a metadata block, then the two
// little-endian u32 length trailers.
type Writer struct {
	f             vfs.File
	resetInterval int

	writtenBytes uint64
	index        []blockRef

	haveAny        bool
	minKey, maxKey ikey.Key

	curBlock []Entry
	curFirst ikey.Key
}

// NewWriter returns a Writer appending blocks to f. A resetInterval below 1
// selects DefaultResetInterval.
func NewWriter(f vfs.File, resetInterval int) *Writer {
	if resetInterval < 1 {
		resetInterval = DefaultResetInterval
	}
	return &Writer{f: f, resetInterval: resetInterval}
}

// Add appends one entry. Entries must be supplied in strictly increasing
// internal-key order; the writer does not check this.
func (w *Writer) Add(e Entry) error {
	if !w.haveAny {
		w.minKey = e.Key
		w.haveAny = true
	}
	w.maxKey = e.Key

	if len(w.curBlock) == 0 {
		w.curFirst = e.Key
	}
	w.curBlock = append(w.curBlock, e)
	if len(w.curBlock) >= w.resetInterval {
		return w.flushBlock()
	}
	return nil
}

func (w *Writer) flushBlock() error {
	if len(w.curBlock) == 0 {
		return nil
	}
	items := make([][]byte, len(w.curBlock))
	for i, e := range w.curBlock {
		items[i] = encodeDataEntry(e)
	}
	block := encodeBlock(items)
	if _, err := w.f.Write(block); err != nil {
		return errors.Wrap(err, "sst: write data block")
	}
	w.index = append(w.index, blockRef{firstKey: w.curFirst, offset: w.writtenBytes, length: uint64(len(block))})
	w.writtenBytes += uint64(len(block))
	w.curBlock = w.curBlock[:0]
	return nil
}

// Finish closes out the file: flushes any pending block, writes the index
// block, the metadata block, and the two length trailers, then syncs.
// Finish fails with ErrPrecondition if no entries were ever added: an
// empty SST must never reach disk.
func (w *Writer) Finish() error {
	if err := w.flushBlock(); err != nil {
		return err
	}
	if !w.haveAny {
		return errors.Mark(errors.New("sst: refusing to create an empty SST"), common.ErrPrecondition)
	}

	indexItems := make([][]byte, len(w.index))
	for i, r := range w.index {
		indexItems[i] = encodeIndexEntry(r)
	}
	indexBlock := encodeBlock(indexItems)
	if _, err := w.f.Write(indexBlock); err != nil {
		return errors.Wrap(err, "sst: write index block")
	}

	metaItems := [][]byte{
		append([]byte(nil), ikey.Encode(w.minKey)...),
		append([]byte(nil), ikey.Encode(w.maxKey)...),
	}
	metaBlock := encodeBlock(metaItems)
	if _, err := w.f.Write(metaBlock); err != nil {
		return errors.Wrap(err, "sst: write metadata block")
	}

	indexLenBuf := make([]byte, 4)
	putUint32(indexLenBuf, uint32(len(indexBlock)))
	if _, err := w.f.Write(indexLenBuf); err != nil {
		return errors.Wrap(err, "sst: write index length trailer")
	}

	// metadata_length counts the metadata block's own bytes plus the
	// preceding 4-byte index_length field, so a reader can locate the
	// start of the metadata region from the file's tail alone.
	metaLenBuf := make([]byte, 4)
	putUint32(metaLenBuf, uint32(len(metaBlock)+4))
	if _, err := w.f.Write(metaLenBuf); err != nil {
		return errors.Wrap(err, "sst: write metadata length trailer")
	}

	if err := w.f.Sync(); err != nil {
		return errors.Wrap(err, "sst: sync")
	}
	return nil
}
