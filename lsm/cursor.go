package lsm

import (
	"github.com/keymerge/lsmkv/codec"
	"github.com/keymerge/lsmkv/iters"
	"github.com/keymerge/lsmkv/kviter"
	"github.com/keymerge/lsmkv/sst"
)

// Cursor is the typed view Scan() returns: it wraps the byte-level seqnum
// iterator and decodes every key/value through the engine's codecs,
// keeping generic decode/encode at the outermost layer, above a concrete
// hot cursor path. Close releases the SST file
// handles the scan opened; a Cursor that is never closed leaks those
// handles until the process exits.
type Cursor[K any, V any] struct {
	under    *iters.SeqnumIter
	keyCodec codec.Codec[K]
	valCodec codec.Codec[V]
	readers  []*sst.Reader
}

func newCursor[K any, V any](under *iters.SeqnumIter, keyCodec codec.Codec[K], valCodec codec.Codec[V], readers []*sst.Reader) *Cursor[K, V] {
	return &Cursor[K, V]{under: under, keyCodec: keyCodec, valCodec: valCodec, readers: readers}
}

// Close releases every SST file handle this cursor opened.
func (c *Cursor[K, V]) Close() error {
	var firstErr error
	for _, r := range c.readers {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *Cursor[K, V]) decode(e kviter.Entry[[]byte, []byte], ok bool) (kviter.Entry[K, V], bool) {
	if !ok {
		var zero kviter.Entry[K, V]
		return zero, false
	}
	k, err := c.keyCodec.Decode(e.Key)
	if err != nil {
		panic("lsm: stored key failed to decode: " + err.Error())
	}
	v, err := c.valCodec.Decode(e.Value)
	if err != nil {
		panic("lsm: stored value failed to decode: " + err.Error())
	}
	return kviter.Entry[K, V]{Key: k, Value: v}, true
}

func (c *Cursor[K, V]) Next() (kviter.Entry[K, V], bool)     { return c.decode(c.under.Next()) }
func (c *Cursor[K, V]) Peek() (kviter.Entry[K, V], bool)     { return c.decode(c.under.Peek()) }
func (c *Cursor[K, V]) Prev() (kviter.Entry[K, V], bool)     { return c.decode(c.under.Prev()) }
func (c *Cursor[K, V]) PeekPrev() (kviter.Entry[K, V], bool) { return c.decode(c.under.PeekPrev()) }

func (c *Cursor[K, V]) SeekGE(k K) { c.under.SeekGE(c.keyCodec.Encode(k)) }
func (c *Cursor[K, V]) Start()     { c.under.Start() }
func (c *Cursor[K, V]) End()       { c.under.End() }

var _ kviter.Iter[int, int] = (*Cursor[int, int])(nil)
