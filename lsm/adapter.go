package lsm

import (
	"github.com/keymerge/lsmkv/codec"
	"github.com/keymerge/lsmkv/common"
	"github.com/keymerge/lsmkv/vfs"
)

// Adapter satisfies common.StorageEngine over a byte-keyed Engine, so the
// engine can be dropped into the common/benchmark harness or any other
// host written against that interface.
type Adapter struct {
	engine *Engine[[]byte, []byte]
}

var _ common.StorageEngine = (*Adapter)(nil)

// NewAdapter opens a fresh Adapter-wrapped Engine rooted at dir.
func NewAdapter(dir vfs.Dir) (*Adapter, error) {
	e, err := Open(DefaultOptions(dir), codec.Bytes{}, codec.Bytes{})
	if err != nil {
		return nil, err
	}
	return &Adapter{engine: e}, nil
}

func (a *Adapter) Put(key, value []byte) error {
	return a.engine.Insert(key, value)
}

func (a *Adapter) Get(key []byte) ([]byte, error) {
	v, ok, err := a.engine.Get(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrKeyNotFound
	}
	return v, nil
}

func (a *Adapter) Delete(key []byte) error {
	return a.engine.Delete(key)
}

func (a *Adapter) Close() error {
	return a.engine.Close()
}

func (a *Adapter) Sync() error {
	return a.engine.Sync()
}

func (a *Adapter) Stats() common.Stats {
	return a.engine.Stats()
}

// Compact implements common.StorageEngine.Compact by flushing the memtable
// (if non-empty) and then merging every existing run down into the lowest
// level already in use (or level 1, if the engine has no levels yet): a
// single full compaction rather than the engine's normal foreground,
// caller-directed Merge(targets, target_level). With at most one run after
// the flush, nothing is merged and that run stays where it is.
func (a *Adapter) Compact() error {
	e := a.engine
	if err := e.FlushMemtable(); err != nil {
		return err
	}

	e.mu.Lock()
	addrs := e.allAddrsInOrder()
	targetLevel := len(e.levels)
	if targetLevel == 0 {
		targetLevel = 1
	}
	e.mu.Unlock()

	if len(addrs) <= 1 {
		return nil
	}
	return e.Merge(addrs, targetLevel)
}
