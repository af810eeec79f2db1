package lsm

import (
	"bytes"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/keymerge/lsmkv/common"
	"github.com/keymerge/lsmkv/ikey"
	"github.com/keymerge/lsmkv/iters"
	"github.com/keymerge/lsmkv/keyspace"
	"github.com/keymerge/lsmkv/kviter"
	"github.com/keymerge/lsmkv/root"
	"github.com/keymerge/lsmkv/sst"
)

// allAddrsInOrder lists every run address in the order the merge planner
// sweeps: L0 first, then each level ascending.
func (e *Engine[K, V]) allAddrsInOrder() []Addr {
	addrs := make([]Addr, 0, len(e.l0))
	for i := range e.l0 {
		addrs = append(addrs, Addr{Level: 0, Index: i})
	}
	for lvl, runs := range e.levels {
		for i := range runs {
			addrs = append(addrs, Addr{Level: lvl + 1, Index: i})
		}
	}
	return addrs
}

func (e *Engine[K, V]) runAt(a Addr) (runHandle, bool) {
	if a.Level == 0 {
		if a.Index < 0 || a.Index >= len(e.l0) {
			return runHandle{}, false
		}
		return e.l0[a.Index], true
	}
	lvl := a.Level - 1
	if lvl < 0 || lvl >= len(e.levels) {
		return runHandle{}, false
	}
	runs := e.levels[lvl]
	if a.Index < 0 || a.Index >= len(runs) {
		return runHandle{}, false
	}
	return runs[a.Index], true
}

func addrKey(a Addr) [2]int { return [2]int{a.Level, a.Index} }

// planMerge computes the transitive closure of runs that must merge
// together: seed an interval set from targets' key ranges, then make a
// single ordered pass over every run (L0 then levels ascending), adding a
// run to the result whenever its range intersects the accumulated set or
// its address was itself a seed, extending the accumulated set as runs are
// added.
func (e *Engine[K, V]) planMerge(targets []Addr) ([]Addr, error) {
	seed := make(map[[2]int]bool, len(targets))
	acc := keyspace.New[[]byte](bytes.Compare)
	for _, a := range targets {
		rh, ok := e.runAt(a)
		if !ok {
			return nil, errors.Mark(errors.Newf("lsm: merge target %+v does not exist", a), common.ErrInvalidArgument)
		}
		seed[addrKey(a)] = true
		acc = acc.Union(keyspace.FromSingleton(bytes.Compare, rh.minKey.UserKey, rh.maxKey.UserKey))
	}

	var result []Addr
	for _, a := range e.allAddrsInOrder() {
		rh, _ := e.runAt(a)
		rng := keyspace.FromSingleton(bytes.Compare, rh.minKey.UserKey, rh.maxKey.UserKey)
		if seed[addrKey(a)] || acc.Intersects(rng) {
			result = append(result, a)
			acc = acc.Union(rng)
		}
	}
	return result, nil
}

// Merge compacts the targeted runs (plus every run the overlap closure
// pulls in) into a single new run at targetLevel. A merge never hoists a
// run upward, so targetLevel must be >= the highest level among targets.
func (e *Engine[K, V]) Merge(targets []Addr, targetLevel int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(targets) == 0 {
		return errors.Mark(errors.New("lsm: merge requires at least one target"), common.ErrInvalidArgument)
	}
	maxLevel := 0
	for _, a := range targets {
		if a.Level > maxLevel {
			maxLevel = a.Level
		}
	}
	if targetLevel < maxLevel {
		return errors.Mark(errors.New("lsm: merge target_level must be >= the highest source level"), common.ErrInvalidArgument)
	}

	plan, err := e.planMerge(targets)
	if err != nil {
		return err
	}

	peers := make([]kviter.Iter[ikey.Key, ikey.Value], 0, len(plan))
	var readers []*sst.Reader
	defer func() {
		for _, r := range readers {
			r.Close()
		}
	}()
	for _, a := range plan {
		rh, _ := e.runAt(a)
		r, err := e.openReader(rh.name)
		if err != nil {
			return err
		}
		readers = append(readers, r)
		r.Start()
		peers = append(peers, r)
	}
	merged := iters.NewMerging[ikey.Key, ikey.Value](ikey.Compare, peers...)
	merged.Start()

	var newName string
	var newRun runHandle
	var haveOutput bool

	entry, ok := merged.Next()
	if ok {
		id := e.nextSSTID
		newName = sstName(id)
		f, err := e.opts.Dir.Create(newName)
		if err != nil {
			return errors.Wrapf(err, "lsm: create %s", newName)
		}
		w := sst.NewWriter(f, e.opts.resetInterval())
		first := entry
		var last kviter.Entry[ikey.Key, ikey.Value]
		for ok {
			if err := w.Add(entry); err != nil {
				f.Close()
				return errors.Wrapf(err, "lsm: write entry to %s", newName)
			}
			last = entry
			entry, ok = merged.Next()
		}
		if err := w.Finish(); err != nil {
			f.Close()
			return errors.Wrapf(err, "lsm: finish %s", newName)
		}
		numBytes, err := f.Len()
		if err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		newRun = runHandle{name: newName, minKey: first.Key, maxKey: last.Key, numBytes: numBytes}
		haveOutput = true
		e.nextSSTID = id + 1
	}

	mergedNames := make([]string, 0, len(plan))
	for _, a := range plan {
		rh, _ := e.runAt(a)
		mergedNames = append(mergedNames, rh.name)
	}

	e.removeRuns(plan)
	if haveOutput {
		e.insertRun(targetLevel, newRun)
	}

	nextSSTID := e.nextSSTID
	l0Names := make([]string, len(e.l0))
	for i, rh := range e.l0 {
		l0Names[i] = rh.name
	}
	levelNames := make([][]string, len(e.levels))
	for i, runs := range e.levels {
		names := make([]string, len(runs))
		for j, rh := range runs {
			names[j] = rh.name
		}
		levelNames[i] = names
	}

	if _, err := root.Transform(e.opts.Dir, func(l root.Layout) root.Layout {
		l.NextSSTID = nextSSTID
		l.L0 = l0Names
		l.Levels = levelNames
		return l
	}); err != nil {
		return errors.Wrap(err, "lsm: transform root after merge")
	}

	// The merge is committed once the root transform lands; input runs are
	// unreferenced now, so a failed unlink leaves clutter, not inconsistency.
	for _, name := range mergedNames {
		if _, err := e.opts.Dir.Unlink(name); err != nil {
			e.log.Warnf("engine %s: unlink merged-away %s: %v", e.id, name, err)
		}
	}

	e.log.Infof("engine %s merged %d runs into level %d (output=%v)", e.id, len(plan), targetLevel, haveOutput)
	e.metrics.merges.Inc()
	return nil
}

// removeRuns drops every addressed run from L0/levels in place. Addresses
// are processed level-by-level, highest index first within each level, so
// earlier removals never shift the index of a later one.
func (e *Engine[K, V]) removeRuns(addrs []Addr) {
	var l0Idx []int
	byLevel := map[int][]int{}
	for _, a := range addrs {
		if a.Level == 0 {
			l0Idx = append(l0Idx, a.Index)
		} else {
			byLevel[a.Level-1] = append(byLevel[a.Level-1], a.Index)
		}
	}

	sort.Sort(sort.Reverse(sort.IntSlice(l0Idx)))
	for _, idx := range l0Idx {
		e.l0 = append(e.l0[:idx], e.l0[idx+1:]...)
	}

	for lvl, idxs := range byLevel {
		sort.Sort(sort.Reverse(sort.IntSlice(idxs)))
		for _, idx := range idxs {
			e.levels[lvl] = append(e.levels[lvl][:idx], e.levels[lvl][idx+1:]...)
		}
	}
}

// insertRun places a new run produced by a merge into its target level,
// keeping runs within a level >= 1 disjoint and ordered by key: a
// binary-search-insert by max key, with a panic if either neighbor would
// overlap (the overlap closure is supposed to make that impossible).
// Level 0 is unordered, so the new run is simply appended there.
func (e *Engine[K, V]) insertRun(targetLevel int, rh runHandle) {
	if targetLevel == 0 {
		e.l0 = append(e.l0, rh)
		return
	}
	lvl := targetLevel - 1
	for lvl >= len(e.levels) {
		e.levels = append(e.levels, nil)
	}
	runs := e.levels[lvl]
	pos := sort.Search(len(runs), func(i int) bool {
		return ikey.Compare(runs[i].maxKey, rh.maxKey) >= 0
	})
	if pos > 0 && ikey.Compare(runs[pos-1].maxKey, rh.minKey) >= 0 {
		panic("lsm: merge output overlaps its predecessor in the target level")
	}
	if pos < len(runs) && ikey.Compare(runs[pos].minKey, rh.maxKey) <= 0 {
		panic("lsm: merge output overlaps its successor in the target level")
	}
	runs = append(runs, runHandle{})
	copy(runs[pos+1:], runs[pos:])
	runs[pos] = rh
	e.levels[lvl] = runs
}
