package iters

import (
	"bytes"

	"github.com/keymerge/lsmkv/ikey"
	"github.com/keymerge/lsmkv/kviter"
)

// seqState tracks the cursor's position relative to the underlying
// physical cursor: Fwd/Rev record the direction of the most recent
// physical motion, Eq means the logical and physical positions agree,
// Behind means a peek has already moved the physical cursor past the
// entry still logically pending on that side.
type seqState int

const (
	stateAtStart seqState = iota
	stateFwdEq
	stateFwdBehind
	stateRevEq
	stateRevBehind
	stateAtEnd
)

// SeqnumIter wraps a bidirectional cursor over internal keys
// ((UserKey, seqnum) -> Option<value bytes>) to present a cursor over
// (UserKey, value bytes) at a fixed visible seqnum: among all versions of a
// user key with seqnum <= the snapshot, the one with the largest seqnum
// wins, and a winning tombstone hides the key entirely.
//
// The state tables in Next/Peek/Prev/PeekPrev are the subtle part: because
// the underlying cursor is bidirectional and a single user key's version
// run can straddle the current position, a direction reversal from a
// Behind state must cross two user keys physically, not one. SeekGE enters
// AtEnd (not FwdBehind) when the seek finds nothing, so a stale buffer can
// never be served.
type SeqnumIter struct {
	under  kviter.Iter[ikey.Key, ikey.Value]
	seqnum uint64
	state  seqState
	bufKey []byte
	bufVal []byte
}

// NewSeqnum wraps under, which must start positioned at Start().
func NewSeqnum(under kviter.Iter[ikey.Key, ikey.Value], seqnum uint64) *SeqnumIter {
	return &SeqnumIter{under: under, seqnum: seqnum, state: stateAtStart}
}

// physicalForward advances under, skipping entries whose seqnum exceeds the
// snapshot, collapsing each user key's eligible version run down to its
// highest-seqnum entry, and skipping the whole key if that entry is a
// tombstone. Returns false at end-of-stream.
func (s *SeqnumIter) physicalForward() bool {
	for {
		e, ok := s.under.Next()
		if !ok {
			return false
		}
		for e.Key.Seqnum > s.seqnum {
			e, ok = s.under.Next()
			if !ok {
				return false
			}
		}

		s.bufKey = e.Key.UserKey
		valid := e.Value.Present
		if valid {
			s.bufVal = e.Value.Bytes
		}

		for {
			pe, ok := s.under.Peek()
			if !ok || !bytes.Equal(pe.Key.UserKey, s.bufKey) {
				break
			}
			if pe.Key.Seqnum <= s.seqnum {
				if pe.Value.Present {
					s.bufVal = pe.Value.Bytes
					valid = true
				} else {
					valid = false
				}
			}
			s.under.Next()
		}

		if valid {
			return true
		}
	}
}

// physicalReverse is physicalForward's mirror: scanning backward, the first
// eligible (seqnum <= snapshot) entry encountered for a user key already
// has the largest eligible seqnum, since versions of one key are stored in
// ascending-seqnum order and we are walking right to left; trailing older
// versions of the same key are skipped without re-examination.
func (s *SeqnumIter) physicalReverse() bool {
	for {
		e, ok := s.under.Prev()
		if !ok {
			return false
		}
		for e.Key.Seqnum > s.seqnum {
			e, ok = s.under.Prev()
			if !ok {
				return false
			}
		}

		s.bufKey = e.Key.UserKey
		valid := e.Value.Present
		if valid {
			s.bufVal = e.Value.Bytes
		}

		for {
			pe, ok := s.under.PeekPrev()
			if !ok || !bytes.Equal(pe.Key.UserKey, s.bufKey) {
				break
			}
			s.under.Prev()
		}

		if valid {
			return true
		}
	}
}

func (s *SeqnumIter) entry() kviter.Entry[[]byte, []byte] {
	return kviter.Entry[[]byte, []byte]{Key: s.bufKey, Value: s.bufVal}
}

func (s *SeqnumIter) Next() (kviter.Entry[[]byte, []byte], bool) {
	var zero kviter.Entry[[]byte, []byte]
	switch s.state {
	case stateAtEnd:
		return zero, false
	case stateRevEq:
		s.state = stateRevBehind
	case stateRevBehind:
		if s.physicalForward() && s.physicalForward() {
			s.state = stateFwdEq
		} else {
			s.state = stateAtEnd
			return zero, false
		}
	case stateAtStart, stateFwdEq:
		if s.physicalForward() {
			s.state = stateFwdEq
		} else {
			s.state = stateAtEnd
			return zero, false
		}
	case stateFwdBehind:
		s.state = stateFwdEq
	}
	return s.entry(), true
}

func (s *SeqnumIter) Prev() (kviter.Entry[[]byte, []byte], bool) {
	var zero kviter.Entry[[]byte, []byte]
	switch s.state {
	case stateAtStart:
		return zero, false
	case stateFwdEq:
		s.state = stateFwdBehind
	case stateFwdBehind:
		if s.physicalReverse() && s.physicalReverse() {
			s.state = stateRevEq
		} else {
			s.state = stateAtStart
			return zero, false
		}
	case stateAtEnd, stateRevEq:
		if s.physicalReverse() {
			s.state = stateRevEq
		} else {
			s.state = stateAtStart
			return zero, false
		}
	case stateRevBehind:
		s.state = stateRevEq
	}
	return s.entry(), true
}

func (s *SeqnumIter) Peek() (kviter.Entry[[]byte, []byte], bool) {
	var zero kviter.Entry[[]byte, []byte]
	switch s.state {
	case stateAtEnd:
		return zero, false
	case stateAtStart, stateFwdEq:
		if s.physicalForward() {
			s.state = stateFwdBehind
		} else {
			s.state = stateAtEnd
			return zero, false
		}
	case stateFwdBehind, stateRevEq:
		// no state change
	case stateRevBehind:
		if !s.physicalForward() || !s.physicalForward() {
			s.state = stateAtEnd
			return zero, false
		}
		s.state = stateFwdBehind
	}
	return s.entry(), true
}

func (s *SeqnumIter) PeekPrev() (kviter.Entry[[]byte, []byte], bool) {
	var zero kviter.Entry[[]byte, []byte]
	switch s.state {
	case stateAtStart:
		return zero, false
	case stateFwdBehind:
		if s.physicalReverse() && s.physicalReverse() {
			s.state = stateRevBehind
		} else {
			s.state = stateAtStart
			return zero, false
		}
	case stateFwdEq, stateRevBehind:
		// no state change
	case stateAtEnd, stateRevEq:
		if s.physicalReverse() {
			s.state = stateRevBehind
		} else {
			s.state = stateAtStart
			return zero, false
		}
	}
	return s.entry(), true
}

// SeekGE forwards to seek_ge((k, 0)) on the underlying cursor (seqnum 0
// sorts before every real seqnum for the same user key, so this lands just
// left of k's first version), then runs one physicalForward.
func (s *SeqnumIter) SeekGE(k []byte) {
	s.under.SeekGE(ikey.Key{UserKey: k, Seqnum: 0})
	if s.physicalForward() {
		s.state = stateFwdBehind
		return
	}
	s.state = stateAtEnd
}

func (s *SeqnumIter) Start() {
	s.under.Start()
	s.state = stateAtStart
}

func (s *SeqnumIter) End() {
	s.under.End()
	s.state = stateAtEnd
}
