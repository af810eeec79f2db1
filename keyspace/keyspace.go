// Package keyspace implements the keyspace-interval algebra the merge
// planner uses to compute the transitive closure of overlapping runs that
// must participate in a compaction. A Set represents a region of the
// keyspace as an ordered, pairwise-disjoint sequence of closed intervals.
package keyspace

// Compare reports whether a < b (negative), a == b (zero), or a > b
// (positive).
type Compare[K any] func(a, b K) int

// Interval is a closed interval [Lo, Hi], Lo <= Hi.
type Interval[K any] struct {
	Lo, Hi K
}

// Set is an ordered, pairwise-disjoint sequence of closed intervals.
type Set[K any] struct {
	ranges []Interval[K]
	cmp    Compare[K]
}

// New returns the empty set.
func New[K any](cmp Compare[K]) *Set[K] {
	return &Set[K]{cmp: cmp}
}

// FromSingleton returns the set containing exactly the one interval
// [lo, hi].
func FromSingleton[K any](cmp Compare[K], lo, hi K) *Set[K] {
	return &Set[K]{cmp: cmp, ranges: []Interval[K]{{Lo: lo, Hi: hi}}}
}

// Ranges returns the set's intervals, in ascending, disjoint order. The
// returned slice must not be mutated.
func (s *Set[K]) Ranges() []Interval[K] {
	return s.ranges
}

func (s *Set[K]) le(a, b K) bool { return s.cmp(a, b) <= 0 }
func (s *Set[K]) lt(a, b K) bool { return s.cmp(a, b) < 0 }

// Intersects reports whether any interval of s overlaps any interval of
// other. Both sequences are assumed sorted and disjoint, so a linear
// two-pointer sweep suffices; the two indices advance independently, each
// into its own sequence.
func (s *Set[K]) Intersects(other *Set[K]) bool {
	i, j := 0, 0
	for i < len(s.ranges) && j < len(other.ranges) {
		a, b := s.ranges[i].Lo, s.ranges[i].Hi
		c, d := other.ranges[j].Lo, other.ranges[j].Hi
		if s.le(a, d) && s.le(c, b) {
			return true
		}
		if s.lt(a, c) {
			i++
		} else {
			j++
		}
	}
	return false
}

// mergeState records which of the two input sequences currently cover the
// position being swept, between the previous breakpoint (start) and the
// next one.
type mergeState int

const (
	stateNoNo mergeState = iota
	stateYesNo
	stateNoYes
	stateYesYes
)

// Union returns the disjoint, ordered union of s and other, coalescing any
// intervals that touch or overlap into one.
func (s *Set[K]) Union(other *Set[K]) *Set[K] {
	i, j := 0, 0
	state := stateNoNo
	var start K
	var result []Interval[K]

	for i < len(s.ranges) && j < len(other.ranges) {
		a, b := s.ranges[i].Lo, s.ranges[i].Hi
		c, d := other.ranges[j].Lo, other.ranges[j].Hi

		switch state {
		case stateNoNo:
			if s.lt(a, c) {
				state, start = stateYesNo, a
			} else {
				state, start = stateNoYes, c
			}
		case stateYesNo:
			if s.le(c, b) {
				state = stateYesYes
			} else {
				result = append(result, Interval[K]{Lo: start, Hi: b})
				state = stateNoNo
				i++
			}
		case stateNoYes:
			if s.le(a, d) {
				state = stateYesYes
			} else {
				result = append(result, Interval[K]{Lo: start, Hi: d})
				state = stateNoNo
				j++
			}
		case stateYesYes:
			if s.lt(b, d) {
				state = stateNoYes
				i++
			} else {
				state = stateYesNo
				j++
			}
		}
	}

	switch state {
	case stateYesNo:
		result = append(result, Interval[K]{Lo: start, Hi: s.ranges[i].Hi})
		i++
	case stateNoYes:
		result = append(result, Interval[K]{Lo: start, Hi: other.ranges[j].Hi})
		j++
	case stateYesYes:
		panic("keyspace: union left the sweep in an unreachable state")
	case stateNoNo:
	}

	result = append(result, s.ranges[i:]...)
	result = append(result, other.ranges[j:]...)

	return &Set[K]{cmp: s.cmp, ranges: result}
}
