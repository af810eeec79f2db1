package keyspace

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
)

// parseRanges parses "lo-hi,lo-hi,..." into a *Set[int], trusting the input
// to already be sorted and disjoint (every case in testdata/ is hand-built
// that way).
func parseRanges(t *testing.T, line string) *Set[int] {
	line = strings.TrimSpace(line)
	if line == "" {
		return New[int](intCmp)
	}
	var ranges []Interval[int]
	for _, part := range strings.Split(line, ",") {
		lo, hi, ok := strings.Cut(part, "-")
		if !ok {
			t.Fatalf("bad interval %q, want lo-hi", part)
		}
		loN, err := strconv.Atoi(lo)
		if err != nil {
			t.Fatalf("bad lo in %q: %v", part, err)
		}
		hiN, err := strconv.Atoi(hi)
		if err != nil {
			t.Fatalf("bad hi in %q: %v", part, err)
		}
		ranges = append(ranges, Interval[int]{Lo: loN, Hi: hiN})
	}
	return &Set[int]{cmp: intCmp, ranges: ranges}
}

func formatRanges(ranges []Interval[int]) string {
	if len(ranges) == 0 {
		return "(empty)"
	}
	parts := make([]string, len(ranges))
	for i, r := range ranges {
		parts[i] = fmt.Sprintf("%d-%d", r.Lo, r.Hi)
	}
	return strings.Join(parts, ",")
}

// TestUnionIntersectsTableDriven runs union/intersects cases, including
// multi-interval sweeps, as a cockroachdb/datadriven table: input lines
// in, expected text out.
func TestUnionIntersectsTableDriven(t *testing.T) {
	datadriven.RunTest(t, "testdata/union_intersects", func(t *testing.T, d *datadriven.TestData) string {
		lines := strings.Split(strings.TrimRight(d.Input, "\n"), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected exactly two input lines (one set per line), got %d", len(lines))
		}
		a := parseRanges(t, lines[0])
		b := parseRanges(t, lines[1])

		switch d.Cmd {
		case "union":
			return formatRanges(a.Union(b).Ranges()) + "\n"
		case "intersects":
			return fmt.Sprintf("%v\n", a.Intersects(b))
		default:
			t.Fatalf("unknown command %q", d.Cmd)
			return ""
		}
	})
}
