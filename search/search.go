// Package search implements MultiStringSearch (§3, §4.7): a concurrent scan
// for up to N fixed needles over a streaming window. All needles are searched
// from the single start offset the caller passes to Scan; the Scanner keeps
// no per-needle cursor between calls. The scanner reports the earliest match
// across all needles and lets the caller advance past it. codec/lineend uses
// it for its longest-match-first terminator scan.
package search

import "bytes"

// Match describes one needle match: which needle, at what offset, and how
// long.
type Match struct {
	NeedleIndex int
	Offset      int
	Length      int
}

// Scanner holds a fixed needle set.
type Scanner struct {
	needles [][]byte
}

// New returns a Scanner over the given needles. Needles are matched in the
// order given when offsets tie; a longer needle wins a tie at the same
// offset (greedy longest-match).
func New(needles ...[]byte) *Scanner {
	cp := make([][]byte, len(needles))
	copy(cp, needles)
	return &Scanner{needles: cp}
}

// Scan finds, across all needles, the earliest match at or after `start` in
// window and returns it. found is false if no needle matches anywhere in
// window[start:].
func (s *Scanner) Scan(window []byte, start int) (m Match, found bool) {
	if start < 0 {
		start = 0
	}
	best := Match{Offset: -1}
	for ni, nd := range s.needles {
		if len(nd) == 0 || start > len(window) {
			continue
		}
		rel := bytes.Index(window[start:], nd)
		if rel < 0 {
			continue
		}
		idx := rel + start
		if !found || idx < best.Offset || (idx == best.Offset && len(nd) > best.Length) {
			best = Match{NeedleIndex: ni, Offset: idx, Length: len(nd)}
			found = true
		}
	}
	return best, found
}

// AdvancePast returns the window offset immediately following m, suitable as
// the next call's `start`.
func AdvancePast(m Match) int {
	return m.Offset + m.Length
}
