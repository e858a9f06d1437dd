// Package buffer implements BufferChain (called StringBuilder in the C++
// source this module was distilled from), a segmented, append/prepend
// friendly byte buffer with structure-preserving operations (§3, §4.1).
//
// The C++ original represents segments as a singly linked list of nodes that
// either own a heap allocation or reference immutable, caller-managed bytes,
// with an explicit ownership flag per node (see "Design notes", §9). Under Go's
// garbage collector that distinction is moot, so a Chain is simply an ordered
// slice of byte slices: Append and Prepend copy the caller's bytes into a new
// segment, concat-handoff moves existing segments without copying their
// backing arrays, and collapsing operations (String, Chunk, Implode) build a
// single contiguous array.
package buffer

import (
	"fmt"
	"strings"
)

// Chain is a mutable byte string stored as an ordered list of segments. The
// zero value is a valid, empty Chain.
type Chain struct {
	segments [][]byte
}

// New returns an empty Chain.
func New() *Chain { return &Chain{} }

// FromBytes returns a Chain whose sole segment is a copy of b.
func FromBytes(b []byte) *Chain {
	c := &Chain{}
	if len(b) > 0 {
		cp := make([]byte, len(b))
		copy(cp, b)
		c.segments = [][]byte{cp}
	}
	return c
}

// Append adds b as a new trailing segment. O(1) in segment count; never
// merges with the existing tail segment.
func (c *Chain) Append(b []byte) {
	if len(b) == 0 {
		return
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	c.segments = append(c.segments, cp)
}

// Printf appends fmt.Sprintf(format, args...) as a new trailing segment,
// mirroring StringBuilder's printf-style concatenation.
func (c *Chain) Printf(format string, args ...any) {
	c.Append([]byte(fmt.Sprintf(format, args...)))
}

// Prepend adds b as a new leading segment. O(1); never merges.
func (c *Chain) Prepend(b []byte) {
	if len(b) == 0 {
		return
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	c.segments = append([][]byte{cp}, c.segments...)
}

// ConcatHandoff moves ownership of every segment from other onto the tail of
// c. other becomes strictly empty. No bytes are copied.
func (c *Chain) ConcatHandoff(other *Chain) {
	if other == nil || len(other.segments) == 0 {
		return
	}
	c.segments = append(c.segments, other.segments...)
	other.segments = nil
}

// ConcatHandoffLimit moves exactly n bytes from the head of other onto the
// tail of c, splitting at most one segment on a byte boundary. Both chains'
// lengths remain consistent. If other holds fewer than n bytes, the whole of
// other is moved (as ConcatHandoff would) and the shortfall is silently
// absorbed, matching the "moves what is available" posture of the reference
// implementation's handoff primitives.
func (c *Chain) ConcatHandoffLimit(other *Chain, n int) {
	if other == nil || n <= 0 {
		return
	}
	taken := 0
	idx := 0
	for idx < len(other.segments) && taken < n {
		seg := other.segments[idx]
		remaining := n - taken
		if len(seg) <= remaining {
			c.segments = append(c.segments, seg)
			taken += len(seg)
			idx++
			continue
		}
		// split this segment on the byte boundary
		head := make([]byte, remaining)
		copy(head, seg[:remaining])
		tail := make([]byte, len(seg)-remaining)
		copy(tail, seg[remaining:])
		c.segments = append(c.segments, head)
		other.segments[idx] = tail
		taken += remaining
		break
	}
	other.segments = other.segments[idx:]
}

// Length returns the sum of all segment lengths.
func (c *Chain) Length() int {
	total := 0
	for _, s := range c.segments {
		total += len(s)
	}
	return total
}

// Count returns the number of segments: 0 for a fully empty chain, 1 once
// collapsed, otherwise the live segment count.
func (c *Chain) Count() int { return len(c.segments) }

// IsEmpty reports emptiness. strict=true requires Length()==0. strict=false
// ("lax") also treats an all-null-terminator buffer (every byte == 0x00) as
// empty.
func (c *Chain) IsEmpty(strict bool) bool {
	if c.Length() == 0 {
		return true
	}
	if strict {
		return false
	}
	for _, s := range c.segments {
		for _, b := range s {
			if b != 0 {
				return false
			}
		}
	}
	return true
}

// collapse concatenates all segments into a single contiguous allocation and
// replaces the segment list with it (or with no segments, if the chain is
// logically empty). It is idempotent.
func (c *Chain) collapse() []byte {
	switch len(c.segments) {
	case 0:
		return nil
	case 1:
		return c.segments[0]
	}
	total := c.Length()
	out := make([]byte, 0, total)
	for _, s := range c.segments {
		out = append(out, s...)
	}
	if total == 0 {
		c.segments = nil
	} else {
		c.segments = [][]byte{out}
	}
	return out
}

// String collapses the chain to a single segment and returns it as a Go
// string. A logically empty chain returns "". Idempotent.
func (c *Chain) String() string {
	return string(c.collapse())
}

// Bytes collapses the chain to a single segment and returns its backing
// bytes directly (no copy). Mutating the returned slice mutates the chain.
func (c *Chain) Bytes() []byte {
	b := c.collapse()
	if b == nil {
		return []byte{}
	}
	return b
}

// MemoryInUse returns the bytes held by segment backing arrays, including
// slack capacity not reflected in Length.
func (c *Chain) MemoryInUse() int {
	total := 0
	for _, s := range c.segments {
		total += cap(s)
	}
	return total
}

// Position returns the i-th segment's bytes, or (nil, false) if i is out of
// range.
func (c *Chain) Position(i int) ([]byte, bool) {
	if i < 0 || i >= len(c.segments) {
		return nil, false
	}
	return c.segments[i], true
}

// Chunk repartitions the chain into segments of at most n bytes each,
// preserving total length and byte order. n <= 0 is a no-op.
func (c *Chain) Chunk(n int) {
	if n <= 0 {
		return
	}
	whole := c.collapse()
	if len(whole) == 0 {
		return
	}
	var segs [][]byte
	for off := 0; off < len(whole); off += n {
		end := off + n
		if end > len(whole) {
			end = len(whole)
		}
		seg := make([]byte, end-off)
		copy(seg, whole[off:end])
		segs = append(segs, seg)
	}
	c.segments = segs
}

// Split tokenizes the chain on any byte present in delims (a set of
// delimiter bytes, as in strings.FieldsFunc) and returns the number of
// tokens. Empty tokens between adjacent delimiters are dropped, matching
// typical StringBuilder::split behavior. An empty delims string leaves the
// chain as a single token.
func (c *Chain) Split(delims string) int {
	whole := c.collapse()
	if len(delims) == 0 {
		if len(whole) > 0 {
			c.segments = [][]byte{whole}
			return 1
		}
		c.segments = nil
		return 0
	}
	parts := strings.FieldsFunc(string(whole), func(r rune) bool {
		return strings.ContainsRune(delims, r)
	})
	segs := make([][]byte, 0, len(parts))
	for _, p := range parts {
		segs = append(segs, []byte(p))
	}
	c.segments = segs
	return len(segs)
}

// Implode rejoins all segments by inserting the literal byte string delim
// between adjacent segments, collapsing the chain to a single segment, and
// returns the segment count the chain had before imploding.
func (c *Chain) Implode(delim string) int {
	before := len(c.segments)
	if before == 0 {
		return 0
	}
	joined := strings.Join(segsToStrings(c.segments), delim)
	if len(joined) == 0 {
		c.segments = nil
	} else {
		c.segments = [][]byte{[]byte(joined)}
	}
	return before
}

func segsToStrings(segs [][]byte) []string {
	out := make([]string, len(segs))
	for i, s := range segs {
		out[i] = string(s)
	}
	return out
}

// Replace performs a single-pass, non-overlapping, left-to-right substitution
// of needle with replacement across the whole logical byte sequence and
// returns the number of replacements made. A zero-length needle is illegal
// and returns 0 without modifying the chain; a needle longer than the
// haystack also returns 0.
func (c *Chain) Replace(needle, replacement []byte) int {
	if len(needle) == 0 {
		return 0
	}
	whole := c.collapse()
	if len(needle) > len(whole) {
		return 0
	}
	s := string(whole)
	n := strings.Count(s, string(needle))
	if n == 0 {
		return 0
	}
	replaced := strings.ReplaceAll(s, string(needle), string(replacement))
	if len(replaced) == 0 {
		c.segments = nil
	} else {
		c.segments = [][]byte{[]byte(replaced)}
	}
	return n
}

// Locate returns the first index >= offset at which needle occurs, or -1.
func (c *Chain) Locate(needle []byte, offset int) int {
	whole := c.collapse()
	if offset < 0 {
		offset = 0
	}
	if offset > len(whole) || len(needle) == 0 {
		return -1
	}
	idx := indexBytes(whole[offset:], needle)
	if idx < 0 {
		return -1
	}
	return idx + offset
}

func indexBytes(haystack, needle []byte) int {
	return strings.Index(string(haystack), string(needle))
}

// CopyToBuffer deep-copies the window [offset, offset+limit) into dst,
// leaving the source chain's length, count, and byte content unchanged.
func (c *Chain) CopyToBuffer(dst *Chain, limit, offset int) {
	whole := c.segments
	total := c.Length()
	if offset < 0 || offset >= total || limit <= 0 {
		return
	}
	end := offset + limit
	if end > total {
		end = total
	}
	// Build a read-only contiguous view without mutating the source's
	// segmentation.
	flat := make([]byte, 0, total)
	for _, s := range whole {
		flat = append(flat, s...)
	}
	window := make([]byte, end-offset)
	copy(window, flat[offset:end])
	dst.Append(window)
}

// CullWindow retains only the interior window [offset, offset+length) of the
// chain, dropping everything else. Out-of-range arguments leave the chain
// unchanged.
func (c *Chain) CullWindow(offset, length int) {
	total := c.Length()
	if offset < 0 || length < 0 || offset+length > total {
		return
	}
	whole := c.collapse()
	kept := make([]byte, length)
	copy(kept, whole[offset:offset+length])
	if length == 0 {
		c.segments = nil
	} else {
		c.segments = [][]byte{kept}
	}
}

// Cull drops n bytes from the head of the chain. n out of [0, Length()]
// leaves the chain unchanged.
func (c *Chain) Cull(n int) {
	total := c.Length()
	if n <= 0 || n > total {
		return
	}
	whole := c.collapse()
	rest := make([]byte, total-n)
	copy(rest, whole[n:])
	if len(rest) == 0 {
		c.segments = nil
	} else {
		c.segments = [][]byte{rest}
	}
}

// ByteAt returns the byte at logical index i, or 0 if i is out of range.
func (c *Chain) ByteAt(i int) byte {
	if i < 0 {
		return 0
	}
	off := 0
	for _, s := range c.segments {
		if i < off+len(s) {
			return s[i-off]
		}
		off += len(s)
	}
	return 0
}

// CmpBinString reports 1 if the chain's first min(length, len(b)) bytes are
// byte-identical to b's first min(length, len(b)) bytes, 0 otherwise.
func (c *Chain) CmpBinString(b []byte) int {
	whole := c.collapse()
	n := len(whole)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if whole[i] != b[i] {
			return 0
		}
	}
	return 1
}

// Clear releases all segments and resets the chain to empty.
func (c *Chain) Clear() { c.segments = nil }

// StrCaseCmp reports whether a and b are byte-equal under ASCII
// case-folding. Either argument being nil never matches (nullable-tolerant
// semantics per §4.1).
func StrCaseCmp(a, b []byte) bool {
	if a == nil || b == nil {
		return false
	}
	return strings.EqualFold(string(a), string(b))
}

// StrCaseStr returns the index of the first case-insensitive occurrence of
// needle in haystack, or -1. Either argument being nil never matches.
func StrCaseStr(haystack, needle []byte) int {
	if haystack == nil || needle == nil {
		return -1
	}
	return strings.Index(strings.ToLower(string(haystack)), strings.ToLower(string(needle)))
}

// PrintBuffer writes a human-readable hex+ASCII dump of b to out, each line
// prefixed by indent spaces, 16 bytes per line.
func PrintBuffer(out *strings.Builder, b []byte, indent int) {
	pad := strings.Repeat(" ", indent)
	for off := 0; off < len(b); off += 16 {
		end := off + 16
		if end > len(b) {
			end = len(b)
		}
		line := b[off:end]
		out.WriteString(pad)
		fmt.Fprintf(out, "%04x  ", off)
		for i := 0; i < 16; i++ {
			if i < len(line) {
				fmt.Fprintf(out, "%02x ", line[i])
			} else {
				out.WriteString("   ")
			}
		}
		out.WriteString(" ")
		for _, b := range line {
			if b >= 0x20 && b < 0x7f {
				out.WriteByte(b)
			} else {
				out.WriteByte('.')
			}
		}
		out.WriteString("\n")
	}
}
