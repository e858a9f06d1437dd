package buffer

import "testing"

func TestStringCollapsesSegments(t *testing.T) {
	c := New()
	c.Append([]byte("AB"))
	c.Append([]byte("CD"))
	c.Append([]byte("EF"))

	if got := c.String(); got != "ABCDEF" {
		t.Fatalf("String() = %q, want ABCDEF", got)
	}
	if c.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", c.Count())
	}
	if c.Length() != 6 {
		t.Fatalf("Length() = %d, want 6", c.Length())
	}
}

func TestLengthIsSumOfSegments(t *testing.T) {
	c := New()
	c.Append([]byte("hello"))
	c.Append([]byte(" "))
	c.Append([]byte("world"))
	if c.Length() != 11 {
		t.Fatalf("Length() = %d, want 11", c.Length())
	}
	if c.Count() != 3 {
		t.Fatalf("Count() = %d, want 3 before collapse", c.Count())
	}
}

func TestAppendPrependNeverMerge(t *testing.T) {
	c := New()
	c.Append([]byte("b"))
	c.Prepend([]byte("a"))
	c.Append([]byte("c"))
	if c.Count() != 3 {
		t.Fatalf("Count() = %d, want 3", c.Count())
	}
	if c.String() != "abc" {
		t.Fatalf("String() = %q", c.String())
	}
}

func TestConcatHandoffEmptiesOther(t *testing.T) {
	a := New()
	a.Append([]byte("foo"))
	b := New()
	b.Append([]byte("bar"))
	b.Append([]byte("baz"))

	a.ConcatHandoff(b)
	if a.String() != "foobarbaz" {
		t.Fatalf("a = %q", a.String())
	}
	if b.Length() != 0 || b.Count() != 0 {
		t.Fatalf("b not emptied: length=%d count=%d", b.Length(), b.Count())
	}
}

func TestConcatHandoffLimitSplitsOneSegment(t *testing.T) {
	a := New()
	b := New()
	b.Append([]byte("abcde"))
	b.Append([]byte("fghij"))

	a.ConcatHandoffLimit(b, 7)
	if a.String() != "abcdefg" {
		t.Fatalf("a = %q, want abcdefg", a.String())
	}
	if b.String() != "hij" {
		t.Fatalf("b = %q, want hij", b.String())
	}
	if a.Length()+b.Length() != 10 {
		t.Fatalf("lengths inconsistent after handoff")
	}
}

func TestChunkPreservesLength(t *testing.T) {
	c := New()
	c.Append([]byte("0123456789"))
	c.Chunk(3)
	if c.Length() != 10 {
		t.Fatalf("Length() changed by Chunk: %d", c.Length())
	}
	if c.Count() != 4 {
		t.Fatalf("Count() = %d, want 4", c.Count())
	}
	if c.String() != "0123456789" {
		t.Fatalf("String() = %q", c.String())
	}
}

func TestImplodeSplitRoundTrip(t *testing.T) {
	d := New()
	d.Append([]byte("aa"))
	d.Append([]byte("bb"))
	d.Append([]byte("cc"))

	n := d.Implode(",")
	if n != 3 {
		t.Fatalf("Implode returned %d, want 3", n)
	}
	if d.String() != "aa,bb,cc" {
		t.Fatalf("imploded = %q", d.String())
	}
	// Split then Implode must restore the joined string's length.
	beforeLen := d.Length()

	tokens := d.Split(",")
	if tokens != 3 {
		t.Fatalf("Split returned %d, want 3", tokens)
	}
	if d.Implode(",") != 3 {
		t.Fatalf("re-implode token count mismatch")
	}
	if d.Count() != 1 {
		t.Fatalf("Count() after implode = %d, want 1", d.Count())
	}
	if d.Length() != beforeLen {
		t.Fatalf("Length() = %d, want %d", d.Length(), beforeLen)
	}
}

func TestReplaceCounts(t *testing.T) {
	c := New()
	c.Append([]byte("foo.bar.foo.baz"))
	n := c.Replace([]byte("foo"), []byte("QUX"))
	if n != 2 {
		t.Fatalf("Replace returned %d, want 2", n)
	}
	if c.String() != "QUX.bar.QUX.baz" {
		t.Fatalf("replaced = %q", c.String())
	}
}

func TestReplaceZeroLengthNeedleIsIllegal(t *testing.T) {
	c := New()
	c.Append([]byte("abc"))
	if n := c.Replace(nil, []byte("x")); n != 0 {
		t.Fatalf("Replace with empty needle returned %d, want 0", n)
	}
	if c.String() != "abc" {
		t.Fatalf("chain mutated on illegal replace: %q", c.String())
	}
}

func TestReplaceNeedleLongerThanHaystack(t *testing.T) {
	c := New()
	c.Append([]byte("ab"))
	if n := c.Replace([]byte("abcdef"), []byte("x")); n != 0 {
		t.Fatalf("Replace returned %d, want 0", n)
	}
}

func TestLocate(t *testing.T) {
	c := New()
	c.Append([]byte("the quick brown fox"))
	if idx := c.Locate([]byte("quick"), 0); idx != 4 {
		t.Fatalf("Locate = %d, want 4", idx)
	}
	if idx := c.Locate([]byte("quick"), 5); idx != -1 {
		t.Fatalf("Locate with offset past match = %d, want -1", idx)
	}
	if idx := c.Locate([]byte("nope"), 0); idx != -1 {
		t.Fatalf("Locate missing needle = %d, want -1", idx)
	}
}

func TestCopyToBufferDoesNotMutateSource(t *testing.T) {
	c := New()
	c.Append([]byte("hello"))
	c.Append([]byte(" world"))
	beforeLen := c.Length()
	beforeCount := c.Count()

	dst := New()
	c.CopyToBuffer(dst, 5, 6)
	if dst.String() != "world" {
		t.Fatalf("dst = %q, want world", dst.String())
	}
	if c.Length() != beforeLen {
		t.Fatalf("source length changed: %d -> %d", beforeLen, c.Length())
	}
	if c.Count() != beforeCount {
		t.Fatalf("source count changed: %d -> %d", beforeCount, c.Count())
	}
}

func TestCullWindow(t *testing.T) {
	c := New()
	c.Append([]byte("0123456789"))
	c.CullWindow(2, 4)
	if c.String() != "2345" {
		t.Fatalf("CullWindow result = %q", c.String())
	}
}

func TestCullHead(t *testing.T) {
	c := New()
	c.Append([]byte("0123456789"))
	c.Cull(3)
	if c.String() != "3456789" {
		t.Fatalf("Cull result = %q", c.String())
	}
}

func TestCullOutOfRangeNoop(t *testing.T) {
	c := New()
	c.Append([]byte("abc"))
	c.Cull(10)
	if c.String() != "abc" {
		t.Fatalf("out-of-range Cull mutated chain: %q", c.String())
	}
}

func TestByteAt(t *testing.T) {
	c := New()
	c.Append([]byte("ab"))
	c.Append([]byte("cd"))
	if c.ByteAt(2) != 'c' {
		t.Fatalf("ByteAt(2) = %q, want c", c.ByteAt(2))
	}
	if c.ByteAt(99) != 0 {
		t.Fatalf("ByteAt out of range should be 0")
	}
}

func TestCmpBinString(t *testing.T) {
	c := New()
	c.Append([]byte("abcdef"))
	if c.CmpBinString([]byte("abcxyz")) != 0 {
		t.Fatalf("expected mismatch")
	}
	if c.CmpBinString([]byte("abc")) != 1 {
		t.Fatalf("expected prefix match over shorter input")
	}
}

func TestIsEmptyStrictVsLax(t *testing.T) {
	c := New()
	if !c.IsEmpty(true) || !c.IsEmpty(false) {
		t.Fatalf("zero-value chain should be empty both ways")
	}
	c.Append([]byte{0, 0, 0})
	if c.IsEmpty(true) {
		t.Fatalf("strict empty should require Length()==0")
	}
	if !c.IsEmpty(false) {
		t.Fatalf("lax empty should treat all-null buffer as empty")
	}
	c.Append([]byte{1})
	if c.IsEmpty(false) {
		t.Fatalf("non-null byte should break lax emptiness")
	}
}

func TestMemoryInUseAtLeastLength(t *testing.T) {
	c := New()
	c.Append([]byte("hello"))
	c.Append([]byte("world"))
	if c.MemoryInUse() < c.Length() {
		t.Fatalf("MemoryInUse() = %d, Length() = %d", c.MemoryInUse(), c.Length())
	}
	c.Clear()
	if c.MemoryInUse() != 0 {
		t.Fatalf("MemoryInUse() after Clear = %d, want 0", c.MemoryInUse())
	}
}

func TestStrCaseCmpAndStrCaseStr(t *testing.T) {
	if !StrCaseCmp([]byte("Hello"), []byte("HELLO")) {
		t.Fatalf("expected case-insensitive match")
	}
	if StrCaseCmp(nil, []byte("x")) {
		t.Fatalf("nil should never match")
	}
	if idx := StrCaseStr([]byte("FooBarBaz"), []byte("barb")); idx != 3 {
		t.Fatalf("StrCaseStr = %d, want 3", idx)
	}
}
