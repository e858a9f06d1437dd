package ring

import "testing"

func TestInsertGetRoundTrip(t *testing.T) {
	const capacity = 16
	rb := New[int16](capacity)

	vals := make([]int16, capacity)
	for i := range vals {
		vals[i] = int16(i*7 + 3)
	}

	for _, v := range vals {
		if rc := rb.Insert(v); rc != 0 {
			t.Fatalf("insert(%d) = %d, want 0", v, rc)
		}
	}
	if rb.Vacancy() != 0 {
		t.Fatalf("vacancy = %d, want 0", rb.Vacancy())
	}
	if rb.Count()+rb.Vacancy() != rb.Capacity() {
		t.Fatalf("count+vacancy != capacity")
	}

	out := make([]int16, capacity)
	if got := rb.Get(out, capacity); got != capacity {
		t.Fatalf("get returned %d, want %d", got, capacity)
	}
	for i := range vals {
		if out[i] != vals[i] {
			t.Fatalf("out[%d] = %d, want %d", i, out[i], vals[i])
		}
	}
	if !rb.IsEmpty() {
		t.Fatalf("expected empty after full drain")
	}
}

func TestInsertOneGetOne(t *testing.T) {
	rb := New[int](4)
	if rc := rb.Insert(42); rc != 0 {
		t.Fatalf("insert failed: %d", rc)
	}
	if got := rb.GetOne(); got != 42 {
		t.Fatalf("GetOne = %d, want 42", got)
	}
	if !rb.IsEmpty() {
		t.Fatalf("expected empty")
	}
}

func TestFullRejectsInsert(t *testing.T) {
	rb := New[int](2)
	rb.Insert(1)
	rb.Insert(2)
	if rc := rb.Insert(3); rc == 0 {
		t.Fatalf("expected insert on full ring to fail")
	}
}

func TestInsertBulkPartial(t *testing.T) {
	rb := New[int](3)
	n := rb.InsertBulk([]int{1, 2, 3, 4, 5})
	if n != 3 {
		t.Fatalf("InsertBulk accepted %d, want 3", n)
	}
	out := make([]int, 3)
	rb.Peek(out, 3)
	if out[0] != 1 || out[1] != 2 || out[2] != 3 {
		t.Fatalf("order not preserved: %v", out)
	}
}

func TestCullDiscardsFromHead(t *testing.T) {
	rb := New[int](5)
	rb.InsertBulk([]int{1, 2, 3, 4, 5})
	if n := rb.Cull(2); n != 2 {
		t.Fatalf("cull returned %d, want 2", n)
	}
	if rb.Count() != 3 {
		t.Fatalf("count = %d, want 3", rb.Count())
	}
	if v := rb.GetOne(); v != 3 {
		t.Fatalf("head = %d, want 3", v)
	}
}

func TestZeroNOnNonEmptyIsMinusOne(t *testing.T) {
	rb := New[int](2)
	rb.Insert(1)
	dst := make([]int, 0)
	if rc := rb.Peek(dst, 0); rc != -1 {
		t.Fatalf("Peek(_, 0) on non-empty = %d, want -1", rc)
	}
	if rc := rb.Get(dst, 0); rc != -1 {
		t.Fatalf("Get(_, 0) on non-empty = %d, want -1", rc)
	}
}

func TestContainsLinearScan(t *testing.T) {
	rb := New[int](4)
	rb.InsertBulk([]int{10, 20, 30})
	if !Contains(rb, 20) {
		t.Fatalf("expected Contains(20) true")
	}
	if Contains(rb, 99) {
		t.Fatalf("expected Contains(99) false")
	}
}

func TestClearResetsState(t *testing.T) {
	rb := New[int](4)
	rb.InsertBulk([]int{1, 2})
	rb.Clear()
	if rb.Count() != 0 || !rb.IsEmpty() {
		t.Fatalf("expected cleared ring to be empty")
	}
	if rc := rb.Insert(9); rc != 0 {
		t.Fatalf("insert after clear failed")
	}
}

func TestWraparound(t *testing.T) {
	rb := New[int](3)
	rb.InsertBulk([]int{1, 2, 3})
	rb.Cull(2)
	rb.InsertBulk([]int{4, 5})
	out := make([]int, 3)
	rb.Get(out, 3)
	want := []int{3, 4, 5}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("out = %v, want %v", out, want)
		}
	}
}
