// Package ring implements RingBufferT (§3, §4.2): a fixed-capacity circular
// FIFO of T with bulk insert/peek/cull/get and constant-time count. Modeled
// on the head/tail/count bookkeeping of xtaci/kcp-go's RingBuffer[T]
// (vendor/github.com/xtaci/kcp-go/v5/ringbuffer.go), but capacity is fixed at
// construction rather than growing: per §4.2, RingBufferT never reallocates;
// once vacancy reaches zero it refuses further inserts.
package ring

// Buffer is a fixed-capacity circular store of T. The zero value is not
// usable; construct with New. Storage is allocated lazily on first use.
type Buffer[T any] struct {
	capacity int
	elements []T
	head     int
	count    int
}

// New returns a Buffer with the given fixed capacity. Capacity <= 0 yields a
// buffer that accepts nothing.
func New[T any](capacity int) *Buffer[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Buffer[T]{capacity: capacity}
}

func (b *Buffer[T]) allocate() {
	if b.elements == nil && b.capacity > 0 {
		b.elements = make([]T, b.capacity)
	}
}

// Capacity returns the fixed capacity.
func (b *Buffer[T]) Capacity() int { return b.capacity }

// Count returns the number of stored elements.
func (b *Buffer[T]) Count() int { return b.count }

// Vacancy returns capacity - count.
func (b *Buffer[T]) Vacancy() int { return b.capacity - b.count }

// IsEmpty reports whether the buffer holds no elements.
func (b *Buffer[T]) IsEmpty() bool { return b.count == 0 }

func (b *Buffer[T]) slot(offsetFromHead int) int {
	return (b.head + offsetFromHead) % b.capacity
}

// Insert appends a single element. It returns 0 on success, non-zero
// (capacity exceeded) if the buffer is full.
func (b *Buffer[T]) Insert(v T) int {
	if b.capacity == 0 || b.count == b.capacity {
		return -1
	}
	b.allocate()
	b.elements[b.slot(b.count)] = v
	b.count++
	return 0
}

// InsertBulk appends as many of src as fit, preserving order, and returns the
// number actually accepted (0..len(src)).
func (b *Buffer[T]) InsertBulk(src []T) int {
	if b.capacity == 0 {
		return 0
	}
	b.allocate()
	n := len(src)
	if room := b.Vacancy(); n > room {
		n = room
	}
	for i := 0; i < n; i++ {
		b.elements[b.slot(b.count)] = src[i]
		b.count++
	}
	return n
}

// Peek copies up to n elements from the head into dst without consuming
// them. It returns the number copied: n on success, 0 if the buffer is
// empty, -1 if n == 0 while the buffer is non-empty (per §4.2 return-code
// policy). dst must have length >= n.
func (b *Buffer[T]) Peek(dst []T, n int) int {
	if n == 0 {
		if b.count == 0 {
			return 0
		}
		return -1
	}
	if b.count == 0 {
		return 0
	}
	if n > b.count {
		n = b.count
	}
	for i := 0; i < n; i++ {
		dst[i] = b.elements[b.slot(i)]
	}
	return n
}

// Get copies up to n elements from the head into dst and removes them. Same
// return-code policy as Peek.
func (b *Buffer[T]) Get(dst []T, n int) int {
	got := b.Peek(dst, n)
	if got > 0 {
		b.cullLocked(got)
	}
	return got
}

// GetOne removes and returns the head element. It returns the zero value if
// the buffer is empty.
func (b *Buffer[T]) GetOne() T {
	var zero T
	if b.count == 0 {
		return zero
	}
	v := b.elements[b.head]
	b.cullLocked(1)
	return v
}

func (b *Buffer[T]) cullLocked(n int) {
	var zero T
	for i := 0; i < n; i++ {
		b.elements[b.head] = zero
		b.head = (b.head + 1) % b.capacity
	}
	b.count -= n
}

// Cull discards n elements from the head. Returns n on success, 0 if empty,
// -1 if n == 0 on a non-empty ring.
func (b *Buffer[T]) Cull(n int) int {
	if n == 0 {
		if b.count == 0 {
			return 0
		}
		return -1
	}
	if b.count == 0 {
		return 0
	}
	if n > b.count {
		n = b.count
	}
	b.cullLocked(n)
	return n
}

// Contains performs a linear scan for v using ==, which requires T to be
// comparable; callers with non-comparable T should scan via ForEach instead.
func Contains[T comparable](b *Buffer[T], v T) bool {
	found := false
	b.ForEach(func(e T) bool {
		if e == v {
			found = true
			return false
		}
		return true
	})
	return found
}

// ForEach visits elements head-to-tail in order, stopping early if fn
// returns false.
func (b *Buffer[T]) ForEach(fn func(T) bool) {
	for i := 0; i < b.count; i++ {
		if !fn(b.elements[b.slot(i)]) {
			return
		}
	}
}

// Clear releases the backing store and resets count/head to zero.
func (b *Buffer[T]) Clear() {
	b.elements = nil
	b.head = 0
	b.count = 0
}
