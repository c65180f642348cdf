package switchbuffer

// ring is a fixed set of pre-allocated buffer slots addressed by plain
// integer positions. Position len(slots) is the "invalid" sentinel meaning
// "not assigned yet". The ring does no locking of its own; callers hold the
// core lock.
type ring[T any] struct {
	slots []*T
}

func newRing[T any](capacity int) *ring[T] {
	r := &ring[T]{slots: make([]*T, capacity)}
	for i := range r.slots {
		r.slots[i] = new(T)
	}
	return r
}

func (r *ring[T]) size() int { return len(r.slots) }

// invalid returns the sentinel position.
func (r *ring[T]) invalid() int { return len(r.slots) }

func (r *ring[T]) valid(pos int) bool { return pos >= 0 && pos < len(r.slots) }

// advance moves pos one slot forward, wrapping.
// Advancing the invalid position lands on slot 0.
func (r *ring[T]) advance(pos int) int {
	if !r.valid(pos) {
		return 0
	}
	return (pos + 1) % len(r.slots)
}

// advanceBy moves pos k slots forward, wrapping.
func (r *ring[T]) advanceBy(pos, k int) int {
	if k <= 0 {
		return pos
	}
	pos = r.advance(pos)
	return (pos + (k - 1)) % len(r.slots)
}

// at returns the buffer stored at pos.
func (r *ring[T]) at(pos int) *T {
	return r.slots[pos]
}

// swap replaces the buffer at pos with buf and returns the previous one.
func (r *ring[T]) swap(pos int, buf *T) *T {
	prev := r.slots[pos]
	r.slots[pos] = buf
	return prev
}
