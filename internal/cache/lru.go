package cache

// entry is a cached key/value pair linked into the recency list.
type entry[K comparable, V any] struct {
	key        K
	value      V
	prev, next *entry[K, V]
}

// recency orders entries from most to least recently used. It is a ring
// around a sentinel, so insertion and removal never special-case the ends.
// Not safe for concurrent use; Cache holds its mutex around every call.
type recency[K comparable, V any] struct {
	root entry[K, V]
	len  int
}

func newRecency[K comparable, V any]() *recency[K, V] {
	r := &recency[K, V]{}
	r.root.prev = &r.root
	r.root.next = &r.root
	return r
}

// Len returns the number of linked entries.
func (r *recency[K, V]) Len() int { return r.len }

// PushFront links a new entry as the most recently used one.
func (r *recency[K, V]) PushFront(key K, value V) *entry[K, V] {
	e := &entry[K, V]{key: key, value: value}
	r.linkAfter(e, &r.root)
	return e
}

// Touch marks e as the most recently used entry.
func (r *recency[K, V]) Touch(e *entry[K, V]) {
	if r.root.next == e {
		return
	}
	r.unlink(e)
	r.linkAfter(e, &r.root)
}

// Remove unlinks e.
func (r *recency[K, V]) Remove(e *entry[K, V]) {
	if e.prev == nil {
		return
	}
	r.unlink(e)
}

// Oldest returns the least recently used entry, or nil when empty.
func (r *recency[K, V]) Oldest() *entry[K, V] {
	if r.len == 0 {
		return nil
	}
	return r.root.prev
}

// PopOldest unlinks and returns the least recently used entry.
func (r *recency[K, V]) PopOldest() *entry[K, V] {
	e := r.Oldest()
	if e != nil {
		r.unlink(e)
	}
	return e
}

// Reset drops every entry.
func (r *recency[K, V]) Reset() {
	r.root.prev = &r.root
	r.root.next = &r.root
	r.len = 0
}

func (r *recency[K, V]) linkAfter(e, at *entry[K, V]) {
	e.prev = at
	e.next = at.next
	at.next.prev = e
	at.next = e
	r.len++
}

func (r *recency[K, V]) unlink(e *entry[K, V]) {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.prev = nil
	e.next = nil
	r.len--
}
