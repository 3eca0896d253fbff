package cache

import "sync"

// Cache is a generic thread-safe LRU cache.
// When the cache exceeds its capacity, the least recently used entries are
// evicted and passed to the eviction callback, if any.
//
// Cache must not be copied after creation (has mutex).
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	entries  map[K]*entry[K, V]
	order    *recency[K, V]
	capacity int
	onEvict  func(K, V)

	hits      uint64
	misses    uint64
	evictions uint64
}

// New creates a new cache holding at most capacity entries.
// A capacity of 0 means unlimited.
func New[K comparable, V any](capacity int) *Cache[K, V] {
	return &Cache[K, V]{
		entries:  make(map[K]*entry[K, V]),
		order:    newRecency[K, V](),
		capacity: capacity,
	}
}

// NewWithEvict creates a cache that calls onEvict for every entry removed
// by eviction, Delete or Clear. onEvict runs with the cache locked and must
// not call back into the cache.
func NewWithEvict[K comparable, V any](capacity int, onEvict func(K, V)) *Cache[K, V] {
	c := New[K, V](capacity)
	c.onEvict = onEvict
	return c
}

// Get retrieves a value from the cache.
// Returns (value, true) if found, (zero, false) otherwise.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	c.order.Touch(e)
	return e.value, true
}

// Set stores a value in the cache, replacing any previous value for key.
// A replaced value is passed to the eviction callback.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		old := e.value
		e.value = value
		c.order.Touch(e)
		if c.onEvict != nil {
			c.onEvict(key, old)
		}
		return
	}
	c.insert(key, value)
}

// GetOrCreate returns the cached value or creates it.
// create is called under lock to prevent duplicate creation. If create
// fails, nothing is stored and the error is returned.
func (c *Cache[K, V]) GetOrCreate(key K, create func() (V, error)) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		c.hits++
		c.order.Touch(e)
		return e.value, nil
	}
	c.misses++

	value, err := create()
	if err != nil {
		return value, err
	}
	c.insert(key, value)
	return value, nil
}

// Delete removes an entry from the cache.
// Returns true if the entry was found and removed.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	c.order.Remove(e)
	delete(c.entries, key)
	if c.onEvict != nil {
		c.onEvict(key, e.value)
	}
	return true
}

// Clear removes all entries from the cache.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.onEvict != nil {
		for key, e := range c.entries {
			c.onEvict(key, e.value)
		}
	}
	c.entries = make(map[K]*entry[K, V])
	c.order.Reset()
}

// Len returns the number of entries in the cache.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Capacity returns the capacity of the cache.
func (c *Cache[K, V]) Capacity() int {
	return c.capacity
}

// Stats returns cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Len:       len(c.entries),
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// insert adds a new entry and evicts down to capacity.
// Caller must hold c.mu.
func (c *Cache[K, V]) insert(key K, value V) {
	c.entries[key] = c.order.PushFront(key, value)

	for c.capacity > 0 && len(c.entries) > c.capacity {
		oldest := c.order.PopOldest()
		if oldest == nil {
			return
		}
		delete(c.entries, oldest.key)
		c.evictions++
		if c.onEvict != nil {
			c.onEvict(oldest.key, oldest.value)
		}
	}
}

// Stats contains cache statistics.
type Stats struct {
	// Len is the current number of entries.
	Len int
	// Capacity is the maximum number of entries, 0 for unlimited.
	Capacity int
	// Hits is the number of lookups that found an entry.
	Hits uint64
	// Misses is the number of lookups that did not.
	Misses uint64
	// HitRate is the cache hit rate 0.0 to 1.0.
	HitRate float64
	// Evictions is the number of entries evicted for capacity.
	Evictions uint64
}
