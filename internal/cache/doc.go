// Package cache provides a generic LRU cache for backend objects.
//
// Cache[K, V] is a thread-safe LRU cache with a fixed capacity. Entries
// evicted for capacity, removed with Delete or dropped by Clear are passed
// to an optional callback so GPU objects can be destroyed with them:
//
//	groups := cache.NewWithEvict[uint64, hal.BindGroup](64, func(_ uint64, bg hal.BindGroup) {
//		device.DestroyBindGroup(bg)
//	})
//	bg, err := groups.GetOrCreate(key, createBindGroup)
//
// Cache must not be copied after creation (it contains a mutex).
package cache
