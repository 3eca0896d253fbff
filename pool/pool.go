// Package pool recycles backend objects for transient render graph
// resources.
//
// A Pool hands out buffers and textures keyed by descriptor equality. An
// object is handed out at most once per frame; after EndFrame it can be
// reused by any later request with an equal descriptor. Objects unused for
// more than the configured number of frames are released.
//
// Pool implements framegraph.TransientPool and is safe for concurrent use.
package pool

import (
	"container/list"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/framegraph"
)

// Default limits.
const (
	// DefaultMaxAge is the number of frames an unused object is kept.
	DefaultMaxAge = 3

	// DefaultBudgetMB is the default soft memory budget.
	DefaultBudgetMB = 256
)

// Allocator creates and destroys the backend objects a Pool manages.
type Allocator interface {
	NewBuffer(desc framegraph.BufferDesc) (framegraph.GPUBuffer, error)
	NewTexture(desc framegraph.TextureDesc) (framegraph.GPUTexture, error)
	Release(res framegraph.GPUResource)
}

// Stats contains pool usage statistics.
type Stats struct {
	// Frame is the current frame number.
	Frame uint64

	// Objects is the number of live objects.
	Objects int

	// InUse is the number of objects handed out in the current frame.
	InUse int

	// UsedBytes is the estimated memory of all live objects.
	UsedBytes uint64

	// BudgetBytes is the soft budget, zero when unlimited.
	BudgetBytes uint64

	// Hits and Misses count requests served from and outside the pool.
	Hits   uint64
	Misses uint64

	// Released is the total number of released objects.
	Released uint64
}

// String returns a human-readable summary.
func (s Stats) String() string {
	return fmt.Sprintf("Pool[frame %d, %d objects (%d in use), %d/%d MB, %d hits, %d misses, %d released]",
		s.Frame, s.Objects, s.InUse,
		s.UsedBytes/(1024*1024), s.BudgetBytes/(1024*1024),
		s.Hits, s.Misses, s.Released)
}

// entry tracks a pooled object with its last-used frame.
type entry struct {
	res      framegraph.GPUResource
	key      any
	size     uint64
	lastUsed uint64
	element  *list.Element
}

// Pool recycles transient backend objects.
type Pool struct {
	mu sync.Mutex

	alloc  Allocator
	logger *slog.Logger

	maxAge uint64
	budget uint64
	used   uint64
	frame  uint64

	// byKey indexes entries by descriptor key. lru orders all entries,
	// front = most recently used.
	byKey map[any][]*entry
	lru   *list.List

	hits, misses, released uint64
}

// Option configures a Pool.
type Option func(*Pool)

// WithMaxAge sets the number of frames an unused object is kept.
func WithMaxAge(frames uint64) Option {
	return func(p *Pool) {
		p.maxAge = frames
	}
}

// WithBudget sets the soft memory budget in bytes. Zero disables it.
func WithBudget(bytes uint64) Option {
	return func(p *Pool) {
		p.budget = bytes
	}
}

// WithLogger sets the logger. By default framegraph.Logger is used.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pool) {
		p.logger = l
	}
}

// WithConfig applies the pool section of a framegraph configuration.
func WithConfig(cfg framegraph.PoolConfig) Option {
	return func(p *Pool) {
		p.maxAge = cfg.MaxAge
		p.budget = cfg.BudgetMB * 1024 * 1024
	}
}

// New creates a pool that allocates through alloc.
func New(alloc Allocator, opts ...Option) *Pool {
	if alloc == nil {
		panic("pool: New allocator is nil")
	}
	p := &Pool{
		alloc:  alloc,
		maxAge: DefaultMaxAge,
		budget: DefaultBudgetMB * 1024 * 1024,
		frame:  1,
		byKey:  make(map[any][]*entry),
		lru:    list.New(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = framegraph.Logger()
	}
	return p
}

// GetTransientBuffer returns a buffer matching desc, recycled when possible.
func (p *Pool) GetTransientBuffer(desc framegraph.BufferDesc) (framegraph.GPUBuffer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := desc.Key()
	if e := p.takeLocked(key); e != nil {
		return e.res.(framegraph.GPUBuffer), nil
	}

	p.reserveLocked(desc.Size)
	buf, err := p.alloc.NewBuffer(desc)
	if err != nil {
		return nil, fmt.Errorf("pool: buffer %q: %w", desc.Name, err)
	}
	p.addLocked(buf, key, desc.Size)
	return buf, nil
}

// GetTransientTexture returns a texture matching desc, recycled when
// possible.
func (p *Pool) GetTransientTexture(desc framegraph.TextureDesc) (framegraph.GPUTexture, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := desc.Key()
	if e := p.takeLocked(key); e != nil {
		return e.res.(framegraph.GPUTexture), nil
	}

	size := TextureSize(desc)
	p.reserveLocked(size)
	tex, err := p.alloc.NewTexture(desc)
	if err != nil {
		return nil, fmt.Errorf("pool: texture %q: %w", desc.Name, err)
	}
	p.addLocked(tex, key, size)
	return tex, nil
}

// EndFrame advances the frame counter, making every object available again,
// and releases objects unused for more than the maximum age. It returns the
// number of released objects.
func (p *Pool) EndFrame() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frame++
	return p.releaseStaleLocked(p.maxAge)
}

// ReleaseStale releases objects unused for more than maxAge frames.
func (p *Pool) ReleaseStale(maxAge uint64) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.releaseStaleLocked(maxAge)
}

// Clear releases every object, including those handed out this frame.
func (p *Pool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for el := p.lru.Back(); el != nil; {
		prev := el.Prev()
		p.removeLocked(el.Value.(*entry))
		el = prev
	}
}

// Stats returns current statistics.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	inUse := 0
	for el := p.lru.Front(); el != nil; el = el.Next() {
		if el.Value.(*entry).lastUsed == p.frame {
			inUse++
		}
	}
	return Stats{
		Frame:       p.frame,
		Objects:     p.lru.Len(),
		InUse:       inUse,
		UsedBytes:   p.used,
		BudgetBytes: p.budget,
		Hits:        p.hits,
		Misses:      p.misses,
		Released:    p.released,
	}
}

// takeLocked returns an entry for key not yet handed out this frame.
func (p *Pool) takeLocked(key any) *entry {
	for _, e := range p.byKey[key] {
		if e.lastUsed < p.frame {
			e.lastUsed = p.frame
			p.lru.MoveToFront(e.element)
			p.hits++
			return e
		}
	}
	p.misses++
	return nil
}

func (p *Pool) addLocked(res framegraph.GPUResource, key any, size uint64) {
	e := &entry{res: res, key: key, size: size, lastUsed: p.frame}
	e.element = p.lru.PushFront(e)
	p.byKey[key] = append(p.byKey[key], e)
	p.used += size
	p.logger.Debug("pool: allocated", "label", res.Label(), "bytes", size, "frame", p.frame)
}

func (p *Pool) removeLocked(e *entry) {
	p.lru.Remove(e.element)
	entries := p.byKey[e.key]
	for i, other := range entries {
		if other == e {
			entries = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	if len(entries) == 0 {
		delete(p.byKey, e.key)
	} else {
		p.byKey[e.key] = entries
	}
	p.used -= e.size
	p.released++
	p.alloc.Release(e.res)
}

func (p *Pool) releaseStaleLocked(maxAge uint64) int {
	n := 0
	for el := p.lru.Back(); el != nil; {
		prev := el.Prev()
		e := el.Value.(*entry)
		if p.frame-e.lastUsed <= maxAge {
			// The list is ordered by last use: everything in front is newer.
			break
		}
		p.removeLocked(e)
		n++
		el = prev
	}
	if n > 0 {
		p.logger.Debug("pool: released stale objects", "count", n, "frame", p.frame)
	}
	return n
}

// reserveLocked makes room for size bytes by releasing least recently used
// objects not handed out this frame. When that is not enough the
// allocation goes ahead over budget.
func (p *Pool) reserveLocked(size uint64) {
	if p.budget == 0 || p.used+size <= p.budget {
		return
	}
	for el := p.lru.Back(); el != nil && p.used+size > p.budget; {
		prev := el.Prev()
		e := el.Value.(*entry)
		if e.lastUsed == p.frame {
			break
		}
		p.removeLocked(e)
		el = prev
	}
	if p.used+size > p.budget {
		p.logger.Warn("pool: over budget",
			"used_mb", p.used/(1024*1024), "request_bytes", size,
			"budget_mb", p.budget/(1024*1024))
	}
}
