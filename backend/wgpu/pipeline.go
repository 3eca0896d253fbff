package wgpu

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ErrNilDescriptor is returned when a nil descriptor is passed to a
// pipeline constructor.
var ErrNilDescriptor = errors.New("wgpu: nil descriptor")

// ArgumentLayout is a bind group layout identified by a content hash.
type ArgumentLayout struct {
	raw  hal.BindGroupLayout
	hash uint64
}

// Hash returns the content hash of the layout.
func (l *ArgumentLayout) Hash() uint64 { return l.hash }

// Raw returns the hal bind group layout.
func (l *ArgumentLayout) Raw() hal.BindGroupLayout { return l.raw }

// RenderPipelineDesc describes a render pipeline compiled from WGSL.
type RenderPipelineDesc struct {
	Label         string
	Source        string
	VertexEntry   string
	FragmentEntry string

	// Layouts are the argument layouts at each argument index.
	Layouts []*ArgumentLayout

	VertexBuffers []gputypes.VertexBufferLayout
	Targets       []gputypes.ColorTargetState
	Topology      gputypes.PrimitiveTopology
	CullMode      gputypes.CullMode

	// SampleCount defaults to 1.
	SampleCount uint32

	DepthStencil *hal.DepthStencilState
}

// ComputePipelineDesc describes a compute pipeline compiled from WGSL.
type ComputePipelineDesc struct {
	Label   string
	Source  string
	Entry   string
	Layouts []*ArgumentLayout
}

// RenderPipeline is a cached render pipeline.
type RenderPipeline struct {
	raw     hal.RenderPipeline
	layout  hal.PipelineLayout
	layouts []uint64
	label   string
}

// ArgumentLayouts implements framegraph.Pipeline.
func (p *RenderPipeline) ArgumentLayouts() []uint64 { return p.layouts }

// Label returns the label of the pipeline.
func (p *RenderPipeline) Label() string { return p.label }

// ComputePipeline is a cached compute pipeline.
type ComputePipeline struct {
	raw     hal.ComputePipeline
	layout  hal.PipelineLayout
	layouts []uint64
	label   string
}

// ArgumentLayouts implements framegraph.Pipeline.
func (p *ComputePipeline) ArgumentLayouts() []uint64 { return p.layouts }

// Label returns the label of the pipeline.
func (p *ComputePipeline) Label() string { return p.label }

// pipelineCache owns shader modules, layouts and pipelines keyed by
// content hash. Lookups use double-check locking.
type pipelineCache struct {
	device hal.Device

	mu      sync.RWMutex
	shaders map[uint64]hal.ShaderModule
	layouts map[uint64]*ArgumentLayout
	render  map[uint64]*RenderPipeline
	compute map[uint64]*ComputePipeline
	hits    uint64
	misses  uint64
}

func newPipelineCache(device hal.Device) *pipelineCache {
	return &pipelineCache{
		device:  device,
		shaders: make(map[uint64]hal.ShaderModule),
		layouts: make(map[uint64]*ArgumentLayout),
		render:  make(map[uint64]*RenderPipeline),
		compute: make(map[uint64]*ComputePipeline),
	}
}

// CacheStats reports pipeline cache statistics.
type CacheStats struct {
	Hits, Misses uint64
	Layouts      int
	Pipelines    int
}

// PipelineStats returns statistics of the pipeline cache.
func (d *Device) PipelineStats() CacheStats {
	c := d.pipelines
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheStats{
		Hits:      atomic.LoadUint64(&c.hits),
		Misses:    atomic.LoadUint64(&c.misses),
		Layouts:   len(c.layouts),
		Pipelines: len(c.render) + len(c.compute),
	}
}

// CreateArgumentLayout returns the argument layout with the given
// entries, creating it on first use.
func (d *Device) CreateArgumentLayout(label string, entries ...gputypes.BindGroupLayoutEntry) (*ArgumentLayout, error) {
	c := d.pipelines
	key := hashLayoutEntries(entries)

	c.mu.RLock()
	if l, ok := c.layouts[key]; ok {
		c.mu.RUnlock()
		atomic.AddUint64(&c.hits, 1)
		return l, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.layouts[key]; ok {
		atomic.AddUint64(&c.hits, 1)
		return l, nil
	}

	raw, err := c.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   label,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create argument layout %q: %w", label, err)
	}
	l := &ArgumentLayout{raw: raw, hash: key}
	c.layouts[key] = l
	atomic.AddUint64(&c.misses, 1)
	return l, nil
}

// CreateRenderPipeline returns the render pipeline for desc, compiling it
// on first use.
func (d *Device) CreateRenderPipeline(desc *RenderPipelineDesc) (*RenderPipeline, error) {
	if desc == nil {
		return nil, ErrNilDescriptor
	}
	c := d.pipelines
	key := hashRenderPipeline(desc)

	c.mu.RLock()
	if p, ok := c.render[key]; ok {
		c.mu.RUnlock()
		atomic.AddUint64(&c.hits, 1)
		return p, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.render[key]; ok {
		atomic.AddUint64(&c.hits, 1)
		return p, nil
	}

	p, err := c.createRenderPipeline(desc)
	if err != nil {
		return nil, err
	}
	c.render[key] = p
	atomic.AddUint64(&c.misses, 1)
	return p, nil
}

// CreateComputePipeline returns the compute pipeline for desc, compiling
// it on first use.
func (d *Device) CreateComputePipeline(desc *ComputePipelineDesc) (*ComputePipeline, error) {
	if desc == nil {
		return nil, ErrNilDescriptor
	}
	c := d.pipelines
	key := hashComputePipeline(desc)

	c.mu.RLock()
	if p, ok := c.compute[key]; ok {
		c.mu.RUnlock()
		atomic.AddUint64(&c.hits, 1)
		return p, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.compute[key]; ok {
		atomic.AddUint64(&c.hits, 1)
		return p, nil
	}

	shader, err := c.shaderLocked(desc.Label, desc.Source)
	if err != nil {
		return nil, err
	}
	layout, hashes, err := c.pipelineLayout(desc.Label, desc.Layouts)
	if err != nil {
		return nil, err
	}
	raw, err := c.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Compute: hal.ComputeState{
			Module:     shader,
			EntryPoint: desc.Entry,
		},
	})
	if err != nil {
		c.device.DestroyPipelineLayout(layout)
		return nil, fmt.Errorf("wgpu: create compute pipeline %q: %w", desc.Label, err)
	}
	p := &ComputePipeline{raw: raw, layout: layout, layouts: hashes, label: desc.Label}
	c.compute[key] = p
	atomic.AddUint64(&c.misses, 1)
	return p, nil
}

// createRenderPipeline compiles a render pipeline. Caller must hold c.mu.
func (c *pipelineCache) createRenderPipeline(desc *RenderPipelineDesc) (*RenderPipeline, error) {
	shader, err := c.shaderLocked(desc.Label, desc.Source)
	if err != nil {
		return nil, err
	}
	layout, hashes, err := c.pipelineLayout(desc.Label, desc.Layouts)
	if err != nil {
		return nil, err
	}

	var fragment *hal.FragmentState
	if desc.FragmentEntry != "" {
		fragment = &hal.FragmentState{
			Module:     shader,
			EntryPoint: desc.FragmentEntry,
			Targets:    desc.Targets,
		}
	}
	raw, err := c.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     shader,
			EntryPoint: desc.VertexEntry,
			Buffers:    desc.VertexBuffers,
		},
		Fragment: fragment,
		Primitive: gputypes.PrimitiveState{
			Topology: desc.Topology,
			CullMode: desc.CullMode,
		},
		DepthStencil: desc.DepthStencil,
		Multisample: gputypes.MultisampleState{
			Count: max(desc.SampleCount, 1),
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		c.device.DestroyPipelineLayout(layout)
		return nil, fmt.Errorf("wgpu: create render pipeline %q: %w", desc.Label, err)
	}
	return &RenderPipeline{raw: raw, layout: layout, layouts: hashes, label: desc.Label}, nil
}

// shaderLocked returns the shader module for a WGSL source. Caller must
// hold c.mu.
func (c *pipelineCache) shaderLocked(label, source string) (hal.ShaderModule, error) {
	key := hashString(source)
	if m, ok := c.shaders[key]; ok {
		return m, nil
	}
	m, err := c.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{WGSL: source},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create shader module %q: %w", label, err)
	}
	c.shaders[key] = m
	return m, nil
}

func (c *pipelineCache) pipelineLayout(label string, layouts []*ArgumentLayout) (hal.PipelineLayout, []uint64, error) {
	raws := make([]hal.BindGroupLayout, len(layouts))
	hashes := make([]uint64, len(layouts))
	for i, l := range layouts {
		if l == nil {
			return nil, nil, fmt.Errorf("wgpu: pipeline %q: nil argument layout at index %d", label, i)
		}
		raws[i] = l.raw
		hashes[i] = l.hash
	}
	layout, err := c.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: raws,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("wgpu: create pipeline layout %q: %w", label, err)
	}
	return layout, hashes, nil
}

// destroyAll destroys every cached object.
func (c *pipelineCache) destroyAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range c.render {
		c.device.DestroyRenderPipeline(p.raw)
		c.device.DestroyPipelineLayout(p.layout)
	}
	for _, p := range c.compute {
		c.device.DestroyComputePipeline(p.raw)
		c.device.DestroyPipelineLayout(p.layout)
	}
	for _, l := range c.layouts {
		c.device.DestroyBindGroupLayout(l.raw)
	}
	for _, m := range c.shaders {
		c.device.DestroyShaderModule(m)
	}
	clear(c.render)
	clear(c.compute)
	clear(c.layouts)
	clear(c.shaders)
}

// ArgumentSet is a bind group created against an ArgumentLayout.
type ArgumentSet struct {
	raw    hal.BindGroup
	layout uint64
}

// LayoutHash implements framegraph.ArgumentSet.
func (a *ArgumentSet) LayoutHash() uint64 { return a.layout }

// Raw returns the hal bind group.
func (a *ArgumentSet) Raw() hal.BindGroup { return a.raw }

// ArgumentEntry binds one resource of an ArgumentSet. Exactly one of
// View, Buffer or Sampler is set.
type ArgumentEntry struct {
	Binding uint32

	// View binds a texture view, or the range of a buffer view.
	View framegraph.GPUView

	// Buffer binds Size bytes of a buffer at Offset. A zero Size binds the
	// remainder of the buffer.
	Buffer       framegraph.GPUBuffer
	Offset, Size uint64

	Sampler hal.Sampler
}

// CreateArgumentSet creates an argument set. Sets referencing pass views
// must be created inside the pass function and released with
// ReleaseArgumentSet before the next frame.
func (d *Device) CreateArgumentSet(label string, layout *ArgumentLayout, entries ...ArgumentEntry) (*ArgumentSet, error) {
	if layout == nil {
		return nil, fmt.Errorf("wgpu: argument set %q: nil layout", label)
	}
	halEntries := make([]gputypes.BindGroupEntry, len(entries))
	for i, e := range entries {
		entry, err := bindGroupEntry(e)
		if err != nil {
			return nil, fmt.Errorf("wgpu: argument set %q binding %d: %w", label, e.Binding, err)
		}
		halEntries[i] = entry
	}
	raw, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   label,
		Layout:  layout.raw,
		Entries: halEntries,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create argument set %q: %w", label, err)
	}
	return &ArgumentSet{raw: raw, layout: layout.hash}, nil
}

// ReleaseArgumentSet destroys a set once work submitted so far has completed.
func (d *Device) ReleaseArgumentSet(a *ArgumentSet) {
	if a == nil || a.raw == nil {
		return
	}
	raw := a.raw
	a.raw = nil
	d.retire(func() { d.device.DestroyBindGroup(raw) })
}

func bindGroupEntry(e ArgumentEntry) (gputypes.BindGroupEntry, error) {
	entry := gputypes.BindGroupEntry{Binding: e.Binding}
	switch {
	case e.View != nil:
		v, ok := e.View.(*View)
		if !ok {
			return entry, errors.New("view was not created by this backend")
		}
		if v.raw != nil {
			entry.Resource = gputypes.TextureViewBinding{TextureView: v.raw.NativeHandle()}
			return entry, nil
		}
		b, ok := v.res.(*Buffer)
		if !ok {
			return entry, errors.New("view has no texture or buffer")
		}
		entry.Resource = gputypes.BufferBinding{Buffer: b.raw.NativeHandle(), Offset: v.offset, Size: v.size}

	case e.Buffer != nil:
		b, ok := e.Buffer.(*Buffer)
		if !ok {
			return entry, errors.New("buffer was not created by this backend")
		}
		size := e.Size
		if size == 0 && e.Offset < b.desc.Size {
			size = b.desc.Size - e.Offset
		}
		entry.Resource = gputypes.BufferBinding{Buffer: b.raw.NativeHandle(), Offset: e.Offset, Size: size}

	case e.Sampler != nil:
		entry.Resource = gputypes.SamplerBinding{Sampler: e.Sampler.NativeHandle()}

	default:
		return entry, errors.New("no resource set")
	}
	return entry, nil
}
