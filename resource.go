package framegraph

import (
	"github.com/gogpu/gputypes"
)

// noPass marks an absent pass index (producer of version 0, first/last pass
// of an unused resource).
const noPass = -1

// resource is the graph's record of a buffer or texture.
type resource struct {
	kind ResourceKind
	name string

	buffer  BufferDesc
	texture TextureDesc

	// Usage accumulated over every declared state.
	bufferUsage  gputypes.BufferUsage
	textureUsage gputypes.TextureUsage

	// producers[v] is the pass that wrote version v, noPass for version 0.
	// len(producers) == currentVersion+1 at all times.
	currentVersion uint32
	producers      []int

	imported      bool
	originalState ResourceState
	currentState  ResourceState
	begin, end    func()

	required  bool
	keep      bool // contents must survive the last pass
	firstPass int
	lastPass  int

	// object is nil until allocation for transient resources.
	object GPUResource
}

func newResource(kind ResourceKind, name string) *resource {
	return &resource{
		kind:      kind,
		name:      name,
		producers: []int{noPass},
		firstPass: noPass,
		lastPass:  noPass,
	}
}

// addUsage accumulates the usage required by state. Imported resources
// cannot gain usage: the backend object already exists.
func (r *resource) addUsage(op string, state ResourceState) {
	switch r.kind {
	case KindBuffer:
		u := state.BufferUsage()
		if r.imported && r.buffer.Usage&u != u {
			violation(op, "imported buffer %q lacks usage for state %v", r.name, state)
		}
		r.bufferUsage |= u
	case KindTexture:
		u := state.TextureUsage()
		if r.imported && r.texture.Usage&u != u {
			violation(op, "imported texture %q lacks usage for state %v", r.name, state)
		}
		r.textureUsage |= u
	}
}

// wholeRange returns the range covering every subresource.
func (r *resource) wholeRange() SubresourceRange {
	if r.kind == KindBuffer {
		return SubresourceRange{MipCount: 1, LayerCount: 1}
	}
	return SubresourceRange{MipCount: r.texture.MipLevels, LayerCount: r.texture.ArraySize}
}

// covers reports whether rng covers the whole resource.
func (r *resource) covers(rng SubresourceRange) bool {
	return rng == r.wholeRange()
}

// bumpVersion records pass as the producer of a new version and returns it.
func (r *resource) bumpVersion(pass int) uint32 {
	r.currentVersion++
	r.producers = append(r.producers, pass)
	return r.currentVersion
}

// CreateBuffer declares a transient buffer at version 0 with no backing
// object.
func (g *Graph) CreateBuffer(desc BufferDesc) ResourceHandle {
	const op = "CreateBuffer"
	g.checkBuilding(op)
	if desc.Size == 0 {
		violation(op, "buffer %q has zero size", desc.Name)
	}
	desc.Usage = 0

	r := newResource(KindBuffer, desc.Name)
	r.buffer = desc
	return g.addResource(r)
}

// CreateTexture declares a transient texture at version 0 with no backing
// object.
func (g *Graph) CreateTexture(desc TextureDesc) ResourceHandle {
	const op = "CreateTexture"
	g.checkBuilding(op)
	if desc.Width == 0 || desc.Height == 0 {
		violation(op, "texture %q has zero extent %dx%d", desc.Name, desc.Width, desc.Height)
	}
	if desc.Format == gputypes.TextureFormatUndefined {
		violation(op, "texture %q has undefined format", desc.Name)
	}
	desc = desc.withDefaults()
	desc.Usage = 0

	r := newResource(KindTexture, desc.Name)
	r.texture = desc
	return g.addResource(r)
}

// ImportResource wraps an externally owned buffer or texture for use in
// this graph. The descriptor is read from the object. After execution the
// resource is transitioned back to initialState.
//
// begin is called before the first pass that uses the resource executes and
// end after the last one; either may be nil. When name is empty the object
// label is used.
func (g *Graph) ImportResource(res GPUResource, initialState ResourceState, name string, begin, end func()) ResourceHandle {
	const op = "ImportResource"
	g.checkBuilding(op)
	if name == "" && res != nil {
		name = res.Label()
	}

	var r *resource
	switch obj := res.(type) {
	case GPUTexture:
		r = newResource(KindTexture, name)
		r.texture = obj.Desc().withDefaults()
		r.textureUsage = r.texture.Usage
	case GPUBuffer:
		r = newResource(KindBuffer, name)
		r.buffer = obj.Desc()
		r.bufferUsage = r.buffer.Usage
	default:
		violation(op, "resource %q is neither a GPUBuffer nor a GPUTexture", name)
	}
	if initialState != StateNone {
		if msg := initialState.validate(r.kind); msg != "" {
			violation(op, "%q: %s", name, msg)
		}
	}

	r.imported = true
	r.originalState = initialState
	r.currentState = initialState
	r.begin = begin
	r.end = end
	r.object = res
	return g.addResource(r)
}

func (g *Graph) addResource(r *resource) ResourceHandle {
	g.resources = append(g.resources, r)
	h := makeResourceHandle(len(g.resources)-1, 0)
	g.logger.Debug("framegraph: declared resource",
		"name", r.name, "kind", r.kind.String(), "imported", r.imported)
	return h
}

// lookup returns the resource h refers to, panicking if h is invalid.
func (g *Graph) lookup(op string, h ResourceHandle) *resource {
	if !h.IsValid() || h.resource() >= len(g.resources) {
		violation(op, "invalid resource handle %v", h)
	}
	return g.resources[h.resource()]
}

// ResourceName returns the debug name of the resource h refers to.
func (g *Graph) ResourceName(h ResourceHandle) string {
	return g.lookup("ResourceName", h).name
}

// ResourceVersion returns the latest version of the resource h refers to.
func (g *Graph) ResourceVersion(h ResourceHandle) uint32 {
	return g.lookup("ResourceVersion", h).currentVersion
}

// BufferDesc returns the descriptor of the buffer h refers to. The usage
// reflects the states declared so far.
func (g *Graph) BufferDesc(h ResourceHandle) BufferDesc {
	r := g.lookup("BufferDesc", h)
	if r.kind != KindBuffer {
		violation("BufferDesc", "%q is a %v", r.name, r.kind)
	}
	d := r.buffer
	d.Usage = r.bufferUsage
	return d
}

// TextureDesc returns the descriptor of the texture h refers to. The usage
// reflects the states declared so far.
func (g *Graph) TextureDesc(h ResourceHandle) TextureDesc {
	r := g.lookup("TextureDesc", h)
	if r.kind != KindTexture {
		violation("TextureDesc", "%q is a %v", r.name, r.kind)
	}
	d := r.texture
	d.Usage = r.textureUsage
	return d
}

// GetBuffer returns the backend buffer bound to h. It may only be called
// from a pass function.
func (g *Graph) GetBuffer(h ResourceHandle) GPUBuffer {
	const op = "GetBuffer"
	r := g.boundResource(op, h)
	if r.kind != KindBuffer {
		violation(op, "%q is a %v", r.name, r.kind)
	}
	return r.object.(GPUBuffer)
}

// GetTexture returns the backend texture bound to h. It may only be called
// from a pass function.
func (g *Graph) GetTexture(h ResourceHandle) GPUTexture {
	const op = "GetTexture"
	r := g.boundResource(op, h)
	if r.kind != KindTexture {
		violation(op, "%q is a %v", r.name, r.kind)
	}
	return r.object.(GPUTexture)
}

func (g *Graph) boundResource(op string, h ResourceHandle) *resource {
	if g.currentPass == noPass {
		violation(op, "called outside pass execution")
	}
	r := g.lookup(op, h)
	if r.object == nil {
		violation(op, "%q has no backend object (culled)", r.name)
	}
	return r
}
