package framegraph

import (
	"slices"

	"github.com/gogpu/gputypes"
)

// MaxColourAttachments is the number of colour attachment slots of a render
// pass.
const MaxColourAttachments = 8

// PassType is the kind of GPU work a pass records.
type PassType uint8

const (
	PassRender PassType = iota
	PassCompute
	PassTransfer
)

var passTypeNames = [...]string{"render", "compute", "transfer"}

// String returns the pass type name.
func (t PassType) String() string {
	if int(t) < len(passTypeNames) {
		return passTypeNames[t]
	}
	return "unknown"
}

// PassFunc is the execution callback of a pass: a RenderFunc, ComputeFunc or
// TransferFunc. The callback type must match the pass type.
type PassFunc interface {
	passType() PassType
}

// RenderFunc records the commands of a render pass.
type RenderFunc func(g *Graph, cmd RenderCommandList)

// ComputeFunc records the commands of a compute pass.
type ComputeFunc func(g *Graph, cmd ComputeCommandList)

// TransferFunc performs the transfers of a transfer pass.
type TransferFunc func(g *Graph, ctx TransferContext)

func (RenderFunc) passType() PassType   { return PassRender }
func (ComputeFunc) passType() PassType  { return PassCompute }
func (TransferFunc) passType() PassType { return PassTransfer }

// resourceUse is a single declared access of a resource by a pass.
type resourceUse struct {
	resource int

	// version is the version consumed by the pass.
	version uint32

	rng   SubresourceRange
	state ResourceState

	// split is set when another use of the same pass overlaps rng with a
	// different state.
	split bool
}

// viewRequest is a view to materialize before the pass function runs.
type viewRequest struct {
	resource int
	desc     ViewDesc
}

type colourBinding struct {
	bound bool
	view  int
	clear gputypes.Color
}

type depthBinding struct {
	bound        bool
	view         int
	state        ResourceState
	clearDepth   float32
	clearStencil uint32
}

// Pass is a unit of GPU work under construction. Passes are created with
// Graph.AddPass and are only valid for the graph that created them.
type Pass struct {
	graph *Graph
	index int
	name  string
	typ   PassType

	uses  []resourceUse
	views []viewRequest

	colour [MaxColourAttachments]colourBinding
	depth  depthBinding

	fn PassFunc

	// marked is the explicit required seed; required is the resolved flag.
	marked   bool
	required bool
}

// AddPass appends a pass to the graph. Passes execute in declaration order.
func (g *Graph) AddPass(name string, typ PassType) *Pass {
	const op = "AddPass"
	g.checkBuilding(op)
	if typ > PassTransfer {
		violation(op, "pass %q has unknown type %d", name, typ)
	}
	p := &Pass{
		graph: g,
		index: len(g.passes),
		name:  name,
		typ:   typ,
	}
	g.passes = append(g.passes, p)
	return p
}

// Name returns the pass name.
func (p *Pass) Name() string { return p.name }

// Type returns the pass type.
func (p *Pass) Type() PassType { return p.typ }

// Required reports whether the last resolution kept the pass.
func (p *Pass) Required() bool { return p.required }

// MarkRequired keeps the pass regardless of whether its outputs are
// consumed.
func (p *Pass) MarkRequired() {
	p.graph.checkBuilding("MarkRequired")
	p.marked = true
}

// UseResource declares that the pass accesses rng of the resource h refers
// to in the given state. h must reference the current version of the
// resource. Every call with a write state creates a new version, which makes
// h stale, and stores its handle in out when out is non-nil. For read states
// out receives h unchanged.
//
// Buffers ignore rng and always use the whole resource.
func (p *Pass) UseResource(h ResourceHandle, rng SubresourceRange, state ResourceState, out *ResourceHandle) {
	p.use("UseResource", h, rng, state, out)
}

func (p *Pass) use(op string, h ResourceHandle, rng SubresourceRange, state ResourceState, out *ResourceHandle) {
	g := p.graph
	g.checkBuilding(op)
	r := g.lookup(op, h)
	idx := h.resource()

	if msg := state.validate(r.kind); msg != "" {
		violation(op, "pass %q, resource %q: %s", p.name, r.name, msg)
	}
	if h.version != r.currentVersion {
		violation(op, "pass %q uses stale version %d of %q (current %d)",
			p.name, h.version, r.name, r.currentVersion)
	}

	if r.kind == KindBuffer {
		rng = r.wholeRange()
	} else {
		rng = p.checkRange(op, r, rng)
	}
	r.addUsage(op, state)
	p.merge(idx, h.version, rng, state)

	next := h
	if state.IsWrite() {
		next = makeResourceHandle(idx, r.bumpVersion(p.index))
	}
	if out != nil {
		*out = next
	}
}

// checkRange fills defaulted counts and rejects ranges outside the texture.
func (p *Pass) checkRange(op string, r *resource, rng SubresourceRange) SubresourceRange {
	if rng.MipCount == 0 {
		rng.MipCount = r.texture.MipLevels - min(rng.MipOffset, r.texture.MipLevels)
	}
	if rng.LayerCount == 0 {
		rng.LayerCount = r.texture.ArraySize - min(rng.LayerOffset, r.texture.ArraySize)
	}
	if rng.MipCount == 0 || rng.MipOffset+rng.MipCount > r.texture.MipLevels ||
		rng.LayerCount == 0 || rng.LayerOffset+rng.LayerCount > r.texture.ArraySize {
		violation(op, "pass %q: range %v outside %q (%d mips, %d layers)",
			p.name, rng, r.name, r.texture.MipLevels, r.texture.ArraySize)
	}
	return rng
}

// merge records a use. Uses of the same state are folded together while
// their union is exactly a range. Every remaining overlap with a use of a
// different state flags both uses as split.
func (p *Pass) merge(idx int, version uint32, rng SubresourceRange, state ResourceState) {
	cur := resourceUse{resource: idx, version: version, rng: rng, state: state}
	for i := 0; i < len(p.uses); {
		u := p.uses[i]
		if u.resource == idx && u.state == state && u.rng.Overlaps(cur.rng) {
			if merged, ok := exactUnion(u.rng, cur.rng); ok {
				cur.rng = merged
				cur.version = min(cur.version, u.version)
				p.uses = slices.Delete(p.uses, i, i+1)
				// The wider range may now fold an earlier use.
				i = 0
				continue
			}
		}
		i++
	}

	for i := range p.uses {
		u := &p.uses[i]
		if u.resource == idx && u.state != state && u.rng.Overlaps(cur.rng) {
			u.split = true
			cur.split = true
		}
	}
	p.uses = append(p.uses, cur)
}

// exactUnion returns the union of two overlapping ranges when no
// subresource outside a and b is needed to express it as a single range.
func exactUnion(a, b SubresourceRange) (SubresourceRange, bool) {
	u := union(a, b)
	sameMips := a.MipOffset == b.MipOffset && a.MipCount == b.MipCount
	sameLayers := a.LayerOffset == b.LayerOffset && a.LayerCount == b.LayerCount
	if u == a || u == b || sameMips || sameLayers {
		return u, true
	}
	return SubresourceRange{}, false
}

// union returns the smallest range containing a and b.
func union(a, b SubresourceRange) SubresourceRange {
	mipEnd := max(a.MipOffset+a.MipCount, b.MipOffset+b.MipCount)
	layerEnd := max(a.LayerOffset+a.LayerCount, b.LayerOffset+b.LayerCount)
	u := SubresourceRange{
		MipOffset:   min(a.MipOffset, b.MipOffset),
		LayerOffset: min(a.LayerOffset, b.LayerOffset),
	}
	u.MipCount = mipEnd - u.MipOffset
	u.LayerCount = layerEnd - u.LayerOffset
	return u
}

// CreateView declares a use of h in desc.State and requests a view for it.
// The view exists only while the pass function runs and is retrieved with
// Graph.GetView.
func (p *Pass) CreateView(h ResourceHandle, desc ViewDesc, out *ResourceHandle) ViewHandle {
	return p.createView("CreateView", h, desc, out)
}

func (p *Pass) createView(op string, h ResourceHandle, desc ViewDesc, out *ResourceHandle) ViewHandle {
	r := p.graph.lookup(op, h)
	switch {
	case r.kind == KindBuffer && desc.Kind != ViewBuffer:
		violation(op, "pass %q: texture view requested for buffer %q", p.name, r.name)
	case r.kind == KindTexture && desc.Kind == ViewBuffer:
		violation(op, "pass %q: buffer view requested for texture %q", p.name, r.name)
	case r.kind == KindBuffer && desc.ElementCount > 0 && desc.ElementOffset+desc.ElementCount > r.buffer.Size:
		violation(op, "pass %q: view [%d+%d] outside buffer %q of %d bytes",
			p.name, desc.ElementOffset, desc.ElementCount, r.name, r.buffer.Size)
	}

	p.use(op, h, desc.subresourceRange(), desc.State, out)
	p.views = append(p.views, viewRequest{resource: h.resource(), desc: desc})
	//nolint:gosec // G115: pass and view counts are bounded well below uint32 max
	return ViewHandle{pass: uint32(p.index) + 1, index: uint32(len(p.views) - 1)}
}

// SetColour binds a view of h as colour attachment index. desc.State must be
// StateRenderTarget. The attachment is cleared to transparent black when the
// pass is the first to use the resource, unless ClearColour sets another
// value.
func (p *Pass) SetColour(index int, h ResourceHandle, desc ViewDesc, out *ResourceHandle) {
	const op = "SetColour"
	p.requireRender(op)
	if index < 0 || index >= MaxColourAttachments {
		violation(op, "pass %q: colour index %d out of range", p.name, index)
	}
	if p.colour[index].bound {
		violation(op, "pass %q: colour attachment %d already bound", p.name, index)
	}
	if desc.State != StateRenderTarget {
		violation(op, "pass %q: colour attachment state must be RenderTarget, got %v", p.name, desc.State)
	}
	v := p.createView(op, h, desc, out)
	p.colour[index] = colourBinding{bound: true, view: int(v.index)}
}

// SetDepthStencil binds a view of h as the depth/stencil attachment.
// desc.State must be exactly one of the depth/stencil states. Depth clears
// to 1 and stencil to 0 unless ClearDepth or ClearStencil set other values.
func (p *Pass) SetDepthStencil(h ResourceHandle, desc ViewDesc, out *ResourceHandle) {
	const op = "SetDepthStencil"
	p.requireRender(op)
	if p.depth.bound {
		violation(op, "pass %q: depth/stencil attachment already bound", p.name)
	}
	if !desc.State.isDepthStencilState() {
		violation(op, "pass %q: depth/stencil state must be a single depth/stencil variant, got %v", p.name, desc.State)
	}
	v := p.createView(op, h, desc, out)
	p.depth = depthBinding{
		bound:      true,
		view:       int(v.index),
		state:      desc.State,
		clearDepth: 1,
	}
}

// ClearColour sets the clear value of colour attachment index.
func (p *Pass) ClearColour(index int, c gputypes.Color) {
	const op = "ClearColour"
	p.requireRender(op)
	if index < 0 || index >= MaxColourAttachments || !p.colour[index].bound {
		violation(op, "pass %q: colour attachment %d not bound", p.name, index)
	}
	p.colour[index].clear = c
}

// ClearDepth sets the depth clear value.
func (p *Pass) ClearDepth(depth float32) {
	const op = "ClearDepth"
	p.requireRender(op)
	if !p.depth.bound {
		violation(op, "pass %q: depth/stencil attachment not bound", p.name)
	}
	p.depth.clearDepth = depth
}

// ClearStencil sets the stencil clear value.
func (p *Pass) ClearStencil(stencil uint32) {
	const op = "ClearStencil"
	p.requireRender(op)
	if !p.depth.bound {
		violation(op, "pass %q: depth/stencil attachment not bound", p.name)
	}
	p.depth.clearStencil = stencil
}

// SetFunction sets the execution callback. It must be called exactly once
// and the callback type must match the pass type.
func (p *Pass) SetFunction(fn PassFunc) {
	const op = "SetFunction"
	p.graph.checkBuilding(op)
	switch {
	case fn == nil:
		violation(op, "pass %q: nil function", p.name)
	case p.fn != nil:
		violation(op, "pass %q: function already set", p.name)
	case fn.passType() != p.typ:
		violation(op, "pass %q: %v function set on %v pass", p.name, fn.passType(), p.typ)
	}
	switch f := fn.(type) {
	case RenderFunc:
		if f == nil {
			violation(op, "pass %q: nil function", p.name)
		}
	case ComputeFunc:
		if f == nil {
			violation(op, "pass %q: nil function", p.name)
		}
	case TransferFunc:
		if f == nil {
			violation(op, "pass %q: nil function", p.name)
		}
	}
	p.fn = fn
}

func (p *Pass) requireRender(op string) {
	p.graph.checkBuilding(op)
	if p.typ != PassRender {
		violation(op, "pass %q is a %v pass", p.name, p.typ)
	}
}

// colourCount returns one past the highest bound colour slot.
func (p *Pass) colourCount() int {
	n := 0
	for i := range p.colour {
		if p.colour[i].bound {
			n = i + 1
		}
	}
	return n
}
