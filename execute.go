package framegraph

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Execute resolves the graph, allocates transient resources and records
// every required pass in declaration order. Imported resources are then
// restored to their initial states and cleanups registered with AddCleanup
// run, even when a backend call failed.
//
// debug may be nil. A graph can be executed once.
func (g *Graph) Execute(debug *DebugOutput) error {
	const op = "Execute"
	g.checkBuilding(op)
	g.executed = true
	defer g.runCleanups()

	if g.backend == nil {
		return ErrNoBackend
	}

	g.determineRequiredPasses()
	summary := g.summary()
	g.logger.Debug("framegraph: resolved",
		"required", len(summary.Required), "culled", len(summary.Culled),
		"resources", summary.Resources)
	if g.observer != nil {
		g.observer.GraphResolved(summary)
	}

	for _, p := range g.passes {
		if p.required && p.fn == nil {
			violation(op, "pass %q has no function", p.name)
		}
	}

	g.prepareDebugOutput(debug)
	if err := g.allocateResources(); err != nil {
		return err
	}

	var batch barrierBatch
	for _, p := range g.passes {
		if !p.required {
			continue
		}
		if err := g.executePass(&batch, p); err != nil {
			return fmt.Errorf("pass %q: %w", p.name, err)
		}
	}

	if err := g.blitDebugOutput(&batch, debug); err != nil {
		return err
	}
	if err := g.restoreImported(&batch); err != nil {
		return err
	}
	if err := g.backend.Flush(); err != nil {
		return backendError("Flush", err)
	}
	return nil
}

func (g *Graph) executePass(batch *barrierBatch, p *Pass) error {
	for _, r := range g.resources {
		if r.firstPass == p.index && r.begin != nil {
			r.begin()
		}
	}

	g.transitionPass(batch, p)
	if err := batch.flush(g, p.name); err != nil {
		return err
	}

	if err := g.createViews(p); err != nil {
		return err
	}
	err := g.runPass(p)
	g.destroyViews()
	if err != nil {
		return err
	}

	for _, r := range g.resources {
		if r.lastPass == p.index && r.end != nil {
			r.end()
		}
	}
	return nil
}

func (g *Graph) createViews(p *Pass) error {
	g.views = g.views[:0]
	for _, req := range p.views {
		r := g.resources[req.resource]
		v, err := g.backend.CreateView(r.object, req.desc)
		if err != nil {
			return backendError(fmt.Sprintf("CreateView %q", r.name), err)
		}
		g.views = append(g.views, v)
	}
	return nil
}

func (g *Graph) destroyViews() {
	for _, v := range g.views {
		if v != nil {
			g.backend.DestroyView(v)
		}
	}
	g.views = g.views[:0]
}

// runPass opens the backend scope of p, runs its function and closes the
// scope.
func (g *Graph) runPass(p *Pass) error {
	g.currentPass = p.index
	defer func() { g.currentPass = noPass }()

	if g.observer != nil {
		g.observer.PassBegin(p.name, p.typ)
	}

	switch fn := p.fn.(type) {
	case RenderFunc:
		desc := g.renderPassDesc(p)
		cmd, err := g.backend.BeginRenderPass(desc)
		if err != nil {
			return backendError("BeginRenderPass", err)
		}
		list := &renderList{bindState: bindState{pass: p.name}, cmd: cmd}
		fn(g, list)
		if err := g.backend.EndRenderPass(cmd); err != nil {
			return backendError("EndRenderPass", err)
		}
		g.logDropped(p, list.dropped)
	case ComputeFunc:
		cmd, err := g.backend.BeginComputePass(p.name)
		if err != nil {
			return backendError("BeginComputePass", err)
		}
		list := &computeList{bindState: bindState{pass: p.name}, cmd: cmd}
		fn(g, list)
		if err := g.backend.EndComputePass(cmd); err != nil {
			return backendError("EndComputePass", err)
		}
		g.logDropped(p, list.dropped)
	case TransferFunc:
		fn(g, g.backend.TransferContext())
	}

	if g.observer != nil {
		g.observer.PassEnd(p.name, p.typ)
	}
	return nil
}

func (g *Graph) logDropped(p *Pass, dropped int) {
	if dropped > 0 {
		g.logger.Debug("framegraph: dropped redundant binds", "pass", p.name, "count", dropped)
	}
}

// renderPassDesc builds the attachments of p. An attachment is cleared when
// p is the first required pass using its resource and discarded when p is
// the last required pass using a transient resource.
func (g *Graph) renderPassDesc(p *Pass) *RenderPassDesc {
	desc := &RenderPassDesc{Name: p.name}

	n := p.colourCount()
	if n > 0 {
		desc.Colour = make([]ColourAttachment, n)
	}
	for i := range n {
		b := p.colour[i]
		if !b.bound {
			continue
		}
		r := g.resources[p.views[b.view].resource]
		desc.Colour[i] = ColourAttachment{
			View:       g.views[b.view],
			LoadOp:     loadOp(r.firstPass == p.index),
			StoreOp:    g.storeOp(r, p),
			ClearValue: b.clear,
		}
	}

	if p.depth.bound {
		r := g.resources[p.views[p.depth.view].resource]
		first := r.firstPass == p.index
		store := g.storeOp(r, p)
		desc.DepthStencil = &DepthStencilAttachment{
			View:              g.views[p.depth.view],
			State:             p.depth.state,
			DepthLoadOp:       loadOp(first && p.depth.state.WritesDepth()),
			DepthStoreOp:      store,
			DepthClearValue:   p.depth.clearDepth,
			StencilLoadOp:     loadOp(first && p.depth.state.WritesStencil()),
			StencilStoreOp:    store,
			StencilClearValue: p.depth.clearStencil,
		}
	}
	return desc
}

func loadOp(clear bool) gputypes.LoadOp {
	if clear {
		return gputypes.LoadOpClear
	}
	return gputypes.LoadOpLoad
}

func (g *Graph) storeOp(r *resource, p *Pass) gputypes.StoreOp {
	if !r.imported && !r.keep && r.lastPass == p.index {
		return gputypes.StoreOpDiscard
	}
	return gputypes.StoreOpStore
}

// restoreImported transitions every imported resource back to the state it
// was imported in.
func (g *Graph) restoreImported(batch *barrierBatch) error {
	for _, r := range g.resources {
		if r.imported && r.originalState != StateNone {
			batch.transition(r, r.originalState, false)
		}
	}
	return batch.flush(g, "restore")
}

func (g *Graph) runCleanups() {
	for i := len(g.cleanups) - 1; i >= 0; i-- {
		g.cleanups[i]()
	}
	g.cleanups = nil
}
