package framegraph

import (
	"slices"

	"github.com/gogpu/gputypes"
)

// DebugOutput selects a texture of the graph to display on an imported
// output texture, typically the swapchain image. It is owned by the caller
// and passed to Graph.Execute each frame.
type DebugOutput struct {
	// Output is the backend texture the selected resource is blitted onto.
	// It must be imported into the graph.
	Output GPUTexture

	// Selected is the name of the texture resource to display. Empty
	// disables the blit.
	Selected string

	// Available is filled by Execute with the names of the texture
	// resources that could be selected, sorted.
	Available []string
}

// Observer receives execution events. It is used for debug capture and
// tooling; all methods are called on the goroutine running Execute.
type Observer interface {
	// GraphResolved is called once dependency resolution has finished.
	GraphResolved(summary ResolveSummary)

	// PassBegin is called before the function of a required pass runs.
	PassBegin(name string, typ PassType)

	// PassEnd is called after the function of a required pass returned.
	PassEnd(name string, typ PassType)
}

// prepareDebugOutput adds the usage the debug blit needs to the selected
// transient texture. It runs before allocation.
func (g *Graph) prepareDebugOutput(debug *DebugOutput) {
	if debug == nil {
		return
	}
	debug.Available = debug.Available[:0]
	for _, r := range g.resources {
		if r.kind == KindTexture && r.required && r.name != "" {
			debug.Available = append(debug.Available, r.name)
		}
	}
	slices.Sort(debug.Available)
	debug.Available = slices.Compact(debug.Available)

	if debug.Output == nil || debug.Selected == "" {
		return
	}
	if src := g.debugSource(debug); src != nil && !src.imported {
		src.textureUsage |= gputypes.TextureUsageCopySrc
		src.keep = true
	}
}

// debugSource returns the required texture selected for display.
func (g *Graph) debugSource(debug *DebugOutput) *resource {
	for _, r := range g.resources {
		if r.kind == KindTexture && r.required && r.name == debug.Selected {
			return r
		}
	}
	return nil
}

// debugTarget returns the imported resource bound to the output texture.
func (g *Graph) debugTarget(debug *DebugOutput) *resource {
	for _, r := range g.resources {
		if r.imported && r.kind == KindTexture && r.object == GPUResource(debug.Output) {
			return r
		}
	}
	return nil
}

// blitDebugOutput copies the selected texture onto the output texture before
// imported resources are restored.
func (g *Graph) blitDebugOutput(b *barrierBatch, debug *DebugOutput) error {
	if debug == nil || debug.Output == nil || debug.Selected == "" {
		return nil
	}
	dst := g.debugTarget(debug)
	src := g.debugSource(debug)
	if dst == nil || src == nil || dst == src {
		return nil
	}
	if src.textureUsage&gputypes.TextureUsageCopySrc == 0 {
		g.logger.Warn("framegraph: debug source lacks copy-src usage", "name", src.name)
		return nil
	}
	if dst.textureUsage&gputypes.TextureUsageCopyDst == 0 {
		g.logger.Warn("framegraph: debug output lacks copy-dst usage", "name", dst.name)
		return nil
	}

	b.transition(src, StateTransferRead, false)
	b.transition(dst, StateTransferWrite, dst.currentState == StateNone)
	if err := b.flush(g, "debug output"); err != nil {
		return err
	}
	if err := g.backend.BlitTexture(dst.object.(GPUTexture), src.object.(GPUTexture)); err != nil {
		return backendError("BlitTexture", err)
	}
	g.logger.Debug("framegraph: debug output", "source", src.name, "output", dst.name)
	return nil
}
