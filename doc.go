// Package framegraph provides a frame-scoped render graph for GPU work.
//
// # Overview
//
// A Graph is built once per frame. Callers declare transient resources
// (CreateBuffer, CreateTexture), wrap externally owned objects
// (ImportResource) and add render, compute and transfer passes that declare
// how they access each resource. Execute then:
//
//   - culls passes whose outputs never reach an imported resource or an
//     explicitly required pass
//   - allocates backend objects for the remaining transient resources from a
//     TransientPool
//   - issues batched state transitions before each pass
//   - creates the views a pass declared, runs its function and destroys them
//   - restores imported resources to the state they were imported in
//
// # Quick Start
//
//	g := framegraph.New(framegraph.WithBackend(b), framegraph.WithPool(p))
//
//	colour := g.CreateTexture(framegraph.TextureDesc{
//	    Name: "colour", Width: 1024, Height: 1024,
//	    Format: gputypes.TextureFormatRGBA8Unorm,
//	})
//	out := g.ImportResource(swapchain, framegraph.StatePresent, "", nil, nil)
//
//	draw := g.AddPass("draw", framegraph.PassRender)
//	draw.SetColour(0, colour, framegraph.TextureView(framegraph.StateRenderTarget), &colour)
//	draw.SetFunction(framegraph.RenderFunc(func(g *framegraph.Graph, cmd framegraph.RenderCommandList) {
//	    cmd.SetPipeline(pipeline)
//	    cmd.Draw(3, 1, 0, 0)
//	}))
//
//	copyOut := g.AddPass("present", framegraph.PassTransfer)
//	copyOut.UseResource(colour, framegraph.SubresourceRange{}, framegraph.StateTransferRead, nil)
//	copyOut.UseResource(out, framegraph.SubresourceRange{}, framegraph.StateTransferWrite, nil)
//	copyOut.SetFunction(framegraph.TransferFunc(func(g *framegraph.Graph, ctx framegraph.TransferContext) {
//	    // ...
//	}))
//
//	if err := g.Execute(nil); err != nil {
//	    return err
//	}
//
// # Versions
//
// Every write creates a new version of a resource and a handle refers to
// one version. A pass must use the current version; using a handle that was
// superseded by a later write panics.
//
// # Errors
//
// Misuse of the API (stale handles, illegal states, views accessed outside
// their pass) panics with a *ContractError. Failures reported by the pool
// or the backend are returned from Execute wrapped in ErrAllocation or
// ErrBackend.
//
// # Sub-packages
//
//   - pool: descriptor-keyed transient resource recycling
//   - recording: backend that records typed commands, for tests and tools
//   - backend: registry of named backend factories
//   - backend/wgpu: backend on github.com/gogpu/wgpu/hal
package framegraph
