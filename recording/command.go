package recording

import (
	"github.com/gogpu/framegraph"
	"github.com/gogpu/gputypes"
)

// CommandType identifies the type of a command.
type CommandType uint8

const (
	// Object commands
	CmdCreateBuffer  CommandType = iota // Create a buffer
	CmdCreateTexture                    // Create a texture
	CmdRelease                          // Release a buffer or texture
	CmdSetDebugName                     // Tag an object with a name
	CmdCreateView                       // Create a view
	CmdDestroyView                      // Destroy a view

	// Synchronization commands
	CmdBarrier // Batch of state transitions
	CmdFlush   // Submit outstanding work

	// Pass scope commands
	CmdBeginRenderPass  // Open a render pass
	CmdEndRenderPass    // Close and submit a render pass
	CmdBeginComputePass // Open a compute pass
	CmdEndComputePass   // Close and submit a compute pass

	// Recording commands
	CmdSetPipeline     // Bind a pipeline
	CmdSetArguments    // Bind an argument set
	CmdSetVertexBuffer // Bind a vertex buffer
	CmdSetIndexBuffer  // Bind an index buffer
	CmdDraw            // Non-indexed draw
	CmdDrawIndexed     // Indexed draw
	CmdDispatch        // Compute dispatch

	// Transfer commands
	CmdWriteBuffer  // Upload into a buffer
	CmdWriteTexture // Upload into a texture
	CmdCopyBuffer   // Buffer to buffer copy
	CmdBlit         // Texture blit

	// Observer events
	CmdResolved  // Dependency resolution finished
	CmdPassBegin // Pass function about to run
	CmdPassEnd   // Pass function returned
)

// commandTypeNames maps CommandType values to their string representation.
var commandTypeNames = [...]string{
	CmdCreateBuffer:     "CreateBuffer",
	CmdCreateTexture:    "CreateTexture",
	CmdRelease:          "Release",
	CmdSetDebugName:     "SetDebugName",
	CmdCreateView:       "CreateView",
	CmdDestroyView:      "DestroyView",
	CmdBarrier:          "Barrier",
	CmdFlush:            "Flush",
	CmdBeginRenderPass:  "BeginRenderPass",
	CmdEndRenderPass:    "EndRenderPass",
	CmdBeginComputePass: "BeginComputePass",
	CmdEndComputePass:   "EndComputePass",
	CmdSetPipeline:      "SetPipeline",
	CmdSetArguments:     "SetArguments",
	CmdSetVertexBuffer:  "SetVertexBuffer",
	CmdSetIndexBuffer:   "SetIndexBuffer",
	CmdDraw:             "Draw",
	CmdDrawIndexed:      "DrawIndexed",
	CmdDispatch:         "Dispatch",
	CmdWriteBuffer:      "WriteBuffer",
	CmdWriteTexture:     "WriteTexture",
	CmdCopyBuffer:       "CopyBuffer",
	CmdBlit:             "Blit",
	CmdResolved:         "Resolved",
	CmdPassBegin:        "PassBegin",
	CmdPassEnd:          "PassEnd",
}

// String returns the string representation of a CommandType.
func (c CommandType) String() string {
	if int(c) < len(commandTypeNames) {
		return commandTypeNames[c]
	}
	return "Unknown"
}

// Command is the interface implemented by all command types.
// Commands reference objects by Ref so that recordings can be serialized.
type Command interface {
	// Type returns the CommandType for this command.
	Type() CommandType
}

// Ref identifies a recorded object.
type Ref struct {
	ID    uint32 `msgpack:"id"`
	Label string `msgpack:"label"`
}

// --------------------------------------------------------------------------
// Object Commands
// --------------------------------------------------------------------------

// CreateBufferCommand records the creation of a buffer.
type CreateBufferCommand struct {
	Buffer Ref                  `msgpack:"buffer"`
	Desc   framegraph.BufferDesc `msgpack:"desc"`
}

// Type implements Command.
func (CreateBufferCommand) Type() CommandType { return CmdCreateBuffer }

// CreateTextureCommand records the creation of a texture.
type CreateTextureCommand struct {
	Texture Ref                   `msgpack:"texture"`
	Desc    framegraph.TextureDesc `msgpack:"desc"`
}

// Type implements Command.
func (CreateTextureCommand) Type() CommandType { return CmdCreateTexture }

// ReleaseCommand records the release of a pooled object.
type ReleaseCommand struct {
	Resource Ref `msgpack:"resource"`
}

// Type implements Command.
func (ReleaseCommand) Type() CommandType { return CmdRelease }

// SetDebugNameCommand records a debug name assignment.
type SetDebugNameCommand struct {
	Resource Ref    `msgpack:"resource"`
	Name     string `msgpack:"name"`
}

// Type implements Command.
func (SetDebugNameCommand) Type() CommandType { return CmdSetDebugName }

// CreateViewCommand records the creation of a view.
type CreateViewCommand struct {
	View     Ref                 `msgpack:"view"`
	Resource Ref                 `msgpack:"resource"`
	Desc     framegraph.ViewDesc `msgpack:"desc"`
}

// Type implements Command.
func (CreateViewCommand) Type() CommandType { return CmdCreateView }

// DestroyViewCommand records the destruction of a view.
type DestroyViewCommand struct {
	View Ref `msgpack:"view"`
}

// Type implements Command.
func (DestroyViewCommand) Type() CommandType { return CmdDestroyView }

// --------------------------------------------------------------------------
// Synchronization Commands
// --------------------------------------------------------------------------

// BarrierRecord is one transition of a BarrierCommand.
type BarrierRecord struct {
	Resource Ref                         `msgpack:"resource"`
	Range    framegraph.SubresourceRange `msgpack:"range"`
	Old      framegraph.ResourceState    `msgpack:"old"`
	New      framegraph.ResourceState    `msgpack:"new"`
	Discard  bool                        `msgpack:"discard"`
}

// BarrierCommand records one batch of transitions.
type BarrierCommand struct {
	Barriers []BarrierRecord `msgpack:"barriers"`
}

// Type implements Command.
func (BarrierCommand) Type() CommandType { return CmdBarrier }

// Find returns the transition of the resource with the given label.
func (c BarrierCommand) Find(label string) (BarrierRecord, bool) {
	for _, b := range c.Barriers {
		if b.Resource.Label == label {
			return b, true
		}
	}
	return BarrierRecord{}, false
}

// FlushCommand records a flush of outstanding work.
type FlushCommand struct{}

// Type implements Command.
func (FlushCommand) Type() CommandType { return CmdFlush }

// --------------------------------------------------------------------------
// Pass Scope Commands
// --------------------------------------------------------------------------

// ColourRecord is a colour attachment of a render pass. Unbound slots have
// a zero View ID.
type ColourRecord struct {
	View    Ref              `msgpack:"view"`
	Texture Ref              `msgpack:"texture"`
	Load    gputypes.LoadOp  `msgpack:"load"`
	Store   gputypes.StoreOp `msgpack:"store"`
	Clear   gputypes.Color   `msgpack:"clear"`
}

// DepthStencilRecord is the depth/stencil attachment of a render pass.
type DepthStencilRecord struct {
	View         Ref                      `msgpack:"view"`
	Texture      Ref                      `msgpack:"texture"`
	State        framegraph.ResourceState `msgpack:"state"`
	DepthLoad    gputypes.LoadOp          `msgpack:"depth_load"`
	DepthStore   gputypes.StoreOp         `msgpack:"depth_store"`
	DepthClear   float32                  `msgpack:"depth_clear"`
	StencilLoad  gputypes.LoadOp          `msgpack:"stencil_load"`
	StencilStore gputypes.StoreOp         `msgpack:"stencil_store"`
	StencilClear uint32                   `msgpack:"stencil_clear"`
}

// BeginRenderPassCommand records the opening of a render pass.
type BeginRenderPassCommand struct {
	Name         string              `msgpack:"name"`
	Colour       []ColourRecord      `msgpack:"colour"`
	DepthStencil *DepthStencilRecord `msgpack:"depth_stencil"`
}

// Type implements Command.
func (BeginRenderPassCommand) Type() CommandType { return CmdBeginRenderPass }

// EndRenderPassCommand records the closing of a render pass.
type EndRenderPassCommand struct {
	Name string `msgpack:"name"`
}

// Type implements Command.
func (EndRenderPassCommand) Type() CommandType { return CmdEndRenderPass }

// BeginComputePassCommand records the opening of a compute pass.
type BeginComputePassCommand struct {
	Name string `msgpack:"name"`
}

// Type implements Command.
func (BeginComputePassCommand) Type() CommandType { return CmdBeginComputePass }

// EndComputePassCommand records the closing of a compute pass.
type EndComputePassCommand struct {
	Name string `msgpack:"name"`
}

// Type implements Command.
func (EndComputePassCommand) Type() CommandType { return CmdEndComputePass }

// --------------------------------------------------------------------------
// Recording Commands
// --------------------------------------------------------------------------

// SetPipelineCommand records a pipeline bind.
type SetPipelineCommand struct {
	Pipeline string `msgpack:"pipeline"`
}

// Type implements Command.
func (SetPipelineCommand) Type() CommandType { return CmdSetPipeline }

// SetArgumentsCommand records an argument set bind.
type SetArgumentsCommand struct {
	Index  uint32 `msgpack:"index"`
	Set    string `msgpack:"set"`
	Layout uint64 `msgpack:"layout"`
}

// Type implements Command.
func (SetArgumentsCommand) Type() CommandType { return CmdSetArguments }

// SetVertexBufferCommand records a vertex buffer bind.
type SetVertexBufferCommand struct {
	Slot   uint32 `msgpack:"slot"`
	Buffer Ref    `msgpack:"buffer"`
	Offset uint64 `msgpack:"offset"`
}

// Type implements Command.
func (SetVertexBufferCommand) Type() CommandType { return CmdSetVertexBuffer }

// SetIndexBufferCommand records an index buffer bind.
type SetIndexBufferCommand struct {
	Buffer Ref                  `msgpack:"buffer"`
	Format gputypes.IndexFormat `msgpack:"format"`
	Offset uint64               `msgpack:"offset"`
}

// Type implements Command.
func (SetIndexBufferCommand) Type() CommandType { return CmdSetIndexBuffer }

// DrawCommand records a non-indexed draw.
type DrawCommand struct {
	VertexCount   uint32 `msgpack:"vertex_count"`
	InstanceCount uint32 `msgpack:"instance_count"`
	FirstVertex   uint32 `msgpack:"first_vertex"`
	FirstInstance uint32 `msgpack:"first_instance"`
}

// Type implements Command.
func (DrawCommand) Type() CommandType { return CmdDraw }

// DrawIndexedCommand records an indexed draw.
type DrawIndexedCommand struct {
	IndexCount    uint32 `msgpack:"index_count"`
	InstanceCount uint32 `msgpack:"instance_count"`
	FirstIndex    uint32 `msgpack:"first_index"`
	BaseVertex    int32  `msgpack:"base_vertex"`
	FirstInstance uint32 `msgpack:"first_instance"`
}

// Type implements Command.
func (DrawIndexedCommand) Type() CommandType { return CmdDrawIndexed }

// DispatchCommand records a compute dispatch.
type DispatchCommand struct {
	X uint32 `msgpack:"x"`
	Y uint32 `msgpack:"y"`
	Z uint32 `msgpack:"z"`
}

// Type implements Command.
func (DispatchCommand) Type() CommandType { return CmdDispatch }

// --------------------------------------------------------------------------
// Transfer Commands
// --------------------------------------------------------------------------

// WriteBufferCommand records an upload into a buffer. Only the size of the
// data is kept.
type WriteBufferCommand struct {
	Buffer Ref    `msgpack:"buffer"`
	Offset uint64 `msgpack:"offset"`
	Size   int    `msgpack:"size"`
}

// Type implements Command.
func (WriteBufferCommand) Type() CommandType { return CmdWriteBuffer }

// WriteTextureCommand records an upload into a texture subresource.
type WriteTextureCommand struct {
	Texture Ref    `msgpack:"texture"`
	Mip     uint32 `msgpack:"mip"`
	Layer   uint32 `msgpack:"layer"`
	Size    int    `msgpack:"size"`
}

// Type implements Command.
func (WriteTextureCommand) Type() CommandType { return CmdWriteTexture }

// CopyBufferCommand records a buffer to buffer copy.
type CopyBufferCommand struct {
	Dst       Ref    `msgpack:"dst"`
	DstOffset uint64 `msgpack:"dst_offset"`
	Src       Ref    `msgpack:"src"`
	SrcOffset uint64 `msgpack:"src_offset"`
	Size      uint64 `msgpack:"size"`
}

// Type implements Command.
func (CopyBufferCommand) Type() CommandType { return CmdCopyBuffer }

// BlitCommand records a texture blit.
type BlitCommand struct {
	Dst Ref `msgpack:"dst"`
	Src Ref `msgpack:"src"`
}

// Type implements Command.
func (BlitCommand) Type() CommandType { return CmdBlit }

// --------------------------------------------------------------------------
// Observer Events
// --------------------------------------------------------------------------

// ResolvedCommand records the outcome of dependency resolution.
type ResolvedCommand struct {
	Required  []string `msgpack:"required"`
	Culled    []string `msgpack:"culled"`
	Resources int      `msgpack:"resources"`
}

// Type implements Command.
func (ResolvedCommand) Type() CommandType { return CmdResolved }

// PassBeginCommand records that a pass function is about to run.
type PassBeginCommand struct {
	Name     string              `msgpack:"name"`
	PassType framegraph.PassType `msgpack:"pass_type"`
}

// Type implements Command.
func (PassBeginCommand) Type() CommandType { return CmdPassBegin }

// PassEndCommand records that a pass function returned.
type PassEndCommand struct {
	Name     string              `msgpack:"name"`
	PassType framegraph.PassType `msgpack:"pass_type"`
}

// Type implements Command.
func (PassEndCommand) Type() CommandType { return CmdPassEnd }
