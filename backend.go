package framegraph

import (
	"github.com/gogpu/gputypes"
)

// GPUResource is a backend resource object: a GPUBuffer or a GPUTexture.
type GPUResource interface {
	// Label returns the debug label of the object.
	Label() string
}

// GPUBuffer is a backend buffer object.
type GPUBuffer interface {
	GPUResource

	// Desc returns the live descriptor of the buffer, including its usage.
	Desc() BufferDesc
}

// GPUTexture is a backend texture object.
type GPUTexture interface {
	GPUResource

	// Desc returns the live descriptor of the texture, including its usage.
	Desc() TextureDesc
}

// GPUView is a backend view object. Views are created for a single pass and
// destroyed as soon as the pass function returns.
type GPUView interface {
	// Resource returns the object the view was created for.
	Resource() GPUResource

	// ViewDesc returns the descriptor the view was created with.
	ViewDesc() ViewDesc
}

// Pipeline is a backend render or compute pipeline.
type Pipeline interface {
	// ArgumentLayouts returns the content hash of the argument set layout
	// expected at each argument index.
	ArgumentLayouts() []uint64
}

// ArgumentSet is a backend set of shader arguments (bind group).
type ArgumentSet interface {
	// LayoutHash returns the content hash of the layout the set was
	// created against.
	LayoutHash() uint64
}

// Barrier is a single resource state transition.
type Barrier struct {
	Resource GPUResource
	Range    SubresourceRange
	OldState ResourceState
	NewState ResourceState

	// Discard allows the backend to drop the previous contents.
	Discard bool
}

// ColourAttachment is a colour target of a render pass.
type ColourAttachment struct {
	View       GPUView
	LoadOp     gputypes.LoadOp
	StoreOp    gputypes.StoreOp
	ClearValue gputypes.Color
}

// DepthStencilAttachment is the depth/stencil target of a render pass.
type DepthStencilAttachment struct {
	View  GPUView
	State ResourceState

	DepthLoadOp     gputypes.LoadOp
	DepthStoreOp    gputypes.StoreOp
	DepthClearValue float32

	StencilLoadOp     gputypes.LoadOp
	StencilStoreOp    gputypes.StoreOp
	StencilClearValue uint32
}

// RenderPassDesc describes the attachments of a render pass.
type RenderPassDesc struct {
	Name string

	// Colour holds the bound colour attachments in index order. Unbound
	// slots have a nil View.
	Colour []ColourAttachment

	// DepthStencil is nil when the pass has no depth/stencil attachment.
	DepthStencil *DepthStencilAttachment
}

// RenderCommandList records commands inside a render pass.
type RenderCommandList interface {
	SetPipeline(p Pipeline)
	SetArguments(index uint32, args ArgumentSet)
	SetVertexBuffer(slot uint32, buf GPUBuffer, offset uint64)
	SetIndexBuffer(buf GPUBuffer, format gputypes.IndexFormat, offset uint64)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32)
}

// ComputeCommandList records commands inside a compute pass.
type ComputeCommandList interface {
	SetPipeline(p Pipeline)
	SetArguments(index uint32, args ArgumentSet)
	Dispatch(x, y, z uint32)
}

// TransferContext performs data transfers outside any pass scope.
type TransferContext interface {
	WriteBuffer(buf GPUBuffer, offset uint64, data []byte)
	WriteTexture(tex GPUTexture, mip, layer uint32, data []byte)
	CopyBuffer(dst GPUBuffer, dstOffset uint64, src GPUBuffer, srcOffset, size uint64)
}

// Backend is the GPU layer the graph records into.
//
// Barrier batches, pass scopes and views are issued in the order the graph
// executes them. Work may be buffered by the backend until EndRenderPass,
// EndComputePass or Flush.
type Backend interface {
	// ResourceBarrier records a batch of state transitions. The slice is
	// reused by the graph after the call returns.
	ResourceBarrier(barriers []Barrier) error

	// BeginRenderPass opens a render pass scope.
	BeginRenderPass(desc *RenderPassDesc) (RenderCommandList, error)

	// EndRenderPass closes a render pass scope and submits it.
	EndRenderPass(cmd RenderCommandList) error

	// BeginComputePass opens a compute pass scope.
	BeginComputePass(name string) (ComputeCommandList, error)

	// EndComputePass closes a compute pass scope and submits it.
	EndComputePass(cmd ComputeCommandList) error

	// TransferContext returns the shared transfer-capable context.
	TransferContext() TransferContext

	// CreateView creates a view of res.
	CreateView(res GPUResource, desc ViewDesc) (GPUView, error)

	// DestroyView destroys a view created by CreateView.
	DestroyView(v GPUView)

	// BlitTexture copies src onto dst, converting format and scaling as
	// needed. src must be in StateTransferRead and dst in StateTransferWrite.
	BlitTexture(dst, src GPUTexture) error

	// SetDebugName tags a resource with a debug name.
	SetDebugName(res GPUResource, name string)

	// Flush submits any work recorded outside a pass scope.
	Flush() error
}

// TransientPool provides backend objects for transient resources. Objects
// may be recycled from previous frames when descriptors are equal.
type TransientPool interface {
	GetTransientBuffer(desc BufferDesc) (GPUBuffer, error)
	GetTransientTexture(desc TextureDesc) (GPUTexture, error)
}
