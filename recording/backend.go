package recording

import (
	"fmt"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/gputypes"
)

// Buffer is a recorded buffer object.
type Buffer struct {
	ref  Ref
	desc framegraph.BufferDesc
}

// Label implements framegraph.GPUResource.
func (b *Buffer) Label() string { return b.ref.Label }

// Desc implements framegraph.GPUBuffer.
func (b *Buffer) Desc() framegraph.BufferDesc { return b.desc }

// Ref returns the recorded reference of the buffer.
func (b *Buffer) Ref() Ref { return b.ref }

// Texture is a recorded texture object.
type Texture struct {
	ref  Ref
	desc framegraph.TextureDesc
}

// Label implements framegraph.GPUResource.
func (t *Texture) Label() string { return t.ref.Label }

// Desc implements framegraph.GPUTexture.
func (t *Texture) Desc() framegraph.TextureDesc { return t.desc }

// Ref returns the recorded reference of the texture.
func (t *Texture) Ref() Ref { return t.ref }

// View is a recorded view object.
type View struct {
	ref  Ref
	res  framegraph.GPUResource
	desc framegraph.ViewDesc
}

// Resource implements framegraph.GPUView.
func (v *View) Resource() framegraph.GPUResource { return v.res }

// ViewDesc implements framegraph.GPUView.
func (v *View) ViewDesc() framegraph.ViewDesc { return v.desc }

// Ref returns the recorded reference of the view.
func (v *View) Ref() Ref { return v.ref }

// Pipeline is a named pipeline with fixed argument layouts.
type Pipeline struct {
	Name    string
	Layouts []uint64
}

// NewPipeline creates a pipeline expecting the given argument layouts.
func NewPipeline(name string, layouts ...uint64) *Pipeline {
	return &Pipeline{Name: name, Layouts: layouts}
}

// ArgumentLayouts implements framegraph.Pipeline.
func (p *Pipeline) ArgumentLayouts() []uint64 { return p.Layouts }

// ArgumentSet is a named argument set created against a layout.
type ArgumentSet struct {
	Name   string
	Layout uint64
}

// NewArgumentSet creates an argument set for layout.
func NewArgumentSet(name string, layout uint64) *ArgumentSet {
	return &ArgumentSet{Name: name, Layout: layout}
}

// LayoutHash implements framegraph.ArgumentSet.
func (a *ArgumentSet) LayoutHash() uint64 { return a.Layout }

// Backend implements framegraph.Backend by appending typed commands to a
// recording. It also implements framegraph.TransientPool (a fresh object
// per request), pool.Allocator and framegraph.Observer, so one Backend can
// capture everything a graph does.
//
// Backend is not safe for concurrent use.
type Backend struct {
	commands []Command
	nextID   uint32

	// failures maps command types to the error the backend returns instead
	// of recording them.
	failures map[CommandType]error
}

// New creates an empty recording backend.
func New() *Backend {
	return &Backend{failures: make(map[CommandType]error)}
}

// FailOn makes calls that would record a command of type t return err.
// A nil err clears the failure.
func (b *Backend) FailOn(t CommandType, err error) {
	if err == nil {
		delete(b.failures, t)
		return
	}
	b.failures[t] = err
}

// Recording returns a snapshot of the recorded commands.
func (b *Backend) Recording() *Recording {
	cmds := make([]Command, len(b.commands))
	copy(cmds, b.commands)
	return &Recording{commands: cmds}
}

// Close implements backend.Device. Recordings stay readable.
func (b *Backend) Close() error { return nil }

// Reset discards the recorded commands. Object IDs keep increasing.
func (b *Backend) Reset() {
	b.commands = b.commands[:0]
}

func (b *Backend) record(c Command) error {
	if err := b.failures[c.Type()]; err != nil {
		return fmt.Errorf("recording: %s: %w", c.Type(), err)
	}
	b.commands = append(b.commands, c)
	return nil
}

func (b *Backend) newRef(label string) Ref {
	b.nextID++
	return Ref{ID: b.nextID, Label: label}
}

// NewBuffer creates a recorded buffer.
func (b *Backend) NewBuffer(desc framegraph.BufferDesc) (framegraph.GPUBuffer, error) {
	buf := &Buffer{ref: b.newRef(desc.Name), desc: desc}
	if err := b.record(CreateBufferCommand{Buffer: buf.ref, Desc: desc}); err != nil {
		return nil, err
	}
	return buf, nil
}

// NewTexture creates a recorded texture.
func (b *Backend) NewTexture(desc framegraph.TextureDesc) (framegraph.GPUTexture, error) {
	tex := &Texture{ref: b.newRef(desc.Name), desc: desc}
	if err := b.record(CreateTextureCommand{Texture: tex.ref, Desc: desc}); err != nil {
		return nil, err
	}
	return tex, nil
}

// Release records the release of a buffer or texture.
func (b *Backend) Release(res framegraph.GPUResource) {
	_ = b.record(ReleaseCommand{Resource: refOf(res)})
}

// GetTransientBuffer implements framegraph.TransientPool without recycling.
func (b *Backend) GetTransientBuffer(desc framegraph.BufferDesc) (framegraph.GPUBuffer, error) {
	return b.NewBuffer(desc)
}

// GetTransientTexture implements framegraph.TransientPool without recycling.
func (b *Backend) GetTransientTexture(desc framegraph.TextureDesc) (framegraph.GPUTexture, error) {
	return b.NewTexture(desc)
}

// ResourceBarrier implements framegraph.Backend.
func (b *Backend) ResourceBarrier(barriers []framegraph.Barrier) error {
	recs := make([]BarrierRecord, len(barriers))
	for i, br := range barriers {
		recs[i] = BarrierRecord{
			Resource: refOf(br.Resource),
			Range:    br.Range,
			Old:      br.OldState,
			New:      br.NewState,
			Discard:  br.Discard,
		}
	}
	return b.record(BarrierCommand{Barriers: recs})
}

// BeginRenderPass implements framegraph.Backend.
func (b *Backend) BeginRenderPass(desc *framegraph.RenderPassDesc) (framegraph.RenderCommandList, error) {
	cmd := BeginRenderPassCommand{Name: desc.Name}
	for _, a := range desc.Colour {
		rec := ColourRecord{Load: a.LoadOp, Store: a.StoreOp, Clear: a.ClearValue}
		if a.View != nil {
			rec.View = refOf(a.View)
			rec.Texture = refOf(a.View.Resource())
		}
		cmd.Colour = append(cmd.Colour, rec)
	}
	if ds := desc.DepthStencil; ds != nil {
		cmd.DepthStencil = &DepthStencilRecord{
			View:         refOf(ds.View),
			Texture:      refOf(ds.View.Resource()),
			State:        ds.State,
			DepthLoad:    ds.DepthLoadOp,
			DepthStore:   ds.DepthStoreOp,
			DepthClear:   ds.DepthClearValue,
			StencilLoad:  ds.StencilLoadOp,
			StencilStore: ds.StencilStoreOp,
			StencilClear: ds.StencilClearValue,
		}
	}
	if err := b.record(cmd); err != nil {
		return nil, err
	}
	return &renderList{b: b, name: desc.Name}, nil
}

// EndRenderPass implements framegraph.Backend.
func (b *Backend) EndRenderPass(cmd framegraph.RenderCommandList) error {
	l, ok := cmd.(*renderList)
	if !ok || l.b != b {
		return fmt.Errorf("recording: EndRenderPass: foreign command list %T", cmd)
	}
	return b.record(EndRenderPassCommand{Name: l.name})
}

// BeginComputePass implements framegraph.Backend.
func (b *Backend) BeginComputePass(name string) (framegraph.ComputeCommandList, error) {
	if err := b.record(BeginComputePassCommand{Name: name}); err != nil {
		return nil, err
	}
	return &computeList{b: b, name: name}, nil
}

// EndComputePass implements framegraph.Backend.
func (b *Backend) EndComputePass(cmd framegraph.ComputeCommandList) error {
	l, ok := cmd.(*computeList)
	if !ok || l.b != b {
		return fmt.Errorf("recording: EndComputePass: foreign command list %T", cmd)
	}
	return b.record(EndComputePassCommand{Name: l.name})
}

// TransferContext implements framegraph.Backend.
func (b *Backend) TransferContext() framegraph.TransferContext {
	return transfer{b: b}
}

// CreateView implements framegraph.Backend.
func (b *Backend) CreateView(res framegraph.GPUResource, desc framegraph.ViewDesc) (framegraph.GPUView, error) {
	v := &View{ref: b.newRef(res.Label()), res: res, desc: desc}
	if err := b.record(CreateViewCommand{View: v.ref, Resource: refOf(res), Desc: desc}); err != nil {
		return nil, err
	}
	return v, nil
}

// DestroyView implements framegraph.Backend.
func (b *Backend) DestroyView(v framegraph.GPUView) {
	_ = b.record(DestroyViewCommand{View: refOf(v)})
}

// BlitTexture implements framegraph.Backend.
func (b *Backend) BlitTexture(dst, src framegraph.GPUTexture) error {
	return b.record(BlitCommand{Dst: refOf(dst), Src: refOf(src)})
}

// SetDebugName implements framegraph.Backend.
func (b *Backend) SetDebugName(res framegraph.GPUResource, name string) {
	_ = b.record(SetDebugNameCommand{Resource: refOf(res), Name: name})
}

// Flush implements framegraph.Backend.
func (b *Backend) Flush() error {
	return b.record(FlushCommand{})
}

// GraphResolved implements framegraph.Observer.
func (b *Backend) GraphResolved(s framegraph.ResolveSummary) {
	_ = b.record(ResolvedCommand{Required: s.Required, Culled: s.Culled, Resources: s.Resources})
}

// PassBegin implements framegraph.Observer.
func (b *Backend) PassBegin(name string, typ framegraph.PassType) {
	_ = b.record(PassBeginCommand{Name: name, PassType: typ})
}

// PassEnd implements framegraph.Observer.
func (b *Backend) PassEnd(name string, typ framegraph.PassType) {
	_ = b.record(PassEndCommand{Name: name, PassType: typ})
}

// refOf returns the reference of an object created by a recording backend.
// Foreign objects get a zero ID and their label.
func refOf(obj any) Ref {
	switch o := obj.(type) {
	case *Buffer:
		return o.ref
	case *Texture:
		return o.ref
	case *View:
		return o.ref
	case framegraph.GPUResource:
		return Ref{Label: o.Label()}
	case nil:
		return Ref{}
	default:
		return Ref{Label: fmt.Sprintf("%T", obj)}
	}
}

type renderList struct {
	b    *Backend
	name string
}

func (l *renderList) SetPipeline(p framegraph.Pipeline) {
	_ = l.b.record(SetPipelineCommand{Pipeline: pipelineName(p)})
}

func (l *renderList) SetArguments(index uint32, args framegraph.ArgumentSet) {
	_ = l.b.record(SetArgumentsCommand{Index: index, Set: argumentSetName(args), Layout: args.LayoutHash()})
}

func (l *renderList) SetVertexBuffer(slot uint32, buf framegraph.GPUBuffer, offset uint64) {
	_ = l.b.record(SetVertexBufferCommand{Slot: slot, Buffer: refOf(buf), Offset: offset})
}

func (l *renderList) SetIndexBuffer(buf framegraph.GPUBuffer, format gputypes.IndexFormat, offset uint64) {
	_ = l.b.record(SetIndexBufferCommand{Buffer: refOf(buf), Format: format, Offset: offset})
}

func (l *renderList) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	_ = l.b.record(DrawCommand{
		VertexCount:   vertexCount,
		InstanceCount: instanceCount,
		FirstVertex:   firstVertex,
		FirstInstance: firstInstance,
	})
}

func (l *renderList) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	_ = l.b.record(DrawIndexedCommand{
		IndexCount:    indexCount,
		InstanceCount: instanceCount,
		FirstIndex:    firstIndex,
		BaseVertex:    baseVertex,
		FirstInstance: firstInstance,
	})
}

type computeList struct {
	b    *Backend
	name string
}

func (l *computeList) SetPipeline(p framegraph.Pipeline) {
	_ = l.b.record(SetPipelineCommand{Pipeline: pipelineName(p)})
}

func (l *computeList) SetArguments(index uint32, args framegraph.ArgumentSet) {
	_ = l.b.record(SetArgumentsCommand{Index: index, Set: argumentSetName(args), Layout: args.LayoutHash()})
}

func (l *computeList) Dispatch(x, y, z uint32) {
	_ = l.b.record(DispatchCommand{X: x, Y: y, Z: z})
}

type transfer struct {
	b *Backend
}

func (t transfer) WriteBuffer(buf framegraph.GPUBuffer, offset uint64, data []byte) {
	_ = t.b.record(WriteBufferCommand{Buffer: refOf(buf), Offset: offset, Size: len(data)})
}

func (t transfer) WriteTexture(tex framegraph.GPUTexture, mip, layer uint32, data []byte) {
	_ = t.b.record(WriteTextureCommand{Texture: refOf(tex), Mip: mip, Layer: layer, Size: len(data)})
}

func (t transfer) CopyBuffer(dst framegraph.GPUBuffer, dstOffset uint64, src framegraph.GPUBuffer, srcOffset, size uint64) {
	_ = t.b.record(CopyBufferCommand{
		Dst:       refOf(dst),
		DstOffset: dstOffset,
		Src:       refOf(src),
		SrcOffset: srcOffset,
		Size:      size,
	})
}

func pipelineName(p framegraph.Pipeline) string {
	if rp, ok := p.(*Pipeline); ok {
		return rp.Name
	}
	return fmt.Sprintf("%T", p)
}

func argumentSetName(a framegraph.ArgumentSet) string {
	if ra, ok := a.(*ArgumentSet); ok {
		return ra.Name
	}
	return fmt.Sprintf("%T", a)
}
