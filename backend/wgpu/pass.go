package wgpu

import (
	"fmt"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// renderList records into a hal render pass.
type renderList struct {
	name string
	pass hal.RenderPassEncoder
}

var _ framegraph.RenderCommandList = (*renderList)(nil)

func (l *renderList) SetPipeline(p framegraph.Pipeline) {
	rp, ok := p.(*RenderPipeline)
	if !ok {
		panic(fmt.Sprintf("wgpu: pass %q: %T is not a render pipeline", l.name, p))
	}
	l.pass.SetPipeline(rp.raw)
}

func (l *renderList) SetArguments(index uint32, args framegraph.ArgumentSet) {
	l.pass.SetBindGroup(index, asArgumentSet(l.name, args), nil)
}

func (l *renderList) SetVertexBuffer(slot uint32, buf framegraph.GPUBuffer, offset uint64) {
	l.pass.SetVertexBuffer(slot, asBuffer("SetVertexBuffer", buf), offset)
}

func (l *renderList) SetIndexBuffer(buf framegraph.GPUBuffer, format gputypes.IndexFormat, offset uint64) {
	l.pass.SetIndexBuffer(asBuffer("SetIndexBuffer", buf), format, offset)
}

func (l *renderList) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	l.pass.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

func (l *renderList) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	l.pass.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}

// computeList records into a hal compute pass.
type computeList struct {
	name string
	pass hal.ComputePassEncoder
}

var _ framegraph.ComputeCommandList = (*computeList)(nil)

func (l *computeList) SetPipeline(p framegraph.Pipeline) {
	cp, ok := p.(*ComputePipeline)
	if !ok {
		panic(fmt.Sprintf("wgpu: pass %q: %T is not a compute pipeline", l.name, p))
	}
	l.pass.SetPipeline(cp.raw)
}

func (l *computeList) SetArguments(index uint32, args framegraph.ArgumentSet) {
	l.pass.SetBindGroup(index, asArgumentSet(l.name, args), nil)
}

func (l *computeList) Dispatch(x, y, z uint32) {
	l.pass.Dispatch(x, y, z)
}

func asArgumentSet(pass string, args framegraph.ArgumentSet) hal.BindGroup {
	a, ok := args.(*ArgumentSet)
	if !ok || a.raw == nil {
		panic(fmt.Sprintf("wgpu: pass %q: argument set is released or foreign", pass))
	}
	return a.raw
}

// BeginRenderPass implements framegraph.Backend.
func (d *Device) BeginRenderPass(desc *framegraph.RenderPassDesc) (framegraph.RenderCommandList, error) {
	halDesc, err := renderPassDescriptor(desc)
	if err != nil {
		return nil, err
	}
	encoder, err := d.ensureEncoder()
	if err != nil {
		return nil, err
	}
	return &renderList{name: desc.Name, pass: encoder.BeginRenderPass(halDesc)}, nil
}

// EndRenderPass implements framegraph.Backend. It ends the pass and
// submits everything recorded so far.
func (d *Device) EndRenderPass(cmd framegraph.RenderCommandList) error {
	l, ok := cmd.(*renderList)
	if !ok {
		return fmt.Errorf("wgpu: EndRenderPass: foreign command list %T", cmd)
	}
	l.pass.End()
	return d.submit()
}

// BeginComputePass implements framegraph.Backend.
func (d *Device) BeginComputePass(name string) (framegraph.ComputeCommandList, error) {
	encoder, err := d.ensureEncoder()
	if err != nil {
		return nil, err
	}
	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: name})
	return &computeList{name: name, pass: pass}, nil
}

// EndComputePass implements framegraph.Backend. It ends the pass and
// submits everything recorded so far.
func (d *Device) EndComputePass(cmd framegraph.ComputeCommandList) error {
	l, ok := cmd.(*computeList)
	if !ok {
		return fmt.Errorf("wgpu: EndComputePass: foreign command list %T", cmd)
	}
	l.pass.End()
	return d.submit()
}

// renderPassDescriptor maps graph attachments to a hal descriptor. Unbound
// colour slots keep their index with a nil view.
func renderPassDescriptor(desc *framegraph.RenderPassDesc) (*hal.RenderPassDescriptor, error) {
	halDesc := &hal.RenderPassDescriptor{
		Label:            desc.Name,
		ColorAttachments: make([]hal.RenderPassColorAttachment, len(desc.Colour)),
	}
	for i, a := range desc.Colour {
		if a.View == nil {
			continue
		}
		v, err := attachmentView(desc.Name, a.View)
		if err != nil {
			return nil, err
		}
		halDesc.ColorAttachments[i] = hal.RenderPassColorAttachment{
			View:       v,
			LoadOp:     a.LoadOp,
			StoreOp:    a.StoreOp,
			ClearValue: a.ClearValue,
		}
	}
	if ds := desc.DepthStencil; ds != nil {
		v, err := attachmentView(desc.Name, ds.View)
		if err != nil {
			return nil, err
		}
		halDesc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:              v,
			DepthLoadOp:       ds.DepthLoadOp,
			DepthStoreOp:      ds.DepthStoreOp,
			DepthClearValue:   ds.DepthClearValue,
			StencilLoadOp:     ds.StencilLoadOp,
			StencilStoreOp:    ds.StencilStoreOp,
			StencilClearValue: ds.StencilClearValue,
		}
	}
	return halDesc, nil
}

func attachmentView(pass string, v framegraph.GPUView) (hal.TextureView, error) {
	view, ok := v.(*View)
	if !ok || view.raw == nil {
		return nil, fmt.Errorf("wgpu: pass %q: attachment is not a live texture view", pass)
	}
	return view.raw, nil
}
