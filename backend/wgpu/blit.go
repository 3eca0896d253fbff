package wgpu

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/internal/cache"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

//go:embed shaders/blit.wgsl
var blitShaderSource string

// CompileWGSL compiles WGSL source to SPIR-V words.
func CompileWGSL(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("wgpu: compile shader: %w", err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("wgpu: compile shader: SPIR-V size %d is not a multiple of 4", len(spirvBytes))
	}

	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

// blitSource is the sampled view and bind group of a blit source.
type blitSource struct {
	view  hal.TextureView
	group hal.BindGroup
}

// blitter draws a sampled fullscreen triangle for blits that convert
// format or scale. GPU objects are created on first use.
type blitter struct {
	d *Device

	shader     hal.ShaderModule
	layout     hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	sampler    hal.Sampler
	pipelines  map[gputypes.TextureFormat]hal.RenderPipeline

	sources *cache.Cache[*Texture, blitSource]
}

func newBlitter(d *Device, cacheSize int) *blitter {
	b := &blitter{
		d:         d,
		pipelines: make(map[gputypes.TextureFormat]hal.RenderPipeline),
	}
	b.sources = cache.NewWithEvict(cacheSize, func(_ *Texture, s blitSource) {
		d.retire(func() {
			d.device.DestroyBindGroup(s.group)
			d.device.DestroyTextureView(s.view)
		})
	})
	return b
}

// BlitTexture implements framegraph.Backend. Textures of equal format and
// size are copied; others are drawn with a linear sampler, which needs a
// sampleable source and a renderable destination.
func (d *Device) BlitTexture(dst, src framegraph.GPUTexture) error {
	s, err := asTexture("BlitTexture", src)
	if err != nil {
		return err
	}
	t, err := asTexture("BlitTexture", dst)
	if err != nil {
		return err
	}
	encoder, err := d.ensureEncoder()
	if err != nil {
		return err
	}

	if s.desc.Format == t.desc.Format && s.desc.Width == t.desc.Width && s.desc.Height == t.desc.Height {
		encoder.CopyTextureToTexture(s.raw, t.raw, []hal.TextureCopy{{
			SrcBase: hal.ImageCopyTexture{Texture: s.raw},
			DstBase: hal.ImageCopyTexture{Texture: t.raw},
			Size:    hal.Extent3D{Width: s.desc.Width, Height: s.desc.Height, DepthOrArrayLayers: 1},
		}})
		return nil
	}
	return d.blit.draw(encoder, t, s)
}

func (b *blitter) draw(encoder hal.CommandEncoder, dst, src *Texture) error {
	if src.usage()&gputypes.TextureUsageTextureBinding == 0 {
		return fmt.Errorf("wgpu: blit source %q cannot be sampled", src.label)
	}
	if dst.desc.Usage&gputypes.TextureUsageRenderAttachment == 0 {
		return fmt.Errorf("wgpu: blit destination %q is not renderable", dst.label)
	}
	pipeline, err := b.pipeline(dst.desc.Format)
	if err != nil {
		return err
	}
	source, err := b.sources.GetOrCreate(src, func() (blitSource, error) {
		return b.createSource(src)
	})
	if err != nil {
		return err
	}

	d := b.d
	target, err := d.device.CreateTextureView(dst.raw, &hal.TextureViewDescriptor{
		Label:           dst.label + " (blit)",
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	})
	if err != nil {
		return fmt.Errorf("wgpu: blit target view: %w", err)
	}
	d.retire(func() { d.device.DestroyTextureView(target) })

	encoder.TransitionTextures([]hal.TextureBarrier{
		{Texture: src.raw, Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageTextureBinding,
		}},
		{Texture: dst.raw, Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopyDst,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		}},
	})

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "framegraph_blit",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       target,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{},
		}},
	})
	rp.SetPipeline(pipeline)
	rp.SetBindGroup(0, source.group, nil)
	rp.Draw(3, 1, 0, 0)
	rp.End()

	// Leave both textures in the states the graph expects.
	encoder.TransitionTextures([]hal.TextureBarrier{
		{Texture: src.raw, Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageTextureBinding,
			NewUsage: gputypes.TextureUsageCopySrc,
		}},
		{Texture: dst.raw, Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopyDst,
		}},
	})
	return nil
}

// init creates the objects shared by all blit pipelines.
func (b *blitter) init() error {
	if b.pipeLayout != nil {
		return nil
	}
	dev := b.d.device

	spirv, err := CompileWGSL(blitShaderSource)
	if err != nil {
		return err
	}
	shader, err := dev.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "framegraph_blit",
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create blit shader: %w", err)
	}

	layout, err := dev.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "framegraph_blit_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		dev.DestroyShaderModule(shader)
		return fmt.Errorf("wgpu: create blit layout: %w", err)
	}

	sampler, err := dev.CreateSampler(&hal.SamplerDescriptor{
		Label:        "framegraph_blit_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
	})
	if err != nil {
		dev.DestroyBindGroupLayout(layout)
		dev.DestroyShaderModule(shader)
		return fmt.Errorf("wgpu: create blit sampler: %w", err)
	}

	pipeLayout, err := dev.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "framegraph_blit_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{layout},
	})
	if err != nil {
		dev.DestroySampler(sampler)
		dev.DestroyBindGroupLayout(layout)
		dev.DestroyShaderModule(shader)
		return fmt.Errorf("wgpu: create blit pipeline layout: %w", err)
	}

	b.shader, b.layout, b.sampler, b.pipeLayout = shader, layout, sampler, pipeLayout
	return nil
}

// pipeline returns the blit pipeline rendering to format.
func (b *blitter) pipeline(format gputypes.TextureFormat) (hal.RenderPipeline, error) {
	if p, ok := b.pipelines[format]; ok {
		return p, nil
	}
	if err := b.init(); err != nil {
		return nil, err
	}
	p, err := b.d.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "framegraph_blit_pipeline",
		Layout: b.pipeLayout,
		Vertex: hal.VertexState{
			Module:     b.shader,
			EntryPoint: "vs_main",
		},
		Fragment: &hal.FragmentState{
			Module:     b.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{{
				Format:    format,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create blit pipeline for %v: %w", format, err)
	}
	b.pipelines[format] = p
	return p, nil
}

func (b *blitter) createSource(src *Texture) (blitSource, error) {
	dev := b.d.device
	view, err := dev.CreateTextureView(src.raw, &hal.TextureViewDescriptor{
		Label:           src.label + " (blit source)",
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	})
	if err != nil {
		return blitSource{}, fmt.Errorf("wgpu: blit source view: %w", err)
	}
	group, err := dev.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "framegraph_blit_bind",
		Layout: b.layout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.TextureViewBinding{TextureView: view.NativeHandle()}},
			{Binding: 1, Resource: gputypes.SamplerBinding{Sampler: b.sampler.NativeHandle()}},
		},
	})
	if err != nil {
		dev.DestroyTextureView(view)
		return blitSource{}, fmt.Errorf("wgpu: blit bind group: %w", err)
	}
	return blitSource{view: view, group: group}, nil
}

// forget drops the cached source objects of a released texture.
func (b *blitter) forget(t *Texture) {
	b.sources.Delete(t)
}

// destroy releases every blit object. Pending retirements run first.
func (b *blitter) destroy() {
	b.sources.Clear()
	dev := b.d.device
	for _, fn := range b.d.retired {
		fn()
	}
	b.d.retired = b.d.retired[:0]

	for _, p := range b.pipelines {
		dev.DestroyRenderPipeline(p)
	}
	clear(b.pipelines)
	if b.pipeLayout == nil {
		return
	}
	dev.DestroyPipelineLayout(b.pipeLayout)
	dev.DestroySampler(b.sampler)
	dev.DestroyBindGroupLayout(b.layout)
	dev.DestroyShaderModule(b.shader)
	b.pipeLayout = nil
}
