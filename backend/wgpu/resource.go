package wgpu

import (
	"fmt"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Buffer is a hal buffer.
type Buffer struct {
	raw   hal.Buffer
	desc  framegraph.BufferDesc
	label string
}

// Label implements framegraph.GPUResource.
func (b *Buffer) Label() string { return b.label }

// Desc implements framegraph.GPUBuffer.
func (b *Buffer) Desc() framegraph.BufferDesc { return b.desc }

// Raw returns the hal buffer.
func (b *Buffer) Raw() hal.Buffer { return b.raw }

// Texture is a hal texture.
type Texture struct {
	raw   hal.Texture
	desc  framegraph.TextureDesc
	label string

	// halUsage is the usage the hal texture was created with.
	halUsage gputypes.TextureUsage

	// external textures are never destroyed by the device.
	external bool
}

// Label implements framegraph.GPUResource.
func (t *Texture) Label() string { return t.label }

// Desc implements framegraph.GPUTexture.
func (t *Texture) Desc() framegraph.TextureDesc { return t.desc }

// Raw returns the hal texture.
func (t *Texture) Raw() hal.Texture { return t.raw }

func (t *Texture) usage() gputypes.TextureUsage { return t.halUsage }

// View is a pass-scoped view. Buffer views carry a byte range and have no
// hal object.
type View struct {
	raw  hal.TextureView
	res  framegraph.GPUResource
	desc framegraph.ViewDesc

	offset, size uint64
}

// Resource implements framegraph.GPUView.
func (v *View) Resource() framegraph.GPUResource { return v.res }

// ViewDesc implements framegraph.GPUView.
func (v *View) ViewDesc() framegraph.ViewDesc { return v.desc }

// Raw returns the hal texture view, nil for buffer views.
func (v *View) Raw() hal.TextureView { return v.raw }

// Range returns the byte range of a buffer view.
func (v *View) Range() (offset, size uint64) { return v.offset, v.size }

// NewBuffer implements pool.Allocator.
func (d *Device) NewBuffer(desc framegraph.BufferDesc) (framegraph.GPUBuffer, error) {
	if d.closed {
		return nil, ErrClosed
	}
	raw, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Name,
		Size:  desc.Size,
		Usage: desc.Usage,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create buffer %q: %w", desc.Name, err)
	}
	return &Buffer{raw: raw, desc: desc, label: desc.Name}, nil
}

// NewTexture implements pool.Allocator. Textures that can be copied from
// can also be sampled, so they are valid blit sources.
func (d *Device) NewTexture(desc framegraph.TextureDesc) (framegraph.GPUTexture, error) {
	if d.closed {
		return nil, ErrClosed
	}
	usage := desc.Usage
	if usage&gputypes.TextureUsageCopySrc != 0 {
		usage |= gputypes.TextureUsageTextureBinding
	}
	raw, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         desc.Name,
		Size:          textureExtent(desc),
		MipLevelCount: max(desc.MipLevels, 1),
		SampleCount:   max(desc.SampleCount, 1),
		Dimension:     desc.Type.Dimension(),
		Format:        desc.Format,
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create texture %q: %w", desc.Name, err)
	}
	return &Texture{raw: raw, desc: desc, label: desc.Name, halUsage: usage}, nil
}

// WrapTexture wraps a texture owned by the caller, such as a swapchain
// image, for import into a graph. desc.Usage must describe the usages
// the texture was created with.
func (d *Device) WrapTexture(raw hal.Texture, desc framegraph.TextureDesc) *Texture {
	return &Texture{raw: raw, desc: desc, label: desc.Name, halUsage: desc.Usage, external: true}
}

// WrapBuffer wraps a buffer owned by the caller for import into a graph.
func (d *Device) WrapBuffer(raw hal.Buffer, desc framegraph.BufferDesc) *Buffer {
	return &Buffer{raw: raw, desc: desc, label: desc.Name}
}

// Release implements pool.Allocator. Destruction is deferred until work
// submitted so far has completed.
func (d *Device) Release(res framegraph.GPUResource) {
	switch r := res.(type) {
	case *Buffer:
		raw := r.raw
		d.retire(func() { d.device.DestroyBuffer(raw) })
	case *Texture:
		d.blit.forget(r)
		if r.external {
			return
		}
		raw := r.raw
		d.retire(func() { d.device.DestroyTexture(raw) })
	default:
		d.logger.Warn("wgpu: release of foreign resource", "label", res.Label())
	}
}

// CreateView implements framegraph.Backend.
func (d *Device) CreateView(res framegraph.GPUResource, desc framegraph.ViewDesc) (framegraph.GPUView, error) {
	switch r := res.(type) {
	case *Buffer:
		size := desc.ElementCount
		if size == 0 && desc.ElementOffset < r.desc.Size {
			size = r.desc.Size - desc.ElementOffset
		}
		return &View{res: r, desc: desc, offset: desc.ElementOffset, size: size}, nil

	case *Texture:
		mips, layers := desc.MipCount, desc.LayerCount
		if mips == 0 {
			mips = 1
		}
		if layers == 0 {
			layers = 1
			if desc.Kind == framegraph.ViewTextureCube {
				layers = 6
			}
		}
		raw, err := d.device.CreateTextureView(r.raw, &hal.TextureViewDescriptor{
			Label:           r.label,
			Format:          desc.Format,
			Dimension:       desc.Kind.Dimension(),
			Aspect:          gputypes.TextureAspectAll,
			BaseMipLevel:    desc.MipOffset,
			MipLevelCount:   mips,
			BaseArrayLayer:  desc.LayerOffset,
			ArrayLayerCount: layers,
		})
		if err != nil {
			return nil, fmt.Errorf("wgpu: create view of %q: %w", r.label, err)
		}
		return &View{raw: raw, res: r, desc: desc}, nil

	default:
		return nil, fmt.Errorf("wgpu: view of foreign resource %q", res.Label())
	}
}

// DestroyView implements framegraph.Backend. The hal view is destroyed
// once work submitted so far has completed.
func (d *Device) DestroyView(v framegraph.GPUView) {
	view, ok := v.(*View)
	if !ok || view.raw == nil {
		return
	}
	raw := view.raw
	view.raw = nil
	d.retire(func() { d.device.DestroyTextureView(raw) })
}

func textureExtent(desc framegraph.TextureDesc) hal.Extent3D {
	layers := max(desc.ArraySize, 1)
	if desc.Type == framegraph.Texture3D {
		layers = max(desc.Depth, 1)
	}
	return hal.Extent3D{Width: desc.Width, Height: desc.Height, DepthOrArrayLayers: layers}
}

// asBuffer returns the hal buffer behind buf or panics; command lists
// have no error return.
func asBuffer(op string, buf framegraph.GPUBuffer) hal.Buffer {
	b, ok := buf.(*Buffer)
	if !ok {
		panic(fmt.Sprintf("wgpu: %s: buffer %q was not created by this backend", op, buf.Label()))
	}
	return b.raw
}

func asTexture(op string, tex framegraph.GPUTexture) (*Texture, error) {
	t, ok := tex.(*Texture)
	if !ok {
		return nil, fmt.Errorf("wgpu: %s: texture %q was not created by this backend", op, tex.Label())
	}
	return t, nil
}
