package framegraph

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// ResourceKind distinguishes buffers from textures.
type ResourceKind uint8

const (
	KindBuffer ResourceKind = iota
	KindTexture
)

// String returns "buffer" or "texture".
func (k ResourceKind) String() string {
	switch k {
	case KindBuffer:
		return "buffer"
	case KindTexture:
		return "texture"
	default:
		return "unknown"
	}
}

// BufferDesc describes a buffer.
//
// Usage is derived by the graph from the states a buffer is used in; any
// value set by the caller of Graph.CreateBuffer is ignored.
type BufferDesc struct {
	// Name is an optional debug name.
	Name string

	// Size is the buffer size in bytes.
	Size uint64

	// Usage is the union of the usages required by all passes.
	Usage gputypes.BufferUsage
}

// TextureDesc describes a texture.
//
// Usage is derived by the graph from the states a texture is used in; any
// value set by the caller of Graph.CreateTexture is ignored.
type TextureDesc struct {
	// Name is an optional debug name.
	Name string

	// Type is the texture dimensionality. The zero value is a 2D texture.
	Type TextureType

	Width  uint32
	Height uint32

	// Depth is the depth of a 3D texture. Defaults to 1.
	Depth uint32

	// ArraySize is the number of array layers. Defaults to 1.
	ArraySize uint32

	// MipLevels is the number of mip levels. Defaults to 1.
	MipLevels uint32

	Format gputypes.TextureFormat

	// SampleCount is the MSAA sample count. Defaults to 1.
	SampleCount uint32

	// Usage is the union of the usages required by all passes.
	Usage gputypes.TextureUsage
}

// withDefaults fills zero-valued fields with their defaults.
func (d TextureDesc) withDefaults() TextureDesc {
	if d.Depth == 0 || d.Type != Texture3D {
		d.Depth = 1
	}
	if d.Type == TextureCube && d.ArraySize < 6 {
		d.ArraySize = 6
	}
	if d.ArraySize == 0 {
		d.ArraySize = 1
	}
	if d.MipLevels == 0 {
		d.MipLevels = 1
	}
	if d.SampleCount == 0 {
		d.SampleCount = 1
	}
	return d
}

// Key returns a copy of d with the debug name cleared, suitable for
// descriptor-equality lookups.
func (d TextureDesc) Key() TextureDesc {
	d.Name = ""
	return d
}

// Key returns a copy of d with the debug name cleared, suitable for
// descriptor-equality lookups.
func (d BufferDesc) Key() BufferDesc {
	d.Name = ""
	return d
}

// SubresourceRange selects mip levels and array layers of a texture.
// Buffers always use the whole-resource range.
type SubresourceRange struct {
	MipOffset   uint32
	MipCount    uint32
	LayerOffset uint32
	LayerCount  uint32
}

// String returns a compact description of the range.
func (r SubresourceRange) String() string {
	return fmt.Sprintf("mips[%d+%d] layers[%d+%d]", r.MipOffset, r.MipCount, r.LayerOffset, r.LayerCount)
}

// Overlaps reports whether r and o share at least one subresource.
func (r SubresourceRange) Overlaps(o SubresourceRange) bool {
	mips := r.MipOffset < o.MipOffset+o.MipCount && o.MipOffset < r.MipOffset+r.MipCount
	layers := r.LayerOffset < o.LayerOffset+o.LayerCount && o.LayerOffset < r.LayerOffset+r.LayerCount
	return mips && layers
}

// TextureType is the dimensionality of a texture.
type TextureType uint8

const (
	Texture2D TextureType = iota
	Texture1D
	Texture3D
	TextureCube
)

// Dimension returns the gputypes dimension backing the texture type.
// Cube textures are 2D textures with six layers.
func (t TextureType) Dimension() gputypes.TextureDimension {
	switch t {
	case Texture1D:
		return gputypes.TextureDimension1D
	case Texture3D:
		return gputypes.TextureDimension3D
	default:
		return gputypes.TextureDimension2D
	}
}

// ViewKind identifies the type of view to create.
type ViewKind uint8

const (
	ViewTexture2D ViewKind = iota
	ViewTexture2DArray
	ViewTextureCube
	ViewTexture1D
	ViewTexture3D

	// ViewBuffer is a view of a buffer region.
	ViewBuffer
)

// IsTexture reports whether the view kind refers to a texture.
func (k ViewKind) IsTexture() bool {
	return k != ViewBuffer
}

// Dimension returns the gputypes view dimension for a texture view kind.
func (k ViewKind) Dimension() gputypes.TextureViewDimension {
	switch k {
	case ViewTexture2DArray:
		return gputypes.TextureViewDimension2DArray
	case ViewTextureCube:
		return gputypes.TextureViewDimensionCube
	case ViewTexture1D:
		return gputypes.TextureViewDimension1D
	case ViewTexture3D:
		return gputypes.TextureViewDimension3D
	default:
		return gputypes.TextureViewDimension2D
	}
}

// ViewDesc describes a pass-scoped view of a resource.
type ViewDesc struct {
	Kind ViewKind

	// State is the state the resource is accessed in through the view.
	State ResourceState

	// Format is the view format. TextureFormatUndefined selects the
	// texture format.
	Format gputypes.TextureFormat

	// MipOffset and MipCount select mip levels. A zero MipCount selects
	// one level.
	MipOffset uint32
	MipCount  uint32

	// LayerOffset and LayerCount select array layers. A zero LayerCount
	// selects one layer.
	LayerOffset uint32
	LayerCount  uint32

	// ElementOffset and ElementCount select a buffer region in bytes. A
	// zero ElementCount selects the remainder of the buffer. The graph
	// tracks state for the whole buffer regardless.
	ElementOffset uint64
	ElementCount  uint64
}

// subresourceRange returns the range covered by the view.
func (d ViewDesc) subresourceRange() SubresourceRange {
	rng := SubresourceRange{
		MipOffset:   d.MipOffset,
		MipCount:    d.MipCount,
		LayerOffset: d.LayerOffset,
		LayerCount:  d.LayerCount,
	}
	if rng.MipCount == 0 {
		rng.MipCount = 1
	}
	if rng.LayerCount == 0 {
		rng.LayerCount = 1
		if d.Kind == ViewTextureCube {
			rng.LayerCount = 6
		}
	}
	return rng
}

// TextureView returns a ViewDesc for a single-mip single-layer 2D view
// accessed in the given state.
func TextureView(state ResourceState) ViewDesc {
	return ViewDesc{Kind: ViewTexture2D, State: state}
}

// BufferView returns a ViewDesc for a whole-buffer view accessed in the
// given state.
func BufferView(state ResourceState) ViewDesc {
	return ViewDesc{Kind: ViewBuffer, State: state}
}
