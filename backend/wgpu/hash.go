package wgpu

import (
	"encoding/binary"
	"hash"
	"hash/fnv"

	"github.com/gogpu/gputypes"
)

// hashLayoutEntries computes the content hash of an argument layout.
// Layouts with equal entries hash equally regardless of their label.
func hashLayoutEntries(entries []gputypes.BindGroupLayoutEntry) uint64 {
	h := fnv.New64a()
	//nolint:gosec // G115: entry count is bounded by GPU limits
	hashWriteUint32(h, uint32(len(entries)))
	for i := range entries {
		e := &entries[i]
		hashWriteUint32(h, e.Binding)
		hashWriteUint32(h, uint32(e.Visibility))
		switch {
		case e.Buffer != nil:
			hashWriteUint32(h, 1)
			hashWriteUint32(h, uint32(e.Buffer.Type))
			hashWriteBool(h, e.Buffer.HasDynamicOffset)
			hashWriteUint64(h, e.Buffer.MinBindingSize)
		case e.Texture != nil:
			hashWriteUint32(h, 2)
			hashWriteUint32(h, uint32(e.Texture.SampleType))
			hashWriteUint32(h, uint32(e.Texture.ViewDimension))
			hashWriteBool(h, e.Texture.Multisampled)
		case e.Sampler != nil:
			hashWriteUint32(h, 3)
			hashWriteUint32(h, uint32(e.Sampler.Type))
		case e.StorageTexture != nil:
			hashWriteUint32(h, 4)
			hashWriteUint32(h, uint32(e.StorageTexture.Access))
			hashWriteUint32(h, uint32(e.StorageTexture.Format))
			hashWriteUint32(h, uint32(e.StorageTexture.ViewDimension))
		default:
			hashWriteUint32(h, 0)
		}
	}
	return h.Sum64()
}

// hashRenderPipeline computes the cache key of a render pipeline
// descriptor. The label is not part of the key.
func hashRenderPipeline(desc *RenderPipelineDesc) uint64 {
	h := fnv.New64a()
	hashWriteString(h, desc.Source)
	hashWriteString(h, desc.VertexEntry)
	hashWriteString(h, desc.FragmentEntry)
	hashWriteLayouts(h, desc.Layouts)

	//nolint:gosec // G115: vertex buffer count is bounded by GPU limits (< 16)
	hashWriteUint32(h, uint32(len(desc.VertexBuffers)))
	for i := range desc.VertexBuffers {
		layout := &desc.VertexBuffers[i]
		hashWriteUint64(h, layout.ArrayStride)
		hashWriteUint32(h, uint32(layout.StepMode))
		//nolint:gosec // G115: attribute count is bounded by GPU limits (< 32)
		hashWriteUint32(h, uint32(len(layout.Attributes)))
		for j := range layout.Attributes {
			attr := &layout.Attributes[j]
			hashWriteUint32(h, attr.ShaderLocation)
			hashWriteUint32(h, uint32(attr.Format))
			hashWriteUint64(h, attr.Offset)
		}
	}

	//nolint:gosec // G115: target count is bounded by GPU limits (< 8)
	hashWriteUint32(h, uint32(len(desc.Targets)))
	for i := range desc.Targets {
		t := &desc.Targets[i]
		hashWriteUint32(h, uint32(t.Format))
		hashWriteUint32(h, uint32(t.WriteMask))
		if t.Blend != nil {
			hashWriteBool(h, true)
			hashWriteUint32(h, uint32(t.Blend.Color.SrcFactor))
			hashWriteUint32(h, uint32(t.Blend.Color.DstFactor))
			hashWriteUint32(h, uint32(t.Blend.Color.Operation))
			hashWriteUint32(h, uint32(t.Blend.Alpha.SrcFactor))
			hashWriteUint32(h, uint32(t.Blend.Alpha.DstFactor))
			hashWriteUint32(h, uint32(t.Blend.Alpha.Operation))
		} else {
			hashWriteBool(h, false)
		}
	}

	hashWriteUint32(h, uint32(desc.Topology))
	hashWriteUint32(h, uint32(desc.CullMode))
	hashWriteUint32(h, desc.SampleCount)

	if ds := desc.DepthStencil; ds != nil {
		hashWriteBool(h, true)
		hashWriteUint32(h, uint32(ds.Format))
		hashWriteBool(h, ds.DepthWriteEnabled)
		hashWriteUint32(h, uint32(ds.DepthCompare))
	} else {
		hashWriteBool(h, false)
	}
	return h.Sum64()
}

// hashComputePipeline computes the cache key of a compute pipeline
// descriptor.
func hashComputePipeline(desc *ComputePipelineDesc) uint64 {
	h := fnv.New64a()
	hashWriteString(h, desc.Source)
	hashWriteString(h, desc.Entry)
	hashWriteLayouts(h, desc.Layouts)
	return h.Sum64()
}

func hashWriteLayouts(h hash.Hash64, layouts []*ArgumentLayout) {
	//nolint:gosec // G115: bind group count is bounded by GPU limits (< 8)
	hashWriteUint32(h, uint32(len(layouts)))
	for _, l := range layouts {
		if l == nil {
			hashWriteUint64(h, 0)
			continue
		}
		hashWriteUint64(h, l.hash)
	}
}

func hashString(s string) uint64 {
	h := fnv.New64a()
	hashWriteString(h, s)
	return h.Sum64()
}

func hashWriteUint32(h hash.Hash64, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, _ = h.Write(buf[:])
}

func hashWriteUint64(h hash.Hash64, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, _ = h.Write(buf[:])
}

// hashWriteString writes a length-prefixed string.
func hashWriteString(h hash.Hash64, s string) {
	//nolint:gosec // G115: shader sources fit in 32 bits
	hashWriteUint32(h, uint32(len(s)))
	_, _ = h.Write([]byte(s))
}

func hashWriteBool(h hash.Hash64, v bool) {
	if v {
		_, _ = h.Write([]byte{1})
	} else {
		_, _ = h.Write([]byte{0})
	}
}
