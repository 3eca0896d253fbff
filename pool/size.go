package pool

import (
	"github.com/gogpu/framegraph"
	"github.com/gogpu/gputypes"
)

// BytesPerTexel returns the texel size of common formats. Unknown formats
// count as four bytes.
func BytesPerTexel(f gputypes.TextureFormat) uint64 {
	switch f {
	case gputypes.TextureFormatR8Unorm:
		return 1
	case gputypes.TextureFormatRGBA16Float:
		return 8
	case gputypes.TextureFormatRGBA32Float:
		return 16
	case gputypes.TextureFormatDepth24PlusStencil8, gputypes.TextureFormatDepth32Float:
		return 4
	default:
		return 4
	}
}

// TextureSize estimates the memory used by a texture, including its mip
// chain and samples.
func TextureSize(desc framegraph.TextureDesc) uint64 {
	w, h, d := uint64(desc.Width), uint64(desc.Height), uint64(max(desc.Depth, 1))
	layers := uint64(max(desc.ArraySize, 1))
	samples := uint64(max(desc.SampleCount, 1))
	texel := BytesPerTexel(desc.Format)

	var total uint64
	for range max(desc.MipLevels, 1) {
		total += w * h * d * texel
		w = max(w/2, 1)
		h = max(h/2, 1)
		d = max(d/2, 1)
	}
	return total * layers * samples
}
