package wgpu

import (
	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/pool"
	"github.com/gogpu/wgpu/hal"
)

// transferContext writes through the queue and copies through the open
// encoder. Queue writes are ordered before the next submission.
type transferContext struct {
	d *Device
}

var _ framegraph.TransferContext = transferContext{}

// TransferContext implements framegraph.Backend.
func (d *Device) TransferContext() framegraph.TransferContext { return d.transfer }

func (t transferContext) WriteBuffer(buf framegraph.GPUBuffer, offset uint64, data []byte) {
	t.d.queue.WriteBuffer(asBuffer("WriteBuffer", buf), offset, data)
}

// WriteTexture uploads one tightly packed mip level of one layer.
func (t transferContext) WriteTexture(tex framegraph.GPUTexture, mip, layer uint32, data []byte) {
	tx, err := asTexture("WriteTexture", tex)
	if err != nil {
		panic(err.Error())
	}
	desc := tx.desc
	w := max(desc.Width>>mip, 1)
	h := max(desc.Height>>mip, 1)
	//nolint:gosec // G115: texel sizes are at most 16 bytes
	bytesPerRow := w * uint32(pool.BytesPerTexel(desc.Format))

	t.d.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  tx.raw,
			MipLevel: mip,
			Origin:   hal.Origin3D{Z: layer},
		},
		data,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  bytesPerRow,
			RowsPerImage: h,
		},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
}

func (t transferContext) CopyBuffer(dst framegraph.GPUBuffer, dstOffset uint64, src framegraph.GPUBuffer, srcOffset, size uint64) {
	encoder, err := t.d.ensureEncoder()
	if err != nil {
		t.d.logger.Error("wgpu: CopyBuffer dropped", "error", err)
		return
	}
	encoder.CopyBufferToBuffer(asBuffer("CopyBuffer", src), asBuffer("CopyBuffer", dst), []hal.BufferCopy{{
		SrcOffset: srcOffset,
		DstOffset: dstOffset,
		Size:      size,
	}})
}
