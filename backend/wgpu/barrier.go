package wgpu

import (
	"github.com/gogpu/framegraph"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ResourceBarrier implements framegraph.Backend. Texture and buffer
// transitions of one batch are recorded together into the open encoder.
func (d *Device) ResourceBarrier(barriers []framegraph.Barrier) error {
	textures, buffers := d.translateBarriers(barriers)
	if len(textures) == 0 && len(buffers) == 0 {
		return nil
	}
	encoder, err := d.ensureEncoder()
	if err != nil {
		return err
	}
	if len(textures) > 0 {
		encoder.TransitionTextures(textures)
	}
	if len(buffers) > 0 {
		encoder.TransitionBuffers(buffers)
	}
	return nil
}

func (d *Device) translateBarriers(barriers []framegraph.Barrier) ([]hal.TextureBarrier, []hal.BufferBarrier) {
	var (
		textures []hal.TextureBarrier
		buffers  []hal.BufferBarrier
	)
	for _, b := range barriers {
		switch r := b.Resource.(type) {
		case *Texture:
			// Presentation transitions are performed by the surface.
			if b.NewState == framegraph.StatePresent {
				continue
			}
			textures = append(textures, hal.TextureBarrier{
				Texture: r.raw,
				Usage: hal.TextureUsageTransition{
					OldUsage: textureUsageBefore(b),
					NewUsage: b.NewState.TextureUsage(),
				},
			})
		case *Buffer:
			oldUsage := b.OldState.BufferUsage()
			if b.Discard {
				oldUsage = 0
			}
			buffers = append(buffers, hal.BufferBarrier{
				Buffer: r.raw,
				Usage: hal.BufferUsageTransition{
					OldUsage: oldUsage,
					NewUsage: b.NewState.BufferUsage(),
				},
			})
		default:
			d.logger.Warn("wgpu: barrier on foreign resource", "label", b.Resource.Label())
		}
	}
	return textures, buffers
}

// textureUsageBefore returns the usage a texture transitions from. Zero
// usage marks undefined contents.
func textureUsageBefore(b framegraph.Barrier) gputypes.TextureUsage {
	if b.Discard || b.OldState == framegraph.StatePresent {
		return 0
	}
	return b.OldState.TextureUsage()
}
