package framegraph

import (
	"fmt"
)

// allocateResources binds a pooled backend object to every required
// transient resource. Resources that are not required get nothing.
func (g *Graph) allocateResources() error {
	for _, r := range g.resources {
		if !r.required || r.imported {
			continue
		}
		if g.pool == nil {
			return fmt.Errorf("%w: resource %q", ErrNoPool, r.name)
		}

		var (
			obj GPUResource
			err error
		)
		switch r.kind {
		case KindBuffer:
			desc := r.buffer
			desc.Usage = r.bufferUsage
			var buf GPUBuffer
			buf, err = g.pool.GetTransientBuffer(desc)
			obj = buf
		case KindTexture:
			desc := r.texture
			desc.Usage = r.textureUsage
			var tex GPUTexture
			tex, err = g.pool.GetTransientTexture(desc)
			obj = tex
		}
		if err != nil {
			return fmt.Errorf("%w: %s %q: %w", ErrAllocation, r.kind, r.name, err)
		}
		r.object = obj
		r.currentState = StateNone

		if g.debugNames && r.name != "" {
			g.backend.SetDebugName(obj, r.name)
		}
		g.logger.Debug("framegraph: allocated transient",
			"name", r.name, "kind", r.kind.String(),
			"first_pass", r.firstPass, "last_pass", r.lastPass)
	}
	return nil
}
