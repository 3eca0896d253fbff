package framegraph

// barrierBatch accumulates transitions until they are flushed in a single
// backend call.
type barrierBatch struct {
	barriers []Barrier
}

// transition moves r to state, enqueueing a whole-resource barrier when the
// tracked state differs.
func (b *barrierBatch) transition(r *resource, state ResourceState, discard bool) {
	if r.currentState == state {
		return
	}
	b.barriers = append(b.barriers, Barrier{
		Resource: r.object,
		Range:    r.wholeRange(),
		OldState: r.currentState,
		NewState: state,
		Discard:  discard,
	})
	r.currentState = state
}

// flush issues the pending barriers, if any, and resets the batch.
func (b *barrierBatch) flush(g *Graph, scope string) error {
	if len(b.barriers) == 0 {
		return nil
	}
	g.logger.Debug("framegraph: barriers", "scope", scope, "count", len(b.barriers))
	err := g.backend.ResourceBarrier(b.barriers)
	b.barriers = b.barriers[:0]
	if err != nil {
		return backendError("ResourceBarrier "+scope, err)
	}
	return nil
}

// transitionPass enqueues the transitions p needs before it runs.
// Partial ranges are widened to the whole resource; overlapping uses with
// differing states would need per-subresource tracking.
func (g *Graph) transitionPass(b *barrierBatch, p *Pass) {
	for _, u := range p.uses {
		r := g.resources[u.resource]
		if u.split {
			violation("Execute", "pass %q, resource %q: TODO: per-subresource state tracking not implemented",
				p.name, r.name)
		}
		b.transition(r, u.state, r.currentState == StateNone)
	}
}
