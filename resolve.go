package framegraph

// ResolveSummary describes the outcome of dependency resolution.
type ResolveSummary struct {
	// Required lists the kept passes in execution order.
	Required []string

	// Culled lists the passes whose outputs are never consumed.
	Culled []string

	// Resources is the number of resources used by required passes.
	Resources int
}

// Resolve determines the required passes without executing the graph. It
// may be called any number of times; each call starts from the declared
// graph and yields the same result for the same declarations.
func (g *Graph) Resolve() ResolveSummary {
	g.determineRequiredPasses()
	return g.summary()
}

// determineRequiredPasses marks the passes that contribute to an explicitly
// required pass or to the final version of an imported resource, then
// records the first and last required pass of every resource.
func (g *Graph) determineRequiredPasses() {
	for _, p := range g.passes {
		p.required = false
	}
	for _, r := range g.resources {
		r.required = false
		r.firstPass = noPass
		r.lastPass = noPass
	}

	var worklist []int
	enqueue := func(i int) {
		if i == noPass || g.passes[i].required {
			return
		}
		g.passes[i].required = true
		worklist = append(worklist, i)
	}

	for _, p := range g.passes {
		if p.marked {
			enqueue(p.index)
		}
	}
	for _, r := range g.resources {
		if r.imported && r.currentVersion > 0 {
			enqueue(r.producers[r.currentVersion])
		}
	}

	// Producers always precede their consumers, so each pass is visited
	// once and the walk terminates.
	for len(worklist) > 0 {
		p := g.passes[worklist[len(worklist)-1]]
		worklist = worklist[:len(worklist)-1]
		for _, u := range p.uses {
			r := g.resources[u.resource]
			r.required = true
			enqueue(r.producers[u.version])
		}
	}

	for _, p := range g.passes {
		if !p.required {
			continue
		}
		for _, u := range p.uses {
			r := g.resources[u.resource]
			if r.firstPass == noPass {
				r.firstPass = p.index
			}
			r.lastPass = p.index
		}
	}
}

func (g *Graph) summary() ResolveSummary {
	var s ResolveSummary
	for _, p := range g.passes {
		if p.required {
			s.Required = append(s.Required, p.name)
		} else {
			s.Culled = append(s.Culled, p.name)
		}
	}
	for _, r := range g.resources {
		if r.required {
			s.Resources++
		}
	}
	return s
}
