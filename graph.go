package framegraph

import (
	"log/slog"
)

// Graph is a frame-scoped render graph. Resources and passes are declared
// during the build phase, then Execute records the required passes through
// the backend. A Graph is used by a single goroutine and executed once;
// build a new one every frame.
type Graph struct {
	backend    Backend
	pool       TransientPool
	observer   Observer
	logger     *slog.Logger
	debugNames bool

	resources []*resource
	passes    []*Pass
	cleanups  []func()

	executed    bool
	currentPass int
	views       []GPUView
}

// New creates an empty graph.
//
// Example:
//
//	g := framegraph.New(
//	    framegraph.WithBackend(b),
//	    framegraph.WithPool(p),
//	)
func New(opts ...Option) *Graph {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = Logger()
	}
	return &Graph{
		backend:     o.backend,
		pool:        o.pool,
		observer:    o.observer,
		logger:      logger,
		debugNames:  o.debugNames,
		currentPass: noPass,
	}
}

// AddCleanup registers fn to run at the end of Execute. Cleanups run in
// reverse registration order.
func (g *Graph) AddCleanup(fn func()) {
	g.checkBuilding("AddCleanup")
	if fn == nil {
		violation("AddCleanup", "nil cleanup")
	}
	g.cleanups = append(g.cleanups, fn)
}

// GetView returns the backend view h refers to. It may only be called from
// the function of the pass that declared the view.
func (g *Graph) GetView(h ViewHandle) GPUView {
	const op = "GetView"
	if !h.IsValid() {
		violation(op, "invalid view handle")
	}
	if g.currentPass == noPass || int(h.pass)-1 != g.currentPass {
		violation(op, "%v accessed outside its pass", h)
	}
	if int(h.index) >= len(g.views) {
		violation(op, "%v out of range", h)
	}
	return g.views[h.index]
}

// Passes returns the number of declared passes.
func (g *Graph) Passes() int { return len(g.passes) }

// Resources returns the number of declared resources.
func (g *Graph) Resources() int { return len(g.resources) }

func (g *Graph) checkBuilding(op string) {
	if g.executed {
		violation(op, "graph already executed")
	}
}
