// Package backend provides a registry of framegraph backends.
//
// Backends register a Factory under a name from an init() function and are
// opened at runtime by name. The recording backend is registered by this
// package; the GPU backend registers itself when imported:
//
//	import _ "github.com/gogpu/framegraph/backend/wgpu"
//
// # Backend Selection
//
// Use Default to open the best available backend, or Open to request a
// specific one:
//
//	dev, name, err := backend.Default()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer dev.Close()
//
//	p := pool.New(dev)
//	g := framegraph.New(framegraph.WithBackend(dev), framegraph.WithPool(p))
package backend
