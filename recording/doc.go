// Package recording provides a framegraph backend that records typed
// commands instead of talking to a GPU.
//
// The recording backend serves three purposes:
//   - a mock backend for tests, which assert on the recorded barriers,
//     attachments and draws
//   - a dry-run backend for tools that want to inspect what a frame does
//   - a debug capture: recordings serialize to a msgpack stream that can be
//     saved and loaded later
//
// Commands are plain structs referencing objects by Ref (ID and label), in
// the spirit of typed command structs that are easy to inspect.
//
// # Example
//
//	rec := recording.New()
//	g := framegraph.New(
//	    framegraph.WithBackend(rec),
//	    framegraph.WithPool(rec),
//	    framegraph.WithObserver(rec),
//	)
//	// ... declare resources and passes ...
//	if err := g.Execute(nil); err != nil {
//	    return err
//	}
//	r := rec.Recording()
//	for _, b := range recording.Filter[recording.BarrierCommand](r) {
//	    fmt.Println(b.Barriers)
//	}
//
// Pair the backend with pool.New(rec) to exercise recycling: the pool then
// creates and releases objects through the backend's Allocator methods.
package recording
