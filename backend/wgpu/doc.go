// Package wgpu provides the GPU backend for framegraph built on the
// gogpu/wgpu hardware abstraction layer (hal).
//
// Importing the package registers the backend under backend.NameWGPU:
//
//	import _ "github.com/gogpu/framegraph/backend/wgpu"
//
//	dev, err := backend.Open(backend.NameWGPU)
//
// A Device can also wrap an existing hal device, or the device of a host
// application that implements gpucontext.DeviceProvider:
//
//	dev, err := wgpu.NewFromProvider(app)
//
// # Recording Model
//
// All graph work is recorded into a single open command encoder. The
// encoder is closed and submitted when a render or compute pass ends and
// on Flush. Flush waits for the submitted work; views, bind groups and
// released objects are destroyed only after that wait, since they may
// still be referenced by in-flight command buffers.
//
// # Barriers
//
// Resource states map to hal usage transitions. A barrier that discards
// contents transitions from an undefined usage. Transitions into
// StatePresent are left to the surface, which performs them on present.
//
// # Pipelines and Arguments
//
// Render and compute pipelines are compiled from WGSL and cached by a
// descriptor hash. Argument layouts are hashed by content, so an
// ArgumentSet created against one layout is accepted by any pipeline
// declaring an equal layout.
//
// # Blits
//
// BlitTexture copies when source and destination share format and size,
// and otherwise draws a fullscreen triangle that samples the source. The
// blit shader is compiled to SPIR-V with gogpu/naga.
package wgpu
