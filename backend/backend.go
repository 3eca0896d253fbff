package backend

import (
	"errors"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/pool"
)

// Backend names.
const (
	// NameWGPU is the GPU backend built on gogpu/wgpu.
	NameWGPU = "wgpu"

	// NameRecording is the recording backend.
	NameRecording = "recording"
)

var (
	// ErrBackendNotAvailable is returned when a requested backend is not
	// registered.
	ErrBackendNotAvailable = errors.New("backend: not available")
)

// Device is an opened backend: it records graph work and allocates the
// objects a transient pool hands out.
type Device interface {
	framegraph.Backend
	pool.Allocator

	// Close releases the device. Objects created by it must not be used
	// afterwards.
	Close() error
}
