package wgpu

import (
	"github.com/gogpu/framegraph/backend"
)

var _ backend.Device = (*Device)(nil)

func init() {
	backend.Register(backend.NameWGPU, func() (backend.Device, error) {
		return Open()
	})
}
