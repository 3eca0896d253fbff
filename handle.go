package framegraph

import "fmt"

// ResourceHandle identifies a resource at a specific version. Handles are
// compared by value. The zero value is invalid.
type ResourceHandle struct {
	// index is the resource index plus one, so that the zero value is
	// invalid.
	index   uint32
	version uint32
}

// IsValid reports whether h refers to a resource.
func (h ResourceHandle) IsValid() bool {
	return h.index != 0
}

// Version returns the resource version the handle refers to.
func (h ResourceHandle) Version() uint32 {
	return h.version
}

// String returns a debug representation of the handle.
func (h ResourceHandle) String() string {
	if !h.IsValid() {
		return "Resource(invalid)"
	}
	return fmt.Sprintf("Resource(%d@v%d)", h.index-1, h.version)
}

func (h ResourceHandle) resource() int {
	return int(h.index) - 1
}

func makeResourceHandle(index int, version uint32) ResourceHandle {
	//nolint:gosec // G115: resource count is bounded well below uint32 max
	return ResourceHandle{index: uint32(index) + 1, version: version}
}

// ViewHandle identifies a view declared by a pass. It can only be resolved
// with Graph.GetView while that pass's function executes.
type ViewHandle struct {
	// pass is the pass index plus one, so that the zero value is invalid.
	pass  uint32
	index uint32
}

// IsValid reports whether h refers to a view.
func (h ViewHandle) IsValid() bool {
	return h.pass != 0
}

// String returns a debug representation of the handle.
func (h ViewHandle) String() string {
	if !h.IsValid() {
		return "View(invalid)"
	}
	return fmt.Sprintf("View(pass %d, #%d)", h.pass-1, h.index)
}
