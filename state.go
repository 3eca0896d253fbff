package framegraph

import (
	"math/bits"
	"strings"

	"github.com/gogpu/gputypes"
)

// ResourceState describes how a pass accesses a resource. States are bit
// flags so that read states for several shader stages can be combined in a
// single use.
type ResourceState uint32

// StateNone is the sentinel state of a transient resource that has not
// been used yet. A transition out of StateNone discards prior contents.
const StateNone ResourceState = 0

const (
	StateVertexShaderRead ResourceState = 1 << iota
	StatePixelShaderRead
	StateComputeShaderRead
	StateVertexShaderWrite
	StatePixelShaderWrite
	StateComputeShaderWrite
	StateIndirectBufferRead
	StateVertexBufferRead
	StateIndexBufferRead
	StateRenderTarget
	StateDepthStencilWrite
	StateDepthReadStencilWrite
	StateDepthWriteStencilRead
	StateDepthStencilRead
	StateTransferRead
	StateTransferWrite
	StatePresent
)

// Derived state masks.
const (
	StateAllShaderRead  = StateVertexShaderRead | StatePixelShaderRead | StateComputeShaderRead
	StateAllShaderWrite = StateVertexShaderWrite | StatePixelShaderWrite | StateComputeShaderWrite

	// StateDepthStencilMask covers every depth/stencil attachment variant.
	StateDepthStencilMask = StateDepthStencilWrite | StateDepthReadStencilWrite |
		StateDepthWriteStencilRead | StateDepthStencilRead

	// StateWriteMask covers every state that modifies resource contents.
	StateWriteMask = StateAllShaderWrite | StateRenderTarget | StateDepthStencilWrite |
		StateDepthReadStencilWrite | StateDepthWriteStencilRead | StateTransferWrite

	stateBufferOnly  = StateIndirectBufferRead | StateVertexBufferRead | StateIndexBufferRead
	stateTextureOnly = StateRenderTarget | StateDepthStencilMask | StatePresent
)

var stateNames = [...]string{
	"VertexShaderRead",
	"PixelShaderRead",
	"ComputeShaderRead",
	"VertexShaderWrite",
	"PixelShaderWrite",
	"ComputeShaderWrite",
	"IndirectBufferRead",
	"VertexBufferRead",
	"IndexBufferRead",
	"RenderTarget",
	"DepthStencilWrite",
	"DepthReadStencilWrite",
	"DepthWriteStencilRead",
	"DepthStencilRead",
	"TransferRead",
	"TransferWrite",
	"Present",
}

// String returns the state flags joined with "|".
func (s ResourceState) String() string {
	if s == StateNone {
		return "None"
	}
	var parts []string
	for i, name := range stateNames {
		if s&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	if rest := s >> len(stateNames); rest != 0 {
		parts = append(parts, "Unknown")
	}
	return strings.Join(parts, "|")
}

// IsWrite reports whether the state modifies the resource contents.
func (s ResourceState) IsWrite() bool {
	return s&StateWriteMask != 0
}

// WritesDepth reports whether a depth/stencil attachment state writes the
// depth aspect.
func (s ResourceState) WritesDepth() bool {
	return s&(StateDepthStencilWrite|StateDepthWriteStencilRead) != 0
}

// WritesStencil reports whether a depth/stencil attachment state writes the
// stencil aspect.
func (s ResourceState) WritesStencil() bool {
	return s&(StateDepthStencilWrite|StateDepthReadStencilWrite) != 0
}

// isDepthStencilState reports whether s is exactly one depth/stencil variant.
func (s ResourceState) isDepthStencilState() bool {
	return s&^StateDepthStencilMask == 0 && bits.OnesCount32(uint32(s)) == 1
}

// validate returns a description of why s is not a legal state for a
// resource of the given kind, or "" if it is.
func (s ResourceState) validate(kind ResourceKind) string {
	switch {
	case s == StateNone:
		return "state must not be None"
	case s>>len(stateNames) != 0:
		return "state has unknown bits"
	case s.IsWrite() && s&^StateAllShaderWrite != 0 && bits.OnesCount32(uint32(s)) > 1:
		return "write state " + s.String() + " cannot be combined with other states"
	case kind == KindTexture && s&stateBufferOnly != 0:
		return "buffer-only state " + (s & stateBufferOnly).String() + " used on a texture"
	case kind == KindBuffer && s&stateTextureOnly != 0:
		return "texture-only state " + (s & stateTextureOnly).String() + " used on a buffer"
	}
	return ""
}

// TextureUsage returns the texture usage flags a texture must have to be
// used in state s.
func (s ResourceState) TextureUsage() gputypes.TextureUsage {
	var u gputypes.TextureUsage
	if s&StateAllShaderRead != 0 {
		u |= gputypes.TextureUsageTextureBinding
	}
	if s&StateAllShaderWrite != 0 {
		u |= gputypes.TextureUsageStorageBinding
	}
	if s&(StateRenderTarget|StateDepthStencilMask) != 0 {
		u |= gputypes.TextureUsageRenderAttachment
	}
	if s&StateTransferRead != 0 {
		u |= gputypes.TextureUsageCopySrc
	}
	if s&StateTransferWrite != 0 {
		u |= gputypes.TextureUsageCopyDst
	}
	return u
}

// BufferUsage returns the buffer usage flags a buffer must have to be used
// in state s.
func (s ResourceState) BufferUsage() gputypes.BufferUsage {
	var u gputypes.BufferUsage
	if s&(StateAllShaderRead|StateAllShaderWrite) != 0 {
		u |= gputypes.BufferUsageStorage
	}
	if s&StateIndirectBufferRead != 0 {
		u |= gputypes.BufferUsageIndirect
	}
	if s&StateVertexBufferRead != 0 {
		u |= gputypes.BufferUsageVertex
	}
	if s&StateIndexBufferRead != 0 {
		u |= gputypes.BufferUsageIndex
	}
	if s&StateTransferRead != 0 {
		u |= gputypes.BufferUsageCopySrc
	}
	if s&StateTransferWrite != 0 {
		u |= gputypes.BufferUsageCopyDst
	}
	return u
}
