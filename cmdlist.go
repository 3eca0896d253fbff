package framegraph

import (
	"github.com/gogpu/gputypes"
)

// bindState tracks the pipeline and argument sets bound on a command list
// so that redundant binds can be dropped.
type bindState struct {
	pass     string
	pipeline Pipeline
	layouts  []uint64
	args     []ArgumentSet

	// dropped counts binds that were not forwarded.
	dropped int
}

// setPipeline reports whether p must be forwarded to the backend.
func (s *bindState) setPipeline(p Pipeline) bool {
	if p == nil {
		violation("SetPipeline", "pass %q: nil pipeline", s.pass)
	}
	if s.pipeline == p {
		s.dropped++
		return false
	}
	s.pipeline = p
	s.layouts = p.ArgumentLayouts()
	s.args = make([]ArgumentSet, len(s.layouts))
	return true
}

// setArguments reports whether args must be forwarded to the backend. The
// layout of args must match the bound pipeline's layout at index.
func (s *bindState) setArguments(index uint32, args ArgumentSet) bool {
	const op = "SetArguments"
	switch {
	case s.pipeline == nil:
		violation(op, "pass %q: no pipeline bound", s.pass)
	case args == nil:
		violation(op, "pass %q: nil argument set at index %d", s.pass, index)
	case int(index) >= len(s.layouts):
		violation(op, "pass %q: argument index %d out of range, pipeline has %d layouts",
			s.pass, index, len(s.layouts))
	case args.LayoutHash() != s.layouts[index]:
		violation(op, "pass %q: argument set layout %#x does not match pipeline layout %#x at index %d",
			s.pass, args.LayoutHash(), s.layouts[index], index)
	}
	if s.args[index] == args {
		s.dropped++
		return false
	}
	s.args[index] = args
	return true
}

func (s *bindState) requirePipeline(op string) {
	if s.pipeline == nil {
		violation(op, "pass %q: no pipeline bound", s.pass)
	}
}

// renderList wraps a backend render command list with bind caching.
type renderList struct {
	bindState
	cmd RenderCommandList
}

func (l *renderList) SetPipeline(p Pipeline) {
	if l.setPipeline(p) {
		l.cmd.SetPipeline(p)
	}
}

func (l *renderList) SetArguments(index uint32, args ArgumentSet) {
	if l.setArguments(index, args) {
		l.cmd.SetArguments(index, args)
	}
}

func (l *renderList) SetVertexBuffer(slot uint32, buf GPUBuffer, offset uint64) {
	l.cmd.SetVertexBuffer(slot, buf, offset)
}

func (l *renderList) SetIndexBuffer(buf GPUBuffer, format gputypes.IndexFormat, offset uint64) {
	l.cmd.SetIndexBuffer(buf, format, offset)
}

func (l *renderList) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	l.requirePipeline("Draw")
	l.cmd.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

func (l *renderList) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	l.requirePipeline("DrawIndexed")
	l.cmd.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}

// computeList wraps a backend compute command list with bind caching.
type computeList struct {
	bindState
	cmd ComputeCommandList
}

func (l *computeList) SetPipeline(p Pipeline) {
	if l.setPipeline(p) {
		l.cmd.SetPipeline(p)
	}
}

func (l *computeList) SetArguments(index uint32, args ArgumentSet) {
	if l.setArguments(index, args) {
		l.cmd.SetArguments(index, args)
	}
}

func (l *computeList) Dispatch(x, y, z uint32) {
	l.requirePipeline("Dispatch")
	l.cmd.Dispatch(x, y, z)
}
