package recording

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vmihailenco/msgpack/v5"
)

// Capture format identification.
const (
	captureMagic   = "FGCAP"
	captureVersion = 1
)

// ErrBadCapture is returned when a capture stream is malformed.
var ErrBadCapture = errors.New("recording: malformed capture")

// Recording is an immutable sequence of recorded commands.
type Recording struct {
	commands []Command
}

// Commands returns the recorded commands in order.
func (r *Recording) Commands() []Command {
	return r.commands
}

// Len returns the number of commands.
func (r *Recording) Len() int {
	return len(r.commands)
}

// Count returns the number of commands of type t.
func (r *Recording) Count(t CommandType) int {
	n := 0
	for _, c := range r.commands {
		if c.Type() == t {
			n++
		}
	}
	return n
}

// Types returns the type of every command in order.
func (r *Recording) Types() []CommandType {
	types := make([]CommandType, len(r.commands))
	for i, c := range r.commands {
		types[i] = c.Type()
	}
	return types
}

// Filter returns the commands of type T in order.
func Filter[T Command](r *Recording) []T {
	var out []T
	for _, c := range r.commands {
		if tc, ok := c.(T); ok {
			out = append(out, tc)
		}
	}
	return out
}

// Dump writes one line per command in a human-readable form.
func (r *Recording) Dump(w io.Writer) error {
	for i, c := range r.commands {
		if _, err := fmt.Fprintf(w, "%4d %-16s %+v\n", i, c.Type(), c); err != nil {
			return err
		}
	}
	return nil
}

// WriteTo writes the recording as a msgpack capture stream.
func (r *Recording) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	enc := msgpack.NewEncoder(cw)

	if err := enc.EncodeString(captureMagic); err != nil {
		return cw.n, err
	}
	if err := enc.EncodeUint8(captureVersion); err != nil {
		return cw.n, err
	}
	if err := enc.EncodeArrayLen(len(r.commands)); err != nil {
		return cw.n, err
	}
	for _, c := range r.commands {
		if err := enc.EncodeUint8(uint8(c.Type())); err != nil {
			return cw.n, err
		}
		if err := enc.Encode(c); err != nil {
			return cw.n, fmt.Errorf("recording: encode %s: %w", c.Type(), err)
		}
	}
	return cw.n, nil
}

// Save writes the recording to a capture file.
func (r *Recording) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := r.WriteTo(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Read decodes a capture stream written by WriteTo.
func Read(rd io.Reader) (*Recording, error) {
	dec := msgpack.NewDecoder(rd)

	magic, err := dec.DecodeString()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadCapture, err)
	}
	if magic != captureMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrBadCapture, magic)
	}
	version, err := dec.DecodeUint8()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadCapture, err)
	}
	if version != captureVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadCapture, version)
	}
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadCapture, err)
	}

	cmds := make([]Command, 0, max(n, 0))
	for i := 0; i < n; i++ {
		t, err := dec.DecodeUint8()
		if err != nil {
			return nil, fmt.Errorf("%w: command %d: %w", ErrBadCapture, i, err)
		}
		ct := CommandType(t)
		if int(ct) >= len(decoders) || decoders[ct] == nil {
			return nil, fmt.Errorf("%w: command %d: unknown type %d", ErrBadCapture, i, t)
		}
		c, err := decoders[ct](dec)
		if err != nil {
			return nil, fmt.Errorf("%w: command %d (%s): %w", ErrBadCapture, i, ct, err)
		}
		cmds = append(cmds, c)
	}
	return &Recording{commands: cmds}, nil
}

// Load reads a capture file.
func Load(path string) (*Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

func decodeAs[T Command](dec *msgpack.Decoder) (Command, error) {
	var c T
	if err := dec.Decode(&c); err != nil {
		return nil, err
	}
	return c, nil
}

var decoders = [...]func(*msgpack.Decoder) (Command, error){
	CmdCreateBuffer:     decodeAs[CreateBufferCommand],
	CmdCreateTexture:    decodeAs[CreateTextureCommand],
	CmdRelease:          decodeAs[ReleaseCommand],
	CmdSetDebugName:     decodeAs[SetDebugNameCommand],
	CmdCreateView:       decodeAs[CreateViewCommand],
	CmdDestroyView:      decodeAs[DestroyViewCommand],
	CmdBarrier:          decodeAs[BarrierCommand],
	CmdFlush:            decodeAs[FlushCommand],
	CmdBeginRenderPass:  decodeAs[BeginRenderPassCommand],
	CmdEndRenderPass:    decodeAs[EndRenderPassCommand],
	CmdBeginComputePass: decodeAs[BeginComputePassCommand],
	CmdEndComputePass:   decodeAs[EndComputePassCommand],
	CmdSetPipeline:      decodeAs[SetPipelineCommand],
	CmdSetArguments:     decodeAs[SetArgumentsCommand],
	CmdSetVertexBuffer:  decodeAs[SetVertexBufferCommand],
	CmdSetIndexBuffer:   decodeAs[SetIndexBufferCommand],
	CmdDraw:             decodeAs[DrawCommand],
	CmdDrawIndexed:      decodeAs[DrawIndexedCommand],
	CmdDispatch:         decodeAs[DispatchCommand],
	CmdWriteBuffer:      decodeAs[WriteBufferCommand],
	CmdWriteTexture:     decodeAs[WriteTextureCommand],
	CmdCopyBuffer:       decodeAs[CopyBufferCommand],
	CmdBlit:             decodeAs[BlitCommand],
	CmdResolved:         decodeAs[ResolvedCommand],
	CmdPassBegin:        decodeAs[PassBeginCommand],
	CmdPassEnd:          decodeAs[PassEndCommand],
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
