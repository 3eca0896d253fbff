package wgpu

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Errors returned by device construction and submission.
var (
	// ErrNoAdapter is returned by Open when no GPU adapter is available.
	ErrNoAdapter = errors.New("wgpu: no GPU adapter available")

	// ErrNoHAL is returned by NewFromProvider when the provider does not
	// expose hal types.
	ErrNoHAL = errors.New("wgpu: provider does not expose HAL device")

	// ErrTimeout is returned by Flush when submitted work does not finish
	// in time.
	ErrTimeout = errors.New("wgpu: timed out waiting for GPU")

	// ErrClosed is returned by operations on a closed device.
	ErrClosed = errors.New("wgpu: device closed")
)

const (
	defaultFenceTimeout = 5 * time.Second
	encoderLabel        = "framegraph"
)

// Info describes the adapter a Device runs on.
type Info struct {
	Name       string
	DeviceType gputypes.DeviceType

	// External is true when the device is owned by the caller.
	External bool
}

// Option configures a Device.
type Option func(*options)

type options struct {
	logger       *slog.Logger
	fenceTimeout time.Duration
	cacheSize    int
}

func defaultOptions() options {
	return options{
		logger:       framegraph.Logger(),
		fenceTimeout: defaultFenceTimeout,
		cacheSize:    64,
	}
}

// WithLogger sets the logger of the device. A nil logger keeps the
// framegraph package logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithFenceTimeout sets how long Flush waits for submitted work.
func WithFenceTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.fenceTimeout = d
		}
	}
}

// WithCacheSize sets the number of argument sets kept by the blit cache.
func WithCacheSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.cacheSize = n
		}
	}
}

// Device is a framegraph backend on a hal device. It implements
// backend.Device: framegraph.Backend, pool.Allocator and Close.
//
// Device is not safe for concurrent use, except for pipeline creation.
type Device struct {
	instance hal.Instance // nil for external devices
	device   hal.Device
	queue    hal.Queue
	info     Info
	opts     options
	logger   *slog.Logger

	encoder hal.CommandEncoder

	fence      hal.Fence
	submitted  uint64
	completed  uint64
	inFlight   []hal.CommandBuffer
	retired    []func()
	transfer   transferContext
	pipelines  *pipelineCache
	blit       *blitter
	closed     bool
}

// Open creates a standalone device on the first discrete or integrated
// GPU, falling back to the first adapter.
func Open(opts ...Option) (*Device, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("%w: vulkan backend not available", ErrNoAdapter)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: open device: %w", err)
	}

	d, err := newDevice(openDev.Device, openDev.Queue, Info{
		Name:       selected.Info.Name,
		DeviceType: selected.Info.DeviceType,
	}, opts)
	if err != nil {
		openDev.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	d.instance = instance
	return d, nil
}

// NewFromHAL creates a device on an existing hal device and queue. The
// caller keeps ownership of both; Close does not destroy them.
func NewFromHAL(device hal.Device, queue hal.Queue, opts ...Option) (*Device, error) {
	if device == nil || queue == nil {
		return nil, errors.New("wgpu: nil device or queue")
	}
	return newDevice(device, queue, Info{Name: "external", External: true}, opts)
}

// NewFromProvider creates a device sharing the GPU of a host application.
// The provider must also implement HalDevice() any and HalQueue() any
// returning hal.Device and hal.Queue.
func NewFromProvider(provider gpucontext.DeviceProvider, opts ...Option) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHAL)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHAL)
	}

	d, err := NewFromHAL(device, queue, opts...)
	if err != nil {
		return nil, err
	}
	d.info.Name = "provider"
	d.logger.Debug("wgpu: using provider device", "surface_format", provider.SurfaceFormat())
	return d, nil
}

func newDevice(device hal.Device, queue hal.Queue, info Info, opts []Option) (*Device, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	fence, err := device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("wgpu: create fence: %w", err)
	}

	d := &Device{
		device: device,
		queue:  queue,
		info:   info,
		opts:   o,
		logger: o.logger,
		fence:  fence,
	}
	d.transfer = transferContext{d: d}
	d.pipelines = newPipelineCache(device)
	d.blit = newBlitter(d, o.cacheSize)
	d.logger.Info("wgpu: device ready", "adapter", info.Name, "external", info.External)
	return d, nil
}

// Info returns information about the adapter.
func (d *Device) Info() Info { return d.info }

// HAL returns the underlying hal device and queue.
func (d *Device) HAL() (hal.Device, hal.Queue) { return d.device, d.queue }

// Close waits for submitted work and releases the device. Objects created
// by the device must not be used afterwards.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	err := d.Flush()
	if d.encoder != nil {
		d.encoder.DiscardEncoding()
		d.encoder = nil
	}
	d.blit.destroy()
	d.pipelines.destroyAll()
	d.device.DestroyFence(d.fence)
	d.closed = true

	if d.instance != nil {
		d.device.Destroy()
		d.instance.Destroy()
		d.instance = nil
	}
	return err
}

// retire schedules fn to run once work submitted so far has completed.
func (d *Device) retire(fn func()) {
	d.retired = append(d.retired, fn)
}

// ensureEncoder returns the open command encoder, opening one if needed.
func (d *Device) ensureEncoder() (hal.CommandEncoder, error) {
	if d.closed {
		return nil, ErrClosed
	}
	if d.encoder != nil {
		return d.encoder, nil
	}
	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: encoderLabel})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(encoderLabel); err != nil {
		return nil, fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	d.encoder = encoder
	return encoder, nil
}

// submit closes the open encoder, if any, and submits it.
func (d *Device) submit() error {
	if d.encoder == nil {
		return nil
	}
	encoder := d.encoder
	d.encoder = nil

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	d.submitted++
	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, d.fence, d.submitted); err != nil {
		d.submitted--
		d.device.FreeCommandBuffer(cmdBuf)
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	d.inFlight = append(d.inFlight, cmdBuf)
	return nil
}

// Flush implements framegraph.Backend. It submits pending work, waits for
// everything submitted so far and destroys retired objects.
func (d *Device) Flush() error {
	if err := d.submit(); err != nil {
		return err
	}
	if d.submitted > d.completed {
		ok, err := d.device.Wait(d.fence, d.submitted, d.opts.fenceTimeout)
		if err != nil {
			return fmt.Errorf("wgpu: wait: %w", err)
		}
		if !ok {
			return ErrTimeout
		}
		d.completed = d.submitted
	}

	for _, cb := range d.inFlight {
		d.device.FreeCommandBuffer(cb)
	}
	d.inFlight = d.inFlight[:0]
	for _, fn := range d.retired {
		fn()
	}
	d.retired = d.retired[:0]
	return nil
}

// SetDebugName implements framegraph.Backend. hal objects are labelled at
// creation; later names are kept on the wrapper and reported by Label.
func (d *Device) SetDebugName(res framegraph.GPUResource, name string) {
	switch r := res.(type) {
	case *Buffer:
		r.label = name
	case *Texture:
		r.label = name
	default:
		d.logger.Debug("wgpu: debug name on foreign resource", "name", name)
	}
}
