// Command fgdemo builds and executes a deferred-shading frame graph.
//
// The frame renders a G-buffer, computes ambient occlusion, lights the
// scene into an HDR target and tonemaps it onto an imported swapchain
// texture. A debug pass nobody reads is added to show culling.
//
// With the recording backend the frame can be dumped as text or written
// to a capture file:
//
//	fgdemo -backend recording -dump
//	fgdemo -backend recording -capture frame.fgcap -show hdr
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/backend"
	_ "github.com/gogpu/framegraph/backend/wgpu"
	"github.com/gogpu/framegraph/pool"
	"github.com/gogpu/framegraph/recording"
)

func main() {
	var (
		configPath = flag.String("config", "", "TOML configuration file")
		backendArg = flag.String("backend", "", "backend name (overrides config; empty selects the best available)")
		capture    = flag.String("capture", "", "write a recording capture to this file (overrides config)")
		dump       = flag.Bool("dump", false, "print the recorded commands")
		frames     = flag.Int("frames", 2, "number of frames to execute")
		show       = flag.String("show", "", "texture resource to blit onto the swapchain")
		width      = flag.Uint("width", 1280, "swapchain width")
		height     = flag.Uint("height", 720, "swapchain height")
		verbose    = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	if *verbose {
		framegraph.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	cfg := framegraph.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = framegraph.LoadConfig(*configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if *backendArg != "" {
		cfg.Backend = *backendArg
	}
	if *capture != "" {
		cfg.Capture = *capture
	}

	dev, name, err := openBackend(cfg.Backend)
	if err != nil {
		log.Fatalf("Failed to open backend: %v", err)
	}
	defer dev.Close()
	log.Printf("Using backend %q", name)

	//nolint:gosec // G115: flag values are small
	sc := swapchainDesc(uint32(*width), uint32(*height))
	swapchain, err := dev.NewTexture(sc)
	if err != nil {
		log.Fatalf("Failed to create swapchain texture: %v", err)
	}
	defer dev.Release(swapchain)

	p := pool.New(dev, pool.WithConfig(cfg.Pool))
	defer p.Clear()

	opts := []framegraph.Option{
		framegraph.WithBackend(dev),
		framegraph.WithPool(p),
		framegraph.WithConfig(cfg),
	}
	if obs, ok := dev.(framegraph.Observer); ok {
		opts = append(opts, framegraph.WithObserver(obs))
	}

	for frame := range *frames {
		debug := &framegraph.DebugOutput{Output: swapchain, Selected: *show}
		g := framegraph.New(opts...)
		buildFrame(g, swapchain, sc)
		if err := g.Execute(debug); err != nil {
			log.Fatalf("Frame %d failed: %v", frame, err)
		}
		released := p.EndFrame()
		log.Printf("Frame %d: %d passes, %d resources, %d pooled objects released", frame, g.Passes(), g.Resources(), released)
		if frame == 0 && *show == "" {
			log.Printf("Debug-selectable textures: %v", debug.Available)
		}
	}
	log.Printf("Pool: %v", p.Stats())

	if err := writeRecording(dev, cfg.Capture, *dump); err != nil {
		log.Fatalf("Failed to write recording: %v", err)
	}
}

func openBackend(name string) (backend.Device, string, error) {
	if name == "" {
		return backend.Default()
	}
	dev, err := backend.Open(name)
	return dev, name, err
}

func swapchainDesc(w, h uint32) framegraph.TextureDesc {
	return framegraph.TextureDesc{
		Name: "swapchain", Width: w, Height: h, Depth: 1, ArraySize: 1, MipLevels: 1, SampleCount: 1,
		Format: gputypes.TextureFormatBGRA8Unorm,
		Usage:  gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopyDst,
	}
}

// buildFrame declares the passes of one deferred frame.
func buildFrame(g *framegraph.Graph, swapchain framegraph.GPUTexture, sc framegraph.TextureDesc) {
	target := func(name string, format gputypes.TextureFormat) framegraph.TextureDesc {
		return framegraph.TextureDesc{Name: name, Width: sc.Width, Height: sc.Height, Format: format}
	}
	rt := framegraph.TextureView(framegraph.StateRenderTarget)
	read := framegraph.TextureView(framegraph.StatePixelShaderRead)

	albedo := g.CreateTexture(target("albedo", gputypes.TextureFormatRGBA8Unorm))
	normal := g.CreateTexture(target("normal", gputypes.TextureFormatRGBA16Float))
	depth := g.CreateTexture(target("depth", gputypes.TextureFormatDepth32Float))
	ao := g.CreateTexture(target("ao", gputypes.TextureFormatR32Float))
	hdr := g.CreateTexture(target("hdr", gputypes.TextureFormatRGBA16Float))
	wire := g.CreateTexture(target("wireframe", gputypes.TextureFormatRGBA8Unorm))
	lights := g.CreateBuffer(framegraph.BufferDesc{Name: "lights", Size: 64 * 1024})
	out := g.ImportResource(swapchain, framegraph.StatePresent, "", nil, nil)

	upload := g.AddPass("upload lights", framegraph.PassTransfer)
	upload.UseResource(lights, framegraph.SubresourceRange{}, framegraph.StateTransferWrite, &lights)
	upload.SetFunction(framegraph.TransferFunc(func(g *framegraph.Graph, ctx framegraph.TransferContext) {
		ctx.WriteBuffer(g.GetBuffer(lights), 0, make([]byte, 256))
	}))

	gbuf := g.AddPass("gbuffer", framegraph.PassRender)
	gbuf.SetColour(0, albedo, rt, &albedo)
	gbuf.SetColour(1, normal, rt, &normal)
	gbuf.SetDepthStencil(depth, framegraph.TextureView(framegraph.StateDepthStencilWrite), &depth)
	gbuf.ClearDepth(1)
	gbuf.SetFunction(framegraph.RenderFunc(func(*framegraph.Graph, framegraph.RenderCommandList) {}))

	ssao := g.AddPass("ssao", framegraph.PassCompute)
	ssao.CreateView(depth, framegraph.TextureView(framegraph.StateComputeShaderRead), nil)
	ssao.CreateView(ao, framegraph.TextureView(framegraph.StateComputeShaderWrite), &ao)
	ssao.SetFunction(framegraph.ComputeFunc(func(*framegraph.Graph, framegraph.ComputeCommandList) {}))

	lighting := g.AddPass("lighting", framegraph.PassRender)
	lighting.CreateView(albedo, read, nil)
	lighting.CreateView(normal, read, nil)
	lighting.CreateView(ao, read, nil)
	lighting.CreateView(lights, framegraph.BufferView(framegraph.StatePixelShaderRead), nil)
	lighting.SetColour(0, hdr, rt, &hdr)
	lighting.SetFunction(framegraph.RenderFunc(func(*framegraph.Graph, framegraph.RenderCommandList) {}))

	// Nothing reads the wireframe overlay, so the pass is culled.
	overlay := g.AddPass("wireframe", framegraph.PassRender)
	overlay.SetColour(0, wire, rt, nil)
	overlay.SetFunction(framegraph.RenderFunc(func(*framegraph.Graph, framegraph.RenderCommandList) {}))

	tonemap := g.AddPass("tonemap", framegraph.PassRender)
	tonemap.CreateView(hdr, read, nil)
	tonemap.SetColour(0, out, rt, nil)
	tonemap.SetFunction(framegraph.RenderFunc(func(*framegraph.Graph, framegraph.RenderCommandList) {}))
}

// writeRecording saves and prints what a recording backend captured.
func writeRecording(dev backend.Device, path string, dump bool) error {
	if path == "" && !dump {
		return nil
	}
	rec, ok := dev.(*recording.Backend)
	if !ok {
		return errors.New("capture and dump need the recording backend")
	}
	r := rec.Recording()
	if dump {
		if err := r.Dump(os.Stdout); err != nil {
			return err
		}
	}
	if path != "" {
		if err := r.Save(path); err != nil {
			return fmt.Errorf("save %s: %w", path, err)
		}
		log.Printf("Capture saved to %s (%d commands)", path, r.Len())
	}
	return nil
}
