// Command wrcoredemo is a minimal glfw-hosted driver that wires the
// device, resource pools, shader registry, and frame executor together
// for manual smoke testing. Not part of the module's public surface; it
// only exercises the render path end to end.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"runtime"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/gogpu/wrcore/config"
	"github.com/gogpu/wrcore/device"
	"github.com/gogpu/wrcore/frame"
	"github.com/gogpu/wrcore/glapi"
	"github.com/gogpu/wrcore/resultchan"
	"github.com/gogpu/wrcore/shaders"
)

func init() {
	// GLFW event handling must run on the main OS thread; the device is
	// only ever driven from this goroutine.
	runtime.LockOSThread()
}

func main() {
	width := flag.Int("width", 800, "window width")
	height := flag.Int("height", 600, "window height")
	flag.Parse()

	if err := run(*width, *height); err != nil {
		log.Fatal(err)
	}
}

func run(width, height int) error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("wrcoredemo: glfw init: %w", err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 6)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	window, err := glfw.CreateWindow(width, height, "wrcore demo", nil, nil)
	if err != nil {
		return fmt.Errorf("wrcoredemo: create window: %w", err)
	}
	window.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		return fmt.Errorf("wrcoredemo: gl init: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	dev, err := device.New(glapi.NewReal(), config.Default(), false, false, logger)
	if err != nil {
		return fmt.Errorf("wrcoredemo: device init: %w", err)
	}

	channel := resultchan.NewChannel(config.Default().MaxEventsPerFrame)

	set := frame.ShaderSet{
		Primitives: map[string]shaders.Source{
			frame.ShaderRectangle: {
				VertexSrc:   demoVertexSrc,
				FragmentSrc: demoFragmentSrc,
				Descriptor:  frame.DescPrimInstances,
			},
		},
	}

	renderer, err := frame.NewRenderer(dev, config.Default(), set, "", channel, nil, nil, nil, logger)
	if err != nil {
		return fmt.Errorf("wrcoredemo: renderer init: %w", err)
	}
	renderer.SetDevicePixelRatio(1.0)

	// A single framebuffer pass with one axis-aligned rectangle.
	channel.TrySend(resultchan.Msg{NewFrame: &resultchan.NewFrameMsg{
		Frame: demoFrame(width, height),
	}})

	for !window.ShouldClose() {
		if err := renderer.Render(int32(width), int32(height)); err != nil {
			logger.Error("render failed", "err", err)
		}
		window.SwapBuffers()
		glfw.PollEvents()
		if window.GetKey(glfw.KeyEscape) == glfw.Press {
			window.SetShouldClose(true)
		}
	}
	return nil
}

func demoFrame(width, height int) *frame.Frame {
	return &frame.Frame{
		Passes: []frame.Pass{
			{
				IsFramebuffer: true,
				ColorTargets: []frame.ColorTarget{
					{
						OpaqueBatches: []frame.InstanceBatch{
							{
								Kind:          frame.BatchRectangle,
								TransformKind: frame.RectAxisAligned,
								Instances:     [][4]int32{{0, 0, 0, 0}},
							},
						},
					},
				},
			},
		},
		WindowWidth:     width,
		WindowHeight:    height,
		CacheSize:       config.Default().MinDeviceTextureSize,
		BackgroundColor: [4]float32{0.05, 0.05, 0.08, 1.0},
	}
}
