package frame

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gogpu/wrcore/config"
	"github.com/gogpu/wrcore/device"
	"github.com/gogpu/wrcore/glapi"
	"github.com/gogpu/wrcore/resultchan"
	"github.com/gogpu/wrcore/shaders"
)

func newTestRenderer(t *testing.T) (*Renderer, *glapi.Mock) {
	t.Helper()
	mock := glapi.NewMock()
	dev, err := device.New(mock, config.Default(), false, false, nil)
	require.NoError(t, err)

	set := ShaderSet{
		Primitives: map[string]shaders.Source{
			ShaderRectangle: {Descriptor: DescPrimInstances},
			ShaderComposite: {Descriptor: DescPrimInstances},
		},
	}
	channel := resultchan.NewChannel(16)
	r, err := NewRenderer(dev, config.Default(), set, "", channel, nil, nil, nil, nil)
	require.NoError(t, err)
	return r, mock
}

// lastCallIndex returns the index of the last recorded call with the
// given name, or -1.
func lastCallIndex(mock *glapi.Mock, name string) int {
	for i := len(mock.Calls) - 1; i >= 0; i-- {
		if mock.Calls[i].Name == name {
			return i
		}
	}
	return -1
}

// A single axis-aligned rectangle into the framebuffer pass draws one
// instanced draw call with the rectangle program compiled once, and
// blend and depth are disabled again after the last draw.
func TestSingleRectangleToFramebuffer(t *testing.T) {
	r, mock := newTestRenderer(t)

	f := &Frame{
		Passes: []Pass{{
			IsFramebuffer: true,
			ColorTargets: []ColorTarget{{
				OpaqueBatches: []InstanceBatch{{
					Kind:          BatchRectangle,
					TransformKind: RectAxisAligned,
					Instances:     [][4]int32{{0, 0, 0, 0}},
				}},
			}},
		}},
		WindowWidth:  800,
		WindowHeight: 600,
		CacheSize:    512,
	}
	r.currentFrame = f

	require.NoError(t, r.Render(800, 600))

	require.Equal(t, 1, mock.CallCount("DrawElementsInstanced"))
	require.Equal(t, 1, mock.CallCount("LinkProgram"))

	lastDraw := lastCallIndex(mock, "DrawElementsInstanced")
	var disabledBlend, disabledDepth bool
	for _, c := range mock.Calls[lastDraw+1:] {
		if c.Name == "Disable" {
			switch c.Args {
			case fmt.Sprint(glapi.BLEND):
				disabledBlend = true
			case fmt.Sprint(glapi.DEPTH_TEST):
				disabledDepth = true
			}
		}
	}
	require.True(t, disabledBlend, "blend must be disabled after the last draw")
	require.True(t, disabledDepth, "depth must be disabled after the last draw")
}

// Before the first pass, both cache samplers bind the persistent 1x1
// dummy texture; before the second pass, they bind the first pass's
// color output.
func TestDummyCacheThenPriorPassOutputs(t *testing.T) {
	r, mock := newTestRenderer(t)

	f := &Frame{
		Passes: []Pass{
			{
				Required: TargetKindsRequired{Color: true},
				ColorTargets: []ColorTarget{{
					OpaqueBatches: []InstanceBatch{{Kind: BatchRectangle, Instances: [][4]int32{{0, 0, 0, 0}}}},
				}},
			},
			{
				IsFramebuffer: true,
				ColorTargets: []ColorTarget{{
					OpaqueBatches: []InstanceBatch{{Kind: BatchRectangle, Instances: [][4]int32{{0, 0, 0, 0}}}},
				}},
			},
		},
		WindowWidth:  800,
		WindowHeight: 600,
		CacheSize:    512,
	}
	r.currentFrame = f

	require.NoError(t, r.Render(800, 600))
	require.Equal(t, 2, len(mock.CallsNamed("DrawElementsInstanced")))

	// Within the rendered frame (after BeginFrame's PixelStorei), the
	// dummy texture must be bound during the first pass's sampler setup.
	frameStart := lastCallIndex(mock, "PixelStorei")
	require.NotEqual(t, -1, frameStart)
	dummy := fmt.Sprint(r.dummyCache.Raw())
	var sawDummyBind bool
	for _, c := range mock.Calls[frameStart:] {
		if c.Name != "BindTexture" {
			continue
		}
		fields := strings.Fields(c.Args)
		if len(fields) == 2 && fields[1] == dummy {
			sawDummyBind = true
			break
		}
	}
	require.True(t, sawDummyBind, "dummy cache texture must be bound before the first pass draws")

	// After the first pass's draw, the second pass binds the first pass's
	// color output (the pool's only color texture) to a cache sampler.
	firstDraw := -1
	for i, c := range mock.Calls {
		if c.Name == "DrawElementsInstanced" {
			firstDraw = i
			break
		}
	}
	colorTex := r.pool.free[targetKindColor][0]
	wantBind := fmt.Sprint(glapi.TEXTURE_2D_ARRAY, colorTex.Raw())
	var sawColorBind bool
	for _, c := range mock.Calls[firstDraw+1:] {
		if c.Name == "BindTexture" && c.Args == wantBind {
			sawColorBind = true
			break
		}
	}
	require.True(t, sawColorBind, "first pass's color output must be bound before the second pass draws")
}

// Every opaque batch is submitted with depth write on before any alpha
// batch is submitted with depth write off, within one color target.
func TestOpaqueBeforeAlpha(t *testing.T) {
	r, mock := newTestRenderer(t)

	f := &Frame{
		Passes: []Pass{{
			IsFramebuffer: true,
			ColorTargets: []ColorTarget{{
				OpaqueBatches: []InstanceBatch{
					{Kind: BatchRectangle, Instances: [][4]int32{{0, 0, 0, 0}}},
				},
				AlphaBatches: []InstanceBatch{
					{Kind: BatchRectangle, Instances: [][4]int32{{1, 1, 1, 1}}},
				},
			}},
		}},
		WindowWidth:  800,
		WindowHeight: 600,
		CacheSize:    512,
	}
	r.currentFrame = f
	require.NoError(t, r.Render(800, 600))

	depthMaskTrueIdx, depthMaskFalseIdx := -1, -1
	for i, c := range mock.Calls {
		if c.Name == "DepthMask" {
			if c.Args == "true" && depthMaskTrueIdx == -1 {
				depthMaskTrueIdx = i
			}
			if c.Args == "false" && depthMaskFalseIdx == -1 {
				depthMaskFalseIdx = i
			}
		}
	}
	require.NotEqual(t, -1, depthMaskTrueIdx)
	require.NotEqual(t, -1, depthMaskFalseIdx)
	require.Less(t, depthMaskTrueIdx, depthMaskFalseIdx)
}

// A composite targeting the default framebuffer reconstructs its source
// rect with a Y flip against the framebuffer height and blits into the
// readback task's layer of the prior pass's color cache texture.
func TestCompositeYFlip(t *testing.T) {
	r, mock := newTestRenderer(t)

	f := &Frame{
		Passes: []Pass{
			// First pass allocates a four-layer color cache so the
			// composite's readback layer index (3) is in range.
			{
				Required:     TargetKindsRequired{Color: true},
				ColorTargets: []ColorTarget{{}, {}, {}, {}},
			},
			{
				IsFramebuffer: true,
				ColorTargets: []ColorTarget{{
					AlphaBatches: []InstanceBatch{{
						Kind:      BatchComposite,
						Instances: [][4]int32{{0, 0, 0, 0}},
					}},
					Composites: map[int]CompositeInstance{
						0: {ReadbackTaskIndex: 0, BackdropTaskIndex: 1, SourceTaskIndex: 2},
					},
				}},
			},
		},
		RenderTaskData: []RenderTaskData{
			{OriginX: 100, OriginY: 200, Width: 64, Height: 64, TargetLayer: 3},
			{OriginX: 50, OriginY: 60, ContentOriginX: 5, ContentOriginY: 7},
			{ContentOriginX: 10, ContentOriginY: 20},
		},
		WindowWidth:  800,
		WindowHeight: 600,
		CacheSize:    512,
	}
	r.currentFrame = f

	require.NoError(t, r.Render(800, 600))

	blits := mock.CallsNamed("BlitFramebuffer")
	require.Len(t, blits, 1)
	fields := strings.Fields(blits[0].Args)
	require.GreaterOrEqual(t, len(fields), 8)
	// src x = 50-5+10 = 55, src y = 600-64-(60-7+20) = 463, 64x64 rect;
	// dest is vertically flipped: (100, 264) to (164, 200).
	require.Equal(t, []string{"55", "463", "119", "527", "100", "264", "164", "200"}, fields[:8])
}

// The external-images table is empty at the end of every Render call,
// even when there are no external images to lock.
func TestUnlockCompletenessNoExternalImages(t *testing.T) {
	r, _ := newTestRenderer(t)
	f := &Frame{
		Passes: []Pass{{
			IsFramebuffer: true,
			ColorTargets: []ColorTarget{{
				OpaqueBatches: []InstanceBatch{{Kind: BatchRectangle, Instances: [][4]int32{{0, 0, 0, 0}}}},
			}},
		}},
		WindowWidth: 800, WindowHeight: 600, CacheSize: 512,
	}
	r.currentFrame = f
	require.NoError(t, r.Render(800, 600))
	require.True(t, r.images.Empty())
}

// Render is a no-op (drains messages but issues no draws) when no frame
// has ever arrived.
func TestRenderNoOpWithoutStagedFrame(t *testing.T) {
	r, mock := newTestRenderer(t)
	require.NoError(t, r.Render(800, 600))
	require.Equal(t, 0, mock.CallCount("DrawElementsInstanced"))
}

// An UpdateResources message with CancelRendering set drops a staged
// frame so the next Render is a no-op.
func TestCancelRenderingDropsStagedFrame(t *testing.T) {
	r, mock := newTestRenderer(t)
	f := &Frame{
		Passes: []Pass{{
			IsFramebuffer: true,
			ColorTargets: []ColorTarget{{
				OpaqueBatches: []InstanceBatch{{Kind: BatchRectangle, Instances: [][4]int32{{0, 0, 0, 0}}}},
			}},
		}},
		WindowWidth: 800, WindowHeight: 600, CacheSize: 512,
	}
	r.currentFrame = f
	r.channel.TrySend(resultchan.Msg{UpdateResources: &resultchan.UpdateResourcesMsg{CancelRendering: true}})

	require.NoError(t, r.Render(800, 600))
	require.Equal(t, 0, mock.CallCount("DrawElementsInstanced"))
}
