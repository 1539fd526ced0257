// Package device is the stateful GPU wrapper the rest of the rendering
// core drives. It tracks bound objects, owns handle lifecycles,
// compiles/links programs, uploads texture data, and issues draw calls.
// All GPU entry points are reached through a glapi.API value so tests
// can run against glapi.Mock without a live context.
package device

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/wrcore/config"
	"github.com/gogpu/wrcore/glapi"
	"github.com/gogpu/wrcore/handle"
	"github.com/gogpu/wrcore/internal/glerr"
	"github.com/gogpu/wrcore/internal/logx"

	"log/slog"
)

// FrameID is a monotonically increasing counter returned by BeginFrame.
type FrameID uint64

// boundTextureSlots is the number of texture units the device tracks
// bound-state for.
const boundTextureSlots = 16

// state holds every tracked binding slot, reset at the start of each
// frame.
type state struct {
	boundTextures [boundTextureSlots]uint32
	activeUnit    int
	boundProgram  uint32
	boundVAO      uint32
	boundPBO      uint32
	boundReadFBO  uint32
	boundDrawFBO  uint32
}

// Device owns the GPU context and every handle it has allocated. One
// Device exists per render thread for the lifetime of the session.
type Device struct {
	mu sync.Mutex

	gl    glapi.API
	log   *slog.Logger
	tun   config.Tunables
	isES  bool // selects the ES shader-version/format branch
	isARM bool // selects the ARM/AArch64 A8->BGRA format quirk

	insideFrame bool
	frameID     atomic.Uint64

	st state

	// defaultReadFBO/defaultDrawFBO hold the default framebuffers.
	// BeginFrame sets both to 0 (the window framebuffer); it does not
	// query the context for the framebuffers currently bound. EndFrame
	// rebinds framebuffer 0 for both read and draw.
	defaultReadFBO, defaultDrawFBO uint32

	textures map[handle.Texture]*handle.TextureRecord
	vaos     map[handle.VertexArray]*handle.VertexArrayRecord

	// residentBytes tracks approximate GPU-resident texture storage for
	// telemetry.
	residentBytes atomic.Int64
}

// New constructs a Device over the given GPU API binding. isES selects
// the OpenGL ES shader/format branch; isARM selects the ARM/AArch64 A8
// upload quirk. log may be nil to use the package-wide fallback logger.
func New(gl glapi.API, tun config.Tunables, isES, isARM bool, log *slog.Logger) (*Device, error) {
	d := &Device{
		gl:       gl,
		log:      logx.Or(log),
		tun:      tun,
		isES:     isES,
		isARM:    isARM,
		textures: make(map[handle.Texture]*handle.TextureRecord),
		vaos:     make(map[handle.VertexArray]*handle.VertexArrayRecord),
	}
	if max := gl.MaxTextureSize(); max < tun.MinDeviceTextureSize {
		return nil, &glerr.InitError{
			Reason: glerr.ReasonMaxTextureSize,
			Detail: fmt.Sprintf("driver max texture size %d < required %d", max, tun.MinDeviceTextureSize),
		}
	}
	return d, nil
}

// InsideFrame reports whether BeginFrame has been called without a
// matching EndFrame.
func (d *Device) InsideFrame() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.insideFrame
}

// FrameID returns the most recently assigned frame id (0 before the first
// BeginFrame).
func (d *Device) FrameID() FrameID {
	return FrameID(d.frameID.Load())
}

// ResidentBytes returns the approximate number of bytes of GPU texture
// storage currently allocated. Telemetry only; not load-bearing on any
// draw path.
func (d *Device) ResidentBytes() int64 {
	return d.residentBytes.Load()
}

// BeginFrame asserts the device is not already inside a frame, sets the
// default read/draw framebuffers to 0 (the currently-bound framebuffers
// are not queried), resets every tracked binding
// slot to invalid/zero, sets unpack alignment to 1, and returns a
// monotonically increasing frame id.
func (d *Device) BeginFrame(devicePixelRatio float32) FrameID {
	d.mu.Lock()
	defer d.mu.Unlock()
	glerr.Assertf(!d.insideFrame, "device: BeginFrame called while already inside a frame")

	d.insideFrame = true
	d.st = state{}
	d.defaultReadFBO = 0
	d.defaultDrawFBO = 0

	d.gl.PixelStorei(glapi.UNPACK_ALIGNMENT, 1)

	id := d.frameID.Add(1)
	d.log.Debug("begin_frame", "frame_id", id, "device_pixel_ratio", devicePixelRatio)
	return FrameID(id)
}

// EndFrame asserts the device is inside a frame, unbinds every tracked
// slot, and leaves frame-id bookkeeping for the next BeginFrame.
func (d *Device) EndFrame() {
	d.mu.Lock()
	defer d.mu.Unlock()
	glerr.Assertf(d.insideFrame, "device: EndFrame called while not inside a frame")

	for unit := range d.st.boundTextures {
		if d.st.boundTextures[unit] != 0 {
			d.gl.ActiveTexture(unit)
			d.gl.BindTexture(glapi.TEXTURE_2D, 0)
		}
	}
	d.gl.ActiveTexture(0)
	d.gl.UseProgram(0)
	d.gl.BindVertexArray(0)
	d.gl.BindBuffer(glapi.PIXEL_UNPACK_BUFFER, 0)
	d.gl.BindFramebuffer(glapi.READ_FRAMEBUFFER, 0)
	d.gl.BindFramebuffer(glapi.DRAW_FRAMEBUFFER, 0)

	d.st = state{}
	d.insideFrame = false
	d.log.Debug("end_frame", "frame_id", d.frameID.Load())
}

// bindTextureUnit is the shared idempotent-bind primitive for the
// numbered texture units: a re-bind of the already-bound handle issues
// no GL call.
func (d *Device) bindTextureUnit(unit int, target glapi.Enum, tex uint32) {
	glerr.Assertf(unit >= 0 && unit < boundTextureSlots, "device: texture unit %d out of range", unit)
	if d.st.activeUnit != unit {
		d.gl.ActiveTexture(unit)
		d.st.activeUnit = unit
	}
	if d.st.boundTextures[unit] == tex {
		return
	}
	d.gl.BindTexture(target, tex)
	d.st.boundTextures[unit] = tex
}

// BindTexture binds tex to the given sampler unit, skipping the
// underlying GL call if it is already bound there.
func (d *Device) BindTexture(unit int, tex handle.Texture) {
	d.mu.Lock()
	defer d.mu.Unlock()
	target := textureGLTarget(tex.Target)
	d.bindTextureUnit(unit, target, tex.Raw())
}

// bindProgramRaw is the idempotent program-bind primitive.
func (d *Device) bindProgramRaw(id uint32) {
	if d.st.boundProgram == id {
		return
	}
	d.gl.UseProgram(id)
	d.st.boundProgram = id
}

// bindVAORaw is the idempotent VAO-bind primitive.
func (d *Device) bindVAORaw(id uint32) {
	if d.st.boundVAO == id {
		return
	}
	d.gl.BindVertexArray(id)
	d.st.boundVAO = id
}

// bindPBORaw is the idempotent pixel-buffer-bind primitive.
func (d *Device) bindPBORaw(id uint32) {
	if d.st.boundPBO == id {
		return
	}
	d.gl.BindBuffer(glapi.PIXEL_UNPACK_BUFFER, id)
	d.st.boundPBO = id
}

// bindFramebufferRaw is the idempotent framebuffer-bind primitive. target
// must be READ_FRAMEBUFFER or DRAW_FRAMEBUFFER.
func (d *Device) bindFramebufferRaw(target glapi.Enum, id uint32) {
	switch target {
	case glapi.READ_FRAMEBUFFER:
		if d.st.boundReadFBO == id {
			return
		}
		d.gl.BindFramebuffer(target, id)
		d.st.boundReadFBO = id
	case glapi.DRAW_FRAMEBUFFER:
		if d.st.boundDrawFBO == id {
			return
		}
		d.gl.BindFramebuffer(target, id)
		d.st.boundDrawFBO = id
	default:
		glerr.Assertf(false, "device: bindFramebufferRaw: unsupported target %v", target)
	}
}

// textureGLTarget maps a handle.TextureTargetKind to its GL enum.
func textureGLTarget(k handle.TextureTargetKind) glapi.Enum {
	switch k {
	case handle.Target2D:
		return glapi.TEXTURE_2D
	case handle.Target2DArray:
		return glapi.TEXTURE_2D_ARRAY
	case handle.TargetRectangle:
		return glapi.TEXTURE_RECTANGLE
	case handle.TargetExternal:
		return glapi.TEXTURE_2D // external textures are bound as TEXTURE_2D; no other target is used for them.
	default:
		glerr.Assertf(false, "device: unknown texture target kind %v", k)
		return glapi.TEXTURE_2D
	}
}

// DepthFunc enumerates the depth comparison functions the device
// supports.
type DepthFunc int

const (
	DepthLess DepthFunc = iota
	DepthLessEqual
)

func (f DepthFunc) glEnum() glapi.Enum {
	if f == DepthLessEqual {
		return glapi.LEQUAL
	}
	return glapi.LESS
}

// BlendMode enumerates the blend modes the color-target drawing
// algorithm switches between.
type BlendMode int

const (
	BlendNone BlendMode = iota
	BlendAlpha
	BlendPremultipliedAlpha
	BlendSubpixelConstantColor
	BlendMultiply
	BlendMax
	BlendMin
)

// EnableDepth enables depth testing with the given comparison function
// and write mask.
func (d *Device) EnableDepth(fn DepthFunc, write bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gl.Enable(glapi.DEPTH_TEST)
	d.gl.DepthFunc(fn.glEnum())
	d.gl.DepthMask(write)
}

// DisableDepth disables depth testing entirely.
func (d *Device) DisableDepth() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gl.Disable(glapi.DEPTH_TEST)
}

// SetDepthWrite toggles the depth write mask without touching the test
// enable/function state.
func (d *Device) SetDepthWrite(write bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gl.DepthMask(write)
}

// DisableStencil disables stencil testing. Stencil is otherwise unused
// by this module.
func (d *Device) DisableStencil() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gl.Disable(glapi.STENCIL_TEST)
}

// EnableScissor enables scissor testing and sets the scissor rect.
func (d *Device) EnableScissor(x, y, w, h int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gl.Enable(glapi.SCISSOR_TEST)
	d.gl.Scissor(x, y, w, h)
}

// DisableScissor disables scissor testing.
func (d *Device) DisableScissor() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gl.Disable(glapi.SCISSOR_TEST)
}

// SetBlendMode enables blending (or disables it, for BlendNone) and
// configures the blend function/equation for the given mode.
// constantColor is only consulted for BlendSubpixelConstantColor.
func (d *Device) SetBlendMode(mode BlendMode, constantColor [4]float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if mode == BlendNone {
		d.gl.Disable(glapi.BLEND)
		return
	}
	d.gl.Enable(glapi.BLEND)
	switch mode {
	case BlendAlpha:
		d.gl.BlendFuncSeparate(glapi.SRC_ALPHA, glapi.ONE_MINUS_SRC_ALPHA, glapi.ONE, glapi.ONE_MINUS_SRC_ALPHA)
		d.gl.BlendEquation(glapi.FUNC_ADD)
	case BlendPremultipliedAlpha:
		d.gl.BlendFunc(glapi.ONE, glapi.ONE_MINUS_SRC_ALPHA)
		d.gl.BlendEquation(glapi.FUNC_ADD)
	case BlendSubpixelConstantColor:
		d.gl.BlendColor(constantColor[0], constantColor[1], constantColor[2], constantColor[3])
		d.gl.BlendFunc(glapi.CONSTANT_COLOR, glapi.ONE_MINUS_SRC_COLOR)
		d.gl.BlendEquation(glapi.FUNC_ADD)
	case BlendMultiply:
		d.gl.BlendFunc(glapi.DST_COLOR, glapi.ZERO)
		d.gl.BlendEquation(glapi.FUNC_ADD)
	case BlendMax:
		d.gl.BlendFunc(glapi.ONE, glapi.ONE)
		d.gl.BlendEquation(glapi.FUNC_MAX)
	case BlendMin:
		d.gl.BlendFunc(glapi.ONE, glapi.ONE)
		d.gl.BlendEquation(glapi.FUNC_MIN)
	default:
		glerr.Assertf(false, "device: unknown blend mode %d", int(mode))
	}
}

// ClearTarget clears the currently bound draw framebuffer. Either
// argument may be nil to skip clearing that buffer.
func (d *Device) ClearTarget(color *[4]float32, depth *float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var mask glapi.Enum
	if color != nil {
		d.gl.ClearColor(color[0], color[1], color[2], color[3])
		mask |= glapi.COLOR_BUFFER_BIT
	}
	if depth != nil {
		d.gl.ClearDepth(*depth)
		mask |= glapi.DEPTH_BUFFER_BIT
	}
	if mask != 0 {
		d.gl.Clear(mask)
	}
}

// ClearTargetRect clears a sub-rectangle of the currently bound draw
// framebuffer by applying a scissor rect around the clear, then
// restoring scissor-disabled state.
func (d *Device) ClearTargetRect(color *[4]float32, depth *float64, x, y, w, h int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gl.Enable(glapi.SCISSOR_TEST)
	d.gl.Scissor(x, y, w, h)
	var mask glapi.Enum
	if color != nil {
		d.gl.ClearColor(color[0], color[1], color[2], color[3])
		mask |= glapi.COLOR_BUFFER_BIT
	}
	if depth != nil {
		d.gl.ClearDepth(*depth)
		mask |= glapi.DEPTH_BUFFER_BIT
	}
	if mask != 0 {
		d.gl.Clear(mask)
	}
	d.gl.Disable(glapi.SCISSOR_TEST)
}

// BlitFramebuffer performs a color-only framebuffer blit with linear
// filtering.
func (d *Device) BlitFramebuffer(srcX0, srcY0, srcX1, srcY1, dstX0, dstY0, dstX1, dstY1 int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gl.BlitFramebuffer(srcX0, srcY0, srcX1, srcY1, dstX0, dstY0, dstX1, dstY1, glapi.COLOR_BUFFER_BIT, glapi.LINEAR)
}

// BindReadFramebuffer binds fbo as the read framebuffer, idempotently.
func (d *Device) BindReadFramebuffer(fbo handle.Framebuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bindFramebufferRaw(glapi.READ_FRAMEBUFFER, fbo.Raw())
}

// BindDrawFramebuffer binds fbo as the draw framebuffer, idempotently.
// A zero-value handle binds the default (window) framebuffer.
func (d *Device) BindDrawFramebuffer(fbo handle.Framebuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bindFramebufferRaw(glapi.DRAW_FRAMEBUFFER, fbo.Raw())
}

// Viewport sets the GL viewport.
func (d *Device) Viewport(x, y, w, h int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gl.Viewport(x, y, w, h)
}

// DrawIndexedTriangles issues a non-instanced indexed triangle draw
// (u16 or u32 depending on wide).
func (d *Device) DrawIndexedTriangles(count int32, wide bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	xtype := glapi.UNSIGNED_SHORT
	if wide {
		xtype = glapi.UNSIGNED_INT
	}
	d.gl.DrawElements(glapi.TRIANGLES, count, xtype)
}

// DrawLines issues a non-indexed line draw.
func (d *Device) DrawLines(first, count int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gl.DrawArrays(glapi.LINES, first, count)
}

// DrawIndexedTrianglesInstanced issues an indexed-instanced u16 triangle
// draw.
func (d *Device) DrawIndexedTrianglesInstanced(count, instanceCount int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gl.DrawElementsInstanced(glapi.TRIANGLES, count, glapi.UNSIGNED_SHORT, instanceCount)
}

// ReadPixels reads back a rectangle in either RGBA8 or BGRA8 into out.
// bgra selects the BGRA8 channel order.
func (d *Device) ReadPixels(x, y, w, h int32, bgra bool, out []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	format := glapi.RGBA
	if bgra {
		format = glapi.BGRA
	}
	d.gl.ReadPixels(x, y, w, h, format, glapi.UNSIGNED_BYTE, out)
}
