// Package handle defines the opaque GPU object identifiers and the
// typed records the device owns about them. Handles never carry GPU
// state themselves, only what lookup requires.
package handle

import "fmt"

// TextureTargetKind classifies what a texture handle is bound as.
type TextureTargetKind int

const (
	Target2D TextureTargetKind = iota
	Target2DArray
	TargetRectangle
	TargetExternal
)

func (k TextureTargetKind) String() string {
	switch k {
	case Target2D:
		return "2D"
	case Target2DArray:
		return "2D-array"
	case TargetRectangle:
		return "rectangle"
	case TargetExternal:
		return "external"
	default:
		return fmt.Sprintf("TextureTargetKind(%d)", int(k))
	}
}

// Texture is an opaque identifier for a GPU texture object.
type Texture struct {
	id     uint32
	Target TextureTargetKind
}

// InvalidTexture is the sentinel "no texture" value; textures are the
// only handle class with an invalid sentinel.
var InvalidTexture = Texture{id: 0, Target: Target2D}

// NewTexture wraps a raw GL name as a Texture handle of the given target kind.
func NewTexture(id uint32, target TextureTargetKind) Texture {
	return Texture{id: id, Target: target}
}

// Raw returns the underlying GL object name.
func (t Texture) Raw() uint32 { return t.id }

// IsValid reports whether this handle is not the invalid sentinel.
func (t Texture) IsValid() bool { return t.id != 0 }

func (t Texture) String() string {
	return fmt.Sprintf("Texture(%d,%s)", t.id, t.Target)
}

// simpleHandle is the shared representation for handle classes with no
// invalid sentinel.
type simpleHandle struct{ id uint32 }

// Raw returns the underlying GL object name.
func (h simpleHandle) Raw() uint32 { return h.id }

// Framebuffer is an opaque identifier for a GPU framebuffer object.
type Framebuffer struct{ simpleHandle }

// NewFramebuffer wraps a raw GL name as a Framebuffer handle.
func NewFramebuffer(id uint32) Framebuffer { return Framebuffer{simpleHandle{id}} }

func (f Framebuffer) String() string { return fmt.Sprintf("Framebuffer(%d)", f.id) }

// Renderbuffer is an opaque identifier for a GPU renderbuffer object.
type Renderbuffer struct{ simpleHandle }

// NewRenderbuffer wraps a raw GL name as a Renderbuffer handle.
func NewRenderbuffer(id uint32) Renderbuffer { return Renderbuffer{simpleHandle{id}} }

func (r Renderbuffer) String() string { return fmt.Sprintf("Renderbuffer(%d)", r.id) }

// VertexBuffer is an opaque identifier for a GPU vertex buffer object.
type VertexBuffer struct{ simpleHandle }

// NewVertexBuffer wraps a raw GL name as a VertexBuffer handle.
func NewVertexBuffer(id uint32) VertexBuffer { return VertexBuffer{simpleHandle{id}} }

func (v VertexBuffer) String() string { return fmt.Sprintf("VertexBuffer(%d)", v.id) }

// IndexBuffer is an opaque identifier for a GPU index buffer object.
type IndexBuffer struct{ simpleHandle }

// NewIndexBuffer wraps a raw GL name as an IndexBuffer handle.
func NewIndexBuffer(id uint32) IndexBuffer { return IndexBuffer{simpleHandle{id}} }

func (i IndexBuffer) String() string { return fmt.Sprintf("IndexBuffer(%d)", i.id) }

// PixelBuffer is an opaque identifier for a GPU pixel-buffer object (PBO).
type PixelBuffer struct{ simpleHandle }

// NewPixelBuffer wraps a raw GL name as a PixelBuffer handle.
func NewPixelBuffer(id uint32) PixelBuffer { return PixelBuffer{simpleHandle{id}} }

func (p PixelBuffer) String() string { return fmt.Sprintf("PixelBuffer(%d)", p.id) }

// VertexArray is an opaque identifier for a GPU vertex array object (VAO).
type VertexArray struct{ simpleHandle }

// NewVertexArray wraps a raw GL name as a VertexArray handle.
func NewVertexArray(id uint32) VertexArray { return VertexArray{simpleHandle{id}} }

func (v VertexArray) String() string { return fmt.Sprintf("VertexArray(%d)", v.id) }

// Program is an opaque identifier for a linked GPU shader program.
type Program struct{ simpleHandle }

// NewProgram wraps a raw GL name as a Program handle.
func NewProgram(id uint32) Program { return Program{simpleHandle{id}} }

func (p Program) String() string { return fmt.Sprintf("Program(%d)", p.id) }

// PixelFormat enumerates the texture pixel formats the device
// understands.
type PixelFormat int

const (
	FormatInvalid PixelFormat = iota
	FormatA8
	FormatRG8
	FormatRGB8
	FormatBGRA8
	FormatRGBAF32
)

func (f PixelFormat) String() string {
	switch f {
	case FormatInvalid:
		return "Invalid"
	case FormatA8:
		return "A8"
	case FormatRG8:
		return "RG8"
	case FormatRGB8:
		return "RGB8"
	case FormatBGRA8:
		return "BGRA8"
	case FormatRGBAF32:
		return "RGBA-F32"
	default:
		return fmt.Sprintf("PixelFormat(%d)", int(f))
	}
}

// BytesPerPixel returns the storage cost of one texel in this format.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case FormatA8:
		return 1
	case FormatRG8:
		return 2
	case FormatRGB8:
		return 3
	case FormatBGRA8:
		return 4
	case FormatRGBAF32:
		return 16
	default:
		return 0
	}
}

// FilterMode enumerates texture sampling filters.
type FilterMode int

const (
	FilterNearest FilterMode = iota
	FilterLinear
)

func (f FilterMode) String() string {
	if f == FilterLinear {
		return "linear"
	}
	return "nearest"
}

// RenderTargetModeKind classifies whether/how a texture is usable as a
// render target.
type RenderTargetModeKind int

const (
	RenderTargetNone RenderTargetModeKind = iota
	RenderTargetSimple
	RenderTargetLayered
)

// RenderTargetMode describes whether and how a texture is usable as a
// render target: None, SimpleRenderTarget, or LayerRenderTarget(N).
type RenderTargetMode struct {
	Kind       RenderTargetModeKind
	LayerCount int // only meaningful for RenderTargetLayered
}

// NoRenderTarget is the zero-value "plain texture" mode.
var NoRenderTarget = RenderTargetMode{Kind: RenderTargetNone}

// SimpleRenderTarget describes a single-layer render target.
func SimpleRenderTarget() RenderTargetMode {
	return RenderTargetMode{Kind: RenderTargetSimple, LayerCount: 1}
}

// LayerRenderTarget describes an N-layer 2D-array render target.
func LayerRenderTarget(n int) RenderTargetMode {
	return RenderTargetMode{Kind: RenderTargetLayered, LayerCount: n}
}

func (m RenderTargetMode) String() string {
	switch m.Kind {
	case RenderTargetNone:
		return "none"
	case RenderTargetSimple:
		return "simple-render-target"
	case RenderTargetLayered:
		return fmt.Sprintf("layer-render-target(%d)", m.LayerCount)
	default:
		return "unknown"
	}
}

// TextureRecord is everything the device tracks about one texture
// handle. Invariants:
//
//  1. RenderTargetMode.Kind == RenderTargetLayered implies
//     Target == Target2DArray and len(Framebuffers) == LayerCount.
//  2. DepthRenderbuffer.IsValid() iff at least one layer is a render target.
//  3. Format == FormatInvalid means deinitialized storage; the handle may
//     remain allocated.
type TextureRecord struct {
	Handle            Texture
	Width, Height     int
	Format            PixelFormat
	Filter            FilterMode
	RenderTarget      RenderTargetMode
	Framebuffers      []Framebuffer // one per layer; empty if not a render target
	DepthRenderbuffer Renderbuffer
	hasDepthRBO       bool
}

// SetDepthRenderbuffer records the depth renderbuffer shared by every
// layer of a render-target texture.
func (r *TextureRecord) SetDepthRenderbuffer(rbo Renderbuffer) {
	r.DepthRenderbuffer = rbo
	r.hasDepthRBO = true
}

// HasDepthRenderbuffer reports whether a depth renderbuffer is attached.
func (r *TextureRecord) HasDepthRenderbuffer() bool { return r.hasDepthRBO }

// ClearDepthRenderbuffer removes the depth renderbuffer association
// (used when deinitializing storage).
func (r *TextureRecord) ClearDepthRenderbuffer() {
	r.DepthRenderbuffer = Renderbuffer{}
	r.hasDepthRBO = false
}

// CheckInvariants validates the three invariants above. It is intended
// for use in tests and in debug-build assertions, not on the hot path.
func (r *TextureRecord) CheckInvariants() error {
	if r.RenderTarget.Kind == RenderTargetLayered {
		if r.Handle.Target != Target2DArray {
			return fmt.Errorf("layer-render-target(%d) requires Target2DArray, got %s", r.RenderTarget.LayerCount, r.Handle.Target)
		}
		if len(r.Framebuffers) != r.RenderTarget.LayerCount {
			return fmt.Errorf("layer-render-target(%d) requires %d framebuffers, got %d", r.RenderTarget.LayerCount, r.RenderTarget.LayerCount, len(r.Framebuffers))
		}
	}
	wantDepth := len(r.Framebuffers) > 0
	if r.HasDepthRenderbuffer() != wantDepth {
		return fmt.Errorf("depth renderbuffer presence (%v) must equal has-render-target-layers (%v)", r.HasDepthRenderbuffer(), wantDepth)
	}
	return nil
}

// BufferOwnership records whether a vertex array allocated a buffer
// itself or borrowed it from a sibling array.
type BufferOwnership int

const (
	Owned BufferOwnership = iota
	Borrowed
)

// VertexArrayRecord is everything the device tracks about one VAO. On
// release, only owned buffers are deleted.
type VertexArrayRecord struct {
	Handle         VertexArray
	Indices        IndexBuffer
	MainVertices   VertexBuffer
	Instances      VertexBuffer
	InstanceStride int

	OwnsIndices      BufferOwnership
	OwnsMainVertices BufferOwnership
	OwnsInstances    BufferOwnership
}

// OwnedBuffersToRelease returns the handles this record is responsible
// for deleting, per the Owned/Borrowed flags.
func (v *VertexArrayRecord) OwnedBuffersToRelease() (indices *IndexBuffer, mainVerts, instances *VertexBuffer) {
	if v.OwnsIndices == Owned {
		h := v.Indices
		indices = &h
	}
	if v.OwnsMainVertices == Owned {
		h := v.MainVertices
		mainVerts = &h
	}
	if v.OwnsInstances == Owned {
		h := v.Instances
		instances = &h
	}
	return
}
