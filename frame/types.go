// Package frame implements the frame data model and the frame executor:
// a retained, pre-built render graph of passes, each containing alpha
// and color targets populated with typed instance batches, consumed
// once per frame and turned into device draw calls.
package frame

import "github.com/gogpu/wrcore/gpucache"

// AlphaBatchKind classifies one instance batch's primitive type.
type AlphaBatchKind int

const (
	BatchRectangle AlphaBatchKind = iota
	BatchLine
	BatchTextRun
	BatchImage
	BatchYUVImage
	BatchBorderCorner
	BatchBorderEdge
	BatchGradient
	BatchAngleGradient
	BatchRadialGradient
	BatchBoxShadow
	BatchCacheImage
	BatchBlend
	BatchComposite
	BatchHWComposite
	BatchSplitComposite
)

// BufferKind classifies the source buffer backing an Image/YUVImage
// batch.
type BufferKind int

const (
	BufferTextureCache BufferKind = iota
	BufferExternalNative
	BufferExternalBuffer
)

// YUVFormat and YUVColorSpace parameterize BatchYUVImage batches.
type YUVFormat int
type YUVColorSpace int

// TransformedRectKind classifies a primitive's transform as
// axis-aligned or complex, selecting the shader variant.
type TransformedRectKind int

const (
	RectAxisAligned TransformedRectKind = iota
	RectComplex
)

// SubpixelColor is the constant blend color used by subpixel-AA text
// batches.
type SubpixelColor struct{ R, G, B, A float32 }

// InstanceBatch is a group of primitives sharing a vertex format and
// shader variant, drawn with one instanced draw call.
type InstanceBatch struct {
	Kind          AlphaBatchKind
	TransformKind TransformedRectKind
	Subpixel      *SubpixelColor // non-nil only for BatchTextRun subpixel batches
	BufferKind    BufferKind     // meaningful for BatchImage/BatchYUVImage
	YUVFormat     YUVFormat
	YUVColorSpace YUVColorSpace
	Instances     [][4]int32 // raw per-instance attribute data, shader-defined layout
	ColorTexture  SourceTextureRef
}

// SourceTextureRef resolves to a device texture at draw time.
type SourceTextureRef struct {
	Kind         SourceTextureKind
	WebGLID      uint32
	ExternalID   uint64
	ExternalChan int
	CacheIndex   int
}

type SourceTextureKind int

const (
	SourceInvalid SourceTextureKind = iota
	SourceWebGL
	SourceExternal
	SourceTextureCache
)

// RenderTaskData is one row of the per-frame render-task table uploaded
// as a vertex data texture and referenced by composite instances.
type RenderTaskData struct {
	// OriginX/Y and Width/Height describe the task's rectangle in its
	// own target's coordinate space.
	OriginX, OriginY float32
	Width, Height    float32
	// ContentOriginX/Y is the task's content offset, a second, distinct
	// position from OriginX/Y used by the composite source-rect
	// reconstruction.
	ContentOriginX, ContentOriginY float32
	// TargetLayer is which cache-texture layer this task's content lives in.
	TargetLayer int32
}

// CompositeInstance is the single-instance payload a BatchComposite
// batch must carry; a composite batch with any other instance count is
// a programmer error.
type CompositeInstance struct {
	ReadbackTaskIndex int
	BackdropTaskIndex int
	SourceTaskIndex   int
}

// ClipItemKind classifies one clip-source sub-batch item.
type ClipItemKind int

const (
	ClipBorderClear ClipItemKind = iota
	ClipBorderDotDash
	ClipRoundedRect
	ClipImageMask
)

// ClipItem is one entry in an alpha target's clip-source sub-batch list.
type ClipItem struct {
	Kind        ClipItemKind
	MaskTexture SourceTextureRef // only meaningful for ClipImageMask
	Instances   [][4]int32
}

// AlphaTarget is one alpha-mask target within a pass.
type AlphaTarget struct {
	UsedRect  struct{ X, Y, W, H int32 }
	ClipItems []ClipItem
}

// BlurBatch is one separable-blur sub-batch.
type BlurBatch struct {
	Instances [][4]int32 // the third int32 is the direction: 0 vertical, 1 horizontal
}

// ColorTarget is one color target within a pass, carrying every
// sub-batch kind the color-target drawing algorithm walks in order.
type ColorTarget struct {
	UsedRect *struct{ X, Y, W, H int32 } // nil means "no explicit used rect"

	Blurs          []BlurBatch
	BoxShadowCache []InstanceBatch
	TextRunCache   []InstanceBatch
	LineCache      []InstanceBatch

	// OpaqueBatches submit front-to-back, i.e. in REVERSE slice order.
	OpaqueBatches []InstanceBatch
	AlphaBatches  []InstanceBatch

	// Composites maps an AlphaBatches index to its composite payload,
	// for BatchComposite entries.
	Composites map[int]CompositeInstance
}

// TargetKindsRequired flags which target kinds a pass needs allocated.
type TargetKindsRequired struct {
	Alpha bool
	Color bool
}

// Pass is one render-graph stage producing color and/or alpha targets
// consumed by subsequent passes or the framebuffer.
type Pass struct {
	IsFramebuffer bool
	Required      TargetKindsRequired
	AlphaTargets  []AlphaTarget
	ColorTargets  []ColorTarget
}

// TextureUpdateOp is one pending texture-cache mutation.
type TextureUpdateOp struct {
	Kind TextureUpdateKind

	CacheID int // logical cache-texture id (index into the cache-texture-id map)

	Width, Height int
	Format        int // handle.PixelFormat
	Filter        int // handle.FilterMode
	Mode          int // handle.RenderTargetModeKind

	PageX, PageY int
	Stride       int
	Offset       int
	Data         []byte

	// HasExternal distinguishes a Create/Update op whose data comes from
	// an external-image handler from one carrying Data directly; the
	// zero value of ExternalID is itself a valid external id, so this
	// can't be inferred from ExternalID alone.
	HasExternal     bool
	ExternalKind    BufferKind
	ExternalID      uint64
	ExternalChannel int

	Rect struct{ X, Y, W, H int }
}

// TextureUpdateKind enumerates the texture-cache operations.
type TextureUpdateKind int

const (
	UpdateCreate TextureUpdateKind = iota
	UpdateGrow
	UpdateUpdate
	UpdateForExternalBuffer
	UpdateFree
)

// Frame is the pre-built input to one Render call. The executor does not
// mutate it, except that Ingest takes GpuCacheUpdates out (setting it to
// nil) when the frame arrives through the result channel.
type Frame struct {
	Passes []Pass

	LayerTextureData []float32 // marshalled by vertextex as [4]float32 texels
	RenderTaskData   []RenderTaskData

	GpuCacheUpdates  *gpucache.UpdateList
	DeferredResolves []DeferredResolveInput

	WindowWidth, WindowHeight int
	CacheSize                 int
	BackgroundColor           [4]float32
}

// DeferredResolveInput mirrors resultchan.DeferredResolve but is defined
// here to avoid a frame<->resultchan import cycle; the executor
// translates between the two at the ingest boundary.
type DeferredResolveInput struct {
	ExternalID     uint64
	Channel        int
	ImageType      int
	CacheU, CacheV int
}
