// The frame executor: consumes an immutable, pre-built Frame and issues
// device draw calls in per-pass order. It is the top-level driver the
// other packages feed into: device for GPU state, gpucache/vertextex
// for the per-frame data textures, shaders for program selection, and
// resultchan for message ingest and external-image resolution.

package frame

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/wrcore/config"
	"github.com/gogpu/wrcore/device"
	"github.com/gogpu/wrcore/gpucache"
	"github.com/gogpu/wrcore/handle"
	"github.com/gogpu/wrcore/internal/glerr"
	"github.com/gogpu/wrcore/internal/logx"
	"github.com/gogpu/wrcore/resultchan"
	"github.com/gogpu/wrcore/shaders"
	"github.com/gogpu/wrcore/vertextex"

	"log/slog"
)

// Texture units the executor assigns the named samplers to when it
// binds per-pass inputs. Units 0-2 are reserved for the three fixed
// color samplers.
const (
	unitCacheA8       = 3
	unitCacheRGBA8    = 4
	unitLayers        = 5
	unitRenderTasks   = 6
	unitResourceCache = 7
	unitDither        = 8
)

// DescPrimInstances, DescBlur, DescClip are the three vertex
// descriptors every vertex array the executor owns is built from.
var (
	DescPrimInstances = device.VertexDescriptor{Attributes: []device.VertexAttribute{
		{Name: "aPosition", Type: device.AttribFloat, Count: 2},
		{Name: "aData0", Type: device.AttribSignedInt, Count: 4, PerInstance: true},
		{Name: "aData1", Type: device.AttribSignedInt, Count: 4, PerInstance: true},
	}}
	DescBlur = device.VertexDescriptor{Attributes: []device.VertexAttribute{
		{Name: "aPosition", Type: device.AttribFloat, Count: 2},
		{Name: "aBlurRenderTaskIndex", Type: device.AttribSignedInt, Count: 1, PerInstance: true},
		{Name: "aBlurSourceTaskIndex", Type: device.AttribSignedInt, Count: 1, PerInstance: true},
		{Name: "aBlurDirection", Type: device.AttribSignedInt, Count: 1, PerInstance: true},
	}}
	DescClip = device.VertexDescriptor{Attributes: []device.VertexAttribute{
		{Name: "aPosition", Type: device.AttribFloat, Count: 2},
		{Name: "aClipRenderTaskIndex", Type: device.AttribSignedInt, Count: 1, PerInstance: true},
		{Name: "aClipLayerIndex", Type: device.AttribSignedInt, Count: 1, PerInstance: true},
		{Name: "aClipDataIndex", Type: device.AttribSignedInt, Count: 1, PerInstance: true},
		{Name: "aClipSegmentIndex", Type: device.AttribSignedInt, Count: 1, PerInstance: true},
		{Name: "aClipResourceAddress", Type: device.AttribSignedInt, Count: 1, PerInstance: true},
	}}
)

const (
	primInstanceStride = 32 // aData0(16) + aData1(16)
	blurInstanceStride = 12 // 3 x int32
	clipInstanceStride = 20 // 5 x int32
)

// ShaderSet is the caller-supplied collection of shader source text the
// executor registers with the registry. Shader source lives outside this
// module; ShaderSet is the seam the host fills in.
type ShaderSet struct {
	// Primitives is keyed by the names in shadernames.go
	// (ShaderRectangle, ShaderTextRun, ...), one entry per primitive
	// shader the frame will ever need. Both the simple and transform
	// variants compile from the same Source.
	Primitives map[string]shaders.Source
	// Caches is keyed by ShaderCacheBlur / ShaderCacheBoxShadow /
	// ShaderCacheTextRun / ShaderCacheLine.
	Caches map[string]shaders.Source
	// ClipCaches is keyed by ShaderClipBorder / ShaderClipRectangle /
	// ShaderClipImage.
	ClipCaches map[string]shaders.Source
}

// ShaderSourceLoader resolves a RefreshShader path to fresh shader
// source. Supplied by the host; nil disables shader refresh (the
// message is logged and dropped).
type ShaderSourceLoader interface {
	LoadShader(path string) (name string, src shaders.Source, err error)
}

// Renderer ties every component together into the single per-frame
// Render entry point.
type Renderer struct {
	dev      *device.Device
	reg      *shaders.Registry
	cache    *gpucache.Texture
	layerTex *vertextex.Texture
	taskTex  *vertextex.Texture
	pool     *RenderTargetPool
	channel  *resultchan.Channel
	images   *resultchan.Table
	loader   ShaderSourceLoader
	tun      config.Tunables
	log      *slog.Logger

	primVAO handle.VertexArray
	blurVAO handle.VertexArray
	clipVAO handle.VertexArray

	dummyCache handle.Texture // 1x1 BGRA bound to both cache samplers before the first pass
	ditherTex  handle.Texture // 8x8 A8 Bayer matrix bound to sDither

	// cacheTexIDMap indirects logical cache-texture ids to device
	// texture handles, so producers only ever hold logical ids.
	cacheTexIDMap []handle.Texture

	currentFrame *Frame

	pendingTextureUpdates  []TextureUpdateOp
	pendingGpuCacheUpdates *gpucache.UpdateList
	pendingRefresh         []resultchan.RefreshShaderMsg

	cacheShaderSet ShaderSet

	devicePixelRatio float32

	debugShowTargets bool
	debugThumbnails  []debugThumbnail
}

// SetDevicePixelRatio sets the ratio passed to device.BeginFrame and
// baked into every draw's uDevicePixelRatio uniform. Defaults to 1.0.
func (r *Renderer) SetDevicePixelRatio(ratio float32) {
	r.devicePixelRatio = ratio
}

// SetDebugShowTargets toggles the end-of-frame render-target thumbnail
// overlay.
func (r *Renderer) SetDebugShowTargets(on bool) {
	r.debugShowTargets = on
}

// NewRenderer constructs a Renderer. sharedPreamble is passed through to
// the shader registry unchanged.
func NewRenderer(dev *device.Device, tun config.Tunables, set ShaderSet, sharedPreamble string, channel *resultchan.Channel, imageHandler resultchan.Handler, loader ShaderSourceLoader, notifier shaders.Notifier, log *slog.Logger) (*Renderer, error) {
	log = logx.Or(log)
	reg := shaders.NewRegistry(dev, sharedPreamble, notifier)
	for name, src := range set.Primitives {
		src.Name = name
		reg.RegisterPrimitive(src)
	}

	r := &Renderer{
		dev:              dev,
		reg:              reg,
		cache:            gpucache.New(dev),
		layerTex:         vertextex.New(dev, tun, 1),
		taskTex:          vertextex.New(dev, tun, 2),
		pool:             NewRenderTargetPool(dev),
		channel:          channel,
		images:           resultchan.NewTable(imageHandler),
		loader:           loader,
		tun:              tun,
		log:              log,
		cacheShaderSet:   set,
		devicePixelRatio: 1.0,
	}

	r.dummyCache = dev.CreateTextureIDs(1, handle.Target2D)[0]
	dev.InitTexture(r.dummyCache, 1, 1, handle.FormatBGRA8, handle.FilterNearest, handle.NoRenderTarget, make([]byte, 4))

	r.ditherTex = dev.CreateTextureIDs(1, handle.Target2D)[0]
	dev.InitTexture(r.ditherTex, config.DitherMatrixSize, config.DitherMatrixSize, handle.FormatA8, handle.FilterNearest, handle.NoRenderTarget, config.DitherMatrix[:])

	r.primVAO = dev.CreateVAO(DescPrimInstances, primInstanceStride)
	dev.UpdateVAOMainVertices(r.primVAO, quadVertexBytes(), device.UsageStatic)
	dev.UpdateVAOIndices(r.primVAO, quadIndexBytes(), device.UsageStatic)

	r.blurVAO = dev.CreateVAOWithNewInstances(DescBlur, blurInstanceStride, r.primVAO)
	r.clipVAO = dev.CreateVAOWithNewInstances(DescClip, clipInstanceStride, r.primVAO)

	return r, nil
}

// Ingest drains up to MaxEventsPerFrame messages from the result
// channel, in arrival order. NewFrame replaces the staged frame;
// UpdateResources queues texture updates and, if CancelRendering is
// set, drops any staged frame; RefreshShader requests are queued for
// resolution against the loader.
func (r *Renderer) Ingest() {
	msgs := r.channel.DrainUpTo(r.tun.MaxEventsPerFrame)
	for _, msg := range msgs {
		switch {
		case msg.NewFrame != nil:
			if f, ok := msg.NewFrame.Frame.(*Frame); ok {
				r.currentFrame = f
				// Take the frame's cache updates out and queue them, so a
				// frame staged now but rendered later still flushes its
				// cache writes exactly once.
				if f.GpuCacheUpdates != nil {
					r.pendingGpuCacheUpdates = f.GpuCacheUpdates
					f.GpuCacheUpdates = nil
				}
			}
			if ops, ok := msg.NewFrame.TextureUpdates.([]TextureUpdateOp); ok {
				r.pendingTextureUpdates = append(r.pendingTextureUpdates, ops...)
			}
		case msg.UpdateResources != nil:
			if ops, ok := msg.UpdateResources.Updates.([]TextureUpdateOp); ok {
				r.pendingTextureUpdates = append(r.pendingTextureUpdates, ops...)
			}
			if msg.UpdateResources.CancelRendering {
				r.currentFrame = nil
				r.log.Debug("frame: cancel_rendering, dropping staged frame")
			}
		case msg.RefreshShader != nil:
			r.pendingRefresh = append(r.pendingRefresh, *msg.RefreshShader)
		}
	}
}

// applyShaderRefreshes resolves every queued RefreshShader message
// against the loader and recompiles the named primitive.
func (r *Renderer) applyShaderRefreshes() {
	for _, req := range r.pendingRefresh {
		if r.loader == nil {
			r.log.Warn("frame: RefreshShader with no loader configured, dropping", "path", req.Path)
			continue
		}
		name, src, err := r.loader.LoadShader(req.Path)
		if err != nil {
			r.log.Error("frame: RefreshShader load failed", "path", req.Path, "err", err)
			continue
		}
		src.Name = name
		if err := r.reg.RefreshShader(name, src, r.tun.MaxVertexTextureWidth); err != nil {
			r.log.Error("frame: RefreshShader recompile failed", "name", name, "err", err)
		}
	}
	r.pendingRefresh = r.pendingRefresh[:0]
}

// Render executes one frame. If no frame is currently staged (nothing
// arrived yet, or the staged frame was cancelled), Render is a no-op
// after draining messages. On return, blend and depth are disabled and
// the default framebuffer is bound.
func (r *Renderer) Render(framebufferWidth, framebufferHeight int32) error {
	r.Ingest()
	r.applyShaderRefreshes()

	if r.currentFrame == nil {
		return nil
	}
	f := r.currentFrame

	r.dev.BeginFrame(r.devicePixelRatio)
	defer r.dev.EndFrame()

	r.dev.DisableScissor()
	r.dev.DisableDepth()
	r.dev.SetBlendMode(device.BlendNone, [4]float32{})

	if err := r.applyTextureUpdates(); err != nil {
		return err
	}

	if r.pendingGpuCacheUpdates != nil {
		r.cache.Update(*r.pendingGpuCacheUpdates)
		r.pendingGpuCacheUpdates = nil
	}
	if f.GpuCacheUpdates != nil {
		r.cache.Update(*f.GpuCacheUpdates)
	}

	if len(f.DeferredResolves) > 0 {
		resolves := make([]resultchan.DeferredResolve, len(f.DeferredResolves))
		for i, dr := range f.DeferredResolves {
			resolves[i] = resultchan.DeferredResolve{
				ExternalID: dr.ExternalID,
				Channel:    dr.Channel,
				ImageType:  resultchan.ImageType(dr.ImageType),
				CacheAddr:  gpucache.Update{BlockCount: 1, U: dr.CacheU, V: dr.CacheV},
			}
		}
		if err := r.images.ResolveDeferred(r.cache, resolves); err != nil {
			r.images.UnlockAll()
			return fmt.Errorf("frame: resolving deferred external images: %w", err)
		}
	}

	r.cache.Flush()

	if len(f.LayerTextureData) > 0 {
		r.layerTex.Init(toTexels(f.LayerTextureData))
	}
	if len(f.RenderTaskData) > 0 {
		r.taskTex.Init(marshalRenderTasks(f.RenderTaskData))
	}

	err := r.executePasses(f, framebufferWidth, framebufferHeight)

	r.images.UnlockAll()
	r.dev.SetBlendMode(device.BlendNone, [4]float32{})
	r.dev.DisableDepth()
	r.dev.BindDrawFramebuffer(handle.Framebuffer{})

	return err
}

// passContext carries the per-pass values drawAlphaTarget and
// drawColorTarget need; it is reused across every target within one
// pass.
type passContext struct {
	isFramebuffer        bool
	cacheSize            int
	fbWidth, fbHeight    int32
	windowW, windowH     int
	background           [4]float32
	prevAlpha, prevColor handle.Texture
}

// executePasses walks frame.Passes in order, assigning render targets,
// binding prior-pass outputs as cache samplers, and drawing each alpha
// then color target. The first pass sees the persistent 1x1 dummy
// texture for both cache samplers; thereafter each pass's inputs are
// the previous pass's outputs. A pass's targets are retired to the pool
// one pass late, since the following pass samples them.
func (r *Renderer) executePasses(f *Frame, fbWidth, fbHeight int32) error {
	prevAlpha, prevColor := r.dummyCache, r.dummyCache

	for passIdx := range f.Passes {
		pass := &f.Passes[passIdx]

		var alphaTex, colorTex handle.Texture
		if !pass.IsFramebuffer {
			if pass.Required.Alpha && len(pass.AlphaTargets) > 0 {
				alphaTex = r.pool.Acquire(true, f.CacheSize, len(pass.AlphaTargets))
			}
			if pass.Required.Color && len(pass.ColorTargets) > 0 {
				colorTex = r.pool.Acquire(false, f.CacheSize, len(pass.ColorTargets))
			}
		}

		if r.debugShowTargets {
			if alphaTex.IsValid() {
				r.debugThumbnails = append(r.debugThumbnails, debugThumbnail{tex: alphaTex, size: f.CacheSize, alpha: true})
			}
			if colorTex.IsValid() {
				r.debugThumbnails = append(r.debugThumbnails, debugThumbnail{tex: colorTex, size: f.CacheSize, alpha: false})
			}
		}

		pc := passContext{
			isFramebuffer: pass.IsFramebuffer,
			cacheSize:     f.CacheSize,
			fbWidth:       fbWidth,
			fbHeight:      fbHeight,
			windowW:       f.WindowWidth,
			windowH:       f.WindowHeight,
			background:    f.BackgroundColor,
			prevAlpha:     prevAlpha,
			prevColor:     prevColor,
		}

		for ti := range pass.AlphaTargets {
			if err := r.drawAlphaTarget(&pass.AlphaTargets[ti], alphaTex, ti, pc); err != nil {
				return err
			}
		}

		for ti := range pass.ColorTargets {
			if err := r.drawColorTarget(&pass.ColorTargets[ti], colorTex, ti, pc); err != nil {
				return err
			}
		}

		if alphaTex.IsValid() {
			prevAlpha = alphaTex
		}
		if colorTex.IsValid() {
			prevColor = colorTex
		}

		r.pool.EndPass()
	}

	r.pool.EndFrame()

	if r.debugShowTargets {
		r.drawDebugOverlay(fbWidth, fbHeight)
	}
	r.debugThumbnails = nil

	return nil
}

// applyTextureUpdates drains and applies every queued TextureUpdateOp in
// order.
func (r *Renderer) applyTextureUpdates() error {
	ops := r.pendingTextureUpdates
	r.pendingTextureUpdates = nil
	for _, op := range ops {
		if err := r.applyOneTextureUpdate(op); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) applyOneTextureUpdate(op TextureUpdateOp) error {
	switch op.Kind {
	case UpdateCreate:
		glerr.Assertf(op.CacheID == len(r.cacheTexIDMap), "frame: Create cache id %d != map length %d", op.CacheID, len(r.cacheTexIDMap))
		tex := r.dev.CreateTextureIDs(1, handle.Target2D)[0]
		r.cacheTexIDMap = append(r.cacheTexIDMap, tex)
		return r.initCacheTexture(tex, op)

	case UpdateGrow:
		tex := r.cacheTex(op.CacheID)
		r.dev.ResizeTexture(tex, op.Width, op.Height, handle.PixelFormat(op.Format), handle.FilterMode(op.Filter), renderTargetMode(op.Mode, 1))
		return nil

	case UpdateUpdate:
		tex := r.cacheTex(op.CacheID)
		data := op.Data
		if op.Offset > 0 && op.Offset <= len(data) {
			data = data[op.Offset:]
		}
		r.dev.UpdateTexture(tex, op.PageX, op.PageY, op.Width, op.Height, op.Stride, data)
		return nil

	case UpdateForExternalBuffer:
		tex := r.cacheTex(op.CacheID)
		res, err := r.images.Handler().Lock(op.ExternalID, op.ExternalChannel)
		if err != nil {
			return fmt.Errorf("frame: lock external buffer %d/%d: %w", op.ExternalID, op.ExternalChannel, err)
		}
		data := res.Source.RawData
		if op.Offset > 0 && op.Offset <= len(data) {
			data = data[op.Offset:]
		}
		r.dev.UpdateTexture(tex, op.Rect.X, op.Rect.Y, op.Rect.W, op.Rect.H, op.Stride, data)
		r.images.Handler().Unlock(op.ExternalID, op.ExternalChannel)
		return nil

	case UpdateFree:
		tex := r.cacheTex(op.CacheID)
		r.dev.DeinitTexture(tex)
		return nil

	default:
		return fmt.Errorf("frame: unknown TextureUpdateOp kind %d", op.Kind)
	}
}

func (r *Renderer) cacheTex(cacheID int) handle.Texture {
	glerr.Assertf(cacheID < len(r.cacheTexIDMap), "frame: TextureUpdateOp references cache id %d >= map length %d", cacheID, len(r.cacheTexIDMap))
	return r.cacheTexIDMap[cacheID]
}

func (r *Renderer) initCacheTexture(tex handle.Texture, op TextureUpdateOp) error {
	mode := renderTargetMode(op.Mode, 1)
	if !op.HasExternal {
		r.dev.InitTexture(tex, op.Width, op.Height, handle.PixelFormat(op.Format), handle.FilterMode(op.Filter), mode, op.Data)
		return nil
	}
	glerr.Assertf(op.ExternalKind == BufferExternalBuffer, "frame: Create op with external data must use ExternalBuffer, got %d", op.ExternalKind)
	res, err := r.images.Handler().Lock(op.ExternalID, op.ExternalChannel)
	if err != nil {
		return fmt.Errorf("frame: lock external buffer %d/%d: %w", op.ExternalID, op.ExternalChannel, err)
	}
	r.dev.InitTexture(tex, op.Width, op.Height, handle.PixelFormat(op.Format), handle.FilterMode(op.Filter), mode, res.Source.RawData)
	r.images.Handler().Unlock(op.ExternalID, op.ExternalChannel)
	return nil
}

func renderTargetMode(kind int, defaultLayers int) handle.RenderTargetMode {
	switch handle.RenderTargetModeKind(kind) {
	case handle.RenderTargetNone:
		return handle.NoRenderTarget
	case handle.RenderTargetSimple:
		return handle.SimpleRenderTarget()
	case handle.RenderTargetLayered:
		return handle.LayerRenderTarget(defaultLayers)
	default:
		return handle.NoRenderTarget
	}
}

// toTexels groups a flat float32 slice into [4]float32 texels, zero
// padding a trailing partial group (vertextex.Texture.Init pads to a
// row boundary itself; this only rounds to the 4-float texel boundary).
func toTexels(flat []float32) [][4]float32 {
	n := (len(flat) + 3) / 4
	out := make([][4]float32, n)
	for i := range out {
		for c := 0; c < 4; c++ {
			idx := i*4 + c
			if idx < len(flat) {
				out[i][c] = flat[idx]
			}
		}
	}
	return out
}

// marshalRenderTasks packs each RenderTaskData row into two texels:
// (originX, originY, width, height) and (contentOriginX, contentOriginY,
// targetLayer, 0).
func marshalRenderTasks(tasks []RenderTaskData) [][4]float32 {
	out := make([][4]float32, 0, len(tasks)*2)
	for _, t := range tasks {
		out = append(out,
			[4]float32{t.OriginX, t.OriginY, t.Width, t.Height},
			[4]float32{t.ContentOriginX, t.ContentOriginY, float32(t.TargetLayer), 0},
		)
	}
	return out
}

func quadVertexBytes() []byte {
	out := make([]byte, len(config.UnitQuadVertices)*8)
	for i, v := range config.UnitQuadVertices {
		putFloat32(out[i*8:], v.X)
		putFloat32(out[i*8+4:], v.Y)
	}
	return out
}

func quadIndexBytes() []byte {
	out := make([]byte, len(config.UnitQuadIndices)*2)
	for i, idx := range config.UnitQuadIndices {
		binary.LittleEndian.PutUint16(out[i*2:], idx)
	}
	return out
}

func putFloat32(dst []byte, f float32) {
	bits := math.Float32bits(f)
	binary.LittleEndian.PutUint32(dst, bits)
}

func putInt32(dst []byte, v int32) {
	binary.LittleEndian.PutUint32(dst, uint32(v))
}

func marshalPrimInstances(instances [][4]int32) []byte {
	out := make([]byte, len(instances)*primInstanceStride)
	for i, inst := range instances {
		base := i * primInstanceStride
		for c := 0; c < 4; c++ {
			putInt32(out[base+c*4:], inst[c])
		}
		// aData1 (bytes 16-31) stays zero: instance payload semantics
		// beyond the draw-call shape are shader-defined.
	}
	return out
}

func marshalBlurInstances(instances [][4]int32) []byte {
	out := make([]byte, len(instances)*blurInstanceStride)
	for i, inst := range instances {
		base := i * blurInstanceStride
		for c := 0; c < 3; c++ {
			putInt32(out[base+c*4:], inst[c])
		}
	}
	return out
}

func marshalClipInstances(instances [][4]int32) []byte {
	out := make([]byte, len(instances)*clipInstanceStride)
	for i, inst := range instances {
		base := i * clipInstanceStride
		for c := 0; c < 4; c++ {
			putInt32(out[base+c*4:], inst[c])
		}
		// aClipResourceAddress (5th field) stays zero, same rationale as
		// marshalPrimInstances.
	}
	return out
}
