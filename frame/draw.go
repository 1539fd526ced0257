// Draw dispatch for the two per-target algorithms (alpha-mask targets
// and color targets), plus the shared uniform and sampler-binding
// helpers every primitive/cache/clip shader bind goes through.

package frame

import (
	"golang.org/x/image/math/f32"

	"github.com/gogpu/wrcore/config"
	"github.com/gogpu/wrcore/device"
	"github.com/gogpu/wrcore/handle"
	"github.com/gogpu/wrcore/internal/glerr"
	"github.com/gogpu/wrcore/shaders"
)

const (
	uniformTransform  = "uTransform"
	uniformPixelRatio = "uDevicePixelRatio"
)

// orthoMatrix builds a column-major orthographic projection matrix.
// The framebuffer pass uses ortho(0,w,h,0,...) (bottom=h, top=0), which
// flips Y so the window origin is top-left; intermediate targets use
// ortho(0,w,0,h,...) with no flip.
func orthoMatrix(left, right, bottom, top, near, far float32) [16]float32 {
	rl := right - left
	tb := top - bottom
	fn := far - near

	v := f32.Vec4{2 / rl, 2 / tb, -2 / fn, 1}
	tx := -(right + left) / rl
	ty := -(top + bottom) / tb
	tz := -(far + near) / fn

	return [16]float32{
		v[0], 0, 0, 0,
		0, v[1], 0, 0,
		0, 0, v[2], 0,
		tx, ty, tz, v[3],
	}
}

// setStandardUniforms binds uTransform/uDevicePixelRatio on the
// currently-bound program.
func (r *Renderer) setStandardUniforms(prog handle.Program, transform [16]float32) {
	tLoc := r.dev.GetUniformLocation(prog, uniformTransform)
	pLoc := r.dev.GetUniformLocation(prog, uniformPixelRatio)
	r.dev.SetUniforms(tLoc, &transform, pLoc, r.devicePixelRatio)
}

// bindStandardSamplers binds every named sampler the shader variant may
// declare; variants that don't declare a given sampler are skipped.
func (r *Renderer) bindStandardSamplers(prog handle.Program, pc passContext) {
	r.dev.BindNamedSampler(prog, config.SamplerCacheA8.UniformName(), unitCacheA8, pc.prevAlpha)
	r.dev.BindNamedSampler(prog, config.SamplerCacheRGBA8.UniformName(), unitCacheRGBA8, pc.prevColor)
	r.dev.BindNamedSampler(prog, config.SamplerLayers.UniformName(), unitLayers, r.layerTex.Handle())
	r.dev.BindNamedSampler(prog, config.SamplerRenderTasks.UniformName(), unitRenderTasks, r.taskTex.Handle())
	r.dev.BindNamedSampler(prog, config.SamplerResourceCache.UniformName(), unitResourceCache, r.cache.Handle())
	r.dev.BindNamedSampler(prog, config.SamplerDither.UniformName(), unitDither, r.ditherTex)
}

// resolveSourceTexture resolves a SourceTextureRef to a device texture
// handle at draw time. WebGL sources are assumed already registered as
// plain 2D textures under their raw name by the host; this module does
// not manage their lifetime.
func (r *Renderer) resolveSourceTexture(ref SourceTextureRef) handle.Texture {
	switch ref.Kind {
	case SourceWebGL:
		return handle.NewTexture(ref.WebGLID, handle.Target2D)
	case SourceExternal:
		name, ok := r.images.Lookup(ref.ExternalID, ref.ExternalChan)
		glerr.Assertf(ok, "frame: SourceTexture External(%d/%d) not locked for this frame", ref.ExternalID, ref.ExternalChan)
		return handle.NewTexture(name, handle.Target2D)
	case SourceTextureCache:
		return r.cacheTex(ref.CacheIndex)
	default:
		return handle.InvalidTexture
	}
}

// bindClipCache compiles/binds one of the three clip-cache shaders and
// sets its standard uniforms and samplers.
func (r *Renderer) bindClipCache(name string, transform [16]float32, pc passContext) (handle.Program, error) {
	src := r.cacheShaderSet.ClipCaches[name]
	prog, err := r.reg.BindClipCache(name, src, r.tun.MaxVertexTextureWidth)
	if err != nil {
		return prog, err
	}
	r.setStandardUniforms(prog, transform)
	r.bindStandardSamplers(prog, pc)
	return prog, nil
}

// bindCache compiles/binds one of the four primitive-cache shaders.
func (r *Renderer) bindCache(name string, format shaders.CacheVertexFormat, transform [16]float32, pc passContext) (handle.Program, error) {
	src := r.cacheShaderSet.Caches[name]
	prog, err := r.reg.BindCache(name, format, src, r.tun.MaxVertexTextureWidth)
	if err != nil {
		return prog, err
	}
	r.setStandardUniforms(prog, transform)
	r.bindStandardSamplers(prog, pc)
	return prog, nil
}

// drawClipInstances uploads items' raw instance payload to the clip VAO
// and issues one instanced draw, or does nothing for an empty group.
func (r *Renderer) drawClipInstances(items []ClipItem) {
	var instances [][4]int32
	for _, it := range items {
		instances = append(instances, it.Instances...)
	}
	if len(instances) == 0 {
		return
	}
	r.dev.UpdateVAOInstances(r.clipVAO, marshalClipInstances(instances), device.UsageStream)
	r.dev.DrawIndexedTrianglesInstanced(int32(len(config.UnitQuadIndices)), int32(len(instances)))
}

// drawAlphaTarget draws one alpha-mask target: clear the used rect to
// (1,1,1,0), then draw border-clear, border-dot/dash, rounded-rect, and
// grouped image-mask clip sources in that fixed order with the blend
// mode each sub-kind requires.
func (r *Renderer) drawAlphaTarget(target *AlphaTarget, tex handle.Texture, layer int, pc passContext) error {
	if !tex.IsValid() {
		return nil
	}

	fb := r.dev.TargetFramebuffer(tex, layer)
	r.dev.BindDrawFramebuffer(fb)
	r.dev.Viewport(0, 0, int32(pc.cacheSize), int32(pc.cacheSize))
	r.dev.DisableDepth()

	clear := [4]float32{1, 1, 1, 0}
	if target.UsedRect.W > 0 && target.UsedRect.H > 0 {
		r.dev.ClearTargetRect(&clear, nil, target.UsedRect.X, target.UsedRect.Y, target.UsedRect.W, target.UsedRect.H)
	} else {
		r.dev.ClearTarget(&clear, nil)
	}

	transform := orthoMatrix(0, float32(pc.cacheSize), 0, float32(pc.cacheSize), r.tun.OrthoNear, r.tun.OrthoFar)
	r.dev.BindVAO(r.clipVAO)

	var clears, dotdash, rounded []ClipItem
	var imageOrder []SourceTextureRef
	imageGroups := make(map[SourceTextureRef][]ClipItem)
	for _, item := range target.ClipItems {
		switch item.Kind {
		case ClipBorderClear:
			clears = append(clears, item)
		case ClipBorderDotDash:
			dotdash = append(dotdash, item)
		case ClipRoundedRect:
			rounded = append(rounded, item)
		case ClipImageMask:
			if _, ok := imageGroups[item.MaskTexture]; !ok {
				imageOrder = append(imageOrder, item.MaskTexture)
			}
			imageGroups[item.MaskTexture] = append(imageGroups[item.MaskTexture], item)
		}
	}

	if len(clears) > 0 {
		r.dev.SetBlendMode(device.BlendNone, [4]float32{})
		if _, err := r.bindClipCache(ShaderClipBorder, transform, pc); err != nil {
			return err
		}
		r.drawClipInstances(clears)
	}

	if len(dotdash) > 0 {
		r.dev.SetBlendMode(device.BlendMax, [4]float32{})
		if _, err := r.bindClipCache(ShaderClipBorder, transform, pc); err != nil {
			return err
		}
		r.drawClipInstances(dotdash)
	}

	r.dev.SetBlendMode(device.BlendMultiply, [4]float32{})

	if len(rounded) > 0 {
		if _, err := r.bindClipCache(ShaderClipRectangle, transform, pc); err != nil {
			return err
		}
		r.drawClipInstances(rounded)
	}

	for _, maskTex := range imageOrder {
		prog, err := r.bindClipCache(ShaderClipImage, transform, pc)
		if err != nil {
			return err
		}
		r.dev.BindNamedSampler(prog, config.SamplerColor0.UniformName(), 0, r.resolveSourceTexture(maskTex))
		r.drawClipInstances(imageGroups[maskTex])
	}

	r.dev.SetBlendMode(device.BlendNone, [4]float32{})
	return nil
}

// blendModeForBatch maps an alpha batch to the blend mode and (for
// subpixel text) constant color to switch to before drawing it.
func blendModeForBatch(b InstanceBatch) (device.BlendMode, [4]float32) {
	if b.Kind == BatchTextRun && b.Subpixel != nil {
		s := b.Subpixel
		return device.BlendSubpixelConstantColor, [4]float32{s.R, s.G, s.B, s.A}
	}
	switch b.Kind {
	case BatchBlend:
		return device.BlendPremultipliedAlpha, [4]float32{}
	default:
		return device.BlendAlpha, [4]float32{}
	}
}

// drawColorTarget draws one color target: bind the target (or the
// default framebuffer for a framebuffer pass), clear, draw the
// blur/box-shadow/text-run/line caches, draw opaque batches
// front-to-back with depth test+write, then draw alpha batches in order
// with per-batch blend-mode switching. Composite batches take a
// readback-blit detour before their draw.
func (r *Renderer) drawColorTarget(target *ColorTarget, tex handle.Texture, layer int, pc passContext) error {
	var transform [16]float32

	if pc.isFramebuffer {
		r.dev.BindDrawFramebuffer(handle.Framebuffer{})
		r.dev.Viewport(0, 0, pc.fbWidth, pc.fbHeight)
		transform = orthoMatrix(0, float32(pc.fbWidth), float32(pc.fbHeight), 0, r.tun.OrthoNear, r.tun.OrthoFar)

		depth := 1.0
		var bg *[4]float32
		if int32(pc.windowW) < pc.fbWidth || int32(pc.windowH) < pc.fbHeight {
			c := pc.background
			bg = &c
		}
		if target.UsedRect != nil {
			r.dev.ClearTargetRect(bg, &depth, target.UsedRect.X, target.UsedRect.Y, target.UsedRect.W, target.UsedRect.H)
		} else {
			r.dev.ClearTarget(bg, &depth)
		}
	} else {
		if !tex.IsValid() {
			return nil
		}
		fb := r.dev.TargetFramebuffer(tex, layer)
		r.dev.BindDrawFramebuffer(fb)
		r.dev.Viewport(0, 0, int32(pc.cacheSize), int32(pc.cacheSize))
		transform = orthoMatrix(0, float32(pc.cacheSize), 0, float32(pc.cacheSize), r.tun.OrthoNear, r.tun.OrthoFar)

		transparent := [4]float32{0, 0, 0, 0}
		depth := 1.0
		if target.UsedRect != nil {
			r.dev.ClearTargetRect(&transparent, &depth, target.UsedRect.X, target.UsedRect.Y, target.UsedRect.W, target.UsedRect.H)
		} else {
			r.dev.ClearTarget(&transparent, &depth)
		}
	}

	r.dev.EnableDepth(device.DepthLessEqual, true)
	r.dev.SetBlendMode(device.BlendNone, [4]float32{})

	if err := r.drawBlurs(target.Blurs, transform, pc); err != nil {
		return err
	}
	if err := r.drawCacheBatches(ShaderCacheBoxShadow, target.BoxShadowCache, transform, pc); err != nil {
		return err
	}

	r.dev.SetBlendMode(device.BlendAlpha, [4]float32{})
	if err := r.drawCacheBatches(ShaderCacheTextRun, target.TextRunCache, transform, pc); err != nil {
		return err
	}
	if err := r.drawCacheBatches(ShaderCacheLine, target.LineCache, transform, pc); err != nil {
		return err
	}

	r.dev.EnableDepth(device.DepthLessEqual, true)
	r.dev.SetBlendMode(device.BlendNone, [4]float32{})
	r.dev.BindVAO(r.primVAO)
	for i := len(target.OpaqueBatches) - 1; i >= 0; i-- {
		if err := r.submitBatch(target.OpaqueBatches[i], -1, target, tex, layer, transform, pc); err != nil {
			return err
		}
	}

	r.dev.SetDepthWrite(false)
	currentMode := device.BlendNone
	for idx, b := range target.AlphaBatches {
		mode, color := blendModeForBatch(b)
		if mode != currentMode {
			r.dev.SetBlendMode(mode, color)
			currentMode = mode
		}
		if err := r.submitBatch(b, idx, target, tex, layer, transform, pc); err != nil {
			return err
		}
	}

	r.dev.DisableDepth()
	r.dev.SetBlendMode(device.BlendNone, [4]float32{})
	return nil
}

// drawBlurs issues the two-pass (vertical then horizontal) separable
// blur draw for every blur batch. Direction rides as the third int32 of
// each instance (aBlurDirection): 0 selects the vertical pass, 1 the
// horizontal pass.
func (r *Renderer) drawBlurs(blurs []BlurBatch, transform [16]float32, pc passContext) error {
	if len(blurs) == 0 {
		return nil
	}
	r.dev.SetBlendMode(device.BlendNone, [4]float32{})
	if _, err := r.bindCache(ShaderCacheBlur, shaders.VertexFormatBlur, transform, pc); err != nil {
		return err
	}
	r.dev.BindVAO(r.blurVAO)
	for _, blur := range blurs {
		vertical := filterByDirection(blur.Instances, 0)
		horizontal := filterByDirection(blur.Instances, 1)
		if len(vertical) > 0 {
			r.dev.UpdateVAOInstances(r.blurVAO, marshalBlurInstances(vertical), device.UsageStream)
			r.dev.DrawIndexedTrianglesInstanced(int32(len(config.UnitQuadIndices)), int32(len(vertical)))
		}
		if len(horizontal) > 0 {
			r.dev.UpdateVAOInstances(r.blurVAO, marshalBlurInstances(horizontal), device.UsageStream)
			r.dev.DrawIndexedTrianglesInstanced(int32(len(config.UnitQuadIndices)), int32(len(horizontal)))
		}
	}
	return nil
}

func filterByDirection(instances [][4]int32, direction int32) [][4]int32 {
	var out [][4]int32
	for _, inst := range instances {
		if inst[2] == direction {
			out = append(out, inst)
		}
	}
	return out
}

// drawCacheBatches binds one cache shader and draws every batch in
// order, rebinding sColor0 per batch (text-run and box-shadow caches
// read a per-batch atlas texture).
func (r *Renderer) drawCacheBatches(name string, batches []InstanceBatch, transform [16]float32, pc passContext) error {
	if len(batches) == 0 {
		return nil
	}
	prog, err := r.bindCache(name, shaders.VertexFormatPrimitiveInstances, transform, pc)
	if err != nil {
		return err
	}
	r.dev.BindVAO(r.primVAO)
	for _, b := range batches {
		if b.ColorTexture.Kind != SourceInvalid {
			r.dev.BindNamedSampler(prog, config.SamplerColor0.UniformName(), 0, r.resolveSourceTexture(b.ColorTexture))
		}
		if len(b.Instances) == 0 {
			continue
		}
		r.dev.UpdateVAOInstances(r.primVAO, marshalPrimInstances(b.Instances), device.UsageStream)
		r.dev.DrawIndexedTrianglesInstanced(int32(len(config.UnitQuadIndices)), int32(len(b.Instances)))
	}
	return nil
}

// submitBatch draws one alpha or opaque instance batch. batchIdx is the
// batch's index within target.AlphaBatches, used to look up its
// CompositeInstance payload when Kind == BatchComposite; it is -1 for
// opaque batches, which can never be composites.
func (r *Renderer) submitBatch(b InstanceBatch, batchIdx int, target *ColorTarget, colorTex handle.Texture, colorLayer int, transform [16]float32, pc passContext) error {
	if b.Kind == BatchComposite {
		return r.submitComposite(b, batchIdx, target, colorTex, colorLayer, transform, pc)
	}

	name := primitiveShaderName(b)
	kind := shaders.TransformAxisAligned
	if b.TransformKind == RectComplex {
		kind = shaders.TransformComplex
	}
	prog, err := r.reg.BindPrimitive(name, kind, r.tun.MaxVertexTextureWidth)
	if err != nil {
		return err
	}
	r.setStandardUniforms(prog, transform)
	r.bindStandardSamplers(prog, pc)
	if b.ColorTexture.Kind != SourceInvalid {
		r.dev.BindNamedSampler(prog, config.SamplerColor0.UniformName(), 0, r.resolveSourceTexture(b.ColorTexture))
	}

	if len(b.Instances) == 0 {
		return nil
	}
	r.dev.BindVAO(r.primVAO)
	r.dev.UpdateVAOInstances(r.primVAO, marshalPrimInstances(b.Instances), device.UsageStream)
	r.dev.DrawIndexedTrianglesInstanced(int32(len(config.UnitQuadIndices)), int32(len(b.Instances)))
	return nil
}

// submitComposite handles a BatchComposite batch: read a rect of the
// current target back into the readback task's layer of the color cache
// texture, flipping Y when the current target is the default
// framebuffer (whose origin is bottom-left while the projection puts
// the origin top-left), then draw the batch's single instance as an
// ordinary primitive.
func (r *Renderer) submitComposite(b InstanceBatch, batchIdx int, target *ColorTarget, colorTex handle.Texture, colorLayer int, transform [16]float32, pc passContext) error {
	glerr.Assertf(len(b.Instances) == 1, "frame: composite batch must carry exactly one instance, got %d", len(b.Instances))
	ci, ok := target.Composites[batchIdx]
	glerr.Assertf(ok, "frame: composite batch at alpha index %d has no CompositeInstance payload", batchIdx)

	rtd := r.currentFrame.RenderTaskData
	glerr.Assertf(ci.ReadbackTaskIndex < len(rtd) && ci.BackdropTaskIndex < len(rtd) && ci.SourceTaskIndex < len(rtd),
		"frame: composite task index out of range (readback=%d backdrop=%d source=%d len=%d)",
		ci.ReadbackTaskIndex, ci.BackdropTaskIndex, ci.SourceTaskIndex, len(rtd))
	task := rtd[ci.ReadbackTaskIndex]
	backdrop := rtd[ci.BackdropTaskIndex]
	source := rtd[ci.SourceTaskIndex]

	w, h := task.Width, task.Height
	srcPos := f32.Vec2{
		backdrop.OriginX - backdrop.ContentOriginX + source.ContentOriginX,
		backdrop.OriginY - backdrop.ContentOriginY + source.ContentOriginY,
	}
	dstPos := f32.Vec2{task.OriginX, task.OriginY}
	dstEnd := f32.Vec2{dstPos[0] + w, dstPos[1] + h}

	if pc.isFramebuffer {
		srcPos[1] = float32(pc.fbHeight) - h - srcPos[1]
		dstPos[1], dstEnd[1] = dstPos[1]+h, dstPos[1]
	}

	if pc.isFramebuffer {
		r.dev.BindReadFramebuffer(handle.Framebuffer{})
	} else {
		r.dev.BindReadFramebuffer(r.dev.TargetFramebuffer(colorTex, colorLayer))
	}

	// The readback destination is the prior pass's color cache texture,
	// at the layer the readback task was allocated in.
	backdropFB := r.dev.TargetFramebuffer(pc.prevColor, int(task.TargetLayer))
	r.dev.BindDrawFramebuffer(backdropFB)
	r.dev.BlitFramebuffer(
		int32(srcPos[0]), int32(srcPos[1]), int32(srcPos[0]+w), int32(srcPos[1]+h),
		int32(dstPos[0]), int32(dstPos[1]), int32(dstEnd[0]), int32(dstEnd[1]),
	)

	if pc.isFramebuffer {
		r.dev.BindDrawFramebuffer(handle.Framebuffer{})
		r.dev.Viewport(0, 0, pc.fbWidth, pc.fbHeight)
	} else {
		r.dev.BindDrawFramebuffer(r.dev.TargetFramebuffer(colorTex, colorLayer))
		r.dev.Viewport(0, 0, int32(pc.cacheSize), int32(pc.cacheSize))
	}

	prog, err := r.reg.BindPrimitive(ShaderComposite, shaders.TransformAxisAligned, r.tun.MaxVertexTextureWidth)
	if err != nil {
		return err
	}
	r.setStandardUniforms(prog, transform)
	r.bindStandardSamplers(prog, pc)
	r.dev.BindVAO(r.primVAO)
	r.dev.UpdateVAOInstances(r.primVAO, marshalPrimInstances(b.Instances), device.UsageStream)
	r.dev.DrawIndexedTrianglesInstanced(int32(len(config.UnitQuadIndices)), 1)
	return nil
}
