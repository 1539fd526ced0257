package device

import (
	"github.com/gogpu/wrcore/glapi"
	"github.com/gogpu/wrcore/handle"
	"github.com/gogpu/wrcore/internal/glerr"
)

// formatMapping is the internal/external/type triple a PixelFormat
// resolves to for the current context type.
type formatMapping struct {
	internal glapi.Enum
	external glapi.Enum
	xtype    glapi.Enum
}

// resolveFormat maps a PixelFormat to its GL format triple: A8 goes to
// BGRA on ARM/AArch64 and to a single "red"/"alpha" channel elsewhere;
// BGRA8 differs between desktop and ES; RGBA-F32 always uses a float
// texel type.
func (d *Device) resolveFormat(fmtKind handle.PixelFormat) formatMapping {
	switch fmtKind {
	case handle.FormatA8:
		if d.isARM {
			return formatMapping{glapi.BGRA, glapi.BGRA, glapi.UNSIGNED_BYTE}
		}
		if d.isES {
			return formatMapping{glapi.ALPHA, glapi.ALPHA, glapi.UNSIGNED_BYTE}
		}
		return formatMapping{glapi.RED, glapi.RED, glapi.UNSIGNED_BYTE}
	case handle.FormatRG8:
		return formatMapping{glapi.RG8, glapi.RG, glapi.UNSIGNED_BYTE}
	case handle.FormatRGB8:
		return formatMapping{glapi.RGB, glapi.RGB, glapi.UNSIGNED_BYTE}
	case handle.FormatBGRA8:
		if d.isES {
			return formatMapping{glapi.BGRA_EXT, glapi.BGRA_EXT, glapi.UNSIGNED_BYTE}
		}
		return formatMapping{glapi.RGBA, glapi.BGRA, glapi.UNSIGNED_BYTE}
	case handle.FormatRGBAF32:
		return formatMapping{glapi.RGBA32F, glapi.RGBA, glapi.FLOAT}
	default:
		glerr.Assertf(false, "device: resolveFormat: invalid pixel format %v", fmtKind)
		return formatMapping{}
	}
}

// expandA8ForARM replicates each byte four times; A8 uploads on ARM go
// through a BGRA-format texture.
func expandA8ForARM(src []byte) []byte {
	out := make([]byte, len(src)*4)
	for i, b := range src {
		j := i * 4
		out[j], out[j+1], out[j+2], out[j+3] = b, b, b, b
	}
	return out
}

// CreateTextureIDs allocates count new texture names of the given target
// kind and registers empty records for them.
func (d *Device) CreateTextureIDs(count int, target handle.TextureTargetKind) []handle.Texture {
	d.mu.Lock()
	defer d.mu.Unlock()
	raw := d.gl.GenTextures(count)
	out := make([]handle.Texture, count)
	for i, id := range raw {
		tex := handle.NewTexture(id, target)
		out[i] = tex
		d.textures[tex] = &handle.TextureRecord{Handle: tex, Format: handle.FormatInvalid}
	}
	return out
}

func (d *Device) record(tex handle.Texture) *handle.TextureRecord {
	rec, ok := d.textures[tex]
	glerr.Assertf(ok, "device: unknown texture handle %v", tex)
	return rec
}

// InitTexture allocates GPU storage for tex and optionally uploads
// initial pixel data.
func (d *Device) InitTexture(tex handle.Texture, w, h int, fmtKind handle.PixelFormat, filter handle.FilterMode, mode handle.RenderTargetMode, pixels []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec := d.record(tex)
	target := textureGLTarget(tex.Target)
	d.bindTextureUnit(d.st.activeUnit, target, tex.Raw())

	glFilter := glapi.NEAREST
	if filter == handle.FilterLinear {
		glFilter = glapi.LINEAR
	}
	d.gl.TexParameteri(target, glapi.TEXTURE_MIN_FILTER, glFilter)
	d.gl.TexParameteri(target, glapi.TEXTURE_MAG_FILTER, glFilter)
	d.gl.TexParameteri(target, glapi.TEXTURE_WRAP_S, glapi.CLAMP_TO_EDGE)
	d.gl.TexParameteri(target, glapi.TEXTURE_WRAP_T, glapi.CLAMP_TO_EDGE)

	fm := d.resolveFormat(fmtKind)
	data := pixels
	if fmtKind == handle.FormatA8 && d.isARM && data != nil {
		data = expandA8ForARM(data)
	}
	d.gl.TexImage2D(target, 0, fm.internal, int32(w), int32(h), fm.external, fm.xtype, data)
	d.residentBytes.Add(-int64(rec.Width*rec.Height*rec.Format.BytesPerPixel()) + int64(w*h*fmtKind.BytesPerPixel()))

	rec.Width, rec.Height = w, h
	rec.Format = fmtKind
	rec.Filter = filter
	rec.RenderTarget = mode
	d.updateTextureStorageLocked(rec, mode)
}

// updateTextureStorageLocked materializes per-layer framebuffers and a
// shared depth renderbuffer for render-target modes. Callers must hold
// d.mu.
func (d *Device) updateTextureStorageLocked(rec *handle.TextureRecord, mode handle.RenderTargetMode) {
	if mode.Kind == handle.RenderTargetNone {
		rec.Framebuffers = nil
		rec.ClearDepthRenderbuffer()
		return
	}
	layerCount := mode.LayerCount
	fbos := d.gl.GenFramebuffers(layerCount)
	rec.Framebuffers = make([]handle.Framebuffer, layerCount)

	rbos := d.gl.GenRenderbuffers(1)
	depth := handle.NewRenderbuffer(rbos[0])
	d.gl.BindRenderbuffer(glapi.RENDERBUFFER, depth.Raw())
	d.gl.RenderbufferStorage(glapi.RENDERBUFFER, glapi.DEPTH_COMPONENT24, int32(rec.Width), int32(rec.Height))
	rec.SetDepthRenderbuffer(depth)

	target := textureGLTarget(rec.Handle.Target)
	for layer, fboID := range fbos {
		fb := handle.NewFramebuffer(fboID)
		rec.Framebuffers[layer] = fb
		d.bindFramebufferRaw(glapi.DRAW_FRAMEBUFFER, fb.Raw())
		if mode.Kind == handle.RenderTargetLayered {
			d.gl.FramebufferTextureLayer(glapi.DRAW_FRAMEBUFFER, glapi.COLOR_ATTACHMENT0, rec.Handle.Raw(), 0, int32(layer))
		} else {
			d.gl.FramebufferTexture2D(glapi.DRAW_FRAMEBUFFER, glapi.COLOR_ATTACHMENT0, target, rec.Handle.Raw(), 0)
		}
		d.gl.FramebufferRenderbuffer(glapi.DRAW_FRAMEBUFFER, glapi.DEPTH_ATTACHMENT, glapi.RENDERBUFFER, depth.Raw())
	}
}

// UpdateTexture uploads a sub-rectangle of pixel data into tex. stride,
// if non-zero and different from the tightly-packed row size, selects a
// strided upload via trimToStride.
func (d *Device) UpdateTexture(tex handle.Texture, x, y, w, h int, stride int, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec := d.record(tex)
	target := textureGLTarget(tex.Target)
	d.bindTextureUnit(d.st.activeUnit, target, tex.Raw())

	fm := d.resolveFormat(rec.Format)
	upload := data
	if rec.Format == handle.FormatA8 && d.isARM {
		upload = expandA8ForARM(trimToStride(data, stride, w, h, rec.Format.BytesPerPixel()))
	} else if stride != 0 {
		upload = trimToStride(data, stride, w, h, rec.Format.BytesPerPixel())
	}
	d.gl.TexSubImage2D(target, 0, int32(x), int32(y), int32(w), int32(h), fm.external, fm.xtype, upload)
}

// trimToStride computes the strided source length as
// bpp*(stride/bpp)*(height-1) + width*bpp, then slices the
// tightly-packed rows back out of a possibly larger-strided source
// buffer, so the GL upload always receives tightly-packed data
// (TexSubImage2D has no row-length parameter plumbed through
// glapi.API).
func trimToStride(data []byte, stride, width, height, bpp int) []byte {
	if stride == 0 || bpp == 0 {
		return data
	}
	rowLength := stride / bpp
	length := bpp*rowLength*(height-1) + width*bpp
	if length > len(data) {
		length = len(data)
	}
	if stride == width*bpp {
		return data[:length]
	}
	tight := make([]byte, 0, width*bpp*height)
	rowBytes := width * bpp
	for row := 0; row < height; row++ {
		start := row * stride
		end := start + rowBytes
		if end > len(data) {
			break
		}
		tight = append(tight, data[start:end]...)
	}
	return tight
}

// UpdateTextureFromPBO uploads from the currently bound PBO at the given
// byte offset.
func (d *Device) UpdateTextureFromPBO(tex handle.Texture, x, y, w, h int, pboOffset int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec := d.record(tex)
	target := textureGLTarget(tex.Target)
	d.bindTextureUnit(d.st.activeUnit, target, tex.Raw())
	fm := d.resolveFormat(rec.Format)
	d.gl.TexSubImage2DFromPBO(target, 0, int32(x), int32(y), int32(w), int32(h), fm.external, fm.xtype, pboOffset)
}

// ResizeTexture resizes tex to (w,h), preserving existing content by
// copying through a temporary texture allocated at the old dimensions
// and a pair of framebuffer blits, then deinitializing the temporary.
func (d *Device) ResizeTexture(tex handle.Texture, w, h int, fmtKind handle.PixelFormat, filter handle.FilterMode, mode handle.RenderTargetMode) {
	d.mu.Lock()
	rec := d.record(tex)
	oldW, oldH := rec.Width, rec.Height
	oldFmt := rec.Format
	d.mu.Unlock()

	tmp := d.CreateTextureIDs(1, tex.Target)[0]
	d.InitTexture(tmp, oldW, oldH, oldFmt, filter, handle.NoRenderTarget, nil)

	d.mu.Lock()
	tmpRec := d.record(tmp)
	d.copyTextureContentsLocked(rec, tmpRec, oldW, oldH)
	d.mu.Unlock()

	d.InitTexture(tex, w, h, fmtKind, filter, mode, nil)

	d.mu.Lock()
	rec2 := d.record(tex)
	tmpRec2 := d.record(tmp)
	d.copyTextureContentsLocked(tmpRec2, rec2, oldW, oldH)
	d.mu.Unlock()

	d.DeinitTexture(tmp)
}

// copyTextureContentsLocked blits the top-left (w,h) region of src into
// dst via a temporary framebuffer attachment on src, reading back into
// dst through TexSubImage-style framebuffer blit semantics. Callers must
// hold d.mu.
func (d *Device) copyTextureContentsLocked(src, dst *handle.TextureRecord, w, h int) {
	if w == 0 || h == 0 {
		return
	}
	fbos := d.gl.GenFramebuffers(2)
	readFB, drawFB := fbos[0], fbos[1]
	defer d.gl.DeleteFramebuffers([]uint32{readFB, drawFB})

	d.bindFramebufferRaw(glapi.READ_FRAMEBUFFER, readFB)
	d.gl.FramebufferTexture2D(glapi.READ_FRAMEBUFFER, glapi.COLOR_ATTACHMENT0, textureGLTarget(src.Handle.Target), src.Handle.Raw(), 0)

	d.bindFramebufferRaw(glapi.DRAW_FRAMEBUFFER, drawFB)
	d.gl.FramebufferTexture2D(glapi.DRAW_FRAMEBUFFER, glapi.COLOR_ATTACHMENT0, textureGLTarget(dst.Handle.Target), dst.Handle.Raw(), 0)

	d.gl.BlitFramebuffer(0, 0, int32(w), int32(h), 0, 0, int32(w), int32(h), glapi.COLOR_BUFFER_BIT, glapi.LINEAR)
}

// DeinitTexture releases a texture's storage (framebuffers, depth
// renderbuffer) and marks its format Invalid, keeping the handle
// allocated for reuse.
func (d *Device) DeinitTexture(tex handle.Texture) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec := d.record(tex)
	if len(rec.Framebuffers) > 0 {
		ids := make([]uint32, len(rec.Framebuffers))
		for i, fb := range rec.Framebuffers {
			ids[i] = fb.Raw()
		}
		d.gl.DeleteFramebuffers(ids)
		rec.Framebuffers = nil
	}
	if rec.HasDepthRenderbuffer() {
		d.gl.DeleteRenderbuffers([]uint32{rec.DepthRenderbuffer.Raw()})
		rec.ClearDepthRenderbuffer()
	}
	d.residentBytes.Add(-int64(rec.Width * rec.Height * rec.Format.BytesPerPixel()))
	rec.Format = handle.FormatInvalid
	rec.Width, rec.Height = 0, 0
	rec.RenderTarget = handle.NoRenderTarget
}

// GetTextureDimensions returns the current (width, height) of tex.
func (d *Device) GetTextureDimensions(tex handle.Texture) (w, h int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec := d.record(tex)
	return rec.Width, rec.Height
}

// TargetFramebuffer returns the framebuffer handle for the given layer
// of a render-target texture, for the frame executor to bind as a
// pass's draw target.
func (d *Device) TargetFramebuffer(tex handle.Texture, layer int) handle.Framebuffer {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec := d.record(tex)
	glerr.Assertf(layer >= 0 && layer < len(rec.Framebuffers), "device: TargetFramebuffer: layer %d out of range (have %d)", layer, len(rec.Framebuffers))
	return rec.Framebuffers[layer]
}

// TextureFormat returns the current pixel format of tex, for callers
// (the GPU cache, frame executor) that need to branch on it without
// holding a full record reference.
func (d *Device) TextureFormat(tex handle.Texture) handle.PixelFormat {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.record(tex).Format
}
