// Debug render-target overlay: blits shrunk thumbnails of every
// render-target texture acquired this frame along the bottom edge of
// the default framebuffer. Disabled by default; SetDebugShowTargets
// enables it.

package frame

import "github.com/gogpu/wrcore/handle"

// debugThumbnail records one render-target texture acquired during the
// frame, for the end-of-frame overlay pass.
type debugThumbnail struct {
	tex   handle.Texture
	size  int
	alpha bool
}

const debugThumbnailSize = 128

// drawDebugOverlay blits a row of shrunk thumbnails of every alpha/color
// render target acquired this frame along the bottom of the framebuffer.
// Layer 0 of each texture is shown; a texture with more layers is
// otherwise unaffected by this purely-diagnostic pass.
func (r *Renderer) drawDebugOverlay(fbWidth, fbHeight int32) {
	r.dev.BindDrawFramebuffer(handle.Framebuffer{})
	r.dev.Viewport(0, 0, fbWidth, fbHeight)

	x := int32(0)
	for _, th := range r.debugThumbnails {
		fb := r.dev.TargetFramebuffer(th.tex, 0)
		r.dev.BindReadFramebuffer(fb)
		r.dev.BlitFramebuffer(0, 0, int32(th.size), int32(th.size), x, 0, x+debugThumbnailSize, debugThumbnailSize)
		x += debugThumbnailSize
		if x >= fbWidth {
			break
		}
	}

	r.dev.BindDrawFramebuffer(handle.Framebuffer{})
}
