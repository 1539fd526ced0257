package frame

import (
	"github.com/gogpu/wrcore/device"
	"github.com/gogpu/wrcore/handle"
)

// targetKind distinguishes the two render-target texture pools: BGRA8
// linear for color targets, A8 nearest for alpha-mask targets.
type targetKind int

const (
	targetKindColor targetKind = iota
	targetKindAlpha
)

// RenderTargetPool recycles 2D-array texture handles across frames.
// A pass's outputs stay checked out for one extra pass, since they are
// the next pass's cache-sampler inputs; the free lists are reversed at
// end of frame so handles are reused in FIFO order across frames, which
// keeps driver-side caches stable.
type RenderTargetPool struct {
	dev *device.Device

	free     [2][]handle.Texture // indexed by targetKind
	prevPass [2][]handle.Texture // outputs of the pass before the current one
	thisPass [2][]handle.Texture // outputs acquired during the current pass
	created  [2]int              // cumulative texture-id allocation count, per kind
}

// NewRenderTargetPool constructs an empty pool bound to dev.
func NewRenderTargetPool(dev *device.Device) *RenderTargetPool {
	return &RenderTargetPool{dev: dev}
}

// CreatedCount returns how many texture ids have ever been allocated for
// the given kind.
func (p *RenderTargetPool) CreatedCount(alpha bool) int {
	if alpha {
		return p.created[targetKindAlpha]
	}
	return p.created[targetKindColor]
}

// Acquire pops a free handle of the given kind, or allocates a new one,
// and initializes its storage to (cacheSize, layerCount) with the format
// and filter that kind requires.
func (p *RenderTargetPool) Acquire(alpha bool, cacheSize, layerCount int) handle.Texture {
	kind := targetKindColor
	if alpha {
		kind = targetKindAlpha
	}

	var tex handle.Texture
	if n := len(p.free[kind]); n > 0 {
		tex = p.free[kind][n-1]
		p.free[kind] = p.free[kind][:n-1]
	} else {
		tex = p.dev.CreateTextureIDs(1, handle.Target2DArray)[0]
		p.created[kind]++
	}

	format := handle.FormatBGRA8
	filter := handle.FilterLinear
	if alpha {
		format = handle.FormatA8
		filter = handle.FilterNearest
	}
	p.dev.InitTexture(tex, cacheSize, cacheSize, format, filter, handle.LayerRenderTarget(layerCount), nil)

	p.thisPass[kind] = append(p.thisPass[kind], tex)
	return tex
}

// EndPass retires the previous pass's outputs to the free lists and
// promotes the current pass's outputs to "previous". Call once after
// drawing each pass; the one-pass delay keeps a pass's targets alive
// while the following pass samples them.
func (p *RenderTargetPool) EndPass() {
	for k := 0; k < 2; k++ {
		p.free[k] = append(p.free[k], p.prevPass[k]...)
		p.prevPass[k] = append(p.prevPass[k][:0], p.thisPass[k]...)
		p.thisPass[k] = p.thisPass[k][:0]
	}
}

// EndFrame returns any still-checked-out handles to the free lists and
// reverses both lists so handles are reused in FIFO order across frames.
func (p *RenderTargetPool) EndFrame() {
	for k := 0; k < 2; k++ {
		p.free[k] = append(p.free[k], p.prevPass[k]...)
		p.free[k] = append(p.free[k], p.thisPass[k]...)
		p.prevPass[k] = p.prevPass[k][:0]
		p.thisPass[k] = p.thisPass[k][:0]
		reverseTextures(p.free[k])
	}
}

func reverseTextures(s []handle.Texture) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
