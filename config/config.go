// Package config holds the rendering core's tunables and wire
// constants: sampler slot assignment, the unit quad, the dither matrix,
// and the session-wide size/budget knobs.
package config

// SamplerSlot identifies one of the device's named texture sampler
// bindings. The three color slots are numbered 0-2; the rest are named
// slots with no fixed numeric meaning beyond the uniform the device
// looks up after link.
type SamplerSlot int

const (
	SamplerColor0 SamplerSlot = iota
	SamplerColor1
	SamplerColor2
	SamplerCacheA8
	SamplerCacheRGBA8
	SamplerLayers
	SamplerRenderTasks
	SamplerResourceCache
	SamplerDither
)

// UniformName is the GLSL sampler uniform name the device looks for
// after linking a program.
func (s SamplerSlot) UniformName() string {
	switch s {
	case SamplerColor0:
		return "sColor0"
	case SamplerColor1:
		return "sColor1"
	case SamplerColor2:
		return "sColor2"
	case SamplerCacheA8:
		return "sCacheA8"
	case SamplerCacheRGBA8:
		return "sCacheRGBA8"
	case SamplerLayers:
		return "sLayers"
	case SamplerRenderTasks:
		return "sRenderTasks"
	case SamplerResourceCache:
		return "sResourceCache"
	case SamplerDither:
		return "sDither"
	default:
		return ""
	}
}

// TextureUnit returns the fixed texture unit a color sampler binds to.
// Only the three color samplers have a fixed numeric slot; other samplers
// are assigned units dynamically by the frame executor as it binds
// per-pass inputs.
func (s SamplerSlot) TextureUnit() (unit int, ok bool) {
	switch s {
	case SamplerColor0:
		return 0, true
	case SamplerColor1:
		return 1, true
	case SamplerColor2:
		return 2, true
	default:
		return 0, false
	}
}

// ColorSamplerCount is the number of fixed color sampler slots.
const ColorSamplerCount = 3

// AllSamplerSlots lists every slot the device probes for after link.
var AllSamplerSlots = []SamplerSlot{
	SamplerColor0, SamplerColor1, SamplerColor2,
	SamplerCacheA8, SamplerCacheRGBA8, SamplerLayers,
	SamplerRenderTasks, SamplerResourceCache, SamplerDither,
}

// Tunables holds the session-wide constants. A zero-value Tunables is
// invalid; use Default() to obtain a populated instance.
type Tunables struct {
	// MaxVertexTextureWidth (W) bounds both the GPU cache texture row
	// width and the vertex data texture row width.
	MaxVertexTextureWidth int

	// GPUDataTexturePoolSize is the number of pooled vertex data textures
	// kept warm across frames.
	GPUDataTexturePoolSize int

	// MaxEventsPerFrame bounds the number of result-channel messages
	// drained in a single ingest pass.
	MaxEventsPerFrame int

	// MaxProfileFrames bounds the profiler's frame ring buffer.
	MaxProfileFrames int

	// MinDeviceTextureSize is the minimum texture dimension a driver must
	// support; below this, device initialization fails with
	// glerr.InitError{Reason: glerr.ReasonMaxTextureSize}.
	MinDeviceTextureSize int

	// OrthoNear and OrthoFar are the near/far planes used by every
	// orthographic projection the frame executor builds.
	OrthoNear float32
	OrthoFar  float32
}

// Default returns the standard tunables.
func Default() Tunables {
	return Tunables{
		MaxVertexTextureWidth:  1024,
		GPUDataTexturePoolSize: 5,
		MaxEventsPerFrame:      256,
		MaxProfileFrames:       4,
		MinDeviceTextureSize:   512,
		OrthoNear:              -1_000_000,
		OrthoFar:               1_000_000,
	}
}

// DitherMatrix is the 8x8 Bayer dither matrix uploaded as an A8 texture
// bound to the sDither sampler.
var DitherMatrix = [64]byte{
	0, 48, 12, 60, 3, 51, 15, 63,
	32, 16, 44, 28, 35, 19, 47, 31,
	8, 56, 4, 52, 11, 59, 7, 55,
	40, 24, 36, 20, 43, 27, 39, 23,
	2, 50, 14, 62, 1, 49, 13, 61,
	34, 18, 46, 30, 33, 17, 45, 29,
	10, 58, 6, 54, 9, 57, 5, 53,
	42, 26, 38, 22, 41, 25, 37, 21,
}

// DitherMatrixSize is the width and height of the dither matrix texture.
const DitherMatrixSize = 8

// QuadVertex is one vertex of the unit quad (position only; per-instance
// data rides the instance buffer).
type QuadVertex struct {
	X, Y float32
}

// UnitQuadVertices are the four corners of the unit quad.
var UnitQuadVertices = [4]QuadVertex{
	{0, 0}, {1, 0}, {0, 1}, {1, 1},
}

// UnitQuadIndices triangulate the unit quad as two CCW triangles.
var UnitQuadIndices = [6]uint16{0, 1, 2, 2, 1, 3}
