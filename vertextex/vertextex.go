// Package vertextex implements per-frame vertex data textures: flat
// caller-supplied record arrays marshalled into texel rows of an
// RGBA-F32 texture the vertex stage reads as structured memory.
package vertextex

import (
	"math"

	"github.com/gogpu/wrcore/config"
	"github.com/gogpu/wrcore/device"
	"github.com/gogpu/wrcore/handle"
)

// Texture holds one vertex data texture; layer data, render task data,
// and similar per-frame flat arrays all use this same shape.
type Texture struct {
	dev          *device.Device
	tex          handle.Texture
	textureWidth int // W rounded down to a multiple of texelsPerRecord
	height       int
}

// New allocates an (initially empty) vertex data texture bound to dev.
// texelsPerRecord is how many RGBA-F32 texels one input record occupies
// (e.g. 2 for a struct marshalled as two float4 rows' worth of data).
func New(dev *device.Device, tun config.Tunables, texelsPerRecord int) *Texture {
	tex := dev.CreateTextureIDs(1, handle.Target2D)[0]
	width := tun.MaxVertexTextureWidth
	if texelsPerRecord > 0 {
		width -= width % texelsPerRecord
		if width == 0 {
			width = texelsPerRecord
		}
	}
	return &Texture{dev: dev, tex: tex, textureWidth: width}
}

// TextureWidth returns the row width records are packed into; it is a
// multiple of the per-record texel count so no record straddles a row
// boundary.
func (t *Texture) TextureWidth() int { return t.textureWidth }

// Height returns the most recently uploaded texture height.
func (t *Texture) Height() int { return t.height }

// Init uploads data (a flat array of RGBA-F32 texels, one per input
// record's float4 fields concatenated) as a nearest-filtered RGBA-F32
// texture. It is a no-op for an empty array; otherwise data is
// zero-padded up to a row multiple before upload, and height is
// ceil(len(data)/textureWidth).
func (t *Texture) Init(data [][4]float32) {
	if len(data) == 0 {
		return
	}
	height := (len(data) + t.textureWidth - 1) / t.textureWidth
	padded := make([][4]float32, height*t.textureWidth)
	copy(padded, data)

	pixels := make([]byte, len(padded)*16)
	for i, texel := range padded {
		for c := 0; c < 4; c++ {
			putFloat32(pixels[i*16+c*4:], texel[c])
		}
	}

	t.dev.InitTexture(t.tex, t.textureWidth, height, handle.FormatRGBAF32, handle.FilterNearest, handle.NoRenderTarget, pixels)
	t.height = height
}

// Handle returns the device texture handle backing this vertex data
// texture, for binding into a sampler by the frame executor.
func (t *Texture) Handle() handle.Texture { return t.tex }

func putFloat32(dst []byte, f float32) {
	bits := math.Float32bits(f)
	dst[0] = byte(bits)
	dst[1] = byte(bits >> 8)
	dst[2] = byte(bits >> 16)
	dst[3] = byte(bits >> 24)
}
