// Package gpucache implements the GPU cache texture: a random-access
// R32G32B32A32-float texture with a CPU shadow, per-row dirty tracking,
// and PBO-staged row uploads. Shaders address it as structured memory
// by (u,v) block coordinates.
package gpucache

import (
	"math"

	"github.com/gogpu/wrcore/device"
	"github.com/gogpu/wrcore/handle"
	"github.com/gogpu/wrcore/internal/glerr"
)

// Block is one 4-float "block" of the GPU cache's addressable storage.
type Block [4]float32

// Width is the fixed row width of the GPU cache texture, in blocks.
const Width = 1024

// Update is one write into the GPU cache: copy BlockCount blocks
// starting at blocks[BlockIndex:] into shadow position (V*Width + U).
type Update struct {
	BlockIndex int
	BlockCount int
	U, V       int
}

// UpdateList is the wire shape the frame executor hands to
// Texture.Update each frame.
type UpdateList struct {
	Height  int
	Blocks  []Block
	Updates []Update
}

// Texture owns the GPU cache's device-side texture, its CPU shadow, and
// the row-dirty bit vector. Rows only grow within a session.
type Texture struct {
	dev *device.Device
	tex handle.Texture
	pbo handle.PixelBuffer

	shadow []Block // row-major, len == Width*rows
	rows   int
	dirty  []bool // one per row
}

// New allocates a Texture bound to dev but with zero rows; the first
// Update call that requests rows will materialize device storage.
func New(dev *device.Device) *Texture {
	tex := dev.CreateTextureIDs(1, handle.Target2D)[0]
	pbo := dev.CreatePBO()
	return &Texture{dev: dev, tex: tex, pbo: pbo}
}

// Rows returns the current shadow row count.
func (t *Texture) Rows() int { return t.rows }

// Handle returns the device texture handle backing the GPU cache, for
// the frame executor to bind into the sResourceCache sampler.
func (t *Texture) Handle() handle.Texture { return t.tex }

// DebugRows returns a copy of the shadow's current row contents for
// introspection and debug dumps.
func (t *Texture) DebugRows() [][]Block {
	out := make([][]Block, t.rows)
	for r := 0; r < t.rows; r++ {
		out[r] = append([]Block(nil), t.shadow[r*Width:(r+1)*Width]...)
	}
	return out
}

// BlockAt returns the shadow's current value at (v,u), for tests and
// debug tooling.
func (t *Texture) BlockAt(v, u int) Block {
	glerr.Assertf(v < t.rows && u < Width, "gpucache: BlockAt(%d,%d) out of range (rows=%d)", v, u, t.rows)
	return t.shadow[v*Width+u]
}

// growShadow extends the shadow with zero-initialized rows up to at
// least minRows, marking every newly-added row dirty.
func (t *Texture) growShadow(minRows int) {
	if minRows <= t.rows {
		return
	}
	newShadow := make([]Block, minRows*Width)
	copy(newShadow, t.shadow)
	t.shadow = newShadow
	for len(t.dirty) < minRows {
		t.dirty = append(t.dirty, true)
	}
	t.rows = minRows
}

// Update reallocates the texture if the list's height exceeds the
// current row count, then applies every copy update to the shadow.
func (t *Texture) Update(list UpdateList) {
	if list.Height > t.rows {
		// Reallocate to Width x Height RGBA-F32 nearest-filtered; mark
		// every row dirty (including pre-existing ones, since the
		// underlying device texture was just replaced).
		if t.tex.IsValid() && t.dev.TextureFormat(t.tex) != handle.FormatInvalid {
			t.dev.DeinitTexture(t.tex)
		}
		t.dev.InitTexture(t.tex, Width, list.Height, handle.FormatRGBAF32, handle.FilterNearest, handle.NoRenderTarget, nil)
		t.growShadow(list.Height)
		for i := range t.dirty {
			t.dirty[i] = true
		}
	}

	for _, u := range list.Updates {
		t.growShadow(u.V + 1)
		t.dirty[u.V] = true
		base := u.V*Width + u.U
		copy(t.shadow[base:base+u.BlockCount], list.Blocks[u.BlockIndex:u.BlockIndex+u.BlockCount])
	}
}

// ApplyPatch writes blocks directly into the shadow at the update's
// address without going through an UpdateList; the deferred
// external-image resolution path uses this to patch UVs before Flush.
func (t *Texture) ApplyPatch(u Update, blocks []Block) {
	t.growShadow(u.V + 1)
	t.dirty[u.V] = true
	base := u.V*Width + u.U
	copy(t.shadow[base:base+u.BlockCount], blocks)
}

// Flush uploads exactly the dirty rows through the owned PBO, orphaning
// the PBO after each row so uploads pipeline with rendering, and clears
// the dirty bits.
func (t *Texture) Flush() {
	if t.rows == 0 {
		return
	}
	// The shadow can outgrow device storage when updates address rows
	// beyond the list's declared height; reallocate before uploading.
	if w, h := t.dev.GetTextureDimensions(t.tex); w != Width || h < t.rows {
		t.dev.InitTexture(t.tex, Width, t.rows, handle.FormatRGBAF32, handle.FilterNearest, handle.NoRenderTarget, nil)
		for i := range t.dirty {
			t.dirty[i] = true
		}
	}
	t.dev.BindPBO(t.pbo)
	rowBytes := Width * 16 // 4 floats * 4 bytes each
	for row := 0; row < t.rows; row++ {
		if !t.dirty[row] {
			continue
		}
		data := blocksToBytes(t.shadow[row*Width : (row+1)*Width])
		t.dev.UpdatePBOData(data)
		t.dev.UpdateTextureFromPBO(t.tex, 0, row, Width, 1, 0)
		t.dev.OrphanPBO(rowBytes)
		t.dirty[row] = false
	}
	t.dev.UnbindPBO()
}

// blocksToBytes packs a row of float4 blocks into little-endian bytes
// suitable for BufferData/TexSubImage upload.
func blocksToBytes(blocks []Block) []byte {
	out := make([]byte, len(blocks)*16)
	for i, b := range blocks {
		for c := 0; c < 4; c++ {
			putFloat32(out[i*16+c*4:], b[c])
		}
	}
	return out
}

func putFloat32(dst []byte, f float32) {
	bits := math.Float32bits(f)
	dst[0] = byte(bits)
	dst[1] = byte(bits >> 8)
	dst[2] = byte(bits >> 16)
	dst[3] = byte(bits >> 24)
}
