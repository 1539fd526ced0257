package device

import (
	"github.com/gogpu/wrcore/glapi"
	"github.com/gogpu/wrcore/handle"
)

// CreatePBO allocates a new pixel-buffer object.
func (d *Device) CreatePBO() handle.PixelBuffer {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.gl.GenBuffers(1)[0]
	return handle.NewPixelBuffer(id)
}

// BindPBO binds pbo, idempotently.
func (d *Device) BindPBO(pbo handle.PixelBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bindPBORaw(pbo.Raw())
}

// UnbindPBO unbinds any currently-bound pixel-buffer object.
func (d *Device) UnbindPBO() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bindPBORaw(0)
}

// UpdatePBOData uploads data into the currently bound PBO.
func (d *Device) UpdatePBOData(data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gl.BufferData(glapi.PIXEL_UNPACK_BUFFER, len(data), data, glapi.STREAM_DRAW)
}

// OrphanPBO rebinds storage of the same size with a null data pointer,
// hinting the driver to detach prior storage so the next write doesn't
// stall behind an in-flight upload.
func (d *Device) OrphanPBO(size int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gl.BufferData(glapi.PIXEL_UNPACK_BUFFER, size, nil, glapi.STREAM_DRAW)
}

// DeletePBO releases a pixel-buffer object.
func (d *Device) DeletePBO(pbo handle.PixelBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gl.DeleteBuffers([]uint32{pbo.Raw()})
	if d.st.boundPBO == pbo.Raw() {
		d.st.boundPBO = 0
	}
}
