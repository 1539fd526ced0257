package device

import (
	"github.com/gogpu/wrcore/glapi"
	"github.com/gogpu/wrcore/handle"
	"github.com/gogpu/wrcore/internal/glerr"
)

// BufferUsage mirrors the GL buffer usage hints the device exposes to
// callers updating vertex/index data.
type BufferUsage int

const (
	UsageStatic BufferUsage = iota
	UsageDynamic
	UsageStream
)

func (u BufferUsage) glEnum() glapi.Enum {
	switch u {
	case UsageDynamic:
		return glapi.DYNAMIC_DRAW
	case UsageStream:
		return glapi.STREAM_DRAW
	default:
		return glapi.STATIC_DRAW
	}
}

// CreateVAO allocates a fresh VAO with three buffers it owns outright:
// an index buffer, a "main" (per-vertex) buffer, and an instance
// buffer.
func (d *Device) CreateVAO(descriptor VertexDescriptor, instanceStride int) handle.VertexArray {
	d.mu.Lock()
	defer d.mu.Unlock()

	vaoID := d.gl.GenVertexArrays(1)[0]
	vao := handle.NewVertexArray(vaoID)
	bufs := d.gl.GenBuffers(3)
	indices := handle.NewIndexBuffer(bufs[0])
	mainVerts := handle.NewVertexBuffer(bufs[1])
	instances := handle.NewVertexBuffer(bufs[2])

	rec := &handle.VertexArrayRecord{
		Handle:           vao,
		Indices:          indices,
		MainVertices:     mainVerts,
		Instances:        instances,
		InstanceStride:   instanceStride,
		OwnsIndices:      handle.Owned,
		OwnsMainVertices: handle.Owned,
		OwnsInstances:    handle.Owned,
	}
	d.vaos[vao] = rec
	d.bindVAORaw(vaoID)
	d.bindAttribPointersLocked(descriptor, mainVerts, instances, instanceStride)
	return vao
}

// CreateVAOWithNewInstances allocates a new VAO that shares the base
// VAO's index and main-vertex buffers (borrowed, not owned) and
// allocates a fresh, owned instance buffer.
func (d *Device) CreateVAOWithNewInstances(descriptor VertexDescriptor, instanceStride int, base handle.VertexArray) handle.VertexArray {
	d.mu.Lock()
	defer d.mu.Unlock()

	baseRec, ok := d.vaos[base]
	glerr.Assertf(ok, "device: CreateVAOWithNewInstances: unknown base VAO %v", base)

	vaoID := d.gl.GenVertexArrays(1)[0]
	vao := handle.NewVertexArray(vaoID)
	instanceBuf := d.gl.GenBuffers(1)[0]
	instances := handle.NewVertexBuffer(instanceBuf)

	rec := &handle.VertexArrayRecord{
		Handle:           vao,
		Indices:          baseRec.Indices,
		MainVertices:     baseRec.MainVertices,
		Instances:        instances,
		InstanceStride:   instanceStride,
		OwnsIndices:      handle.Borrowed,
		OwnsMainVertices: handle.Borrowed,
		OwnsInstances:    handle.Owned,
	}
	d.vaos[vao] = rec
	d.bindVAORaw(vaoID)
	d.gl.BindBuffer(glapi.ELEMENT_ARRAY_BUFFER, baseRec.Indices.Raw())
	d.bindAttribPointersLocked(descriptor, baseRec.MainVertices, instances, instanceStride)
	return vao
}

// bindAttribPointersLocked binds the given descriptor's attributes to
// the currently bound VAO, grouping attributes by divisor; per-vertex
// attributes always precede per-instance ones in descriptor order.
// Callers must hold d.mu and have already bound the target VAO.
func (d *Device) bindAttribPointersLocked(descriptor VertexDescriptor, mainVerts, instances handle.VertexBuffer, instanceStride int) {
	perVertexStride := int32(0)
	for _, a := range descriptor.Attributes {
		if !a.PerInstance {
			perVertexStride += int32(a.Count * a.Type.byteSize())
		}
	}

	d.gl.BindBuffer(glapi.ARRAY_BUFFER, mainVerts.Raw())
	index := uint32(0)
	offset := 0
	for _, a := range descriptor.Attributes {
		if a.PerInstance {
			continue
		}
		d.bindOneAttribLocked(index, a, perVertexStride, offset, 0)
		offset += a.Count * a.Type.byteSize()
		index++
	}

	d.gl.BindBuffer(glapi.ARRAY_BUFFER, instances.Raw())
	offset = 0
	for _, a := range descriptor.Attributes {
		if !a.PerInstance {
			continue
		}
		d.bindOneAttribLocked(index, a, int32(instanceStride), offset, 1)
		offset += a.Count * a.Type.byteSize()
		index++
	}
}

// bindOneAttribLocked enables one vertex attribute and calls the
// type-appropriate pointer routine: float normalized=false,
// unsigned-byte normalized=true, signed-int uses the integer pointer.
func (d *Device) bindOneAttribLocked(index uint32, a VertexAttribute, stride int32, offset int, divisor uint32) {
	d.gl.EnableVertexAttribArray(index)
	switch a.Type {
	case AttribFloat:
		d.gl.VertexAttribPointer(index, int32(a.Count), glapi.FLOAT, false, stride, offset)
	case AttribUnsignedByteNormalized:
		d.gl.VertexAttribPointer(index, int32(a.Count), glapi.UNSIGNED_BYTE, true, stride, offset)
	case AttribSignedInt:
		d.gl.VertexAttribIPointer(index, int32(a.Count), glapi.INT, stride, offset)
	default:
		glerr.Assertf(false, "device: unknown attrib type %d for %q", int(a.Type), a.Name)
	}
	d.gl.VertexAttribDivisor(index, divisor)
}

// BindVAO binds vao, idempotently.
func (d *Device) BindVAO(vao handle.VertexArray) {
	d.mu.Lock()
	defer d.mu.Unlock()
	glerr.Assertf(d.vaos[vao] != nil, "device: BindVAO: unknown VAO %v", vao)
	d.bindVAORaw(vao.Raw())
}

// UpdateVAOMainVertices replaces the main (per-vertex) buffer's contents.
func (d *Device) UpdateVAOMainVertices(vao handle.VertexArray, data []byte, usage BufferUsage) {
	d.updateVAOBuffer(vao, data, usage, func(r *handle.VertexArrayRecord) handle.VertexBuffer { return r.MainVertices })
}

// UpdateVAOInstances replaces the instance buffer's contents.
func (d *Device) UpdateVAOInstances(vao handle.VertexArray, data []byte, usage BufferUsage) {
	d.updateVAOBuffer(vao, data, usage, func(r *handle.VertexArrayRecord) handle.VertexBuffer { return r.Instances })
}

// UpdateVAOIndices replaces the index buffer's contents.
func (d *Device) UpdateVAOIndices(vao handle.VertexArray, data []byte, usage BufferUsage) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.vaos[vao]
	glerr.Assertf(ok, "device: UpdateVAOIndices: unknown VAO %v", vao)
	d.bindVAORaw(vao.Raw())
	d.gl.BindBuffer(glapi.ELEMENT_ARRAY_BUFFER, rec.Indices.Raw())
	d.gl.BufferData(glapi.ELEMENT_ARRAY_BUFFER, len(data), data, usage.glEnum())
}

func (d *Device) updateVAOBuffer(vao handle.VertexArray, data []byte, usage BufferUsage, which func(*handle.VertexArrayRecord) handle.VertexBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.vaos[vao]
	glerr.Assertf(ok, "device: updateVAOBuffer: unknown VAO %v", vao)
	buf := which(rec)
	d.bindVAORaw(vao.Raw())
	d.gl.BindBuffer(glapi.ARRAY_BUFFER, buf.Raw())
	d.gl.BufferData(glapi.ARRAY_BUFFER, len(data), data, usage.glEnum())
}

// DeleteVAO releases vao and any buffers it owns; borrowed buffers stay
// with their owning VAO.
func (d *Device) DeleteVAO(vao handle.VertexArray) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.vaos[vao]
	glerr.Assertf(ok, "device: DeleteVAO: unknown VAO %v", vao)

	indices, mainVerts, instances := rec.OwnedBuffersToRelease()
	var toDelete []uint32
	if indices != nil {
		toDelete = append(toDelete, indices.Raw())
	}
	if mainVerts != nil {
		toDelete = append(toDelete, mainVerts.Raw())
	}
	if instances != nil {
		toDelete = append(toDelete, instances.Raw())
	}
	if len(toDelete) > 0 {
		d.gl.DeleteBuffers(toDelete)
	}
	d.gl.DeleteVertexArrays([]uint32{vao.Raw()})
	delete(d.vaos, vao)
	if d.st.boundVAO == vao.Raw() {
		d.st.boundVAO = 0
	}
}
