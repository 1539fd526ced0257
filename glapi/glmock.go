package glapi

import "fmt"

// Call records one API invocation for assertions in device/gpucache/
// vertextex tests. Args are formatted eagerly so tests can compare a
// plain string.
type Call struct {
	Name string
	Args string
}

// Mock is a pure-Go, non-hardware-backed API implementation used by unit
// tests across the module. It records every call (for idempotence and
// sequencing assertions) and maintains just enough fake state — next
// object id, compile/link success — to let the device layer exercise its
// full control flow without a live GL context.
//
// Mock is the test-double half of the glapi.API split; device.Device
// never knows which implementation it was given.
type Mock struct {
	Calls []Call

	nextID uint32

	// FailCompile, if set, names a shader source substring that causes
	// CompileShader to report failure (used to test glerr.ShaderError
	// plumbing).
	FailCompile string
	// FailLink forces LinkProgram to report failure.
	FailLink bool

	// KnownUniforms restricts GetUniformLocation to these names, mirroring
	// GL's -1-for-absent-or-optimized-out-uniform behavior. A nil map
	// means every name resolves (permissive default).
	KnownUniforms map[string]struct{}

	texMaxSize int
	lastSource string
}

// NewMock returns a ready-to-use Mock with a generous max texture size.
func NewMock() *Mock {
	return &Mock{texMaxSize: 8192}
}

func (m *Mock) record(name string, args ...any) {
	m.Calls = append(m.Calls, Call{Name: name, Args: fmt.Sprint(args...)})
}

// CallCount returns how many times name was invoked.
func (m *Mock) CallCount(name string) int {
	n := 0
	for _, c := range m.Calls {
		if c.Name == name {
			n++
		}
	}
	return n
}

// CallsNamed returns every recorded call matching name, in call order.
func (m *Mock) CallsNamed(name string) []Call {
	var out []Call
	for _, c := range m.Calls {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

func (m *Mock) genIDs(n int) []uint32 {
	ids := make([]uint32, n)
	for i := range ids {
		m.nextID++
		ids[i] = m.nextID
	}
	return ids
}

func (m *Mock) GenTextures(n int) []uint32 { ids := m.genIDs(n); m.record("GenTextures", n); return ids }
func (m *Mock) DeleteTextures(ids []uint32) { m.record("DeleteTextures", ids) }
func (m *Mock) BindTexture(target Enum, texture uint32) {
	m.record("BindTexture", target, texture)
}
func (m *Mock) ActiveTexture(unit int) { m.record("ActiveTexture", unit) }
func (m *Mock) TexParameteri(target, pname, param Enum) {
	m.record("TexParameteri", target, pname, param)
}
func (m *Mock) TexImage2D(target Enum, level int32, internalFormat Enum, width, height int32, format, xtype Enum, pixels []byte) {
	m.record("TexImage2D", target, level, internalFormat, width, height, format, xtype, len(pixels))
}
func (m *Mock) TexSubImage2D(target Enum, level int32, xoffset, yoffset, width, height int32, format, xtype Enum, pixels []byte) {
	m.record("TexSubImage2D", target, level, xoffset, yoffset, width, height, format, xtype, len(pixels))
}
func (m *Mock) TexSubImage2DFromPBO(target Enum, level int32, xoffset, yoffset, width, height int32, format, xtype Enum, pboOffset int) {
	m.record("TexSubImage2DFromPBO", target, level, xoffset, yoffset, width, height, format, xtype, pboOffset)
}
func (m *Mock) MaxTextureSize() int { return m.texMaxSize }

func (m *Mock) GenFramebuffers(n int) []uint32 {
	ids := m.genIDs(n)
	m.record("GenFramebuffers", n)
	return ids
}
func (m *Mock) DeleteFramebuffers(ids []uint32) { m.record("DeleteFramebuffers", ids) }
func (m *Mock) BindFramebuffer(target Enum, fbo uint32) { m.record("BindFramebuffer", target, fbo) }
func (m *Mock) FramebufferTexture2D(target, attachment, textarget Enum, texture uint32, level int32) {
	m.record("FramebufferTexture2D", target, attachment, textarget, texture, level)
}
func (m *Mock) FramebufferTextureLayer(target, attachment Enum, texture uint32, level, layer int32) {
	m.record("FramebufferTextureLayer", target, attachment, texture, level, layer)
}
func (m *Mock) GenRenderbuffers(n int) []uint32 {
	ids := m.genIDs(n)
	m.record("GenRenderbuffers", n)
	return ids
}
func (m *Mock) DeleteRenderbuffers(ids []uint32) { m.record("DeleteRenderbuffers", ids) }
func (m *Mock) BindRenderbuffer(target Enum, rbo uint32) { m.record("BindRenderbuffer", target, rbo) }
func (m *Mock) RenderbufferStorage(target, internalFormat Enum, width, height int32) {
	m.record("RenderbufferStorage", target, internalFormat, width, height)
}
func (m *Mock) FramebufferRenderbuffer(target, attachment, rbTarget Enum, rbo uint32) {
	m.record("FramebufferRenderbuffer", target, attachment, rbTarget, rbo)
}
func (m *Mock) BlitFramebuffer(srcX0, srcY0, srcX1, srcY1, dstX0, dstY0, dstX1, dstY1 int32, mask, filter Enum) {
	m.record("BlitFramebuffer", srcX0, srcY0, srcX1, srcY1, dstX0, dstY0, dstX1, dstY1, mask, filter)
}

func (m *Mock) GenBuffers(n int) []uint32 { ids := m.genIDs(n); m.record("GenBuffers", n); return ids }
func (m *Mock) DeleteBuffers(ids []uint32) { m.record("DeleteBuffers", ids) }
func (m *Mock) BindBuffer(target Enum, buffer uint32) { m.record("BindBuffer", target, buffer) }
func (m *Mock) BufferData(target Enum, size int, data []byte, usage Enum) {
	m.record("BufferData", target, size, len(data), usage)
}
func (m *Mock) BufferSubData(target Enum, offset int, data []byte) {
	m.record("BufferSubData", target, offset, len(data))
}
func (m *Mock) MapBufferRangeWrite(target Enum, offset, length int) []byte {
	m.record("MapBufferRangeWrite", target, offset, length)
	return make([]byte, length)
}
func (m *Mock) UnmapBuffer(target Enum) { m.record("UnmapBuffer", target) }

func (m *Mock) GenVertexArrays(n int) []uint32 {
	ids := m.genIDs(n)
	m.record("GenVertexArrays", n)
	return ids
}
func (m *Mock) DeleteVertexArrays(ids []uint32) { m.record("DeleteVertexArrays", ids) }
func (m *Mock) BindVertexArray(vao uint32)      { m.record("BindVertexArray", vao) }
func (m *Mock) EnableVertexAttribArray(index uint32) { m.record("EnableVertexAttribArray", index) }
func (m *Mock) VertexAttribPointer(index uint32, size int32, xtype Enum, normalized bool, stride int32, offset int) {
	m.record("VertexAttribPointer", index, size, xtype, normalized, stride, offset)
}
func (m *Mock) VertexAttribIPointer(index uint32, size int32, xtype Enum, stride int32, offset int) {
	m.record("VertexAttribIPointer", index, size, xtype, stride, offset)
}
func (m *Mock) VertexAttribDivisor(index, divisor uint32) {
	m.record("VertexAttribDivisor", index, divisor)
}

func (m *Mock) CreateShader(stage Enum) uint32 {
	id := m.genIDs(1)[0]
	m.record("CreateShader", stage)
	return id
}
func (m *Mock) ShaderSource(shader uint32, source string) {
	m.record("ShaderSource", shader, len(source))
	m.lastSource = source
}
func (m *Mock) CompileShader(shader uint32) (bool, string) {
	m.record("CompileShader", shader)
	if m.FailCompile != "" && contains(m.lastSource, m.FailCompile) {
		return false, "mock compile error: " + m.FailCompile
	}
	return true, ""
}
func (m *Mock) DeleteShader(shader uint32) { m.record("DeleteShader", shader) }
func (m *Mock) CreateProgram() uint32 {
	id := m.genIDs(1)[0]
	m.record("CreateProgram")
	return id
}
func (m *Mock) AttachShader(program, shader uint32) { m.record("AttachShader", program, shader) }
func (m *Mock) DetachShader(program, shader uint32) { m.record("DetachShader", program, shader) }
func (m *Mock) BindAttribLocation(program, index uint32, name string) {
	m.record("BindAttribLocation", program, index, name)
}
func (m *Mock) LinkProgram(program uint32) (bool, string) {
	m.record("LinkProgram", program)
	if m.FailLink {
		return false, "mock link error"
	}
	return true, ""
}
func (m *Mock) DeleteProgram(program uint32) { m.record("DeleteProgram", program) }
func (m *Mock) UseProgram(program uint32)    { m.record("UseProgram", program) }
func (m *Mock) GetUniformLocation(program uint32, name string) int32 {
	m.record("GetUniformLocation", program, name)
	if m.KnownUniforms != nil {
		if _, ok := m.KnownUniforms[name]; !ok {
			return -1
		}
	}
	return int32(len(name)) // deterministic non-negative stand-in location
}
func (m *Mock) Uniform1i(location, value int32)         { m.record("Uniform1i", location, value) }
func (m *Mock) Uniform1f(location int32, value float32) { m.record("Uniform1f", location, value) }
func (m *Mock) Uniform2f(location int32, x, y float32)  { m.record("Uniform2f", location, x, y) }
func (m *Mock) UniformMatrix4fv(location int32, value *[16]float32) {
	m.record("UniformMatrix4fv", location)
}

func (m *Mock) DrawElements(mode Enum, count int32, xtype Enum) {
	m.record("DrawElements", mode, count, xtype)
}
func (m *Mock) DrawElementsInstanced(mode Enum, count int32, xtype Enum, instanceCount int32) {
	m.record("DrawElementsInstanced", mode, count, xtype, instanceCount)
}
func (m *Mock) DrawArrays(mode Enum, first, count int32) { m.record("DrawArrays", mode, first, count) }

func (m *Mock) Enable(cap Enum)  { m.record("Enable", cap) }
func (m *Mock) Disable(cap Enum) { m.record("Disable", cap) }
func (m *Mock) DepthFunc(fn Enum) { m.record("DepthFunc", fn) }
func (m *Mock) DepthMask(flag bool) { m.record("DepthMask", flag) }
func (m *Mock) BlendFunc(src, dst Enum) { m.record("BlendFunc", src, dst) }
func (m *Mock) BlendFuncSeparate(srcRGB, dstRGB, srcAlpha, dstAlpha Enum) {
	m.record("BlendFuncSeparate", srcRGB, dstRGB, srcAlpha, dstAlpha)
}
func (m *Mock) BlendEquation(mode Enum)         { m.record("BlendEquation", mode) }
func (m *Mock) BlendColor(r, g, b, a float32)   { m.record("BlendColor", r, g, b, a) }
func (m *Mock) Scissor(x, y, width, height int32) { m.record("Scissor", x, y, width, height) }
func (m *Mock) Viewport(x, y, width, height int32) { m.record("Viewport", x, y, width, height) }
func (m *Mock) ClearColor(r, g, b, a float32)      { m.record("ClearColor", r, g, b, a) }
func (m *Mock) ClearDepth(d float64)               { m.record("ClearDepth", d) }
func (m *Mock) Clear(mask Enum)                    { m.record("Clear", mask) }
func (m *Mock) PixelStorei(pname Enum, param int32) { m.record("PixelStorei", pname, param) }
func (m *Mock) ReadPixels(x, y, width, height int32, format, xtype Enum, out []byte) {
	m.record("ReadPixels", x, y, width, height, format, xtype, len(out))
}

func contains(s, sub string) bool {
	return len(sub) == 0 || (len(s) >= len(sub) && indexOf(s, sub) >= 0)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

var _ API = (*Mock)(nil)
