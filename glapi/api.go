// Package glapi is the narrow GPU entry-point surface the device package
// drives. device.Device never talks to a concrete GPU binding directly;
// it holds an API value, so tests can substitute NewMock() for a real,
// hardware-backed NewReal() without touching device logic.
package glapi

// API is the set of raw GPU entry points the device layer requires.
// Method shapes mirror github.com/go-gl/gl/v4.6-core/gl's call
// conventions, with byte slices in place of unsafe.Pointer at the
// boundary.
type API interface {
	// Textures.
	GenTextures(n int) []uint32
	DeleteTextures(ids []uint32)
	BindTexture(target Enum, texture uint32)
	ActiveTexture(unit int)
	TexParameteri(target Enum, pname Enum, param Enum)
	TexImage2D(target Enum, level int32, internalFormat Enum, width, height int32, format Enum, xtype Enum, pixels []byte)
	TexSubImage2D(target Enum, level int32, xoffset, yoffset, width, height int32, format Enum, xtype Enum, pixels []byte)
	TexSubImage2DFromPBO(target Enum, level int32, xoffset, yoffset, width, height int32, format Enum, xtype Enum, pboOffset int)
	MaxTextureSize() int

	// Framebuffers / renderbuffers.
	GenFramebuffers(n int) []uint32
	DeleteFramebuffers(ids []uint32)
	BindFramebuffer(target Enum, fbo uint32)
	FramebufferTexture2D(target Enum, attachment Enum, textarget Enum, texture uint32, level int32)
	FramebufferTextureLayer(target Enum, attachment Enum, texture uint32, level int32, layer int32)
	GenRenderbuffers(n int) []uint32
	DeleteRenderbuffers(ids []uint32)
	BindRenderbuffer(target Enum, rbo uint32)
	RenderbufferStorage(target Enum, internalFormat Enum, width, height int32)
	FramebufferRenderbuffer(target Enum, attachment Enum, rbTarget Enum, rbo uint32)
	BlitFramebuffer(srcX0, srcY0, srcX1, srcY1, dstX0, dstY0, dstX1, dstY1 int32, mask Enum, filter Enum)

	// Buffers.
	GenBuffers(n int) []uint32
	DeleteBuffers(ids []uint32)
	BindBuffer(target Enum, buffer uint32)
	BufferData(target Enum, size int, data []byte, usage Enum)
	BufferSubData(target Enum, offset int, data []byte)
	MapBufferRangeWrite(target Enum, offset, length int) []byte
	UnmapBuffer(target Enum)

	// Vertex arrays.
	GenVertexArrays(n int) []uint32
	DeleteVertexArrays(ids []uint32)
	BindVertexArray(vao uint32)
	EnableVertexAttribArray(index uint32)
	VertexAttribPointer(index uint32, size int32, xtype Enum, normalized bool, stride int32, offset int)
	VertexAttribIPointer(index uint32, size int32, xtype Enum, stride int32, offset int)
	VertexAttribDivisor(index uint32, divisor uint32)

	// Shaders / programs.
	CreateShader(stage Enum) uint32
	ShaderSource(shader uint32, source string)
	CompileShader(shader uint32) (ok bool, log string)
	DeleteShader(shader uint32)
	CreateProgram() uint32
	AttachShader(program, shader uint32)
	DetachShader(program, shader uint32)
	BindAttribLocation(program, index uint32, name string)
	LinkProgram(program uint32) (ok bool, log string)
	DeleteProgram(program uint32)
	UseProgram(program uint32)
	GetUniformLocation(program uint32, name string) int32
	Uniform1i(location int32, value int32)
	Uniform1f(location int32, value float32)
	Uniform2f(location int32, x, y float32)
	UniformMatrix4fv(location int32, value *[16]float32)

	// Draw calls.
	DrawElements(mode Enum, count int32, xtype Enum)
	DrawElementsInstanced(mode Enum, count int32, xtype Enum, instanceCount int32)
	DrawArrays(mode Enum, first, count int32)

	// State.
	Enable(cap Enum)
	Disable(cap Enum)
	DepthFunc(fn Enum)
	DepthMask(flag bool)
	BlendFunc(src, dst Enum)
	BlendFuncSeparate(srcRGB, dstRGB, srcAlpha, dstAlpha Enum)
	BlendEquation(mode Enum)
	BlendColor(r, g, b, a float32)
	Scissor(x, y, width, height int32)
	Viewport(x, y, width, height int32)
	ClearColor(r, g, b, a float32)
	ClearDepth(d float64)
	Clear(mask Enum)
	PixelStorei(pname Enum, param int32)
	ReadPixels(x, y, width, height int32, format, xtype Enum, out []byte)
}
