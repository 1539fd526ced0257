//go:build !nogl

package glapi

import (
	"runtime"
	"unsafe"

	gl "github.com/go-gl/gl/v4.6-core/gl"
)

// Real wraps github.com/go-gl/gl/v4.6-core/gl behind the API interface.
// Real must only be used on a goroutine that currently holds the GL
// context (runtime.LockOSThread); all rendering happens on one OS
// thread.
type Real struct{}

// NewReal returns a glapi.API backed by the live go-gl/gl bindings. The
// caller must have already made a GL context current on this OS thread.
func NewReal() *Real { return &Real{} }

func (Real) GenTextures(n int) []uint32 {
	ids := make([]uint32, n)
	gl.GenTextures(int32(n), &ids[0])
	return ids
}

func (Real) DeleteTextures(ids []uint32) {
	if len(ids) == 0 {
		return
	}
	gl.DeleteTextures(int32(len(ids)), &ids[0])
}

func (Real) BindTexture(target Enum, texture uint32) {
	gl.BindTexture(uint32(target), texture)
}

func (Real) ActiveTexture(unit int) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
}

func (Real) TexParameteri(target, pname, param Enum) {
	gl.TexParameteri(uint32(target), uint32(pname), int32(param))
}

func (Real) TexImage2D(target Enum, level int32, internalFormat Enum, width, height int32, format, xtype Enum, pixels []byte) {
	var ptr unsafe.Pointer
	var pin runtime.Pinner
	if len(pixels) > 0 {
		pin.Pin(&pixels[0])
		defer pin.Unpin()
		ptr = unsafe.Pointer(&pixels[0])
	}
	gl.TexImage2D(uint32(target), level, int32(internalFormat), width, height, 0, uint32(format), uint32(xtype), ptr)
}

func (Real) TexSubImage2D(target Enum, level int32, xoffset, yoffset, width, height int32, format, xtype Enum, pixels []byte) {
	var ptr unsafe.Pointer
	var pin runtime.Pinner
	if len(pixels) > 0 {
		pin.Pin(&pixels[0])
		defer pin.Unpin()
		ptr = unsafe.Pointer(&pixels[0])
	}
	gl.TexSubImage2D(uint32(target), level, xoffset, yoffset, width, height, uint32(format), uint32(xtype), ptr)
}

func (Real) TexSubImage2DFromPBO(target Enum, level int32, xoffset, yoffset, width, height int32, format, xtype Enum, pboOffset int) {
	gl.TexSubImage2D(uint32(target), level, xoffset, yoffset, width, height, uint32(format), uint32(xtype), unsafe.Pointer(uintptr(pboOffset))) //nolint:govet // PBO upload offset, not a real pointer
}

func (Real) MaxTextureSize() int {
	var v int32
	var pin runtime.Pinner
	pin.Pin(&v)
	defer pin.Unpin()
	gl.GetIntegerv(uint32(MAX_TEXTURE_SIZE), &v)
	return int(v)
}

func (Real) GenFramebuffers(n int) []uint32 {
	ids := make([]uint32, n)
	gl.GenFramebuffers(int32(n), &ids[0])
	return ids
}

func (Real) DeleteFramebuffers(ids []uint32) {
	if len(ids) == 0 {
		return
	}
	gl.DeleteFramebuffers(int32(len(ids)), &ids[0])
}

func (Real) BindFramebuffer(target Enum, fbo uint32) {
	gl.BindFramebuffer(uint32(target), fbo)
}

func (Real) FramebufferTexture2D(target, attachment, textarget Enum, texture uint32, level int32) {
	gl.FramebufferTexture2D(uint32(target), uint32(attachment), uint32(textarget), texture, level)
}

func (Real) FramebufferTextureLayer(target, attachment Enum, texture uint32, level, layer int32) {
	gl.FramebufferTextureLayer(uint32(target), uint32(attachment), texture, level, layer)
}

func (Real) GenRenderbuffers(n int) []uint32 {
	ids := make([]uint32, n)
	gl.GenRenderbuffers(int32(n), &ids[0])
	return ids
}

func (Real) DeleteRenderbuffers(ids []uint32) {
	if len(ids) == 0 {
		return
	}
	gl.DeleteRenderbuffers(int32(len(ids)), &ids[0])
}

func (Real) BindRenderbuffer(target Enum, rbo uint32) {
	gl.BindRenderbuffer(uint32(target), rbo)
}

func (Real) RenderbufferStorage(target, internalFormat Enum, width, height int32) {
	gl.RenderbufferStorage(uint32(target), uint32(internalFormat), width, height)
}

func (Real) FramebufferRenderbuffer(target, attachment, rbTarget Enum, rbo uint32) {
	gl.FramebufferRenderbuffer(uint32(target), uint32(attachment), uint32(rbTarget), rbo)
}

func (Real) BlitFramebuffer(srcX0, srcY0, srcX1, srcY1, dstX0, dstY0, dstX1, dstY1 int32, mask, filter Enum) {
	gl.BlitFramebuffer(srcX0, srcY0, srcX1, srcY1, dstX0, dstY0, dstX1, dstY1, uint32(mask), uint32(filter))
}

func (Real) GenBuffers(n int) []uint32 {
	ids := make([]uint32, n)
	gl.GenBuffers(int32(n), &ids[0])
	return ids
}

func (Real) DeleteBuffers(ids []uint32) {
	if len(ids) == 0 {
		return
	}
	gl.DeleteBuffers(int32(len(ids)), &ids[0])
}

func (Real) BindBuffer(target Enum, buffer uint32) {
	gl.BindBuffer(uint32(target), buffer)
}

func (Real) BufferData(target Enum, size int, data []byte, usage Enum) {
	var ptr unsafe.Pointer
	var pin runtime.Pinner
	if len(data) > 0 {
		pin.Pin(&data[0])
		defer pin.Unpin()
		ptr = unsafe.Pointer(&data[0])
	}
	gl.BufferData(uint32(target), size, ptr, uint32(usage))
}

func (Real) BufferSubData(target Enum, offset int, data []byte) {
	if len(data) == 0 {
		return
	}
	var pin runtime.Pinner
	pin.Pin(&data[0])
	defer pin.Unpin()
	gl.BufferSubData(uint32(target), offset, len(data), unsafe.Pointer(&data[0]))
}

func (Real) MapBufferRangeWrite(target Enum, offset, length int) []byte {
	ptr := gl.MapBufferRange(uint32(target), offset, length, gl.MAP_WRITE_BIT)
	if ptr == nil {
		return nil
	}
	return unsafe.Slice((*byte)(ptr), length)
}

func (Real) UnmapBuffer(target Enum) {
	gl.UnmapBuffer(uint32(target))
}

func (Real) GenVertexArrays(n int) []uint32 {
	ids := make([]uint32, n)
	gl.GenVertexArrays(int32(n), &ids[0])
	return ids
}

func (Real) DeleteVertexArrays(ids []uint32) {
	if len(ids) == 0 {
		return
	}
	gl.DeleteVertexArrays(int32(len(ids)), &ids[0])
}

func (Real) BindVertexArray(vao uint32) {
	gl.BindVertexArray(vao)
}

func (Real) EnableVertexAttribArray(index uint32) {
	gl.EnableVertexAttribArray(index)
}

func (Real) VertexAttribPointer(index uint32, size int32, xtype Enum, normalized bool, stride int32, offset int) {
	gl.VertexAttribPointerWithOffset(index, size, uint32(xtype), normalized, stride, uintptr(offset))
}

func (Real) VertexAttribIPointer(index uint32, size int32, xtype Enum, stride int32, offset int) {
	gl.VertexAttribIPointerWithOffset(index, size, uint32(xtype), stride, uintptr(offset))
}

func (Real) VertexAttribDivisor(index, divisor uint32) {
	gl.VertexAttribDivisor(index, divisor)
}

func (Real) CreateShader(stage Enum) uint32 {
	return gl.CreateShader(uint32(stage))
}

func (Real) ShaderSource(shader uint32, source string) {
	csource, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csource, nil)
	free()
}

func (Real) CompileShader(shader uint32) (bool, string) {
	gl.CompileShader(shader)
	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.TRUE {
		return true, ""
	}
	var logLen int32
	gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
	log := make([]byte, logLen+1)
	gl.GetShaderInfoLog(shader, logLen, nil, &log[0])
	return false, string(log[:logLen])
}

func (Real) DeleteShader(shader uint32) {
	gl.DeleteShader(shader)
}

func (Real) CreateProgram() uint32 {
	return gl.CreateProgram()
}

func (Real) AttachShader(program, shader uint32) {
	gl.AttachShader(program, shader)
}

func (Real) DetachShader(program, shader uint32) {
	gl.DetachShader(program, shader)
}

func (Real) BindAttribLocation(program, index uint32, name string) {
	cname, free := gl.Strs(name + "\x00")
	gl.BindAttribLocation(program, index, *cname)
	free()
}

func (Real) LinkProgram(program uint32) (bool, string) {
	gl.LinkProgram(program)
	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.TRUE {
		return true, ""
	}
	var logLen int32
	gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLen)
	log := make([]byte, logLen+1)
	gl.GetProgramInfoLog(program, logLen, nil, &log[0])
	return false, string(log[:logLen])
}

func (Real) DeleteProgram(program uint32) {
	gl.DeleteProgram(program)
}

func (Real) UseProgram(program uint32) {
	gl.UseProgram(program)
}

func (Real) GetUniformLocation(program uint32, name string) int32 {
	cname, free := gl.Strs(name + "\x00")
	loc := gl.GetUniformLocation(program, *cname)
	free()
	return loc
}

func (Real) Uniform1i(location, value int32) {
	gl.Uniform1i(location, value)
}

func (Real) Uniform1f(location int32, value float32) {
	gl.Uniform1f(location, value)
}

func (Real) Uniform2f(location int32, x, y float32) {
	gl.Uniform2f(location, x, y)
}

func (Real) UniformMatrix4fv(location int32, value *[16]float32) {
	gl.UniformMatrix4fv(location, 1, false, &value[0])
}

func (Real) DrawElements(mode Enum, count int32, xtype Enum) {
	gl.DrawElements(uint32(mode), count, uint32(xtype), nil)
}

func (Real) DrawElementsInstanced(mode Enum, count int32, xtype Enum, instanceCount int32) {
	gl.DrawElementsInstanced(uint32(mode), count, uint32(xtype), nil, instanceCount)
}

func (Real) DrawArrays(mode Enum, first, count int32) {
	gl.DrawArrays(uint32(mode), first, count)
}

func (Real) Enable(cap Enum)  { gl.Enable(uint32(cap)) }
func (Real) Disable(cap Enum) { gl.Disable(uint32(cap)) }

func (Real) DepthFunc(fn Enum)     { gl.DepthFunc(uint32(fn)) }
func (Real) DepthMask(flag bool)   { gl.DepthMask(flag) }
func (Real) BlendFunc(src, dst Enum) { gl.BlendFunc(uint32(src), uint32(dst)) }

func (Real) BlendFuncSeparate(srcRGB, dstRGB, srcAlpha, dstAlpha Enum) {
	gl.BlendFuncSeparate(uint32(srcRGB), uint32(dstRGB), uint32(srcAlpha), uint32(dstAlpha))
}

func (Real) BlendEquation(mode Enum) { gl.BlendEquation(uint32(mode)) }

func (Real) BlendColor(r, g, b, a float32) { gl.BlendColor(r, g, b, a) }

func (Real) Scissor(x, y, width, height int32) { gl.Scissor(x, y, width, height) }

func (Real) Viewport(x, y, width, height int32) { gl.Viewport(x, y, width, height) }

func (Real) ClearColor(r, g, b, a float32) { gl.ClearColor(r, g, b, a) }

func (Real) ClearDepth(d float64) { gl.ClearDepth(d) }

func (Real) Clear(mask Enum) { gl.Clear(uint32(mask)) }

func (Real) PixelStorei(pname Enum, param int32) { gl.PixelStorei(uint32(pname), param) }

func (Real) ReadPixels(x, y, width, height int32, format, xtype Enum, out []byte) {
	if len(out) == 0 {
		return
	}
	var pin runtime.Pinner
	pin.Pin(&out[0])
	defer pin.Unpin()
	gl.ReadPixels(x, y, width, height, uint32(format), uint32(xtype), unsafe.Pointer(&out[0]))
}

var _ API = Real{}
