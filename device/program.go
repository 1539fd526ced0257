package device

import (
	"fmt"

	"github.com/gogpu/wrcore/config"
	"github.com/gogpu/wrcore/glapi"
	"github.com/gogpu/wrcore/handle"
	"github.com/gogpu/wrcore/internal/glerr"
)

// ShaderStageKind identifies the GLSL stage being compiled.
type ShaderStageKind int

const (
	StageVertex ShaderStageKind = iota
	StageFragment
)

func (s ShaderStageKind) glEnum() glapi.Enum {
	if s == StageFragment {
		return glapi.FRAGMENT_SHADER
	}
	return glapi.VERTEX_SHADER
}

func (s ShaderStageKind) defineName() string {
	if s == StageFragment {
		return "WR_FRAGMENT_SHADER"
	}
	return "WR_VERTEX_SHADER"
}

// versionLine returns the GLSL version directive for the device's
// context type.
func (d *Device) versionLine() string {
	if d.isES {
		return "#version 300 es\n"
	}
	return "#version 150\n"
}

// assembleSource builds the final shader source for one stage: version
// directive, stage define, caller preamble fragments in order, then the
// base source.
func (d *Device) assembleSource(stage ShaderStageKind, preamble []string, base string) string {
	src := d.versionLine()
	src += fmt.Sprintf("#define %s\n", stage.defineName())
	for _, p := range preamble {
		src += p
		if len(p) == 0 || p[len(p)-1] != '\n' {
			src += "\n"
		}
	}
	src += base
	return src
}

// CompileShader compiles one stage of a named shader. On failure it
// deletes the shader object and returns a structured glerr.ShaderError;
// it never leaves a dangling shader object behind.
func (d *Device) CompileShader(name string, stage ShaderStageKind, preamble []string, source string) (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	full := d.assembleSource(stage, preamble, source)
	id := d.gl.CreateShader(stage.glEnum())
	d.gl.ShaderSource(id, full)
	ok, log := d.gl.CompileShader(id)
	if !ok {
		d.gl.DeleteShader(id)
		return 0, &glerr.ShaderError{Stage: glerr.StageCompilation, Name: name, Log: log}
	}
	return id, nil
}

// VertexAttribute describes one attribute slot in a vertex descriptor.
type VertexAttribute struct {
	Name        string
	Type        AttribType
	Count       int // component count, e.g. 2 for vec2, 4 for ivec4
	PerInstance bool
}

// AttribType enumerates the GL scalar types a vertex attribute is made
// of.
type AttribType int

const (
	AttribFloat AttribType = iota
	AttribUnsignedByteNormalized
	AttribSignedInt
)

func (t AttribType) glEnum() glapi.Enum {
	switch t {
	case AttribFloat:
		return glapi.FLOAT
	case AttribUnsignedByteNormalized:
		return glapi.UNSIGNED_BYTE
	case AttribSignedInt:
		return glapi.INT
	default:
		glerr.Assertf(false, "device: unknown attrib type %d", int(t))
		return glapi.FLOAT
	}
}

func (t AttribType) byteSize() int {
	switch t {
	case AttribUnsignedByteNormalized:
		return 1
	default:
		return 4
	}
}

// VertexDescriptor lists vertex attributes in binding order: all
// per-vertex attributes must precede all per-instance attributes.
type VertexDescriptor struct {
	Attributes []VertexAttribute
}

// CreateProgram links a vertex+fragment shader pair into a program.
// Vertex attribute indices equal each attribute's position in the
// concatenation of per-vertex then per-instance attributes, and
// BindAttribLocation is called for every attribute before linking. Both
// shaders are detached after linking; on link failure the program is
// deleted and a structured error is returned. The shader objects
// themselves are not deleted here.
func (d *Device) CreateProgram(name string, vs, fs uint32, descriptor VertexDescriptor) (handle.Program, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.gl.CreateProgram()
	d.gl.AttachShader(id, vs)
	d.gl.AttachShader(id, fs)

	index := uint32(0)
	for _, attr := range descriptor.Attributes {
		if attr.PerInstance {
			continue
		}
		d.gl.BindAttribLocation(id, index, attr.Name)
		index++
	}
	for _, attr := range descriptor.Attributes {
		if !attr.PerInstance {
			continue
		}
		d.gl.BindAttribLocation(id, index, attr.Name)
		index++
	}

	ok, log := d.gl.LinkProgram(id)
	d.gl.DetachShader(id, vs)
	d.gl.DetachShader(id, fs)
	if !ok {
		d.gl.DeleteProgram(id)
		return handle.Program{}, &glerr.ShaderError{Stage: glerr.StageLink, Name: name, Log: log}
	}

	prog := handle.NewProgram(id)
	d.bindSamplerSlotsLocked(prog)
	return prog, nil
}

// bindSamplerSlotsLocked walks the fixed sampler-name -> sampler-slot
// table and sets int uniforms for every sampler present in the linked
// program that has a fixed texture unit (SamplerSlot.TextureUnit);
// absent samplers, and samplers without a fixed unit, are skipped. Callers must hold d.mu and have
// the program already linked; UseProgram is called and restored around
// the writes.
func (d *Device) bindSamplerSlotsLocked(prog handle.Program) {
	prev := d.st.boundProgram
	d.bindProgramRaw(prog.Raw())
	for _, slot := range config.AllSamplerSlots {
		loc := d.gl.GetUniformLocation(prog.Raw(), slot.UniformName())
		if loc < 0 {
			continue
		}
		if unit, ok := slot.TextureUnit(); ok {
			d.gl.Uniform1i(loc, int32(unit))
		}
	}
	d.bindProgramRaw(prev)
}

// DeleteProgram releases a linked program.
func (d *Device) DeleteProgram(p handle.Program) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gl.DeleteProgram(p.Raw())
	if d.st.boundProgram == p.Raw() {
		d.st.boundProgram = 0
	}
}

// BindProgram binds p, idempotently.
func (d *Device) BindProgram(p handle.Program) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bindProgramRaw(p.Raw())
}

// SetUniforms uploads the 4x4 transform matrix and the device pixel
// ratio to the currently bound program. transformLoc/ratioLoc are
// looked up once by the caller via GetUniformLocation.
func (d *Device) SetUniforms(transformLoc int32, transform *[16]float32, ratioLoc int32, devicePixelRatio float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if transformLoc >= 0 {
		d.gl.UniformMatrix4fv(transformLoc, transform)
	}
	if ratioLoc >= 0 {
		d.gl.Uniform1f(ratioLoc, devicePixelRatio)
	}
}

// GetUniformLocation looks up a uniform location in the given program.
func (d *Device) GetUniformLocation(p handle.Program, name string) int32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gl.GetUniformLocation(p.Raw(), name)
}

// SetUniform2f sets a vec2 uniform on the currently bound program.
func (d *Device) SetUniform2f(location int32, x, y float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if location >= 0 {
		d.gl.Uniform2f(location, x, y)
	}
}

// SetUniform1i sets an int uniform (a sampler unit selector) on the
// currently bound program. The frame executor uses this to point the
// named sampler slots (sCacheA8, sCacheRGBA8, sLayers, sRenderTasks,
// sResourceCache, sDither) at whichever texture unit it bound that
// input to; only the three color samplers have a device-assigned fixed
// unit.
func (d *Device) SetUniform1i(location int32, value int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if location >= 0 {
		d.gl.Uniform1i(location, value)
	}
}

// BindNamedSampler looks up uniform name on the currently bound program
// p and, if present, binds tex to unit and points the sampler at it. It
// is a no-op (including skipping the texture bind) when the shader
// variant does not declare that sampler.
func (d *Device) BindNamedSampler(p handle.Program, name string, unit int, tex handle.Texture) {
	loc := d.GetUniformLocation(p, name)
	if loc < 0 {
		return
	}
	d.SetUniform1i(loc, int32(unit))
	d.BindTexture(unit, tex)
}
