// Package shaders implements the shader registry: lazy compilation,
// feature-flag expansion, and per-variant program storage for
// primitive, cache, and clip-cache shaders.
package shaders

import (
	"fmt"

	"github.com/gogpu/wrcore/device"
	"github.com/gogpu/wrcore/handle"
)

// TransformKind classifies a primitive's transform as axis-aligned or
// complex, selecting between the simple and transform shader variants.
type TransformKind int

const (
	TransformAxisAligned TransformKind = iota
	TransformComplex
)

// CacheVertexFormat parameterizes cache shaders by vertex format.
type CacheVertexFormat int

const (
	VertexFormatPrimitiveInstances CacheVertexFormat = iota
	VertexFormatBlur
	VertexFormatClip
)

// Source is the caller-supplied GLSL text and metadata for one shader.
// Shader source text lives outside this module; the registry only
// assembles and compiles it.
type Source struct {
	Name        string
	VertexSrc   string
	FragmentSrc string
	Descriptor  device.VertexDescriptor
}

// program is one compiled+linked variant plus the feature flags it was
// built with.
type program struct {
	handle   handle.Program
	features []string
}

// Primitive holds both variants (simple, transform) of one primitive
// shader, compiled lazily.
type Primitive struct {
	name      string
	source    Source
	simple    *program
	transform *program
}

// Registry owns every shader kind and lazily compiles variants the
// first time they are bound, unless Precache is used to force eager
// compilation.
type Registry struct {
	dev *device.Device

	primitives map[string]*Primitive
	caches     map[cacheKey]*program
	clipCaches map[string]*program

	// imageVariants is the flat cartesian-product array:
	// index = (bufferKind*|formats| + format)*|colorSpaces| + colorSpace.
	imageVariants []*program
	imageDims     [3]int // buffer kinds, yuv formats, color spaces

	sharedPreamble string

	notifier Notifier
}

// Notifier receives NewFrameReady after a shader refresh completes, so
// the host knows to repaint.
type Notifier interface {
	NewFrameReady()
}

type cacheKey struct {
	name   string
	format CacheVertexFormat
}

// NewRegistry constructs an empty Registry bound to dev. sharedPreamble
// is the common text included after the caller's per-shader prefix in
// every assembled source.
func NewRegistry(dev *device.Device, sharedPreamble string, notifier Notifier) *Registry {
	return &Registry{
		dev:            dev,
		primitives:     make(map[string]*Primitive),
		caches:         make(map[cacheKey]*program),
		clipCaches:     make(map[string]*program),
		sharedPreamble: sharedPreamble,
		notifier:       notifier,
	}
}

// RegisterPrimitive declares a primitive shader by name without
// compiling it (compilation is deferred to first BindPrimitive call, or
// to Precache).
func (r *Registry) RegisterPrimitive(source Source) {
	r.primitives[source.Name] = &Primitive{name: source.Name, source: source}
}

// assemblePreamble builds the caller-prefix + shared-preamble +
// includes sequence, including the WR_MAX_VERTEX_TEXTURE_WIDTH and
// per-feature WR_FEATURE_<NAME> defines.
func assemblePreamble(maxVertexTextureWidth int, features []string, shared string, includes []string) []string {
	lines := []string{fmt.Sprintf("#define WR_MAX_VERTEX_TEXTURE_WIDTH %d", maxVertexTextureWidth)}
	for _, f := range features {
		lines = append(lines, fmt.Sprintf("#define WR_FEATURE_%s", f))
	}
	lines = append(lines, shared)
	lines = append(lines, includes...)
	return lines
}

// compile links a vertex+fragment pair with the given feature set and
// includes, returning the linked program.
func (r *Registry) compile(name string, src Source, features []string, includes []string, maxVertexTextureWidth int) (handle.Program, error) {
	preamble := assemblePreamble(maxVertexTextureWidth, features, r.sharedPreamble, includes)
	vs, err := r.dev.CompileShader(name+".vs", device.StageVertex, preamble, src.VertexSrc)
	if err != nil {
		return handle.Program{}, err
	}
	fs, err := r.dev.CompileShader(name+".fs", device.StageFragment, preamble, src.FragmentSrc)
	if err != nil {
		return handle.Program{}, err
	}
	return r.dev.CreateProgram(name, vs, fs, src.Descriptor)
}

// BindPrimitive compiles (if necessary) and binds the simple or
// transform variant of a primitive shader, selected by kind.
func (r *Registry) BindPrimitive(name string, kind TransformKind, maxVertexTextureWidth int) (handle.Program, error) {
	prim, ok := r.primitives[name]
	if !ok {
		return handle.Program{}, fmt.Errorf("shaders: unknown primitive %q", name)
	}

	slot := &prim.simple
	features := []string(nil)
	variantName := name + ".simple"
	if kind == TransformComplex {
		slot = &prim.transform
		features = []string{"TRANSFORM"}
		variantName = name + ".transform"
	}

	if *slot == nil {
		prog, err := r.compile(variantName, prim.source, features, []string{"prim_shared"}, maxVertexTextureWidth)
		if err != nil {
			return handle.Program{}, err
		}
		*slot = &program{handle: prog, features: features}
	}
	r.dev.BindProgram((*slot).handle)
	return (*slot).handle, nil
}

// BindCache compiles (if necessary) and binds a cache shader
// parameterized by vertex format.
func (r *Registry) BindCache(name string, format CacheVertexFormat, src Source, maxVertexTextureWidth int) (handle.Program, error) {
	key := cacheKey{name: name, format: format}
	p, ok := r.caches[key]
	if !ok {
		includes := []string{"prim_shared"}
		if format == VertexFormatClip {
			includes = append(includes, "clip_shared")
		}
		prog, err := r.compile(name, src, nil, includes, maxVertexTextureWidth)
		if err != nil {
			return handle.Program{}, err
		}
		p = &program{handle: prog}
		r.caches[key] = p
	}
	r.dev.BindProgram(p.handle)
	return p.handle, nil
}

// BindClipCache compiles (if necessary) and binds a clip-cache shader,
// which always uses the clip vertex format and implicitly adds the
// TRANSFORM feature.
func (r *Registry) BindClipCache(name string, src Source, maxVertexTextureWidth int) (handle.Program, error) {
	p, ok := r.clipCaches[name]
	if !ok {
		prog, err := r.compile(name, src, []string{"TRANSFORM"}, []string{"prim_shared", "clip_shared"}, maxVertexTextureWidth)
		if err != nil {
			return handle.Program{}, err
		}
		p = &program{handle: prog, features: []string{"TRANSFORM"}}
		r.clipCaches[name] = p
	}
	r.dev.BindProgram(p.handle)
	return p.handle, nil
}

// ImageVariantIndex computes the cartesian-product index for YUV/image
// shaders: ((bufferKind)*|formats| + format)*|colorSpaces| + colorSpace.
// numFormats and numColorSpaces are the sizes of the format and
// color-space axes for the calling context.
func ImageVariantIndex(bufferKind, format, colorSpace, numFormats, numColorSpaces int) int {
	return (bufferKind*numFormats+format)*numColorSpaces + colorSpace
}

// SetImageVariantDims declares the cartesian-product axis sizes and
// allocates the sparse flat variant array; nil cells are platform
// combinations with no shader.
func (r *Registry) SetImageVariantDims(bufferKinds, formats, colorSpaces int) {
	r.imageDims = [3]int{bufferKinds, formats, colorSpaces}
	r.imageVariants = make([]*program, bufferKinds*formats*colorSpaces)
}

// BindImageVariant compiles (if necessary) and binds one cell of the
// YUV/image variant matrix. src may be nil for unsupported platform
// combinations, in which case this returns an error rather than
// panicking.
func (r *Registry) BindImageVariant(bufferKind, format, colorSpace int, src *Source, maxVertexTextureWidth int) (handle.Program, error) {
	idx := ImageVariantIndex(bufferKind, format, colorSpace, r.imageDims[1], r.imageDims[2])
	if idx < 0 || idx >= len(r.imageVariants) {
		return handle.Program{}, fmt.Errorf("shaders: image variant index %d out of range", idx)
	}
	p := r.imageVariants[idx]
	if p == nil {
		if src == nil {
			return handle.Program{}, fmt.Errorf("shaders: unsupported image variant (buffer=%d format=%d colorspace=%d)", bufferKind, format, colorSpace)
		}
		prog, err := r.compile(src.Name, *src, nil, []string{"prim_shared"}, maxVertexTextureWidth)
		if err != nil {
			return handle.Program{}, err
		}
		p = &program{handle: prog}
		r.imageVariants[idx] = p
	}
	r.dev.BindProgram(p.handle)
	return p.handle, nil
}

// Precache forces eager compilation of the named primitive shaders'
// simple variant, trading startup time for first-frame latency.
func (r *Registry) Precache(names []string, maxVertexTextureWidth int) error {
	for _, name := range names {
		if _, err := r.BindPrimitive(name, TransformAxisAligned, maxVertexTextureWidth); err != nil {
			return err
		}
	}
	return nil
}

// RefreshShader recompiles a named primitive from new source and
// notifies the host once complete. Recompiled variants replace the
// cached programs; the old ones are deleted.
func (r *Registry) RefreshShader(name string, newSource Source, maxVertexTextureWidth int) error {
	prim, ok := r.primitives[name]
	if !ok {
		return fmt.Errorf("shaders: RefreshShader: unknown primitive %q", name)
	}
	if prim.simple != nil {
		r.dev.DeleteProgram(prim.simple.handle)
		prim.simple = nil
	}
	if prim.transform != nil {
		r.dev.DeleteProgram(prim.transform.handle)
		prim.transform = nil
	}
	prim.source = newSource
	if _, err := r.BindPrimitive(name, TransformAxisAligned, maxVertexTextureWidth); err != nil {
		return err
	}
	if r.notifier != nil {
		r.notifier.NewFrameReady()
	}
	return nil
}
