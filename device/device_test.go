package device

import (
	"fmt"
	"testing"

	"github.com/gogpu/wrcore/config"
	"github.com/gogpu/wrcore/glapi"
	"github.com/gogpu/wrcore/handle"
	"github.com/stretchr/testify/require"
)

func newTestDevice(t *testing.T) (*Device, *glapi.Mock) {
	t.Helper()
	mock := glapi.NewMock()
	dev, err := New(mock, config.Default(), false, false, nil)
	require.NoError(t, err)
	return dev, mock
}

func TestNewRejectsTooSmallMaxTextureSize(t *testing.T) {
	mock := glapi.NewMock()
	tun := config.Default()
	tun.MinDeviceTextureSize = mock.MaxTextureSize() + 1
	_, err := New(mock, tun, false, false, nil)
	require.Error(t, err)
}

func TestBeginFrameAssertsNotAlreadyInside(t *testing.T) {
	dev, _ := newTestDevice(t)
	dev.BeginFrame(1.0)
	require.Panics(t, func() { dev.BeginFrame(1.0) })
}

func TestEndFrameAssertsInsideFrame(t *testing.T) {
	dev, _ := newTestDevice(t)
	require.Panics(t, func() { dev.EndFrame() })
}

func TestBeginEndFrameIncrementsFrameID(t *testing.T) {
	dev, _ := newTestDevice(t)
	id1 := dev.BeginFrame(1.0)
	dev.EndFrame()
	id2 := dev.BeginFrame(1.0)
	dev.EndFrame()
	require.Less(t, id1, id2)
}

// Binding the same handle to the same unit twice issues exactly one
// underlying bind.
func TestBindTextureIdempotence(t *testing.T) {
	dev, mock := newTestDevice(t)
	dev.BeginFrame(1.0)
	defer dev.EndFrame()

	tex := dev.CreateTextureIDs(1, handle.Target2D)[0]
	before := mock.CallCount("BindTexture")
	dev.BindTexture(0, tex)
	dev.BindTexture(0, tex)
	after := mock.CallCount("BindTexture")
	require.Equal(t, before+1, after, "second bind to the same unit/handle must be a no-op")
}

func TestBindProgramIdempotence(t *testing.T) {
	dev, mock := newTestDevice(t)
	dev.BeginFrame(1.0)
	defer dev.EndFrame()

	prog := handle.NewProgram(42)
	before := mock.CallCount("UseProgram")
	dev.BindProgram(prog)
	dev.BindProgram(prog)
	after := mock.CallCount("UseProgram")
	require.Equal(t, before+1, after)
}

func TestBindVAOIdempotence(t *testing.T) {
	dev, mock := newTestDevice(t)
	dev.BeginFrame(1.0)
	defer dev.EndFrame()

	vao := dev.CreateVAO(VertexDescriptor{Attributes: []VertexAttribute{
		{Name: "aPosition", Type: AttribFloat, Count: 2},
	}}, 0)
	// CreateVAO leaves the new VAO bound; creating a second one moves the
	// binding away so the first BindVAO below issues a real bind.
	dev.CreateVAO(VertexDescriptor{Attributes: []VertexAttribute{
		{Name: "aPosition", Type: AttribFloat, Count: 2},
	}}, 0)
	before := mock.CallCount("BindVertexArray")
	dev.BindVAO(vao)
	dev.BindVAO(vao)
	after := mock.CallCount("BindVertexArray")
	require.Equal(t, before+1, after)
}

func TestBindFramebufferIdempotence(t *testing.T) {
	dev, mock := newTestDevice(t)
	dev.BeginFrame(1.0)
	defer dev.EndFrame()

	fb := handle.NewFramebuffer(7)
	before := mock.CallCount("BindFramebuffer")
	dev.BindDrawFramebuffer(fb)
	dev.BindDrawFramebuffer(fb)
	after := mock.CallCount("BindFramebuffer")
	require.Equal(t, before+1, after)
}

func TestCreateVAOWithNewInstancesBorrowsBaseBuffers(t *testing.T) {
	dev, _ := newTestDevice(t)
	dev.BeginFrame(1.0)
	defer dev.EndFrame()

	desc := VertexDescriptor{Attributes: []VertexAttribute{
		{Name: "aPosition", Type: AttribFloat, Count: 2},
		{Name: "aData0", Type: AttribSignedInt, Count: 4, PerInstance: true},
	}}
	base := dev.CreateVAO(desc, 16)
	child := dev.CreateVAOWithNewInstances(desc, 16, base)

	baseRec := dev.vaos[base]
	childRec := dev.vaos[child]
	require.Equal(t, baseRec.Indices, childRec.Indices)
	require.Equal(t, baseRec.MainVertices, childRec.MainVertices)
	require.NotEqual(t, baseRec.Instances, childRec.Instances)
	require.Equal(t, handle.Borrowed, childRec.OwnsIndices)
	require.Equal(t, handle.Borrowed, childRec.OwnsMainVertices)
	require.Equal(t, handle.Owned, childRec.OwnsInstances)
}

func TestDeleteVAOOnlyDeletesOwnedBuffers(t *testing.T) {
	dev, mock := newTestDevice(t)
	dev.BeginFrame(1.0)
	defer dev.EndFrame()

	desc := VertexDescriptor{Attributes: []VertexAttribute{
		{Name: "aPosition", Type: AttribFloat, Count: 2},
	}}
	base := dev.CreateVAO(desc, 0)
	child := dev.CreateVAOWithNewInstances(desc, 0, base)

	childInstances := dev.vaos[child].Instances.Raw()
	dev.DeleteVAO(child)
	// Only the child's own instance buffer + VAO should be deleted, not
	// the shared index/main-vertex buffers.
	deletes := mock.CallsNamed("DeleteBuffers")
	require.NotEmpty(t, deletes)
	// The last DeleteBuffers call corresponds to this DeleteVAO.
	require.Equal(t, fmt.Sprint([]uint32{childInstances}), deletes[len(deletes)-1].Args)
	_, stillTracked := dev.vaos[base]
	require.True(t, stillTracked, "deleting the child VAO must not affect the base VAO")
}

func TestFormatMappingA8ARM(t *testing.T) {
	mock := glapi.NewMock()
	dev, err := New(mock, config.Default(), false, true, nil)
	require.NoError(t, err)
	fm := dev.resolveFormat(handle.FormatA8)
	require.Equal(t, glapi.BGRA, fm.internal)
	require.Equal(t, glapi.BGRA, fm.external)
}

func TestFormatMappingA8DesktopNonARM(t *testing.T) {
	dev, _ := newTestDevice(t) // isES=false, isARM=false
	fm := dev.resolveFormat(handle.FormatA8)
	require.Equal(t, glapi.RED, fm.internal)
}

func TestFormatMappingA8ES(t *testing.T) {
	mock := glapi.NewMock()
	dev, err := New(mock, config.Default(), true, false, nil)
	require.NoError(t, err)
	fm := dev.resolveFormat(handle.FormatA8)
	require.Equal(t, glapi.ALPHA, fm.internal)
}

func TestFormatMappingBGRA8DesktopVsES(t *testing.T) {
	desktop, _ := newTestDevice(t)
	fm := desktop.resolveFormat(handle.FormatBGRA8)
	require.Equal(t, glapi.RGBA, fm.internal)
	require.Equal(t, glapi.BGRA, fm.external)

	mock := glapi.NewMock()
	es, err := New(mock, config.Default(), true, false, nil)
	require.NoError(t, err)
	fmES := es.resolveFormat(handle.FormatBGRA8)
	require.Equal(t, glapi.BGRA_EXT, fmES.internal)
	require.Equal(t, glapi.BGRA_EXT, fmES.external)
}

func TestFormatMappingRGBAF32UsesFloatTexel(t *testing.T) {
	dev, _ := newTestDevice(t)
	fm := dev.resolveFormat(handle.FormatRGBAF32)
	require.Equal(t, glapi.RGBA32F, fm.internal)
	require.Equal(t, glapi.FLOAT, fm.xtype)
}

func TestExpandA8ForARMReplicatesEachByteFourTimes(t *testing.T) {
	out := expandA8ForARM([]byte{0x11, 0x22})
	require.Equal(t, []byte{0x11, 0x11, 0x11, 0x11, 0x22, 0x22, 0x22, 0x22}, out)
}

// Aligned case (stride == width*bpp): the whole buffer is already
// tightly packed.
func TestTrimToStrideAligned(t *testing.T) {
	bpp := 4
	width, height := 4, 3
	stride := width * bpp
	data := make([]byte, stride*height)
	for i := range data {
		data[i] = byte(i)
	}
	out := trimToStride(data, stride, width, height, bpp)
	wantLen := bpp*(stride/bpp)*(height-1) + width*bpp
	require.Equal(t, wantLen, len(out))
	require.Equal(t, data[:wantLen], out)
}

// TestTrimToStridePadded covers the non-aligned (row-padded) case: each
// row carries extra padding bytes beyond width*bpp that must not appear
// in the tightly-packed output.
func TestTrimToStridePadded(t *testing.T) {
	bpp := 4
	width, height := 3, 2
	stride := 20 // padded well beyond width*bpp=12
	data := make([]byte, stride*height)
	for row := 0; row < height; row++ {
		for col := 0; col < width*bpp; col++ {
			data[row*stride+col] = byte(row*10 + col)
		}
	}
	out := trimToStride(data, stride, width, height, bpp)
	require.Equal(t, width*bpp*height, len(out))
	for row := 0; row < height; row++ {
		for col := 0; col < width*bpp; col++ {
			require.Equal(t, data[row*stride+col], out[row*width*bpp+col])
		}
	}
}

func TestResizeTexturePreservesOldDimensionsForTemp(t *testing.T) {
	dev, mock := newTestDevice(t)
	dev.BeginFrame(1.0)
	defer dev.EndFrame()

	tex := dev.CreateTextureIDs(1, handle.Target2D)[0]
	dev.InitTexture(tex, 16, 16, handle.FormatBGRA8, handle.FilterLinear, handle.NoRenderTarget, nil)

	before := mock.CallCount("TexImage2D")
	dev.ResizeTexture(tex, 32, 32, handle.FormatBGRA8, handle.FilterLinear, handle.NoRenderTarget)
	after := mock.CallCount("TexImage2D")

	// Two InitTexture calls happen inside ResizeTexture (temp at old
	// size, then the real texture at new size), each issuing one
	// TexImage2D.
	require.Equal(t, before+2, after)

	w, h := dev.GetTextureDimensions(tex)
	require.Equal(t, 32, w)
	require.Equal(t, 32, h)
}

func TestDeinitTextureMarksFormatInvalidButKeepsHandle(t *testing.T) {
	dev, _ := newTestDevice(t)
	dev.BeginFrame(1.0)
	defer dev.EndFrame()

	tex := dev.CreateTextureIDs(1, handle.Target2D)[0]
	dev.InitTexture(tex, 8, 8, handle.FormatA8, handle.FilterNearest, handle.NoRenderTarget, nil)
	dev.DeinitTexture(tex)

	rec := dev.record(tex)
	require.Equal(t, handle.FormatInvalid, rec.Format)
	require.True(t, tex.IsValid(), "handle must remain allocated after deinit")
}

func TestInitTextureRenderTargetAllocatesFramebuffersAndDepth(t *testing.T) {
	dev, _ := newTestDevice(t)
	dev.BeginFrame(1.0)
	defer dev.EndFrame()

	tex := dev.CreateTextureIDs(1, handle.Target2DArray)[0]
	dev.InitTexture(tex, 64, 64, handle.FormatBGRA8, handle.FilterLinear, handle.LayerRenderTarget(3), nil)

	rec := dev.record(tex)
	require.NoError(t, rec.CheckInvariants())
	require.Len(t, rec.Framebuffers, 3)
	require.True(t, rec.HasDepthRenderbuffer())
}

func TestSetBlendModeSubpixelConstantColor(t *testing.T) {
	dev, mock := newTestDevice(t)
	dev.BeginFrame(1.0)
	defer dev.EndFrame()

	dev.SetBlendMode(BlendSubpixelConstantColor, [4]float32{0.5, 0.5, 0.5, 1.0})
	require.Equal(t, 1, mock.CallCount("BlendColor"))
	require.Equal(t, 1, mock.CallCount("BlendFunc"))
}

func TestShaderCompileFailureReturnsStructuredErrorAndDeletesShader(t *testing.T) {
	dev, mock := newTestDevice(t)
	mock.FailCompile = "BROKEN"

	_, err := dev.CompileShader("ps_test", StageFragment, nil, "BROKEN SOURCE")
	require.Error(t, err)
	require.Equal(t, 1, mock.CallCount("DeleteShader"))
}

func TestCreateProgramLinkFailureDetachesAndDeletes(t *testing.T) {
	dev, mock := newTestDevice(t)
	mock.FailLink = true

	vs, err := dev.CompileShader("ps_test.vs", StageVertex, nil, "void main(){}")
	require.NoError(t, err)
	fs, err := dev.CompileShader("ps_test.fs", StageFragment, nil, "void main(){}")
	require.NoError(t, err)

	_, err = dev.CreateProgram("ps_test", vs, fs, VertexDescriptor{})
	require.Error(t, err)
	require.GreaterOrEqual(t, mock.CallCount("DetachShader"), 2)
	require.Equal(t, 1, mock.CallCount("DeleteProgram"))
}

func TestCreateProgramBindsSamplerSlotsAfterLink(t *testing.T) {
	dev, mock := newTestDevice(t)
	mock.KnownUniforms = map[string]struct{}{
		"sColor0": {}, "sColor1": {}, "sColor2": {},
	}

	vs, err := dev.CompileShader("x.vs", StageVertex, nil, "void main(){}")
	require.NoError(t, err)
	fs, err := dev.CompileShader("x.fs", StageFragment, nil, "void main(){}")
	require.NoError(t, err)

	_, err = dev.CreateProgram("x", vs, fs, VertexDescriptor{})
	require.NoError(t, err)
	require.Equal(t, 3, mock.CallCount("Uniform1i"))
}
