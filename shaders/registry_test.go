package shaders

import (
	"testing"

	"github.com/gogpu/wrcore/config"
	"github.com/gogpu/wrcore/device"
	"github.com/gogpu/wrcore/glapi"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) (*Registry, *device.Device, *glapi.Mock) {
	t.Helper()
	mock := glapi.NewMock()
	dev, err := device.New(mock, config.Default(), false, false, nil)
	require.NoError(t, err)
	return NewRegistry(dev, "// shared preamble\n", nil), dev, mock
}

func TestBindPrimitiveCompilesOnlyOncePerVariant(t *testing.T) {
	reg, _, mock := newTestRegistry(t)
	reg.RegisterPrimitive(Source{Name: "ps_rectangle", VertexSrc: "void main(){}", FragmentSrc: "void main(){}"})

	before := mock.CallCount("LinkProgram")
	_, err := reg.BindPrimitive("ps_rectangle", TransformAxisAligned, 1024)
	require.NoError(t, err)
	_, err = reg.BindPrimitive("ps_rectangle", TransformAxisAligned, 1024)
	require.NoError(t, err)
	after := mock.CallCount("LinkProgram")
	require.Equal(t, before+1, after, "binding the same variant twice must compile only once")
}

func TestBindPrimitiveSimpleAndTransformAreDistinctPrograms(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	reg.RegisterPrimitive(Source{Name: "ps_rectangle", VertexSrc: "void main(){}", FragmentSrc: "void main(){}"})

	simple, err := reg.BindPrimitive("ps_rectangle", TransformAxisAligned, 1024)
	require.NoError(t, err)
	transform, err := reg.BindPrimitive("ps_rectangle", TransformComplex, 1024)
	require.NoError(t, err)
	require.NotEqual(t, simple, transform)
}

func TestImageVariantIndexFormula(t *testing.T) {
	// ((buffer_kind)*|formats| + format)*|color_spaces| + color_space
	idx := ImageVariantIndex(2, 1, 0, 3, 2)
	require.Equal(t, ((2*3)+1)*2+0, idx)
}

func TestBindImageVariantUnsupportedCellErrorsRatherThanPanics(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	reg.SetImageVariantDims(2, 3, 2)
	_, err := reg.BindImageVariant(1, 2, 1, nil, 1024)
	require.Error(t, err)
}

func TestBindImageVariantCompilesOnDemandWhenSourceProvided(t *testing.T) {
	reg, _, mock := newTestRegistry(t)
	reg.SetImageVariantDims(2, 3, 2)
	src := &Source{Name: "ps_image", VertexSrc: "void main(){}", FragmentSrc: "void main(){}"}

	before := mock.CallCount("LinkProgram")
	_, err := reg.BindImageVariant(0, 0, 0, src, 1024)
	require.NoError(t, err)
	_, err = reg.BindImageVariant(0, 0, 0, src, 1024)
	require.NoError(t, err)
	require.Equal(t, before+1, mock.CallCount("LinkProgram"))
}

func TestPrecacheCompilesBeforeFirstBind(t *testing.T) {
	reg, _, mock := newTestRegistry(t)
	reg.RegisterPrimitive(Source{Name: "ps_rectangle", VertexSrc: "void main(){}", FragmentSrc: "void main(){}"})

	require.NoError(t, reg.Precache([]string{"ps_rectangle"}, 1024))
	require.Equal(t, 1, mock.CallCount("LinkProgram"))
}

type fakeNotifier struct{ called int }

func (f *fakeNotifier) NewFrameReady() { f.called++ }

func TestRefreshShaderNotifiesHost(t *testing.T) {
	mock := glapi.NewMock()
	dev, err := device.New(mock, config.Default(), false, false, nil)
	require.NoError(t, err)
	notifier := &fakeNotifier{}
	reg := NewRegistry(dev, "", notifier)
	reg.RegisterPrimitive(Source{Name: "ps_rectangle", VertexSrc: "void main(){}", FragmentSrc: "void main(){}"})
	_, err = reg.BindPrimitive("ps_rectangle", TransformAxisAligned, 1024)
	require.NoError(t, err)

	err = reg.RefreshShader("ps_rectangle", Source{Name: "ps_rectangle", VertexSrc: "void main(){/*new*/}", FragmentSrc: "void main(){}"}, 1024)
	require.NoError(t, err)
	require.Equal(t, 1, notifier.called)
}

func TestCompileShaderFailurePropagatesFromBindPrimitive(t *testing.T) {
	mock := glapi.NewMock()
	mock.FailCompile = "BROKEN"
	dev, err := device.New(mock, config.Default(), false, false, nil)
	require.NoError(t, err)
	reg := NewRegistry(dev, "", nil)
	reg.RegisterPrimitive(Source{Name: "bad", VertexSrc: "BROKEN", FragmentSrc: "void main(){}"})

	_, err = reg.BindPrimitive("bad", TransformAxisAligned, 1024)
	require.Error(t, err)
}
