package gpucache

import (
	"testing"

	"github.com/gogpu/wrcore/config"
	"github.com/gogpu/wrcore/device"
	"github.com/gogpu/wrcore/glapi"
	"github.com/stretchr/testify/require"
)

func newTestTexture(t *testing.T) (*Texture, *device.Device, *glapi.Mock) {
	t.Helper()
	mock := glapi.NewMock()
	dev, err := device.New(mock, config.Default(), false, false, nil)
	require.NoError(t, err)
	dev.BeginFrame(1.0)
	return New(dev), dev, mock
}

// Growing past the current height reallocates the texture exactly once
// and the shadow holds the copied blocks at their addresses.
func TestGrowReallocatesAndMarksAllRowsDirty(t *testing.T) {
	tex, _, mock := newTestTexture(t)

	before := mock.CallCount("TexImage2D")
	tex.Update(UpdateList{
		Height: 3,
		Blocks: []Block{{1, 2, 3, 4}, {5, 6, 7, 8}},
		Updates: []Update{
			{BlockIndex: 0, BlockCount: 2, U: 2, V: 1},
		},
	})
	after := mock.CallCount("TexImage2D")
	require.Equal(t, before+1, after, "growing past current height must reallocate exactly once")
	require.Equal(t, 3, tex.Rows())

	require.Equal(t, Block{1, 2, 3, 4}, tex.BlockAt(1, 2))
	require.Equal(t, Block{5, 6, 7, 8}, tex.BlockAt(1, 3))
}

// Flush uploads exactly the rows whose dirty bit is set and clears all
// bits.
func TestFlushUploadsOnlyDirtyRows(t *testing.T) {
	tex, _, mock := newTestTexture(t)
	tex.Update(UpdateList{
		Height: 4,
		Blocks: []Block{{1, 1, 1, 1}},
		Updates: []Update{
			{BlockIndex: 0, BlockCount: 1, U: 0, V: 2},
		},
	})

	before := mock.CallCount("TexSubImage2DFromPBO")
	tex.Flush()
	after := mock.CallCount("TexSubImage2DFromPBO")
	// Reallocation marks every row (4) dirty; update marks row 2 dirty
	// again (already counted). All 4 rows flush once.
	require.Equal(t, before+4, after)

	// A second flush with nothing newly dirtied uploads nothing.
	before2 := mock.CallCount("TexSubImage2DFromPBO")
	tex.Flush()
	require.Equal(t, before2, mock.CallCount("TexSubImage2DFromPBO"))
}

// ApplyPatch writes straight into the shadow, the path deferred
// external-image resolution uses.
func TestApplyPatchWritesShadowDirectly(t *testing.T) {
	tex, _, _ := newTestTexture(t)
	tex.Update(UpdateList{Height: 2})

	tex.ApplyPatch(Update{BlockCount: 1, U: 5, V: 1}, []Block{{0.1, 0.2, 0.3, 0.4}})
	require.Equal(t, Block{0.1, 0.2, 0.3, 0.4}, tex.BlockAt(1, 5))
}

func TestUpdateGrowsShadowForOutOfRangeRow(t *testing.T) {
	tex, _, _ := newTestTexture(t)
	tex.Update(UpdateList{
		Blocks: []Block{{9, 9, 9, 9}},
		Updates: []Update{
			{BlockIndex: 0, BlockCount: 1, U: 0, V: 7},
		},
	})
	require.Equal(t, 8, tex.Rows())
	require.Equal(t, Block{9, 9, 9, 9}, tex.BlockAt(7, 0))
}
