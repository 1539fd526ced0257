package vertextex

import (
	"testing"

	"github.com/gogpu/wrcore/config"
	"github.com/gogpu/wrcore/device"
	"github.com/gogpu/wrcore/glapi"
	"github.com/stretchr/testify/require"
)

func newTestDevice(t *testing.T) *device.Device {
	t.Helper()
	mock := glapi.NewMock()
	dev, err := device.New(mock, config.Default(), false, false, nil)
	require.NoError(t, err)
	dev.BeginFrame(1.0)
	return dev
}

// Uploaded height is ceil(len/itemsPerRow) and the upload is padded to
// a whole number of rows.
func TestInitHeightAndPaddingMatchFormula(t *testing.T) {
	dev := newTestDevice(t)
	tex := New(dev, config.Default(), 1)

	itemsPerRow := tex.TextureWidth()
	n := itemsPerRow*2 + 3 // not an exact multiple of a row
	data := make([][4]float32, n)
	for i := range data {
		data[i] = [4]float32{float32(i), 0, 0, 0}
	}

	tex.Init(data)

	wantHeight := (n + itemsPerRow - 1) / itemsPerRow
	require.Equal(t, wantHeight, tex.Height())
}

func TestInitIsNoOpForEmptyData(t *testing.T) {
	dev := newTestDevice(t)
	tex := New(dev, config.Default(), 1)
	tex.Init(nil)
	require.Equal(t, 0, tex.Height())
}

func TestTextureWidthIsMultipleOfTexelsPerRecord(t *testing.T) {
	dev := newTestDevice(t)
	tex := New(dev, config.Default(), 3)
	require.Equal(t, 0, tex.TextureWidth()%3)
}
