package frame

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gogpu/wrcore/config"
	"github.com/gogpu/wrcore/device"
	"github.com/gogpu/wrcore/glapi"
	"github.com/gogpu/wrcore/handle"
)

func newTestPool(t *testing.T) *RenderTargetPool {
	t.Helper()
	mock := glapi.NewMock()
	dev, err := device.New(mock, config.Default(), false, false, nil)
	require.NoError(t, err)
	dev.BeginFrame(1.0)
	return NewRenderTargetPool(dev)
}

// A pass's outputs are not handed back out until one further pass has
// ended, since the following pass samples them.
func TestPoolDelaysRecycleByOnePass(t *testing.T) {
	pool := newTestPool(t)

	first := pool.Acquire(false, 64, 1)
	pool.EndPass()

	// The very next pass must not reuse the first pass's output.
	second := pool.Acquire(false, 64, 1)
	require.NotEqual(t, first, second)
	pool.EndPass()

	// Two passes later the first handle is free again.
	third := pool.Acquire(false, 64, 1)
	require.Equal(t, first, third)
}

// Across frames, handles come back out in FIFO order: the end-of-frame
// reversal makes the oldest-retired handle the next one popped.
func TestPoolReusesHandlesFIFOAcrossFrames(t *testing.T) {
	pool := newTestPool(t)

	var acquired []handle.Texture
	for i := 0; i < 3; i++ {
		acquired = append(acquired, pool.Acquire(false, 64, 1))
	}
	pool.EndPass()
	pool.EndFrame()
	require.Equal(t, 3, pool.CreatedCount(false))

	for i := 0; i < 3; i++ {
		tex := pool.Acquire(false, 64, 1)
		require.Equal(t, acquired[i], tex, "frame-to-frame reuse must be FIFO")
	}
	require.Equal(t, 3, pool.CreatedCount(false), "no new handles once the pool is warm")
}

// Alpha and color targets draw from distinct free lists.
func TestPoolKeepsAlphaAndColorSeparate(t *testing.T) {
	pool := newTestPool(t)

	color := pool.Acquire(false, 64, 1)
	alpha := pool.Acquire(true, 64, 1)
	require.NotEqual(t, color, alpha)
	require.Equal(t, 1, pool.CreatedCount(false))
	require.Equal(t, 1, pool.CreatedCount(true))
}
