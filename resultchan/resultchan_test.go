package resultchan

import (
	"testing"

	"github.com/gogpu/wrcore/config"
	"github.com/gogpu/wrcore/device"
	"github.com/gogpu/wrcore/glapi"
	"github.com/gogpu/wrcore/gpucache"
	"github.com/stretchr/testify/require"
)

func TestTrySendTryRecvRoundTrip(t *testing.T) {
	ch := NewChannel(2)
	require.True(t, ch.TrySend(Msg{RefreshShader: &RefreshShaderMsg{Path: "a.glsl"}}))
	msg, ok := ch.TryRecv()
	require.True(t, ok)
	require.Equal(t, "a.glsl", msg.RefreshShader.Path)
}

func TestTrySendNeverBlocksOnFullChannel(t *testing.T) {
	ch := NewChannel(1)
	require.True(t, ch.TrySend(Msg{RefreshShader: &RefreshShaderMsg{Path: "a"}}))
	require.False(t, ch.TrySend(Msg{RefreshShader: &RefreshShaderMsg{Path: "b"}}), "send to a full channel must not block, and must report failure")
}

func TestTryRecvOnEmptyChannelReportsFalse(t *testing.T) {
	ch := NewChannel(1)
	_, ok := ch.TryRecv()
	require.False(t, ok)
}

func TestDrainUpToRespectsMax(t *testing.T) {
	ch := NewChannel(10)
	for i := 0; i < 5; i++ {
		ch.TrySend(Msg{RefreshShader: &RefreshShaderMsg{Path: "x"}})
	}
	drained := ch.DrainUpTo(3)
	require.Len(t, drained, 3)
	remaining := ch.DrainUpTo(10)
	require.Len(t, remaining, 2)
}

type fakeHandler struct {
	unlocked []externalKey
}

func (f *fakeHandler) Lock(id uint64, channel int) (LockResult, error) {
	return LockResult{
		U0: 0.1, V0: 0.2, U1: 0.3, V1: 0.4,
		Source: ExternalImageSource{Kind: SourceNativeTexture, Native: uint32(id)},
	}, nil
}

func (f *fakeHandler) Unlock(id uint64, channel int) {
	f.unlocked = append(f.unlocked, externalKey{ID: id, Channel: channel})
}

func newTestCache(t *testing.T) *gpucache.Texture {
	t.Helper()
	mock := glapi.NewMock()
	dev, err := device.New(mock, config.Default(), false, false, nil)
	require.NoError(t, err)
	dev.BeginFrame(1.0)
	return gpucache.New(dev)
}

// ResolveDeferred writes a one-block [u0,v0,u1,v1] patch into the cache
// shadow and records the locked handle for draw-time lookup.
func TestResolveDeferredPatchesUVsIntoCache(t *testing.T) {
	cache := newTestCache(t)
	handler := &fakeHandler{}
	table := NewTable(handler)

	err := table.ResolveDeferred(cache, []DeferredResolve{
		{ExternalID: 7, Channel: 0, ImageType: ImageTypeExternal, CacheAddr: gpucache.Update{U: 3, V: 1}},
	})
	require.NoError(t, err)

	block := cache.BlockAt(1, 3)
	require.Equal(t, gpucache.Block{0.1, 0.2, 0.3, 0.4}, block)

	handle, ok := table.Lookup(7, 0)
	require.True(t, ok)
	require.Equal(t, uint32(7), handle)
}

// UnlockAll calls Unlock for every locked entry and leaves the table
// empty.
func TestUnlockAllCallsUnlockForEveryLockedEntry(t *testing.T) {
	cache := newTestCache(t)
	handler := &fakeHandler{}
	table := NewTable(handler)

	require.NoError(t, table.ResolveDeferred(cache, []DeferredResolve{
		{ExternalID: 1, Channel: 0, CacheAddr: gpucache.Update{U: 0, V: 0}},
		{ExternalID: 2, Channel: 1, CacheAddr: gpucache.Update{U: 1, V: 0}},
	}))
	require.False(t, table.Empty())

	table.UnlockAll()
	require.True(t, table.Empty())
	require.Len(t, handler.unlocked, 2)
}

func TestResolveDeferredRejectsRawDataSource(t *testing.T) {
	cache := newTestCache(t)
	handler := rawOnlyHandler{}
	table := NewTable(handler)

	err := table.ResolveDeferred(cache, []DeferredResolve{
		{ExternalID: 1, Channel: 0, CacheAddr: gpucache.Update{U: 0, V: 0}},
	})
	require.Error(t, err)
}

type rawOnlyHandler struct{}

func (rawOnlyHandler) Lock(id uint64, channel int) (LockResult, error) {
	return LockResult{Source: ExternalImageSource{Kind: SourceRawData, RawData: []byte{1, 2, 3}}}, nil
}
func (rawOnlyHandler) Unlock(id uint64, channel int) {}
