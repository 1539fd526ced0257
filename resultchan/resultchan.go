// Package resultchan implements the bounded, non-blocking result
// channel and external-image resolution: it ingests messages from the
// backend thread and resolves deferred external-image UVs into the GPU
// cache. The channel itself is a buffered Go channel drained with
// select-based non-blocking receives, so the render thread never waits
// on the backend.
package resultchan

import (
	"fmt"

	"github.com/gogpu/wrcore/gpucache"
)

// DocumentID identifies which document a NewFrame message belongs to.
type DocumentID uint64

// Msg is the sum type of messages the backend thread delivers; exactly
// one field is non-nil.
type Msg struct {
	NewFrame        *NewFrameMsg
	UpdateResources *UpdateResourcesMsg
	RefreshShader   *RefreshShaderMsg
}

// NewFrameMsg carries a freshly built frame and its associated texture
// updates.
type NewFrameMsg struct {
	DocumentID     DocumentID
	Frame          any // *frame.Frame; any to avoid an import cycle with package frame
	TextureUpdates any // []frame.TextureUpdateOp
	Counters       map[string]int64
}

// UpdateResourcesMsg carries standalone texture updates and/or a
// cancellation request that drops any staged frame.
type UpdateResourcesMsg struct {
	Updates         any // []frame.TextureUpdateOp
	CancelRendering bool
}

// RefreshShaderMsg requests recompilation of the shader at Path.
type RefreshShaderMsg struct {
	Path string
}

// Channel is a bounded, non-blocking handoff from the backend thread to
// the render thread. Sends never block the backend thread: a full
// channel drops the message, and the backend coalesces or retries at a
// higher layer.
type Channel struct {
	ch chan Msg
}

// NewChannel allocates a Channel with the given capacity, which callers
// size to their backend's burst behavior.
func NewChannel(capacity int) *Channel {
	return &Channel{ch: make(chan Msg, capacity)}
}

// TrySend enqueues msg without blocking; it reports whether the message
// was accepted (false means the channel was full and the message was
// dropped).
func (c *Channel) TrySend(msg Msg) bool {
	select {
	case c.ch <- msg:
		return true
	default:
		return false
	}
}

// TryRecv dequeues one message without blocking; ok is false if the
// channel was empty.
func (c *Channel) TryRecv() (msg Msg, ok bool) {
	select {
	case msg = <-c.ch:
		return msg, true
	default:
		return Msg{}, false
	}
}

// DrainUpTo pulls up to max messages via repeated non-blocking TryRecv
// calls, preserving arrival order.
func (c *Channel) DrainUpTo(max int) []Msg {
	out := make([]Msg, 0, max)
	for i := 0; i < max; i++ {
		msg, ok := c.TryRecv()
		if !ok {
			break
		}
		out = append(out, msg)
	}
	return out
}

// ImageType classifies an external image as plain 2D, rectangle, or an
// external-OES texture. It is carried through deferred resolution but
// not consulted when binding: resolved external textures are bound as
// 2D.
type ImageType int

const (
	ImageType2D ImageType = iota
	ImageTypeRect
	ImageTypeExternal
)

// ExternalImageSourceKind distinguishes the two payload shapes a
// handler may return from Lock.
type ExternalImageSourceKind int

const (
	SourceRawData ExternalImageSourceKind = iota
	SourceNativeTexture
)

// ExternalImageSource is the lock result: either raw CPU-side bytes or
// a native GPU texture handle.
type ExternalImageSource struct {
	Kind    ExternalImageSourceKind
	RawData []byte
	Native  uint32 // raw GL texture name, only valid when Kind == SourceNativeTexture
}

// LockResult is what Handler.Lock returns: the image's UV rectangle and
// its pixel source.
type LockResult struct {
	U0, V0, U1, V1 float32
	Source         ExternalImageSource
}

// Handler is the external-image provider contract. The returned
// buffer/handle must remain valid until Unlock is called for the same
// (id, channel) pair.
type Handler interface {
	Lock(id uint64, channel int) (LockResult, error)
	Unlock(id uint64, channel int)
}

// externalKey is the (external-image-id, channel-index) pair the table
// is keyed on.
type externalKey struct {
	ID      uint64
	Channel int
}

// DeferredResolve is a placeholder in a frame patched with real UV data
// after external images are locked.
type DeferredResolve struct {
	ExternalID uint64
	Channel    int
	ImageType  ImageType
	CacheAddr  gpucache.Update // BlockCount must be 1
}

// Table tracks locked external images for the current frame and the
// handles it must unlock before the frame ends.
type Table struct {
	handler Handler
	locked  map[externalKey]struct{}
	handles map[externalKey]uint32
}

// NewTable constructs an empty Table bound to handler.
func NewTable(handler Handler) *Table {
	return &Table{handler: handler, locked: make(map[externalKey]struct{}), handles: make(map[externalKey]uint32)}
}

// Handler returns the Table's bound external-image handler, for callers
// that need to lock images the Table itself doesn't track (the frame
// executor's external-buffer upload paths lock/unlock around a single
// call rather than holding the lock for the frame's duration).
func (t *Table) Handler() Handler {
	return t.handler
}

// ResolveDeferred locks every deferred resolve's external image in
// order, records its handle, and writes a one-block [u0,v0,u1,v1] patch
// to the resolve's cache address.
func (t *Table) ResolveDeferred(cache *gpucache.Texture, resolves []DeferredResolve) error {
	for _, r := range resolves {
		res, err := t.handler.Lock(r.ExternalID, r.Channel)
		if err != nil {
			return fmt.Errorf("resultchan: lock external image %d/%d: %w", r.ExternalID, r.Channel, err)
		}
		if res.Source.Kind != SourceNativeTexture {
			return fmt.Errorf("resultchan: deferred resolve requires a NativeTexture source, got raw data")
		}
		key := externalKey{ID: r.ExternalID, Channel: r.Channel}
		t.locked[key] = struct{}{}
		t.handles[key] = res.Source.Native

		patch := gpucache.Update{BlockCount: 1, U: r.CacheAddr.U, V: r.CacheAddr.V}
		cache.ApplyPatch(patch, []gpucache.Block{{res.U0, res.V0, res.U1, res.V1}})
	}
	return nil
}

// Lookup resolves an already-locked external image's handle.
func (t *Table) Lookup(id uint64, channel int) (uint32, bool) {
	h, ok := t.handles[externalKey{ID: id, Channel: channel}]
	return h, ok
}

// UnlockAll calls Unlock on the handler for every locked entry and
// clears the table. It must run on every exit path, including
// cancellation.
func (t *Table) UnlockAll() {
	for key := range t.locked {
		t.handler.Unlock(key.ID, key.Channel)
	}
	t.locked = make(map[externalKey]struct{})
	t.handles = make(map[externalKey]uint32)
}

// Empty reports whether the table holds no locked entries; it must be
// true at the end of every Render call.
func (t *Table) Empty() bool {
	return len(t.locked) == 0
}
