package handle

import "testing"

func TestInvalidTextureIsZeroID(t *testing.T) {
	if InvalidTexture.IsValid() {
		t.Fatal("InvalidTexture must report IsValid() == false")
	}
	if InvalidTexture.Raw() != 0 {
		t.Fatalf("InvalidTexture.Raw() = %d, want 0", InvalidTexture.Raw())
	}
}

func TestNewTextureIsValid(t *testing.T) {
	tex := NewTexture(7, Target2DArray)
	if !tex.IsValid() {
		t.Fatal("NewTexture(7, ...) must be valid")
	}
	if tex.Raw() != 7 {
		t.Fatalf("Raw() = %d, want 7", tex.Raw())
	}
	if tex.Target != Target2DArray {
		t.Fatalf("Target = %v, want Target2DArray", tex.Target)
	}
}

func TestPixelFormatBytesPerPixel(t *testing.T) {
	cases := []struct {
		f    PixelFormat
		want int
	}{
		{FormatA8, 1},
		{FormatRG8, 2},
		{FormatRGB8, 3},
		{FormatBGRA8, 4},
		{FormatRGBAF32, 16},
		{FormatInvalid, 0},
	}
	for _, c := range cases {
		if got := c.f.BytesPerPixel(); got != c.want {
			t.Errorf("%v.BytesPerPixel() = %d, want %d", c.f, got, c.want)
		}
	}
}

func TestRenderTargetModeConstructors(t *testing.T) {
	if NoRenderTarget.Kind != RenderTargetNone {
		t.Fatal("NoRenderTarget must have Kind == RenderTargetNone")
	}
	simple := SimpleRenderTarget()
	if simple.Kind != RenderTargetSimple || simple.LayerCount != 1 {
		t.Fatalf("SimpleRenderTarget() = %+v, want {Simple, 1}", simple)
	}
	layered := LayerRenderTarget(4)
	if layered.Kind != RenderTargetLayered || layered.LayerCount != 4 {
		t.Fatalf("LayerRenderTarget(4) = %+v, want {Layered, 4}", layered)
	}
}

func TestTextureRecordInvariantLayeredRequiresArrayTarget(t *testing.T) {
	rec := &TextureRecord{
		Handle:       NewTexture(1, Target2D), // wrong target for layered mode
		RenderTarget: LayerRenderTarget(3),
		Framebuffers: []Framebuffer{NewFramebuffer(1), NewFramebuffer(2), NewFramebuffer(3)},
	}
	rec.SetDepthRenderbuffer(NewRenderbuffer(9))
	if err := rec.CheckInvariants(); err == nil {
		t.Fatal("expected invariant violation for layered render target on a non-array texture")
	}
}

func TestTextureRecordInvariantLayerCountMustMatchFramebuffers(t *testing.T) {
	rec := &TextureRecord{
		Handle:       NewTexture(1, Target2DArray),
		RenderTarget: LayerRenderTarget(3),
		Framebuffers: []Framebuffer{NewFramebuffer(1), NewFramebuffer(2)}, // mismatched count
	}
	rec.SetDepthRenderbuffer(NewRenderbuffer(9))
	if err := rec.CheckInvariants(); err == nil {
		t.Fatal("expected invariant violation for mismatched framebuffer count")
	}
}

func TestTextureRecordInvariantDepthRenderbufferMatchesRenderTargetStatus(t *testing.T) {
	// A plain (non-render-target) texture must not carry a depth renderbuffer.
	plain := &TextureRecord{Handle: NewTexture(1, Target2D)}
	if err := plain.CheckInvariants(); err != nil {
		t.Fatalf("plain texture should satisfy invariants, got: %v", err)
	}

	plain.SetDepthRenderbuffer(NewRenderbuffer(5))
	if err := plain.CheckInvariants(); err == nil {
		t.Fatal("expected invariant violation: depth renderbuffer on non-render-target texture")
	}

	// A render-target texture without a depth renderbuffer also violates.
	rt := &TextureRecord{
		Handle:       NewTexture(2, Target2D),
		RenderTarget: SimpleRenderTarget(),
		Framebuffers: []Framebuffer{NewFramebuffer(10)},
	}
	if err := rt.CheckInvariants(); err == nil {
		t.Fatal("expected invariant violation: render target missing depth renderbuffer")
	}
	rt.SetDepthRenderbuffer(NewRenderbuffer(11))
	if err := rt.CheckInvariants(); err != nil {
		t.Fatalf("render target with depth renderbuffer should satisfy invariants, got: %v", err)
	}
}

func TestTextureRecordClearDepthRenderbuffer(t *testing.T) {
	rec := &TextureRecord{Handle: NewTexture(1, Target2D)}
	rec.SetDepthRenderbuffer(NewRenderbuffer(3))
	if !rec.HasDepthRenderbuffer() {
		t.Fatal("expected HasDepthRenderbuffer() == true after SetDepthRenderbuffer")
	}
	rec.ClearDepthRenderbuffer()
	if rec.HasDepthRenderbuffer() {
		t.Fatal("expected HasDepthRenderbuffer() == false after ClearDepthRenderbuffer")
	}
}

func TestVertexArrayRecordOwnedBuffersToRelease(t *testing.T) {
	vao := &VertexArrayRecord{
		Handle:           NewVertexArray(1),
		Indices:          NewIndexBuffer(2),
		MainVertices:     NewVertexBuffer(3),
		Instances:        NewVertexBuffer(4),
		OwnsIndices:      Owned,
		OwnsMainVertices: Borrowed,
		OwnsInstances:    Owned,
	}
	indices, mainVerts, instances := vao.OwnedBuffersToRelease()
	if indices == nil || indices.Raw() != 2 {
		t.Fatal("expected owned Indices buffer to be released")
	}
	if mainVerts != nil {
		t.Fatal("expected borrowed MainVertices buffer not to be released")
	}
	if instances == nil || instances.Raw() != 4 {
		t.Fatal("expected owned Instances buffer to be released")
	}
}
