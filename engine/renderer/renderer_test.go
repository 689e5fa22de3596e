package renderer

import (
	"errors"
	"image"
	"math"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy2d/common"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer/batch"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer/shape"

	"github.com/gogpu/gg"
)

func newTestRenderer(t *testing.T, w, h uint32, backendOpts []HeadlessOption, opts ...RendererBuilderOption) (Renderer, *HeadlessBackend) {
	t.Helper()
	b := NewHeadlessBackend(backendOpts...)
	r := NewRenderer(b, w, h, opts...)
	t.Cleanup(r.Release)
	return r, b
}

func rect(x, y, w, h float32) common.Rect {
	return common.Rect{X: x, Y: y, Width: w, Height: h}
}

func endFrame(t *testing.T, r Renderer) {
	t.Helper()
	if err := r.EndRender(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Present(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func expectPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("[%s] expected a panic", name)
		}
	}()
	fn()
}

func TestSingleStateIsOneBuffer(t *testing.T) {
	r, b := newTestRenderer(t, 800, 600, nil)

	r.BeginRender()
	for i := 0; i < 100; i++ {
		if err := r.DrawRect(rect(float32(i), 0, 5, 5), Filled(common.White), gg.Identity(), common.BlendAlpha); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	endFrame(t, r)

	pass := b.LastPass()
	if len(pass.Draws) != 1 {
		t.Fatalf("expected 1 draw; got %d", len(pass.Draws))
	}
	if pass.Draws[0].IndexCount != 600 {
		t.Fatalf("expected 600 indices; got %d", pass.Draws[0].IndexCount)
	}
	if s := r.Stats(); s.CompletedBuffers != 1 || s.DrawCalls != 1 || s.PipelineSwitches != 1 {
		t.Fatalf("expected 1 buffer, draw and pipeline switch; got %+v", s)
	}
}

func TestStateChangesSplitBuffers(t *testing.T) {
	r, b := newTestRenderer(t, 800, 600, nil)
	fill := Filled(common.White)

	r.BeginRender()
	r.DrawRect(rect(0, 0, 5, 5), fill, gg.Identity(), common.BlendAlpha)
	r.DrawRect(rect(0, 0, 5, 5), fill, gg.Identity(), common.BlendAdditive)
	r.DrawRect(rect(9, 9, 5, 5), fill, gg.Identity(), common.BlendAdditive)
	r.PushScissor(rect(10, 10, 100, 100))
	r.DrawRect(rect(20, 20, 5, 5), fill, gg.Identity(), common.BlendAdditive)
	r.PopScissor()
	endFrame(t, r)

	pass := b.LastPass()
	if len(pass.Draws) != 3 {
		t.Fatalf("expected 3 draws; got %d", len(pass.Draws))
	}
	want := []common.BlendMode{common.BlendAlpha, common.BlendAdditive}
	if len(pass.Pipelines) != len(want) || pass.Pipelines[0] != want[0] || pass.Pipelines[1] != want[1] {
		t.Fatalf("expected pipeline binds %v; got %v", want, pass.Pipelines)
	}
	if len(pass.Scissors) != 2 || pass.Scissors[0] != [4]uint32{0, 0, 800, 600} || pass.Scissors[1] != [4]uint32{10, 10, 100, 100} {
		t.Fatalf("expected full then clipped scissor; got %v", pass.Scissors)
	}
	if pass.Draws[1].IndexCount != 12 {
		t.Fatalf("expected same-state rects to share a buffer; got %d indices", pass.Draws[1].IndexCount)
	}
}

func TestScissorClamping(t *testing.T) {
	specs := []struct {
		name    string
		clip    common.Rect
		skipped bool
		want    [4]uint32
	}{
		{name: "inside", clip: rect(10.5, 10.5, 20, 20), want: [4]uint32{10, 10, 21, 21}},
		{name: "partly outside", clip: rect(-10, -10, 50, 50), want: [4]uint32{0, 0, 40, 40}},
		{name: "past the edge", clip: rect(1000, 0, 50, 50), skipped: true},
		{name: "empty", clip: rect(10, 10, 0, 10), skipped: true},
		{name: "nan", clip: rect(float32(math.NaN()), 0, 10, 10), skipped: true},
	}

	for _, spec := range specs {
		r, b := newTestRenderer(t, 800, 600, nil)
		r.BeginRender()
		r.PushScissor(spec.clip)
		r.DrawRect(rect(0, 0, 5, 5), Filled(common.White), gg.Identity(), common.BlendAlpha)
		r.PopScissor()
		endFrame(t, r)

		pass := b.LastPass()
		if spec.skipped {
			if len(pass.Draws) != 0 || r.Stats().SkippedDraws != 1 {
				t.Fatalf("[%s] expected the draw to be skipped; got %d draws, stats %+v", spec.name, len(pass.Draws), r.Stats())
			}
			continue
		}
		if len(pass.Draws) != 1 || pass.Draws[0].Scissor != spec.want {
			t.Fatalf("[%s] expected one draw clipped to %v; got %+v", spec.name, spec.want, pass.Draws)
		}
	}
}

func TestNestedScissorsIntersect(t *testing.T) {
	var s ScissorStack
	s.Push(rect(0, 0, 100, 100))
	s.Push(rect(50, 50, 100, 100))
	if got := s.Current(); got != common.ScissorRect(rect(50, 50, 50, 50)) {
		t.Fatalf("expected intersection [50 50 50 50]; got %v", got)
	}
	s.Pop()
	s.Pop()
	if s.Pop() {
		t.Fatalf("expected Pop on an empty stack to report false")
	}
	if s.Current().Enabled {
		t.Fatalf("expected no clipping on an empty stack")
	}
}

func TestMissingPipelineFallsBackToNone(t *testing.T) {
	r, b := newTestRenderer(t, 800, 600, []HeadlessOption{WithMissingPipelines(common.BlendAdditive)})

	r.BeginRender()
	r.DrawRect(rect(0, 0, 5, 5), Filled(common.White), gg.Identity(), common.BlendAdditive)
	endFrame(t, r)

	pass := b.LastPass()
	if len(pass.Draws) != 1 || pass.Draws[0].Mode != common.BlendNone {
		t.Fatalf("expected one draw with the none pipeline; got %+v", pass.Draws)
	}
}

func TestPainterOrderAcrossFamilies(t *testing.T) {
	r, b := newTestRenderer(t, 800, 600, nil)
	data, cells, segments, bounds, err := shape.SliderGrid([]gg.Point{gg.Pt(100, 100), gg.Pt(300, 100)}, 20, 32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	slider := Slider{Bounds: bounds, Data: data, Cells: cells, Segments: segments}

	r.BeginRender()
	r.DrawRect(rect(0, 0, 5, 5), Filled(common.White), gg.Identity(), common.BlendAlpha)
	if err := r.DrawSlider(slider, gg.Identity()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r.DrawRect(rect(0, 0, 5, 5), Filled(common.White), gg.Identity(), common.BlendAlpha)
	if err := r.DrawFlashlight(batch.FlashlightData{Radius: 100}, common.Rect{}, gg.Identity()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	endFrame(t, r)

	want := []batch.Kind{batch.KindVertex, batch.KindSlider, batch.KindVertex, batch.KindFlashlight}
	pass := b.LastPass()
	if len(pass.Draws) != len(want) {
		t.Fatalf("expected %d draws; got %d", len(want), len(pass.Draws))
	}
	for i, k := range want {
		if pass.Draws[i].Kind != k {
			t.Fatalf("expected draw %d to be %s; got %s", i, k, pass.Draws[i].Kind)
		}
	}
	if pass.Draws[1].Mode != common.BlendSlider || pass.Draws[3].Mode != common.BlendFlashlight {
		t.Fatalf("expected dedicated pipelines; got %s and %s", pass.Draws[1].Mode, pass.Draws[3].Mode)
	}
}

func TestManyRectsPartitionByCapacity(t *testing.T) {
	caps := batch.DefaultCapacities()
	caps.Vertex = batch.Usage{Vertices: 1024, Indices: 1536}
	r, b := newTestRenderer(t, 800, 600, nil, WithCapacities(caps))

	r.BeginRender()
	for i := 0; i < 5000; i++ {
		r.DrawRect(rect(float32(i%800), 0, 1, 1), Filled(common.White), gg.Identity(), common.BlendAlpha)
	}
	endFrame(t, r)

	pass := b.LastPass()
	if len(pass.Draws) != 20 {
		t.Fatalf("expected ceil(5000/256) = 20 draws; got %d", len(pass.Draws))
	}
	var total uint32
	for _, d := range pass.Draws {
		total += d.IndexCount
	}
	if total != 30000 {
		t.Fatalf("expected 30000 indices in total; got %d", total)
	}
}

func TestBuffersAreReusedAcrossFrames(t *testing.T) {
	r, b := newTestRenderer(t, 800, 600, nil)

	for frame := 0; frame < 3; frame++ {
		r.BeginRender()
		for i := 0; i < 1500; i++ {
			r.DrawRect(rect(0, 0, 1, 1), Filled(common.White), gg.Identity(), common.BlendAlpha)
		}
		endFrame(t, r)
	}
	if got := b.BuffersCreated(); got != 2 {
		t.Fatalf("expected 2 buffers reused across frames; got %d", got)
	}
	if got := r.Stats().BuffersCreated; got != 2 {
		t.Fatalf("expected stats to report 2 buffers; got %d", got)
	}
}

func TestFrameStateMisusePanics(t *testing.T) {
	r, _ := newTestRenderer(t, 800, 600, nil)

	expectPanic(t, "end before begin", func() { r.EndRender() })
	expectPanic(t, "draw outside frame", func() {
		r.DrawRect(rect(0, 0, 1, 1), Filled(common.White), gg.Identity(), common.BlendAlpha)
	})

	r.BeginRender()
	expectPanic(t, "begin twice", func() { r.BeginRender() })
	expectPanic(t, "present while recording", func() { r.Present() })
	endFrame(t, r)
}

func TestSurfaceErrorsAreReturned(t *testing.T) {
	r, b := newTestRenderer(t, 800, 600, nil)

	b.FailNextPass(ErrSurfaceOutdated)
	r.BeginRender()
	if err := r.EndRender(); !errors.Is(err, ErrSurfaceOutdated) {
		t.Fatalf("expected ErrSurfaceOutdated; got %v", err)
	}
	if err := r.Present(); err != nil {
		t.Fatalf("expected Present after a failed frame to be a no-op; got %v", err)
	}
	if b.Presents() != 0 {
		t.Fatalf("expected nothing presented; got %d", b.Presents())
	}

	r.Resize(1024, 768)
	r.BeginRender()
	endFrame(t, r)
	if w, h, _ := b.SurfaceSize(); w != 1024 || h != 768 {
		t.Fatalf("expected the surface to be resized to 1024x768; got %dx%d", w, h)
	}
}

func TestResizeIgnoresZero(t *testing.T) {
	r, b := newTestRenderer(t, 800, 600, nil)
	r.Resize(0, 600)
	r.SetVSync(PresentModeUncapped)

	w, h, mode := b.SurfaceSize()
	if w != 800 || h != 600 || mode != PresentModeUncapped {
		t.Fatalf("expected 800x600 uncapped; got %dx%d %s", w, h, mode)
	}
}

func TestUnbalancedScissorIsReset(t *testing.T) {
	r, b := newTestRenderer(t, 800, 600, nil)

	r.BeginRender()
	r.PushScissor(rect(0, 0, 10, 10))
	endFrame(t, r)

	r.BeginRender()
	r.DrawRect(rect(0, 0, 5, 5), Filled(common.White), gg.Identity(), common.BlendAlpha)
	endFrame(t, r)

	if d := b.LastPass().Draws; len(d) != 1 || d[0].Scissor != [4]uint32{0, 0, 800, 600} {
		t.Fatalf("expected an unclipped draw after the reset; got %+v", d)
	}
}

func TestDroppedDraws(t *testing.T) {
	r, b := newTestRenderer(t, 800, 600, nil)

	r.BeginRender()
	if err := r.DrawCircle(0, 0, 0, Filled(common.White), gg.Identity(), common.BlendAlpha); !errors.Is(err, shape.ErrDegenerate) {
		t.Fatalf("expected ErrDegenerate; got %v", err)
	}
	bad := Slider{Bounds: rect(0, 0, 10, 10), Data: batch.SliderData{GridDims: [2]uint32{2, 2}, Radius: 1, CellSize: 1}}
	if err := r.DrawSlider(bad, gg.Identity()); !errors.Is(err, shape.ErrInvalidSlider) {
		t.Fatalf("expected ErrInvalidSlider; got %v", err)
	}
	endFrame(t, r)

	if n := len(b.LastPass().Draws); n != 0 {
		t.Fatalf("expected no draws; got %d", n)
	}
}

func TestFillAndBorderAreSeparateGeometry(t *testing.T) {
	r, b := newTestRenderer(t, 800, 600, nil)
	style := Outlined(common.Black, 2)
	style.Fill = common.White

	r.BeginRender()
	if err := r.DrawRect(rect(10, 10, 50, 50), style, gg.Identity(), common.BlendAlpha); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	endFrame(t, r)

	if d := b.LastPass().Draws; len(d) != 1 || d[0].IndexCount != 6+24 {
		t.Fatalf("expected fill and border indices in one buffer; got %+v", d)
	}
}

func TestTextureLifecycle(t *testing.T) {
	r, b := newTestRenderer(t, 800, 600, []HeadlessOption{WithHeadlessAtlas(64, 1)})

	if _, err := r.LoadTextureRGBA(make([]byte, 10), 4, 4); !errors.Is(err, ErrDecodeFailed) {
		t.Fatalf("expected ErrDecodeFailed for a short buffer; got %v", err)
	}
	if _, err := r.LoadTextureBytes([]byte("not an image")); !errors.Is(err, ErrDecodeFailed) {
		t.Fatalf("expected ErrDecodeFailed for garbage; got %v", err)
	}
	if _, err := r.LoadTextureRGBA(make([]byte, 100*100*4), 100, 100); !errors.Is(err, ErrNoAtlasSpace) {
		t.Fatalf("expected ErrNoAtlasSpace; got %v", err)
	}

	ref, err := r.LoadTextureRGBA(make([]byte, 8*8*4), 8, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.IsEmpty() || ref.X != defaultAtlasPadding {
		t.Fatalf("expected a padded reference; got %s", ref)
	}

	r.FreeTexture(ref)
	r.FreeTexture(ref)
	writes := b.AtlasWrites()
	if len(writes) != 2 {
		t.Fatalf("expected an upload and one clear; got %d writes", len(writes))
	}
	clear := writes[1]
	if !clear.Zeroed || clear.X != 0 || clear.Width != 8+2*defaultAtlasPadding {
		t.Fatalf("expected the padded region to be zeroed; got %+v", clear)
	}

	again, err := r.LoadTextureRGBA(make([]byte, 8*8*4), 8, 8)
	if err != nil || again.X != ref.X || again.Y != ref.Y {
		t.Fatalf("expected the freed region to be reused; got %s, %v", again, err)
	}
}

func TestRenderTargetMidFrame(t *testing.T) {
	r, b := newTestRenderer(t, 800, 600, nil)

	r.BeginRender()
	r.PushScissor(rect(0, 0, 10, 10))
	r.DrawRect(rect(0, 0, 5, 5), Filled(common.White), gg.Identity(), common.BlendAlpha)

	rt, ok := r.CreateRenderTarget(32, 16, common.Black, func(tr Renderer) {
		tr.DrawCircle(16, 8, 6, Filled(common.White), gg.Identity(), common.BlendAlpha)
		if _, ok := tr.CreateRenderTarget(4, 4, common.Black, nil); ok {
			t.Fatalf("expected a nested render target to be refused")
		}
	})
	if !ok || rt.Texture().IsEmpty() {
		t.Fatalf("expected a render target")
	}
	r.DrawTexture(rt.Texture(), rect(0, 0, 5, 5), FlipNone, common.White, gg.Identity(), common.BlendAlpha)
	r.PopScissor()
	endFrame(t, r)

	passes := b.Passes()
	if len(passes) != 2 || !passes[0].Offscreen || passes[1].Offscreen {
		t.Fatalf("expected an offscreen pass then the surface pass; got %+v", passes)
	}
	if d := passes[0].Draws; len(d) != 1 || d[0].Scissor != [4]uint32{0, 0, 32, 16} {
		t.Fatalf("expected one unclipped target draw; got %+v", d)
	}
	if d := passes[1].Draws; len(d) != 1 || d[0].Scissor != [4]uint32{0, 0, 10, 10} {
		t.Fatalf("expected the main frame to keep its scissor and batch; got %+v", d)
	}
	if b.AtlasCopies() != 1 {
		t.Fatalf("expected one copy into the atlas; got %d", b.AtlasCopies())
	}

	if !r.UpdateRenderTarget(rt, nil) {
		t.Fatalf("expected the target to update")
	}
	r.FreeRenderTarget(rt)
	if !rt.Texture().IsEmpty() || r.UpdateRenderTarget(rt, nil) {
		t.Fatalf("expected a freed target to be unusable")
	}
	if _, ok := r.CreateRenderTarget(0, 10, common.Black, nil); ok {
		t.Fatalf("expected a zero-sized target to be refused")
	}
	if _, ok := r.CreateRenderTarget(5000, 5000, common.Black, nil); ok {
		t.Fatalf("expected an oversized target to be refused")
	}
}

type shot struct {
	img *image.RGBA
	err error
}

func waitShot(t *testing.T, ch <-chan shot) shot {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(5 * time.Second):
		t.Fatalf("expected the screenshot callback to run")
	}
	return shot{}
}

func TestScreenshotWithoutDraws(t *testing.T) {
	r, _ := newTestRenderer(t, 20, 10, nil)
	shots := make(chan shot, 4)

	r.Screenshot(func(img *image.RGBA, err error) { shots <- shot{img, err} })
	r.BeginRender()
	endFrame(t, r)

	s := waitShot(t, shots)
	if s.err != nil {
		t.Fatalf("unexpected error: %v", s.err)
	}
	if len(s.img.Pix) != 20*10*4 {
		t.Fatalf("expected %d bytes; got %d", 20*10*4, len(s.img.Pix))
	}
	for i, p := range s.img.Pix {
		if p != 0 {
			t.Fatalf("expected zeroed pixels; got %d at %d", p, i)
		}
	}

	r.BeginRender()
	endFrame(t, r)
	select {
	case <-shots:
		t.Fatalf("expected the callback to run exactly once")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestScreenshotSwapsBGRA(t *testing.T) {
	r, b := newTestRenderer(t, 3, 2, []HeadlessOption{WithHeadlessFormat(FormatBGRA8)}, WithClearColor(common.Color{1, 0, 0, 1}))
	shots := make(chan shot, 2)

	r.Screenshot(func(img *image.RGBA, err error) { shots <- shot{img, err} })
	r.Screenshot(func(img *image.RGBA, err error) { shots <- shot{img, err} })
	r.BeginRender()
	r.DrawRect(rect(0, 0, 1, 1), Filled(common.White), gg.Identity(), common.BlendAlpha)
	endFrame(t, r)

	a, c := waitShot(t, shots), waitShot(t, shots)
	for _, s := range []shot{a, c} {
		if s.err != nil {
			t.Fatalf("unexpected error: %v", s.err)
		}
		if got := s.img.Pix[:4]; got[0] != 255 || got[1] != 0 || got[2] != 0 || got[3] != 255 {
			t.Fatalf("expected red in RGBA order; got %v", got)
		}
	}
	if &a.img.Pix[0] == &c.img.Pix[0] {
		t.Fatalf("expected every callback to get its own pixels")
	}

	passes := b.Passes()
	if last := passes[len(passes)-1]; !last.Offscreen || len(last.Draws) != 1 {
		t.Fatalf("expected the frame to be re-rendered offscreen; got %+v", last)
	}
}

func TestScreenshotFailsWithSurface(t *testing.T) {
	r, b := newTestRenderer(t, 4, 4, nil)
	shots := make(chan shot, 1)

	b.FailNextPass(ErrSurfaceLost)
	r.Screenshot(func(img *image.RGBA, err error) { shots <- shot{img, err} })
	r.BeginRender()
	if err := r.EndRender(); !errors.Is(err, ErrSurfaceLost) {
		t.Fatalf("expected ErrSurfaceLost; got %v", err)
	}

	if s := waitShot(t, shots); !errors.Is(s.err, ErrSurfaceLost) || s.img != nil {
		t.Fatalf("expected the screenshot to fail with ErrSurfaceLost; got %v", s.err)
	}
}

func TestDecodeReadbackRejectsShortData(t *testing.T) {
	_, err := decodeReadback(Readback{Pixels: make([]byte, 10), BytesPerRow: 256, Width: 4, Height: 4})
	if err == nil {
		t.Fatalf("expected an error for a short readback")
	}
}
