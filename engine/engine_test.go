package engine

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy2d/common"
	"github.com/Carmen-Shannon/oxy2d/engine/config"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/gg"
)

// fakeWindow runs a fixed number of message loop iterations.
type fakeWindow struct {
	width, height int
	iterations    int
	closed        bool
	onUpdate      func()
	onResize      func(width, height int)
}

func (w *fakeWindow) SetUpdateCallback(callback func()) { w.onUpdate = callback }
func (w *fakeWindow) SetResizeCallback(callback func(width, height int)) { w.onResize = callback }
func (w *fakeWindow) SetScrollCallback(func(delta float32)) {}
func (w *fakeWindow) SetKeyDownCallback(func(key common.Key)) {}
func (w *fakeWindow) SetKeyUpCallback(func(key common.Key)) {}
func (w *fakeWindow) SetMouseButtonCallback(func(common.MouseButton, bool, float32, float32)) {}
func (w *fakeWindow) SetMouseMoveCallback(func(x, y float32)) {}
func (w *fakeWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor { return nil }
func (w *fakeWindow) IsRunning() bool { return !w.closed && w.iterations > 0 }
func (w *fakeWindow) RequestClose() { w.closed = true }
func (w *fakeWindow) Close() error {
	w.closed = true
	return nil
}
func (w *fakeWindow) Width() int { return w.width }
func (w *fakeWindow) Height() int { return w.height }

func (w *fakeWindow) ProcessMessages() {
	for w.IsRunning() {
		w.iterations--
		if w.onUpdate != nil {
			w.onUpdate()
		}
	}
}

func newTestEngine(iterations int) (*engine, *fakeWindow, *renderer.HeadlessBackend) {
	w := &fakeWindow{width: 200, height: 100, iterations: iterations}
	backend := renderer.NewHeadlessBackend()
	r := renderer.NewRenderer(backend, 200, 100)
	e := NewEngine(WithWindow(w), WithRenderer(r), WithTickRate(1000)).(*engine)
	return e, w, backend
}

func TestRunDrawsEveryIteration(t *testing.T) {
	e, _, backend := newTestEngine(3)
	frames := 0
	e.SetDrawCallback(func(r renderer.Renderer, dt float32) {
		frames++
		if err := r.DrawRect(common.Rect{X: 0, Y: 0, Width: 10, Height: 10}, renderer.Filled(common.White), gg.Identity(), common.BlendAlpha); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	e.Run()

	if frames != 3 {
		t.Fatalf("expected 3 frames; got %d", frames)
	}
	if got := backend.Presents(); got != 3 {
		t.Fatalf("expected 3 presents; got %d", got)
	}
}

func TestResizeAppliedOnNextFrame(t *testing.T) {
	e, w, backend := newTestEngine(0)
	w.onResize(640, 480)
	w.onResize(800, 600)
	if width, height, _ := backend.SurfaceSize(); width != 200 || height != 100 {
		t.Fatalf("expected resize to wait for the next frame; got %dx%d", width, height)
	}

	e.renderFrame()
	if width, height, _ := backend.SurfaceSize(); width != 800 || height != 600 {
		t.Fatalf("expected 800x600; got %dx%d", width, height)
	}
}

func TestMinimizedWindowSkipsFrames(t *testing.T) {
	e, w, backend := newTestEngine(0)
	w.onResize(0, 0)
	e.renderFrame()
	e.renderFrame()
	if got := backend.Presents(); got != 0 {
		t.Fatalf("expected no frames while minimized; got %d", got)
	}

	w.onResize(300, 200)
	e.renderFrame()
	if got := backend.Presents(); got != 1 {
		t.Fatalf("expected a frame after restore; got %d", got)
	}
}

func TestSurfaceRecovery(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		failures int
		quit     bool
	}{
		{"outdated", renderer.ErrSurfaceOutdated, 5, false},
		{"lost once", renderer.ErrSurfaceLost, 1, false},
		{"lost for good", renderer.ErrSurfaceLost, maxSurfaceFailures + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, w, backend := newTestEngine(0)
			for i := 0; i < tt.failures; i++ {
				backend.FailNextPass(tt.err)
				e.renderFrame()
			}
			quit := false
			select {
			case <-e.quitChannel:
				quit = true
			default:
			}
			if quit != tt.quit || w.closed != tt.quit {
				t.Fatalf("expected quit %v; got %v (window closed %v)", tt.quit, quit, w.closed)
			}
			if tt.quit {
				return
			}

			e.renderFrame()
			if got := backend.Presents(); got != 1 {
				t.Fatalf("expected the frame after recovery to present; got %d", got)
			}
			if e.surfaceFailures != 0 {
				t.Fatalf("expected the failure count to reset; got %d", e.surfaceFailures)
			}
		})
	}
}

func TestDrawPanicQuits(t *testing.T) {
	e, w, _ := newTestEngine(0)
	e.SetDrawCallback(func(renderer.Renderer, float32) {
		panic("boom")
	})
	e.renderFrame()
	if !w.closed {
		t.Fatalf("expected a panicking draw callback to close the window")
	}
}

func TestConfigAppliesProfilingAndFrameLimit(t *testing.T) {
	cfg := config.Default()
	cfg.Profiler.Enabled = true
	cfg.Renderer.FrameLimit = 50

	specs := []struct {
		descr     string
		options   []EngineBuilderOption
		profiling bool
		limit     time.Duration
	}{
		{"config", []EngineBuilderOption{WithConfig(cfg)}, true, 20 * time.Millisecond},
		{"overridden", []EngineBuilderOption{WithConfig(cfg), WithProfiling(false), WithRenderFrameLimit(0)}, false, 0},
		{"defaults", nil, false, 0},
	}

	for _, spec := range specs {
		w := &fakeWindow{width: 200, height: 100}
		r := renderer.NewRenderer(renderer.NewHeadlessBackend(), 200, 100)
		options := append([]EngineBuilderOption{WithWindow(w), WithRenderer(r)}, spec.options...)
		e := NewEngine(options...).(*engine)

		if e.profilingEnabled != spec.profiling {
			t.Fatalf("[%s] expected profiling %v; got %v", spec.descr, spec.profiling, e.profilingEnabled)
		}
		if e.renderFrameLimit != spec.limit {
			t.Fatalf("[%s] expected frame limit %s; got %s", spec.descr, spec.limit, e.renderFrameLimit)
		}
		r.Release()
	}
}
