package main

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy2d/common"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer/batch"
)

func newTestScene(t *testing.T) (*scene, renderer.Renderer, *renderer.HeadlessBackend) {
	t.Helper()
	b := renderer.NewHeadlessBackend()
	r := renderer.NewRenderer(b, 800, 600)
	t.Cleanup(r.Release)

	s, err := newScene(r, t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s, r, b
}

func renderScene(t *testing.T, s *scene, r renderer.Renderer) {
	t.Helper()
	r.BeginRender()
	s.draw(r, 1.0/60)
	if err := r.EndRender(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Present(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSceneDrawsEveryFamily(t *testing.T) {
	s, r, b := newTestScene(t)
	if s.target == nil {
		t.Fatalf("expected the render target to be created")
	}
	if b.AtlasCopies() != 1 {
		t.Fatalf("expected 1 atlas copy for the render target; got %d", b.AtlasCopies())
	}

	s.handleKey(r, common.KeyF)
	renderScene(t, s, r)

	kinds := map[batch.Kind]bool{}
	for _, d := range b.LastPass().Draws {
		kinds[d.Kind] = true
	}
	for _, k := range []batch.Kind{batch.KindVertex, batch.KindSlider, batch.KindFlashlight} {
		if !kinds[k] {
			t.Fatalf("expected a %s draw; got %+v", k, b.LastPass().Draws)
		}
	}
	if len(b.LastPass().Scissors) == 0 {
		t.Fatalf("expected the clipped circles to set a scissor")
	}
}

func TestSceneFlashlightToggle(t *testing.T) {
	s, r, b := newTestScene(t)

	renderScene(t, s, r)
	for _, d := range b.LastPass().Draws {
		if d.Kind == batch.KindFlashlight {
			t.Fatalf("expected no flashlight before toggling")
		}
	}

	s.handleKey(r, common.KeyF)
	s.handleKey(r, common.KeyF)
	if s.flashlight {
		t.Fatalf("expected a second toggle to turn the flashlight off")
	}
}

func TestSceneCyclesPresentMode(t *testing.T) {
	s, r, b := newTestScene(t)

	want := []renderer.PresentMode{renderer.PresentModeMailbox, renderer.PresentModeUncapped, renderer.PresentModeVSync}
	for i, mode := range want {
		s.handleKey(r, common.KeyV)
		if _, _, got := b.SurfaceSize(); got != mode {
			t.Fatalf("expected press %d to select %s; got %s", i, mode, got)
		}
	}
}

func TestSceneEscQuits(t *testing.T) {
	s, r, _ := newTestScene(t)
	quit := false
	s.quit = func() { quit = true }

	s.handleKey(r, common.KeyEsc)
	if !quit {
		t.Fatalf("expected Esc to quit")
	}
}

func TestSceneScreenshotWritesPNG(t *testing.T) {
	s, r, _ := newTestScene(t)

	s.handleKey(r, common.KeyS)
	renderScene(t, s, r)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		matches, _ := filepath.Glob(filepath.Join(s.screenshotDir, "oxy2d-*.png"))
		if len(matches) == 1 {
			info, err := os.Stat(matches[0])
			if err == nil && info.Size() > 0 {
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected a screenshot in %s", s.screenshotDir)
}

func TestCheckerboard(t *testing.T) {
	px := checkerboard(4, 2)
	if len(px) != 4*4*4 {
		t.Fatalf("expected %d bytes; got %d", 4*4*4, len(px))
	}
	if px[0] != 255 || px[2*4] != 96 || px[3] != 255 {
		t.Fatalf("expected white then grey cells; got %v", px[:12])
	}
}

func TestIndexOfMode(t *testing.T) {
	for i, m := range presentModes {
		if got := indexOfMode(m); got != i {
			t.Fatalf("expected %s at %d; got %d", m, i, got)
		}
	}
}

func TestSceneCameraInput(t *testing.T) {
	s, r, _ := newTestScene(t)

	s.handleMouseMove(100, 100)
	s.handleMouseButton(common.MouseRight, true, 100, 100)
	s.handleMouseMove(130, 80)
	s.handleMouseButton(common.MouseRight, false, 130, 80)
	s.handleMouseMove(500, 500)

	x, y := s.cam.Position()
	if x != 400-30 || y != 300+20 {
		t.Fatalf("expected the drag to move the view to (370, 320); got (%g, %g)", x, y)
	}

	s.handleScroll(2)
	if want := (1 + zoomSpeed) * (1 + zoomSpeed); math.Abs(s.cam.Zoom()-want) > 1e-9 {
		t.Fatalf("expected two scroll notches to zoom to %g; got %g", want, s.cam.Zoom())
	}

	s.handleKey(r, common.KeyR)
	x, y = s.cam.Position()
	if x != 400 || y != 300 || s.cam.Zoom() != 1 {
		t.Fatalf("expected R to restore the view; got (%g, %g) zoom %g", x, y, s.cam.Zoom())
	}
}
