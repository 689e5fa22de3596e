package main

import (
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/Carmen-Shannon/oxy2d/common"
	"github.com/Carmen-Shannon/oxy2d/engine"
	"github.com/Carmen-Shannon/oxy2d/engine/atlas"
	"github.com/Carmen-Shannon/oxy2d/engine/camera"
	"github.com/Carmen-Shannon/oxy2d/engine/config"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer/batch"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer/shape"
	"github.com/gogpu/gg"
	"github.com/urfave/cli"
)

const (
	checkerSize  = 64
	targetSize   = 128
	sliderRadius = 24
	sliderCell   = 32
	zoomSpeed    = 0.15
)

var presentModes = []renderer.PresentMode{
	renderer.PresentModeVSync,
	renderer.PresentModeMailbox,
	renderer.PresentModeUncapped,
}

// scene holds the resources and input state of the demo. Every method runs on the window thread.
type scene struct {
	checker atlas.TextureReference
	target  *renderer.RenderTarget
	slider  renderer.Slider
	cam     camera.Camera

	elapsed    float64
	mode       int
	flashlight bool
	mouseX     float32
	mouseY     float32
	dragging   bool

	screenshotDir string
	quit          func()
}

// RunDemo opens a window and draws the demo scene until it is closed.
func RunDemo(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	e := engine.NewEngine(engine.WithConfig(cfg))
	s, err := newScene(e.Renderer(), ctx.String("screenshot-dir"))
	if err != nil {
		return err
	}
	s.quit = e.Quit
	if mode, ok := config.ParsePresentMode(cfg.Renderer.PresentMode); ok {
		s.mode = indexOfMode(mode)
	}

	w := e.Window()
	w.SetKeyDownCallback(func(key common.Key) { s.handleKey(e.Renderer(), key) })
	w.SetMouseMoveCallback(s.handleMouseMove)
	w.SetMouseButtonCallback(s.handleMouseButton)
	w.SetScrollCallback(s.handleScroll)
	e.SetDrawCallback(s.draw)

	logger.Noticef("demo running at %dx%d; S screenshot, V present mode, F flashlight, R reset view, Esc quit", cfg.Window.Width, cfg.Window.Height)
	e.Run()
	return nil
}

// newScene uploads the demo texture, builds the slider geometry and renders the offscreen target.
func newScene(r renderer.Renderer, screenshotDir string) (*scene, error) {
	checker, err := r.LoadTextureRGBA(checkerboard(checkerSize, 8), checkerSize, checkerSize)
	if err != nil {
		return nil, fmt.Errorf("demo texture: %w", err)
	}

	points := []gg.Point{gg.Pt(80, 520), gg.Pt(220, 440), gg.Pt(360, 540), gg.Pt(500, 460)}
	data, cells, segments, bounds, err := shape.SliderGrid(points, sliderRadius, sliderCell)
	if err != nil {
		return nil, fmt.Errorf("demo slider: %w", err)
	}
	data.BodyColor = [4]float32{0.15, 0.35, 0.8, 0.9}
	data.BorderColor = [4]float32{1, 1, 1, 1}
	data.BorderWidth = 3

	w, h := r.Size()
	s := &scene{
		cam:           camera.NewCamera(camera.WithViewport(w, h), camera.WithPosition(float64(w)/2, float64(h)/2), camera.WithZoomSpeed(zoomSpeed)),
		checker:       checker,
		slider:        renderer.Slider{Bounds: bounds, Data: data, Cells: cells, Segments: segments},
		screenshotDir: screenshotDir,
	}

	target, ok := r.CreateRenderTarget(targetSize, targetSize, common.Transparent, s.drawTarget)
	if !ok {
		logger.Warning("demo render target unavailable; drawing without it")
	}
	s.target = target
	return s, nil
}

func (s *scene) handleKey(r renderer.Renderer, key common.Key) {
	switch key {
	case common.KeyS:
		r.Screenshot(s.saveScreenshot)
	case common.KeyV:
		s.mode = (s.mode + 1) % len(presentModes)
		r.SetVSync(presentModes[s.mode])
		logger.Noticef("present mode %s", presentModes[s.mode])
	case common.KeyF:
		s.flashlight = !s.flashlight
	case common.KeyR:
		w, h := r.Size()
		s.cam.Reset()
		s.cam.SetPosition(float64(w)/2, float64(h)/2)
	case common.KeyEsc:
		if s.quit != nil {
			s.quit()
		}
	}
}

func (s *scene) handleMouseButton(button common.MouseButton, down bool, x, y float32) {
	if button == common.MouseRight {
		s.dragging = down
	}
	s.mouseX, s.mouseY = x, y
}

// handleMouseMove pans the camera while the right button is held.
func (s *scene) handleMouseMove(x, y float32) {
	if s.dragging {
		s.cam.Pan(float64(x-s.mouseX), float64(y-s.mouseY))
	}
	s.mouseX, s.mouseY = x, y
}

func (s *scene) handleScroll(delta float32) {
	s.cam.ZoomAt(float64(delta), float64(s.mouseX), float64(s.mouseY))
}

// drawTarget paints the render target contents: a ring of circles around a filled square.
func (s *scene) drawTarget(r renderer.Renderer) {
	half := float64(targetSize) / 2
	r.DrawRoundedRect(common.Rect{X: 32, Y: 32, Width: 64, Height: 64}, 12, renderer.Filled(common.Color{0.95, 0.75, 0.2, 1}), gg.Identity(), common.BlendAlpha)
	for i := 0; i < 8; i++ {
		a := float64(i) * math.Pi / 4
		r.DrawCircle(half+math.Cos(a)*48, half+math.Sin(a)*48, 10, renderer.Filled(common.Color{0.9, 0.2, 0.4, 1}), gg.Identity(), common.BlendAlpha)
	}
}

func (s *scene) draw(r renderer.Renderer, dt float32) {
	s.elapsed += float64(dt)
	w, h := r.Size()
	s.cam.SetViewport(w, h)
	view := s.cam.Matrix()

	for i := 0; i < 12; i++ {
		c := float32(i) / 12
		rect := common.Rect{X: 20 + float32(i)*50, Y: 20, Width: 40, Height: 40}
		r.DrawRect(rect, renderer.Filled(common.Color{c, 0.4, 1 - c, 1}), view, common.BlendAlpha)
	}
	r.DrawRoundedRect(common.Rect{X: 20, Y: 80, Width: 200, Height: 100}, 16, renderer.Outlined(common.White, 3), view, common.BlendAlpha)
	ring := renderer.Outlined(common.White, 2)
	ring.Fill = common.Color{0.2, 0.8, 0.5, 0.7}
	r.DrawCircle(320, 130, 50, ring, view, common.BlendAlpha)
	r.DrawArc(460, 130, 50, 0, math.Mod(s.elapsed, 2*math.Pi), renderer.Outlined(common.Color{1, 0.6, 0.1, 1}, 6), view, common.BlendAdditive)

	stroke := gg.DefaultStroke()
	stroke.Width = 4
	stroke.Cap = gg.LineCapRound
	r.DrawLine(20, 210, 560, 250, stroke, common.Color{0.8, 0.8, 0.2, 1}, view, common.BlendAlpha)

	path := gg.NewPath()
	path.MoveTo(600, 80)
	path.QuadraticTo(680, 40, 760, 80)
	path.LineTo(720, 180)
	path.Close()
	r.DrawPath(path, renderer.Filled(common.Color{0.5, 0.3, 0.9, 0.8}), view, common.BlendPremultiplied)

	spin := gg.Translate(700, 330).Multiply(gg.Rotate(s.elapsed)).Multiply(gg.Translate(-checkerSize/2, -checkerSize/2))
	r.DrawTexture(s.checker, common.Rect{Width: checkerSize, Height: checkerSize}, renderer.FlipNone, common.White, view.Multiply(spin), common.BlendAlpha)
	r.DrawTexture(s.checker, common.Rect{X: 600, Y: 420, Width: checkerSize, Height: checkerSize}, renderer.FlipH, common.Color{1, 0.5, 0.5, 1}, view, common.BlendAlpha)

	if s.target != nil {
		r.DrawTexture(s.target.Texture(), common.Rect{X: 40, Y: 280, Width: targetSize, Height: targetSize}, renderer.FlipNone, common.White, view, common.BlendPremultiplied)
	}

	r.PushScissor(common.Rect{X: 220, Y: 280, Width: 160, Height: 120})
	for i := 0; i < 6; i++ {
		x := 200 + math.Mod(s.elapsed*60+float64(i)*40, 240)
		r.DrawCircle(x, 340, 30, renderer.Filled(common.Color{0.3, 0.7, 1, 0.6}), view, common.BlendAlpha)
	}
	r.PopScissor()

	if err := r.DrawSlider(s.slider, view); err != nil {
		logger.Debugf("slider dropped: %v", err)
	}

	if s.flashlight {
		data := batch.FlashlightData{
			Center: [2]float32{s.mouseX, s.mouseY},
			Radius: float32(min(w, h)) / 5,
			Fade:   40,
			Color:  [4]float32{0, 0, 0, 1},
			Dim:    0.85,
			Shape:  batch.FlashlightCircle,
		}
		if err := r.DrawFlashlight(data, common.Rect{}, gg.Identity()); err != nil {
			logger.Debugf("flashlight dropped: %v", err)
		}
	}
}

func (s *scene) saveScreenshot(img *image.RGBA, err error) {
	if err != nil {
		logger.Errorf("screenshot failed: %v", err)
		return
	}
	path := filepath.Join(s.screenshotDir, fmt.Sprintf("oxy2d-%s.png", time.Now().Format("20060102-150405.000")))
	if err := writePNG(path, img); err != nil {
		logger.Errorf("screenshot %s: %v", path, err)
		return
	}
	logger.Noticef("saved screenshot %s", path)
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// checkerboard returns size*size RGBA pixels alternating white and grey squares of cell pixels.
func checkerboard(size, cell int) []byte {
	pixels := make([]byte, size*size*4)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := byte(255)
			if (x/cell+y/cell)%2 == 1 {
				v = 96
			}
			i := (y*size + x) * 4
			pixels[i], pixels[i+1], pixels[i+2], pixels[i+3] = v, v, v, 255
		}
	}
	return pixels
}

func indexOfMode(mode renderer.PresentMode) int {
	for i, m := range presentModes {
		if m == mode {
			return i
		}
	}
	return 0
}
