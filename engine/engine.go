// Package engine hosts the frame loop: it owns the window and renderer, runs game logic at a fixed tick
// rate and redraws, resizes and recovers the surface on the window's thread.
package engine

import (
	"errors"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy2d/engine/config"
	"github.com/Carmen-Shannon/oxy2d/engine/log"
	"github.com/Carmen-Shannon/oxy2d/engine/profiler"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy2d/engine/window"
)

var logger = log.New("engine")

// maxSurfaceFailures is how many consecutive lost surfaces are tolerated before the engine quits.
const maxSurfaceFailures = 3

type engine struct {
	tickRateChannel chan time.Duration

	wg sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once

	cfg      config.Config
	window   window.Window
	renderer renderer.Renderer

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	drawCallback   func(r renderer.Renderer, deltaTime float32)

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
	lastRender       time.Time

	// pendingWidth and pendingHeight hold the latest framebuffer size until the next frame applies it.
	pendingWidth, pendingHeight int
	resizePending               bool
	minimized                   bool
	surfaceFailures             int
}

// Engine runs the frame loop of one window.
type Engine interface {
	// Window returns the window the engine renders into.
	//
	// Returns:
	//   - window.Window: the window
	Window() window.Window

	// Renderer returns the renderer drawing into the window.
	//
	// Returns:
	//   - renderer.Renderer: the renderer
	Renderer() renderer.Renderer

	// EnableProfiler starts logging frame statistics.
	EnableProfiler()

	// DisableProfiler stops logging frame statistics.
	DisableProfiler()

	// SetTickRate changes the rate of the tick callback.
	//
	// Parameters:
	//   - fps: ticks per second, 60 if not positive
	SetTickRate(fps float64)

	// SetTickCallback sets the game logic callback. It runs on its own goroutine, so state it shares
	// with the draw callback needs synchronization.
	//
	// Parameters:
	//   - callback: function receiving the seconds since the previous tick
	SetTickCallback(callback func(deltaTime float32))

	// SetDrawCallback sets the function issuing the frame's draw calls. It runs on the window's thread
	// between BeginRender and EndRender.
	//
	// Parameters:
	//   - callback: function receiving the renderer and the seconds since the previous frame
	SetDrawCallback(callback func(r renderer.Renderer, deltaTime float32))

	// SetRenderFrameLimit caps the frame rate.
	//
	// Parameters:
	//   - fps: maximum frames per second, 0 for uncapped
	SetRenderFrameLimit(fps float64)

	// Run starts the tick goroutine and blocks in the window message loop until the window closes.
	Run()

	// Quit stops the loop.
	Quit()
}

// NewEngine creates an engine. Without WithWindow a window is created from the configuration, and
// without WithRenderer a WebGPU renderer is created for that window.
//
// Parameters:
//   - options: functional options to configure the engine
//
// Returns:
//   - Engine: the engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		cfg:             config.Default(),
		engineTickRate:  time.Second / 60,
	}
	e.profilingEnabled = e.cfg.Profiler.Enabled

	for _, opt := range options {
		opt(e)
	}

	if e.window == nil {
		e.window = window.NewWindow(e.cfg.WindowOptions()...)
	}
	if e.renderer == nil {
		backend := gpu.New(e.window.SurfaceDescriptor(), e.cfg.BackendOptions()...)
		e.renderer = renderer.NewRenderer(backend, uint32(e.window.Width()), uint32(e.window.Height()), e.cfg.RendererOptions()...)
	}
	e.profiler = profiler.NewProfiler(e.cfg.Profiler.Interval)

	e.window.SetResizeCallback(e.onResize)
	e.window.SetUpdateCallback(e.renderFrame)
	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Run() {
	e.wg.Add(1)
	go e.handleEngine()

	e.lastRender = time.Now()
	e.window.ProcessMessages()

	e.signalQuit()
	e.wg.Wait()
	e.renderer.Release()
	if err := e.window.Close(); err != nil {
		logger.Warningf("close window: %v", err)
	}
}

func (e *engine) Quit() {
	e.signalQuit()
}

func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
		e.window.RequestClose()
	})
}

func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// onResize records the framebuffer size. It is applied at the start of the next frame so a burst of
// resize events configures the surface once.
func (e *engine) onResize(width, height int) {
	e.pendingWidth, e.pendingHeight = width, height
	e.resizePending = true
}

// renderFrame draws one frame. It runs on the window's thread, once per message loop iteration.
func (e *engine) renderFrame() {
	select {
	case <-e.quitChannel:
		return
	default:
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("render recovered from panic: %v", r)
			e.signalQuit()
		}
	}()

	now := time.Now()
	dt := float32(now.Sub(e.lastRender).Seconds())
	if e.lastRender.IsZero() {
		dt = 0
	}
	e.lastRender = now

	if e.resizePending {
		e.resizePending = false
		e.minimized = e.pendingWidth <= 0 || e.pendingHeight <= 0
		if !e.minimized {
			e.renderer.Resize(uint32(e.pendingWidth), uint32(e.pendingHeight))
		}
	}
	if e.minimized {
		return
	}

	e.renderer.BeginRender()
	if e.drawCallback != nil {
		e.drawCallback(e.renderer, dt)
	}
	err := e.renderer.EndRender()
	if err == nil {
		err = e.renderer.Present()
	}
	if err != nil {
		e.recoverSurface(err)
		return
	}
	e.surfaceFailures = 0

	if e.profilingEnabled {
		e.profiler.Tick(e.renderer.Stats(), e.renderer.AtlasStats())
	}

	if e.renderFrameLimit > 0 {
		if remaining := e.renderFrameLimit - time.Since(now); remaining > 0 {
			time.Sleep(remaining)
		}
	}
}

// recoverSurface reconfigures the surface after a failed frame so the next one can acquire it. A
// surface that stays lost ends the loop.
func (e *engine) recoverSurface(err error) {
	switch {
	case errors.Is(err, renderer.ErrSurfaceOutdated):
		logger.Debugf("surface outdated; reconfiguring")
	case errors.Is(err, renderer.ErrSurfaceLost):
		e.surfaceFailures++
		if e.surfaceFailures > maxSurfaceFailures {
			logger.Errorf("surface lost %d times in a row; quitting", e.surfaceFailures)
			e.signalQuit()
			return
		}
		logger.Warningf("surface lost; reconfiguring (attempt %d)", e.surfaceFailures)
	default:
		logger.Errorf("frame failed: %v", err)
		return
	}
	w, h := e.renderer.Size()
	e.renderer.Resize(w, h)
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)
	select {
	case e.tickRateChannel <- newRate:
	default:
		// drain the stale rate and replace it
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetDrawCallback(callback func(r renderer.Renderer, deltaTime float32)) {
	e.drawCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}
