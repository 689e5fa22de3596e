package renderer

import (
	"fmt"
	"image"
	"time"

	"github.com/Carmen-Shannon/oxy2d/common"
	"github.com/Carmen-Shannon/oxy2d/engine/atlas"
	"github.com/Carmen-Shannon/oxy2d/engine/loader"
	"github.com/Carmen-Shannon/oxy2d/engine/log"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer/batch"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/gogpu/gg"
)

const (
	defaultAtlasPadding      = 2
	defaultScreenshotWorkers = 2
)

var logger = log.New("renderer")

// renderer is the implementation of the Renderer interface.
type renderer struct {
	backend Backend
	loader  loader.Loader
	atlas   *atlas.Atlas

	width, height uint32
	presentMode   PresentMode
	clear         common.Color

	state frameState
	stats FrameStats

	// The fields below are swapped out while a render target is being drawn.
	batcher    *batch.Batcher[GPUBuffer]
	scissors   *ScissorStack
	projection [16]float32
	targetW    uint32
	targetH    uint32
	inTarget   bool

	mainBatcher   *batch.Batcher[GPUBuffer]
	targetBatcher *batch.Batcher[GPUBuffer]

	pending []func(*image.RGBA, error)
	pool    worker.DynamicWorkerPool
	taskID  int

	// Pre-creation config collected from builder options
	capacities   batch.Capacities
	padding      uint32
	workers      int
	pendingAtlas *atlas.Atlas
}

// Renderer is an immediate-mode 2D renderer. Draw calls made between BeginRender and EndRender are batched
// into as few GPU buffers as blend mode and scissor changes allow, then drawn in submission order.
// Every texture lives in one shared multi-layer atlas.
//
// A Renderer is driven from a single goroutine. Only screenshot callbacks run elsewhere.
type Renderer interface {
	// BeginRender starts a frame. It panics if the previous frame was not ended.
	BeginRender()

	// EndRender flushes the frame's batches and draws them to the surface. A pending screenshot is
	// rendered and its readback armed here.
	//
	// Returns:
	//   - error: ErrSurfaceLost or ErrSurfaceOutdated if the surface could not be acquired
	EndRender() error

	// Present shows the frame drawn by EndRender. Calling it after a failed EndRender is a no-op.
	//
	// Returns:
	//   - error: ErrSurfaceLost if presentation fails
	Present() error

	// Resize reconfigures the surface. Zero dimensions are ignored.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height uint32)

	// SetVSync changes the present mode. The surface is reconfigured once it has a size.
	//
	// Parameters:
	//   - mode: the present mode
	SetVSync(mode PresentMode)

	// SetClearColor sets the color the surface is cleared to at the start of every frame.
	//
	// Parameters:
	//   - c: the clear color
	SetClearColor(c common.Color)

	// Size returns the surface size.
	//
	// Returns:
	//   - uint32: the width in pixels
	//   - uint32: the height in pixels
	Size() (uint32, uint32)

	// LoadTextureBytes decodes an encoded image and uploads it into the atlas.
	//
	// Parameters:
	//   - encoded: PNG, JPEG, GIF, BMP, WebP or DDS data, optionally in an LZ4 container
	//
	// Returns:
	//   - atlas.TextureReference: the atlas region holding the texture
	//   - error: ErrDecodeFailed or ErrNoAtlasSpace
	LoadTextureBytes(encoded []byte) (atlas.TextureReference, error)

	// LoadTextureRGBA uploads tightly packed RGBA pixels into the atlas.
	//
	// Parameters:
	//   - pixels: width*height*4 bytes
	//   - width, height: the texture size
	//
	// Returns:
	//   - atlas.TextureReference: the atlas region holding the texture
	//   - error: ErrDecodeFailed for a size mismatch, ErrNoAtlasSpace when the atlas is full
	LoadTextureRGBA(pixels []byte, width, height uint32) (atlas.TextureReference, error)

	// LoadTextureFile reads, decodes and uploads a texture file. Decoded files are cached by path.
	//
	// Parameters:
	//   - path: the image file
	//
	// Returns:
	//   - atlas.TextureReference: the atlas region holding the texture
	//   - error: the read error, ErrDecodeFailed or ErrNoAtlasSpace
	LoadTextureFile(path string) (atlas.TextureReference, error)

	// FreeTexture returns a texture's atlas region and clears its pixels. An empty reference is ignored.
	//
	// Parameters:
	//   - ref: the texture to free
	FreeTexture(ref atlas.TextureReference)

	// DrawRect draws an axis aligned rectangle.
	//
	// Parameters:
	//   - rect: the rectangle in local space
	//   - style: fill and border
	//   - m: the transform to target pixels
	//   - mode: the blend mode
	//
	// Returns:
	//   - error: the reason the draw was dropped, or nil
	DrawRect(rect common.Rect, style Style, m gg.Matrix, mode common.BlendMode) error

	// DrawRoundedRect draws a rectangle with circular corners.
	//
	// Parameters:
	//   - rect: the rectangle in local space
	//   - radius: the corner radius, clamped to half the shorter side
	//   - style: fill and border
	//   - m: the transform to target pixels
	//   - mode: the blend mode
	//
	// Returns:
	//   - error: the reason the draw was dropped, or nil
	DrawRoundedRect(rect common.Rect, radius float64, style Style, m gg.Matrix, mode common.BlendMode) error

	// DrawCircle draws a circle.
	//
	// Parameters:
	//   - cx, cy: the center in local space
	//   - radius: the radius
	//   - style: fill and border
	//   - m: the transform to target pixels
	//   - mode: the blend mode
	//
	// Returns:
	//   - error: the reason the draw was dropped, or nil
	DrawCircle(cx, cy, radius float64, style Style, m gg.Matrix, mode common.BlendMode) error

	// DrawArc draws a pie slice from start to end in radians, clockwise in screen space. An end below
	// start wraps forward, so the slice never runs counterclockwise.
	//
	// Parameters:
	//   - cx, cy: the center in local space
	//   - radius: the radius
	//   - start, end: the angles
	//   - style: fill and border
	//   - m: the transform to target pixels
	//   - mode: the blend mode
	//
	// Returns:
	//   - error: the reason the draw was dropped, or nil
	DrawArc(cx, cy, radius, start, end float64, style Style, m gg.Matrix, mode common.BlendMode) error

	// DrawLine draws a straight stroke.
	//
	// Parameters:
	//   - x0, y0, x1, y1: the endpoints in local space
	//   - stroke: width, cap and miter limit
	//   - color: the line color
	//   - m: the transform to target pixels
	//   - mode: the blend mode
	//
	// Returns:
	//   - error: the reason the draw was dropped, or nil
	DrawLine(x0, y0, x1, y1 float64, stroke gg.Stroke, color common.Color, m gg.Matrix, mode common.BlendMode) error

	// DrawPath fills and strokes an arbitrary single-subpath outline.
	//
	// Parameters:
	//   - path: the outline in local space
	//   - style: fill and border
	//   - m: the transform to target pixels
	//   - mode: the blend mode
	//
	// Returns:
	//   - error: the reason the draw was dropped, or nil
	DrawPath(path *gg.Path, style Style, m gg.Matrix, mode common.BlendMode) error

	// DrawTexture draws an atlas texture stretched over dst.
	//
	// Parameters:
	//   - ref: the texture; an empty reference draws the tint alone
	//   - dst: the destination rectangle in local space
	//   - flip: mirroring
	//   - tint: multiplied with the texture
	//   - m: the transform to target pixels
	//   - mode: the blend mode
	//
	// Returns:
	//   - error: the reason the draw was dropped, or nil
	DrawTexture(ref atlas.TextureReference, dst common.Rect, flip Flip, tint common.Color, m gg.Matrix, mode common.BlendMode) error

	// DrawSlider draws a slider body with the slider pipeline.
	//
	// Parameters:
	//   - s: the slider
	//   - m: the transform to target pixels
	//
	// Returns:
	//   - error: shape.ErrInvalidSlider for an inconsistent grid, or the reason the draw was dropped
	DrawSlider(s Slider, m gg.Matrix) error

	// DrawFlashlight draws a flashlight mask with the flashlight pipeline.
	//
	// Parameters:
	//   - data: the mask parameters
	//   - bounds: the area the mask covers; the zero Rect covers the whole target
	//   - m: the transform to target pixels
	//
	// Returns:
	//   - error: the reason the draw was dropped, or nil
	DrawFlashlight(data batch.FlashlightData, bounds common.Rect, m gg.Matrix) error

	// PushScissor clips subsequent draws to r intersected with the current clip.
	//
	// Parameters:
	//   - r: the clip rectangle in target pixels
	PushScissor(r common.Rect)

	// PopScissor restores the previous clip. Popping an empty stack logs a warning.
	PopScissor()

	// CreateRenderTarget renders draw into a new atlas texture.
	//
	// Parameters:
	//   - width, height: the texture size
	//   - clear: the background color
	//   - draw: the drawing callback, run immediately against the target
	//
	// Returns:
	//   - *RenderTarget: the target, whose Texture is drawable with DrawTexture
	//   - bool: false if there is no atlas space or the target could not be rendered
	CreateRenderTarget(width, height uint32, clear common.Color, draw func(Renderer)) (*RenderTarget, bool)

	// UpdateRenderTarget redraws an existing target in place.
	//
	// Parameters:
	//   - rt: the target
	//   - draw: the drawing callback
	//
	// Returns:
	//   - bool: false if the target was freed or could not be rendered
	UpdateRenderTarget(rt *RenderTarget, draw func(Renderer)) bool

	// FreeRenderTarget releases a target's atlas region.
	//
	// Parameters:
	//   - rt: the target
	FreeRenderTarget(rt *RenderTarget)

	// Screenshot captures the next frame. The callback runs exactly once on a worker goroutine, after
	// the frame's readback completes.
	//
	// Parameters:
	//   - callback: receives the frame as RGBA or the error that prevented the capture
	Screenshot(callback func(*image.RGBA, error))

	// Stats returns the statistics of the last ended frame.
	//
	// Returns:
	//   - FrameStats: the counters
	Stats() FrameStats

	// AtlasStats returns the occupancy of the texture atlas.
	//
	// Returns:
	//   - atlas.Stats: per-layer usage
	AtlasStats() atlas.Stats

	// Release frees every GPU resource and stops the screenshot workers.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer drawing through backend. The atlas is sized from the backend's atlas
// texture and the surface is configured at the given size.
//
// Parameters:
//   - backend: the GPU backend
//   - width, height: the initial surface size
//   - options: a variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer
func NewRenderer(backend Backend, width, height uint32, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		backend:     backend,
		presentMode: PresentModeVSync,
		clear:       common.Transparent,
		capacities:  batch.DefaultCapacities(),
		padding:     defaultAtlasPadding,
		workers:     defaultScreenshotWorkers,
		scissors:    &ScissorStack{},
	}

	for _, option := range options {
		option(r)
	}

	if r.loader == nil {
		r.loader = loader.NewLoader()
	}
	r.atlas = r.pendingAtlas
	if r.atlas == nil {
		size, layers := backend.AtlasDimensions()
		r.atlas = atlas.New(size, layers, r.padding)
	}
	r.mainBatcher = batch.NewBatcher[GPUBuffer](backend, r.capacities)
	r.targetBatcher = batch.NewBatcher[GPUBuffer](backend, r.capacities)
	r.batcher = r.mainBatcher
	r.pool = worker.NewDynamicWorkerPool(r.workers, 256, 1*time.Second)

	r.Resize(width, height)
	return r
}

func (r *renderer) BeginRender() {
	if r.state != frameIdle {
		panic(fmt.Sprintf("renderer: BeginRender called in state %s", r.state))
	}
	if r.inTarget {
		panic("renderer: BeginRender called inside a render target")
	}
	if d := r.scissors.Depth(); d != 0 {
		logger.Warningf("%d scissor rects were not popped last frame", d)
		r.scissors.Reset()
	}
	r.batcher.Begin()
	r.stats = FrameStats{}
	r.state = frameRecording
}

func (r *renderer) EndRender() error {
	if r.state != frameRecording {
		panic(fmt.Sprintf("renderer: EndRender called in state %s", r.state))
	}
	r.batcher.Flush()
	r.state = frameFlushed

	completed := r.batcher.Completed()
	r.stats.CompletedBuffers = len(completed)
	r.stats.UploadedBytes = r.batcher.UploadedBytes()
	r.stats.BuffersCreated = r.mainBatcher.Created() + r.targetBatcher.Created()

	pass, err := r.backend.BeginPass(nil, r.projection, r.clear)
	if err != nil {
		r.state = frameIdle
		r.failScreenshots(err)
		return err
	}
	dispatch(pass, completed, r.width, r.height, &r.stats)
	if err := pass.End(); err != nil {
		r.state = frameIdle
		r.failScreenshots(err)
		return err
	}
	r.state = frameDispatched

	if len(r.pending) > 0 {
		r.captureScreenshots(completed)
	}
	return nil
}

func (r *renderer) Present() error {
	switch r.state {
	case frameRecording, frameFlushed:
		panic(fmt.Sprintf("renderer: Present called in state %s", r.state))
	case frameIdle:
		return nil
	}
	r.state = frameIdle
	return r.backend.Present()
}

func (r *renderer) Resize(width, height uint32) {
	if width == 0 || height == 0 {
		return
	}
	r.width, r.height = width, height
	r.backend.Configure(width, height, r.presentMode)
	if !r.inTarget {
		r.projection = common.ScreenProjection(width, height)
		r.targetW, r.targetH = width, height
	}
}

func (r *renderer) SetVSync(mode PresentMode) {
	r.presentMode = mode
	if r.width == 0 || r.height == 0 {
		return
	}
	r.backend.Configure(r.width, r.height, mode)
}

func (r *renderer) SetClearColor(c common.Color) {
	r.clear = c
}

func (r *renderer) Size() (uint32, uint32) {
	return r.width, r.height
}

func (r *renderer) PushScissor(rect common.Rect) {
	r.scissors.Push(rect)
}

func (r *renderer) PopScissor() {
	if !r.scissors.Pop() {
		logger.Warningf("PopScissor called on an empty scissor stack")
	}
}

func (r *renderer) Stats() FrameStats {
	return r.stats
}

func (r *renderer) AtlasStats() atlas.Stats {
	return r.atlas.Stats()
}

func (r *renderer) Release() {
	release := func(b GPUBuffer) { b.Release() }
	r.mainBatcher.Release(release)
	r.targetBatcher.Release(release)
	r.pool.Stop()
	r.backend.Release()
}

// drawState returns the batch state for a draw with the given blend mode. It panics when called outside
// a frame or render target.
func (r *renderer) drawState(mode common.BlendMode) batch.State {
	if r.state != frameRecording && !r.inTarget {
		panic(fmt.Sprintf("renderer: draw called in state %s", r.state))
	}
	return batch.State{Blend: mode, Scissor: r.scissors.Current()}
}
