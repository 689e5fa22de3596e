package renderer

import (
	"github.com/Carmen-Shannon/oxy2d/common"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer/batch"
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped

	// PresentModeMailbox replaces the queued frame with the newest one. Falls back to VSync where the
	// surface does not support it.
	PresentModeMailbox
)

func (m PresentMode) String() string {
	switch m {
	case PresentModeVSync:
		return "vsync"
	case PresentModeUncapped:
		return "uncapped"
	case PresentModeMailbox:
		return "mailbox"
	default:
		return "unknown"
	}
}

// PixelFormat is the byte order of a color target.
type PixelFormat int

const (
	// FormatRGBA8 stores red first.
	FormatRGBA8 PixelFormat = iota
	// FormatBGRA8 stores blue first, the usual swapchain format.
	FormatBGRA8
)

// GPUBuffer is a backend buffer set holding one completed batch: vertices, indices and any storage
// arrays its kind needs.
type GPUBuffer interface {
	// Release frees the GPU memory behind the buffer.
	Release()
}

// Target is an offscreen color texture a pass can render into.
type Target interface {
	Width() uint32
	Height() uint32
	Format() PixelFormat
	Release()
}

// Readback is the result of copying a target to CPU memory. Rows are BytesPerRow apart, which is the
// tight row size rounded up to the copy alignment.
type Readback struct {
	Pixels      []byte
	BytesPerRow uint32
	Width       uint32
	Height      uint32
	Format      PixelFormat
	Err         error
}

// Pass records draws into one color target.
type Pass interface {
	// SetScissor clips subsequent draws to the rectangle, already clamped to the target.
	//
	// Parameters:
	//   - x, y, w, h: the clip rectangle in target pixels
	SetScissor(x, y, w, h uint32)

	// SetPipeline binds the pipeline drawing kind with the given blend mode.
	//
	// Parameters:
	//   - kind: the buffer kind the pipeline consumes
	//   - mode: the blend mode
	//
	// Returns:
	//   - bool: false if no such pipeline exists, in which case the bound pipeline is unchanged
	SetPipeline(kind batch.Kind, mode common.BlendMode) bool

	// Draw binds buf and issues one indexed draw.
	//
	// Parameters:
	//   - buf: the completed buffer
	//   - kind: the buffer kind, which selects the bindings
	//   - indexCount: the number of indices to draw
	Draw(buf GPUBuffer, kind batch.Kind, indexCount uint32)

	// End finishes the pass and submits it.
	//
	// Returns:
	//   - error: error if submission fails
	End() error
}

// Backend is the GPU API the renderer drives. It allocates the batch buffers, owns the atlas texture
// and the surface, and runs render passes. The renderer never talks to a GPU directly.
type Backend interface {
	batch.Allocator[GPUBuffer]

	// Configure sizes the surface.
	//
	// Parameters:
	//   - width, height: the surface size in pixels
	//   - mode: the present mode
	Configure(width, height uint32, mode PresentMode)

	// SurfaceFormat returns the byte order of the surface.
	//
	// Returns:
	//   - PixelFormat: the surface format
	SurfaceFormat() PixelFormat

	// AtlasDimensions returns the edge length and layer count of the atlas texture array.
	//
	// Returns:
	//   - uint32: the edge length in pixels
	//   - uint32: the number of layers
	AtlasDimensions() (uint32, uint32)

	// WriteAtlas uploads RGBA pixels into an atlas layer.
	//
	// Parameters:
	//   - layer: the atlas layer
	//   - x, y: the top-left corner of the region
	//   - data: the pixels
	WriteAtlas(layer, x, y uint32, data common.TextureStagingData)

	// NewTarget creates an offscreen color target.
	//
	// Parameters:
	//   - width, height: the size in pixels
	//   - format: the byte order
	//
	// Returns:
	//   - Target: the new target
	//   - error: error if creation fails
	NewTarget(width, height uint32, format PixelFormat) (Target, error)

	// BeginPass starts a render pass that clears its target first.
	//
	// Parameters:
	//   - target: the color target, or nil for the surface
	//   - projection: the column-major view projection
	//   - clear: the clear color
	//
	// Returns:
	//   - Pass: the pass to record into
	//   - error: ErrSurfaceLost or ErrSurfaceOutdated when the surface cannot be acquired
	BeginPass(target Target, projection [16]float32, clear common.Color) (Pass, error)

	// CopyToAtlas copies the whole of src into an atlas layer.
	//
	// Parameters:
	//   - src: the rendered target
	//   - layer: the atlas layer
	//   - x, y: the destination corner
	CopyToAtlas(src Target, layer, x, y uint32)

	// Readback copies src to CPU memory. The copy is encoded immediately, so src may be released right
	// after the call. The channel delivers exactly one value once the map completes, which happens while
	// the device is polled in Present.
	//
	// Parameters:
	//   - src: the target to read
	//
	// Returns:
	//   - <-chan Readback: the one-shot result channel
	Readback(src Target) <-chan Readback

	// Present shows the surface and polls pending readbacks.
	//
	// Returns:
	//   - error: ErrSurfaceLost when presentation fails
	Present() error

	// Release frees every GPU resource the backend owns.
	Release()
}
