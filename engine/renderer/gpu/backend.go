// Package gpu implements renderer.Backend on WebGPU.
package gpu

import (
	"runtime"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy2d/engine/log"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer/batch"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer/pipeline"

	"github.com/cogentcore/webgpu/wgpu"
)

var logger = log.New("gpu")

// Backend drives a WebGPU device and the surface of one window.
type Backend struct {
	mu sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface
	device   *wgpu.Device
	queue    *wgpu.Queue

	surfaceFormat wgpu.TextureFormat
	configured    bool

	// families holds the shader, layouts and resource bindings of every batch kind.
	families map[batch.Kind]*family
	// pipelines caches created pipelines. A nil entry marks a failed creation.
	pipelines map[pipeline.Key]pipeline.Pipeline

	atlasSize    uint32
	atlasLayers  uint32
	atlasTexture *wgpu.Texture
	atlasView    *wgpu.TextureView
	atlasSampler *wgpu.Sampler

	// frame holds group 0: the globals uniform, the atlas view and its sampler.
	frame           bind_group_provider.BindGroupProvider
	frameLayout     *wgpu.BindGroupLayout
	frameDescriptor wgpu.BindGroupLayoutDescriptor
	globalsBinding  int

	// frameTexture and frameView are the acquired surface image awaiting Present.
	frameTexture *wgpu.Texture
	frameView    *wgpu.TextureView

	bufferSeq int
	readbacks []*pendingReadback
}

var _ renderer.Backend = &Backend{}

// New creates a device compatible with the surface described by surfaceDescriptor, the atlas texture
// array and every built-in shader. The surface is unconfigured until Configure is called. Like the
// device setup it is adapted from, New panics when the GPU cannot be initialized.
//
// Parameters:
//   - surfaceDescriptor: the platform surface, usually from window.Window.SurfaceDescriptor
//   - options: a variadic list of BackendOption functions
//
// Returns:
//   - *Backend: the backend
func New(surfaceDescriptor *wgpu.SurfaceDescriptor, options ...BackendOption) *Backend {
	runtime.LockOSThread()

	b := &Backend{
		instance:    wgpu.CreateInstance(nil),
		families:    make(map[batch.Kind]*family),
		pipelines:   make(map[pipeline.Key]pipeline.Pipeline),
		atlasSize:   DefaultAtlasSize,
		atlasLayers: DefaultAtlasLayers,
	}
	var cfg backendConfig
	for _, option := range options {
		option(&cfg)
	}
	if cfg.atlasSize > 0 {
		b.atlasSize = cfg.atlasSize
	}
	if cfg.atlasLayers > 0 {
		b.atlasLayers = cfg.atlasLayers
	}

	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: cfg.fallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		panic(err)
	}
	b.adapter = a
	info := a.GetInfo()
	logger.Infof("adapter %q (%s, %s)", info.Name, info.BackendType, info.AdapterType)

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		panic(err)
	}
	b.device = d
	b.queue = d.GetQueue()

	if err := b.initAtlas(); err != nil {
		panic(err)
	}
	if err := b.initFamilies(); err != nil {
		panic(err)
	}
	if err := b.initFrame(); err != nil {
		panic(err)
	}
	return b
}

func (b *Backend) Configure(width, height uint32, mode renderer.PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if width == 0 || height == 0 {
		b.configured = false
		return
	}

	capabilities := b.surface.GetCapabilities(b.adapter)
	if len(capabilities.Formats) == 0 {
		logger.Errorf("surface reports no formats")
		b.configured = false
		return
	}
	b.surfaceFormat = chooseFormat(capabilities.Formats)
	presentMode := choosePresentMode(mode, capabilities.PresentModes)

	alphaMode := wgpu.CompositeAlphaModeAuto
	if len(capabilities.AlphaModes) > 0 {
		alphaMode = capabilities.AlphaModes[0]
	}

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       width,
		Height:      height,
		PresentMode: presentMode,
		AlphaMode:   alphaMode,
	})
	b.configured = true
	logger.Debugf("surface configured %dx%d %s %s", width, height, b.surfaceFormat, presentMode)
}

func (b *Backend) SurfaceFormat() renderer.PixelFormat {
	b.mu.Lock()
	defer b.mu.Unlock()
	return pixelFormat(b.surfaceFormat)
}

func (b *Backend) Present() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	defer b.pollReadbacks(false)

	if b.frameTexture == nil {
		return nil
	}
	b.surface.Present()

	b.frameView.Release()
	b.frameView = nil
	b.frameTexture.Release()
	b.frameTexture = nil
	return nil
}

func (b *Backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pollReadbacks(true)
	for _, rb := range b.readbacks {
		rb.fail(errReleased)
	}
	b.readbacks = nil

	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	if b.frameTexture != nil {
		b.frameTexture.Release()
		b.frameTexture = nil
	}
	for key, p := range b.pipelines {
		if p != nil {
			p.Release()
		}
		delete(b.pipelines, key)
	}
	for kind, f := range b.families {
		f.release()
		delete(b.families, kind)
	}
	if b.frame != nil {
		b.frame.Release()
		b.frame = nil
	}
	if b.frameLayout != nil {
		b.frameLayout.Release()
		b.frameLayout = nil
	}
	b.releaseAtlas()

	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

// chooseFormat prefers a linear 8-bit format, since colors and atlas texels are stored unconverted.
func chooseFormat(formats []wgpu.TextureFormat) wgpu.TextureFormat {
	for _, f := range formats {
		if f == wgpu.TextureFormatBGRA8Unorm || f == wgpu.TextureFormatRGBA8Unorm {
			return f
		}
	}
	return formats[0]
}

// choosePresentMode maps a renderer present mode onto one the surface supports. FIFO is always
// available.
func choosePresentMode(mode renderer.PresentMode, supported []wgpu.PresentMode) wgpu.PresentMode {
	want := wgpu.PresentModeFifo
	switch mode {
	case renderer.PresentModeUncapped:
		want = wgpu.PresentModeImmediate
	case renderer.PresentModeMailbox:
		want = wgpu.PresentModeMailbox
	}
	for _, m := range supported {
		if m == want {
			return want
		}
	}
	if want != wgpu.PresentModeFifo {
		logger.Warningf("present mode %s unsupported; using %s", want, wgpu.PresentModeFifo)
	}
	return wgpu.PresentModeFifo
}

func pixelFormat(f wgpu.TextureFormat) renderer.PixelFormat {
	if f == wgpu.TextureFormatBGRA8Unorm || f == wgpu.TextureFormatBGRA8UnormSrgb {
		return renderer.FormatBGRA8
	}
	return renderer.FormatRGBA8
}

func textureFormat(f renderer.PixelFormat) wgpu.TextureFormat {
	if f == renderer.FormatBGRA8 {
		return wgpu.TextureFormatBGRA8Unorm
	}
	return wgpu.TextureFormatRGBA8Unorm
}

// surfaceError maps a failed surface acquisition onto the renderer's sentinels. wgpu-native only
// reports a message, so a lost surface is recognized by its wording.
func surfaceError(err error) error {
	if strings.Contains(strings.ToLower(err.Error()), "lost") {
		return renderer.ErrSurfaceLost
	}
	return renderer.ErrSurfaceOutdated
}
