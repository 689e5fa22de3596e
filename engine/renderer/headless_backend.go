package renderer

import (
	"errors"
	"sync"

	"github.com/Carmen-Shannon/oxy2d/common"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer/batch"
)

// readbackAlignment is the row alignment of texture to buffer copies.
const readbackAlignment = 256

// HeadlessDraw is one draw recorded by a HeadlessBackend pass.
type HeadlessDraw struct {
	Kind       batch.Kind
	Mode       common.BlendMode
	Buffer     int
	IndexCount uint32
	Scissor    [4]uint32
}

// HeadlessPass is everything recorded between BeginPass and End.
type HeadlessPass struct {
	// Offscreen is true for passes into a Target rather than the surface.
	Offscreen bool
	Width     uint32
	Height    uint32
	Clear     common.Color
	Draws     []HeadlessDraw
	Scissors  [][4]uint32
	Pipelines []common.BlendMode
}

// HeadlessAtlasWrite is one region written into the atlas texture.
type HeadlessAtlasWrite struct {
	Layer, X, Y   uint32
	Width, Height uint32
	Zeroed        bool
}

// HeadlessBackend is a Backend that records what it is asked to do instead of touching a GPU. Readbacks
// return the target's clear color. It is used by tests, benchmarks and CI machines without an adapter.
type HeadlessBackend struct {
	mu sync.Mutex

	width, height uint32
	mode          PresentMode
	format        PixelFormat
	atlasSize     uint32
	atlasLayers   uint32
	missing       map[common.BlendMode]bool
	nextPassErr   error

	buffers     []*headlessBuffer
	uploads     int
	passes      []HeadlessPass
	atlasWrites []HeadlessAtlasWrite
	atlasCopies int
	presents    int
	pending     []pendingReadback
}

var _ Backend = &HeadlessBackend{}

// HeadlessOption configures a HeadlessBackend.
type HeadlessOption func(*HeadlessBackend)

// WithHeadlessFormat sets the surface format reported by the backend.
//
// Parameters:
//   - f: the surface format
//
// Returns:
//   - HeadlessOption: a function that applies the format to a backend
func WithHeadlessFormat(f PixelFormat) HeadlessOption {
	return func(b *HeadlessBackend) {
		b.format = f
	}
}

// WithHeadlessAtlas sets the atlas texture dimensions.
//
// Parameters:
//   - size: the edge length
//   - layers: the layer count
//
// Returns:
//   - HeadlessOption: a function that applies the dimensions to a backend
func WithHeadlessAtlas(size, layers uint32) HeadlessOption {
	return func(b *HeadlessBackend) {
		b.atlasSize, b.atlasLayers = size, layers
	}
}

// WithMissingPipelines makes SetPipeline fail for the given blend modes.
//
// Parameters:
//   - modes: the modes without a pipeline
//
// Returns:
//   - HeadlessOption: a function that applies the option to a backend
func WithMissingPipelines(modes ...common.BlendMode) HeadlessOption {
	return func(b *HeadlessBackend) {
		for _, m := range modes {
			b.missing[m] = true
		}
	}
}

// NewHeadlessBackend creates a recording backend with a 2048x2048, 4 layer atlas.
//
// Parameters:
//   - options: a variadic list of HeadlessOption functions
//
// Returns:
//   - *HeadlessBackend: the backend
func NewHeadlessBackend(options ...HeadlessOption) *HeadlessBackend {
	b := &HeadlessBackend{
		format:      FormatRGBA8,
		atlasSize:   2048,
		atlasLayers: 4,
		missing:     make(map[common.BlendMode]bool),
	}
	for _, option := range options {
		option(b)
	}
	return b
}

type headlessBuffer struct {
	id       int
	kind     batch.Kind
	capacity batch.Usage
	released bool
}

func (h *headlessBuffer) Release() {
	h.released = true
}

type headlessTarget struct {
	width, height uint32
	format        PixelFormat
	clear         common.Color
	released      bool
}

func (t *headlessTarget) Width() uint32       { return t.width }
func (t *headlessTarget) Height() uint32      { return t.height }
func (t *headlessTarget) Format() PixelFormat { return t.format }
func (t *headlessTarget) Release()            { t.released = true }

type pendingReadback struct {
	ch chan Readback
	rb Readback
}

type headlessPass struct {
	backend *HeadlessBackend
	index   int
	scissor [4]uint32
	mode    common.BlendMode
}

func (b *HeadlessBackend) NewBuffer(kind batch.Kind, capacity batch.Usage) GPUBuffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf := &headlessBuffer{id: len(b.buffers), kind: kind, capacity: capacity}
	b.buffers = append(b.buffers, buf)
	return buf
}

func (b *HeadlessBackend) Upload(buf GPUBuffer, regions []batch.Region) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uploads++
}

func (b *HeadlessBackend) Configure(width, height uint32, mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.width, b.height, b.mode = width, height, mode
}

func (b *HeadlessBackend) SurfaceFormat() PixelFormat {
	return b.format
}

func (b *HeadlessBackend) AtlasDimensions() (uint32, uint32) {
	return b.atlasSize, b.atlasLayers
}

func (b *HeadlessBackend) WriteAtlas(layer, x, y uint32, data common.TextureStagingData) {
	b.mu.Lock()
	defer b.mu.Unlock()
	zeroed := true
	for _, p := range data.Pixels {
		if p != 0 {
			zeroed = false
			break
		}
	}
	b.atlasWrites = append(b.atlasWrites, HeadlessAtlasWrite{
		Layer: layer, X: x, Y: y, Width: data.Width, Height: data.Height, Zeroed: zeroed,
	})
}

func (b *HeadlessBackend) NewTarget(width, height uint32, format PixelFormat) (Target, error) {
	if width == 0 || height == 0 {
		return nil, errors.New("empty target")
	}
	return &headlessTarget{width: width, height: height, format: format}, nil
}

func (b *HeadlessBackend) BeginPass(target Target, projection [16]float32, clear common.Color) (Pass, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.nextPassErr; err != nil && target == nil {
		b.nextPassErr = nil
		return nil, err
	}

	p := HeadlessPass{Width: b.width, Height: b.height, Clear: clear}
	if target != nil {
		t := target.(*headlessTarget)
		t.clear = clear
		p.Offscreen, p.Width, p.Height = true, t.width, t.height
	}
	b.passes = append(b.passes, p)
	return &headlessPass{backend: b, index: len(b.passes) - 1, scissor: [4]uint32{0, 0, p.Width, p.Height}}, nil
}

func (b *HeadlessBackend) CopyToAtlas(src Target, layer, x, y uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.atlasCopies++
}

func (b *HeadlessBackend) Readback(src Target) <-chan Readback {
	t := src.(*headlessTarget)
	stride := common.AlignUp(t.width*4, readbackAlignment)
	px := make([]byte, int(stride)*int(t.height))
	c := t.clear.RGBA8()
	if t.format == FormatBGRA8 {
		c[0], c[2] = c[2], c[0]
	}
	for y := 0; y < int(t.height); y++ {
		for x := 0; x < int(t.width); x++ {
			copy(px[y*int(stride)+x*4:], c[:])
		}
	}

	ch := make(chan Readback, 1)
	b.mu.Lock()
	b.pending = append(b.pending, pendingReadback{ch: ch, rb: Readback{
		Pixels: px, BytesPerRow: stride, Width: t.width, Height: t.height, Format: t.format,
	}})
	b.mu.Unlock()
	return ch
}

func (b *HeadlessBackend) Present() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.presents++
	for _, p := range b.pending {
		p.ch <- p.rb
	}
	b.pending = nil
	return nil
}

func (b *HeadlessBackend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, buf := range b.buffers {
		buf.released = true
	}
}

// FailNextPass makes the next surface BeginPass return err, as a lost or outdated surface would.
//
// Parameters:
//   - err: the error to return
func (b *HeadlessBackend) FailNextPass(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextPassErr = err
}

// Passes returns a copy of every recorded pass.
//
// Returns:
//   - []HeadlessPass: the passes in submission order
func (b *HeadlessBackend) Passes() []HeadlessPass {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]HeadlessPass(nil), b.passes...)
}

// LastPass returns the most recent pass into the surface.
//
// Returns:
//   - HeadlessPass: the pass, or the zero value if none was recorded
func (b *HeadlessBackend) LastPass() HeadlessPass {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.passes) - 1; i >= 0; i-- {
		if !b.passes[i].Offscreen {
			return b.passes[i]
		}
	}
	return HeadlessPass{}
}

// ResetPasses forgets the recorded passes.
func (b *HeadlessBackend) ResetPasses() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.passes = nil
}

// BuffersCreated returns the number of buffers allocated.
func (b *HeadlessBackend) BuffersCreated() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buffers)
}

// Uploads returns the number of buffer uploads.
func (b *HeadlessBackend) Uploads() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.uploads
}

// AtlasWrites returns every atlas write in order.
func (b *HeadlessBackend) AtlasWrites() []HeadlessAtlasWrite {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]HeadlessAtlasWrite(nil), b.atlasWrites...)
}

// AtlasCopies returns the number of target to atlas copies.
func (b *HeadlessBackend) AtlasCopies() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.atlasCopies
}

// Presents returns the number of presented frames.
func (b *HeadlessBackend) Presents() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.presents
}

// SurfaceSize returns the configured surface size and present mode.
func (b *HeadlessBackend) SurfaceSize() (uint32, uint32, PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.width, b.height, b.mode
}

func (p *headlessPass) SetScissor(x, y, w, h uint32) {
	p.backend.mu.Lock()
	defer p.backend.mu.Unlock()
	p.scissor = [4]uint32{x, y, w, h}
	pass := &p.backend.passes[p.index]
	pass.Scissors = append(pass.Scissors, p.scissor)
}

func (p *headlessPass) SetPipeline(kind batch.Kind, mode common.BlendMode) bool {
	p.backend.mu.Lock()
	defer p.backend.mu.Unlock()
	if p.backend.missing[mode] || !pipelineExists(kind, mode) {
		return false
	}
	p.mode = mode
	pass := &p.backend.passes[p.index]
	pass.Pipelines = append(pass.Pipelines, mode)
	return true
}

func (p *headlessPass) Draw(buf GPUBuffer, kind batch.Kind, indexCount uint32) {
	p.backend.mu.Lock()
	defer p.backend.mu.Unlock()
	pass := &p.backend.passes[p.index]
	pass.Draws = append(pass.Draws, HeadlessDraw{
		Kind:       kind,
		Mode:       p.mode,
		Buffer:     buf.(*headlessBuffer).id,
		IndexCount: indexCount,
		Scissor:    p.scissor,
	})
}

func (p *headlessPass) End() error {
	return nil
}

// pipelineExists reports whether a backend registers a pipeline for kind with mode. Vertex buffers have
// one pipeline per regular blend mode; sliders and flashlights have their dedicated mode plus BlendNone.
func pipelineExists(kind batch.Kind, mode common.BlendMode) bool {
	switch kind {
	case batch.KindVertex:
		return !mode.Special()
	case batch.KindSlider:
		return mode == common.BlendSlider || mode == common.BlendNone
	case batch.KindFlashlight:
		return mode == common.BlendFlashlight || mode == common.BlendNone
	}
	return false
}
