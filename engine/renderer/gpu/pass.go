package gpu

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy2d/common"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer/batch"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer/shader"

	"github.com/cogentcore/webgpu/wgpu"
)

// errFrameHeld is returned when the surface is acquired twice without a Present in between.
var errFrameHeld = errors.New("previous frame surface not yet presented")

// target is an offscreen color texture.
type target struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
	width   uint32
	height  uint32
	format  wgpu.TextureFormat
}

func (t *target) Width() uint32                { return t.width }
func (t *target) Height() uint32               { return t.height }
func (t *target) Format() renderer.PixelFormat { return pixelFormat(t.format) }

func (t *target) Release() {
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
}

func (b *Backend) NewTarget(width, height uint32, format renderer.PixelFormat) (renderer.Target, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("target size %dx%d", width, height)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	f := textureFormat(format)
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     "Offscreen Target",
		Usage:     wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopySrc | wgpu.TextureUsageTextureBinding,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		Format:        f,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}
	return &target{texture: tex, view: view, width: width, height: height, format: f}, nil
}

// pass records into one render pass encoder. It is used from the render goroutine only.
type pass struct {
	b       *Backend
	encoder *wgpu.CommandEncoder
	rp      *wgpu.RenderPassEncoder
	format  wgpu.TextureFormat
}

func (b *Backend) BeginPass(t renderer.Target, projection [16]float32, clear common.Color) (renderer.Pass, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var (
		view   *wgpu.TextureView
		format wgpu.TextureFormat
	)
	if t == nil {
		if !b.configured {
			return nil, renderer.ErrSurfaceOutdated
		}
		if b.frameTexture != nil {
			return nil, errFrameHeld
		}
		surfaceTexture, err := b.surface.GetCurrentTexture()
		if err != nil {
			logger.Debugf("acquire surface: %v", err)
			return nil, surfaceError(err)
		}
		v, err := surfaceTexture.CreateView(nil)
		if err != nil {
			surfaceTexture.Release()
			return nil, err
		}
		b.frameTexture, b.frameView = surfaceTexture, v
		view, format = v, b.surfaceFormat
	} else {
		tgt, ok := t.(*target)
		if !ok {
			return nil, fmt.Errorf("pass into foreign target %T", t)
		}
		view, format = tgt.view, tgt.format
	}

	globals := shader.Globals{Projection: projection}
	if err := b.queue.WriteBuffer(b.frame.Buffer(b.globalsBinding), 0, common.StructToBytes(&globals)); err != nil {
		b.dropFrame(t == nil)
		return nil, fmt.Errorf("write globals: %w", err)
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		b.dropFrame(t == nil)
		return nil, err
	}
	rp := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    view,
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
				ClearValue: wgpu.Color{
					R: float64(clear[0]),
					G: float64(clear[1]),
					B: float64(clear[2]),
					A: float64(clear[3]),
				},
			},
		},
	})
	return &pass{b: b, encoder: encoder, rp: rp, format: format}, nil
}

// dropFrame releases a surface image acquired by a pass that never started.
func (b *Backend) dropFrame(surface bool) {
	if !surface || b.frameTexture == nil {
		return
	}
	b.frameView.Release()
	b.frameView = nil
	b.frameTexture.Release()
	b.frameTexture = nil
}

func (p *pass) SetScissor(x, y, w, h uint32) {
	p.rp.SetScissorRect(x, y, w, h)
}

func (p *pass) SetPipeline(kind batch.Kind, mode common.BlendMode) bool {
	if !pipeline.Supports(kind, mode) {
		return false
	}

	p.b.mu.Lock()
	pl := p.b.pipelineFor(pipeline.Key{Kind: kind, Mode: mode, Format: p.format})
	p.b.mu.Unlock()
	if pl == nil {
		return false
	}

	p.rp.SetPipeline(pl.Pipeline())
	p.rp.SetBindGroup(frameGroup, p.b.frame.BindGroup(), nil)
	return true
}

func (p *pass) Draw(buf renderer.GPUBuffer, kind batch.Kind, indexCount uint32) {
	g, ok := buf.(*gpuBuffer)
	if !ok || g.kind != kind {
		logger.Errorf("draw of %T as %s", buf, kind)
		return
	}
	if bg := g.provider.BindGroup(); bg != nil {
		p.rp.SetBindGroup(objectGroup, bg, nil)
	}
	p.rp.SetVertexBuffer(0, g.provider.VertexBuffer(), 0, wgpu.WholeSize)
	p.rp.SetIndexBuffer(g.provider.IndexBuffer(), wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	p.rp.DrawIndexed(indexCount, 1, 0, 0, 0)
}

func (p *pass) End() error {
	err := p.rp.End()
	p.rp.Release()
	defer p.encoder.Release()
	if err != nil {
		return fmt.Errorf("end pass: %w", err)
	}

	commandBuffer, err := p.encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("finish pass: %w", err)
	}
	p.b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}
