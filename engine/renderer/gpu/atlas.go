package gpu

import (
	"errors"

	"github.com/Carmen-Shannon/oxy2d/common"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer/bind_group_provider"

	"github.com/cogentcore/webgpu/wgpu"
)

// atlasFormat is the texel format of the atlas and of every target copied into it.
const atlasFormat = wgpu.TextureFormatRGBA8Unorm

func (b *Backend) initAtlas() error {
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     "Atlas Texture",
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst | wgpu.TextureUsageCopySrc,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              b.atlasSize,
			Height:             b.atlasSize,
			DepthOrArrayLayers: b.atlasLayers,
		},
		Format:        atlasFormat,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return err
	}
	b.atlasTexture = tex

	b.atlasView, err = tex.CreateView(&wgpu.TextureViewDescriptor{
		Label:           "Atlas View",
		Format:          atlasFormat,
		Dimension:       wgpu.TextureViewDimension2DArray,
		BaseMipLevel:    0,
		MipLevelCount:   1,
		BaseArrayLayer:  0,
		ArrayLayerCount: b.atlasLayers,
		Aspect:          wgpu.TextureAspectAll,
	})
	if err != nil {
		return err
	}

	b.atlasSampler, err = b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Atlas Sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	return err
}

// initFrame creates the group 0 bind group. Texture and sampler bindings receive the atlas, the one
// buffer binding becomes the globals uniform.
func (b *Backend) initFrame() error {
	var opts []bind_group_provider.BindGroupProviderOption
	b.globalsBinding = -1
	for _, entry := range b.frameDescriptor.Entries {
		binding := int(entry.Binding)
		switch {
		case entry.Texture.SampleType != wgpu.TextureSampleTypeUndefined:
			opts = append(opts, bind_group_provider.WithTextureView(binding, b.atlasView))
		case entry.Sampler.Type != wgpu.SamplerBindingTypeUndefined:
			opts = append(opts, bind_group_provider.WithSampler(binding, b.atlasSampler))
		case entry.Buffer.Type == wgpu.BufferBindingTypeUniform:
			b.globalsBinding = binding
		}
	}
	if b.globalsBinding < 0 {
		return errors.New("frame bind group has no globals uniform")
	}
	provider := bind_group_provider.NewBindGroupProvider("Frame", opts...)
	if err := b.createBindGroup(provider, b.frameLayout, b.frameDescriptor, nil); err != nil {
		provider.Release()
		return err
	}
	b.frame = provider
	return nil
}

func (b *Backend) releaseAtlas() {
	if b.atlasSampler != nil {
		b.atlasSampler.Release()
		b.atlasSampler = nil
	}
	if b.atlasView != nil {
		b.atlasView.Release()
		b.atlasView = nil
	}
	if b.atlasTexture != nil {
		b.atlasTexture.Release()
		b.atlasTexture = nil
	}
}

func (b *Backend) AtlasDimensions() (uint32, uint32) {
	return b.atlasSize, b.atlasLayers
}

func (b *Backend) WriteAtlas(layer, x, y uint32, data common.TextureStagingData) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.inAtlas(layer, x, y, data.Width, data.Height) {
		logger.Errorf("atlas write %dx%d at layer %d (%d, %d) is out of bounds", data.Width, data.Height, layer, x, y)
		return
	}
	if uint64(len(data.Pixels)) < uint64(data.Width)*uint64(data.Height)*4 {
		logger.Errorf("atlas write %dx%d has only %d bytes", data.Width, data.Height, len(data.Pixels))
		return
	}

	err := b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  b.atlasTexture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{X: x, Y: y, Z: layer},
			Aspect:   wgpu.TextureAspectAll,
		},
		data.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  data.Width * 4,
			RowsPerImage: data.Height,
		},
		&wgpu.Extent3D{
			Width:              data.Width,
			Height:             data.Height,
			DepthOrArrayLayers: 1,
		},
	)
	if err != nil {
		logger.Errorf("atlas write: %v", err)
	}
}

func (b *Backend) CopyToAtlas(src renderer.Target, layer, x, y uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := src.(*target)
	if !ok {
		logger.Errorf("copy to atlas from foreign target %T", src)
		return
	}
	if t.format != atlasFormat {
		logger.Errorf("copy to atlas from %s target; atlas is %s", t.format, atlasFormat)
		return
	}
	if !b.inAtlas(layer, x, y, t.width, t.height) {
		logger.Errorf("copy to atlas %dx%d at layer %d (%d, %d) is out of bounds", t.width, t.height, layer, x, y)
		return
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		logger.Errorf("copy to atlas: %v", err)
		return
	}
	defer encoder.Release()

	err = encoder.CopyTextureToTexture(
		&wgpu.ImageCopyTexture{Texture: t.texture, Aspect: wgpu.TextureAspectAll},
		&wgpu.ImageCopyTexture{
			Texture: b.atlasTexture,
			Origin:  wgpu.Origin3D{X: x, Y: y, Z: layer},
			Aspect:  wgpu.TextureAspectAll,
		},
		&wgpu.Extent3D{Width: t.width, Height: t.height, DepthOrArrayLayers: 1},
	)
	if err != nil {
		logger.Errorf("copy to atlas: %v", err)
		return
	}
	b.submit(encoder)
}

func (b *Backend) inAtlas(layer, x, y, w, h uint32) bool {
	return layer < b.atlasLayers &&
		uint64(x)+uint64(w) <= uint64(b.atlasSize) &&
		uint64(y)+uint64(h) <= uint64(b.atlasSize)
}

// submit finishes encoder and submits the command buffer. The caller still releases the encoder.
func (b *Backend) submit(encoder *wgpu.CommandEncoder) {
	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		logger.Errorf("finish command encoder: %v", err)
		return
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
}
