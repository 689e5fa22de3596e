package gpu

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy2d/common"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer"

	"github.com/cogentcore/webgpu/wgpu"
)

// readbackAlignment is the row alignment of texture to buffer copies.
const readbackAlignment = 256

var errReleased = errors.New("backend released")

// pendingReadback is a mapped copy awaiting its map callback. done and status are written by the
// callback, which runs inside Device.Poll on the polling goroutine.
type pendingReadback struct {
	buffer *wgpu.Buffer
	size   uint64
	ch     chan renderer.Readback
	result renderer.Readback

	done   bool
	status wgpu.BufferMapAsyncStatus
}

func (b *Backend) Readback(src renderer.Target) <-chan renderer.Readback {
	ch := make(chan renderer.Readback, 1)
	t, ok := src.(*target)
	if !ok {
		ch <- renderer.Readback{Err: fmt.Errorf("readback of foreign target %T", src)}
		return ch
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	bytesPerRow := common.AlignUp(t.width*4, readbackAlignment)
	size := uint64(bytesPerRow) * uint64(t.height)
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Readback Buffer",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		ch <- renderer.Readback{Err: err}
		return ch
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		buf.Release()
		ch <- renderer.Readback{Err: err}
		return ch
	}
	err = encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{Texture: t.texture, Aspect: wgpu.TextureAspectAll},
		&wgpu.ImageCopyBuffer{
			Buffer: buf,
			Layout: wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  bytesPerRow,
				RowsPerImage: t.height,
			},
		},
		&wgpu.Extent3D{Width: t.width, Height: t.height, DepthOrArrayLayers: 1},
	)
	if err != nil {
		encoder.Release()
		buf.Release()
		ch <- renderer.Readback{Err: err}
		return ch
	}
	b.submit(encoder)
	encoder.Release()

	rb := &pendingReadback{
		buffer: buf,
		size:   size,
		ch:     ch,
		result: renderer.Readback{
			BytesPerRow: bytesPerRow,
			Width:       t.width,
			Height:      t.height,
			Format:      pixelFormat(t.format),
		},
	}
	err = buf.MapAsync(wgpu.MapModeRead, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		rb.status = status
		rb.done = true
	})
	if err != nil {
		rb.fail(err)
		return ch
	}
	b.readbacks = append(b.readbacks, rb)
	return ch
}

// pollReadbacks polls the device and delivers every readback whose map has completed. Callers hold b.mu.
func (b *Backend) pollReadbacks(wait bool) {
	if len(b.readbacks) == 0 || b.device == nil {
		return
	}
	b.device.Poll(wait, nil)

	kept := b.readbacks[:0]
	for _, rb := range b.readbacks {
		if !rb.done {
			kept = append(kept, rb)
			continue
		}
		rb.finish()
	}
	clear(b.readbacks[len(kept):])
	b.readbacks = kept
}

func (rb *pendingReadback) finish() {
	defer rb.buffer.Release()
	if rb.status != wgpu.BufferMapAsyncStatusSuccess {
		rb.ch <- renderer.Readback{Err: fmt.Errorf("map readback buffer: %s", rb.status)}
		return
	}
	out := rb.result
	out.Pixels = append([]byte(nil), rb.buffer.GetMappedRange(0, uint(rb.size))...)
	if err := rb.buffer.Unmap(); err != nil {
		logger.Warningf("unmap readback buffer: %v", err)
	}
	rb.ch <- out
}

func (rb *pendingReadback) fail(err error) {
	rb.buffer.Release()
	rb.ch <- renderer.Readback{Err: err}
}
