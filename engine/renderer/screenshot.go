package renderer

import (
	"fmt"
	"image"

	"github.com/Carmen-Shannon/oxy2d/engine/renderer/batch"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

func (r *renderer) Screenshot(callback func(*image.RGBA, error)) {
	if callback == nil {
		return
	}
	r.pending = append(r.pending, callback)
}

// captureScreenshots re-renders the frame's completed buffers into an offscreen copy of the surface and
// hands its readback to the worker pool. Each pending callback gets its own image.
func (r *renderer) captureScreenshots(completed []batch.Completed[GPUBuffer]) {
	callbacks := r.pending
	r.pending = nil

	tex, err := r.backend.NewTarget(r.width, r.height, r.backend.SurfaceFormat())
	if err != nil {
		r.deliver(callbacks, nil, fmt.Errorf("screenshot target: %w", err))
		return
	}
	defer tex.Release()

	pass, err := r.backend.BeginPass(tex, r.projection, r.clear)
	if err != nil {
		r.deliver(callbacks, nil, fmt.Errorf("screenshot pass: %w", err))
		return
	}
	var stats FrameStats
	dispatch(pass, completed, r.width, r.height, &stats)
	if err := pass.End(); err != nil {
		r.deliver(callbacks, nil, fmt.Errorf("screenshot pass: %w", err))
		return
	}

	ch := r.backend.Readback(tex)
	r.submit(func() (any, error) {
		rb := <-ch
		img, err := decodeReadback(rb)
		for i, cb := range callbacks {
			if err != nil {
				cb(nil, err)
				continue
			}
			if i == len(callbacks)-1 {
				cb(img, nil)
				continue
			}
			cp := *img
			cp.Pix = append([]byte(nil), img.Pix...)
			cb(&cp, nil)
		}
		return nil, err
	})
}

// failScreenshots reports err to every pending request of a frame that never reached the surface.
func (r *renderer) failScreenshots(err error) {
	if len(r.pending) == 0 {
		return
	}
	callbacks := r.pending
	r.pending = nil
	r.deliver(callbacks, nil, err)
}

func (r *renderer) deliver(callbacks []func(*image.RGBA, error), img *image.RGBA, err error) {
	r.submit(func() (any, error) {
		for _, cb := range callbacks {
			cb(img, err)
		}
		return nil, err
	})
}

func (r *renderer) submit(do func() (any, error)) {
	r.taskID++
	r.pool.SubmitTask(worker.Task{ID: r.taskID, Do: do})
}

// decodeReadback strips the row padding and converts BGRA to RGBA.
func decodeReadback(rb Readback) (*image.RGBA, error) {
	if rb.Err != nil {
		return nil, fmt.Errorf("screenshot readback: %w", rb.Err)
	}
	row := int(rb.Width) * 4
	stride := int(rb.BytesPerRow)
	if stride < row || len(rb.Pixels) < stride*(int(rb.Height)-1)+row {
		return nil, fmt.Errorf("screenshot readback: %d bytes at %d per row for %dx%d", len(rb.Pixels), stride, rb.Width, rb.Height)
	}

	img := image.NewRGBA(image.Rect(0, 0, int(rb.Width), int(rb.Height)))
	for y := 0; y < int(rb.Height); y++ {
		copy(img.Pix[y*img.Stride:y*img.Stride+row], rb.Pixels[y*stride:y*stride+row])
	}
	if rb.Format == FormatBGRA8 {
		for i := 0; i < len(img.Pix); i += 4 {
			img.Pix[i], img.Pix[i+2] = img.Pix[i+2], img.Pix[i]
		}
	}
	return img, nil
}
