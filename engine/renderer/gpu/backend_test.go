package gpu

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy2d/engine/renderer"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer/batch"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer/shader"

	"github.com/cogentcore/webgpu/wgpu"
)

func TestChooseFormat(t *testing.T) {
	tests := []struct {
		name    string
		formats []wgpu.TextureFormat
		want    wgpu.TextureFormat
	}{
		{"linear first", []wgpu.TextureFormat{wgpu.TextureFormatBGRA8Unorm, wgpu.TextureFormatBGRA8UnormSrgb}, wgpu.TextureFormatBGRA8Unorm},
		{"srgb first", []wgpu.TextureFormat{wgpu.TextureFormatBGRA8UnormSrgb, wgpu.TextureFormatRGBA8Unorm}, wgpu.TextureFormatRGBA8Unorm},
		{"srgb only", []wgpu.TextureFormat{wgpu.TextureFormatRGBA8UnormSrgb}, wgpu.TextureFormatRGBA8UnormSrgb},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := chooseFormat(tt.formats); got != tt.want {
				t.Fatalf("expected %s; got %s", tt.want, got)
			}
		})
	}
}

func TestChoosePresentMode(t *testing.T) {
	all := []wgpu.PresentMode{wgpu.PresentModeFifo, wgpu.PresentModeImmediate, wgpu.PresentModeMailbox}
	fifo := []wgpu.PresentMode{wgpu.PresentModeFifo}

	tests := []struct {
		mode      renderer.PresentMode
		supported []wgpu.PresentMode
		want      wgpu.PresentMode
	}{
		{renderer.PresentModeVSync, all, wgpu.PresentModeFifo},
		{renderer.PresentModeUncapped, all, wgpu.PresentModeImmediate},
		{renderer.PresentModeMailbox, all, wgpu.PresentModeMailbox},
		{renderer.PresentModeUncapped, fifo, wgpu.PresentModeFifo},
		{renderer.PresentModeMailbox, fifo, wgpu.PresentModeFifo},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			if got := choosePresentMode(tt.mode, tt.supported); got != tt.want {
				t.Fatalf("expected %s; got %s", tt.want, got)
			}
		})
	}
}

func TestPixelFormatRoundTrip(t *testing.T) {
	for _, f := range []renderer.PixelFormat{renderer.FormatRGBA8, renderer.FormatBGRA8} {
		if got := pixelFormat(textureFormat(f)); got != f {
			t.Fatalf("expected %d; got %d", f, got)
		}
	}
	if got := pixelFormat(wgpu.TextureFormatBGRA8UnormSrgb); got != renderer.FormatBGRA8 {
		t.Fatalf("expected sRGB BGRA to read back as BGRA; got %d", got)
	}
}

func TestSurfaceError(t *testing.T) {
	if err := surfaceError(errors.New("wgpu.(*Surface).GetCurrentTexture(): Surface is Lost")); !errors.Is(err, renderer.ErrSurfaceLost) {
		t.Fatalf("expected ErrSurfaceLost; got %v", err)
	}
	if err := surfaceError(errors.New("wgpu.(*Surface).GetCurrentTexture(): Timeout")); !errors.Is(err, renderer.ErrSurfaceOutdated) {
		t.Fatalf("expected ErrSurfaceOutdated; got %v", err)
	}
}

func TestBufferSize(t *testing.T) {
	if got := bufferSize(0, 64); got != 64 {
		t.Fatalf("expected an empty buffer to hold one element; got %d bytes", got)
	}
	if got := bufferSize(10, 40); got != 400 {
		t.Fatalf("expected 400 bytes; got %d", got)
	}
}

func TestResourceForEveryStorageBinding(t *testing.T) {
	for _, kind := range []batch.Kind{batch.KindSlider, batch.KindFlashlight} {
		s, err := shader.Builtin(kind)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		seen := make(map[batch.Resource]bool)
		for _, a := range s.Declarations() {
			if a.Group == nil || *a.Group != objectGroup {
				continue
			}
			st, isArray := a.StructType()
			if !isArray {
				t.Fatalf("expected %s binding %d to be an array", kind, *a.Binding)
			}
			res, ok := resourceFor(st)
			if !ok {
				t.Fatalf("expected a resource for %s", st)
			}
			if seen[res] {
				t.Fatalf("expected %s to bind resource %d once", kind, res)
			}
			seen[res] = true
		}
		if !seen[batch.ResourceObjects] {
			t.Fatalf("expected %s to bind its objects", kind)
		}
	}
}

func TestCount(t *testing.T) {
	u := batch.Usage{Vertices: 1, Indices: 2, Objects: 3, Cells: 4, Segments: 5}
	for want, res := range []batch.Resource{batch.ResourceVertices, batch.ResourceIndices, batch.ResourceObjects, batch.ResourceCells, batch.ResourceSegments} {
		if got := count(u, res); got != want+1 {
			t.Fatalf("expected %d; got %d", want+1, got)
		}
	}
}
