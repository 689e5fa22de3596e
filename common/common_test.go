package common

import (
	"math"
	"testing"
)

func TestScreenProjectionCorners(t *testing.T) {
	m := ScreenProjection(800, 600)

	project := func(x, y float32) (float32, float32) {
		return m[0]*x + m[4]*y + m[12], m[1]*x + m[5]*y + m[13]
	}

	specs := []struct {
		x, y   float32
		cx, cy float32
	}{
		{0, 0, -1, 1},
		{800, 0, 1, 1},
		{0, 600, -1, -1},
		{400, 300, 0, 0},
	}

	for i, spec := range specs {
		cx, cy := project(spec.x, spec.y)
		if math.Abs(float64(cx-spec.cx)) > 1e-5 || math.Abs(float64(cy-spec.cy)) > 1e-5 {
			t.Fatalf("[spec %d] expected clip (%v, %v); got (%v, %v)", i, spec.cx, spec.cy, cx, cy)
		}
	}
}

func TestAlignUp(t *testing.T) {
	specs := []struct{ in, align, out uint32 }{
		{0, 256, 0},
		{1, 256, 256},
		{256, 256, 256},
		{3200, 256, 3328},
	}
	for i, spec := range specs {
		if got := AlignUp(spec.in, spec.align); got != spec.out {
			t.Fatalf("[spec %d] expected %d; got %d", i, spec.out, got)
		}
	}
}

func TestRectIntersect(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 100, Height: 100}

	got := a.Intersect(Rect{X: 50, Y: 25, Width: 100, Height: 50})
	if exp := (Rect{X: 50, Y: 25, Width: 50, Height: 50}); got != exp {
		t.Fatalf("expected %+v; got %+v", exp, got)
	}

	got = a.Intersect(Rect{X: 200, Y: 200, Width: 10, Height: 10})
	if got.Width != 0 || got.Height != 0 {
		t.Fatalf("expected empty intersection; got %+v", got)
	}
}

func TestColorRGBA8Clamps(t *testing.T) {
	got := Color{-1, 0.5, 2, 1}.RGBA8()
	if exp := [4]uint8{0, 128, 255, 255}; got != exp {
		t.Fatalf("expected %v; got %v", exp, got)
	}
}

func TestSliceToBytesLength(t *testing.T) {
	type pair struct{ A, B uint32 }
	data := []pair{{1, 2}, {3, 4}, {5, 6}}
	if got := len(SliceToBytes(data)); got != 24 {
		t.Fatalf("expected 24 bytes; got %d", got)
	}
	if got := Stride[pair](); got != 8 {
		t.Fatalf("expected stride 8; got %d", got)
	}
	if SliceToBytes([]pair{}) != nil {
		t.Fatalf("expected nil for empty slice")
	}
}
