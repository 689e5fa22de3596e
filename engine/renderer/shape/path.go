// Package shape tessellates 2D primitives into triangle meshes ready for the batch package.
//
// Outlines are built as gg paths, flattened to polygons and triangulated by ear clipping.
// Every builder validates its input first and returns ErrDegenerate instead of producing NaN geometry.
package shape

import (
	"math"

	"github.com/gogpu/gg"
)

// RectPath returns a closed rectangle outline.
//
// Parameters:
//   - x, y: the top-left corner
//   - w, h: the size, both positive
//
// Returns:
//   - *gg.Path: the outline
//   - error: ErrDegenerate for non-finite or non-positive input
func RectPath(x, y, w, h float64) (*gg.Path, error) {
	if !finite(x, y, w, h) || w <= 0 || h <= 0 {
		return nil, degenerate("rect", x, y, w, h)
	}
	p := gg.NewPath()
	p.Rectangle(x, y, w, h)
	return p, nil
}

// RoundedRectPath returns a closed rectangle outline with circular corners. The radius is clamped to half
// the shorter side; a radius of zero gives a plain rectangle.
//
// Parameters:
//   - x, y: the top-left corner
//   - w, h: the size, both positive
//   - r: the corner radius
//
// Returns:
//   - *gg.Path: the outline
//   - error: ErrDegenerate for non-finite, negative or non-positive input
func RoundedRectPath(x, y, w, h, r float64) (*gg.Path, error) {
	if !finite(x, y, w, h, r) || w <= 0 || h <= 0 || r < 0 {
		return nil, degenerate("rounded rect", x, y, w, h, r)
	}
	if r == 0 {
		return RectPath(x, y, w, h)
	}
	p := gg.NewPath()
	p.RoundedRectangle(x, y, w, h, r)
	return p, nil
}

// CirclePath returns a closed circle outline.
//
// Parameters:
//   - cx, cy: the center
//   - r: the radius, positive
//
// Returns:
//   - *gg.Path: the outline
//   - error: ErrDegenerate for non-finite or non-positive input
func CirclePath(cx, cy, r float64) (*gg.Path, error) {
	if !finite(cx, cy, r) || r <= 0 {
		return nil, degenerate("circle", cx, cy, r)
	}
	p := gg.NewPath()
	p.Circle(cx, cy, r)
	return p, nil
}

// ArcPath returns a closed pie slice sweeping clockwise in y-down space from start to end (radians). An end
// below start wraps forward by whole turns, so the slice always runs clockwise from start. Sweeps of a
// full turn or more give a full circle.
//
// Parameters:
//   - cx, cy: the center
//   - r: the radius, positive
//   - start, end: the angles bounding the slice
//
// Returns:
//   - *gg.Path: the outline, starting at the center
//   - error: ErrDegenerate for non-finite input, a non-positive radius or an empty sweep
func ArcPath(cx, cy, r, start, end float64) (*gg.Path, error) {
	if !finite(cx, cy, r, start, end) || r <= 0 || start == end {
		return nil, degenerate("arc", cx, cy, r, start, end)
	}
	if end < start {
		end += 2 * math.Pi * math.Ceil((start-end)/(2*math.Pi))
		if end == start {
			end += 2 * math.Pi
		}
	}
	if end-start >= 2*math.Pi {
		return CirclePath(cx, cy, r)
	}
	p := gg.NewPath()
	p.MoveTo(cx, cy)
	p.LineTo(cx+r*math.Cos(start), cy+r*math.Sin(start))
	p.Arc(cx, cy, r, start, end)
	p.Close()
	return p, nil
}

// LinePath returns an open two point path.
//
// Parameters:
//   - x0, y0: the first endpoint
//   - x1, y1: the second endpoint, distinct from the first
//
// Returns:
//   - *gg.Path: the path
//   - error: ErrDegenerate for non-finite input or coincident endpoints
func LinePath(x0, y0, x1, y1 float64) (*gg.Path, error) {
	if !finite(x0, y0, x1, y1) || (x0 == x1 && y0 == y1) {
		return nil, degenerate("line", x0, y0, x1, y1)
	}
	p := gg.NewPath()
	p.MoveTo(x0, y0)
	p.LineTo(x1, y1)
	return p, nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func finiteMatrix(m gg.Matrix) bool {
	return finite(m.A, m.B, m.C, m.D, m.E, m.F)
}
