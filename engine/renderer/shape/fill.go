package shape

import (
	"math"

	"github.com/Carmen-Shannon/oxy2d/common"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer/batch"
	"github.com/gogpu/gg"
)

// Tolerance is the maximum distance in target pixels between a curve and its flattened polygon.
const Tolerance = 0.25

// untextured is the texture coordinate of vertices drawn with their color only.
var untextured = [3]float32{0, 0, -1}

// QuadIndices are the local indices of two triangles over corners 0..3 in order.
var QuadIndices = []uint32{0, 1, 2, 2, 3, 0}

// Mesh is an indexed triangle list with indices local to Vertices.
type Mesh struct {
	Vertices []batch.Vertex
	Indices  []uint32
}

// Empty reports whether the mesh has nothing to draw.
func (m Mesh) Empty() bool {
	return len(m.Vertices) == 0 || len(m.Indices) == 0
}

// Fill tessellates the interior of a closed outline by ear clipping. The path is transformed first and
// flattened in target space, so curves stay smooth under scaling. The outline may be concave but must be
// a simple polygon: holes and self-intersections are not supported.
//
// Parameters:
//   - path: the outline
//   - color: the fill color
//   - m: the transform from path space to target pixels
//
// Returns:
//   - Mesh: n vertices and 3(n-2) indices for an outline of n distinct points
//   - error: ErrDegenerate for a nil path, a non-finite transform, an outline without area or one that
//     cannot be triangulated
func Fill(path *gg.Path, color common.Color, m gg.Matrix) (Mesh, error) {
	if path == nil || !finiteMatrix(m) {
		return Mesh{}, degenerate("fill")
	}
	pts := flatten(path.Transform(m), Tolerance)
	if len(pts) < 3 || math.Abs(area(pts)) < 1e-9 {
		return Mesh{}, degenerate("fill", float64(len(pts)))
	}

	indices, ok := triangulate(pts)
	if !ok {
		return Mesh{}, degenerate("fill", float64(len(pts)))
	}

	mesh := Mesh{
		Vertices: make([]batch.Vertex, len(pts)),
		Indices:  indices,
	}
	for i, p := range pts {
		mesh.Vertices[i] = vertex(p, color)
	}
	return mesh, nil
}

// triangulate clips ears off a simple polygon until one triangle is left. It returns 3(n-2) indices, or
// false when no ear can be found, which happens for self-intersecting outlines.
func triangulate(pts []gg.Point) ([]uint32, bool) {
	n := len(pts)
	// Walk the outline with positive area so convex corners have a positive cross product.
	ring := make([]int, n)
	ccw := area(pts) > 0
	for i := range ring {
		if ccw {
			ring[i] = i
		} else {
			ring[i] = n - 1 - i
		}
	}

	indices := make([]uint32, 0, 3*(n-2))
	emit := func(a, b, c int) {
		if !ccw {
			a, c = c, a
		}
		indices = append(indices, uint32(a), uint32(b), uint32(c))
	}

	for len(ring) > 3 {
		clipped := false
		for i := range ring {
			a := ring[(i+len(ring)-1)%len(ring)]
			b := ring[i]
			c := ring[(i+1)%len(ring)]
			if !isEar(pts, ring, a, b, c) {
				continue
			}
			emit(a, b, c)
			ring = append(ring[:i], ring[i+1:]...)
			clipped = true
			break
		}
		if !clipped {
			return nil, false
		}
	}
	emit(ring[0], ring[1], ring[2])
	return indices, true
}

// isEar reports whether the corner a-b-c of a positively wound ring can be cut off: b is convex and no
// other ring vertex lies inside the triangle. Collinear corners are always cut.
func isEar(pts []gg.Point, ring []int, a, b, c int) bool {
	pa, pb, pc := pts[a], pts[b], pts[c]
	turn := cross(pa, pb, pc)
	if turn < -1e-12 {
		return false
	}
	if turn <= 1e-12 {
		return true
	}
	for _, j := range ring {
		if j == a || j == b || j == c {
			continue
		}
		p := pts[j]
		if near(p, pa) || near(p, pb) || near(p, pc) {
			continue
		}
		if cross(pa, pb, p) > 0 && cross(pb, pc, p) > 0 && cross(pc, pa, p) > 0 {
			return false
		}
	}
	return true
}

// cross is the z component of (b-a) x (c-b).
func cross(a, b, c gg.Point) float64 {
	return (b.X-a.X)*(c.Y-b.Y) - (b.Y-a.Y)*(c.X-b.X)
}

// flatten returns the polygon of path with consecutive duplicates and the closing point removed.
func flatten(path *gg.Path, tolerance float64) []gg.Point {
	var pts []gg.Point
	path.FlattenCallback(tolerance, func(p gg.Point) {
		if n := len(pts); n > 0 && near(pts[n-1], p) {
			return
		}
		pts = append(pts, p)
	})
	for len(pts) > 1 && near(pts[0], pts[len(pts)-1]) {
		pts = pts[:len(pts)-1]
	}
	for _, p := range pts {
		if !finite(p.X, p.Y) {
			return nil
		}
	}
	return pts
}

func near(a, b gg.Point) bool {
	return math.Abs(a.X-b.X) < 1e-6 && math.Abs(a.Y-b.Y) < 1e-6
}

// area is the signed shoelace area of a polygon.
func area(pts []gg.Point) float64 {
	var a float64
	for i, p := range pts {
		q := pts[(i+1)%len(pts)]
		a += p.X*q.Y - q.X*p.Y
	}
	return a / 2
}

func vertex(p gg.Point, color common.Color) batch.Vertex {
	return batch.Vertex{
		Position: [3]float32{float32(p.X), float32(p.Y), 0},
		TexCoord: untextured,
		Color:    color,
	}
}
