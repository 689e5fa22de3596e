package shape

import (
	"math"

	"github.com/Carmen-Shannon/oxy2d/common"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer/batch"
	"github.com/gogpu/gg"
)

const defaultMiterLimit = 4.0

// StrokePath tessellates the outline of a single-subpath path. The path counts as closed when its last
// verb is a Close.
//
// Parameters:
//   - path: the outline
//   - style: width, cap and miter limit; Width is in path units
//   - color: the stroke color
//   - m: the transform from path space to target pixels
//
// Returns:
//   - Mesh: the stroke geometry
//   - error: ErrDegenerate for a nil or empty path or an invalid style
func StrokePath(path *gg.Path, style gg.Stroke, color common.Color, m gg.Matrix) (Mesh, error) {
	if path == nil || !finiteMatrix(m) {
		return Mesh{}, degenerate("stroke")
	}
	verbs := path.Verbs()
	if len(verbs) == 0 {
		return Mesh{}, degenerate("stroke")
	}
	closed := verbs[len(verbs)-1] == gg.Close

	// Flatten in path space with a tolerance that maps to Tolerance target pixels.
	tol := Tolerance
	if scale := math.Sqrt(math.Abs(m.A*m.E - m.B*m.D)); scale > 0 {
		tol /= scale
	}
	return Stroke(flatten(path, tol), closed, style, color, m)
}

// Stroke tessellates a polyline into a quad strip with two vertices per point. Joins are mitered with
// the miter length clamped to MiterLimit half-widths; open ends get the style's cap.
//
// Parameters:
//   - points: the polyline in path space
//   - closed: whether the last point connects back to the first
//   - style: width, cap and miter limit; Width is in path units
//   - color: the stroke color
//   - m: the transform from path space to target pixels
//
// Returns:
//   - Mesh: the stroke geometry
//   - error: ErrDegenerate for non-finite input, a non-positive width or fewer than two distinct points
func Stroke(points []gg.Point, closed bool, style gg.Stroke, color common.Color, m gg.Matrix) (Mesh, error) {
	if !finite(style.Width, style.MiterLimit) || style.Width <= 0 || !finiteMatrix(m) {
		return Mesh{}, degenerate("stroke width", style.Width)
	}
	pts := make([]gg.Point, 0, len(points))
	for _, p := range points {
		if !finite(p.X, p.Y) {
			return Mesh{}, degenerate("stroke point", p.X, p.Y)
		}
		if n := len(pts); n > 0 && near(pts[n-1], p) {
			continue
		}
		pts = append(pts, p)
	}
	if closed {
		for len(pts) > 1 && near(pts[0], pts[len(pts)-1]) {
			pts = pts[:len(pts)-1]
		}
		if len(pts) < 3 {
			closed = false
		}
	}
	if len(pts) < 2 {
		return Mesh{}, degenerate("stroke", float64(len(pts)))
	}

	hw := style.Width / 2
	limit := style.MiterLimit
	if limit <= 0 {
		limit = defaultMiterLimit
	}
	n := len(pts)

	if !closed && style.Cap == gg.LineCapSquare {
		pts[0] = pts[0].Sub(direction(pts[0], pts[1]).Mul(hw))
		pts[n-1] = pts[n-1].Add(direction(pts[n-2], pts[n-1]).Mul(hw))
	}

	var mesh Mesh
	for i := range pts {
		var offset gg.Point
		switch {
		case !closed && i == 0:
			offset = normal(pts[0], pts[1]).Mul(hw)
		case !closed && i == n-1:
			offset = normal(pts[n-2], pts[n-1]).Mul(hw)
		default:
			prev := pts[(i+n-1)%n]
			next := pts[(i+1)%n]
			offset = miter(normal(prev, pts[i]), normal(pts[i], next), hw, limit)
		}
		mesh.Vertices = append(mesh.Vertices,
			vertex(m.TransformPoint(pts[i].Add(offset)), color),
			vertex(m.TransformPoint(pts[i].Sub(offset)), color),
		)
	}

	segments := n - 1
	if closed {
		segments = n
	}
	for i := 0; i < segments; i++ {
		a, b := uint32(2*i), uint32(2*((i+1)%n))
		mesh.Indices = append(mesh.Indices, a, a+1, b+1, a, b+1, b)
	}

	if !closed && style.Cap == gg.LineCapRound {
		roundCap(&mesh, pts[0], direction(pts[1], pts[0]), hw, color, m)
		roundCap(&mesh, pts[n-1], direction(pts[n-2], pts[n-1]), hw, color, m)
	}
	return mesh, nil
}

// roundCap appends a half disc at c bulging along the unit direction out.
func roundCap(mesh *Mesh, c, out gg.Point, hw float64, color common.Color, m gg.Matrix) {
	segs := int(math.Ceil(hw))
	segs = max(4, min(segs, 32))
	n := gg.Pt(-out.Y, out.X)

	center := uint32(len(mesh.Vertices))
	mesh.Vertices = append(mesh.Vertices, vertex(m.TransformPoint(c), color))
	for i := 0; i <= segs; i++ {
		theta := math.Pi * float64(i) / float64(segs)
		p := c.Add(n.Mul(hw * math.Cos(theta))).Add(out.Mul(hw * math.Sin(theta)))
		mesh.Vertices = append(mesh.Vertices, vertex(m.TransformPoint(p), color))
	}
	for i := uint32(1); i <= uint32(segs); i++ {
		mesh.Indices = append(mesh.Indices, center, center+i, center+i+1)
	}
}

func direction(from, to gg.Point) gg.Point {
	return to.Sub(from).Normalize()
}

// normal is the left unit normal of the segment from a to b.
func normal(a, b gg.Point) gg.Point {
	d := direction(a, b)
	return gg.Pt(-d.Y, d.X)
}

// miter returns the join offset for a corner between segments with unit normals n0 and n1.
func miter(n0, n1 gg.Point, hw, limit float64) gg.Point {
	sum := n0.Add(n1)
	if sum.Length() < 1e-9 {
		// The path doubles back on itself; fall back to the incoming normal.
		return n0.Mul(hw)
	}
	dir := sum.Normalize()
	length := hw / dir.Dot(n1)
	if length > hw*limit {
		length = hw * limit
	}
	return dir.Mul(length)
}

// Polyline converts consecutive points into line segments, the form slider paths are uploaded in.
func Polyline(points []gg.Point) []batch.LineSegment {
	if len(points) < 2 {
		return nil
	}
	segs := make([]batch.LineSegment, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		a, b := points[i-1], points[i]
		segs = append(segs, batch.LineSegment{
			P0: [2]float32{float32(a.X), float32(a.Y)},
			P1: [2]float32{float32(b.X), float32(b.Y)},
		})
	}
	return segs
}
