package shape

import (
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy2d/common"
	"github.com/Carmen-Shannon/oxy2d/engine/atlas"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer/batch"
	"github.com/gogpu/gg"
)

// Flip mirrors the texture of a quad.
type Flip uint8

const (
	FlipH Flip = 1 << iota
	FlipV

	FlipNone Flip = 0
)

// TexturedQuad builds a rectangle sampling ref. An empty reference draws the color alone.
//
// Parameters:
//   - x, y, w, h: the rectangle in quad space
//   - ref: the atlas region to sample
//   - flip: mirroring applied to the UV corners before the transform
//   - color: the tint multiplied with the texture
//   - m: the transform from quad space to target pixels
//
// Returns:
//   - Mesh: 4 vertices and 6 indices
//   - error: ErrDegenerate for non-finite input or an empty rectangle
func TexturedQuad(x, y, w, h float64, ref atlas.TextureReference, flip Flip, color common.Color, m gg.Matrix) (Mesh, error) {
	corners, err := quadCorners(common.Rect{X: float32(x), Y: float32(y), Width: float32(w), Height: float32(h)}, m)
	if err != nil {
		return Mesh{}, err
	}

	u0, v0, u1, v1 := ref.UV[0], ref.UV[1], ref.UV[2], ref.UV[3]
	if flip&FlipH != 0 {
		u0, u1 = u1, u0
	}
	if flip&FlipV != 0 {
		v0, v1 = v1, v0
	}
	layer := float32(ref.Layer)
	if ref.IsEmpty() {
		layer = -1
	}
	uvs := [4][2]float32{{u0, v0}, {u1, v0}, {u1, v1}, {u0, v1}}

	mesh := Mesh{
		Vertices: make([]batch.Vertex, 4),
		Indices:  QuadIndices,
	}
	for i, p := range corners {
		mesh.Vertices[i] = batch.Vertex{
			Position: [3]float32{float32(p.X), float32(p.Y), 0},
			TexCoord: [3]float32{uvs[i][0], uvs[i][1], layer},
			Color:    color,
		}
	}
	return mesh, nil
}

// SliderQuad builds the quad a slider body is drawn on. The vertices carry no object index yet; the
// batcher assigns it on commit.
//
// Parameters:
//   - bounds: the area covered by the slider, border included
//   - m: the transform from slider space to target pixels
//
// Returns:
//   - []batch.SliderVertex: the four corners
//   - error: ErrDegenerate for non-finite input or empty bounds
func SliderQuad(bounds common.Rect, m gg.Matrix) ([]batch.SliderVertex, error) {
	corners, err := quadCorners(bounds, m)
	if err != nil {
		return nil, err
	}
	local := rectCorners(bounds)
	out := make([]batch.SliderVertex, 4)
	for i, p := range corners {
		out[i].Position = [3]float32{float32(p.X), float32(p.Y), 0}
		out[i].Local = local[i]
	}
	return out, nil
}

// FlashlightQuad builds the quad a flashlight mask is drawn on, usually the whole target.
//
// Parameters:
//   - bounds: the area the mask covers
//   - m: the transform from mask space to target pixels
//
// Returns:
//   - []batch.FlashlightVertex: the four corners
//   - error: ErrDegenerate for non-finite input or empty bounds
func FlashlightQuad(bounds common.Rect, m gg.Matrix) ([]batch.FlashlightVertex, error) {
	corners, err := quadCorners(bounds, m)
	if err != nil {
		return nil, err
	}
	local := rectCorners(bounds)
	out := make([]batch.FlashlightVertex, 4)
	for i, p := range corners {
		out[i].Position = [3]float32{float32(p.X), float32(p.Y), 0}
		out[i].Local = local[i]
	}
	return out, nil
}

func quadCorners(r common.Rect, m gg.Matrix) ([4]gg.Point, error) {
	x, y, w, h := float64(r.X), float64(r.Y), float64(r.Width), float64(r.Height)
	if !finite(x, y, w, h) || !finiteMatrix(m) || w <= 0 || h <= 0 {
		return [4]gg.Point{}, degenerate("quad", x, y, w, h)
	}
	return [4]gg.Point{
		m.TransformPoint(gg.Pt(x, y)),
		m.TransformPoint(gg.Pt(x+w, y)),
		m.TransformPoint(gg.Pt(x+w, y+h)),
		m.TransformPoint(gg.Pt(x, y+h)),
	}, nil
}

// rectCorners lists the corners of r in the winding quadCorners uses.
func rectCorners(r common.Rect) [4][2]float32 {
	return [4][2]float32{
		{r.X, r.Y},
		{r.X + r.Width, r.Y},
		{r.X + r.Width, r.Y + r.Height},
		{r.X, r.Y + r.Height},
	}
}

// ValidateSlider checks that a slider's grid matches its dimensions and that every cell's segment range
// lies inside segments.
//
// Parameters:
//   - data: the slider parameters
//   - cells: the grid cells, row-major
//   - segments: the line segments the cells index into
//
// Returns:
//   - error: ErrInvalidSlider describing the first problem found
func ValidateSlider(data batch.SliderData, cells []batch.GridCell, segments []batch.LineSegment) error {
	if want := uint64(data.GridDims[0]) * uint64(data.GridDims[1]); want != uint64(len(cells)) {
		return fmt.Errorf("%w: %d cells for a %dx%d grid", ErrInvalidSlider, len(cells), data.GridDims[0], data.GridDims[1])
	}
	for i, c := range cells {
		if uint64(c.Start)+uint64(c.Count) > uint64(len(segments)) {
			return fmt.Errorf("%w: cell %d references segments [%d, %d) of %d", ErrInvalidSlider, i, c.Start, c.Start+c.Count, len(segments))
		}
	}
	for i, s := range segments {
		if !finite(float64(s.P0[0]), float64(s.P0[1]), float64(s.P1[0]), float64(s.P1[1])) {
			return fmt.Errorf("%w: segment %d is not finite", ErrInvalidSlider, i)
		}
	}
	if !finite(float64(data.Radius), float64(data.CellSize)) || data.Radius <= 0 || data.CellSize <= 0 {
		return fmt.Errorf("%w: radius %g, cell size %g", ErrInvalidSlider, data.Radius, data.CellSize)
	}
	return nil
}

// SliderGrid builds the segment grid of a slider path. Each cell lists every segment passing within
// radius of it, so the fragment shader only measures distances to nearby segments.
//
// Parameters:
//   - points: the slider path as a polyline
//   - radius: the slider body radius
//   - cellSize: the edge length of a grid cell
//
// Returns:
//   - batch.SliderData: the grid fields (origin, dims, cell size, radius) filled in
//   - []batch.GridCell: the cells, row-major, indexing into the returned segments
//   - []batch.LineSegment: the segments, grouped per cell
//   - common.Rect: the area covered by the slider body
//   - error: ErrDegenerate for fewer than two points or invalid sizes
func SliderGrid(points []gg.Point, radius, cellSize float64) (batch.SliderData, []batch.GridCell, []batch.LineSegment, common.Rect, error) {
	path := Polyline(points)
	if len(path) == 0 || !finite(radius, cellSize) || radius <= 0 || cellSize <= 0 {
		return batch.SliderData{}, nil, nil, common.Rect{}, degenerate("slider", radius, cellSize)
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		if !finite(p.X, p.Y) {
			return batch.SliderData{}, nil, nil, common.Rect{}, degenerate("slider point", p.X, p.Y)
		}
		minX, minY = math.Min(minX, p.X), math.Min(minY, p.Y)
		maxX, maxY = math.Max(maxX, p.X), math.Max(maxY, p.Y)
	}
	minX, minY = minX-radius, minY-radius
	maxX, maxY = maxX+radius, maxY+radius

	cols := uint32(math.Ceil((maxX - minX) / cellSize))
	rows := uint32(math.Ceil((maxY - minY) / cellSize))
	cols, rows = max(cols, 1), max(rows, 1)

	var (
		cells    = make([]batch.GridCell, 0, cols*rows)
		segments []batch.LineSegment
	)
	for row := uint32(0); row < rows; row++ {
		for col := uint32(0); col < cols; col++ {
			x0 := minX + float64(col)*cellSize
			y0 := minY + float64(row)*cellSize
			cell := batch.GridCell{Start: uint32(len(segments))}
			for _, s := range path {
				if segmentNearBox(s, x0-radius, y0-radius, x0+cellSize+radius, y0+cellSize+radius) {
					segments = append(segments, s)
					cell.Count++
				}
			}
			cells = append(cells, cell)
		}
	}

	data := batch.SliderData{
		GridOrigin: [2]float32{float32(minX), float32(minY)},
		GridDims:   [2]uint32{cols, rows},
		CellSize:   float32(cellSize),
		Radius:     float32(radius),
	}
	bounds := common.Rect{X: float32(minX), Y: float32(minY), Width: float32(maxX - minX), Height: float32(maxY - minY)}
	return data, cells, segments, bounds, nil
}

// segmentNearBox is a conservative bounding box overlap test.
func segmentNearBox(s batch.LineSegment, x0, y0, x1, y1 float64) bool {
	sx0 := math.Min(float64(s.P0[0]), float64(s.P1[0]))
	sx1 := math.Max(float64(s.P0[0]), float64(s.P1[0]))
	sy0 := math.Min(float64(s.P0[1]), float64(s.P1[1]))
	sy1 := math.Max(float64(s.P0[1]), float64(s.P1[1]))
	return sx0 <= x1 && sx1 >= x0 && sy0 <= y1 && sy1 >= y0
}
