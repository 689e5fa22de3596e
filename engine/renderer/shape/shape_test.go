package shape

import (
	"errors"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy2d/common"
	"github.com/Carmen-Shannon/oxy2d/engine/atlas"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer/batch"
	"github.com/gogpu/gg"
)

func dist(v batch.Vertex, x, y float64) float64 {
	return math.Hypot(float64(v.Position[0])-x, float64(v.Position[1])-y)
}

func TestFillRect(t *testing.T) {
	path, err := RectPath(0, 0, 10, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mesh, err := Fill(path, common.White, gg.Translate(5, 5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(mesh.Vertices) != 4 || len(mesh.Indices) != 6 {
		t.Fatalf("expected 4 vertices and 6 indices; got %d and %d", len(mesh.Vertices), len(mesh.Indices))
	}
	if d := dist(mesh.Vertices[2], 15, 25); d > 1e-4 {
		t.Fatalf("expected translated corner at (15,25); got %v", mesh.Vertices[2].Position)
	}
	for _, v := range mesh.Vertices {
		if v.TexCoord[2] >= 0 {
			t.Fatalf("expected untextured vertex; got layer %g", v.TexCoord[2])
		}
		if v.Color != [4]float32(common.White) {
			t.Fatalf("expected white vertex color; got %v", v.Color)
		}
	}
}

func TestCircleStaysOnRadius(t *testing.T) {
	path, _ := CirclePath(50, 50, 20)
	mesh, err := Fill(path, common.White, gg.Identity())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(mesh.Vertices) < 16 {
		t.Fatalf("expected a smooth circle; got %d vertices", len(mesh.Vertices))
	}
	if len(mesh.Indices) != 3*(len(mesh.Vertices)-2) {
		t.Fatalf("expected a fan of %d indices; got %d", 3*(len(mesh.Vertices)-2), len(mesh.Indices))
	}
	for i, v := range mesh.Vertices {
		if d := dist(v, 50, 50); math.Abs(d-20) > 0.5 {
			t.Fatalf("expected vertex %d on radius 20; got distance %g", i, d)
		}
	}
}

func TestArcStartsAtCenter(t *testing.T) {
	path, err := ArcPath(10, 10, 5, 0, math.Pi/2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mesh, err := Fill(path, common.White, gg.Identity())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d := dist(mesh.Vertices[0], 10, 10); d > 1e-6 {
		t.Fatalf("expected first vertex at the center; got %v", mesh.Vertices[0].Position)
	}
	if d := dist(mesh.Vertices[1], 15, 10); d > 1e-6 {
		t.Fatalf("expected second vertex at the arc start; got %v", mesh.Vertices[1].Position)
	}
}

func TestArcWrapsClockwise(t *testing.T) {
	// From straight up to straight down: the clockwise sweep covers the right half.
	path, err := ArcPath(0, 0, 10, 3*math.Pi/2, math.Pi/2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mesh, err := Fill(path, common.White, gg.Identity())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	maxX := float32(math.Inf(-1))
	for _, v := range mesh.Vertices {
		if v.Position[0] < -1e-4 {
			t.Fatalf("expected the slice on the right half; got vertex %v", v.Position)
		}
		maxX = max(maxX, v.Position[0])
	}
	if math.Abs(float64(maxX)-10) > 1e-3 {
		t.Fatalf("expected the slice to reach (10, 0); got max x %g", maxX)
	}
}

// triangleArea returns the unsigned area of one indexed triangle.
func triangleArea(mesh Mesh, tri int) float64 {
	a := mesh.Vertices[mesh.Indices[3*tri]].Position
	b := mesh.Vertices[mesh.Indices[3*tri+1]].Position
	c := mesh.Vertices[mesh.Indices[3*tri+2]].Position
	return math.Abs(float64((b[0]-a[0])*(c[1]-a[1])-(b[1]-a[1])*(c[0]-a[0]))) / 2
}

// inTriangle reports whether (x, y) lies strictly inside an indexed triangle.
func inTriangle(mesh Mesh, tri int, x, y float32) bool {
	var signs [3]float32
	for k := 0; k < 3; k++ {
		a := mesh.Vertices[mesh.Indices[3*tri+k]].Position
		b := mesh.Vertices[mesh.Indices[3*tri+(k+1)%3]].Position
		signs[k] = (b[0]-a[0])*(y-a[1]) - (b[1]-a[1])*(x-a[0])
	}
	return signs[0] > 0 && signs[1] > 0 && signs[2] > 0 || signs[0] < 0 && signs[1] < 0 && signs[2] < 0
}

func TestFillConcaveOutline(t *testing.T) {
	// A U: 30x30 square with a 10x20 notch cut from the bottom middle.
	u := []gg.Point{gg.Pt(0, 0), gg.Pt(30, 0), gg.Pt(30, 30), gg.Pt(20, 30), gg.Pt(20, 10), gg.Pt(10, 10), gg.Pt(10, 30), gg.Pt(0, 30)}
	specs := []struct {
		descr  string
		points []gg.Point
	}{
		{"clockwise", u},
		{"counterclockwise", []gg.Point{u[7], u[6], u[5], u[4], u[3], u[2], u[1], u[0]}},
		{"starting in the notch", append(append([]gg.Point{}, u[5:]...), u[:5]...)},
	}

	for _, spec := range specs {
		path := gg.NewPath()
		path.MoveTo(spec.points[0].X, spec.points[0].Y)
		for _, p := range spec.points[1:] {
			path.LineTo(p.X, p.Y)
		}
		path.Close()

		mesh, err := Fill(path, common.White, gg.Identity())
		if err != nil {
			t.Fatalf("[%s] unexpected error: %v", spec.descr, err)
		}
		if len(mesh.Indices) != 3*(len(spec.points)-2) {
			t.Fatalf("[%s] expected %d indices; got %d", spec.descr, 3*(len(spec.points)-2), len(mesh.Indices))
		}

		var total float64
		for tri := 0; tri < len(mesh.Indices)/3; tri++ {
			if inTriangle(mesh, tri, 15, 20) {
				t.Fatalf("[%s] expected the notch to stay empty; triangle %d covers (15, 20)", spec.descr, tri)
			}
			total += triangleArea(mesh, tri)
		}
		if math.Abs(total-700) > 1e-3 {
			t.Fatalf("[%s] expected triangles to cover 700 square units; got %g", spec.descr, total)
		}
	}
}

func TestDegenerateInputIsRejected(t *testing.T) {
	nan := math.NaN()
	specs := []struct {
		name string
		fn   func() error
	}{
		{"nan rect", func() error { _, err := RectPath(nan, 0, 1, 1); return err }},
		{"zero width", func() error { _, err := RectPath(0, 0, 0, 1); return err }},
		{"negative corner", func() error { _, err := RoundedRectPath(0, 0, 5, 5, -1); return err }},
		{"zero radius", func() error { _, err := CirclePath(0, 0, 0); return err }},
		{"inf circle", func() error { _, err := CirclePath(math.Inf(1), 0, 1); return err }},
		{"empty sweep", func() error { _, err := ArcPath(0, 0, 1, 1, 1); return err }},
		{"point line", func() error { _, err := LinePath(1, 1, 1, 1); return err }},
		{"nil fill", func() error { _, err := Fill(nil, common.White, gg.Identity()); return err }},
		{"nan transform", func() error {
			p, _ := RectPath(0, 0, 1, 1)
			_, err := Fill(p, common.White, gg.Matrix{A: nan, E: 1})
			return err
		}},
		{"collapsed transform", func() error {
			p, _ := RectPath(0, 0, 1, 1)
			_, err := Fill(p, common.White, gg.Scale(0, 1))
			return err
		}},
		{"zero stroke width", func() error {
			_, err := Stroke([]gg.Point{gg.Pt(0, 0), gg.Pt(1, 0)}, false, gg.Stroke{}, common.White, gg.Identity())
			return err
		}},
		{"single stroke point", func() error {
			_, err := Stroke([]gg.Point{gg.Pt(0, 0), gg.Pt(0, 0)}, false, gg.DefaultStroke(), common.White, gg.Identity())
			return err
		}},
		{"empty quad", func() error {
			_, err := TexturedQuad(0, 0, 0, 5, atlas.TextureReference{}, FlipNone, common.White, gg.Identity())
			return err
		}},
		{"nan slider", func() error { _, err := SliderQuad(common.Rect{X: float32(nan), Width: 1, Height: 1}, gg.Identity()); return err }},
	}

	for _, spec := range specs {
		if err := spec.fn(); !errors.Is(err, ErrDegenerate) {
			t.Fatalf("[%s] expected ErrDegenerate; got %v", spec.name, err)
		}
	}
}

func TestStrokeLineCaps(t *testing.T) {
	pts := []gg.Point{gg.Pt(0, 0), gg.Pt(10, 0)}
	specs := []struct {
		cap      gg.LineCap
		vertices int
		minX     float32
	}{
		{gg.LineCapButt, 4, 0},
		{gg.LineCapSquare, 4, -2},
		{gg.LineCapRound, 4 + 2*(1+5), -2},
	}

	for _, spec := range specs {
		style := gg.Stroke{Width: 4, Cap: spec.cap, MiterLimit: 4}
		mesh, err := Stroke(pts, false, style, common.White, gg.Identity())
		if err != nil {
			t.Fatalf("[cap %d] unexpected error: %v", spec.cap, err)
		}
		if len(mesh.Vertices) != spec.vertices {
			t.Fatalf("[cap %d] expected %d vertices; got %d", spec.cap, spec.vertices, len(mesh.Vertices))
		}
		minX := float32(math.Inf(1))
		for _, v := range mesh.Vertices {
			minX = min(minX, v.Position[0])
		}
		if math.Abs(float64(minX-spec.minX)) > 1e-4 {
			t.Fatalf("[cap %d] expected stroke to start at x=%g; got %g", spec.cap, spec.minX, minX)
		}
		for _, idx := range mesh.Indices {
			if int(idx) >= len(mesh.Vertices) {
				t.Fatalf("[cap %d] index %d out of range", spec.cap, idx)
			}
		}
	}
}

func TestStrokeClosedRectMiters(t *testing.T) {
	path, _ := RectPath(0, 0, 10, 10)
	mesh, err := StrokePath(path, gg.Stroke{Width: 2, MiterLimit: 4}, common.White, gg.Identity())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(mesh.Vertices) != 8 || len(mesh.Indices) != 24 {
		t.Fatalf("expected 8 vertices and 24 indices; got %d and %d", len(mesh.Vertices), len(mesh.Indices))
	}
	for i := 0; i < 2; i++ {
		if d := dist(mesh.Vertices[i], 0, 0); math.Abs(d-math.Sqrt2) > 1e-4 {
			t.Fatalf("expected corner miter at distance sqrt(2); got %g", d)
		}
	}
}

func TestStrokePathDetectsClose(t *testing.T) {
	specs := []struct {
		descr   string
		closed  bool
		indices int
	}{
		{"open", false, 18},
		{"closed", true, 24},
	}

	for _, spec := range specs {
		path := gg.NewPath()
		path.MoveTo(0, 0)
		path.LineTo(10, 0)
		path.LineTo(10, 10)
		path.LineTo(0, 10)
		if spec.closed {
			path.Close()
		}

		mesh, err := StrokePath(path, gg.Stroke{Width: 2, MiterLimit: 4}, common.White, gg.Identity())
		if err != nil {
			t.Fatalf("[%s] unexpected error: %v", spec.descr, err)
		}
		if len(mesh.Indices) != spec.indices {
			t.Fatalf("[%s] expected %d indices; got %d", spec.descr, spec.indices, len(mesh.Indices))
		}
		// The start point gets a mitered join only when the path wraps around.
		d := dist(mesh.Vertices[0], 0, 0)
		if spec.closed && math.Abs(d-math.Sqrt2) > 1e-4 || !spec.closed && math.Abs(d-1) > 1e-4 {
			t.Fatalf("[%s] unexpected start offset %g", spec.descr, d)
		}
	}
}

func TestMiterLimitClampsSpikes(t *testing.T) {
	pts := []gg.Point{gg.Pt(0, 0), gg.Pt(100, 0), gg.Pt(0, 2)}
	style := gg.Stroke{Width: 2, MiterLimit: 3}
	mesh, err := Stroke(pts, false, style, common.White, gg.Identity())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, v := range mesh.Vertices[2:4] {
		if d := dist(v, 100, 0); d > 3+1e-4 {
			t.Fatalf("expected join clamped to 3 half-widths; got distance %g", d)
		}
	}
}

func TestTexturedQuadFlips(t *testing.T) {
	ref := atlas.TextureReference{Layer: 2, Width: 8, Height: 8, UV: [4]float32{0.1, 0.2, 0.3, 0.4}}
	specs := []struct {
		flip   Flip
		corner [2]float32
	}{
		{FlipNone, [2]float32{0.1, 0.2}},
		{FlipH, [2]float32{0.3, 0.2}},
		{FlipV, [2]float32{0.1, 0.4}},
		{FlipH | FlipV, [2]float32{0.3, 0.4}},
	}

	for _, spec := range specs {
		mesh, err := TexturedQuad(0, 0, 8, 8, ref, spec.flip, common.White, gg.Identity())
		if err != nil {
			t.Fatalf("[flip %d] unexpected error: %v", spec.flip, err)
		}
		tc := mesh.Vertices[0].TexCoord
		if tc[0] != spec.corner[0] || tc[1] != spec.corner[1] || tc[2] != 2 {
			t.Fatalf("[flip %d] expected top-left uv %v on layer 2; got %v", spec.flip, spec.corner, tc)
		}
	}

	mesh, _ := TexturedQuad(0, 0, 8, 8, atlas.TextureReference{}, FlipNone, common.White, gg.Identity())
	if mesh.Vertices[0].TexCoord[2] != -1 {
		t.Fatalf("expected empty reference to draw untextured; got layer %g", mesh.Vertices[0].TexCoord[2])
	}
}

func TestSliderGridValidates(t *testing.T) {
	pts := []gg.Point{gg.Pt(0, 0), gg.Pt(100, 0), gg.Pt(100, 60)}
	data, cells, segments, bounds, err := SliderGrid(pts, 10, 16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateSlider(data, cells, segments); err != nil {
		t.Fatalf("expected generated grid to validate; got %v", err)
	}
	if bounds.X != -10 || bounds.Width != 120 || bounds.Height != 80 {
		t.Fatalf("expected bounds grown by the radius; got %+v", bounds)
	}

	var referenced uint32
	for _, c := range cells {
		referenced += c.Count
	}
	if referenced == 0 || int(referenced) != len(segments) {
		t.Fatalf("expected every stored segment to belong to a cell; got %d of %d", referenced, len(segments))
	}

	cells[0].Start = uint32(len(segments))
	cells[0].Count = 1
	if err := ValidateSlider(data, cells, segments); !errors.Is(err, ErrInvalidSlider) {
		t.Fatalf("expected ErrInvalidSlider for an out of range cell; got %v", err)
	}
}

func TestSliderQuadKeepsLocalCorners(t *testing.T) {
	bounds := common.Rect{X: -10, Y: -10, Width: 120, Height: 80}
	vertices, err := SliderQuad(bounds, gg.Scale(2, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := [4][2]float32{{-10, -10}, {110, -10}, {110, 70}, {-10, 70}}
	for i, v := range vertices {
		if v.Local != want[i] {
			t.Fatalf("expected corner %d local %v; got %v", i, want[i], v.Local)
		}
		if v.Position[0] != 2*want[i][0] || v.Position[1] != 2*want[i][1] {
			t.Fatalf("expected corner %d scaled to %v; got %v", i, [2]float32{2 * want[i][0], 2 * want[i][1]}, v.Position)
		}
	}
}
