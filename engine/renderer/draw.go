package renderer

import (
	"errors"

	"github.com/Carmen-Shannon/oxy2d/common"
	"github.com/Carmen-Shannon/oxy2d/engine/atlas"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer/batch"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer/shape"

	"github.com/gogpu/gg"
)

// Flip mirrors a textured quad.
type Flip = shape.Flip

const (
	FlipNone = shape.FlipNone
	FlipH    = shape.FlipH
	FlipV    = shape.FlipV
)

// Style describes how a shape is painted. The fill and the border are drawn as two separate batches of
// geometry, fill first. A fill with zero alpha or a border with zero width is skipped.
type Style struct {
	Fill   common.Color
	Border common.Color
	Stroke gg.Stroke
}

// Filled returns a style that only fills.
//
// Parameters:
//   - c: the fill color
//
// Returns:
//   - Style: the style
func Filled(c common.Color) Style {
	return Style{Fill: c}
}

// Outlined returns a style that only draws a mitered border.
//
// Parameters:
//   - c: the border color
//   - width: the border width
//
// Returns:
//   - Style: the style
func Outlined(c common.Color, width float64) Style {
	stroke := gg.DefaultStroke()
	stroke.Width = width
	return Style{Border: c, Stroke: stroke}
}

// Slider is a slider body ready for the slider pipeline. Cells index into Segments, and
// Data.GridDims must match len(Cells). Data.CellOffset is assigned when the slider is batched.
type Slider struct {
	Bounds   common.Rect
	Data     batch.SliderData
	Cells    []batch.GridCell
	Segments []batch.LineSegment
}

func (r *renderer) DrawRect(rect common.Rect, style Style, m gg.Matrix, mode common.BlendMode) error {
	return r.drawShape(func() (*gg.Path, error) {
		return shape.RectPath(float64(rect.X), float64(rect.Y), float64(rect.Width), float64(rect.Height))
	}, style, m, mode)
}

func (r *renderer) DrawRoundedRect(rect common.Rect, radius float64, style Style, m gg.Matrix, mode common.BlendMode) error {
	return r.drawShape(func() (*gg.Path, error) {
		return shape.RoundedRectPath(float64(rect.X), float64(rect.Y), float64(rect.Width), float64(rect.Height), radius)
	}, style, m, mode)
}

func (r *renderer) DrawCircle(cx, cy, radius float64, style Style, m gg.Matrix, mode common.BlendMode) error {
	return r.drawShape(func() (*gg.Path, error) {
		return shape.CirclePath(cx, cy, radius)
	}, style, m, mode)
}

func (r *renderer) DrawArc(cx, cy, radius, start, end float64, style Style, m gg.Matrix, mode common.BlendMode) error {
	return r.drawShape(func() (*gg.Path, error) {
		return shape.ArcPath(cx, cy, radius, start, end)
	}, style, m, mode)
}

func (r *renderer) DrawPath(path *gg.Path, style Style, m gg.Matrix, mode common.BlendMode) error {
	return r.drawShape(func() (*gg.Path, error) {
		return path, nil
	}, style, m, mode)
}

func (r *renderer) DrawLine(x0, y0, x1, y1 float64, stroke gg.Stroke, color common.Color, m gg.Matrix, mode common.BlendMode) error {
	state := r.drawState(mode)
	mesh, err := shape.Stroke([]gg.Point{gg.Pt(x0, y0), gg.Pt(x1, y1)}, false, stroke, color, m)
	if err != nil {
		return r.dropped("line", err)
	}
	return r.drawMesh(mesh, state)
}

func (r *renderer) DrawTexture(ref atlas.TextureReference, dst common.Rect, flip Flip, tint common.Color, m gg.Matrix, mode common.BlendMode) error {
	state := r.drawState(mode)
	mesh, err := shape.TexturedQuad(float64(dst.X), float64(dst.Y), float64(dst.Width), float64(dst.Height), ref, flip, tint, m)
	if err != nil {
		return r.dropped("texture", err)
	}
	return r.drawMesh(mesh, state)
}

func (r *renderer) DrawSlider(s Slider, m gg.Matrix) error {
	state := r.drawState(common.BlendSlider)
	if err := shape.ValidateSlider(s.Data, s.Cells, s.Segments); err != nil {
		return r.dropped("slider", err)
	}
	vertices, err := shape.SliderQuad(s.Bounds, m)
	if err != nil {
		return r.dropped("slider", err)
	}

	res, err := r.batcher.ReserveSlider(len(vertices), len(shape.QuadIndices), len(s.Cells), len(s.Segments), state)
	if err != nil {
		return r.dropped("slider", err)
	}
	r.batcher.CommitSlider(res, vertices, shape.QuadIndices, s.Data, s.Cells, s.Segments)
	return nil
}

func (r *renderer) DrawFlashlight(data batch.FlashlightData, bounds common.Rect, m gg.Matrix) error {
	state := r.drawState(common.BlendFlashlight)
	if bounds == (common.Rect{}) {
		bounds = common.Rect{Width: float32(r.targetW), Height: float32(r.targetH)}
		m = gg.Identity()
	}
	vertices, err := shape.FlashlightQuad(bounds, m)
	if err != nil {
		return r.dropped("flashlight", err)
	}

	res, err := r.batcher.ReserveFlashlight(state)
	if err != nil {
		return r.dropped("flashlight", err)
	}
	r.batcher.CommitFlashlight(res, vertices, shape.QuadIndices, data)
	return nil
}

// drawShape fills and then strokes the outline built by build.
func (r *renderer) drawShape(build func() (*gg.Path, error), style Style, m gg.Matrix, mode common.BlendMode) error {
	state := r.drawState(mode)
	path, err := build()
	if err != nil {
		return r.dropped("shape", err)
	}

	if style.Fill[3] > 0 {
		mesh, err := shape.Fill(path, style.Fill, m)
		if err != nil {
			return r.dropped("fill", err)
		}
		if err := r.drawMesh(mesh, state); err != nil {
			return err
		}
	}
	if style.Stroke.Width > 0 {
		mesh, err := shape.StrokePath(path, style.Stroke, style.Border, m)
		if err != nil {
			return r.dropped("border", err)
		}
		return r.drawMesh(mesh, state)
	}
	return nil
}

func (r *renderer) drawMesh(mesh shape.Mesh, state batch.State) error {
	res, err := r.batcher.ReserveVertex(len(mesh.Vertices), len(mesh.Indices), state)
	if err != nil {
		return r.dropped("mesh", err)
	}
	r.batcher.CommitVertex(res, mesh.Vertices, mesh.Indices)
	return nil
}

// dropped logs why a draw produced nothing and hands the error back to the caller.
func (r *renderer) dropped(what string, err error) error {
	if errors.Is(err, shape.ErrDegenerate) {
		logger.Debugf("dropped %s: %v", what, err)
	} else {
		logger.Warningf("dropped %s: %v", what, err)
	}
	return err
}
