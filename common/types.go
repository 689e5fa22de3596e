// package common contains plain value types shared across the renderer. They are not interface-wrapped structs,
// just the small data types that cross package boundaries between the batching layer, the builders and the backends.
package common

import "fmt"

// Color is a linear RGBA color with components in [0, 1].
type Color [4]float32

// Common colors.
var (
	Transparent = Color{0, 0, 0, 0}
	Black       = Color{0, 0, 0, 1}
	White       = Color{1, 1, 1, 1}
)

// RGBA8 converts the color to 8-bit channels, clamping out-of-range components.
//
// Returns:
//   - [4]uint8: the red, green, blue and alpha bytes
func (c Color) RGBA8() [4]uint8 {
	var out [4]uint8
	for i, v := range c {
		switch {
		case v <= 0:
			out[i] = 0
		case v >= 1:
			out[i] = 255
		default:
			out[i] = uint8(v*255 + 0.5)
		}
	}
	return out
}

// Rect is an axis aligned rectangle in surface pixels.
type Rect struct {
	X, Y, Width, Height float32
}

// Intersect returns the overlap of r and o. Disjoint rectangles produce a zero-sized rect.
//
// Parameters:
//   - o: the rectangle to intersect with
//
// Returns:
//   - Rect: the overlapping area
func (r Rect) Intersect(o Rect) Rect {
	x0 := max(r.X, o.X)
	y0 := max(r.Y, o.Y)
	x1 := min(r.X+r.Width, o.X+o.Width)
	y1 := min(r.Y+r.Height, o.Y+o.Height)
	if x1 <= x0 || y1 <= y0 {
		return Rect{X: x0, Y: y0}
	}
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Scissor is an optional clip rectangle. The zero value disables clipping for the full surface.
// Scissor values are comparable with == which is how buffers detect a state change.
type Scissor struct {
	Rect
	Enabled bool
}

// ScissorRect returns an enabled scissor covering r.
func ScissorRect(r Rect) Scissor {
	return Scissor{Rect: r, Enabled: true}
}

func (s Scissor) String() string {
	if !s.Enabled {
		return "none"
	}
	return fmt.Sprintf("[%g %g %g %g]", s.X, s.Y, s.Width, s.Height)
}

// BlendMode selects the GPU pipeline a batch is drawn with.
type BlendMode uint8

const (
	// BlendAlpha is straight alpha blending (src*a + dst*(1-a)).
	BlendAlpha BlendMode = iota
	// BlendAlphaOverwrite blends color but replaces destination alpha with source alpha.
	BlendAlphaOverwrite
	// BlendPremultiplied expects color already multiplied by alpha.
	BlendPremultiplied
	// BlendAdditive adds source color weighted by source alpha.
	BlendAdditive
	// BlendSourceAlpha writes source color weighted by alpha and keeps destination alpha.
	BlendSourceAlpha
	// BlendNone disables blending and replaces the destination.
	BlendNone
	// BlendSlider selects the dedicated slider pipeline.
	BlendSlider
	// BlendFlashlight selects the dedicated flashlight mask pipeline.
	BlendFlashlight
)

// BlendModes lists every mode that maps to a regular blend-state pipeline.
var BlendModes = []BlendMode{
	BlendAlpha,
	BlendAlphaOverwrite,
	BlendPremultiplied,
	BlendAdditive,
	BlendSourceAlpha,
	BlendNone,
}

// Special reports whether the mode uses a dedicated pipeline instead of a blend-state lookup.
func (b BlendMode) Special() bool {
	return b == BlendSlider || b == BlendFlashlight
}

func (b BlendMode) String() string {
	switch b {
	case BlendAlpha:
		return "alpha"
	case BlendAlphaOverwrite:
		return "alpha-overwrite"
	case BlendPremultiplied:
		return "premultiplied"
	case BlendAdditive:
		return "additive"
	case BlendSourceAlpha:
		return "source-alpha"
	case BlendNone:
		return "none"
	case BlendSlider:
		return "slider"
	case BlendFlashlight:
		return "flashlight"
	default:
		return fmt.Sprintf("blend(%d)", uint8(b))
	}
}

// TextureStagingData holds RGBA pixel data for a texture region pending GPU upload.
type TextureStagingData struct {
	// Pixels is the tightly packed RGBA data, 4 bytes per pixel, row-major.
	Pixels []byte
	// Width is the width of the region in pixels.
	Width uint32
	// Height is the height of the region in pixels.
	Height uint32
}

// Valid reports whether Pixels holds exactly Width*Height*4 bytes.
func (t TextureStagingData) Valid() bool {
	return uint64(len(t.Pixels)) == uint64(t.Width)*uint64(t.Height)*4
}
