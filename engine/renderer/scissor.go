package renderer

import (
	"math"

	"github.com/Carmen-Shannon/oxy2d/common"
)

// ScissorStack holds nested clip rectangles. Each push is intersected with the rectangle below it, so a
// child never draws outside its parent.
type ScissorStack struct {
	stack []common.Scissor
}

// Push makes r the current clip, intersected with the current top.
//
// Parameters:
//   - r: the clip rectangle in target pixels
func (s *ScissorStack) Push(r common.Rect) {
	if top := s.Current(); top.Enabled {
		r = top.Intersect(r)
	}
	s.stack = append(s.stack, common.ScissorRect(r))
}

// Pop restores the previous clip.
//
// Returns:
//   - bool: false if the stack was already empty
func (s *ScissorStack) Pop() bool {
	if len(s.stack) == 0 {
		return false
	}
	s.stack = s.stack[:len(s.stack)-1]
	return true
}

// Current returns the active clip. An empty stack yields the disabled zero Scissor.
//
// Returns:
//   - common.Scissor: the top of the stack
func (s *ScissorStack) Current() common.Scissor {
	if len(s.stack) == 0 {
		return common.Scissor{}
	}
	return s.stack[len(s.stack)-1]
}

// Depth returns the number of pushed clips.
func (s *ScissorStack) Depth() int {
	return len(s.stack)
}

// Reset empties the stack.
func (s *ScissorStack) Reset() {
	s.stack = s.stack[:0]
}

// clampScissor converts a scissor to whole target pixels, rounding outward. ok is false when nothing of
// the rectangle lies inside the target, or when it is not finite.
func clampScissor(s common.Scissor, width, height uint32) (x, y, w, h uint32, ok bool) {
	if !s.Enabled {
		return 0, 0, width, height, width > 0 && height > 0
	}
	fx0, fy0 := float64(s.X), float64(s.Y)
	fx1, fy1 := fx0+float64(s.Width), fy0+float64(s.Height)
	for _, v := range []float64{fx0, fy0, fx1, fy1} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, 0, 0, 0, false
		}
	}

	x0 := math.Max(math.Floor(fx0), 0)
	y0 := math.Max(math.Floor(fy0), 0)
	x1 := math.Min(math.Ceil(fx1), float64(width))
	y1 := math.Min(math.Ceil(fy1), float64(height))
	if x1 <= x0 || y1 <= y0 || s.Width <= 0 || s.Height <= 0 {
		return 0, 0, 0, 0, false
	}
	return uint32(x0), uint32(y0), uint32(x1 - x0), uint32(y1 - y0), true
}
