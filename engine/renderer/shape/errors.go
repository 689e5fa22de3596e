package shape

import (
	"errors"
	"fmt"
)

var (
	// ErrDegenerate is returned for geometry that cannot be tessellated: non-finite coordinates, empty
	// sizes or outlines that collapse to fewer than three distinct points.
	ErrDegenerate = errors.New("degenerate geometry")
	// ErrInvalidSlider is returned when a slider's grid cells reference segments that do not exist.
	ErrInvalidSlider = errors.New("invalid slider grid")
)

func degenerate(what string, vs ...float64) error {
	return fmt.Errorf("%w: %s %v", ErrDegenerate, what, vs)
}
