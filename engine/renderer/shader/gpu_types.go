package shader

import (
	_ "embed"
)

// GPUGlobalsSource is the WGSL definition of the Globals uniform struct. Matches Globals (64 bytes).
//
//go:embed assets/globals.wgsl
var GPUGlobalsSource string

// Globals is the per-pass uniform shared by every pipeline.
type Globals struct {
	// Projection maps target pixels to clip space, column-major.
	Projection [16]float32
}
