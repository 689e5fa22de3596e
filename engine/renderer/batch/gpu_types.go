package batch

import (
	_ "embed"
)

// GPUVertexSource is the WGSL definition of the VertexInput struct. Matches Vertex (40 bytes).
//
//go:embed assets/vertex.wgsl
var GPUVertexSource string

// Vertex is the layout of a plain vertex buffer element.
type Vertex struct {
	Position [3]float32 // offset  0
	// TexCoord holds u, v and the atlas layer. A negative layer draws the vertex color only.
	TexCoord [3]float32 // offset 12
	Color    [4]float32 // offset 24
}

// GPUSliderVertexSource is the WGSL definition of the SliderVertexInput struct. Matches SliderVertex (24 bytes).
//
//go:embed assets/slider_vertex.wgsl
var GPUSliderVertexSource string

// SliderVertex is a slider quad corner. Index selects the SliderData entry of the same buffer.
type SliderVertex struct {
	Position [3]float32 // offset  0
	Index    uint32     // offset 12
	// Local is the corner in slider space, where the segment grid lives.
	Local [2]float32 // offset 16
}

// GPUFlashlightVertexSource is the WGSL definition of the FlashlightVertexInput struct. Matches
// FlashlightVertex (24 bytes).
//
//go:embed assets/flashlight_vertex.wgsl
var GPUFlashlightVertexSource string

// FlashlightVertex is a flashlight quad corner. Index selects the FlashlightData entry of the same buffer.
type FlashlightVertex struct {
	Position [3]float32 // offset  0
	Index    uint32     // offset 12
	// Local is the corner in mask space, where Center is measured.
	Local [2]float32 // offset 16
}

// GPUSliderDataSource is the WGSL definition of the SliderData storage struct (64 bytes, 16 aligned).
//
//go:embed assets/slider_data.wgsl
var GPUSliderDataSource string

// SliderData holds the per-slider shader parameters.
type SliderData struct {
	BodyColor   [4]float32 // offset  0
	BorderColor [4]float32 // offset 16
	// GridOrigin is the top-left corner of the segment grid in slider space.
	GridOrigin [2]float32 // offset 32
	// GridDims is the number of grid columns and rows.
	GridDims    [2]uint32 // offset 40
	CellSize    float32   // offset 48
	Radius      float32   // offset 52
	BorderWidth float32   // offset 56
	// CellOffset is the index of the slider's first GridCell in the buffer's shared cell array.
	CellOffset uint32 // offset 60
}

// GPUGridCellSource is the WGSL definition of the GridCell storage struct (8 bytes).
//
//go:embed assets/grid_cell.wgsl
var GPUGridCellSource string

// GridCell lists the line segments crossing one grid cell as a range of the shared segment array.
type GridCell struct {
	Start uint32
	Count uint32
}

// GPULineSegmentSource is the WGSL definition of the LineSegment storage struct (16 bytes).
//
//go:embed assets/line_segment.wgsl
var GPULineSegmentSource string

// LineSegment is one straight piece of a slider path.
type LineSegment struct {
	P0 [2]float32
	P1 [2]float32
}

// Flashlight mask shapes.
const (
	FlashlightCircle uint32 = iota
	FlashlightSquare
)

// GPUFlashlightDataSource is the WGSL definition of the FlashlightData storage struct (48 bytes, 16 aligned).
//
//go:embed assets/flashlight_data.wgsl
var GPUFlashlightDataSource string

// FlashlightData holds the per-mask shader parameters.
type FlashlightData struct {
	Center [2]float32 // offset  0
	Radius float32    // offset  8
	Fade   float32    // offset 12
	// Color is the color drawn outside the lit area.
	Color [4]float32 // offset 16
	// Dim scales the alpha of Color.
	Dim   float32   // offset 32
	Shape uint32    // offset 36
	_     [2]uint32 // offset 40
}
