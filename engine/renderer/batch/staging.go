package batch

import (
	"github.com/Carmen-Shannon/oxy2d/common"
)

// Staging is the CPU side cache of one primitive family. Its arrays are sized to the buffer capacity and
// reused for every buffer the queue records.
type Staging interface {
	// Kind returns the primitive family the staging cache belongs to.
	Kind() Kind

	// Capacity returns the element count of every staging array.
	Capacity() Usage

	// Regions returns byte views of the first used elements of every non-empty staging array.
	//
	// Parameters:
	//   - used: element counts per sub-resource
	//
	// Returns:
	//   - []Region: the regions to upload
	Regions(used Usage) []Region
}

// VertexStaging caches plain vertices.
type VertexStaging struct {
	Vertices []Vertex
	Indices  []uint32
}

// NewVertexStaging allocates a cache for the given capacity.
func NewVertexStaging(capacity Usage) *VertexStaging {
	return &VertexStaging{
		Vertices: make([]Vertex, capacity.Vertices),
		Indices:  make([]uint32, capacity.Indices),
	}
}

func (s *VertexStaging) Kind() Kind {
	return KindVertex
}

func (s *VertexStaging) Capacity() Usage {
	return Usage{Vertices: len(s.Vertices), Indices: len(s.Indices)}
}

func (s *VertexStaging) Regions(used Usage) []Region {
	return appendRegions(nil,
		region(ResourceVertices, s.Vertices[:used.Vertices]),
		region(ResourceIndices, s.Indices[:used.Indices]),
	)
}

// SliderStaging caches slider quads with their object data, grid cells and line segments.
type SliderStaging struct {
	Vertices []SliderVertex
	Indices  []uint32
	Objects  []SliderData
	Cells    []GridCell
	Segments []LineSegment
}

// NewSliderStaging allocates a cache for the given capacity.
func NewSliderStaging(capacity Usage) *SliderStaging {
	return &SliderStaging{
		Vertices: make([]SliderVertex, capacity.Vertices),
		Indices:  make([]uint32, capacity.Indices),
		Objects:  make([]SliderData, capacity.Objects),
		Cells:    make([]GridCell, capacity.Cells),
		Segments: make([]LineSegment, capacity.Segments),
	}
}

func (s *SliderStaging) Kind() Kind {
	return KindSlider
}

func (s *SliderStaging) Capacity() Usage {
	return Usage{
		Vertices: len(s.Vertices),
		Indices:  len(s.Indices),
		Objects:  len(s.Objects),
		Cells:    len(s.Cells),
		Segments: len(s.Segments),
	}
}

func (s *SliderStaging) Regions(used Usage) []Region {
	return appendRegions(nil,
		region(ResourceVertices, s.Vertices[:used.Vertices]),
		region(ResourceIndices, s.Indices[:used.Indices]),
		region(ResourceObjects, s.Objects[:used.Objects]),
		region(ResourceCells, s.Cells[:used.Cells]),
		region(ResourceSegments, s.Segments[:used.Segments]),
	)
}

// FlashlightStaging caches flashlight quads with their object data.
type FlashlightStaging struct {
	Vertices []FlashlightVertex
	Indices  []uint32
	Objects  []FlashlightData
}

// NewFlashlightStaging allocates a cache for the given capacity.
func NewFlashlightStaging(capacity Usage) *FlashlightStaging {
	return &FlashlightStaging{
		Vertices: make([]FlashlightVertex, capacity.Vertices),
		Indices:  make([]uint32, capacity.Indices),
		Objects:  make([]FlashlightData, capacity.Objects),
	}
}

func (s *FlashlightStaging) Kind() Kind {
	return KindFlashlight
}

func (s *FlashlightStaging) Capacity() Usage {
	return Usage{Vertices: len(s.Vertices), Indices: len(s.Indices), Objects: len(s.Objects)}
}

func (s *FlashlightStaging) Regions(used Usage) []Region {
	return appendRegions(nil,
		region(ResourceVertices, s.Vertices[:used.Vertices]),
		region(ResourceIndices, s.Indices[:used.Indices]),
		region(ResourceObjects, s.Objects[:used.Objects]),
	)
}

func region[T any](res Resource, data []T) Region {
	return Region{Resource: res, Data: common.SliceToBytes(data)}
}

func appendRegions(dst []Region, regions ...Region) []Region {
	for _, r := range regions {
		if len(r.Data) > 0 {
			dst = append(dst, r)
		}
	}
	return dst
}
