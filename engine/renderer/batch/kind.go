// Package batch turns primitive geometry into capacity-bounded GPU buffers.
//
// Each primitive family (plain vertices, sliders, flashlight masks) has its own Queue. Writes go through a
// two step reserve/commit API: Reserve hands out a Reservation holding start offsets into the recording buffer,
// Commit copies the caller's data at those offsets. The Batcher sequences the queues so that the completed
// buffers of a frame keep the order the primitives were drawn in.
package batch

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy2d/common"
)

// Kind identifies a primitive family.
type Kind uint8

const (
	// KindVertex is plain colored or textured triangles.
	KindVertex Kind = iota
	// KindSlider is slider bodies drawn with per-object data and a segment grid.
	KindSlider
	// KindFlashlight is flashlight mask quads drawn with per-object data.
	KindFlashlight
)

func (k Kind) String() string {
	switch k {
	case KindVertex:
		return "vertex"
	case KindSlider:
		return "slider"
	case KindFlashlight:
		return "flashlight"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Usage counts elements per sub-resource of a buffer. It describes capacities, used counts and requests.
type Usage struct {
	Vertices int
	Indices  int
	Objects  int
	Cells    int
	Segments int
}

// Add returns the element-wise sum of u and o.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		Vertices: u.Vertices + o.Vertices,
		Indices:  u.Indices + o.Indices,
		Objects:  u.Objects + o.Objects,
		Cells:    u.Cells + o.Cells,
		Segments: u.Segments + o.Segments,
	}
}

// Fits reports whether every count in u is within the matching count of capacity.
func (u Usage) Fits(capacity Usage) bool {
	return u.Vertices <= capacity.Vertices &&
		u.Indices <= capacity.Indices &&
		u.Objects <= capacity.Objects &&
		u.Cells <= capacity.Cells &&
		u.Segments <= capacity.Segments
}

// IsZero reports whether nothing is counted.
func (u Usage) IsZero() bool {
	return u == Usage{}
}

// Resource names one sub-resource of a buffer.
type Resource uint8

const (
	ResourceVertices Resource = iota
	ResourceIndices
	ResourceObjects
	ResourceCells
	ResourceSegments
)

// Region is one populated prefix of a staging array, ready to be written to the matching GPU sub-resource.
// Data aliases the staging cache and is only valid during the Upload call.
type Region struct {
	Resource Resource
	Data     []byte
}

// State is the render state recorded by a buffer on its first write. Buffers never mix states.
type State struct {
	Blend   common.BlendMode
	Scissor common.Scissor
}

func (s State) String() string {
	return fmt.Sprintf("blend=%s scissor=%s", s.Blend, s.Scissor)
}

// Allocator creates and fills backend buffers. H is the backend's buffer handle.
type Allocator[H any] interface {
	// NewBuffer creates a buffer able to hold capacity elements of every sub-resource of kind.
	//
	// Parameters:
	//   - kind: the primitive family the buffer will hold
	//   - capacity: element counts per sub-resource
	//
	// Returns:
	//   - H: the backend handle
	NewBuffer(kind Kind, capacity Usage) H

	// Upload writes the populated prefixes of a staging cache into buf.
	//
	// Parameters:
	//   - buf: the destination handle returned by NewBuffer
	//   - regions: the data per sub-resource, starting at element 0
	Upload(buf H, regions []Region)
}

// Capacities holds the per-buffer capacity of each primitive family.
type Capacities struct {
	Vertex     Usage
	Slider     Usage
	Flashlight Usage
}

// DefaultCapacities returns the capacities used when none are configured.
func DefaultCapacities() Capacities {
	return Capacities{
		Vertex:     Usage{Vertices: 4096, Indices: 6144},
		Slider:     Usage{Vertices: 1024, Indices: 1536, Objects: 256, Cells: 16384, Segments: 16384},
		Flashlight: Usage{Vertices: 64, Indices: 96, Objects: 16},
	}
}
