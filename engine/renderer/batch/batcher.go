package batch

import (
	"fmt"
)

// Completed is a dumped buffer waiting for the frame's render pass.
type Completed[H any] struct {
	Kind   Kind
	Handle H
	// Used holds the element counts uploaded to the buffer. The draw covers Used.Indices indices.
	Used  Usage
	State State
}

// Reservation is the token returned by the Reserve methods. It locates the reserved range of the recording
// buffer by start offset and length; it never holds a live slice of the staging cache.
type Reservation struct {
	kind       Kind
	generation uint64
	start      Usage
	count      Usage
}

// Kind returns the primitive family the reservation belongs to.
func (r Reservation) Kind() Kind {
	return r.kind
}

// Start returns the first element of every reserved sub-resource range.
func (r Reservation) Start() Usage {
	return r.start
}

// Count returns the number of reserved elements per sub-resource.
func (r Reservation) Count() Usage {
	return r.count
}

// Batcher owns one queue per primitive family and records the order their buffers complete in.
// Only one family records at a time: reserving for another family dumps the active one first, so the
// completed list follows the order primitives were drawn in.
type Batcher[H any] struct {
	vertex     *Queue[*VertexStaging, H]
	slider     *Queue[*SliderStaging, H]
	flashlight *Queue[*FlashlightStaging, H]

	active    Kind
	hasActive bool

	completed []Completed[H]
	uploaded  uint64
}

// NewBatcher creates a batcher with one queue per family.
//
// Parameters:
//   - alloc: creates and fills the backend buffers
//   - caps: per-buffer capacity of each family
//
// Returns:
//   - *Batcher[H]: the batcher
func NewBatcher[H any](alloc Allocator[H], caps Capacities) *Batcher[H] {
	return &Batcher[H]{
		vertex:     NewQueue(NewVertexStaging(caps.Vertex), alloc),
		slider:     NewQueue(NewSliderStaging(caps.Slider), alloc),
		flashlight: NewQueue(NewFlashlightStaging(caps.Flashlight), alloc),
	}
}

// ReserveVertex reserves room for a plain triangle mesh.
//
// Parameters:
//   - vertices: number of vertices
//   - indices: number of indices
//   - state: blend mode and scissor the mesh is drawn with
//
// Returns:
//   - Reservation: the token to commit the mesh with
//   - error: ErrExceedsCapacity if the mesh is larger than an empty buffer
func (b *Batcher[H]) ReserveVertex(vertices, indices int, state State) (Reservation, error) {
	return reserve(b, b.vertex, Usage{Vertices: vertices, Indices: indices}, state)
}

// ReserveSlider reserves room for one slider: its quad, one object slot, its grid cells and its segments.
// The buffer rotates if any of the five sub-resources would overflow.
//
// Parameters:
//   - vertices: number of vertices
//   - indices: number of indices
//   - cells: number of grid cells
//   - segments: number of line segments
//   - state: blend mode and scissor the slider is drawn with
//
// Returns:
//   - Reservation: the token to commit the slider with
//   - error: ErrExceedsCapacity if the slider is larger than an empty buffer
func (b *Batcher[H]) ReserveSlider(vertices, indices, cells, segments int, state State) (Reservation, error) {
	req := Usage{Vertices: vertices, Indices: indices, Objects: 1, Cells: cells, Segments: segments}
	return reserve(b, b.slider, req, state)
}

// ReserveFlashlight reserves room for one flashlight quad and its object slot.
//
// Parameters:
//   - state: blend mode and scissor the mask is drawn with
//
// Returns:
//   - Reservation: the token to commit the mask with
//   - error: ErrExceedsCapacity if the flashlight capacity is below one quad
func (b *Batcher[H]) ReserveFlashlight(state State) (Reservation, error) {
	return reserve(b, b.flashlight, Usage{Vertices: 4, Indices: 6, Objects: 1}, state)
}

// CommitVertex copies a mesh into a reserved range. Indices are local to vertices and are rebased onto
// the buffer. Committing a stale or mismatched reservation panics.
//
// Parameters:
//   - res: the token returned by ReserveVertex
//   - vertices: exactly res.Count().Vertices vertices
//   - indices: exactly res.Count().Indices indices
func (b *Batcher[H]) CommitVertex(res Reservation, vertices []Vertex, indices []uint32) {
	check(res, KindVertex, b.vertex.generation, len(vertices), len(indices))
	s := b.vertex.staging
	copy(s.Vertices[res.start.Vertices:], vertices)
	rebase(s.Indices[res.start.Indices:], indices, uint32(res.start.Vertices))
}

// CommitSlider copies one slider into a reserved range. The vertices are pointed at the reserved object
// slot, the object's cell offset at the reserved cells and every cell's segment range at the reserved
// segments, so sliders sharing a buffer never collide.
//
// Parameters:
//   - res: the token returned by ReserveSlider
//   - vertices: exactly res.Count().Vertices vertices
//   - indices: exactly res.Count().Indices local indices
//   - data: the slider parameters, with a local cell offset of zero
//   - cells: exactly res.Count().Cells cells indexing into segments
//   - segments: exactly res.Count().Segments line segments
func (b *Batcher[H]) CommitSlider(res Reservation, vertices []SliderVertex, indices []uint32, data SliderData, cells []GridCell, segments []LineSegment) {
	check(res, KindSlider, b.slider.generation, len(vertices), len(indices))
	if len(cells) != res.count.Cells || len(segments) != res.count.Segments {
		panic(fmt.Sprintf("batch: slider commit with %d cells, %d segments; reserved %d, %d",
			len(cells), len(segments), res.count.Cells, res.count.Segments))
	}
	s := b.slider.staging
	object := uint32(res.start.Objects)

	dst := s.Vertices[res.start.Vertices:]
	for i, v := range vertices {
		v.Index = object
		dst[i] = v
	}
	rebase(s.Indices[res.start.Indices:], indices, uint32(res.start.Vertices))

	data.CellOffset = uint32(res.start.Cells)
	s.Objects[res.start.Objects] = data

	cellDst := s.Cells[res.start.Cells:]
	for i, c := range cells {
		c.Start += uint32(res.start.Segments)
		cellDst[i] = c
	}
	copy(s.Segments[res.start.Segments:], segments)
}

// CommitFlashlight copies one flashlight quad into a reserved range.
//
// Parameters:
//   - res: the token returned by ReserveFlashlight
//   - vertices: the four quad corners
//   - indices: six local indices
//   - data: the mask parameters
func (b *Batcher[H]) CommitFlashlight(res Reservation, vertices []FlashlightVertex, indices []uint32, data FlashlightData) {
	check(res, KindFlashlight, b.flashlight.generation, len(vertices), len(indices))
	s := b.flashlight.staging
	object := uint32(res.start.Objects)

	dst := s.Vertices[res.start.Vertices:]
	for i, v := range vertices {
		v.Index = object
		dst[i] = v
	}
	rebase(s.Indices[res.start.Indices:], indices, uint32(res.start.Vertices))
	s.Objects[res.start.Objects] = data
}

// Flush dumps whichever family is recording. Afterwards no family is active.
func (b *Batcher[H]) Flush() {
	if !b.hasActive {
		return
	}
	switch b.active {
	case KindVertex:
		dump(b, b.vertex)
	case KindSlider:
		dump(b, b.slider)
	case KindFlashlight:
		dump(b, b.flashlight)
	}
	b.hasActive = false
}

// Begin starts a new frame, returning every buffer completed in the previous frame to its pool.
// It panics if a buffer is still recording.
func (b *Batcher[H]) Begin() {
	if b.Recording() {
		panic("batch: Begin called while a buffer is recording")
	}
	b.vertex.recycle()
	b.slider.recycle()
	b.flashlight.recycle()
	clear(b.completed)
	b.completed = b.completed[:0]
	b.uploaded = 0
}

// Recording reports whether any family has an open buffer.
func (b *Batcher[H]) Recording() bool {
	return b.vertex.Recording() || b.slider.Recording() || b.flashlight.Recording()
}

// Active returns the family currently recording.
func (b *Batcher[H]) Active() (Kind, bool) {
	return b.active, b.hasActive
}

// Completed returns the buffers dumped since Begin in submission order. The slice is reused by the next Begin.
func (b *Batcher[H]) Completed() []Completed[H] {
	return b.completed
}

// UploadedBytes returns the number of bytes uploaded since Begin.
func (b *Batcher[H]) UploadedBytes() uint64 {
	return b.uploaded
}

// Created returns the number of backend buffers allocated across all families.
func (b *Batcher[H]) Created() int {
	return b.vertex.Created() + b.slider.Created() + b.flashlight.Created()
}

// Release hands every buffer owned by the batcher to fn. The batcher is empty afterwards.
func (b *Batcher[H]) Release(fn func(H)) {
	b.vertex.release(fn)
	b.slider.release(fn)
	b.flashlight.release(fn)
	b.completed = nil
	b.hasActive = false
}

func reserve[S Staging, H any](b *Batcher[H], q *Queue[S, H], req Usage, state State) (Reservation, error) {
	kind := q.staging.Kind()
	if capacity := q.staging.Capacity(); !req.Fits(capacity) {
		return Reservation{}, fmt.Errorf("%w: %s request %+v, capacity %+v", ErrExceedsCapacity, kind, req, capacity)
	}

	if b.hasActive && b.active != kind {
		b.Flush()
	}
	b.active, b.hasActive = kind, true

	if q.needsRotation(req, state) {
		dump(b, q)
	}
	start := q.reserve(req, state)

	return Reservation{
		kind:       kind,
		generation: q.generation,
		start:      start,
		count:      req,
	}, nil
}

func dump[S Staging, H any](b *Batcher[H], q *Queue[S, H]) {
	c, bytes, ok := q.dump()
	if !ok {
		return
	}
	b.completed = append(b.completed, c)
	b.uploaded += bytes
}

func check(res Reservation, kind Kind, generation uint64, vertices, indices int) {
	if res.kind != kind {
		panic(fmt.Sprintf("batch: %s reservation committed as %s", res.kind, kind))
	}
	if res.generation != generation {
		panic(fmt.Sprintf("batch: stale %s reservation (generation %d, buffer at %d)", kind, res.generation, generation))
	}
	if vertices != res.count.Vertices || indices != res.count.Indices {
		panic(fmt.Sprintf("batch: %s commit with %d vertices, %d indices; reserved %d, %d",
			kind, vertices, indices, res.count.Vertices, res.count.Indices))
	}
}

func rebase(dst, indices []uint32, base uint32) {
	for i, idx := range indices {
		dst[i] = idx + base
	}
}
