package batch

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy2d/common"
)

type fakeBuffer struct {
	id       int
	kind     Kind
	capacity Usage
	uploads  int
	bytes    map[Resource]int
}

type fakeAllocator struct {
	buffers []*fakeBuffer
}

func (a *fakeAllocator) NewBuffer(kind Kind, capacity Usage) *fakeBuffer {
	buf := &fakeBuffer{id: len(a.buffers), kind: kind, capacity: capacity}
	a.buffers = append(a.buffers, buf)
	return buf
}

func (a *fakeAllocator) Upload(buf *fakeBuffer, regions []Region) {
	buf.uploads++
	buf.bytes = make(map[Resource]int)
	for _, r := range regions {
		buf.bytes[r.Resource] = len(r.Data)
	}
}

func newTestBatcher(caps Capacities) (*Batcher[*fakeBuffer], *fakeAllocator) {
	alloc := &fakeAllocator{}
	return NewBatcher[*fakeBuffer](alloc, caps), alloc
}

var unitQuad = struct {
	vertices []Vertex
	indices  []uint32
}{
	vertices: make([]Vertex, 4),
	indices:  []uint32{0, 1, 2, 2, 3, 0},
}

func drawQuad(t *testing.T, b *Batcher[*fakeBuffer], state State) Reservation {
	t.Helper()
	res, err := b.ReserveVertex(4, 6, state)
	if err != nil {
		t.Fatalf("unexpected reserve error: %v", err)
	}
	b.CommitVertex(res, unitQuad.vertices, unitQuad.indices)
	return res
}

func TestSingleStateWithinCapacityYieldsOneBuffer(t *testing.T) {
	b, _ := newTestBatcher(DefaultCapacities())
	b.Begin()

	state := State{Blend: common.BlendAlpha}
	for i := 0; i < 100; i++ {
		drawQuad(t, b, state)
	}
	b.Flush()

	if got := len(b.Completed()); got != 1 {
		t.Fatalf("expected 1 completed buffer; got %d", got)
	}
	c := b.Completed()[0]
	if c.Used.Vertices != 400 || c.Used.Indices != 600 {
		t.Fatalf("expected 400/600 used; got %d/%d", c.Used.Vertices, c.Used.Indices)
	}
	if c.State != state {
		t.Fatalf("expected state %v; got %v", state, c.State)
	}
}

func TestTransitionsYieldOneBufferPerSegment(t *testing.T) {
	caps := DefaultCapacities()
	caps.Vertex = Usage{Vertices: 40, Indices: 60}

	a := State{Blend: common.BlendAlpha}
	add := State{Blend: common.BlendAdditive}
	clip := State{Blend: common.BlendAlpha, Scissor: common.ScissorRect(common.Rect{X: 10, Y: 10, Width: 50, Height: 50})}

	specs := []struct {
		name  string
		draws []State
	}{
		{"blend change", []State{a, a, add, add, a}},
		{"scissor change", []State{a, clip, clip, a}},
		{"capacity", repeat(a, 25)},
		{"capacity and state", append(repeat(a, 12), append(repeat(add, 3), repeat(clip, 11)...)...)},
	}

	for _, spec := range specs {
		b, _ := newTestBatcher(caps)
		b.Begin()

		type segment struct {
			state State
			quads int
		}
		var model []segment
		for _, st := range spec.draws {
			drawQuad(t, b, st)
			n := len(model)
			if n == 0 || model[n-1].state != st || (model[n-1].quads+1)*4 > caps.Vertex.Vertices {
				model = append(model, segment{state: st})
				n++
			}
			model[n-1].quads++
		}
		b.Flush()

		got := b.Completed()
		if len(got) != len(model) {
			t.Fatalf("[%s] expected %d completed buffers; got %d", spec.name, len(model), len(got))
		}
		for i, c := range got {
			if c.State != model[i].state {
				t.Fatalf("[%s] buffer %d: expected state %v; got %v", spec.name, i, model[i].state, c.State)
			}
			if c.Used.Vertices != model[i].quads*4 || c.Used.Indices != model[i].quads*6 {
				t.Fatalf("[%s] buffer %d: expected %d quads; got %d vertices", spec.name, i, model[i].quads, c.Used.Vertices)
			}
		}
	}
}

func repeat(s State, n int) []State {
	out := make([]State, n)
	for i := range out {
		out[i] = s
	}
	return out
}

func TestFiveThousandRects(t *testing.T) {
	caps := DefaultCapacities()
	caps.Vertex = Usage{Vertices: 1024, Indices: 1536}
	b, _ := newTestBatcher(caps)
	b.Begin()

	const rects = 5000
	for i := 0; i < rects; i++ {
		drawQuad(t, b, State{})
	}
	b.Flush()

	want := (rects*4 + caps.Vertex.Vertices - 1) / caps.Vertex.Vertices
	got := b.Completed()
	if len(got) != want {
		t.Fatalf("expected %d completed buffers; got %d", want, len(got))
	}
	for i, c := range got[:len(got)-1] {
		if c.Used.Vertices != caps.Vertex.Vertices {
			t.Fatalf("expected buffer %d at full capacity; got %d vertices", i, c.Used.Vertices)
		}
	}
	if last := got[len(got)-1].Used.Vertices; last != rects*4-(want-1)*caps.Vertex.Vertices {
		t.Fatalf("expected last buffer to hold the remainder; got %d vertices", last)
	}
}

func TestUploadIsPartial(t *testing.T) {
	b, alloc := newTestBatcher(DefaultCapacities())
	b.Begin()
	drawQuad(t, b, State{})
	drawQuad(t, b, State{})
	b.Flush()

	buf := alloc.buffers[0]
	if buf.uploads != 1 {
		t.Fatalf("expected a single upload; got %d", buf.uploads)
	}
	if got, want := buf.bytes[ResourceVertices], 8*int(common.Stride[Vertex]()); got != want {
		t.Fatalf("expected %d vertex bytes; got %d", want, got)
	}
	if got := buf.bytes[ResourceIndices]; got != 12*4 {
		t.Fatalf("expected 48 index bytes; got %d", got)
	}
	if b.UploadedBytes() != uint64(8*common.Stride[Vertex]()+48) {
		t.Fatalf("expected uploaded byte count to match regions; got %d", b.UploadedBytes())
	}
}

func TestIndicesAreRebased(t *testing.T) {
	b, _ := newTestBatcher(DefaultCapacities())
	b.Begin()
	drawQuad(t, b, State{})
	second := drawQuad(t, b, State{})

	if second.Start().Vertices != 4 || second.Start().Indices != 6 {
		t.Fatalf("expected second quad at 4/6; got %+v", second.Start())
	}
	got := b.vertex.staging.Indices[6:12]
	want := []uint32{4, 5, 6, 6, 7, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected rebased indices %v; got %v", want, got)
		}
	}
}

func TestInterleavedFamiliesKeepOrder(t *testing.T) {
	b, _ := newTestBatcher(DefaultCapacities())
	b.Begin()

	drawQuad(t, b, State{})
	commitSlider(t, b, 2, 3)
	drawQuad(t, b, State{})
	res, err := b.ReserveFlashlight(State{Blend: common.BlendFlashlight})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b.CommitFlashlight(res, make([]FlashlightVertex, 4), []uint32{0, 1, 2, 2, 3, 0}, FlashlightData{})
	b.Flush()

	want := []Kind{KindVertex, KindSlider, KindVertex, KindFlashlight}
	got := b.Completed()
	if len(got) != len(want) {
		t.Fatalf("expected %d completed buffers; got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Kind != want[i] {
			t.Fatalf("expected buffer %d to be %s; got %s", i, want[i], got[i].Kind)
		}
	}
}

func commitSlider(t *testing.T, b *Batcher[*fakeBuffer], cells, segments int) Reservation {
	t.Helper()
	res, err := b.ReserveSlider(4, 6, cells, segments, State{Blend: common.BlendSlider})
	if err != nil {
		t.Fatalf("unexpected reserve error: %v", err)
	}
	cs := make([]GridCell, cells)
	for i := range cs {
		cs[i] = GridCell{Start: 0, Count: uint32(segments)}
	}
	b.CommitSlider(res, make([]SliderVertex, 4), []uint32{0, 1, 2, 2, 3, 0}, SliderData{Radius: 8}, cs, make([]LineSegment, segments))
	return res
}

func TestSliderAuxiliaryOffsets(t *testing.T) {
	b, _ := newTestBatcher(DefaultCapacities())
	b.Begin()

	commitSlider(t, b, 3, 5)
	commitSlider(t, b, 2, 4)

	s := b.slider.staging
	first, second := s.Objects[0], s.Objects[1]
	if first.CellOffset != 0 {
		t.Fatalf("expected first slider cells at 0; got %d", first.CellOffset)
	}
	if second.CellOffset != 3 {
		t.Fatalf("expected second slider cells past the first range at 3; got %d", second.CellOffset)
	}
	for i := 0; i < 3; i++ {
		if s.Cells[i].Start != 0 {
			t.Fatalf("expected first slider cell %d to start at segment 0; got %d", i, s.Cells[i].Start)
		}
	}
	for i := 3; i < 5; i++ {
		if s.Cells[i].Start < 5 {
			t.Fatalf("expected second slider cell %d to start past segment 5; got %d", i, s.Cells[i].Start)
		}
	}
	for i := 4; i < 8; i++ {
		if s.Vertices[i].Index != 1 {
			t.Fatalf("expected second slider vertex %d to use object 1; got %d", i, s.Vertices[i].Index)
		}
	}
}

func TestSliderRotatesWhenAnyResourceOverflows(t *testing.T) {
	caps := DefaultCapacities()
	caps.Slider = Usage{Vertices: 64, Indices: 96, Objects: 8, Cells: 10, Segments: 100}
	b, _ := newTestBatcher(caps)
	b.Begin()

	commitSlider(t, b, 6, 1)
	commitSlider(t, b, 6, 1)
	b.Flush()

	if got := len(b.Completed()); got != 2 {
		t.Fatalf("expected cell overflow to rotate into 2 buffers; got %d", got)
	}
	if got := b.Completed()[1].Used.Cells; got != 6 {
		t.Fatalf("expected second buffer to hold 6 cells; got %d", got)
	}
}

func TestExceedsCapacityIsAnError(t *testing.T) {
	b, _ := newTestBatcher(DefaultCapacities())
	b.Begin()

	_, err := b.ReserveVertex(5000, 6, State{})
	if !errors.Is(err, ErrExceedsCapacity) {
		t.Fatalf("expected ErrExceedsCapacity; got %v", err)
	}
	if b.Recording() {
		t.Fatal("expected a rejected reservation to leave no buffer recording")
	}
}

func TestStaleReservationPanics(t *testing.T) {
	specs := []struct {
		name   string
		commit func(b *Batcher[*fakeBuffer], res Reservation)
	}{
		{"after flush", func(b *Batcher[*fakeBuffer], res Reservation) {
			b.Flush()
			b.CommitVertex(res, unitQuad.vertices, unitQuad.indices)
		}},
		{"wrong length", func(b *Batcher[*fakeBuffer], res Reservation) {
			b.CommitVertex(res, unitQuad.vertices[:3], unitQuad.indices)
		}},
		{"wrong kind", func(b *Batcher[*fakeBuffer], res Reservation) {
			b.CommitFlashlight(res, make([]FlashlightVertex, 4), unitQuad.indices, FlashlightData{})
		}},
	}

	for _, spec := range specs {
		func() {
			b, _ := newTestBatcher(DefaultCapacities())
			b.Begin()
			res, _ := b.ReserveVertex(4, 6, State{})

			defer func() {
				if recover() == nil {
					t.Fatalf("[%s] expected commit to panic", spec.name)
				}
			}()
			spec.commit(b, res)
		}()
	}
}

func TestBuffersAreReusedAcrossFrames(t *testing.T) {
	caps := DefaultCapacities()
	caps.Vertex = Usage{Vertices: 8, Indices: 12}
	b, alloc := newTestBatcher(caps)

	for frame := 0; frame < 3; frame++ {
		b.Begin()
		for i := 0; i < 6; i++ {
			drawQuad(t, b, State{})
		}
		b.Flush()
		if got := len(b.Completed()); got != 3 {
			t.Fatalf("frame %d: expected 3 completed buffers; got %d", frame, got)
		}
	}
	if got := len(alloc.buffers); got != 3 {
		t.Fatalf("expected 3 buffers allocated over all frames; got %d", got)
	}
}

func TestBeginWhileRecordingPanics(t *testing.T) {
	b, _ := newTestBatcher(DefaultCapacities())
	b.Begin()
	drawQuad(t, b, State{})

	defer func() {
		if recover() == nil {
			t.Fatal("expected Begin to panic while a buffer is recording")
		}
	}()
	b.Begin()
}

func TestEmptyFlushEmitsNothing(t *testing.T) {
	b, _ := newTestBatcher(DefaultCapacities())
	b.Begin()
	b.Flush()
	res, _ := b.ReserveVertex(0, 0, State{})
	_ = res
	b.Flush()

	if got := len(b.Completed()); got != 0 {
		t.Fatalf("expected no completed buffers; got %d", got)
	}
}
