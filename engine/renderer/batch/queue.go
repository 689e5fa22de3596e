package batch

// Queue is the rotating buffer pool of one primitive family. At most one buffer is recording at a time;
// dumped buffers move to the completed list until the next frame hands them back to the pool.
type Queue[S Staging, H any] struct {
	staging S
	alloc   Allocator[H]

	recording H
	open      bool
	used      Usage
	state     State
	stateSet  bool

	// generation changes every time the recording buffer is dumped, invalidating older reservations.
	generation uint64

	completed []H
	pool      []H
	created   int
}

// NewQueue creates an empty queue writing through staging.
//
// Parameters:
//   - staging: the CPU cache, sized to the buffer capacity
//   - alloc: the allocator creating and filling backend buffers
//
// Returns:
//   - *Queue[S, H]: the queue
func NewQueue[S Staging, H any](staging S, alloc Allocator[H]) *Queue[S, H] {
	return &Queue[S, H]{
		staging: staging,
		alloc:   alloc,
	}
}

// Staging returns the queue's CPU cache.
func (q *Queue[S, H]) Staging() S {
	return q.staging
}

// Recording reports whether a buffer is open for writes.
func (q *Queue[S, H]) Recording() bool {
	return q.open
}

// Used returns the element counts written to the recording buffer.
func (q *Queue[S, H]) Used() Usage {
	return q.used
}

// Created returns the number of backend buffers this queue has allocated.
func (q *Queue[S, H]) Created() int {
	return q.created
}

// needsRotation reports whether the recording buffer cannot take req under state.
func (q *Queue[S, H]) needsRotation(req Usage, state State) bool {
	if !q.open {
		return false
	}
	if q.stateSet && q.state != state {
		return true
	}
	return !q.used.Add(req).Fits(q.staging.Capacity())
}

// reserve advances the used counters of the recording buffer, opening one if needed, and returns the
// start offsets of the reserved range.
func (q *Queue[S, H]) reserve(req Usage, state State) Usage {
	if !q.open {
		if n := len(q.pool); n > 0 {
			q.recording = q.pool[n-1]
			q.pool = q.pool[:n-1]
		} else {
			q.recording = q.alloc.NewBuffer(q.staging.Kind(), q.staging.Capacity())
			q.created++
		}
		q.open = true
		q.used = Usage{}
		q.stateSet = false
	}
	if !q.stateSet {
		q.state = state
		q.stateSet = true
	}
	start := q.used
	q.used = q.used.Add(req)
	return start
}

// dump uploads the recording buffer and closes it. An empty buffer goes straight back to the pool.
// The returned bool is false when nothing was uploaded.
func (q *Queue[S, H]) dump() (Completed[H], uint64, bool) {
	if !q.open {
		return Completed[H]{}, 0, false
	}
	q.open = false
	q.generation++

	if q.used.Vertices == 0 || q.used.Indices == 0 {
		q.pool = append(q.pool, q.recording)
		return Completed[H]{}, 0, false
	}

	regions := q.staging.Regions(q.used)
	var bytes uint64
	for _, r := range regions {
		bytes += uint64(len(r.Data))
	}
	q.alloc.Upload(q.recording, regions)
	q.completed = append(q.completed, q.recording)

	return Completed[H]{
		Kind:   q.staging.Kind(),
		Handle: q.recording,
		Used:   q.used,
		State:  q.state,
	}, bytes, true
}

// recycle returns every completed buffer to the pool.
func (q *Queue[S, H]) recycle() {
	q.pool = append(q.pool, q.completed...)
	clear(q.completed)
	q.completed = q.completed[:0]
}

// release hands every buffer the queue owns to fn and forgets them.
func (q *Queue[S, H]) release(fn func(H)) {
	if q.open {
		fn(q.recording)
		q.open = false
	}
	for _, h := range q.completed {
		fn(h)
	}
	for _, h := range q.pool {
		fn(h)
	}
	q.completed = nil
	q.pool = nil
	q.generation++
}
