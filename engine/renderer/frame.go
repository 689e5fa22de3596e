package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy2d/common"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer/batch"
)

// frameState tracks where the renderer is within a frame. Transitions run
// idle -> recording -> flushed -> dispatched -> idle; anything else is a caller bug.
type frameState int

const (
	frameIdle frameState = iota
	frameRecording
	frameFlushed
	frameDispatched
)

func (s frameState) String() string {
	switch s {
	case frameIdle:
		return "idle"
	case frameRecording:
		return "recording"
	case frameFlushed:
		return "flushed"
	case frameDispatched:
		return "dispatched"
	default:
		return fmt.Sprintf("frameState(%d)", int(s))
	}
}

// FrameStats counts what the last frame sent to the GPU.
type FrameStats struct {
	// CompletedBuffers is the number of buffers dumped during the frame.
	CompletedBuffers int
	// BuffersCreated is the number of GPU buffer sets allocated since the renderer started.
	BuffersCreated int
	// DrawCalls is the number of indexed draws issued.
	DrawCalls int
	// PipelineSwitches counts pipeline binds.
	PipelineSwitches int
	// ScissorChanges counts scissor updates.
	ScissorChanges int
	// SkippedDraws counts buffers dropped because their scissor clamped to nothing.
	SkippedDraws int
	// UploadedBytes is the total size of the buffer uploads.
	UploadedBytes uint64
}

// Add accumulates o into s.
//
// Parameters:
//   - o: the stats to add
func (s *FrameStats) Add(o FrameStats) {
	s.CompletedBuffers += o.CompletedBuffers
	s.BuffersCreated = max(s.BuffersCreated, o.BuffersCreated)
	s.DrawCalls += o.DrawCalls
	s.PipelineSwitches += o.PipelineSwitches
	s.ScissorChanges += o.ScissorChanges
	s.SkippedDraws += o.SkippedDraws
	s.UploadedBytes += o.UploadedBytes
}

type pipelineKey struct {
	kind batch.Kind
	mode common.BlendMode
}

// dispatch draws completed buffers in submission order. The scissor is only set when it changes and the
// pipeline only when the kind or blend mode changes. The target size bounds the scissor.
func dispatch(pass Pass, completed []batch.Completed[GPUBuffer], width, height uint32, stats *FrameStats) {
	var (
		requested pipelineKey
		hasBound  bool

		scissor    common.Scissor
		hasScissor bool
		skip       bool
	)

	for _, c := range completed {
		if !hasScissor || c.State.Scissor != scissor {
			scissor, hasScissor = c.State.Scissor, true
			x, y, w, h, ok := clampScissor(scissor, width, height)
			skip = !ok
			if ok {
				pass.SetScissor(x, y, w, h)
				stats.ScissorChanges++
			}
		}
		if skip {
			stats.SkippedDraws++
			continue
		}

		key := pipelineKey{kind: c.Kind, mode: c.State.Blend}
		if !hasBound || key != requested {
			requested = key
			if !pass.SetPipeline(key.kind, key.mode) {
				logger.Errorf("no %s pipeline for blend mode %s; falling back to %s", key.kind, key.mode, common.BlendNone)
				key.mode = common.BlendNone
				if !pass.SetPipeline(key.kind, key.mode) {
					logger.Errorf("no %s pipeline for blend mode %s; dropping buffer", key.kind, key.mode)
					hasBound = false
					stats.SkippedDraws++
					continue
				}
			}
			hasBound = true
			stats.PipelineSwitches++
		}

		pass.Draw(c.Handle, c.Kind, uint32(c.Used.Indices))
		stats.DrawCalls++
	}
}
