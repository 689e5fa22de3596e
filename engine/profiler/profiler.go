// Package profiler logs frame rate, render statistics and memory usage at a fixed interval.
package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy2d/engine/atlas"
	"github.com/Carmen-Shannon/oxy2d/engine/log"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer"
)

var logger = log.New("profiler")

// Report is one interval's worth of statistics.
type Report struct {
	FPS float64
	// Frame is the sum of the renderer statistics over the interval.
	Frame renderer.FrameStats
	// DrawsPerFrame is the mean number of draw calls per frame.
	DrawsPerFrame float64
	// AtlasEntries and AtlasOccupancy describe the atlas at the end of the interval. Occupancy is the
	// used fraction of all layers.
	AtlasEntries   int
	AtlasOccupancy float64
	HeapMB         float64
	AllocRateMB    float64
	GCCount        uint32
	MaxPauseUs     uint64
}

// Profiler tracks frame rate, render and memory statistics.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	frameCount     int
	frame          renderer.FrameStats
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	now            func() time.Time
}

// NewProfiler creates a new Profiler.
//
// Parameters:
//   - interval: how often statistics are logged, one second if not positive
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(interval time.Duration) *Profiler {
	if interval <= 0 {
		interval = time.Second
	}
	p := &Profiler{
		updateInterval: interval,
		now:            time.Now,
	}
	p.lastTime = p.now()
	return p
}

// Tick should be called once per presented frame with that frame's statistics.
// Logs a report when the update interval has elapsed.
//
// Parameters:
//   - frame: the statistics of the frame just rendered
//   - atlasStats: the current atlas occupancy
//
// Returns:
//   - Report: the logged report, zero if none was logged
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick(frame renderer.FrameStats, atlasStats atlas.Stats) (Report, bool) {
	p.frameCount++
	p.frame.Add(frame)

	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return Report{}, false
	}

	rep := Report{
		FPS:           float64(p.frameCount) / elapsed.Seconds(),
		Frame:         p.frame,
		DrawsPerFrame: float64(p.frame.DrawCalls) / float64(p.frameCount),
		AtlasEntries:  atlasStats.Entries,
	}
	rep.AtlasOccupancy = occupancy(atlasStats)

	runtime.ReadMemStats(&p.memStats)
	rep.HeapMB = float64(p.memStats.Alloc) / 1024 / 1024
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	rep.AllocRateMB = float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of the last 256 GC pauses.
	gcCount := p.memStats.NumGC
	startIdx := p.lastGCCount
	if gcCount-startIdx > 256 {
		startIdx = gcCount - 256
	}
	for i := startIdx; i < gcCount; i++ {
		rep.MaxPauseUs = max(rep.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
	}
	rep.GCCount = gcCount

	logger.Infof("FPS: %.2f | Draws/frame: %.1f | Pipelines: %d | Scissors: %d | Skipped: %d | Buffers: %d | Upload: %.2f MB | Atlas: %d entries, %.1f%% | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (max: %d µs)",
		rep.FPS, rep.DrawsPerFrame, p.frame.PipelineSwitches, p.frame.ScissorChanges, p.frame.SkippedDraws,
		p.frame.BuffersCreated, float64(p.frame.UploadedBytes)/1024/1024,
		rep.AtlasEntries, rep.AtlasOccupancy*100, rep.HeapMB, rep.AllocRateMB, gcCount, rep.MaxPauseUs)

	p.frameCount = 0
	p.frame = renderer.FrameStats{}
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return rep, true
}

func occupancy(s atlas.Stats) float64 {
	if s.LayerTexels == 0 || len(s.UsedTexels) == 0 {
		return 0
	}
	var used uint64
	for _, u := range s.UsedTexels {
		used += u
	}
	return float64(used) / float64(s.LayerTexels*uint64(len(s.UsedTexels)))
}
