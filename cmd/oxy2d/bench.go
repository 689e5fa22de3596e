package main

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/Carmen-Shannon/oxy2d/common"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer"
	"github.com/gogpu/gg"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli"
)

// benchResult accumulates the frame statistics of a bench run.
type benchResult struct {
	Frames  int
	Rects   int
	Elapsed time.Duration
	Total   renderer.FrameStats
	Peak    renderer.FrameStats
}

// RunBench renders frames against the headless backend and prints how they were batched.
func RunBench(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	frames, rects := ctx.Int("frames"), ctx.Int("rects")
	width, height := ctx.Int("width"), ctx.Int("height")
	if frames <= 0 || rects < 0 {
		return errors.New("frames must be positive and rects must not be negative")
	}
	if width <= 0 || height <= 0 {
		return errors.New("width and height must be positive")
	}

	backend := renderer.NewHeadlessBackend(cfg.HeadlessOptions()...)
	r := renderer.NewRenderer(backend, uint32(width), uint32(height), cfg.RendererOptions()...)
	defer r.Release()

	logger.Noticef("rendering %d frames of %d rects at %dx%d", frames, rects, width, height)
	pb := progressbar.Default(int64(frames))
	res, err := benchFrames(r, frames, rects, ctx.Bool("mixed"), func() { pb.Add(1) })
	pb.Finish()
	if err != nil {
		return err
	}

	displayBenchStats(res)
	return nil
}

// benchFrames draws frames of rects through r and sums the per-frame stats. Rectangles are laid out on a
// grid covering the frame so the scissor-free path is measured. When mixed is set, consecutive
// rectangles alternate between two blend modes.
func benchFrames(r renderer.Renderer, frames, rects int, mixed bool, onFrame func()) (benchResult, error) {
	w, h := r.Size()
	cols := max(int(w)/8, 1)
	modes := []common.BlendMode{common.BlendAlpha, common.BlendAdditive}
	colors := []common.Color{{0.9, 0.3, 0.2, 1}, {0.2, 0.6, 0.9, 0.8}, {0.3, 0.9, 0.4, 0.6}}

	res := benchResult{Frames: frames, Rects: rects}
	start := time.Now()
	for f := 0; f < frames; f++ {
		r.BeginRender()
		for i := 0; i < rects; i++ {
			rect := common.Rect{
				X:      float32((i%cols)*8) + float32(f%8),
				Y:      float32((i / cols * 8) % int(max(h, 1))),
				Width:  6,
				Height: 6,
			}
			mode := common.BlendAlpha
			if mixed {
				mode = modes[i%len(modes)]
			}
			if err := r.DrawRect(rect, renderer.Filled(colors[i%len(colors)]), gg.Identity(), mode); err != nil {
				return res, fmt.Errorf("frame %d rect %d: %w", f, i, err)
			}
		}
		if err := r.EndRender(); err != nil {
			return res, fmt.Errorf("frame %d: %w", f, err)
		}
		if err := r.Present(); err != nil {
			return res, fmt.Errorf("frame %d: %w", f, err)
		}

		stats := r.Stats()
		res.Total.CompletedBuffers += stats.CompletedBuffers
		res.Total.DrawCalls += stats.DrawCalls
		res.Total.PipelineSwitches += stats.PipelineSwitches
		res.Total.ScissorChanges += stats.ScissorChanges
		res.Total.SkippedDraws += stats.SkippedDraws
		res.Total.UploadedBytes += stats.UploadedBytes
		res.Total.BuffersCreated = stats.BuffersCreated
		res.Peak.DrawCalls = max(res.Peak.DrawCalls, stats.DrawCalls)
		res.Peak.UploadedBytes = max(res.Peak.UploadedBytes, stats.UploadedBytes)
		if onFrame != nil {
			onFrame()
		}
	}
	res.Elapsed = time.Since(start)
	return res, nil
}

func displayBenchStats(res benchResult) {
	perFrame := func(v float64) string {
		return fmt.Sprintf("%.1f", v/float64(max(res.Frames, 1)))
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Metric", "Per frame", "Peak", "Total"})
	table.Append([]string{"Draw calls", perFrame(float64(res.Total.DrawCalls)), fmt.Sprintf("%d", res.Peak.DrawCalls), fmt.Sprintf("%d", res.Total.DrawCalls)})
	table.Append([]string{"Completed buffers", perFrame(float64(res.Total.CompletedBuffers)), "", fmt.Sprintf("%d", res.Total.CompletedBuffers)})
	table.Append([]string{"Pipeline switches", perFrame(float64(res.Total.PipelineSwitches)), "", fmt.Sprintf("%d", res.Total.PipelineSwitches)})
	table.Append([]string{"Uploaded KiB", perFrame(float64(res.Total.UploadedBytes) / 1024), fmt.Sprintf("%.1f", float64(res.Peak.UploadedBytes)/1024), fmt.Sprintf("%.1f", float64(res.Total.UploadedBytes)/1024)})
	table.Append([]string{"Buffers allocated", "", "", fmt.Sprintf("%d", res.Total.BuffersCreated)})
	table.SetFooter([]string{"", "", "ELAPSED", res.Elapsed.Round(time.Millisecond).String()})

	table.Render()
	logger.Noticef("bench statistics for %d frames of %d rects\n%s", res.Frames, res.Rects, buf.String())
}
