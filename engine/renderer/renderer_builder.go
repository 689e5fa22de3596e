package renderer

import (
	"github.com/Carmen-Shannon/oxy2d/common"
	"github.com/Carmen-Shannon/oxy2d/engine/atlas"
	"github.com/Carmen-Shannon/oxy2d/engine/loader"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer/batch"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync, Uncapped or Mailbox)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.presentMode = mode
	}
}

// WithClearColor sets the color the surface is cleared to at the start of every frame.
// When not specified, the surface is cleared to transparent black.
//
// Parameters:
//   - c: the clear color
//
// Returns:
//   - RendererBuilderOption: a function that applies the clear color option to a renderer
func WithClearColor(c common.Color) RendererBuilderOption {
	return func(r *renderer) {
		r.clear = c
	}
}

// WithCapacities sets the per-buffer capacities of every batch family. Smaller buffers mean more draw
// calls; larger buffers mean larger uploads when a frame only uses a fraction of them.
//
// Parameters:
//   - caps: the capacities
//
// Returns:
//   - RendererBuilderOption: a function that applies the capacities option to a renderer
func WithCapacities(caps batch.Capacities) RendererBuilderOption {
	return func(r *renderer) {
		r.capacities = caps
	}
}

// WithAtlasPadding sets the transparent margin kept around every atlas entry to stop linear filtering
// from bleeding neighbouring textures together.
//
// Parameters:
//   - padding: the margin in pixels
//
// Returns:
//   - RendererBuilderOption: a function that applies the padding option to a renderer
func WithAtlasPadding(padding uint32) RendererBuilderOption {
	return func(r *renderer) {
		r.padding = padding
	}
}

// WithAtlas replaces the atlas allocator. The allocator must match the backend's atlas texture dimensions.
//
// Parameters:
//   - a: the atlas allocator
//
// Returns:
//   - RendererBuilderOption: a function that applies the atlas option to a renderer
func WithAtlas(a *atlas.Atlas) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingAtlas = a
	}
}

// WithLoader sets the texture loader used by LoadTextureBytes and LoadTextureFile.
//
// Parameters:
//   - l: the loader
//
// Returns:
//   - RendererBuilderOption: a function that applies the loader option to a renderer
func WithLoader(l loader.Loader) RendererBuilderOption {
	return func(r *renderer) {
		r.loader = l
	}
}

// WithScreenshotWorkers sets how many goroutines convert screenshot readbacks. When not specified, two
// workers are started.
//
// Parameters:
//   - n: the worker count, at least 1
//
// Returns:
//   - RendererBuilderOption: a function that applies the worker option to a renderer
func WithScreenshotWorkers(n int) RendererBuilderOption {
	return func(r *renderer) {
		r.workers = max(n, 1)
	}
}
