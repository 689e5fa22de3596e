package renderer

import (
	"github.com/Carmen-Shannon/oxy2d/common"
	"github.com/Carmen-Shannon/oxy2d/engine/atlas"
)

// RenderTarget is an atlas texture whose contents are produced by drawing into it.
type RenderTarget struct {
	ref    atlas.TextureReference
	width  uint32
	height uint32
	clear  common.Color
}

// Texture returns the atlas region holding the target's pixels. It is empty once the target is freed.
//
// Returns:
//   - atlas.TextureReference: the region, drawable with DrawTexture
func (rt *RenderTarget) Texture() atlas.TextureReference {
	return rt.ref
}

// Size returns the target dimensions.
//
// Returns:
//   - uint32: the width in pixels
//   - uint32: the height in pixels
func (rt *RenderTarget) Size() (uint32, uint32) {
	return rt.width, rt.height
}

func (r *renderer) CreateRenderTarget(width, height uint32, clear common.Color, draw func(Renderer)) (*RenderTarget, bool) {
	if width == 0 || height == 0 {
		return nil, false
	}
	ref, ok := r.atlas.TryInsert(width, height)
	if !ok {
		logger.Warningf("no atlas space for a %dx%d render target", width, height)
		return nil, false
	}

	rt := &RenderTarget{ref: ref, width: width, height: height, clear: clear}
	if err := r.renderTarget(rt, draw); err != nil {
		logger.Errorf("render target %s: %v", ref, err)
		r.atlas.RemoveEntry(ref)
		r.clearRegion(ref)
		return nil, false
	}
	return rt, true
}

func (r *renderer) UpdateRenderTarget(rt *RenderTarget, draw func(Renderer)) bool {
	if rt == nil || rt.ref.IsEmpty() {
		return false
	}
	if err := r.renderTarget(rt, draw); err != nil {
		logger.Errorf("render target %s: %v", rt.ref, err)
		return false
	}
	return true
}

func (r *renderer) FreeRenderTarget(rt *RenderTarget) {
	if rt == nil {
		return
	}
	r.FreeTexture(rt.ref)
	rt.ref = atlas.TextureReference{}
}

// renderTarget runs draw against a private batcher and scissor stack with the target's projection,
// renders the result offscreen and copies it into the target's atlas region. The frame in progress, if
// any, is untouched.
func (r *renderer) renderTarget(rt *RenderTarget, draw func(Renderer)) error {
	if r.inTarget {
		return ErrNestedRenderTarget
	}

	saved := struct {
		scissors   *ScissorStack
		projection [16]float32
		w, h       uint32
	}{r.scissors, r.projection, r.targetW, r.targetH}

	r.batcher = r.targetBatcher
	r.batcher.Begin()
	r.scissors = &ScissorStack{}
	r.projection = common.ScreenProjection(rt.width, rt.height)
	r.targetW, r.targetH = rt.width, rt.height
	r.inTarget = true
	defer func() {
		r.batcher = r.mainBatcher
		r.scissors = saved.scissors
		r.projection = saved.projection
		r.targetW, r.targetH = saved.w, saved.h
		r.inTarget = false
	}()

	if draw != nil {
		draw(r)
	}
	r.batcher.Flush()

	tex, err := r.backend.NewTarget(rt.width, rt.height, FormatRGBA8)
	if err != nil {
		return err
	}
	defer tex.Release()

	pass, err := r.backend.BeginPass(tex, r.projection, rt.clear)
	if err != nil {
		return err
	}
	var stats FrameStats
	dispatch(pass, r.batcher.Completed(), rt.width, rt.height, &stats)
	if err := pass.End(); err != nil {
		return err
	}
	r.backend.CopyToAtlas(tex, rt.ref.Layer, rt.ref.X, rt.ref.Y)

	logger.Debugf("rendered target %s: %d draws", rt.ref, stats.DrawCalls)
	return nil
}
