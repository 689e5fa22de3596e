package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy2d/common"
	"github.com/Carmen-Shannon/oxy2d/engine/atlas"
)

func (r *renderer) LoadTextureBytes(encoded []byte) (atlas.TextureReference, error) {
	tex, err := r.loader.Decode(encoded)
	if err != nil {
		return atlas.TextureReference{}, err
	}
	return r.upload(tex)
}

func (r *renderer) LoadTextureRGBA(pixels []byte, width, height uint32) (atlas.TextureReference, error) {
	tex := common.TextureStagingData{Pixels: pixels, Width: width, Height: height}
	if !tex.Valid() {
		return atlas.TextureReference{}, fmt.Errorf("%w: %d bytes for a %dx%d RGBA texture", ErrDecodeFailed, len(pixels), width, height)
	}
	return r.upload(tex)
}

func (r *renderer) LoadTextureFile(path string) (atlas.TextureReference, error) {
	tex, err := r.loader.Load(path)
	if err != nil {
		return atlas.TextureReference{}, err
	}
	return r.upload(tex)
}

func (r *renderer) FreeTexture(ref atlas.TextureReference) {
	if ref.IsEmpty() {
		return
	}
	if !r.atlas.RemoveEntry(ref) {
		logger.Warningf("FreeTexture: %s is not allocated", ref)
		return
	}
	r.clearRegion(ref)
}

// upload places tex in the atlas.
func (r *renderer) upload(tex common.TextureStagingData) (atlas.TextureReference, error) {
	ref, ok := r.atlas.TryInsert(tex.Width, tex.Height)
	if !ok {
		return atlas.TextureReference{}, fmt.Errorf("%w for %dx%d", ErrNoAtlasSpace, tex.Width, tex.Height)
	}
	if ref.IsEmpty() {
		return ref, nil
	}
	r.backend.WriteAtlas(ref.Layer, ref.X, ref.Y, tex)
	return ref, nil
}

// clearRegion zeroes an entry together with its padding so the next occupant does not sample stale
// pixels at its edges.
func (r *renderer) clearRegion(ref atlas.TextureReference) {
	pad := r.atlas.Padding()
	w, h := ref.Width+2*pad, ref.Height+2*pad
	r.backend.WriteAtlas(ref.Layer, ref.X-pad, ref.Y-pad, common.TextureStagingData{
		Pixels: make([]byte, uint64(w)*uint64(h)*4),
		Width:  w,
		Height: h,
	})
}
