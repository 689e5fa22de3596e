// Package atlas packs images into a fixed number of square texture layers.
//
// Space is handed out with a shelf packer: each layer is split into horizontal shelves, each shelf
// into slots. Freed slots stay on their shelf and are reused by later inserts, so freeing and
// re-inserting an image of the same size lands in the same region.
package atlas

import (
	"fmt"
)

// Default atlas settings.
const (
	// DefaultSize is the width and height of one layer in texels.
	DefaultSize = 4096
	// DefaultLayers is the number of layers in the texture array.
	DefaultLayers = 4
	// DefaultPadding is the empty margin kept around every entry to avoid bilinear bleed.
	DefaultPadding = 2
)

// TextureReference locates one image inside the atlas. The zero value is the empty "no texture" reference.
type TextureReference struct {
	// Layer is the texture array layer holding the image.
	Layer uint32
	// X and Y are the top-left texel of the image, padding excluded.
	X, Y uint32
	// Width and Height are the image size in texels.
	Width, Height uint32
	// UV holds the normalized corners as u0, v0, u1, v1.
	UV [4]float32
}

// IsEmpty reports whether the reference covers no texels.
func (r TextureReference) IsEmpty() bool {
	return r.Width == 0 || r.Height == 0
}

func (r TextureReference) String() string {
	if r.IsEmpty() {
		return "TextureReference(empty)"
	}
	return fmt.Sprintf("TextureReference(layer %d, %d,%d %dx%d)", r.Layer, r.X, r.Y, r.Width, r.Height)
}

type slot struct {
	x     uint32
	width uint32 // padded
	used  bool
}

type shelf struct {
	y      uint32
	height uint32 // padded
	nextX  uint32
	slots  []slot
}

type layer struct {
	shelves []*shelf
	used    uint64
	entries int
}

// Atlas allocates regions across a fixed set of layers. It is not safe for concurrent use; the
// renderer owns it exclusively.
type Atlas struct {
	size    uint32
	padding uint32
	layers  []*layer
}

// Stats summarizes atlas occupancy.
type Stats struct {
	// Entries is the number of live references across all layers.
	Entries int
	// UsedTexels is the padded area in use per layer.
	UsedTexels []uint64
	// LayerTexels is the area of one layer.
	LayerTexels uint64
}

// New creates an empty atlas.
//
// Parameters:
//   - size: width and height of each layer in texels
//   - layers: number of layers (at least 1)
//   - padding: margin kept free on every side of each entry
//
// Returns:
//   - *Atlas: the empty atlas
func New(size, layers, padding uint32) *Atlas {
	if layers == 0 {
		layers = 1
	}
	a := &Atlas{
		size:    size,
		padding: padding,
		layers:  make([]*layer, layers),
	}
	for i := range a.layers {
		a.layers[i] = &layer{}
	}
	return a
}

// Size returns the edge length of one layer.
func (a *Atlas) Size() uint32 {
	return a.size
}

// Layers returns the number of layers.
func (a *Atlas) Layers() uint32 {
	return uint32(len(a.layers))
}

// Padding returns the margin kept around each entry.
func (a *Atlas) Padding() uint32 {
	return a.padding
}

// TryInsert reserves space for a width x height image.
// A zero width or height yields an empty reference without consuming space.
//
// Parameters:
//   - width, height: the image size in texels
//
// Returns:
//   - TextureReference: the reserved region, or an empty reference
//   - bool: false if no layer has room
func (a *Atlas) TryInsert(width, height uint32) (TextureReference, bool) {
	if width == 0 || height == 0 {
		return TextureReference{}, true
	}
	pw := uint64(width) + 2*uint64(a.padding)
	ph := uint64(height) + 2*uint64(a.padding)
	if pw > uint64(a.size) || ph > uint64(a.size) {
		return TextureReference{}, false
	}

	for i, l := range a.layers {
		if x, y, ok := a.place(l, uint32(pw), uint32(ph)); ok {
			l.used += pw * ph
			l.entries++
			return a.reference(uint32(i), x+a.padding, y+a.padding, width, height), true
		}
	}
	return TextureReference{}, false
}

// RemoveEntry returns the space held by ref to the layer it came from. The caller is responsible
// for clearing the texels on the GPU.
//
// Parameters:
//   - ref: a reference previously returned by TryInsert
//
// Returns:
//   - bool: false if ref is empty or does not match a live entry
func (a *Atlas) RemoveEntry(ref TextureReference) bool {
	if ref.IsEmpty() || int(ref.Layer) >= len(a.layers) || ref.X < a.padding || ref.Y < a.padding {
		return false
	}
	l := a.layers[ref.Layer]
	x, y := ref.X-a.padding, ref.Y-a.padding

	for si, s := range l.shelves {
		if s.y != y {
			continue
		}
		for i := range s.slots {
			if s.slots[i].x != x || !s.slots[i].used {
				continue
			}
			s.slots[i].used = false
			l.used -= uint64(s.slots[i].width) * uint64(ref.Height+2*a.padding)
			l.entries--
			s.coalesce(i)
			s.trim()
			if si == len(l.shelves)-1 {
				l.dropTrailingShelves()
			}
			return true
		}
		return false
	}
	return false
}

// Stats returns current occupancy.
func (a *Atlas) Stats() Stats {
	st := Stats{
		UsedTexels:  make([]uint64, len(a.layers)),
		LayerTexels: uint64(a.size) * uint64(a.size),
	}
	for i, l := range a.layers {
		st.UsedTexels[i] = l.used
		st.Entries += l.entries
	}
	return st
}

func (a *Atlas) reference(layerIdx, x, y, w, h uint32) TextureReference {
	s := float32(a.size)
	return TextureReference{
		Layer:  layerIdx,
		X:      x,
		Y:      y,
		Width:  w,
		Height: h,
		UV: [4]float32{
			float32(x) / s,
			float32(y) / s,
			float32(x+w) / s,
			float32(y+h) / s,
		},
	}
}

// place finds room for a padded pw x ph box in one layer. Freed slots are tried first, then the
// open end of a shelf already tall enough, then growing the bottom shelf, then a new shelf under the
// last one.
func (a *Atlas) place(l *layer, pw, ph uint32) (uint32, uint32, bool) {
	var (
		best      *shelf
		bestSlot  = -1
		bestWaste = ^uint64(0)
	)
	for _, s := range l.shelves {
		if s.height < ph {
			continue
		}
		for i, sl := range s.slots {
			if sl.used || sl.width < pw {
				continue
			}
			waste := uint64(sl.width-pw)*uint64(s.height) + uint64(s.height-ph)*uint64(pw)
			if waste < bestWaste {
				best, bestSlot, bestWaste = s, i, waste
			}
		}
	}
	if best != nil {
		return best.takeSlot(bestSlot, pw), best.y, true
	}

	last := len(l.shelves) - 1
	var grow *shelf
	best, bestWaste = nil, ^uint64(0)
	for i, s := range l.shelves {
		if s.nextX+pw > a.size {
			continue
		}
		if s.height >= ph {
			if waste := uint64(s.height - ph); waste < bestWaste {
				best, bestWaste = s, waste
			}
			continue
		}
		// The bottom shelf may grow as long as it stays inside the layer.
		if i == last && s.y+ph <= a.size {
			grow = s
		}
	}
	if best == nil && grow != nil {
		grow.height = ph
		best = grow
	}
	if best != nil {
		return best.append(pw), best.y, true
	}

	var y uint32
	if last >= 0 {
		y = l.shelves[last].y + l.shelves[last].height
	}
	if y+ph > a.size {
		return 0, 0, false
	}
	s := &shelf{y: y, height: ph}
	l.shelves = append(l.shelves, s)
	return s.append(pw), y, true
}

func (s *shelf) append(pw uint32) uint32 {
	x := s.nextX
	s.slots = append(s.slots, slot{x: x, width: pw, used: true})
	s.nextX += pw
	return x
}

// takeSlot claims the free slot at i, splitting off any remainder as a new free slot.
func (s *shelf) takeSlot(i int, pw uint32) uint32 {
	sl := s.slots[i]
	s.slots[i] = slot{x: sl.x, width: pw, used: true}
	if rest := sl.width - pw; rest > 0 {
		s.slots = append(s.slots, slot{})
		copy(s.slots[i+2:], s.slots[i+1:])
		s.slots[i+1] = slot{x: sl.x + pw, width: rest}
	}
	return sl.x
}

// coalesce merges the free slot at i with free neighbours.
func (s *shelf) coalesce(i int) {
	if i+1 < len(s.slots) && !s.slots[i+1].used {
		s.slots[i].width += s.slots[i+1].width
		s.slots = append(s.slots[:i+1], s.slots[i+2:]...)
	}
	if i > 0 && !s.slots[i-1].used {
		s.slots[i-1].width += s.slots[i].width
		s.slots = append(s.slots[:i], s.slots[i+1:]...)
	}
}

// trim drops free slots at the open end so nextX rewinds to the last used slot.
func (s *shelf) trim() {
	for len(s.slots) > 0 && !s.slots[len(s.slots)-1].used {
		s.slots = s.slots[:len(s.slots)-1]
	}
	if len(s.slots) == 0 {
		s.nextX = 0
		return
	}
	end := s.slots[len(s.slots)-1]
	s.nextX = end.x + end.width
}

func (l *layer) dropTrailingShelves() {
	for len(l.shelves) > 0 && len(l.shelves[len(l.shelves)-1].slots) == 0 {
		l.shelves = l.shelves[:len(l.shelves)-1]
	}
}
