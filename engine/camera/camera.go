// Package camera maps a 2D world onto the surface with pan, zoom and rotation.
package camera

import (
	"math"
	"sync"

	"github.com/gogpu/gg"
)

type cameraImpl struct {
	mu *sync.Mutex

	// position is the world point shown at the viewport center
	position [2]float64
	zoom     float64
	rotation float64

	minZoom   float64
	maxZoom   float64
	zoomSpeed float64

	viewportW float64
	viewportH float64

	matrix gg.Matrix
}

// Camera defines the interface for a 2D camera.
// The camera holds a world-space position, zoom and rotation and produces the gg.Matrix that draw calls
// take as their transform. All methods are safe for concurrent use.
type Camera interface {
	// Position returns the world point at the center of the viewport.
	//
	// Returns:
	//   - x, y: world-space position
	Position() (x, y float64)

	// SetPosition centers the viewport on a world point.
	//
	// Parameters:
	//   - x, y: world-space position
	SetPosition(x, y float64)

	// Zoom returns the current scale factor. 1 draws world units as pixels.
	//
	// Returns:
	//   - float64: the zoom factor
	Zoom() float64

	// SetZoom sets the scale factor, clamped to the zoom limits.
	//
	// Parameters:
	//   - zoom: the zoom factor
	SetZoom(zoom float64)

	// ZoomAt scales by one zoom speed step per unit of delta while keeping the world point under the
	// given screen position fixed. Positive delta zooms in.
	//
	// Parameters:
	//   - delta: scroll amount
	//   - sx, sy: the anchor in surface pixels
	ZoomAt(delta, sx, sy float64)

	// Rotation returns the camera rotation in radians.
	//
	// Returns:
	//   - float64: rotation in radians
	Rotation() float64

	// SetRotation sets the camera rotation. The world turns the opposite way on screen.
	//
	// Parameters:
	//   - radians: rotation in radians
	SetRotation(radians float64)

	// Pan moves the view by a screen-space offset, so that dragging the world by (dx, dy) pixels keeps it
	// under the cursor at any zoom or rotation.
	//
	// Parameters:
	//   - dx, dy: offset in surface pixels
	Pan(dx, dy float64)

	// SetViewport sets the surface size the camera centers on. Call it whenever the surface is resized.
	//
	// Parameters:
	//   - width, height: surface size in pixels
	SetViewport(width, height uint32)

	// Matrix returns the world-to-screen transform.
	//
	// Returns:
	//   - gg.Matrix: the transform to pass to draw calls
	Matrix() gg.Matrix

	// ScreenToWorld converts a surface position to world space.
	//
	// Parameters:
	//   - sx, sy: surface position in pixels
	//
	// Returns:
	//   - x, y: world-space position
	ScreenToWorld(sx, sy float64) (x, y float64)

	// WorldToScreen converts a world position to surface pixels.
	//
	// Parameters:
	//   - x, y: world-space position
	//
	// Returns:
	//   - sx, sy: surface position in pixels
	WorldToScreen(x, y float64) (sx, sy float64)

	// Reset restores position, zoom and rotation to identity: world units map to pixels with the world
	// origin at the viewport center.
	Reset()
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new camera with identity zoom centered on the world origin.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:        &sync.Mutex{},
		zoom:      1,
		minZoom:   0.1,
		maxZoom:   10,
		zoomSpeed: 0.1,
	}

	for _, option := range options {
		option(c)
	}

	c.zoom = c.clampZoom(c.zoom)
	c.updateMatrix()
	return c
}

func (c *cameraImpl) Position() (float64, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position[0], c.position[1]
}

func (c *cameraImpl) SetPosition(x, y float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = [2]float64{x, y}
	c.updateMatrix()
}

func (c *cameraImpl) Zoom() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.zoom
}

func (c *cameraImpl) SetZoom(zoom float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zoom = c.clampZoom(zoom)
	c.updateMatrix()
}

func (c *cameraImpl) ZoomAt(delta, sx, sy float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	wx, wy := c.screenToWorld(sx, sy)
	c.zoom = c.clampZoom(c.zoom * math.Pow(1+c.zoomSpeed, delta))
	c.updateMatrix()

	// shift so the anchor maps back onto the same pixel
	a := c.matrix.TransformPoint(gg.Pt(wx, wy))
	c.position[0], c.position[1] = c.moveBy(a.X-sx, a.Y-sy)
	c.updateMatrix()
}

func (c *cameraImpl) Rotation() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rotation
}

func (c *cameraImpl) SetRotation(radians float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rotation = radians
	c.updateMatrix()
}

func (c *cameraImpl) Pan(dx, dy float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position[0], c.position[1] = c.moveBy(-dx, -dy)
	c.updateMatrix()
}

func (c *cameraImpl) SetViewport(width, height uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewportW, c.viewportH = float64(width), float64(height)
	c.updateMatrix()
}

func (c *cameraImpl) Matrix() gg.Matrix {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.matrix
}

func (c *cameraImpl) ScreenToWorld(sx, sy float64) (float64, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.screenToWorld(sx, sy)
}

func (c *cameraImpl) WorldToScreen(x, y float64) (float64, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.matrix.TransformPoint(gg.Pt(x, y))
	return p.X, p.Y
}

func (c *cameraImpl) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = [2]float64{}
	c.zoom = c.clampZoom(1)
	c.rotation = 0
	c.updateMatrix()
}

// --- internal helpers ---

// updateMatrix recomputes the world-to-screen transform: translate the position to the origin, scale,
// rotate, then move the origin to the viewport center.
// Caller must hold the mutex.
func (c *cameraImpl) updateMatrix() {
	c.matrix = gg.Translate(c.viewportW/2, c.viewportH/2).
		Multiply(gg.Rotate(-c.rotation)).
		Multiply(gg.Scale(c.zoom, c.zoom)).
		Multiply(gg.Translate(-c.position[0], -c.position[1]))
}

// screenToWorld inverts the current matrix.
// Caller must hold the mutex.
func (c *cameraImpl) screenToWorld(sx, sy float64) (float64, float64) {
	p := c.matrix.Invert().TransformPoint(gg.Pt(sx, sy))
	return p.X, p.Y
}

// moveBy returns the position shifted by a screen-space offset.
// Caller must hold the mutex.
func (c *cameraImpl) moveBy(dx, dy float64) (float64, float64) {
	cos, sin := math.Cos(c.rotation), math.Sin(c.rotation)
	wx := (dx*cos - dy*sin) / c.zoom
	wy := (dx*sin + dy*cos) / c.zoom
	return c.position[0] + wx, c.position[1] + wy
}

// clampZoom restricts zoom to the configured limits.
// Caller must hold the mutex.
func (c *cameraImpl) clampZoom(zoom float64) float64 {
	if math.IsNaN(zoom) || zoom <= 0 {
		return c.minZoom
	}
	return math.Min(math.Max(zoom, c.minZoom), c.maxZoom)
}
