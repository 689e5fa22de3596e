package camera

type CameraBuilderOption func(*cameraImpl)

// WithPosition sets the world point the camera starts centered on.
//
// Parameters:
//   - x, y: world-space position
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's position
func WithPosition(x, y float64) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.position = [2]float64{x, y}
	}
}

// WithZoom sets the initial zoom factor. It is clamped to the zoom limits once all options are applied.
//
// Parameters:
//   - zoom: the zoom factor
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's zoom
func WithZoom(zoom float64) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.zoom = zoom
	}
}

// WithZoomLimits sets the smallest and largest zoom factor. Invalid limits are ignored.
//
// Parameters:
//   - minZoom: the smallest zoom, greater than zero
//   - maxZoom: the largest zoom, at least minZoom
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's zoom limits
func WithZoomLimits(minZoom, maxZoom float64) CameraBuilderOption {
	return func(c *cameraImpl) {
		if minZoom <= 0 || maxZoom < minZoom {
			return
		}
		c.minZoom, c.maxZoom = minZoom, maxZoom
	}
}

// WithZoomSpeed sets the fractional zoom change applied per unit of ZoomAt delta.
//
// Parameters:
//   - speed: the zoom step, e.g. 0.1 for 10% per scroll notch
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's zoom speed
func WithZoomSpeed(speed float64) CameraBuilderOption {
	return func(c *cameraImpl) {
		if speed > 0 {
			c.zoomSpeed = speed
		}
	}
}

// WithRotation sets the initial rotation.
//
// Parameters:
//   - radians: rotation in radians
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's rotation
func WithRotation(radians float64) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.rotation = radians
	}
}

// WithViewport sets the initial surface size.
//
// Parameters:
//   - width, height: surface size in pixels
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's viewport
func WithViewport(width, height uint32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.viewportW, c.viewportH = float64(width), float64(height)
	}
}
