package gpu

const (
	// DefaultAtlasSize is the edge length of every atlas layer when none is configured.
	DefaultAtlasSize = 2048
	// DefaultAtlasLayers is the atlas layer count when none is configured.
	DefaultAtlasLayers = 4
)

type backendConfig struct {
	fallbackAdapter bool
	atlasSize       uint32
	atlasLayers     uint32
}

// BackendOption is a functional option applied to a Backend during construction via New.
type BackendOption func(*backendConfig)

// WithFallbackAdapter forces the software adapter. Useful on machines without a usable GPU driver.
//
// Parameters:
//   - force: whether to request the fallback adapter
//
// Returns:
//   - BackendOption: a function that applies the adapter option
func WithFallbackAdapter(force bool) BackendOption {
	return func(c *backendConfig) {
		c.fallbackAdapter = force
	}
}

// WithAtlas sets the dimensions of the atlas texture array. The renderer's allocator is sized from
// them through AtlasDimensions.
//
// Parameters:
//   - size: the edge length of every layer in pixels
//   - layers: the number of layers
//
// Returns:
//   - BackendOption: a function that applies the atlas option
func WithAtlas(size, layers uint32) BackendOption {
	return func(c *backendConfig) {
		c.atlasSize, c.atlasLayers = size, layers
	}
}
