package loader

import (
	"fmt"
	"os"
	"sync"

	"github.com/Carmen-Shannon/oxy2d/common"
	"github.com/Carmen-Shannon/oxy2d/engine/log"
)

// DefaultMaxPixels caps decoded textures at 64 megapixels.
const DefaultMaxPixels = 64 << 20

var logger = log.New("loader")

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	cache map[string]common.TextureStagingData

	backends  []loaderBackend
	maxPixels uint64
}

// Loader decodes texture files into RGBA pixel data ready for atlas upload. The format is detected from
// the data itself, so names and extensions never matter. Textures loaded from disk are cached by path.
type Loader interface {
	// Load reads and decodes a texture file, caching the result by path.
	// If the file is already cached the cached pixels are returned.
	//
	// Parameters:
	//   - path: the file path to the texture
	//
	// Returns:
	//   - common.TextureStagingData: the decoded pixels
	//   - error: the read error, or ErrDecodeFailed wrapping the cause
	Load(path string) (common.TextureStagingData, error)

	// Decode converts encoded texture bytes into RGBA pixels without caching.
	//
	// Parameters:
	//   - data: the encoded texture (PNG, JPEG, GIF, BMP, WebP, DDS or an LZ4 container of one of these)
	//
	// Returns:
	//   - common.TextureStagingData: the decoded pixels
	//   - error: ErrDecodeFailed wrapping the cause
	Decode(data []byte) (common.TextureStagingData, error)

	// Get retrieves a cached texture by path.
	//
	// Parameters:
	//   - path: the cache key to look up
	//
	// Returns:
	//   - common.TextureStagingData: the cached pixels
	//   - bool: false if nothing is cached under path
	Get(path string) (common.TextureStagingData, bool)

	// Forget drops a texture from the cache.
	//
	// Parameters:
	//   - path: the cache key to drop
	Forget(path string)
}

var _ Loader = &loader{}

// NewLoader creates a new Loader with every built-in format backend and the options applied.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:        sync.RWMutex{},
		cache:     make(map[string]common.TextureStagingData),
		maxPixels: DefaultMaxPixels,
	}
	l.backends = []loaderBackend{
		newLZ4LoaderBackend(l),
		newDDSLoaderBackend(l),
		newImageLoaderBackend(l),
	}

	for _, option := range options {
		option(l)
	}
	return l
}

// Decode converts encoded texture bytes into RGBA pixels using a default Loader.
//
// Parameters:
//   - data: the encoded texture
//
// Returns:
//   - common.TextureStagingData: the decoded pixels
//   - error: ErrDecodeFailed wrapping the cause
func Decode(data []byte) (common.TextureStagingData, error) {
	return NewLoader().Decode(data)
}

func (l *loader) Load(path string) (common.TextureStagingData, error) {
	l.mu.RLock()
	if cached, ok := l.cache[path]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return common.TextureStagingData{}, err
	}

	tex, err := l.Decode(data)
	if err != nil {
		return common.TextureStagingData{}, fmt.Errorf("failed to load %s: %w", path, err)
	}

	l.mu.Lock()
	l.cache[path] = tex
	l.mu.Unlock()

	logger.Debugf("loaded %s (%dx%d)", path, tex.Width, tex.Height)
	return tex, nil
}

func (l *loader) Decode(data []byte) (common.TextureStagingData, error) {
	backend, err := l.resolveBackend(data)
	if err != nil {
		return common.TextureStagingData{}, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}

	tex, err := backend.Decode(data)
	if err != nil {
		return common.TextureStagingData{}, fmt.Errorf("%w: %s: %w", ErrDecodeFailed, backend.Name(), err)
	}
	if err := l.checkSize(tex.Width, tex.Height); err != nil {
		return common.TextureStagingData{}, fmt.Errorf("%w: %s: %w", ErrDecodeFailed, backend.Name(), err)
	}
	if !tex.Valid() {
		return common.TextureStagingData{}, fmt.Errorf("%w: %s: %d bytes for %dx%d", ErrDecodeFailed, backend.Name(), len(tex.Pixels), tex.Width, tex.Height)
	}
	return tex, nil
}

func (l *loader) Get(path string) (common.TextureStagingData, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	tex, ok := l.cache[path]
	return tex, ok
}

func (l *loader) Forget(path string) {
	l.mu.Lock()
	delete(l.cache, path)
	l.mu.Unlock()
}

// checkSize rejects dimensions whose pixel count exceeds maxPixels. Backends call it with header
// dimensions before allocating.
func (l *loader) checkSize(width, height uint32) error {
	if uint64(width)*uint64(height) > l.maxPixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooLarge, width, height, l.maxPixels)
	}
	return nil
}

// resolveBackend returns the first backend that recognizes data.
func (l *loader) resolveBackend(data []byte) (loaderBackend, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrUnsupportedFormat)
	}
	for _, b := range l.backends {
		if b.Match(data) {
			return b, nil
		}
	}
	return nil, ErrUnsupportedFormat
}
