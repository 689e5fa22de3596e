package loader

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithMaxPixels is an option builder that sets the largest texture, in pixels, Decode accepts.
// Oversized images are rejected with ErrTooLarge before their pixels are decoded.
//
// Parameters:
//   - n: the pixel limit; zero keeps the default
//
// Returns:
//   - LoaderBuilderOption: a function that applies the limit to a loader
func WithMaxPixels(n uint64) LoaderBuilderOption {
	return func(l *loader) {
		if n > 0 {
			l.maxPixels = n
		}
	}
}
