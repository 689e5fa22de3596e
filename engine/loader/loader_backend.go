package loader

import "github.com/Carmen-Shannon/oxy2d/common"

// loaderBackend decodes one family of texture formats into tightly packed RGBA.
// Concrete implementations (ddsLoaderBackend, lz4LoaderBackend, imageLoaderBackend) sniff the data
// and handle the format-specific details.
type loaderBackend interface {
	// Name identifies the format in log and error messages.
	//
	// Returns:
	//   - string: the format name
	Name() string

	// Match reports whether data looks like this backend's format.
	//
	// Parameters:
	//   - data: the encoded texture
	//
	// Returns:
	//   - bool: true if the backend should decode data
	Match(data []byte) bool

	// Decode converts data into RGBA pixels.
	//
	// Parameters:
	//   - data: the encoded texture
	//
	// Returns:
	//   - common.TextureStagingData: the decoded pixels
	//   - error: error if the data is malformed
	Decode(data []byte) (common.TextureStagingData, error)
}
