package loader

import "errors"

var (
	// ErrDecodeFailed is returned when image data cannot be turned into RGBA pixels. The cause is wrapped.
	ErrDecodeFailed = errors.New("texture decode failed")
	// ErrUnsupportedFormat is returned when no backend recognizes the data.
	ErrUnsupportedFormat = errors.New("unsupported texture format")
	// ErrTooLarge is returned when a texture declares more pixels than the loader allows. It is reported
	// from the header, before any pixel memory is allocated.
	ErrTooLarge = errors.New("texture exceeds the pixel limit")
)
