package renderer

import (
	"errors"

	"github.com/Carmen-Shannon/oxy2d/engine/loader"
)

var (
	// ErrNoAtlasSpace is returned when no atlas layer has room for a texture.
	ErrNoAtlasSpace = errors.New("no atlas space")
	// ErrDecodeFailed is returned when texture data cannot be decoded.
	ErrDecodeFailed = loader.ErrDecodeFailed
	// ErrTextureTooLarge is returned when an image declares more pixels than the loader accepts.
	ErrTextureTooLarge = loader.ErrTooLarge
	// ErrSurfaceLost is returned when the surface is gone and must be recreated.
	ErrSurfaceLost = errors.New("surface lost")
	// ErrSurfaceOutdated is returned when the surface no longer matches the window and needs a Resize.
	ErrSurfaceOutdated = errors.New("surface outdated")
	// ErrNestedRenderTarget is returned when a render target is drawn from inside another one.
	ErrNestedRenderTarget = errors.New("nested render target")
)
