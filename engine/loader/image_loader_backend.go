package loader

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/Carmen-Shannon/oxy2d/common"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// imageLoaderBackend decodes every format registered with the image package: PNG, JPEG, GIF, BMP and WebP.
type imageLoaderBackend struct {
	loader *loader
}

var _ loaderBackend = &imageLoaderBackend{}

func newImageLoaderBackend(l *loader) loaderBackend {
	return &imageLoaderBackend{loader: l}
}

func (b *imageLoaderBackend) Name() string {
	return "image"
}

func (b *imageLoaderBackend) Match(data []byte) bool {
	_, _, err := image.DecodeConfig(bytes.NewReader(data))
	return err == nil
}

func (b *imageLoaderBackend) Decode(data []byte) (common.TextureStagingData, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return common.TextureStagingData{}, err
	}
	if err := b.loader.checkSize(uint32(cfg.Width), uint32(cfg.Height)); err != nil {
		return common.TextureStagingData{}, err
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return common.TextureStagingData{}, err
	}
	logger.Debugf("decoded %s image %v", format, img.Bounds().Size())
	return toStaging(img), nil
}

// toStaging converts any image to tightly packed straight-alpha RGBA.
func toStaging(img image.Image) common.TextureStagingData {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	dst, ok := img.(*image.NRGBA)
	if !ok || dst.Stride != w*4 || bounds.Min != (image.Point{}) {
		dst = image.NewNRGBA(image.Rect(0, 0, w, h))
		xdraw.Draw(dst, dst.Bounds(), img, bounds.Min, xdraw.Src)
	}
	return common.TextureStagingData{
		Pixels: dst.Pix,
		Width:  uint32(w),
		Height: uint32(h),
	}
}
