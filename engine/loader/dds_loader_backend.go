package loader

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"

	"github.com/Carmen-Shannon/oxy2d/common"

	"github.com/mauserzjeh/dxt"
)

const (
	ddsHeaderSize = 128

	ddsPixelFormatAlphaPixels = 0x1
	ddsPixelFormatFourCC      = 0x4
	ddsPixelFormatRGB         = 0x40
)

var ddsMagic = []byte("DDS ")

// ddsLoaderBackend decodes the top mip level of DirectDraw Surface files: DXT1, DXT5 and uncompressed
// 32-bit RGB(A) with arbitrary 8-bit channel masks.
type ddsLoaderBackend struct {
	loader *loader
}

var _ loaderBackend = &ddsLoaderBackend{}

func newDDSLoaderBackend(l *loader) loaderBackend {
	return &ddsLoaderBackend{loader: l}
}

func (b *ddsLoaderBackend) Name() string {
	return "dds"
}

func (b *ddsLoaderBackend) Match(data []byte) bool {
	return bytes.HasPrefix(data, ddsMagic)
}

func (b *ddsLoaderBackend) Decode(data []byte) (common.TextureStagingData, error) {
	if len(data) < ddsHeaderSize {
		return common.TextureStagingData{}, errors.New("truncated header")
	}
	le := binary.LittleEndian
	height := le.Uint32(data[12:16])
	width := le.Uint32(data[16:20])
	flags := le.Uint32(data[80:84])
	fourCC := string(data[84:88])
	if width == 0 || height == 0 {
		return common.TextureStagingData{}, fmt.Errorf("invalid size %dx%d", width, height)
	}
	if err := b.loader.checkSize(width, height); err != nil {
		return common.TextureStagingData{}, err
	}
	body := data[ddsHeaderSize:]
	blocks := uint64((width+3)/4) * uint64((height+3)/4)

	var (
		pixels []byte
		err    error
	)
	switch {
	case flags&ddsPixelFormatFourCC != 0 && fourCC == "DXT1":
		if uint64(len(body)) < blocks*8 {
			return common.TextureStagingData{}, fmt.Errorf("DXT1 body has %d bytes; need %d", len(body), blocks*8)
		}
		pixels, err = dxt.DecodeDXT1(body, uint(width), uint(height))
	case flags&ddsPixelFormatFourCC != 0 && fourCC == "DXT5":
		if uint64(len(body)) < blocks*16 {
			return common.TextureStagingData{}, fmt.Errorf("DXT5 body has %d bytes; need %d", len(body), blocks*16)
		}
		pixels, err = dxt.DecodeDXT5(body, uint(width), uint(height))
	case flags&ddsPixelFormatRGB != 0 && le.Uint32(data[88:92]) == 32:
		masks := [4]uint32{le.Uint32(data[92:96]), le.Uint32(data[96:100]), le.Uint32(data[100:104]), 0}
		if flags&ddsPixelFormatAlphaPixels != 0 {
			masks[3] = le.Uint32(data[104:108])
		}
		pixels, err = decodeMasked(body, width, height, masks)
	case flags&ddsPixelFormatFourCC != 0:
		return common.TextureStagingData{}, fmt.Errorf("%w: fourCC %q", ErrUnsupportedFormat, fourCC)
	default:
		return common.TextureStagingData{}, fmt.Errorf("%w: pixel format flags %#x", ErrUnsupportedFormat, flags)
	}
	if err != nil {
		return common.TextureStagingData{}, err
	}
	return common.TextureStagingData{Pixels: pixels, Width: width, Height: height}, nil
}

// decodeMasked converts 32-bit pixels into RGBA using one 8-bit mask per channel. A zero alpha mask
// means the surface is opaque.
func decodeMasked(body []byte, width, height uint32, masks [4]uint32) ([]byte, error) {
	n := uint64(width) * uint64(height)
	if uint64(len(body)) < n*4 {
		return nil, fmt.Errorf("RGB body has %d bytes; need %d", len(body), n*4)
	}
	for i, m := range masks {
		if m == 0 && i == 3 {
			continue
		}
		if bits.OnesCount32(m) != 8 {
			return nil, fmt.Errorf("%w: channel %d mask %#08x", ErrUnsupportedFormat, i, m)
		}
	}

	out := make([]byte, n*4)
	for p := uint64(0); p < n; p++ {
		v := binary.LittleEndian.Uint32(body[p*4:])
		for c, m := range masks {
			if m == 0 {
				out[p*4+uint64(c)] = 0xFF
				continue
			}
			out[p*4+uint64(c)] = uint8((v & m) >> bits.TrailingZeros32(m))
		}
	}
	return out, nil
}
