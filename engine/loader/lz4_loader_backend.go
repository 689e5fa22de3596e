package loader

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy2d/common"

	"github.com/pierrec/lz4/v4"
)

// lz4Magic starts an LZ4 texture container: the magic, the little-endian uncompressed size, then either
// one LZ4 block or, when the payload length equals the size, the raw bytes.
var lz4Magic = []byte("LZ4B")

const lz4HeaderSize = 8

// lz4LoaderBackend unwraps an LZ4 container and hands the payload back to the loader for decoding.
type lz4LoaderBackend struct {
	loader *loader
}

var _ loaderBackend = &lz4LoaderBackend{}

func newLZ4LoaderBackend(l *loader) loaderBackend {
	return &lz4LoaderBackend{loader: l}
}

func (b *lz4LoaderBackend) Name() string {
	return "lz4"
}

func (b *lz4LoaderBackend) Match(data []byte) bool {
	return bytes.HasPrefix(data, lz4Magic)
}

func (b *lz4LoaderBackend) Decode(data []byte) (common.TextureStagingData, error) {
	if len(data) < lz4HeaderSize {
		return common.TextureStagingData{}, errors.New("truncated header")
	}
	size := binary.LittleEndian.Uint32(data[4:8])
	payload := data[lz4HeaderSize:]
	// The payload is an encoded image, which never expands past its raw pixel count.
	if uint64(size) > b.loader.maxPixels*4+1024 {
		return common.TextureStagingData{}, fmt.Errorf("%w: declared payload of %d bytes", ErrTooLarge, size)
	}

	raw := payload
	if uint32(len(payload)) != size {
		raw = make([]byte, size)
		n, err := lz4.UncompressBlock(payload, raw)
		if err != nil {
			return common.TextureStagingData{}, err
		}
		if n != int(size) {
			return common.TextureStagingData{}, fmt.Errorf("decompressed %d bytes; header says %d", n, size)
		}
	}
	if b.Match(raw) {
		return common.TextureStagingData{}, errors.New("nested container")
	}

	inner, err := b.loader.resolveBackend(raw)
	if err != nil {
		return common.TextureStagingData{}, err
	}
	return inner.Decode(raw)
}

// CompressLZ4 wraps encoded texture data in the LZ4 container Decode understands. Data that does not
// compress is stored raw.
//
// Parameters:
//   - data: the encoded texture
//
// Returns:
//   - []byte: the container
//   - error: error if compression fails
func CompressLZ4(data []byte) ([]byte, error) {
	block := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, block, nil)
	if err != nil {
		return nil, err
	}
	if n == 0 || n >= len(data) {
		block, n = data, len(data)
	}

	out := make([]byte, lz4HeaderSize+n)
	copy(out, lz4Magic)
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(data)))
	copy(out[lz4HeaderSize:], block[:n])
	return out, nil
}
