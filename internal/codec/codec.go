// Package codec decodes whole folder streams. The supported coders are Copy
// and LZMA; LZMA is a stateful stream codec, so a folder is always
// materialized in full and callers slice file ranges out of the result.
package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ulikunitz/xz/lzma"

	"github.com/meigma/sevenzip/internal/format"
	"github.com/meigma/sevenzip/internal/sizing"
)

// lzmaPropsSize is the fixed size of LZMA coder properties: one lclppb byte
// plus a 4-byte little-endian dictionary size.
const lzmaPropsSize = 5

// Decode decompresses one folder's packed bytes into exactly unpackSize
// output bytes using the coder identified by methodID.
func Decode(methodID uint64, props, packed []byte, unpackSize uint64) ([]byte, error) {
	switch methodID {
	case format.MethodCopy:
		return decodeCopy(packed, unpackSize)
	case format.MethodLZMA:
		return decodeLZMA(props, packed, unpackSize)
	default:
		return nil, fmt.Errorf("method %#x: %w", methodID, format.ErrUnsupportedCodec)
	}
}

func decodeCopy(packed []byte, unpackSize uint64) ([]byte, error) {
	if uint64(len(packed)) != unpackSize {
		return nil, fmt.Errorf("copy stream is %d bytes, folder declares %d: %w",
			len(packed), unpackSize, format.ErrCodec)
	}
	return packed, nil
}

// decodeLZMA wraps the raw folder stream in a classic .lzma header so the
// decoder knows the coder properties and the output size. 7z stores the
// 5 property bytes in the coder declaration and the output size in
// CodersUnpackSize, while the lzma package expects both at the front of the
// stream.
func decodeLZMA(props, packed []byte, unpackSize uint64) ([]byte, error) {
	if len(props) != lzmaPropsSize {
		return nil, fmt.Errorf("lzma properties are %d bytes, want %d: %w",
			len(props), lzmaPropsSize, format.ErrUnsupportedCodec)
	}
	size, err := sizing.ToInt(unpackSize, format.ErrSizeOverflow)
	if err != nil {
		return nil, err
	}

	header := make([]byte, lzmaPropsSize+8)
	copy(header, props)
	binary.LittleEndian.PutUint64(header[lzmaPropsSize:], unpackSize)

	dec, err := lzma.NewReader(io.MultiReader(bytes.NewReader(header), bytes.NewReader(packed)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", format.ErrCodec, err)
	}

	out := make([]byte, size)
	if _, err := io.ReadFull(dec, out); err != nil {
		return nil, fmt.Errorf("%w: %v", format.ErrCodec, err)
	}
	return out, nil
}
