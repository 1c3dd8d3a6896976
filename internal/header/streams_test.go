package header

import (
	"bytes"
	"encoding/binary"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/sevenzip/internal/format"
)

// streamsInfoBytes builds a one-folder streams-info section body. All values
// in these fixtures fit a single varint byte.
func streamsInfoBytes(codecID []byte, packSize, unpackSize byte, extra ...byte) []byte {
	b := []byte{
		format.IDPackInfo, 0x00, 0x01, format.IDSize, packSize, format.IDEnd,
		format.IDUnpackInfo, format.IDFolder, 0x01, 0x00,
		0x01, byte(len(codecID)),
	}
	b = append(b, codecID...)
	b = append(b, format.IDCodersUnpackSize, unpackSize, format.IDEnd)
	b = append(b, extra...)
	return append(b, format.IDEnd)
}

func TestParseStreamsInfoSingleCopyFolder(t *testing.T) {
	t.Parallel()

	si, err := ParseStreamsInfo(format.NewReader(streamsInfoBytes([]byte{0x00}, 16, 16)))
	require.NoError(t, err)

	assert.Equal(t, uint64(0), si.PackPos)
	assert.Equal(t, []uint64{16}, si.PackSizes)
	require.Len(t, si.Folders, 1)
	assert.Equal(t, format.MethodCopy, si.Folders[0].Coder.MethodID)
	assert.Equal(t, uint64(16), si.Folders[0].UnpackSize)
	assert.Equal(t, []int{1}, si.NumStreams)
	assert.Equal(t, [][]uint64{{16}}, si.StreamSizes)
}

func TestParseStreamsInfoSubStreams(t *testing.T) {
	t.Parallel()

	// Two streams sharing a 35-byte folder: sizes 10 and an inferred 25.
	data := streamsInfoBytes([]byte{0x00}, 35, 35,
		format.IDSubStreamsInfo, format.IDNumUnpackStream, 0x02,
		format.IDSize, 0x0A, format.IDEnd,
	)
	si, err := ParseStreamsInfo(format.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, []int{2}, si.NumStreams)
	assert.Equal(t, [][]uint64{{10, 25}}, si.StreamSizes)
}

func TestParseStreamsInfoSubStreamOversized(t *testing.T) {
	t.Parallel()

	// Declared stream of 40 bytes in a 35-byte folder.
	data := streamsInfoBytes([]byte{0x00}, 35, 35,
		format.IDSubStreamsInfo, format.IDNumUnpackStream, 0x02,
		format.IDSize, 0x28, format.IDEnd,
	)
	_, err := ParseStreamsInfo(format.NewReader(data))
	assert.ErrorIs(t, err, format.ErrSizeMismatch)
}

func TestParseStreamsInfoRejectsBindPairs(t *testing.T) {
	t.Parallel()

	data := []byte{
		format.IDPackInfo, 0x00, 0x02, format.IDSize, 8, 8, format.IDEnd,
		format.IDUnpackInfo, format.IDFolder, 0x01, 0x00,
		0x02, // two coders
	}
	_, err := ParseStreamsInfo(format.NewReader(data))
	assert.ErrorIs(t, err, format.ErrUnsupportedCodec)
}

func TestParseStreamsInfoRejectsUnknownCodec(t *testing.T) {
	t.Parallel()

	// LZMA2's method id, a single byte 0x21.
	_, err := ParseStreamsInfo(format.NewReader(streamsInfoBytes([]byte{0x21}, 8, 8)))
	assert.ErrorIs(t, err, format.ErrUnsupportedCodec)
}

func TestParseStreamsInfoRejectsMultiStreamCoder(t *testing.T) {
	t.Parallel()

	data := []byte{
		format.IDPackInfo, 0x00, 0x01, format.IDSize, 8, format.IDEnd,
		format.IDUnpackInfo, format.IDFolder, 0x01, 0x00,
		0x01, 0x11, 0x00, // complex flag set, copy id
		0x02, 0x01, // two input streams
	}
	_, err := ParseStreamsInfo(format.NewReader(data))
	assert.ErrorIs(t, err, format.ErrUnsupportedCodec)
}

func TestParseStreamsInfoMissingPackSizes(t *testing.T) {
	t.Parallel()

	data := []byte{format.IDPackInfo, 0x00, 0x01, format.IDEnd}
	_, err := ParseStreamsInfo(format.NewReader(data))
	assert.ErrorIs(t, err, format.ErrUnsupportedSection)
}

func TestParseStreamsInfoUnknownTag(t *testing.T) {
	t.Parallel()

	_, err := ParseStreamsInfo(format.NewReader([]byte{format.IDComment}))
	assert.ErrorIs(t, err, format.ErrUnsupportedSection)
}

func TestParseStreamsInfoPackFolderMismatch(t *testing.T) {
	t.Parallel()

	data := []byte{
		format.IDPackInfo, 0x00, 0x02, format.IDSize, 8, 8, format.IDEnd,
		format.IDUnpackInfo, format.IDFolder, 0x01, 0x00,
		0x01, 0x01, 0x00,
		format.IDCodersUnpackSize, 16, format.IDEnd,
		format.IDEnd,
	}
	_, err := ParseStreamsInfo(format.NewReader(data))
	assert.ErrorIs(t, err, format.ErrSizeMismatch)
}

func TestParseStreamsInfoTruncated(t *testing.T) {
	t.Parallel()

	full := streamsInfoBytes([]byte{0x00}, 16, 16)
	for n := 1; n < len(full); n++ {
		_, err := ParseStreamsInfo(format.NewReader(full[:n]))
		require.Error(t, err, "prefix of %d bytes", n)
	}
}

// utf16Names encodes null-terminated UTF-16LE name data for fixtures.
func utf16Names(names ...string) []byte {
	var buf bytes.Buffer
	for _, name := range names {
		for _, u := range utf16.Encode([]rune(name)) {
			var pair [2]byte
			binary.LittleEndian.PutUint16(pair[:], u)
			buf.Write(pair[:])
		}
		buf.Write([]byte{0, 0})
	}
	return buf.Bytes()
}
