package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz/lzma"

	"github.com/meigma/sevenzip/internal/format"
)

func compressLZMA(t *testing.T, data []byte) (stream, props []byte) {
	t.Helper()
	var buf bytes.Buffer
	w, err := lzma.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	raw := buf.Bytes()
	return raw[13:], raw[:5]
}

func TestDecodeCopy(t *testing.T) {
	t.Parallel()

	data := []byte("id,name\n1,Alice\n")
	out, err := Decode(format.MethodCopy, nil, data, uint64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestDecodeCopySizeMismatch(t *testing.T) {
	t.Parallel()

	_, err := Decode(format.MethodCopy, nil, []byte("abc"), 4)
	assert.ErrorIs(t, err, format.ErrCodec)
}

func TestDecodeLZMARoundTrip(t *testing.T) {
	t.Parallel()

	plain := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog\n"), 64)
	stream, props := compressLZMA(t, plain)

	out, err := Decode(format.MethodLZMA, props, stream, uint64(len(plain)))
	require.NoError(t, err)
	assert.Equal(t, plain, out)
}

func TestDecodeLZMACorruptStream(t *testing.T) {
	t.Parallel()

	plain := bytes.Repeat([]byte("abcdefgh"), 128)
	stream, props := compressLZMA(t, plain)
	stream = stream[:len(stream)/2]

	_, err := Decode(format.MethodLZMA, props, stream, uint64(len(plain)))
	assert.ErrorIs(t, err, format.ErrCodec)
}

func TestDecodeLZMABadProps(t *testing.T) {
	t.Parallel()

	_, err := Decode(format.MethodLZMA, []byte{1, 2}, []byte("x"), 1)
	assert.ErrorIs(t, err, format.ErrUnsupportedCodec)
}

func TestDecodeUnknownMethod(t *testing.T) {
	t.Parallel()

	_, err := Decode(0x21, nil, []byte("x"), 1)
	assert.ErrorIs(t, err, format.ErrUnsupportedCodec)
}
