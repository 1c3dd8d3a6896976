package format

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
		want uint64
	}{
		{"zero", []byte{0x00}, 0},
		{"seven bit max", []byte{0x7F}, 127},
		{"one extra byte", []byte{0x80, 0x80}, 128},
		{"one extra byte with high bits", []byte{0x81, 0x00}, 256},
		{"two extra bytes", []byte{0xC0, 0x00, 0x40}, 0x4000},
		{"eight extra bytes", []byte{0xFF, 1, 0, 0, 0, 0, 0, 0, 0}, 1},
		{"max uint64", []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, math.MaxUint64},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := NewReader(tt.data)
			got, err := r.ReadNumber()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, 0, r.Remaining())
		})
	}
}

func TestReadNumberTruncated(t *testing.T) {
	t.Parallel()

	for _, data := range [][]byte{{}, {0x80}, {0xFF, 1, 2, 3}} {
		r := NewReader(data)
		_, err := r.ReadNumber()
		assert.ErrorIs(t, err, ErrTruncated)
	}
}

func TestReadFixedLE(t *testing.T) {
	t.Parallel()

	r := NewReader([]byte{0x78, 0x56, 0x34, 0x12, 0xEF, 0xCD, 0xAB, 0x89, 0x67, 0x45, 0x23, 0x01})
	v32, err := r.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12345678), v32)

	v64, err := r.ReadUint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0123456789ABCDEF), v64)

	_, err = r.ReadUint32()
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestReadBitmapMSBFirst(t *testing.T) {
	t.Parallel()

	r := NewReader([]byte{0xA0})
	bits, err := r.ReadBitmap(3)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, true}, bits)
}

func TestReadBitmapSpansBytes(t *testing.T) {
	t.Parallel()

	r := NewReader([]byte{0x01, 0x80})
	bits, err := r.ReadBitmap(9)
	require.NoError(t, err)
	want := []bool{false, false, false, false, false, false, false, true, true}
	assert.Equal(t, want, bits)
}

func TestReadOptionalBitmap(t *testing.T) {
	t.Parallel()

	r := NewReader([]byte{0x01})
	bits, err := r.ReadOptionalBitmap(5)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true, true, true, true}, bits)

	r = NewReader([]byte{0x00, 0x40})
	bits, err = r.ReadOptionalBitmap(2)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true}, bits)
}

func TestSubIsBounded(t *testing.T) {
	t.Parallel()

	r := NewReader([]byte{1, 2, 3, 4})
	sub, err := r.Sub(2)
	require.NoError(t, err)
	assert.Equal(t, 2, sub.Remaining())
	assert.Equal(t, 2, r.Remaining())

	_, err = sub.ReadBytes(3)
	assert.ErrorIs(t, err, ErrTruncated)

	_, err = r.Sub(3)
	assert.ErrorIs(t, err, ErrTruncated)
}
