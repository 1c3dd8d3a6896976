package format

import (
	"encoding/binary"
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHeader(t *testing.T, major byte, offset, size uint64, goodCRC bool) []byte {
	t.Helper()
	b := make([]byte, StartHeaderSize)
	copy(b, Signature)
	b[6] = major
	b[7] = 4
	binary.LittleEndian.PutUint64(b[12:], offset)
	binary.LittleEndian.PutUint64(b[20:], size)
	crc := crc32.ChecksumIEEE(b[12:StartHeaderSize])
	if !goodCRC {
		crc++
	}
	binary.LittleEndian.PutUint32(b[8:], crc)
	return b
}

func TestParseStartHeader(t *testing.T) {
	t.Parallel()

	sh, err := ParseStartHeader(startHeader(t, 0, 100, 42, true))
	require.NoError(t, err)
	assert.Equal(t, uint64(100), sh.NextHeaderOffset)
	assert.Equal(t, uint64(42), sh.NextHeaderSize)
	assert.True(t, sh.CRCValid)
}

func TestParseStartHeaderBadCRCIsNonFatal(t *testing.T) {
	t.Parallel()

	sh, err := ParseStartHeader(startHeader(t, 0, 1, 2, false))
	require.NoError(t, err)
	assert.False(t, sh.CRCValid)
}

func TestParseStartHeaderRejectsGarbage(t *testing.T) {
	t.Parallel()

	b := startHeader(t, 0, 0, 0, true)
	b[0] = 'P'
	_, err := ParseStartHeader(b)
	assert.ErrorIs(t, err, ErrNotAnArchive)
}

func TestParseStartHeaderRejectsNewVersion(t *testing.T) {
	t.Parallel()

	_, err := ParseStartHeader(startHeader(t, 1, 0, 0, true))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestParseStartHeaderTruncated(t *testing.T) {
	t.Parallel()

	full := startHeader(t, 0, 0, 0, true)
	for _, n := range []int{0, 3, 6, 31} {
		_, err := ParseStartHeader(full[:n])
		assert.ErrorIs(t, err, ErrTruncated, "length %d", n)
	}
}
