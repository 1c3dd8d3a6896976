// Package format defines the 7z container's wire-level constants and the
// bounds-checked primitive readers the header parsers are built on.
package format

import (
	"bytes"
	"fmt"
	"hash/crc32"
)

// Signature is the 6-byte archive magic: '7' 'z' 0xBC 0xAF 0x27 0x1C.
var Signature = []byte{'7', 'z', 0xBC, 0xAF, 0x27, 0x1C}

const (
	// StartHeaderSize is the fixed size of the signature header block.
	StartHeaderSize = 32

	// MaxMajorVersion is the highest format major version this reader accepts.
	MaxMajorVersion = 0
)

// Property identifiers used by the header's tag/length/value sections.
const (
	IDEnd                   = 0x00
	IDHeader                = 0x01
	IDArchiveProperties     = 0x02
	IDAdditionalStreamsInfo = 0x03
	IDMainStreamsInfo       = 0x04
	IDFilesInfo             = 0x05
	IDPackInfo              = 0x06
	IDUnpackInfo            = 0x07
	IDSubStreamsInfo        = 0x08
	IDSize                  = 0x09
	IDCRC                   = 0x0A
	IDFolder                = 0x0B
	IDCodersUnpackSize      = 0x0C
	IDNumUnpackStream       = 0x0D
	IDEmptyStream           = 0x0E
	IDEmptyFile             = 0x0F
	IDAnti                  = 0x10
	IDName                  = 0x11
	IDCTime                 = 0x12
	IDATime                 = 0x13
	IDMTime                 = 0x14
	IDWinAttrib             = 0x15
	IDComment               = 0x16
	IDEncodedHeader         = 0x17
	IDStartPos              = 0x18
	IDDummy                 = 0x19
)

// Supported coder method identifiers. Method ids are stored big-endian with
// a declared byte length; all other ids are rejected at parse time.
const (
	MethodCopy uint64 = 0x00
	MethodLZMA uint64 = 0x030101
)

// StartHeader is the fixed 32-byte block at the front of every archive. It
// locates the real header: the absolute header position is
// StartHeaderSize + NextHeaderOffset.
type StartHeader struct {
	NextHeaderOffset uint64
	NextHeaderSize   uint64
	NextHeaderCRC    uint32

	// CRCValid reports whether the start-header CRC at [8:12) matched the
	// checksum of bytes [12:32). Some producers emit incorrect CRCs, so a
	// mismatch is surfaced here rather than failing the open.
	CRCValid bool
}

// IsSignature reports whether b begins with the 7z magic.
func IsSignature(b []byte) bool {
	return len(b) >= len(Signature) && bytes.Equal(b[:len(Signature)], Signature)
}

// ParseStartHeader validates the signature and version bytes and extracts
// the next-header location from a 32-byte start header block.
func ParseStartHeader(b []byte) (StartHeader, error) {
	if len(b) < len(Signature) {
		return StartHeader{}, ErrTruncated
	}
	if !IsSignature(b) {
		return StartHeader{}, ErrNotAnArchive
	}
	if len(b) < StartHeaderSize {
		return StartHeader{}, ErrTruncated
	}
	if b[6] > MaxMajorVersion {
		return StartHeader{}, fmt.Errorf("version %d.%d: %w", b[6], b[7], ErrUnsupportedVersion)
	}

	r := NewReader(b[8:StartHeaderSize])
	storedCRC, _ := r.ReadUint32()
	offset, _ := r.ReadUint64()
	size, _ := r.ReadUint64()
	headerCRC, _ := r.ReadUint32()

	return StartHeader{
		NextHeaderOffset: offset,
		NextHeaderSize:   size,
		NextHeaderCRC:    headerCRC,
		CRCValid:         storedCRC == crc32.ChecksumIEEE(b[12:StartHeaderSize]),
	}, nil
}

// CRC computes the format's CRC32 (IEEE polynomial) over data. The table is
// precomputed package state inside hash/crc32, so concurrent opens share it
// without synchronization.
func CRC(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}
