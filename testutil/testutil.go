// Package testutil builds synthetic 7z archives in memory for tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"
	"testing"
	"unicode/utf16"

	"github.com/ulikunitz/xz/lzma"
)

// Property and method identifiers, duplicated here so the builder cannot
// accidentally depend on the code under test.
const (
	idEnd              = 0x00
	idHeader           = 0x01
	idMainStreamsInfo  = 0x04
	idFilesInfo        = 0x05
	idPackInfo         = 0x06
	idUnpackInfo       = 0x07
	idSubStreamsInfo   = 0x08
	idSize             = 0x09
	idFolder           = 0x0B
	idCodersUnpackSize = 0x0C
	idNumUnpackStream  = 0x0D
	idEmptyStream      = 0x0E
	idEmptyFile        = 0x0F
	idName             = 0x11
	idEncodedHeader    = 0x17
)

// File describes one entry to place in a synthetic archive. Entries with
// data are packed into a single solid folder in order; zero-byte files and
// directories become empty streams.
type File struct {
	Name string
	Data []byte
	Dir  bool
}

type config struct {
	lzma          bool
	encodedHeader bool
	codecID       []byte
}

// Option configures BuildArchive.
type Option func(*config)

// WithLZMA compresses the solid folder with LZMA instead of Copy.
func WithLZMA() Option {
	return func(c *config) {
		c.lzma = true
	}
}

// WithEncodedHeader stores the header LZMA-compressed.
func WithEncodedHeader() Option {
	return func(c *config) {
		c.encodedHeader = true
	}
}

// WithCodecID overrides the coder method id bytes written for the folder,
// for exercising unsupported-codec rejection. The folder data is written
// uncompressed.
func WithCodecID(id []byte) Option {
	return func(c *config) {
		c.codecID = id
	}
}

// BuildArchive assembles a complete 7z archive containing files.
func BuildArchive(t testing.TB, files []File, opts ...Option) []byte {
	t.Helper()
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	var solid bytes.Buffer
	var streamSizes []uint64
	for _, f := range files {
		if f.Dir || len(f.Data) == 0 {
			continue
		}
		solid.Write(f.Data)
		streamSizes = append(streamSizes, uint64(len(f.Data)))
	}

	var packed, props []byte
	var codecID []byte
	switch {
	case cfg.codecID != nil:
		packed, props, codecID = solid.Bytes(), nil, cfg.codecID
	case cfg.lzma:
		packed, props = compressLZMA(t, solid.Bytes())
		codecID = []byte{0x03, 0x01, 0x01}
	default:
		packed, props, codecID = solid.Bytes(), nil, []byte{0x00}
	}

	header := buildHeader(files, streamSizes, uint64(solid.Len()), uint64(len(packed)), codecID, props)

	packArea := packed
	if cfg.encodedHeader {
		hdrPacked, hdrProps := compressLZMA(t, header)
		descriptor := buildEncodedDescriptor(uint64(len(packed)), uint64(len(hdrPacked)), uint64(len(header)), hdrProps)
		packArea = append(append([]byte{}, packed...), hdrPacked...)
		header = descriptor
	}

	return assemble(packArea, header)
}

// assemble writes the signature, start header, pack area and header bytes.
func assemble(packArea, header []byte) []byte {
	var out bytes.Buffer
	out.Write([]byte{'7', 'z', 0xBC, 0xAF, 0x27, 0x1C})
	out.Write([]byte{0, 4})

	tail := make([]byte, 20)
	binary.LittleEndian.PutUint64(tail[0:], uint64(len(packArea)))
	binary.LittleEndian.PutUint64(tail[8:], uint64(len(header)))
	binary.LittleEndian.PutUint32(tail[16:], crc32.ChecksumIEEE(header))

	var startCRC [4]byte
	binary.LittleEndian.PutUint32(startCRC[:], crc32.ChecksumIEEE(tail))
	out.Write(startCRC[:])
	out.Write(tail)
	out.Write(packArea)
	out.Write(header)
	return out.Bytes()
}

func buildHeader(files []File, streamSizes []uint64, unpackSize, packSize uint64, codecID, props []byte) []byte {
	var h bytes.Buffer
	h.WriteByte(idHeader)

	if len(streamSizes) > 0 {
		h.WriteByte(idMainStreamsInfo)
		writeStreamsInfo(&h, 0, packSize, unpackSize, codecID, props)
		if len(streamSizes) > 1 {
			h.WriteByte(idSubStreamsInfo)
			h.WriteByte(idNumUnpackStream)
			writeNumber(&h, uint64(len(streamSizes)))
			h.WriteByte(idSize)
			for _, s := range streamSizes[:len(streamSizes)-1] {
				writeNumber(&h, s)
			}
			h.WriteByte(idEnd)
		}
		h.WriteByte(idEnd)
	}

	writeFilesInfo(&h, files)
	h.WriteByte(idEnd)
	return h.Bytes()
}

// writeStreamsInfo emits PackInfo and UnpackInfo for a single one-coder
// folder. The caller appends SubStreamsInfo and the section end marker.
func writeStreamsInfo(h *bytes.Buffer, packPos, packSize, unpackSize uint64, codecID, props []byte) {
	h.WriteByte(idPackInfo)
	writeNumber(h, packPos)
	writeNumber(h, 1)
	h.WriteByte(idSize)
	writeNumber(h, packSize)
	h.WriteByte(idEnd)

	h.WriteByte(idUnpackInfo)
	h.WriteByte(idFolder)
	writeNumber(h, 1)
	h.WriteByte(0) // not external
	writeNumber(h, 1)
	flags := byte(len(codecID))
	if len(props) > 0 {
		flags |= 0x20
	}
	h.WriteByte(flags)
	h.Write(codecID)
	if len(props) > 0 {
		writeNumber(h, uint64(len(props)))
		h.Write(props)
	}
	h.WriteByte(idCodersUnpackSize)
	writeNumber(h, unpackSize)
	h.WriteByte(idEnd)
}

// buildEncodedDescriptor emits the EncodedHeader streams descriptor for a
// header stored LZMA-compressed at packPos within the data area.
func buildEncodedDescriptor(packPos, packSize, unpackSize uint64, props []byte) []byte {
	var h bytes.Buffer
	h.WriteByte(idEncodedHeader)
	writeStreamsInfo(&h, packPos, packSize, unpackSize, []byte{0x03, 0x01, 0x01}, props)
	h.WriteByte(idEnd)
	return h.Bytes()
}

func writeFilesInfo(h *bytes.Buffer, files []File) {
	h.WriteByte(idFilesInfo)
	writeNumber(h, uint64(len(files)))

	emptyStream := make([]bool, len(files))
	var emptyFile []bool
	anyEmpty := false
	for i, f := range files {
		if f.Dir || len(f.Data) == 0 {
			emptyStream[i] = true
			anyEmpty = true
			emptyFile = append(emptyFile, !f.Dir)
		}
	}
	if anyEmpty {
		writeProperty(h, idEmptyStream, packBits(emptyStream))
		anyEmptyFile := false
		for _, b := range emptyFile {
			if b {
				anyEmptyFile = true
			}
		}
		if anyEmptyFile {
			writeProperty(h, idEmptyFile, packBits(emptyFile))
		}
	}

	var names bytes.Buffer
	names.WriteByte(0) // inline, not external
	for _, f := range files {
		for _, u := range utf16.Encode([]rune(f.Name)) {
			var pair [2]byte
			binary.LittleEndian.PutUint16(pair[:], u)
			names.Write(pair[:])
		}
		names.Write([]byte{0, 0})
	}
	writeProperty(h, idName, names.Bytes())

	h.WriteByte(idEnd)
}

// writeProperty emits one tag/length/value property block.
func writeProperty(h *bytes.Buffer, id byte, data []byte) {
	h.WriteByte(id)
	writeNumber(h, uint64(len(data)))
	h.Write(data)
}

// writeNumber encodes the 7z variable-length integer.
func writeNumber(h *bytes.Buffer, value uint64) {
	var firstByte byte
	mask := byte(0x80)
	var i int
	for i = 0; i < 8; i++ {
		if value < uint64(1)<<(7*(i+1)) {
			firstByte |= byte(value >> (8 * i))
			break
		}
		firstByte |= mask
		mask >>= 1
	}
	h.WriteByte(firstByte)
	for ; i > 0; i-- {
		h.WriteByte(byte(value))
		value >>= 8
	}
}

// packBits packs booleans MSB-first.
func packBits(bits []bool) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, b := range bits {
		if b {
			out[i/8] |= 0x80 >> (i % 8)
		}
	}
	return out
}

// compressLZMA compresses data and splits the classic .lzma container into
// the 5 coder property bytes and the raw stream, the way 7z stores them.
func compressLZMA(t testing.TB, data []byte) (stream, props []byte) {
	t.Helper()
	var buf bytes.Buffer
	w, err := lzma.NewWriter(&buf)
	if err != nil {
		t.Fatalf("lzma.NewWriter: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("lzma write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("lzma close: %v", err)
	}
	raw := buf.Bytes()
	// Classic layout: 5 property bytes, 8 size bytes, then the stream.
	return raw[13:], raw[:5]
}

// MockByteSource implements a simple in-memory byte source for tests.
type MockByteSource struct {
	data []byte
}

// NewMockByteSource returns a byte source backed by the provided data.
func NewMockByteSource(data []byte) *MockByteSource {
	return &MockByteSource{data: data}
}

// ReadAt implements io.ReaderAt semantics over the backing slice.
func (m *MockByteSource) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if off+int64(n) >= int64(len(m.data)) && n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Size returns the total size of the backing data.
func (m *MockByteSource) Size() int64 {
	return int64(len(m.data))
}
