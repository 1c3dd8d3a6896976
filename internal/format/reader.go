package format

import (
	"fmt"
	"math"
)

// Reader is a bounds-checked cursor over header bytes. Archive bytes are
// untrusted input; every read is validated against the buffer end and a
// failed read reports ErrTruncated instead of panicking.
type Reader struct {
	data []byte
	pos  int
}

// NewReader creates a cursor over data starting at offset zero.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// ReadByte reads a single byte.
func (r *Reader) ReadByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, ErrTruncated
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadBytes reads n bytes and returns a subslice of the underlying buffer.
// The result must be treated as immutable.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrSizeOverflow
	}
	if r.Remaining() < n {
		return nil, ErrTruncated
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int) error {
	if n < 0 {
		return ErrSizeOverflow
	}
	if r.Remaining() < n {
		return ErrTruncated
	}
	r.pos += n
	return nil
}

// SkipSize advances the cursor by a size read as uint64.
func (r *Reader) SkipSize(n uint64) error {
	if n > uint64(r.Remaining()) {
		return ErrTruncated
	}
	r.pos += int(n)
	return nil
}

// ReadNumber decodes the format's variable-length integer. The count of
// leading one bits in the first byte gives the number of extra little-endian
// bytes (0-8); the remaining low bits of the first byte supply the value's
// most significant bits.
func (r *Reader) ReadNumber() (uint64, error) {
	first, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	var value uint64
	mask := byte(0x80)
	for i := 0; i < 8; i++ {
		if first&mask == 0 {
			value |= uint64(first&(mask-1)) << (8 * i)
			return value, nil
		}
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		value |= uint64(b) << (8 * i)
		mask >>= 1
	}
	return value, nil
}

// ReadNumberInt decodes a varint that must fit in an int, for counts used to
// size slices.
func (r *Reader) ReadNumberInt() (int, error) {
	v, err := r.ReadNumber()
	if err != nil {
		return 0, err
	}
	if v > uint64(math.MaxInt) {
		return 0, fmt.Errorf("count %d: %w", v, ErrSizeOverflow)
	}
	return int(v), nil
}

// ReadUint32 reads a fixed-width little-endian uint32.
func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

// ReadUint64 reads a fixed-width little-endian uint64.
func (r *Reader) ReadUint64() (uint64, error) {
	b, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
		uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56, nil
}

// ReadBitmap reads n bits packed MSB-first into ceil(n/8) bytes.
func (r *Reader) ReadBitmap(n int) ([]bool, error) {
	raw, err := r.ReadBytes((n + 7) / 8)
	if err != nil {
		return nil, err
	}
	bits := make([]bool, n)
	for i := range bits {
		bits[i] = raw[i/8]&(0x80>>(i%8)) != 0
	}
	return bits, nil
}

// ReadOptionalBitmap reads an all-defined byte followed by a bitmap when the
// byte is zero. A non-zero byte means every bit is set and no bitmap follows.
func (r *Reader) ReadOptionalBitmap(n int) ([]bool, error) {
	allDefined, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if allDefined != 0 {
		bits := make([]bool, n)
		for i := range bits {
			bits[i] = true
		}
		return bits, nil
	}
	return r.ReadBitmap(n)
}

// Sub returns a cursor over the next n bytes and advances past them. It is
// used to parse length-prefixed property blocks without letting a malformed
// block read past its declared end.
func (r *Reader) Sub(n uint64) (*Reader, error) {
	if n > uint64(r.Remaining()) {
		return nil, ErrTruncated
	}
	sub := &Reader{data: r.data[r.pos : r.pos+int(n)]}
	r.pos += int(n)
	return sub, nil
}
