package header

import (
	"fmt"

	"github.com/meigma/sevenzip/internal/format"
	"github.com/meigma/sevenzip/internal/sizing"
)

// maxPropsSize bounds coder properties. Both supported coders fit: Copy has
// none and LZMA uses exactly 5 bytes.
const maxPropsSize = 16

// Coder is a single compression transform: a method id plus its opaque
// properties. Only single-input, single-output coders are accepted.
type Coder struct {
	MethodID uint64
	Props    []byte
}

// Folder is one solid block: a single linear coder producing UnpackSize
// bytes of output. Folders with bind-pair coder graphs are rejected at parse
// time, so the supported shape is always one coder.
type Folder struct {
	Coder      Coder
	UnpackSize uint64
	CRC        uint32
	CRCDefined bool
}

// StreamsInfo describes the packed streams and the folders decoded from
// them, joined with per-folder substream sizes.
type StreamsInfo struct {
	// PackPos is the offset of the first pack stream, relative to the end of
	// the start header.
	PackPos uint64

	// PackSizes holds the compressed length of each pack stream. With only
	// linear single-coder folders, pack stream i belongs to folder i.
	PackSizes []uint64

	Folders []Folder

	// NumStreams is the per-folder count of logical files sharing the
	// folder's output. Defaults to one when SubStreamsInfo is absent.
	NumStreams []int

	// StreamSizes is the per-folder list of decompressed file sizes. The
	// sizes of a folder always sum to its UnpackSize.
	StreamSizes [][]uint64
}

// PackOffset returns the offset of pack stream i relative to the archive's
// data area (the byte after the start header).
func (si *StreamsInfo) PackOffset(i int) uint64 {
	off := si.PackPos
	for _, size := range si.PackSizes[:i] {
		off += size
	}
	return off
}

// ParseStreamsInfo parses a streams-info section: PackInfo, UnpackInfo and
// the optional SubStreamsInfo, up to and including its end marker.
func ParseStreamsInfo(r *format.Reader) (*StreamsInfo, error) {
	si := &StreamsInfo{}
	for {
		id, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		switch id {
		case format.IDEnd:
			if err := si.finish(); err != nil {
				return nil, err
			}
			return si, nil
		case format.IDPackInfo:
			if err := si.parsePackInfo(r); err != nil {
				return nil, err
			}
		case format.IDUnpackInfo:
			if err := si.parseUnpackInfo(r); err != nil {
				return nil, err
			}
		case format.IDSubStreamsInfo:
			if err := si.parseSubStreamsInfo(r); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("streams info tag %#x: %w", id, format.ErrUnsupportedSection)
		}
	}
}

// parsePackInfo reads the pack position, stream count and per-stream sizes.
// An optional CRC section (defined bitmap plus 4 bytes per defined entry) is
// consumed without validation.
func (si *StreamsInfo) parsePackInfo(r *format.Reader) error {
	var err error
	if si.PackPos, err = r.ReadNumber(); err != nil {
		return err
	}
	numStreams, err := r.ReadNumberInt()
	if err != nil {
		return err
	}
	if uint64(numStreams) > uint64(r.Remaining()) {
		// Each size needs at least one byte.
		return format.ErrTruncated
	}

	for {
		id, err := r.ReadByte()
		if err != nil {
			return err
		}
		switch id {
		case format.IDEnd:
			if si.PackSizes == nil && numStreams > 0 {
				// The archiveSize-dataOffset fallback for omitted sizes is
				// unverified for multi-folder archives; fail instead.
				return fmt.Errorf("pack info omits stream sizes: %w", format.ErrUnsupportedSection)
			}
			return nil
		case format.IDSize:
			si.PackSizes = make([]uint64, numStreams)
			for i := range si.PackSizes {
				if si.PackSizes[i], err = r.ReadNumber(); err != nil {
					return err
				}
			}
		case format.IDCRC:
			if err := skipCRCs(r, numStreams); err != nil {
				return err
			}
		default:
			return fmt.Errorf("pack info tag %#x: %w", id, format.ErrUnsupportedSection)
		}
	}
}

// parseUnpackInfo reads the folder list and each folder's decompressed size.
func (si *StreamsInfo) parseUnpackInfo(r *format.Reader) error {
	id, err := r.ReadByte()
	if err != nil {
		return err
	}
	if id != format.IDFolder {
		return fmt.Errorf("unpack info tag %#x, want Folder: %w", id, format.ErrUnsupportedSection)
	}
	numFolders, err := r.ReadNumberInt()
	if err != nil {
		return err
	}
	external, err := r.ReadByte()
	if err != nil {
		return err
	}
	if external != 0 {
		return fmt.Errorf("externally stored folders: %w", format.ErrUnsupportedSection)
	}
	if uint64(numFolders) > uint64(r.Remaining()) {
		return format.ErrTruncated
	}

	si.Folders = make([]Folder, numFolders)
	for i := range si.Folders {
		if err := parseFolder(r, &si.Folders[i]); err != nil {
			return err
		}
	}

	id, err = r.ReadByte()
	if err != nil {
		return err
	}
	if id != format.IDCodersUnpackSize {
		return fmt.Errorf("unpack info tag %#x, want CodersUnpackSize: %w", id, format.ErrUnsupportedSection)
	}
	for i := range si.Folders {
		if si.Folders[i].UnpackSize, err = r.ReadNumber(); err != nil {
			return err
		}
	}

	for {
		id, err := r.ReadByte()
		if err != nil {
			return err
		}
		switch id {
		case format.IDEnd:
			return nil
		case format.IDCRC:
			defined, err := r.ReadOptionalBitmap(numFolders)
			if err != nil {
				return err
			}
			for i, ok := range defined {
				if !ok {
					continue
				}
				if si.Folders[i].CRC, err = r.ReadUint32(); err != nil {
					return err
				}
				si.Folders[i].CRCDefined = true
			}
		default:
			return fmt.Errorf("unpack info tag %#x: %w", id, format.ErrUnsupportedSection)
		}
	}
}

// parseFolder reads one folder's coder list. The folder flags byte carries
// the method id length in its low nibble, an explicit stream-count bit
// (0x10) and a has-properties bit (0x20). Anything beyond a single
// one-in/one-out Copy or LZMA coder is rejected, never approximated.
func parseFolder(r *format.Reader, f *Folder) error {
	numCoders, err := r.ReadNumberInt()
	if err != nil {
		return err
	}
	if numCoders != 1 {
		return fmt.Errorf("folder has %d coders, bind-pair graphs are not supported: %w",
			numCoders, format.ErrUnsupportedCodec)
	}

	flags, err := r.ReadByte()
	if err != nil {
		return err
	}
	idSize := int(flags & 0x0F)
	isComplex := flags&0x10 != 0
	hasProps := flags&0x20 != 0

	idBytes, err := r.ReadBytes(idSize)
	if err != nil {
		return err
	}
	var methodID uint64
	for _, b := range idBytes {
		methodID = methodID<<8 | uint64(b)
	}

	if isComplex {
		numIn, err := r.ReadNumber()
		if err != nil {
			return err
		}
		numOut, err := r.ReadNumber()
		if err != nil {
			return err
		}
		if numIn != 1 || numOut != 1 {
			return fmt.Errorf("coder declares %d in / %d out streams: %w",
				numIn, numOut, format.ErrUnsupportedCodec)
		}
	}

	var props []byte
	if hasProps {
		propsSize, err := r.ReadNumberInt()
		if err != nil {
			return err
		}
		if propsSize > maxPropsSize {
			return fmt.Errorf("coder properties of %d bytes: %w", propsSize, format.ErrUnsupportedCodec)
		}
		if props, err = r.ReadBytes(propsSize); err != nil {
			return err
		}
	}

	if methodID != format.MethodCopy && methodID != format.MethodLZMA {
		return fmt.Errorf("method %#x: %w", methodID, format.ErrUnsupportedCodec)
	}

	f.Coder = Coder{MethodID: methodID, Props: props}
	return nil
}

// parseSubStreamsInfo reads per-folder stream counts and explicit sizes for
// all but the last stream of each folder; the last is inferred from the
// folder total. A trailing CRC section covering streams without a known CRC
// is consumed without validation.
func (si *StreamsInfo) parseSubStreamsInfo(r *format.Reader) error {
	si.NumStreams = make([]int, len(si.Folders))
	for i := range si.NumStreams {
		si.NumStreams[i] = 1
	}

	id, err := r.ReadByte()
	if err != nil {
		return err
	}
	if id == format.IDNumUnpackStream {
		for i := range si.NumStreams {
			if si.NumStreams[i], err = r.ReadNumberInt(); err != nil {
				return err
			}
		}
		if id, err = r.ReadByte(); err != nil {
			return err
		}
	}

	si.StreamSizes = make([][]uint64, len(si.Folders))
	for f := range si.Folders {
		n := si.NumStreams[f]
		sizes := make([]uint64, n)
		if n == 0 {
			si.StreamSizes[f] = sizes
			continue
		}
		var sum uint64
		for s := 0; s < n-1; s++ {
			if id != format.IDSize {
				return fmt.Errorf("substreams omit sizes for a shared folder: %w", format.ErrUnsupportedSection)
			}
			if sizes[s], err = r.ReadNumber(); err != nil {
				return err
			}
			var ok bool
			if sum, ok = sizing.AddUint64(sum, sizes[s]); !ok {
				return fmt.Errorf("substream sizes: %w", format.ErrSizeOverflow)
			}
		}
		if sum > si.Folders[f].UnpackSize {
			return fmt.Errorf("substream sizes exceed folder size: %w", format.ErrSizeMismatch)
		}
		sizes[n-1] = si.Folders[f].UnpackSize - sum
		si.StreamSizes[f] = sizes
	}
	if id == format.IDSize {
		if id, err = r.ReadByte(); err != nil {
			return err
		}
	}

	for {
		switch id {
		case format.IDEnd:
			return nil
		case format.IDCRC:
			// CRCs are stored only for streams whose checksum is not already
			// known from the folder.
			unknown := 0
			for f := range si.Folders {
				if si.NumStreams[f] == 1 && si.Folders[f].CRCDefined {
					continue
				}
				unknown += si.NumStreams[f]
			}
			if err := skipCRCs(r, unknown); err != nil {
				return err
			}
		default:
			return fmt.Errorf("substreams tag %#x: %w", id, format.ErrUnsupportedSection)
		}
		if id, err = r.ReadByte(); err != nil {
			return err
		}
	}
}

// finish applies defaults and shape checks once every section has been read.
func (si *StreamsInfo) finish() error {
	if len(si.PackSizes) != len(si.Folders) {
		return fmt.Errorf("%d pack streams for %d folders: %w",
			len(si.PackSizes), len(si.Folders), format.ErrSizeMismatch)
	}
	if si.NumStreams == nil {
		// No SubStreamsInfo: exactly one file per folder.
		si.NumStreams = make([]int, len(si.Folders))
		si.StreamSizes = make([][]uint64, len(si.Folders))
		for i := range si.Folders {
			si.NumStreams[i] = 1
			si.StreamSizes[i] = []uint64{si.Folders[i].UnpackSize}
		}
	}
	return nil
}

// skipCRCs consumes a CRC block for n streams without validating it.
func skipCRCs(r *format.Reader, n int) error {
	defined, err := r.ReadOptionalBitmap(n)
	if err != nil {
		return err
	}
	count := 0
	for _, ok := range defined {
		if ok {
			count++
		}
	}
	return r.Skip(count * 4)
}
