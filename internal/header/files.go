package header

import (
	"fmt"
	"time"

	"golang.org/x/text/encoding/unicode"

	"github.com/meigma/sevenzip/internal/format"
)

// FilesInfo is the parsed file table. The EmptyFile and Anti bitmaps are
// stored in the archive indexed by empty-stream position; they are expanded
// here so every slice is indexed by file position.
type FilesInfo struct {
	NumFiles    int
	Names       []string
	EmptyStream []bool
	EmptyFile   []bool
	Anti        []bool
	MTimes      []time.Time
	Attribs     []uint32
	AttribSet   []bool
}

// IsDir reports whether file i is a directory entry: an empty stream that is
// not flagged as an empty file. A file with both flags set is a legitimate
// zero-byte file, not a directory.
func (fi *FilesInfo) IsDir(i int) bool {
	return fi.EmptyStream[i] && !fi.EmptyFile[i] && !fi.Anti[i]
}

// utf16Decoder converts the archive's UTF-16LE name bytes to UTF-8 strings.
var utf16Decoder = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// ParseFilesInfo parses the FilesInfo section: the file count followed by
// tag/length/value property blocks up to the end marker. Each block is
// parsed inside its declared length, so an unknown or malformed block can
// never read past its own end.
func ParseFilesInfo(r *format.Reader) (*FilesInfo, error) {
	numFiles, err := r.ReadNumberInt()
	if err != nil {
		return nil, err
	}
	fi := &FilesInfo{
		NumFiles:    numFiles,
		EmptyStream: make([]bool, numFiles),
		EmptyFile:   make([]bool, numFiles),
		Anti:        make([]bool, numFiles),
		MTimes:      make([]time.Time, numFiles),
		Attribs:     make([]uint32, numFiles),
		AttribSet:   make([]bool, numFiles),
	}

	var emptyFileBits, antiBits []bool
	for {
		id, err := r.ReadNumber()
		if err != nil {
			return nil, err
		}
		if id == format.IDEnd {
			break
		}
		size, err := r.ReadNumber()
		if err != nil {
			return nil, err
		}
		block, err := r.Sub(size)
		if err != nil {
			return nil, err
		}

		switch id {
		case format.IDEmptyStream:
			if fi.EmptyStream, err = block.ReadBitmap(numFiles); err != nil {
				return nil, err
			}
		case format.IDEmptyFile:
			if emptyFileBits, err = block.ReadBitmap(countSet(fi.EmptyStream)); err != nil {
				return nil, err
			}
		case format.IDAnti:
			if antiBits, err = block.ReadBitmap(countSet(fi.EmptyStream)); err != nil {
				return nil, err
			}
		case format.IDName:
			if fi.Names, err = parseNames(block, numFiles); err != nil {
				return nil, err
			}
		case format.IDMTime:
			if err = fi.parseMTimes(block); err != nil {
				return nil, err
			}
		case format.IDWinAttrib:
			if err = fi.parseAttribs(block); err != nil {
				return nil, err
			}
		default:
			// CTime/ATime/StartPos/Dummy and future properties are
			// length-prefixed and safe to skip.
		}
	}

	if fi.Names == nil {
		return nil, fmt.Errorf("file table has no name block: %w", format.ErrUnsupportedSection)
	}
	fi.expand(emptyFileBits, antiBits)
	return fi, nil
}

// parseNames decodes the inline name block: an external flag followed by
// numFiles null-terminated UTF-16LE strings. External name storage is
// rejected.
func parseNames(r *format.Reader, numFiles int) ([]string, error) {
	external, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if external != 0 {
		return nil, fmt.Errorf("externally stored names: %w", format.ErrUnsupportedSection)
	}
	raw, err := r.ReadBytes(r.Remaining())
	if err != nil {
		return nil, err
	}

	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("odd name byte count: %w", format.ErrTruncated)
	}

	names := make([]string, 0, numFiles)
	start := 0
	for pos := 0; pos < len(raw); pos += 2 {
		if raw[pos] != 0 || raw[pos+1] != 0 {
			continue
		}
		name, err := utf16Decoder.NewDecoder().Bytes(raw[start:pos])
		if err != nil {
			return nil, fmt.Errorf("name at file %d: %w", len(names), format.ErrUnsupportedSection)
		}
		names = append(names, string(name))
		start = pos + 2
	}
	if len(names) != numFiles || start != len(raw) {
		return nil, fmt.Errorf("name block holds %d of %d names: %w", len(names), numFiles, format.ErrTruncated)
	}
	return names, nil
}

// filetimeEpochDelta is the offset between the Windows FILETIME epoch
// (1601-01-01) and the Unix epoch, in 100ns ticks.
const filetimeEpochDelta = 116444736000000000

func (fi *FilesInfo) parseMTimes(r *format.Reader) error {
	defined, err := r.ReadOptionalBitmap(fi.NumFiles)
	if err != nil {
		return err
	}
	external, err := r.ReadByte()
	if err != nil {
		return err
	}
	if external != 0 {
		return fmt.Errorf("externally stored timestamps: %w", format.ErrUnsupportedSection)
	}
	for i, ok := range defined {
		if !ok {
			continue
		}
		ft, err := r.ReadUint64()
		if err != nil {
			return err
		}
		fi.MTimes[i] = time.Unix(0, (int64(ft)-filetimeEpochDelta)*100).UTC()
	}
	return nil
}

func (fi *FilesInfo) parseAttribs(r *format.Reader) error {
	defined, err := r.ReadOptionalBitmap(fi.NumFiles)
	if err != nil {
		return err
	}
	external, err := r.ReadByte()
	if err != nil {
		return err
	}
	if external != 0 {
		return fmt.Errorf("externally stored attributes: %w", format.ErrUnsupportedSection)
	}
	for i, ok := range defined {
		if !ok {
			continue
		}
		if fi.Attribs[i], err = r.ReadUint32(); err != nil {
			return err
		}
		fi.AttribSet[i] = true
	}
	return nil
}

// expand maps the empty-stream-indexed EmptyFile and Anti bitmaps onto file
// positions. Absent bitmaps leave the defaults: empty streams without an
// EmptyFile bit are directories.
func (fi *FilesInfo) expand(emptyFileBits, antiBits []bool) {
	pos := 0
	for i, empty := range fi.EmptyStream {
		if !empty {
			continue
		}
		if emptyFileBits != nil && pos < len(emptyFileBits) {
			fi.EmptyFile[i] = emptyFileBits[pos]
		}
		if antiBits != nil && pos < len(antiBits) {
			fi.Anti[i] = antiBits[pos]
		}
		pos++
	}
}

func countSet(bits []bool) int {
	n := 0
	for _, b := range bits {
		if b {
			n++
		}
	}
	return n
}
