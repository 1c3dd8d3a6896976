// Package header parses the 7z archive header: the streams descriptor
// (pack streams, folders, substreams), the file table, and the encoded form
// in which the header itself is LZMA-compressed.
package header

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/meigma/sevenzip/internal/codec"
	"github.com/meigma/sevenzip/internal/format"
	"github.com/meigma/sevenzip/internal/sizing"
)

// Header is the fully parsed archive header. Streams is nil for archives
// whose files are all empty streams (directories and zero-byte files).
type Header struct {
	Streams *StreamsInfo
	Files   *FilesInfo
}

// Parse parses plaintext header bytes, which must begin with the Header tag.
func Parse(data []byte) (*Header, error) {
	r := format.NewReader(data)
	id, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if id != format.IDHeader {
		return nil, fmt.Errorf("header tag %#x: %w", id, format.ErrUnsupportedSection)
	}

	h := &Header{}
	for {
		id, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		switch id {
		case format.IDEnd:
			if h.Files == nil {
				return nil, fmt.Errorf("header has no files info: %w", format.ErrUnsupportedSection)
			}
			return h, nil
		case format.IDArchiveProperties:
			if err := skipArchiveProperties(r); err != nil {
				return nil, err
			}
		case format.IDMainStreamsInfo:
			if h.Streams, err = ParseStreamsInfo(r); err != nil {
				return nil, err
			}
		case format.IDFilesInfo:
			if h.Files, err = ParseFilesInfo(r); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("header tag %#x: %w", id, format.ErrUnsupportedSection)
		}
	}
}

// skipArchiveProperties consumes an archive-properties section, a sequence
// of length-prefixed property blocks ending with the End tag.
func skipArchiveProperties(r *format.Reader) error {
	for {
		id, err := r.ReadNumber()
		if err != nil {
			return err
		}
		if id == format.IDEnd {
			return nil
		}
		size, err := r.ReadNumber()
		if err != nil {
			return err
		}
		if err := r.SkipSize(size); err != nil {
			return err
		}
	}
}

// DecodeEncoded materializes the plaintext header from an encoded-header
// streams descriptor. r must be positioned just past the EncodedHeader tag.
// The descriptor is restricted to exactly one pack stream, one folder and
// one coder; any other shape fails rather than attempting a best-effort
// parse. src provides the archive bytes, sized archiveSize; maxHeaderSize
// bounds the decoded header allocation.
func DecodeEncoded(r *format.Reader, src io.ReaderAt, archiveSize int64, maxHeaderSize uint64, logger *slog.Logger) ([]byte, error) {
	si, err := ParseStreamsInfo(r)
	if err != nil {
		if errors.Is(err, format.ErrUnsupportedCodec) || errors.Is(err, format.ErrUnsupportedSection) {
			return nil, fmt.Errorf("%v: %w", err, format.ErrUnsupportedHeaderEncoding)
		}
		return nil, err
	}
	if len(si.PackSizes) != 1 || len(si.Folders) != 1 {
		return nil, fmt.Errorf("encoded header uses %d pack streams and %d folders: %w",
			len(si.PackSizes), len(si.Folders), format.ErrUnsupportedHeaderEncoding)
	}

	folder := si.Folders[0]
	if maxHeaderSize != 0 && folder.UnpackSize > maxHeaderSize {
		return nil, fmt.Errorf("decoded header of %d bytes: %w", folder.UnpackSize, format.ErrAllocationLimit)
	}

	offset, err := sizing.ToInt64(format.StartHeaderSize+si.PackOffset(0), format.ErrSizeOverflow)
	if err != nil {
		return nil, err
	}
	packSize, err := sizing.ToInt64(si.PackSizes[0], format.ErrSizeOverflow)
	if err != nil {
		return nil, err
	}
	if offset+packSize > archiveSize {
		return nil, fmt.Errorf("encoded header pack stream at [%d, %d) exceeds archive size %d: %w",
			offset, offset+packSize, archiveSize, format.ErrTruncated)
	}

	packed := make([]byte, packSize)
	if _, err := io.ReadFull(io.NewSectionReader(src, offset, packSize), packed); err != nil {
		return nil, fmt.Errorf("read encoded header: %w", format.ErrTruncated)
	}

	plain, err := codec.Decode(folder.Coder.MethodID, folder.Coder.Props, packed, folder.UnpackSize)
	if err != nil {
		return nil, err
	}
	if folder.CRCDefined && format.CRC(plain) != folder.CRC {
		// Non-fatal: some producers emit incorrect CRCs.
		logger.Warn("decoded header CRC mismatch",
			"want", folder.CRC, "got", format.CRC(plain))
	}
	return plain, nil
}
