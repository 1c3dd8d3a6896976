package sevenzip

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/meigma/sevenzip/internal/codec"
	"github.com/meigma/sevenzip/internal/format"
	"github.com/meigma/sevenzip/internal/header"
	"github.com/meigma/sevenzip/internal/index"
	"github.com/meigma/sevenzip/internal/sizing"
)

// Archive is an open 7z archive. All structures are built once at Open and
// are read-only afterward, so concurrent reads from multiple goroutines are
// safe once Open returns. Close must not race with an in-flight Extract.
type Archive struct {
	src    ByteSource
	closer io.Closer
	size   int64

	streams *header.StreamsInfo
	files   []FileEntry
	idx     *index.Index

	maxFolderSize uint64
	maxHeaderSize uint64
	logger        *slog.Logger
}

func (a *Archive) log() *slog.Logger {
	if a.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return a.logger
}

// Open parses an archive from src and builds the file index. Any parse
// error aborts the open entirely; a half-initialized handle is never
// returned. Open does not take ownership of src.
func Open(src ByteSource, opts ...Option) (*Archive, error) {
	a := &Archive{
		src:           src,
		size:          src.Size(),
		maxFolderSize: DefaultMaxFolderSize,
		maxHeaderSize: DefaultMaxHeaderSize,
	}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.parse(); err != nil {
		return nil, err
	}
	return a, nil
}

// OpenFile opens an archive from a local path. The returned Archive owns
// the file handle; Close releases it.
func OpenFile(path string, opts ...Option) (*Archive, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided path is intentional
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	source, err := newFileSource(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	a, err := Open(source, opts...)
	if err != nil {
		f.Close()
		return nil, err
	}
	a.closer = source
	return a, nil
}

// parse reads the start header, materializes the real header (decoding it
// first when stored compressed) and builds the per-file index.
func (a *Archive) parse() error {
	start := make([]byte, format.StartHeaderSize)
	n, err := a.src.ReadAt(start, 0)
	if err != nil && n < format.StartHeaderSize {
		if format.IsSignature(start[:n]) || n < len(format.Signature) {
			return format.ErrTruncated
		}
		return format.ErrNotAnArchive
	}
	sh, err := format.ParseStartHeader(start)
	if err != nil {
		return err
	}
	if !sh.CRCValid {
		a.log().Warn("start header CRC mismatch, continuing")
	}

	if sh.NextHeaderSize == 0 {
		// A valid archive with no files at all.
		a.files = []FileEntry{}
		a.idx = &index.Index{}
		return nil
	}

	headerPos, ok := sizing.AddUint64(format.StartHeaderSize, sh.NextHeaderOffset)
	if !ok {
		return ErrSizeOverflow
	}
	headerEnd, ok := sizing.AddUint64(headerPos, sh.NextHeaderSize)
	if !ok {
		return ErrSizeOverflow
	}
	if end, err := sizing.ToInt64(headerEnd, ErrSizeOverflow); err != nil {
		return err
	} else if end > a.size {
		return fmt.Errorf("header at [%d, %d) exceeds archive size %d: %w",
			headerPos, headerEnd, a.size, ErrTruncated)
	}

	headerSize, err := sizing.ToInt(sh.NextHeaderSize, ErrSizeOverflow)
	if err != nil {
		return err
	}
	raw := make([]byte, headerSize)
	if _, err := io.ReadFull(io.NewSectionReader(a.src, int64(headerPos), int64(headerSize)), raw); err != nil {
		return fmt.Errorf("read header: %w", ErrTruncated)
	}
	if format.CRC(raw) != sh.NextHeaderCRC {
		a.log().Warn("header CRC mismatch, continuing",
			"want", sh.NextHeaderCRC, "got", format.CRC(raw))
	}

	if len(raw) > 0 && raw[0] == format.IDEncodedHeader {
		r := format.NewReader(raw[1:])
		if raw, err = header.DecodeEncoded(r, a.src, a.size, a.maxHeaderSize, a.log()); err != nil {
			return err
		}
	}

	h, err := header.Parse(raw)
	if err != nil {
		return err
	}
	if err := a.validatePackExtents(h.Streams); err != nil {
		return err
	}

	a.streams = h.Streams
	if a.idx, err = index.Build(h.Streams, h.Files); err != nil {
		return err
	}
	a.files = buildEntries(h.Files, a.idx)

	a.log().Debug("archive opened", "files", len(a.files), "folders", folderCount(h.Streams))
	return nil
}

// validatePackExtents checks that cumulative pack stream consumption never
// exceeds the remaining archive bytes.
func (a *Archive) validatePackExtents(si *header.StreamsInfo) error {
	if si == nil {
		return nil
	}
	offset, ok := sizing.AddUint64(format.StartHeaderSize, si.PackPos)
	if !ok {
		return ErrSizeOverflow
	}
	for i, size := range si.PackSizes {
		end, ok := sizing.AddUint64(offset, size)
		if !ok {
			return ErrSizeOverflow
		}
		end64, err := sizing.ToInt64(end, ErrSizeOverflow)
		if err != nil {
			return err
		}
		if end64 > a.size {
			return fmt.Errorf("pack stream %d at [%d, %d) exceeds archive size %d: %w",
				i, offset, end, a.size, ErrTruncated)
		}
		offset = end
	}
	return nil
}

func buildEntries(fi *header.FilesInfo, idx *index.Index) []FileEntry {
	entries := make([]FileEntry, fi.NumFiles)
	for i := range entries {
		loc, _ := idx.Entry(i)
		entries[i] = FileEntry{
			Name:      fi.Names[i],
			Size:      loc.Length,
			IsDir:     fi.IsDir(i),
			Anti:      fi.Anti[i],
			ModTime:   fi.MTimes[i],
			Attrib:    fi.Attribs[i],
			HasAttrib: fi.AttribSet[i],
		}
	}
	return entries
}

func folderCount(si *header.StreamsInfo) int {
	if si == nil {
		return 0
	}
	return len(si.Folders)
}

// Len returns the number of files in the archive.
func (a *Archive) Len() int {
	return len(a.files)
}

// Files returns the file table in archive order.
func (a *Archive) Files() []FileEntry {
	return slices.Clone(a.files)
}

// Extract returns the decompressed content of file i.
//
// Directories and zero-byte files return an empty slice without touching
// the decompressor. Other files decompress their owning solid folder in
// full and return the file's byte range; nothing is cached across calls.
func (a *Archive) Extract(i int) ([]byte, error) {
	loc, ok := a.idx.Entry(i)
	if !ok {
		return nil, fmt.Errorf("index %d of %d files: %w", i, len(a.files), ErrFileNotFound)
	}
	if loc.Folder < 0 || loc.Length == 0 {
		return []byte{}, nil
	}

	decoded, err := a.decodeFolder(loc.Folder)
	if err != nil {
		return nil, err
	}
	// The tiling invariant guarantees the range fits the folder output.
	out := decoded[loc.Offset : loc.Offset+loc.Length]
	if uint64(len(decoded)) != loc.Length {
		// Copy so the whole folder buffer can be collected.
		out = slices.Clone(out)
	}
	return out, nil
}

// ExtractName extracts the first file whose stored name matches name.
func (a *Archive) ExtractName(name string) ([]byte, error) {
	for i := range a.files {
		if a.files[i].Name == name {
			return a.Extract(i)
		}
	}
	return nil, fmt.Errorf("%q: %w", name, ErrFileNotFound)
}

// decodeFolder reads a folder's pack stream and materializes its entire
// decompressed output. LZMA is a stateful stream codec; partial
// decompression of a slice is not possible.
func (a *Archive) decodeFolder(f int) ([]byte, error) {
	folder := a.streams.Folders[f]
	if a.maxFolderSize != 0 && folder.UnpackSize > a.maxFolderSize {
		return nil, fmt.Errorf("folder %d decompresses to %d bytes, limit %d: %w",
			f, folder.UnpackSize, a.maxFolderSize, ErrAllocationLimit)
	}

	offset, err := sizing.ToInt64(format.StartHeaderSize+a.streams.PackOffset(f), ErrSizeOverflow)
	if err != nil {
		return nil, err
	}
	packSize, err := sizing.ToInt64(a.streams.PackSizes[f], ErrSizeOverflow)
	if err != nil {
		return nil, err
	}

	packed := make([]byte, packSize)
	if _, err := io.ReadFull(io.NewSectionReader(a.src, offset, packSize), packed); err != nil {
		return nil, fmt.Errorf("read folder %d pack stream: %w", f, ErrTruncated)
	}

	decoded, err := codec.Decode(folder.Coder.MethodID, folder.Coder.Props, packed, folder.UnpackSize)
	if err != nil {
		return nil, err
	}
	if folder.CRCDefined && format.CRC(decoded) != folder.CRC {
		// Non-fatal: some producers emit incorrect CRCs.
		a.log().Warn("folder CRC mismatch", "folder", f,
			"want", folder.CRC, "got", format.CRC(decoded))
	}
	return decoded, nil
}

// Close releases the archive's underlying source, if the archive owns one.
// It is safe to call more than once.
func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	return err
}
