// Package index joins the folder layout and the file table into a per-file
// (folder, offset, length) map over decompressed folder output.
package index

import (
	"fmt"

	"github.com/meigma/sevenzip/internal/format"
	"github.com/meigma/sevenzip/internal/header"
	"github.com/meigma/sevenzip/internal/sizing"
)

// Entry locates one file inside its folder's decompressed output. Folder is
// -1 for entries with no stream (directories, zero-byte files, anti files).
type Entry struct {
	Folder int
	Offset uint64
	Length uint64
}

// Index is the immutable per-file location table, built once at open time.
type Index struct {
	entries []Entry
}

// Len returns the number of files.
func (x *Index) Len() int {
	return len(x.entries)
}

// Entry returns the location of file i.
func (x *Index) Entry(i int) (Entry, bool) {
	if i < 0 || i >= len(x.entries) {
		return Entry{}, false
	}
	return x.entries[i], true
}

// Build walks the file table in archive order, assigning each file with a
// stream the next substream range of the current folder. The ranges of all
// files sharing a folder must tile [0, UnpackSize) exactly; any gap,
// overlap or leftover is a corrupt archive or a parser bug and fails with
// ErrSizeMismatch.
func Build(si *header.StreamsInfo, fi *header.FilesInfo) (*Index, error) {
	entries := make([]Entry, fi.NumFiles)

	folder, stream := 0, 0
	var offset uint64
	for i := 0; i < fi.NumFiles; i++ {
		if fi.EmptyStream[i] {
			entries[i] = Entry{Folder: -1}
			continue
		}
		if si == nil {
			return nil, fmt.Errorf("file %d has a stream but the archive has no streams info: %w",
				i, format.ErrSizeMismatch)
		}

		// Skip folders already consumed, including any declared with zero
		// streams.
		for folder < len(si.Folders) && stream >= si.NumStreams[folder] {
			if offset != si.Folders[folder].UnpackSize {
				return nil, tilingError(folder, offset, si.Folders[folder].UnpackSize)
			}
			folder++
			stream = 0
			offset = 0
		}
		if folder >= len(si.Folders) {
			return nil, fmt.Errorf("file %d has no folder left to draw from: %w", i, format.ErrSizeMismatch)
		}

		length := si.StreamSizes[folder][stream]
		end, ok := sizing.AddUint64(offset, length)
		if !ok || end > si.Folders[folder].UnpackSize {
			return nil, tilingError(folder, end, si.Folders[folder].UnpackSize)
		}
		entries[i] = Entry{Folder: folder, Offset: offset, Length: length}
		offset = end
		stream++
	}

	// Every folder must be fully consumed.
	if si != nil {
		for folder < len(si.Folders) && stream >= si.NumStreams[folder] {
			if offset != si.Folders[folder].UnpackSize {
				return nil, tilingError(folder, offset, si.Folders[folder].UnpackSize)
			}
			folder++
			stream = 0
			offset = 0
		}
		if folder != len(si.Folders) {
			return nil, fmt.Errorf("%d of %d streams in folder %d have no file: %w",
				si.NumStreams[folder]-stream, si.NumStreams[folder], folder, format.ErrSizeMismatch)
		}
	}

	return &Index{entries: entries}, nil
}

func tilingError(folder int, got, want uint64) error {
	return fmt.Errorf("folder %d ranges cover %d of %d bytes: %w", folder, got, want, format.ErrSizeMismatch)
}
