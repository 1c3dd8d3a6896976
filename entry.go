package sevenzip

import "time"

// FileEntry describes one file in the archive's table, in archive order.
type FileEntry struct {
	// Name is the file path as stored in the archive, converted once from
	// UTF-16LE at parse time.
	Name string

	// Size is the decompressed size in bytes. Zero for directories and
	// empty files.
	Size uint64

	// IsDir reports whether the entry is a directory. A zero-byte file is
	// not a directory.
	IsDir bool

	// Anti marks an anti-file, a deletion marker used by incremental
	// archives. Anti entries carry no content.
	Anti bool

	// ModTime is the modification time, if the archive recorded one.
	ModTime time.Time

	// Attrib holds Windows file attributes when HasAttrib is true.
	Attrib    uint32
	HasAttrib bool
}
