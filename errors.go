package sevenzip

import "github.com/meigma/sevenzip/internal/format"

// Errors re-exported from internal/format. Parse-time errors abort Open
// entirely; extract-time errors leave the handle usable for further calls.
var (
	// ErrNotAnArchive is returned when the input does not start with the 7z signature.
	ErrNotAnArchive = format.ErrNotAnArchive

	// ErrUnsupportedVersion is returned for archives with a newer major format version.
	ErrUnsupportedVersion = format.ErrUnsupportedVersion

	// ErrTruncated is returned when the input ends in the middle of a field or
	// a declared byte range extends past the end of the archive.
	ErrTruncated = format.ErrTruncated

	// ErrUnsupportedSection is returned for well-formed header constructs
	// outside the supported subset that cannot be skipped safely.
	ErrUnsupportedSection = format.ErrUnsupportedSection

	// ErrUnsupportedCodec is returned for coders other than Copy or LZMA, and
	// for folders with bind-pair coder graphs.
	ErrUnsupportedCodec = format.ErrUnsupportedCodec

	// ErrUnsupportedHeaderEncoding is returned when an encoded header uses a
	// streams layout other than one pack stream, one folder, one coder.
	ErrUnsupportedHeaderEncoding = format.ErrUnsupportedHeaderEncoding

	// ErrSizeMismatch is returned when per-file ranges fail to tile their
	// folder's decompressed output exactly.
	ErrSizeMismatch = format.ErrSizeMismatch

	// ErrCodec is returned when decompression fails on corrupt or truncated streams.
	ErrCodec = format.ErrCodec

	// ErrFileNotFound is returned by Extract for an unknown index or name.
	ErrFileNotFound = format.ErrFileNotFound

	// ErrAllocationLimit is returned when materializing a folder would exceed
	// the configured memory limit.
	ErrAllocationLimit = format.ErrAllocationLimit

	// ErrSizeOverflow is returned when byte counts exceed supported limits.
	ErrSizeOverflow = format.ErrSizeOverflow
)
