package format

import "errors"

// Sentinel errors shared across the parsing and extraction packages.
// The root package re-exports these for callers.
var (
	// ErrNotAnArchive is returned when the input does not start with the 7z signature.
	ErrNotAnArchive = errors.New("sevenzip: not a 7z archive")

	// ErrUnsupportedVersion is returned when the archive declares a newer
	// major format version than this reader understands.
	ErrUnsupportedVersion = errors.New("sevenzip: unsupported format version")

	// ErrTruncated is returned when the input ends in the middle of a field
	// or a declared byte range extends past the end of the archive.
	ErrTruncated = errors.New("sevenzip: truncated input")

	// ErrUnsupportedSection is returned for well-formed header constructs
	// outside the supported subset that cannot be skipped safely.
	ErrUnsupportedSection = errors.New("sevenzip: unsupported header section")

	// ErrUnsupportedCodec is returned for coder declarations other than a
	// single linear Copy or LZMA coder.
	ErrUnsupportedCodec = errors.New("sevenzip: unsupported codec")

	// ErrUnsupportedHeaderEncoding is returned when an encoded header uses a
	// streams layout other than one pack stream, one folder, one coder.
	ErrUnsupportedHeaderEncoding = errors.New("sevenzip: unsupported header encoding")

	// ErrSizeMismatch is returned when per-file ranges fail to tile their
	// folder exactly. It signals a corrupt archive or a parser bug and is
	// never downgraded.
	ErrSizeMismatch = errors.New("sevenzip: size accounting mismatch")

	// ErrCodec is returned when decompression fails on corrupt or truncated
	// stream data.
	ErrCodec = errors.New("sevenzip: decode failed")

	// ErrFileNotFound is returned by Extract for an unknown index or name.
	ErrFileNotFound = errors.New("sevenzip: file not found")

	// ErrAllocationLimit is returned when materializing a folder would exceed
	// the configured memory limit.
	ErrAllocationLimit = errors.New("sevenzip: allocation limit exceeded")

	// ErrSizeOverflow is returned when byte counts exceed supported limits.
	ErrSizeOverflow = errors.New("sevenzip: size overflow")
)
