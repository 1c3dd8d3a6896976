package sevenzip

import "log/slog"

// Default resource limits applied by Open.
const (
	// DefaultMaxFolderSize is the default cap on a single folder's
	// decompressed size (1GB). Extracting from a solid folder materializes
	// the whole folder at once, so this bounds peak memory.
	DefaultMaxFolderSize = 1 << 30

	// DefaultMaxHeaderSize is the default cap on decoded header bytes (16MB).
	DefaultMaxHeaderSize = 16 << 20
)

// Option configures an Archive.
type Option func(*Archive)

// WithMaxFolderSize limits the decompressed size of any single folder.
// Set limit to 0 to disable the limit.
func WithMaxFolderSize(limit uint64) Option {
	return func(a *Archive) {
		a.maxFolderSize = limit
	}
}

// WithMaxHeaderSize limits the size of a decoded encoded header.
// Set limit to 0 to disable the limit.
func WithMaxHeaderSize(limit uint64) Option {
	return func(a *Archive) {
		a.maxHeaderSize = limit
	}
}

// WithLogger sets the logger used for non-fatal diagnostics, such as CRC
// mismatches from producers that emit incorrect checksums. The default
// discards all output.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Archive) {
		a.logger = logger
	}
}
