// Package sevenzip reads a restricted subset of the 7z archive format:
// single linear Copy or LZMA coders, optionally compressed ("encoded")
// headers, and solid folders shared by multiple files. It exists to pull
// individual embedded files, typically delimited text, out of compressed
// archives for downstream ingestion.
//
// An archive is parsed completely at Open time into an immutable index;
// Extract decompresses the owning solid folder in full and slices out the
// requested file's byte range. Repeated extraction from the same folder
// re-decompresses it each time, so callers should extract all files of
// interest from a folder in one pass.
//
// Out of scope by design: archive writing, encryption, multi-volume
// archives, codecs other than Copy and LZMA, and folders with bind-pair
// coder graphs. These are rejected with explicit errors rather than
// silently mishandled.
package sevenzip
