// Package model provides data structures shared between the remote archive
// reader, the download manager and the catalog: archive references, directory
// entries and compression methods.
package model

// CompressionMethod identifies how an archive entry is compressed.
type CompressionMethod uint16

// Compression methods found in ZIP central directory records. Anything other
// than stored or deflate is kept as-is and reported as unsupported when an
// extraction is attempted.
const (
	CompressionStored  CompressionMethod = 0
	CompressionDeflate CompressionMethod = 8
)

// Supported reports whether entries with this method can be extracted.
func (m CompressionMethod) Supported() bool {
	return m == CompressionStored || m == CompressionDeflate
}

// String returns a human-readable name for the method.
func (m CompressionMethod) String() string {
	switch m {
	case CompressionStored:
		return "stored"
	case CompressionDeflate:
		return "deflate"
	default:
		return "unsupported"
	}
}

// ArchiveRef identifies a remote archive. It is immutable once a download
// session starts; authentication state lives in the token manager, not here.
type ArchiveRef struct {
	// URL is the download URL of the remote archive.
	URL string
	// Size is the total size of the archive in bytes, or 0 if unknown.
	Size int64
}

// DirectoryEntry holds the metadata of one archive entry, as recorded in the
// ZIP central directory.
type DirectoryEntry struct {
	// Name is the archive-relative path of the entry.
	Name string
	// Method is the compression method of the entry payload.
	Method CompressionMethod
	// CRC32 is the checksum of the uncompressed entry contents.
	CRC32 uint32
	// CompressedSize is the size of the entry payload inside the archive.
	CompressedSize uint64
	// UncompressedSize is the size of the entry after decompression.
	UncompressedSize uint64
	// HeaderOffset is the offset of the entry's local file header within
	// the archive.
	HeaderOffset uint64
}
