package remotezip

import "fmt"

// Common remote archive errors.
var (
	// ErrMalformedArchive is returned when no valid end-of-central-directory
	// record can be located, or when the directory fields are inconsistent
	// with the declared file size. It is fatal for the whole archive.
	ErrMalformedArchive = fmt.Errorf("malformed archive")

	// ErrEntryNotFound is returned when no directory entry matches the
	// requested name.
	ErrEntryNotFound = fmt.Errorf("entry not found in archive")

	// ErrUnsupportedCompression is returned when an entry uses a
	// compression method other than stored or deflate.
	ErrUnsupportedCompression = fmt.Errorf("unsupported compression method")

	// ErrChecksumMismatch is returned when the CRC-32 of the extracted
	// entry does not match the value recorded in the central directory.
	ErrChecksumMismatch = fmt.Errorf("checksum mismatch")

	// ErrTruncatedEntry is returned when the decompressed stream is
	// shorter or longer than the recorded uncompressed size.
	ErrTruncatedEntry = fmt.Errorf("truncated entry")
)
