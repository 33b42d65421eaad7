package remotezip

import (
	"compress/flate"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"

	pkgerrors "github.com/remicres/theia-picker/pkg/errors"
	"github.com/remicres/theia-picker/pkg/fsutil"
	"github.com/remicres/theia-picker/pkg/logger"
	"github.com/remicres/theia-picker/pkg/model"
	"github.com/sirupsen/logrus"
)

// Outcome reports how an extraction was resolved.
type Outcome int

const (
	// OutcomeDownloaded means the entry was fetched and verified.
	OutcomeDownloaded Outcome = iota
	// OutcomeSkipped means the destination file already existed with the
	// correct checksum and no network access was performed.
	OutcomeSkipped
)

// ExtractEntry extracts the named entry to destPath. When the destination
// file already exists with the recorded CRC-32 it returns OutcomeSkipped
// without touching the network. The destination is written through a
// temporary file and renamed only after the checksum and length have been
// verified, so a failed extraction never leaves a partial file behind.
func (a *Archive) ExtractEntry(ctx context.Context, name, destPath string) (Outcome, error) {
	entry, err := a.Entry(name)
	if err != nil {
		return 0, err
	}
	if !entry.Method.Supported() {
		return 0, fmt.Errorf("%w: entry %s uses method %d", ErrUnsupportedCompression, name, uint16(entry.Method))
	}

	if st, err := os.Stat(destPath); err == nil && st.Mode().IsRegular() {
		if crc, err := fsutil.CRC32File(destPath); err == nil && crc == entry.CRC32 {
			logger.Info("file already downloaded, skipping", logrus.Fields{"file": destPath})
			return OutcomeSkipped, nil
		}
	}

	dataStart, err := a.dataStart(ctx, entry)
	if err != nil {
		return 0, err
	}

	if err := a.fetchAndVerify(ctx, entry, dataStart, destPath); err != nil {
		return 0, err
	}
	return OutcomeDownloaded, nil
}

// dataStart resolves the offset of the entry's compressed payload. The
// central directory does not carry it directly: the local file header must
// be consulted, since its name and extra-field lengths may legitimately
// differ from the central directory values.
func (a *Archive) dataStart(ctx context.Context, entry model.DirectoryEntry) (int64, error) {
	hdr, err := fetchExact(ctx, a.fetcher, a.ref.URL, int64(entry.HeaderOffset), localHeaderSize)
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "failed to fetch local header of %s", entry.Name)
	}
	if binary.LittleEndian.Uint32(hdr) != localSignature {
		return 0, fmt.Errorf("%w: bad local header signature for %s", ErrMalformedArchive, entry.Name)
	}
	nameLen := int64(binary.LittleEndian.Uint16(hdr[26:]))
	extraLen := int64(binary.LittleEndian.Uint16(hdr[28:]))

	start := int64(entry.HeaderOffset) + localHeaderSize + nameLen + extraLen
	if start+int64(entry.CompressedSize) > a.ref.Size {
		return 0, fmt.Errorf(
			"%w: entry %s data (offset %d, size %d) exceeds file size %d",
			ErrMalformedArchive, entry.Name, start, entry.CompressedSize, a.ref.Size)
	}
	return start, nil
}

func (a *Archive) fetchAndVerify(ctx context.Context, entry model.DirectoryEntry, dataStart int64, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), fsutil.DirModeDefault); err != nil {
		return pkgerrors.Wrap(err, "could not create destination directory")
	}
	tmp, err := os.CreateTemp(filepath.Dir(destPath), "dl-*.tmp")
	if err != nil {
		return pkgerrors.Wrap(err, "could not create temp file")
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	crc := crc32.NewIEEE()
	written, err := a.streamEntry(ctx, entry, dataStart, io.MultiWriter(tmp, crc))
	if err != nil {
		cleanup()
		return err
	}

	if written != int64(entry.UncompressedSize) {
		cleanup()
		return fmt.Errorf("%w: %s decompressed to %d bytes, expected %d",
			ErrTruncatedEntry, entry.Name, written, entry.UncompressedSize)
	}
	if crc.Sum32() != entry.CRC32 {
		cleanup()
		return fmt.Errorf("%w: %s has CRC32 %08x, expected %08x",
			ErrChecksumMismatch, entry.Name, crc.Sum32(), entry.CRC32)
	}

	if err := tmp.Sync(); err != nil {
		cleanup()
		return pkgerrors.Wrap(err, "could not sync file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return pkgerrors.Wrap(err, "could not close file")
	}
	if err := fsutil.Move(tmpPath, destPath); err != nil {
		_ = os.Remove(tmpPath)
		return pkgerrors.Wrap(err, "could not finalize file")
	}
	return nil
}

// streamEntry fetches the compressed payload and pipes it through the
// decompressor matching the entry's method.
func (a *Archive) streamEntry(ctx context.Context, entry model.DirectoryEntry, dataStart int64, dst io.Writer) (int64, error) {
	if entry.CompressedSize == 0 {
		// Empty entries have no payload to fetch.
		return 0, nil
	}

	body, err := a.fetcher.FetchRange(ctx, a.ref.URL, dataStart, dataStart+int64(entry.CompressedSize)-1)
	if err != nil {
		return 0, err
	}
	defer func() { _ = body.Close() }()

	var src io.Reader = &ctxReader{ctx: ctx, r: body}
	if entry.Method == model.CompressionDeflate {
		fr := flate.NewReader(src)
		defer func() { _ = fr.Close() }()
		src = fr
	}

	written, err := io.Copy(dst, src)
	if err != nil {
		return written, decodeError(entry.Name, err)
	}
	return written, nil
}

// decodeError maps decompressor failures onto the archive error kinds so the
// download manager can decide on retries.
func decodeError(name string, err error) error {
	var corrupt flate.CorruptInputError
	switch {
	case errors.As(err, &corrupt):
		return fmt.Errorf("%w: %s: corrupt deflate stream at offset %d", ErrChecksumMismatch, name, int64(corrupt))
	case errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("%w: %s: compressed stream ended early", ErrTruncatedEntry, name)
	default:
		return pkgerrors.Wrapf(err, "failed to extract %s", name)
	}
}

// ctxReader observes cancellation before each read so long downloads abort
// promptly.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
