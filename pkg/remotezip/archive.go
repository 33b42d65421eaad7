// Package remotezip reads individual entries out of ZIP archives hosted
// behind an HTTP server, without downloading the archive in full. The central
// directory is fetched once via byte-range requests and parsed into an
// immutable index; entries are then extracted one by one through streaming
// range fetches.
package remotezip

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"

	pkgerrors "github.com/remicres/theia-picker/pkg/errors"
	"github.com/remicres/theia-picker/pkg/http"
	"github.com/remicres/theia-picker/pkg/logger"
	"github.com/remicres/theia-picker/pkg/model"
	"github.com/sirupsen/logrus"
)

// ZIP record signatures and fixed record sizes (little-endian on the wire).
const (
	eocdSignature        = 0x06054b50
	zip64EOCDSignature   = 0x06064b50
	centralSignature     = 0x02014b50
	localSignature       = 0x04034b50

	eocdSize          = 22
	zip64EOCDSize     = 56
	centralHeaderSize = 46
	localHeaderSize   = 30

	// maxCommentSize bounds the trailing window scanned for the
	// end-of-central-directory record (the archive comment may push the
	// record up to 64KB away from the end of the file).
	maxCommentSize = 0xffff

	zip64ExtraID = 0x0001
	zip64Marker  = 0xffffffff
)

// Archive is an immutable index over a remote ZIP file. It is built once and
// may be shared freely by concurrent extractions.
type Archive struct {
	ref     model.ArchiveRef
	fetcher http.Fetcher
	entries []model.DirectoryEntry
	byName  map[string]int
}

// Build downloads and parses the central directory of the archive at rawURL.
// Only the trailing window and the directory itself are fetched; the archive
// payload is left untouched.
func Build(ctx context.Context, fetcher http.Fetcher, rawURL string) (*Archive, error) {
	size, err := fetcher.ContentLength(ctx, rawURL)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to determine archive size")
	}

	tail, tailStart, err := fetchTail(ctx, fetcher, rawURL, size)
	if err != nil {
		return nil, err
	}

	cdOffset, cdSize, cdCount, err := locateCentralDirectory(tail, tailStart, size)
	if err != nil {
		return nil, err
	}
	logger.Debug("located central directory", logrus.Fields{
		"offset": cdOffset, "size": cdSize, "records": cdCount,
	})

	var cd []byte
	if cdOffset >= tailStart && cdOffset+cdSize <= uint64(size) {
		// Small archives: the directory is already inside the tail window.
		cd = tail[cdOffset-tailStart : cdOffset-tailStart+cdSize]
	} else {
		cd, err = fetchExact(ctx, fetcher, rawURL, int64(cdOffset), int64(cdSize))
		if err != nil {
			return nil, pkgerrors.Wrap(err, "failed to fetch central directory")
		}
	}

	entries, err := parseCentralDirectory(cd, cdCount)
	if err != nil {
		return nil, err
	}

	a := &Archive{
		ref:     model.ArchiveRef{URL: rawURL, Size: size},
		fetcher: fetcher,
		entries: entries,
		byName:  make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		// First match wins for duplicate names.
		if _, ok := a.byName[e.Name]; !ok {
			a.byName[e.Name] = i
		}
	}
	return a, nil
}

// Ref returns the archive reference (URL and total size).
func (a *Archive) Ref() model.ArchiveRef { return a.ref }

// Entries returns the directory entries in archive order. The returned slice
// must not be mutated.
func (a *Archive) Entries() []model.DirectoryEntry { return a.entries }

// Names returns the entry names in archive order.
func (a *Archive) Names() []string {
	names := make([]string, len(a.entries))
	for i, e := range a.entries {
		names[i] = e.Name
	}
	return names
}

// Entry returns the first directory entry named name.
func (a *Archive) Entry(name string) (model.DirectoryEntry, error) {
	i, ok := a.byName[name]
	if !ok {
		return model.DirectoryEntry{}, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}
	return a.entries[i], nil
}

// fetchTail fetches the trailing EOCD lookup window of the archive.
func fetchTail(ctx context.Context, fetcher http.Fetcher, rawURL string, size int64) ([]byte, uint64, error) {
	if size < eocdSize {
		return nil, 0, fmt.Errorf("%w: file too small (%d bytes)", ErrMalformedArchive, size)
	}
	window := int64(eocdSize + maxCommentSize)
	if window > size {
		window = size
	}
	start := size - window
	buf, err := fetchExact(ctx, fetcher, rawURL, start, window)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(err, "failed to fetch archive tail")
	}
	return buf, uint64(start), nil
}

func fetchExact(ctx context.Context, fetcher http.Fetcher, rawURL string, start, length int64) ([]byte, error) {
	body, err := fetcher.FetchRange(ctx, rawURL, start, start+length-1)
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()

	buf, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if int64(len(buf)) != length {
		return nil, fmt.Errorf("%w: got %d bytes for a %d byte range", ErrMalformedArchive, len(buf), length)
	}
	return buf, nil
}

// locateCentralDirectory scans the tail window backwards for the
// end-of-central-directory record and returns the directory offset, size and
// record count. ZIP64 archives are recognized through the marker values and
// resolved against the ZIP64 EOCD record.
func locateCentralDirectory(tail []byte, tailStart uint64, size int64) (offset, cdSize, count uint64, err error) {
	pos := -1
	for i := len(tail) - eocdSize; i >= 0; i-- {
		if binary.LittleEndian.Uint32(tail[i:]) == eocdSignature {
			pos = i
			break
		}
	}
	if pos < 0 {
		return 0, 0, 0, fmt.Errorf("%w: end of central directory not found", ErrMalformedArchive)
	}

	count = uint64(binary.LittleEndian.Uint16(tail[pos+10:]))
	cdSize = uint64(binary.LittleEndian.Uint32(tail[pos+12:]))
	offset = uint64(binary.LittleEndian.Uint32(tail[pos+16:]))

	if count == 0xffff || cdSize == zip64Marker || offset == zip64Marker {
		offset, cdSize, count, err = locateZip64Directory(tail)
		if err != nil {
			return 0, 0, 0, err
		}
	}

	if offset+cdSize > uint64(size) {
		return 0, 0, 0, fmt.Errorf(
			"%w: central directory (offset %d, size %d) exceeds file size %d",
			ErrMalformedArchive, offset, cdSize, size)
	}
	return offset, cdSize, count, nil
}

func locateZip64Directory(tail []byte) (offset, cdSize, count uint64, err error) {
	for i := len(tail) - zip64EOCDSize; i >= 0; i-- {
		if binary.LittleEndian.Uint32(tail[i:]) == zip64EOCDSignature {
			count = binary.LittleEndian.Uint64(tail[i+32:])
			cdSize = binary.LittleEndian.Uint64(tail[i+40:])
			offset = binary.LittleEndian.Uint64(tail[i+48:])
			return offset, cdSize, count, nil
		}
	}
	return 0, 0, 0, fmt.Errorf("%w: ZIP64 end of central directory not found", ErrMalformedArchive)
}

// parseCentralDirectory walks the central directory buffer and decodes one
// DirectoryEntry per record. Unsupported compression methods are recorded as
// such and rejected lazily at extraction time.
func parseCentralDirectory(cd []byte, expected uint64) ([]model.DirectoryEntry, error) {
	entries := make([]model.DirectoryEntry, 0, expected)
	pos := 0
	for pos+centralHeaderSize <= len(cd) {
		rec := cd[pos:]
		if binary.LittleEndian.Uint32(rec) != centralSignature {
			return nil, fmt.Errorf("%w: bad central directory signature at offset %d", ErrMalformedArchive, pos)
		}

		method := model.CompressionMethod(binary.LittleEndian.Uint16(rec[10:]))
		crc := binary.LittleEndian.Uint32(rec[16:])
		compSize := uint64(binary.LittleEndian.Uint32(rec[20:]))
		uncompSize := uint64(binary.LittleEndian.Uint32(rec[24:]))
		nameLen := int(binary.LittleEndian.Uint16(rec[28:]))
		extraLen := int(binary.LittleEndian.Uint16(rec[30:]))
		commentLen := int(binary.LittleEndian.Uint16(rec[32:]))
		headerOffset := uint64(binary.LittleEndian.Uint32(rec[42:]))

		recLen := centralHeaderSize + nameLen + extraLen + commentLen
		if pos+recLen > len(cd) {
			return nil, fmt.Errorf("%w: central directory record truncated at offset %d", ErrMalformedArchive, pos)
		}
		name := string(rec[centralHeaderSize : centralHeaderSize+nameLen])
		extra := rec[centralHeaderSize+nameLen : centralHeaderSize+nameLen+extraLen]

		uncompSize, compSize, headerOffset = applyZip64Extra(extra, uncompSize, compSize, headerOffset)

		entries = append(entries, model.DirectoryEntry{
			Name:             name,
			Method:           method,
			CRC32:            crc,
			CompressedSize:   compSize,
			UncompressedSize: uncompSize,
			HeaderOffset:     headerOffset,
		})
		pos += recLen
	}

	if pos != len(cd) {
		return nil, fmt.Errorf("%w: %d trailing bytes after central directory", ErrMalformedArchive, len(cd)-pos)
	}
	if uint64(len(entries)) != expected {
		return nil, fmt.Errorf("%w: expected %d directory records, parsed %d", ErrMalformedArchive, expected, len(entries))
	}
	return entries, nil
}

// applyZip64Extra resolves 32-bit marker values against the ZIP64 extended
// information extra field. Values appear in a fixed order, each present only
// when the corresponding 32-bit field holds the marker.
func applyZip64Extra(extra []byte, uncompSize, compSize, headerOffset uint64) (uint64, uint64, uint64) {
	for len(extra) >= 4 {
		fieldID := binary.LittleEndian.Uint16(extra)
		fieldLen := int(binary.LittleEndian.Uint16(extra[2:]))
		if 4+fieldLen > len(extra) {
			break
		}
		if fieldID == zip64ExtraID {
			field := extra[4 : 4+fieldLen]
			if uncompSize == zip64Marker && len(field) >= 8 {
				uncompSize = binary.LittleEndian.Uint64(field)
				field = field[8:]
			}
			if compSize == zip64Marker && len(field) >= 8 {
				compSize = binary.LittleEndian.Uint64(field)
				field = field[8:]
			}
			if headerOffset == zip64Marker && len(field) >= 8 {
				headerOffset = binary.LittleEndian.Uint64(field)
			}
		}
		extra = extra[4+fieldLen:]
	}
	return uncompSize, compSize, headerOffset
}
