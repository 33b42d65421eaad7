package remotezip

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"context"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	pkghttp "github.com/remicres/theia-picker/pkg/http"
	"github.com/remicres/theia-picker/pkg/model"
	"github.com/remicres/theia-picker/test/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testEntries = []testutil.ZipEntry{
	{Name: "PRODUCT/A_FRE_B4.tif", Content: strings.Repeat("band4 pixel data ", 200)},
	{Name: "PRODUCT/A_FRE_B8.tif", Content: strings.Repeat("band8 pixel data ", 150)},
	{Name: "PRODUCT/MASKS/A_CLM_R1.tif", Content: "cloud mask", Store: true},
	{Name: "PRODUCT/empty.txt", Content: "", Store: true},
}

func newTestArchive(t *testing.T) (*Archive, *testutil.ArchiveServer) {
	t.Helper()
	data := testutil.BuildZip(t, testEntries)
	server := testutil.NewArchiveServer(t, data)
	client := pkghttp.NewRangeClient(5*time.Second, nil)

	archive, err := Build(context.Background(), client, server.URL)
	require.NoError(t, err)
	return archive, server
}

func TestBuild_Index(t *testing.T) {
	archive, _ := newTestArchive(t)

	entries := archive.Entries()
	require.Len(t, entries, len(testEntries))

	// Compare against what the stdlib reader sees.
	data := testutil.BuildZip(t, testEntries)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	for i, want := range zr.File {
		got := entries[i]
		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, want.CRC32, got.CRC32)
		assert.Equal(t, want.CompressedSize64, got.CompressedSize)
		assert.Equal(t, want.UncompressedSize64, got.UncompressedSize)
		assert.Equal(t, want.Method, uint16(got.Method))
	}

	assert.Equal(t, model.CompressionDeflate, entries[0].Method)
	assert.Equal(t, model.CompressionStored, entries[2].Method)
}

func TestBuild_OnlyFetchesDirectory(t *testing.T) {
	_, server := newTestArchive(t)

	// One HEAD for the size, one range for the tail. Small archives fit
	// entirely inside the tail window, so no further fetch is needed.
	assert.LessOrEqual(t, server.Requests(), 3)
}

func TestBuild_MalformedArchive(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "not a zip", data: bytes.Repeat([]byte("garbage data, no signature here"), 100)},
		{name: "too small", data: []byte("tiny")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := testutil.NewArchiveServer(t, tt.data)
			client := pkghttp.NewRangeClient(5*time.Second, nil)

			_, err := Build(context.Background(), client, server.URL)
			require.ErrorIs(t, err, ErrMalformedArchive)
		})
	}
}

func TestBuild_InconsistentRecordCount(t *testing.T) {
	data := testutil.BuildZip(t, testEntries)
	// The writer emits no archive comment, so the EOCD record occupies the
	// last 22 bytes. Bump the total-records field.
	pos := len(data) - eocdSize
	require.Equal(t, uint32(eocdSignature), binary.LittleEndian.Uint32(data[pos:]))
	count := binary.LittleEndian.Uint16(data[pos+10:])
	binary.LittleEndian.PutUint16(data[pos+10:], count+1)

	server := testutil.NewArchiveServer(t, data)
	client := pkghttp.NewRangeClient(5*time.Second, nil)

	_, err := Build(context.Background(), client, server.URL)
	require.ErrorIs(t, err, ErrMalformedArchive)
}

func TestEntry_FirstMatchWins(t *testing.T) {
	archive, _ := newTestArchive(t)

	entry, err := archive.Entry("PRODUCT/A_FRE_B4.tif")
	require.NoError(t, err)
	assert.Equal(t, "PRODUCT/A_FRE_B4.tif", entry.Name)

	_, err = archive.Entry("nope.tif")
	require.ErrorIs(t, err, ErrEntryNotFound)
}

func TestExtractEntry_RoundTrip(t *testing.T) {
	archive, _ := newTestArchive(t)
	dir := t.TempDir()

	for _, want := range testEntries {
		dest := filepath.Join(dir, filepath.Base(want.Name))
		outcome, err := archive.ExtractEntry(context.Background(), want.Name, dest)
		require.NoError(t, err, want.Name)
		assert.Equal(t, OutcomeDownloaded, outcome)

		got, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, want.Content, string(got))
	}
}

func TestExtractEntry_IdempotentSkip(t *testing.T) {
	archive, server := newTestArchive(t)
	dest := filepath.Join(t.TempDir(), "band4.tif")

	_, err := archive.ExtractEntry(context.Background(), testEntries[0].Name, dest)
	require.NoError(t, err)

	before := server.Requests()
	outcome, err := archive.ExtractEntry(context.Background(), testEntries[0].Name, dest)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)
	assert.Equal(t, before, server.Requests(), "skip must not touch the network")
}

func TestExtractEntry_UnsupportedCompression(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	// Bzip2, which this reader does not support. Written as a raw copy
	// just to get the method number into the directory.
	zw.RegisterCompressor(12, func(w io.Writer) (io.WriteCloser, error) {
		return nopWriteCloser{w}, nil
	})
	w, err := zw.CreateHeader(&zip.FileHeader{Name: "exotic.bin", Method: 12})
	require.NoError(t, err)
	_, err = w.Write([]byte("some payload"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	server := testutil.NewArchiveServer(t, buf.Bytes())
	client := pkghttp.NewRangeClient(5*time.Second, nil)
	archive, err := Build(context.Background(), client, server.URL)
	require.NoError(t, err)

	before := server.Requests()
	_, err = archive.ExtractEntry(context.Background(), "exotic.bin", filepath.Join(t.TempDir(), "exotic.bin"))
	require.ErrorIs(t, err, ErrUnsupportedCompression)
	assert.Equal(t, before, server.Requests(), "unsupported entries must fail before any fetch")
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func TestExtractEntry_ChecksumMismatch(t *testing.T) {
	archive, server := newTestArchive(t)
	dir := t.TempDir()
	dest := filepath.Join(dir, "mask.tif")

	// Flip a byte in every payload response; local header fetches are
	// exactly localHeaderSize bytes and must stay intact.
	server.SetCorrupt(func(_ int64, body []byte) []byte {
		if len(body) != localHeaderSize {
			body[0] ^= 0xff
		}
		return body
	})

	_, err := archive.ExtractEntry(context.Background(), "PRODUCT/MASKS/A_CLM_R1.tif", dest)
	require.ErrorIs(t, err, ErrChecksumMismatch)

	assertNoFiles(t, dir)
}

func TestExtractEntry_TruncatedEntry(t *testing.T) {
	archive, server := newTestArchive(t)
	dir := t.TempDir()
	dest := filepath.Join(dir, "mask.tif")

	server.SetCorrupt(func(_ int64, body []byte) []byte {
		if len(body) != localHeaderSize {
			return body[:len(body)/2]
		}
		return body
	})

	_, err := archive.ExtractEntry(context.Background(), "PRODUCT/MASKS/A_CLM_R1.tif", dest)
	require.ErrorIs(t, err, ErrTruncatedEntry)

	assertNoFiles(t, dir)
}

func TestExtractEntry_RangeNotHonored(t *testing.T) {
	archive, server := newTestArchive(t)
	server.SetHonorRanges(false)

	_, err := archive.ExtractEntry(context.Background(), testEntries[0].Name, filepath.Join(t.TempDir(), "band4.tif"))
	require.ErrorIs(t, err, pkghttp.ErrRangeNotHonored)
}

func TestExtractEntry_FetchesExactPayloadRange(t *testing.T) {
	archive, server := newTestArchive(t)
	data := testutil.BuildZip(t, testEntries)

	entry, err := archive.Entry(testEntries[0].Name)
	require.NoError(t, err)

	_, err = archive.ExtractEntry(context.Background(), testEntries[0].Name, filepath.Join(t.TempDir(), "band4.tif"))
	require.NoError(t, err)

	// The last range request is the payload fetch. Re-reading those bytes
	// from the full archive copy must yield the entry's compressed data.
	ranges := server.Ranges()
	require.NotEmpty(t, ranges)
	start, end := parseRangeHeader(t, ranges[len(ranges)-1])
	require.Equal(t, int64(entry.CompressedSize), end-start+1)

	fr := flate.NewReader(bytes.NewReader(data[start : end+1]))
	content, err := io.ReadAll(fr)
	require.NoError(t, err)
	assert.Equal(t, testEntries[0].Content, string(content))
}

func TestExtractEntry_EmptyEntry(t *testing.T) {
	archive, _ := newTestArchive(t)
	dest := filepath.Join(t.TempDir(), "empty.txt")

	outcome, err := archive.ExtractEntry(context.Background(), "PRODUCT/empty.txt", dest)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDownloaded, outcome)

	st, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Zero(t, st.Size())
}

func TestExtractEntry_Cancelled(t *testing.T) {
	archive, _ := newTestArchive(t)
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := archive.ExtractEntry(ctx, testEntries[0].Name, filepath.Join(dir, "band4.tif"))
	require.Error(t, err)
	assertNoFiles(t, dir)
}

func TestApplyZip64Extra(t *testing.T) {
	extra := make([]byte, 4+24)
	binary.LittleEndian.PutUint16(extra, zip64ExtraID)
	binary.LittleEndian.PutUint16(extra[2:], 24)
	binary.LittleEndian.PutUint64(extra[4:], 5_000_000_000)  // uncompressed
	binary.LittleEndian.PutUint64(extra[12:], 4_900_000_000) // compressed
	binary.LittleEndian.PutUint64(extra[20:], 123_456_789)   // header offset

	uncomp, comp, offset := applyZip64Extra(extra, zip64Marker, zip64Marker, zip64Marker)
	assert.Equal(t, uint64(5_000_000_000), uncomp)
	assert.Equal(t, uint64(4_900_000_000), comp)
	assert.Equal(t, uint64(123_456_789), offset)

	// Fields not holding the marker keep their 32-bit values.
	uncomp, comp, offset = applyZip64Extra(extra, 42, 21, zip64Marker)
	assert.Equal(t, uint64(42), uncomp)
	assert.Equal(t, uint64(21), comp)
	assert.Equal(t, uint64(5_000_000_000), offset, "first stored value maps to the first marker field")
}

func assertNoFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no destination or temp file may be left behind")
}

func parseRangeHeader(t *testing.T, header string) (start, end int64) {
	t.Helper()
	spec, ok := strings.CutPrefix(header, "bytes=")
	require.True(t, ok, header)
	parts := strings.SplitN(spec, "-", 2)
	require.Len(t, parts, 2, header)
	start, err := strconv.ParseInt(parts[0], 10, 64)
	require.NoError(t, err)
	end, err = strconv.ParseInt(parts[1], 10, 64)
	require.NoError(t, err)
	return start, end
}
