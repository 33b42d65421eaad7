package testutil

import (
	"archive/zip"
	"bytes"
	"testing"
)

// ZipEntry describes one entry of a test archive.
type ZipEntry struct {
	Name    string
	Content string
	// Store disables deflate compression for the entry.
	Store bool
}

// BuildZip writes the entries into an in-memory ZIP archive.
func BuildZip(t *testing.T, entries []ZipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		method := zip.Deflate
		if e.Store {
			method = zip.Store
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.Name, Method: method})
		if err != nil {
			t.Fatalf("failed to create zip entry %s: %v", e.Name, err)
		}
		if _, err := w.Write([]byte(e.Content)); err != nil {
			t.Fatalf("failed to write zip entry %s: %v", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close zip writer: %v", err)
	}
	return buf.Bytes()
}
