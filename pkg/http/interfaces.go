//go:generate mockgen -destination=mocks/http.go . Fetcher
package http

import (
	"context"
	"io"
	"net/http"
)

// Fetcher defines the interface for HTTP operations against the catalog and
// its archives. FetchRange is the only operation the remote archive reader
// needs; Get and ContentLength serve the catalog and index construction.
type Fetcher interface {
	// FetchRange requests the inclusive byte range [start, end] of the
	// remote file. The returned reader yields exactly end-start+1 bytes
	// (servers sending trailing garbage are truncated). It fails with
	// ErrRangeNotHonored when the server answers with a full-content
	// response and with ErrAuthExpired when the credentials are rejected.
	FetchRange(ctx context.Context, rawURL string, start, end int64) (io.ReadCloser, error)

	// Get performs an authenticated GET request.
	Get(ctx context.Context, rawURL string) (*http.Response, error)

	// ContentLength determines the total size of the remote file.
	ContentLength(ctx context.Context, rawURL string) (int64, error)
}
