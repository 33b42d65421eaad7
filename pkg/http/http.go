// Package http implements the HTTP transport used to talk to the catalog:
// authenticated GET requests and byte-range fetches against remote archives.
// It carries no retry logic; retries and token renewal are download manager
// policy.
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/remicres/theia-picker/pkg/auth"
	pkgerrors "github.com/remicres/theia-picker/pkg/errors"
	"github.com/remicres/theia-picker/pkg/logger"
	"github.com/sirupsen/logrus"
)

const defaultUserAgent = "theia-picker/1.0"

// TokenSource provides read-only token snapshots for outgoing requests.
// The client never mutates or renews tokens itself.
type TokenSource interface {
	Current() (auth.Token, error)
}

// RangeClient performs plain and byte-range HTTP requests with bearer
// authentication.
type RangeClient struct {
	client    *http.Client
	tokens    TokenSource
	userAgent string
}

// NewRangeClient creates a client with the given timeout. tokens may be nil
// for endpoints that do not require authentication.
func NewRangeClient(timeout time.Duration, tokens TokenSource) *RangeClient {
	return &RangeClient{
		client:    &http.Client{Timeout: timeout},
		tokens:    tokens,
		userAgent: defaultUserAgent,
	}
}

// FetchRange requests the inclusive byte range [start, end] of the remote
// file and returns a reader over exactly end-start+1 bytes.
func (c *RangeClient) FetchRange(ctx context.Context, rawURL string, start, end int64) (io.ReadCloser, error) {
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: bytes=%d-%d", ErrInvalidRange, start, end)
	}

	req, err := c.newRequest(ctx, http.MethodGet, rawURL)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))

	logger.Debug("range request", logrus.Fields{"url": rawURL, "start": start, "end": end})

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "range request failed")
	}

	switch resp.StatusCode {
	case http.StatusPartialContent:
		// The Theia server occasionally sends more bytes than the
		// requested span; cap the reader at the exact length.
		return newLimitedBody(resp.Body, end-start+1), nil
	case http.StatusOK:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrRangeNotHonored, rawURL)
	case http.StatusUnauthorized, http.StatusForbidden:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d", ErrAuthExpired, resp.StatusCode)
	case http.StatusRequestedRangeNotSatisfiable:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: bytes=%d-%d", ErrRangeNotSatisfiable, start, end)
	default:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
}

// Get performs an authenticated GET request. The caller owns the response
// body.
func (c *RangeClient) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodGet, rawURL)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "request failed")
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusPartialContent:
		return resp, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d", ErrAuthExpired, resp.StatusCode)
	default:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
}

// ContentLength determines the total size of the remote file. It tries a
// HEAD request first and falls back to a one-byte range request whose
// Content-Range header carries the total size.
func (c *RangeClient) ContentLength(ctx context.Context, rawURL string) (int64, error) {
	req, err := c.newRequest(ctx, http.MethodHead, rawURL)
	if err != nil {
		return 0, err
	}
	resp, err := c.client.Do(req)
	if err == nil {
		_ = resp.Body.Close()
		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return 0, fmt.Errorf("%w: status %d", ErrAuthExpired, resp.StatusCode)
		case resp.StatusCode == http.StatusOK && resp.ContentLength > 0:
			return resp.ContentLength, nil
		}
	}

	return c.sizeFromContentRange(ctx, rawURL)
}

func (c *RangeClient) sizeFromContentRange(ctx context.Context, rawURL string) (int64, error) {
	req, err := c.newRequest(ctx, http.MethodGet, rawURL)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Range", "bytes=0-0")
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, pkgerrors.Wrap(err, "size probe failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusPartialContent {
		return 0, fmt.Errorf("%w: size probe got status %d", ErrSizeUnknown, resp.StatusCode)
	}
	// Content-Range: bytes 0-0/12345
	cr := resp.Header.Get("Content-Range")
	idx := strings.LastIndexByte(cr, '/')
	if idx < 0 {
		return 0, fmt.Errorf("%w: missing Content-Range", ErrSizeUnknown)
	}
	size, err := strconv.ParseInt(cr[idx+1:], 10, 64)
	if err != nil || size <= 0 {
		return 0, fmt.Errorf("%w: bad Content-Range %q", ErrSizeUnknown, cr)
	}
	return size, nil
}

func (c *RangeClient) newRequest(ctx context.Context, method, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, http.NoBody)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	if c.tokens != nil {
		if tok, err := c.tokens.Current(); err == nil {
			if err := (auth.BearerAuth{Token: tok.Value}).Apply(req); err != nil {
				return nil, err
			}
		}
	}
	return req, nil
}

// limitedBody caps a response body at the requested span while still closing
// the underlying body.
type limitedBody struct {
	io.Reader
	closer io.Closer
}

func newLimitedBody(body io.ReadCloser, n int64) io.ReadCloser {
	return &limitedBody{Reader: io.LimitReader(body, n), closer: body}
}

func (l *limitedBody) Close() error { return l.closer.Close() }
