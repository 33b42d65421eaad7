// Package testutil provides HTTP test servers mimicking the catalog's
// archive endpoint, with byte-range support, bearer token checks and fault
// injection for download tests.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// ArchiveServer serves a byte blob over HTTP with range-request support.
type ArchiveServer struct {
	*httptest.Server

	mu       sync.Mutex
	data     []byte
	token    string
	honor    bool
	requests int
	ranges   []string
	corrupt  func(start int64, body []byte) []byte
}

// NewArchiveServer starts a server for the given blob. The server honors
// range requests by default. Close is registered as a test cleanup.
func NewArchiveServer(t *testing.T, data []byte) *ArchiveServer {
	t.Helper()
	s := &ArchiveServer{data: data, honor: true}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Server.Close)
	return s
}

// SetToken makes the server require the given bearer token.
func (s *ArchiveServer) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// SetHonorRanges controls whether range requests are answered with partial
// content or with the full blob.
func (s *ArchiveServer) SetHonorRanges(honor bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.honor = honor
}

// SetCorrupt installs a hook that may alter the body of range responses.
func (s *ArchiveServer) SetCorrupt(corrupt func(start int64, body []byte) []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.corrupt = corrupt
}

// Requests returns the number of requests served so far.
func (s *ArchiveServer) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// Ranges returns the Range headers seen so far, in order.
func (s *ArchiveServer) Ranges() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ranges...)
}

func (s *ArchiveServer) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests++
	rangeHeader := r.Header.Get("Range")
	if rangeHeader != "" {
		s.ranges = append(s.ranges, rangeHeader)
	}
	token, honor, corrupt := s.token, s.honor, s.corrupt
	data := s.data
	s.mu.Unlock()

	if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	if r.Method == http.MethodHead {
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusOK)
		return
	}

	if rangeHeader == "" || !honor {
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	start, end, ok := parseRange(rangeHeader, int64(len(data)))
	if !ok {
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	body := append([]byte(nil), data[start:end+1]...)
	if corrupt != nil {
		body = corrupt(start, body)
	}
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, len(data)))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusPartialContent)
	_, _ = w.Write(body)
}

// parseRange parses "bytes=a-b" and "bytes=a-" headers.
func parseRange(header string, size int64) (start, end int64, ok bool) {
	spec, found := strings.CutPrefix(header, "bytes=")
	if !found {
		return 0, 0, false
	}
	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	start, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || start < 0 || start >= size {
		return 0, 0, false
	}
	end = size - 1
	if parts[1] != "" {
		if end, err = strconv.ParseInt(parts[1], 10, 64); err != nil || end < start {
			return 0, 0, false
		}
		if end >= size {
			end = size - 1
		}
	}
	return start, end, true
}
