package http

import "fmt"

// Common transport errors.
var (
	// ErrAuthExpired is returned when the server rejects the current
	// credentials. Callers are expected to renew the token and retry.
	ErrAuthExpired = fmt.Errorf("authentication rejected by server")

	// ErrRangeNotHonored is returned when a byte-range request is answered
	// with a full-content response. Consuming such a response as if it
	// were partial would corrupt results, so it is refused.
	ErrRangeNotHonored = fmt.Errorf("server ignored range request")

	// ErrRangeNotSatisfiable is returned when the requested byte range
	// lies outside the remote file.
	ErrRangeNotSatisfiable = fmt.Errorf("requested range not satisfiable")

	// ErrInvalidRange is returned for malformed range arguments.
	ErrInvalidRange = fmt.Errorf("invalid byte range")

	// ErrUnexpectedStatus is returned for any other non-success status.
	ErrUnexpectedStatus = fmt.Errorf("unexpected status code")

	// ErrSizeUnknown is returned when the remote file size cannot be
	// determined.
	ErrSizeUnknown = fmt.Errorf("remote file size unknown")
)
