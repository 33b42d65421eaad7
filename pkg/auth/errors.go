package auth

import "fmt"

// Common authentication errors.
var (
	// ErrAuthFailure is returned when the authentication endpoint rejects
	// the credentials or returns an unusable token. It is fatal for all
	// pending operations that need authentication.
	ErrAuthFailure = fmt.Errorf("authentication failed")

	// ErrInvalidCredentials is returned when credentials are missing a
	// required field.
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// ErrNoToken is returned by Current when no token has been acquired yet.
	ErrNoToken = fmt.Errorf("no token available")
)
