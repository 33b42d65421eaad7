// Package auth provides authentication support for requests against the
// catalog: credential handling, token acquisition and coalesced token
// renewal.
//
//go:generate mockgen -destination=./mocks/auth.go . LoginClient
package auth

import (
	"net/http"
	"strings"
)

// Credentials holds the catalog account identity used to acquire tokens.
type Credentials struct {
	Ident    string
	Password string
}

// NewCredentials validates and returns a Credentials value.
func NewCredentials(ident, password string) (Credentials, error) {
	if strings.TrimSpace(ident) == "" || password == "" {
		return Credentials{}, ErrInvalidCredentials
	}
	return Credentials{Ident: ident, Password: password}, nil
}

// Authenticator defines the interface for applying authentication to HTTP
// requests.
type Authenticator interface {
	Apply(req *http.Request) error
}

// BearerAuth applies a Bearer token to the Authorization header.
type BearerAuth struct {
	Token string
}

// Apply adds the Bearer token to the Authorization header of the request.
func (b BearerAuth) Apply(req *http.Request) error {
	req.Header.Set("Authorization", "Bearer "+b.Token)
	return nil
}
