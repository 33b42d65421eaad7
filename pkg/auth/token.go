package auth

import (
	"context"
	"sync"
	"time"
)

// Token is an opaque authentication credential plus its issuance time.
// Tokens are owned by the TokenManager; callers borrow read-only snapshots.
type Token struct {
	Value    string
	IssuedAt time.Time
}

// LoginClient defines the interface to the external authentication endpoint.
type LoginClient interface {
	// Login exchanges credentials for a fresh token string.
	Login(ctx context.Context, creds Credentials) (string, error)
}

// TokenManager holds the current token and renews it on demand. Concurrent
// renewal requests are coalesced: a renewal already in flight is awaited
// rather than duplicated, so the authentication endpoint sees exactly one
// call per expiry.
type TokenManager struct {
	login LoginClient
	creds Credentials

	mu       sync.Mutex
	token    Token
	inFlight *renewal
}

type renewal struct {
	done  chan struct{}
	token Token
	err   error
}

// NewTokenManager creates a token manager around the given login client.
func NewTokenManager(login LoginClient, creds Credentials) *TokenManager {
	return &TokenManager{login: login, creds: creds}
}

// Current returns the current token without any network access. It returns
// ErrNoToken when no token has been acquired yet.
func (m *TokenManager) Current() (Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token.Value == "" {
		return Token{}, ErrNoToken
	}
	return m.token, nil
}

// Token returns the current token, renewing it first when none is held yet.
func (m *TokenManager) Token(ctx context.Context) (Token, error) {
	if tok, err := m.Current(); err == nil {
		return tok, nil
	}
	return m.Renew(ctx)
}

// Renew replaces the held token with a fresh one from the login client.
// When a renewal is already in flight the caller waits for its result
// instead of triggering a second login.
func (m *TokenManager) Renew(ctx context.Context) (Token, error) {
	m.mu.Lock()
	if r := m.inFlight; r != nil {
		m.mu.Unlock()
		select {
		case <-r.done:
			return r.token, r.err
		case <-ctx.Done():
			return Token{}, ctx.Err()
		}
	}
	r := &renewal{done: make(chan struct{})}
	m.inFlight = r
	m.mu.Unlock()

	value, err := m.login.Login(ctx, m.creds)

	m.mu.Lock()
	if err != nil {
		r.err = err
	} else {
		m.token = Token{Value: value, IssuedAt: time.Now()}
		r.token = m.token
	}
	m.inFlight = nil
	m.mu.Unlock()
	close(r.done)

	return r.token, r.err
}
