package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/remicres/theia-picker/pkg/errors"
	"github.com/remicres/theia-picker/pkg/logger"
	"github.com/sirupsen/logrus"
)

// DefaultAuthEndpoint is the token issuance endpoint of the Theia
// distribution service.
const DefaultAuthEndpoint = "https://theia.cnes.fr/atdistrib/services/authenticate/"

const loginTimeout = 10 * time.Second

// RestoLogin acquires tokens from the Theia authentication endpoint. The
// endpoint returns the bare token string in the response body; valid tokens
// are UUIDs.
type RestoLogin struct {
	client   *http.Client
	endpoint string
}

// NewRestoLogin creates a login client for the given endpoint. An empty
// endpoint selects DefaultAuthEndpoint.
func NewRestoLogin(endpoint string) *RestoLogin {
	if endpoint == "" {
		endpoint = DefaultAuthEndpoint
	}
	return &RestoLogin{
		client:   &http.Client{Timeout: loginTimeout},
		endpoint: endpoint,
	}
}

// Login posts the credentials and returns the issued token string.
func (l *RestoLogin) Login(ctx context.Context, creds Credentials) (string, error) {
	logger.Debug("requesting token", logrus.Fields{"endpoint": l.endpoint})

	form := url.Values{}
	form.Set("ident", creds.Ident)
	form.Set("pass", creds.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", pkgerrors.Wrap(err, "failed to create login request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAuthFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %w", ErrAuthFailure, err)
	}
	token := strings.TrimSpace(string(body))

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: unexpected status code %d: %s", ErrAuthFailure, resp.StatusCode, token)
	}

	// The endpoint answers 200 with an HTML error page when the
	// credentials are wrong, so the body must be checked as well.
	if _, err := uuid.Parse(token); err != nil {
		return "", fmt.Errorf("%w: response is not a valid token, check your credentials", ErrAuthFailure)
	}

	return token, nil
}
