// Package auth resolves bearer credentials to owner identities.
//
// Identity lives in an external auth provider; this service only verifies a
// token by asking the provider for the user it belongs to. No sessions, no
// token parsing, no caching.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrMissingToken indicates the request carried no bearer credential.
	ErrMissingToken = errors.New("missing authorization header")

	// ErrUnauthorized indicates the credential failed verification.
	ErrUnauthorized = errors.New("unauthorized")
)

// Resolver maps a bearer token to the owner it authenticates.
type Resolver interface {
	Resolve(ctx context.Context, token string) (uuid.UUID, error)
}

// Client verifies tokens against the auth provider's user endpoint.
type Client struct {
	userURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a Client.
//
// userURL is the provider's authenticated-user endpoint; apiKey is the
// project key the provider expects alongside the bearer token.
func NewClient(userURL, apiKey string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		userURL: userURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

// Resolve verifies the token with the auth provider and returns the user ID.
// Any verification failure, including provider errors, maps to
// ErrUnauthorized; callers never learn why a token was rejected.
func (c *Client) Resolve(ctx context.Context, token string) (uuid.UUID, error) {
	if strings.TrimSpace(token) == "" {
		return uuid.Nil, ErrMissingToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userURL, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("auth provider unreachable", "error", err)
		return uuid.Nil, fmt.Errorf("%w: provider request failed", ErrUnauthorized)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return uuid.Nil, fmt.Errorf("%w: provider returned %d", ErrUnauthorized, resp.StatusCode)
	}

	var user struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&user); err != nil {
		return uuid.Nil, fmt.Errorf("%w: decoding provider response: %v", ErrUnauthorized, err)
	}

	ownerID, err := uuid.Parse(user.ID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: provider returned invalid user id", ErrUnauthorized)
	}
	return ownerID, nil
}

// BearerToken extracts the credential from an Authorization header value.
// Returns the empty string when the header is absent or not a bearer scheme.
func BearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
