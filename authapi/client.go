// Package authapi is the HTTP client for the kubedeck auth plane. It covers
// only the three endpoints the session layer consumes: verify, refresh, and
// best-effort logout.
package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	verifyPath  = "/v1/auth/verify"
	refreshPath = "/v1/auth/refresh"
	logoutPath  = "/v1/auth/logout"

	defaultTimeout = 10 * time.Second
)

// VerifyResult is the auth API's answer to a token verification request.
// Optional fields are pointers so "absent" and "zero" stay distinguishable.
type VerifyResult struct {
	Valid    bool    `json:"valid"`
	Username *string `json:"username,omitempty"`
	ID       *int64  `json:"id,omitempty"`
	Email    *string `json:"email,omitempty"`
	Role     *string `json:"role,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// RefreshResult carries the replacement access token, when the server
// granted one.
type RefreshResult struct {
	AccessToken *string `json:"access_token,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Client calls the kubedeck auth API over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

func NewClient(baseURL string, options ...ClientOption) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, MissingBaseURLErr
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}

	for _, opt := range options {
		opt(c)
	}

	return c, nil
}

// VerifyToken asks the server whether the access token is still good. A
// clean "no" from the server decodes into Valid=false rather than an error;
// errors are reserved for transport and protocol failures.
func (c *Client) VerifyToken(ctx context.Context, accessToken string) (*VerifyResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+verifyPath, nil)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.VerifyToken] NewRequest")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.VerifyToken] Do")
	}
	defer drainAndClose(resp.Body)

	// The server answers 401 with {valid:false} for dead tokens.
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &VerifyResult{Valid: false}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(UnexpectedStatusErr, "[Client.VerifyToken] status %d", resp.StatusCode)
	}

	var result VerifyResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "[Client.VerifyToken] Decode")
	}
	return &result, nil
}

// RefreshToken exchanges the refresh token for a new access token. A server
// rejection surfaces as a result without an access token, not as an error.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	body, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, errors.Wrap(err, "[Client.RefreshToken] Marshal")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+refreshPath, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "[Client.RefreshToken] NewRequest")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.RefreshToken] Do")
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &RefreshResult{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(UnexpectedStatusErr, "[Client.RefreshToken] status %d", resp.StatusCode)
	}

	var result RefreshResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "[Client.RefreshToken] Decode")
	}
	return &result, nil
}

// Logout revokes the refresh token server-side. Callers treat the result as
// best-effort.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	body, err := json.Marshal(logoutRequest{RefreshToken: refreshToken})
	if err != nil {
		return errors.Wrap(err, "[Client.Logout] Marshal")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+logoutPath, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "[Client.Logout] NewRequest")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "[Client.Logout] Do")
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return errors.Wrapf(UnexpectedStatusErr, "[Client.Logout] status %d", resp.StatusCode)
	}
	return nil
}

// drainAndClose lets the transport reuse the connection.
func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4096))
	_ = body.Close()
}
