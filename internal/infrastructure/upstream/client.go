// Package upstream implements the REST client for the coffee-service
// backend. The backend is a black box honoring the documented endpoints;
// every failure is surfaced as a *domain.RequestError carrying the HTTP
// status, the machine-readable code when the backend emits one, and the raw
// message for the legacy classification path.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/brewpoint/pos-edge/internal/core/domain"
	"github.com/brewpoint/pos-edge/internal/core/ports"
)

const defaultTimeout = 12 * time.Second

// Client talks to the coffee backend over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient creates a backend client. timeout bounds every call; zero
// falls back to the 12-second default.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// errorEnvelope is the backend's error body. Newer backend versions emit
// code; older ones only a message (or error).
type errorEnvelope struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Login authenticates with credentials. POST auth/login.
func (c *Client) Login(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	body, err := c.postJSON(ctx, "auth/login", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refreshToken"`
		ExpiresIn    int    `json:"expiresIn"`
		User         struct {
			Subject     string `json:"subject"`
			Username    string `json:"username"`
			DisplayName string `json:"display_name"`
			Role        string `json:"role"`
		} `json:"user"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &domain.RequestError{Status: http.StatusOK, Message: "malformed login response", Err: err}
	}

	display := resp.User.DisplayName
	if display == "" {
		display = resp.User.Username
	}
	return &ports.LoginResult{
		Token:        resp.Token,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
		User: domain.UserIdentity{
			Subject:     resp.User.Subject,
			DisplayName: display,
			Role:        domain.Role(resp.User.Role),
		},
	}, nil
}

// Refresh exchanges a refresh token for a new access token. POST
// auth/refresh. A 401 means the refresh token itself is rejected.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*ports.RefreshResult, error) {
	body, err := c.postJSON(ctx, "auth/refresh", map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Token     string `json:"token"`
		ExpiresIn int    `json:"expiresIn"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &domain.RequestError{Status: http.StatusOK, Message: "malformed refresh response", Err: err}
	}
	return &ports.RefreshResult{Token: resp.Token, ExpiresIn: resp.ExpiresIn}, nil
}

// Logout notifies the backend. POST auth/logout. Best-effort: callers
// ignore the error beyond logging.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	_, err := c.postJSON(ctx, "auth/logout", map[string]string{"refreshToken": refreshToken})
	return err
}

// Do executes a bearer-authenticated resource call.
func (c *Client) Do(ctx context.Context, req ports.UpstreamRequest) (*ports.UpstreamResponse, error) {
	var reader io.Reader
	if len(req.Body) > 0 {
		reader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.url(req.Key), reader)
	if err != nil {
		return nil, &domain.RequestError{Transport: true, Message: err.Error(), Err: err}
	}
	if len(req.Body) > 0 {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}
	if req.OperationID != "" {
		httpReq.Header.Set("X-Operation-ID", req.OperationID)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.log.Warn().Err(err).Str("endpoint", req.Key).Dur("duration", time.Since(start)).Msg("upstream call failed")
		return nil, &domain.RequestError{Transport: true, Message: err.Error(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.RequestError{Transport: true, Message: err.Error(), Err: err}
	}

	c.log.Debug().
		Str("endpoint", req.Key).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("upstream call completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.requestError(resp.StatusCode, payload)
	}

	return &ports.UpstreamResponse{Status: resp.StatusCode, Body: payload}, nil
}

// Probe checks backend reachability. GET health.
func (c *Client) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("health"), nil)
	if err != nil {
		return &domain.RequestError{Transport: true, Message: err.Error(), Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &domain.RequestError{Transport: true, Message: err.Error(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &domain.RequestError{Status: resp.StatusCode, Message: "health probe failed"}
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, key string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", key, err)
	}

	resp, err := c.Do(ctx, ports.UpstreamRequest{
		Method: http.MethodPost,
		Key:    key,
		Body:   body,
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// requestError decodes the backend error body into a structured error,
// falling back to the raw text when the body is not the known envelope.
func (c *Client) requestError(status int, payload []byte) *domain.RequestError {
	var env errorEnvelope
	message := strings.TrimSpace(string(payload))
	if err := json.Unmarshal(payload, &env); err == nil {
		if env.Message != "" {
			message = env.Message
		} else if env.Error != "" {
			message = env.Error
		}
	}
	return &domain.RequestError{Status: status, Code: env.Code, Message: message}
}

func (c *Client) url(key string) string {
	return c.baseURL + "/" + strings.TrimLeft(key, "/")
}
