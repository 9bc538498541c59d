// Package apiclient implements the backend API client used by the desktop
// agent over HTTP.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/focuslab/focusguard/internal/api"
)

type HTTPClient struct {
	baseURL     string
	accessToken string
	client      *http.Client
}

func NewHTTPClient(baseURL, accessToken string) api.Client {
	return &HTTPClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *HTTPClient) StartSession(ctx context.Context) (*api.SessionPayload, error) {
	return c.sessionRequest(ctx, http.MethodPost, "/api/sessions/start")
}

func (c *HTTPClient) ActivateSession(ctx context.Context, sessionID string) (*api.SessionPayload, error) {
	return c.sessionRequest(ctx, http.MethodPatch, "/api/sessions/"+sessionID+"/activate")
}

func (c *HTTPClient) StopSession(ctx context.Context, sessionID string) (*api.SessionPayload, error) {
	return c.sessionRequest(ctx, http.MethodPost, "/api/sessions/"+sessionID+"/stop")
}

func (c *HTTPClient) CurrentSession(ctx context.Context) (*api.SessionPayload, error) {
	return c.sessionRequest(ctx, http.MethodGet, "/api/sessions/current")
}

func (c *HTTPClient) LiveStatus(ctx context.Context) (*api.ActivityPayload, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/sessions/live-status")
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if err := statusError(resp.StatusCode); err != nil {
		return nil, err
	}

	var activity api.ActivityPayload
	if err := json.NewDecoder(resp.Body).Decode(&activity); err != nil {
		return nil, fmt.Errorf("decode live status: %w", err)
	}
	return &activity, nil
}

func (c *HTTPClient) sessionRequest(ctx context.Context, method, path string) (*api.SessionPayload, error) {
	resp, err := c.do(ctx, method, path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if err := statusError(resp.StatusCode); err != nil {
		return nil, err
	}

	var body api.SessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode session response: %w", err)
	}
	return &body.Session, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func statusError(statusCode int) error {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return api.ErrUnauthorized
	case statusCode == http.StatusNotFound:
		return api.ErrNotFound
	case statusCode == http.StatusBadRequest:
		return api.ErrValidation
	default:
		return fmt.Errorf("backend returned status %d", statusCode)
	}
}
