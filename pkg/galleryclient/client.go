// Package galleryclient is a Go client for the gallery-server HTTP API.
package galleryclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"chartgallery/internal/domain"
	"chartgallery/internal/gallery"
	"chartgallery/internal/httpapi"
)

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gallery-server: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("gallery-server: HTTP %d: %s", e.StatusCode, e.Message)
}

// Client provides a Go SDK for interacting with the gallery-server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new gallery API client. Generation runs synchronously
// on the server, so the default timeout is generous.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Minute},
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// Generate asks the server to forecast symbols with years of history and a
// horizon of days.
func (c *Client) Generate(ctx context.Context, symbols []string, years float64, days int) error {
	req := httpapi.GenerateRequest{Symbols: symbols, Years: &years, Days: &days}
	var resp httpapi.Response
	return c.do(ctx, http.MethodPost, "/generate", req, &resp)
}

// Delete removes the artifact with the given filename.
func (c *Client) Delete(ctx context.Context, filename string) error {
	var resp httpapi.Response
	return c.do(ctx, http.MethodPost, "/delete", httpapi.DeleteRequest{Filename: filename}, &resp)
}

// Charts returns the grouped chart listing.
func (c *Client) Charts(ctx context.Context) (*gallery.Index, error) {
	var idx gallery.Index
	if err := c.do(ctx, http.MethodGet, "/api/charts", nil, &idx); err != nil {
		return nil, err
	}
	return &idx, nil
}

// Runs returns up to limit recent pipeline runs, newest first. limit <= 0
// uses the server default.
func (c *Client) Runs(ctx context.Context, limit int) ([]domain.Run, error) {
	path := "/api/runs"
	if limit > 0 {
		path += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}
	var resp httpapi.RunsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	runs := make([]domain.Run, len(resp.Runs))
	for i, r := range resp.Runs {
		runs[i] = httpapi.RunFromJSON(r)
	}
	return runs, nil
}

// Health returns nil when the server reports ok.
func (c *Client) Health(ctx context.Context) error {
	var resp httpapi.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/healthz", nil, &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("gallery-server unhealthy: %q", resp.Status)
	}
	return nil
}

// ChartURL returns the absolute URL of an artifact filename.
func (c *Client) ChartURL(filename string) string {
	return c.baseURL + "/" + url.PathEscape(filename)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var e httpapi.Response
		if data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); json.Unmarshal(data, &e) == nil {
			apiErr.Message = e.Error
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	if ar, ok := out.(*httpapi.Response); ok && !ar.Success {
		return &APIError{StatusCode: resp.StatusCode, Message: ar.Error}
	}
	return nil
}
