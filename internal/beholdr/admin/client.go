package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/vaibhaw-/beholdr/internal/beholdr/report"
)

// Client talks to a running admin API.
type Client struct {
	base string
	hc   *http.Client
}

// NewClient accepts "host:port" or a full http URL. A nil hc uses
// http.DefaultClient.
func NewClient(base string, hc *http.Client) *Client {
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{base: strings.TrimRight(base, "/"), hc: hc}
}

func (c *Client) do(ctx context.Context, method, path string, want int) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.StatusCode != want {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s %s: unexpected status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp, nil
}

// ShowData returns the remote snapshot in first-seen order.
func (c *Client) ShowData(ctx context.Context) ([]report.Row, error) {
	resp, err := c.do(ctx, http.MethodGet, "/data", http.StatusOK)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var rows []report.Row
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return rows, nil
}

// ClearData resets the remote index.
func (c *Client) ClearData(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodDelete, "/data", http.StatusNoContent)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

func (c *Client) Stats(ctx context.Context) (StatsResponse, error) {
	var s StatsResponse
	resp, err := c.do(ctx, http.MethodGet, "/stats", http.StatusOK)
	if err != nil {
		return s, err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return s, fmt.Errorf("decode stats: %w", err)
	}
	return s, nil
}
