// Package metalwatch is a Go SDK for the metalwatch-server REST API.
package metalwatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Metal is one registry entry as reported by the server.
type Metal struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	URL       string           `json:"url"`
	Custom    bool             `json:"custom"`
	Visible   bool             `json:"visible"`
	Removable bool             `json:"removable"`
	Price     *string          `json:"price"`
	Numeric   *decimal.Decimal `json:"numeric,omitempty"`
	Label     string           `json:"label"`
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("metalwatch: %d %s", e.StatusCode, e.Message)
}

// Client provides a Go SDK for interacting with the metalwatch-server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new metalwatch API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Metals returns the registry with cached prices.
func (c *Client) Metals(ctx context.Context) ([]Metal, error) {
	var resp struct {
		Metals []Metal `json:"metals"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/metals", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Metals, nil
}

// Visible returns the ordered list of visible metal ids.
func (c *Client) Visible(ctx context.Context) ([]string, error) {
	return c.visible(ctx, http.MethodGet, "/api/visible")
}

// Show makes id visible and returns the new visible list.
func (c *Client) Show(ctx context.Context, id string) ([]string, error) {
	return c.visible(ctx, http.MethodPut, "/api/visible/"+url.PathEscape(id))
}

// Hide removes id from the visible list and returns the new list.
func (c *Client) Hide(ctx context.Context, id string) ([]string, error) {
	return c.visible(ctx, http.MethodDelete, "/api/visible/"+url.PathEscape(id))
}

func (c *Client) visible(ctx context.Context, method, path string) ([]string, error) {
	var resp struct {
		Visible []string `json:"visible"`
	}
	if err := c.do(ctx, method, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Visible, nil
}

// AddMetal registers a custom metal and returns its id.
func (c *Client) AddMetal(ctx context.Context, name, pageURL string) (string, error) {
	body := map[string]string{"name": name, "url": pageURL}
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/metals", body, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// RemoveMetal deletes a custom metal.
func (c *Client) RemoveMetal(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/metals/"+url.PathEscape(id), nil, nil)
}

// Refresh asks the server to re-fetch every metal.
func (c *Client) Refresh(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/refresh", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var e struct {
			Error string `json:"error"`
		}
		msg := resp.Status
		if json.NewDecoder(resp.Body).Decode(&e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s: %w", method, path, err)
	}
	return nil
}
