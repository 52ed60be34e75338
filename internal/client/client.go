package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrBadStatus is returned when the assistant answers with a non-2xx status.
var ErrBadStatus = errors.New("unexpected response status")

// DefaultBaseURL is the assistant address the widget talks to out of the box.
const DefaultBaseURL = "http://127.0.0.1:5000"

// Client calls the assistant's welcome and query endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the assistant at baseURL. A nil httpClient uses http.DefaultClient.
func New(baseURL string, httpClient *http.Client) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

type queryRequest struct {
	Query string `json:"query"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Welcome fetches the greeting shown when the panel first opens.
func (c *Client) Welcome(ctx context.Context) (string, error) {
	return c.do(ctx, http.MethodGet, "/welcome", nil)
}

// Query sends the visitor's question and returns the assistant's reply.
func (c *Client) Query(ctx context.Context, query string) (string, error) {
	payload, err := json.Marshal(queryRequest{Query: query})
	if err != nil {
		return "", fmt.Errorf("failed to encode query: %w", err)
	}
	return c.do(ctx, http.MethodPost, "/query", payload)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (string, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return "", fmt.Errorf("failed to build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%s %s: %w: %d", method, path, ErrBadStatus, resp.StatusCode)
	}

	var decoded messageResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return decoded.Message, nil
}
