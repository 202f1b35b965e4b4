// Package rpc implements the HTTP request layer for the solargraph
// socket protocol. Calls are form-encoded POSTs against the server's
// base URL; responses are JSON documents carrying a status discriminator.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// ClientError reports a transport-level failure: a connection error or a
// non-2xx HTTP status. Application-level non-"ok" statuses are returned
// as data, never as a ClientError.
type ClientError struct {
	Err error
}

func (e *ClientError) Error() string {
	return "request failed: " + e.Err.Error()
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// Client issues calls against a supervised server endpoint.
// It performs no caching and no deduplication; every call is a single
// synchronous round trip.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the given base URL
// (e.g. "http://localhost:7658/").
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/") + "/",
		httpClient: &http.Client{},
	}
}

// BaseURL returns the endpoint this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Params is the set of optional call parameters. Unset fields are
// omitted from the outgoing form entirely rather than sent empty.
// Text, Line and Column are pointers so an empty buffer and position
// zero are legal sent values.
type Params struct {
	Text         *string
	Line         *int
	Column       *int
	Filename     string
	Workspace    string
	Path         string
	WithSnippets *bool
	All          *bool
}

// Values encodes the set fields as form values.
func (p Params) Values() url.Values {
	values := url.Values{}
	if p.Text != nil {
		values.Set("text", *p.Text)
	}
	if p.Line != nil {
		values.Set("line", strconv.Itoa(*p.Line))
	}
	if p.Column != nil {
		values.Set("column", strconv.Itoa(*p.Column))
	}
	if p.Filename != "" {
		values.Set("filename", p.Filename)
	}
	if p.Workspace != "" {
		values.Set("workspace", p.Workspace)
	}
	if p.Path != "" {
		values.Set("path", p.Path)
	}
	if p.WithSnippets != nil {
		values.Set("with_snippets", strconv.FormatBool(*p.WithSnippets))
	}
	if p.All != nil {
		values.Set("all", strconv.FormatBool(*p.All))
	}
	return values
}

// Request posts params to baseURL+path and decodes the JSON body into v.
// Transport failures come back as *ClientError; a malformed body
// propagates as the decoder's error.
func (c *Client) Request(ctx context.Context, path string, params Params, v any) error {
	body := strings.NewReader(params.Values().Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return &ClientError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ClientError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ClientError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ClientError{Err: fmt.Errorf("%s %s: %s", http.MethodPost, path, resp.Status)}
	}

	if v == nil {
		return nil
	}
	return json.Unmarshal(data, v)
}
