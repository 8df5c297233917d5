// Package gateway provides a typed HTTP client for the Pasabayan marketplace
// REST API. Every call carries the caller's bearer credential; non-2xx
// responses surface as *APIError carrying the status code and raw body.
//
// The marketplace wraps every payload in a {"data": ...} envelope, and list
// endpoints sometimes nest a paginator inside it ({"data": {"data": [...]}}).
// Both shapes are normalized here, once, so tool handlers never have to care.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pasabayan/chatd/internal/identity"
	"github.com/pasabayan/chatd/internal/log"
)

// DefaultTimeout bounds every gateway call when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// APIError is returned for non-2xx gateway responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.StatusCode, e.Body)
}

// IsNotFound reports whether err is an *APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client calls the marketplace API on behalf of one resolved caller.
// The zero value is not usable; construct with New and derive per-request
// clients with ForCaller.
type Client struct {
	baseURL    string
	credential string
	privileged bool
	httpClient *http.Client
	logger     log.Logger
}

// Config holds gateway client construction parameters.
type Config struct {
	// BaseURL is the marketplace API root, e.g. "https://api.pasabayan.com".
	BaseURL string

	// Timeout bounds each HTTP call. Zero means DefaultTimeout.
	Timeout time.Duration

	Logger log.Logger
}

// New creates a gateway client with no caller credential attached.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("gateway base URL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// ForCaller returns a shallow copy of the client carrying the caller's
// downstream credential and privilege flag. The underlying http.Client is
// shared; the copy is cheap and safe for concurrent use.
func (c *Client) ForCaller(caller identity.Context) *Client {
	clone := *c
	clone.credential = caller.Credential
	clone.privileged = caller.Privileged
	return &clone
}

// Privileged reports whether the caller behind this client may use tools
// that expose cross-user data.
func (c *Client) Privileged() bool {
	return c.privileged
}

// Get issues a GET request. Query parameters with empty values are omitted.
// The response envelope is unwrapped and normalized before decoding into out;
// pass a nil out to discard the body.
func (c *Client) Get(ctx context.Context, path string, query map[string]string, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		vals := url.Values{}
		for k, v := range query {
			if v == "" {
				continue
			}
			vals.Set(k, v)
		}
		if encoded := vals.Encode(); encoded != "" {
			u += "?" + encoded
		}
	}
	return c.do(ctx, http.MethodGet, u, nil, out)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any, out any) error {
	return c.do(ctx, http.MethodPost, c.baseURL+path, body, out)
}

// Health reports whether the gateway answers its health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return fmt.Errorf("creating health request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway health check: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: http.StatusText(resp.StatusCode)}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, url string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.credential != "" {
		req.Header.Set("Authorization", "Bearer "+c.credential)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	c.logger.Debug("gateway request",
		"method", method,
		"url", url,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out == nil {
		return nil
	}

	payload := normalize(respBody)
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// normalize unwraps the marketplace response envelope.
//
// Bodies arrive as {"data": T} or, for paginated lists, {"data": {"data":
// [...], "meta": ...}}. The outer data key is always removed; the inner one
// only when its value is an array. Anything else passes through untouched.
func normalize(body []byte) json.RawMessage {
	inner, ok := unwrapData(body)
	if !ok {
		return body
	}
	if nested, ok := unwrapData(inner); ok && isArray(nested) {
		return nested
	}
	return inner
}

func unwrapData(raw []byte) (json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil || len(env.Data) == 0 {
		return nil, false
	}
	return env.Data, true
}

func isArray(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
