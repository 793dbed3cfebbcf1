// Package vendorhttp is the JSON-over-HTTP plumbing shared by the audio and
// video vendor clients. It performs exactly one attempt per call; retrying
// and fallback are decided by the callers.
package vendorhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/songcraft/songcraft-api/internal/generation"
)

// DefaultTimeout bounds a single vendor request.
const DefaultTimeout = 2 * time.Minute

// maxErrorBody caps how much of an error response is kept in messages.
const maxErrorBody = 512

// Config holds the connection settings of one vendor.
type Config struct {
	// Name prefixes every error, e.g. "mureka".
	Name    string
	BaseURL string
	APIKey  string
	Client  *http.Client
	Logger  *slog.Logger
}

// Client sends authenticated JSON requests to one vendor.
type Client struct {
	name    string
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

// StatusError is a non-2xx vendor response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status %d", e.Code)
	}
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

// New creates a Client. BaseURL is required.
func New(cfg Config) (*Client, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("%w: vendor name cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: %s: base URL cannot be empty", generation.ErrInvalidConfig, cfg.Name)
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		name:    cfg.Name,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  client,
		logger:  logger.With("component", cfg.Name+"_client"),
	}, nil
}

// Name returns the vendor name.
func (c *Client) Name() string {
	return c.name
}

// Do sends in (if non-nil) as JSON and decodes the response into out (if
// non-nil). Failures are classified with the generation sentinel errors.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: couldn't marshal request body: %w", c.name, err)
		}
		reqBody = bytes.NewReader(b)
	}

	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("%s: couldn't create request: %w", c.name, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return c.classify(method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.classify(method, path, err)
	}

	c.logger.DebugContext(ctx, "vendor request finished",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.classify(method, path, &StatusError{Code: resp.StatusCode, Body: snippet(body)})
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s: couldn't unmarshal response body (%s): %w",
			generation.ErrInvalidResponse, c.name, snippet(body), err)
	}
	return nil
}

// snippet is body trimmed to maxErrorBody bytes for error messages.
func snippet(body []byte) string {
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody] + "..."
	}
	return msg
}

func (c *Client) classify(method, path string, err error) error {
	kind := generation.ErrGenerationFailed

	var statusErr *StatusError
	var netErr net.Error
	switch {
	case errors.As(err, &statusErr):
		switch {
		case statusErr.Code == http.StatusTooManyRequests,
			statusErr.Code == http.StatusPaymentRequired,
			statusErr.Code == http.StatusServiceUnavailable:
			kind = generation.ErrUnavailable
		case statusErr.Code >= 500:
			kind = generation.ErrTransientFailure
		}
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %s %s: %w", c.name, method, path, err)
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr):
		kind = generation.ErrTransientFailure
	}

	return fmt.Errorf("%w: %s: %s %s: %w", kind, c.name, method, path, err)
}
