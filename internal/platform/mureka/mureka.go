// Package mureka is the primary audio vendor client.
package mureka

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/songcraft/songcraft-api/internal/config"
	"github.com/songcraft/songcraft-api/internal/generation"
	"github.com/songcraft/songcraft-api/internal/platform/vendorhttp"
)

// Name identifies the vendor in job handles and configuration.
const Name = "mureka"

const defaultModel = "auto"

// Client is a generation.AudioProvider backed by the Mureka API.
type Client struct {
	http  *vendorhttp.Client
	model string
}

// New creates a Mureka client.
func New(cfg config.VendorConfig, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	c, err := vendorhttp.New(vendorhttp.Config{
		Name:    Name,
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Client:  httpClient,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &Client{http: c, model: model}, nil
}

// Name implements generation.AudioProvider.
func (c *Client) Name() string {
	return Name
}

type generateRequest struct {
	Lyrics string `json:"lyrics"`
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type choice struct {
	URL      string `json:"url"`
	FlacURL  string `json:"flac_url"`
	VideoURL string `json:"video_url"`
	// Duration is in milliseconds.
	Duration float64 `json:"duration"`
}

type task struct {
	ID           string   `json:"id"`
	Status       string   `json:"status"`
	Choices      []choice `json:"choices"`
	FailedReason string   `json:"failed_reason"`
}

// Submit implements generation.AudioProvider.
func (c *Client) Submit(ctx context.Context, req generation.AudioRequest) (generation.Result, error) {
	in := generateRequest{
		Lyrics: req.Lyrics,
		Model:  c.model,
		Prompt: string(req.Style),
	}
	var out task
	if err := c.http.Do(ctx, http.MethodPost, "/v1/song/generate", in, &out); err != nil {
		return generation.Result{}, err
	}
	if out.ID == "" {
		return generation.Result{}, fmt.Errorf("%w: mureka: generate returned no task id", generation.ErrInvalidResponse)
	}
	// A fast task may finish inside the submit call.
	if res, ok := out.terminal(); ok {
		return res, nil
	}
	return generation.Processing(generation.JobHandle{Provider: Name, ID: out.ID}), nil
}

// Query implements generation.JobQuerier.
func (c *Client) Query(ctx context.Context, job generation.JobHandle) (generation.Result, error) {
	if job.Provider != Name {
		return generation.Result{}, fmt.Errorf("%w: mureka cannot query %s", generation.ErrUnknownProvider, job)
	}
	var out task
	if err := c.http.Do(ctx, http.MethodGet, "/v1/song/query/"+url.PathEscape(job.ID), nil, &out); err != nil {
		return generation.Result{}, err
	}
	if res, ok := out.terminal(); ok {
		return res, nil
	}
	switch strings.ToLower(out.Status) {
	case "preparing", "queued", "running", "streaming", "processing", "reviewing":
		return generation.Processing(job), nil
	default:
		return generation.Result{}, fmt.Errorf("%w: mureka: unknown task status %q", generation.ErrInvalidResponse, out.Status)
	}
}

// terminal converts a finished task into a Result.
func (t task) terminal() (generation.Result, bool) {
	switch strings.ToLower(t.Status) {
	case "succeeded":
		if len(t.Choices) == 0 || t.Choices[0].URL == "" {
			return generation.Failed("mureka: task succeeded without audio"), true
		}
		first := t.Choices[0]
		res := generation.Completed(first.URL, first.Duration/1000)
		if first.VideoURL != "" {
			res = res.WithVideo(first.VideoURL)
		}
		return res, true
	case "failed", "cancelled", "timeouted":
		reason := t.FailedReason
		if reason == "" {
			reason = "mureka: task " + t.Status
		}
		return generation.Failed(reason), true
	default:
		return generation.Result{}, false
	}
}

var _ generation.AudioProvider = (*Client)(nil)
