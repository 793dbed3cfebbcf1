// Package suno is the fallback audio vendor client.
package suno

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
const Name = "suno"

const (
	// defaultDuration is requested on submit and assumed when a finished
	// generation does not report one.
	defaultDuration = 180
	defaultQuality  = "high"
)

// Client is a generation.AudioProvider backed by the Suno API.
type Client struct {
	http *vendorhttp.Client
}

// New creates a Suno client.
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
	return &Client{http: c}, nil
}

// Name implements generation.AudioProvider.
func (c *Client) Name() string {
	return Name
}

type generateRequest struct {
	Lyrics       string `json:"lyrics"`
	Style        string `json:"style"`
	Title        string `json:"title,omitempty"`
	Duration     int    `json:"duration"`
	Instrumental bool   `json:"instrumental"`
	Quality      string `json:"quality"`
}

type generateResponse struct {
	GenerationID string `json:"generation_id"`
}

type clip struct {
	Status   string  `json:"status"`
	AudioURL string  `json:"audio_url"`
	VideoURL string  `json:"video_url"`
	Duration float64 `json:"duration"`
	Error    string  `json:"error"`
}

// Submit implements generation.AudioProvider.
func (c *Client) Submit(ctx context.Context, req generation.AudioRequest) (generation.Result, error) {
	in := generateRequest{
		Lyrics:   req.Lyrics,
		Style:    string(req.Style),
		Title:    req.Title,
		Duration: defaultDuration,
		Quality:  defaultQuality,
	}
	var out generateResponse
	if err := c.http.Do(ctx, http.MethodPost, "/v1/generate", in, &out); err != nil {
		return generation.Result{}, err
	}
	if out.GenerationID == "" {
		return generation.Result{}, fmt.Errorf("%w: suno: generate returned no generation id", generation.ErrInvalidResponse)
	}
	return generation.Processing(generation.JobHandle{Provider: Name, ID: out.GenerationID}), nil
}

// Query implements generation.JobQuerier.
func (c *Client) Query(ctx context.Context, job generation.JobHandle) (generation.Result, error) {
	if job.Provider != Name {
		return generation.Result{}, fmt.Errorf("%w: suno cannot query %s", generation.ErrUnknownProvider, job)
	}
	var out clip
	if err := c.http.Do(ctx, http.MethodGet, "/v1/generate/"+url.PathEscape(job.ID), nil, &out); err != nil {
		return generation.Result{}, err
	}

	switch strings.ToLower(out.Status) {
	case "completed", "complete":
		if out.AudioURL == "" {
			return generation.Failed("suno: generation completed without audio"), nil
		}
		duration := out.Duration
		if duration <= 0 {
			duration = defaultDuration
		}
		res := generation.Completed(out.AudioURL, duration)
		if out.VideoURL != "" {
			res = res.WithVideo(out.VideoURL)
		}
		return res, nil
	case "failed", "error":
		reason := out.Error
		if reason == "" {
			reason = "suno: music generation failed"
		}
		return generation.Failed(reason), nil
	case "processing", "pending", "queued", "submitted":
		return generation.Processing(job), nil
	default:
		return generation.Result{}, fmt.Errorf("%w: suno: unknown generation status %q", generation.ErrInvalidResponse, out.Status)
	}
}

var _ generation.AudioProvider = (*Client)(nil)
