// Package videorender talks to the video render service that assembles the
// music video from the finished audio, the lyrics and the customer's images.
package videorender

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

// Name identifies the renderer in job handles.
const Name = "videorender"

// Client is a generation.VideoRenderer.
type Client struct {
	http *vendorhttp.Client
}

// New creates a render client.
func New(cfg config.VideoConfig, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
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

type renderRequest struct {
	SongID     string `json:"song_id"`
	AudioURL   string `json:"audio_url"`
	Lyrics     string `json:"lyrics"`
	Format     string `json:"format"`
	ImageCount int    `json:"image_count"`
}

type render struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	VideoURL string `json:"video_url"`
	Error    string `json:"error"`
}

// Submit implements generation.VideoRenderer.
func (c *Client) Submit(ctx context.Context, req generation.VideoRequest) (generation.Result, error) {
	in := renderRequest{
		SongID:     req.SongID,
		AudioURL:   req.AudioURL,
		Lyrics:     req.Lyrics,
		Format:     string(req.Format),
		ImageCount: req.ImageCount,
	}
	var out render
	if err := c.http.Do(ctx, http.MethodPost, "/v1/renders", in, &out); err != nil {
		return generation.Result{}, err
	}
	if res, ok := out.result(); ok {
		return res, nil
	}
	if out.ID == "" {
		return generation.Result{}, fmt.Errorf("%w: videorender: submit returned no render id", generation.ErrInvalidResponse)
	}
	return generation.Processing(generation.JobHandle{Provider: Name, ID: out.ID}), nil
}

// Query implements generation.JobQuerier.
func (c *Client) Query(ctx context.Context, job generation.JobHandle) (generation.Result, error) {
	if job.Provider != Name {
		return generation.Result{}, fmt.Errorf("%w: videorender cannot query %s", generation.ErrUnknownProvider, job)
	}
	var out render
	if err := c.http.Do(ctx, http.MethodGet, "/v1/renders/"+url.PathEscape(job.ID), nil, &out); err != nil {
		return generation.Result{}, err
	}
	if res, ok := out.result(); ok {
		return res, nil
	}
	switch strings.ToLower(out.Status) {
	case "queued", "rendering", "processing":
		return generation.Processing(job), nil
	default:
		return generation.Result{}, fmt.Errorf("%w: videorender: unknown render status %q", generation.ErrInvalidResponse, out.Status)
	}
}

func (r render) result() (generation.Result, bool) {
	switch strings.ToLower(r.Status) {
	case "completed":
		if r.VideoURL == "" {
			return generation.Failed("videorender: render completed without video"), true
		}
		return generation.Completed(r.VideoURL, 0), true
	case "failed":
		reason := r.Error
		if reason == "" {
			reason = "videorender: render failed"
		}
		return generation.Failed(reason), true
	default:
		return generation.Result{}, false
	}
}

var _ generation.VideoRenderer = (*Client)(nil)
