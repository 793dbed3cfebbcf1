package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/songcraft/songcraft-api/internal/config"
	"github.com/songcraft/songcraft-api/internal/generation"
	"google.golang.org/genai"
)

// DefaultModel is used when the configuration names none.
const DefaultModel = "gemini-2.0-flash"

const (
	lyricsTemperature = 0.8
	titleTemperature  = 0.7
)

// Generator writes lyrics and titles with a Gemini model.
type Generator struct {
	// logger is used for structured logging
	logger *slog.Logger

	// client is the Gemini API client for making requests
	client *genai.Client

	// model is the name of the Gemini model to use
	model string
}

// NewGenerator creates a Generator from the lyrics configuration.
func NewGenerator(ctx context.Context, cfg config.LyricsConfig, logger *slog.Logger) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	model := cfg.GeminiModel
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return &Generator{
		logger: logger.With("component", "gemini_generator", "model", model),
		client: client,
		model:  model,
	}, nil
}

// GenerateLyrics implements generation.LyricsGenerator.
func (g *Generator) GenerateLyrics(ctx context.Context, req generation.LyricsRequest) (string, error) {
	prompt, err := generation.LyricsPrompt(req)
	if err != nil {
		return "", err
	}
	return g.generate(ctx, prompt, lyricsTemperature)
}

// GenerateTitle implements generation.TitleGenerator.
func (g *Generator) GenerateTitle(ctx context.Context, lyrics string) (string, error) {
	prompt, err := generation.TitlePrompt(lyrics)
	if err != nil {
		return "", err
	}
	return g.generate(ctx, prompt, titleTemperature)
}

func (g *Generator) generate(ctx context.Context, prompt string, temperature float32) (string, error) {
	g.logger.DebugContext(ctx, "making Gemini API call", "prompt_length", len(prompt))

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: generation.LyricsSystemPrompt}},
		},
		Temperature: genai.Ptr(temperature),
	})
	if err != nil {
		g.logger.ErrorContext(ctx, "Gemini API call failed", "error", err)
		return "", mapError(err)
	}

	text, err := textFromResponse(resp)
	if err != nil {
		g.logger.WarnContext(ctx, "unusable Gemini response", "error", err)
		return "", err
	}
	return text, nil
}

// textFromResponse concatenates the text parts of the first candidate.
func textFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", generation.ErrInvalidResponse)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: content blocked by safety filters", generation.ErrContentBlocked)
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("%w: no text parts", generation.ErrInvalidResponse)
	}
	return text, nil
}

func mapError(err error) error {
	var apiErr genai.APIError
	var netErr net.Error
	switch {
	case errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: gemini: %w", generation.ErrUnavailable, err)
	case errors.As(err, &apiErr) && apiErr.Code >= 500:
		return fmt.Errorf("%w: gemini: %w", generation.ErrTransientFailure, err)
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr):
		return fmt.Errorf("%w: gemini: %w", generation.ErrTransientFailure, err)
	default:
		return fmt.Errorf("%w: gemini: %w", generation.ErrGenerationFailed, err)
	}
}

var _ generation.TextGenerator = (*Generator)(nil)
