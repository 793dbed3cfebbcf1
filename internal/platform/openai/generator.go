package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/songcraft/songcraft-api/internal/config"
	"github.com/songcraft/songcraft-api/internal/generation"
)

const (
	lyricsMaxTokens   = 800
	lyricsTemperature = 0.8
	titleMaxTokens    = 30
	titleTemperature  = 0.7
)

// Generator writes lyrics and titles with a chat completion model.
type Generator struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// NewGenerator creates a Generator from the lyrics configuration. httpClient
// may be nil.
func NewGenerator(cfg config.LyricsConfig, httpClient *http.Client, logger *slog.Logger) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("%w: openai API key cannot be empty", generation.ErrInvalidConfig)
	}

	clientConfig := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.OpenAIBaseURL, "/")
	}
	if httpClient != nil {
		clientConfig.HTTPClient = httpClient
	}

	model := cfg.OpenAIModel
	if model == "" {
		model = openai.GPT4
	}

	return &Generator{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		logger: logger.With("component", "openai_generator", "model", model),
	}, nil
}

// GenerateLyrics implements generation.LyricsGenerator.
func (g *Generator) GenerateLyrics(ctx context.Context, req generation.LyricsRequest) (string, error) {
	prompt, err := generation.LyricsPrompt(req)
	if err != nil {
		return "", err
	}
	g.logger.DebugContext(ctx, "requesting lyrics", "prompt_length", len(prompt))
	return g.complete(ctx, prompt, lyricsMaxTokens, lyricsTemperature)
}

// GenerateTitle implements generation.TitleGenerator.
func (g *Generator) GenerateTitle(ctx context.Context, lyrics string) (string, error) {
	prompt, err := generation.TitlePrompt(lyrics)
	if err != nil {
		return "", err
	}
	return g.complete(ctx, prompt, titleMaxTokens, titleTemperature)
}

func (g *Generator) complete(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: generation.LyricsSystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		g.logger.ErrorContext(ctx, "chat completion failed", "error", err)
		return "", mapError(err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", generation.ErrInvalidResponse)
	}
	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return "", fmt.Errorf("%w: finish reason %s", generation.ErrContentBlocked, choice.FinishReason)
	}

	text := strings.TrimSpace(choice.Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty message content", generation.ErrInvalidResponse)
	}

	g.logger.DebugContext(ctx, "chat completion succeeded",
		"completion_tokens", resp.Usage.CompletionTokens,
		"text_length", len(text))
	return text, nil
}

// mapError classifies client errors into generation sentinels.
func mapError(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	var netErr net.Error
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: openai: %w", generation.ErrUnavailable, err)
	case status >= 500:
		return fmt.Errorf("%w: openai: %w", generation.ErrTransientFailure, err)
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr):
		return fmt.Errorf("%w: openai: %w", generation.ErrTransientFailure, err)
	default:
		return fmt.Errorf("%w: openai: %w", generation.ErrGenerationFailed, err)
	}
}

var _ generation.TextGenerator = (*Generator)(nil)
