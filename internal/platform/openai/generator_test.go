package openai

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/songcraft/songcraft-api/internal/config"
	"github.com/songcraft/songcraft-api/internal/domain"
	"github.com/songcraft/songcraft-api/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGenerator(t *testing.T, handler http.HandlerFunc) *Generator {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	gen, err := NewGenerator(config.LyricsConfig{
		OpenAIAPIKey:  "sk-test",
		OpenAIBaseURL: srv.URL + "/v1/",
	}, srv.Client(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return gen
}

func completion(content, finish string) map[string]any {
	return map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "gpt-4",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": finish,
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30},
	}
}

func TestNewGenerator_Validation(t *testing.T) {
	_, err := NewGenerator(config.LyricsConfig{}, nil, slog.Default())
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	_, err = NewGenerator(config.LyricsConfig{OpenAIAPIKey: "k"}, nil, nil)
	assert.Error(t, err)

	gen, err := NewGenerator(config.LyricsConfig{OpenAIAPIKey: "k"}, nil, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, "gpt-4", gen.model)
}

func TestGenerateLyrics(t *testing.T) {
	var got map[string]any
	gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion("  [Verse]\nHello Anna  ", "stop"))
	})

	lyrics, err := gen.GenerateLyrics(context.Background(), generation.LyricsRequest{
		Description: "Birthday song for Anna",
		Style:       domain.StylePop,
	})
	require.NoError(t, err)
	assert.Equal(t, "[Verse]\nHello Anna", lyrics)

	assert.Equal(t, "gpt-4", got["model"])
	assert.EqualValues(t, 800, got["max_tokens"])
	messages := got["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Contains(t, messages[1].(map[string]any)["content"], "Birthday song for Anna")
}

func TestGenerateTitle(t *testing.T) {
	gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion("Hello Anna", "stop"))
	})

	title, err := gen.GenerateTitle(context.Background(), "lyrics")
	require.NoError(t, err)
	assert.Equal(t, "Hello Anna", title)
}

func TestGenerateLyrics_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    any
		wantErr error
	}{
		{
			name:    "rate limited",
			status:  http.StatusTooManyRequests,
			body:    map[string]any{"error": map[string]any{"message": "slow down", "type": "rate_limit"}},
			wantErr: generation.ErrUnavailable,
		},
		{
			name:    "server error",
			status:  http.StatusBadGateway,
			body:    map[string]any{"error": map[string]any{"message": "bad gateway", "type": "server"}},
			wantErr: generation.ErrTransientFailure,
		},
		{
			name:    "bad request",
			status:  http.StatusBadRequest,
			body:    map[string]any{"error": map[string]any{"message": "nope", "type": "invalid_request_error"}},
			wantErr: generation.ErrGenerationFailed,
		},
		{
			name:    "content filter",
			status:  http.StatusOK,
			body:    completion("", "content_filter"),
			wantErr: generation.ErrContentBlocked,
		},
		{
			name:    "empty content",
			status:  http.StatusOK,
			body:    completion("   ", "stop"),
			wantErr: generation.ErrInvalidResponse,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_ = json.NewEncoder(w).Encode(tc.body)
			})

			_, err := gen.GenerateLyrics(context.Background(), generation.LyricsRequest{Description: "x", Style: domain.StyleRap})
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}
