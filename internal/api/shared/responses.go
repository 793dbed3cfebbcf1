package shared

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/songcraft/songcraft-api/internal/platform/logger"
	"github.com/songcraft/songcraft-api/internal/redact"
)

// SongIDParam is the route parameter naming the song a request targets.
const SongIDParam = "id"

// ErrorResponse is the body of every error answer.
type ErrorResponse struct {
	Error     string `json:"error"`
	TraceID   string `json:"trace_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// RespondWithJSON writes data as JSON with the given status code.
func RespondWithJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		requestLogger(r).Error("failed to encode JSON response", "error", err)
	}
}

// RespondWithError writes message as a JSON error without an underlying
// error to log.
func RespondWithError(w http.ResponseWriter, r *http.Request, status int, message string) {
	RespondWithErrorAndLog(w, r, status, message, nil)
}

// RespondWithErrorAndLog writes userMessage to the client and logs err in
// redacted form. The raw error never reaches the response.
//
// Server errors log at ERROR, except 503 which signals back-pressure and
// logs at WARN. Conflicts such as a redelivered payment log at INFO; other
// client errors log at DEBUG.
func RespondWithErrorAndLog(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	userMessage string,
	err error,
) {
	resp := ErrorResponse{
		Error:     userMessage,
		TraceID:   GetTraceID(r.Context()),
		RequestID: middleware.GetReqID(r.Context()),
	}

	attrs := []slog.Attr{
		slog.String("path", r.URL.Path),
		slog.String("method", r.Method),
		slog.Int("status_code", status),
		slog.String("user_message", userMessage),
	}
	if songID := songIDFromRoute(r); songID != "" {
		attrs = append(attrs, slog.String("song_id", songID))
	}
	if resp.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", resp.RequestID))
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("error", redact.Error(err)),
			slog.String("error_type", fmt.Sprintf("%T", err)))
	}

	requestLogger(r).LogAttrs(r.Context(), errorLogLevel(status), "API error response", attrs...)
	RespondWithJSON(w, r, status, resp)
}

func errorLogLevel(status int) slog.Level {
	switch {
	case status == http.StatusServiceUnavailable:
		return slog.LevelWarn
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status == http.StatusConflict:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// requestLogger is the trace-scoped logger installed by the trace
// middleware, or the default logger. When no trace logger is installed
// the trace ID is added here.
func requestLogger(r *http.Request) *slog.Logger {
	if l := logger.FromContextOrDefault(r.Context(), nil); l != nil {
		return l
	}
	if traceID := GetTraceID(r.Context()); traceID != "" {
		return slog.Default().With("trace_id", traceID)
	}
	return slog.Default()
}

func songIDFromRoute(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	return rctx.URLParam(SongIDParam)
}
