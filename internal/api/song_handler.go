package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/songcraft/songcraft-api/internal/api/shared"
	"github.com/songcraft/songcraft-api/internal/events"
	"github.com/songcraft/songcraft-api/internal/platform/logger"
	"github.com/songcraft/songcraft-api/internal/redact"
	"github.com/songcraft/songcraft-api/internal/service"
)

// EventSource hands out live status subscriptions. events.Broadcaster
// satisfies it.
type EventSource interface {
	Subscribe(songID uuid.UUID) *events.Subscription
	Unsubscribe(sub *events.Subscription)
}

// SongHandler serves the owner's song endpoints.
type SongHandler struct {
	songService service.SongService
	events      EventSource
	keepAlive   time.Duration
	logger      *slog.Logger
}

// NewSongHandler creates a SongHandler. A zero keepAlive disables stream
// keepalive comments.
func NewSongHandler(
	songService service.SongService,
	source EventSource,
	keepAlive time.Duration,
	logger *slog.Logger,
) *SongHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SongHandler{
		songService: songService,
		events:      source,
		keepAlive:   keepAlive,
		logger:      logger.With(slog.String("component", "song_handler")),
	}
}

// GetSong handles GET /api/songs/{id}.
func (h *SongHandler) GetSong(w http.ResponseWriter, r *http.Request) {
	userID, songID, ok := handleUserIDAndPathUUID(w, r, shared.SongIDParam)
	if !ok {
		return
	}

	song, err := h.songService.GetSong(r.Context(), userID, songID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, songToResponse(song))
}

// MarkDelivered handles POST /api/songs/{id}/delivered.
func (h *SongHandler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	userID, songID, ok := handleUserIDAndPathUUID(w, r, shared.SongIDParam)
	if !ok {
		return
	}

	song, err := h.songService.MarkDelivered(r.Context(), userID, songID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, songToResponse(song))
}

// StreamSong handles GET /api/songs/{id}/stream as Server-Sent Events. The
// stream opens with a ping frame and then carries one update frame per
// status event until the client disconnects. Events broadcast before the
// subscription was registered are not replayed.
func (h *SongHandler) StreamSong(w http.ResponseWriter, r *http.Request) {
	userID, songID, ok := handleUserIDAndPathUUID(w, r, shared.SongIDParam)
	if !ok {
		return
	}
	log := logger.FromContextOrDefault(r.Context(), h.logger).With(
		slog.String("song_id", songID.String()))

	if _, err := h.songService.GetSong(r.Context(), userID, songID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		log.Error("response writer does not support streaming")
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	sub := h.events.Subscribe(songID)
	defer h.events.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, "ping", map[string]string{"song_id": songID.String()}); err != nil {
		log.Debug("stream closed before ping", slog.String("error", err.Error()))
		return
	}
	flusher.Flush()
	log.Debug("stream opened")

	var keepAlive <-chan time.Time
	if h.keepAlive > 0 {
		ticker := time.NewTicker(h.keepAlive)
		defer ticker.Stop()
		keepAlive = ticker.C
	}

	for {
		select {
		case <-r.Context().Done():
			log.Debug("stream client disconnected")
			return
		case event, open := <-sub.Events():
			if !open {
				log.Debug("stream subscription closed")
				return
			}
			if event.Error != "" {
				event.Error = redact.String(event.Error)
			}
			if err := writeEvent(w, "update", event); err != nil {
				log.Debug("stream write failed", slog.String("error", err.Error()))
				return
			}
			flusher.Flush()
		case <-keepAlive:
			if _, err := io.WriteString(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w io.Writer, name string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload)
	return err
}
