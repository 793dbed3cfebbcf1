package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/songcraft/songcraft-api/internal/domain"
)

// StatusEvent is one live progress update for a song.
type StatusEvent struct {
	SongID       uuid.UUID          `json:"song_id"`
	LyricsStatus domain.PhaseStatus `json:"lyrics_status"`
	AudioStatus  domain.PhaseStatus `json:"audio_status"`
	VideoStatus  domain.PhaseStatus `json:"video_status"`
	Status       domain.PhaseStatus `json:"status"`

	Title    string  `json:"title,omitempty"`
	Lyrics   string  `json:"lyrics,omitempty"`
	AudioURL string  `json:"audio_url,omitempty"`
	VideoURL string  `json:"video_url,omitempty"`
	Duration float64 `json:"duration,omitempty"`

	Message                    string `json:"message,omitempty"`
	Error                      string `json:"error,omitempty"`
	EstimatedCompletionMinutes int    `json:"estimated_completion_minutes,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// NewStatusEvent snapshots the song's current statuses and content.
func NewStatusEvent(song *domain.Song) StatusEvent {
	return StatusEvent{
		SongID:       song.ID,
		LyricsStatus: song.LyricsStatus,
		AudioStatus:  song.AudioStatus,
		VideoStatus:  song.VideoStatus,
		Status:       song.OverallStatus(),
		Title:        song.Title,
		Lyrics:       song.Lyrics,
		AudioURL:     song.AudioURL,
		VideoURL:     song.VideoURL,
		Duration:     song.Duration,
		Timestamp:    time.Now().UTC(),
	}
}

// WithMessage returns a copy of e carrying a human-readable progress note.
func (e StatusEvent) WithMessage(msg string) StatusEvent {
	e.Message = msg
	return e
}

// WithError returns a copy of e carrying a failure reason.
func (e StatusEvent) WithError(reason string) StatusEvent {
	e.Error = reason
	return e
}

// WithEstimate returns a copy of e carrying an expected wait in minutes.
func (e StatusEvent) WithEstimate(minutes int) StatusEvent {
	e.EstimatedCompletionMinutes = minutes
	return e
}

// Notifier publishes status events for a song.
type Notifier interface {
	Notify(songID uuid.UUID, event StatusEvent)
}
