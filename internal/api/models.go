package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/songcraft/songcraft-api/internal/domain"
	"github.com/songcraft/songcraft-api/internal/redact"
)

// PaymentConfirmedRequest is the payload of a confirmed order.
type PaymentConfirmedRequest struct {
	UserID            string `json:"user_id" validate:"required,uuid"`
	OrderID           string `json:"order_id" validate:"required,uuid"`
	Title             string `json:"title,omitempty" validate:"max=200"`
	Description       string `json:"description" validate:"required"`
	MusicStyle        string `json:"music_style" validate:"required"`
	Tone              string `json:"tone,omitempty"`
	Recipient         string `json:"recipient,omitempty" validate:"max=200"`
	Occasion          string `json:"occasion,omitempty" validate:"max=200"`
	AdditionalDetails string `json:"additional_details,omitempty" validate:"max=2000"`
	Lyrics            string `json:"lyrics,omitempty"`
	ImageCount        int    `json:"image_count" validate:"gte=0"`
	VideoFormat       string `json:"video_format,omitempty"`
}

// SongRequest converts the payload to the domain request. Field values are
// checked again by domain.NewSong.
func (r PaymentConfirmedRequest) SongRequest() domain.SongRequest {
	return domain.SongRequest{
		Title:             r.Title,
		Description:       r.Description,
		Style:             domain.MusicStyle(r.MusicStyle),
		Tone:              domain.EmotionalTone(r.Tone),
		Recipient:         r.Recipient,
		Occasion:          r.Occasion,
		AdditionalDetails: r.AdditionalDetails,
		Lyrics:            r.Lyrics,
		ImageCount:        r.ImageCount,
		VideoFormat:       domain.VideoFormat(r.VideoFormat),
	}
}

// SongResponse is the owner's view of a song.
type SongResponse struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	MusicStyle  string    `json:"music_style"`
	Tone        string    `json:"tone,omitempty"`

	Status       domain.PhaseStatus `json:"status"`
	LyricsStatus domain.PhaseStatus `json:"lyrics_status"`
	AudioStatus  domain.PhaseStatus `json:"audio_status"`
	VideoStatus  domain.PhaseStatus `json:"video_status"`

	Lyrics   string  `json:"lyrics,omitempty"`
	AudioURL string  `json:"audio_url,omitempty"`
	VideoURL string  `json:"video_url,omitempty"`
	Duration float64 `json:"duration,omitempty"`

	ImageCount  int    `json:"image_count"`
	VideoFormat string `json:"video_format"`
	LastError   string `json:"last_error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
}

func songToResponse(song *domain.Song) SongResponse {
	resp := SongResponse{
		ID:           song.ID,
		OrderID:      song.OrderID,
		Title:        song.Title,
		Description:  song.Description,
		MusicStyle:   string(song.Style),
		Tone:         string(song.Tone),
		Status:       song.OverallStatus(),
		LyricsStatus: song.LyricsStatus,
		AudioStatus:  song.AudioStatus,
		VideoStatus:  song.VideoStatus,
		Lyrics:       song.Lyrics,
		AudioURL:     song.AudioURL,
		VideoURL:     song.VideoURL,
		Duration:     song.Duration,
		ImageCount:   song.ImageCount,
		VideoFormat:  string(song.VideoFormat),
		CreatedAt:    song.CreatedAt,
		UpdatedAt:    song.UpdatedAt,
		DeliveredAt:  song.DeliveredAt,
	}
	if song.LastError != "" {
		resp.LastError = redact.String(song.LastError)
	}
	return resp
}
