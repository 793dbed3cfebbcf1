package generation

import (
	"context"

	"github.com/songcraft/songcraft-api/internal/domain"
)

// LyricsRequest carries what the customer told us about the song.
type LyricsRequest struct {
	Description       string
	Style             domain.MusicStyle
	Tone              domain.EmotionalTone
	Recipient         string
	Occasion          string
	AdditionalDetails string
}

// NewLyricsRequest extracts the lyrics prompt inputs from a song.
func NewLyricsRequest(song *domain.Song) LyricsRequest {
	return LyricsRequest{
		Description:       song.Description,
		Style:             song.Style,
		Tone:              song.Tone,
		Recipient:         song.Recipient,
		Occasion:          song.Occasion,
		AdditionalDetails: song.AdditionalDetails,
	}
}

// LyricsGenerator writes song lyrics in one synchronous call.
type LyricsGenerator interface {
	GenerateLyrics(ctx context.Context, req LyricsRequest) (string, error)
}

// TitleGenerator proposes a title for finished lyrics.
type TitleGenerator interface {
	GenerateTitle(ctx context.Context, lyrics string) (string, error)
}

// TextGenerator is a text model able to write both lyrics and titles.
type TextGenerator interface {
	LyricsGenerator
	TitleGenerator
}

// AudioRequest is what an audio vendor needs to render a song.
type AudioRequest struct {
	Lyrics string
	Style  domain.MusicStyle
	Title  string
}

// JobQuerier checks an asynchronous job. Querying is idempotent and may be
// repeated with the same handle.
type JobQuerier interface {
	Query(ctx context.Context, job JobHandle) (Result, error)
}

// AudioProvider is one audio vendor.
type AudioProvider interface {
	JobQuerier
	// Name identifies the vendor in job handles and configuration.
	Name() string
	// Submit starts rendering. A Processing result carries the job handle.
	Submit(ctx context.Context, req AudioRequest) (Result, error)
}

// VideoRequest is what the video renderer needs.
type VideoRequest struct {
	SongID     string
	AudioURL   string
	Lyrics     string
	Format     domain.VideoFormat
	ImageCount int
}

// VideoRenderer assembles the music video once audio is ready.
type VideoRenderer interface {
	JobQuerier
	Submit(ctx context.Context, req VideoRequest) (Result, error)
}
