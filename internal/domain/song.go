package domain

import (
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Field limits
const (
	MinDescriptionLength = 10
	MaxDescriptionLength = 2000
	MinLyricsLength      = 10
	MaxLyricsLength      = 5000
	MaxTitleLength       = 200
)

// MusicStyle is the musical genre requested for a song.
type MusicStyle string

const (
	StyleRap        MusicStyle = "rap"
	StylePop        MusicStyle = "pop"
	StyleElectropop MusicStyle = "electropop"
	StyleJazz       MusicStyle = "jazz"
	StyleFunk       MusicStyle = "funk"
	StyleAcoustic   MusicStyle = "acoustic"
)

// IsValid reports whether s is a supported style.
func (s MusicStyle) IsValid() bool {
	switch s {
	case StyleRap, StylePop, StyleElectropop, StyleJazz, StyleFunk, StyleAcoustic:
		return true
	default:
		return false
	}
}

// EmotionalTone is the optional mood requested for a song.
type EmotionalTone string

const (
	ToneEmotional EmotionalTone = "emotional"
	ToneRomantic  EmotionalTone = "romantic"
	TonePlayful   EmotionalTone = "playful"
	ToneIronic    EmotionalTone = "ironic"
)

// IsValid reports whether t is a supported tone. The empty tone is valid.
func (t EmotionalTone) IsValid() bool {
	switch t {
	case "", ToneEmotional, ToneRomantic, TonePlayful, ToneIronic:
		return true
	default:
		return false
	}
}

// VideoFormat is the aspect ratio of the rendered video.
type VideoFormat string

const (
	VideoLandscape VideoFormat = "16:9"
	VideoPortrait  VideoFormat = "9:16"
)

// IsValid reports whether f is a supported format.
func (f VideoFormat) IsValid() bool {
	return f == VideoLandscape || f == VideoPortrait
}

// SongRequest is what the customer described when ordering a song.
// Lyrics, when present, were written by the customer and skip generation.
type SongRequest struct {
	Title             string        `json:"title,omitempty"`
	Description       string        `json:"description"`
	Style             MusicStyle    `json:"music_style"`
	Tone              EmotionalTone `json:"tone,omitempty"`
	Recipient         string        `json:"recipient,omitempty"`
	Occasion          string        `json:"occasion,omitempty"`
	AdditionalDetails string        `json:"additional_details,omitempty"`
	Lyrics            string        `json:"lyrics,omitempty"`
	ImageCount        int           `json:"image_count"`
	VideoFormat       VideoFormat   `json:"video_format,omitempty"`
}

// JobRef references an asynchronous vendor job backing the audio or video
// phase. The ID is opaque; Provider names the vendor that issued it.
type JobRef struct {
	Provider    string     `json:"provider,omitempty"`
	ID          string     `json:"id,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
}

// IsZero reports whether no job is attached.
func (j JobRef) IsZero() bool {
	return j.ID == ""
}

// Song is the aggregate root of the generation pipeline. Its three phase
// statuses change only through the transition methods below; every method
// checks its precondition before touching any field, so a rejected
// transition leaves the song unchanged.
type Song struct {
	ID      uuid.UUID `json:"id"`
	UserID  uuid.UUID `json:"user_id"`
	OrderID uuid.UUID `json:"order_id"`

	Title             string        `json:"title"`
	Description       string        `json:"description"`
	Style             MusicStyle    `json:"music_style"`
	Tone              EmotionalTone `json:"tone,omitempty"`
	Recipient         string        `json:"recipient,omitempty"`
	Occasion          string        `json:"occasion,omitempty"`
	AdditionalDetails string        `json:"additional_details,omitempty"`

	Lyrics   string  `json:"lyrics,omitempty"`
	AudioURL string  `json:"audio_url,omitempty"`
	VideoURL string  `json:"video_url,omitempty"`
	Duration float64 `json:"duration,omitempty"`

	LyricsStatus PhaseStatus `json:"lyrics_status"`
	AudioStatus  PhaseStatus `json:"audio_status"`
	VideoStatus  PhaseStatus `json:"video_status"`

	ImageCount  int         `json:"image_count"`
	VideoFormat VideoFormat `json:"video_format"`
	AudioJob    JobRef      `json:"audio_job"`
	VideoJob    JobRef      `json:"video_job"`
	LastError   string      `json:"last_error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
}

// NewSong creates a Song for a paid order. Customer-supplied lyrics are
// validated and mark the lyrics phase completed immediately.
func NewSong(userID, orderID uuid.UUID, req SongRequest) (*Song, error) {
	now := time.Now().UTC()
	format := req.VideoFormat
	if format == "" {
		format = VideoLandscape
	}

	song := &Song{
		ID:                uuid.New(),
		UserID:            userID,
		OrderID:           orderID,
		Title:             strings.TrimSpace(req.Title),
		Description:       strings.TrimSpace(req.Description),
		Style:             req.Style,
		Tone:              req.Tone,
		Recipient:         req.Recipient,
		Occasion:          req.Occasion,
		AdditionalDetails: req.AdditionalDetails,
		LyricsStatus:      StatusNotStarted,
		AudioStatus:       StatusNotStarted,
		VideoStatus:       StatusNotStarted,
		ImageCount:        req.ImageCount,
		VideoFormat:       format,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if lyrics := strings.TrimSpace(req.Lyrics); lyrics != "" {
		if err := validateLyrics(lyrics); err != nil {
			return nil, err
		}
		song.Lyrics = lyrics
		song.LyricsStatus = StatusCompleted
	}

	if err := song.Validate(); err != nil {
		return nil, err
	}
	return song, nil
}

// Validate checks if the Song has valid data.
func (s *Song) Validate() error {
	if s.ID == uuid.Nil {
		return ErrEmptySongID
	}
	if s.UserID == uuid.Nil {
		return ErrEmptySongUserID
	}
	if s.OrderID == uuid.Nil {
		return ErrEmptySongOrderID
	}
	if n := utf8.RuneCountInString(s.Description); n < MinDescriptionLength || n > MaxDescriptionLength {
		return ErrInvalidDescription
	}
	if utf8.RuneCountInString(s.Title) > MaxTitleLength {
		return ErrInvalidTitle
	}
	if !s.Style.IsValid() {
		return ErrInvalidMusicStyle
	}
	if !s.Tone.IsValid() {
		return ErrInvalidTone
	}
	if s.ImageCount < 0 {
		return ErrInvalidImageCount
	}
	if !s.VideoFormat.IsValid() {
		return ErrInvalidVideoFormat
	}
	if s.Duration < 0 {
		return ErrInvalidDuration
	}
	for _, st := range []PhaseStatus{s.LyricsStatus, s.AudioStatus, s.VideoStatus} {
		if !st.IsValid() {
			return ErrInvalidStatus
		}
	}
	return nil
}

// RequiresVideo reports whether the customer ordered a video.
func (s *Song) RequiresVideo() bool {
	return s.ImageCount > 0
}

// OverallStatus is derived from the phase statuses on every call.
func (s *Song) OverallStatus() PhaseStatus {
	return DeriveOverallStatus(s.LyricsStatus, s.AudioStatus, s.VideoStatus, s.RequiresVideo())
}

// IsReadyForDelivery reports whether every requested phase completed.
func (s *Song) IsReadyForDelivery() bool {
	if s.LyricsStatus != StatusCompleted || s.AudioStatus != StatusCompleted {
		return false
	}
	return !s.RequiresVideo() || s.VideoStatus == StatusCompleted
}

// StartLyrics moves lyrics from not_started to in_progress.
func (s *Song) StartLyrics() error {
	if err := requirePhase("start lyrics", PhaseLyrics, s.LyricsStatus, StatusNotStarted); err != nil {
		return err
	}
	s.LyricsStatus = StatusInProgress
	s.touch()
	return nil
}

// CompleteLyrics stores the generated text and completes the lyrics phase.
func (s *Song) CompleteLyrics(text string) error {
	if err := requirePhase("complete lyrics", PhaseLyrics, s.LyricsStatus, StatusInProgress); err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if err := validateLyrics(text); err != nil {
		return err
	}
	s.Lyrics = text
	s.LyricsStatus = StatusCompleted
	s.touch()
	return nil
}

// FailLyrics fails the lyrics phase. Audio and video can then never start.
func (s *Song) FailLyrics(reason string) error {
	if err := requirePhase("fail lyrics", PhaseLyrics, s.LyricsStatus, StatusInProgress); err != nil {
		return err
	}
	s.LyricsStatus = StatusFailed
	s.LastError = reason
	s.touch()
	return nil
}

// StartAudio moves audio to in_progress once lyrics are completed.
func (s *Song) StartAudio() error {
	if err := requirePhase("start audio", PhaseLyrics, s.LyricsStatus, StatusCompleted); err != nil {
		return err
	}
	if err := requirePhase("start audio", PhaseAudio, s.AudioStatus, StatusNotStarted); err != nil {
		return err
	}
	s.AudioStatus = StatusInProgress
	s.touch()
	return nil
}

// AttachAudioJob records the vendor job that will complete the audio phase.
func (s *Song) AttachAudioJob(provider, jobID string) error {
	if err := requirePhase("attach audio job", PhaseAudio, s.AudioStatus, StatusInProgress); err != nil {
		return err
	}
	if provider == "" || jobID == "" {
		return ErrInvalidAudioJob
	}
	now := time.Now().UTC()
	s.AudioJob = JobRef{Provider: provider, ID: jobID, SubmittedAt: &now}
	s.touch()
	return nil
}

// CompleteAudio stores the audio reference and completes the audio phase.
func (s *Song) CompleteAudio(ref string, duration float64) error {
	if err := requirePhase("complete audio", PhaseAudio, s.AudioStatus, StatusInProgress); err != nil {
		return err
	}
	if err := validateContentRef(ref); err != nil {
		return err
	}
	if duration < 0 {
		return ErrInvalidDuration
	}
	s.AudioURL = ref
	s.Duration = duration
	s.AudioStatus = StatusCompleted
	s.touch()
	return nil
}

// FailAudio fails the audio phase. A requested video that has not started
// fails with it.
func (s *Song) FailAudio(reason string) error {
	if err := requirePhase("fail audio", PhaseAudio, s.AudioStatus, StatusInProgress); err != nil {
		return err
	}
	s.AudioStatus = StatusFailed
	if s.RequiresVideo() && s.VideoStatus == StatusNotStarted {
		s.VideoStatus = StatusFailed
	}
	s.LastError = reason
	s.touch()
	return nil
}

// AttachBundledVideo records a video the audio vendor produced together with
// the audio. When a video was requested and has not started, the video
// phase completes with it.
func (s *Song) AttachBundledVideo(ref string) error {
	if err := requirePhase("attach bundled video", PhaseAudio, s.AudioStatus, StatusCompleted); err != nil {
		return err
	}
	if err := requirePhase("attach bundled video", PhaseVideo, s.VideoStatus, StatusNotStarted); err != nil {
		return err
	}
	if err := validateContentRef(ref); err != nil {
		return err
	}
	s.VideoURL = ref
	if s.RequiresVideo() {
		s.VideoStatus = StatusCompleted
	}
	s.touch()
	return nil
}

// StartVideo moves video to in_progress once audio is completed.
func (s *Song) StartVideo(format VideoFormat) error {
	if err := requirePhase("start video", PhaseAudio, s.AudioStatus, StatusCompleted); err != nil {
		return err
	}
	if err := requirePhase("start video", PhaseVideo, s.VideoStatus, StatusNotStarted); err != nil {
		return err
	}
	if format == "" {
		format = s.VideoFormat
	}
	if !format.IsValid() {
		return ErrInvalidVideoFormat
	}
	s.VideoFormat = format
	s.VideoStatus = StatusInProgress
	s.touch()
	return nil
}

// AttachVideoJob records the render job that will complete the video phase.
func (s *Song) AttachVideoJob(provider, jobID string) error {
	if err := requirePhase("attach video job", PhaseVideo, s.VideoStatus, StatusInProgress); err != nil {
		return err
	}
	if provider == "" || jobID == "" {
		return ErrInvalidVideoJob
	}
	now := time.Now().UTC()
	s.VideoJob = JobRef{Provider: provider, ID: jobID, SubmittedAt: &now}
	s.touch()
	return nil
}

// CompleteVideo stores the video reference and completes the video phase.
func (s *Song) CompleteVideo(ref string) error {
	if err := requirePhase("complete video", PhaseVideo, s.VideoStatus, StatusInProgress); err != nil {
		return err
	}
	if err := validateContentRef(ref); err != nil {
		return err
	}
	s.VideoURL = ref
	s.VideoStatus = StatusCompleted
	s.touch()
	return nil
}

// FailVideo fails the video phase.
func (s *Song) FailVideo(reason string) error {
	if err := requirePhase("fail video", PhaseVideo, s.VideoStatus, StatusInProgress); err != nil {
		return err
	}
	s.VideoStatus = StatusFailed
	s.LastError = reason
	s.touch()
	return nil
}

// SetTitle replaces the title.
func (s *Song) SetTitle(title string) error {
	title = strings.TrimSpace(title)
	if n := utf8.RuneCountInString(title); n == 0 || n > MaxTitleLength {
		return ErrInvalidTitle
	}
	s.Title = title
	s.touch()
	return nil
}

// MarkDelivered stamps the delivery time of a ready song.
func (s *Song) MarkDelivered() error {
	if !s.IsReadyForDelivery() {
		return ErrNotReady
	}
	if s.DeliveredAt != nil {
		return ErrAlreadyDelivered
	}
	now := time.Now().UTC()
	s.DeliveredAt = &now
	s.UpdatedAt = now
	return nil
}

func (s *Song) touch() {
	s.UpdatedAt = time.Now().UTC()
}

func requirePhase(op string, phase Phase, got, want PhaseStatus) error {
	if got != want {
		return &TransitionError{Op: op, Phase: phase, Status: got, Want: want}
	}
	return nil
}

func validateLyrics(text string) error {
	if n := utf8.RuneCountInString(text); n < MinLyricsLength || n > MaxLyricsLength {
		return ErrInvalidLyrics
	}
	return nil
}

func validateContentRef(ref string) error {
	u, err := url.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidContentRef
	}
	return nil
}
