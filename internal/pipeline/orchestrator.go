package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/songcraft/songcraft-api/internal/domain"
	"github.com/songcraft/songcraft-api/internal/events"
	"github.com/songcraft/songcraft-api/internal/generation"
)

// Estimates reported to listeners, in minutes.
const (
	lyricsEstimate = 1
	audioEstimate  = 6
	videoEstimate  = 4
)

// defaultVideoProvider names render jobs whose handle carries no provider.
const defaultVideoProvider = "video"

// Mutation changes a loaded song inside one transaction.
type Mutation = func(song *domain.Song) error

// UnitOfWork loads and persists songs for the orchestrator.
type UnitOfWork interface {
	// Get loads a song outside any transaction.
	Get(ctx context.Context, songID uuid.UUID) (*domain.Song, error)

	// Do loads the song with a row lock, applies fn, saves and commits. When
	// fn or any step fails nothing is persisted. The committed song is
	// returned.
	Do(ctx context.Context, songID uuid.UUID, fn Mutation) (*domain.Song, error)
}

// Dependencies are the collaborators of an Orchestrator. Titles and Video
// are optional.
type Dependencies struct {
	Store    UnitOfWork
	Lyrics   generation.LyricsGenerator
	Titles   generation.TitleGenerator
	Audio    generation.AudioProvider
	Video    generation.VideoRenderer
	Poller   *Poller
	Notifier events.Notifier
	Logger   *slog.Logger
}

// Orchestrator drives one song at a time through its phases. It is safe to
// run different songs concurrently.
type Orchestrator struct {
	store    UnitOfWork
	lyrics   generation.LyricsGenerator
	titles   generation.TitleGenerator
	audio    generation.AudioProvider
	video    generation.VideoRenderer
	poller   *Poller
	notifier events.Notifier
	logger   *slog.Logger
}

// NewOrchestrator validates deps and builds an Orchestrator.
func NewOrchestrator(deps Dependencies) (*Orchestrator, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("store cannot be nil")
	case deps.Lyrics == nil:
		return nil, errors.New("lyrics generator cannot be nil")
	case deps.Audio == nil:
		return nil, errors.New("audio provider cannot be nil")
	case deps.Poller == nil:
		return nil, errors.New("poller cannot be nil")
	case deps.Notifier == nil:
		return nil, errors.New("notifier cannot be nil")
	case deps.Logger == nil:
		return nil, errors.New("logger cannot be nil")
	}
	return &Orchestrator{
		store:    deps.Store,
		lyrics:   deps.Lyrics,
		titles:   deps.Titles,
		audio:    deps.Audio,
		video:    deps.Video,
		poller:   deps.Poller,
		notifier: deps.Notifier,
		logger:   deps.Logger.With("component", "orchestrator"),
	}, nil
}

// step is one phase of the pipeline. It reports whether the next phase may
// run.
type step func(ctx context.Context, song *domain.Song) (*domain.Song, bool, error)

// Run drives the song until every phase is terminal, a phase fails, or an
// audio or video job is handed over to reconciliation. Generation failures
// are reported to listeners and recorded on the song; the returned error is
// reserved for persistence failures, rejected transitions and cancellation.
func (o *Orchestrator) Run(ctx context.Context, songID uuid.UUID) error {
	log := o.logger.With("song_id", songID)

	song, err := o.store.Get(ctx, songID)
	if err != nil {
		return fmt.Errorf("failed to load song: %w", err)
	}

	log.InfoContext(ctx, "starting generation pipeline",
		"lyrics_status", song.LyricsStatus,
		"audio_status", song.AudioStatus,
		"video_status", song.VideoStatus)

	for _, run := range []step{o.runLyrics, o.runAudio, o.runVideo} {
		var next bool
		song, next, err = run(ctx, song)
		if err != nil {
			log.ErrorContext(ctx, "generation pipeline aborted", "error", err)
			return err
		}
		if !next {
			break
		}
	}

	log.InfoContext(ctx, "generation pipeline finished",
		"status", song.OverallStatus(),
		"lyrics_status", song.LyricsStatus,
		"audio_status", song.AudioStatus,
		"video_status", song.VideoStatus)
	return nil
}

func (o *Orchestrator) runLyrics(ctx context.Context, song *domain.Song) (*domain.Song, bool, error) {
	switch song.LyricsStatus {
	case domain.StatusCompleted:
		return song, true, nil
	case domain.StatusFailed:
		return song, false, nil
	case domain.StatusNotStarted:
		var err error
		song, err = o.apply(ctx, song.ID, func(s *domain.Song) error { return s.StartLyrics() })
		if err != nil {
			return song, false, err
		}
		o.notify(song, events.NewStatusEvent(song).
			WithMessage("Writing your lyrics").
			WithEstimate(lyricsEstimate+audioEstimate))
	}

	text, genErr := o.lyrics.GenerateLyrics(ctx, generation.NewLyricsRequest(song))
	if genErr != nil {
		if err := ctx.Err(); err != nil {
			return song, false, err
		}
		o.logger.WarnContext(ctx, "lyrics generation failed", "song_id", song.ID, "error", genErr)
		return o.failLyrics(ctx, song, genErr.Error())
	}

	updated, err := o.apply(ctx, song.ID, func(s *domain.Song) error { return s.CompleteLyrics(text) })
	if errors.Is(err, domain.ErrInvalidLyrics) {
		return o.failLyrics(ctx, song, "generated lyrics were rejected: "+err.Error())
	}
	if err != nil {
		return song, false, err
	}
	o.notify(updated, events.NewStatusEvent(updated).
		WithMessage("Lyrics are ready").
		WithEstimate(audioEstimate))
	return updated, true, nil
}

func (o *Orchestrator) failLyrics(ctx context.Context, song *domain.Song, reason string) (*domain.Song, bool, error) {
	updated, err := o.apply(ctx, song.ID, func(s *domain.Song) error { return s.FailLyrics(reason) })
	if err != nil {
		return song, false, err
	}
	o.notify(updated, events.NewStatusEvent(updated).
		WithMessage("Lyrics generation failed").
		WithError(reason))
	return updated, false, nil
}

func (o *Orchestrator) runAudio(ctx context.Context, song *domain.Song) (*domain.Song, bool, error) {
	switch song.AudioStatus {
	case domain.StatusCompleted:
		return song, true, nil
	case domain.StatusFailed:
		return song, false, nil
	case domain.StatusInProgress:
		if !song.AudioJob.IsZero() {
			// Resume the job a previous run submitted.
			job := generation.JobHandle{Provider: song.AudioJob.Provider, ID: song.AudioJob.ID}
			return o.pollAudio(ctx, song, job)
		}
	case domain.StatusNotStarted:
		var err error
		song, err = o.apply(ctx, song.ID, func(s *domain.Song) error { return s.StartAudio() })
		if err != nil {
			return song, false, err
		}
		o.notify(song, events.NewStatusEvent(song).
			WithMessage("Composing your music").
			WithEstimate(audioEstimate))
	}

	res, subErr := o.audio.Submit(ctx, generation.AudioRequest{
		Lyrics: song.Lyrics,
		Style:  song.Style,
		Title:  song.Title,
	})
	if subErr != nil {
		if err := ctx.Err(); err != nil {
			return song, false, err
		}
		o.logger.WarnContext(ctx, "audio submission failed", "song_id", song.ID, "error", subErr)
		return o.failAudio(ctx, song, subErr.Error())
	}

	switch res.Kind {
	case generation.KindCompleted:
		return o.completeAudio(ctx, song, res)
	case generation.KindFailed:
		return o.failAudio(ctx, song, res.Reason)
	}

	updated, err := o.apply(ctx, song.ID, func(s *domain.Song) error {
		return s.AttachAudioJob(res.Job.Provider, res.Job.ID)
	})
	if err != nil {
		return song, false, err
	}
	o.logger.InfoContext(ctx, "audio job submitted", "song_id", song.ID, "job", res.Job.String())
	return o.pollAudio(ctx, updated, res.Job)
}

func (o *Orchestrator) pollAudio(ctx context.Context, song *domain.Song, job generation.JobHandle) (*domain.Song, bool, error) {
	current := song
	next := false

	outcome, err := o.poller.Poll(ctx, o.audio, job, PollCallbacks{
		OnSuccess: func(ctx context.Context, res generation.Result) error {
			var err error
			current, next, err = o.completeAudio(ctx, current, res)
			return err
		},
		OnFailure: func(ctx context.Context, reason string) error {
			var err error
			current, next, err = o.failAudio(ctx, current, reason)
			return err
		},
	})
	if err != nil {
		return current, false, err
	}
	if outcome == OutcomeGaveUp {
		o.logger.WarnContext(ctx, "audio job unresolved after poll budget",
			"song_id", song.ID,
			"job", job.String())
	}
	return current, next, nil
}

func (o *Orchestrator) completeAudio(ctx context.Context, song *domain.Song, res generation.Result) (*domain.Song, bool, error) {
	var bundledErr error
	updated, err := o.apply(ctx, song.ID, func(s *domain.Song) error {
		if err := s.CompleteAudio(res.ContentRef, res.Duration); err != nil {
			return err
		}
		bundledErr = nil
		if res.VideoRef != "" && s.RequiresVideo() && s.VideoStatus == domain.StatusNotStarted {
			// A rejected bundled video leaves the song as CompleteAudio left it.
			bundledErr = s.AttachBundledVideo(res.VideoRef)
		}
		return nil
	})
	if errors.Is(err, domain.ErrInvalidContentRef) || errors.Is(err, domain.ErrInvalidDuration) {
		return o.failAudio(ctx, song, "vendor returned unusable audio: "+err.Error())
	}
	if err != nil {
		return song, false, err
	}

	switch {
	case bundledErr != nil:
		o.logger.WarnContext(ctx, "ignoring unusable bundled video", "song_id", song.ID, "error", bundledErr)
	case res.VideoRef != "" && !updated.RequiresVideo():
		o.logger.DebugContext(ctx, "ignoring bundled video, none was requested", "song_id", song.ID)
	}

	updated = o.generateTitle(ctx, updated)

	if updated.IsReadyForDelivery() {
		o.notify(updated, events.NewStatusEvent(updated).WithMessage("Your song is ready"))
	} else {
		o.notify(updated, events.NewStatusEvent(updated).
			WithMessage("Your music is ready").
			WithEstimate(videoEstimate))
	}
	return updated, true, nil
}

func (o *Orchestrator) failAudio(ctx context.Context, song *domain.Song, reason string) (*domain.Song, bool, error) {
	updated, err := o.apply(ctx, song.ID, func(s *domain.Song) error { return s.FailAudio(reason) })
	if err != nil {
		return song, false, err
	}
	o.notify(updated, events.NewStatusEvent(updated).
		WithMessage("Music generation failed").
		WithError(reason))
	return updated, false, nil
}

// generateTitle names a song that has none. Failure leaves it untitled.
func (o *Orchestrator) generateTitle(ctx context.Context, song *domain.Song) *domain.Song {
	if o.titles == nil || song.Title != "" {
		return song
	}
	title, err := o.titles.GenerateTitle(ctx, song.Lyrics)
	if err != nil {
		o.logger.WarnContext(ctx, "title generation failed", "song_id", song.ID, "error", err)
		return song
	}
	updated, err := o.apply(ctx, song.ID, func(s *domain.Song) error { return s.SetTitle(title) })
	if err != nil {
		o.logger.WarnContext(ctx, "failed to store generated title", "song_id", song.ID, "error", err)
		return song
	}
	return updated
}

func (o *Orchestrator) runVideo(ctx context.Context, song *domain.Song) (*domain.Song, bool, error) {
	if !song.RequiresVideo() || song.VideoStatus.IsTerminal() {
		return song, true, nil
	}

	switch song.VideoStatus {
	case domain.StatusInProgress:
		if !song.VideoJob.IsZero() {
			job := generation.JobHandle{Provider: song.VideoJob.Provider, ID: song.VideoJob.ID}
			return o.pollVideo(ctx, song, job)
		}
	case domain.StatusNotStarted:
		var err error
		song, err = o.apply(ctx, song.ID, func(s *domain.Song) error { return s.StartVideo("") })
		if err != nil {
			return song, false, err
		}
		o.notify(song, events.NewStatusEvent(song).
			WithMessage("Rendering your video").
			WithEstimate(videoEstimate))
	}

	if o.video == nil {
		return o.failVideo(ctx, song, "video rendering is not configured")
	}

	res, subErr := o.video.Submit(ctx, generation.VideoRequest{
		SongID:     song.ID.String(),
		AudioURL:   song.AudioURL,
		Lyrics:     song.Lyrics,
		Format:     song.VideoFormat,
		ImageCount: song.ImageCount,
	})
	if subErr != nil {
		if err := ctx.Err(); err != nil {
			return song, false, err
		}
		o.logger.WarnContext(ctx, "video submission failed", "song_id", song.ID, "error", subErr)
		return o.failVideo(ctx, song, subErr.Error())
	}

	switch res.Kind {
	case generation.KindCompleted:
		return o.completeVideo(ctx, song, res)
	case generation.KindFailed:
		return o.failVideo(ctx, song, res.Reason)
	}

	renderJob := res.Job
	if renderJob.Provider == "" {
		renderJob.Provider = defaultVideoProvider
	}
	updated, err := o.apply(ctx, song.ID, func(s *domain.Song) error {
		return s.AttachVideoJob(renderJob.Provider, renderJob.ID)
	})
	if err != nil {
		return song, false, err
	}
	o.logger.InfoContext(ctx, "video job submitted", "song_id", song.ID, "job", renderJob.String())
	return o.pollVideo(ctx, updated, renderJob)
}

func (o *Orchestrator) pollVideo(ctx context.Context, song *domain.Song, job generation.JobHandle) (*domain.Song, bool, error) {
	if o.video == nil {
		return o.failVideo(ctx, song, "video rendering is not configured")
	}

	current := song
	outcome, err := o.poller.Poll(ctx, o.video, job, PollCallbacks{
		OnSuccess: func(ctx context.Context, res generation.Result) error {
			var err error
			current, _, err = o.completeVideo(ctx, current, res)
			return err
		},
		OnFailure: func(ctx context.Context, reason string) error {
			var err error
			current, _, err = o.failVideo(ctx, current, reason)
			return err
		},
	})
	if err != nil {
		return current, false, err
	}
	if outcome == OutcomeGaveUp {
		o.logger.WarnContext(ctx, "video render unresolved after poll budget",
			"song_id", song.ID,
			"job", job.String())
	}
	return current, true, nil
}

func (o *Orchestrator) completeVideo(ctx context.Context, song *domain.Song, res generation.Result) (*domain.Song, bool, error) {
	updated, err := o.apply(ctx, song.ID, func(s *domain.Song) error { return s.CompleteVideo(res.ContentRef) })
	if errors.Is(err, domain.ErrInvalidContentRef) {
		return o.failVideo(ctx, song, "renderer returned unusable video: "+err.Error())
	}
	if err != nil {
		return song, false, err
	}
	o.notify(updated, events.NewStatusEvent(updated).WithMessage("Your song is ready"))
	return updated, true, nil
}

func (o *Orchestrator) failVideo(ctx context.Context, song *domain.Song, reason string) (*domain.Song, bool, error) {
	updated, err := o.apply(ctx, song.ID, func(s *domain.Song) error { return s.FailVideo(reason) })
	if err != nil {
		return song, false, err
	}
	o.notify(updated, events.NewStatusEvent(updated).
		WithMessage("Video rendering failed").
		WithError(reason))
	return updated, false, nil
}

func (o *Orchestrator) apply(ctx context.Context, songID uuid.UUID, fn Mutation) (*domain.Song, error) {
	song, err := o.store.Do(ctx, songID, fn)
	if err != nil {
		return nil, fmt.Errorf("failed to apply transition: %w", err)
	}
	return song, nil
}

func (o *Orchestrator) notify(song *domain.Song, ev events.StatusEvent) {
	o.notifier.Notify(song.ID, ev)
}
