package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/songcraft/songcraft-api/internal/domain"
	"github.com/songcraft/songcraft-api/internal/generation"
)

// Reconciler defaults.
const (
	DefaultReconcileInterval = 5 * time.Minute
	DefaultStaleAfter        = 10 * time.Minute
	DefaultReconcileBatch    = 50
)

// SongFinder lists songs that need another look.
type SongFinder interface {
	// FindStaleJobs lists songs whose audio or video job was submitted
	// before olderThan and is still in progress.
	FindStaleJobs(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Song, error)

	// FindInterrupted lists unfinished songs without a pending job that
	// have not changed since olderThan.
	FindInterrupted(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Song, error)
}

// Scheduler hands songs to background workers. When a Reconciler has no
// Scheduler, Sweep and Recover work inline.
type Scheduler interface {
	ScheduleReconcile(ctx context.Context, songID uuid.UUID) error
	EnqueueGeneration(ctx context.Context, songID uuid.UUID) error
}

// ReconcilerConfig drives the periodic sweep.
type ReconcilerConfig struct {
	Interval   time.Duration
	StaleAfter time.Duration
	BatchSize  int
}

// Reconciler resolves songs left in progress after the poller gave up by
// checking the same job handle again, and restarts pipeline runs that
// were lost.
type Reconciler struct {
	orchestrator *Orchestrator
	finder       SongFinder
	scheduler    Scheduler
	config       ReconcilerConfig
	logger       *slog.Logger
	now          func() time.Time
}

// NewReconciler creates a Reconciler. Zero config values take defaults.
func NewReconciler(orch *Orchestrator, finder SongFinder, config ReconcilerConfig, logger *slog.Logger) (*Reconciler, error) {
	if orch == nil {
		return nil, errors.New("orchestrator cannot be nil")
	}
	if finder == nil {
		return nil, errors.New("song finder cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if config.Interval <= 0 {
		config.Interval = DefaultReconcileInterval
	}
	if config.StaleAfter <= 0 {
		config.StaleAfter = DefaultStaleAfter
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultReconcileBatch
	}
	return &Reconciler{
		orchestrator: orch,
		finder:       finder,
		config:       config,
		logger:       logger.With("component", "reconciler"),
		now:          time.Now,
	}, nil
}

// SetScheduler routes Sweep and Recover through s.
func (r *Reconciler) SetScheduler(s Scheduler) {
	r.scheduler = s
}

// ReconcileSong makes one status check against the song's stored audio
// or video job and applies the result. It is idempotent: a song that is no
// longer waiting on a job is left alone, and a job still processing
// changes nothing. It reports whether the song changed.
func (r *Reconciler) ReconcileSong(ctx context.Context, songID uuid.UUID) (bool, error) {
	log := r.logger.With("song_id", songID)

	song, err := r.orchestrator.store.Get(ctx, songID)
	if err != nil {
		return false, fmt.Errorf("failed to load song: %w", err)
	}

	var changed bool
	switch {
	case song.AudioStatus == domain.StatusInProgress && !song.AudioJob.IsZero():
		changed, err = r.reconcileAudio(ctx, log, song)
	case song.VideoStatus == domain.StatusInProgress && !song.VideoJob.IsZero():
		changed, err = r.reconcileVideo(ctx, log, song)
	default:
		log.DebugContext(ctx, "song is not waiting on a job",
			"audio_status", song.AudioStatus,
			"video_status", song.VideoStatus)
		return false, nil
	}
	if errors.Is(err, domain.ErrInvalidTransition) {
		// Another worker resolved the song first.
		log.InfoContext(ctx, "song already resolved", "error", err)
		return false, nil
	}
	return changed, err
}

func (r *Reconciler) reconcileAudio(ctx context.Context, log *slog.Logger, song *domain.Song) (bool, error) {
	o := r.orchestrator
	job := generation.JobHandle{Provider: song.AudioJob.Provider, ID: song.AudioJob.ID}
	res, err := o.audio.Query(ctx, job)
	if err != nil {
		return false, fmt.Errorf("failed to query audio job %s: %w", job, err)
	}

	var next bool
	switch res.Kind {
	case generation.KindProcessing:
		log.InfoContext(ctx, "audio job still processing", "job", job.String())
		return false, nil
	case generation.KindCompleted:
		song, next, err = o.completeAudio(ctx, song, res)
	default:
		song, next, err = o.failAudio(ctx, song, res.Reason)
	}
	if err != nil {
		return false, err
	}
	log.InfoContext(ctx, "reconciled audio job", "job", job.String(), "result", res.Kind.String())

	if next {
		if _, _, err := o.runVideo(ctx, song); err != nil {
			return true, err
		}
	}
	return true, nil
}

func (r *Reconciler) reconcileVideo(ctx context.Context, log *slog.Logger, song *domain.Song) (bool, error) {
	o := r.orchestrator
	job := generation.JobHandle{Provider: song.VideoJob.Provider, ID: song.VideoJob.ID}
	if o.video == nil {
		_, _, err := o.failVideo(ctx, song, "video rendering is not configured")
		return err == nil, err
	}

	res, err := o.video.Query(ctx, job)
	if err != nil {
		return false, fmt.Errorf("failed to query video job %s: %w", job, err)
	}

	switch res.Kind {
	case generation.KindProcessing:
		log.InfoContext(ctx, "video job still processing", "job", job.String())
		return false, nil
	case generation.KindCompleted:
		_, _, err = o.completeVideo(ctx, song, res)
	default:
		_, _, err = o.failVideo(ctx, song, res.Reason)
	}
	if err != nil {
		return false, err
	}
	log.InfoContext(ctx, "reconciled video job", "job", job.String(), "result", res.Kind.String())
	return true, nil
}

// Sweep reconciles every stale audio or video job found. It returns the
// number of songs changed or scheduled.
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	olderThan := r.now().Add(-r.config.StaleAfter)
	songs, err := r.finder.FindStaleJobs(ctx, olderThan, r.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to find stale jobs: %w", err)
	}
	if len(songs) == 0 {
		return 0, nil
	}
	r.logger.InfoContext(ctx, "found stale jobs", "count", len(songs))

	count := 0
	for _, song := range songs {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		if r.scheduler != nil {
			if err := r.scheduler.ScheduleReconcile(ctx, song.ID); err != nil {
				r.logger.ErrorContext(ctx, "failed to schedule reconciliation",
					"song_id", song.ID,
					"error", err)
				continue
			}
			count++
			continue
		}
		changed, err := r.ReconcileSong(ctx, song.ID)
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to reconcile song",
				"song_id", song.ID,
				"error", err)
			continue
		}
		if changed {
			count++
		}
	}
	return count, nil
}

// Recover starts a new pipeline run for every interrupted song last
// updated before olderThan. Each run resumes from the phase the song
// reached. It returns the number of songs queued or run.
func (r *Reconciler) Recover(ctx context.Context, olderThan time.Time) (int, error) {
	songs, err := r.finder.FindInterrupted(ctx, olderThan, r.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to find interrupted songs: %w", err)
	}
	if len(songs) == 0 {
		return 0, nil
	}
	r.logger.InfoContext(ctx, "recovering interrupted songs", "count", len(songs))

	count := 0
	for _, song := range songs {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		if r.scheduler != nil {
			err = r.scheduler.EnqueueGeneration(ctx, song.ID)
		} else {
			err = r.orchestrator.Run(ctx, song.ID)
		}
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to recover song",
				"song_id", song.ID,
				"error", err)
			continue
		}
		count++
	}
	return count, nil
}

// Run recovers songs interrupted before it started, then sweeps and
// recovers every Interval until ctx ends.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	r.logger.InfoContext(ctx, "reconciler started",
		"interval", r.config.Interval.String(),
		"stale_after", r.config.StaleAfter.String())

	r.pass(ctx, r.now())
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return nil
		case <-ticker.C:
			r.pass(ctx, r.now().Add(-r.config.StaleAfter))
		}
	}
}

func (r *Reconciler) pass(ctx context.Context, interruptedBefore time.Time) {
	if _, err := r.Sweep(ctx); err != nil && ctx.Err() == nil {
		r.logger.ErrorContext(ctx, "reconcile sweep failed", "error", err)
	}
	if _, err := r.Recover(ctx, interruptedBefore); err != nil && ctx.Err() == nil {
		r.logger.ErrorContext(ctx, "recovery sweep failed", "error", err)
	}
}
