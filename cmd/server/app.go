package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/songcraft/songcraft-api/internal/config"
	"github.com/songcraft/songcraft-api/internal/events"
	"github.com/songcraft/songcraft-api/internal/generation"
	"github.com/songcraft/songcraft-api/internal/pipeline"
	"github.com/songcraft/songcraft-api/internal/platform/gemini"
	"github.com/songcraft/songcraft-api/internal/platform/mureka"
	"github.com/songcraft/songcraft-api/internal/platform/openai"
	"github.com/songcraft/songcraft-api/internal/platform/postgres"
	"github.com/songcraft/songcraft-api/internal/platform/suno"
	"github.com/songcraft/songcraft-api/internal/platform/videorender"
	"github.com/songcraft/songcraft-api/internal/service"
	"github.com/songcraft/songcraft-api/internal/service/auth"
	"github.com/songcraft/songcraft-api/internal/store"
	"github.com/songcraft/songcraft-api/internal/task"
)

// reconcileBatchSize caps how many stale songs one sweep picks up.
const reconcileBatchSize = 50

// application holds the shared dependencies of the running server.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	songs       *store.SongUnitOfWork
	broadcaster *events.Broadcaster

	orchestrator *pipeline.Orchestrator
	reconciler   *pipeline.Reconciler

	queue      *task.TaskQueue
	pool       *task.WorkerPool
	dispatcher *task.Dispatcher

	songService service.SongService
	jwtService  auth.JWTService
}

// newApplication wires every component from configuration. Nothing starts
// running until Run.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	songStore := postgres.NewPostgresSongStore(db, logger)
	app.songs = store.NewSongUnitOfWork(db, songStore)

	text, err := newTextGenerator(ctx, cfg.Lyrics, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize lyrics generator: %w", err)
	}

	audio, err := newAudioChain(cfg.Audio, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio providers: %w", err)
	}

	video, err := newVideoRenderer(cfg.Video, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize video renderer: %w", err)
	}

	app.broadcaster = events.NewBroadcaster(events.BroadcasterConfig{
		MaxPending: cfg.Broadcast.MaxPending,
	}, logger)

	deps := pipeline.Dependencies{
		Store:    app.songs,
		Lyrics:   text,
		Titles:   text,
		Audio:    audio,
		Poller:   pipeline.NewPoller(pipeline.PollPolicy{Intervals: cfg.Poll.Intervals}, nil, logger),
		Notifier: app.broadcaster,
		Logger:   logger,
	}
	if video != nil {
		deps.Video = video
	}
	app.orchestrator, err = pipeline.NewOrchestrator(deps)
	if err != nil {
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}

	app.queue = task.NewTaskQueue(cfg.Task.QueueSize, logger)
	app.dispatcher = task.NewDispatcher(app.queue, app.orchestrator)
	app.pool = task.NewWorkerPool(app.queue, task.WorkerPoolConfig{WorkerCount: cfg.Task.WorkerCount}, logger)

	app.reconciler, err = pipeline.NewReconciler(app.orchestrator, app.songs, pipeline.ReconcilerConfig{
		Interval:   cfg.Reconcile.Interval,
		StaleAfter: cfg.Reconcile.StaleAfter,
		BatchSize:  reconcileBatchSize,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create reconciler: %w", err)
	}
	app.reconciler.SetScheduler(app.dispatcher)
	app.dispatcher.SetReconciler(app.reconciler)

	app.songService, err = service.NewSongService(app.songs, app.dispatcher, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create song service: %w", err)
	}

	logger.Info("application initialized",
		slog.Int("worker_count", cfg.Task.WorkerCount),
		slog.Int("queue_size", cfg.Task.QueueSize),
		slog.Bool("video_enabled", video != nil))
	return app, nil
}

// newTextGenerator builds the configured lyrics and title model, bounded by
// the lyrics timeout.
func newTextGenerator(ctx context.Context, cfg config.LyricsConfig, logger *slog.Logger) (*generation.TimedGenerator, error) {
	var (
		next generation.TextGenerator
		err  error
	)
	switch cfg.Provider {
	case "openai":
		next, err = openai.NewGenerator(cfg, nil, logger)
	case "gemini":
		next, err = gemini.NewGenerator(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("%w: unknown lyrics provider %q", generation.ErrInvalidConfig, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return generation.NewTimedGenerator(next, cfg.Timeout), nil
}

// newAudioChain builds the audio vendors in configured priority order.
func newAudioChain(cfg config.AudioConfig, logger *slog.Logger) (*generation.AudioChain, error) {
	httpClient := &http.Client{Timeout: cfg.Timeout}

	providers := make([]generation.AudioProvider, 0, len(cfg.Providers))
	for _, name := range cfg.Providers {
		vendor, ok := cfg.Vendor(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown audio provider %q", generation.ErrInvalidConfig, name)
		}

		var (
			provider generation.AudioProvider
			err      error
		)
		switch name {
		case mureka.Name:
			provider, err = mureka.New(vendor, httpClient, logger)
		case suno.Name:
			provider, err = suno.New(vendor, httpClient, logger)
		}
		if err != nil {
			return nil, err
		}
		providers = append(providers, provider)
	}
	return generation.NewAudioChain(logger, providers...)
}

// newVideoRenderer returns nil when no renderer is configured.
func newVideoRenderer(cfg config.VideoConfig, logger *slog.Logger) (*videorender.Client, error) {
	if cfg.BaseURL == "" {
		logger.Info("video renderer not configured, songs with images will fail their video phase")
		return nil, nil
	}
	return videorender.New(cfg, nil, logger)
}
