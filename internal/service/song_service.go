package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/songcraft/songcraft-api/internal/domain"
	"github.com/songcraft/songcraft-api/internal/platform/logger"
	"github.com/songcraft/songcraft-api/internal/store"
)

// SongRepository is the transactional song persistence the service needs.
// store.SongUnitOfWork satisfies it.
type SongRepository interface {
	Create(ctx context.Context, song *domain.Song) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Song, error)
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Song, error)
	Do(ctx context.Context, id uuid.UUID, fn func(song *domain.Song) error) (*domain.Song, error)
}

// GenerationQueue queues pipeline runs. task.Dispatcher satisfies it.
type GenerationQueue interface {
	EnqueueGeneration(ctx context.Context, songID uuid.UUID) error
}

// PaymentConfirmed is the trigger for song creation.
type PaymentConfirmed struct {
	UserID  uuid.UUID
	OrderID uuid.UUID
	Request domain.SongRequest
}

// SongService provides song-related operations.
type SongService interface {
	// CreateFromPayment persists a new song for the order and queues its
	// generation. A repeated order returns the existing song together with
	// ErrSongExists.
	CreateFromPayment(ctx context.Context, evt PaymentConfirmed) (*domain.Song, error)

	// GetSong returns the song if userID owns it.
	GetSong(ctx context.Context, userID, songID uuid.UUID) (*domain.Song, error)

	// MarkDelivered records that the finished song was handed to its owner.
	MarkDelivered(ctx context.Context, userID, songID uuid.UUID) (*domain.Song, error)
}

type songServiceImpl struct {
	songs  SongRepository
	queue  GenerationQueue
	logger *slog.Logger
}

// NewSongService creates a SongService.
func NewSongService(songs SongRepository, queue GenerationQueue, logger *slog.Logger) (SongService, error) {
	if songs == nil {
		return nil, &SongServiceError{Operation: "create_service", Message: "song repository cannot be nil"}
	}
	if queue == nil {
		return nil, &SongServiceError{Operation: "create_service", Message: "generation queue cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &songServiceImpl{
		songs:  songs,
		queue:  queue,
		logger: logger.With("component", "song_service"),
	}, nil
}

func (s *songServiceImpl) CreateFromPayment(ctx context.Context, evt PaymentConfirmed) (*domain.Song, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		"user_id", evt.UserID,
		"order_id", evt.OrderID)

	song, err := domain.NewSong(evt.UserID, evt.OrderID, evt.Request)
	if err != nil {
		log.Warn("rejected song request", "error", err)
		return nil, err
	}

	if err := s.songs.Create(ctx, song); err != nil {
		if !errors.Is(err, store.ErrSongExists) {
			log.Error("failed to save song", "error", err)
			return nil, NewSongServiceError("create_song", "failed to save song", err)
		}
		return s.redelivered(ctx, log, evt.OrderID)
	}

	log = log.With("song_id", song.ID)
	log.Info("song created from payment", "lyrics_status", song.LyricsStatus)

	if err := s.queue.EnqueueGeneration(ctx, song.ID); err != nil {
		log.Error("failed to queue song generation", "error", err)
		return song, errors.Join(ErrQueueUnavailable, err)
	}
	return song, nil
}

// redelivered handles a payment event for an order that already has a song.
// A song that never left its initial state lost its queued run and is
// queued again.
func (s *songServiceImpl) redelivered(ctx context.Context, log *slog.Logger, orderID uuid.UUID) (*domain.Song, error) {
	existing, err := s.songs.GetByOrderID(ctx, orderID)
	if err != nil {
		log.Error("failed to load existing song for order", "error", err)
		return nil, NewSongServiceError("create_song", "failed to load existing song", err)
	}

	log = log.With("song_id", existing.ID)
	if awaitingPipeline(existing) {
		log.Info("payment redelivered for unstarted song, queueing generation again")
		if err := s.queue.EnqueueGeneration(ctx, existing.ID); err != nil {
			log.Error("failed to queue song generation", "error", err)
			return existing, errors.Join(ErrQueueUnavailable, err)
		}
	} else {
		log.Info("payment redelivered for existing song")
	}
	return existing, ErrSongExists
}

func awaitingPipeline(song *domain.Song) bool {
	lyricsIdle := song.LyricsStatus == domain.StatusNotStarted || song.LyricsStatus == domain.StatusCompleted
	return lyricsIdle && song.AudioStatus == domain.StatusNotStarted
}

func (s *songServiceImpl) GetSong(ctx context.Context, userID, songID uuid.UUID) (*domain.Song, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	song, err := s.songs.Get(ctx, songID)
	if err != nil {
		log.Debug("failed to retrieve song", "error", err, "song_id", songID)
		return nil, NewSongServiceError("get_song", "failed to retrieve song", err)
	}
	if song.UserID != userID {
		log.Warn("song requested by non-owner",
			"song_id", songID,
			"owner_id", song.UserID,
			"user_id", userID)
		return nil, ErrNotOwned
	}
	return song, nil
}

func (s *songServiceImpl) MarkDelivered(ctx context.Context, userID, songID uuid.UUID) (*domain.Song, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	song, err := s.songs.Do(ctx, songID, func(song *domain.Song) error {
		if song.UserID != userID {
			return ErrNotOwned
		}
		return song.MarkDelivered()
	})
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			log.Info("song cannot be marked delivered", "error", err, "song_id", songID)
			return nil, err
		}
		return nil, NewSongServiceError("mark_delivered", "failed to mark song delivered", err)
	}

	log.Info("song delivered", "song_id", songID, "user_id", userID)
	return song, nil
}
