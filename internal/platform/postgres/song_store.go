package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/songcraft/songcraft-api/internal/domain"
	"github.com/songcraft/songcraft-api/internal/platform/logger"
	"github.com/songcraft/songcraft-api/internal/store"
)

const songColumns = `id, user_id, order_id, title, description, music_style, tone,
	recipient, occasion, additional_details, lyrics, audio_url, video_url, duration,
	lyrics_status, audio_status, video_status, image_count, video_format,
	audio_provider, audio_job_id, audio_job_submitted_at,
	video_provider, video_job_id, video_job_submitted_at, last_error,
	created_at, updated_at, delivered_at`

// PostgresSongStore implements store.SongStore on PostgreSQL.
type PostgresSongStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSongStore creates a song store on db, which may be a pool or a
// transaction. A nil logger falls back to slog.Default().
func NewPostgresSongStore(db store.DBTX, logger *slog.Logger) *PostgresSongStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresSongStore{
		db:     db,
		logger: logger.With(slog.String("component", "song_store")),
	}
}

var _ store.SongStore = (*PostgresSongStore)(nil)

// Create inserts song. A second song for the same order yields
// store.ErrSongExists.
func (s *PostgresSongStore) Create(ctx context.Context, song *domain.Song) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := song.Validate(); err != nil {
		log.Warn("song validation failed during create",
			slog.String("error", err.Error()),
			slog.String("song_id", song.ID.String()))
		return err
	}

	query := `INSERT INTO songs (` + songColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29)`

	_, err := s.db.ExecContext(ctx, query,
		song.ID, song.UserID, song.OrderID, song.Title, song.Description,
		string(song.Style), string(song.Tone), song.Recipient, song.Occasion,
		song.AdditionalDetails, song.Lyrics, song.AudioURL, song.VideoURL, song.Duration,
		string(song.LyricsStatus), string(song.AudioStatus), string(song.VideoStatus),
		song.ImageCount, string(song.VideoFormat),
		song.AudioJob.Provider, song.AudioJob.ID, nullTime(song.AudioJob.SubmittedAt),
		song.VideoJob.Provider, song.VideoJob.ID, nullTime(song.VideoJob.SubmittedAt),
		song.LastError, song.CreatedAt, song.UpdatedAt, nullTime(song.DeliveredAt),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Info("song already exists for order",
				slog.String("song_id", song.ID.String()),
				slog.String("order_id", song.OrderID.String()))
			return fmt.Errorf("%w: %v", store.ErrSongExists, err)
		}
		log.Error("failed to insert song",
			slog.String("error", err.Error()),
			slog.String("song_id", song.ID.String()))
		return MapError(err)
	}

	log.Debug("song created",
		slog.String("song_id", song.ID.String()),
		slog.String("order_id", song.OrderID.String()))
	return nil
}

// GetByID returns store.ErrSongNotFound when no such song exists.
func (s *PostgresSongStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Song, error) {
	return s.getOne(ctx, `SELECT `+songColumns+` FROM songs WHERE id = $1`, id)
}

// GetForUpdate locks the row until the surrounding transaction ends.
func (s *PostgresSongStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Song, error) {
	return s.getOne(ctx, `SELECT `+songColumns+` FROM songs WHERE id = $1 FOR UPDATE`, id)
}

// GetByOrderID returns store.ErrSongNotFound when the order has no song.
func (s *PostgresSongStore) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Song, error) {
	return s.getOne(ctx, `SELECT `+songColumns+` FROM songs WHERE order_id = $1`, orderID)
}

func (s *PostgresSongStore) getOne(ctx context.Context, query string, arg uuid.UUID) (*domain.Song, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	song, err := scanSong(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("song not found", slog.String("key", arg.String()))
			return nil, store.ErrSongNotFound
		}
		log.Error("failed to load song",
			slog.String("error", err.Error()),
			slog.String("key", arg.String()))
		return nil, MapError(err)
	}
	return song, nil
}

// Update overwrites the mutable fields of song.
func (s *PostgresSongStore) Update(ctx context.Context, song *domain.Song) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := song.Validate(); err != nil {
		log.Warn("song validation failed during update",
			slog.String("error", err.Error()),
			slog.String("song_id", song.ID.String()))
		return err
	}

	query := `UPDATE songs SET
			title = $2, lyrics = $3, audio_url = $4, video_url = $5, duration = $6,
			lyrics_status = $7, audio_status = $8, video_status = $9, video_format = $10,
			audio_provider = $11, audio_job_id = $12, audio_job_submitted_at = $13,
			video_provider = $14, video_job_id = $15, video_job_submitted_at = $16,
			last_error = $17, updated_at = $18, delivered_at = $19
		WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query,
		song.ID, song.Title, song.Lyrics, song.AudioURL, song.VideoURL, song.Duration,
		string(song.LyricsStatus), string(song.AudioStatus), string(song.VideoStatus),
		string(song.VideoFormat),
		song.AudioJob.Provider, song.AudioJob.ID, nullTime(song.AudioJob.SubmittedAt),
		song.VideoJob.Provider, song.VideoJob.ID, nullTime(song.VideoJob.SubmittedAt),
		song.LastError, song.UpdatedAt, nullTime(song.DeliveredAt),
	)
	if err != nil {
		log.Error("failed to update song",
			slog.String("error", err.Error()),
			slog.String("song_id", song.ID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrSongNotFound); err != nil {
		log.Warn("song update affected no rows",
			slog.String("error", err.Error()),
			slog.String("song_id", song.ID.String()))
		return err
	}

	log.Debug("song updated",
		slog.String("song_id", song.ID.String()),
		slog.String("lyrics_status", string(song.LyricsStatus)),
		slog.String("audio_status", string(song.AudioStatus)),
		slog.String("video_status", string(song.VideoStatus)))
	return nil
}

// FindStaleJobs lists songs still waiting on an audio or video job
// submitted before olderThan, oldest submission first.
func (s *PostgresSongStore) FindStaleJobs(
	ctx context.Context,
	olderThan time.Time,
	limit int,
) ([]*domain.Song, error) {
	query := `SELECT ` + songColumns + ` FROM songs
		WHERE (audio_status = $1 AND audio_job_id <> '' AND audio_job_submitted_at < $2)
			OR (video_status = $1 AND video_job_id <> '' AND video_job_submitted_at < $2)
		ORDER BY COALESCE(video_job_submitted_at, audio_job_submitted_at) ASC
		LIMIT $3`

	return s.list(ctx, "stale jobs", query, string(domain.StatusInProgress), olderThan, limit)
}

// FindInterrupted lists songs that still have work to do, are not waiting
// on a vendor job and have not changed since olderThan. These are runs that
// were lost with a queued task or cancelled by a restart.
func (s *PostgresSongStore) FindInterrupted(
	ctx context.Context,
	olderThan time.Time,
	limit int,
) ([]*domain.Song, error) {
	query := `SELECT ` + songColumns + ` FROM songs
		WHERE updated_at < $1
			AND lyrics_status <> 'failed' AND audio_status <> 'failed' AND video_status <> 'failed'
			AND (
				lyrics_status IN ('not_started', 'in_progress')
				OR audio_status = 'not_started'
				OR (audio_status = 'in_progress' AND audio_job_id = '')
				OR (image_count > 0 AND video_status = 'not_started')
				OR (video_status = 'in_progress' AND video_job_id = '')
			)
		ORDER BY updated_at ASC
		LIMIT $2`

	return s.list(ctx, "interrupted songs", query, olderThan, limit)
}

func (s *PostgresSongStore) list(ctx context.Context, what, query string, args ...any) ([]*domain.Song, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query "+what, slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var songs []*domain.Song
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			log.Error("failed to scan song row", slog.String("error", err.Error()))
			return nil, MapError(err)
		}
		songs = append(songs, song)
	}
	if err := rows.Err(); err != nil {
		log.Error("error iterating song rows", slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	log.Debug("found "+what, slog.Int("count", len(songs)))
	return songs, nil
}

// WithTx returns a store bound to tx.
func (s *PostgresSongStore) WithTx(tx *sql.Tx) store.SongStore {
	return &PostgresSongStore{db: tx, logger: s.logger}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSong(row rowScanner) (*domain.Song, error) {
	var (
		song                      domain.Song
		style, tone, format       string
		lyrics, audio, video      string
		audioSubmitted, deliverAt sql.NullTime
		videoSubmitted            sql.NullTime
	)

	err := row.Scan(
		&song.ID, &song.UserID, &song.OrderID, &song.Title, &song.Description,
		&style, &tone, &song.Recipient, &song.Occasion, &song.AdditionalDetails,
		&song.Lyrics, &song.AudioURL, &song.VideoURL, &song.Duration,
		&lyrics, &audio, &video, &song.ImageCount, &format,
		&song.AudioJob.Provider, &song.AudioJob.ID, &audioSubmitted,
		&song.VideoJob.Provider, &song.VideoJob.ID, &videoSubmitted, &song.LastError,
		&song.CreatedAt, &song.UpdatedAt, &deliverAt,
	)
	if err != nil {
		return nil, err
	}

	song.Style = domain.MusicStyle(style)
	song.Tone = domain.EmotionalTone(tone)
	song.VideoFormat = domain.VideoFormat(format)
	song.LyricsStatus = domain.PhaseStatus(lyrics)
	song.AudioStatus = domain.PhaseStatus(audio)
	song.VideoStatus = domain.PhaseStatus(video)
	song.AudioJob.SubmittedAt = timePtr(audioSubmitted)
	song.VideoJob.SubmittedAt = timePtr(videoSubmitted)
	song.DeliveredAt = timePtr(deliverAt)
	return &song, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
