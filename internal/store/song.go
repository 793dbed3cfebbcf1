package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/songcraft/songcraft-api/internal/domain"
)

// SongStore persists songs.
type SongStore interface {
	// Create inserts a new song. Returns ErrSongExists if a song already
	// exists for the order.
	Create(ctx context.Context, song *domain.Song) error

	// GetByID returns ErrSongNotFound if the song does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Song, error)

	// GetForUpdate is GetByID holding a row lock until the enclosing
	// transaction ends. It must run inside a transaction.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Song, error)

	// GetByOrderID returns ErrSongNotFound if no song exists for the order.
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Song, error)

	// Update saves every mutable field of an existing song.
	Update(ctx context.Context, song *domain.Song) error

	// FindStaleJobs lists songs whose audio or video is in progress with a
	// job submitted before olderThan, oldest first.
	FindStaleJobs(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Song, error)

	// FindInterrupted lists unfinished songs not waiting on any job that
	// were last updated before olderThan, oldest first.
	FindInterrupted(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Song, error)

	// WithTx returns a SongStore bound to tx.
	WithTx(tx *sql.Tx) SongStore
}
