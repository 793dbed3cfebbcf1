package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/songcraft/songcraft-api/internal/domain"
)

// SongUnitOfWork applies one mutation per transaction: lock the row, run
// the mutation, save, commit.
type SongUnitOfWork struct {
	db    *sql.DB
	songs SongStore
}

// NewSongUnitOfWork creates a SongUnitOfWork.
func NewSongUnitOfWork(db *sql.DB, songs SongStore) *SongUnitOfWork {
	return &SongUnitOfWork{db: db, songs: songs}
}

// Get loads a song without a lock.
func (u *SongUnitOfWork) Get(ctx context.Context, id uuid.UUID) (*domain.Song, error) {
	return u.songs.GetByID(ctx, id)
}

// GetByOrderID loads the song created for an order without a lock.
func (u *SongUnitOfWork) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Song, error) {
	return u.songs.GetByOrderID(ctx, orderID)
}

// Do loads the song with a row lock, applies fn and saves it in one
// transaction. When fn fails nothing is saved and its error is returned
// unchanged.
func (u *SongUnitOfWork) Do(ctx context.Context, id uuid.UUID, fn func(song *domain.Song) error) (*domain.Song, error) {
	var saved *domain.Song
	err := RunInTransaction(ctx, u.db, func(ctx context.Context, tx *sql.Tx) error {
		songs := u.songs.WithTx(tx)

		song, err := songs.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(song); err != nil {
			return err
		}
		if err := songs.Update(ctx, song); err != nil {
			return err
		}
		saved = song
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// Create persists a new song in its own transaction.
func (u *SongUnitOfWork) Create(ctx context.Context, song *domain.Song) error {
	return RunInTransaction(ctx, u.db, func(ctx context.Context, tx *sql.Tx) error {
		return u.songs.WithTx(tx).Create(ctx, song)
	})
}

// FindStaleJobs delegates to the song store.
func (u *SongUnitOfWork) FindStaleJobs(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Song, error) {
	return u.songs.FindStaleJobs(ctx, olderThan, limit)
}

// FindInterrupted delegates to the song store.
func (u *SongUnitOfWork) FindInterrupted(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Song, error) {
	return u.songs.FindInterrupted(ctx, olderThan, limit)
}
