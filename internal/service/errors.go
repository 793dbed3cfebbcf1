package service

import (
	"errors"
	"fmt"

	"github.com/songcraft/songcraft-api/internal/store"
)

// Common service errors. The API layer maps these to HTTP status codes.
var (
	// ErrNotOwned indicates the song belongs to another user. Maps to 403.
	ErrNotOwned = errors.New("resource is owned by another user")

	// ErrSongNotFound indicates the song does not exist. Maps to 404.
	ErrSongNotFound = errors.New("song not found")

	// ErrSongExists indicates a song was already created for the order.
	// Payment events may be delivered more than once. Maps to 409.
	ErrSongExists = errors.New("song already exists for order")

	// ErrQueueUnavailable indicates the song was saved but could not be
	// queued for generation. A redelivered payment event queues it again.
	// Maps to 503.
	ErrQueueUnavailable = errors.New("generation queue unavailable")
)

// SongServiceError wraps unexpected failures with the failing operation.
type SongServiceError struct {
	Operation string
	Message   string
	Err       error
}

func (e *SongServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("song service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("song service %s failed: %s", e.Operation, e.Message)
}

func (e *SongServiceError) Unwrap() error {
	return e.Err
}

// NewSongServiceError wraps err. Store sentinels are translated to the
// service sentinels and returned unwrapped.
func NewSongServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrSongNotFound), errors.Is(err, store.ErrSongNotFound):
		return ErrSongNotFound
	case errors.Is(err, ErrSongExists), errors.Is(err, store.ErrSongExists):
		return ErrSongExists
	case errors.Is(err, ErrNotOwned):
		return ErrNotOwned
	}

	return &SongServiceError{Operation: operation, Message: message, Err: err}
}
