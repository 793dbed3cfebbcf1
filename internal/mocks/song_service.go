package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/songcraft/songcraft-api/internal/domain"
	"github.com/songcraft/songcraft-api/internal/service"
)

// ErrNotConfigured is returned by mock methods that have no behavior set.
var ErrNotConfigured = errors.New("mock method not configured")

// MockSongService implements service.SongService for testing
type MockSongService struct {
	CreateFromPaymentFn func(ctx context.Context, evt service.PaymentConfirmed) (*domain.Song, error)
	GetSongFn           func(ctx context.Context, userID, songID uuid.UUID) (*domain.Song, error)
	MarkDeliveredFn     func(ctx context.Context, userID, songID uuid.UUID) (*domain.Song, error)

	mu       sync.Mutex
	payments []service.PaymentConfirmed
}

var _ service.SongService = (*MockSongService)(nil)

// CreateFromPayment implements service.SongService
func (m *MockSongService) CreateFromPayment(ctx context.Context, evt service.PaymentConfirmed) (*domain.Song, error) {
	m.mu.Lock()
	m.payments = append(m.payments, evt)
	m.mu.Unlock()

	if m.CreateFromPaymentFn != nil {
		return m.CreateFromPaymentFn(ctx, evt)
	}
	return nil, ErrNotConfigured
}

// GetSong implements service.SongService
func (m *MockSongService) GetSong(ctx context.Context, userID, songID uuid.UUID) (*domain.Song, error) {
	if m.GetSongFn != nil {
		return m.GetSongFn(ctx, userID, songID)
	}
	return nil, ErrNotConfigured
}

// MarkDelivered implements service.SongService
func (m *MockSongService) MarkDelivered(ctx context.Context, userID, songID uuid.UUID) (*domain.Song, error) {
	if m.MarkDeliveredFn != nil {
		return m.MarkDeliveredFn(ctx, userID, songID)
	}
	return nil, ErrNotConfigured
}

// Payments returns every payment passed to CreateFromPayment, in call order.
func (m *MockSongService) Payments() []service.PaymentConfirmed {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]service.PaymentConfirmed(nil), m.payments...)
}
