package events

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// BroadcasterConfig holds configuration for the broadcaster
type BroadcasterConfig struct {
	// MaxPending caps undelivered events per subscription. When the cap is
	// reached the oldest pending event is dropped. Zero means unbounded.
	MaxPending int
}

// Broadcaster fans status events out to every subscription registered for a
// song. It is safe for concurrent use.
type Broadcaster struct {
	mu         sync.Mutex
	songs      map[uuid.UUID]map[*Subscription]struct{}
	maxPending int
	closed     bool
	logger     *slog.Logger
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster(config BroadcasterConfig, logger *slog.Logger) *Broadcaster {
	maxPending := config.MaxPending
	if maxPending < 0 {
		maxPending = 0
	}
	return &Broadcaster{
		songs:      make(map[uuid.UUID]map[*Subscription]struct{}),
		maxPending: maxPending,
		logger:     logger.With("component", "broadcaster"),
	}
}

// Subscribe registers a new subscription for songID. The returned
// subscription receives every event notified from now on until it is
// unsubscribed. Subscribing to a closed broadcaster yields a subscription
// whose channel is already closed.
func (b *Broadcaster) Subscribe(songID uuid.UUID) *Subscription {
	sub := newSubscription(songID, b.maxPending)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		sub.stop()
		go sub.pump()
		return sub
	}
	set, ok := b.songs[songID]
	if !ok {
		set = make(map[*Subscription]struct{})
		b.songs[songID] = set
	}
	set[sub] = struct{}{}
	count := len(set)
	b.mu.Unlock()

	go sub.pump()

	b.logger.Debug("subscribed", "song_id", songID, "subscriber_count", count)
	return sub
}

// Unsubscribe removes sub and closes its channel. The song's entry is
// dropped once its last subscription leaves. Calling it more than once is
// harmless.
func (b *Broadcaster) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	if set, ok := b.songs[sub.songID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(b.songs, sub.songID)
		}
	}
	b.mu.Unlock()

	sub.stop()
	b.logger.Debug("unsubscribed", "song_id", sub.songID)
}

// Notify queues event on every subscription currently registered for
// songID. It never blocks on subscribers.
func (b *Broadcaster) Notify(songID uuid.UUID, event StatusEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set := b.songs[songID]
	for sub := range set {
		if dropped := sub.push(event); dropped {
			b.logger.Warn("subscriber lagging, dropped oldest event",
				"song_id", songID,
				"max_pending", b.maxPending)
		}
	}

	b.logger.Debug("notified subscribers",
		"song_id", songID,
		"status", event.Status,
		"subscriber_count", len(set))
}

// SubscriberCount returns the number of live subscriptions for songID.
func (b *Broadcaster) SubscriberCount(songID uuid.UUID) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.songs[songID])
}

// Close unsubscribes everyone. Later subscriptions are closed immediately
// and later notifications go nowhere.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	b.closed = true
	songs := b.songs
	b.songs = make(map[uuid.UUID]map[*Subscription]struct{})
	b.mu.Unlock()

	for _, set := range songs {
		for sub := range set {
			sub.stop()
		}
	}
	b.logger.Info("broadcaster closed")
}

var _ Notifier = (*Broadcaster)(nil)
