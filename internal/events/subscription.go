package events

import (
	"sync"

	"github.com/google/uuid"
)

// Subscription is one observer of a song's status events.
type Subscription struct {
	songID     uuid.UUID
	out        chan StatusEvent
	maxPending int

	mu      sync.Mutex
	pending []StatusEvent

	wake     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newSubscription(songID uuid.UUID, maxPending int) *Subscription {
	return &Subscription{
		songID:     songID,
		out:        make(chan StatusEvent),
		maxPending: maxPending,
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// SongID returns the song this subscription observes.
func (s *Subscription) SongID() uuid.UUID {
	return s.songID
}

// Events returns the delivery channel. It is closed after Unsubscribe.
func (s *Subscription) Events() <-chan StatusEvent {
	return s.out
}

// push appends event and wakes the pump. It reports whether an older event
// had to be dropped to respect maxPending.
func (s *Subscription) push(event StatusEvent) bool {
	s.mu.Lock()
	dropped := false
	if s.maxPending > 0 && len(s.pending) >= s.maxPending {
		s.pending = s.pending[1:]
		dropped = true
	}
	s.pending = append(s.pending, event)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return dropped
}

func (s *Subscription) next() (StatusEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return StatusEvent{}, false
	}
	event := s.pending[0]
	s.pending[0] = StatusEvent{}
	s.pending = s.pending[1:]
	return event, true
}

// pump delivers pending events in order until the subscription stops.
func (s *Subscription) pump() {
	defer close(s.out)
	for {
		event, ok := s.next()
		if !ok {
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}
		select {
		case s.out <- event:
		case <-s.done:
			return
		}
	}
}

func (s *Subscription) stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
}
