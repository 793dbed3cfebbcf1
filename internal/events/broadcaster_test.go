package events

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/songcraft/songcraft-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBroadcaster(maxPending int) *Broadcaster {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewBroadcaster(BroadcasterConfig{MaxPending: maxPending}, logger)
}

func receive(t *testing.T, sub *Subscription) StatusEvent {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		require.True(t, ok, "subscription channel closed unexpectedly")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return StatusEvent{}
	}
}

func assertNoEvent(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		if ok {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func assertClosed(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case _, ok := <-sub.Events():
		assert.False(t, ok, "channel should be closed")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func event(songID uuid.UUID, msg string) StatusEvent {
	return StatusEvent{SongID: songID, Status: domain.StatusInProgress, Message: msg}
}

func TestBroadcaster_FanOutInOrder(t *testing.T) {
	b := newTestBroadcaster(0)
	defer b.Close()
	songID := uuid.New()

	first := b.Subscribe(songID)
	second := b.Subscribe(songID)
	assert.Equal(t, 2, b.SubscriberCount(songID))

	for _, msg := range []string{"one", "two", "three"} {
		b.Notify(songID, event(songID, msg))
	}

	for _, sub := range []*Subscription{first, second} {
		assert.Equal(t, "one", receive(t, sub).Message)
		assert.Equal(t, "two", receive(t, sub).Message)
		assert.Equal(t, "three", receive(t, sub).Message)
	}
}

// Two observers get the same completion payload; after one leaves only the
// other sees later updates.
func TestBroadcaster_SubscriberIsolation(t *testing.T) {
	b := newTestBroadcaster(0)
	defer b.Close()
	songID := uuid.New()

	staying := b.Subscribe(songID)
	leaving := b.Subscribe(songID)

	done := StatusEvent{SongID: songID, Status: domain.StatusCompleted, AudioURL: "https://cdn.example.com/a.mp3"}
	b.Notify(songID, done)

	assert.Equal(t, done, receive(t, staying))
	assert.Equal(t, done, receive(t, leaving))

	b.Unsubscribe(leaving)
	assertClosed(t, leaving)
	assert.Equal(t, 1, b.SubscriberCount(songID))

	b.Notify(songID, event(songID, "after"))
	assert.Equal(t, "after", receive(t, staying).Message)
}

func TestBroadcaster_KeyedBySong(t *testing.T) {
	b := newTestBroadcaster(0)
	defer b.Close()
	songA, songB := uuid.New(), uuid.New()

	subA := b.Subscribe(songA)
	subB := b.Subscribe(songB)

	b.Notify(songA, event(songA, "for a"))

	assert.Equal(t, "for a", receive(t, subA).Message)
	assertNoEvent(t, subB)
}

func TestBroadcaster_NoHistory(t *testing.T) {
	b := newTestBroadcaster(0)
	defer b.Close()
	songID := uuid.New()

	b.Notify(songID, event(songID, "before anyone listened"))

	late := b.Subscribe(songID)
	assertNoEvent(t, late)

	b.Notify(songID, event(songID, "live"))
	assert.Equal(t, "live", receive(t, late).Message)
}

func TestBroadcaster_EntryRemovedWithLastSubscriber(t *testing.T) {
	b := newTestBroadcaster(0)
	defer b.Close()
	songID := uuid.New()

	sub := b.Subscribe(songID)
	b.Unsubscribe(sub)
	b.Unsubscribe(sub)

	assert.Equal(t, 0, b.SubscriberCount(songID))
	b.mu.Lock()
	_, present := b.songs[songID]
	b.mu.Unlock()
	assert.False(t, present)
}

func TestBroadcaster_NotifyDoesNotBlockOnIdleSubscriber(t *testing.T) {
	b := newTestBroadcaster(0)
	defer b.Close()
	songID := uuid.New()

	idle := b.Subscribe(songID)

	finished := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			b.Notify(songID, event(songID, "tick"))
		}
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a subscriber that never reads")
	}

	for i := 0; i < 1000; i++ {
		receive(t, idle)
	}
}

func TestBroadcaster_MaxPendingDropsOldest(t *testing.T) {
	b := newTestBroadcaster(2)
	defer b.Close()
	songID := uuid.New()

	sub := b.Subscribe(songID)
	// Park the pump on the first event so the rest queue up.
	b.Notify(songID, event(songID, "e1"))
	time.Sleep(20 * time.Millisecond)

	for _, msg := range []string{"e2", "e3", "e4"} {
		b.Notify(songID, event(songID, msg))
	}

	assert.Equal(t, "e1", receive(t, sub).Message)
	assert.Equal(t, "e3", receive(t, sub).Message)
	assert.Equal(t, "e4", receive(t, sub).Message)
	assertNoEvent(t, sub)
}

func TestBroadcaster_Close(t *testing.T) {
	b := newTestBroadcaster(0)
	songID := uuid.New()

	sub := b.Subscribe(songID)
	b.Close()
	assertClosed(t, sub)

	late := b.Subscribe(songID)
	assertClosed(t, late)
	b.Notify(songID, event(songID, "ignored"))
}

func TestBroadcaster_ConcurrentSubscribers(t *testing.T) {
	b := newTestBroadcaster(0)
	defer b.Close()
	songID := uuid.New()

	const n = 20
	subs := make([]*Subscription, n)
	for i := range subs {
		subs[i] = b.Subscribe(songID)
	}

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(sub *Subscription) {
			defer wg.Done()
			assert.Equal(t, "hello", receive(t, sub).Message)
			b.Unsubscribe(sub)
		}(sub)
	}

	b.Notify(songID, event(songID, "hello"))
	wg.Wait()
	assert.Equal(t, 0, b.SubscriberCount(songID))
}

func TestNewStatusEvent(t *testing.T) {
	song, err := domain.NewSong(uuid.New(), uuid.New(), domain.SongRequest{
		Description: "Wedding song for Mia and Tom",
		Style:       domain.StyleAcoustic,
		ImageCount:  1,
	})
	require.NoError(t, err)
	require.NoError(t, song.StartLyrics())

	ev := NewStatusEvent(song).WithMessage("writing lyrics").WithEstimate(5)

	assert.Equal(t, song.ID, ev.SongID)
	assert.Equal(t, domain.StatusInProgress, ev.LyricsStatus)
	assert.Equal(t, domain.StatusNotStarted, ev.AudioStatus)
	assert.Equal(t, domain.StatusInProgress, ev.Status)
	assert.Equal(t, "writing lyrics", ev.Message)
	assert.Equal(t, 5, ev.EstimatedCompletionMinutes)
	assert.Empty(t, ev.Error)
}
