package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/songcraft/songcraft-api/internal/domain"
	"github.com/songcraft/songcraft-api/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingScheduler struct {
	mu       sync.Mutex
	ids      []uuid.UUID
	restarts []uuid.UUID
	err      error
}

func (s *recordingScheduler) EnqueueGeneration(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.restarts = append(s.restarts, id)
	return nil
}

func (s *recordingScheduler) ScheduleReconcile(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.ids = append(s.ids, id)
	return nil
}

func newTestReconciler(t *testing.T, h *harness) *Reconciler {
	t.Helper()
	r, err := NewReconciler(h.orch, h.store, ReconcilerConfig{}, discardLogger())
	require.NoError(t, err)
	return r
}

func TestNewReconciler(t *testing.T) {
	h := newHarness(t, newSong(t, 0))

	_, err := NewReconciler(nil, h.store, ReconcilerConfig{}, discardLogger())
	assert.Error(t, err)
	_, err = NewReconciler(h.orch, nil, ReconcilerConfig{}, discardLogger())
	assert.Error(t, err)

	r := newTestReconciler(t, h)
	assert.Equal(t, DefaultReconcileInterval, r.config.Interval)
	assert.Equal(t, DefaultStaleAfter, r.config.StaleAfter)
	assert.Equal(t, DefaultReconcileBatch, r.config.BatchSize)
}

func TestReconcileSong(t *testing.T) {
	t.Run("completed job finishes the song", func(t *testing.T) {
		song := songAwaitingAudio(t, 0)
		h := newHarness(t, song)
		h.fallback.queries = []queryAnswer{{res: generation.Completed(audioURL, 160)}}

		changed, err := newTestReconciler(t, h).ReconcileSong(context.Background(), song.ID)
		require.NoError(t, err)
		assert.True(t, changed)

		got := h.store.song(t, song.ID)
		assert.Equal(t, domain.StatusCompleted, got.OverallStatus())
		assert.Equal(t, 1, h.fallback.queryCalls)
		assert.Equal(t, domain.StatusCompleted, h.notifier.last(t).Status)
	})

	t.Run("completed job continues with video", func(t *testing.T) {
		song := songAwaitingAudio(t, 2)
		h := newHarness(t, song)
		h.fallback.queries = []queryAnswer{{res: generation.Completed(audioURL, 160)}}
		h.video.submit = generation.Completed("https://cdn.example.com/v.mp4", 0)

		changed, err := newTestReconciler(t, h).ReconcileSong(context.Background(), song.ID)
		require.NoError(t, err)
		assert.True(t, changed)

		got := h.store.song(t, song.ID)
		assert.Equal(t, domain.StatusCompleted, got.VideoStatus)
		assert.True(t, got.IsReadyForDelivery())
	})

	t.Run("failed job fails audio", func(t *testing.T) {
		song := songAwaitingAudio(t, 1)
		h := newHarness(t, song)
		h.fallback.queries = []queryAnswer{{res: generation.Failed("expired")}}

		changed, err := newTestReconciler(t, h).ReconcileSong(context.Background(), song.ID)
		require.NoError(t, err)
		assert.True(t, changed)

		got := h.store.song(t, song.ID)
		assert.Equal(t, domain.StatusFailed, got.AudioStatus)
		assert.Equal(t, domain.StatusFailed, got.VideoStatus)
		assert.Equal(t, "expired", got.LastError)
	})

	t.Run("still processing is a no-op", func(t *testing.T) {
		song := songAwaitingAudio(t, 0)
		h := newHarness(t, song)
		h.fallback.queries = []queryAnswer{processing()}

		changed, err := newTestReconciler(t, h).ReconcileSong(context.Background(), song.ID)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, *song, h.store.song(t, song.ID))
		assert.Empty(t, h.notifier.all())
	})

	t.Run("song without job is left alone", func(t *testing.T) {
		song := newSong(t, 0)
		h := newHarness(t, song)

		changed, err := newTestReconciler(t, h).ReconcileSong(context.Background(), song.ID)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Zero(t, h.fallback.queryCalls)
		assert.Zero(t, h.primary.queryCalls)
	})

	t.Run("query error is returned", func(t *testing.T) {
		song := songAwaitingAudio(t, 0)
		h := newHarness(t, song)
		h.fallback.queries = []queryAnswer{{err: generation.ErrTransientFailure}}

		changed, err := newTestReconciler(t, h).ReconcileSong(context.Background(), song.ID)
		assert.ErrorIs(t, err, generation.ErrTransientFailure)
		assert.False(t, changed)
		assert.Equal(t, domain.StatusInProgress, h.store.song(t, song.ID).AudioStatus)
	})
}

func TestReconcileSong_VideoJob(t *testing.T) {
	t.Run("render that outlived the poller completes the song", func(t *testing.T) {
		song := newSong(t, 2)
		h := newHarness(t, song)
		h.primary.submit = generation.Completed(audioURL, 120)
		h.video.submit = generation.Processing(job("videorender", "r-1"))
		h.video.queries = []queryAnswer{
			{res: generation.Processing(job("videorender", "r-1"))},
			{res: generation.Processing(job("videorender", "r-1"))},
			{res: generation.Processing(job("videorender", "r-1"))},
		}
		require.NoError(t, h.orch.Run(context.Background(), song.ID))
		require.Equal(t, domain.StatusInProgress, h.store.song(t, song.ID).VideoStatus)

		h.video.queries = []queryAnswer{{res: generation.Completed("https://cdn.example.com/v.mp4", 0)}}
		changed, err := newTestReconciler(t, h).ReconcileSong(context.Background(), song.ID)
		require.NoError(t, err)
		assert.True(t, changed)

		got := h.store.song(t, song.ID)
		assert.Equal(t, domain.StatusCompleted, got.VideoStatus)
		assert.Equal(t, "https://cdn.example.com/v.mp4", got.VideoURL)
		assert.True(t, got.IsReadyForDelivery())
		assert.Equal(t, 1, h.video.submitCalls, "the stored job is queried, not resubmitted")
		assert.Equal(t, 4, h.video.queryCalls)
	})

	t.Run("failed render fails video", func(t *testing.T) {
		song := songAwaitingVideo(t)
		h := newHarness(t, song)
		h.video.queries = []queryAnswer{{res: generation.Failed("render crashed")}}

		changed, err := newTestReconciler(t, h).ReconcileSong(context.Background(), song.ID)
		require.NoError(t, err)
		assert.True(t, changed)

		got := h.store.song(t, song.ID)
		assert.Equal(t, domain.StatusCompleted, got.AudioStatus)
		assert.Equal(t, domain.StatusFailed, got.VideoStatus)
		assert.Equal(t, "render crashed", got.LastError)
	})

	t.Run("render still processing is a no-op", func(t *testing.T) {
		song := songAwaitingVideo(t)
		h := newHarness(t, song)
		h.video.queries = []queryAnswer{{res: generation.Processing(job("videorender", "r-1"))}}

		changed, err := newTestReconciler(t, h).ReconcileSong(context.Background(), song.ID)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, *song, h.store.song(t, song.ID))
	})
}

func TestSweep_Inline(t *testing.T) {
	done := songAwaitingAudio(t, 0)
	pending := songAwaitingAudio(t, 0)
	h := newHarness(t, done)
	h.store.songs[pending.ID] = *pending
	h.store.stale = []*domain.Song{done, pending}
	h.fallback.queries = []queryAnswer{
		{res: generation.Completed(audioURL, 160)},
		processing(),
	}

	count, err := newTestReconciler(t, h).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, domain.StatusCompleted, h.store.song(t, done.ID).AudioStatus)
	assert.Equal(t, domain.StatusInProgress, h.store.song(t, pending.ID).AudioStatus)
}

func TestSweep_Scheduled(t *testing.T) {
	song := songAwaitingAudio(t, 0)
	h := newHarness(t, song)
	h.store.stale = []*domain.Song{song}

	r := newTestReconciler(t, h)
	sched := &recordingScheduler{}
	r.SetScheduler(sched)

	count, err := r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, []uuid.UUID{song.ID}, sched.ids)
	assert.Zero(t, h.fallback.queryCalls)

	sched.err = errors.New("queue full")
	count, err = r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRecover_Inline(t *testing.T) {
	queued := newSong(t, 0)
	h := newHarness(t, queued)
	h.store.stuck = []*domain.Song{queued}
	h.primary.submit = generation.Completed(audioURL, 120)

	cutoff := time.Now()
	count, err := newTestReconciler(t, h).Recover(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	got := h.store.song(t, queued.ID)
	assert.Equal(t, domain.StatusCompleted, got.OverallStatus())
	assert.Equal(t, []time.Time{cutoff}, h.store.cutoffs)
}

func TestRecover_ResumesInterruptedPhases(t *testing.T) {
	lyricsRunning := newSong(t, 0)
	require.NoError(t, lyricsRunning.StartLyrics())

	audioRunning := newSong(t, 0)
	require.NoError(t, audioRunning.StartLyrics())
	require.NoError(t, audioRunning.CompleteLyrics(generatedLyrics))
	require.NoError(t, audioRunning.StartAudio())

	h := newHarness(t, lyricsRunning)
	h.store.songs[audioRunning.ID] = *audioRunning
	h.store.stuck = []*domain.Song{lyricsRunning, audioRunning}
	h.primary.submit = generation.Completed(audioURL, 120)

	count, err := newTestReconciler(t, h).Recover(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	gotLyrics := h.store.song(t, lyricsRunning.ID)
	gotAudio := h.store.song(t, audioRunning.ID)
	assert.Equal(t, domain.StatusCompleted, gotLyrics.OverallStatus())
	assert.Equal(t, domain.StatusCompleted, gotAudio.OverallStatus())
	assert.Equal(t, 1, h.lyrics.calls, "completed lyrics are not regenerated")
	assert.Equal(t, 2, h.primary.submitCalls)
}

func TestRecover_Scheduled(t *testing.T) {
	song := newSong(t, 0)
	h := newHarness(t, song)
	h.store.stuck = []*domain.Song{song}

	r := newTestReconciler(t, h)
	sched := &recordingScheduler{}
	r.SetScheduler(sched)

	count, err := r.Recover(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, []uuid.UUID{song.ID}, sched.restarts)
	assert.Zero(t, h.lyrics.calls)

	sched.err = errors.New("queue full")
	count, err = r.Recover(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestReconciler_RunRecoversAtStartup(t *testing.T) {
	song := newSong(t, 0)
	h := newHarness(t, song)
	h.store.stuck = []*domain.Song{song}

	r, err := NewReconciler(h.orch, h.store, ReconcilerConfig{Interval: time.Hour}, discardLogger())
	require.NoError(t, err)
	sched := &recordingScheduler{}
	r.SetScheduler(sched)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		sched.mu.Lock()
		defer sched.mu.Unlock()
		return len(sched.restarts) == 1
	}, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, []uuid.UUID{song.ID}, sched.restarts)
}

func TestReconciler_RunStopsWithContext(t *testing.T) {
	h := newHarness(t, newSong(t, 0))
	r, err := NewReconciler(h.orch, h.store, ReconcilerConfig{Interval: time.Millisecond}, discardLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop")
	}
}
