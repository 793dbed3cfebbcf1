package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/songcraft/songcraft-api/internal/domain"
	"github.com/songcraft/songcraft-api/internal/events"
	"github.com/songcraft/songcraft-api/internal/generation"
	"github.com/stretchr/testify/require"
)

const generatedLyrics = "[Verse]\nAnna, the candles are lit tonight\n[Chorus]\nHappy birthday"

var errPersist = errors.New("connection reset")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memoryStore is a UnitOfWork over a map. failOn makes the n-th Do fail
// before anything is saved.
type memoryStore struct {
	mu      sync.Mutex
	songs   map[uuid.UUID]domain.Song
	commits int
	calls   int
	failOn  int
	stale   []*domain.Song
	stuck   []*domain.Song
	cutoffs []time.Time
}

func newMemoryStore(songs ...*domain.Song) *memoryStore {
	s := &memoryStore{songs: make(map[uuid.UUID]domain.Song)}
	for _, song := range songs {
		s.songs[song.ID] = *song
	}
	return s
}

func (s *memoryStore) Get(_ context.Context, id uuid.UUID) (*domain.Song, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	song, ok := s.songs[id]
	if !ok {
		return nil, errors.New("song not found")
	}
	return &song, nil
}

func (s *memoryStore) Do(_ context.Context, id uuid.UUID, fn Mutation) (*domain.Song, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failOn > 0 && s.calls == s.failOn {
		return nil, errPersist
	}
	song, ok := s.songs[id]
	if !ok {
		return nil, errors.New("song not found")
	}
	if err := fn(&song); err != nil {
		return nil, err
	}
	s.songs[id] = song
	s.commits++
	out := song
	return &out, nil
}

func (s *memoryStore) FindStaleJobs(_ context.Context, _ time.Time, _ int) ([]*domain.Song, error) {
	return s.stale, nil
}

func (s *memoryStore) FindInterrupted(_ context.Context, olderThan time.Time, _ int) ([]*domain.Song, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cutoffs = append(s.cutoffs, olderThan)
	return s.stuck, nil
}

func (s *memoryStore) song(t *testing.T, id uuid.UUID) domain.Song {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	song, ok := s.songs[id]
	require.True(t, ok)
	return song
}

type fakeLyrics struct {
	text  string
	err   error
	calls int
}

func (f *fakeLyrics) GenerateLyrics(context.Context, generation.LyricsRequest) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeTitles struct {
	title string
	err   error
	calls int
}

func (f *fakeTitles) GenerateTitle(context.Context, string) (string, error) {
	f.calls++
	return f.title, f.err
}

// scriptedVendor answers Submit with submit/submitErr and each Query with
// the next entry of queries.
type scriptedVendor struct {
	name      string
	submit    generation.Result
	submitErr error
	queries   []queryAnswer

	mu          sync.Mutex
	submitCalls int
	queryCalls  int
}

type queryAnswer struct {
	res generation.Result
	err error
}

func (v *scriptedVendor) Name() string { return v.name }

func (v *scriptedVendor) Submit(context.Context, generation.AudioRequest) (generation.Result, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.submitCalls++
	return v.submit, v.submitErr
}

func (v *scriptedVendor) Query(context.Context, generation.JobHandle) (generation.Result, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.queryCalls++
	if len(v.queries) == 0 {
		return generation.Result{}, errors.New("unexpected query")
	}
	next := v.queries[0]
	v.queries = v.queries[1:]
	return next.res, next.err
}

type scriptedRenderer struct {
	scriptedVendor
	requests []generation.VideoRequest
}

func (r *scriptedRenderer) Submit(_ context.Context, req generation.VideoRequest) (generation.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submitCalls++
	r.requests = append(r.requests, req)
	return r.submit, r.submitErr
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []events.StatusEvent
}

func (n *recordingNotifier) Notify(_ uuid.UUID, ev events.StatusEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) all() []events.StatusEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]events.StatusEvent, len(n.events))
	copy(out, n.events)
	return out
}

func (n *recordingNotifier) last(t *testing.T) events.StatusEvent {
	t.Helper()
	all := n.all()
	require.NotEmpty(t, all)
	return all[len(all)-1]
}

// instantSleeper records requested waits without sleeping.
type instantSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *instantSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

func job(provider, id string) generation.JobHandle {
	return generation.JobHandle{Provider: provider, ID: id}
}

func processing() queryAnswer {
	return queryAnswer{res: generation.Processing(job("suno", "gen-1"))}
}

func newSong(t *testing.T, imageCount int) *domain.Song {
	t.Helper()
	song, err := domain.NewSong(uuid.New(), uuid.New(), domain.SongRequest{
		Description: "A birthday song for my sister Anna who loves the sea",
		Style:       domain.StylePop,
		Tone:        domain.TonePlayful,
		ImageCount:  imageCount,
	})
	require.NoError(t, err)
	return song
}

type harness struct {
	store    *memoryStore
	lyrics   *fakeLyrics
	titles   *fakeTitles
	primary  *scriptedVendor
	fallback *scriptedVendor
	video    *scriptedRenderer
	notifier *recordingNotifier
	sleeper  *instantSleeper
	orch     *Orchestrator
}

func newHarness(t *testing.T, song *domain.Song) *harness {
	t.Helper()
	h := &harness{
		store:    newMemoryStore(song),
		lyrics:   &fakeLyrics{text: generatedLyrics},
		titles:   &fakeTitles{title: "Anna by the Sea"},
		primary:  &scriptedVendor{name: "mureka"},
		fallback: &scriptedVendor{name: "suno"},
		video:    &scriptedRenderer{scriptedVendor: scriptedVendor{name: "videorender"}},
		notifier: &recordingNotifier{},
		sleeper:  &instantSleeper{},
	}
	h.orch = h.build(t)
	return h
}

func (h *harness) build(t *testing.T) *Orchestrator {
	t.Helper()
	chain, err := generation.NewAudioChain(discardLogger(), h.primary, h.fallback)
	require.NoError(t, err)

	orch, err := NewOrchestrator(Dependencies{
		Store:    h.store,
		Lyrics:   h.lyrics,
		Titles:   h.titles,
		Audio:    chain,
		Video:    h.video,
		Poller:   NewPoller(DefaultPollPolicy(), h.sleeper.Sleep, discardLogger()),
		Notifier: h.notifier,
		Logger:   discardLogger(),
	})
	require.NoError(t, err)
	return orch
}
