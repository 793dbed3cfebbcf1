package generation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name      string
	submitRes Result
	submitErr error
	queryRes  Result
	queryErr  error
	submits   int
	queries   []JobHandle
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Submit(ctx context.Context, req AudioRequest) (Result, error) {
	f.submits++
	return f.submitRes, f.submitErr
}

func (f *fakeProvider) Query(ctx context.Context, job JobHandle) (Result, error) {
	f.queries = append(f.queries, job)
	return f.queryRes, f.queryErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewAudioChain(t *testing.T) {
	a := &fakeProvider{name: "a"}
	b := &fakeProvider{name: "b"}
	c := &fakeProvider{name: "c"}

	_, err := NewAudioChain(discardLogger())
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewAudioChain(discardLogger(), a, b, c)
	assert.ErrorIs(t, err, ErrInvalidConfig, "more than one fallback is rejected")

	_, err = NewAudioChain(discardLogger(), a, &fakeProvider{name: "a"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	chain, err := NewAudioChain(discardLogger(), a, b)
	require.NoError(t, err)
	assert.Len(t, chain.providers, 2)
}

func TestAudioChain_Submit(t *testing.T) {
	req := AudioRequest{Lyrics: "la la la la la", Style: "pop"}

	t.Run("primary completes", func(t *testing.T) {
		primary := &fakeProvider{name: "mureka", submitRes: Completed("https://cdn/a.mp3", 100)}
		fallback := &fakeProvider{name: "suno"}
		chain, err := NewAudioChain(discardLogger(), primary, fallback)
		require.NoError(t, err)

		res, err := chain.Submit(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, KindCompleted, res.Kind)
		assert.Equal(t, 0, fallback.submits)
	})

	t.Run("primary error falls back once", func(t *testing.T) {
		primary := &fakeProvider{name: "mureka", submitErr: ErrTransientFailure}
		fallback := &fakeProvider{name: "suno", submitRes: Processing(JobHandle{ID: "job-9"})}
		chain, err := NewAudioChain(discardLogger(), primary, fallback)
		require.NoError(t, err)

		res, err := chain.Submit(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, KindProcessing, res.Kind)
		assert.Equal(t, JobHandle{Provider: "suno", ID: "job-9"}, res.Job, "handle is stamped with the issuing provider")
		assert.Equal(t, 1, primary.submits)
		assert.Equal(t, 1, fallback.submits)
	})

	t.Run("primary unavailable falls back", func(t *testing.T) {
		primary := &fakeProvider{name: "mureka", submitErr: ErrUnavailable}
		fallback := &fakeProvider{name: "suno", submitRes: Completed("https://cdn/b.mp3", 90)}
		chain, err := NewAudioChain(discardLogger(), primary, fallback)
		require.NoError(t, err)

		res, err := chain.Submit(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "https://cdn/b.mp3", res.ContentRef)
	})

	t.Run("vendor rejection falls back", func(t *testing.T) {
		primary := &fakeProvider{name: "mureka", submitRes: Failed("lyrics rejected")}
		fallback := &fakeProvider{name: "suno", submitRes: Completed("https://cdn/b.mp3", 90)}
		chain, err := NewAudioChain(discardLogger(), primary, fallback)
		require.NoError(t, err)

		res, err := chain.Submit(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, KindCompleted, res.Kind)
	})

	t.Run("both fail", func(t *testing.T) {
		primary := &fakeProvider{name: "mureka", submitErr: errors.New("503")}
		fallback := &fakeProvider{name: "suno", submitErr: errors.New("timeout")}
		chain, err := NewAudioChain(discardLogger(), primary, fallback)
		require.NoError(t, err)

		_, err = chain.Submit(context.Background(), req)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrAllProvidersFailed)
		assert.Contains(t, err.Error(), "mureka: 503")
		assert.Contains(t, err.Error(), "suno: timeout")
		assert.Equal(t, 1, primary.submits)
		assert.Equal(t, 1, fallback.submits)
	})

	t.Run("cancelled context stops the chain", func(t *testing.T) {
		primary := &fakeProvider{name: "mureka", submitErr: errors.New("503")}
		chain, err := NewAudioChain(discardLogger(), primary)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = chain.Submit(ctx, req)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 0, primary.submits)
	})
}

func TestAudioChain_QueryRoutesByProvider(t *testing.T) {
	primary := &fakeProvider{name: "mureka", queryRes: Processing(JobHandle{Provider: "mureka", ID: "1"})}
	fallback := &fakeProvider{name: "suno", queryRes: Completed("https://cdn/s.mp3", 120)}
	chain, err := NewAudioChain(discardLogger(), primary, fallback)
	require.NoError(t, err)

	res, err := chain.Query(context.Background(), JobHandle{Provider: "suno", ID: "abc"})
	require.NoError(t, err)
	assert.Equal(t, KindCompleted, res.Kind)
	assert.Empty(t, primary.queries)
	assert.Equal(t, []JobHandle{{Provider: "suno", ID: "abc"}}, fallback.queries)

	_, err = chain.Query(context.Background(), JobHandle{Provider: "udio", ID: "x"})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}
