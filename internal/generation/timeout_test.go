package generation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeText struct {
	lyrics string
	title  string
	err    error
	block  bool
	calls  int
}

func (f *fakeText) GenerateLyrics(ctx context.Context, req LyricsRequest) (string, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.lyrics, f.err
}

func (f *fakeText) GenerateTitle(ctx context.Context, lyrics string) (string, error) {
	f.calls++
	return f.title, f.err
}

func TestTimedGenerator_TimesOutWithoutRetry(t *testing.T) {
	inner := &fakeText{block: true}
	gen := NewTimedGenerator(inner, 20*time.Millisecond)

	_, err := gen.GenerateLyrics(context.Background(), LyricsRequest{Description: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransientFailure)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, inner.calls)
}

func TestTimedGenerator_Normalizes(t *testing.T) {
	gen := NewTimedGenerator(&fakeText{lyrics: "  verse\nchorus  ", title: ` "Summer Nights" `}, 0)
	assert.Equal(t, DefaultTextTimeout, gen.timeout)

	lyrics, err := gen.GenerateLyrics(context.Background(), LyricsRequest{})
	require.NoError(t, err)
	assert.Equal(t, "verse\nchorus", lyrics)

	title, err := gen.GenerateTitle(context.Background(), lyrics)
	require.NoError(t, err)
	assert.Equal(t, "Summer Nights", title)
}

func TestTimedGenerator_EmptyResponse(t *testing.T) {
	gen := NewTimedGenerator(&fakeText{lyrics: "   "}, time.Second)

	_, err := gen.GenerateLyrics(context.Background(), LyricsRequest{})
	assert.ErrorIs(t, err, ErrInvalidResponse)
}
