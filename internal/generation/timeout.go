package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultTextTimeout bounds one lyrics or title call.
const DefaultTextTimeout = 60 * time.Second

// TimedGenerator bounds each call of a TextGenerator with a fixed timeout.
// It never retries.
type TimedGenerator struct {
	next    TextGenerator
	timeout time.Duration
}

// NewTimedGenerator wraps next. A non-positive timeout uses DefaultTextTimeout.
func NewTimedGenerator(next TextGenerator, timeout time.Duration) *TimedGenerator {
	if timeout <= 0 {
		timeout = DefaultTextTimeout
	}
	return &TimedGenerator{next: next, timeout: timeout}
}

// GenerateLyrics implements LyricsGenerator.
func (g *TimedGenerator) GenerateLyrics(ctx context.Context, req LyricsRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	text, err := g.next.GenerateLyrics(ctx, req)
	if err != nil {
		return "", g.wrap(ctx, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty lyrics", ErrInvalidResponse)
	}
	return text, nil
}

// GenerateTitle implements TitleGenerator. Surrounding quotes are stripped.
func (g *TimedGenerator) GenerateTitle(ctx context.Context, lyrics string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	title, err := g.next.GenerateTitle(ctx, lyrics)
	if err != nil {
		return "", g.wrap(ctx, err)
	}
	title = strings.Trim(strings.TrimSpace(title), `"'`)
	if title == "" {
		return "", fmt.Errorf("%w: empty title", ErrInvalidResponse)
	}
	return title, nil
}

func (g *TimedGenerator) wrap(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, ErrTransientFailure) {
		return fmt.Errorf("%w: timed out after %s: %w", ErrTransientFailure, g.timeout, err)
	}
	return err
}

var _ TextGenerator = (*TimedGenerator)(nil)
