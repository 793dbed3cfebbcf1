package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// MaxAudioProviders bounds the chain to a primary and one fallback.
const MaxAudioProviders = 2

// AudioChain submits audio to providers in priority order. If the primary
// errors, is unavailable or rejects the job, the next provider is tried
// once. The same provider is never retried.
type AudioChain struct {
	providers []AudioProvider
	byName    map[string]AudioProvider
	logger    *slog.Logger
}

// NewAudioChain creates a chain over one or two providers with distinct names.
func NewAudioChain(logger *slog.Logger, providers ...AudioProvider) (*AudioChain, error) {
	if len(providers) == 0 || len(providers) > MaxAudioProviders {
		return nil, fmt.Errorf("%w: need 1 to %d audio providers, got %d",
			ErrInvalidConfig, MaxAudioProviders, len(providers))
	}

	byName := make(map[string]AudioProvider, len(providers))
	for _, p := range providers {
		if p == nil {
			return nil, fmt.Errorf("%w: nil audio provider", ErrInvalidConfig)
		}
		if _, dup := byName[p.Name()]; dup {
			return nil, fmt.Errorf("%w: duplicate audio provider %q", ErrInvalidConfig, p.Name())
		}
		byName[p.Name()] = p
	}

	return &AudioChain{
		providers: providers,
		byName:    byName,
		logger:    logger.With("component", "audio_chain"),
	}, nil
}

// Name identifies the chain in logs.
func (c *AudioChain) Name() string {
	return "chain"
}

// Submit returns the first Completed or Processing result. When every
// provider fails the error wraps ErrAllProvidersFailed and each cause.
func (c *AudioChain) Submit(ctx context.Context, req AudioRequest) (Result, error) {
	var causes []error

	for i, p := range c.providers {
		if err := ctx.Err(); err != nil {
			causes = append(causes, err)
			break
		}

		log := c.logger.With("provider", p.Name(), "attempt", i+1)
		res, err := p.Submit(ctx, req)
		switch {
		case err != nil:
			log.Warn("audio provider submit failed", "error", err)
			causes = append(causes, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		case res.Kind == KindFailed:
			log.Warn("audio provider rejected job", "reason", res.Reason)
			causes = append(causes, fmt.Errorf("%s: %s", p.Name(), res.Reason))
			continue
		case res.Kind == KindProcessing && res.Job.Provider == "":
			res.Job.Provider = p.Name()
		}

		if i > 0 {
			log.Info("audio accepted by fallback provider", "result", res.Kind.String())
		}
		return res, nil
	}

	return Result{}, fmt.Errorf("%w: %w", ErrAllProvidersFailed, errors.Join(causes...))
}

// Query routes a status check to the provider that issued the job.
func (c *AudioChain) Query(ctx context.Context, job JobHandle) (Result, error) {
	p, ok := c.byName[job.Provider]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownProvider, job.Provider)
	}
	return p.Query(ctx, job)
}

var _ AudioProvider = (*AudioChain)(nil)
