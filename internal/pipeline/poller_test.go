package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/songcraft/songcraft-api/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type callbackRecorder struct {
	successes []generation.Result
	failures  []string
	err       error
}

func (r *callbackRecorder) callbacks() PollCallbacks {
	return PollCallbacks{
		OnSuccess: func(_ context.Context, res generation.Result) error {
			r.successes = append(r.successes, res)
			return r.err
		},
		OnFailure: func(_ context.Context, reason string) error {
			r.failures = append(r.failures, reason)
			return r.err
		},
	}
}

func TestPoll_CompletesOnSecondCheck(t *testing.T) {
	sleeper := &instantSleeper{}
	poller := NewPoller(DefaultPollPolicy(), sleeper.Sleep, discardLogger())
	vendor := &scriptedVendor{queries: []queryAnswer{
		processing(),
		{res: generation.Completed("https://cdn.example.com/a.mp3", 200)},
	}}
	rec := &callbackRecorder{}

	outcome, err := poller.Poll(context.Background(), vendor, job("suno", "gen-1"), rec.callbacks())

	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, outcome)
	assert.Equal(t, 2, vendor.queryCalls)
	assert.Equal(t, []time.Duration{30 * time.Second, 120 * time.Second}, sleeper.waits)
	require.Len(t, rec.successes, 1)
	assert.Equal(t, "https://cdn.example.com/a.mp3", rec.successes[0].ContentRef)
	assert.Empty(t, rec.failures)
}

func TestPoll_VendorFailure(t *testing.T) {
	poller := NewPoller(DefaultPollPolicy(), (&instantSleeper{}).Sleep, discardLogger())
	vendor := &scriptedVendor{queries: []queryAnswer{{res: generation.Failed("lyrics rejected")}}}
	rec := &callbackRecorder{}

	outcome, err := poller.Poll(context.Background(), vendor, job("suno", "gen-1"), rec.callbacks())

	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.Equal(t, []string{"lyrics rejected"}, rec.failures)
	assert.Empty(t, rec.successes)
}

func TestPoll_GivesUpWithoutCallbacks(t *testing.T) {
	sleeper := &instantSleeper{}
	poller := NewPoller(DefaultPollPolicy(), sleeper.Sleep, discardLogger())
	vendor := &scriptedVendor{queries: []queryAnswer{processing(), processing(), processing()}}
	rec := &callbackRecorder{}

	outcome, err := poller.Poll(context.Background(), vendor, job("suno", "gen-1"), rec.callbacks())

	require.NoError(t, err)
	assert.Equal(t, OutcomeGaveUp, outcome)
	assert.Equal(t, 3, vendor.queryCalls)
	assert.Equal(t, DefaultPollIntervals, sleeper.waits)
	assert.Empty(t, rec.successes)
	assert.Empty(t, rec.failures)
}

func TestPoll_TransientErrorsSpendBudget(t *testing.T) {
	poller := NewPoller(DefaultPollPolicy(), (&instantSleeper{}).Sleep, discardLogger())
	transient := queryAnswer{err: generation.ErrTransientFailure}

	t.Run("recovers", func(t *testing.T) {
		vendor := &scriptedVendor{queries: []queryAnswer{
			transient,
			transient,
			{res: generation.Completed("https://cdn.example.com/a.mp3", 10)},
		}}
		rec := &callbackRecorder{}
		outcome, err := poller.Poll(context.Background(), vendor, job("suno", "gen-1"), rec.callbacks())
		require.NoError(t, err)
		assert.Equal(t, OutcomeSucceeded, outcome)
		assert.Equal(t, 3, vendor.queryCalls)
	})

	t.Run("exhausts", func(t *testing.T) {
		vendor := &scriptedVendor{queries: []queryAnswer{transient, transient, transient, processing()}}
		rec := &callbackRecorder{}
		outcome, err := poller.Poll(context.Background(), vendor, job("suno", "gen-1"), rec.callbacks())
		require.NoError(t, err)
		assert.Equal(t, OutcomeGaveUp, outcome)
		assert.Equal(t, 3, vendor.queryCalls)
		assert.Empty(t, rec.failures)
	})
}

func TestPoll_Cancelled(t *testing.T) {
	poller := NewPoller(DefaultPollPolicy(), TimerSleep, discardLogger())
	vendor := &scriptedVendor{}
	rec := &callbackRecorder{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := poller.Poll(ctx, vendor, job("suno", "gen-1"), rec.callbacks())

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, OutcomeCancelled, outcome)
	assert.Zero(t, vendor.queryCalls)
}

func TestPoll_CallbackErrorPropagates(t *testing.T) {
	poller := NewPoller(DefaultPollPolicy(), (&instantSleeper{}).Sleep, discardLogger())
	vendor := &scriptedVendor{queries: []queryAnswer{{res: generation.Completed("https://cdn.example.com/a.mp3", 1)}}}
	rec := &callbackRecorder{err: errPersist}

	_, err := poller.Poll(context.Background(), vendor, job("suno", "gen-1"), rec.callbacks())
	assert.True(t, errors.Is(err, errPersist))
}

func TestPollPolicy(t *testing.T) {
	policy := DefaultPollPolicy()
	assert.Equal(t, 3, policy.Budget())

	policy.Intervals[0] = time.Second
	assert.Equal(t, 30*time.Second, DefaultPollIntervals[0], "default schedule must not be shared")

	poller := NewPoller(PollPolicy{}, nil, nil)
	assert.Equal(t, 3, poller.Policy().Budget())

	custom := NewPoller(PollPolicy{Intervals: []time.Duration{time.Millisecond}}, nil, nil)
	assert.Equal(t, 1, custom.Policy().Budget())
}

func TestTimerSleep(t *testing.T) {
	require.NoError(t, TimerSleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, TimerSleep(ctx, time.Hour), context.Canceled)
}

func TestPollOutcome_String(t *testing.T) {
	assert.Equal(t, "gave_up", OutcomeGaveUp.String())
	assert.Equal(t, "succeeded", OutcomeSucceeded.String())
}
