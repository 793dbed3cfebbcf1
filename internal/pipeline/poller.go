package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/songcraft/songcraft-api/internal/generation"
)

// DefaultPollIntervals is the reference schedule: three checks, five and a
// half minutes in total.
var DefaultPollIntervals = []time.Duration{
	30 * time.Second,
	120 * time.Second,
	180 * time.Second,
}

// PollPolicy is the per-job schedule. One status check is made after each
// interval, so len(Intervals) is the check budget.
type PollPolicy struct {
	Intervals []time.Duration
}

// DefaultPollPolicy returns the reference schedule.
func DefaultPollPolicy() PollPolicy {
	intervals := make([]time.Duration, len(DefaultPollIntervals))
	copy(intervals, DefaultPollIntervals)
	return PollPolicy{Intervals: intervals}
}

// Budget is the number of status checks allowed per job.
func (p PollPolicy) Budget() int {
	return len(p.Intervals)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// TimerSleep is the production Sleeper.
func TimerSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// PollOutcome is how a poll ended.
type PollOutcome int

const (
	// OutcomeSucceeded means the job completed and OnSuccess ran.
	OutcomeSucceeded PollOutcome = iota
	// OutcomeFailed means the vendor reported failure and OnFailure ran.
	OutcomeFailed
	// OutcomeGaveUp means the budget ran out with the job unresolved.
	// Neither callback ran.
	OutcomeGaveUp
	// OutcomeCancelled means the context ended before the job resolved.
	OutcomeCancelled
)

func (o PollOutcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	case OutcomeGaveUp:
		return "gave_up"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("PollOutcome(%d)", int(o))
	}
}

// GenerationJob is the transient poll state of one vendor job.
type GenerationJob struct {
	Handle      generation.JobHandle
	Policy      PollPolicy
	ChecksSpent int
	LastErr     error
}

// Remaining is the number of checks left.
func (j *GenerationJob) Remaining() int {
	return j.Policy.Budget() - j.ChecksSpent
}

// PollCallbacks receive the terminal vendor result. An error returned by a
// callback is returned from Poll unchanged.
type PollCallbacks struct {
	OnSuccess func(ctx context.Context, res generation.Result) error
	OnFailure func(ctx context.Context, reason string) error
}

// Poller resolves job handles under a PollPolicy.
type Poller struct {
	policy PollPolicy
	sleep  Sleeper
	logger *slog.Logger
}

// NewPoller creates a Poller. A nil sleep uses TimerSleep; an empty policy
// uses the default schedule.
func NewPoller(policy PollPolicy, sleep Sleeper, logger *slog.Logger) *Poller {
	if policy.Budget() == 0 {
		policy = DefaultPollPolicy()
	}
	if sleep == nil {
		sleep = TimerSleep
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		policy: policy,
		sleep:  sleep,
		logger: logger.With("component", "poller"),
	}
}

// Policy returns the poller's schedule.
func (p *Poller) Policy() PollPolicy {
	return p.policy
}

// Poll checks job until it completes, fails, the budget runs out or ctx
// ends. A transient query error spends a check and polling continues.
func (p *Poller) Poll(
	ctx context.Context,
	querier generation.JobQuerier,
	handle generation.JobHandle,
	cb PollCallbacks,
) (PollOutcome, error) {
	job := &GenerationJob{Handle: handle, Policy: p.policy}
	log := p.logger.With("job", handle.String(), "budget", p.policy.Budget())

	for job.Remaining() > 0 {
		wait := p.policy.Intervals[job.ChecksSpent]
		if err := p.sleep(ctx, wait); err != nil {
			log.InfoContext(ctx, "poll cancelled", "checks_spent", job.ChecksSpent)
			return OutcomeCancelled, err
		}

		res, err := querier.Query(ctx, handle)
		job.ChecksSpent++
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return OutcomeCancelled, ctxErr
			}
			job.LastErr = err
			log.WarnContext(ctx, "status check failed",
				"check", job.ChecksSpent,
				"error", err)
			continue
		}

		switch res.Kind {
		case generation.KindCompleted:
			log.InfoContext(ctx, "job completed", "check", job.ChecksSpent)
			if cb.OnSuccess != nil {
				if err := cb.OnSuccess(ctx, res); err != nil {
					return OutcomeSucceeded, err
				}
			}
			return OutcomeSucceeded, nil
		case generation.KindFailed:
			log.InfoContext(ctx, "job failed", "check", job.ChecksSpent, "reason", res.Reason)
			if cb.OnFailure != nil {
				if err := cb.OnFailure(ctx, res.Reason); err != nil {
					return OutcomeFailed, err
				}
			}
			return OutcomeFailed, nil
		default:
			log.DebugContext(ctx, "job still processing", "check", job.ChecksSpent)
		}
	}

	attrs := []any{"checks_spent", job.ChecksSpent}
	if job.LastErr != nil {
		attrs = append(attrs, "last_error", job.LastErr)
	}
	log.WarnContext(ctx, "poll budget exhausted, leaving job for reconciliation", attrs...)
	return OutcomeGaveUp, nil
}

