package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

const defaultOperationName = "remote-call"

// Pipeline executes remote calls with bounded retry and an overall deadline.
// It holds no per-invocation state and is safe for concurrent use
type Pipeline struct {
	logger   *slog.Logger
	metrics  *Metrics
	classify Classifier

	// sleep waits for d, or until ctx is done
	sleep func(ctx context.Context, d time.Duration) error

	name   string
	policy Policy
}

// New creates a new Pipeline for the given policy
func New(policy Policy, opts ...Option) (*Pipeline, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy, %w", err)
	}

	p := &Pipeline{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		sleep:  sleepContext,
		name:   defaultOperationName,
		policy: policy,
	}

	// Apply the options
	for _, opt := range opts {
		opt(p)
	}

	if p.classify == nil {
		p.classify = StatusClassifier(policy.RetryServerErrors)
	}

	// The deadline may cut the retry sequence short; that is allowed,
	// but worth knowing about
	if policy.Timeout > 0 && policy.TotalBackoff() >= policy.Timeout {
		p.logger.Warn(
			"timeout does not cover the full retry sequence",
			"operation", p.name,
			"timeout", policy.Timeout.String(),
			"total_backoff", policy.TotalBackoff().String(),
		)
	}

	return p, nil
}

// Policy returns the pipeline policy
func (p *Pipeline) Policy() Policy {
	return p.policy
}

// Do executes the operation through the pipeline
func (p *Pipeline) Do(ctx context.Context, op func(context.Context) error) error {
	_, err := Invoke(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})

	return err
}

// Invoke executes the call through the pipeline, retrying transient failures
// with backoff until it succeeds, fails permanently, runs out of attempts
// or hits the overall deadline
func Invoke[T any](
	ctx context.Context,
	p *Pipeline,
	call func(context.Context) (T, error),
) (T, error) {
	var (
		zero    T
		lastErr error

		start = time.Now()
	)

	runCtx, cancelFn := ctx, context.CancelFunc(func() {})
	if p.policy.Timeout > 0 {
		runCtx, cancelFn = context.WithTimeout(ctx, p.policy.Timeout)
	}

	defer cancelFn()

	for attempt := 1; ; attempt++ {
		// Never start an attempt once the time budget is gone
		if runCtx.Err() != nil {
			return zero, p.interrupted(ctx, attempt-1, lastErr, start)
		}

		value, err := runAttempt(runCtx, call)
		if err == nil {
			p.metrics.recordAttempt(p.name, attempt, resultSuccess)
			p.metrics.recordInvocation(p.name, resultSuccess, time.Since(start))

			if attempt > 1 {
				p.logger.Info(
					"call succeeded after retries",
					"operation", p.name,
					"attempts", attempt,
				)
			}

			return value, nil
		}

		lastErr = err

		// The attempt was cut short by the deadline or the caller
		if runCtx.Err() != nil {
			outcome := resultDeadline
			if errors.Is(ctx.Err(), context.Canceled) {
				outcome = resultCanceled
			}

			p.metrics.recordAttempt(p.name, attempt, outcome)

			return zero, p.interrupted(ctx, attempt, lastErr, start)
		}

		if p.classify(err) != KindTransient {
			p.metrics.recordAttempt(p.name, attempt, resultPermanent)
			p.metrics.recordInvocation(p.name, resultPermanent, time.Since(start))

			p.logger.Error(
				"permanent failure, not retrying",
				"operation", p.name,
				"attempt", attempt,
				"err", err,
			)

			return zero, &PermanentError{
				Err:     err,
				Attempt: attempt,
			}
		}

		p.metrics.recordAttempt(p.name, attempt, KindTransient.String())

		if attempt >= p.policy.MaxAttempts {
			p.metrics.recordInvocation(p.name, resultExhausted, time.Since(start))

			p.logger.Error(
				"retries exhausted",
				"operation", p.name,
				"attempts", attempt,
				"err", err,
			)

			return zero, &RetriesExhaustedError{
				Err:      &TransientError{Err: err},
				Attempts: attempt,
			}
		}

		delay := p.policy.Delay(attempt)
		p.metrics.recordBackoff(p.name, delay)

		p.logger.Warn(
			"transient failure, retrying",
			"operation", p.name,
			"attempt", attempt,
			"max_attempts", p.policy.MaxAttempts,
			"delay", delay.String(),
			"err", err,
		)

		// Wait out the backoff, unless the deadline comes first
		if err := p.sleep(runCtx, delay); err != nil {
			return zero, p.interrupted(ctx, attempt, lastErr, start)
		}
	}
}

// interrupted builds the terminal error for an invocation stopped by its context.
// Caller cancellation is reported as such; any deadline is a DeadlineExceededError
func (p *Pipeline) interrupted(
	parent context.Context,
	attempts int,
	lastErr error,
	start time.Time,
) error {
	elapsed := time.Since(start)

	if errors.Is(parent.Err(), context.Canceled) {
		p.metrics.recordInvocation(p.name, resultCanceled, elapsed)

		if lastErr == nil {
			return fmt.Errorf("invocation canceled after %d attempts: %w", attempts, parent.Err())
		}

		return fmt.Errorf(
			"invocation canceled after %d attempts: %w: %w",
			attempts,
			parent.Err(),
			lastErr,
		)
	}

	p.metrics.recordInvocation(p.name, resultDeadline, elapsed)

	p.logger.Error(
		"deadline exceeded",
		"operation", p.name,
		"attempts", attempts,
		"elapsed", elapsed.String(),
		"err", lastErr,
	)

	return &DeadlineExceededError{
		Err:      lastErr,
		Elapsed:  elapsed,
		Attempts: attempts,
	}
}

type attemptResult[T any] struct {
	value T
	err   error
}

// runAttempt executes a single attempt. If ctx is done before the call
// returns, the attempt is abandoned and its late result discarded
func runAttempt[T any](
	ctx context.Context,
	call func(context.Context) (T, error),
) (T, error) {
	resCh := make(chan attemptResult[T], 1) // buffered, the abandoned call never blocks

	go func() {
		value, err := call(ctx)

		resCh <- attemptResult[T]{
			value: value,
			err:   err,
		}
	}()

	select {
	case res := <-resCh:
		return res.value, res.err
	case <-ctx.Done():
		// Prefer a result that raced the deadline
		select {
		case res := <-resCh:
			return res.value, res.err
		default:
		}

		var zero T

		return zero, ctx.Err()
	}
}

// sleepContext waits for d, or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
