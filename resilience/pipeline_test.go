package resilience

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

var errConnReset = fmt.Errorf("read tcp 10.0.0.1:443: %w", syscall.ECONNRESET)

// sleepRecorder records requested backoff waits without actually waiting
type sleepRecorder struct {
	delays []time.Duration
	mu     sync.Mutex
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()

	return ctx.Err()
}

func (r *sleepRecorder) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]time.Duration(nil), r.delays...)
}

// scenarioPolicy is the feed policy without jitter
func scenarioPolicy() Policy {
	p := DefaultPolicy()
	p.Jitter = false

	return p
}

// newInstantPipeline creates a pipeline whose waits are recorded, not slept
func newInstantPipeline(t *testing.T, policy Policy, opts ...Option) (*Pipeline, *sleepRecorder) {
	t.Helper()

	p, err := New(policy, opts...)
	require.NoError(t, err)

	recorder := &sleepRecorder{}
	p.sleep = recorder.sleep

	return p, recorder
}

// failingCall fails transiently the given number of times, then succeeds
func failingCall(failures int, attempts *atomic.Int32) func(context.Context) (string, error) {
	return func(_ context.Context) (string, error) {
		if int(attempts.Add(1)) <= failures {
			return "", errConnReset
		}

		return "rates", nil
	}
}

func TestPipeline_New(t *testing.T) {
	t.Parallel()

	t.Run("invalid policy", func(t *testing.T) {
		t.Parallel()

		policy := DefaultPolicy()
		policy.MaxAttempts = 0

		p, err := New(policy)

		assert.Nil(t, p)
		assert.ErrorIs(t, err, errInvalidMaxAttempts)
	})

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		p, err := New(DefaultPolicy())
		require.NoError(t, err)

		assert.NotNil(t, p.logger)
		assert.NotNil(t, p.classify)
		assert.NotNil(t, p.sleep)
		assert.Nil(t, p.metrics)
		assert.Equal(t, defaultOperationName, p.name)
		assert.Equal(t, DefaultPolicy(), p.Policy())
	})

	t.Run("options", func(t *testing.T) {
		t.Parallel()

		var classified bool

		p, err := New(
			DefaultPolicy(),
			WithName("cnb-daily"),
			WithMetrics(NewMetrics(prometheus.NewRegistry())),
			WithClassifier(func(_ error) Kind {
				classified = true

				return KindPermanent
			}),
		)
		require.NoError(t, err)

		assert.Equal(t, "cnb-daily", p.name)
		assert.NotNil(t, p.metrics)

		p.classify(errConnReset)
		assert.True(t, classified)
	})
}

func TestPipeline_Invoke(t *testing.T) {
	t.Parallel()

	t.Run("success on first attempt", func(t *testing.T) {
		t.Parallel()

		var (
			attempts    atomic.Int32
			p, recorder = newInstantPipeline(t, scenarioPolicy())
		)

		value, err := Invoke(context.Background(), p, failingCall(0, &attempts))

		require.NoError(t, err)
		assert.Equal(t, "rates", value)
		assert.Equal(t, int32(1), attempts.Load())
		assert.Empty(t, recorder.recorded())
	})

	t.Run("transient failures shorter than max attempts", func(t *testing.T) {
		t.Parallel()

		for failures := 1; failures < DefaultMaxAttempts; failures++ {
			t.Run(fmt.Sprintf("%d failures", failures), func(t *testing.T) {
				t.Parallel()

				var (
					attempts    atomic.Int32
					p, recorder = newInstantPipeline(t, scenarioPolicy())
				)

				value, err := Invoke(context.Background(), p, failingCall(failures, &attempts))

				require.NoError(t, err)
				assert.Equal(t, "rates", value)
				assert.Equal(t, int32(failures+1), attempts.Load())
				assert.Len(t, recorder.recorded(), failures)
			})
		}
	})

	t.Run("succeeds on the last attempt after linear backoff", func(t *testing.T) {
		t.Parallel()

		var (
			attempts    atomic.Int32
			p, recorder = newInstantPipeline(t, scenarioPolicy())
		)

		value, err := Invoke(context.Background(), p, failingCall(3, &attempts))

		require.NoError(t, err)
		assert.Equal(t, "rates", value)
		assert.Equal(t, int32(4), attempts.Load())

		// 5s + 10s + 15s = 30s of waiting
		assert.Equal(
			t,
			[]time.Duration{5 * time.Second, 10 * time.Second, 15 * time.Second},
			recorder.recorded(),
		)
	})

	t.Run("retries exhausted", func(t *testing.T) {
		t.Parallel()

		var (
			attempts    atomic.Int32
			p, recorder = newInstantPipeline(t, scenarioPolicy())
		)

		value, err := Invoke(context.Background(), p, failingCall(100, &attempts))

		assert.Empty(t, value)
		assert.ErrorIs(t, err, ErrRetriesExhausted)
		assert.ErrorIs(t, err, ErrTransient)
		assert.ErrorIs(t, err, errConnReset)

		var exhaustedErr *RetriesExhaustedError

		require.ErrorAs(t, err, &exhaustedErr)
		assert.Equal(t, 4, exhaustedErr.Attempts)

		// No 5th attempt, no wait after the last one
		assert.Equal(t, int32(4), attempts.Load())
		assert.Len(t, recorder.recorded(), 3)
	})

	t.Run("permanent failure on first attempt", func(t *testing.T) {
		t.Parallel()

		var (
			attempts    atomic.Int32
			p, recorder = newInstantPipeline(t, scenarioPolicy())
			notFound    = &statusErr{code: 404}
		)

		_, err := Invoke(context.Background(), p, func(_ context.Context) (string, error) {
			attempts.Add(1)

			return "", notFound
		})

		assert.ErrorIs(t, err, ErrPermanent)
		assert.ErrorIs(t, err, notFound)

		var permanentErr *PermanentError

		require.ErrorAs(t, err, &permanentErr)
		assert.Equal(t, 1, permanentErr.Attempt)

		assert.Equal(t, int32(1), attempts.Load())
		assert.Empty(t, recorder.recorded())
	})

	t.Run("permanent failure after transient ones", func(t *testing.T) {
		t.Parallel()

		var (
			attempts    atomic.Int32
			p, recorder = newInstantPipeline(t, scenarioPolicy())
		)

		_, err := Invoke(context.Background(), p, func(_ context.Context) (string, error) {
			if attempts.Add(1) < 3 {
				return "", &statusErr{code: 503}
			}

			return "", &statusErr{code: 400}
		})

		var permanentErr *PermanentError

		require.ErrorAs(t, err, &permanentErr)
		assert.Equal(t, 3, permanentErr.Attempt)
		assert.Equal(t, int32(3), attempts.Load())
		assert.Len(t, recorder.recorded(), 2)
	})

	t.Run("server errors not retried when disabled", func(t *testing.T) {
		t.Parallel()

		policy := scenarioPolicy()
		policy.RetryServerErrors = false

		var (
			attempts atomic.Int32
			p, _     = newInstantPipeline(t, policy)
		)

		_, err := Invoke(context.Background(), p, func(_ context.Context) (string, error) {
			attempts.Add(1)

			return "", &statusErr{code: 503}
		})

		assert.ErrorIs(t, err, ErrPermanent)
		assert.Equal(t, int32(1), attempts.Load())
	})

	t.Run("jittered waits stay within bounds", func(t *testing.T) {
		t.Parallel()

		var (
			attempts    atomic.Int32
			p, recorder = newInstantPipeline(t, DefaultPolicy())
		)

		_, err := Invoke(context.Background(), p, failingCall(100, &attempts))
		require.ErrorIs(t, err, ErrRetriesExhausted)

		for i, d := range recorder.recorded() {
			nominal := DefaultBaseDelay * time.Duration(i+1)

			assert.GreaterOrEqual(t, d, time.Duration(float64(nominal)*(1-JitterFactor)))
			assert.LessOrEqual(t, d, time.Duration(float64(nominal)*(1+JitterFactor)))
		}
	})
}

func TestPipeline_Deadline(t *testing.T) {
	t.Parallel()

	t.Run("deadline expires mid-wait", func(t *testing.T) {
		t.Parallel()

		policy := scenarioPolicy()
		policy.BaseDelay = time.Hour
		policy.Timeout = 50 * time.Millisecond

		p, err := New(policy)
		require.NoError(t, err)

		var (
			attempts atomic.Int32
			start    = time.Now()
		)

		_, err = Invoke(context.Background(), p, failingCall(100, &attempts))
		elapsed := time.Since(start)

		assert.ErrorIs(t, err, ErrDeadlineExceeded)
		assert.ErrorIs(t, err, errConnReset)

		var deadlineErr *DeadlineExceededError

		require.ErrorAs(t, err, &deadlineErr)
		assert.Equal(t, 1, deadlineErr.Attempts)

		// The wait was cut short, and no further attempt was started
		assert.Equal(t, int32(1), attempts.Load())
		assert.Less(t, elapsed, time.Second)
	})

	t.Run("deadline expires mid-attempt", func(t *testing.T) {
		t.Parallel()

		policy := scenarioPolicy()
		policy.Timeout = 50 * time.Millisecond

		p, err := New(policy)
		require.NoError(t, err)

		// The call ignores its context, and must be abandoned
		release := make(chan struct{})
		t.Cleanup(func() {
			close(release)
		})

		start := time.Now()

		_, err = Invoke(context.Background(), p, func(_ context.Context) (string, error) {
			<-release

			return "late", nil
		})
		elapsed := time.Since(start)

		var deadlineErr *DeadlineExceededError

		require.ErrorAs(t, err, &deadlineErr)
		assert.Equal(t, 1, deadlineErr.Attempts)
		assert.GreaterOrEqual(t, elapsed, policy.Timeout)
		assert.Less(t, elapsed, time.Second)
	})

	t.Run("deadline bounds the whole retry sequence", func(t *testing.T) {
		t.Parallel()

		// Nominal waits 40+80+120ms exceed the 160ms budget
		policy := Policy{
			Backoff:     BackoffLinear,
			MaxAttempts: 4,
			BaseDelay:   40 * time.Millisecond,
			Timeout:     160 * time.Millisecond,
		}

		p, err := New(policy)
		require.NoError(t, err)

		var (
			attempts atomic.Int32
			start    = time.Now()
		)

		_, err = Invoke(context.Background(), p, failingCall(100, &attempts))
		elapsed := time.Since(start)

		assert.ErrorIs(t, err, ErrDeadlineExceeded)
		assert.NotErrorIs(t, err, ErrRetriesExhausted)
		assert.Equal(t, int32(3), attempts.Load())
		assert.Less(t, elapsed, policy.Timeout+500*time.Millisecond)
	})

	t.Run("caller deadline", func(t *testing.T) {
		t.Parallel()

		policy := scenarioPolicy()
		policy.BaseDelay = time.Hour

		p, err := New(policy)
		require.NoError(t, err)

		ctx, cancelFn := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancelFn()

		var attempts atomic.Int32

		_, err = Invoke(ctx, p, failingCall(100, &attempts))

		assert.ErrorIs(t, err, ErrDeadlineExceeded)
		assert.Equal(t, int32(1), attempts.Load())
	})

	t.Run("caller cancellation", func(t *testing.T) {
		t.Parallel()

		p, err := New(scenarioPolicy())
		require.NoError(t, err)

		ctx, cancelFn := context.WithCancel(context.Background())

		var attempts atomic.Int32

		_, err = Invoke(ctx, p, func(_ context.Context) (string, error) {
			attempts.Add(1)
			cancelFn()

			return "", errConnReset
		})

		assert.ErrorIs(t, err, context.Canceled)
		assert.ErrorIs(t, err, errConnReset)
		assert.NotErrorIs(t, err, ErrDeadlineExceeded)
		assert.Equal(t, int32(1), attempts.Load())
	})

	t.Run("already expired context", func(t *testing.T) {
		t.Parallel()

		p, err := New(scenarioPolicy())
		require.NoError(t, err)

		ctx, cancelFn := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
		defer cancelFn()

		var attempts atomic.Int32

		_, err = Invoke(ctx, p, failingCall(0, &attempts))

		var deadlineErr *DeadlineExceededError

		require.ErrorAs(t, err, &deadlineErr)
		assert.Equal(t, 0, deadlineErr.Attempts)
		assert.Equal(t, int32(0), attempts.Load())
	})
}

func TestPipeline_Do(t *testing.T) {
	t.Parallel()

	var (
		attempts atomic.Int32
		p, _     = newInstantPipeline(t, scenarioPolicy())
	)

	err := p.Do(context.Background(), func(_ context.Context) error {
		if attempts.Add(1) < 2 {
			return errConnReset
		}

		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestPipeline_ConcurrentInvocations(t *testing.T) {
	t.Parallel()

	const callers = 50

	var (
		p, recorder = newInstantPipeline(t, scenarioPolicy())
		counts      [callers]atomic.Int32
		g           errgroup.Group
	)

	for i := range callers {
		g.Go(func() error {
			failures := i % DefaultMaxAttempts

			value, err := Invoke(context.Background(), p, failingCall(failures, &counts[i]))
			if err != nil {
				return fmt.Errorf("caller %d: %w", i, err)
			}

			if value != "rates" {
				return fmt.Errorf("caller %d: unexpected value %q", i, value)
			}

			return nil
		})
	}

	require.NoError(t, g.Wait())

	var totalWaits int

	for i := range callers {
		failures := i % DefaultMaxAttempts
		totalWaits += failures

		// Every caller observes its own attempt sequence
		assert.Equal(t, int32(failures+1), counts[i].Load(), "caller %d", i)
	}

	assert.Len(t, recorder.recorded(), totalWaits)
}

func TestPipeline_Metrics(t *testing.T) {
	t.Parallel()

	var (
		reg      = prometheus.NewRegistry()
		metrics  = NewMetrics(reg)
		attempts atomic.Int32
		p, _     = newInstantPipeline(
			t,
			scenarioPolicy(),
			WithName("cnb"),
			WithMetrics(metrics),
		)
	)

	_, err := Invoke(context.Background(), p, failingCall(100, &attempts))
	require.ErrorIs(t, err, ErrRetriesExhausted)

	_, err = Invoke(context.Background(), p, func(_ context.Context) (string, error) {
		return "", &statusErr{code: 404}
	})
	require.ErrorIs(t, err, ErrPermanent)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.invocations.WithLabelValues("cnb", resultExhausted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.invocations.WithLabelValues("cnb", resultPermanent)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.attempts.WithLabelValues("cnb", "4", "transient")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.attempts.WithLabelValues("cnb", "1", resultPermanent)))

	// attempts 1-4 transient, attempt 1 permanent
	assert.Equal(t, 5, testutil.CollectAndCount(metrics.attempts))
}

func TestPipeline_MetricsCanceled(t *testing.T) {
	t.Parallel()

	var (
		reg     = prometheus.NewRegistry()
		metrics = NewMetrics(reg)
		p, _    = newInstantPipeline(
			t,
			scenarioPolicy(),
			WithName("cnb"),
			WithMetrics(metrics),
		)
	)

	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	_, err := Invoke(ctx, p, func(_ context.Context) (string, error) {
		cancelFn()

		return "", errConnReset
	})
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.invocations.WithLabelValues("cnb", resultCanceled)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.attempts.WithLabelValues("cnb", "1", resultCanceled)))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.attempts.WithLabelValues("cnb", "1", resultDeadline)))
}
