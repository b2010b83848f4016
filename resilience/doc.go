// Package resilience wraps remote calls with bounded retry and a hard timeout.
//
// # Policy
//
// A Policy describes the retry sequence:
//
//	MaxAttempts: 4 (1 initial + 3 retries)
//	BaseDelay:   5s
//	Backoff:     linear (wait before attempt k+1 = BaseDelay * k)
//	Jitter:      ±25% of each computed delay, never negative
//	Timeout:     30s for the whole invocation, attempts and waits included
//
// With the defaults the nominal waits add up to 5+10+15 = 30s, so the
// deadline ends the sequence before the last attempt when the feed keeps
// failing. The deadline is the hard ceiling: every wait races the remaining
// time budget.
//
// # Classification
//
// Attempt errors are transient (retried) or permanent (surfaced at once):
//   - errors implementing Retryable() bool decide for themselves
//   - errors implementing StatusCode() int: 5xx transient (Policy.RetryServerErrors), 4xx permanent
//   - per-attempt timeouts, connection refused / reset, DNS failures, EOF: transient
//   - everything else: permanent
//
// # Terminal errors
//
//   - *PermanentError (ErrPermanent): first non-transient failure
//   - *RetriesExhaustedError (ErrRetriesExhausted): MaxAttempts transient failures
//   - *DeadlineExceededError (ErrDeadlineExceeded): the time budget ran out
//
// Invocations are independent: no attempt counters, timers or breaker state
// are shared between concurrent callers.
package resilience
