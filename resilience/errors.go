package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"
)

var (
	// ErrTransient matches failures that were eligible for retry
	ErrTransient = errors.New("transient failure")

	// ErrPermanent matches failures that are never retried
	ErrPermanent = errors.New("permanent failure")

	// ErrDeadlineExceeded matches invocations cut short by the overall deadline
	ErrDeadlineExceeded = errors.New("deadline exceeded")

	// ErrRetriesExhausted matches invocations that used up every attempt
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// Kind is the retry classification of an attempt error
type Kind int

const (
	KindPermanent Kind = iota
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Classifier decides whether an attempt error is worth retrying
type Classifier func(err error) Kind

// TransientError is an attempt failure plausibly resolved by retrying unchanged
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

func (e *TransientError) Is(target error) bool {
	return target == ErrTransient
}

// PermanentError is an attempt failure retrying cannot resolve.
// It is surfaced immediately
type PermanentError struct {
	Err     error
	Attempt int
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent failure on attempt %d: %v", e.Attempt, e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

func (e *PermanentError) Is(target error) bool {
	return target == ErrPermanent
}

// RetriesExhaustedError is returned when every attempt failed transiently
// before the deadline. Err is the last transient failure
type RetriesExhaustedError struct {
	Err      *TransientError
	Attempts int
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Err.Err)
}

func (e *RetriesExhaustedError) Unwrap() error {
	return e.Err
}

func (e *RetriesExhaustedError) Is(target error) bool {
	return target == ErrRetriesExhausted
}

// DeadlineExceededError is returned when the overall deadline elapsed,
// mid-attempt or mid-wait. Err is the last observed attempt error, if any
type DeadlineExceededError struct {
	Err      error
	Elapsed  time.Duration
	Attempts int
}

func (e *DeadlineExceededError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf(
			"deadline exceeded after %s (%d attempts)",
			e.Elapsed.Round(time.Millisecond),
			e.Attempts,
		)
	}

	return fmt.Sprintf(
		"deadline exceeded after %s (%d attempts): %v",
		e.Elapsed.Round(time.Millisecond),
		e.Attempts,
		e.Err,
	)
}

func (e *DeadlineExceededError) Unwrap() error {
	return e.Err
}

func (e *DeadlineExceededError) Is(target error) bool {
	return target == ErrDeadlineExceeded || target == context.DeadlineExceeded
}

// retryable is implemented by errors that know whether they can be retried
type retryable interface {
	Retryable() bool
}

// statusCoder is implemented by errors carrying an HTTP response status
type statusCoder interface {
	StatusCode() int
}

// DefaultClassifier classifies attempt errors, 5xx responses included
func DefaultClassifier(err error) Kind {
	return classify(err, true)
}

// StatusClassifier returns a classifier with an explicit 5xx retry policy
func StatusClassifier(retryServerErrors bool) Classifier {
	return func(err error) Kind {
		return classify(err, retryServerErrors)
	}
}

func classify(err error, retryServerErrors bool) Kind {
	if err == nil {
		return KindPermanent
	}

	// The error knows best
	var r retryable
	if errors.As(err, &r) {
		if r.Retryable() {
			return KindTransient
		}

		return KindPermanent
	}

	// Response statuses: 5xx are server-side and may recover, 4xx never do
	var sc statusCoder
	if errors.As(err, &sc) {
		if retryServerErrors && sc.StatusCode() >= 500 {
			return KindTransient
		}

		return KindPermanent
	}

	// Individual attempt timed out
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}

	if isNetworkError(err) {
		return KindTransient
	}

	return KindPermanent
}

// Describe names the terminal outcome of a failed invocation
func Describe(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrDeadlineExceeded):
		return "deadline exceeded"
	case errors.Is(err, ErrRetriesExhausted):
		return "retries exhausted"
	case errors.Is(err, ErrPermanent):
		return "permanent failure"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "unknown failure"
	}
}

// isNetworkError checks for connection-level failures
func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	switch {
	case errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF):
		return true
	default:
		return false
	}
}
