package resilience

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"
)

const (
	// DefaultMaxAttempts is the total number of attempts (1 initial + 3 retries)
	DefaultMaxAttempts = 4

	// DefaultBaseDelay is the backoff unit
	DefaultBaseDelay = 5 * time.Second

	// DefaultTimeout bounds an entire invocation, attempts and waits included
	DefaultTimeout = 30 * time.Second

	// JitterFactor is the maximum relative perturbation applied to a delay (±25%)
	JitterFactor = 0.25
)

var (
	errInvalidMaxAttempts = errors.New("max attempts must be positive")
	errInvalidBaseDelay   = errors.New("base delay must not be negative")
	errInvalidTimeout     = errors.New("timeout must not be negative")
	errInvalidBackoff     = errors.New("invalid backoff type")
)

// BackoffType is the shape of the wait between attempts
type BackoffType string

const (
	BackoffConstant    BackoffType = "constant"
	BackoffLinear      BackoffType = "linear"
	BackoffExponential BackoffType = "exponential"
)

func (b BackoffType) String() string {
	return string(b)
}

// ParseBackoffType parses a backoff type name (case-insensitive)
func ParseBackoffType(s string) (BackoffType, error) {
	b := BackoffType(strings.ToLower(strings.TrimSpace(s)))

	switch b {
	case BackoffConstant, BackoffLinear, BackoffExponential:
		return b, nil
	default:
		return "", fmt.Errorf("%w: %q", errInvalidBackoff, s)
	}
}

// Policy describes how failures of a wrapped call are handled.
// A Policy is a plain value and is never mutated by the pipeline
type Policy struct {
	// Backoff is the shape of the wait between attempts
	Backoff BackoffType

	// MaxAttempts is the total number of attempts, including the first one
	MaxAttempts int

	// BaseDelay is the backoff unit
	BaseDelay time.Duration

	// Timeout bounds the whole invocation. Zero disables the overall deadline
	Timeout time.Duration

	// Jitter enables a random ±JitterFactor perturbation of every delay
	Jitter bool

	// RetryServerErrors marks HTTP 5xx responses as transient.
	// When false, every non-success status is permanent
	RetryServerErrors bool
}

// DefaultPolicy returns the default CNB feed policy:
// 4 attempts, linear 5s backoff with jitter, 30s overall timeout
func DefaultPolicy() Policy {
	return Policy{
		Backoff:           BackoffLinear,
		MaxAttempts:       DefaultMaxAttempts,
		BaseDelay:         DefaultBaseDelay,
		Timeout:           DefaultTimeout,
		Jitter:            true,
		RetryServerErrors: true,
	}
}

// Validate validates the policy values
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return errInvalidMaxAttempts
	}

	if p.BaseDelay < 0 {
		return errInvalidBaseDelay
	}

	if p.Timeout < 0 {
		return errInvalidTimeout
	}

	if _, err := ParseBackoffType(p.Backoff.String()); err != nil {
		return err
	}

	return nil
}

// Delay returns the wait after the given (1-indexed) failed attempt,
// before attempt+1 starts
func (p Policy) Delay(attempt int) time.Duration {
	//nolint:gosec // jitter for retry timing is not security-sensitive
	return p.delay(attempt, rand.Float64())
}

// delay computes the backoff for the attempt, using r in [0, 1) as the jitter source
func (p Policy) delay(attempt int, r float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	base := float64(p.BaseDelay)

	var d float64

	switch p.Backoff {
	case BackoffConstant:
		d = base
	case BackoffExponential:
		d = base * math.Pow(2, float64(attempt-1))
	default:
		d = base * float64(attempt)
	}

	if p.Jitter {
		d += d * JitterFactor * (r*2 - 1)
	}

	if d < 0 || math.IsNaN(d) {
		return 0
	}

	if d > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}

	return time.Duration(d)
}

// TotalBackoff returns the nominal (jitter-free) sum of all waits
// in a full retry sequence
func (p Policy) TotalBackoff() time.Duration {
	nominal := p
	nominal.Jitter = false

	var total time.Duration

	for k := 1; k < p.MaxAttempts; k++ {
		total += nominal.delay(k, 0)
	}

	return total
}
