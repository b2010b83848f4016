package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/sig-0/cnbrates/provider/cnb"
	"github.com/sig-0/cnbrates/resilience"
)

var (
	ErrInvalidBaseURL  = errors.New("invalid CNB base URL")
	ErrInvalidDuration = errors.New("invalid duration")
)

// CNB defines the CNB feed configuration
type CNB struct {
	// The resilience policy for feed calls
	Resilience *Resilience `toml:"resilience"`

	// The CNB API address
	BaseURL string `toml:"base_url"`

	// The timeout of a single feed request
	RequestTimeout string `toml:"request_timeout"`

	// The ingest interval
	Interval string `toml:"interval"`
}

// Resilience defines the retry and timeout policy for remote calls.
// Durations use the Go format (5s, 1m30s)
type Resilience struct {
	Jitter            *bool  `toml:"jitter"`
	RetryServerErrors *bool  `toml:"retry_server_errors"`
	BaseDelay         string `toml:"base_delay"`
	Backoff           string `toml:"backoff"`
	Timeout           string `toml:"timeout"`
	MaxAttempts       int    `toml:"max_attempts"`
}

// DefaultCNBConfig returns the default CNB feed configuration
func DefaultCNBConfig() *CNB {
	return &CNB{
		Resilience:     DefaultResilienceConfig(),
		BaseURL:        cnb.DefaultBaseURL,
		RequestTimeout: cnb.DefaultRequestTimeout.String(),
		Interval:       cnb.DefaultInterval.String(),
	}
}

// DefaultResilienceConfig returns the default resilience configuration
func DefaultResilienceConfig() *Resilience {
	p := resilience.DefaultPolicy()

	return &Resilience{
		Jitter:            &p.Jitter,
		RetryServerErrors: &p.RetryServerErrors,
		BaseDelay:         p.BaseDelay.String(),
		Backoff:           p.Backoff.String(),
		Timeout:           p.Timeout.String(),
		MaxAttempts:       p.MaxAttempts,
	}
}

// RequestTimeoutDuration returns the parsed per-request timeout
func (c *CNB) RequestTimeoutDuration() (time.Duration, error) {
	return parseDuration("request_timeout", c.RequestTimeout, cnb.DefaultRequestTimeout)
}

// IntervalDuration returns the parsed ingest interval
func (c *CNB) IntervalDuration() (time.Duration, error) {
	return parseDuration("interval", c.Interval, cnb.DefaultInterval)
}

// Policy converts the configuration into a resilience policy.
// Unset values keep the policy defaults
func (r *Resilience) Policy() (resilience.Policy, error) {
	p := resilience.DefaultPolicy()

	if r == nil {
		return p, nil
	}

	if r.MaxAttempts != 0 {
		p.MaxAttempts = r.MaxAttempts
	}

	if r.Backoff != "" {
		backoff, err := resilience.ParseBackoffType(r.Backoff)
		if err != nil {
			return p, err
		}

		p.Backoff = backoff
	}

	if r.Jitter != nil {
		p.Jitter = *r.Jitter
	}

	if r.RetryServerErrors != nil {
		p.RetryServerErrors = *r.RetryServerErrors
	}

	var err error

	if p.BaseDelay, err = parseDuration("base_delay", r.BaseDelay, p.BaseDelay); err != nil {
		return p, err
	}

	if p.Timeout, err = parseDuration("timeout", r.Timeout, p.Timeout); err != nil {
		return p, err
	}

	return p, p.Validate()
}

// validate validates the CNB feed configuration
func (c *CNB) validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.BaseURL)
	}

	if _, err := c.RequestTimeoutDuration(); err != nil {
		return err
	}

	interval, err := c.IntervalDuration()
	if err != nil {
		return err
	}

	if interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidDuration)
	}

	if _, err := c.Resilience.Policy(); err != nil {
		return fmt.Errorf("invalid resilience policy, %w", err)
	}

	return nil
}

// parseDuration parses the named duration value, using the fallback if unset
func parseDuration(name, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: %s = %q", ErrInvalidDuration, name, value)
	}

	return d, nil
}
