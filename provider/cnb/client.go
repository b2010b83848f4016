package cnb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the public CNB API address
	DefaultBaseURL = "https://api.cnb.cz"

	// DefaultRequestTimeout bounds a single feed request
	DefaultRequestTimeout = 10 * time.Second

	dailyRatesPath = "/cnbapi/exrates/daily?lang=EN"
)

var errEmptyPayload = errors.New("empty payload")

// StatusError is returned when the feed answers with a non-2xx status
type StatusError struct {
	Status string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("invalid status code received: %d (%s)", e.Code, e.Status)
}

// StatusCode returns the HTTP status code of the response
func (e *StatusError) StatusCode() int {
	return e.Code
}

// DecodeError is returned when the feed payload cannot be decoded.
// A malformed payload does not get better on retry
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("unable to decode rates payload: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Retryable marks the error as permanent
func (e *DecodeError) Retryable() bool {
	return false
}

// Client is the HTTP binding for the CNB rate feed
type Client struct {
	client *http.Client
	logger *slog.Logger
	url    string
}

// NewClient creates a new CNB feed client.
// The timeout bounds each individual request
func NewClient(baseURL string, timeout time.Duration, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	c := &Client{
		client: &http.Client{
			Timeout: timeout,
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		url:    strings.TrimSuffix(baseURL, "/") + dailyRatesPath,
	}

	// Apply the options
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// FetchRates fetches the current daily rate fixing (single attempt)
func (c *Client) FetchRates(ctx context.Context) (*RatesResponse, error) {
	// Prepare the request
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("unable to create new GET request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	c.logger.Debug(
		"fetching daily rates",
		"url", c.url,
	)

	// Execute the request
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to execute GET request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain, so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

		return nil, &StatusError{
			Code:   resp.StatusCode,
			Status: resp.Status,
		}
	}

	var rates RatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&rates); err != nil {
		return nil, decodeErr(err)
	}

	c.logger.Debug(
		"fetched daily rates",
		"count", len(rates.Rates),
	)

	return &rates, nil
}

// decodeErr separates malformed payloads from body read failures.
// A body cut short (io.ErrUnexpectedEOF) is a read failure, and keeps
// its transport error for classification
func decodeErr(err error) error {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)

	switch {
	case errors.Is(err, io.EOF):
		return &DecodeError{Err: errEmptyPayload}
	case errors.As(err, &syntaxErr),
		errors.As(err, &typeErr):
		return &DecodeError{Err: err}
	default:
		return fmt.Errorf("unable to read rates payload: %w", err)
	}
}
