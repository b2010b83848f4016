package cnb

import (
	"log/slog"
	"time"
)

type ClientOption func(c *Client)

// WithClientLogger specifies the logger for the feed client
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

type ProviderOption func(p *Provider)

// WithLogger specifies the logger for the provider
func WithLogger(l *slog.Logger) ProviderOption {
	return func(p *Provider) {
		p.logger = l
	}
}

// WithInterval specifies the ingest interval for the provider.
// Defaults to 1h
func WithInterval(interval time.Duration) ProviderOption {
	return func(p *Provider) {
		p.interval = interval
	}
}
