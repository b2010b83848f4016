package resilience

import "log/slog"

type Option func(p *Pipeline)

// WithLogger specifies the logger for the pipeline
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// WithClassifier overrides the attempt error classification.
// Defaults to the HTTP-aware classifier honoring Policy.RetryServerErrors
func WithClassifier(c Classifier) Option {
	return func(p *Pipeline) {
		p.classify = c
	}
}

// WithMetrics specifies the collectors the pipeline reports to
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithName specifies the operation name used in logs and metrics
func WithName(name string) Option {
	return func(p *Pipeline) {
		p.name = name
	}
}
