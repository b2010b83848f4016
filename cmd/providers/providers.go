// Package providers assembles the rate providers from the service configuration
package providers

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sig-0/cnbrates/provider/cnb"
	"github.com/sig-0/cnbrates/resilience"
	"github.com/sig-0/cnbrates/server/config"
)

// NewCNB builds the CNB provider: feed client, resilience pipeline and
// provider. The result is stateless and shared by every caller.
// Metrics are registered with reg, if set
func NewCNB(
	cfg *config.CNB,
	logger *slog.Logger,
	reg prometheus.Registerer,
) (*cnb.Provider, error) {
	if cfg == nil {
		cfg = config.DefaultCNBConfig()
	}

	policy, err := cfg.Resilience.Policy()
	if err != nil {
		return nil, fmt.Errorf("invalid resilience policy, %w", err)
	}

	requestTimeout, err := cfg.RequestTimeoutDuration()
	if err != nil {
		return nil, err
	}

	interval, err := cfg.IntervalDuration()
	if err != nil {
		return nil, err
	}

	pipelineOpts := []resilience.Option{
		resilience.WithLogger(logger),
		resilience.WithName("cnb-daily-rates"),
	}

	if reg != nil {
		pipelineOpts = append(pipelineOpts, resilience.WithMetrics(resilience.NewMetrics(reg)))
	}

	pipeline, err := resilience.New(policy, pipelineOpts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create resilience pipeline, %w", err)
	}

	client := cnb.NewClient(
		cfg.BaseURL,
		requestTimeout,
		cnb.WithClientLogger(logger),
	)

	return cnb.NewProvider(
		client,
		pipeline,
		cnb.WithLogger(logger),
		cnb.WithInterval(interval),
	), nil
}
