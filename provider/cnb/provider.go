package cnb

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/sig-0/cnbrates/provider/currencies"
	"github.com/sig-0/cnbrates/resilience"
	"github.com/sig-0/cnbrates/storage/types"
)

// Source is the CNB exchange rate source
var Source types.Source = "CNB"

const (
	// DefaultInterval is the default ingest interval.
	// The fixing is published once per business day, around 14:30 CET
	DefaultInterval = time.Hour

	validForLayout = "2006-01-02"
)

// Provider exposes the CNB daily fixing as CZK exchange rates.
// It holds no per-call state, so a single instance can serve any number
// of concurrent callers
type Provider struct {
	api      API
	pipeline *resilience.Pipeline
	logger   *slog.Logger
	now      func() time.Time
	interval time.Duration
}

// NewProvider creates a new CNB provider, routing every feed call
// through the given pipeline
func NewProvider(api API, pipeline *resilience.Pipeline, opts ...ProviderOption) *Provider {
	p := &Provider{
		api:      api,
		pipeline: pipeline,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      func() time.Time { return time.Now().UTC() },
		interval: DefaultInterval,
	}

	// Apply the options
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// GetRates fetches the current rates through the resilience pipeline.
// Pipeline errors are returned as-is
func (p *Provider) GetRates(ctx context.Context) ([]*types.ExchangeRate, error) {
	resp, err := resilience.Invoke(ctx, p.pipeline, p.api.FetchRates)
	if err != nil {
		return nil, err
	}

	return p.adapt(resp), nil
}

func (p *Provider) Name() string {
	return "CNB"
}

func (p *Provider) Interval() time.Duration {
	return p.interval
}

func (p *Provider) Fetch(ctx context.Context) ([]*types.ExchangeRate, error) {
	return p.GetRates(ctx)
}

// adapt converts the feed payload into per-unit CZK rates
func (p *Provider) adapt(resp *RatesResponse) []*types.ExchangeRate {
	if resp == nil {
		return []*types.ExchangeRate{}
	}

	var (
		fetchTime     = p.now()
		exchangeRates = make([]*types.ExchangeRate, 0, len(resp.Rates))
	)

	for _, r := range resp.Rates {
		code := strings.ToUpper(strings.TrimSpace(r.CurrencyCode))

		if code == "" || r.Amount <= 0 {
			p.logger.Warn(
				"skipping invalid feed entry",
				"currency_code", r.CurrencyCode,
				"amount", r.Amount,
			)

			continue
		}

		exchangeRates = append(exchangeRates, &types.ExchangeRate{
			AsOf:      parseValidFor(r.ValidFor, fetchTime),
			FetchedAt: fetchTime,
			Base:      types.Currency(code),
			Target:    currencies.CZK,
			RateType:  types.RateTypeMID,
			Source:    Source,
			Rate:      r.Rate / float64(r.Amount), // quoted per Amount units
		})
	}

	return exchangeRates
}

// parseValidFor parses the fixing date, falling back to the given time
func parseValidFor(validFor string, fallback time.Time) time.Time {
	t, err := time.Parse(validForLayout, strings.TrimSpace(validFor))
	if err != nil {
		return fallback
	}

	return t.UTC()
}
