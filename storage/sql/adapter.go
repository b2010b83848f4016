package sql

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/sig-0/cnbrates/storage/sql/gen"
	"github.com/sig-0/cnbrates/storage/types"
)

// rateScale is the number of decimal places kept for stored rates.
// Per-unit CNB rates of weak currencies (IDR, KRW) are well below 0.01 CZK
const rateScale = 8

// Querier is the generated query surface used by the storage
type Querier interface {
	SaveExchangeRate(context.Context, gen.SaveExchangeRateParams) error
	RatesAsOf(context.Context, gen.RatesAsOfParams) ([]gen.RatesAsOfRow, error)
	ListSources(context.Context) ([]string, error)
	ListCurrencies(context.Context) ([]string, error)
}

// Storage is the Postgres exchange rate storage
type Storage struct {
	queries Querier
}

// NewStorage creates a new Postgres storage over the given queries
func NewStorage(queries Querier) *Storage {
	return &Storage{
		queries: queries,
	}
}

func (s *Storage) SaveExchangeRate(
	ctx context.Context,
	rate *types.ExchangeRate,
) error {
	arg := gen.SaveExchangeRateParams{
		Base:      rate.Base.String(),
		Target:    rate.Target.String(),
		Rate:      floatToNumeric(rate.Rate),
		RateType:  rate.RateType.String(),
		Source:    rate.Source.String(),
		AsOf:      timeToTimestamptz(rate.AsOf),
		FetchedAt: timeToTimestamptz(rate.FetchedAt),
	}

	if err := s.queries.SaveExchangeRate(ctx, arg); err != nil {
		return fmt.Errorf("unable to save exchange rate: %w", err)
	}

	return nil
}

func (s *Storage) RateAsOf(
	ctx context.Context,
	query *types.RateQuery,
	t time.Time,
) (*types.Page[*types.ExchangeRate], error) {
	limit, offset := query.Bounds()

	arg := gen.RatesAsOfParams{
		Base:       query.Base.String(),
		AsOf:       timeToTimestamptz(t),
		Target:     optionalText(query.Target),
		Source:     optionalText(query.Source),
		RateType:   optionalText(query.RateType),
		PageLimit:  limit,
		PageOffset: offset,
	}

	results, err := s.queries.RatesAsOf(ctx, arg)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch rates: %w", err)
	}

	if len(results) == 0 {
		return &types.Page[*types.ExchangeRate]{
			Results: nil,
			Total:   0,
		}, nil
	}

	items := make([]*types.ExchangeRate, 0, len(results))

	for _, row := range results {
		rate := parseExchangeRate(gen.ExchangeRate{
			ID:        row.ID,
			Base:      row.Base,
			Target:    row.Target,
			Rate:      row.Rate,
			RateType:  row.RateType,
			Source:    row.Source,
			AsOf:      row.AsOf,
			FetchedAt: row.FetchedAt,
		})

		if rate == nil {
			continue
		}

		items = append(items, rate)
	}

	return &types.Page[*types.ExchangeRate]{
		Results: items,
		Total:   results[0].Total,
	}, nil
}

func (s *Storage) ListSources(ctx context.Context) ([]types.Source, error) {
	results, err := s.queries.ListSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch sources: %w", err)
	}

	out := make([]types.Source, 0, len(results))

	for _, src := range results {
		out = append(out, types.Source(src))
	}

	return out, nil
}

func (s *Storage) ListCurrencies(ctx context.Context) ([]types.Currency, error) {
	results, err := s.queries.ListCurrencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch currencies: %w", err)
	}

	out := make([]types.Currency, 0, len(results))

	for _, code := range results {
		out = append(out, types.Currency(code))
	}

	return out, nil
}

// parseExchangeRate parses the postgres exchange rate to the common Go type
func parseExchangeRate(pgRate gen.ExchangeRate) *types.ExchangeRate {
	if !pgRate.Rate.Valid || pgRate.Rate.Int == nil {
		return nil
	}

	return &types.ExchangeRate{
		Base:      types.Currency(pgRate.Base),
		Target:    types.Currency(pgRate.Target),
		Rate:      numericToFloat(pgRate.Rate),
		RateType:  types.RateType(pgRate.RateType),
		Source:    types.Source(pgRate.Source),
		AsOf:      timestamptzToTime(pgRate.AsOf),
		FetchedAt: timestamptzToTime(pgRate.FetchedAt),
	}
}

// optionalText converts an optional filter to a nullable postgres text
func optionalText[T ~string](v *T) pgtype.Text {
	if v == nil {
		return pgtype.Text{}
	}

	return pgtype.Text{
		String: string(*v),
		Valid:  true,
	}
}

// floatToNumeric converts the float value to postgres numeric,
// rounded to rateScale decimal places
func floatToNumeric(value float64) pgtype.Numeric {
	i := int64(math.Round(value * math.Pow10(rateScale)))

	return pgtype.Numeric{
		Int:   big.NewInt(i),
		Exp:   -rateScale,
		Valid: true,
	}
}

// numericToFloat converts the postgres value to float
func numericToFloat(value pgtype.Numeric) float64 {
	f, _ := new(big.Rat).SetInt(value.Int).Float64()

	if value.Exp > 0 {
		f *= math.Pow10(int(value.Exp))
	} else if value.Exp < 0 {
		f /= math.Pow10(int(-value.Exp))
	}

	return f
}

// timeToTimestamptz converts the time value to postgres timestamp
func timeToTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{
		Time:  t.UTC(),
		Valid: true,
	}
}

// timestamptzToTime converts the postgres timestamp value to time
func timestamptzToTime(ts pgtype.Timestamptz) time.Time {
	if !ts.Valid {
		return time.Time{}
	}

	return ts.Time.UTC()
}
