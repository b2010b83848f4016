package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sig-0/cnbrates/provider/currencies"
	"github.com/sig-0/cnbrates/storage/types"
)

var (
	day1 = time.Date(2024, time.May, 16, 0, 0, 0, 0, time.UTC)
	day2 = time.Date(2024, time.May, 17, 0, 0, 0, 0, time.UTC)
)

func newRate(base types.Currency, source types.Source, asOf time.Time, rate float64) *types.ExchangeRate {
	return &types.ExchangeRate{
		AsOf:      asOf,
		FetchedAt: asOf.Add(14 * time.Hour),
		Base:      base,
		Target:    currencies.CZK,
		RateType:  types.RateTypeMID,
		Source:    source,
		Rate:      rate,
	}
}

func seed(t *testing.T, s *Storage, rates ...*types.ExchangeRate) {
	t.Helper()

	for _, r := range rates {
		require.NoError(t, s.SaveExchangeRate(context.Background(), r))
	}
}

func TestStorage_RateAsOf(t *testing.T) {
	t.Parallel()

	t.Run("latest at or before the cutoff", func(t *testing.T) {
		t.Parallel()

		s := NewStorage()
		seed(
			t,
			s,
			newRate(currencies.EUR, "CNB", day1, 25.0),
			newRate(currencies.EUR, "CNB", day2, 25.1),
			newRate(currencies.USD, "CNB", day2, 23.0),
		)

		page, err := s.RateAsOf(
			context.Background(),
			&types.RateQuery{Base: currencies.EUR},
			day2.Add(time.Hour),
		)
		require.NoError(t, err)

		require.Len(t, page.Results, 1)
		assert.Equal(t, int64(1), page.Total)
		assert.Equal(t, 25.1, page.Results[0].Rate)

		page, err = s.RateAsOf(
			context.Background(),
			&types.RateQuery{Base: currencies.EUR},
			day1.Add(time.Hour),
		)
		require.NoError(t, err)

		require.Len(t, page.Results, 1)
		assert.Equal(t, 25.0, page.Results[0].Rate)
	})

	t.Run("nothing before the cutoff", func(t *testing.T) {
		t.Parallel()

		s := NewStorage()
		seed(t, s, newRate(currencies.EUR, "CNB", day2, 25.1))

		page, err := s.RateAsOf(
			context.Background(),
			&types.RateQuery{Base: currencies.EUR},
			day1,
		)
		require.NoError(t, err)

		assert.Empty(t, page.Results)
		assert.Equal(t, int64(0), page.Total)
	})

	t.Run("filters and ordering", func(t *testing.T) {
		t.Parallel()

		s := NewStorage()
		seed(
			t,
			s,
			newRate(currencies.EUR, "ECB", day2, 25.2),
			newRate(currencies.EUR, "CNB", day2, 25.1),
		)

		page, err := s.RateAsOf(
			context.Background(),
			&types.RateQuery{Base: currencies.EUR},
			day2,
		)
		require.NoError(t, err)

		require.Len(t, page.Results, 2)
		assert.Equal(t, types.Source("CNB"), page.Results[0].Source)
		assert.Equal(t, types.Source("ECB"), page.Results[1].Source)

		source := types.Source("ECB")

		page, err = s.RateAsOf(
			context.Background(),
			&types.RateQuery{Base: currencies.EUR, Source: &source},
			day2,
		)
		require.NoError(t, err)

		require.Len(t, page.Results, 1)
		assert.Equal(t, 25.2, page.Results[0].Rate)
	})

	t.Run("pagination", func(t *testing.T) {
		t.Parallel()

		s := NewStorage()

		for _, source := range []types.Source{"A", "B", "C"} {
			seed(t, s, newRate(currencies.EUR, source, day2, 25))
		}

		page, err := s.RateAsOf(
			context.Background(),
			&types.RateQuery{Base: currencies.EUR, Limit: 2, Offset: 1},
			day2,
		)
		require.NoError(t, err)

		assert.Equal(t, int64(3), page.Total)
		require.Len(t, page.Results, 2)
		assert.Equal(t, types.Source("B"), page.Results[0].Source)

		page, err = s.RateAsOf(
			context.Background(),
			&types.RateQuery{Base: currencies.EUR, Offset: 10},
			day2,
		)
		require.NoError(t, err)

		assert.Equal(t, int64(3), page.Total)
		assert.Empty(t, page.Results)
	})

	t.Run("resave overwrites", func(t *testing.T) {
		t.Parallel()

		s := NewStorage()
		seed(
			t,
			s,
			newRate(currencies.EUR, "CNB", day2, 25.1),
			newRate(currencies.EUR, "CNB", day2, 25.3),
		)

		page, err := s.RateAsOf(
			context.Background(),
			&types.RateQuery{Base: currencies.EUR},
			day2,
		)
		require.NoError(t, err)

		require.Len(t, page.Results, 1)
		assert.Equal(t, 25.3, page.Results[0].Rate)
	})
}

func TestStorage_Lists(t *testing.T) {
	t.Parallel()

	s := NewStorage()
	seed(
		t,
		s,
		newRate(currencies.USD, "CNB", day2, 23.0),
		newRate(currencies.EUR, "ECB", day2, 25.2),
		newRate(currencies.EUR, "CNB", day2, 25.1),
	)

	sources, err := s.ListSources(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []types.Source{"CNB", "ECB"}, sources)

	codes, err := s.ListCurrencies(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []types.Currency{currencies.CZK, currencies.EUR, currencies.USD}, codes)
}

func TestStorage_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	var (
		s  = NewStorage()
		wg sync.WaitGroup
	)

	for i := range 20 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_ = s.SaveExchangeRate(
				context.Background(),
				newRate(currencies.EUR, "CNB", day1.Add(time.Duration(i)*time.Hour), float64(i)),
			)

			_, _ = s.RateAsOf(context.Background(), &types.RateQuery{Base: currencies.EUR}, day2)
		}()
	}

	wg.Wait()

	page, err := s.RateAsOf(context.Background(), &types.RateQuery{Base: currencies.EUR}, day2)
	require.NoError(t, err)

	require.Len(t, page.Results, 1)
	assert.Equal(t, 19.0, page.Results[0].Rate)
}
