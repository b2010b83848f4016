package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/sig-0/cnbrates/storage/types"
)

// rateKey uniquely identifies a stored rate. Saving the same key twice
// keeps the latest write
type rateKey struct {
	base, target, source, rateType string
	asOf                           int64 // unix nanos
}

// seriesKey identifies a rate series of a single base currency
type seriesKey struct {
	target, source, rateType string
}

// Storage is the in-memory exchange rate storage
type Storage struct {
	data map[rateKey]types.ExchangeRate

	mu sync.RWMutex
}

// NewStorage creates a new in-memory storage
func NewStorage() *Storage {
	return &Storage{
		data: make(map[rateKey]types.ExchangeRate),
	}
}

func (s *Storage) SaveExchangeRate(_ context.Context, r *types.ExchangeRate) error {
	elem := *r
	elem.AsOf = elem.AsOf.UTC()
	elem.FetchedAt = elem.FetchedAt.UTC()

	k := rateKey{
		base:     elem.Base.String(),
		target:   elem.Target.String(),
		source:   elem.Source.String(),
		rateType: elem.RateType.String(),
		asOf:     elem.AsOf.UnixNano(),
	}

	s.mu.Lock()
	s.data[k] = elem
	s.mu.Unlock()

	return nil
}

// RateAsOf returns the latest rate of every matching series
// effective at or before asOf
func (s *Storage) RateAsOf(
	_ context.Context,
	query *types.RateQuery,
	asOf time.Time,
) (*types.Page[*types.ExchangeRate], error) {
	cutoff := asOf.UTC()
	latest := make(map[seriesKey]types.ExchangeRate)

	s.mu.RLock()

	for _, v := range s.data {
		if !matches(query, &v) || v.AsOf.After(cutoff) {
			continue
		}

		k := seriesKey{
			target:   v.Target.String(),
			source:   v.Source.String(),
			rateType: v.RateType.String(),
		}

		cur, ok := latest[k]
		if !ok ||
			v.AsOf.After(cur.AsOf) ||
			(v.AsOf.Equal(cur.AsOf) && v.FetchedAt.After(cur.FetchedAt)) {
			latest[k] = v
		}
	}

	s.mu.RUnlock()

	out := make([]*types.ExchangeRate, 0, len(latest))
	for _, v := range latest {
		out = append(out, &v)
	}

	slices.SortFunc(out, func(a, b *types.ExchangeRate) int {
		return cmp.Or(
			cmp.Compare(a.Target, b.Target),
			cmp.Compare(a.Source, b.Source),
			cmp.Compare(a.RateType, b.RateType),
		)
	})

	return paginate(out, query), nil
}

func (s *Storage) ListSources(_ context.Context) ([]types.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return distinct(s.data, func(k rateKey) []types.Source {
		return []types.Source{types.Source(k.source)}
	}), nil
}

func (s *Storage) ListCurrencies(_ context.Context) ([]types.Currency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return distinct(s.data, func(k rateKey) []types.Currency {
		return []types.Currency{types.Currency(k.base), types.Currency(k.target)}
	}), nil
}

// matches checks the rate against the query filters
func matches(query *types.RateQuery, r *types.ExchangeRate) bool {
	if r.Base != query.Base {
		return false
	}

	if query.Target != nil && r.Target != *query.Target {
		return false
	}

	if query.Source != nil && r.Source != *query.Source {
		return false
	}

	if query.RateType != nil && r.RateType != *query.RateType {
		return false
	}

	return true
}

// paginate cuts the requested page out of the sorted results
func paginate(out []*types.ExchangeRate, query *types.RateQuery) *types.Page[*types.ExchangeRate] {
	total := int64(len(out))
	limit, offset := query.Bounds()

	if total == 0 || offset >= total {
		return &types.Page[*types.ExchangeRate]{
			Results: nil,
			Total:   total,
		}
	}

	end := min(offset+int64(limit), total)

	return &types.Page[*types.ExchangeRate]{
		Results: out[offset:end],
		Total:   total,
	}
}

// distinct collects the sorted unique values extracted from the stored keys
func distinct[T ~string](data map[rateKey]types.ExchangeRate, extract func(rateKey) []T) []T {
	seen := make(map[T]struct{})

	for k := range data {
		for _, v := range extract(k) {
			seen[v] = struct{}{}
		}
	}

	out := make([]T, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}

	slices.Sort(out)

	return out
}
