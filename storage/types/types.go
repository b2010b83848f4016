package types

import "time"

// Currency is an ISO 4217 currency code
type Currency string

func (c Currency) String() string {
	return string(c)
}

type RateType string

const (
	RateTypeMID  RateType = "MID"
	RateTypeBUY  RateType = "BUY"
	RateTypeSELL RateType = "SELL"
)

func (r RateType) String() string {
	return string(r)
}

// Source is the publisher of an exchange rate
type Source string

func (s Source) String() string {
	return string(s)
}

// ExchangeRate is a single observed rate: 1 unit of Base costs Rate units of Target
type ExchangeRate struct {
	AsOf      time.Time `json:"as_of"`
	FetchedAt time.Time `json:"fetched_at"`
	Base      Currency  `json:"base"`
	Target    Currency  `json:"target"`
	RateType  RateType  `json:"rate_type"`
	Source    Source    `json:"source"`
	Rate      float64   `json:"rate"`
}

type Pair struct {
	Base   Currency `json:"base"`
	Target Currency `json:"target"`
}

// RateQuery filters the stored rates of a base currency
type RateQuery struct {
	Target   *Currency `json:"target"`
	RateType *RateType `json:"rate_type"`
	Source   *Source   `json:"source"`
	Base     Currency  `json:"base"`
	Offset   int64     `json:"offset"`
	Limit    int32     `json:"limit"`
}

// Page wraps the results for pagination
type Page[T any] struct {
	Results []T   `json:"results"`
	Total   int64 `json:"total"`
}

const (
	// DefaultPageLimit is the page size used when a query sets none
	DefaultPageLimit int32 = 100

	// MaxPageLimit caps the page size of a single query
	MaxPageLimit int32 = 500
)

// Bounds returns the normalized page limit and offset of the query
func (q *RateQuery) Bounds() (int32, int64) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}

	limit = min(limit, MaxPageLimit)

	return limit, max(q.Offset, 0)
}
