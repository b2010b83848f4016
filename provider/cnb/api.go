package cnb

import "context"

// API is the CNB rate feed contract: a single operation against
// the fixed feed endpoint, with no retry or recovery logic of its own
type API interface {
	// FetchRates fetches the current daily rate fixing
	FetchRates(ctx context.Context) (*RatesResponse, error)
}

// RatesResponse is the daily rate fixing payload
type RatesResponse struct {
	Rates []Rate `json:"rates"`
}

// Rate is a single feed entry. The rate is expressed in CZK
// for Amount units of the foreign currency
type Rate struct {
	ValidFor     string  `json:"validFor"`
	Country      string  `json:"country"`
	Currency     string  `json:"currency"`
	CurrencyCode string  `json:"currencyCode"`
	Order        int     `json:"order"`
	Amount       int64   `json:"amount"`
	Rate         float64 `json:"rate"`
}
