package server

import (
	"time"

	"github.com/sig-0/cnbrates/storage/types"
)

type SourcesResponse struct {
	Results []types.Source `json:"results"`
}

type CurrenciesResponse struct {
	Results []types.Currency `json:"results"`
}

// LiveRatesResponse wraps the rates fetched directly from the provider
type LiveRatesResponse struct {
	FetchedAt time.Time             `json:"fetched_at"`
	Results   []*types.ExchangeRate `json:"results"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
