package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sig-0/cnbrates/provider/currencies"
	"github.com/sig-0/cnbrates/resilience"
	"github.com/sig-0/cnbrates/storage/types"
)

var (
	errLiveUnavailable   = errors.New("live rates are not enabled")
	errUpstreamTimeout   = errors.New("upstream rate feed timed out")
	errUpstreamExhausted = errors.New("upstream rate feed unavailable")
	errUpstreamRejected  = errors.New("upstream rate feed rejected the request")
	errUnableToFetchLive = errors.New("unable to fetch live rates")
	errUnsupportedBase   = errors.New("currency is not quoted by the CNB")
)

// RateProvider fetches the current rates from the upstream authority
type RateProvider interface {
	GetRates(ctx context.Context) ([]*types.ExchangeRate, error)
}

// LiveRates serves the current rates straight from the provider,
// bypassing storage. The optional base query param filters the results
func (s *Server) LiveRates(w http.ResponseWriter, r *http.Request) {
	if s.live == nil {
		writeError(w, http.StatusNotImplemented, errLiveUnavailable)

		return
	}

	var base *types.Currency

	if v := strings.TrimSpace(r.URL.Query().Get("base")); v != "" {
		c, err := parseCurrencySymbol(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)

			return
		}

		if !currencies.IsFixing(c) {
			writeError(w, http.StatusBadRequest, errUnsupportedBase)

			return
		}

		base = &c
	}

	rates, err := s.live.GetRates(r.Context())
	if err != nil {
		status, resErr := liveError(err)

		s.logger.Error(
			"unable to fetch live rates",
			"status", status,
			"err", err,
		)

		writeError(w, status, resErr)

		return
	}

	results := make([]*types.ExchangeRate, 0, len(rates))

	for _, rate := range rates {
		if base != nil && rate.Base != *base {
			continue
		}

		results = append(results, rate)
	}

	writeJSON(w, http.StatusOK, &LiveRatesResponse{
		FetchedAt: time.Now().UTC(),
		Results:   results,
	})
}

// liveError maps a terminal pipeline error to the response status and message
func liveError(err error) (int, error) {
	switch {
	case errors.Is(err, resilience.ErrDeadlineExceeded):
		return http.StatusGatewayTimeout, errUpstreamTimeout
	case errors.Is(err, resilience.ErrRetriesExhausted):
		return http.StatusServiceUnavailable, errUpstreamExhausted
	case errors.Is(err, resilience.ErrPermanent):
		return http.StatusBadGateway, errUpstreamRejected
	default:
		return http.StatusInternalServerError, errUnableToFetchLive
	}
}
