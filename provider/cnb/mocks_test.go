package cnb

import "context"

type fetchRatesDelegate func(context.Context) (*RatesResponse, error)

type mockAPI struct {
	fetchRatesFn fetchRatesDelegate
}

func (m *mockAPI) FetchRates(ctx context.Context) (*RatesResponse, error) {
	if m.fetchRatesFn != nil {
		return m.fetchRatesFn(ctx)
	}

	return &RatesResponse{}, nil
}
