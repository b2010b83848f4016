package ingest

import (
	"context"
	"time"

	"github.com/rs/xid"

	"github.com/sig-0/cnbrates/storage/types"
)

// scheduledIngest is a single scheduled Provider ingest job
type scheduledIngest struct {
	at         time.Time
	provider   Provider
	providerID xid.ID
}

// Less sorts scheduled ingests by their due time (earliest first)
func (a scheduledIngest) Less(b scheduledIngest) bool {
	return a.at.Before(b.at)
}

// workerInfo is the work context for the provider routine
type workerInfo struct {
	provider   Provider
	resCh      chan<- *workerResponse
	providerID xid.ID
}

// workerResponse is the provider routine response
type workerResponse struct {
	error      error                 // encountered error, if any
	rates      []*types.ExchangeRate // the fetched exchange rates
	providerID xid.ID                // the provider ID
	took       time.Duration         // the fetch duration, retries included
}

// handleJob fetches using the provider, and reports back to the orchestrator
func handleJob(
	ctx context.Context,
	info *workerInfo,
) {
	start := time.Now()
	rates, err := info.provider.Fetch(ctx)

	response := &workerResponse{
		error:      err,
		rates:      rates,
		providerID: info.providerID,
		took:       time.Since(start),
	}

	select {
	case <-ctx.Done():
	case info.resCh <- response:
	}
}
