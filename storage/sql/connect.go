package sql

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sig-0/cnbrates/resilience"
)

// Connect opens a Postgres connection pool, retrying the initial
// reachability check through the given pipeline
func Connect(ctx context.Context, dsn string, pipeline *resilience.Pipeline) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse DB config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create DB pool: %w", err)
	}

	if err = pipeline.Do(ctx, pool.Ping); err != nil {
		pool.Close()

		return nil, fmt.Errorf("unable to reach DB (ping): %w", err)
	}

	return pool, nil
}
