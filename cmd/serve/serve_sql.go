package serve

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/sig-0/cnbrates/cmd/env"
	"github.com/sig-0/cnbrates/resilience"
	"github.com/sig-0/cnbrates/storage/sql"
	"github.com/sig-0/cnbrates/storage/sql/gen"
)

type serveSQLCfg struct {
	rootCfg *serveCfg
}

// newServeSQLCmd creates the serve sql command
func newServeSQLCmd(rootCfg *serveCfg) *ffcli.Command {
	cfg := &serveSQLCfg{
		rootCfg: rootCfg,
	}

	fs := flag.NewFlagSet("sql", flag.ExitOnError)
	cfg.rootCfg.registerFlags(fs)

	return &ffcli.Command{
		Name:       "sql",
		ShortUsage: "serve sql [flags]",
		LongHelp:   "Serves the cnbrates backend, using a Postgres datastore",
		FlagSet:    fs,
		Exec:       cfg.exec,
		Options: []ff.Option{
			// Allow using ENV variables
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}
}

// exec executes the server serve command
func (c *serveSQLCfg) exec(ctx context.Context, _ []string) error {
	logger, err := c.rootCfg.prepare()
	if err != nil {
		return err
	}

	// DB
	dsn := os.Getenv(env.Prefix + env.DBURLSuffix)
	if dsn == "" {
		return fmt.Errorf("missing %s", env.Prefix+env.DBURLSuffix)
	}

	// The DB may still be starting up, retry the initial ping
	dbPipeline, err := resilience.New(
		resilience.Policy{
			Backoff:     resilience.BackoffLinear,
			MaxAttempts: 5,
			BaseDelay:   resilience.DefaultBaseDelay / 5,
			Timeout:     resilience.DefaultTimeout,
			Jitter:      true,
		},
		resilience.WithLogger(logger),
		resilience.WithName("db-connect"),
	)
	if err != nil {
		return fmt.Errorf("unable to create DB connect pipeline, %w", err)
	}

	// Open the DB connection pool
	pool, err := sql.Connect(ctx, dsn, dbPipeline)
	if err != nil {
		return err
	}

	defer pool.Close()

	logger.Info("DB ping success")

	// Create an SQL store
	store := sql.NewStorage(gen.New(pool))

	return c.rootCfg.run(ctx, store, logger)
}
