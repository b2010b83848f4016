package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/sig-0/cnbrates/cmd/env"
	"github.com/sig-0/cnbrates/cmd/providers"
	"github.com/sig-0/cnbrates/resilience"
	"github.com/sig-0/cnbrates/server/config"
	"github.com/sig-0/cnbrates/storage/types"
)

var errFetchFailed = errors.New("fetch failed")

// fetchCfg wraps the fetch configuration
type fetchCfg struct {
	out io.Writer

	configPath string
	base       string
	verbose    bool
}

// NewFetchCmd creates the fetch command
func NewFetchCmd() *ffcli.Command {
	cfg := &fetchCfg{
		out: os.Stdout,
	}

	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	cfg.registerFlags(fs)

	return &ffcli.Command{
		Name:       "fetch",
		ShortUsage: "fetch [flags]",
		LongHelp:   "Fetches the current CNB rates once, and prints them as JSON",
		FlagSet:    fs,
		Exec:       cfg.exec,
		Options: []ff.Option{
			// Allow using ENV variables
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}
}

func (c *fetchCfg) registerFlags(fs *flag.FlagSet) {
	fs.StringVar(
		&c.configPath,
		"config",
		"",
		"the path to the TOML configuration, if any",
	)

	fs.StringVar(
		&c.base,
		"base",
		"",
		"only print the rate of this currency",
	)

	fs.BoolVar(
		&c.verbose,
		"verbose",
		false,
		"log the retry attempts to stderr",
	)
}

func (c *fetchCfg) exec(ctx context.Context, _ []string) error {
	cfg := config.DefaultConfig()

	// Read the configuration, if any
	if c.configPath != "" {
		var err error

		if cfg, err = config.Read(c.configPath); err != nil {
			return fmt.Errorf("unable to read config, %w", err)
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if c.verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	p, err := providers.NewCNB(cfg.CNBConfig, logger, nil)
	if err != nil {
		return err
	}

	rates, err := p.GetRates(ctx)
	if err != nil {
		return fmt.Errorf("%w (%s): %w", errFetchFailed, resilience.Describe(err), err)
	}

	return c.print(filterBase(rates, c.base))
}

// print writes the rates as indented JSON
func (c *fetchCfg) print(rates []*types.ExchangeRate) error {
	encoder := json.NewEncoder(c.out)
	encoder.SetIndent("", "  ")

	return encoder.Encode(rates)
}

// filterBase keeps the rates of the given base currency, if any
func filterBase(rates []*types.ExchangeRate, base string) []*types.ExchangeRate {
	base = strings.ToUpper(strings.TrimSpace(base))
	if base == "" {
		return rates
	}

	out := make([]*types.ExchangeRate, 0, 1)

	for _, rate := range rates {
		if rate.Base.String() == base {
			out = append(out, rate)
		}
	}

	return out
}
