package cfg

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/sig-0/cnbrates/server/config"
)

// cfgCfg wraps the config command configuration
type cfgCfg struct {
	out io.Writer

	outputPath string
}

// NewConfigCmd creates the config command
func NewConfigCmd() *ffcli.Command {
	cfg := &cfgCfg{
		out: os.Stdout,
	}

	fs := flag.NewFlagSet("config", flag.ExitOnError)
	fs.StringVar(
		&cfg.outputPath,
		"output",
		"",
		"the path to write the configuration to (stdout if unset)",
	)

	return &ffcli.Command{
		Name:       "config",
		ShortUsage: "config [flags]",
		LongHelp:   "Generates the default TOML configuration",
		FlagSet:    fs,
		Exec:       cfg.exec,
	}
}

func (c *cfgCfg) exec(_ context.Context, _ []string) error {
	raw, err := config.Marshal(config.DefaultConfig())
	if err != nil {
		return fmt.Errorf("unable to encode config: %w", err)
	}

	if c.outputPath == "" {
		_, err = c.out.Write(raw)

		return err
	}

	if err = os.WriteFile(c.outputPath, raw, 0o600); err != nil {
		return fmt.Errorf("unable to write config: %w", err)
	}

	return nil
}
