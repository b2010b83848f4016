package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/pelletier/go-toml"
)

const DefaultListenAddress = "0.0.0.0:8545"

var ErrInvalidListenAddress = errors.New("invalid listen address")

var listenAddressRegex = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}:\d+$`)

// Config defines the base-level server configuration
type Config struct {
	// The associated CORS config, if any
	CORSConfig *CORS `toml:"cors_config"`

	// The CNB feed config
	CNBConfig *CNB `toml:"cnb_config"`

	// The address at which the server will be served.
	// Format should be: <IP>:<PORT>
	ListenAddress string `toml:"listen_address"`
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		ListenAddress: DefaultListenAddress,
		CORSConfig:    DefaultCORSConfig(),
		CNBConfig:     DefaultCNBConfig(),
	}
}

// ValidateConfig validates the server configuration
func ValidateConfig(config *Config) error {
	// Validate the listen address
	if !listenAddressRegex.MatchString(config.ListenAddress) {
		return ErrInvalidListenAddress
	}

	// Validate the CNB feed config
	if config.CNBConfig != nil {
		if err := config.CNBConfig.validate(); err != nil {
			return err
		}
	}

	return nil
}

// Read reads the configuration from the given path.
// Values missing from the file keep their defaults
func Read(path string) (*Config, error) {
	// Read the config file
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Parse it
	var cfg Config

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("unable to parse config, %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// Marshal encodes the configuration as TOML
func Marshal(cfg *Config) ([]byte, error) {
	return toml.Marshal(cfg)
}

// applyDefaults fills in the sections and values left unset
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.ListenAddress == "" {
		c.ListenAddress = defaults.ListenAddress
	}

	if c.CNBConfig == nil {
		c.CNBConfig = defaults.CNBConfig

		return
	}

	if c.CNBConfig.BaseURL == "" {
		c.CNBConfig.BaseURL = defaults.CNBConfig.BaseURL
	}

	if c.CNBConfig.RequestTimeout == "" {
		c.CNBConfig.RequestTimeout = defaults.CNBConfig.RequestTimeout
	}

	if c.CNBConfig.Interval == "" {
		c.CNBConfig.Interval = defaults.CNBConfig.Interval
	}

	if c.CNBConfig.Resilience == nil {
		c.CNBConfig.Resilience = defaults.CNBConfig.Resilience
	}
}
