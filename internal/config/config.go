// Package config contains the configuration loading of the parc-loc service.
package config

import (
	"errors"
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the configuration of the parc-loc service.
type Config struct {
	RunAddress     string `env:"RUN_ADDRESS"`
	DatabaseURI    string `env:"DATABASE_URI"`
	AccessPassword string `env:"ACCESS_PASSWORD"`
	SessionSecret  string `env:"SESSION_SECRET"`
	VGPSchedule    string `env:"VGP_CRON"`
}

// Parse reads the configuration from command-line flags and environment
// variables; the environment wins. The shared access password has no default
// and must be provided.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envAccessPassword := cfg.AccessPassword
	envSessionSecret := cfg.SessionSecret
	envVGPSchedule := cfg.VGPSchedule

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.AccessPassword, "p", "", "shared operator access password")
	flag.StringVar(&cfg.SessionSecret, "s", "parcloc-secret", "session signing secret")
	flag.StringVar(&cfg.VGPSchedule, "vgp-cron", "0 7 * * *", "cron schedule of the VGP reminder job")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envAccessPassword != "" {
		cfg.AccessPassword = envAccessPassword
	}
	if envSessionSecret != "" {
		cfg.SessionSecret = envSessionSecret
	}
	if envVGPSchedule != "" {
		cfg.VGPSchedule = envVGPSchedule
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	if cfg.AccessPassword == "" {
		return nil, errors.New("access password required")
	}

	return cfg, nil
}
