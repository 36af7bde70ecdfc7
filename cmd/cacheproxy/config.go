package main

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-cache-proxy/cache"
)

const envPrefix = "CACHEPROXY_"

// loadConfig layers defaults, the YAML file, CACHEPROXY_* variables and
// finally explicitly set flags.
func loadConfig(cmd *cobra.Command, flags *rootFlags) (cache.Config, error) {
	cfg := cache.DefaultConfig()

	if flags.configPath != "" {
		data, err := os.ReadFile(flags.configPath)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", flags.configPath, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}

	changed := cmd.Flags().Changed
	if changed("driver") {
		cfg.Driver = cache.Driver(flags.driver)
	}
	if changed("ttl") {
		ttl, err := time.ParseDuration(flags.ttl)
		if err != nil {
			return cfg, fmt.Errorf("invalid --ttl: %w", err)
		}
		cfg.TTL = ttl
	}
	if changed("hash") {
		cfg.Hash = flags.hash
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newConfigCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}

			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
