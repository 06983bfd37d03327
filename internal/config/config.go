// Package config loads the server configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Redis configures the optional Redis-backed adapters. An empty Addr
// means the server runs purely in-memory.
type Redis struct {
	Addr   string `yaml:"addr"`
	Prefix string `yaml:"prefix"`
}

// Config is the server configuration.
type Config struct {
	Listen   string `yaml:"listen"`
	LogLevel string `yaml:"log_level"`
	Redis    Redis  `yaml:"redis"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Listen:   ":8080",
		LogLevel: "info",
		Redis: Redis{
			Prefix: "conductor:",
		},
	}
}

// Load reads a YAML config file, layering it over the defaults.
// An empty path returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Listen == "" {
		cfg.Listen = Default().Listen
	}
	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = Default().Redis.Prefix
	}
	return cfg, nil
}
