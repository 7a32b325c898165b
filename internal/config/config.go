// Package config loads the poscached daemon configuration: a YAML file with
// environment variable overrides applied on top.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Listen        string `yaml:"listen" env:"POSCACHED_LISTEN"`
	MetricsListen string `yaml:"metrics_listen" env:"POSCACHED_METRICS_LISTEN"`

	Namespace string        `yaml:"namespace" env:"POSCACHED_NAMESPACE"`
	TTL       time.Duration `yaml:"ttl" env:"POSCACHED_TTL"`
	Retention time.Duration `yaml:"retention" env:"POSCACHED_RETENTION"`
	MaxBatch  int           `yaml:"max_batch" env:"POSCACHED_MAX_BATCH"`
	WriterTTL time.Duration `yaml:"writer_ttl" env:"POSCACHED_WRITER_TTL"`

	Ledger LedgerConfig `yaml:"ledger"`
	Redis  RedisConfig  `yaml:"redis"`
	Access AccessConfig `yaml:"access"`

	// Writers are the logical names of authorized writer services, resolved
	// against the directory table below.
	Writers   []string          `yaml:"writers"`
	Directory map[string]string `yaml:"directory"`
}

type LedgerConfig struct {
	BaseURL string        `yaml:"base_url" env:"POSCACHED_LEDGER_URL"`
	Timeout time.Duration `yaml:"timeout" env:"POSCACHED_LEDGER_TIMEOUT"`
}

// RedisConfig selects the Redis-backed record store and degradation stream.
// An empty Addr keeps everything in-process (Ristretto + memory recorder).
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"POSCACHED_REDIS_ADDR"`
	Password string `yaml:"password" env:"POSCACHED_REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"POSCACHED_REDIS_DB"`
	Stream   string `yaml:"stream" env:"POSCACHED_REDIS_STREAM"`
}

type AccessConfig struct {
	Elevated       []string `yaml:"elevated"`
	BatchOperators []string `yaml:"batch_operators"`
	Operators      []string `yaml:"operators"`
}

// Load reads the YAML file at path, applies environment overrides, fills in
// defaults and validates the result.
func Load(path string, logger *zap.Logger) (*Config, error) {
	logger.Info("Loading configuration", zap.String("path", path))

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var cfg Config
	if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode YAML config: %w", err)
	}

	// env wins over file
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.MetricsListen == "" {
		c.MetricsListen = ":9090"
	}
	if c.Namespace == "" {
		c.Namespace = "positions"
	}
	if c.TTL == 0 {
		c.TTL = 5 * time.Minute
	}
	if c.MaxBatch == 0 {
		c.MaxBatch = 500
	}
	if c.WriterTTL == 0 {
		c.WriterTTL = 30 * time.Second
	}
	if c.Ledger.Timeout == 0 {
		c.Ledger.Timeout = 5 * time.Second
	}
	if c.Redis.Stream == "" {
		c.Redis.Stream = "poscache:degradations"
	}
}

func (c *Config) validate() error {
	if c.Ledger.BaseURL == "" {
		return fmt.Errorf("config: ledger.base_url is required")
	}
	if len(c.Writers) == 0 {
		return fmt.Errorf("config: at least one writer must be declared")
	}
	for _, w := range c.Writers {
		if _, ok := c.Directory[w]; !ok {
			return fmt.Errorf("config: writer %q has no directory entry", w)
		}
	}
	return nil
}
