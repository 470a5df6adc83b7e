package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"ipormac/internal/domain"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Store struct {
		Driver    string `yaml:"driver"`
		SQLiteDir string `yaml:"sqlite_dir"`
	} `yaml:"store"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Generator struct {
		Seed    int64                      `yaml:"seed"`
		Weights map[domain.AddressType]int `yaml:"weights"`
	} `yaml:"generator"`
	Sites []domain.Site `yaml:"sites"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads YAML config from path. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
	if c.Store.Driver == "" {
		switch {
		case c.Postgres.URL != "":
			c.Store.Driver = DriverPostgres
		case c.Redis.Addr != "":
			c.Store.Driver = DriverRedis
		default:
			c.Store.Driver = DriverMemory
		}
	}
	if c.Store.SQLiteDir == "" {
		c.Store.SQLiteDir = "data"
	}
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory, DriverSQLite:
	case DriverRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("store driver %q needs redis.addr", c.Store.Driver)
		}
	case DriverPostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("store driver %q needs postgres.url", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	for t, w := range c.Generator.Weights {
		if !t.Known() {
			return fmt.Errorf("generator weight for unknown type %q", t)
		}
		if w < 0 {
			return fmt.Errorf("generator weight for %s is negative", t)
		}
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
