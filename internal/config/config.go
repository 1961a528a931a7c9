// Package config loads tradesim settings from a YAML file, a .env file and
// the environment, in that order of increasing priority.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TRADELANES_"

// Catalog modes.
const (
	CatalogCore      = "core"
	CatalogGenerated = "generated"
)

// Config holds all tradesim settings.
type Config struct {
	Game struct {
		Seed          int64 `yaml:"seed"`
		StartSystem   int   `yaml:"start_system"`
		StartCredits  int64 `yaml:"start_credits"`
		CargoCapacity int   `yaml:"cargo_capacity"`
	} `yaml:"game"`

	Catalog struct {
		Mode    string  `yaml:"mode"`
		Systems int     `yaml:"systems"`
		Radius  float64 `yaml:"radius"`
		Height  float64 `yaml:"height"`
	} `yaml:"catalog"`

	Engine struct {
		DayInterval  time.Duration `yaml:"day_interval"`
		Speed        float64       `yaml:"speed"`
		AutosaveDays int           `yaml:"autosave_days"`
	} `yaml:"engine"`

	Storage struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"storage"`

	API struct {
		Port       int     `yaml:"port"`
		AdminKey   string  `yaml:"admin_key"`
		RateLimit  float64 `yaml:"rate_limit"` // Admin requests per second per client
		RateBurst  int     `yaml:"rate_burst"`
		Metrics    bool    `yaml:"metrics"`
		TrustProxy bool    `yaml:"trust_proxy"` // Key the rate limiter by X-Forwarded-For
	} `yaml:"api"`

	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
}

// Default returns the built-in settings.
func Default() *Config {
	cfg := &Config{}
	cfg.Game.Seed = 42
	cfg.Game.StartSystem = 0
	cfg.Game.StartCredits = 1000
	cfg.Game.CargoCapacity = 50

	cfg.Catalog.Mode = CatalogCore
	cfg.Catalog.Systems = 80
	cfg.Catalog.Radius = 40
	cfg.Catalog.Height = 6

	cfg.Engine.DayInterval = 10 * time.Second
	cfg.Engine.Speed = 1.0
	cfg.Engine.AutosaveDays = 1

	cfg.Storage.DBPath = "data/tradelanes.db"

	cfg.API.Port = 8080
	cfg.API.RateLimit = 1
	cfg.API.RateBurst = 5
	cfg.API.Metrics = true

	cfg.Logging.Level = "info"
	return cfg
}

// Load builds the configuration. path may be empty; a missing file at a
// non-empty path is an error. A missing .env file is not.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not read .env", "error", err)
	}

	if err := overrideWithEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	switch c.Catalog.Mode {
	case CatalogCore:
	case CatalogGenerated:
		// Seed 0 asks the generator for a random galaxy, which a save cannot reproduce.
		if c.Game.Seed == 0 {
			return fmt.Errorf("generated catalog needs a nonzero seed")
		}
		if c.Catalog.Systems <= 0 {
			return fmt.Errorf("catalog systems must be positive, got %d", c.Catalog.Systems)
		}
		if c.Catalog.Radius <= 0 {
			return fmt.Errorf("catalog radius must be positive, got %v", c.Catalog.Radius)
		}
	default:
		return fmt.Errorf("unknown catalog mode %q", c.Catalog.Mode)
	}

	if c.Game.StartCredits < 0 {
		return fmt.Errorf("start credits must not be negative")
	}
	if c.Game.CargoCapacity <= 0 {
		return fmt.Errorf("cargo capacity must be positive")
	}
	if c.Engine.DayInterval <= 0 {
		return fmt.Errorf("day interval must be positive")
	}
	if c.Engine.Speed < 0 {
		return fmt.Errorf("speed must not be negative")
	}
	if c.Engine.AutosaveDays < 0 {
		return fmt.Errorf("autosave days must not be negative")
	}
	if c.Storage.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		return fmt.Errorf("invalid api port %d", c.API.Port)
	}
	if c.API.RateLimit <= 0 || c.API.RateBurst <= 0 {
		return fmt.Errorf("rate limit and burst must be positive")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	return nil
}

// overrideWithEnv applies TRADELANES_* variables on top of the file values.
func overrideWithEnv(cfg *Config) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	int64v := func(key string, dst *int64) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = f
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = d
		}
	}

	int64v("SEED", &cfg.Game.Seed)
	integer("START_SYSTEM", &cfg.Game.StartSystem)
	int64v("START_CREDITS", &cfg.Game.StartCredits)
	integer("CARGO_CAPACITY", &cfg.Game.CargoCapacity)

	str("CATALOG_MODE", &cfg.Catalog.Mode)
	integer("CATALOG_SYSTEMS", &cfg.Catalog.Systems)

	duration("DAY_INTERVAL", &cfg.Engine.DayInterval)
	float("SPEED", &cfg.Engine.Speed)
	integer("AUTOSAVE_DAYS", &cfg.Engine.AutosaveDays)

	str("DB_PATH", &cfg.Storage.DBPath)

	integer("PORT", &cfg.API.Port)
	str("ADMIN_KEY", &cfg.API.AdminKey)
	boolean("METRICS", &cfg.API.Metrics)
	boolean("TRUST_PROXY", &cfg.API.TrustProxy)

	str("LOG_LEVEL", &cfg.Logging.Level)
	str("LOG_FILE", &cfg.Logging.File)

	return errors.Join(errs...)
}
