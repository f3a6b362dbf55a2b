// Package daemon manages the PlugPoint daemon lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"

	"github.com/plugpoint/plugpoint/internal/app/engagement"
	"github.com/plugpoint/plugpoint/internal/infra/catalog"
	"github.com/plugpoint/plugpoint/internal/jobs"
)

// envPrefix scopes environment overrides, e.g. PLUGPOINT_API_PORT or
// PLUGPOINT_REWARDS_BASE_POINTS=check_in:12,route_plan:8.
const envPrefix = "PLUGPOINT"

// Config holds all daemon configuration.
type Config struct {
	API       APIConfig       `toml:"api" envconfig:"API"`
	Storage   StorageConfig   `toml:"storage" envconfig:"STORAGE"`
	Catalog   CatalogConfig   `toml:"catalog" envconfig:"CATALOG"`
	Rewards   RewardsConfig   `toml:"rewards" envconfig:"REWARDS"`
	Logging   LoggingConfig   `toml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `toml:"telemetry" envconfig:"TELEMETRY"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig selects and configures the profile store.
type StorageConfig struct {
	Driver   string `toml:"driver"` // sqlite | postgres
	Dir      string `toml:"dir"`
	DSN      string `toml:"dsn"`
	MaxConns int32  `toml:"max_conns" split_words:"true"`
}

// CatalogConfig controls the catalog cache.
type CatalogConfig struct {
	MaxStaleness    string `toml:"max_staleness" split_words:"true"`
	RefreshSchedule string `toml:"refresh_schedule" split_words:"true"`
	SeedDefaults    bool   `toml:"seed_defaults" split_words:"true"`
}

// RewardsConfig overrides base points per action type.
type RewardsConfig struct {
	BasePoints map[string]int64 `toml:"base_points" split_words:"true"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // text | json
}

// TelemetryConfig controls metrics exposure.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8787,
		},
		Storage: StorageConfig{
			Driver:   DriverSQLite,
			Dir:      plugpointHome(),
			MaxConns: 10,
		},
		Catalog: CatalogConfig{
			MaxStaleness:    catalog.DefaultMaxStaleness.String(),
			RefreshSchedule: jobs.DefaultRefreshSchedule,
			SeedDefaults:    true,
		},
		Rewards: RewardsConfig{
			BasePoints: map[string]int64{},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			Prometheus: true,
		},
	}
}

// LoadConfig reads config from $PLUGPOINT_HOME/config.toml, falling back to
// defaults, then applies PLUGPOINT_* environment overrides.
func LoadConfig() (Config, error) {
	return LoadConfigFile(ConfigPath())
}

// LoadConfigFile is LoadConfig with an explicit file path.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return cfg, fmt.Errorf("parse config: unknown keys %v", undecoded)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("stat config: %w", err)
	}

	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("env overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the config for values the daemon cannot start with.
func (c Config) Validate() error {
	if c.API.Port < 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port %d out of range", c.API.Port)
	}
	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.Dir == "" {
			return fmt.Errorf("storage.dir is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("storage.driver %q: want %s or %s", c.Storage.Driver, DriverSQLite, DriverPostgres)
	}
	if s := c.Catalog.MaxStaleness; s != "" {
		if d, err := time.ParseDuration(s); err != nil || d <= 0 {
			return fmt.Errorf("catalog.max_staleness %q: want a positive duration", s)
		}
	}
	if _, err := engagement.NewRewardTable(c.Rewards.BasePoints); err != nil {
		return fmt.Errorf("rewards.base_points: %w", err)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format %q: want text or json", c.Logging.Format)
	}
	return nil
}

// Staleness returns the parsed catalog staleness bound.
func (c CatalogConfig) Staleness() time.Duration {
	return parseDuration(c.MaxStaleness, catalog.DefaultMaxStaleness)
}

// SaveConfig writes the config to $PLUGPOINT_HOME/config.toml.
func SaveConfig(cfg Config) error {
	path := ConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// ConfigPath is the location of the config file.
func ConfigPath() string {
	return filepath.Join(plugpointHome(), "config.toml")
}

// plugpointHome returns the PlugPoint data directory.
func plugpointHome() string {
	if env := os.Getenv("PLUGPOINT_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".plugpoint")
}

// Home is exported for use by other packages.
func Home() string {
	return plugpointHome()
}

// parseDuration parses a duration string, returning a fallback on error.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
