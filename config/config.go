package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Environment overrides, applied after the config file
const (
	EnvConfigFile    = "GARDEN_CONFIG"
	EnvHeight        = "GARDEN_HEIGHT"
	EnvWidth         = "GARDEN_WIDTH"
	EnvTick          = "GARDEN_TICK"
	EnvStorageType   = "GARDEN_STORAGE"
	EnvStorageFile   = "GARDEN_DB_FILE"
	EnvDatabaseURL   = "DATABASE_URL"
	EnvSpectatorAddr = "GARDEN_SPECTATOR_ADDR"
	EnvLogLevel      = "GARDEN_LOG_LEVEL"
	EnvLogFile       = "GARDEN_LOG_FILE"
)

// Storage backends
const (
	StorageNone     = "none"
	StorageJSON     = "json"
	StoragePostgres = "postgres"
)

// Duration lets TOML values like "1s" or "250ms" decode into time.Duration
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the full runtime configuration
type Config struct {
	Garden    GardenConfig    `toml:"garden"`
	Storage   StorageConfig   `toml:"storage"`
	Spectator SpectatorConfig `toml:"spectator"`
	Log       LogConfig       `toml:"log"`
}

// GardenConfig sizes and paces the simulation. Zero height or width means
// the size is taken from the terminal.
type GardenConfig struct {
	Height     int      `toml:"height"`
	Width      int      `toml:"width"`
	Tick       Duration `toml:"tick"`
	PlantEvery Duration `toml:"plant_every"`
	FrameEvery Duration `toml:"frame_every"`
	Seed       int64    `toml:"seed"`
}

// StorageConfig selects the harvest ledger backend
type StorageConfig struct {
	Type string `toml:"type"`
	File string `toml:"file"`
	DSN  string `toml:"dsn"`
}

// SpectatorConfig controls the websocket spectator feed
type SpectatorConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

// LogConfig controls the application logger
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
	JSON  bool   `toml:"json"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	return Config{
		Garden: GardenConfig{
			Tick:       Duration{time.Second},
			PlantEvery: Duration{5 * time.Second},
			FrameEvery: Duration{100 * time.Millisecond},
		},
		Storage: StorageConfig{
			Type: StorageJSON,
			File: "harvests.json",
			DSN:  "host=localhost user=garden password=garden dbname=flower_garden sslmode=disable",
		},
		Spectator: SpectatorConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level: "info",
			File:  "garden.log",
		},
	}
}

// Load reads the TOML file at path on top of the defaults, applies
// environment overrides and validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable
func Validate(cfg Config) error {
	if cfg.Garden.Height < 0 || cfg.Garden.Width < 0 {
		return fmt.Errorf("garden size must not be negative (height=%d width=%d)", cfg.Garden.Height, cfg.Garden.Width)
	}
	if cfg.Garden.Tick.Duration <= 0 {
		return fmt.Errorf("garden tick must be positive")
	}
	if cfg.Garden.PlantEvery.Duration <= 0 {
		return fmt.Errorf("garden plant_every must be positive")
	}
	if cfg.Garden.FrameEvery.Duration <= 0 {
		return fmt.Errorf("garden frame_every must be positive")
	}
	switch cfg.Storage.Type {
	case StorageNone:
	case StorageJSON:
		if strings.TrimSpace(cfg.Storage.File) == "" {
			return fmt.Errorf("json storage requires a file")
		}
	case StoragePostgres:
		if strings.TrimSpace(cfg.Storage.DSN) == "" {
			return fmt.Errorf("postgres storage requires a dsn")
		}
	default:
		return fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
	if cfg.Spectator.Enabled && strings.TrimSpace(cfg.Spectator.Addr) == "" {
		return fmt.Errorf("spectator feed requires an addr")
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	if v, ok := lookup(EnvHeight); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvHeight, err)
		}
		cfg.Garden.Height = n
	}
	if v, ok := lookup(EnvWidth); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvWidth, err)
		}
		cfg.Garden.Width = n
	}
	if v, ok := lookup(EnvTick); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvTick, err)
		}
		cfg.Garden.Tick = Duration{d}
	}
	if v, ok := lookup(EnvStorageType); ok {
		cfg.Storage.Type = strings.ToLower(v)
	}
	if v, ok := lookup(EnvStorageFile); ok {
		cfg.Storage.File = v
	}
	if v, ok := lookup(EnvDatabaseURL); ok {
		cfg.Storage.DSN = v
	}
	if v, ok := lookup(EnvSpectatorAddr); ok {
		cfg.Spectator.Enabled = true
		cfg.Spectator.Addr = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		cfg.Log.Level = v
	}
	if v, ok := lookup(EnvLogFile); ok {
		cfg.Log.File = v
	}
	return nil
}

func lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}
