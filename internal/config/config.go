package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all settings shared by the svg2png and seticon tools.
type Config struct {
	Logger LoggerConfig `yaml:"logger"`
	Render RenderConfig `yaml:"render"`
	Chrome ChromeConfig `yaml:"chrome"`
	Cache  CacheConfig  `yaml:"cache"`
	Icon   IconConfig   `yaml:"icon"`
}

// LoggerConfig configures the structured log file. An empty File disables
// file logging; stderr is reserved for diagnostics.
type LoggerConfig struct {
	File       string `yaml:"file"`
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// RenderConfig controls the rasterization pipeline.
type RenderConfig struct {
	Engine            string        `yaml:"engine"`
	Settle            string        `yaml:"settle"`
	Delay             time.Duration `yaml:"delay"`
	StableInterval    time.Duration `yaml:"stable_interval"`
	StableMaxAttempts int           `yaml:"stable_max_attempts"`
	// Timeout bounds the whole conversion. Zero waits forever.
	Timeout time.Duration `yaml:"timeout"`
}

// ChromeConfig controls how the headless browser is started.
type ChromeConfig struct {
	Path        string   `yaml:"path"`
	NoSandbox   bool     `yaml:"no_sandbox"`
	UserDataDir string   `yaml:"user_data_dir"`
	ExtraFlags  []string `yaml:"extra_flags"`
}

// CacheConfig enables the optional Redis render cache.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	RedisHost string        `yaml:"redis_host"`
	RedisDB   int           `yaml:"redis_db"`
	TTL       time.Duration `yaml:"ttl"`
}

// IconConfig controls how icon images are normalized before assignment.
type IconConfig struct {
	Canvas int `yaml:"canvas"`
}

const (
	EngineChrome = "chrome"
	EngineNative = "native"
	EngineAuto   = "auto"

	SettleFixed  = "fixed"
	SettleStable = "stable"
)

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Logger: LoggerConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Render: RenderConfig{
			Engine:            EngineChrome,
			Settle:            SettleFixed,
			Delay:             100 * time.Millisecond,
			StableInterval:    100 * time.Millisecond,
			StableMaxAttempts: 10,
			Timeout:           30 * time.Second,
		},
		Cache: CacheConfig{
			RedisHost: "127.0.0.1:6379",
			TTL:       24 * time.Hour,
		},
		Icon: IconConfig{Canvas: 1024},
	}
}

// Load reads the file named by CONFIG_PATH. Without CONFIG_PATH the defaults
// are returned. CHROME_BIN fills chrome.path when the file leaves it empty.
func Load() (Config, error) {
	return LoadFrom(os.Getenv("CONFIG_PATH"))
}

// LoadFrom reads and validates the YAML file at path on top of Default().
// An empty path or a missing file yields the defaults.
func LoadFrom(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if cfg.Chrome.Path == "" {
		if v := os.Getenv("CHROME_BIN"); v != "" {
			cfg.Chrome.Path = v
		}
	}

	cfg.Render.Engine = strings.ToLower(strings.TrimSpace(cfg.Render.Engine))
	cfg.Render.Settle = strings.ToLower(strings.TrimSpace(cfg.Render.Settle))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Render.Engine {
	case EngineChrome, EngineNative, EngineAuto:
	default:
		return fmt.Errorf("render.engine must be one of chrome, native, auto (got %q)", c.Render.Engine)
	}
	switch c.Render.Settle {
	case SettleFixed, SettleStable:
	default:
		return fmt.Errorf("render.settle must be fixed or stable (got %q)", c.Render.Settle)
	}
	if c.Render.Delay < 0 {
		return fmt.Errorf("render.delay must not be negative")
	}
	if c.Render.Settle == SettleStable {
		if c.Render.StableInterval <= 0 {
			return fmt.Errorf("render.stable_interval must be positive")
		}
		if c.Render.StableMaxAttempts < 2 {
			return fmt.Errorf("render.stable_max_attempts must be at least 2")
		}
	}
	if c.Render.Timeout < 0 {
		return fmt.Errorf("render.timeout must not be negative")
	}
	if c.Cache.Enabled {
		if c.Cache.RedisHost == "" {
			return fmt.Errorf("cache.redis_host is required when the cache is enabled")
		}
		if c.Cache.TTL <= 0 {
			return fmt.Errorf("cache.ttl must be positive")
		}
	}
	if c.Icon.Canvas < 16 || c.Icon.Canvas > 2048 {
		return fmt.Errorf("icon.canvas must be between 16 and 2048 (got %d)", c.Icon.Canvas)
	}
	return nil
}
