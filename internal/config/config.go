package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type AppConfig struct {
	Port          int           `toml:"port"`
	Endpoint      string        `toml:"endpoint"`
	SessionID     string        `toml:"session_id"`
	RecvTimeout   time.Duration `toml:"recv_timeout"`
	Debug         bool          `toml:"debug"`
	DebugRate     float64       `toml:"debug_rate"`
	DebugDropRate float64       `toml:"debug_drop_rate"`
	UIRate        time.Duration `toml:"ui_rate"`
	StatsEvery    time.Duration `toml:"stats_every"`
	RawLogEnabled bool          `toml:"raw_log"`
	RawLogDir     string        `toml:"raw_log_dir"`
	LogEvery      uint32        `toml:"log_every"`
	LogLevel      string        `toml:"log_level"`
	LogJSON       bool          `toml:"log_json"`
	Layout        LayoutConfig  `toml:"layout"`
}

type LayoutConfig struct {
	GlobalRows int `toml:"global_rows"`
	Arity      int `toml:"arity"`
}

func Default() AppConfig {
	return AppConfig{
		Port:          8888,
		Endpoint:      "tcp://127.0.0.1:7000",
		RecvTimeout:   250 * time.Millisecond,
		DebugRate:     30,
		DebugDropRate: 0.1,
		UIRate:        1 * time.Second,
		StatsEvery:    30 * time.Second,
		RawLogDir:     "rawlog",
		LogEvery:      1,
		LogLevel:      "info",
		Layout: LayoutConfig{
			GlobalRows: 21,
		},
	}
}

// Load reads a TOML file over the defaults. Keys missing from the file keep
// their default value.
func Load(path string) (AppConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return AppConfig{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func Validate(cfg AppConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("config port out of range: %d", cfg.Port)
	}
	if !cfg.Debug && strings.TrimSpace(cfg.Endpoint) == "" {
		return fmt.Errorf("config missing endpoint")
	}
	if cfg.RecvTimeout <= 0 {
		return fmt.Errorf("config recv_timeout must be positive")
	}
	if cfg.DebugDropRate < 0 || cfg.DebugDropRate > 1 {
		return fmt.Errorf("config debug_drop_rate must be within [0, 1]")
	}
	if cfg.Layout.GlobalRows < 1 {
		return fmt.Errorf("config layout.global_rows must be positive")
	}
	if cfg.Layout.Arity < 0 {
		return fmt.Errorf("config layout.arity must not be negative")
	}
	return nil
}
