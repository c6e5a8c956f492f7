// Package config loads the application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Request    RequestConfig    `yaml:"request"`
	Log        LogConfig        `yaml:"log"`
	DB         DBConfig         `yaml:"db"`
	Server     ServerConfig     `yaml:"server"`
	Playback   PlaybackConfig   `yaml:"playback"`
	Geocode    GeocodeConfig    `yaml:"geocode"`
	Directions DirectionsConfig `yaml:"directions"`
}

// RequestConfig holds HTTP request settings.
type RequestConfig struct {
	Retries int           `yaml:"retries"`
	Timeout Duration      `yaml:"timeout"`
	Backoff BackoffConfig `yaml:"backoff"`
}

// BackoffConfig holds exponential backoff settings.
type BackoffConfig struct {
	BaseDelay Duration `yaml:"base_delay"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address        string   `yaml:"address"`
	StreamInterval Duration `yaml:"stream_interval"`
}

// PlaybackConfig holds replay clock settings.
type PlaybackConfig struct {
	// BaseStep is the wall time one route point takes at 1x speed.
	BaseStep     Duration `yaml:"base_step"`
	TickInterval Duration `yaml:"tick_interval"`
}

// GeocodeConfig holds reverse-geocoding settings.
type GeocodeConfig struct {
	Key      string   `yaml:"key"` // falls back to GEOCODE_API_KEY
	Cooldown Duration `yaml:"cooldown"`
}

// DirectionsConfig holds route-snapping settings.
type DirectionsConfig struct {
	MaxWaypoints int `yaml:"max_waypoints"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Request: RequestConfig{
			Retries: 3,
			Timeout: Duration(30 * time.Second),
			Backoff: BackoffConfig{
				BaseDelay: Duration(500 * time.Millisecond),
			},
		},
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
		},
		DB: DBConfig{
			Path: "./data/fieldtrack.db",
		},
		Server: ServerConfig{
			Address:        "localhost:1921",
			StreamInterval: Duration(250 * time.Millisecond),
		},
		Playback: PlaybackConfig{
			BaseStep:     Duration(600 * time.Millisecond),
			TickInterval: Duration(50 * time.Millisecond),
		},
		Geocode: GeocodeConfig{
			Cooldown: Duration(4 * time.Second),
		},
		Directions: DirectionsConfig{
			MaxWaypoints: 20,
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, defaults are merged with existing values but the
// file is not rewritten, preserving user formatting and comments.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}

		// Load secrets from env if empty, but never save them to disk
		if cfg.Geocode.Key == "" {
			if key := os.Getenv("GEOCODE_API_KEY"); key != "" {
				cfg.Geocode.Key = key
			}
		}

		return cfg, nil
	}

	// If file does not exist, save defaults
	if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Fieldtrack Configuration
# -----------------------
# Durations accept: ns, us, ms, s, m, h, d (day), w (week)

`)
	data = append(header, data...)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
