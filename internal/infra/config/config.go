// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Playback PlaybackConfig `yaml:"playback"`
	Audio    AudioConfig    `yaml:"audio"`
	Storage  StorageConfig  `yaml:"storage"`
	Spotify  SpotifyConfig  `yaml:"spotify"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr  string `yaml:"addr" default:":8090"`
	Token string `yaml:"token"` // Empty disables authentication
}

// PlaybackConfig represents playback control configuration.
type PlaybackConfig struct {
	DefaultVolume int    `yaml:"default_volume" default:"100" validate:"gte=0,lte=100"`
	EventBuffer   int    `yaml:"event_buffer" default:"64" validate:"gte=1,lte=4096"`
	ShuffleSeed   uint64 `yaml:"shuffle_seed"` // 0 seeds from the runtime
}

// AudioConfig represents audio output configuration.
type AudioConfig struct {
	Backend      string        `yaml:"backend" default:"beep" validate:"oneof=beep null"`
	SampleRate   int           `yaml:"sample_rate" default:"44100" validate:"gte=8000,lte=192000"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" default:"30s"`

	// NullTrackLength is how long the null backend plays each track.
	NullTrackLength time.Duration `yaml:"null_track_length" default:"3m"`
}

// StorageConfig represents preference storage configuration.
type StorageConfig struct {
	Backend       string `yaml:"backend" default:"sqlite" validate:"oneof=sqlite redis memory"`
	SQLitePath    string `yaml:"sqlite_path" default:"player.db"`
	RedisAddr     string `yaml:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db" validate:"gte=0"`
	RedisPrefix   string `yaml:"redis_prefix" default:"player:"`
}

// SpotifyConfig represents Spotify API configuration.
// The catalog is optional; leaving ClientID empty disables it.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret" validate:"required_with=ClientID"`
	RefreshToken string `yaml:"refresh_token" validate:"required_with=ClientID"`
	Market       string `yaml:"market" validate:"omitempty,len=2" default:"JP"`
}

// Enabled reports whether catalog credentials are configured.
func (s SpotifyConfig) Enabled() bool {
	return s.ClientID != ""
}

// LogConfig represents log file rotation configuration.
type LogConfig struct {
	MaxSizeMB  int `yaml:"max_size_mb" default:"10" validate:"gte=1"`
	MaxBackups int `yaml:"max_backups" default:"3" validate:"gte=0"`
	MaxAgeDays int `yaml:"max_age_days" default:"28" validate:"gte=0"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse parses configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("PLAYER_TOKEN"); v != "" {
		c.Server.Token = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REFRESH_TOKEN"); v != "" {
		c.Spotify.RefreshToken = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Storage.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Storage.RedisPassword = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.Storage.RedisDB = db
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	if c.Audio.FetchTimeout <= 0 {
		return errors.Newf("audio.fetch_timeout (%s) must be positive", c.Audio.FetchTimeout)
	}
	return nil
}
