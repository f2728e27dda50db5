package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Server:   ServerConfig{Addr: ":8090"},
		Playback: PlaybackConfig{DefaultVolume: 100, EventBuffer: 64},
		Audio:    AudioConfig{Backend: "null", SampleRate: 44100, FetchTimeout: time.Second},
		Storage:  StorageConfig{Backend: "memory", RedisPrefix: "player:"},
		Spotify:  SpotifyConfig{Market: "JP"},
		Log:      LogConfig{MaxSizeMB: 10, MaxBackups: 3, MaxAgeDays: 28},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "volume above range",
			modify:  func(c *Config) { c.Playback.DefaultVolume = 101 },
			wantErr: true,
			errMsg:  "DefaultVolume",
		},
		{
			name:    "unknown audio backend",
			modify:  func(c *Config) { c.Audio.Backend = "alsa" },
			wantErr: true,
			errMsg:  "Backend",
		},
		{
			name:    "redis without address",
			modify:  func(c *Config) { c.Storage.Backend = "redis" },
			wantErr: true,
			errMsg:  "RedisAddr",
		},
		{
			name: "redis with address",
			modify: func(c *Config) {
				c.Storage.Backend = "redis"
				c.Storage.RedisAddr = "localhost:6379"
			},
			wantErr: false,
		},
		{
			name:    "spotify client id without secret",
			modify:  func(c *Config) { c.Spotify.ClientID = "id" },
			wantErr: true,
			errMsg:  "ClientSecret",
		},
		{
			name:    "invalid market length",
			modify:  func(c *Config) { c.Spotify.Market = "JPN" },
			wantErr: true,
			errMsg:  "Market",
		},
		{
			name:    "non-positive fetch timeout",
			modify:  func(c *Config) { c.Audio.FetchTimeout = 0 },
			wantErr: true,
			errMsg:  "fetch_timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  backend: memory\naudio:\n  backend: \"null\"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8090", cfg.Server.Addr)
	assert.Equal(t, 100, cfg.Playback.DefaultVolume)
	assert.Equal(t, 64, cfg.Playback.EventBuffer)
	assert.Equal(t, 44100, cfg.Audio.SampleRate)
	assert.Equal(t, 30*time.Second, cfg.Audio.FetchTimeout)
	assert.Equal(t, "player:", cfg.Storage.RedisPrefix)
	assert.Equal(t, "JP", cfg.Spotify.Market)
	assert.False(t, cfg.Spotify.Enabled())
	assert.Equal(t, 10, cfg.Log.MaxSizeMB)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PLAYER_TOKEN", "from-env")
	t.Setenv("SPOTIFY_CLIENT_ID", "cid")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "secret")
	t.Setenv("SPOTIFY_REFRESH_TOKEN", "refresh")

	cfg, err := Parse([]byte(`
server:
  token: from-file
storage:
  backend: memory
playback:
  default_volume: 42
  shuffle_seed: 7
`))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Server.Token)
	assert.True(t, cfg.Spotify.Enabled())
	assert.Equal(t, 42, cfg.Playback.DefaultVolume)
	assert.Equal(t, uint64(7), cfg.Playback.ShuffleSeed)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
