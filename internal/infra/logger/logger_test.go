package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.input))
		})
	}
}

func TestInit_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "player.log")
	require.NoError(t, Init(Config{Output: "file", Level: "info", File: path, MaxSizeMB: 1}))

	zlog.Info().Msg("logger: test line")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"logger: test line"`)
}

func TestInit_FileOutputRequiresPath(t *testing.T) {
	assert.Error(t, Init(Config{Output: "file"}))
}

func TestShortCaller(t *testing.T) {
	tests := []struct {
		file     string
		expected string
	}{
		{"/src/internal/app/session/manager.go", "session/manager.go:12"},
		{"main.go", "main.go:12"},
		{"/main.go", "main.go:12"},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			assert.Equal(t, tt.expected, shortCaller(0, tt.file, 12))
		})
	}
}
