// Package main provides the player daemon entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/playdeck/internal/api/connect"
	"github.com/osa030/playdeck/internal/app/preference"
	"github.com/osa030/playdeck/internal/app/session"
	"github.com/osa030/playdeck/internal/infra/audio"
	"github.com/osa030/playdeck/internal/infra/config"
	"github.com/osa030/playdeck/internal/infra/kv"
	"github.com/osa030/playdeck/internal/infra/logger"
	"github.com/osa030/playdeck/internal/infra/spotify"
)

var (
	app        = kingpin.New("playdeck", "playdeck music player daemon")
	configPath = app.Flag("config", "Path to config file").Default("config/player.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	// Load config before the logger so rotation settings apply
	cfg, cfgErr := config.Load(*configPath)

	// Initialize logger
	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
		loggerConfig.File = *logfile
	}
	if cfg != nil {
		loggerConfig.MaxSizeMB = cfg.Log.MaxSizeMB
		loggerConfig.MaxBackups = cfg.Log.MaxBackups
		loggerConfig.MaxAgeDays = cfg.Log.MaxAgeDays
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	if cfgErr != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", cfgErr)
	}

	// Run server (defer ensures cleanup runs)
	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Player error: %v", err)
		os.Exit(1)
	}
}

// run executes the main daemon logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx := context.Background()

	// Open preference storage
	store, err := kv.Open(ctx, kv.Options{
		Backend:       cfg.Storage.Backend,
		SQLitePath:    cfg.Storage.SQLitePath,
		RedisAddr:     cfg.Storage.RedisAddr,
		RedisPassword: cfg.Storage.RedisPassword,
		RedisDB:       cfg.Storage.RedisDB,
		RedisPrefix:   cfg.Storage.RedisPrefix,
	})
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			zlog.Warn().Err(err).Msg("Failed to close storage")
		}
	}()

	prefs, err := preference.Load(ctx, store)
	if err != nil {
		return fmt.Errorf("failed to load preferences: %w", err)
	}

	// Create audio backend
	backend, err := audio.New(audio.Config{
		Backend:         cfg.Audio.Backend,
		SampleRate:      cfg.Audio.SampleRate,
		FetchTimeout:    cfg.Audio.FetchTimeout,
		NullTrackLength: cfg.Audio.NullTrackLength,
	})
	if err != nil {
		return fmt.Errorf("failed to create audio backend: %w", err)
	}

	// Create optional catalog
	var catalog apiconnect.Catalog
	if cfg.Spotify.Enabled() {
		spotifyClient, err := spotify.New(ctx, spotify.Config{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			RefreshToken: cfg.Spotify.RefreshToken,
			Market:       cfg.Spotify.Market,
		})
		if err != nil {
			return fmt.Errorf("failed to create Spotify client: %w", err)
		}
		catalog = spotifyClient
	} else {
		zlog.Info().Msg("Spotify not configured, collection playback disabled")
	}

	// Create player facade
	player := session.NewManager(session.Config{
		DefaultVolume: cfg.Playback.DefaultVolume,
		EventBuffer:   cfg.Playback.EventBuffer,
		ShuffleSeed:   cfg.Playback.ShuffleSeed,
	}, backend, prefs, session.WithNowPlaying(&session.LogSink{}))

	// Create RPC service
	playerService := apiconnect.NewPlayerService(player, catalog)
	if cfg.Server.Token == "" {
		zlog.Warn().Msg("No control token configured, RPC authentication disabled")
	}
	path, handler := playerService.Handler(
		connect.WithInterceptors(apiconnect.NewAuthInterceptor(cfg.Server.Token)),
	)

	mux := http.NewServeMux()
	mux.Handle(path, handler)

	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: h2c.NewHandler(mux, &http2.Server{}),
	}

	// Channel to capture server startup errors
	serverErrCh := make(chan error, 1)

	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	// Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		player.Close()
		return fmt.Errorf("server error: %w", err)
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Close the player first to terminate active streams
	player.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Player stopped")
	return nil
}
