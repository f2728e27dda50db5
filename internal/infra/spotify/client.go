// Package spotify provides an optional catalog backed by the Spotify API.
package spotify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// Page sizes accepted by the Spotify API.
const (
	albumPageSize    = 50
	playlistPageSize = 100
)

// Client is a Spotify API client.
type Client struct {
	client     *spotify.Client
	market     string
	maxRetries int
	retryDelay time.Duration
}

// Config represents Spotify client configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	Market       string
}

// New creates a new Spotify client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, errors.New("spotify credentials are required")
	}

	auth := spotifyauth.New(
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
		spotifyauth.WithScopes(spotifyauth.ScopePlaylistReadPrivate),
	)

	// Get HTTP client with auto-refresh capability
	httpClient := auth.Client(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})

	market := cfg.Market
	if market == "" {
		market = "JP"
	}

	return &Client{
		client:     spotify.New(httpClient),
		market:     market,
		maxRetries: 3,
		retryDelay: time.Second,
	}, nil
}

// AlbumItems returns every track of an album in the upstream song shape.
func (c *Client) AlbumItems(ctx context.Context, albumURL string) ([]map[string]any, error) {
	albumID := extractID(albumURL, "album")
	if albumID == "" {
		return nil, errors.New("invalid album URL")
	}

	var album *spotify.FullAlbum
	err := c.retry(ctx, func() error {
		a, err := c.client.GetAlbum(ctx, spotify.ID(albumID), spotify.Market(c.market))
		if err != nil {
			return err
		}
		album = a
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get album")
	}

	var items []map[string]any
	offset := 0
	for {
		var page *spotify.SimpleTrackPage
		err := c.retry(ctx, func() error {
			p, err := c.client.GetAlbumTracks(ctx, spotify.ID(albumID),
				spotify.Limit(albumPageSize),
				spotify.Offset(offset),
				spotify.Market(c.market),
			)
			if err != nil {
				return err
			}
			page = p
			return nil
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to get album tracks")
		}

		for _, t := range page.Tracks {
			items = append(items, songItem(t, album.Images))
		}

		if len(page.Tracks) < albumPageSize {
			break
		}
		offset += albumPageSize
	}

	return items, nil
}

// PlaylistItems returns every track of a playlist in the upstream song shape.
// Episodes are skipped.
func (c *Client) PlaylistItems(ctx context.Context, playlistURL string) ([]map[string]any, error) {
	playlistID := extractID(playlistURL, "playlist")
	if playlistID == "" {
		return nil, errors.New("invalid playlist URL")
	}

	var items []map[string]any
	offset := 0
	for {
		var page *spotify.PlaylistItemPage
		err := c.retry(ctx, func() error {
			p, err := c.client.GetPlaylistItems(ctx, spotify.ID(playlistID),
				spotify.Limit(playlistPageSize),
				spotify.Offset(offset),
				spotify.Market(c.market),
			)
			if err != nil {
				return err
			}
			page = p
			return nil
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to get playlist items")
		}

		for _, item := range page.Items {
			if t := item.Track.Track; t != nil && t.ID != "" {
				items = append(items, songItem(t.SimpleTrack, t.Album.Images))
			}
		}

		if len(page.Items) < playlistPageSize {
			break
		}
		offset += playlistPageSize
	}

	return items, nil
}

// songItem maps a track onto the upstream song object the normalizer reads.
// The 30 second preview is the only audio Spotify exposes.
func songItem(t spotify.SimpleTrack, images []spotify.Image) map[string]any {
	artists := make([]any, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, map[string]any{"name": a.Name})
	}

	// Spotify lists images widest first; the normalizer takes the last entry
	image := make([]any, 0, len(images))
	for i := len(images) - 1; i >= 0; i-- {
		image = append(image, map[string]any{
			"quality": imageQuality(images[i]),
			"url":     images[i].URL,
		})
	}

	return map[string]any{
		"id":      string(t.ID),
		"name":    t.Name,
		"artists": map[string]any{"primary": artists},
		"image":   image,
		// Numeric milliseconds
		"duration": float64(t.Duration) / 1000,
		"audio":    t.PreviewURL,
	}
}

func imageQuality(img spotify.Image) string {
	if img.Width == 0 || img.Height == 0 {
		return ""
	}
	return fmt.Sprintf("%dx%d", int(img.Width), int(img.Height))
}

// retry retries an operation with linear backoff.
func (c *Client) retry(ctx context.Context, fn func() error) error {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}

		if i < c.maxRetries-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay * time.Duration(i+1)):
			}
		}
	}
	return errors.Wrap(lastErr, "max retries exceeded")
}

// isRetryable checks if an error is retryable.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		return apiErr.Status == 429 || apiErr.Status >= 500
	}
	// Rate limit errors and server errors are retryable
	errStr := err.Error()
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504")
}

// extractID extracts the id of kind from a Spotify URL or URI.
// Any other input is returned trimmed, as a bare id.
func extractID(input, kind string) string {
	input = strings.TrimSpace(input)
	// Handle Spotify URI format: spotify:<kind>:ID
	if prefix := "spotify:" + kind + ":"; strings.HasPrefix(input, prefix) {
		return strings.TrimPrefix(input, prefix)
	}

	// Handle URL format: https://open.spotify.com/<kind>/ID or https://open.spotify.com/intl-XX/<kind>/ID
	segment := "/" + kind + "/"
	if strings.Contains(input, "open.spotify.com") && strings.Contains(input, segment) {
		parts := strings.Split(input, segment)
		// Remove query parameters and trailing slashes
		id := strings.Split(parts[len(parts)-1], "?")[0]
		return strings.TrimRight(id, "/")
	}

	return input
}
