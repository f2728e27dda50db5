package connect

import (
	"context"
	"time"

	"connectrpc.com/connect"

	"github.com/osa030/playdeck/internal/app/session"
	"github.com/osa030/playdeck/internal/domain/playlist"
	"github.com/osa030/playdeck/internal/domain/track"
)

// Client calls the PlayerService.
type Client struct {
	httpClient connect.HTTPClient
	baseURL    string
	opts       []connect.ClientOption
}

// NewClient creates a client for the service at baseURL.
func NewClient(httpClient connect.HTTPClient, baseURL, token string, opts ...connect.ClientOption) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		opts: append([]connect.ClientOption{
			connect.WithCodec(jsonCodec{}),
			connect.WithInterceptors(NewTokenInterceptor(token)),
		}, opts...),
	}
}

// call performs one unary call.
func call[Req, Res any](ctx context.Context, c *Client, name string, req *Req) (*Res, error) {
	client := connect.NewClient[Req, Res](c.httpClient, c.baseURL+procedurePath(name), c.opts...)
	resp, err := client.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func (c *Client) Snapshot(ctx context.Context) (*session.Snapshot, error) {
	return call[Empty, session.Snapshot](ctx, c, ProcSnapshot, &Empty{})
}

func (c *Client) PlayFromQueue(ctx context.Context, t map[string]any, list []map[string]any) error {
	_, err := call[PlayFromQueueRequest, Empty](ctx, c, ProcPlayFromQueue, &PlayFromQueueRequest{Track: t, Queue: list})
	return err
}

func (c *Client) PlayCustomPlaylist(ctx context.Context, playlistID, startID string) error {
	_, err := call[PlayCustomPlaylistRequest, Empty](ctx, c, ProcPlayCustomPlaylist,
		&PlayCustomPlaylistRequest{PlaylistID: playlistID, StartID: startID})
	return err
}

func (c *Client) PlayCollection(ctx context.Context, kind, url, startID string) error {
	_, err := call[PlayCollectionRequest, Empty](ctx, c, ProcPlayCollection,
		&PlayCollectionRequest{Kind: kind, URL: url, StartID: startID})
	return err
}

func (c *Client) Pause(ctx context.Context) error {
	_, err := call[Empty, Empty](ctx, c, ProcPause, &Empty{})
	return err
}

func (c *Client) Resume(ctx context.Context) error {
	_, err := call[Empty, Empty](ctx, c, ProcResume, &Empty{})
	return err
}

func (c *Client) Next(ctx context.Context) error {
	_, err := call[Empty, Empty](ctx, c, ProcNext, &Empty{})
	return err
}

func (c *Client) Previous(ctx context.Context) error {
	_, err := call[Empty, Empty](ctx, c, ProcPrevious, &Empty{})
	return err
}

func (c *Client) Seek(ctx context.Context, seconds float64) error {
	_, err := call[SeekRequest, Empty](ctx, c, ProcSeek, &SeekRequest{Seconds: seconds})
	return err
}

func (c *Client) SetVolume(ctx context.Context, volume int) error {
	_, err := call[SetVolumeRequest, Empty](ctx, c, ProcSetVolume, &SetVolumeRequest{Volume: volume})
	return err
}

func (c *Client) PlayNext(ctx context.Context, t map[string]any) error {
	_, err := call[PlayNextRequest, Empty](ctx, c, ProcPlayNext, &PlayNextRequest{Track: t})
	return err
}

func (c *Client) ToggleShuffle(ctx context.Context) (bool, error) {
	resp, err := call[Empty, ToggleShuffleResponse](ctx, c, ProcToggleShuffle, &Empty{})
	if err != nil {
		return false, err
	}
	return resp.Enabled, nil
}

func (c *Client) CycleRepeatMode(ctx context.Context) (string, error) {
	resp, err := call[Empty, CycleRepeatModeResponse](ctx, c, ProcCycleRepeatMode, &Empty{})
	if err != nil {
		return "", err
	}
	return resp.Mode, nil
}

func (c *Client) SetRepeatMode(ctx context.Context, mode string) error {
	_, err := call[SetRepeatModeRequest, Empty](ctx, c, ProcSetRepeatMode, &SetRepeatModeRequest{Mode: mode})
	return err
}

func (c *Client) Queue(ctx context.Context) (*session.QueueView, error) {
	return call[Empty, session.QueueView](ctx, c, ProcQueue, &Empty{})
}

// SetSleepTimer sets the timer from a minutes string; "off" cancels it.
func (c *Client) SetSleepTimer(ctx context.Context, minutes string) error {
	_, err := call[SetSleepTimerRequest, Empty](ctx, c, ProcSetSleepTimer, &SetSleepTimerRequest{Minutes: minutes})
	return err
}

func (c *Client) SetSleepTimerUntil(ctx context.Context, deadline time.Time) error {
	_, err := call[SetSleepTimerRequest, Empty](ctx, c, ProcSetSleepTimer, &SetSleepTimerRequest{Until: &deadline})
	return err
}

func (c *Client) ToggleLike(ctx context.Context, kind string, item map[string]any) (bool, error) {
	resp, err := call[ToggleLikeRequest, ToggleLikeResponse](ctx, c, ProcToggleLike, &ToggleLikeRequest{Kind: kind, Item: item})
	if err != nil {
		return false, err
	}
	return resp.Liked, nil
}

func (c *Client) CreatePlaylist(ctx context.Context, name string) (playlist.CustomPlaylist, error) {
	resp, err := call[CreatePlaylistRequest, PlaylistResponse](ctx, c, ProcCreatePlaylist, &CreatePlaylistRequest{Name: name})
	if err != nil {
		return playlist.CustomPlaylist{}, err
	}
	return resp.Playlist, nil
}

func (c *Client) AddSongs(ctx context.Context, playlistID string, songIDs []string) (int, error) {
	resp, err := call[AddSongsRequest, AddSongsResponse](ctx, c, ProcAddSongs,
		&AddSongsRequest{PlaylistID: playlistID, SongIDs: songIDs})
	if err != nil {
		return 0, err
	}
	return resp.Added, nil
}

func (c *Client) RemoveSong(ctx context.Context, playlistID, songID string) (bool, error) {
	resp, err := call[RemoveSongRequest, RemoveSongResponse](ctx, c, ProcRemoveSong,
		&RemoveSongRequest{PlaylistID: playlistID, SongID: songID})
	if err != nil {
		return false, err
	}
	return resp.Removed, nil
}

func (c *Client) RenamePlaylist(ctx context.Context, playlistID, name string) error {
	_, err := call[RenamePlaylistRequest, Empty](ctx, c, ProcRenamePlaylist,
		&RenamePlaylistRequest{PlaylistID: playlistID, Name: name})
	return err
}

func (c *Client) DeletePlaylist(ctx context.Context, playlistID string) error {
	_, err := call[DeletePlaylistRequest, Empty](ctx, c, ProcDeletePlaylist, &DeletePlaylistRequest{PlaylistID: playlistID})
	return err
}

func (c *Client) ListPlaylists(ctx context.Context) ([]playlist.CustomPlaylist, error) {
	resp, err := call[Empty, ListPlaylistsResponse](ctx, c, ProcListPlaylists, &Empty{})
	if err != nil {
		return nil, err
	}
	return resp.Playlists, nil
}

func (c *Client) LikedSongs(ctx context.Context) ([]track.Track, error) {
	resp, err := call[Empty, TracksResponse](ctx, c, ProcLikedSongs, &Empty{})
	if err != nil {
		return nil, err
	}
	return resp.Tracks, nil
}

func (c *Client) LikedAlbums(ctx context.Context) ([]playlist.Collection, error) {
	resp, err := call[Empty, CollectionsResponse](ctx, c, ProcLikedAlbums, &Empty{})
	if err != nil {
		return nil, err
	}
	return resp.Collections, nil
}

func (c *Client) LikedPlaylists(ctx context.Context) ([]playlist.Collection, error) {
	resp, err := call[Empty, CollectionsResponse](ctx, c, ProcLikedPlaylists, &Empty{})
	if err != nil {
		return nil, err
	}
	return resp.Collections, nil
}

func (c *Client) ClearRecentlyPlayed(ctx context.Context) error {
	_, err := call[Empty, Empty](ctx, c, ProcClearRecent, &Empty{})
	return err
}

func (c *Client) RecentlyPlayed(ctx context.Context) ([]track.Track, error) {
	resp, err := call[Empty, TracksResponse](ctx, c, ProcRecentlyPlayed, &Empty{})
	if err != nil {
		return nil, err
	}
	return resp.Tracks, nil
}

func (c *Client) MediaAction(ctx context.Context, action string, seekSeconds float64) error {
	_, err := call[MediaActionRequest, Empty](ctx, c, ProcMediaAction,
		&MediaActionRequest{Action: action, SeekSeconds: seekSeconds})
	return err
}

// Subscribe calls fn for every snapshot until ctx ends, the stream closes or fn fails.
func (c *Client) Subscribe(ctx context.Context, fn func(*SnapshotEvent) error) error {
	client := connect.NewClient[Empty, SnapshotEvent](c.httpClient, c.baseURL+procedurePath(ProcSubscribe), c.opts...)
	stream, err := client.CallServerStream(ctx, connect.NewRequest(&Empty{}))
	if err != nil {
		return err
	}
	defer stream.Close()

	for stream.Receive() {
		if err := fn(stream.Msg()); err != nil {
			return err
		}
	}
	if err := stream.Err(); err != nil && connect.CodeOf(err) != connect.CodeCanceled {
		return err
	}
	return nil
}
