// Package connect provides the Connect RPC control service over the player facade.
package connect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/playdeck/internal/app/normalize"
	"github.com/osa030/playdeck/internal/app/notification"
	"github.com/osa030/playdeck/internal/app/playback"
	"github.com/osa030/playdeck/internal/app/preference"
	"github.com/osa030/playdeck/internal/app/queue"
	"github.com/osa030/playdeck/internal/app/session"
	"github.com/osa030/playdeck/internal/app/sleeptimer"
	"github.com/osa030/playdeck/internal/domain/track"
)

// ErrNoCatalog is returned by PlayCollection when no catalog is configured.
var ErrNoCatalog = errors.New("catalog is not configured")

// Catalog fetches album and playlist items in the raw upstream song shape.
type Catalog interface {
	AlbumItems(ctx context.Context, url string) ([]map[string]any, error)
	PlaylistItems(ctx context.Context, url string) ([]map[string]any, error)
}

// PlayerService implements the PlayerService RPC.
type PlayerService struct {
	session *session.Manager
	catalog Catalog
}

// NewPlayerService creates a new PlayerService. catalog may be nil.
func NewPlayerService(session *session.Manager, catalog Catalog) *PlayerService {
	return &PlayerService{
		session: session,
		catalog: catalog,
	}
}

// Handler returns the mount path and the handler serving every procedure.
func (s *PlayerService) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)
	mux := http.NewServeMux()

	unary(mux, ProcSnapshot, s.Snapshot, opts)
	unary(mux, ProcPlayFromQueue, s.PlayFromQueue, opts)
	unary(mux, ProcPlayCustomPlaylist, s.PlayCustomPlaylist, opts)
	unary(mux, ProcPlayCollection, s.PlayCollection, opts)
	unary(mux, ProcPause, s.Pause, opts)
	unary(mux, ProcResume, s.Resume, opts)
	unary(mux, ProcNext, s.Next, opts)
	unary(mux, ProcPrevious, s.Previous, opts)
	unary(mux, ProcSeek, s.Seek, opts)
	unary(mux, ProcSetVolume, s.SetVolume, opts)
	unary(mux, ProcPlayNext, s.PlayNext, opts)
	unary(mux, ProcToggleShuffle, s.ToggleShuffle, opts)
	unary(mux, ProcCycleRepeatMode, s.CycleRepeatMode, opts)
	unary(mux, ProcSetRepeatMode, s.SetRepeatMode, opts)
	unary(mux, ProcQueue, s.Queue, opts)
	unary(mux, ProcSetSleepTimer, s.SetSleepTimer, opts)
	unary(mux, ProcToggleLike, s.ToggleLike, opts)
	unary(mux, ProcCreatePlaylist, s.CreatePlaylist, opts)
	unary(mux, ProcAddSongs, s.AddSongs, opts)
	unary(mux, ProcRemoveSong, s.RemoveSong, opts)
	unary(mux, ProcRenamePlaylist, s.RenamePlaylist, opts)
	unary(mux, ProcDeletePlaylist, s.DeletePlaylist, opts)
	unary(mux, ProcListPlaylists, s.ListPlaylists, opts)
	unary(mux, ProcLikedSongs, s.LikedSongs, opts)
	unary(mux, ProcLikedAlbums, s.LikedAlbums, opts)
	unary(mux, ProcLikedPlaylists, s.LikedPlaylists, opts)
	unary(mux, ProcRecentlyPlayed, s.RecentlyPlayed, opts)
	unary(mux, ProcClearRecent, s.ClearRecentlyPlayed, opts)
	unary(mux, ProcMediaAction, s.MediaAction, opts)

	procedure := procedurePath(ProcSubscribe)
	mux.Handle(procedure, connect.NewServerStreamHandler(procedure, s.Subscribe, opts...))

	return ServicePath, mux
}

// unary registers fn as a unary procedure and maps its errors to connect codes.
func unary[Req, Res any](
	mux *http.ServeMux,
	name string,
	fn func(context.Context, *Req) (*Res, error),
	opts []connect.HandlerOption,
) {
	procedure := procedurePath(name)
	mux.Handle(procedure, connect.NewUnaryHandler(procedure,
		func(ctx context.Context, req *connect.Request[Req]) (*connect.Response[Res], error) {
			res, err := fn(ctx, req.Msg)
			if err != nil {
				zlog.Debug().Err(err).Msgf("rpc: call failed: procedure=%s", name)
				return nil, toConnectError(err)
			}
			return connect.NewResponse(res), nil
		},
		opts...,
	))
}

// Snapshot returns the current player state.
func (s *PlayerService) Snapshot(ctx context.Context, _ *Empty) (*session.Snapshot, error) {
	snap, err := s.session.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// PlayFromQueue normalizes the descriptors and starts a new queue.
// Unplayable queue entries are dropped; an unplayable start track is rejected.
func (s *PlayerService) PlayFromQueue(ctx context.Context, req *PlayFromQueueRequest) (*Empty, error) {
	t, err := normalize.Track(req.Track)
	if err != nil {
		return nil, err
	}
	list, skipped := normalize.Tracks(req.Queue)
	if skipped > 0 {
		zlog.Debug().Msgf("rpc: unplayable queue entries dropped: count=%d", skipped)
	}
	if err := s.session.PlayFromQueue(ctx, t, list); err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

// PlayCustomPlaylist plays a saved playlist.
func (s *PlayerService) PlayCustomPlaylist(ctx context.Context, req *PlayCustomPlaylistRequest) (*Empty, error) {
	if err := s.session.PlayCustomPlaylist(ctx, req.PlaylistID, req.StartID); err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

// PlayCollection fetches an album or playlist from the catalog and plays it.
func (s *PlayerService) PlayCollection(ctx context.Context, req *PlayCollectionRequest) (*Empty, error) {
	if s.catalog == nil {
		return nil, ErrNoCatalog
	}
	kind, err := preference.ParseKind(req.Kind)
	if err != nil {
		return nil, err
	}

	var raws []map[string]any
	switch kind {
	case preference.KindAlbum:
		raws, err = s.catalog.AlbumItems(ctx, req.URL)
	case preference.KindPlaylist:
		raws, err = s.catalog.PlaylistItems(ctx, req.URL)
	default:
		return nil, errors.Wrapf(preference.ErrUnknownKind, "cannot play a %s as a collection", kind)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch %s", kind)
	}

	tracks, skipped := normalize.Tracks(raws)
	if len(tracks) == 0 {
		return nil, errors.Wrapf(queue.ErrQueueEmpty, "%s has no playable tracks", kind)
	}
	zlog.Info().Msgf("rpc: collection fetched: kind=%s, tracks=%d, skipped=%d", kind, len(tracks), skipped)

	start := tracks[0]
	if i := track.IndexOf(tracks, req.StartID); i >= 0 {
		start = tracks[i]
	}
	if err := s.session.PlayFromQueue(ctx, start, tracks); err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

// Pause pauses playback.
func (s *PlayerService) Pause(ctx context.Context, _ *Empty) (*Empty, error) {
	return empty(s.session.Pause(ctx))
}

// Resume resumes playback.
func (s *PlayerService) Resume(ctx context.Context, _ *Empty) (*Empty, error) {
	return empty(s.session.Resume(ctx))
}

// Next skips to the next track.
func (s *PlayerService) Next(ctx context.Context, _ *Empty) (*Empty, error) {
	return empty(s.session.Next(ctx))
}

// Previous goes back one track.
func (s *PlayerService) Previous(ctx context.Context, _ *Empty) (*Empty, error) {
	return empty(s.session.Previous(ctx))
}

// Seek moves the playback position.
func (s *PlayerService) Seek(ctx context.Context, req *SeekRequest) (*Empty, error) {
	return empty(s.session.Seek(ctx, req.Seconds))
}

// SetVolume sets the volume.
func (s *PlayerService) SetVolume(ctx context.Context, req *SetVolumeRequest) (*Empty, error) {
	return empty(s.session.SetVolume(ctx, req.Volume))
}

// PlayNext queues a track right after the current one.
func (s *PlayerService) PlayNext(ctx context.Context, req *PlayNextRequest) (*Empty, error) {
	t, err := normalize.Track(req.Track)
	if err != nil {
		return nil, err
	}
	return empty(s.session.PlayNext(ctx, t))
}

// ToggleShuffle flips shuffle.
func (s *PlayerService) ToggleShuffle(ctx context.Context, _ *Empty) (*ToggleShuffleResponse, error) {
	enabled, err := s.session.ToggleShuffle(ctx)
	if err != nil {
		return nil, err
	}
	return &ToggleShuffleResponse{Enabled: enabled}, nil
}

// CycleRepeatMode advances the repeat mode.
func (s *PlayerService) CycleRepeatMode(ctx context.Context, _ *Empty) (*CycleRepeatModeResponse, error) {
	mode, err := s.session.CycleRepeatMode(ctx)
	if err != nil {
		return nil, err
	}
	return &CycleRepeatModeResponse{Mode: mode.String()}, nil
}

// SetRepeatMode sets the repeat mode by name.
func (s *PlayerService) SetRepeatMode(ctx context.Context, req *SetRepeatModeRequest) (*Empty, error) {
	mode, err := queue.ParseRepeatMode(req.Mode)
	if err != nil {
		return nil, err
	}
	return empty(s.session.SetRepeatMode(ctx, mode))
}

// Queue returns the whole active queue.
func (s *PlayerService) Queue(ctx context.Context, _ *Empty) (*session.QueueView, error) {
	v, err := s.session.Queue(ctx)
	if err != nil {
		return nil, err
	}
	if v.Tracks == nil {
		v.Tracks = []track.Track{}
	}
	return &v, nil
}

// SetSleepTimer sets or cancels the sleep timer.
func (s *PlayerService) SetSleepTimer(ctx context.Context, req *SetSleepTimerRequest) (*Empty, error) {
	if req.Until != nil {
		return empty(s.session.SetSleepTimerUntil(ctx, *req.Until))
	}
	minutes, err := sleeptimer.ParseMinutes(req.Minutes)
	if err != nil {
		return nil, err
	}
	return empty(s.session.SetSleepTimer(ctx, minutes))
}

// ToggleLike flips the liked state of a song, album or playlist.
func (s *PlayerService) ToggleLike(ctx context.Context, req *ToggleLikeRequest) (*ToggleLikeResponse, error) {
	kind, err := preference.ParseKind(req.Kind)
	if err != nil {
		return nil, err
	}
	liked, err := s.session.ToggleLike(ctx, kind, req.Item)
	if err != nil {
		return nil, err
	}
	return &ToggleLikeResponse{Liked: liked}, nil
}

// CreatePlaylist creates a custom playlist from the liked songs.
func (s *PlayerService) CreatePlaylist(ctx context.Context, req *CreatePlaylistRequest) (*PlaylistResponse, error) {
	p, err := s.session.CreateCustomPlaylist(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	return &PlaylistResponse{Playlist: p}, nil
}

// AddSongs adds known songs to a custom playlist.
func (s *PlayerService) AddSongs(ctx context.Context, req *AddSongsRequest) (*AddSongsResponse, error) {
	added, err := s.session.AddSongsToPlaylist(ctx, req.PlaylistID, req.SongIDs)
	if err != nil {
		return nil, err
	}
	return &AddSongsResponse{Added: added}, nil
}

// RemoveSong removes a song from a custom playlist.
func (s *PlayerService) RemoveSong(ctx context.Context, req *RemoveSongRequest) (*RemoveSongResponse, error) {
	removed, err := s.session.RemoveSongFromPlaylist(ctx, req.PlaylistID, req.SongID)
	if err != nil {
		return nil, err
	}
	return &RemoveSongResponse{Removed: removed}, nil
}

// RenamePlaylist renames a custom playlist.
func (s *PlayerService) RenamePlaylist(ctx context.Context, req *RenamePlaylistRequest) (*Empty, error) {
	return empty(s.session.RenameCustomPlaylist(ctx, req.PlaylistID, req.Name))
}

// DeletePlaylist deletes a custom playlist.
func (s *PlayerService) DeletePlaylist(ctx context.Context, req *DeletePlaylistRequest) (*Empty, error) {
	return empty(s.session.DeleteCustomPlaylist(ctx, req.PlaylistID))
}

// ListPlaylists lists the custom playlists.
func (s *PlayerService) ListPlaylists(_ context.Context, _ *Empty) (*ListPlaylistsResponse, error) {
	return &ListPlaylistsResponse{Playlists: s.session.CustomPlaylists()}, nil
}

// LikedSongs lists the liked songs.
func (s *PlayerService) LikedSongs(_ context.Context, _ *Empty) (*TracksResponse, error) {
	return &TracksResponse{Tracks: s.session.LikedSongs()}, nil
}

// LikedAlbums lists the liked albums.
func (s *PlayerService) LikedAlbums(_ context.Context, _ *Empty) (*CollectionsResponse, error) {
	return &CollectionsResponse{Collections: s.session.LikedAlbums()}, nil
}

// LikedPlaylists lists the liked upstream playlists.
func (s *PlayerService) LikedPlaylists(_ context.Context, _ *Empty) (*CollectionsResponse, error) {
	return &CollectionsResponse{Collections: s.session.LikedPlaylists()}, nil
}

// RecentlyPlayed lists recently played tracks.
func (s *PlayerService) RecentlyPlayed(_ context.Context, _ *Empty) (*TracksResponse, error) {
	return &TracksResponse{Tracks: s.session.RecentlyPlayed()}, nil
}

// ClearRecentlyPlayed forgets the recently played tracks.
func (s *PlayerService) ClearRecentlyPlayed(ctx context.Context, _ *Empty) (*Empty, error) {
	return empty(s.session.ClearRecentlyPlayed(ctx))
}

// MediaAction forwards a platform media session action.
func (s *PlayerService) MediaAction(ctx context.Context, req *MediaActionRequest) (*Empty, error) {
	action, err := session.ParseAction(req.Action)
	if err != nil {
		return nil, err
	}
	return empty(s.session.HandleMediaAction(ctx, action, req.SeekSeconds))
}

// Subscribe streams the current snapshot followed by every broadcast.
func (s *PlayerService) Subscribe(
	ctx context.Context,
	_ *connect.Request[Empty],
	stream *connect.ServerStream[SnapshotEvent],
) error {
	subscriptionID, err := s.session.Subscribe(ctx, &snapshotStreamAdapter{stream: stream})
	if err != nil {
		return toConnectError(err)
	}
	defer s.session.Unsubscribe(subscriptionID)

	// Wait for context cancellation or player shutdown
	select {
	case <-ctx.Done():
	case <-s.session.Done():
	}
	return nil
}

// snapshotStreamAdapter adapts connect.ServerStream to notification.Stream.
type snapshotStreamAdapter struct {
	stream *connect.ServerStream[SnapshotEvent]
}

func (a *snapshotStreamAdapter) Send(n *notification.Notification[session.Snapshot]) error {
	return a.stream.Send(&SnapshotEvent{SequenceNo: n.SequenceNo, Snapshot: n.Payload})
}

func empty(err error) (*Empty, error) {
	if err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

// toConnectError maps domain errors to connect codes.
func toConnectError(err error) error {
	var ce *connect.Error
	if errors.As(err, &ce) {
		return ce
	}

	code := connect.CodeInternal
	switch {
	case errors.Is(err, context.Canceled):
		code = connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		code = connect.CodeDeadlineExceeded
	case errors.Is(err, sleeptimer.ErrInvalidInput),
		errors.Is(err, normalize.ErrUnplayable),
		errors.Is(err, normalize.ErrMissingID),
		errors.Is(err, queue.ErrUnplayable),
		errors.Is(err, preference.ErrInvalidName),
		errors.Is(err, preference.ErrUnknownKind),
		errors.Is(err, session.ErrUnknownAction),
		errors.Is(err, queue.ErrUnknownRepeatMode),
		errors.Is(err, playback.ErrInvalidSeek):
		code = connect.CodeInvalidArgument
	case errors.Is(err, preference.ErrPlaylistNotFound),
		errors.Is(err, session.ErrNoPlaylist):
		code = connect.CodeNotFound
	case errors.Is(err, queue.ErrQueueEmpty),
		errors.Is(err, queue.ErrQueueEnded),
		errors.Is(err, playback.ErrNoTrack),
		errors.Is(err, ErrNoCatalog):
		code = connect.CodeFailedPrecondition
	case errors.Is(err, playback.ErrLoadFailure),
		errors.Is(err, session.ErrClosed):
		code = connect.CodeUnavailable
	}
	return connect.NewError(code, err)
}
