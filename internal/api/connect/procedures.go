package connect

// ServiceName is the fully-qualified name of the player control service.
const ServiceName = "player.v1.PlayerService"

// Procedure names served under ServiceName.
const (
	ProcSnapshot           = "Snapshot"
	ProcSubscribe          = "Subscribe"
	ProcPlayFromQueue      = "PlayFromQueue"
	ProcPlayCustomPlaylist = "PlayCustomPlaylist"
	ProcPlayCollection     = "PlayCollection"
	ProcPause              = "Pause"
	ProcResume             = "Resume"
	ProcNext               = "Next"
	ProcPrevious           = "Previous"
	ProcSeek               = "Seek"
	ProcSetVolume          = "SetVolume"
	ProcPlayNext           = "PlayNext"
	ProcToggleShuffle      = "ToggleShuffle"
	ProcCycleRepeatMode    = "CycleRepeatMode"
	ProcSetRepeatMode      = "SetRepeatMode"
	ProcQueue              = "Queue"
	ProcSetSleepTimer      = "SetSleepTimer"
	ProcToggleLike         = "ToggleLike"
	ProcCreatePlaylist     = "CreatePlaylist"
	ProcAddSongs           = "AddSongs"
	ProcRemoveSong         = "RemoveSong"
	ProcRenamePlaylist     = "RenamePlaylist"
	ProcDeletePlaylist     = "DeletePlaylist"
	ProcListPlaylists      = "ListPlaylists"
	ProcLikedSongs         = "LikedSongs"
	ProcLikedAlbums        = "LikedAlbums"
	ProcLikedPlaylists     = "LikedPlaylists"
	ProcRecentlyPlayed     = "RecentlyPlayed"
	ProcClearRecent        = "ClearRecentlyPlayed"
	ProcMediaAction        = "MediaAction"
)

// ServicePath is the mount point of the service.
const ServicePath = "/" + ServiceName + "/"

func procedurePath(name string) string {
	return ServicePath + name
}
