// Package main provides the player control CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/playdeck/internal/api/connect"
	"github.com/osa030/playdeck/internal/app/session"
	"github.com/osa030/playdeck/internal/domain/playlist"
	"github.com/osa030/playdeck/internal/domain/track"
)

var (
	app    = kingpin.New("playerctl", "playdeck player control client")
	server = app.Flag("server", "Server address").Default("http://localhost:8090").String()
	token  = app.Flag("token", "Control token (or set PLAYER_TOKEN env)").Envar("PLAYER_TOKEN").String()

	// status command
	statusCmd = app.Command("status", "Show the player state")

	// watch command
	watchCmd = app.Command("watch", "Stream player state changes")

	// transport commands
	playCmd    = app.Command("play", "Resume playback").Alias("resume")
	pauseCmd   = app.Command("pause", "Pause playback")
	nextCmd    = app.Command("next", "Skip to the next track")
	prevCmd    = app.Command("prev", "Go back to the previous track").Alias("previous")
	seekCmd    = app.Command("seek", "Seek to a position")
	seekPos    = seekCmd.Arg("seconds", "Position in seconds").Required().Float64()
	volumeCmd  = app.Command("volume", "Set the volume")
	volumeArg  = volumeCmd.Arg("percent", "Volume 0-100").Required().Int()
	shuffleCmd = app.Command("shuffle", "Toggle shuffle")
	repeatCmd  = app.Command("repeat", "Set or cycle the repeat mode")
	repeatArg  = repeatCmd.Arg("mode", "none, all or one; cycles when omitted").Enum("none", "all", "one")

	// sleep command
	sleepCmd   = app.Command("sleep", "Set the sleep timer")
	sleepArg   = sleepCmd.Arg("minutes", "Minutes, a duration like 1h30m, or off").Required().String()
	sleepUntil = app.Command("sleep-until", "Pause at a wall-clock time")
	untilArg   = sleepUntil.Arg("time", "Time of day as HH:MM").Required().String()

	// media session command
	mediaCmd     = app.Command("media", "Send a media session action")
	mediaAction  = mediaCmd.Arg("action", "play, pause, previoustrack, nexttrack or seekto").Required().String()
	mediaSeconds = mediaCmd.Arg("seconds", "Position for seekto").Float64()

	// queue commands
	showQueueCmd  = app.Command("queue", "Show the whole active queue")
	queueCmd      = app.Command("play-queue", "Play a queue from a JSON file of {track, queue}")
	queueFile     = queueCmd.Arg("file", "JSON file").Required().ExistingFile()
	playNextCmd   = app.Command("play-next", "Queue a track after the current one")
	playNextJSON  = playNextCmd.Arg("track", "Track descriptor as JSON").Required().String()
	collectionCmd = app.Command("play-collection", "Play an album or playlist from the catalog")
	collKind      = collectionCmd.Arg("kind", "album or playlist").Required().Enum("album", "playlist")
	collURL       = collectionCmd.Arg("url", "Catalog URL or URI").Required().String()
	collStart     = collectionCmd.Flag("start", "Track ID to start from").String()

	// like commands
	likeCmd   = app.Command("like", "Toggle the liked state of an item")
	likeKind  = likeCmd.Arg("kind", "song, album or playlist").Required().Enum("song", "album", "playlist")
	likeJSON  = likeCmd.Arg("item", "Item descriptor as JSON").Required().String()
	likedCmd  = app.Command("liked", "List liked songs")
	albumsCmd = app.Command("liked-albums", "List liked albums")
	likedPls  = app.Command("liked-playlists", "List liked playlists")

	// recent command
	recentCmd      = app.Command("recent", "List recently played tracks")
	recentClearCmd = app.Command("recent-clear", "Forget the recently played tracks")

	// custom playlist commands
	playlistsCmd      = app.Command("playlists", "List custom playlists").Alias("list")
	playlistPlayCmd   = app.Command("playlist-play", "Play a custom playlist")
	playlistPlayID    = playlistPlayCmd.Arg("playlist-id", "Playlist ID").Required().String()
	playlistPlayStart = playlistPlayCmd.Flag("start", "Song ID to start from").String()
	playlistNewCmd    = app.Command("playlist-create", "Create a playlist from the liked songs")
	playlistNewName   = playlistNewCmd.Arg("name", "Playlist name").Required().String()
	playlistAddCmd    = app.Command("playlist-add", "Add songs to a playlist")
	playlistAddID     = playlistAddCmd.Arg("playlist-id", "Playlist ID").Required().String()
	playlistAddSongs  = playlistAddCmd.Arg("song-ids", "Song IDs").Required().Strings()
	playlistRmCmd     = app.Command("playlist-remove", "Remove a song from a playlist")
	playlistRmID      = playlistRmCmd.Arg("playlist-id", "Playlist ID").Required().String()
	playlistRmSong    = playlistRmCmd.Arg("song-id", "Song ID").Required().String()
	playlistRenameCmd = app.Command("playlist-rename", "Rename a playlist")
	playlistRenameID  = playlistRenameCmd.Arg("playlist-id", "Playlist ID").Required().String()
	playlistRenameTo  = playlistRenameCmd.Arg("name", "New name").Required().String()
	playlistDelCmd    = app.Command("playlist-delete", "Delete a playlist")
	playlistDelID     = playlistDelCmd.Arg("playlist-id", "Playlist ID").Required().String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	client := apiconnect.NewClient(http.DefaultClient, *server, *token)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch command {
	case statusCmd.FullCommand():
		err = status(ctx, client)
	case watchCmd.FullCommand():
		err = watch(ctx, client)
	case playCmd.FullCommand():
		err = done(client.Resume(ctx), "Playback resumed")
	case pauseCmd.FullCommand():
		err = done(client.Pause(ctx), "Playback paused")
	case nextCmd.FullCommand():
		err = done(client.Next(ctx), "Skipped to next track")
	case prevCmd.FullCommand():
		err = done(client.Previous(ctx), "Went back to previous track")
	case seekCmd.FullCommand():
		err = done(client.Seek(ctx, *seekPos), "Seeked to "+clock(*seekPos))
	case volumeCmd.FullCommand():
		err = done(client.SetVolume(ctx, *volumeArg), fmt.Sprintf("Volume set to %d", *volumeArg))
	case shuffleCmd.FullCommand():
		err = shuffle(ctx, client)
	case repeatCmd.FullCommand():
		err = repeat(ctx, client, *repeatArg)
	case sleepCmd.FullCommand():
		err = done(client.SetSleepTimer(ctx, *sleepArg), "Sleep timer updated")
	case sleepUntil.FullCommand():
		err = sleepAt(ctx, client, *untilArg)
	case mediaCmd.FullCommand():
		err = done(client.MediaAction(ctx, *mediaAction, *mediaSeconds), "Action sent")
	case showQueueCmd.FullCommand():
		err = showQueue(ctx, client)
	case queueCmd.FullCommand():
		err = playQueue(ctx, client, *queueFile)
	case playNextCmd.FullCommand():
		err = playNext(ctx, client, *playNextJSON)
	case collectionCmd.FullCommand():
		err = done(client.PlayCollection(ctx, *collKind, *collURL, *collStart), "Playing "+*collKind)
	case likeCmd.FullCommand():
		err = like(ctx, client, *likeKind, *likeJSON)
	case likedCmd.FullCommand():
		err = listTracks(client.LikedSongs(ctx))
	case albumsCmd.FullCommand():
		err = listCollections(client.LikedAlbums(ctx))
	case likedPls.FullCommand():
		err = listCollections(client.LikedPlaylists(ctx))
	case recentCmd.FullCommand():
		err = listTracks(client.RecentlyPlayed(ctx))
	case recentClearCmd.FullCommand():
		err = done(client.ClearRecentlyPlayed(ctx), "Recently played cleared")
	case playlistsCmd.FullCommand():
		err = playlists(ctx, client)
	case playlistPlayCmd.FullCommand():
		err = done(client.PlayCustomPlaylist(ctx, *playlistPlayID, *playlistPlayStart), "Playing playlist")
	case playlistNewCmd.FullCommand():
		err = createPlaylist(ctx, client, *playlistNewName)
	case playlistAddCmd.FullCommand():
		err = addSongs(ctx, client, *playlistAddID, *playlistAddSongs)
	case playlistRmCmd.FullCommand():
		err = removeSong(ctx, client, *playlistRmID, *playlistRmSong)
	case playlistRenameCmd.FullCommand():
		err = done(client.RenamePlaylist(ctx, *playlistRenameID, *playlistRenameTo), "Playlist renamed")
	case playlistDelCmd.FullCommand():
		err = done(client.DeletePlaylist(ctx, *playlistDelID), "Playlist deleted")
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func done(err error, message string) error {
	if err != nil {
		return err
	}
	fmt.Println(message)
	return nil
}

func status(ctx context.Context, client *apiconnect.Client) error {
	s, err := client.Snapshot(ctx)
	if err != nil {
		return err
	}
	printSnapshot(s)
	return nil
}

func watch(ctx context.Context, client *apiconnect.Client) error {
	var last string
	return client.Subscribe(ctx, func(ev *apiconnect.SnapshotEvent) error {
		// Position ticks are folded into one line
		line := summary(&ev.Snapshot)
		if line == last {
			return nil
		}
		last = line
		fmt.Printf("[%d] %s\n", ev.SequenceNo, line)
		return nil
	})
}

func printSnapshot(s *session.Snapshot) {
	fmt.Println("\n=== PLAYER STATUS ===")
	fmt.Printf("Status: %s\n", s.Status)
	fmt.Printf("Volume: %d\n", s.Volume)
	fmt.Printf("Shuffle: %v\n", s.ShuffleEnabled)
	fmt.Printf("Repeat: %s\n", s.RepeatMode)
	fmt.Printf("Queue Length: %s\n", humanize.Comma(int64(s.QueueLength)))
	fmt.Printf("Sleep Timer: %s\n", sleepDescription(s))
	if s.Error != "" {
		fmt.Printf("Error: %s\n", s.Error)
	}

	if s.CurrentTrack != nil {
		fmt.Println("\nCurrently Playing:")
		if s.CurrentLiked {
			fmt.Println("  Liked: yes")
		}
		fmt.Printf("  Track ID: %s\n", s.CurrentTrack.ID)
		fmt.Printf("  Title: %s\n", s.CurrentTrack.Title)
		fmt.Printf("  Artist: %s\n", s.CurrentTrack.Artist())
		fmt.Printf("  Position: %s / %s\n", clock(s.PositionSeconds), clock(s.DurationSeconds))
	} else {
		fmt.Println("\nNo track currently playing")
	}

	if len(s.QueueUpNext) > 0 {
		fmt.Println("\nUp Next:")
		for i := range s.QueueUpNext {
			t := &s.QueueUpNext[i]
			fmt.Printf("  %2d. %s - %s (%s)\n", i+1, t.Title, t.Artist(), clock(t.DurationSeconds))
		}
	}
	fmt.Println()
}

func summary(s *session.Snapshot) string {
	if s.CurrentTrack == nil {
		return s.Status
	}
	return fmt.Sprintf("%s: %s - %s", s.Status, s.CurrentTrack.Title, s.CurrentTrack.Artist())
}

func sleepDescription(s *session.Snapshot) string {
	if s.SleepTimerMinutes == nil {
		return "off"
	}
	if s.SleepTimerDeadline != nil {
		return fmt.Sprintf("%d minutes, pauses %s", *s.SleepTimerMinutes, humanize.Time(*s.SleepTimerDeadline))
	}
	return fmt.Sprintf("%d minutes", *s.SleepTimerMinutes)
}

func shuffle(ctx context.Context, client *apiconnect.Client) error {
	enabled, err := client.ToggleShuffle(ctx)
	if err != nil {
		return err
	}
	if enabled {
		fmt.Println("Shuffle on")
	} else {
		fmt.Println("Shuffle off")
	}
	return nil
}

func repeat(ctx context.Context, client *apiconnect.Client, mode string) error {
	if mode != "" {
		return done(client.SetRepeatMode(ctx, mode), "Repeat mode: "+mode)
	}
	mode, err := client.CycleRepeatMode(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Repeat mode: %s\n", mode)
	return nil
}

func showQueue(ctx context.Context, client *apiconnect.Client) error {
	v, err := client.Queue(ctx)
	if err != nil {
		return err
	}
	if len(v.Tracks) == 0 {
		fmt.Println("Queue is empty")
		return nil
	}
	for i := range v.Tracks {
		t := &v.Tracks[i]
		marker := "  "
		if i == v.Position {
			marker = "> "
		}
		fmt.Printf("%s%2d. %s - %s (%s)\n", marker, i+1, t.Title, t.Artist(), clock(t.DurationSeconds))
	}
	return nil
}

func sleepAt(ctx context.Context, client *apiconnect.Client, clockTime string) error {
	at, err := time.ParseInLocation("15:04", clockTime, time.Local)
	if err != nil {
		return fmt.Errorf("invalid time %q: %w", clockTime, err)
	}
	now := time.Now()
	deadline := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, time.Local)
	if !deadline.After(now) {
		deadline = deadline.AddDate(0, 0, 1)
	}
	if err := client.SetSleepTimerUntil(ctx, deadline); err != nil {
		return err
	}
	fmt.Printf("Pausing %s\n", humanize.Time(deadline))
	return nil
}

type queueFileBody struct {
	Track map[string]any   `json:"track"`
	Queue []map[string]any `json:"queue"`
}

func playQueue(ctx context.Context, client *apiconnect.Client, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var body queueFileBody
	if err := json.Unmarshal(data, &body); err != nil {
		return fmt.Errorf("invalid queue file: %w", err)
	}
	if body.Track == nil && len(body.Queue) > 0 {
		body.Track = body.Queue[0]
	}
	return done(client.PlayFromQueue(ctx, body.Track, body.Queue),
		fmt.Sprintf("Playing queue of %s tracks", humanize.Comma(int64(len(body.Queue)))))
}

func playNext(ctx context.Context, client *apiconnect.Client, raw string) error {
	item, err := parseItem(raw)
	if err != nil {
		return err
	}
	return done(client.PlayNext(ctx, item), "Queued to play next")
}

func like(ctx context.Context, client *apiconnect.Client, kind, raw string) error {
	item, err := parseItem(raw)
	if err != nil {
		return err
	}
	liked, err := client.ToggleLike(ctx, kind, item)
	if err != nil {
		return err
	}
	if liked {
		fmt.Printf("Liked %s\n", kind)
	} else {
		fmt.Printf("Unliked %s\n", kind)
	}
	return nil
}

func parseItem(raw string) (map[string]any, error) {
	var item map[string]any
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return nil, fmt.Errorf("invalid item JSON: %w", err)
	}
	return item, nil
}

func listTracks(tracks []track.Track, err error) error {
	if err != nil {
		return err
	}
	if len(tracks) == 0 {
		fmt.Println("No tracks")
		return nil
	}
	for i := range tracks {
		t := &tracks[i]
		fmt.Printf("%2d. %-24s %s - %s (%s)\n", i+1, t.ID, t.Title, t.Artist(), clock(t.DurationSeconds))
	}
	return nil
}

func listCollections(list []playlist.Collection, err error) error {
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("Nothing liked yet")
		return nil
	}
	for i, c := range list {
		fmt.Printf("%2d. %-24s %s\n", i+1, c.ID, c.Name)
	}
	return nil
}

func playlists(ctx context.Context, client *apiconnect.Client) error {
	list, err := client.ListPlaylists(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No custom playlists")
		return nil
	}

	fmt.Printf("\n=== CUSTOM PLAYLISTS (%d) ===\n", len(list))
	for i := range list {
		p := &list[i]
		fmt.Printf("\n%s\n", p.Name)
		fmt.Printf("  ID: %s\n", p.ID)
		fmt.Printf("  Songs: %s (%s)\n", humanize.Comma(int64(len(p.Songs))), clock(float64(p.TotalDuration())))
		fmt.Printf("  Created: %s\n", humanize.Time(p.CreatedAt))
	}
	fmt.Println()
	return nil
}

func createPlaylist(ctx context.Context, client *apiconnect.Client, name string) error {
	p, err := client.CreatePlaylist(ctx, name)
	if err != nil {
		return err
	}
	fmt.Printf("Created playlist %q with %d songs: id=%s\n", p.Name, len(p.Songs), p.ID)
	return nil
}

func addSongs(ctx context.Context, client *apiconnect.Client, playlistID string, songIDs []string) error {
	added, err := client.AddSongs(ctx, playlistID, songIDs)
	if err != nil {
		return err
	}
	fmt.Printf("Added %d of %d songs\n", added, len(songIDs))
	return nil
}

func removeSong(ctx context.Context, client *apiconnect.Client, playlistID, songID string) error {
	removed, err := client.RemoveSong(ctx, playlistID, songID)
	if err != nil {
		return err
	}
	if removed {
		fmt.Println("Song removed")
	} else {
		fmt.Println("Song was not in the playlist")
	}
	return nil
}

// clock formats seconds as m:ss or h:mm:ss.
func clock(seconds float64) string {
	d := time.Duration(seconds) * time.Second
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
